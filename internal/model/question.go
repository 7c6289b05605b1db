package model

import (
	"github.com/google/uuid"
)

// Question represents a single multiple-choice exam question.
// CorrectOption is the index into Options and must never leave the
// admin-facing surface.
type Question struct {
	ID            uuid.UUID `json:"id"`
	SectionID     uuid.UUID `json:"section_id"`
	Prompt        string    `json:"prompt"`
	Options       []string  `json:"options"`
	CorrectOption int       `json:"correct_option"`
	OrderNum      int       `json:"order_num"`
}
