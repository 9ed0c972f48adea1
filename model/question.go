package model

import (
	"encoding/json"
	"time"
)

// Question is a published bank entry. Immutable once published; created and
// edited by the content-management collaborator, never by this engine.
type Question struct {
	ID           string          `json:"id" gorm:"primaryKey"`
	Stem         string          `json:"stem" gorm:"type:text;not null"`
	Options      json.RawMessage `json:"options" gorm:"type:text"` // ordered, 2-6 entries
	CorrectIndex int             `json:"correct_index" gorm:"not null"`
	Difficulty   string          `json:"difficulty" gorm:"index"` // easy, medium, hard
	Category     string          `json:"category" gorm:"index"`
	Tags         json.RawMessage `json:"tags" gorm:"type:text"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// OptionList decodes the stored options array. A broken row decodes to nil,
// which callers treat as an empty option list.
func (q *Question) OptionList() []string {
	var options []string
	if q.Options != nil {
		if err := json.Unmarshal(q.Options, &options); err != nil {
			return nil
		}
	}
	return options
}

// TagList decodes the stored tags array.
func (q *Question) TagList() []string {
	var tags []string
	if q.Tags != nil {
		if err := json.Unmarshal(q.Tags, &tags); err != nil {
			return nil
		}
	}
	return tags
}
