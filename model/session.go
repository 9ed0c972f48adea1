package model

import (
	"encoding/json"
	"time"
)

// QuizSession is one quiz attempt. The question list is fixed at creation;
// answers live in SessionAnswer child rows so the write-once-per-slot rule
// is enforced by the store, not by in-process locking. Status transitions
// are always conditional writes on the current status.
type QuizSession struct {
	ID                string          `json:"id" gorm:"primaryKey"`
	UserID            string          `json:"user_id" gorm:"index:idx_quiz_sessions_user_mode_status;not null"`
	Mode              string          `json:"mode" gorm:"index:idx_quiz_sessions_user_mode_status;not null"`
	Status            string          `json:"status" gorm:"index:idx_quiz_sessions_user_mode_status;index:idx_quiz_sessions_status_abandoned;not null"`
	QuestionIDs       json.RawMessage `json:"question_ids" gorm:"type:text"` // ordered, fixed at creation
	Score             int             `json:"score"`                         // valid only once completed
	TimeSpentSeconds  int             `json:"time_spent_seconds"`
	LastQuestionIndex int             `json:"last_question_index"`
	CanResume         bool            `json:"can_resume"`
	AbandonReason     string          `json:"abandon_reason"`
	AbandonedAt       *time.Time      `json:"abandoned_at" gorm:"index:idx_quiz_sessions_status_abandoned"`
	ResumedAt         *time.Time      `json:"resumed_at"`
	CompletedAt       *time.Time      `json:"completed_at"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

const (
	SessionStatusActive    = "active"
	SessionStatusCompleted = "completed"
	SessionStatusAbandoned = "abandoned"

	ModeQuick  = "quick"
	ModeTimed  = "timed"
	ModeCustom = "custom"
)

// QuestionIDList decodes the fixed question ordering.
func (s *QuizSession) QuestionIDList() []string {
	var ids []string
	if s.QuestionIDs != nil {
		if err := json.Unmarshal(s.QuestionIDs, &ids); err != nil {
			return nil
		}
	}
	return ids
}

// SessionAnswer records one answered slot. The unique (session_id,
// question_index) key is what makes answers write-once under a retry storm.
type SessionAnswer struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	SessionID     string    `json:"session_id" gorm:"uniqueIndex:idx_session_answers_slot;not null"`
	QuestionIndex int       `json:"question_index" gorm:"uniqueIndex:idx_session_answers_slot;not null"`
	QuestionID    string    `json:"question_id" gorm:"not null"`
	OptionIndex   int       `json:"option_index" gorm:"not null"`
	IsCorrect     bool      `json:"is_correct"`
	AnsweredAt    time.Time `json:"answered_at"`
}
