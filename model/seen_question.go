package model

import "time"

// SeenQuestion tracks one learner's exposure to one question. Rows are never
// deleted; the avoid flag simply ages out once avoid_until passes.
type SeenQuestion struct {
	ID          string     `json:"id" gorm:"primaryKey"`
	UserID      string     `json:"user_id" gorm:"uniqueIndex:idx_seen_questions_user_question;not null"`
	QuestionID  string     `json:"question_id" gorm:"uniqueIndex:idx_seen_questions_user_question;not null"`
	SeenCount   int        `json:"seen_count" gorm:"default:0"`
	LastSeenAt  time.Time  `json:"last_seen_at"`
	WasAnswered bool       `json:"was_answered" gorm:"default:false"`
	WasCorrect  bool       `json:"was_correct" gorm:"default:false"`
	ShouldAvoid bool       `json:"should_avoid" gorm:"default:false"`
	AvoidUntil  *time.Time `json:"avoid_until"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// AvoidActive reports whether the avoid flag is set and unexpired.
func (sq *SeenQuestion) AvoidActive(now time.Time) bool {
	if !sq.ShouldAvoid {
		return false
	}
	return sq.AvoidUntil != nil && now.Before(*sq.AvoidUntil)
}
