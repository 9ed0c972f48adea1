package model

import "time"

// User is owned by the identity collaborator; the engine only ever reads it
// (username for leaderboard display, created_at for tie-breaking).
type User struct {
	ID        string `gorm:"primaryKey"`
	Email     string `gorm:"unique"`
	Username  string `gorm:"unique;not null"`
	Password  string
	LastLogin time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserStats holds the durable quiz statistics for one learner. Mutated only
// by the scoring engine inside the completion transaction.
type UserStats struct {
	ID                string     `json:"id" gorm:"primaryKey"`
	UserID            string     `json:"user_id" gorm:"uniqueIndex;not null"`
	Points            int        `json:"points" gorm:"default:0;index"`
	Level             int        `json:"level" gorm:"default:1"`
	Accuracy          int        `json:"accuracy" gorm:"default:0"` // 0-100, running weighted average
	TotalQuizzes      int        `json:"total_quizzes" gorm:"default:0"`
	CurrentStreak     int        `json:"current_streak" gorm:"default:0"`
	LongestStreak     int        `json:"longest_streak" gorm:"default:0"`
	LastStudyDate     *time.Time `json:"last_study_date"`
	StreakFreezeCount int        `json:"streak_freeze_count" gorm:"default:0"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}
