package dto

import "time"

type UserStatsResponse struct {
	UserID            string     `json:"user_id"`
	Points            int        `json:"points"`
	Level             int        `json:"level"`
	Accuracy          int        `json:"accuracy"`
	TotalQuizzes      int        `json:"total_quizzes"`
	CurrentStreak     int        `json:"current_streak"`
	LongestStreak     int        `json:"longest_streak"`
	StreakFreezeCount int        `json:"streak_freeze_count"`
	LastStudyDate     *time.Time `json:"last_study_date,omitempty"`
	Rank              int        `json:"rank"`
}

// Leaderboard DTOs
type LeaderboardEntry struct {
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	Points       int    `json:"points"`
	Level        int    `json:"level"`
	Accuracy     int    `json:"accuracy"`
	TotalQuizzes int    `json:"total_quizzes"`
	Rank         int    `json:"rank"`
}

type LeaderboardResponse struct {
	CurrentUser *LeaderboardEntry  `json:"current_user,omitempty"`
	TopUsers    []LeaderboardEntry `json:"top_users"`
}
