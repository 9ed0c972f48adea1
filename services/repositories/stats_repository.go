package repositories

import (
	"errors"

	"github.com/google/uuid"
	"github.com/usmle-trivia/quiz_api/model"
	"gorm.io/gorm"
)

// StatsRepository handles user statistics and leaderboard queries
type StatsRepository struct {
	BaseRepository
}

func NewStatsRepository(db *gorm.DB) *StatsRepository {
	return &StatsRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

func (sr *StatsRepository) GetUserStats(userID string) (*model.UserStats, error) {
	var stats model.UserStats
	if err := sr.db.Where("user_id = ?", userID).First(&stats).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}

func (sr *StatsRepository) GetOrCreateUserStats(userID string) (*model.UserStats, error) {
	stats, err := sr.GetUserStats(userID)
	if err == nil {
		return stats, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	id, _ := uuid.NewV7()
	stats = &model.UserStats{
		ID:     id.String(),
		UserID: userID,
		Level:  1,
	}
	if err := sr.db.Create(stats).Error; err != nil {
		return nil, err
	}
	return stats, nil
}

func (sr *StatsRepository) SaveUserStats(stats *model.UserStats) error {
	return sr.db.Save(stats).Error
}

type LeaderboardRow struct {
	UserID       string
	Username     string
	Points       int
	Level        int
	Accuracy     int
	TotalQuizzes int
}

// TopUsers returns the leaderboard ordering: points desc, accuracy desc,
// account age asc. The tie-break chain is total so ranks are deterministic.
func (sr *StatsRepository) TopUsers(limit int) ([]LeaderboardRow, error) {
	var rows []LeaderboardRow
	err := sr.db.Model(&model.UserStats{}).
		Select("user_stats.user_id, users.username, user_stats.points, user_stats.level, user_stats.accuracy, user_stats.total_quizzes").
		Joins("JOIN users ON users.id = user_stats.user_id").
		Order("user_stats.points DESC, user_stats.accuracy DESC, users.created_at ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// GetUserRank computes a user's 1-based leaderboard position under the same
// ordering TopUsers uses.
func (sr *StatsRepository) GetUserRank(userID string) (int, error) {
	stats, err := sr.GetUserStats(userID)
	if err != nil {
		return 0, err
	}

	var user model.User
	if err := sr.db.Where("id = ?", userID).First(&user).Error; err != nil {
		return 0, err
	}

	var ahead int64
	err = sr.db.Model(&model.UserStats{}).
		Joins("JOIN users ON users.id = user_stats.user_id").
		Where("user_stats.points > ? OR (user_stats.points = ? AND user_stats.accuracy > ?) OR (user_stats.points = ? AND user_stats.accuracy = ? AND users.created_at < ?)",
			stats.Points, stats.Points, stats.Accuracy, stats.Points, stats.Accuracy, user.CreatedAt).
		Count(&ahead).Error
	if err != nil {
		return 0, err
	}

	return int(ahead) + 1, nil
}
