package services

import (
	"errors"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
	"github.com/usmle-trivia/quiz_api/dto"
	"github.com/usmle-trivia/quiz_api/model"
	"github.com/usmle-trivia/quiz_api/services/repositories"
	"github.com/usmle-trivia/quiz_api/shared"
	"gorm.io/gorm"
)

// UserService owns the durable statistics for each learner: points, level,
// weighted accuracy, and the daily study streak. All mutation happens through
// ApplyQuizCompletion inside the completion transaction.
type UserService struct {
	context.DefaultService

	db        *gorm.DB
	statsRepo *repositories.StatsRepository
	points    PointsPolicy
}

const USER_SVC = "user_svc"

// PointsPolicy maps question difficulty to base points. Defaults to 10 per
// correct answer at every difficulty; override per tier with
// QUIZ_POINTS_EASY, QUIZ_POINTS_MEDIUM, QUIZ_POINTS_HARD.
type PointsPolicy struct {
	Easy   int
	Medium int
	Hard   int
}

func LoadPointsPolicy() PointsPolicy {
	return PointsPolicy{
		Easy:   pointsFromEnv("QUIZ_POINTS_EASY", 10),
		Medium: pointsFromEnv("QUIZ_POINTS_MEDIUM", 10),
		Hard:   pointsFromEnv("QUIZ_POINTS_HARD", 10),
	}
}

func pointsFromEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func (p PointsPolicy) BasePoints(difficulty string) int {
	switch difficulty {
	case shared.DifficultyEasy:
		return p.Easy
	case shared.DifficultyMedium:
		return p.Medium
	case shared.DifficultyHard:
		return p.Hard
	default:
		return p.Medium
	}
}

func (svc UserService) Id() string {
	return USER_SVC
}

func (svc *UserService) Configure(ctx *context.Context) error {
	svc.points = LoadPointsPolicy()
	return svc.DefaultService.Configure(ctx)
}

func (svc *UserService) Start() error {
	if os.Getenv("DB_DRIVER") == "postgres" {
		svc.db = svc.Service(POSTGRES_SVC).(*PostgresService).Db()
	} else {
		svc.db = svc.Service(SQLITE_SVC).(*SqliteService).Db()
	}
	svc.statsRepo = repositories.NewStatsRepository(svc.db)
	return nil
}

// CompletionResult is what one finished quiz contributed to the stats.
type CompletionResult struct {
	Score        int
	Correct      int
	Total        int
	PointsEarned int
}

// SessionScore computes the 0-100 session score. A session with no questions
// scores zero.
func SessionScore(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) * 100 / float64(total)))
}

// ApplyQuizCompletion folds one completed quiz into the user's stats. Runs
// against tx so the stats patch and the session status flip commit together.
// correctQuestions carries the question rows answered correctly; their
// difficulty drives the points award.
func (svc *UserService) ApplyQuizCompletion(tx *gorm.DB, userID string, correct, total int, correctQuestions []model.Question, completedAt time.Time) (*model.UserStats, *CompletionResult, error) {
	repo := repositories.NewStatsRepository(tx)

	stats, err := repo.GetOrCreateUserStats(userID)
	if err != nil {
		return nil, nil, err
	}

	score := SessionScore(correct, total)

	pointsEarned := 0
	for _, q := range correctQuestions {
		pointsEarned += svc.points.BasePoints(q.Difficulty)
	}

	stats.Points += pointsEarned
	stats.Level = calculateLevel(stats.Points)
	stats.Accuracy = foldAccuracy(stats.Accuracy, stats.TotalQuizzes, score)
	stats.TotalQuizzes++
	svc.updateStreak(stats, completedAt)

	if err := repo.SaveUserStats(stats); err != nil {
		return nil, nil, err
	}

	return stats, &CompletionResult{
		Score:        score,
		Correct:      correct,
		Total:        total,
		PointsEarned: pointsEarned,
	}, nil
}

// foldAccuracy updates the running accuracy so every completed quiz carries
// equal weight regardless of its question count.
func foldAccuracy(accuracy, totalQuizzes, score int) int {
	return int(math.Round(float64(accuracy*totalQuizzes+score) / float64(totalQuizzes+1)))
}

// calculateLevel derives level from lifetime points, 100 points per level.
func calculateLevel(points int) int {
	return points/100 + 1
}

// updateStreak advances the daily study streak. Same-day completions leave
// the streak alone; a one-day gap extends it; a two-day gap is forgiven when
// the user holds a streak freeze, which is consumed. Anything longer resets
// to one.
func (svc *UserService) updateStreak(stats *model.UserStats, completedAt time.Time) {
	today := completedAt.UTC().Truncate(24 * time.Hour)

	if stats.LastStudyDate == nil {
		stats.CurrentStreak = 1
	} else {
		last := stats.LastStudyDate.UTC().Truncate(24 * time.Hour)
		gapDays := int(today.Sub(last).Hours() / 24)

		switch {
		case gapDays <= 0:
			// Already studied today, streak unchanged
		case gapDays == 1:
			stats.CurrentStreak++
		case gapDays == 2 && stats.StreakFreezeCount > 0:
			stats.StreakFreezeCount--
			stats.CurrentStreak++
			log.WithFields(log.Fields{
				"user_id": stats.UserID,
				"streak":  stats.CurrentStreak,
			}).Info("Streak freeze consumed")
		default:
			stats.CurrentStreak = 1
		}
	}

	if stats.CurrentStreak > stats.LongestStreak {
		stats.LongestStreak = stats.CurrentStreak
	}
	stats.LastStudyDate = &today
}

func (svc *UserService) GetUserStats(userID string) (*dto.UserStatsResponse, error) {
	stats, err := svc.statsRepo.GetOrCreateUserStats(userID)
	if err != nil {
		return nil, HandleError(err)
	}

	rank, err := svc.statsRepo.GetUserRank(userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, HandleError(err)
		}
		rank = 0
	}

	return &dto.UserStatsResponse{
		UserID:            stats.UserID,
		Points:            stats.Points,
		Level:             stats.Level,
		Accuracy:          stats.Accuracy,
		TotalQuizzes:      stats.TotalQuizzes,
		CurrentStreak:     stats.CurrentStreak,
		LongestStreak:     stats.LongestStreak,
		StreakFreezeCount: stats.StreakFreezeCount,
		LastStudyDate:     stats.LastStudyDate,
		Rank:              rank,
	}, nil
}

// GetLeaderboard returns the top users plus the caller's own placement when
// they fall outside the top. Always served from live data.
func (svc *UserService) GetLeaderboard(userID string, limit int) (*dto.LeaderboardResponse, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := svc.statsRepo.TopUsers(limit)
	if err != nil {
		return nil, HandleError(err)
	}

	resp := &dto.LeaderboardResponse{
		TopUsers: make([]dto.LeaderboardEntry, 0, len(rows)),
	}

	for i, row := range rows {
		entry := dto.LeaderboardEntry{
			UserID:       row.UserID,
			Username:     row.Username,
			Points:       row.Points,
			Level:        row.Level,
			Accuracy:     row.Accuracy,
			TotalQuizzes: row.TotalQuizzes,
			Rank:         i + 1,
		}
		resp.TopUsers = append(resp.TopUsers, entry)

		if userID != "" && row.UserID == userID {
			current := entry
			resp.CurrentUser = &current
		}
	}

	if userID != "" && resp.CurrentUser == nil {
		rank, err := svc.statsRepo.GetUserRank(userID)
		if err == nil {
			stats, statsErr := svc.statsRepo.GetUserStats(userID)
			if statsErr == nil {
				var user model.User
				username := ""
				if dbErr := svc.db.Where("id = ?", userID).First(&user).Error; dbErr == nil {
					username = user.Username
				}
				resp.CurrentUser = &dto.LeaderboardEntry{
					UserID:       userID,
					Username:     username,
					Points:       stats.Points,
					Level:        stats.Level,
					Accuracy:     stats.Accuracy,
					TotalQuizzes: stats.TotalQuizzes,
					Rank:         rank,
				}
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, HandleError(err)
		}
	}

	return resp, nil
}
