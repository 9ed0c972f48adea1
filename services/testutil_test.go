package services

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/usmle-trivia/quiz_api/model"
	"github.com/usmle-trivia/quiz_api/services/repositories"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	db *gorm.DB

	quizSvc     *QuizService
	userSvc     *UserService
	trackerSvc  *TrackerService
	questionSvc *QuestionService
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(quizModels()...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// newTestEnv wires the service graph directly, skipping the container.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)

	questionSvc := &QuestionService{
		db:           db,
		questionRepo: repositories.NewQuestionRepository(db),
	}
	trackerSvc := &TrackerService{
		db:           db,
		seenRepo:     repositories.NewSeenRepository(db),
		questionRepo: repositories.NewQuestionRepository(db),
	}
	userSvc := &UserService{
		db:        db,
		statsRepo: repositories.NewStatsRepository(db),
		points:    LoadPointsPolicy(),
	}
	quizSvc := &QuizService{
		db:            db,
		sessionRepo:   repositories.NewSessionRepository(db),
		questionSvc:   questionSvc,
		trackerSvc:    trackerSvc,
		userSvc:       userSvc,
		monitoringSvc: &MonitoringService{},
	}

	return &testEnv{
		db:          db,
		quizSvc:     quizSvc,
		userSvc:     userSvc,
		trackerSvc:  trackerSvc,
		questionSvc: questionSvc,
	}
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *model.User {
	t.Helper()

	id, _ := uuid.NewV7()
	user := &model.User{
		ID:       id.String(),
		Email:    username + "@example.com",
		Username: username,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

func createTestQuestions(t *testing.T, db *gorm.DB, count int, category, difficulty string) []model.Question {
	t.Helper()

	questions := make([]model.Question, 0, count)
	for i := 0; i < count; i++ {
		options, _ := json.Marshal([]string{"Option A", "Option B", "Option C", "Option D"})
		id, _ := uuid.NewV7()
		q := model.Question{
			ID:           id.String(),
			Stem:         fmt.Sprintf("Question %d in %s", i, category),
			Options:      options,
			CorrectIndex: i % 4,
			Difficulty:   difficulty,
			Category:     category,
		}
		if err := db.Create(&q).Error; err != nil {
			t.Fatalf("failed to create test question: %v", err)
		}
		questions = append(questions, q)
	}
	return questions
}

func intPtr(v int) *int {
	return &v
}
