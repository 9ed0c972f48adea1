package services

import (
	"os"
	"time"

	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
	"github.com/usmle-trivia/quiz_api/model"
	"github.com/usmle-trivia/quiz_api/services/repositories"
	"gorm.io/gorm"
)

// TrackerService records each learner's exposure to questions so selection
// can favour unseen and least-recently-seen material, and lets learners flag
// questions out of rotation for a while.
type TrackerService struct {
	context.DefaultService

	db           *gorm.DB
	seenRepo     *repositories.SeenRepository
	questionRepo *repositories.QuestionRepository
}

const TRACKER_SVC = "tracker_svc"

const DefaultAvoidDays = 30

func (svc TrackerService) Id() string {
	return TRACKER_SVC
}

func (svc *TrackerService) Start() error {
	if os.Getenv("DB_DRIVER") == "postgres" {
		svc.db = svc.Service(POSTGRES_SVC).(*PostgresService).Db()
	} else {
		svc.db = svc.Service(SQLITE_SVC).(*SqliteService).Db()
	}
	svc.seenRepo = repositories.NewSeenRepository(svc.db)
	svc.questionRepo = repositories.NewQuestionRepository(svc.db)
	return nil
}

// SeenMap returns the user's exposure history keyed by question id.
func (svc *TrackerService) SeenMap(userID string) (map[string]model.SeenQuestion, error) {
	seen, err := svc.seenRepo.SeenMap(userID)
	if err != nil {
		return nil, HandleError(err)
	}
	return seen, nil
}

// RecordServed bumps the exposure counters for every question handed to the
// user in a new session. Failures are logged, not surfaced; losing one
// exposure tick must not fail session creation.
func (svc *TrackerService) RecordServed(userID string, questionIDs []string) {
	if err := svc.seenRepo.RecordServed(userID, questionIDs, time.Now().UTC()); err != nil {
		log.WithFields(log.Fields{
			"user_id": userID,
			"count":   len(questionIDs),
			"error":   err.Error(),
		}).Warn("Failed to record served questions")
	}
}

// RecordAnswered marks an exposure row with the answer outcome.
func (svc *TrackerService) RecordAnswered(userID, questionID string, correct bool) {
	if err := svc.seenRepo.RecordAnswered(userID, questionID, correct, time.Now().UTC()); err != nil {
		log.WithFields(log.Fields{
			"user_id":     userID,
			"question_id": questionID,
			"error":       err.Error(),
		}).Warn("Failed to record answered question")
	}
}

// MarkAvoid flags a question out of the user's selection pool. durationDays
// of zero falls back to the default window.
func (svc *TrackerService) MarkAvoid(userID, questionID string, durationDays int) error {
	if _, err := svc.questionRepo.GetQuestion(questionID); err != nil {
		return HandleError(err)
	}

	if durationDays <= 0 {
		durationDays = DefaultAvoidDays
	}

	avoidUntil := time.Now().UTC().AddDate(0, 0, durationDays)
	if err := svc.seenRepo.MarkAvoid(userID, questionID, avoidUntil); err != nil {
		return HandleError(err)
	}
	return nil
}
