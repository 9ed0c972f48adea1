package repositories

import (
	"time"

	"github.com/google/uuid"
	"github.com/usmle-trivia/quiz_api/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeenRepository handles per-user question exposure tracking
type SeenRepository struct {
	BaseRepository
}

func NewSeenRepository(db *gorm.DB) *SeenRepository {
	return &SeenRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

func (sr *SeenRepository) Get(userID, questionID string) (*model.SeenQuestion, error) {
	var seen model.SeenQuestion
	err := sr.db.Where("user_id = ? AND question_id = ?", userID, questionID).
		First(&seen).Error
	if err != nil {
		return nil, err
	}
	return &seen, nil
}

// SeenMap returns the user's exposure rows keyed by question id. Questions
// never served have no entry.
func (sr *SeenRepository) SeenMap(userID string) (map[string]model.SeenQuestion, error) {
	var rows []model.SeenQuestion
	if err := sr.db.Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}

	seen := make(map[string]model.SeenQuestion, len(rows))
	for _, row := range rows {
		seen[row.QuestionID] = row
	}
	return seen, nil
}

// RecordServed upserts one exposure row per served question, incrementing
// seen_count and bumping last_seen_at on conflict.
func (sr *SeenRepository) RecordServed(userID string, questionIDs []string, servedAt time.Time) error {
	if len(questionIDs) == 0 {
		return nil
	}

	rows := make([]model.SeenQuestion, 0, len(questionIDs))
	for _, questionID := range questionIDs {
		id, _ := uuid.NewV7()
		rows = append(rows, model.SeenQuestion{
			ID:         id.String(),
			UserID:     userID,
			QuestionID: questionID,
			SeenCount:  1,
			LastSeenAt: servedAt,
		})
	}

	return sr.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "question_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"seen_count":   gorm.Expr("seen_questions.seen_count + 1"),
			"last_seen_at": servedAt,
			"updated_at":   servedAt,
		}),
	}).Create(&rows).Error
}

func (sr *SeenRepository) RecordAnswered(userID, questionID string, correct bool, answeredAt time.Time) error {
	return sr.db.Model(&model.SeenQuestion{}).
		Where("user_id = ? AND question_id = ?", userID, questionID).
		Updates(map[string]interface{}{
			"was_answered": true,
			"was_correct":  correct,
			"updated_at":   answeredAt,
		}).Error
}

// MarkAvoid flags a question out of future selection until avoidUntil. A row
// is created if the user never saw the question.
func (sr *SeenRepository) MarkAvoid(userID, questionID string, avoidUntil time.Time) error {
	id, _ := uuid.NewV7()
	now := time.Now().UTC()
	row := model.SeenQuestion{
		ID:          id.String(),
		UserID:      userID,
		QuestionID:  questionID,
		LastSeenAt:  now,
		ShouldAvoid: true,
		AvoidUntil:  &avoidUntil,
	}

	return sr.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "question_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"should_avoid": true,
			"avoid_until":  avoidUntil,
			"updated_at":   now,
		}),
	}).Create(&row).Error
}
