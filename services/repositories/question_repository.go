package repositories

import (
	"github.com/google/uuid"
	"github.com/usmle-trivia/quiz_api/model"
	"gorm.io/gorm"
)

// QuestionRepository handles question bank database operations
type QuestionRepository struct {
	BaseRepository
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

func (qr *QuestionRepository) GetQuestion(questionID string) (*model.Question, error) {
	var question model.Question
	if err := qr.db.Where("id = ?", questionID).First(&question).Error; err != nil {
		return nil, err
	}
	return &question, nil
}

func (qr *QuestionRepository) GetQuestions(questionIDs []string) ([]model.Question, error) {
	var questions []model.Question
	if len(questionIDs) == 0 {
		return questions, nil
	}
	if err := qr.db.Where("id IN ?", questionIDs).Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (qr *QuestionRepository) CreateQuestion(question *model.Question) (*model.Question, error) {
	if question.ID == "" {
		id, _ := uuid.NewV7()
		question.ID = id.String()
	}
	if err := qr.db.Create(question).Error; err != nil {
		return nil, err
	}
	return question, nil
}

// ListQuestions returns the candidate pool for session building, filtered by
// category/difficulty when set. The pool is unordered; selection ordering is
// the session engine's job.
func (qr *QuestionRepository) ListQuestions(categories []string, difficulty string, limit int) ([]model.Question, error) {
	query := qr.db.Model(&model.Question{})
	if len(categories) > 0 {
		query = query.Where("category IN ?", categories)
	}
	if difficulty != "" {
		query = query.Where("difficulty = ?", difficulty)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var questions []model.Question
	if err := query.Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}

func (qr *QuestionRepository) CountQuestions() (int64, error) {
	var count int64
	if err := qr.db.Model(&model.Question{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
