package services

import (
	"os"

	"github.com/alphabatem/common/context"
	"github.com/usmle-trivia/quiz_api/dto"
	"github.com/usmle-trivia/quiz_api/model"
	"github.com/usmle-trivia/quiz_api/services/repositories"
	"gorm.io/gorm"
)

// QuestionService fronts the question bank. Read-only from the API's point
// of view; the bank is loaded by the seeder or an external pipeline.
type QuestionService struct {
	context.DefaultService

	db           *gorm.DB
	questionRepo *repositories.QuestionRepository
}

const QUESTION_SVC = "question_svc"

func (svc QuestionService) Id() string {
	return QUESTION_SVC
}

func (svc *QuestionService) Start() error {
	if os.Getenv("DB_DRIVER") == "postgres" {
		svc.db = svc.Service(POSTGRES_SVC).(*PostgresService).Db()
	} else {
		svc.db = svc.Service(SQLITE_SVC).(*SqliteService).Db()
	}
	svc.questionRepo = repositories.NewQuestionRepository(svc.db)
	return nil
}

func (svc *QuestionService) GetQuestion(questionID string) (*model.Question, error) {
	question, err := svc.questionRepo.GetQuestion(questionID)
	if err != nil {
		return nil, HandleError(err)
	}
	return question, nil
}

func (svc *QuestionService) GetQuestions(questionIDs []string) ([]model.Question, error) {
	questions, err := svc.questionRepo.GetQuestions(questionIDs)
	if err != nil {
		return nil, HandleError(err)
	}
	return questions, nil
}

func (svc *QuestionService) ListQuestions(req *dto.QuestionFilterRequest) ([]dto.QuestionResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}

	var categories []string
	if req.Category != "" {
		categories = []string{req.Category}
	}

	questions, err := svc.questionRepo.ListQuestions(categories, req.Difficulty, limit)
	if err != nil {
		return nil, HandleError(err)
	}

	responses := make([]dto.QuestionResponse, 0, len(questions))
	for i := range questions {
		responses = append(responses, ToQuestionResponse(&questions[i]))
	}
	return responses, nil
}

// listPool returns the full candidate pool for session building.
func (svc *QuestionService) listPool(categories []string, difficulty string) ([]model.Question, error) {
	questions, err := svc.questionRepo.ListQuestions(categories, difficulty, 0)
	if err != nil {
		return nil, HandleError(err)
	}
	return questions, nil
}

// ToQuestionResponse strips a question down to what clients may see. The
// correct option index never leaves the server.
func ToQuestionResponse(q *model.Question) dto.QuestionResponse {
	return dto.QuestionResponse{
		ID:         q.ID,
		Stem:       q.Stem,
		Options:    q.OptionList(),
		Difficulty: q.Difficulty,
		Category:   q.Category,
		Tags:       q.TagList(),
	}
}
