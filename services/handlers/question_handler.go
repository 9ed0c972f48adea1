package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/usmle-trivia/quiz_api/dto"
	"github.com/usmle-trivia/quiz_api/shared"
)

type QuestionHandler struct {
	questionSvc QuestionServiceInterface
}

func NewQuestionHandler(questionSvc QuestionServiceInterface) *QuestionHandler {
	return &QuestionHandler{
		questionSvc: questionSvc,
	}
}

// @Summary Browse questions
// @Description List questions filtered by category and difficulty
// @Tags questions
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param category query string false "Category filter"
// @Param difficulty query string false "Difficulty filter" Enums(easy, medium, hard)
// @Param limit query int false "Max results"
// @Success 200 {object} shared.Response{data=[]dto.QuestionResponse}
// @Router /api/v1/questions [get]
func (h *QuestionHandler) ListQuestions(c *fiber.Ctx) error {
	var req dto.QuestionFilterRequest
	if err := c.QueryParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request")
	}
	if err := req.Validate(); err != nil {
		return shared.NewBadRequestError(err, "Validation failed")
	}

	questions, err := h.questionSvc.ListQuestions(&req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", questions)
}
