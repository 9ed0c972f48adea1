package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/usmle-trivia/quiz_api/dto"
	"github.com/usmle-trivia/quiz_api/shared"
)

type QuizHandler struct {
	quizSvc    QuizServiceInterface
	trackerSvc TrackerServiceInterface
}

func NewQuizHandler(quizSvc QuizServiceInterface, trackerSvc TrackerServiceInterface) *QuizHandler {
	return &QuizHandler{
		quizSvc:    quizSvc,
		trackerSvc: trackerSvc,
	}
}

// @Summary Start a quiz session
// @Description Start a new quiz session in the given mode
// @Tags quiz
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param createRequest body dto.CreateSessionRequest true "Session parameters"
// @Success 201 {object} shared.Response{data=dto.SessionResponse}
// @Router /api/v1/quiz/sessions [post]
func (h *QuizHandler) CreateSession(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	var req dto.CreateSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request")
	}
	if err := req.Validate(); err != nil {
		return shared.NewBadRequestError(err, "Validation failed")
	}

	session, err := h.quizSvc.CreateSession(userID, &req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusCreated, "Created", session)
}

// @Summary Get a quiz session
// @Description Get a quiz session with its questions and answers
// @Tags quiz
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param sessionId path string true "Session ID"
// @Success 200 {object} shared.Response{data=dto.SessionResponse}
// @Router /api/v1/quiz/sessions/{sessionId} [get]
func (h *QuizHandler) GetSession(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)
	sessionID := c.Params("sessionId")

	session, err := h.quizSvc.GetSession(userID, sessionID)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", session)
}

// @Summary List resumable sessions
// @Description List abandoned sessions still inside the resume window
// @Tags quiz
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Success 200 {object} shared.Response{data=dto.ResumableSessionsResponse}
// @Router /api/v1/quiz/sessions/resumable [get]
func (h *QuizHandler) GetResumableSessions(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)

	sessions, err := h.quizSvc.GetResumableSessions(userID)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", sessions)
}

// @Summary Submit an answer
// @Description Submit one answer for a session question slot
// @Tags quiz
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param sessionId path string true "Session ID"
// @Param answerRequest body dto.SubmitAnswerRequest true "Answer"
// @Success 200 {object} shared.Response{data=dto.AnswerResultResponse}
// @Router /api/v1/quiz/sessions/{sessionId}/answers [post]
func (h *QuizHandler) SubmitAnswer(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)
	sessionID := c.Params("sessionId")

	var req dto.SubmitAnswerRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request")
	}
	if err := req.Validate(); err != nil {
		return shared.NewBadRequestError(err, "Validation failed")
	}

	result, err := h.quizSvc.SubmitAnswer(userID, sessionID, &req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", result)
}

// @Summary Abandon a session
// @Description Abandon an active session, keeping it resumable for a day
// @Tags quiz
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param sessionId path string true "Session ID"
// @Param abandonRequest body dto.AbandonSessionRequest false "Abandon reason"
// @Success 200 {object} shared.Response{data=dto.SessionResponse}
// @Router /api/v1/quiz/sessions/{sessionId}/abandon [post]
func (h *QuizHandler) AbandonSession(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)
	sessionID := c.Params("sessionId")

	var req dto.AbandonSessionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return shared.NewBadRequestError(err, "Invalid request")
		}
	}
	if err := req.Validate(); err != nil {
		return shared.NewBadRequestError(err, "Validation failed")
	}

	session, err := h.quizSvc.AbandonSession(userID, sessionID, &req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", session)
}

// @Summary Resume a session
// @Description Resume an abandoned session inside the resume window
// @Tags quiz
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param sessionId path string true "Session ID"
// @Success 200 {object} shared.Response{data=dto.SessionResponse}
// @Router /api/v1/quiz/sessions/{sessionId}/resume [post]
func (h *QuizHandler) ResumeSession(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)
	sessionID := c.Params("sessionId")

	session, err := h.quizSvc.ResumeSession(userID, sessionID)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", session)
}

// @Summary Complete a session
// @Description Grade the session and fold the result into user statistics
// @Tags quiz
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param sessionId path string true "Session ID"
// @Param completeRequest body dto.CompleteSessionRequest false "Completion details"
// @Success 200 {object} shared.Response{data=dto.CompleteSessionResponse}
// @Router /api/v1/quiz/sessions/{sessionId}/complete [post]
func (h *QuizHandler) CompleteSession(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)
	sessionID := c.Params("sessionId")

	var req dto.CompleteSessionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return shared.NewBadRequestError(err, "Invalid request")
		}
	}
	if err := req.Validate(); err != nil {
		return shared.NewBadRequestError(err, "Validation failed")
	}

	result, err := h.quizSvc.CompleteSession(userID, sessionID, &req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", result)
}

// @Summary Avoid a question
// @Description Flag a question out of the caller's selection pool for a while
// @Tags quiz
// @Accept json
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <user_token>)
// @Param questionId path string true "Question ID"
// @Param avoidRequest body dto.AvoidQuestionRequest false "Avoid duration"
// @Success 200 {object} shared.Response
// @Router /api/v1/quiz/questions/{questionId}/avoid [post]
func (h *QuizHandler) AvoidQuestion(c *fiber.Ctx) error {
	userID := c.Locals(shared.UserID).(string)
	questionID := c.Params("questionId")

	var req dto.AvoidQuestionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return shared.NewBadRequestError(err, "Invalid request")
		}
	}
	if err := req.Validate(); err != nil {
		return shared.NewBadRequestError(err, "Validation failed")
	}

	if err := h.trackerSvc.MarkAvoid(userID, questionID, req.DurationDays); err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", nil)
}
