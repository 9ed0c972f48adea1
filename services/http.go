package services

import (
	"fmt"
	"os"
	"strconv"

	"github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/rs/zerolog/log"

	"github.com/usmle-trivia/quiz_api/services/handlers"
	"github.com/usmle-trivia/quiz_api/shared"
)

const HTTP_SVC = "http_svc"
const DEFAULT_PORT = 8000

// HttpService owns the public API surface. Handlers return errors; the
// central ErrorHandler maps them onto the response envelope.
type HttpService struct {
	context.DefaultService

	server *fiber.App
	port   int

	quizSvc      *QuizService
	questionSvc  *QuestionService
	trackerSvc   *TrackerService
	userSvc      *UserService
	authSvc      *AuthService
	rateLimitSvc *RateLimitService
	monitoring   *MonitoringService

	quizHandler     *handlers.QuizHandler
	questionHandler *handlers.QuestionHandler
	userHandler     *handlers.UserHandler
}

func (svc HttpService) Id() string {
	return HTTP_SVC
}

func (svc *HttpService) Configure(ctx *context.Context) error {
	svc.port = DEFAULT_PORT
	if portStr := os.Getenv("HTTP_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			svc.port = port
		}
	}

	return svc.DefaultService.Configure(ctx)
}

func (svc *HttpService) Start() error {
	svc.quizSvc = svc.Service(QUIZ_SVC).(*QuizService)
	svc.questionSvc = svc.Service(QUESTION_SVC).(*QuestionService)
	svc.trackerSvc = svc.Service(TRACKER_SVC).(*TrackerService)
	svc.userSvc = svc.Service(USER_SVC).(*UserService)
	svc.authSvc = svc.Service(AUTH_SVC).(*AuthService)
	svc.rateLimitSvc = svc.Service(RATE_LIMIT_SVC).(*RateLimitService)
	svc.monitoring = svc.Service(MONITORING_SVC).(*MonitoringService)

	svc.quizHandler = handlers.NewQuizHandler(svc.quizSvc, svc.trackerSvc)
	svc.questionHandler = handlers.NewQuestionHandler(svc.questionSvc)
	svc.userHandler = handlers.NewUserHandler(svc.userSvc)

	svc.server = fiber.New(fiber.Config{
		AppName:      "quiz_api",
		JSONEncoder:  shared.JSONMarshal,
		JSONDecoder:  shared.JSONUnmarshal,
		ErrorHandler: errorHandler,
	})

	svc.server.Use(recover.New())
	svc.server.Use(cors.New(cors.Config{
		AllowOrigins: corsOrigins(),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	svc.server.Use(MonitoringMiddleware(svc.monitoring))
	svc.server.Use(svc.rateLimitSvc.IPRateLimit())

	svc.registerRoutes()

	log.Info().Int("port", svc.port).Msg("HTTP server started")
	return svc.server.Listen(fmt.Sprintf(":%v", svc.port))
}

func (svc *HttpService) Shutdown() {
	if svc.server != nil {
		_ = svc.server.Shutdown()
	}
}

func (svc *HttpService) registerRoutes() {
	svc.server.Get("/ping", func(c *fiber.Ctx) error {
		return shared.ResponseJSON(c, fiber.StatusOK, "Success", "pong")
	})
	svc.server.Get("/swagger/*", swagger.HandlerDefault)

	auth := svc.authSvc.RequiredAuth()
	v1 := svc.server.Group("/api/v1")

	quiz := v1.Group("/quiz", auth)
	quiz.Post("/sessions", svc.rateLimitSvc.UserBasedRateLimit("session_create"), svc.quizHandler.CreateSession)
	quiz.Get("/sessions/resumable", svc.quizHandler.GetResumableSessions)
	quiz.Get("/sessions/:sessionId", svc.quizHandler.GetSession)
	quiz.Post("/sessions/:sessionId/answers", svc.rateLimitSvc.UserBasedRateLimit("answer_submit"), svc.quizHandler.SubmitAnswer)
	quiz.Post("/sessions/:sessionId/abandon", svc.quizHandler.AbandonSession)
	quiz.Post("/sessions/:sessionId/resume", svc.quizHandler.ResumeSession)
	quiz.Post("/sessions/:sessionId/complete", svc.rateLimitSvc.UserBasedRateLimit("session_complete"), svc.quizHandler.CompleteSession)
	quiz.Post("/questions/:questionId/avoid", svc.rateLimitSvc.UserBasedRateLimit("avoid_mark"), svc.quizHandler.AvoidQuestion)

	v1.Get("/questions", auth, svc.questionHandler.ListQuestions)
	v1.Get("/leaderboard", svc.authSvc.OptionalAuth(), svc.userHandler.GetLeaderboard)
	v1.Get("/user/stats", auth, svc.userHandler.GetUserStats)
}

func corsOrigins() string {
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		return origins
	}
	return "*"
}

// errorHandler maps service errors onto the response envelope. AppErrors
// carry their own status and kind; anything else is a 500 with no detail
// leaked to the client.
func errorHandler(c *fiber.Ctx, err error) error {
	if appErr, ok := shared.GetAppError(err); ok {
		data := appErr.Data
		if data == nil {
			data = fiber.Map{"error": appErr.Kind}
		}
		return shared.ResponseJSON(c, appErr.StatusCode, appErr.Message, data)
	}

	if e, ok := err.(*fiber.Error); ok {
		return shared.ResponseJSON(c, e.Code, e.Message, nil)
	}

	log.Error().Err(err).Str("path", c.Path()).Msg("Unhandled error")
	return shared.ResponseInternalError(c)
}
