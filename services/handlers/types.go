package handlers

import (
	"github.com/usmle-trivia/quiz_api/dto"
	"github.com/usmle-trivia/quiz_api/model"
)

type QuizServiceInterface interface {
	CreateSession(userID string, req *dto.CreateSessionRequest) (*dto.SessionResponse, error)
	GetSession(userID, sessionID string) (*dto.SessionResponse, error)
	GetResumableSessions(userID string) (*dto.ResumableSessionsResponse, error)
	SubmitAnswer(userID, sessionID string, req *dto.SubmitAnswerRequest) (*dto.AnswerResultResponse, error)
	AbandonSession(userID, sessionID string, req *dto.AbandonSessionRequest) (*dto.SessionResponse, error)
	ResumeSession(userID, sessionID string) (*dto.SessionResponse, error)
	CompleteSession(userID, sessionID string, req *dto.CompleteSessionRequest) (*dto.CompleteSessionResponse, error)
}

type QuestionServiceInterface interface {
	GetQuestion(questionID string) (*model.Question, error)
	ListQuestions(req *dto.QuestionFilterRequest) ([]dto.QuestionResponse, error)
}

type TrackerServiceInterface interface {
	MarkAvoid(userID, questionID string, durationDays int) error
}

type UserServiceInterface interface {
	GetUserStats(userID string) (*dto.UserStatsResponse, error)
	GetLeaderboard(userID string, limit int) (*dto.LeaderboardResponse, error)
}
