package dto

import "time"

// Session lifecycle DTOs
type CreateSessionRequest struct {
	Mode          string   `json:"mode" validate:"required,oneof=quick timed custom"`
	QuestionCount int      `json:"question_count" validate:"omitempty,gte=1,lte=50"`
	Categories    []string `json:"categories" validate:"omitempty,dive,min=1"`
	Difficulty    string   `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
}

func (r *CreateSessionRequest) Validate() error {
	return validate.Struct(r)
}

type SubmitAnswerRequest struct {
	QuestionIndex *int `json:"question_index" validate:"required,gte=0"`
	OptionIndex   *int `json:"option_index" validate:"required,gte=0"`
}

func (r *SubmitAnswerRequest) Validate() error {
	return validate.Struct(r)
}

type AbandonSessionRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=255"`
}

func (r *AbandonSessionRequest) Validate() error {
	return validate.Struct(r)
}

type CompleteSessionRequest struct {
	TimeSpentSeconds int `json:"time_spent_seconds" validate:"omitempty,gte=0"`
}

func (r *CompleteSessionRequest) Validate() error {
	return validate.Struct(r)
}

type AvoidQuestionRequest struct {
	DurationDays int `json:"duration_days" validate:"omitempty,gte=1,lte=365"`
}

func (r *AvoidQuestionRequest) Validate() error {
	return validate.Struct(r)
}

type QuestionFilterRequest struct {
	Category   string `json:"category" query:"category"`
	Difficulty string `json:"difficulty" query:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	Limit      int    `json:"limit" query:"limit" validate:"omitempty,gte=1,lte=100"`
}

func (r *QuestionFilterRequest) Validate() error {
	return validate.Struct(r)
}

// QuestionResponse never carries the correct option index; grading happens
// server side only.
type QuestionResponse struct {
	ID         string   `json:"id"`
	Stem       string   `json:"stem"`
	Options    []string `json:"options"`
	Difficulty string   `json:"difficulty"`
	Category   string   `json:"category"`
	Tags       []string `json:"tags,omitempty"`
}

type SessionAnswerResponse struct {
	QuestionIndex int       `json:"question_index"`
	QuestionID    string    `json:"question_id"`
	OptionIndex   int       `json:"option_index"`
	IsCorrect     bool      `json:"is_correct"`
	AnsweredAt    time.Time `json:"answered_at"`
}

type SessionResponse struct {
	SessionID         string                  `json:"session_id"`
	Mode              string                  `json:"mode"`
	Status            string                  `json:"status"`
	Questions         []QuestionResponse      `json:"questions,omitempty"`
	QuestionCount     int                     `json:"question_count"`
	AnsweredCount     int                     `json:"answered_count"`
	LastQuestionIndex int                     `json:"last_question_index"`
	Answers           []SessionAnswerResponse `json:"answers,omitempty"`
	CanResume         bool                    `json:"can_resume"`
	AbandonedAt       *time.Time              `json:"abandoned_at,omitempty"`
	CompletedAt       *time.Time              `json:"completed_at,omitempty"`
	CreatedAt         time.Time               `json:"created_at"`
}

type AnswerResultResponse struct {
	SessionID     string `json:"session_id"`
	QuestionIndex int    `json:"question_index"`
	IsCorrect     bool   `json:"is_correct"`
	CorrectIndex  int    `json:"correct_index"`
	AnsweredCount int    `json:"answered_count"`
}

type CompleteSessionResponse struct {
	SessionID    string            `json:"session_id"`
	Score        int               `json:"score"`
	Correct      int               `json:"correct"`
	Total        int               `json:"total"`
	PointsEarned int               `json:"points_earned"`
	Stats        UserStatsResponse `json:"stats"`
}

type ResumableSessionsResponse struct {
	Sessions []SessionResponse `json:"sessions"`
}
