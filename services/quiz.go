package services

import (
	"encoding/json"
	"errors"
	"math/rand"
	"os"
	"sort"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/go-co-op/gocron"
	log "github.com/sirupsen/logrus"
	"github.com/usmle-trivia/quiz_api/dto"
	"github.com/usmle-trivia/quiz_api/model"
	"github.com/usmle-trivia/quiz_api/services/repositories"
	"github.com/usmle-trivia/quiz_api/shared"
	"gorm.io/gorm"
)

// QuizService drives the session lifecycle: create, answer, abandon, resume,
// complete. One active session per (user, mode); state transitions are
// conditional writes so concurrent requests cannot double-apply.
type QuizService struct {
	context.DefaultService

	db          *gorm.DB
	sessionRepo *repositories.SessionRepository
	scheduler   *gocron.Scheduler

	questionSvc   *QuestionService
	trackerSvc    *TrackerService
	userSvc       *UserService
	monitoringSvc *MonitoringService
}

const QUIZ_SVC = "quiz_svc"

// ResumeWindow is how long an abandoned session stays resumable.
const ResumeWindow = 24 * time.Hour

func questionCountForMode(mode string, requested int) int {
	switch mode {
	case model.ModeQuick:
		return 5
	case model.ModeTimed:
		return 10
	case model.ModeCustom:
		if requested > 0 {
			return requested
		}
		return 8
	default:
		return 8
	}
}

func (svc QuizService) Id() string {
	return QUIZ_SVC
}

func (svc *QuizService) Start() error {
	if os.Getenv("DB_DRIVER") == "postgres" {
		svc.db = svc.Service(POSTGRES_SVC).(*PostgresService).Db()
	} else {
		svc.db = svc.Service(SQLITE_SVC).(*SqliteService).Db()
	}
	svc.sessionRepo = repositories.NewSessionRepository(svc.db)

	svc.questionSvc = svc.Service(QUESTION_SVC).(*QuestionService)
	svc.trackerSvc = svc.Service(TRACKER_SVC).(*TrackerService)
	svc.userSvc = svc.Service(USER_SVC).(*UserService)
	svc.monitoringSvc = svc.Service(MONITORING_SVC).(*MonitoringService)

	svc.scheduler = gocron.NewScheduler(time.UTC)
	if _, err := svc.scheduler.Every(1).Hour().Do(svc.sweepSessions); err != nil {
		return err
	}
	svc.scheduler.StartAsync()

	return nil
}

func (svc *QuizService) Shutdown() {
	if svc.scheduler != nil {
		svc.scheduler.Stop()
	}
}

// ==================== SESSION CREATION ====================

func (svc *QuizService) CreateSession(userID string, req *dto.CreateSessionRequest) (*dto.SessionResponse, error) {
	if _, err := svc.sessionRepo.GetActiveSession(userID, req.Mode); err == nil {
		return nil, shared.NewConflictingSessionError("An active session already exists for this mode")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, HandleError(err)
	}

	count := questionCountForMode(req.Mode, req.QuestionCount)

	questions, err := svc.selectQuestions(userID, req, count)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, shared.NewValidationError(nil, "No questions available for the requested filters")
	}

	questionIDs := make([]string, 0, len(questions))
	for _, q := range questions {
		questionIDs = append(questionIDs, q.ID)
	}
	rawIDs, err := json.Marshal(questionIDs)
	if err != nil {
		return nil, shared.NewInternalError(err, "Internal Server Error")
	}

	session := &model.QuizSession{
		UserID:      userID,
		Mode:        req.Mode,
		Status:      model.SessionStatusActive,
		QuestionIDs: rawIDs,
	}
	session, err = svc.sessionRepo.CreateSession(session)
	if err != nil {
		return nil, HandleError(err)
	}

	svc.trackerSvc.RecordServed(userID, questionIDs)
	svc.monitoringSvc.RecordSessionEvent(req.Mode, "started")

	resp := svc.toSessionResponse(session, questions, nil)
	return resp, nil
}

// selectQuestions builds the session's question list: least-seen first,
// oldest exposure breaking ties, randomized among equals. Questions under an
// active avoid flag only back-fill when the preferred pool runs short.
func (svc *QuizService) selectQuestions(userID string, req *dto.CreateSessionRequest, count int) ([]model.Question, error) {
	pool, err := svc.questionSvc.listPool(req.Categories, req.Difficulty)
	if err != nil {
		return nil, err
	}

	seen, err := svc.trackerSvc.SeenMap(userID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	preferred := make([]model.Question, 0, len(pool))
	avoided := make([]model.Question, 0)
	for _, q := range pool {
		if row, ok := seen[q.ID]; ok && row.AvoidActive(now) {
			avoided = append(avoided, q)
			continue
		}
		preferred = append(preferred, q)
	}

	orderPool := func(qs []model.Question) {
		// Shuffle first so the stable sort randomizes within equal keys
		rand.Shuffle(len(qs), func(i, j int) {
			qs[i], qs[j] = qs[j], qs[i]
		})
		sort.SliceStable(qs, func(i, j int) bool {
			si, iOK := seen[qs[i].ID]
			sj, jOK := seen[qs[j].ID]
			ci, cj := 0, 0
			if iOK {
				ci = si.SeenCount
			}
			if jOK {
				cj = sj.SeenCount
			}
			if ci != cj {
				return ci < cj
			}
			var ti, tj time.Time
			if iOK {
				ti = si.LastSeenAt
			}
			if jOK {
				tj = sj.LastSeenAt
			}
			return ti.Before(tj)
		})
	}

	orderPool(preferred)
	selected := preferred
	if len(selected) > count {
		selected = selected[:count]
	}

	if len(selected) < count && len(avoided) > 0 {
		orderPool(avoided)
		need := count - len(selected)
		if need > len(avoided) {
			need = len(avoided)
		}
		selected = append(selected, avoided[:need]...)
	}

	return selected, nil
}

// ==================== SESSION READS ====================

func (svc *QuizService) GetSession(userID, sessionID string) (*dto.SessionResponse, error) {
	session, err := svc.ownedSession(userID, sessionID)
	if err != nil {
		return nil, err
	}

	questions, err := svc.questionSvc.GetQuestions(session.QuestionIDList())
	if err != nil {
		return nil, err
	}

	answers, err := svc.sessionRepo.GetAnswers(sessionID)
	if err != nil {
		return nil, HandleError(err)
	}

	return svc.toSessionResponse(session, orderByIDs(questions, session.QuestionIDList()), answers), nil
}

func (svc *QuizService) GetResumableSessions(userID string) (*dto.ResumableSessionsResponse, error) {
	cutoff := time.Now().Add(-ResumeWindow)
	sessions, err := svc.sessionRepo.GetResumableSessions(userID, cutoff)
	if err != nil {
		return nil, HandleError(err)
	}

	resp := &dto.ResumableSessionsResponse{
		Sessions: make([]dto.SessionResponse, 0, len(sessions)),
	}
	for i := range sessions {
		resp.Sessions = append(resp.Sessions, *svc.toSessionResponse(&sessions[i], nil, nil))
	}
	return resp, nil
}

// ==================== ANSWERS ====================

func (svc *QuizService) SubmitAnswer(userID, sessionID string, req *dto.SubmitAnswerRequest) (*dto.AnswerResultResponse, error) {
	session, err := svc.ownedSession(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionStatusActive {
		return nil, shared.NewSessionNotActiveError("Session is not active")
	}

	questionIDs := session.QuestionIDList()
	questionIndex := *req.QuestionIndex
	if questionIndex >= len(questionIDs) {
		return nil, shared.NewValidationError(nil, "question_index is out of range")
	}

	question, err := svc.questionSvc.GetQuestion(questionIDs[questionIndex])
	if err != nil {
		return nil, err
	}

	optionIndex := *req.OptionIndex
	if optionIndex >= len(question.OptionList()) {
		return nil, shared.NewValidationError(nil, "option_index is out of range")
	}

	isCorrect := optionIndex == question.CorrectIndex

	answer := &model.SessionAnswer{
		SessionID:     sessionID,
		QuestionIndex: questionIndex,
		QuestionID:    question.ID,
		OptionIndex:   optionIndex,
		IsCorrect:     isCorrect,
		AnsweredAt:    time.Now().UTC(),
	}
	if _, err := svc.sessionRepo.SaveAnswer(answer); err != nil {
		if repositories.IsDuplicateAnswerError(err) {
			return nil, shared.NewAlreadyAnsweredError("This question has already been answered")
		}
		if errors.Is(err, repositories.ErrSessionNotActive) {
			return nil, shared.NewSessionNotActiveError("Session is not active")
		}
		return nil, HandleError(err)
	}

	// The cursor points at the next slot to answer
	if err := svc.sessionRepo.AdvanceCursor(sessionID, questionIndex+1); err != nil {
		log.WithFields(log.Fields{
			"session_id": sessionID,
			"error":      err.Error(),
		}).Warn("Failed to advance session cursor")
	}

	svc.trackerSvc.RecordAnswered(userID, question.ID, isCorrect)
	svc.monitoringSvc.RecordAnswer(isCorrect)

	answered, err := svc.sessionRepo.CountAnswers(sessionID)
	if err != nil {
		return nil, HandleError(err)
	}

	return &dto.AnswerResultResponse{
		SessionID:     sessionID,
		QuestionIndex: questionIndex,
		IsCorrect:     isCorrect,
		CorrectIndex:  question.CorrectIndex,
		AnsweredCount: int(answered),
	}, nil
}

// ==================== LIFECYCLE TRANSITIONS ====================

func (svc *QuizService) AbandonSession(userID, sessionID string, req *dto.AbandonSessionRequest) (*dto.SessionResponse, error) {
	session, err := svc.ownedSession(userID, sessionID)
	if err != nil {
		return nil, err
	}

	// Sessions older than the resume window abandon without resume rights.
	now := time.Now().UTC()
	patch := map[string]interface{}{
		"can_resume":     now.Sub(session.CreatedAt) < ResumeWindow,
		"abandoned_at":   now,
		"abandon_reason": req.Reason,
	}
	flipped, err := svc.sessionRepo.UpdateStatusCAS(sessionID, model.SessionStatusActive, model.SessionStatusAbandoned, patch)
	if err != nil {
		return nil, HandleError(err)
	}
	if !flipped {
		return nil, shared.NewSessionNotActiveError("Session is not active")
	}

	svc.monitoringSvc.RecordSessionEvent(session.Mode, "abandoned")

	session, err = svc.sessionRepo.GetSession(sessionID)
	if err != nil {
		return nil, HandleError(err)
	}
	return svc.toSessionResponse(session, nil, nil), nil
}

func (svc *QuizService) ResumeSession(userID, sessionID string) (*dto.SessionResponse, error) {
	session, err := svc.ownedSession(userID, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Status != model.SessionStatusAbandoned {
		return nil, shared.NewSessionNotActiveError("Session is not resumable")
	}
	// can_resume only ever clears on window expiry, so a revoked flag and a
	// stale abandonment both report the terminal kind
	if !session.CanResume || session.AbandonedAt == nil || time.Since(*session.AbandonedAt) > ResumeWindow {
		return nil, shared.NewResumeWindowExpiredError("The resume window for this session has expired")
	}

	if _, err := svc.sessionRepo.GetActiveSession(userID, session.Mode); err == nil {
		return nil, shared.NewConflictingSessionError("An active session already exists for this mode")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, HandleError(err)
	}

	now := time.Now().UTC()
	patch := map[string]interface{}{
		"can_resume": false,
		"resumed_at": now,
	}
	flipped, err := svc.sessionRepo.UpdateStatusCAS(sessionID, model.SessionStatusAbandoned, model.SessionStatusActive, patch)
	if err != nil {
		return nil, HandleError(err)
	}
	if !flipped {
		return nil, shared.NewSessionNotActiveError("Session is not resumable")
	}

	svc.monitoringSvc.RecordSessionEvent(session.Mode, "resumed")

	return svc.GetSession(userID, sessionID)
}

// CompleteSession grades the session, folds the result into the user's
// stats, and flips the session to completed. The stats patch and the status
// flip share one transaction; the conditional flip is the commit point, so a
// losing racer rolls its stats patch back.
func (svc *QuizService) CompleteSession(userID, sessionID string, req *dto.CompleteSessionRequest) (*dto.CompleteSessionResponse, error) {
	session, err := svc.ownedSession(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionStatusActive {
		return nil, shared.NewConflictError(nil, "Session has already been finalized")
	}

	answers, err := svc.sessionRepo.GetAnswers(sessionID)
	if err != nil {
		return nil, HandleError(err)
	}

	correct := 0
	correctIDs := make([]string, 0, len(answers))
	for _, a := range answers {
		if a.IsCorrect {
			correct++
			correctIDs = append(correctIDs, a.QuestionID)
		}
	}
	total := len(session.QuestionIDList())

	correctQuestions, err := svc.questionSvc.GetQuestions(correctIDs)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var stats *model.UserStats
	var result *CompletionResult

	txErr := svc.db.Transaction(func(tx *gorm.DB) error {
		stats, result, err = svc.userSvc.ApplyQuizCompletion(tx, userID, correct, total, correctQuestions, now)
		if err != nil {
			return err
		}

		patch := map[string]interface{}{
			"score":              result.Score,
			"time_spent_seconds": req.TimeSpentSeconds,
			"completed_at":       now,
		}
		txRepo := repositories.NewSessionRepository(tx)
		flipped, err := txRepo.UpdateStatusCAS(sessionID, model.SessionStatusActive, model.SessionStatusCompleted, patch)
		if err != nil {
			return err
		}
		if !flipped {
			return shared.NewConflictError(nil, "Session has already been finalized")
		}
		return nil
	})
	if txErr != nil {
		return nil, HandleError(txErr)
	}

	svc.monitoringSvc.RecordSessionEvent(session.Mode, "completed")
	svc.monitoringSvc.RecordSessionScore(session.Mode, result.Score)

	rank, err := repositories.NewStatsRepository(svc.db).GetUserRank(userID)
	if err != nil {
		rank = 0
	}

	return &dto.CompleteSessionResponse{
		SessionID:    sessionID,
		Score:        result.Score,
		Correct:      result.Correct,
		Total:        result.Total,
		PointsEarned: result.PointsEarned,
		Stats: dto.UserStatsResponse{
			UserID:            stats.UserID,
			Points:            stats.Points,
			Level:             stats.Level,
			Accuracy:          stats.Accuracy,
			TotalQuizzes:      stats.TotalQuizzes,
			CurrentStreak:     stats.CurrentStreak,
			LongestStreak:     stats.LongestStreak,
			StreakFreezeCount: stats.StreakFreezeCount,
			LastStudyDate:     stats.LastStudyDate,
			Rank:              rank,
		},
	}, nil
}

// ==================== HOUSEKEEPING ====================

// sweepSessions runs hourly: long-idle active sessions get abandoned without
// resume rights, and abandoned sessions past the window lose can_resume.
func (svc *QuizService) sweepSessions() {
	now := time.Now().UTC()
	cutoff := now.Add(-ResumeWindow)

	if n, err := svc.sessionRepo.AbandonStaleActive(cutoff, now); err != nil {
		log.WithField("error", err.Error()).Warn("Stale session sweep failed")
	} else if n > 0 {
		log.WithField("count", n).Info("Abandoned stale active sessions")
	}

	if n, err := svc.sessionRepo.ExpireResumables(cutoff); err != nil {
		log.WithField("error", err.Error()).Warn("Resumable expiry sweep failed")
	} else if n > 0 {
		log.WithField("count", n).Info("Expired resumable sessions")
	}
}

// ==================== HELPERS ====================

// ownedSession loads a session and hides its existence from non-owners.
func (svc *QuizService) ownedSession(userID, sessionID string) (*model.QuizSession, error) {
	session, err := svc.sessionRepo.GetSession(sessionID)
	if err != nil {
		return nil, HandleError(err)
	}
	if session.UserID != userID {
		return nil, shared.NewNotFoundError(nil, "Session not found")
	}
	return session, nil
}

func (svc *QuizService) toSessionResponse(session *model.QuizSession, questions []model.Question, answers []model.SessionAnswer) *dto.SessionResponse {
	resp := &dto.SessionResponse{
		SessionID:         session.ID,
		Mode:              session.Mode,
		Status:            session.Status,
		QuestionCount:     len(session.QuestionIDList()),
		LastQuestionIndex: session.LastQuestionIndex,
		CanResume:         session.CanResume,
		AbandonedAt:       session.AbandonedAt,
		CompletedAt:       session.CompletedAt,
		CreatedAt:         session.CreatedAt,
	}

	for i := range questions {
		resp.Questions = append(resp.Questions, ToQuestionResponse(&questions[i]))
	}

	resp.AnsweredCount = len(answers)
	for _, a := range answers {
		resp.Answers = append(resp.Answers, dto.SessionAnswerResponse{
			QuestionIndex: a.QuestionIndex,
			QuestionID:    a.QuestionID,
			OptionIndex:   a.OptionIndex,
			IsCorrect:     a.IsCorrect,
			AnsweredAt:    a.AnsweredAt,
		})
	}

	return resp
}

// orderByIDs re-orders fetched questions to the session's fixed ordering.
func orderByIDs(questions []model.Question, ids []string) []model.Question {
	byID := make(map[string]model.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	ordered := make([]model.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			ordered = append(ordered, q)
		}
	}
	return ordered
}
