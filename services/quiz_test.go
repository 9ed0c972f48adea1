package services

import (
	"errors"
	"testing"
	"time"

	"github.com/usmle-trivia/quiz_api/dto"
	"github.com/usmle-trivia/quiz_api/model"
	"github.com/usmle-trivia/quiz_api/services/repositories"
	"github.com/usmle-trivia/quiz_api/shared"
)

func requireAppError(t *testing.T, err error, kind string) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	appErr, ok := shared.GetAppError(err)
	if !ok {
		t.Fatalf("expected AppError, got %T: %v", err, err)
	}
	if appErr.Kind != kind {
		t.Fatalf("expected kind %s, got %s", kind, appErr.Kind)
	}
}

func TestCreateSessionQuestionCounts(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env.db, "counts_user")
	createTestQuestions(t, env.db, 15, "cardiology", "medium")

	cases := []struct {
		mode string
		want int
	}{
		{model.ModeQuick, 5},
		{model.ModeTimed, 10},
		{model.ModeCustom, 8},
	}

	for _, tc := range cases {
		resp, err := env.quizSvc.CreateSession(user.ID, &dto.CreateSessionRequest{Mode: tc.mode})
		if err != nil {
			t.Fatalf("CreateSession(%s) failed: %v", tc.mode, err)
		}
		if resp.QuestionCount != tc.want {
			t.Errorf("mode %s: got %d questions, want %d", tc.mode, resp.QuestionCount, tc.want)
		}
		if len(resp.Questions) != tc.want {
			t.Errorf("mode %s: got %d question payloads, want %d", tc.mode, len(resp.Questions), tc.want)
		}
	}
}

func TestCreateSessionCustomQuestionCount(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env.db, "custom_count_user")
	createTestQuestions(t, env.db, 15, "neurology", "medium")

	resp, err := env.quizSvc.CreateSession(user.ID, &dto.CreateSessionRequest{
		Mode:          model.ModeCustom,
		QuestionCount: 12,
	})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if resp.QuestionCount != 12 {
		t.Errorf("custom count override: got %d questions, want 12", resp.QuestionCount)
	}
}

func TestCreateSessionNoDuplicateQuestions(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env.db, "dup_user")
	createTestQuestions(t, env.db, 20, "pharmacology", "easy")

	resp, err := env.quizSvc.CreateSession(user.ID, &dto.CreateSessionRequest{Mode: model.ModeTimed})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	seen := make(map[string]bool)
	for _, q := range resp.Questions {
		if seen[q.ID] {
			t.Fatalf("question %s appears twice in one session", q.ID)
		}
		seen[q.ID] = true
	}
}

func TestCreateSessionConflictPerMode(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env.db, "conflict_user")
	createTestQuestions(t, env.db, 15, "anatomy", "medium")

	if _, err := env.quizSvc.CreateSession(user.ID, &dto.CreateSessionRequest{Mode: model.ModeQuick}); err != nil {
		t.Fatalf("first CreateSession failed: %v", err)
	}

	_, err := env.quizSvc.CreateSession(user.ID, &dto.CreateSessionRequest{Mode: model.ModeQuick})
	requireAppError(t, err, shared.KindConflictingSession)

	// A different mode is allowed
	if _, err := env.quizSvc.CreateSession(user.ID, &dto.CreateSessionRequest{Mode: model.ModeTimed}); err != nil {
		t.Fatalf("CreateSession in second mode failed: %v", err)
	}
}

func TestCreateSessionPrefersUnseenQuestions(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env.db, "unseen_user")
	questions := createTestQuestions(t, env.db, 10, "physiology", "medium")

	// Mark the first five as already seen
	seenIDs := make(map[string]bool)
	for _, q := range questions[:5] {
		seenIDs[q.ID] = true
	}
	env.trackerSvc.RecordServed(user.ID, keysOf(seenIDs))

	resp, err := env.quizSvc.CreateSession(user.ID, &dto.CreateSessionRequest{Mode: model.ModeQuick})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	for _, q := range resp.Questions {
		if seenIDs[q.ID] {
			t.Errorf("session includes already-seen question %s while unseen ones remain", q.ID)
		}
	}
}

func keysOf(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func TestCreateSessionBackfillsFromAvoided(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env.db, "avoid_user")
	questions := createTestQuestions(t, env.db, 6, "neurology", "hard")

	// Avoid four of six, leaving only two preferred for a five-question quiz
	for _, q := range questions[:4] {
		if err := env.trackerSvc.MarkAvoid(user.ID, q.ID, 30); err != nil {
			t.Fatalf("MarkAvoid failed: %v", err)
		}
	}

	resp, err := env.quizSvc.CreateSession(user.ID, &dto.CreateSessionRequest{Mode: model.ModeQuick})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if resp.QuestionCount != 5 {
		t.Fatalf("expected back-fill to 5 questions, got %d", resp.QuestionCount)
	}
}

func TestSubmitAnswerGradesAndIsWriteOnce(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env.db, "answer_user")
	createTestQuestions(t, env.db, 10, "immunology", "easy")

	resp, err := env.quizSvc.CreateSession(user.ID, &dto.CreateSessionRequest{Mode: model.ModeQuick})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	q, err := env.questionSvc.GetQuestion(resp.Questions[0].ID)
	if err != nil {
		t.Fatalf("GetQuestion failed: %v", err)
	}

	result, err := env.quizSvc.SubmitAnswer(user.ID, resp.SessionID, &dto.SubmitAnswerRequest{
		QuestionIndex: intPtr(0),
		OptionIndex:   intPtr(q.CorrectIndex),
	})
	if err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}
	if !result.IsCorrect {
		t.Error("correct option graded as incorrect")
	}
	if result.AnsweredCount != 1 {
		t.Errorf("expected answered count 1, got %d", result.AnsweredCount)
	}

	// Second write to the same slot must be rejected
	_, err = env.quizSvc.SubmitAnswer(user.ID, resp.SessionID, &dto.SubmitAnswerRequest{
		QuestionIndex: intPtr(0),
		OptionIndex:   intPtr((q.CorrectIndex + 1) % 4),
	})
	requireAppError(t, err, shared.KindAlreadyAnswered)

	// And the stored answer is the original
	answers, err := env.quizSvc.sessionRepo.GetAnswers(resp.SessionID)
	if err != nil {
		t.Fatalf("GetAnswers failed: %v", err)
	}
	if len(answers) != 1 || !answers[0].IsCorrect {
		t.Errorf("stored answer was overwritten: %+v", answers)
	}
}

func TestSubmitAnswerAdvancesResumptionCursor(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env.db, "cursor_user")
	createTestQuestions(t, env.db, 10, "oncology", "medium")

	created, err := env.quizSvc.CreateSession(user.ID, &dto.CreateSessionRequest{Mode: model.ModeQuick})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if created.LastQuestionIndex != 0 {
		t.Fatalf("new session cursor should start at 0, got %d", created.LastQuestionIndex)
	}

	answer := func(slot int) {
		t.Helper()
		if _, err := env.quizSvc.SubmitAnswer(user.ID, created.SessionID, &dto.SubmitAnswerRequest{
			QuestionIndex: intPtr(slot),
			OptionIndex:   intPtr(0),
		}); err != nil {
			t.Fatalf("SubmitAnswer(%d) failed: %v", slot, err)
		}
	}
	cursor := func() int {
		t.Helper()
		session, err := env.quizSvc.GetSession(user.ID, created.SessionID)
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		return session.LastQuestionIndex
	}

	answer(0)
	if got := cursor(); got != 1 {
		t.Errorf("cursor after answering slot 0: got %d, want 1", got)
	}

	answer(2)
	if got := cursor(); got != 3 {
		t.Errorf("cursor after answering slot 2: got %d, want 3", got)
	}

	// Answering an earlier slot never rewinds the cursor
	answer(1)
	if got := cursor(); got != 3 {
		t.Errorf("cursor rewound by out-of-order answer: got %d, want 3", got)
	}
}

func TestSubmitAnswerIndexOutOfRange(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env.db, "range_user")
	createTestQuestions(t, env.db, 10, "cardiology", "easy")

	resp, err := env.quizSvc.CreateSession(user.ID, &dto.CreateSessionRequest{Mode: model.ModeQuick})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	_, err = env.quizSvc.SubmitAnswer(user.ID, resp.SessionID, &dto.SubmitAnswerRequest{
		QuestionIndex: intPtr(99),
		OptionIndex:   intPtr(0),
	})
	requireAppError(t, err, shared.KindValidation)
}

func TestAbandonAndResume(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env.db, "resume_user")
	createTestQuestions(t, env.db, 10, "biochemistry", "medium")

	created, err := env.quizSvc.CreateSession(user.ID, &dto.CreateSessionRequest{Mode: model.ModeQuick})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	abandoned, err := env.quizSvc.AbandonSession(user.ID, created.SessionID, &dto.AbandonSessionRequest{Reason: "phone call"})
	if err != nil {
		t.Fatalf("AbandonSession failed: %v", err)
	}
	if abandoned.Status != model.SessionStatusAbandoned || !abandoned.CanResume {
		t.Fatalf("expected resumable abandoned session, got %+v", abandoned)
	}

	// Abandoning again is a state conflict
	_, err = env.quizSvc.AbandonSession(user.ID, created.SessionID, &dto.AbandonSessionRequest{})
	requireAppError(t, err, shared.KindSessionNotActive)

	listed, err := env.quizSvc.GetResumableSessions(user.ID)
	if err != nil {
		t.Fatalf("GetResumableSessions failed: %v", err)
	}
	if len(listed.Sessions) != 1 {
		t.Fatalf("expected 1 resumable session, got %d", len(listed.Sessions))
	}

	resumed, err := env.quizSvc.ResumeSession(user.ID, created.SessionID)
	if err != nil {
		t.Fatalf("ResumeSession failed: %v", err)
	}
	if resumed.Status != model.SessionStatusActive {
		t.Fatalf("expected active session after resume, got %s", resumed.Status)
	}
	if len(resumed.Questions) != 5 {
		t.Errorf("resumed session is missing its questions: got %d", len(resumed.Questions))
	}

	// Resuming again is a state conflict
	_, err = env.quizSvc.ResumeSession(user.ID, created.SessionID)
	requireAppError(t, err, shared.KindSessionNotActive)
}

func TestResumeWindowExpired(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env.db, "expired_user")
	createTestQuestions(t, env.db, 10, "microbiology", "easy")

	created, err := env.quizSvc.CreateSession(user.ID, &dto.CreateSessionRequest{Mode: model.ModeQuick})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, err := env.quizSvc.AbandonSession(user.ID, created.SessionID, &dto.AbandonSessionRequest{}); err != nil {
		t.Fatalf("AbandonSession failed: %v", err)
	}

	// Age the abandonment past the window
	stale := time.Now().UTC().Add(-ResumeWindow - time.Minute)
	if err := env.db.Model(&model.QuizSession{}).
		Where("id = ?", created.SessionID).
		Update("abandoned_at", stale).Error; err != nil {
		t.Fatalf("failed to age session: %v", err)
	}

	_, err = env.quizSvc.ResumeSession(user.ID, created.SessionID)
	requireAppError(t, err, shared.KindResumeWindowExpired)

	listed, err := env.quizSvc.GetResumableSessions(user.ID)
	if err != nil {
		t.Fatalf("GetResumableSessions failed: %v", err)
	}
	if len(listed.Sessions) != 0 {
		t.Errorf("expired session still listed as resumable")
	}
}

func TestResumeAfterResumabilityRevoked(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env.db, "revoked_user")
	createTestQuestions(t, env.db, 10, "endocrinology", "easy")

	created, err := env.quizSvc.CreateSession(user.ID, &dto.CreateSessionRequest{Mode: model.ModeQuick})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, err := env.quizSvc.AbandonSession(user.ID, created.SessionID, &dto.AbandonSessionRequest{}); err != nil {
		t.Fatalf("AbandonSession failed: %v", err)
	}

	// Clear can_resume the way the housekeeping sweep does
	if err := env.db.Model(&model.QuizSession{}).
		Where("id = ?", created.SessionID).
		Update("can_resume", false).Error; err != nil {
		t.Fatalf("failed to revoke resumability: %v", err)
	}

	// An abandoned session that lost its resume right is terminal, not a
	// state conflict the caller should re-fetch and retry
	_, err = env.quizSvc.ResumeSession(user.ID, created.SessionID)
	requireAppError(t, err, shared.KindResumeWindowExpired)
}

func TestResumeConflictsWithActiveSession(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env.db, "resume_conflict_user")
	createTestQuestions(t, env.db, 15, "pathology", "medium")

	first, err := env.quizSvc.CreateSession(user.ID, &dto.CreateSessionRequest{Mode: model.ModeQuick})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, err := env.quizSvc.AbandonSession(user.ID, first.SessionID, &dto.AbandonSessionRequest{}); err != nil {
		t.Fatalf("AbandonSession failed: %v", err)
	}

	if _, err := env.quizSvc.CreateSession(user.ID, &dto.CreateSessionRequest{Mode: model.ModeQuick}); err != nil {
		t.Fatalf("second CreateSession failed: %v", err)
	}

	_, err = env.quizSvc.ResumeSession(user.ID, first.SessionID)
	requireAppError(t, err, shared.KindConflictingSession)
}

func TestCompleteSession(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env.db, "complete_user")
	createTestQuestions(t, env.db, 10, "cardiology", "medium")

	created, err := env.quizSvc.CreateSession(user.ID, &dto.CreateSessionRequest{Mode: model.ModeQuick})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	// Answer 4 of 5 correctly
	for i, qr := range created.Questions {
		q, err := env.questionSvc.GetQuestion(qr.ID)
		if err != nil {
			t.Fatalf("GetQuestion failed: %v", err)
		}
		option := q.CorrectIndex
		if i == 4 {
			option = (q.CorrectIndex + 1) % 4
		}
		if _, err := env.quizSvc.SubmitAnswer(user.ID, created.SessionID, &dto.SubmitAnswerRequest{
			QuestionIndex: intPtr(i),
			OptionIndex:   intPtr(option),
		}); err != nil {
			t.Fatalf("SubmitAnswer failed: %v", err)
		}
	}

	result, err := env.quizSvc.CompleteSession(user.ID, created.SessionID, &dto.CompleteSessionRequest{TimeSpentSeconds: 300})
	if err != nil {
		t.Fatalf("CompleteSession failed: %v", err)
	}

	if result.Score != 80 {
		t.Errorf("expected score 80, got %d", result.Score)
	}
	if result.Correct != 4 || result.Total != 5 {
		t.Errorf("expected 4/5, got %d/%d", result.Correct, result.Total)
	}
	if result.PointsEarned != 40 {
		t.Errorf("expected 40 points at default policy, got %d", result.PointsEarned)
	}
	if result.Stats.TotalQuizzes != 1 {
		t.Errorf("expected 1 total quiz, got %d", result.Stats.TotalQuizzes)
	}
	if result.Stats.Accuracy != 80 {
		t.Errorf("expected accuracy 80 after first quiz, got %d", result.Stats.Accuracy)
	}
	if result.Stats.CurrentStreak != 1 {
		t.Errorf("expected streak 1, got %d", result.Stats.CurrentStreak)
	}

	// Completing again is a conflict and must not double-count stats
	_, err = env.quizSvc.CompleteSession(user.ID, created.SessionID, &dto.CompleteSessionRequest{})
	requireAppError(t, err, shared.KindConflict)

	stats, err := env.userSvc.GetUserStats(user.ID)
	if err != nil {
		t.Fatalf("GetUserStats failed: %v", err)
	}
	if stats.TotalQuizzes != 1 {
		t.Errorf("stats double-counted: %d total quizzes", stats.TotalQuizzes)
	}
	if stats.Points != 40 {
		t.Errorf("stats double-counted: %d points", stats.Points)
	}
}

func TestCompleteSessionWithNoAnswers(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env.db, "empty_complete_user")
	createTestQuestions(t, env.db, 10, "anatomy", "easy")

	created, err := env.quizSvc.CreateSession(user.ID, &dto.CreateSessionRequest{Mode: model.ModeQuick})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	result, err := env.quizSvc.CompleteSession(user.ID, created.SessionID, &dto.CompleteSessionRequest{})
	if err != nil {
		t.Fatalf("CompleteSession failed: %v", err)
	}
	if result.Score != 0 || result.PointsEarned != 0 {
		t.Errorf("expected zero score and points, got %d/%d", result.Score, result.PointsEarned)
	}
	if result.Stats.TotalQuizzes != 1 {
		t.Errorf("zero-answer completion still counts as a quiz, got %d", result.Stats.TotalQuizzes)
	}
}

func TestAnswerInsertRejectedOnFinalizedSession(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env.db, "late_answer_user")
	createTestQuestions(t, env.db, 10, "gastroenterology", "easy")

	created, err := env.quizSvc.CreateSession(user.ID, &dto.CreateSessionRequest{Mode: model.ModeQuick})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if _, err := env.quizSvc.CompleteSession(user.ID, created.SessionID, &dto.CompleteSessionRequest{}); err != nil {
		t.Fatalf("CompleteSession failed: %v", err)
	}

	// Write directly through the repository, as a racing submit would after
	// passing the service's status check
	_, err = env.quizSvc.sessionRepo.SaveAnswer(&model.SessionAnswer{
		SessionID:     created.SessionID,
		QuestionIndex: 0,
		QuestionID:    created.Questions[0].ID,
		OptionIndex:   0,
		AnsweredAt:    time.Now().UTC(),
	})
	if !errors.Is(err, repositories.ErrSessionNotActive) {
		t.Fatalf("expected ErrSessionNotActive, got %v", err)
	}

	// The insert rolled back, so the completed session gained no answers
	count, err := env.quizSvc.sessionRepo.CountAnswers(created.SessionID)
	if err != nil {
		t.Fatalf("CountAnswers failed: %v", err)
	}
	if count != 0 {
		t.Errorf("completed session gained %d unscored answers", count)
	}
}

func TestSessionHiddenFromOtherUsers(t *testing.T) {
	env := newTestEnv(t)
	owner := createTestUser(t, env.db, "owner_user")
	other := createTestUser(t, env.db, "other_user")
	createTestQuestions(t, env.db, 10, "pharmacology", "easy")

	created, err := env.quizSvc.CreateSession(owner.ID, &dto.CreateSessionRequest{Mode: model.ModeQuick})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	_, err = env.quizSvc.GetSession(other.ID, created.SessionID)
	requireAppError(t, err, shared.KindNotFound)
}

func TestSweepSessions(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env.db, "sweep_user")
	createTestQuestions(t, env.db, 10, "physiology", "medium")

	created, err := env.quizSvc.CreateSession(user.ID, &dto.CreateSessionRequest{Mode: model.ModeQuick})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	// Age the active session past the window
	stale := time.Now().UTC().Add(-ResumeWindow - time.Hour)
	if err := env.db.Model(&model.QuizSession{}).
		Where("id = ?", created.SessionID).
		Update("updated_at", stale).Error; err != nil {
		t.Fatalf("failed to age session: %v", err)
	}

	env.quizSvc.sweepSessions()

	session, err := env.quizSvc.sessionRepo.GetSession(created.SessionID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if session.Status != model.SessionStatusAbandoned {
		t.Errorf("stale active session not abandoned: %s", session.Status)
	}
	if session.CanResume {
		t.Error("timed-out session must not be resumable")
	}
}
