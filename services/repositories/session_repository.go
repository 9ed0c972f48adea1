package repositories

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/usmle-trivia/quiz_api/model"
	"gorm.io/gorm"
)

// SessionRepository handles quiz session and answer database operations.
// Status transitions go through conditional updates so concurrent callers
// race on the row, not on in-process state.
type SessionRepository struct {
	BaseRepository
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

func (sr *SessionRepository) CreateSession(session *model.QuizSession) (*model.QuizSession, error) {
	id, _ := uuid.NewV7()
	session.ID = id.String()
	if err := sr.db.Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

func (sr *SessionRepository) GetSession(sessionID string) (*model.QuizSession, error) {
	var session model.QuizSession
	if err := sr.db.Where("id = ?", sessionID).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (sr *SessionRepository) GetActiveSession(userID, mode string) (*model.QuizSession, error) {
	var session model.QuizSession
	err := sr.db.Where("user_id = ? AND mode = ? AND status = ?",
		userID, mode, model.SessionStatusActive).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (sr *SessionRepository) GetResumableSessions(userID string, abandonedAfter time.Time) ([]model.QuizSession, error) {
	var sessions []model.QuizSession
	err := sr.db.Where("user_id = ? AND status = ? AND can_resume = ? AND abandoned_at > ?",
		userID, model.SessionStatusAbandoned, true, abandonedAfter).
		Order("abandoned_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// UpdateStatusCAS flips status from->to only if the session is still in the
// from state, applying patch in the same statement. Returns false when
// another writer won the race.
func (sr *SessionRepository) UpdateStatusCAS(sessionID, fromStatus, toStatus string, patch map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"status": toStatus}
	for k, v := range patch {
		updates[k] = v
	}

	result := sr.db.Model(&model.QuizSession{}).
		Where("id = ? AND status = ?", sessionID, fromStatus).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ErrSessionNotActive is returned when an answer insert finds its session no
// longer active.
var ErrSessionNotActive = errors.New("session is not active")

// SaveAnswer inserts one answered slot. The unique (session_id,
// question_index) index rejects duplicates; callers translate the constraint
// violation into an already-answered conflict. The status re-check shares the
// insert's transaction so a session completed between the caller's check and
// the insert rolls the answer back instead of gaining an unscored row.
func (sr *SessionRepository) SaveAnswer(answer *model.SessionAnswer) (*model.SessionAnswer, error) {
	id, _ := uuid.NewV7()
	answer.ID = id.String()
	err := sr.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(answer).Error; err != nil {
			return err
		}
		var session model.QuizSession
		if err := tx.Select("status").Where("id = ?", answer.SessionID).First(&session).Error; err != nil {
			return err
		}
		if session.Status != model.SessionStatusActive {
			return ErrSessionNotActive
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return answer, nil
}

// IsDuplicateAnswerError reports whether err is the unique-index violation
// raised by a second write to the same answer slot. Matched textually so the
// same check works against postgres and sqlite.
func IsDuplicateAnswerError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "constraint failed")
}

func (sr *SessionRepository) GetAnswers(sessionID string) ([]model.SessionAnswer, error) {
	var answers []model.SessionAnswer
	err := sr.db.Where("session_id = ?", sessionID).
		Order("question_index ASC").
		Find(&answers).Error
	if err != nil {
		return nil, err
	}
	return answers, nil
}

func (sr *SessionRepository) CountAnswers(sessionID string) (int64, error) {
	var count int64
	err := sr.db.Model(&model.SessionAnswer{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// AdvanceCursor moves the resumption cursor to the given position, forward
// only, so out-of-order answer submissions cannot rewind resume position.
func (sr *SessionRepository) AdvanceCursor(sessionID string, cursor int) error {
	return sr.db.Model(&model.QuizSession{}).
		Where("id = ? AND last_question_index < ?", sessionID, cursor).
		Update("last_question_index", cursor).Error
}

// AbandonStaleActive abandons active sessions with no writes since cutoff.
// They are not resumable; the owner walked away without abandoning.
func (sr *SessionRepository) AbandonStaleActive(cutoff, now time.Time) (int64, error) {
	result := sr.db.Model(&model.QuizSession{}).
		Where("status = ? AND updated_at <= ?", model.SessionStatusActive, cutoff).
		Updates(map[string]interface{}{
			"status":         model.SessionStatusAbandoned,
			"can_resume":     false,
			"abandon_reason": "timeout",
			"abandoned_at":   now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ExpireResumables clears can_resume on abandoned sessions past the resume
// window. Run from the housekeeping sweep.
func (sr *SessionRepository) ExpireResumables(cutoff time.Time) (int64, error) {
	result := sr.db.Model(&model.QuizSession{}).
		Where("status = ? AND can_resume = ? AND abandoned_at <= ?",
			model.SessionStatusAbandoned, true, cutoff).
		Update("can_resume", false)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
