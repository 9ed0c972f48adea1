package services

import (
	"testing"
	"time"

	"github.com/usmle-trivia/quiz_api/shared"
)

func TestRecordServedIncrementsSeenCount(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env.db, "tracker_user")
	questions := createTestQuestions(t, env.db, 3, "cardiology", "easy")

	ids := []string{questions[0].ID, questions[1].ID}
	env.trackerSvc.RecordServed(user.ID, ids)
	env.trackerSvc.RecordServed(user.ID, ids[:1])

	seen, err := env.trackerSvc.SeenMap(user.ID)
	if err != nil {
		t.Fatalf("SeenMap failed: %v", err)
	}

	if len(seen) != 2 {
		t.Fatalf("expected 2 exposure rows, got %d", len(seen))
	}
	if seen[questions[0].ID].SeenCount != 2 {
		t.Errorf("expected seen count 2, got %d", seen[questions[0].ID].SeenCount)
	}
	if seen[questions[1].ID].SeenCount != 1 {
		t.Errorf("expected seen count 1, got %d", seen[questions[1].ID].SeenCount)
	}
	if _, ok := seen[questions[2].ID]; ok {
		t.Error("never-served question has an exposure row")
	}
}

func TestRecordAnsweredMarksOutcome(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env.db, "outcome_user")
	questions := createTestQuestions(t, env.db, 1, "pharmacology", "easy")

	env.trackerSvc.RecordServed(user.ID, []string{questions[0].ID})
	env.trackerSvc.RecordAnswered(user.ID, questions[0].ID, true)

	seen, err := env.trackerSvc.SeenMap(user.ID)
	if err != nil {
		t.Fatalf("SeenMap failed: %v", err)
	}

	row := seen[questions[0].ID]
	if !row.WasAnswered || !row.WasCorrect {
		t.Errorf("answer outcome not recorded: %+v", row)
	}
}

func TestMarkAvoidAndExpiry(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env.db, "avoid_expiry_user")
	questions := createTestQuestions(t, env.db, 1, "anatomy", "medium")

	if err := env.trackerSvc.MarkAvoid(user.ID, questions[0].ID, 7); err != nil {
		t.Fatalf("MarkAvoid failed: %v", err)
	}

	seen, err := env.trackerSvc.SeenMap(user.ID)
	if err != nil {
		t.Fatalf("SeenMap failed: %v", err)
	}
	row := seen[questions[0].ID]

	now := time.Now().UTC()
	if !row.AvoidActive(now) {
		t.Error("avoid flag should be active inside the window")
	}
	if row.AvoidActive(now.AddDate(0, 0, 8)) {
		t.Error("avoid flag should expire after the window")
	}
}

func TestMarkAvoidUnknownQuestion(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env.db, "avoid_unknown_user")

	err := env.trackerSvc.MarkAvoid(user.ID, "no-such-question", 7)
	requireAppError(t, err, shared.KindNotFound)

	seen, mapErr := env.trackerSvc.SeenMap(user.ID)
	if mapErr != nil {
		t.Fatalf("SeenMap failed: %v", mapErr)
	}
	if len(seen) != 0 {
		t.Errorf("unknown question id created an exposure row")
	}
}

func TestMarkAvoidUpsertsExistingRow(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env.db, "avoid_upsert_user")
	questions := createTestQuestions(t, env.db, 1, "physiology", "easy")

	env.trackerSvc.RecordServed(user.ID, []string{questions[0].ID})
	if err := env.trackerSvc.MarkAvoid(user.ID, questions[0].ID, 0); err != nil {
		t.Fatalf("MarkAvoid failed: %v", err)
	}

	seen, err := env.trackerSvc.SeenMap(user.ID)
	if err != nil {
		t.Fatalf("SeenMap failed: %v", err)
	}
	if len(seen) != 1 {
		t.Fatalf("expected a single row after upsert, got %d", len(seen))
	}

	row := seen[questions[0].ID]
	if row.SeenCount != 1 {
		t.Errorf("upsert lost the exposure count: %d", row.SeenCount)
	}
	if !row.AvoidActive(time.Now().UTC()) {
		t.Error("default avoid window should be active")
	}
}
