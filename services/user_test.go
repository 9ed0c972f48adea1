package services

import (
	"testing"
	"time"

	"github.com/usmle-trivia/quiz_api/model"
)

func TestSessionScore(t *testing.T) {
	cases := []struct {
		correct, total, want int
	}{
		{4, 5, 80},
		{2, 3, 67},
		{1, 3, 33},
		{5, 5, 100},
		{0, 5, 0},
		{0, 0, 0},
	}

	for _, tc := range cases {
		if got := SessionScore(tc.correct, tc.total); got != tc.want {
			t.Errorf("SessionScore(%d, %d) = %d, want %d", tc.correct, tc.total, got, tc.want)
		}
	}
}

func TestFoldAccuracy(t *testing.T) {
	cases := []struct {
		accuracy, quizzes, score, want int
	}{
		{0, 0, 80, 80},
		{70, 9, 80, 71},
		{100, 1, 0, 50},
		{50, 2, 50, 50},
	}

	for _, tc := range cases {
		if got := foldAccuracy(tc.accuracy, tc.quizzes, tc.score); got != tc.want {
			t.Errorf("foldAccuracy(%d, %d, %d) = %d, want %d", tc.accuracy, tc.quizzes, tc.score, got, tc.want)
		}
	}
}

func TestCalculateLevel(t *testing.T) {
	cases := []struct {
		points, want int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{250, 3},
		{1000, 11},
	}

	for _, tc := range cases {
		if got := calculateLevel(tc.points); got != tc.want {
			t.Errorf("calculateLevel(%d) = %d, want %d", tc.points, got, tc.want)
		}
	}
}

func datePtr(t time.Time) *time.Time {
	d := t.UTC().Truncate(24 * time.Hour)
	return &d
}

func TestUpdateStreak(t *testing.T) {
	svc := &UserService{}
	day := func(s string) time.Time {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			t.Fatalf("bad date %s: %v", s, err)
		}
		return parsed
	}

	cases := []struct {
		name        string
		stats       model.UserStats
		completedAt time.Time
		wantStreak  int
		wantLongest int
		wantFreezes int
	}{
		{
			name:        "first ever quiz",
			stats:       model.UserStats{},
			completedAt: day("2026-01-02"),
			wantStreak:  1,
			wantLongest: 1,
		},
		{
			name:        "same day leaves streak alone",
			stats:       model.UserStats{CurrentStreak: 3, LongestStreak: 3, LastStudyDate: datePtr(day("2026-01-02"))},
			completedAt: day("2026-01-02"),
			wantStreak:  3,
			wantLongest: 3,
		},
		{
			name:        "next day extends",
			stats:       model.UserStats{CurrentStreak: 3, LongestStreak: 3, LastStudyDate: datePtr(day("2026-01-02"))},
			completedAt: day("2026-01-03"),
			wantStreak:  4,
			wantLongest: 4,
		},
		{
			name:        "two day gap consumes a freeze",
			stats:       model.UserStats{CurrentStreak: 4, LongestStreak: 4, StreakFreezeCount: 1, LastStudyDate: datePtr(day("2026-01-02"))},
			completedAt: day("2026-01-04"),
			wantStreak:  5,
			wantLongest: 5,
			wantFreezes: 0,
		},
		{
			name:        "two day gap without freeze resets",
			stats:       model.UserStats{CurrentStreak: 4, LongestStreak: 6, LastStudyDate: datePtr(day("2026-01-02"))},
			completedAt: day("2026-01-04"),
			wantStreak:  1,
			wantLongest: 6,
		},
		{
			name:        "three day gap resets even with freezes",
			stats:       model.UserStats{CurrentStreak: 4, LongestStreak: 4, StreakFreezeCount: 2, LastStudyDate: datePtr(day("2026-01-02"))},
			completedAt: day("2026-01-05"),
			wantStreak:  1,
			wantLongest: 4,
			wantFreezes: 2,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stats := tc.stats
			svc.updateStreak(&stats, tc.completedAt)

			if stats.CurrentStreak != tc.wantStreak {
				t.Errorf("streak = %d, want %d", stats.CurrentStreak, tc.wantStreak)
			}
			if stats.LongestStreak != tc.wantLongest {
				t.Errorf("longest = %d, want %d", stats.LongestStreak, tc.wantLongest)
			}
			if stats.StreakFreezeCount != tc.wantFreezes {
				t.Errorf("freezes = %d, want %d", stats.StreakFreezeCount, tc.wantFreezes)
			}
			if stats.LastStudyDate == nil || !stats.LastStudyDate.Equal(tc.completedAt.UTC().Truncate(24*time.Hour)) {
				t.Errorf("last study date not advanced: %v", stats.LastStudyDate)
			}
		})
	}
}

func TestPointsPolicyByDifficulty(t *testing.T) {
	policy := PointsPolicy{Easy: 5, Medium: 10, Hard: 20}

	env := newTestEnv(t)
	env.userSvc.points = policy
	user := createTestUser(t, env.db, "points_user")

	correct := []model.Question{
		{Difficulty: "easy"},
		{Difficulty: "medium"},
		{Difficulty: "hard"},
	}

	stats, result, err := env.userSvc.ApplyQuizCompletion(env.db, user.ID, 3, 5, correct, time.Now().UTC())
	if err != nil {
		t.Fatalf("ApplyQuizCompletion failed: %v", err)
	}
	if result.PointsEarned != 35 {
		t.Errorf("expected 35 points, got %d", result.PointsEarned)
	}
	if stats.Points != 35 {
		t.Errorf("expected 35 stored points, got %d", stats.Points)
	}
	if result.Score != 60 {
		t.Errorf("expected score 60, got %d", result.Score)
	}
}

func TestLeaderboardOrderingAndRank(t *testing.T) {
	env := newTestEnv(t)

	alice := createTestUser(t, env.db, "alice")
	bob := createTestUser(t, env.db, "bob")
	carol := createTestUser(t, env.db, "carol")

	seed := []struct {
		user     *model.User
		points   int
		accuracy int
	}{
		{alice, 300, 90},
		{bob, 300, 95},
		{carol, 100, 99},
	}
	for _, s := range seed {
		stats, err := env.userSvc.statsRepo.GetOrCreateUserStats(s.user.ID)
		if err != nil {
			t.Fatalf("GetOrCreateUserStats failed: %v", err)
		}
		stats.Points = s.points
		stats.Accuracy = s.accuracy
		stats.TotalQuizzes = 5
		if err := env.userSvc.statsRepo.SaveUserStats(stats); err != nil {
			t.Fatalf("SaveUserStats failed: %v", err)
		}
	}

	board, err := env.userSvc.GetLeaderboard(carol.ID, 2)
	if err != nil {
		t.Fatalf("GetLeaderboard failed: %v", err)
	}

	if len(board.TopUsers) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(board.TopUsers))
	}
	// Equal points: higher accuracy wins
	if board.TopUsers[0].Username != "bob" || board.TopUsers[1].Username != "alice" {
		t.Errorf("unexpected ordering: %s, %s", board.TopUsers[0].Username, board.TopUsers[1].Username)
	}
	if board.TopUsers[0].Rank != 1 || board.TopUsers[1].Rank != 2 {
		t.Errorf("ranks wrong: %d, %d", board.TopUsers[0].Rank, board.TopUsers[1].Rank)
	}

	// Carol is outside the top but still gets her placement
	if board.CurrentUser == nil {
		t.Fatal("expected current user entry")
	}
	if board.CurrentUser.Rank != 3 {
		t.Errorf("expected rank 3 for carol, got %d", board.CurrentUser.Rank)
	}
}

func TestGetUserStatsCreatesRow(t *testing.T) {
	env := newTestEnv(t)
	user := createTestUser(t, env.db, "fresh_user")

	stats, err := env.userSvc.GetUserStats(user.ID)
	if err != nil {
		t.Fatalf("GetUserStats failed: %v", err)
	}
	if stats.Level != 1 || stats.Points != 0 || stats.TotalQuizzes != 0 {
		t.Errorf("fresh stats not zeroed: %+v", stats)
	}
}
