package store_test

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/mind-engage/ledgerquiz/internal/db"
	"github.com/mind-engage/ledgerquiz/internal/leaderboard"
	"github.com/mind-engage/ledgerquiz/internal/quiz"
	"github.com/mind-engage/ledgerquiz/internal/settings"
	"github.com/mind-engage/ledgerquiz/internal/store"
)

func openSQLite(t *testing.T) *store.SQLStore {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := db.Open(context.Background(), db.DriverSQLite, "file:"+name+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return store.NewSQLStore(conn)
}

// each implementation must pass the same behaviour checks
func implementations(t *testing.T) map[string]store.Store {
	return map[string]store.Store{
		"memory": store.NewMemoryStore(),
		"sqlite": openSQLite(t),
	}
}

func newQuestion(module string) quiz.Question {
	return quiz.Question{
		Module:         module,
		Text:           "Which are assets?",
		Options:        []string{"Cash", "Loan", "Equipment"},
		CorrectAnswers: []string{"Cash", "Equipment"},
		AllowMultiple:  true,
		Explanation:    "Cash and equipment are owned resources.",
		Difficulty:     quiz.Medium,
	}
}

func TestQuestionLifecycle(t *testing.T) {
	ctx := context.Background()
	for name, s := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			seeded, err := store.SeedIfEmpty(ctx, s)
			if err != nil || !seeded {
				t.Fatalf("seed: %v %v", seeded, err)
			}
			if again, _ := store.SeedIfEmpty(ctx, s); again {
				t.Fatal("seeding twice")
			}

			added, err := s.AddQuestion(ctx, newQuestion("Assets"))
			if err != nil {
				t.Fatal(err)
			}
			if added.ID != 4 {
				t.Fatalf("expected id 4 after seed, got %d", added.ID)
			}
			got, err := s.GetQuestion(ctx, 4)
			if err != nil {
				t.Fatal(err)
			}
			if !got.AllowMultiple || len(got.CorrectAnswers) != 2 || got.Difficulty != quiz.Medium {
				t.Fatalf("round trip lost data: %+v", got)
			}

			got.Text = "Pick the assets"
			if err := s.UpdateQuestion(ctx, got); err != nil {
				t.Fatal(err)
			}
			if q, _ := s.GetQuestion(ctx, 4); q.Text != "Pick the assets" {
				t.Fatalf("update not applied: %q", q.Text)
			}

			bad := got
			bad.CorrectAnswers = []string{"Nope"}
			if err := s.UpdateQuestion(ctx, bad); !errors.Is(err, quiz.ErrMalformedQuestion) {
				t.Fatalf("expected malformed error, got %v", err)
			}
			missing := got
			missing.ID = 99
			if err := s.UpdateQuestion(ctx, missing); !errors.Is(err, store.ErrNotFound) {
				t.Fatalf("expected not found, got %v", err)
			}

			mods, err := s.Modules(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(mods) != 3 || mods[0].Name != "Assets" || mods[1].Name != "Basics" || mods[1].QuestionCount != 2 {
				t.Fatalf("modules: %+v", mods)
			}

			if err := s.DeleteQuestion(ctx, 2); err != nil {
				t.Fatal(err)
			}
			if _, err := s.GetQuestion(ctx, 2); !errors.Is(err, store.ErrNotFound) {
				t.Fatalf("expected not found after delete, got %v", err)
			}
			if err := s.DeleteQuestion(ctx, 2); !errors.Is(err, store.ErrNotFound) {
				t.Fatalf("second delete: %v", err)
			}

			qs, _ := s.ListQuestions(ctx)
			if len(qs) != 3 || qs[0].ID != 1 || qs[2].ID != 4 {
				t.Fatalf("list order: %+v", qs)
			}

			if err := s.ClearQuestions(ctx); err != nil {
				t.Fatal(err)
			}
			if qs, _ := s.ListQuestions(ctx); len(qs) != 0 {
				t.Fatalf("clear left %d", len(qs))
			}
		})
	}
}

func TestReplaceQuestionsIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	for name, s := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.ReplaceQuestions(ctx, store.SeedQuestions()); err != nil {
				t.Fatal(err)
			}
			broken := store.SeedQuestions()
			broken[1].Explanation = ""
			if err := s.ReplaceQuestions(ctx, broken); !errors.Is(err, quiz.ErrMalformedQuestion) {
				t.Fatalf("expected malformed, got %v", err)
			}
			dup := store.SeedQuestions()
			dup[2].ID = 1
			if err := s.ReplaceQuestions(ctx, dup); err == nil {
				t.Fatal("duplicate ids accepted")
			}
			qs, _ := s.ListQuestions(ctx)
			if len(qs) != 3 || qs[1].Explanation == "" {
				t.Fatalf("bank changed after rejected replace: %+v", qs)
			}
		})
	}
}

func TestScores(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for name, s := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			rec := leaderboard.ScoreRecord{
				ID: "r1", Name: "Ann", Module: "Basics", TotalScore: 1.5, MaxScore: 2, Percentage: 75,
				TimeLimitMinutes: 5, CreatedAt: t0,
				Breakdown: []leaderboard.ItemBreakdown{{QuestionID: 1, Score: 1, IsFullyCorrect: true}, {QuestionID: 2, Score: 0.5}},
			}
			if err := s.AppendScore(ctx, rec); err != nil {
				t.Fatal(err)
			}
			nan := rec
			nan.ID = "r2"
			nan.TotalScore = math.NaN()
			if err := s.AppendScore(ctx, nan); !errors.Is(err, leaderboard.ErrNonFinite) {
				t.Fatalf("expected ErrNonFinite, got %v", err)
			}

			got, err := s.ListScores(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != 1 || got[0].TotalScore != 1.5 || !got[0].CreatedAt.Equal(t0) || len(got[0].Breakdown) != 2 {
				t.Fatalf("scores: %+v", got)
			}

			second := rec
			second.ID = "r3"
			second.TotalScore = 2
			if err := s.ReplaceScores(ctx, []leaderboard.ScoreRecord{second}); err != nil {
				t.Fatal(err)
			}
			if got, _ := s.ListScores(ctx); len(got) != 1 || got[0].ID != "r3" {
				t.Fatalf("replace: %+v", got)
			}

			if err := s.ClearScores(ctx); err != nil {
				t.Fatal(err)
			}
			if got, _ := s.ListScores(ctx); len(got) != 0 {
				t.Fatalf("clear left %d", len(got))
			}
		})
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			st, err := s.LoadSettings(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if st.ShowExplanationsForCorrect || !st.Enabled("Basics") {
				t.Fatalf("unexpected defaults: %+v", st)
			}
			st.ShowExplanationsForCorrect = true
			st.ModuleTimeLimits["Basics"] = 300
			st.ModuleAvailability["Tax"] = false
			if err := s.SaveSettings(ctx, st); err != nil {
				t.Fatal(err)
			}
			got, err := s.LoadSettings(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if !got.ShowExplanationsForCorrect || got.ModuleTimeLimits["Basics"] != settings.MaxTimeLimitMinutes || got.Enabled("Tax") {
				t.Fatalf("settings: %+v", got)
			}
		})
	}
}

func TestSQLNullScoresSurfaceForRepair(t *testing.T) {
	ctx := context.Background()
	name := strings.NewReplacer("/", "_").Replace(t.Name())
	conn, err := db.Open(ctx, db.DriverSQLite, "file:"+name+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	if _, err := conn.Exec(`INSERT INTO scores (id,name,module,score,total_questions,percentage,created_at)
		VALUES ('legacy','Bob','Basics',NULL,NULL,NULL,1)`); err != nil {
		t.Fatal(err)
	}
	s := store.NewSQLStore(conn)
	recs, err := s.ListScores(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || !math.IsNaN(recs[0].TotalScore) || recs[0].MaxScore != 0 {
		t.Fatalf("legacy row: %+v", recs)
	}
	if fixed := leaderboard.Repair(recs); fixed != 3 {
		t.Fatalf("fixed %d", fixed)
	}
	if err := s.ReplaceScores(ctx, recs); err != nil {
		t.Fatal(err)
	}
}
