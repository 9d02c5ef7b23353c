package leaderboard

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/mind-engage/ledgerquiz/internal/quiz"
)

func TestNewRecordRoundsAndValidates(t *testing.T) {
	res := quiz.GradingResult{
		Items: []quiz.ItemResult{
			{QuestionID: 1, Score: 1.0 / 3.0},
			{QuestionID: 2, Score: 1, IsFullyCorrect: true},
			{QuestionID: 3, Score: 0},
		},
		TotalScore: 1 + 1.0/3.0,
		MaxScore:   3,
		Percentage: 100 * (1 + 1.0/3.0) / 3,
	}
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	rec := NewRecord(Entrant{Name: "Ann", Module: "Basics", TimeLimitMinutes: -5}, res, now)
	if rec.TotalScore != 1.3333 || rec.Percentage != 44.4444 {
		t.Fatalf("rounding: score=%v pct=%v", rec.TotalScore, rec.Percentage)
	}
	if rec.Breakdown[0].Score != 0.3333 || len(rec.Breakdown) != 3 {
		t.Fatalf("breakdown: %+v", rec.Breakdown)
	}
	if rec.TimeLimitMinutes != 0 {
		t.Fatalf("negative limit kept: %d", rec.TimeLimitMinutes)
	}
	if rec.ID == "" || !rec.CreatedAt.Equal(now) {
		t.Fatalf("id/timestamp not set: %+v", rec)
	}
	if err := Validate(rec); err != nil {
		t.Fatalf("unexpected: %v", err)
	}
}

func TestValidateRejectsNonFinite(t *testing.T) {
	for _, rec := range []ScoreRecord{
		{TotalScore: math.NaN(), MaxScore: 1},
		{TotalScore: 1, MaxScore: 1, Percentage: math.Inf(1)},
		{TotalScore: 1, MaxScore: 1, Breakdown: []ItemBreakdown{{QuestionID: 1, Score: math.Inf(-1)}}},
	} {
		if err := Validate(rec); !errors.Is(err, ErrNonFinite) {
			t.Fatalf("expected ErrNonFinite for %+v, got %v", rec, err)
		}
	}
}

func TestRankOrdersByPercentageThenTime(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	recs := []ScoreRecord{
		{Name: "late-tie", Module: "A", TotalScore: 2, MaxScore: 4, CreatedAt: t0.Add(2 * time.Hour)},
		{Name: "best", Module: "A", TotalScore: 3, MaxScore: 3, CreatedAt: t0.Add(3 * time.Hour)},
		{Name: "early-tie", Module: "A", TotalScore: 1, MaxScore: 2, CreatedAt: t0},
		{Name: "other", Module: "B", TotalScore: 1, MaxScore: 1, CreatedAt: t0},
		{Name: "broken", Module: "A", TotalScore: math.NaN(), MaxScore: 2, CreatedAt: t0},
		{Name: "zero-total", Module: "A", TotalScore: 0, MaxScore: 0, CreatedAt: t0},
	}
	got := Rank(recs, "A")
	want := []string{"best", "early-tie", "late-tie"}
	if len(got) != len(want) {
		t.Fatalf("got %d rows: %+v", len(got), got)
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Fatalf("position %d: got %s want %s", i, got[i].Name, name)
		}
	}
	if got[1].Percentage != 50 {
		t.Fatalf("percentage not recomputed: %v", got[1].Percentage)
	}
	if all := Rank(recs, ""); len(all) != 4 {
		t.Fatalf("unfiltered rank: %d rows", len(all))
	}
}

func TestRankRoundsToOneDecimal(t *testing.T) {
	got := Rank([]ScoreRecord{{TotalScore: 1, MaxScore: 3}}, "")
	if got[0].Percentage != 33.3 {
		t.Fatalf("got %v", got[0].Percentage)
	}
}

func TestRepair(t *testing.T) {
	recs := []ScoreRecord{
		{TotalScore: math.NaN(), MaxScore: 5, Percentage: 10},
		{TotalScore: math.Inf(1), MaxScore: 0, TimeLimitMinutes: -1, Percentage: math.NaN()},
		{TotalScore: 2, MaxScore: 4, Percentage: 50},
	}
	n := Repair(recs)
	if n != 5 {
		t.Fatalf("fixed %d values, want 5", n)
	}
	for i, r := range recs {
		if err := Validate(r); err != nil {
			t.Fatalf("record %d still invalid: %v", i, err)
		}
	}
	if recs[1].MaxScore != 1 || recs[1].TimeLimitMinutes != 0 || recs[1].Percentage != 0 {
		t.Fatalf("unexpected repair: %+v", recs[1])
	}
	if Repair(recs) != 0 {
		t.Fatal("repair should be idempotent")
	}
}
