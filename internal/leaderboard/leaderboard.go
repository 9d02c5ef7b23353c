package leaderboard

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mind-engage/ledgerquiz/internal/quiz"
)

var ErrNonFinite = errors.New("score record contains a non-finite number")

type ItemBreakdown struct {
	QuestionID     int64   `json:"question_id"`
	Score          float64 `json:"score"`
	IsFullyCorrect bool    `json:"is_fully_correct"`
}

type ScoreRecord struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	StudentID        string          `json:"student_id,omitempty"`
	Module           string          `json:"module"`
	TotalScore       float64         `json:"score"`
	MaxScore         int             `json:"total_questions"`
	Percentage       float64         `json:"percentage"`
	TimeLimitMinutes int             `json:"time_limit_minutes"`
	CreatedAt        time.Time       `json:"timestamp"`
	Breakdown        []ItemBreakdown `json:"breakdown,omitempty"`
}

// Entrant identifies who took a quiz and under which conditions.
type Entrant struct {
	Name             string
	StudentID        string
	Module           string
	TimeLimitMinutes int
}

// NewRecord turns a grading result into a persistable row. Scores are
// rounded to four decimal places so repeated 1/3 credits don't drift.
func NewRecord(e Entrant, res quiz.GradingResult, now time.Time) ScoreRecord {
	rec := ScoreRecord{
		ID:               uuid.NewString(),
		Name:             e.Name,
		StudentID:        e.StudentID,
		Module:           e.Module,
		TotalScore:       round(res.TotalScore, 4),
		MaxScore:         res.MaxScore,
		Percentage:       round(res.Percentage, 4),
		TimeLimitMinutes: max(e.TimeLimitMinutes, 0),
		CreatedAt:        now.UTC(),
	}
	for _, it := range res.Items {
		rec.Breakdown = append(rec.Breakdown, ItemBreakdown{
			QuestionID:     it.QuestionID,
			Score:          round(it.Score, 4),
			IsFullyCorrect: it.IsFullyCorrect,
		})
	}
	return rec
}

// Validate rejects records that would poison JSON encoding or ranking.
func Validate(r ScoreRecord) error {
	if !finite(r.TotalScore) {
		return fmt.Errorf("%w: score=%v", ErrNonFinite, r.TotalScore)
	}
	if !finite(r.Percentage) {
		return fmt.Errorf("%w: percentage=%v", ErrNonFinite, r.Percentage)
	}
	for _, b := range r.Breakdown {
		if !finite(b.Score) {
			return fmt.Errorf("%w: question %d score=%v", ErrNonFinite, b.QuestionID, b.Score)
		}
	}
	return nil
}

// Rank filters by module (empty = all), skips rows that cannot be scored and
// orders by percentage descending, earliest first on ties. Percentages are
// recomputed from score and total to one decimal.
func Rank(records []ScoreRecord, moduleFilter string) []ScoreRecord {
	out := make([]ScoreRecord, 0, len(records))
	for _, r := range records {
		if moduleFilter != "" && r.Module != moduleFilter {
			continue
		}
		if !finite(r.TotalScore) || r.MaxScore <= 0 {
			continue
		}
		r.Percentage = round(r.TotalScore/float64(r.MaxScore)*100, 1)
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Percentage != out[j].Percentage {
			return out[i].Percentage > out[j].Percentage
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Repair fixes historical rows in place: non-finite scores become 0,
// non-positive totals become 1 and negative time limits become 0. It returns
// the number of values changed.
func Repair(records []ScoreRecord) int {
	fixed := 0
	for i := range records {
		r := &records[i]
		if !finite(r.TotalScore) {
			r.TotalScore = 0
			fixed++
		}
		if r.MaxScore <= 0 {
			r.MaxScore = 1
			fixed++
		}
		if r.TimeLimitMinutes < 0 {
			r.TimeLimitMinutes = 0
			fixed++
		}
		if !finite(r.Percentage) {
			r.Percentage = round(r.TotalScore/float64(r.MaxScore)*100, 4)
			fixed++
		}
		for j := range r.Breakdown {
			if !finite(r.Breakdown[j].Score) {
				r.Breakdown[j].Score = 0
				fixed++
			}
		}
	}
	return fixed
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func round(v float64, places int32) float64 {
	if !finite(v) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
