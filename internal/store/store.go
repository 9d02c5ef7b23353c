package store

import (
	"context"
	"errors"

	"github.com/mind-engage/ledgerquiz/internal/leaderboard"
	"github.com/mind-engage/ledgerquiz/internal/quiz"
	"github.com/mind-engage/ledgerquiz/internal/settings"
)

var ErrNotFound = errors.New("not found")

type QuestionStore interface {
	ListQuestions(ctx context.Context) ([]quiz.Question, error)
	GetQuestion(ctx context.Context, id int64) (quiz.Question, error)
	// AddQuestion assigns the next id (max+1) and returns the stored question.
	AddQuestion(ctx context.Context, q quiz.Question) (quiz.Question, error)
	UpdateQuestion(ctx context.Context, q quiz.Question) error
	DeleteQuestion(ctx context.Context, id int64) error
	// ReplaceQuestions swaps the whole bank atomically.
	ReplaceQuestions(ctx context.Context, qs []quiz.Question) error
	ClearQuestions(ctx context.Context) error
	Modules(ctx context.Context) ([]ModuleInfo, error)
}

type ScoreStore interface {
	AppendScore(ctx context.Context, r leaderboard.ScoreRecord) error
	ListScores(ctx context.Context) ([]leaderboard.ScoreRecord, error)
	// ReplaceScores rewrites every row; used by maintenance repair.
	ReplaceScores(ctx context.Context, rs []leaderboard.ScoreRecord) error
	ClearScores(ctx context.Context) error
}

type SettingsStore interface {
	LoadSettings(ctx context.Context) (settings.Settings, error)
	SaveSettings(ctx context.Context, s settings.Settings) error
}

type Store interface {
	QuestionStore
	ScoreStore
	SettingsStore
}

type ModuleInfo struct {
	Name          string `json:"name"`
	QuestionCount int    `json:"question_count"`
}

func validateAll(qs []quiz.Question) error {
	seen := make(map[int64]struct{}, len(qs))
	for _, q := range qs {
		if err := quiz.Validate(q); err != nil {
			return err
		}
		if _, dup := seen[q.ID]; dup {
			return errors.Join(quiz.ErrMalformedQuestion, errors.New("duplicate question id"))
		}
		seen[q.ID] = struct{}{}
	}
	return nil
}
