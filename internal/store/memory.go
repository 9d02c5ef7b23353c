package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mind-engage/ledgerquiz/internal/leaderboard"
	"github.com/mind-engage/ledgerquiz/internal/quiz"
	"github.com/mind-engage/ledgerquiz/internal/settings"
)

// MemoryStore keeps everything in process. Good for tests and throwaway
// dev servers.
type MemoryStore struct {
	mu        sync.RWMutex
	questions map[int64]quiz.Question
	scores    []leaderboard.ScoreRecord
	settings  settings.Settings
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		questions: map[int64]quiz.Question{},
		settings:  settings.Default(),
	}
}

func (m *MemoryStore) ListQuestions(_ context.Context) ([]quiz.Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]quiz.Question, 0, len(m.questions))
	for _, q := range m.questions {
		out = append(out, q.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) GetQuestion(_ context.Context, id int64) (quiz.Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.questions[id]
	if !ok {
		return quiz.Question{}, fmt.Errorf("question %d: %w", id, ErrNotFound)
	}
	return q.Clone(), nil
}

func (m *MemoryStore) AddQuestion(_ context.Context, q quiz.Question) (quiz.Question, error) {
	if err := quiz.Validate(q); err != nil {
		return quiz.Question{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var next int64 = 1
	for id := range m.questions {
		if id >= next {
			next = id + 1
		}
	}
	q = q.Clone()
	q.ID = next
	m.questions[q.ID] = q
	return q.Clone(), nil
}

func (m *MemoryStore) UpdateQuestion(_ context.Context, q quiz.Question) error {
	if err := quiz.Validate(q); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.questions[q.ID]; !ok {
		return fmt.Errorf("question %d: %w", q.ID, ErrNotFound)
	}
	m.questions[q.ID] = q.Clone()
	return nil
}

func (m *MemoryStore) DeleteQuestion(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.questions[id]; !ok {
		return fmt.Errorf("question %d: %w", id, ErrNotFound)
	}
	delete(m.questions, id)
	return nil
}

func (m *MemoryStore) ReplaceQuestions(_ context.Context, qs []quiz.Question) error {
	if err := validateAll(qs); err != nil {
		return err
	}
	next := make(map[int64]quiz.Question, len(qs))
	for _, q := range qs {
		next[q.ID] = q.Clone()
	}
	m.mu.Lock()
	m.questions = next
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) ClearQuestions(_ context.Context) error {
	m.mu.Lock()
	m.questions = map[int64]quiz.Question{}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Modules(_ context.Context) ([]ModuleInfo, error) {
	m.mu.RLock()
	counts := map[string]int{}
	for _, q := range m.questions {
		counts[q.Module]++
	}
	m.mu.RUnlock()
	return moduleInfos(counts), nil
}

func (m *MemoryStore) AppendScore(_ context.Context, r leaderboard.ScoreRecord) error {
	if err := leaderboard.Validate(r); err != nil {
		return err
	}
	m.mu.Lock()
	m.scores = append(m.scores, r)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) ListScores(_ context.Context) ([]leaderboard.ScoreRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]leaderboard.ScoreRecord(nil), m.scores...), nil
}

func (m *MemoryStore) ReplaceScores(_ context.Context, rs []leaderboard.ScoreRecord) error {
	for _, r := range rs {
		if err := leaderboard.Validate(r); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.scores = append([]leaderboard.ScoreRecord(nil), rs...)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) ClearScores(_ context.Context) error {
	m.mu.Lock()
	m.scores = nil
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) LoadSettings(_ context.Context) (settings.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings.Normalize(), nil
}

func (m *MemoryStore) SaveSettings(_ context.Context, s settings.Settings) error {
	m.mu.Lock()
	m.settings = s.Normalize()
	m.mu.Unlock()
	return nil
}

func moduleInfos(counts map[string]int) []ModuleInfo {
	out := make([]ModuleInfo, 0, len(counts))
	for name, n := range counts {
		out = append(out, ModuleInfo{Name: name, QuestionCount: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
