package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/ledgerquiz/internal/quiz"
	"github.com/mind-engage/ledgerquiz/internal/settings"
)

type State string

const (
	NotStarted State = "not_started"
	InProgress State = "in_progress"
	Submitted  State = "submitted"
)

var (
	ErrNotFound         = errors.New("session not found")
	ErrNameRequired     = errors.New("name is required")
	ErrModuleDisabled   = errors.New("module is not available")
	ErrNoQuestions      = errors.New("no questions available for this module")
	ErrNotInProgress    = errors.New("session is not in progress")
	ErrAlreadySubmitted = errors.New("session already submitted")
	// ErrQuestionsChanged means the bank moved under a running quiz; the
	// session is discarded and the student has to start again.
	ErrQuestionsChanged = errors.New("one or more quiz questions were removed or replaced")
)

type Session struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	StudentID   string              `json:"student_id,omitempty"`
	Module      string              `json:"module"`
	Items       []quiz.QuizItem     `json:"-"`
	Answers     quiz.Answers        `json:"answers"`
	TimeLimit   time.Duration       `json:"-"`
	Requested   int                 `json:"requested"`
	UnderSupply bool                `json:"under_supply"`
	State       State               `json:"state"`
	StartedAt   time.Time           `json:"started_at"`
	SubmittedAt time.Time           `json:"submitted_at,omitempty"`
	OverTime    bool                `json:"over_time"`
	Result      *quiz.GradingResult `json:"result,omitempty"`
}

// Deadline is zero when the quiz is untimed.
func (s *Session) Deadline() time.Time {
	if s.TimeLimit <= 0 {
		return time.Time{}
	}
	return s.StartedAt.Add(s.TimeLimit)
}

func (s *Session) clone() *Session {
	c := *s
	c.Items = append([]quiz.QuizItem(nil), s.Items...)
	c.Answers = make(quiz.Answers, len(s.Answers))
	for k, v := range s.Answers {
		c.Answers[k] = append([]string(nil), v...)
	}
	return &c
}

type StartRequest struct {
	Name      string
	StudentID string
	// Module may be empty to draw from every module.
	Module string
	Count  int
	// TimeLimit applies only when the admin has not fixed one for Module.
	TimeLimit time.Duration
	Seed      *int64
}

// Registry holds live sessions in memory.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

type Option func(*Registry)

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{sessions: map[string]*Session{}, now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Start draws a quiz from bank and registers it as InProgress.
func (r *Registry) Start(_ context.Context, req StartRequest, bank []quiz.Question, st settings.Settings) (*Session, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if req.Module != "" && !st.Enabled(req.Module) {
		return nil, fmt.Errorf("%w: %s", ErrModuleDisabled, req.Module)
	}
	limit := max(req.TimeLimit, 0)
	if d, ok := st.TimeLimit(req.Module); ok {
		limit = d
	}
	pool := bank
	if req.Module == "" {
		pool = enabledOnly(bank, st)
		if len(bank) > 0 && len(pool) == 0 {
			return nil, fmt.Errorf("%w: every module is disabled", ErrModuleDisabled)
		}
	}

	var opts []quiz.SelectOption
	if req.Seed != nil {
		opts = append(opts, quiz.WithSeed(*req.Seed))
	}
	sel, err := quiz.SelectQuiz(pool, req.Module, req.Count, opts...)
	if err != nil {
		return nil, err
	}
	if len(sel.Items) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoQuestions, req.Module)
	}

	s := &Session{
		ID:          uuid.NewString(),
		Name:        name,
		StudentID:   strings.TrimSpace(req.StudentID),
		Module:      req.Module,
		Items:       sel.Items,
		Answers:     quiz.Answers{},
		TimeLimit:   limit,
		Requested:   sel.Requested,
		UnderSupply: sel.UnderSupply,
		State:       InProgress,
		StartedAt:   r.now(),
	}
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s.clone(), nil
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.clone(), nil
}

// SaveAnswers merges answers into the session. Entries for questions that
// are not part of the quiz are ignored.
func (r *Registry) SaveAnswers(id string, answers quiz.Answers) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if s.State != InProgress {
		return nil, ErrNotInProgress
	}
	inQuiz := make(map[int64]struct{}, len(s.Items))
	for _, it := range s.Items {
		inQuiz[it.Question.ID] = struct{}{}
	}
	for qid, sel := range answers {
		if _, ok := inQuiz[qid]; ok {
			s.Answers[qid] = append([]string(nil), sel...)
		}
	}
	return s.clone(), nil
}

// Submit grades the session against the bank as it is now. If any quiz
// question was deleted or edited since Start the session is dropped and
// ErrQuestionsChanged returned. Late submissions are graded and marked
// OverTime.
func (r *Registry) Submit(id string, bankNow []quiz.Question) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	switch s.State {
	case Submitted:
		return nil, ErrAlreadySubmitted
	case InProgress:
	default:
		return nil, ErrNotInProgress
	}

	current := make(map[int64]quiz.Question, len(bankNow))
	for _, q := range bankNow {
		current[q.ID] = q
	}
	for _, it := range s.Items {
		q, ok := current[it.Question.ID]
		if !ok || !sameQuestion(q, it.Question) {
			delete(r.sessions, id)
			return nil, ErrQuestionsChanged
		}
	}

	now := r.now()
	res := quiz.Grade(s.Items, s.Answers)
	s.Result = &res
	s.State = Submitted
	s.SubmittedAt = now
	if d := s.Deadline(); !d.IsZero() && now.After(d) {
		s.OverTime = true
	}
	return s.clone(), nil
}

// Reopen puts a submitted session back in progress, dropping its result. The
// caller uses it when the graded score could not be persisted, so the
// student can submit again.
func (r *Registry) Reopen(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if s.State != Submitted {
		return ErrNotInProgress
	}
	s.State = InProgress
	s.Result = nil
	s.SubmittedAt = time.Time{}
	s.OverTime = false
	return nil
}

func (r *Registry) Abandon(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(r.sessions, id)
	return nil
}

// Remaining returns time left and whether the quiz is timed at all. It
// never goes negative.
func (r *Registry) Remaining(id string, now time.Time) (time.Duration, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return 0, false, ErrNotFound
	}
	d := s.Deadline()
	if d.IsZero() {
		return 0, false, nil
	}
	return max(d.Sub(now), 0), true, nil
}

// Sweep forgets sessions started before now-olderThan and returns how many
// were removed.
func (r *Registry) Sweep(olderThan time.Duration) int {
	cutoff := r.now().Add(-olderThan)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.sessions {
		if s.StartedAt.Before(cutoff) {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func enabledOnly(bank []quiz.Question, st settings.Settings) []quiz.Question {
	out := make([]quiz.Question, 0, len(bank))
	for _, q := range bank {
		if st.Enabled(q.Module) {
			out = append(out, q)
		}
	}
	return out
}

func sameQuestion(a, b quiz.Question) bool {
	return a.Module == b.Module &&
		a.Text == b.Text &&
		a.AllowMultiple == b.AllowMultiple &&
		slices.Equal(a.Options, b.Options) &&
		slices.Equal(a.CorrectAnswers, b.CorrectAnswers)
}
