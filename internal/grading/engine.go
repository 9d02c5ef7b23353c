package grading

import "math"

// Q is a minimal view of a question needed for grading.
// Keep this in sync with quiz.Question.
type Q struct {
	Options       []string
	AnswerKey     []string
	AllowMultiple bool
}

// Result is the outcome of grading a single question response.
type Result struct {
	Points       float64  // 0.0..1.0
	FullyCorrect bool     // selection equals the answer key exactly
	Selected     []string // normalized selection, in option order
	Flagged      bool     // key was unusable; Points forced to 0
	Feedback     []string // optional notes
}

// Strategy grades a single question.
type Strategy interface {
	Grade(q Q, selected []string) Result
}

// Grader routes by question kind to the correct Strategy.
type Grader interface {
	Grade(q Q, selected []string) Result
}

const (
	KindSingle = "single"
	KindMulti  = "multi"
)

// Kind reports which strategy grades q.
func Kind(q Q) string {
	if q.AllowMultiple {
		return KindMulti
	}
	return KindSingle
}

type defaultGrader struct {
	strategies map[string]Strategy
}

func (g *defaultGrader) Grade(q Q, selected []string) Result {
	s, ok := g.strategies[Kind(q)]
	if !ok {
		return Result{Flagged: true, Feedback: []string{"no strategy available"}}
	}
	return s.Grade(q, selected)
}

// Engine options

type Option func(*config)

type config struct {
	AllowPartialMulti bool // net partial credit for multi-select
}

func WithPartialMulti(b bool) Option { return func(c *config) { c.AllowPartialMulti = b } }

// NewDefaultGrader installs built-in strategies.
func NewDefaultGrader(opts ...Option) Grader {
	cfg := &config{AllowPartialMulti: true}
	for _, o := range opts {
		o(cfg)
	}
	return &defaultGrader{
		strategies: map[string]Strategy{
			KindSingle: singleStrategy{},
			KindMulti:  multiStrategy{allowPartial: cfg.AllowPartialMulti},
		},
	}
}

// --- Strategies ---

type singleStrategy struct{}

func (singleStrategy) Grade(q Q, selected []string) Result {
	res := Result{Selected: Normalize(q.Options, selected)}
	if len(q.AnswerKey) != 1 {
		res.Flagged = true
		res.Feedback = append(res.Feedback, "single-answer question needs exactly one key")
		return res
	}
	if setEqual(toSet(res.Selected), toSet(q.AnswerKey)) {
		res.Points = 1
		res.FullyCorrect = true
	}
	return res
}

type multiStrategy struct{ allowPartial bool }

// Grade awards (hits - misses) / |key|, clamped to [0, 1].
func (s multiStrategy) Grade(q Q, selected []string) Result {
	res := Result{Selected: Normalize(q.Options, selected)}
	correct := toSet(q.AnswerKey)
	if len(correct) == 0 {
		res.Flagged = true
		res.Feedback = append(res.Feedback, "empty answer key")
		return res
	}
	resp := toSet(res.Selected)
	if setEqual(correct, resp) {
		res.Points = 1
		res.FullyCorrect = true
		return res
	}
	if !s.allowPartial {
		return res
	}
	hits, misses := 0, 0
	for k := range resp {
		if _, ok := correct[k]; ok {
			hits++
		} else {
			misses++
		}
	}
	res.Points = clamp01(float64(hits-misses) / float64(len(correct)))
	return res
}

// Normalize drops selections that are not among options and collapses
// duplicates. The result follows the order of options.
func Normalize(options, selected []string) []string {
	picked := toSet(selected)
	out := make([]string, 0, len(picked))
	seen := make(map[string]struct{}, len(options))
	for _, o := range options {
		if _, dup := seen[o]; dup {
			continue
		}
		seen[o] = struct{}{}
		if _, ok := picked[o]; ok {
			out = append(out, o)
		}
	}
	return out
}

// helpers

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func toSet(arr []string) map[string]struct{} {
	m := make(map[string]struct{}, len(arr))
	for _, s := range arr {
		m[s] = struct{}{}
	}
	return m
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
