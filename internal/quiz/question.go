package quiz

import (
	"errors"
	"fmt"
	"strings"
)

type Difficulty string

const (
	Easy   Difficulty = "Easy"
	Medium Difficulty = "Medium"
	Hard   Difficulty = "Hard"
)

// ParseDifficulty accepts any casing; blank means Easy.
func ParseDifficulty(s string) (Difficulty, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "easy":
		return Easy, true
	case "medium":
		return Medium, true
	case "hard":
		return Hard, true
	}
	return "", false
}

const (
	MinOptions = 2
	MaxOptions = 4
)

type Question struct {
	ID             int64      `json:"id"`
	Module         string     `json:"module"`
	Text           string     `json:"question"`
	Options        []string   `json:"options"`
	CorrectAnswers []string   `json:"correct_answers"`
	AllowMultiple  bool       `json:"allow_multiple"`
	Explanation    string     `json:"explanation"`
	Difficulty     Difficulty `json:"difficulty"`
	ImageURL       string     `json:"image,omitempty"`
}

var ErrMalformedQuestion = errors.New("malformed question")

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedQuestion, fmt.Sprintf(format, args...))
}

// Validate reports whether q can be graded. The returned error wraps
// ErrMalformedQuestion.
func Validate(q Question) error {
	if strings.TrimSpace(q.Module) == "" {
		return malformed("module is empty")
	}
	if strings.TrimSpace(q.Text) == "" {
		return malformed("question text is empty")
	}
	if strings.TrimSpace(q.Explanation) == "" {
		return malformed("explanation is empty")
	}
	if n := len(q.Options); n < MinOptions || n > MaxOptions {
		return malformed("need %d-%d options, got %d", MinOptions, MaxOptions, n)
	}
	opts := make(map[string]struct{}, len(q.Options))
	for _, o := range q.Options {
		if strings.TrimSpace(o) == "" {
			return malformed("blank option")
		}
		if _, dup := opts[o]; dup {
			return malformed("duplicate option %q", o)
		}
		opts[o] = struct{}{}
	}
	if len(q.CorrectAnswers) == 0 {
		return malformed("no correct answers")
	}
	seen := make(map[string]struct{}, len(q.CorrectAnswers))
	for _, a := range q.CorrectAnswers {
		if _, ok := opts[a]; !ok {
			return malformed("correct answer %q is not an option", a)
		}
		if _, dup := seen[a]; dup {
			return malformed("duplicate correct answer %q", a)
		}
		seen[a] = struct{}{}
	}
	if !q.AllowMultiple && len(q.CorrectAnswers) != 1 {
		return malformed("single-answer question has %d correct answers", len(q.CorrectAnswers))
	}
	switch q.Difficulty {
	case Easy, Medium, Hard:
	default:
		return malformed("unknown difficulty %q", q.Difficulty)
	}
	return nil
}

// Clone returns a deep copy so callers can't alias the bank's slices.
func (q Question) Clone() Question {
	q.Options = append([]string(nil), q.Options...)
	q.CorrectAnswers = append([]string(nil), q.CorrectAnswers...)
	return q
}
