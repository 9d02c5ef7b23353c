package quiz

import (
	cryptorand "crypto/rand"
	"errors"
	"math/rand/v2"
)

var ErrInvalidSelection = errors.New("invalid selection request")

// QuizItem is a question as presented in one session. ShuffledOptions is a
// permutation of Question.Options.
type QuizItem struct {
	Question        Question `json:"question"`
	ShuffledOptions []string `json:"shuffled_options"`
}

// Exclusion names a bank entry that was left out of the selection pool.
type Exclusion struct {
	QuestionID int64  `json:"question_id"`
	Reason     string `json:"reason"`
}

type Selection struct {
	Items       []QuizItem  `json:"items"`
	Requested   int         `json:"requested"`
	Returned    int         `json:"returned"`
	UnderSupply bool        `json:"under_supply"`
	Excluded    []Exclusion `json:"excluded,omitempty"`
}

type SelectOption func(*selectConfig)

type selectConfig struct {
	seed *int64
}

// WithSeed makes selection and every option shuffle reproducible.
func WithSeed(seed int64) SelectOption {
	return func(c *selectConfig) { c.seed = &seed }
}

// SelectQuiz picks count questions from bank (restricted to moduleFilter when
// it is non-empty) and shuffles each one's options. Malformed questions and
// repeated IDs are skipped and listed in Selection.Excluded. Returning fewer
// than count items is not an error; see Selection.UnderSupply.
func SelectQuiz(bank []Question, moduleFilter string, count int, opts ...SelectOption) (Selection, error) {
	if count < 1 {
		return Selection{}, errors.Join(ErrInvalidSelection, errors.New("count must be at least 1"))
	}
	if len(bank) == 0 {
		return Selection{}, errors.Join(ErrInvalidSelection, errors.New("question bank is empty"))
	}
	cfg := &selectConfig{}
	for _, o := range opts {
		o(cfg)
	}
	r := newRand(cfg.seed)

	sel := Selection{Requested: count}
	pool := make([]int, 0, len(bank))
	ids := make(map[int64]struct{}, len(bank))
	for i, q := range bank {
		if moduleFilter != "" && q.Module != moduleFilter {
			continue
		}
		if err := Validate(q); err != nil {
			sel.Excluded = append(sel.Excluded, Exclusion{QuestionID: q.ID, Reason: err.Error()})
			continue
		}
		if _, dup := ids[q.ID]; dup {
			sel.Excluded = append(sel.Excluded, Exclusion{QuestionID: q.ID, Reason: "duplicate question id"})
			continue
		}
		ids[q.ID] = struct{}{}
		pool = append(pool, i)
	}

	// Shuffling the whole pool gives a uniform choice and a random order at once.
	r.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	n := min(count, len(pool))
	sel.Items = make([]QuizItem, 0, n)
	for _, idx := range pool[:n] {
		q := bank[idx].Clone()
		shuffled := append([]string(nil), q.Options...)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		sel.Items = append(sel.Items, QuizItem{Question: q, ShuffledOptions: shuffled})
	}
	sel.Returned = n
	sel.UnderSupply = n < count
	return sel, nil
}

func newRand(seed *int64) *rand.Rand {
	if seed != nil {
		return rand.New(rand.NewPCG(uint64(*seed), 0x9e3779b97f4a7c15))
	}
	var key [32]byte
	_, _ = cryptorand.Read(key[:])
	return rand.New(rand.NewChaCha8(key))
}
