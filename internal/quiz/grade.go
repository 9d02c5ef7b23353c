package quiz

import (
	"math"

	"github.com/mind-engage/ledgerquiz/internal/grading"
)

// Answers maps question ID to the selected option strings.
type Answers map[int64][]string

type ItemResult struct {
	QuestionID     int64    `json:"question_id"`
	Selected       []string `json:"selected"`
	CorrectAnswers []string `json:"correct_answers"`
	Score          float64  `json:"score"`
	IsFullyCorrect bool     `json:"is_fully_correct"`
	Malformed      bool     `json:"malformed,omitempty"`
	Explanation    string   `json:"explanation,omitempty"`
}

type GradingResult struct {
	Items      []ItemResult `json:"items"`
	TotalScore float64      `json:"total_score"`
	MaxScore   int          `json:"max_score"`
	Percentage float64      `json:"percentage"`
}

var defaultGrader = grading.NewDefaultGrader()

// Grade scores items against answers. It never fails: unknown selections are
// dropped, missing answers count as empty, and malformed questions score 0
// with Malformed set.
func Grade(items []QuizItem, answers Answers) GradingResult {
	res := GradingResult{Items: make([]ItemResult, 0, len(items)), MaxScore: len(items)}
	for _, it := range items {
		q := it.Question
		ir := ItemResult{
			QuestionID:     q.ID,
			CorrectAnswers: append([]string(nil), q.CorrectAnswers...),
			Explanation:    q.Explanation,
		}
		options := it.ShuffledOptions
		if len(options) == 0 {
			options = q.Options
		}
		raw := answers[q.ID]
		if err := Validate(q); err != nil {
			ir.Selected = grading.Normalize(options, raw)
			ir.Malformed = true
			res.Items = append(res.Items, ir)
			continue
		}
		gr := defaultGrader.Grade(grading.Q{
			Options:       options,
			AnswerKey:     q.CorrectAnswers,
			AllowMultiple: q.AllowMultiple,
		}, raw)
		ir.Selected = gr.Selected
		ir.Score = finiteOrZero(gr.Points)
		ir.IsFullyCorrect = gr.FullyCorrect
		ir.Malformed = gr.Flagged
		res.TotalScore += ir.Score
		res.Items = append(res.Items, ir)
	}
	if res.MaxScore > 0 {
		res.Percentage = finiteOrZero(100 * res.TotalScore / float64(res.MaxScore))
	}
	return res
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
