package store

import (
	"context"

	"github.com/mind-engage/ledgerquiz/internal/quiz"
)

// SeedQuestions is the starter bank written into an empty store.
func SeedQuestions() []quiz.Question {
	return []quiz.Question{
		{
			ID:     1,
			Module: "Basics",
			Text:   "What is the accounting equation?",
			Options: []string{
				"Assets = Liabilities + Equity",
				"Assets = Revenue - Expenses",
				"Equity = Assets + Liabilities",
				"Liabilities = Assets + Equity",
			},
			CorrectAnswers: []string{"Assets = Liabilities + Equity"},
			Difficulty:     quiz.Easy,
			Explanation:    "The accounting equation represents the relationship between assets, liabilities, and equity.",
		},
		{
			ID:             2,
			Module:         "Basics",
			Text:           "Which of these is an expense?",
			Options:        []string{"Sales", "Wages", "Loan", "Capital"},
			CorrectAnswers: []string{"Wages"},
			Difficulty:     quiz.Easy,
			Explanation:    "Wages are an expense because they represent a cost incurred in running the business.",
		},
		{
			ID:     3,
			Module: "Financial Statements",
			Text:   "Which statement shows financial performance over a period?",
			Options: []string{
				"Balance Sheet",
				"Income Statement",
				"Cash Flow Statement",
				"Trial Balance",
			},
			CorrectAnswers: []string{"Income Statement"},
			Difficulty:     quiz.Easy,
			Explanation:    "The income statement shows revenue, expenses, and profit or loss for a period.",
		},
	}
}

// SeedIfEmpty loads SeedQuestions when the bank has no rows. It reports
// whether anything was written.
func SeedIfEmpty(ctx context.Context, s QuestionStore) (bool, error) {
	qs, err := s.ListQuestions(ctx)
	if err != nil {
		return false, err
	}
	if len(qs) > 0 {
		return false, nil
	}
	return true, s.ReplaceQuestions(ctx, SeedQuestions())
}
