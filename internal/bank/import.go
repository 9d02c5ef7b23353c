package bank

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mind-engage/ledgerquiz/internal/quiz"
)

var (
	ErrMissingColumns = errors.New("missing required columns")
	ErrNoRows         = errors.New("no valid rows found")
)

// RequiredColumns must all be present in an import header.
var RequiredColumns = []string{"module", "question", "option1", "option2", "answer", "explanation"}

const defaultModule = "General"

// ImportResult carries the accepted questions (ids 1..n) and per-reason skip
// counters.
type ImportResult struct {
	Questions                 []quiz.Question `json:"-"`
	Imported                  int             `json:"imported"`
	SkippedNoOptions          int             `json:"skipped_no_options"`
	SkippedMissingExplanation int             `json:"skipped_missing_explanation"`
	SkippedAnswerMismatch     int             `json:"skipped_answer_mismatch"`
	SkippedInvalidMulti       int             `json:"skipped_invalid_multiselect"`
	SkippedInvalid            int             `json:"skipped_invalid"`
}

func (r ImportResult) Skipped() int {
	return r.SkippedNoOptions + r.SkippedMissingExplanation + r.SkippedAnswerMismatch +
		r.SkippedInvalidMulti + r.SkippedInvalid
}

func ImportCSV(r io.Reader) (ImportResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return ImportResult{}, fmt.Errorf("read csv: %w", err)
	}
	return importRecords(records)
}

// ImportXLSX reads the first worksheet of an Excel workbook.
func ImportXLSX(r io.Reader) (ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return ImportResult{}, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ImportResult{}, fmt.Errorf("open xlsx: %w", ErrNoRows)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return ImportResult{}, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return importRecords(rows)
}

func importRecords(records [][]string) (ImportResult, error) {
	if len(records) == 0 {
		return ImportResult{}, ErrNoRows
	}
	cols := map[string]int{}
	for i, h := range records[0] {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return ImportResult{}, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	var res ImportResult
	for _, rec := range records[1:] {
		row := rowView{cols: cols, rec: rec}
		if row.blank() {
			continue
		}
		q, reason := buildQuestion(row)
		switch reason {
		case "":
			q.ID = int64(len(res.Questions) + 1)
			res.Questions = append(res.Questions, q)
		case skipNoOptions:
			res.SkippedNoOptions++
		case skipMissingExplanation:
			res.SkippedMissingExplanation++
		case skipAnswerMismatch:
			res.SkippedAnswerMismatch++
		case skipInvalidMulti:
			res.SkippedInvalidMulti++
		default:
			res.SkippedInvalid++
		}
	}
	res.Imported = len(res.Questions)
	return res, nil
}

type skipReason string

const (
	skipNoOptions          skipReason = "no_options"
	skipMissingExplanation skipReason = "missing_explanation"
	skipAnswerMismatch     skipReason = "answer_mismatch"
	skipInvalidMulti       skipReason = "invalid_multiselect"
	skipInvalid            skipReason = "invalid"
)

func buildQuestion(row rowView) (quiz.Question, skipReason) {
	var opts []string
	for _, c := range []string{"option1", "option2", "option3", "option4"} {
		if o := row.get(c); o != "" {
			opts = append(opts, o)
		}
	}
	if len(opts) < quiz.MinOptions {
		return quiz.Question{}, skipNoOptions
	}

	explanation := row.get("explanation")
	if explanation == "" {
		return quiz.Question{}, skipMissingExplanation
	}

	answers := ParseAnswers(row.get("correct_answers"))
	if len(answers) == 0 {
		if a := row.get("answer"); a != "" {
			answers = []string{a}
		}
	}
	if len(answers) == 0 || !subset(answers, opts) {
		return quiz.Question{}, skipAnswerMismatch
	}

	multi, set := parseFlag(row.get("allow_multiple"))
	if !set {
		multi = len(answers) > 1
	}
	if multi && len(answers) < 2 {
		return quiz.Question{}, skipInvalidMulti
	}
	if !multi && len(answers) != 1 {
		answers = answers[:1]
	}

	diff, ok := quiz.ParseDifficulty(row.get("difficulty"))
	if !ok {
		return quiz.Question{}, skipInvalid
	}
	module := row.get("module")
	if module == "" {
		module = defaultModule
	}
	q := quiz.Question{
		Module:         module,
		Text:           row.get("question"),
		Options:        opts,
		CorrectAnswers: answers,
		AllowMultiple:  multi,
		Explanation:    explanation,
		Difficulty:     diff,
		ImageURL:       row.get("image"),
	}
	if err := quiz.Validate(q); err != nil {
		return quiz.Question{}, skipInvalid
	}
	return q, ""
}

type rowView struct {
	cols map[string]int
	rec  []string
}

func (r rowView) get(col string) string {
	i, ok := r.cols[col]
	if !ok || i >= len(r.rec) {
		return ""
	}
	return strings.TrimSpace(r.rec[i])
}

func (r rowView) blank() bool {
	for _, v := range r.rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func subset(xs, of []string) bool {
	set := make(map[string]struct{}, len(of))
	for _, o := range of {
		set[o] = struct{}{}
	}
	for _, x := range xs {
		if _, ok := set[x]; !ok {
			return false
		}
	}
	return true
}
