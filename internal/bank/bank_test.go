package bank

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/mind-engage/ledgerquiz/internal/quiz"
)

func TestParseAnswers(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{raw: "", want: nil},
		{raw: "  ", want: nil},
		{raw: `["Cash", " Equipment ", ""]`, want: []string{"Cash", "Equipment"}},
		{raw: "Cash | Equipment ||", want: []string{"Cash", "Equipment"}},
		{raw: " Wages ", want: []string{"Wages"}},
		{raw: "[not json", want: []string{"[not json"}},
		{raw: "[not|json", want: []string{"[not", "json"}},
		{raw: `[1, 2]`, want: []string{"1", "2"}},
	}
	for _, tc := range tests {
		if got := ParseAnswers(tc.raw); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("ParseAnswers(%q) = %#v, want %#v", tc.raw, got, tc.want)
		}
	}
}

func TestParseAllowMultiple(t *testing.T) {
	if !ParseAllowMultiple("Yes", []string{"A"}) {
		t.Error("yes should be true")
	}
	if ParseAllowMultiple("false", []string{"A"}) {
		t.Error("false with one answer should be false")
	}
	if !ParseAllowMultiple("", []string{"A", "B"}) {
		t.Error("two answers imply multi")
	}
}

const importCSV = `module,question,option1,option2,option3,option4,answer,correct_answers,allow_multiple,difficulty,explanation
Basics,Equation?,Assets = Liabilities + Equity,Assets = Revenue,,,Assets = Liabilities + Equity,,,Easy,The equation.
Basics,Assets?,Cash,Loan,Equipment,Rent,,Cash|Equipment,,Medium,Cash and equipment are assets.
Basics,No options,Only,,,,Only,,,,Has one option.
Basics,No explanation,A,B,,,A,,,,
Basics,Mismatch,A,B,,,C,,,,Nope.
Basics,Bad multi,A,B,,,A,,true,,Needs two.
Basics,Single fallback,A,B,C,,,"[""B"",""C""]",false,Hard,Takes first.
Basics,Bad difficulty,A,B,,,A,,,Extreme,Bad level.
,Default module,A,B,,,B,,,,Goes to General.
,,,,,,,,,,
`

func TestImportCSV(t *testing.T) {
	res, err := ImportCSV(strings.NewReader(importCSV))
	if err != nil {
		t.Fatal(err)
	}
	if res.Imported != 4 || len(res.Questions) != 4 {
		t.Fatalf("imported %d", res.Imported)
	}
	if res.SkippedNoOptions != 1 || res.SkippedMissingExplanation != 1 ||
		res.SkippedAnswerMismatch != 1 || res.SkippedInvalidMulti != 1 || res.SkippedInvalid != 1 {
		t.Fatalf("unexpected skip counters: %+v", res)
	}
	if res.Skipped() != 5 {
		t.Fatalf("skipped total %d", res.Skipped())
	}
	for i, q := range res.Questions {
		if q.ID != int64(i+1) {
			t.Fatalf("ids not renumbered: %d at %d", q.ID, i)
		}
		if err := quiz.Validate(q); err != nil {
			t.Fatalf("imported invalid question %d: %v", q.ID, err)
		}
	}
	multi := res.Questions[1]
	if !multi.AllowMultiple || !reflect.DeepEqual(multi.CorrectAnswers, []string{"Cash", "Equipment"}) {
		t.Fatalf("multi row: %+v", multi)
	}
	fallback := res.Questions[2]
	if fallback.AllowMultiple || !reflect.DeepEqual(fallback.CorrectAnswers, []string{"B"}) || fallback.Difficulty != quiz.Hard {
		t.Fatalf("fallback row: %+v", fallback)
	}
	if res.Questions[3].Module != "General" {
		t.Fatalf("default module: %q", res.Questions[3].Module)
	}
}

func TestImportMissingColumns(t *testing.T) {
	_, err := ImportCSV(strings.NewReader("module,question,option1\nA,B,C\n"))
	if !errors.Is(err, ErrMissingColumns) {
		t.Fatalf("expected ErrMissingColumns, got %v", err)
	}
	if !strings.Contains(err.Error(), "explanation") {
		t.Fatalf("error should name missing columns: %v", err)
	}
}

func sampleQuestions() []quiz.Question {
	return []quiz.Question{
		{ID: 1, Module: "Basics", Text: "Expense?", Options: []string{"Sales", "Wages", "Loan", "Capital"},
			CorrectAnswers: []string{"Wages"}, Explanation: "Wages are a cost.", Difficulty: quiz.Easy},
		{ID: 2, Module: "Basics", Text: "Assets?", Options: []string{"Cash", "Loan", "Equipment"},
			CorrectAnswers: []string{"Cash", "Equipment"}, AllowMultiple: true, Explanation: "Both.", Difficulty: quiz.Medium,
			ImageURL: "images/a.png"},
	}
}

func TestCSVExportImportRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportCSV(&buf, sampleQuestions()); err != nil {
		t.Fatal(err)
	}
	res, err := ImportCSV(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(res.Questions, sampleQuestions()) {
		t.Fatalf("round trip mismatch:\n%+v\n%+v", res.Questions, sampleQuestions())
	}
}

func TestXLSXExportImportRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := ExportXLSX(&buf, sampleQuestions()); err != nil {
		t.Fatal(err)
	}
	res, err := ImportXLSX(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if res.Imported != 2 || res.Skipped() != 0 {
		t.Fatalf("xlsx import: %+v", res)
	}
	if !reflect.DeepEqual(res.Questions, sampleQuestions()) {
		t.Fatalf("round trip mismatch:\n%+v", res.Questions)
	}
}
