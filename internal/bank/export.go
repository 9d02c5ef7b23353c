package bank

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/mind-engage/ledgerquiz/internal/quiz"
)

var ExportColumns = []string{
	"id", "module", "question", "option1", "option2", "option3", "option4",
	"answer", "correct_answers", "allow_multiple", "difficulty", "image", "explanation",
}

const exportSheet = "questions"

func ExportCSV(w io.Writer, qs []quiz.Question) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportColumns); err != nil {
		return err
	}
	for _, q := range qs {
		if err := cw.Write(exportRow(q)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func ExportXLSX(w io.Writer, qs []quiz.Question) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return err
	}
	if err := writeSheetRow(f, 1, ExportColumns); err != nil {
		return err
	}
	for i, q := range qs {
		if err := writeSheetRow(f, i+2, exportRow(q)); err != nil {
			return err
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func writeSheetRow(f *excelize.File, row int, vals []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]any, len(vals))
	for i, v := range vals {
		cells[i] = v
	}
	return f.SetSheetRow(exportSheet, cell, &cells)
}

func exportRow(q quiz.Question) []string {
	opts := make([]string, quiz.MaxOptions)
	copy(opts, q.Options)
	answer := ""
	if len(q.CorrectAnswers) > 0 {
		answer = q.CorrectAnswers[0]
	}
	correct, _ := json.Marshal(q.CorrectAnswers)
	return []string{
		strconv.FormatInt(q.ID, 10),
		q.Module,
		q.Text,
		opts[0], opts[1], opts[2], opts[3],
		answer,
		string(correct),
		strconv.FormatBool(q.AllowMultiple),
		string(q.Difficulty),
		q.ImageURL,
		q.Explanation,
	}
}
