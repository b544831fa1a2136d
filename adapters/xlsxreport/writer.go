// Package xlsxreport exports analysis reports as Excel workbooks.
package xlsxreport

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"relana/domain/project"
	"relana/internal/report"
	"relana/ports"
)

const (
	resultsSheet  = "Results"
	summarySheet  = "Summary"
	warningsSheet = "Warnings"
)

var resultHeaders = []string{"Output", "Probability", "Exact", "Std. dev.", "Entropy"}

// Writer saves every report it is given to Path, overwriting earlier ones.
type Writer struct {
	Path     string
	Decimals int
}

var _ ports.ReportWriter = (*Writer)(nil)

// NewWriter creates a workbook writer
func NewWriter(path string, decimals int) *Writer {
	return &Writer{Path: path, Decimals: decimals}
}

func (w *Writer) Write(ctx context.Context, rep *project.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := Build(rep, w.Decimals)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(w.Path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", w.Path, err)
	}
	return nil
}

// Build lays rep out as a workbook with one sheet each for results,
// summary and warnings.
func Build(rep *project.Report, decimals int) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return nil, err
	}

	for i, h := range resultHeaders {
		if err := setCell(f, resultsSheet, i+1, 1, h); err != nil {
			return nil, err
		}
	}
	for r, row := range report.Rows(rep, decimals) {
		values := []interface{}{row.Path, row.Float, row.Exact, row.StdDev, row.Entropy}
		for c, v := range values {
			if err := setCell(f, resultsSheet, c+1, r+2, v); err != nil {
				return nil, err
			}
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, err
	}
	summary := [][]interface{}{
		{"Project", rep.Project},
		{"Report", rep.ID.String()},
		{"Created", rep.CreatedAt.String()},
		{"Fingerprint", rep.Fingerprint.String()},
	}
	if s := rep.Summary; s != nil {
		summary = append(summary,
			[]interface{}{"Outputs", s.Outputs},
			[]interface{}{"Mean", s.Mean},
			[]interface{}{"Median", s.Median},
			[]interface{}{"Std. dev.", s.StdDev},
			[]interface{}{"Min", s.Min},
			[]interface{}{"Max", s.Max},
			[]interface{}{"Entropy", s.Entropy},
			[]interface{}{"Riskiest", s.Riskiest},
		)
	}
	for r, kv := range summary {
		for c, v := range kv {
			if err := setCell(f, summarySheet, c+1, r+1, v); err != nil {
				return nil, err
			}
		}
	}

	if len(rep.Warnings) > 0 {
		if _, err := f.NewSheet(warningsSheet); err != nil {
			return nil, err
		}
		for r, w := range rep.Warnings {
			if err := setCell(f, warningsSheet, 1, r+1, w); err != nil {
				return nil, err
			}
		}
	}
	return f, nil
}

func setCell(f *excelize.File, sheet string, col, row int, v interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, v)
}
