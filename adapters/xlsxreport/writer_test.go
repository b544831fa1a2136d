package xlsxreport

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"relana/domain/core"
	"relana/domain/project"
)

func TestWriterRoundTrip(t *testing.T) {
	rep := &project.Report{
		ID:      core.NewID(),
		Project: "plant",
		Results: []project.Result{
			{Path: core.MustParsePath("cooling"), Prob: big.NewRat(109, 1000)},
			{Path: core.MustParsePath("pipe.loss"), Prob: big.NewRat(1, 10)},
		},
		Warnings: []string{"effect leak: degenerate conditional probability DRIP|AND[]"},
		Summary:  &project.Summary{Outputs: 2, Riskiest: "cooling"},
	}
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, NewWriter(path, 6).Write(context.Background(), rep))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{resultsSheet, summarySheet, warningsSheet}, f.GetSheetList())

	v, err := f.GetCellValue(resultsSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Output", v)
	v, err = f.GetCellValue(resultsSheet, "A3")
	require.NoError(t, err)
	assert.Equal(t, "pipe.loss", v)
	v, err = f.GetCellValue(resultsSheet, "C2")
	require.NoError(t, err)
	assert.Equal(t, "109/1000", v)

	v, err = f.GetCellValue(summarySheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "plant", v)
	v, err = f.GetCellValue(warningsSheet, "A1")
	require.NoError(t, err)
	assert.Contains(t, v, "degenerate")
}

func TestWriterHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewWriter(filepath.Join(t.TempDir(), "r.xlsx"), 6).Write(ctx, &project.Report{})
	assert.ErrorIs(t, err, context.Canceled)
}
