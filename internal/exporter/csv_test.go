package exporter

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casepulse/internal/analytics"
)

func TestWriteSimpleCSV(t *testing.T) {
	dir := t.TempDir()
	writer := NewCSVWriter(dir)

	err := writer.WriteSimpleCSV("out/report.csv",
		[]string{"staff", "count"},
		[][]string{{"Alice", "3"}, {"Bob", "1"}},
	)
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, "out", "report.csv"))
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}), "missing BOM prefix")
	assert.Equal(t, "staff,count\nAlice,3\nBob,1\n", string(bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})))
}

func TestWriteCSV_Append(t *testing.T) {
	dir := t.TempDir()
	writer := NewCSVWriter(dir)

	require.NoError(t, writer.WriteSimpleCSV("report.csv", []string{"a"}, [][]string{{"1"}}))
	require.NoError(t, writer.WriteCSV("report.csv", WriteOptions{
		Records: [][]string{{"2"}},
		Append:  true,
	}))

	raw, err := os.ReadFile(filepath.Join(dir, "report.csv"))
	require.NoError(t, err)
	assert.Equal(t, "a\n1\n2\n", string(bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF})))
}

func TestWriteTo(t *testing.T) {
	var buf bytes.Buffer
	err := WriteTo(&buf, []string{"month", "count"}, [][]string{{"2024-01", "5"}})
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte{0xEF, 0xBB, 0xBF}))
	assert.Contains(t, buf.String(), "2024-01,5")
}

func sampleResult() analytics.Result {
	result := analytics.EmptyResult()
	result.MonthlySeries = []analytics.MonthCount{{Month: "2024-01", Count: 2}}
	result.DurationStats = analytics.DurationStats{Average: 2.5, Median: 2.5, Min: 1, Max: 4, Sorted: []int{1, 4}}
	result.DurationHistogram = []analytics.Bucket{{Label: "0 day(s)", Count: 1}}
	result.StaffDurationAverages = []analytics.StaffAverage{{Staff: "Alice", AverageDays: 2.5, Cases: 2}}
	result.StaffActionCounts = []analytics.StaffCount{{Staff: "Alice", Count: 2}}
	result.ActionTypeCounts = []analytics.ActionCount{{Action: "resolve", Count: 2}}
	result.RegistrationToActionStats = analytics.DiffStats{Average: 3, Median: 3, Count: 2}
	return result
}

func TestViewTable_AllViews(t *testing.T) {
	result := sampleResult()

	for _, view := range ViewNames() {
		headers, rows, err := ViewTable(result, view)
		require.NoError(t, err, view)
		assert.NotEmpty(t, headers, view)
		require.NotEmpty(t, rows, view)
		for _, row := range rows {
			assert.Len(t, row, len(headers), view)
		}
	}
}

func TestViewTable_Contents(t *testing.T) {
	result := sampleResult()

	headers, rows, err := ViewTable(result, ViewStaffAverages)
	require.NoError(t, err)
	assert.Equal(t, []string{"staff", "average_days", "cases"}, headers)
	assert.Equal(t, [][]string{{"Alice", "2.5", "2"}}, rows)

	_, rows, err = ViewTable(result, ViewDurationStats)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"2.5", "2.5", "1", "4", "2"}}, rows)
}

func TestViewTable_UnknownView(t *testing.T) {
	_, _, err := ViewTable(sampleResult(), "nonsense")
	assert.ErrorIs(t, err, ErrUnknownView)
}
