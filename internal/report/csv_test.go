package report_test

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/report-service/internal/model"
	"jobmate/report-service/internal/report"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	lines, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return lines
}

func TestWriteCSV_HeaderAndRows(t *testing.T) {
	lo, hi := 86962.0, 113047.5
	rows := []model.ReportRow{
		{
			Title:               "Data Engineer, GS-13",
			PublishDate:         time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
			Organization:        "General Services Administration",
			LocationDisplay:     "Chicago, Illinois",
			InMultipleLocations: true,
			URL:                 "https://www.usajobs.gov/job/773412300",
			MinSalary:           &lo,
			MaxSalary:           &hi,
		},
		{
			Title:           "Statistician",
			PublishDate:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			Organization:    "Census Bureau",
			LocationDisplay: "Multiple Locations",
		},
	}

	path := filepath.Join(t.TempDir(), "output.csv")
	require.NoError(t, report.WriteCSV(path, rows))

	lines := readCSV(t, path)
	require.Len(t, lines, 3)
	assert.Equal(t, report.Columns, lines[0])
	assert.Equal(t, []string{
		"Data Engineer, GS-13", "2024-03-05", "General Services Administration",
		"Chicago, Illinois", "true", "https://www.usajobs.gov/job/773412300", "86962", "113047.5",
	}, lines[1])
	assert.Equal(t, "false", lines[2][4])
	assert.Equal(t, "", lines[2][6], "missing salary is an empty field")
	assert.Equal(t, "", lines[2][7])
}

func TestWriteCSV_EmptyReportStillHasHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output.csv")
	require.NoError(t, report.WriteCSV(path, nil))

	lines := readCSV(t, path)
	require.Len(t, lines, 1)
	assert.Equal(t, report.Columns, lines[0])
}

func TestWriteCSV_OverwritesPreviousFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output.csv")
	require.NoError(t, os.WriteFile(path, []byte("stale\nstale\nstale\nstale\n"), 0o644))

	require.NoError(t, report.WriteCSV(path, []model.ReportRow{{Title: "Analyst"}}))
	assert.Len(t, readCSV(t, path), 2)
}

func TestWriteCSV_UnwritablePath(t *testing.T) {
	err := report.WriteCSV(filepath.Join(t.TempDir(), "missing", "output.csv"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create")
}
