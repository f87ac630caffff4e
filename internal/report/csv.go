package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"jobmate/report-service/internal/model"
)

// Columns is the CSV header, in row order.
var Columns = []string{
	"position_title",
	"job_publish_date",
	"org_name",
	"position_location_display",
	"in_multiple_locations",
	"job_url",
	"min_salary_range",
	"max_salary_range",
}

// WriteCSV writes the header and one line per row to path, replacing any
// existing file. The file is always closed; a close error is returned if
// nothing failed before it.
func WriteCSV(path string, rows []model.ReportRow) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		if err := w.Write(csvRecord(r)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return nil
}

func csvRecord(r model.ReportRow) []string {
	return []string{
		r.Title,
		r.PublishDate.Format("2006-01-02"),
		r.Organization,
		r.LocationDisplay,
		strconv.FormatBool(r.InMultipleLocations),
		r.URL,
		formatSalary(r.MinSalary),
		formatSalary(r.MaxSalary),
	}
}

func formatSalary(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
