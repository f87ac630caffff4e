// Package report builds the monthly jobs report: the view filter, the CSV
// artifact and the email that carries it.
package report

import (
	"strings"
	"time"

	"jobmate/report-service/internal/model"
)

// InScope reports whether a stored record belongs in the report view for
// the month containing now. It matches the SQL view: publish date in the
// current calendar month, and either the city contains "Chicago" or the
// location display says multiple locations or remote.
//
// Matching is case-sensitive, like LIKE in the view.
func InScope(rec model.JobRecord, now time.Time) bool {
	y, m, _ := now.Date()
	py, pm, _ := rec.PublishDate.Date()
	if py != y || pm != m {
		return false
	}
	return strings.Contains(rec.City, model.ReportCitySubstring) ||
		strings.Contains(rec.LocationDisplay, model.ReportMultipleLocation) ||
		rec.LocationDisplay == model.ReportRemoteDisplay
}

// CountInScope counts the records InScope accepts.
func CountInScope(records []model.JobRecord, now time.Time) int {
	n := 0
	for _, r := range records {
		if InScope(r, now) {
			n++
		}
	}
	return n
}
