// Package scraper implements job listing fetching, normalisation and the
// ingest-and-report run.
package scraper

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"jobmate/report-service/internal/model"
)

const dateLayout = "2006-01-02"

// Normalizer turns raw listings into JobRecords for one set of search
// parameters.
type Normalizer struct {
	Params     model.SearchParams
	TargetCity string // e.g. "Chicago, Illinois"
	CreatedBy  string
	Now        func() time.Time
}

// ExtractDate returns the date-only prefix of an ISO-8601 timestamp.
func ExtractDate(ts string) string {
	date, _, _ := strings.Cut(ts, "T")
	return date
}

// InMultipleLocations reports whether target is a field value of any
// location entry, not just the primary one.
func InMultipleLocations(locations []model.LocationEntry, target string) bool {
	for _, loc := range locations {
		if loc.HasValue(target) {
			return true
		}
	}
	return false
}

// Normalize converts one listing into a record. A listing without location
// or remuneration entries yields a *MalformedListingError.
func (n *Normalizer) Normalize(item model.JobListing) (model.JobRecord, error) {
	d := item.MatchedObjectDescriptor

	if len(d.PositionLocation) == 0 {
		return model.JobRecord{}, &MalformedListingError{ListingID: item.MatchedObjectID, Field: "PositionLocation"}
	}
	if len(d.PositionRemuneration) == 0 {
		return model.JobRecord{}, &MalformedListingError{ListingID: item.MatchedObjectID, Field: "PositionRemuneration"}
	}

	id, err := strconv.ParseInt(strings.TrimSpace(item.MatchedObjectID), 10, 64)
	if err != nil {
		return model.JobRecord{}, fmt.Errorf("listing id %q: %w", item.MatchedObjectID, err)
	}

	published, err := time.Parse(dateLayout, ExtractDate(d.PositionStartDate))
	if err != nil {
		return model.JobRecord{}, fmt.Errorf("listing %d publish date %q: %w", id, d.PositionStartDate, err)
	}

	pay := d.PositionRemuneration[0]

	return model.JobRecord{
		ID:                  id,
		Title:               d.PositionTitle,
		PublishDate:         published,
		Organization:        d.OrganizationName,
		LocationDisplay:     d.PositionLocationDisplay,
		City:                d.PositionLocation[0].Name(),
		InMultipleLocations: InMultipleLocations(d.PositionLocation, n.TargetCity),
		URL:                 d.PositionURI,
		MinSalary:           pay.MinimumRange.Value,
		MaxSalary:           pay.MaximumRange.Value,
		CreatedAt:           n.now(),
		SearchParams:        n.Params.Descriptor(),
		CreatedBy:           n.CreatedBy,
	}, nil
}

// NormalizePage normalises a page of listings in order. Malformed listings
// are logged and skipped; any other failure aborts the page and no records
// from it are returned.
func (n *Normalizer) NormalizePage(items []model.JobListing) ([]model.JobRecord, error) {
	records := make([]model.JobRecord, 0, len(items))
	for _, item := range items {
		rec, err := n.Normalize(item)
		if errors.Is(err, ErrMalformedListing) {
			slog.Warn("skipping malformed listing", "component", "normalizer", "err", err)
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (n *Normalizer) now() time.Time {
	if n.Now != nil {
		return n.Now()
	}
	return time.Now()
}
