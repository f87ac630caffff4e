// Package model defines shared data structures for the report service.
package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SearchParams is the keyword/location combination a fetch run uses.
// It is part of the storage uniqueness key through Descriptor.
type SearchParams struct {
	Keyword        string
	LocationName   string
	ResultsPerPage int
}

// Descriptor encodes the parameters the way they are stored in
// jobs.search_parameters.
func (p SearchParams) Descriptor() string {
	return fmt.Sprintf("Keyword: %s, Location: %s", p.Keyword, p.LocationName)
}

// SearchResponse mirrors the top-level USAJobs search envelope.
type SearchResponse struct {
	SearchResult struct {
		SearchResultItems []JobListing `json:"SearchResultItems"`
		UserArea          struct {
			NumberOfPages FlexInt `json:"NumberOfPages"`
		} `json:"UserArea"`
	} `json:"SearchResult"`
}

// JobListing is one raw posting from SearchResultItems.
type JobListing struct {
	MatchedObjectID         string            `json:"MatchedObjectId"`
	MatchedObjectDescriptor ListingDescriptor `json:"MatchedObjectDescriptor"`
}

// ListingDescriptor holds the posting fields the normalizer reads.
type ListingDescriptor struct {
	PositionTitle           string          `json:"PositionTitle"`
	PositionURI             string          `json:"PositionURI"`
	PositionStartDate       string          `json:"PositionStartDate"`
	OrganizationName        string          `json:"OrganizationName"`
	PositionLocationDisplay string          `json:"PositionLocationDisplay"`
	PositionLocation        []LocationEntry `json:"PositionLocation"`
	PositionRemuneration    []Remuneration  `json:"PositionRemuneration"`
}

// LocationEntry is kept as an open map: the multi-location check looks at
// every field value, not only LocationName.
type LocationEntry map[string]any

// Name returns the human-readable place name, or "" when absent.
func (l LocationEntry) Name() string {
	s, _ := l["LocationName"].(string)
	return s
}

// HasValue reports whether any string field of the entry equals v.
func (l LocationEntry) HasValue(v string) bool {
	for _, fv := range l {
		if s, ok := fv.(string); ok && s == v {
			return true
		}
	}
	return false
}

// Remuneration is one salary range. USAJobs sends the bounds as strings.
type Remuneration struct {
	MinimumRange NullFloat `json:"MinimumRange"`
	MaximumRange NullFloat `json:"MaximumRange"`
}

// NullFloat decodes a JSON number or numeric string; null and "" stay nil.
type NullFloat struct {
	Value *float64
}

func (n *NullFloat) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		n.Value = nil
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var raw string
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		s = strings.TrimSpace(raw)
		if s == "" {
			n.Value = nil
			return nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("salary range %q: %w", s, err)
	}
	n.Value = &f
	return nil
}

// FlexInt decodes an integer sent either as a JSON number or a string.
type FlexInt int

func (i *FlexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*i = 0
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("integer %q: %w", s, err)
	}
	*i = FlexInt(v)
	return nil
}

// JobRecord is a normalised listing, one row of the jobs table.
type JobRecord struct {
	ID                  int64
	Title               string
	PublishDate         time.Time
	Organization        string
	LocationDisplay     string
	City                string
	InMultipleLocations bool
	URL                 string
	MinSalary           *float64
	MaxSalary           *float64
	CreatedAt           time.Time
	SearchParams        string
	CreatedBy           string
}

// Key is the storage uniqueness key.
type Key struct {
	ID           int64
	SearchParams string
}

func (r JobRecord) Key() Key {
	return Key{ID: r.ID, SearchParams: r.SearchParams}
}

// ReportRow is the read-only projection emailed as CSV.
type ReportRow struct {
	Title               string
	PublishDate         time.Time
	Organization        string
	LocationDisplay     string
	InMultipleLocations bool
	URL                 string
	MinSalary           *float64
	MaxSalary           *float64
}

// ReportRowOf projects a stored record onto the report columns.
func ReportRowOf(r JobRecord) ReportRow {
	return ReportRow{
		Title:               r.Title,
		PublishDate:         r.PublishDate,
		Organization:        r.Organization,
		LocationDisplay:     r.LocationDisplay,
		InMultipleLocations: r.InMultipleLocations,
		URL:                 r.URL,
		MinSalary:           r.MinSalary,
		MaxSalary:           r.MaxSalary,
	}
}
