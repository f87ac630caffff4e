package scraper

import (
	"errors"
	"fmt"
)

// ErrMalformedListing matches every *MalformedListingError via errors.Is.
var ErrMalformedListing = errors.New("malformed listing")

// MalformedListingError means a listing lacks a nested list the record
// needs. Only that listing is skipped.
type MalformedListingError struct {
	ListingID string
	Field     string
}

func (e *MalformedListingError) Error() string {
	return fmt.Sprintf("listing %s: %s is missing or empty", e.ListingID, e.Field)
}

func (e *MalformedListingError) Is(target error) bool {
	return target == ErrMalformedListing
}

// UnexpectedResponseError means the API answered with a non-success status
// or an unexpected content type. The whole run must stop.
type UnexpectedResponseError struct {
	URL         string
	StatusCode  int
	ContentType string
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("invalid API response from %s: status %d, content-type %q",
		e.URL, e.StatusCode, e.ContentType)
}

// TransportError wraps a connection, read or decode failure on one page.
// The page yields no listings and the run continues.
type TransportError struct {
	Page int
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("page %d: %v", e.Page, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsFatal reports whether err must abort the run.
func IsFatal(err error) bool {
	var ure *UnexpectedResponseError
	return errors.As(err, &ure)
}
