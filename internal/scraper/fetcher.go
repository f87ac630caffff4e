package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"jobmate/report-service/internal/model"
)

const httpTimeout = 30 * time.Second

// USAJobsFetcher pulls every result page of one search from the USAJobs
// search API. Pages are requested one after another.
type USAJobsFetcher struct {
	QueryURL    string
	APIKey      string
	UserAgent   string
	ContentType string // expected media type, e.g. "application/hr+json"

	normalizer *Normalizer
	client     *http.Client
	limiter    *rate.Limiter
	log        *slog.Logger
}

// NewUSAJobsFetcher constructs a fetcher with its own HTTP client and a
// limiter allowing requestsPerSecond page requests.
func NewUSAJobsFetcher(queryURL, apiKey, userAgent, contentType string, requestsPerSecond float64, normalizer *Normalizer) *USAJobsFetcher {
	return &USAJobsFetcher{
		QueryURL:    queryURL,
		APIKey:      apiKey,
		UserAgent:   userAgent,
		ContentType: contentType,
		normalizer:  normalizer,
		client:      &http.Client{Timeout: httpTimeout},
		limiter:     rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		log:         slog.Default().With("component", "fetcher"),
	}
}

// FetchAll requests page 1, reads the page count from it, then requests
// pages 2..N and returns the records of all pages in page order.
//
// A returned error aborts the run: either an *UnexpectedResponseError or
// an unusable query URL. Transport failures and aborted pages are logged
// and contribute nothing.
func (f *USAJobsFetcher) FetchAll(ctx context.Context) ([]model.JobRecord, error) {
	endpoint, err := url.Parse(f.QueryURL)
	if err != nil {
		return nil, fmt.Errorf("query url %q: %w", f.QueryURL, err)
	}

	first, err := f.fetchPage(ctx, endpoint, 1)
	if err != nil {
		if IsFatal(err) {
			return nil, err
		}
		f.log.Error("first page failed, no listings this run", "err", err)
		return nil, nil
	}

	pageCount := int(first.SearchResult.UserArea.NumberOfPages)
	f.log.Info("search results", "pages", pageCount, "firstPageItems", len(first.SearchResult.SearchResultItems))

	records := f.normalize(1, first)

	for page := 2; page <= pageCount; page++ {
		resp, err := f.fetchPage(ctx, endpoint, page)
		if err != nil {
			if IsFatal(err) {
				return nil, err
			}
			f.log.Error("page failed, continuing", "page", page, "err", err)
			continue
		}
		records = append(records, f.normalize(page, resp)...)
	}

	return records, nil
}

func (f *USAJobsFetcher) normalize(page int, resp *model.SearchResponse) []model.JobRecord {
	recs, err := f.normalizer.NormalizePage(resp.SearchResult.SearchResultItems)
	if err != nil {
		f.log.Error("page aborted during normalisation", "page", page, "err", err)
		return nil
	}
	return recs
}

// requestParams builds a fresh parameter set for one page; page 1 carries
// no Page parameter.
func (f *USAJobsFetcher) requestParams(page int) url.Values {
	p := f.normalizer.Params
	params := url.Values{}
	params.Set("ResultsPerPage", strconv.Itoa(p.ResultsPerPage))
	params.Set("LocationName", p.LocationName)
	params.Set("Keyword", p.Keyword)
	if page > 1 {
		params.Set("Page", strconv.Itoa(page))
	}
	return params
}

func (f *USAJobsFetcher) fetchPage(ctx context.Context, base *url.URL, page int) (*model.SearchResponse, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{Page: page, Err: fmt.Errorf("rate limiter: %w", err)}
	}

	endpoint := *base
	endpoint.RawQuery = f.requestParams(page).Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, &TransportError{Page: page, Err: err}
	}
	req.Host = endpoint.Host
	req.Header.Set("User-Agent", f.UserAgent)
	req.Header.Set("Authorization-Key", f.APIKey)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &TransportError{Page: page, Err: fmt.Errorf("http GET: %w", err)}
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if resp.StatusCode < 200 || resp.StatusCode > 299 || !strings.Contains(contentType, f.ContentType) {
		return nil, &UnexpectedResponseError{URL: endpoint.String(), StatusCode: resp.StatusCode, ContentType: contentType}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Page: page, Err: fmt.Errorf("read body: %w", err)}
	}

	var out model.SearchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &TransportError{Page: page, Err: fmt.Errorf("json unmarshal: %w", err)}
	}
	return &out, nil
}
