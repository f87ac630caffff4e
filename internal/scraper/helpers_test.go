package scraper_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"jobmate/report-service/internal/scraper"
)

const hrJSON = "application/hr+json; charset=utf-8"

// apiListing is one SearchResultItems entry as USAJobs serialises it.
func apiListing(id int, city string) map[string]any {
	sid := strconv.Itoa(id)
	return map[string]any{
		"MatchedObjectId": sid,
		"MatchedObjectDescriptor": map[string]any{
			"PositionTitle":           "Data Engineer " + sid,
			"PositionURI":             "https://www.usajobs.gov/job/" + sid,
			"PositionStartDate":       "2024-03-05T00:00:00",
			"OrganizationName":        "General Services Administration",
			"PositionLocationDisplay": city,
			"PositionLocation": []map[string]any{
				{"LocationName": city, "CityName": city, "Latitude": 41.88},
			},
			"PositionRemuneration": []map[string]any{
				{"MinimumRange": "86962.0", "MaximumRange": "113047.0", "RateIntervalCode": "PA"},
			},
		},
	}
}

func apiListings(city string, ids ...int) []map[string]any {
	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, apiListing(id, city))
	}
	return out
}

func idRange(from, to int) []int {
	var ids []int
	for i := from; i <= to; i++ {
		ids = append(ids, i)
	}
	return ids
}

// fakeAPI serves canned pages and records every request's query.
type fakeAPI struct {
	mu          sync.Mutex
	numPages    string
	pages       map[int][]map[string]any
	status      map[int]int
	contentType map[int]string
	rawBody     map[int]string
	requests    []url.Values
	headers     []http.Header
}

func newFakeAPI(numPages int) *fakeAPI {
	return &fakeAPI{
		numPages:    strconv.Itoa(numPages),
		pages:       map[int][]map[string]any{},
		status:      map[int]int{},
		contentType: map[int]string{},
		rawBody:     map[int]string{},
	}
}

func (a *fakeAPI) handler(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()

	q := r.URL.Query()
	a.requests = append(a.requests, q)
	a.headers = append(a.headers, r.Header.Clone())

	page := 1
	if p := q.Get("Page"); p != "" {
		page, _ = strconv.Atoi(p)
	}

	ct := hrJSON
	if v, ok := a.contentType[page]; ok {
		ct = v
	}
	w.Header().Set("Content-Type", ct)

	if code, ok := a.status[page]; ok {
		w.WriteHeader(code)
	}
	if body, ok := a.rawBody[page]; ok {
		_, _ = w.Write([]byte(body))
		return
	}

	items := a.pages[page]
	if items == nil {
		items = []map[string]any{}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"SearchResult": map[string]any{
			"SearchResultCount": len(items),
			"SearchResultItems": items,
			"UserArea":          map[string]any{"NumberOfPages": a.numPages, "IsRadialSearch": false},
		},
	})
}

func (a *fakeAPI) start(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(a.handler))
	t.Cleanup(srv.Close)
	return srv
}

func (a *fakeAPI) requestedPages() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.requests))
	for _, q := range a.requests {
		out = append(out, q.Get("Page"))
	}
	return out
}

func newFetcher(srv *httptest.Server) *scraper.USAJobsFetcher {
	return scraper.NewUSAJobsFetcher(srv.URL+"/api/Search", "test-key", "tester@example.com",
		"application/hr+json", 1000, newNormalizer())
}
