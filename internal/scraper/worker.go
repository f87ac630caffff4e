package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"jobmate/report-service/internal/events"
	"jobmate/report-service/internal/model"
	"jobmate/report-service/internal/report"
	"jobmate/report-service/internal/store"
)

// Fetcher returns every normalised record of one search.
type Fetcher interface {
	FetchAll(ctx context.Context) ([]model.JobRecord, error)
}

// RecordStore persists records and serves the report view.
type RecordStore interface {
	Populate(ctx context.Context, records []model.JobRecord) (store.InsertResult, error)
	ReportRows(ctx context.Context) ([]model.ReportRow, error)
}

// ReportMailer sends the CSV at csvPath to recipient.
type ReportMailer interface {
	SendReport(ctx context.Context, csvPath, recipient string) error
}

// Worker runs one full cycle: fetch all pages, insert new records, query
// the report view, write the CSV and mail it. Stages run strictly in
// sequence.
type Worker struct {
	fetcher   Fetcher
	store     RecordStore
	mailer    ReportMailer
	publisher events.Publisher

	searchParams string
	outputPath   string
	recipient    string
	now          func() time.Time
	log          *slog.Logger
}

// NewWorker constructs a Worker. A nil publisher disables run events.
func NewWorker(
	fetcher Fetcher,
	st RecordStore,
	mailer ReportMailer,
	publisher events.Publisher,
	params model.SearchParams,
	outputPath, recipient string,
) *Worker {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Worker{
		fetcher:      fetcher,
		store:        st,
		mailer:       mailer,
		publisher:    publisher,
		searchParams: params.Descriptor(),
		outputPath:   outputPath,
		recipient:    recipient,
		now:          time.Now,
		log:          slog.Default().With("component", "worker"),
	}
}

// Run executes one cycle. A returned error means the cycle stopped at the
// stage named in it; IsFatal tells whether the process must exit.
func (w *Worker) Run(ctx context.Context) (events.RunSummary, error) {
	summary := events.RunSummary{
		RunID:        uuid.NewString(),
		SearchParams: w.searchParams,
		Recipient:    w.recipient,
		StartedAt:    w.now(),
	}
	log := w.log.With("runId", summary.RunID)

	// ── Fetch ──────────────────────────────────────────────
	log.Info("preparing records from jobs API", "searchParams", w.searchParams)
	records, err := w.fetcher.FetchAll(ctx)
	if err != nil {
		return summary, fmt.Errorf("fetch: %w", err)
	}
	summary.Fetched = len(records)
	log.Info("records fetched",
		"count", len(records),
		"reportEligible", report.CountInScope(records, summary.StartedAt))

	// ── Persist ────────────────────────────────────────────
	log.Info("inserting new records")
	res, err := w.store.Populate(ctx, records)
	if err != nil {
		return summary, fmt.Errorf("persist: %w", err)
	}
	summary.Inserted = res.Added
	summary.InsertFailed = res.Failed

	// ── Report ─────────────────────────────────────────────
	log.Info("preparing the report")
	rows, err := w.store.ReportRows(ctx)
	if err != nil {
		log.Error("report query failed", "err", err)
		return summary, fmt.Errorf("report query: %w", err)
	}
	summary.ReportRows = len(rows)

	if err := report.WriteCSV(w.outputPath, rows); err != nil {
		return summary, fmt.Errorf("write csv: %w", err)
	}

	if err := w.mailer.SendReport(ctx, w.outputPath, w.recipient); err != nil {
		return summary, fmt.Errorf("send report: %w", err)
	}
	summary.FinishedAt = w.now()

	if err := w.publisher.Publish(ctx, summary); err != nil {
		log.Warn("publish run summary failed", "err", err)
	}

	log.Info("report sent",
		"fetched", summary.Fetched,
		"inserted", summary.Inserted,
		"reportRows", summary.ReportRows)
	return summary, nil
}
