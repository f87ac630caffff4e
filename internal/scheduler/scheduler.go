// Package scheduler wires up the cron job that periodically triggers the
// ingest-and-report run.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"jobmate/report-service/internal/events"
	"jobmate/report-service/internal/scraper"
)

// Runner executes one run.
type Runner interface {
	Run(ctx context.Context) (events.RunSummary, error)
}

// Scheduler wraps robfig/cron and manages the run loop.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	spec   string // cron spec, e.g. "@daily"
	fatal  chan error
	first  sync.WaitGroup
	log    *slog.Logger
}

// New creates a Scheduler that fires on spec.
func New(runner Runner, spec string) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithLogger(cron.DefaultLogger)),
		runner: runner,
		spec:   spec,
		fatal:  make(chan error, 1),
		log:    slog.Default().With("component", "scheduler"),
	}
}

// Start registers the job and starts the scheduler. It also runs once
// immediately. Runs never overlap: a tick that arrives while a run is in
// progress is skipped.
func (s *Scheduler) Start(ctx context.Context) error {
	job := cron.NewChain(cron.SkipIfStillRunning(cron.DefaultLogger)).
		Then(cron.FuncJob(func() { s.runOnce(ctx) }))

	if _, err := s.cron.AddJob(s.spec, job); err != nil {
		return fmt.Errorf("cron.AddJob(%q): %w", s.spec, err)
	}

	s.cron.Start()
	s.log.Info("cron started", "spec", s.spec)

	s.first.Add(1)
	go func() {
		defer s.first.Done()
		job.Run()
	}()

	return nil
}

// Stop shuts the scheduler down and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.first.Wait()
	s.log.Info("cron stopped")
}

// Fatal delivers the first run error that requires the process to exit.
func (s *Scheduler) Fatal() <-chan error {
	return s.fatal
}

func (s *Scheduler) runOnce(ctx context.Context) {
	s.log.Info("run started")

	summary, err := s.runner.Run(ctx)
	if err != nil {
		if scraper.IsFatal(err) {
			select {
			case s.fatal <- err:
			default:
			}
			return
		}
		s.log.Error("run failed", "runId", summary.RunID, "err", err)
		return
	}

	s.log.Info("run complete", "runId", summary.RunID, "inserted", summary.Inserted)
}
