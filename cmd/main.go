// jobmate-report-service
//
// Pulls USAJobs search results for one keyword/location, stores new
// postings in Postgres and mails the monthly Chicago report as CSV.
//
// Without SCHEDULE it runs once and exits. With SCHEDULE (a cron spec) it
// stays up, runs on every tick and serves /health.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jobmate/report-service/internal/config"
	"jobmate/report-service/internal/db"
	"jobmate/report-service/internal/events"
	"jobmate/report-service/internal/model"
	"jobmate/report-service/internal/report"
	"jobmate/report-service/internal/scheduler"
	"jobmate/report-service/internal/scraper"
	"jobmate/report-service/internal/store"
)

const version = "1.0.0"

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[report-service] Config error: %v", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	connect, err := db.Connector(cfg.Postgres)
	if err != nil {
		log.Fatalf("[report-service] PostgreSQL: %v", err)
	}
	log.Println("[report-service] Checking PostgreSQL…")
	if err := db.Ping(ctx, connect); err != nil {
		log.Fatalf("[report-service] PostgreSQL: %v", err)
	}
	log.Println("[report-service] PostgreSQL reachable ✓")

	// ── Redis (optional) ─────────────────────────────────────────────────────
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.RedisURL != "" {
		rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("[report-service] Redis: %v", err)
		}
		defer rdb.Close()
		publisher = events.NewRedisPublisher(rdb)
		log.Println("[report-service] Redis connected ✓")
	}

	worker := buildWorker(cfg, connect, publisher)

	if cfg.Schedule == "" {
		runOnce(ctx, worker)
		return
	}
	runScheduled(ctx, cfg, worker)
}

func buildWorker(cfg *config.Config, connect store.Connector, publisher events.Publisher) *scraper.Worker {
	params := model.SearchParams{
		Keyword:        cfg.Search.Keyword,
		LocationName:   cfg.Search.LocationName,
		ResultsPerPage: cfg.Search.ResultsPerPage,
	}
	normalizer := &scraper.Normalizer{
		Params:     params,
		TargetCity: cfg.Search.TargetCity,
		CreatedBy:  cfg.CreatedBy,
		Now:        time.Now,
	}
	fetcher := scraper.NewUSAJobsFetcher(
		cfg.API.QueryURL, cfg.API.Key, cfg.API.UserAgent, cfg.API.ContentType,
		cfg.API.RequestsPerSecond, normalizer,
	)
	st := store.New(connect, cfg.Postgres.Table, cfg.Postgres.View)
	mailer := report.NewMailer(cfg.Mail.Sender, &report.SMTPSender{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Sender,
		Password: cfg.Mail.Password,
	})
	return scraper.NewWorker(fetcher, st, mailer, publisher, params, cfg.OutputPath, cfg.Mail.Recipient)
}

func runOnce(ctx context.Context, worker *scraper.Worker) {
	if _, err := worker.Run(ctx); err != nil {
		if scraper.IsFatal(err) {
			log.Fatalf("[report-service] Fatal: %v", err)
		}
		log.Printf("[report-service] Run failed: %v", err)
		return
	}
	log.Println("[report-service] Exiting program.")
}

func runScheduled(ctx context.Context, cfg *config.Config, worker *scraper.Worker) {
	sched := scheduler.New(worker, cfg.Schedule)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("[report-service] Scheduler: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HealthPort),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("[report-service] v%s health on :%s", version, cfg.HealthPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[report-service] HTTP server error: %v", err)
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	var fatal error
	select {
	case <-ctx.Done():
		log.Println("[report-service] Shutting down…")
	case fatal = <-sched.Fatal():
		log.Printf("[report-service] Fatal: %v", fatal)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[report-service] Shutdown error: %v", err)
	}
	sched.Stop()
	log.Println("[report-service] Stopped.")

	if fatal != nil {
		os.Exit(1)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "report-service",
		"version": version,
	})
}
