// Package events publishes run summaries for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ChannelJobsReported receives one RunSummary per completed run.
const ChannelJobsReported = "EVENT_JOBS_REPORTED"

// RunSummary describes one ingest-and-report run.
type RunSummary struct {
	RunID        string    `json:"runId"`
	SearchParams string    `json:"searchParams"`
	Fetched      int       `json:"fetched"`
	Inserted     int64     `json:"inserted"`
	InsertFailed int       `json:"insertFailed"`
	ReportRows   int       `json:"reportRows"`
	Recipient    string    `json:"recipient"`
	StartedAt    time.Time `json:"startedAt"`
	FinishedAt   time.Time `json:"finishedAt"`
}

// Publisher sends a RunSummary somewhere.
type Publisher interface {
	Publish(ctx context.Context, summary RunSummary) error
}

// RedisPublisher publishes summaries as JSON on a Redis channel.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

// NewRedisPublisher publishes on ChannelJobsReported.
func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: ChannelJobsReported}
}

func (p *RedisPublisher) Publish(ctx context.Context, summary RunSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", p.channel, err)
	}
	return nil
}

// NopPublisher drops every summary. Used when REDIS_URL is unset.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, RunSummary) error { return nil }
