package events_test

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/report-service/internal/events"
)

func TestRunSummary_JSONShape(t *testing.T) {
	s := events.RunSummary{
		RunID:        "6f1c",
		SearchParams: "Keyword: Data Engineering, Location: Chicago, Illinois",
		Fetched:      35,
		Inserted:     30,
		ReportRows:   20,
		Recipient:    "reader@example.com",
		StartedAt:    time.Date(2024, 3, 20, 8, 0, 0, 0, time.UTC),
	}
	raw, err := json.Marshal(s)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, "6f1c", m["runId"])
	assert.Equal(t, float64(30), m["inserted"])
	assert.Equal(t, float64(0), m["insertFailed"])
	assert.Equal(t, "2024-03-20T08:00:00Z", m["startedAt"])
}

func TestNopPublisher(t *testing.T) {
	var p events.Publisher = events.NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), events.RunSummary{}))
}

func TestRedisPublisher_UnreachableServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	rdb := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1, DialTimeout: 200 * time.Millisecond})
	defer rdb.Close()

	err = events.NewRedisPublisher(rdb).Publish(context.Background(), events.RunSummary{RunID: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), events.ChannelJobsReported)
}
