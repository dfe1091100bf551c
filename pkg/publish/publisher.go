// Package publish pushes finished table snapshots to downstream
// consumers. Decision engines read the TTL'd latest-state key; the
// per-run stream keeps a bounded replay of the session.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/feltvision/tablesight/internal/log"
	"github.com/feltvision/tablesight/pkg/table"
)

// Publisher delivers one snapshot. Implementations must tolerate being
// called every tick.
type Publisher interface {
	Publish(ctx context.Context, st table.State) error
}

// Nop is the publisher used when no backend is configured.
type Nop struct{}

func (Nop) Publish(context.Context, table.State) error { return nil }

const (
	defaultNamespace = "tablesight"
	defaultTTL       = 10 * time.Second
	defaultMaxLen    = 1000
)

// Redis keeps the newest snapshot under a TTL'd key and appends every
// snapshot to a per-run stream. A nil client turns all calls into
// no-ops, so an unconfigured publisher never fails the loop.
type Redis struct {
	rdb       *redis.Client
	namespace string
	runID     string
	ttl       time.Duration
	maxLen    int64
}

// NewRedis creates a redis publisher. The caller owns the client.
// Empty namespace, runID and ttl fall back to "tablesight", a fresh
// UUID and 10 seconds.
func NewRedis(rdb *redis.Client, namespace, runID string, ttl time.Duration) *Redis {
	if namespace == "" {
		namespace = defaultNamespace
	}
	if runID == "" {
		runID = uuid.NewString()
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Redis{
		rdb:       rdb,
		namespace: namespace,
		runID:     runID,
		ttl:       ttl,
		maxLen:    defaultMaxLen,
	}
}

// RunID returns the stream identifier for this session.
func (p *Redis) RunID() string {
	if p == nil {
		return ""
	}
	return p.runID
}

func (p *Redis) latestKey() string { return p.namespace + ":state:latest" }
func (p *Redis) streamKey() string { return p.namespace + ":run:" + p.runID }

// Publish stores the snapshot under the latest key and appends it to
// the run stream. The stream is trimmed approximately to the newest
// thousand entries.
func (p *Redis) Publish(ctx context.Context, st table.State) error {
	if p == nil || p.rdb == nil {
		return nil
	}

	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	if err := p.rdb.Set(ctx, p.latestKey(), data, p.ttl).Err(); err != nil {
		return fmt.Errorf("set latest: %w", err)
	}

	err = p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.streamKey(),
		MaxLen: p.maxLen,
		Approx: true,
		Values: []interface{}{"state", data, "tick", st.Tick},
	}).Err()
	if err != nil {
		return fmt.Errorf("append stream: %w", err)
	}
	return nil
}

// Ensure both backends implement Publisher.
var (
	_ Publisher = Nop{}
	_ Publisher = (*Redis)(nil)
)

// Loop drains snapshots from ch and publishes each until ctx ends or
// ch closes. Backend errors are throttled in the log and never stop
// the loop.
func Loop(ctx context.Context, ch <-chan table.State, p Publisher) {
	logger := log.Component("publish")
	var errCount uint64
	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-ch:
			if !ok {
				return
			}
			if err := p.Publish(ctx, st); err != nil {
				errCount++
				if errCount == 1 || errCount%50 == 0 {
					logger.Warn("publish failed", "error", err, "failures", errCount)
				}
			}
		}
	}
}
