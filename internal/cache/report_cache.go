// Package cache keeps computed governance reports in Redis so repeated dashboard reads
// do not rescan every ticket.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/sla-governance/internal/governance"
)

// ReportKey is the Redis key holding the latest governance report.
const ReportKey = "sla:governance:report"

// ReportCache stores a JSON encoded governance.Report with a TTL.
type ReportCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewReportCache builds a cache over client. A non-positive ttl stores without expiry.
func NewReportCache(client redis.Cmdable, ttl time.Duration) *ReportCache {
	if ttl < 0 {
		ttl = 0
	}
	return &ReportCache{client: client, ttl: ttl}
}

// Get returns the cached report; ok is false on a miss.
func (c *ReportCache) Get(ctx context.Context) (report governance.Report, ok bool, err error) {
	raw, err := c.client.Get(ctx, ReportKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return governance.Report{}, false, nil
	}
	if err != nil {
		return governance.Report{}, false, fmt.Errorf("read cached report: %w", err)
	}
	if err := json.Unmarshal(raw, &report); err != nil {
		return governance.Report{}, false, fmt.Errorf("decode cached report: %w", err)
	}
	return report, true, nil
}

// Set replaces the cached report.
func (c *ReportCache) Set(ctx context.Context, report governance.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := c.client.Set(ctx, ReportKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("write cached report: %w", err)
	}
	return nil
}

// Invalidate drops the cached report.
func (c *ReportCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, ReportKey).Err(); err != nil {
		return fmt.Errorf("invalidate cached report: %w", err)
	}
	return nil
}
