package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sla-governance/internal/domain"
	"github.com/spec-kit/sla-governance/internal/governance"
)

func sampleReport() governance.Report {
	now := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	return governance.Report{
		GeneratedAt:    now,
		TotalTickets:   3,
		ComplianceRate: 66.5,
		ActiveBreaches: 1,
		Flags: []governance.Flag{{
			User:  governance.UserRef{ID: "u-1", Name: "Ann"},
			Type:  domain.TicketTypeHardware,
			Count: 4,
		}},
		PriorityCounts: map[domain.TicketPriority]int{domain.TicketPriorityHigh: 3},
	}
}

func TestReportCacheSet(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewReportCache(client, time.Minute)

	report := sampleReport()
	payload, err := json.Marshal(report)
	require.NoError(t, err)
	mock.ExpectSet(ReportKey, payload, time.Minute).SetVal("OK")

	require.NoError(t, cache.Set(context.Background(), report))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportCacheGetHit(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewReportCache(client, time.Minute)

	report := sampleReport()
	payload, err := json.Marshal(report)
	require.NoError(t, err)
	mock.ExpectGet(ReportKey).SetVal(string(payload))

	got, ok, err := cache.Get(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, got.TotalTickets)
	assert.InDelta(t, 66.5, got.ComplianceRate, 0.0001)
	require.Len(t, got.Flags, 1)
	assert.Equal(t, "u-1", got.Flags[0].User.ID)
	assert.True(t, got.GeneratedAt.Equal(report.GeneratedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportCacheGetMiss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewReportCache(client, time.Minute)
	mock.ExpectGet(ReportKey).RedisNil()

	_, ok, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReportCacheGetError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewReportCache(client, time.Minute)
	mock.ExpectGet(ReportKey).SetErr(errors.New("connection refused"))

	_, ok, err := cache.Get(context.Background())
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestReportCacheGetCorrupt(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewReportCache(client, time.Minute)
	mock.ExpectGet(ReportKey).SetVal("{not json")

	_, ok, err := cache.Get(context.Background())
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestReportCacheInvalidate(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewReportCache(client, time.Minute)
	mock.ExpectDel(ReportKey).SetVal(1)

	require.NoError(t, cache.Invalidate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
