package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkin-queue/internal/models"
)

type countingSource struct {
	calls  int
	report models.AnalyticsReport
}

func (s *countingSource) Report(context.Context, int) (models.AnalyticsReport, error) {
	s.calls++
	return s.report, nil
}

func sampleReport() models.AnalyticsReport {
	return models.AnalyticsReport{
		TotalCheckins: 2,
		AvgWaitTime:   75,
		DailyStats:    []models.DailyStat{{Date: "2026-03-10", Count: 2, AvgWait: 75}},
		PeakHours:     []models.PeakHour{{Hour: 9, Count: 2}},
	}
}

func TestCache_MissComputesAndStores(t *testing.T) {
	db, mock := redismock.NewClientMock()
	src := &countingSource{report: sampleReport()}
	c := NewCache(src, db, 30*time.Second)

	data, err := json.Marshal(src.report)
	require.NoError(t, err)

	mock.ExpectGet(generationKey).RedisNil()
	mock.ExpectGet("analytics:g0:days:7").RedisNil()
	mock.ExpectSet("analytics:g0:days:7", data, 30*time.Second).SetVal("OK")

	report, err := c.Report(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, src.report, report)
	assert.Equal(t, 1, src.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_HitSkipsSource(t *testing.T) {
	db, mock := redismock.NewClientMock()
	src := &countingSource{}
	c := NewCache(src, db, time.Minute)

	data, err := json.Marshal(sampleReport())
	require.NoError(t, err)

	mock.ExpectGet(generationKey).SetVal("3")
	mock.ExpectGet("analytics:g3:days:30").SetVal(string(data))

	report, err := c.Report(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, sampleReport(), report)
	assert.Equal(t, 0, src.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_RedisDownFallsBack(t *testing.T) {
	db, mock := redismock.NewClientMock()
	src := &countingSource{report: sampleReport()}
	c := NewCache(src, db, time.Minute)

	mock.ExpectGet(generationKey).SetErr(errors.New("connection refused"))

	report, err := c.Report(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, sampleReport(), report)
	assert.Equal(t, 1, src.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_InvalidateBumpsGeneration(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewCache(&countingSource{}, db, time.Minute)

	mock.ExpectIncr(generationKey).SetVal(1)

	c.Invalidate(context.Background())
	assert.NoError(t, mock.ExpectationsWereMet())
}
