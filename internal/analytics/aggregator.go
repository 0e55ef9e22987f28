package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"checkin-queue/internal/models"
)

const peakHourLimit = 5

// Source is the range scan the aggregator reads from.
type Source interface {
	CompletedSince(ctx context.Context, cutoff int64) ([]models.CheckInRecord, error)
}

// Aggregator builds reports over completed visits checked in within the
// window. Day and hour buckets use loc.
type Aggregator struct {
	src Source
	loc *time.Location
	now func() time.Time
}

func NewAggregator(src Source, loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.Local
	}
	return &Aggregator{src: src, loc: loc, now: time.Now}
}

type bucket struct {
	count   int
	waited  int64
	samples int64
}

func (b *bucket) add(rec models.CheckInRecord) {
	b.count++
	if rec.WaitTimeSeconds != nil {
		b.waited += *rec.WaitTimeSeconds
		b.samples++
	}
}

func (b *bucket) avg() decimal.Decimal {
	if b.samples == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(b.waited).Div(decimal.NewFromInt(b.samples))
}

func (a *Aggregator) Report(ctx context.Context, days int) (models.AnalyticsReport, error) {
	cutoff := a.now().Add(-time.Duration(days) * 24 * time.Hour).UnixMilli()

	recs, err := a.src.CompletedSince(ctx, cutoff)
	if err != nil {
		return models.AnalyticsReport{}, err
	}

	var total bucket
	daily := map[string]*bucket{}
	hourly := map[int]int{}

	for _, rec := range recs {
		total.add(rec)

		at := time.UnixMilli(rec.CheckInTime).In(a.loc)
		day := at.Format("2006-01-02")
		if daily[day] == nil {
			daily[day] = &bucket{}
		}
		daily[day].add(rec)
		hourly[at.Hour()]++
	}

	report := models.AnalyticsReport{
		TotalCheckins: total.count,
		AvgWaitTime:   total.avg().Round(0).IntPart(),
		DailyStats:    make([]models.DailyStat, 0, len(daily)),
		PeakHours:     make([]models.PeakHour, 0, peakHourLimit),
	}

	for day, b := range daily {
		report.DailyStats = append(report.DailyStats, models.DailyStat{
			Date:    day,
			Count:   b.count,
			AvgWait: b.avg().Round(2).InexactFloat64(),
		})
	}
	sort.Slice(report.DailyStats, func(i, j int) bool {
		return report.DailyStats[i].Date > report.DailyStats[j].Date
	})

	for hour, count := range hourly {
		report.PeakHours = append(report.PeakHours, models.PeakHour{Hour: hour, Count: count})
	}
	sort.Slice(report.PeakHours, func(i, j int) bool {
		if report.PeakHours[i].Count != report.PeakHours[j].Count {
			return report.PeakHours[i].Count > report.PeakHours[j].Count
		}
		return report.PeakHours[i].Hour < report.PeakHours[j].Hour
	})
	if len(report.PeakHours) > peakHourLimit {
		report.PeakHours = report.PeakHours[:peakHourLimit]
	}

	return report, nil
}

// Invalidate is a no-op; the aggregator never caches.
func (a *Aggregator) Invalidate(context.Context) {}
