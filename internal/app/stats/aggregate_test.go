package stats_test

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/PabloGalante/farum-checkin/internal/app/stats"
	"github.com/PabloGalante/farum-checkin/internal/domain"
)

var now = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func at(d time.Duration) string {
	return domain.FormatTimestamp(now.Add(-d))
}

func TestAggregateAverages(t *testing.T) {
	history := []domain.AnswerRecord{
		{Timestamp: at(time.Hour), Fields: map[string]any{"feeling": 4}},
		{Timestamp: at(2 * time.Hour), Fields: map[string]any{"feeling": 2}},
	}

	r := stats.Aggregate(history, stats.WindowStart(domain.PeriodWeek, now))

	assert.Equal(t, 2, r.RecordCount)
	assert.Equal(t, 2, r.TotalRecords)
	assert.InDelta(t, 3.0, r.Averages["feeling"], 1e-9)
}

func TestAggregateWindow(t *testing.T) {
	history := []domain.AnswerRecord{
		{Timestamp: at(2 * time.Hour), Fields: map[string]any{"feeling": 5}},
		{Timestamp: at(3 * 24 * time.Hour), Fields: map[string]any{"feeling": 1}},
		{Timestamp: at(20 * 24 * time.Hour), Fields: map[string]any{"feeling": 3}},
	}

	day := stats.Aggregate(history, stats.WindowStart(domain.PeriodDay, now))
	assert.Equal(t, 1, day.RecordCount)
	assert.InDelta(t, 5.0, day.Averages["feeling"], 1e-9)

	week := stats.Aggregate(history, stats.WindowStart(domain.PeriodWeek, now))
	assert.Equal(t, 2, week.RecordCount)
	assert.InDelta(t, 3.0, week.Averages["feeling"], 1e-9)

	month := stats.Aggregate(history, stats.WindowStart(domain.PeriodMonth, now))
	assert.Equal(t, 3, month.RecordCount)
	assert.InDelta(t, 3.0, month.Averages["feeling"], 1e-9)
}

func TestAggregateEmpty(t *testing.T) {
	r := stats.Aggregate(nil, now)
	assert.True(t, r.Empty())
	assert.Equal(t, 0, r.TotalRecords)
	assert.Empty(t, r.Averages)
}

func TestAggregateToleratesHeterogeneousRecords(t *testing.T) {
	history := []domain.AnswerRecord{
		// mixed value types
		{Timestamp: at(time.Hour), Fields: map[string]any{
			"feeling":    json.Number("4"),
			"anxiety":    "2",
			"aggression": true,
			"note":       "felt fine",
			"tags":       []any{"a"},
		}},
		// reserved keys leaked into the fields
		{Timestamp: at(time.Hour), Fields: map[string]any{
			"feeling": 2.0,
			"date":    "2026-03-14",
			"type":    "daily",
			"id":      "abc",
		}},
		// unparsable and missing timestamps are skipped
		{Timestamp: "yesterday", Fields: map[string]any{"feeling": 100}},
		{Fields: map[string]any{"feeling": 100}},
		// values that are not finite are skipped
		{Timestamp: at(time.Hour), Fields: map[string]any{"anxiety": math.NaN(), "energy": math.Inf(1)}},
	}

	r := stats.Aggregate(history, stats.WindowStart(domain.PeriodWeek, now))

	assert.Equal(t, 3, r.RecordCount)
	assert.Equal(t, 5, r.TotalRecords)
	assert.Equal(t, map[string]float64{
		"feeling":    3.0,
		"anxiety":    2.0,
		"aggression": 1.0,
	}, r.Averages)
}

func TestAggregateZonelessTimestamps(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	localNow := now.In(loc)

	history := []domain.AnswerRecord{
		{Timestamp: localNow.Add(-time.Hour).Format("2006-01-02T15:04:05.000000"), Fields: map[string]any{"feeling": 4}},
		{Timestamp: localNow.Add(-30 * time.Hour).Format("2006-01-02 15:04:05"), Fields: map[string]any{"feeling": 2}},
	}

	r := stats.Aggregate(history, stats.WindowStart(domain.PeriodDay, localNow))
	assert.Equal(t, 1, r.RecordCount)
	assert.InDelta(t, 4.0, r.Averages["feeling"], 1e-9)
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{3, 3, true},
		{int64(2), 2, true},
		{2.5, 2.5, true},
		{float32(1.5), 1.5, true},
		{" 4 ", 4, true},
		{json.Number("5"), 5, true},
		{false, 0, true},
		{"n/a", 0, false},
		{nil, 0, false},
		{map[string]any{}, 0, false},
		{math.Inf(-1), 0, false},
	}

	for _, tt := range tests {
		got, ok := stats.Coerce(tt.in)
		assert.Equal(t, tt.ok, ok, "%#v", tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, "%#v", tt.in)
	}
}

func TestParsePeriod(t *testing.T) {
	p, err := stats.ParsePeriod(" Week ")
	assert.NoError(t, err)
	assert.Equal(t, domain.PeriodWeek, p)

	_, err = stats.ParsePeriod("year")
	assert.Error(t, err)
}
