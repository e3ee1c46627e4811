package stats

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/PabloGalante/farum-checkin/internal/domain"
)

// reservedKeys never count as answer fields, even when legacy records
// carry them inside the field mapping.
var reservedKeys = map[string]bool{
	"timestamp":   true,
	"surveyType":  true,
	"survey_type": true,
	"date":        true,
	"type":        true,
	"id":          true,
}

// Report is the result of aggregating a window of answer history.
type Report struct {
	Period       domain.Period      `json:"period,omitempty"`
	WindowStart  time.Time          `json:"window_start"`
	TotalRecords int                `json:"total_records"`
	RecordCount  int                `json:"record_count"`
	Averages     map[string]float64 `json:"averages"`
}

// Empty reports whether no record fell inside the window.
func (r Report) Empty() bool {
	return r.RecordCount == 0
}

// Aggregate averages every numeric field of the records with a timestamp at
// or after windowStart. Records whose timestamp is missing or unparsable are
// left out; zone-less timestamps are read in windowStart's location.
func Aggregate(history []domain.AnswerRecord, windowStart time.Time) Report {
	report := Report{
		WindowStart:  windowStart,
		TotalRecords: len(history),
		Averages:     map[string]float64{},
	}

	sums := map[string]float64{}
	counts := map[string]int{}

	for _, rec := range history {
		ts, err := rec.Time(windowStart.Location())
		if err != nil || ts.Before(windowStart) {
			continue
		}
		report.RecordCount++

		for key, raw := range rec.Fields {
			if reservedKeys[key] {
				continue
			}
			v, ok := Coerce(raw)
			if !ok {
				continue
			}
			sums[key] += v
			counts[key]++
		}
	}

	for key, n := range counts {
		report.Averages[key] = sums[key] / float64(n)
	}
	return report
}

// Coerce converts a stored field value to a float. Strings holding a number
// are accepted; anything else that is not numeric is rejected.
func Coerce(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case bool:
		if x {
			f = 1
		}
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParsePeriod accepts day, week or month.
func ParsePeriod(s string) (domain.Period, error) {
	switch p := domain.Period(strings.ToLower(strings.TrimSpace(s))); p {
	case domain.PeriodDay, domain.PeriodWeek, domain.PeriodMonth:
		return p, nil
	default:
		return "", fmt.Errorf("unknown period %q", s)
	}
}

// WindowStart returns the start of the trailing window ending at now.
func WindowStart(p domain.Period, now time.Time) time.Time {
	switch p {
	case domain.PeriodDay:
		return now.AddDate(0, 0, -1)
	case domain.PeriodWeek:
		return now.AddDate(0, 0, -7)
	default:
		return now.AddDate(0, 0, -30)
	}
}
