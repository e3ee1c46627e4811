package stats_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/PabloGalante/farum-checkin/internal/app/stats"
	"github.com/PabloGalante/farum-checkin/internal/domain"
)

func TestRender(t *testing.T) {
	t.Run("no history", func(t *testing.T) {
		got := stats.Render(stats.Report{Period: domain.PeriodWeek}, stats.DefaultDisplayNames)
		assert.Equal(t, "You have no data for statistics yet.", got)
	})

	t.Run("nothing in window", func(t *testing.T) {
		got := stats.Render(stats.Report{Period: domain.PeriodDay, TotalRecords: 3}, stats.DefaultDisplayNames)
		assert.Equal(t, "No data for the selected period (day).", got)
	})

	t.Run("averages in display order", func(t *testing.T) {
		r := stats.Report{
			Period:       domain.PeriodWeek,
			TotalRecords: 4,
			RecordCount:  2,
			Averages: map[string]float64{
				"zeal":       2,
				"aggression": 0.5,
				"feeling":    3,
				"custom":     4.26,
			},
		}
		want := "📊 Statistics for week:\n" +
			"Records: 2\n" +
			"Mood: 3.0/5\n" +
			"Aggression: 0.5/5\n" +
			"Custom: 4.3/5\n" +
			"Zeal: 2.0/5"
		assert.Equal(t, want, stats.Render(r, stats.DefaultDisplayNames))
	})
}
