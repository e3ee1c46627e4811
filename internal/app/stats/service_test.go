package stats_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/farum-checkin/internal/adapters/storage/memory"
	"github.com/PabloGalante/farum-checkin/internal/app/stats"
	"github.com/PabloGalante/farum-checkin/internal/domain"
)

func TestServiceReport(t *testing.T) {
	users := memory.NewUserStore()
	users.Put(&domain.UserRecord{
		UserID: "u1",
		Answers: []domain.AnswerRecord{
			{Timestamp: at(time.Hour), Fields: map[string]any{"feeling": 4, "anxiety": 1}},
			{Timestamp: at(40 * time.Hour), Fields: map[string]any{"feeling": 2, "anxiety": 3}},
		},
	})

	svc := stats.NewService(users, time.UTC).WithClock(func() time.Time { return now })

	r, err := svc.Report(context.Background(), "u1", domain.PeriodWeek)
	require.NoError(t, err)
	assert.Equal(t, domain.PeriodWeek, r.Period)
	assert.Equal(t, 2, r.RecordCount)
	assert.Equal(t, map[string]float64{"feeling": 3, "anxiety": 2}, r.Averages)

	r, err = svc.Report(context.Background(), "u1", domain.PeriodDay)
	require.NoError(t, err)
	assert.Equal(t, 1, r.RecordCount)
}

func TestServiceReportUnknownUser(t *testing.T) {
	svc := stats.NewService(memory.NewUserStore(), time.UTC)

	r, err := svc.Report(context.Background(), "new", domain.PeriodMonth)
	require.NoError(t, err)
	assert.True(t, r.Empty())
	assert.Equal(t, 0, r.TotalRecords)
}
