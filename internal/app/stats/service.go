package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/PabloGalante/farum-checkin/internal/domain"
	"github.com/PabloGalante/farum-checkin/internal/observability"
)

// Service builds statistics reports from stored answer history.
type Service struct {
	users domain.UserStore
	loc   *time.Location
	now   func() time.Time
}

func NewService(users domain.UserStore, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		users: users,
		loc:   loc,
		now:   time.Now,
	}
}

// WithClock replaces the clock; meant for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Report aggregates the user's history over the trailing period.
func (s *Service) Report(ctx context.Context, userID domain.UserID, period domain.Period) (Report, error) {
	ctx = observability.WithUserID(ctx, string(userID))
	log := observability.LoggerFromContext(ctx).With("period", period)

	rec, err := s.users.GetOrCreateUser(ctx, userID)
	if err != nil {
		log.Error("failed to read user for statistics", "error", err)
		return Report{}, fmt.Errorf("read user %s: %w", userID, err)
	}

	start := WindowStart(period, s.now().In(s.loc))
	report := Aggregate(rec.Answers, start)
	report.Period = period

	log.Info("statistics computed",
		"record_count", report.RecordCount,
		"total_records", report.TotalRecords)
	return report, nil
}
