package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/PabloGalante/farum-checkin/internal/domain"
	"github.com/PabloGalante/farum-checkin/internal/observability"
)

const DefaultInterval = 24 * time.Hour

// Starter begins surveys. survey.Engine implements it.
type Starter interface {
	HasActiveSession(userID domain.UserID) bool
	BeginSurvey(ctx context.Context, userID domain.UserID, surveyType domain.SurveyType) (bool, error)
}

type Config struct {
	Interval    time.Duration
	RunOnStart  bool
	Concurrency int
	// Location decides calendar days; time.Local when nil.
	Location *time.Location
}

// Scheduler periodically starts the daily survey for every user who has not
// completed it today.
type Scheduler struct {
	users   domain.UserStore
	starter Starter
	cfg     Config
	now     func() time.Time
}

func New(users domain.UserStore, starter Starter, cfg Config) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Scheduler{
		users:   users,
		starter: starter,
		cfg:     cfg,
		now:     time.Now,
	}
}

// WithClock replaces the clock; meant for tests.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// SweepResult counts what one sweep did.
type SweepResult struct {
	Scanned   int
	Started   int
	NotDue    int
	Busy      int
	Malformed int
	Failed    int
}

// Start runs the loop in a goroutine. The returned stop function cancels the
// loop and waits for it to exit.
func (s *Scheduler) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		s.Run(ctx)
	}()

	return func() {
		cancel()
		<-done
	}
}

// Run sweeps on every tick until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	log := observability.LoggerFromContext(ctx).With("component", "scheduler")
	log.Info("scheduler started",
		"interval", s.cfg.Interval.String(),
		"run_on_start", s.cfg.RunOnStart)

	if s.cfg.RunOnStart {
		s.tick(ctx)
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	log := observability.LoggerFromContext(ctx).With("component", "scheduler")

	res, err := s.Sweep(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("sweep failed", "error", err)
		return
	}
	log.Info("sweep finished",
		"scanned", res.Scanned,
		"started", res.Started,
		"not_due", res.NotDue,
		"busy", res.Busy,
		"malformed", res.Malformed,
		"failed", res.Failed)
}

// Plan is the outcome of scanning users without starting anything.
type Plan struct {
	Scanned   int
	Due       []domain.UserID
	NotDue    int
	Malformed int
}

// Plan reads all users and classifies them for the current calendar day.
// Users with a malformed last poll time are counted and logged, never due.
func (s *Scheduler) Plan(ctx context.Context) (Plan, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return Plan{}, fmt.Errorf("list users: %w", err)
	}

	ids := make([]domain.UserID, 0, len(users))
	for id := range users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	now := s.now().In(s.cfg.Location)
	plan := Plan{Scanned: len(ids)}

	for _, id := range ids {
		last, ok, err := users[id].LastDailyPoll(s.cfg.Location)
		if err != nil {
			observability.LoggerFromContext(observability.WithUserID(ctx, string(id))).
				With("component", "scheduler").
				Warn("skipping user with malformed last poll time", "error", err)
			plan.Malformed++
			continue
		}
		if !IsDue(last, ok, now, s.cfg.Location) {
			plan.NotDue++
			continue
		}
		plan.Due = append(plan.Due, id)
	}
	return plan, nil
}

// Sweep scans all users once and starts the daily survey for the due ones.
// Per-user problems are counted and logged; only a failure to read the user
// list is returned.
func (s *Scheduler) Sweep(ctx context.Context) (SweepResult, error) {
	plan, err := s.Plan(ctx)
	if err != nil {
		return SweepResult{}, err
	}

	var (
		mu  sync.Mutex
		res = SweepResult{
			Scanned:   plan.Scanned,
			NotDue:    plan.NotDue,
			Malformed: plan.Malformed,
		}
	)
	count := func(field *int) {
		mu.Lock()
		*field++
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for _, id := range plan.Due {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if s.starter.HasActiveSession(id) {
				count(&res.Busy)
				return nil
			}
			uctx := observability.WithUserID(gctx, string(id))
			if _, err := s.starter.BeginSurvey(uctx, id, domain.SurveyDaily); err != nil {
				observability.LoggerFromContext(uctx).
					With("component", "scheduler").
					Error("failed to start daily survey", "error", err)
				count(&res.Failed)
				return nil
			}
			count(&res.Started)
			return nil
		})
	}

	err = g.Wait()
	return res, err
}

// IsDue reports whether a user whose last daily survey was at last (ok false
// when never) should get a new one on now's calendar day.
func IsDue(last time.Time, ok bool, now time.Time, loc *time.Location) bool {
	if !ok {
		return true
	}
	if loc == nil {
		loc = time.Local
	}
	return day(last, loc).Before(day(now, loc))
}

func day(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
