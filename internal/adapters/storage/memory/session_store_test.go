package memory_test

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/farum-checkin/internal/adapters/storage/memory"
	"github.com/PabloGalante/farum-checkin/internal/domain"
)

func TestSessionLifecycle(t *testing.T) {
	s := memory.NewSessionStore(4)
	now := time.Now()

	assert.False(t, s.Begin("u1", domain.SurveyDaily, 2, now))

	state, ok := s.Get("u1")
	require.True(t, ok)
	assert.Equal(t, 0, state.Step)
	assert.Equal(t, 2, state.Total)
	gen := state.Generation

	res, err := s.Advance("u1", gen, 0, "feeling", 4)
	require.NoError(t, err)
	assert.False(t, res.Completed)
	assert.Equal(t, 1, res.NextStep)
	assert.Nil(t, res.Answers)

	res, err = s.Advance("u1", gen, 1, "anxiety", 2)
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, map[string]int{"feeling": 4, "anxiety": 2}, res.Answers)

	_, ok = s.Get("u1")
	assert.False(t, ok, "completed session is removed")
	assert.Equal(t, 0, s.Len())
}

func TestSessionBeginReplaces(t *testing.T) {
	s := memory.NewSessionStore(4)
	now := time.Now()

	s.Begin("u1", domain.SurveyDaily, 3, now)
	daily, _ := s.Get("u1")
	_, err := s.Advance("u1", daily.Generation, 0, "feeling", 4)
	require.NoError(t, err)

	assert.True(t, s.Begin("u1", domain.SurveyDeep, 5, now))

	state, ok := s.Get("u1")
	require.True(t, ok)
	assert.Equal(t, domain.SurveyDeep, state.SurveyType)
	assert.Equal(t, 0, state.Step)
	assert.Empty(t, state.Answers)
	assert.NotEqual(t, daily.Generation, state.Generation)
	assert.Equal(t, 1, s.Len())
}

func TestSessionAdvanceRejectsReplacedSession(t *testing.T) {
	s := memory.NewSessionStore(4)
	now := time.Now()

	s.Begin("u1", domain.SurveyDaily, 3, now)
	daily, _ := s.Get("u1")

	// A new survey starts between reading the snapshot and answering it.
	s.Begin("u1", domain.SurveyDeep, 5, now)

	_, err := s.Advance("u1", daily.Generation, daily.Step, "feeling", 4)
	assert.ErrorIs(t, err, domain.ErrStaleStep)

	deep, ok := s.Get("u1")
	require.True(t, ok)
	assert.Equal(t, domain.SurveyDeep, deep.SurveyType)
	assert.Equal(t, 0, deep.Step)
	assert.Empty(t, deep.Answers)
}

func TestSessionGetReturnsSnapshot(t *testing.T) {
	s := memory.NewSessionStore(1)
	s.Begin("u1", domain.SurveyDaily, 3, time.Now())

	state, _ := s.Get("u1")
	state.Answers["feeling"] = 5
	state.Step = 2

	fresh, _ := s.Get("u1")
	assert.Equal(t, 0, fresh.Step)
	assert.Empty(t, fresh.Answers)
}

func TestSessionAdvanceErrors(t *testing.T) {
	s := memory.NewSessionStore(4)

	_, err := s.Advance("nobody", 1, 0, "k", 1)
	assert.ErrorIs(t, err, domain.ErrNoSession)

	s.Begin("u1", domain.SurveyDaily, 3, time.Now())
	state, _ := s.Get("u1")
	_, err = s.Advance("u1", state.Generation, 1, "k", 1)
	assert.ErrorIs(t, err, domain.ErrStaleStep)

	assert.True(t, s.Discard("u1"))
	assert.False(t, s.Discard("u1"))
}

func TestSessionDuplicateDeliveryAdvancesOnce(t *testing.T) {
	s := memory.NewSessionStore(8)
	s.Begin("u1", domain.SurveyDaily, 3, time.Now())
	begun, _ := s.Get("u1")

	var (
		wg    sync.WaitGroup
		ok    atomic.Int32
		stale atomic.Int32
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Advance("u1", begun.Generation, 0, "feeling", 4)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, domain.ErrStaleStep):
				stale.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(49), stale.Load())

	state, _ := s.Get("u1")
	assert.Equal(t, 1, state.Step)
}

func TestSessionUsersAreIndependent(t *testing.T) {
	s := memory.NewSessionStore(4)
	const users = 100

	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(id domain.UserID) {
			defer wg.Done()
			s.Begin(id, domain.SurveyDaily, 3, time.Now())
			state, _ := s.Get(id)
			for step := 0; step < 3; step++ {
				_, err := s.Advance(id, state.Generation, step, fmt.Sprintf("q%d", step), step)
				assert.NoError(t, err)
			}
		}(domain.UserID(fmt.Sprintf("user-%d", i)))
	}
	wg.Wait()

	assert.Equal(t, 0, s.Len())
}
