package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/farum-checkin/internal/adapters/storage/memory"
	"github.com/PabloGalante/farum-checkin/internal/domain"
)

func TestUserStoreUpdateMerges(t *testing.T) {
	ctx := context.Background()
	s := memory.NewUserStore()

	rec, err := s.GetOrCreateUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, rec.Answers)
	assert.Empty(t, rec.LastDailyPollTime)

	ts := "2026-03-14T09:30:00Z"
	require.NoError(t, s.UpdateUser(ctx, "u1", domain.UserUpdate{
		LastDailyPollTime: &ts,
		AppendAnswers:     []domain.AnswerRecord{{ID: "a", Timestamp: ts, SurveyType: domain.SurveyDaily}},
	}))
	require.NoError(t, s.UpdateUser(ctx, "u1", domain.UserUpdate{
		AppendAnswers: []domain.AnswerRecord{{ID: "b", Timestamp: ts, SurveyType: domain.SurveyDeep}},
	}))

	rec, err = s.GetOrCreateUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, ts, rec.LastDailyPollTime, "an update without a poll time keeps the old one")
	require.Len(t, rec.Answers, 2)
	assert.Equal(t, "a", rec.Answers[0].ID)
	assert.Equal(t, "b", rec.Answers[1].ID)
}

func TestUserStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := memory.NewUserStore()
	s.Put(&domain.UserRecord{UserID: "u1", Answers: []domain.AnswerRecord{{ID: "a"}}})

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	users["u1"].Answers[0].ID = "mutated"
	users["u1"].Answers = append(users["u1"].Answers, domain.AnswerRecord{ID: "extra"})

	rec, err := s.GetOrCreateUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, rec.Answers, 1)
	assert.Equal(t, "a", rec.Answers[0].ID)
}

func TestUserStoreUpdateCreates(t *testing.T) {
	ctx := context.Background()
	s := memory.NewUserStore()

	require.NoError(t, s.UpdateUser(ctx, "fresh", domain.UserUpdate{}))

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Contains(t, users, domain.UserID("fresh"))
}
