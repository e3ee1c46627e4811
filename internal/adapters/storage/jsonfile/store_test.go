package jsonfile_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/farum-checkin/internal/adapters/storage/jsonfile"
	"github.com/PabloGalante/farum-checkin/internal/app/stats"
	"github.com/PabloGalante/farum-checkin/internal/domain"
)

const legacyData = `{
    "1001": {
        "last_poll_time": "2026-03-13T21:05:11.123456",
        "answers": [
            {"date": "2026-03-13T21:05:11.123456", "feeling": 4, "anxiety": 2, "aggression": 0},
            {"date": "2026-03-12T20:00:00", "type": "deep", "energy": 3, "apathy": "2"}
        ],
        "test_results": []
    },
    "1002": {
        "last_poll_time": null,
        "answers": [],
        "test_results": []
    }
}`

func writeFile(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users_data.json")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func TestReadsLegacyLayout(t *testing.T) {
	s := jsonfile.NewStore(writeFile(t, legacyData))

	users, err := s.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)

	u := users["1001"]
	assert.Equal(t, "2026-03-13T21:05:11.123456", u.LastDailyPollTime)
	require.Len(t, u.Answers, 2)

	daily := u.Answers[0]
	assert.Equal(t, domain.SurveyDaily, daily.SurveyType, "records without a type are daily")
	assert.Equal(t, "2026-03-13T21:05:11.123456", daily.Timestamp)
	assert.Equal(t, json.Number("4"), daily.Fields["feeling"])
	assert.NotContains(t, daily.Fields, "date")

	deep := u.Answers[1]
	assert.Equal(t, domain.SurveyDeep, deep.SurveyType)
	assert.Equal(t, "2", deep.Fields["apathy"])

	assert.Empty(t, users["1002"].LastDailyPollTime)
	assert.Empty(t, users["1002"].Answers)
}

func TestUpdateAppendsAndPersists(t *testing.T) {
	ctx := context.Background()
	path := writeFile(t, legacyData)
	s := jsonfile.NewStore(path)

	ts := "2026-03-14T09:00:00Z"
	require.NoError(t, s.UpdateUser(ctx, "1001", domain.UserUpdate{
		LastDailyPollTime: &ts,
		AppendAnswers: []domain.AnswerRecord{{
			ID:         "ans-1",
			Timestamp:  ts,
			SurveyType: domain.SurveyDaily,
			Fields:     map[string]any{"feeling": 5, "anxiety": 1, "aggression": 0},
		}},
	}))

	// A second store instance reads what the first one wrote.
	rec, err := jsonfile.NewStore(path).GetOrCreateUser(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, ts, rec.LastDailyPollTime)
	require.Len(t, rec.Answers, 3)
	assert.Equal(t, "ans-1", rec.Answers[2].ID)
	assert.Equal(t, ts, rec.Answers[2].Timestamp)

	// The file keeps the flat layout.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]struct {
		Answers []map[string]any `json:"answers"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	last := doc["1001"].Answers[2]
	assert.Equal(t, ts, last["date"])
	assert.Equal(t, "daily", last["type"])
	assert.Equal(t, float64(5), last["feeling"])
}

func TestMissingFileStartsEmpty(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "users_data.json")
	s := jsonfile.NewStore(path)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	rec, err := s.GetOrCreateUser(ctx, "42")
	require.NoError(t, err)
	assert.Empty(t, rec.Answers)

	_, err = os.Stat(path)
	assert.NoError(t, err, "first access creates the file")
}

func TestCorruptFile(t *testing.T) {
	s := jsonfile.NewStore(writeFile(t, "{not json"))

	_, err := s.ListUsers(context.Background())
	assert.Error(t, err)
}

func TestLegacyHistoryAggregates(t *testing.T) {
	s := jsonfile.NewStore(writeFile(t, legacyData))

	rec, err := s.GetOrCreateUser(context.Background(), "1001")
	require.NoError(t, err)

	r := stats.Aggregate(rec.Answers, mustParse(t, "2026-03-01T00:00:00"))
	assert.Equal(t, 2, r.RecordCount)
	assert.InDelta(t, 4.0, r.Averages["feeling"], 1e-9)
	assert.InDelta(t, 2.0, r.Averages["apathy"], 1e-9)
}

func mustParse(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := domain.ParseTimestamp(s, time.UTC)
	require.NoError(t, err)
	return ts
}

const mixedData = `{
    "1": {"last_poll_time": 20260313, "answers": [], "test_results": []},
    "2": {"last_poll_time": null, "answers": [], "test_results": []},
    "3": {"last_poll_time": "2026-03-13T08:00:00", "answers": "oops", "test_results": []},
    "4": {"last_poll_time": "2026-03-12T08:00:00", "answers": [{"date": "2026-03-12T08:00:00", "feeling": 3}, 7, "x"]}
}`

func TestMixedFileStaysReadable(t *testing.T) {
	ctx := context.Background()
	s := jsonfile.NewStore(writeFile(t, mixedData))

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3, "the undecodable user is skipped, the rest are listed")

	_, ok, err := users["1"].LastDailyPoll(time.UTC)
	assert.False(t, ok)
	assert.ErrorIs(t, err, domain.ErrMalformedRecord)

	_, ok, err = users["2"].LastDailyPoll(time.UTC)
	assert.NoError(t, err)
	assert.False(t, ok)

	require.Len(t, users["4"].Answers, 1, "non-object answers are ignored")
	assert.Equal(t, json.Number("3"), users["4"].Answers[0].Fields["feeling"])

	_, err = s.GetOrCreateUser(ctx, "3")
	assert.ErrorIs(t, err, domain.ErrMalformedRecord)
}

func TestUpdateKeepsUndecodableUsers(t *testing.T) {
	ctx := context.Background()
	path := writeFile(t, mixedData)
	s := jsonfile.NewStore(path)

	ts := "2026-03-14T09:00:00Z"
	require.NoError(t, s.UpdateUser(ctx, "2", domain.UserUpdate{LastDailyPollTime: &ts}))
	assert.ErrorIs(t, s.UpdateUser(ctx, "3", domain.UserUpdate{LastDailyPollTime: &ts}), domain.ErrMalformedRecord)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))

	assert.Equal(t, ts, doc["2"]["last_poll_time"])
	assert.Equal(t, "oops", doc["3"]["answers"], "broken user is written back as it was")
	assert.Equal(t, float64(20260313), doc["1"]["last_poll_time"])
	assert.Len(t, doc["4"]["answers"], 3)
}
