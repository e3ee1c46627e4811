package domain

import (
	"fmt"
	"time"
)

// AnswerRecord is one completed survey, appended to a user's history.
// Fields holds numeric answers keyed by question key; legacy records may
// carry non-numeric values, which readers must tolerate.
type AnswerRecord struct {
	ID         string         `json:"id,omitempty"`
	Timestamp  string         `json:"timestamp"`
	SurveyType SurveyType     `json:"survey_type"`
	Fields     map[string]any `json:"fields"`
}

// Time parses the record timestamp in loc.
func (r AnswerRecord) Time(loc *time.Location) (time.Time, error) {
	return ParseTimestamp(r.Timestamp, loc)
}

// UserRecord is the durable per-user document.
type UserRecord struct {
	UserID            UserID         `json:"user_id"`
	LastDailyPollTime string         `json:"last_poll_time,omitempty"`
	Answers           []AnswerRecord `json:"answers"`
}

// LastDailyPoll returns the last completed daily survey time.
// ok is false when the user never completed one.
func (u *UserRecord) LastDailyPoll(loc *time.Location) (t time.Time, ok bool, err error) {
	if u == nil || u.LastDailyPollTime == "" {
		return time.Time{}, false, nil
	}
	t, err = ParseTimestamp(u.LastDailyPollTime, loc)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

// UserUpdate is a partial update merged into a stored UserRecord.
// Answers are only ever appended.
type UserUpdate struct {
	LastDailyPollTime *string
	AppendAnswers     []AnswerRecord
}

// Apply merges the update into rec.
func (u UserUpdate) Apply(rec *UserRecord) {
	if u.LastDailyPollTime != nil {
		rec.LastDailyPollTime = *u.LastDailyPollTime
	}
	rec.Answers = append(rec.Answers, u.AppendAnswers...)
}

// PollTimeValue renders a stored last-poll value as a timestamp string.
// Values of any other type come back in a form ParseTimestamp rejects, so
// readers report the record as malformed instead of failing to decode it.
func PollTimeValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Time:
		return FormatTimestamp(x)
	default:
		return fmt.Sprintf("!%T(%v)", x, x)
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// FormatTimestamp is the canonical stored form of a timestamp.
func FormatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

// ParseTimestamp accepts RFC 3339 and zone-less ISO 8601 timestamps.
// Zone-less values are interpreted in loc (time.Local when nil).
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty timestamp", ErrMalformedRecord)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: timestamp %q", ErrMalformedRecord, s)
}
