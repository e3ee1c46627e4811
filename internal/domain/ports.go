package domain

import (
	"context"
	"time"
)

// UserStore is the durable per-user record store.
type UserStore interface {
	// ListUsers reads every stored user record.
	ListUsers(ctx context.Context) (map[UserID]*UserRecord, error)
	// GetOrCreateUser reads one record, creating an empty one on first access.
	GetOrCreateUser(ctx context.Context, id UserID) (*UserRecord, error)
	// UpdateUser merges upd into the freshest stored copy of the record.
	UpdateUser(ctx context.Context, id UserID, upd UserUpdate) error
}

// SessionStore holds at most one active survey session per user.
type SessionStore interface {
	// Begin replaces any prior session with a fresh one at step 0.
	// It reports whether a prior session existed.
	Begin(userID UserID, surveyType SurveyType, total int, now time.Time) (replaced bool)
	// Get returns a snapshot of the active session.
	Get(userID UserID) (*SessionState, bool)
	// Advance records value under key when the session is still the one
	// started as generation and is at expectedStep. The session is removed
	// in the same operation when the last step is answered.
	Advance(userID UserID, generation uint64, expectedStep int, key string, value int) (AdvanceResult, error)
	// Discard drops the session, reporting whether one existed.
	Discard(userID UserID) bool
}

// OutboundMessage is a text sent to a user with an optional choice set.
type OutboundMessage struct {
	UserID    UserID    `json:"user_id"`
	Text      string    `json:"text"`
	Choices   []string  `json:"choices,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier is the transport boundary towards users.
type Notifier interface {
	SendPrompt(ctx context.Context, msg OutboundMessage) error
}

// SurveyContext gives the LLM minimal context about a finished survey.
type SurveyContext struct {
	UserID     UserID
	SurveyType SurveyType
	Questions  []QuestionSpec
	Answers    map[string]int
}

// LLMClient defines how the core application interacts with an LLM service.
type LLMClient interface {
	GenerateReply(ctx context.Context, sctx SurveyContext) (string, error)
}
