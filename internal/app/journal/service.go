package journal

import (
	"context"
	"fmt"

	"github.com/PabloGalante/farum-checkin/internal/domain"
	"github.com/PabloGalante/farum-checkin/internal/observability"
)

const defaultLimit = 20

// Service holds the logic of reading a user's answer history.
type Service struct {
	store domain.UserStore
}

// NewService creates a journal service from a UserStore.
func NewService(store domain.UserStore) *Service {
	return &Service{
		store: store,
	}
}

// GetUserHistory returns the last `limit` answer records for a user, oldest first.
// If limit <= 0, a reasonable default value is used.
func (s *Service) GetUserHistory(
	ctx context.Context,
	userID domain.UserID,
	limit int,
) ([]domain.AnswerRecord, error) {

	if limit <= 0 {
		limit = defaultLimit
	}

	rec, err := s.store.GetOrCreateUser(ctx, userID)
	if err != nil {
		observability.LoggerFromContext(observability.WithUserID(ctx, string(userID))).
			Error("failed to read answer history", "error", err)
		return nil, fmt.Errorf("read history for %s: %w", userID, err)
	}

	answers := rec.Answers
	if len(answers) > limit {
		answers = answers[len(answers)-limit:]
	}
	return answers, nil
}
