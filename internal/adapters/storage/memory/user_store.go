package memory

import (
	"context"
	"sync"

	"github.com/PabloGalante/farum-checkin/internal/domain"
)

// UserStore is a simple in-memory implementation of domain.UserStore.
// It is NOT persistent and is only suitable for development / local mode.
type UserStore struct {
	mu    sync.RWMutex
	users map[domain.UserID]*domain.UserRecord
}

func NewUserStore() *UserStore {
	return &UserStore{
		users: make(map[domain.UserID]*domain.UserRecord),
	}
}

func (s *UserStore) ListUsers(ctx context.Context) (map[domain.UserID]*domain.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[domain.UserID]*domain.UserRecord, len(s.users))
	for id, rec := range s.users {
		out[id] = copyRecord(rec)
	}
	return out, nil
}

func (s *UserStore) GetOrCreateUser(ctx context.Context, id domain.UserID) (*domain.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[id]
	if !ok {
		rec = &domain.UserRecord{UserID: id, Answers: []domain.AnswerRecord{}}
		s.users[id] = rec
	}
	return copyRecord(rec), nil
}

func (s *UserStore) UpdateUser(ctx context.Context, id domain.UserID, upd domain.UserUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[id]
	if !ok {
		rec = &domain.UserRecord{UserID: id, Answers: []domain.AnswerRecord{}}
		s.users[id] = rec
	}
	upd.Apply(rec)
	return nil
}

// Put stores rec as is, replacing any existing record. Useful for seeding.
func (s *UserStore) Put(rec *domain.UserRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[rec.UserID] = copyRecord(rec)
}

// copyRecord detaches the answer slice so callers cannot mutate stored history.
func copyRecord(rec *domain.UserRecord) *domain.UserRecord {
	out := *rec
	out.Answers = append([]domain.AnswerRecord(nil), rec.Answers...)
	return &out
}
