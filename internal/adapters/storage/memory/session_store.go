package memory

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PabloGalante/farum-checkin/internal/domain"
)

const DefaultShards = 32

// SessionStore keeps active survey sessions in memory, split into shards
// so that users on different shards never contend for the same lock.
// All mutations of one user's session happen under its shard lock.
type SessionStore struct {
	shards      []*sessionShard
	generations atomic.Uint64
}

type sessionShard struct {
	mu       sync.Mutex
	sessions map[domain.UserID]*domain.SessionState
}

func NewSessionStore(shards int) *SessionStore {
	if shards <= 0 {
		shards = DefaultShards
	}
	s := &SessionStore{shards: make([]*sessionShard, shards)}
	for i := range s.shards {
		s.shards[i] = &sessionShard{sessions: make(map[domain.UserID]*domain.SessionState)}
	}
	return s
}

func (s *SessionStore) shard(userID domain.UserID) *sessionShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

func (s *SessionStore) Begin(userID domain.UserID, surveyType domain.SurveyType, total int, now time.Time) bool {
	sh := s.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	_, existed := sh.sessions[userID]
	sh.sessions[userID] = &domain.SessionState{
		UserID:     userID,
		SurveyType: surveyType,
		Generation: s.generations.Add(1),
		Step:       0,
		Total:      total,
		Answers:    make(map[string]int),
		StartedAt:  now,
	}
	return existed
}

func (s *SessionStore) Get(userID domain.UserID) (*domain.SessionState, bool) {
	sh := s.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	state, ok := sh.sessions[userID]
	if !ok {
		return nil, false
	}
	return state.Clone(), true
}

func (s *SessionStore) Advance(userID domain.UserID, generation uint64, expectedStep int, key string, value int) (domain.AdvanceResult, error) {
	sh := s.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	state, ok := sh.sessions[userID]
	if !ok {
		return domain.AdvanceResult{}, domain.ErrNoSession
	}
	if state.Generation != generation || state.Step != expectedStep {
		return domain.AdvanceResult{}, domain.ErrStaleStep
	}

	state.Answers[key] = value
	state.Step++

	res := domain.AdvanceResult{
		SurveyType: state.SurveyType,
		NextStep:   state.Step,
	}
	if state.Step >= state.Total {
		delete(sh.sessions, userID)
		res.Completed = true
		res.Answers = state.Answers
	}
	return res, nil
}

func (s *SessionStore) Discard(userID domain.UserID) bool {
	sh := s.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	_, ok := sh.sessions[userID]
	delete(sh.sessions, userID)
	return ok
}

// Len counts active sessions across all shards.
func (s *SessionStore) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		n += len(sh.sessions)
		sh.mu.Unlock()
	}
	return n
}
