package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/farum-checkin/internal/domain"
	"github.com/PabloGalante/farum-checkin/internal/observability"
)

type Store struct {
	client *firestore.Client
	now    func() time.Time
}

// NewStore creates a Firestore store.
// Uses the project passed (FARUM_GCP_PROJECT).
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) usersCol() *firestore.CollectionRef {
	return s.client.Collection("users")
}

func (s *Store) userDoc(id domain.UserID) *firestore.DocumentRef {
	return s.usersCol().Doc(string(id))
}

func (s *Store) answersCol(id domain.UserID) *firestore.CollectionRef {
	return s.userDoc(id).Collection("answers")
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type userDocData struct {
	LastPollTime string    `firestore:"last_poll_time"`
	CreatedAt    time.Time `firestore:"created_at"`
}

// userFromData builds a record from a raw user document. last_poll_time is
// read loosely: a value of the wrong type yields a malformed timestamp
// instead of a decode error, so one bad document cannot fail a listing.
func userFromData(id domain.UserID, data map[string]any) *domain.UserRecord {
	return &domain.UserRecord{
		UserID:            id,
		LastDailyPollTime: domain.PollTimeValue(data["last_poll_time"]),
		Answers:           []domain.AnswerRecord{},
	}
}

type answerDocData struct {
	Timestamp  string         `firestore:"timestamp"`
	SurveyType string         `firestore:"survey_type"`
	Fields     map[string]any `firestore:"fields"`
	AppendedAt time.Time      `firestore:"appended_at"`
}

// ─────────────────────────────────────────
// UserStore implementation
// ─────────────────────────────────────────

func (s *Store) ListUsers(ctx context.Context) (map[domain.UserID]*domain.UserRecord, error) {
	iter := s.usersCol().Documents(ctx)
	defer iter.Stop()

	out := map[domain.UserID]*domain.UserRecord{}
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListUsers: %w", err)
		}

		id := domain.UserID(snap.Ref.ID)
		rec := userFromData(id, snap.Data())
		answers, err := s.listAnswers(ctx, id)
		if err != nil {
			return nil, err
		}
		rec.Answers = answers
		out[id] = rec
	}
	return out, nil
}

func (s *Store) GetOrCreateUser(ctx context.Context, id domain.UserID) (*domain.UserRecord, error) {
	snap, err := s.userDoc(id).Get(ctx)
	if err != nil {
		if status.Code(err) != codes.NotFound {
			return nil, fmt.Errorf("firestore GetOrCreateUser: %w", err)
		}
		_, err := s.userDoc(id).Create(ctx, userDocData{CreatedAt: s.now()})
		if err != nil && status.Code(err) != codes.AlreadyExists {
			return nil, fmt.Errorf("firestore GetOrCreateUser create: %w", err)
		}
		return &domain.UserRecord{UserID: id, Answers: []domain.AnswerRecord{}}, nil
	}

	rec := userFromData(id, snap.Data())
	answers, err := s.listAnswers(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.Answers = answers
	return rec, nil
}

// UpdateUser runs as a transaction so the merge applies to the freshest copy.
func (s *Store) UpdateUser(ctx context.Context, id domain.UserID, upd domain.UserUpdate) error {
	now := s.now()

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref := s.userDoc(id)

		_, err := tx.Get(ref)
		switch {
		case status.Code(err) == codes.NotFound:
			doc := map[string]any{"created_at": now}
			if upd.LastDailyPollTime != nil {
				doc["last_poll_time"] = *upd.LastDailyPollTime
			}
			if err := tx.Create(ref, doc); err != nil {
				return err
			}
		case err != nil:
			return err
		case upd.LastDailyPollTime != nil:
			if err := tx.Set(ref, map[string]any{
				"last_poll_time": *upd.LastDailyPollTime,
			}, firestore.MergeAll); err != nil {
				return err
			}
		}

		for i, a := range upd.AppendAnswers {
			answerID := a.ID
			if answerID == "" {
				answerID = uuid.NewString()
			}
			doc := answerDocData{
				Timestamp:  a.Timestamp,
				SurveyType: string(a.SurveyType),
				Fields:     a.Fields,
				// Keeps append order stable within one update.
				AppendedAt: now.Add(time.Duration(i)),
			}
			if err := tx.Create(s.answersCol(id).Doc(answerID), doc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("firestore UpdateUser: %w", err)
	}
	return nil
}

func (s *Store) listAnswers(ctx context.Context, id domain.UserID) ([]domain.AnswerRecord, error) {
	iter := s.answersCol(id).OrderBy("appended_at", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	out := []domain.AnswerRecord{}
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore list answers: %w", err)
		}

		var doc answerDocData
		if err := snap.DataTo(&doc); err != nil {
			observability.LoggerFromContext(observability.WithUserID(ctx, string(id))).
				Warn("skipping undecodable answer",
					"answer_id", snap.Ref.ID,
					"error", err)
			continue
		}

		out = append(out, domain.AnswerRecord{
			ID:         snap.Ref.ID,
			Timestamp:  doc.Timestamp,
			SurveyType: domain.SurveyType(doc.SurveyType),
			Fields:     doc.Fields,
		})
	}
	return out, nil
}
