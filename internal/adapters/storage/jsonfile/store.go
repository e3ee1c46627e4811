// Package jsonfile stores user records in a single JSON document keyed by
// user id, the users_data.json layout written by the first version of the bot.
// Every update rewrites the whole file; fine for a few hundred users.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/PabloGalante/farum-checkin/internal/domain"
	"github.com/PabloGalante/farum-checkin/internal/observability"
)

type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// userDoc is the per-user document. Answers are flat objects:
// {"date": "...", "type": "daily", "feeling": 4, ...}. Fields are loosely
// typed so that one odd value does not make the whole file unreadable.
type userDoc struct {
	LastPollTime any   `json:"last_poll_time"`
	Answers      []any `json:"answers"`
	TestResults  []any `json:"test_results"`
}

func newUserDoc() *userDoc {
	return &userDoc{Answers: []any{}, TestResults: []any{}}
}

// fileData is the decoded file. Users whose document cannot be decoded at
// all are kept verbatim in broken and written back untouched.
type fileData struct {
	users  map[string]*userDoc
	broken map[string]json.RawMessage
}

func (s *Store) ListUsers(ctx context.Context) (map[domain.UserID]*domain.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return nil, err
	}

	for id := range data.broken {
		observability.LoggerFromContext(observability.WithUserID(ctx, id)).
			Warn("skipping undecodable user document", "path", s.path)
	}

	out := make(map[domain.UserID]*domain.UserRecord, len(data.users))
	for id, doc := range data.users {
		out[domain.UserID(id)] = toRecord(domain.UserID(id), doc)
	}
	return out, nil
}

func (s *Store) GetOrCreateUser(ctx context.Context, id domain.UserID) (*domain.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return nil, err
	}
	if _, bad := data.broken[string(id)]; bad {
		return nil, fmt.Errorf("jsonfile: user %s: %w", id, domain.ErrMalformedRecord)
	}

	doc, ok := data.users[string(id)]
	if !ok {
		doc = newUserDoc()
		data.users[string(id)] = doc
		if err := s.save(data); err != nil {
			return nil, err
		}
	}
	return toRecord(id, doc), nil
}

func (s *Store) UpdateUser(ctx context.Context, id domain.UserID, upd domain.UserUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return err
	}
	if _, bad := data.broken[string(id)]; bad {
		return fmt.Errorf("jsonfile: user %s: %w", id, domain.ErrMalformedRecord)
	}

	doc, ok := data.users[string(id)]
	if !ok {
		doc = newUserDoc()
		data.users[string(id)] = doc
	}
	if upd.LastDailyPollTime != nil {
		doc.LastPollTime = *upd.LastDailyPollTime
	}
	for _, a := range upd.AppendAnswers {
		doc.Answers = append(doc.Answers, flatten(a))
	}
	return s.save(data)
}

// ─────────────────────────────────────────
// File I/O
// ─────────────────────────────────────────

func (s *Store) load() (*fileData, error) {
	data := &fileData{
		users:  map[string]*userDoc{},
		broken: map[string]json.RawMessage{},
	}

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return data, nil
	}
	if err != nil {
		return nil, fmt.Errorf("jsonfile: read %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return data, nil
	}

	var docs map[string]json.RawMessage
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("jsonfile: decode %s: %w", s.path, err)
	}

	for id, rawDoc := range docs {
		doc, err := decodeUserDoc(rawDoc)
		if err != nil {
			data.broken[id] = rawDoc
			continue
		}
		data.users[id] = doc
	}
	return data, nil
}

func decodeUserDoc(raw json.RawMessage) (*userDoc, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return newUserDoc(), nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	doc := newUserDoc()
	if err := dec.Decode(doc); err != nil {
		return nil, err
	}
	if doc.Answers == nil {
		doc.Answers = []any{}
	}
	if doc.TestResults == nil {
		doc.TestResults = []any{}
	}
	return doc, nil
}

func (s *Store) save(data *fileData) error {
	out := make(map[string]any, len(data.users)+len(data.broken))
	for id, doc := range data.users {
		out[id] = doc
	}
	for id, raw := range data.broken {
		out[id] = raw
	}

	raw, err := json.MarshalIndent(out, "", "    ")
	if err != nil {
		return fmt.Errorf("jsonfile: encode: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".users-*.json")
	if err != nil {
		return fmt.Errorf("jsonfile: create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("jsonfile: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("jsonfile: close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("jsonfile: replace %s: %w", s.path, err)
	}
	return nil
}

// ─────────────────────────────────────────
// Record shapes
// ─────────────────────────────────────────

func toRecord(id domain.UserID, doc *userDoc) *domain.UserRecord {
	rec := &domain.UserRecord{
		UserID:            id,
		LastDailyPollTime: domain.PollTimeValue(doc.LastPollTime),
		Answers:           make([]domain.AnswerRecord, 0, len(doc.Answers)),
	}
	for _, a := range doc.Answers {
		// Entries that are not objects carry no answers.
		if flat, ok := a.(map[string]any); ok {
			rec.Answers = append(rec.Answers, unflatten(flat))
		}
	}
	return rec
}

// unflatten splits a legacy flat answer object into its reserved keys and
// its answer fields. Records without a type are daily ones.
func unflatten(flat map[string]any) domain.AnswerRecord {
	rec := domain.AnswerRecord{
		SurveyType: domain.SurveyDaily,
		Fields:     make(map[string]any, len(flat)),
	}
	for k, v := range flat {
		switch k {
		case "date", "timestamp":
			if s, ok := v.(string); ok {
				rec.Timestamp = s
			}
		case "type":
			if s, ok := v.(string); ok && s != "" {
				rec.SurveyType = domain.SurveyType(s)
			}
		case "id":
			if s, ok := v.(string); ok {
				rec.ID = s
			}
		default:
			rec.Fields[k] = v
		}
	}
	return rec
}

func flatten(rec domain.AnswerRecord) map[string]any {
	flat := make(map[string]any, len(rec.Fields)+3)
	for k, v := range rec.Fields {
		flat[k] = v
	}
	flat["date"] = rec.Timestamp
	flat["type"] = string(rec.SurveyType)
	if rec.ID != "" {
		flat["id"] = rec.ID
	}
	return flat
}
