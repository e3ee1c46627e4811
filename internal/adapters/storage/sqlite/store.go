// Package sqlite implements domain.UserStore on an embedded SQLite database.
// Answers live in their own table so an update appends rows instead of
// rewriting the user's whole history.
package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/PabloGalante/farum-checkin/internal/domain"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("sqlite: create data dir: %w", err)
		}
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	// One writer at a time keeps read-modify-write per user consistent.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: migration: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			user_id        TEXT PRIMARY KEY,
			last_poll_time TEXT,
			created_at     TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS answers (
			seq         INTEGER PRIMARY KEY AUTOINCREMENT,
			id          TEXT NOT NULL UNIQUE,
			user_id     TEXT NOT NULL REFERENCES users(user_id),
			recorded_at TEXT NOT NULL,
			survey_type TEXT NOT NULL,
			fields      TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_answers_user ON answers(user_id, seq);
	`)
	return err
}

// ─────────────────────────────────────────
// UserStore implementation
// ─────────────────────────────────────────

func (s *Store) ListUsers(ctx context.Context) (map[domain.UserID]*domain.UserRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id, last_poll_time FROM users`)
	if err != nil {
		return nil, fmt.Errorf("sqlite ListUsers: %w", err)
	}

	out := map[domain.UserID]*domain.UserRecord{}
	for rows.Next() {
		var (
			id       string
			lastPoll sql.NullString
		)
		if err := rows.Scan(&id, &lastPoll); err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite ListUsers scan: %w", err)
		}
		out[domain.UserID(id)] = &domain.UserRecord{
			UserID:            domain.UserID(id),
			LastDailyPollTime: lastPoll.String,
			Answers:           []domain.AnswerRecord{},
		}
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite ListUsers: %w", err)
	}

	answers, err := s.queryAnswers(ctx, `SELECT user_id, id, recorded_at, survey_type, fields FROM answers ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	for _, a := range answers {
		if rec, ok := out[a.userID]; ok {
			rec.Answers = append(rec.Answers, a.record)
		}
	}
	return out, nil
}

func (s *Store) GetOrCreateUser(ctx context.Context, id domain.UserID) (*domain.UserRecord, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO users (user_id, created_at) VALUES (?, ?)`,
		string(id), domain.FormatTimestamp(s.now()),
	); err != nil {
		return nil, fmt.Errorf("sqlite GetOrCreateUser: %w", err)
	}

	var lastPoll sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT last_poll_time FROM users WHERE user_id = ?`, string(id),
	).Scan(&lastPoll)
	if err != nil {
		return nil, fmt.Errorf("sqlite GetOrCreateUser: %w", err)
	}

	answers, err := s.queryAnswers(ctx,
		`SELECT user_id, id, recorded_at, survey_type, fields FROM answers WHERE user_id = ? ORDER BY seq`,
		string(id))
	if err != nil {
		return nil, err
	}

	rec := &domain.UserRecord{
		UserID:            id,
		LastDailyPollTime: lastPoll.String,
		Answers:           make([]domain.AnswerRecord, 0, len(answers)),
	}
	for _, a := range answers {
		rec.Answers = append(rec.Answers, a.record)
	}
	return rec, nil
}

func (s *Store) UpdateUser(ctx context.Context, id domain.UserID, upd domain.UserUpdate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite UpdateUser begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO users (user_id, created_at) VALUES (?, ?)`,
		string(id), domain.FormatTimestamp(s.now()),
	); err != nil {
		return fmt.Errorf("sqlite UpdateUser ensure user: %w", err)
	}

	if upd.LastDailyPollTime != nil {
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET last_poll_time = ? WHERE user_id = ?`,
			*upd.LastDailyPollTime, string(id),
		); err != nil {
			return fmt.Errorf("sqlite UpdateUser last poll: %w", err)
		}
	}

	for _, a := range upd.AppendAnswers {
		fields, err := json.Marshal(a.Fields)
		if err != nil {
			return fmt.Errorf("sqlite UpdateUser encode fields: %w", err)
		}
		answerID := a.ID
		if answerID == "" {
			answerID = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO answers (id, user_id, recorded_at, survey_type, fields) VALUES (?, ?, ?, ?, ?)`,
			answerID, string(id), a.Timestamp, string(a.SurveyType), string(fields),
		); err != nil {
			return fmt.Errorf("sqlite UpdateUser append answer: %w", err)
		}
	}

	return tx.Commit()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

type answerRow struct {
	userID domain.UserID
	record domain.AnswerRecord
}

func (s *Store) queryAnswers(ctx context.Context, query string, args ...any) ([]answerRow, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite query answers: %w", err)
	}
	defer rows.Close()

	var out []answerRow
	for rows.Next() {
		var (
			userID, id, recordedAt, surveyType, fields string
		)
		if err := rows.Scan(&userID, &id, &recordedAt, &surveyType, &fields); err != nil {
			return nil, fmt.Errorf("sqlite scan answer: %w", err)
		}

		decoded := map[string]any{}
		dec := json.NewDecoder(bytes.NewReader([]byte(fields)))
		dec.UseNumber()
		if err := dec.Decode(&decoded); err != nil {
			// Keep the record; the aggregator sees no fields for it.
			decoded = map[string]any{}
		}

		out = append(out, answerRow{
			userID: domain.UserID(userID),
			record: domain.AnswerRecord{
				ID:         id,
				Timestamp:  recordedAt,
				SurveyType: domain.SurveyType(surveyType),
				Fields:     decoded,
			},
		})
	}
	return out, rows.Err()
}
