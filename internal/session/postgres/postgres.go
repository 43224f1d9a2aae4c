package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"pharmapos/terminal/internal/domain"
)

const (
	partUser  = "user"
	partShift = "shift"
)

// Store keeps the terminal session as JSON documents in a small key/value
// table, one row per terminal and part.
type Store struct {
	db         *sql.DB
	terminalID string
}

func New(ctx context.Context, databaseURL string, terminalID string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(2)
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db, terminalID: terminalID}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS terminal_sessions (
			terminal_id TEXT NOT NULL,
			part        TEXT NOT NULL,
			payload     JSONB NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (terminal_id, part)
		)
	`)
	// two terminals migrating at once can race on the pg_type row
	if isUniqueViolation(err) {
		return nil
	}
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) User(ctx context.Context) (domain.SessionUser, bool, error) {
	var user domain.SessionUser
	ok, err := s.get(ctx, partUser, &user)
	return user, ok, err
}

func (s *Store) SaveUser(ctx context.Context, user domain.SessionUser) error {
	return s.put(ctx, partUser, user)
}

func (s *Store) Shift(ctx context.Context) (domain.ShiftSnapshot, bool, error) {
	var snap domain.ShiftSnapshot
	ok, err := s.get(ctx, partShift, &snap)
	return snap, ok, err
}

func (s *Store) SaveShift(ctx context.Context, snap domain.ShiftSnapshot) error {
	return s.put(ctx, partShift, snap)
}

func (s *Store) ClearShift(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM terminal_sessions WHERE terminal_id = $1 AND part = $2`, s.terminalID, partShift)
	return err
}

func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM terminal_sessions WHERE terminal_id = $1`, s.terminalID)
	return err
}

func (s *Store) get(ctx context.Context, part string, out any) (bool, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT payload
		FROM terminal_sessions
		WHERE terminal_id = $1 AND part = $2
	`, s.terminalID, part).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) put(ctx context.Context, part string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO terminal_sessions (terminal_id, part, payload, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (terminal_id, part)
		DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()
	`, s.terminalID, part, string(payload))
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
