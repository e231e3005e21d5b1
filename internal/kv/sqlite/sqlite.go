package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/nulzo/prism-copy/internal/kv"
)

// DB defines the subset of sqlx used here (satisfied by *sqlx.DB and *sqlx.Tx)
type DB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type entry struct {
	Key       string    `db:"key"`
	Value     string    `db:"value"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Store implements kv.Store on a single sqlite table.
type Store struct {
	db       *sqlx.DB
	executor DB
}

func New(db *sqlx.DB) *Store {
	return &Store{
		db:       db,
		executor: db,
	}
}

func (s *Store) Get(ctx context.Context, key string, dest interface{}) error {
	var e entry
	err := s.executor.GetContext(ctx, &e, `SELECT key, value, updated_at FROM kv_entries WHERE key = ?`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return kv.ErrNotFound
		}
		return err
	}
	return json.Unmarshal([]byte(e.Value), dest)
}

func (s *Store) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO kv_entries (key, value, updated_at)
	VALUES (:key, :value, :updated_at)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	_, err = s.executor.NamedExecContext(ctx, query, entry{
		Key:       key,
		Value:     string(data),
		UpdatedAt: time.Now().UTC(),
	})
	return err
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.executor.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = ?`, key)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}
