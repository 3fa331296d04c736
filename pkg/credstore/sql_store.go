package credstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// SQLStore keeps the session keys in a single key/value table. The same
// statements run on SQLite (modernc.org/sqlite) and PostgreSQL (lib/pq).
type SQLStore struct {
	db     *sql.DB
	opts   *options
	ownsDB bool
	mu     sync.RWMutex
}

// NewSQLStore creates the table if needed and returns the store. The caller
// keeps ownership of db.
func NewSQLStore(ctx context.Context, db *sql.DB, opts ...Option) (*SQLStore, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	s := &SQLStore{db: db, opts: o}
	if err := s.migrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS session_kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to migrate session_kv: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *SQLStore) Load(ctx context.Context) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT key, value FROM session_kv WHERE key IN ($1, $2, $3)`
	rows, err := s.db.QueryContext(ctx, query,
		s.opts.key(KeyToken), s.opts.key(KeyRole), s.opts.key(KeyUser))
	if err != nil {
		return Record{}, fmt.Errorf("failed to load session: %w", err)
	}
	defer func() { _ = rows.Close() }()

	values := make(map[string]string, len(Keys))
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return Record{}, fmt.Errorf("failed to scan session row: %w", err)
		}
		values[k] = v
	}
	if err := rows.Err(); err != nil {
		return Record{}, err
	}

	token, err := s.opts.openToken(values[s.opts.key(KeyToken)])
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		Token: token,
		Role:  values[s.opts.key(KeyRole)],
	}
	if u := values[s.opts.key(KeyUser)]; u != "" {
		rec.User = json.RawMessage(u)
	}
	return rec, nil
}

// Save implements Store. All three rows are replaced in one transaction.
func (s *SQLStore) Save(ctx context.Context, rec Record) error {
	if err := rec.validate(); err != nil {
		return err
	}
	sealed, err := s.opts.sealToken(rec.Token)
	if err != nil {
		return fmt.Errorf("failed to encrypt token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin session write: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM session_kv WHERE key IN ($1, $2, $3)`,
		s.opts.key(KeyToken), s.opts.key(KeyRole), s.opts.key(KeyUser)); err != nil {
		return fmt.Errorf("failed to clear previous session: %w", err)
	}

	now := time.Now().UTC()
	insert := `INSERT INTO session_kv (key, value, updated_at) VALUES ($1, $2, $3)`
	for _, kv := range [][2]string{
		{s.opts.key(KeyToken), sealed},
		{s.opts.key(KeyRole), rec.Role},
		{s.opts.key(KeyUser), string(rec.User)},
	} {
		if _, err := tx.ExecContext(ctx, insert, kv[0], kv[1], now); err != nil {
			return fmt.Errorf("failed to write %s: %w", kv[0], err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session write: %w", err)
	}
	return nil
}

// Clear implements Store.
func (s *SQLStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM session_kv WHERE key IN ($1, $2, $3)`,
		s.opts.key(KeyToken), s.opts.key(KeyRole), s.opts.key(KeyUser))
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Close releases the database when the store opened it.
func (s *SQLStore) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}
