package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/r3form/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/r3form/internal/core/domain"
	"github.com/custodia-labs/r3form/internal/core/ports/driven"
)

// dbFile is the database file name inside the data directory.
const dbFile = "r3form.db"

// Store is a SQLite-backed store that provides the cache and form state
// interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.r3form/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".r3form", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)

	// WAL lets the TUI autosave while a CLI command reads.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// CacheStore returns the cache entry store.
func (s *Store) CacheStore() driven.CacheStore {
	return &cacheStore{store: s}
}

// FormStateStore returns the saved form store.
func (s *Store) FormStateStore() driven.FormStateStore {
	return &formStateStore{store: s}
}

// migrate runs all pending migrations and records each applied version.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
			version, time.Now().UTC().UnixMilli(),
		); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Cache Store ====================

// cacheStore implements driven.CacheStore.
type cacheStore struct {
	store *Store
}

var _ driven.CacheStore = (*cacheStore)(nil)

// Get retrieves an entry by key.
func (s *cacheStore) Get(ctx context.Context, key string) (*domain.CacheEntry, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT key, payload, stored_at
		FROM cache_entries WHERE key = ?
	`, key)

	var entry domain.CacheEntry
	var storedKey, payload string
	var storedAt int64
	if err := row.Scan(&storedKey, &payload, &storedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, &domain.StorageError{Op: "get", Key: key, Err: err}
	}

	entry.Key = domain.CacheKey(storedKey)
	entry.Payload = json.RawMessage(payload)
	entry.StoredAt = time.UnixMilli(storedAt)
	return &entry, nil
}

// Put stores or replaces an entry.
func (s *cacheStore) Put(ctx context.Context, key string, payload []byte, storedAt time.Time) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, payload, stored_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			payload = excluded.payload,
			stored_at = excluded.stored_at
	`, key, string(payload), storedAt.UnixMilli())

	if err != nil {
		return &domain.StorageError{Op: "put", Key: key, Err: err}
	}
	return nil
}

// Delete removes entries in one transaction.
func (s *cacheStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.StorageError{Op: "delete", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, "DELETE FROM cache_entries WHERE key = ?", k); err != nil {
			return &domain.StorageError{Op: "delete", Key: k, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &domain.StorageError{Op: "delete", Err: err}
	}
	return nil
}

// ==================== Form State Store ====================

// formStateStore implements driven.FormStateStore.
type formStateStore struct {
	store *Store
}

var _ driven.FormStateStore = (*formStateStore)(nil)

// Load returns the saved form.
func (s *formStateStore) Load(ctx context.Context) (*domain.FormState, error) {
	row := s.store.db.QueryRowContext(ctx, "SELECT state FROM form_state WHERE id = 1")

	var raw string
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, &domain.StorageError{Op: "load", Key: domain.FormStateKey.String(), Err: err}
	}

	var state domain.FormState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, &domain.FormatError{Op: "load form state", Err: err}
	}
	return &state, nil
}

// Save stores the form, replacing any previous value.
func (s *formStateStore) Save(ctx context.Context, state domain.FormState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return &domain.StorageError{Op: "save", Key: domain.FormStateKey.String(), Err: err}
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO form_state (id, state, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			updated_at = excluded.updated_at
	`, string(data), time.Now().UTC().UnixMilli())

	if err != nil {
		return &domain.StorageError{Op: "save", Key: domain.FormStateKey.String(), Err: err}
	}
	return nil
}

// Delete removes the saved form.
func (s *formStateStore) Delete(ctx context.Context) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM form_state WHERE id = 1"); err != nil {
		return &domain.StorageError{Op: "delete", Key: domain.FormStateKey.String(), Err: err}
	}
	return nil
}
