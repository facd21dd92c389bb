package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/r3form/internal/core/domain"
)

// CacheStore persists timestamped JSON snapshots by key.
// Backed by SQLite; an in-memory implementation serves tests.
type CacheStore interface {
	// Get retrieves an entry. Returns domain.ErrNotFound if the key is absent.
	Get(ctx context.Context, key string) (*domain.CacheEntry, error)

	// Put stores or replaces an entry.
	Put(ctx context.Context, key string, payload []byte, storedAt time.Time) error

	// Delete removes entries. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}

// FormStateStore persists the in-progress form between runs.
type FormStateStore interface {
	// Load returns the saved form. Returns domain.ErrNotFound if none is saved
	// and a domain.ErrFormat error if the saved value cannot be decoded.
	Load(ctx context.Context) (*domain.FormState, error)

	// Save stores the form, replacing any previous value.
	Save(ctx context.Context, state domain.FormState) error

	// Delete removes the saved form. Deleting nothing is not an error.
	Delete(ctx context.Context) error
}
