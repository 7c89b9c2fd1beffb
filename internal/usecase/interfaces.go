package usecase

import (
	"context"
	"time"

	"github.com/iho/bizledger/internal/domain"
)

// EntryRepository is the persistence collaborator. Every call is keyed by the
// entry id and carries the normalized payload.
type EntryRepository interface {
	Create(ctx context.Context, payload domain.PersistencePayload) error
	Update(ctx context.Context, payload domain.PersistencePayload) error
	Delete(ctx context.Context, ownerID, id string) error
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Entry, error)
}

// ClientDirectory looks up clients owned by a user.
type ClientDirectory interface {
	GetByID(ctx context.Context, ownerID, id string) (*domain.Client, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Client, error)
}

// EventPublisher publishes entry mutation events.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.EntryEvent) error
}

// Retrier retries an operation on transient failures.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}
