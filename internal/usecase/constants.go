package usecase

import "time"

const (
	// DefaultWriteBacklog is the number of writes a session may have queued
	// before new mutations are refused.
	DefaultWriteBacklog = 1024

	// DefaultDrainTimeout bounds how long closing a session waits for its
	// queued writes.
	DefaultDrainTimeout = 30 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour
)
