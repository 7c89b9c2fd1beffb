package domain

import "time"

// Entry event types published after a write reaches persistence.
const (
	EventEntryCreated = "entry.created"
	EventEntryUpdated = "entry.updated"
	EventEntryDeleted = "entry.deleted"
)

// EntryEvent notifies downstream collaborators of a persisted mutation.
type EntryEvent struct {
	Type       string             `json:"type"`
	EntryID    string             `json:"entry_id"`
	OwnerID    string             `json:"owner_id"`
	Payload    PersistencePayload `json:"payload"`
	OccurredAt time.Time          `json:"occurred_at"`
}
