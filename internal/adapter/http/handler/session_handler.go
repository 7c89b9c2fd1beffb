package handler

import (
	"context"
	"net/http"

	"github.com/iho/bizledger/internal/adapter/http/dto"
	"github.com/iho/bizledger/internal/usecase"
)

// SessionService defines the behavior needed by SessionHandler.
type SessionService interface {
	WriteFailures(ctx context.Context, userID string) ([]usecase.WriteFailure, error)
}

// SessionCloser tears a session down after draining its writes.
type SessionCloser interface {
	Close(ctx context.Context, userID string) error
}

// SessionHandler handles sign-out and failure reporting.
type SessionHandler struct {
	ledger   SessionService
	sessions SessionCloser
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(ledger SessionService, sessions SessionCloser) *SessionHandler {
	return &SessionHandler{ledger: ledger, sessions: sessions}
}

// Failures lists recent persistence failures of the caller's session.
func (h *SessionHandler) Failures(w http.ResponseWriter, r *http.Request) {
	failures, err := h.ledger.WriteFailures(r.Context(), userID(r))
	if err != nil {
		writeDomainError(w, "failed to list failures", err)
		return
	}
	if failures == nil {
		failures = []usecase.WriteFailure{}
	}
	writeJSON(w, http.StatusOK, dto.FailuresResponse{Failures: failures})
}

// Close drains pending writes and closes the caller's session.
func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(r.Context(), userID(r)); err != nil {
		writeDomainError(w, "failed to close session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
