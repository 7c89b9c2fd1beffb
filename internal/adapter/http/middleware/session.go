package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/iho/bizledger/internal/usecase"
)

// UserIDHeader identifies the session owner. Authentication happens upstream.
const UserIDHeader = "X-User-ID"

type contextKey string

const userIDKey contextKey = "user_id"

// SessionOpener opens (or returns) a user's ledger session.
type SessionOpener interface {
	Open(ctx context.Context, userID string) (*usecase.Session, error)
}

// SessionMiddleware opens the caller's ledger session on first use.
type SessionMiddleware struct {
	sessions SessionOpener
	logger   zerolog.Logger
}

// NewSessionMiddleware creates a new SessionMiddleware.
func NewSessionMiddleware(sessions SessionOpener, logger zerolog.Logger) *SessionMiddleware {
	return &SessionMiddleware{sessions: sessions, logger: logger}
}

// Wrap rejects requests without a user and opens the session otherwise.
func (m *SessionMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if userID == "" {
			writeJSONError(w, http.StatusUnauthorized, "missing "+UserIDHeader+" header")
			return
		}

		if _, err := m.sessions.Open(r.Context(), userID); err != nil {
			m.logger.Error().Err(err).Str("user_id", userID).Msg("failed to open ledger session")
			writeJSONError(w, http.StatusServiceUnavailable, "ledger unavailable")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

// WithUserID stores the session owner in ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the session owner, or "" outside a session.
func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
