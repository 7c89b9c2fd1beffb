package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/bizledger/internal/domain"
	"github.com/iho/bizledger/internal/infrastructure/metrics"
)

const maxRecordedFailures = 50

// WriteFailure is a persistence failure surfaced to the session owner.
type WriteFailure struct {
	EntryID  string    `json:"entry_id"`
	Op       WriteOp   `json:"op"`
	Error    string    `json:"error"`
	Reverted bool      `json:"reverted"`
	At       time.Time `json:"at"`
}

// Session is one user's open ledger.
type Session struct {
	UserID   string
	Store    *EntryStore
	Queue    *WriteQueue
	OpenedAt time.Time

	cancel context.CancelFunc

	// closing is guarded by the manager's mutex. done is closed once the
	// session has drained and left the manager.
	closing bool
	done    chan struct{}

	mu       sync.Mutex
	failures []WriteFailure
}

// Failures returns the most recent write failures, oldest first.
func (s *Session) Failures() []WriteFailure {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]WriteFailure, len(s.failures))
	copy(out, s.failures)
	return out
}

func (s *Session) recordFailure(f WriteFailure) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures = append(s.failures, f)
	if len(s.failures) > maxRecordedFailures {
		s.failures = s.failures[len(s.failures)-maxRecordedFailures:]
	}
}

// SessionManagerConfig configures a SessionManager.
type SessionManagerConfig struct {
	Repo         EntryRepository
	Publisher    EventPublisher
	Retrier      Retrier
	IDGen        IDGenerator
	Policy       ReconcilePolicy
	Backlog      int
	DrainTimeout time.Duration
	Logger       zerolog.Logger
	Metrics      *metrics.Metrics
	// OnFailure is called in addition to recording the failure on the session.
	OnFailure WriteFailureHandler
}

// SessionManager owns the lifecycle of per-user entry stores: a store is
// built when the user's session opens and torn down when it closes.
type SessionManager struct {
	cfg SessionManagerConfig

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionManager creates a SessionManager.
func NewSessionManager(cfg SessionManagerConfig) *SessionManager {
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = DefaultDrainTimeout
	}
	if cfg.Policy == "" {
		cfg.Policy = ReconcileNone
	}

	return &SessionManager{
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// Open returns the user's session, hydrating a new store from persistence if
// none is open yet. When the previous session is still draining, Open waits
// for it to finish and then hydrates a fresh one.
func (m *SessionManager) Open(ctx context.Context, userID string) (*Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id", domain.ErrMissingField)
	}

	for {
		s, closing := m.lookup(userID)
		if s != nil {
			return s, nil
		}
		if closing != nil {
			if err := waitClosed(ctx, closing); err != nil {
				return nil, err
			}
			continue
		}

		entries, err := m.cfg.Repo.ListByOwner(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to load ledger: %w", err)
		}

		m.mu.Lock()
		// Another request may have opened it while we were loading.
		if existing, ok := m.sessions[userID]; ok {
			m.mu.Unlock()
			if existing.closing {
				if err := waitClosed(ctx, existing.done); err != nil {
					return nil, err
				}
				continue
			}
			return existing, nil
		}
		s = m.startLocked(userID, entries)
		m.mu.Unlock()

		return s, nil
	}
}

// startLocked must be called with m.mu held.
func (m *SessionManager) startLocked(userID string, entries []*domain.Entry) *Session {
	s := &Session{
		UserID:   userID,
		OpenedAt: time.Now().UTC(),
		done:     make(chan struct{}),
	}

	logger := m.cfg.Logger.With().Str("user_id", userID).Logger()
	queue := NewWriteQueue(WriteQueueConfig{
		Repo:      m.cfg.Repo,
		Publisher: m.cfg.Publisher,
		Retrier:   m.cfg.Retrier,
		Policy:    m.cfg.Policy,
		Backlog:   m.cfg.Backlog,
		Logger:    logger,
		Metrics:   m.cfg.Metrics,
		OnFailure: func(w PendingWrite, err error) {
			s.recordFailure(WriteFailure{
				EntryID:  w.EntryID,
				Op:       w.Op,
				Error:    err.Error(),
				Reverted: m.cfg.Policy == ReconcileRevert,
				At:       time.Now().UTC(),
			})
			if m.cfg.OnFailure != nil {
				m.cfg.OnFailure(w, err)
			}
		},
	})

	workerCtx, cancel := context.WithCancel(context.Background())
	queue.Start(workerCtx)

	s.Queue = queue
	s.Store = NewEntryStore(userID, m.cfg.IDGen, queue, entries)
	s.cancel = cancel
	m.sessions[userID] = s

	if m.cfg.Metrics != nil {
		m.cfg.Metrics.ActiveSessions.Inc()
	}
	logger.Info().Int("entries", len(entries)).Msg("ledger session opened")

	return s
}

// lookup returns the open session, or the done channel of one still closing.
func (m *SessionManager) lookup(userID string) (*Session, <-chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	switch {
	case !ok:
		return nil, nil
	case s.closing:
		return nil, s.done
	default:
		return s, nil
	}
}

// Get returns the user's open session. A session that is draining yields
// ErrSessionClosed.
func (m *SessionManager) Get(userID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[userID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if s.closing {
		return nil, domain.ErrSessionClosed
	}
	return s, nil
}

// Close drains the user's pending writes and tears the session down. Writes
// still queued when the drain timeout expires are abandoned and reported as
// failures. The session stays registered as closing until the drain ends.
func (m *SessionManager) Close(ctx context.Context, userID string) error {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	if !ok {
		m.mu.Unlock()
		return domain.ErrSessionNotFound
	}
	if s.closing {
		m.mu.Unlock()
		return waitClosed(ctx, s.done)
	}
	s.closing = true
	m.mu.Unlock()

	err := m.shutdown(ctx, s)
	m.release(s)
	return err
}

// CloseAll closes every open session and waits for those already closing.
func (m *SessionManager) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	var owned []*Session
	var others []<-chan struct{}
	for _, s := range m.sessions {
		if s.closing {
			others = append(others, s.done)
			continue
		}
		s.closing = true
		owned = append(owned, s)
	}
	m.mu.Unlock()

	var errs []error
	for _, s := range owned {
		if err := m.shutdown(ctx, s); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", s.UserID, err))
		}
		m.release(s)
	}
	for _, done := range others {
		if err := waitClosed(ctx, done); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *SessionManager) release(s *Session) {
	m.mu.Lock()
	if m.sessions[s.UserID] == s {
		delete(m.sessions, s.UserID)
	}
	m.mu.Unlock()
	close(s.done)
}

func waitClosed(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", domain.ErrSessionClosed, ctx.Err())
	}
}

// Count returns the number of open sessions.
func (m *SessionManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *SessionManager) shutdown(ctx context.Context, s *Session) error {
	s.Queue.Close()

	drainCtx, cancel := context.WithTimeout(ctx, m.cfg.DrainTimeout)
	defer cancel()

	err := s.Queue.Drain(drainCtx)
	s.cancel()
	<-s.Queue.Stopped()

	if m.cfg.Metrics != nil {
		m.cfg.Metrics.ActiveSessions.Dec()
	}

	logger := m.cfg.Logger.With().Str("user_id", s.UserID).Logger()
	if err != nil {
		logger.Warn().Err(err).Msg("ledger session closed with writes still pending")
		return fmt.Errorf("drain pending writes: %w", err)
	}
	logger.Info().Msg("ledger session closed")
	return nil
}
