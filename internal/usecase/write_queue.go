package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/bizledger/internal/domain"
	"github.com/iho/bizledger/internal/infrastructure/metrics"
)

// WriteOp is the kind of persistence call a pending write makes.
type WriteOp string

const (
	WriteCreate WriteOp = "create"
	WriteUpdate WriteOp = "update"
	WriteDelete WriteOp = "delete"
)

// ReconcilePolicy decides what happens to the local state when a write is
// rejected by the persistence collaborator.
type ReconcilePolicy string

const (
	// ReconcileNone keeps the optimistic local change and only reports the
	// failure.
	ReconcileNone ReconcilePolicy = "none"
	// ReconcileRetry retries the write with backoff, then behaves like
	// ReconcileNone.
	ReconcileRetry ReconcilePolicy = "retry"
	// ReconcileRevert undoes the local change when the write fails.
	ReconcileRevert ReconcilePolicy = "revert"
)

// ParseReconcilePolicy parses a policy name. Empty means ReconcileNone.
func ParseReconcilePolicy(s string) (ReconcilePolicy, error) {
	switch p := ReconcilePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", ReconcileNone:
		return ReconcileNone, nil
	case ReconcileRetry, ReconcileRevert:
		return p, nil
	default:
		return "", fmt.Errorf("unknown reconcile policy %q", s)
	}
}

// PendingWrite is a mutation applied in memory that has not reached the
// persistence collaborator yet.
type PendingWrite struct {
	Seq        uint64
	EntryID    string
	OwnerID    string
	Op         WriteOp
	Payload    domain.PersistencePayload
	EnqueuedAt time.Time

	// undo restores the local state from before this write and returns the
	// later queued writes for the same entry it discarded.
	undo func() []PendingWrite
}

// WriteFailureHandler is told about every write that finally failed.
type WriteFailureHandler func(w PendingWrite, err error)

// WriteQueueConfig configures a WriteQueue.
type WriteQueueConfig struct {
	Repo      EntryRepository
	Publisher EventPublisher
	Retrier   Retrier
	Policy    ReconcilePolicy
	// Backlog caps the number of queued writes. Zero means DefaultWriteBacklog.
	Backlog   int
	Logger    zerolog.Logger
	Metrics   *metrics.Metrics
	OnFailure WriteFailureHandler
}

// WriteQueue mirrors store mutations to the persistence collaborator in FIFO
// order on a single worker.
type WriteQueue struct {
	repo      EntryRepository
	publisher EventPublisher
	retrier   Retrier
	policy    ReconcilePolicy
	backlog   int
	logger    zerolog.Logger
	metrics   *metrics.Metrics
	onFailure WriteFailureHandler

	mu      sync.Mutex
	queue   []PendingWrite
	current *PendingWrite
	pending map[string][]uint64
	seq     uint64
	closed  bool

	// outstanding counts writes enqueued but not yet settled. idle is closed
	// whenever it is zero.
	outstanding int
	idle        chan struct{}

	notify  chan struct{}
	stopped chan struct{}
}

// NewWriteQueue creates a WriteQueue. Call Start before enqueuing.
func NewWriteQueue(cfg WriteQueueConfig) *WriteQueue {
	if cfg.Backlog <= 0 {
		cfg.Backlog = DefaultWriteBacklog
	}
	if cfg.Policy == "" {
		cfg.Policy = ReconcileNone
	}

	idle := make(chan struct{})
	close(idle)

	return &WriteQueue{
		repo:      cfg.Repo,
		publisher: cfg.Publisher,
		retrier:   cfg.Retrier,
		policy:    cfg.Policy,
		backlog:   cfg.Backlog,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
		onFailure: cfg.OnFailure,
		pending:   make(map[string][]uint64),
		idle:      idle,
		notify:    make(chan struct{}, 1),
		stopped:   make(chan struct{}),
	}
}

// Policy returns the reconcile policy in effect.
func (q *WriteQueue) Policy() ReconcilePolicy {
	return q.policy
}

// Start runs the worker until Close is called or ctx is cancelled.
func (q *WriteQueue) Start(ctx context.Context) {
	go q.run(ctx)
}

// CanAccept reports whether n more writes fit in the backlog.
func (q *WriteQueue) CanAccept(n int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return domain.ErrSessionClosed
	}
	if len(q.queue)+n > q.backlog {
		return fmt.Errorf("%w: %d queued", domain.ErrWriteBacklog, len(q.queue))
	}
	return nil
}

// Enqueue appends a write to the queue. It never blocks.
func (q *WriteQueue) Enqueue(w PendingWrite) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return domain.ErrSessionClosed
	}

	q.seq++
	w.Seq = q.seq
	if w.EnqueuedAt.IsZero() {
		w.EnqueuedAt = time.Now().UTC()
	}
	q.queue = append(q.queue, w)
	q.pending[w.EntryID] = append(q.pending[w.EntryID], w.Seq)
	if q.outstanding == 0 {
		q.idle = make(chan struct{})
	}
	q.outstanding++
	q.mu.Unlock()

	if q.metrics != nil {
		q.metrics.PendingWrites.Inc()
	}

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Pending returns the writes for entryID that have not completed, oldest
// first.
func (q *WriteQueue) Pending(entryID string) []PendingWrite {
	q.mu.Lock()
	defer q.mu.Unlock()

	seqs := q.pending[entryID]
	if len(seqs) == 0 {
		return nil
	}

	// The write being processed has already left q.queue.
	out := make([]PendingWrite, 0, len(seqs))
	if q.current != nil && q.current.EntryID == entryID {
		out = append(out, *q.current)
	}
	for _, w := range q.queue {
		if w.EntryID == entryID {
			out = append(out, w)
		}
	}
	return out
}

// Len returns the number of writes not yet completed.
func (q *WriteQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.queue)
	if q.current != nil {
		n++
	}
	return n
}

// Drain blocks until no write is outstanding or ctx is done. It is safe to
// call while other goroutines are still enqueuing.
func (q *WriteQueue) Drain(ctx context.Context) error {
	for {
		q.mu.Lock()
		idle := q.idle
		q.mu.Unlock()

		select {
		case <-idle:
			q.mu.Lock()
			n := q.outstanding
			q.mu.Unlock()
			if n == 0 {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close refuses further writes and stops the worker once the queue is empty.
func (q *WriteQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Stopped is closed when the worker exits.
func (q *WriteQueue) Stopped() <-chan struct{} {
	return q.stopped
}

func (q *WriteQueue) run(ctx context.Context) {
	defer close(q.stopped)

	for {
		if err := ctx.Err(); err != nil {
			q.abandon(err)
			return
		}

		w, ok := q.next()
		if ok {
			q.process(ctx, w)
			q.finish(w)
			continue
		}

		q.mu.Lock()
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return
		}

		select {
		case <-q.notify:
		case <-ctx.Done():
			q.abandon(ctx.Err())
			return
		}
	}
}

func (q *WriteQueue) next() (PendingWrite, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.queue) == 0 {
		return PendingWrite{}, false
	}
	w := q.queue[0]
	q.queue[0] = PendingWrite{}
	q.queue = q.queue[1:]
	q.current = &w
	return w, true
}

func (q *WriteQueue) finish(w PendingWrite) {
	q.mu.Lock()
	q.current = nil
	q.dropPending(w)
	q.settleLocked()
	q.mu.Unlock()

	if q.metrics != nil {
		q.metrics.PendingWrites.Dec()
	}
}

// settleLocked must be called with q.mu held.
func (q *WriteQueue) settleLocked() {
	q.outstanding--
	if q.outstanding == 0 {
		close(q.idle)
	}
}

// discardQueued removes the queued writes for entryID without running them.
// The write being processed is not affected.
func (q *WriteQueue) discardQueued(entryID string) []PendingWrite {
	q.mu.Lock()
	defer q.mu.Unlock()

	var dropped []PendingWrite
	kept := q.queue[:0]
	for _, w := range q.queue {
		if w.EntryID == entryID {
			dropped = append(dropped, w)
			q.dropPending(w)
			continue
		}
		kept = append(kept, w)
	}
	for i := len(kept); i < len(q.queue); i++ {
		q.queue[i] = PendingWrite{}
	}
	q.queue = kept
	return dropped
}

// dropPending must be called with q.mu held.
func (q *WriteQueue) dropPending(w PendingWrite) {
	seqs := q.pending[w.EntryID]
	for i, s := range seqs {
		if s == w.Seq {
			seqs = append(seqs[:i], seqs[i+1:]...)
			break
		}
	}
	if len(seqs) == 0 {
		delete(q.pending, w.EntryID)
	} else {
		q.pending[w.EntryID] = seqs
	}
}

// abandon reports writes left behind by a cancelled worker as failures,
// oldest first, so a revert discards the later writes for the same entry.
func (q *WriteQueue) abandon(cause error) {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	for {
		w, ok := q.next()
		if !ok {
			return
		}
		q.fail(w, fmt.Errorf("write abandoned: %w", cause))
		q.finish(w)
	}
}

func (q *WriteQueue) process(ctx context.Context, w PendingWrite) {
	start := time.Now()

	var err error
	if q.policy == ReconcileRetry && q.retrier != nil {
		err = q.retrier.Retry(ctx, func() error { return q.apply(ctx, w) })
	} else {
		err = q.apply(ctx, w)
	}

	if q.metrics != nil {
		q.metrics.PersistenceDuration.WithLabelValues(string(w.Op)).Observe(time.Since(start).Seconds())
	}

	if err != nil {
		q.fail(w, err)
		return
	}

	if q.metrics != nil {
		q.metrics.PersistenceWrites.WithLabelValues(string(w.Op), "ok").Inc()
	}
	q.publish(ctx, w)
}

func (q *WriteQueue) apply(ctx context.Context, w PendingWrite) error {
	switch w.Op {
	case WriteCreate:
		return q.repo.Create(ctx, w.Payload)
	case WriteUpdate:
		return q.repo.Update(ctx, w.Payload)
	case WriteDelete:
		return q.repo.Delete(ctx, w.OwnerID, w.EntryID)
	default:
		return fmt.Errorf("unknown write op %q", w.Op)
	}
}

func (q *WriteQueue) fail(w PendingWrite, err error) {
	if q.metrics != nil {
		q.metrics.PersistenceWrites.WithLabelValues(string(w.Op), "error").Inc()
	}

	reverted := false
	var discarded []PendingWrite
	if q.policy == ReconcileRevert && w.undo != nil {
		discarded = w.undo()
		reverted = true
		if q.metrics != nil {
			q.metrics.WriteReverts.WithLabelValues(string(w.Op)).Inc()
		}
	}

	q.logger.Error().
		Err(err).
		Str("entry_id", w.EntryID).
		Str("owner_id", w.OwnerID).
		Str("op", string(w.Op)).
		Str("policy", string(q.policy)).
		Bool("reverted", reverted).
		Msg("persistence write failed")

	if q.onFailure != nil {
		q.onFailure(w, err)
	}

	for _, d := range discarded {
		q.discard(d, w, err)
	}
}

// discard reports and settles a queued write dropped when the failed write
// before it was reverted. Its local change went away with that revert.
func (q *WriteQueue) discard(d, failed PendingWrite, cause error) {
	if q.metrics != nil {
		q.metrics.PendingWrites.Dec()
		q.metrics.PersistenceWrites.WithLabelValues(string(d.Op), "discarded").Inc()
	}

	err := fmt.Errorf("%w: write %d failed: %w", domain.ErrWriteDiscarded, failed.Seq, cause)
	q.logger.Warn().
		Err(err).
		Str("entry_id", d.EntryID).
		Str("owner_id", d.OwnerID).
		Str("op", string(d.Op)).
		Msg("queued write discarded")

	if q.onFailure != nil {
		q.onFailure(d, err)
	}

	q.mu.Lock()
	q.settleLocked()
	q.mu.Unlock()
}

func (q *WriteQueue) publish(ctx context.Context, w PendingWrite) {
	if q.publisher == nil {
		return
	}

	event := domain.EntryEvent{
		Type:       eventType(w.Op),
		EntryID:    w.EntryID,
		OwnerID:    w.OwnerID,
		Payload:    w.Payload,
		OccurredAt: time.Now().UTC(),
	}

	outcome := "ok"
	if err := q.publisher.Publish(ctx, event); err != nil {
		outcome = "error"
		q.logger.Warn().
			Err(err).
			Str("entry_id", w.EntryID).
			Str("event_type", event.Type).
			Msg("failed to publish entry event")
	}
	if q.metrics != nil {
		q.metrics.EventsPublished.WithLabelValues(event.Type, outcome).Inc()
	}
}

func eventType(op WriteOp) string {
	switch op {
	case WriteCreate:
		return domain.EventEntryCreated
	case WriteDelete:
		return domain.EventEntryDeleted
	default:
		return domain.EventEntryUpdated
	}
}
