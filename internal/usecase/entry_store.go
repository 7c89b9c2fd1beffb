package usecase

import (
	"sort"
	"sync"
	"time"

	"github.com/iho/bizledger/internal/domain"
)

// EntryStore holds one user's ledger in memory. Every mutation is applied
// locally first and then queued for the persistence collaborator; the caller
// never waits for the remote write.
type EntryStore struct {
	ownerID string
	idGen   IDGenerator
	queue   *WriteQueue
	now     func() time.Time

	mu      sync.RWMutex
	entries map[string]*domain.Entry
	order   []string
}

// NewEntryStore creates a store for ownerID seeded with entries already
// persisted. Seeding does not queue any writes.
func NewEntryStore(ownerID string, idGen IDGenerator, queue *WriteQueue, initial []*domain.Entry) *EntryStore {
	s := &EntryStore{
		ownerID: ownerID,
		idGen:   idGen,
		queue:   queue,
		now:     func() time.Time { return time.Now().UTC() },
		entries: make(map[string]*domain.Entry, len(initial)),
		order:   make([]string, 0, len(initial)),
	}
	for _, e := range initial {
		if _, dup := s.entries[e.ID]; dup {
			continue
		}
		s.entries[e.ID] = e.Clone()
		s.order = append(s.order, e.ID)
	}
	return s
}

// OwnerID returns the user the store belongs to.
func (s *EntryStore) OwnerID() string {
	return s.ownerID
}

// Add inserts e and returns its id. An id is generated when e has none.
func (s *EntryStore) Add(e *domain.Entry) (string, error) {
	ids, err := s.AddAll([]*domain.Entry{e})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// AddAll inserts entries one by one, each with its own persistence write.
// There is no atomicity across them.
func (s *EntryStore) AddAll(entries []*domain.Entry) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.queue.CanAccept(len(entries)); err != nil {
		return nil, err
	}

	now := s.now()
	ids := make([]string, 0, len(entries))
	for _, in := range entries {
		e := in.Clone()
		if e.ID == "" {
			e.ID = s.idGen.Generate()
		}
		e.OwnerID = s.ownerID
		e.Date = domain.DateOf(e.Date)
		e.CreatedAt = now
		e.UpdatedAt = now

		s.entries[e.ID] = e
		s.order = append(s.order, e.ID)

		id := e.ID
		if err := s.queue.Enqueue(PendingWrite{
			EntryID: id,
			OwnerID: s.ownerID,
			Op:      WriteCreate,
			Payload: domain.PayloadFromEntry(e),
			undo:    func() []PendingWrite { return s.forget(id) },
		}); err != nil {
			s.dropLocked(id)
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Update merges patch into the entry with the given id and returns the result.
func (s *EntryStore) Update(id string, patch domain.EntryPatch) (*domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.entries[id]
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	if err := s.queue.CanAccept(1); err != nil {
		return nil, err
	}

	prev := cur.Clone()
	patch.Apply(cur)
	cur.UpdatedAt = s.now()

	if err := s.queue.Enqueue(PendingWrite{
		EntryID: id,
		OwnerID: s.ownerID,
		Op:      WriteUpdate,
		Payload: domain.PayloadFromEntry(cur),
		undo:    func() []PendingWrite { return s.restore(prev) },
	}); err != nil {
		s.entries[id] = prev
		return nil, err
	}
	return cur.Clone(), nil
}

// Remove deletes exactly one entry. Siblings in the same plan are untouched.
func (s *EntryStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.entries[id]
	if !ok {
		return domain.ErrEntryNotFound
	}
	if err := s.queue.CanAccept(1); err != nil {
		return err
	}

	prev := cur.Clone()
	s.dropLocked(id)

	if err := s.queue.Enqueue(PendingWrite{
		EntryID: id,
		OwnerID: s.ownerID,
		Op:      WriteDelete,
		Payload: domain.PayloadFromEntry(prev),
		undo:    func() []PendingWrite { return s.restore(prev) },
	}); err != nil {
		s.entries[id] = prev
		s.order = append(s.order, id)
		return err
	}
	return nil
}

// Get returns a copy of the entry with the given id.
func (s *EntryStore) Get(id string) (*domain.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	return e.Clone(), nil
}

// All returns copies of every entry. The order carries no meaning.
func (s *EntryStore) All() []*domain.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Entry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.entries[id].Clone())
	}
	return out
}

// Plan returns the down payment followed by the installments of planID in
// installment order.
func (s *EntryStore) Plan(planID string) []*domain.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Entry
	for _, id := range s.order {
		e := s.entries[id]
		if e.PlanID == planID || (e.Installment != nil && e.Installment.PlanID == planID) {
			out = append(out, e.Clone())
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Installment, out[j].Installment
		switch {
		case a == nil:
			return b != nil
		case b == nil:
			return false
		default:
			return a.InstallmentNumber < b.InstallmentNumber
		}
	})
	return out
}

// Len returns the number of entries.
func (s *EntryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Reserve checks that n writes fit in the write backlog.
func (s *EntryStore) Reserve(n int) error {
	return s.queue.CanAccept(n)
}

// The undo helpers run on the write worker. Each one discards the later
// queued writes for the entry while holding s.mu.

func (s *EntryStore) forget(id string) []PendingWrite {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := s.queue.discardQueued(id)
	s.dropLocked(id)
	return dropped
}

// restore puts prev back whether or not the entry is still present. A
// removal queued after the failed write is discarded with the rest.
func (s *EntryStore) restore(prev *domain.Entry) []PendingWrite {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := s.queue.discardQueued(prev.ID)
	if _, ok := s.entries[prev.ID]; !ok {
		s.order = append(s.order, prev.ID)
	}
	s.entries[prev.ID] = prev.Clone()
	return dropped
}

func (s *EntryStore) dropLocked(id string) {
	delete(s.entries, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}
