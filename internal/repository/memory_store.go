package repository

import (
	"context"
	"sync"
	"time"

	"github.com/courtside/session-booking/internal/domain"
)

// MemoryStore implements Store with in-process maps. Transactions run one
// at a time under a mutex, which makes every interleaving trivially
// serializable; writes are staged on deep copies and applied on commit, so
// a failed closure leaves no partial state. Used by tests and as the
// fallback when no database is configured, mirroring the in-memory
// repository fallback of the payment service.
type MemoryStore struct {
	mu        sync.Mutex
	sessions  map[string]*domain.Session
	bookings  map[string]*domain.Booking
	waitlists map[string]*domain.WaitlistEntry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:  make(map[string]*domain.Session),
		bookings:  make(map[string]*domain.Booking),
		waitlists: make(map[string]*domain.WaitlistEntry),
	}
}

// WithinTx runs fn atomically against the store.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTx{
		store:     s,
		sessions:  make(map[string]*domain.Session),
		bookings:  make(map[string]*domain.Booking),
		waitlists: make(map[string]*domain.WaitlistEntry),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// GetSession reads a session outside any transaction.
func (s *MemoryStore) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.Clone(), nil
}

// GetBooking reads a booking outside any transaction.
func (s *MemoryStore) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	booking, ok := s.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	return booking.Clone(), nil
}

// CreateSession inserts a new session.
func (s *MemoryStore) CreateSession(ctx context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session.Clone()
	return nil
}

// memoryTx stages writes on copies; commit applies them to the store maps.
type memoryTx struct {
	store     *MemoryStore
	sessions  map[string]*domain.Session
	bookings  map[string]*domain.Booking
	waitlists map[string]*domain.WaitlistEntry
}

func (t *memoryTx) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	if staged, ok := t.sessions[id]; ok {
		return staged, nil
	}
	session, ok := t.store.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session.Clone(), nil
}

func (t *memoryTx) PutSession(ctx context.Context, session *domain.Session) error {
	t.sessions[session.ID] = session
	return nil
}

func (t *memoryTx) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	if staged, ok := t.bookings[id]; ok {
		return staged, nil
	}
	booking, ok := t.store.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	return booking.Clone(), nil
}

func (t *memoryTx) CreateBooking(ctx context.Context, booking *domain.Booking) error {
	t.bookings[booking.ID] = booking
	return nil
}

func (t *memoryTx) PutBooking(ctx context.Context, booking *domain.Booking) error {
	t.bookings[booking.ID] = booking
	return nil
}

// bookingView merges committed bookings with writes staged in this
// transaction; staged versions win.
func (t *memoryTx) bookingView() map[string]*domain.Booking {
	view := make(map[string]*domain.Booking, len(t.store.bookings)+len(t.bookings))
	for id, b := range t.store.bookings {
		view[id] = b
	}
	for id, b := range t.bookings {
		view[id] = b
	}
	return view
}

func (t *memoryTx) FindConfirmedBooking(ctx context.Context, sessionID, userID string) (*domain.Booking, error) {
	for _, b := range t.bookingView() {
		if b.SessionID == sessionID && b.UserID == userID && b.Status == domain.BookingStatusConfirmed {
			return b.Clone(), nil
		}
	}
	return nil, domain.ErrBookingNotFound
}

// waitlistView merges committed entries with writes staged in this
// transaction; staged versions win.
func (t *memoryTx) waitlistView() map[string]*domain.WaitlistEntry {
	view := make(map[string]*domain.WaitlistEntry, len(t.store.waitlists)+len(t.waitlists))
	for id, e := range t.store.waitlists {
		view[id] = e
	}
	for id, e := range t.waitlists {
		view[id] = e
	}
	return view
}

func (t *memoryTx) EarliestPendingWaitlist(ctx context.Context, sessionID string) (*domain.WaitlistEntry, error) {
	var earliest *domain.WaitlistEntry
	var earliestJoined time.Time
	for _, e := range t.waitlistView() {
		if e.SessionID != sessionID || e.Status != domain.WaitlistStatusPending {
			continue
		}
		if earliest == nil || e.JoinedAt.Before(earliestJoined) {
			earliest = e
			earliestJoined = e.JoinedAt
		}
	}
	if earliest == nil {
		return nil, domain.ErrNoPendingEntries
	}
	return earliest.Clone(), nil
}

func (t *memoryTx) HasPendingWaitlistEntry(ctx context.Context, sessionID, userID string) (bool, error) {
	for _, e := range t.waitlistView() {
		if e.SessionID == sessionID && e.UserID == userID && e.Status == domain.WaitlistStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (t *memoryTx) CreateWaitlistEntry(ctx context.Context, entry *domain.WaitlistEntry) error {
	t.waitlists[entry.ID] = entry
	return nil
}

func (t *memoryTx) PutWaitlistEntry(ctx context.Context, entry *domain.WaitlistEntry) error {
	t.waitlists[entry.ID] = entry
	return nil
}

func (t *memoryTx) commit() {
	for id, s := range t.sessions {
		t.store.sessions[id] = s.Clone()
	}
	for id, b := range t.bookings {
		t.store.bookings[id] = b.Clone()
	}
	for id, e := range t.waitlists {
		t.store.waitlists[id] = e.Clone()
	}
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
