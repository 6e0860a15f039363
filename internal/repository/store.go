package repository

import (
	"context"

	"github.com/courtside/session-booking/internal/domain"
)

// Tx is the read/write surface available inside a transaction. Every
// mutation of a session's capacity aggregate goes through a Tx so that the
// overbooking check and the increment commit against one consistent
// snapshot.
type Tx interface {
	// GetSession reads a session within the transaction snapshot.
	GetSession(ctx context.Context, id string) (*domain.Session, error)

	// PutSession writes back a session mutated within this transaction.
	PutSession(ctx context.Context, session *domain.Session) error

	// GetBooking reads a booking within the transaction snapshot.
	GetBooking(ctx context.Context, id string) (*domain.Booking, error)

	// CreateBooking inserts a new booking.
	CreateBooking(ctx context.Context, booking *domain.Booking) error

	// FindConfirmedBooking returns the user's confirmed booking on the
	// session, or domain.ErrBookingNotFound.
	FindConfirmedBooking(ctx context.Context, sessionID, userID string) (*domain.Booking, error)

	// PutBooking writes back a booking mutated within this transaction.
	PutBooking(ctx context.Context, booking *domain.Booking) error

	// EarliestPendingWaitlist returns the pending waitlist entry with the
	// smallest JoinedAt for the session, or domain.ErrNoPendingEntries.
	EarliestPendingWaitlist(ctx context.Context, sessionID string) (*domain.WaitlistEntry, error)

	// HasPendingWaitlistEntry reports whether the user already queues on
	// the session.
	HasPendingWaitlistEntry(ctx context.Context, sessionID, userID string) (bool, error)

	// CreateWaitlistEntry inserts a new waitlist entry.
	CreateWaitlistEntry(ctx context.Context, entry *domain.WaitlistEntry) error

	// PutWaitlistEntry writes back a mutated waitlist entry.
	PutWaitlistEntry(ctx context.Context, entry *domain.WaitlistEntry) error
}

// Store provides snapshot-read + conditional-commit transactions over the
// booking aggregates. Implementations guarantee that concurrent WithinTx
// executions against the same session are serializable: either the closure's
// writes commit against an unchanged read set, or the closure is re-run
// (bounded) against a fresh snapshot.
type Store interface {
	// WithinTx runs fn inside one atomic transaction. fn may be invoked
	// more than once on write-write conflict; it must be side-effect free
	// apart from Tx writes. Returning an error rolls everything back.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// GetSession reads a session outside any transaction.
	GetSession(ctx context.Context, id string) (*domain.Session, error)

	// GetBooking reads a booking outside any transaction.
	GetBooking(ctx context.Context, id string) (*domain.Booking, error)

	// CreateSession inserts a new session.
	CreateSession(ctx context.Context, session *domain.Session) error
}
