package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/courtside/session-booking/internal/domain"
	"github.com/courtside/session-booking/pkg/retry"
	"github.com/courtside/session-booking/pkg/telemetry"
)

// PostgresStore implements Store using PostgreSQL with pgxpool. Transactions
// run at SERIALIZABLE isolation; on a serialization failure the closure is
// re-run against a fresh snapshot, bounded by the retry config.
type PostgresStore struct {
	pool    *pgxpool.Pool
	txRetry *retry.Config
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		pool: pool,
		// Conflict retries are immediate-ish: the competing transaction has
		// already committed by the time we see 40001.
		txRetry: &retry.Config{
			MaxRetries:      4,
			InitialInterval: 5 * time.Millisecond,
			MaxInterval:     80 * time.Millisecond,
			Multiplier:      2.0,
			JitterFactor:    0.2,
		},
	}
}

// WithinTx runs fn inside one serializable transaction with bounded retry
// on write-write conflict.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.within_tx")
	defer span.End()

	attempts := 0
	result := retry.Do(ctx, s.txRetry, func(ctx context.Context) error {
		attempts++
		err := s.runTx(ctx, fn)
		if err == nil {
			return nil
		}
		if isSerializationFailure(err) {
			return retry.Retryable(err)
		}
		return retry.Permanent(err)
	})

	span.SetAttributes(attribute.Int("attempts", attempts))
	if result.Err != nil {
		if errors.Is(result.Err, retry.ErrMaxRetriesExceeded) {
			span.SetStatus(codes.Error, "tx conflict retries exhausted")
			return fmt.Errorf("%w: %v", domain.ErrTxConflict, result.LastError)
		}
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, result.Err.Error())
		return result.Err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (s *PostgresStore) runTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	pgtx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer pgtx.Rollback(ctx)

	if err := fn(ctx, &postgresTx{tx: pgtx}); err != nil {
		return err
	}
	if err := pgtx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// isSerializationFailure reports whether err is a retryable concurrency
// conflict: serialization_failure (40001) or deadlock_detected (40P01).
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

// GetSession reads a session outside any transaction.
func (s *PostgresStore) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.session.get_by_id")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", id))

	session, err := scanSession(s.pool.QueryRow(ctx, sessionSelect+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrSessionNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	span.SetStatus(codes.Ok, "")
	return session, nil
}

// GetBooking reads a booking outside any transaction.
func (s *PostgresStore) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.booking.get_by_id")
	defer span.End()
	span.SetAttributes(attribute.String("booking_id", id))

	booking, err := scanBooking(s.pool.QueryRow(ctx, bookingSelect+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrBookingNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	span.SetStatus(codes.Ok, "")
	return booking, nil
}

// CreateSession inserts a new session.
func (s *PostgresStore) CreateSession(ctx context.Context, session *domain.Session) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.session.create")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", session.ID))

	query := `
		INSERT INTO sessions (
			id, name, start_time,
			max_attendees, current_attendees, waitlist_enabled, waitlist_count,
			cancellation_deadline_hours, refund_percentage, auto_promote_waitlist,
			price_cents, payment_status, attendees, created_at, updated_at
		) VALUES (
			$1, $2, $3,
			$4, $5, $6, $7,
			$8, $9, $10,
			$11, $12, $13, $14, $15
		)
	`
	_, err := s.pool.Exec(ctx, query,
		session.ID,
		session.Name,
		session.StartTime,
		session.Capacity.MaxAttendees,
		session.Capacity.CurrentAttendees,
		session.Capacity.WaitlistEnabled,
		session.Capacity.WaitlistCount,
		session.Policy.CancellationDeadlineHours,
		session.Policy.RefundPercentage,
		session.Policy.AutoPromoteWaitlist,
		session.Financial.PriceCents,
		string(session.Financial.PaymentStatus),
		session.Attendees,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to create session: %w", err)
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// postgresTx implements Tx over a pgx transaction.
type postgresTx struct {
	tx pgx.Tx
}

const sessionSelect = `
	SELECT
		id, name, start_time,
		max_attendees, current_attendees, waitlist_enabled, waitlist_count,
		cancellation_deadline_hours, refund_percentage, auto_promote_waitlist,
		price_cents, payment_status, attendees, created_at, updated_at
	FROM sessions`

const bookingSelect = `
	SELECT
		id, session_id, user_id, status, payment_status, payment_intent_id,
		created_at, updated_at, confirmed_at, cancelled_at
	FROM bookings`

func (t *postgresTx) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	session, err := scanSession(t.tx.QueryRow(ctx, sessionSelect+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

func (t *postgresTx) PutSession(ctx context.Context, session *domain.Session) error {
	query := `
		UPDATE sessions SET
			current_attendees = $2,
			waitlist_count = $3,
			attendees = $4,
			payment_status = $5,
			updated_at = $6
		WHERE id = $1
	`
	result, err := t.tx.Exec(ctx, query,
		session.ID,
		session.Capacity.CurrentAttendees,
		session.Capacity.WaitlistCount,
		session.Attendees,
		string(session.Financial.PaymentStatus),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (t *postgresTx) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	booking, err := scanBooking(t.tx.QueryRow(ctx, bookingSelect+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

func (t *postgresTx) CreateBooking(ctx context.Context, booking *domain.Booking) error {
	query := `
		INSERT INTO bookings (
			id, session_id, user_id, status, payment_status, payment_intent_id,
			created_at, updated_at, confirmed_at, cancelled_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := t.tx.Exec(ctx, query,
		booking.ID,
		booking.SessionID,
		booking.UserID,
		booking.Status.String(),
		string(booking.PaymentStatus),
		nullString(booking.PaymentIntentID),
		booking.CreatedAt,
		booking.UpdatedAt,
		booking.ConfirmedAt,
		booking.CancelledAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (t *postgresTx) PutBooking(ctx context.Context, booking *domain.Booking) error {
	query := `
		UPDATE bookings SET
			status = $2,
			payment_status = $3,
			payment_intent_id = $4,
			updated_at = $5,
			confirmed_at = $6,
			cancelled_at = $7
		WHERE id = $1
	`
	result, err := t.tx.Exec(ctx, query,
		booking.ID,
		booking.Status.String(),
		string(booking.PaymentStatus),
		nullString(booking.PaymentIntentID),
		time.Now().UTC(),
		booking.ConfirmedAt,
		booking.CancelledAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrBookingNotFound
	}
	return nil
}

func (t *postgresTx) FindConfirmedBooking(ctx context.Context, sessionID, userID string) (*domain.Booking, error) {
	query := bookingSelect + `
		WHERE session_id = $1 AND user_id = $2 AND status = 'confirmed'
		ORDER BY created_at DESC
		LIMIT 1
	`
	booking, err := scanBooking(t.tx.QueryRow(ctx, query, sessionID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to find confirmed booking: %w", err)
	}
	return booking, nil
}

func (t *postgresTx) EarliestPendingWaitlist(ctx context.Context, sessionID string) (*domain.WaitlistEntry, error) {
	query := `
		SELECT id, session_id, user_id, status, joined_at, notification_sent_at
		FROM waitlist_entries
		WHERE session_id = $1 AND status = 'pending'
		ORDER BY joined_at ASC
		LIMIT 1
	`
	entry, err := scanWaitlistEntry(t.tx.QueryRow(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoPendingEntries
		}
		return nil, fmt.Errorf("failed to get earliest waitlist entry: %w", err)
	}
	return entry, nil
}

func (t *postgresTx) HasPendingWaitlistEntry(ctx context.Context, sessionID, userID string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM waitlist_entries
			WHERE session_id = $1 AND user_id = $2 AND status = 'pending'
		)`, sessionID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check waitlist entry: %w", err)
	}
	return exists, nil
}

func (t *postgresTx) CreateWaitlistEntry(ctx context.Context, entry *domain.WaitlistEntry) error {
	query := `
		INSERT INTO waitlist_entries (
			id, session_id, user_id, status, joined_at, notification_sent_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := t.tx.Exec(ctx, query,
		entry.ID,
		entry.SessionID,
		entry.UserID,
		string(entry.Status),
		entry.JoinedAt,
		entry.NotificationSentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create waitlist entry: %w", err)
	}
	return nil
}

func (t *postgresTx) PutWaitlistEntry(ctx context.Context, entry *domain.WaitlistEntry) error {
	query := `
		UPDATE waitlist_entries SET
			status = $2,
			notification_sent_at = $3
		WHERE id = $1
	`
	result, err := t.tx.Exec(ctx, query,
		entry.ID,
		string(entry.Status),
		entry.NotificationSentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update waitlist entry: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNoPendingEntries
	}
	return nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	session := &domain.Session{}
	var paymentStatus string
	err := row.Scan(
		&session.ID,
		&session.Name,
		&session.StartTime,
		&session.Capacity.MaxAttendees,
		&session.Capacity.CurrentAttendees,
		&session.Capacity.WaitlistEnabled,
		&session.Capacity.WaitlistCount,
		&session.Policy.CancellationDeadlineHours,
		&session.Policy.RefundPercentage,
		&session.Policy.AutoPromoteWaitlist,
		&session.Financial.PriceCents,
		&paymentStatus,
		&session.Attendees,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	session.Financial.PaymentStatus = domain.SessionPaymentStatus(paymentStatus)
	return session, nil
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	booking := &domain.Booking{}
	var (
		status          string
		paymentStatus   string
		paymentIntentID *string
	)
	err := row.Scan(
		&booking.ID,
		&booking.SessionID,
		&booking.UserID,
		&status,
		&paymentStatus,
		&paymentIntentID,
		&booking.CreatedAt,
		&booking.UpdatedAt,
		&booking.ConfirmedAt,
		&booking.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	booking.Status = domain.BookingStatus(status)
	booking.PaymentStatus = domain.BookingPaymentStatus(paymentStatus)
	if paymentIntentID != nil {
		booking.PaymentIntentID = *paymentIntentID
	}
	return booking, nil
}

func scanWaitlistEntry(row pgx.Row) (*domain.WaitlistEntry, error) {
	entry := &domain.WaitlistEntry{}
	var status string
	err := row.Scan(
		&entry.ID,
		&entry.SessionID,
		&entry.UserID,
		&status,
		&entry.JoinedAt,
		&entry.NotificationSentAt,
	)
	if err != nil {
		return nil, err
	}
	entry.Status = domain.WaitlistStatus(status)
	return entry, nil
}

// Helper function to convert empty string to nil pointer
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Ensure PostgresStore implements Store
var _ Store = (*PostgresStore)(nil)
