package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/heewon-dev/community-hub/internal/model"
)

// SeatRepo provides data access to the seats table.  Every mutation is
// a single conditional UPDATE whose RowsAffected result reports whether
// the guarding predicate still held, so competing writers are
// serialized by the database at row granularity and no in-process
// locking is needed.  All timestamps are stored and compared in UTC.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo returns a new SeatRepo bound to the provided database.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

// DB exposes the underlying handle for callers that need transactions
// (pool initialization).
func (r *SeatRepo) DB() *sql.DB { return r.db }

const seatColumns = `id, seat_number, room, is_available, current_holder, reserved_until, created_at, updated_at`

func scanSeat(row interface{ Scan(...any) error }) (*model.Seat, error) {
	var s model.Seat
	var holder sql.NullInt64
	var until sql.NullTime
	if err := row.Scan(&s.ID, &s.SeatNumber, &s.Room, &s.IsAvailable, &holder, &until, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if holder.Valid {
		h := uint64(holder.Int64)
		s.CurrentHolder = &h
	}
	if until.Valid {
		u := until.Time.UTC()
		s.ReservedUntil = &u
	}
	return &s, nil
}

// GetBySeatNumber returns the seat with the given seat number or
// ErrSeatNotFound.
func (r *SeatRepo) GetBySeatNumber(ctx context.Context, seatNumber string) (*model.Seat, error) {
	const q = `SELECT ` + seatColumns + ` FROM seats WHERE seat_number = ?`
	s, err := scanSeat(r.db.QueryRowContext(ctx, q, seatNumber))
	if err == sql.ErrNoRows {
		return nil, ErrSeatNotFound
	}
	return s, err
}

// TryClaim marks the seat as held by holderID until the given instant,
// but only if it is currently available.  The second return value is
// false when the predicate did not hold (seat missing or already
// taken); the caller distinguishes the two with a follow-up read.
func (r *SeatRepo) TryClaim(ctx context.Context, seatNumber string, holderID uint64, until time.Time) (*model.Seat, bool, error) {
	const q = `UPDATE seats
	           SET is_available = 0, current_holder = ?, reserved_until = ?
	           WHERE seat_number = ? AND is_available = 1`
	res, err := r.db.ExecContext(ctx, q, holderID, until.UTC(), seatNumber)
	if err != nil {
		return nil, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	if n == 0 {
		return nil, false, nil
	}
	s, err := r.GetBySeatNumber(ctx, seatNumber)
	return s, true, err
}

// TryRelease clears the seat's hold.  When holderID is non-nil the
// update is additionally conditioned on that user being the current
// holder; privileged callers pass nil to release any held seat.  The
// second return value is false when no row matched.
func (r *SeatRepo) TryRelease(ctx context.Context, seatNumber string, holderID *uint64) (*model.Seat, bool, error) {
	q := `UPDATE seats
	      SET is_available = 1, current_holder = NULL, reserved_until = NULL
	      WHERE seat_number = ? AND is_available = 0`
	args := []any{seatNumber}
	if holderID != nil {
		q += ` AND current_holder = ?`
		args = append(args, *holderID)
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	if n == 0 {
		return nil, false, nil
	}
	s, err := r.GetBySeatNumber(ctx, seatNumber)
	return s, true, err
}

// CountHeldBy returns how many seats holderID currently holds across
// the whole pool.  Used by the claim protocol to detect a duplicate
// reservation that slipped through interleaved pre-checks.
func (r *SeatRepo) CountHeldBy(ctx context.Context, holderID uint64) (int, error) {
	const q = `SELECT COUNT(*) FROM seats WHERE current_holder = ? AND is_available = 0`
	var n int
	err := r.db.QueryRowContext(ctx, q, holderID).Scan(&n)
	return n, err
}

// HeldBy returns the seat currently held by holderID, or nil when the
// user holds none.
func (r *SeatRepo) HeldBy(ctx context.Context, holderID uint64) (*model.Seat, error) {
	const q = `SELECT ` + seatColumns + ` FROM seats
	           WHERE current_holder = ? AND is_available = 0
	           ORDER BY seat_number LIMIT 1`
	s, err := scanSeat(r.db.QueryRowContext(ctx, q, holderID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

// ListByRoom returns seats ordered by seat number.  An empty room
// filter returns the whole pool.
func (r *SeatRepo) ListByRoom(ctx context.Context, room string) ([]model.Seat, error) {
	q := `SELECT ` + seatColumns + ` FROM seats`
	var args []any
	if room != "" {
		q += ` WHERE room = ?`
		args = append(args, room)
	}
	q += ` ORDER BY seat_number`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seats := make([]model.Seat, 0)
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		seats = append(seats, *s)
	}
	return seats, rows.Err()
}

// ReleaseExpired reclaims every seat whose hold has lapsed in one
// set-based statement.  The predicate excludes seats whose expiry is
// still in the future, so a seat mid-claim is never touched and running
// the sweep twice in a row is a no-op the second time.  It returns the
// number of seats reclaimed.
func (r *SeatRepo) ReleaseExpired(ctx context.Context) (int64, error) {
	const q = `UPDATE seats
	           SET is_available = 1, current_holder = NULL, reserved_until = NULL
	           WHERE is_available = 0 AND reserved_until < UTC_TIMESTAMP()`
	res, err := r.db.ExecContext(ctx, q)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// InitializePool replaces the whole seat pool inside one transaction:
// delete everything, then bulk-insert the given seat numbers per room.
// The unique key on seat_number plus the single transaction keep the
// pool free of duplicate seat numbers even if two initializations race.
func (r *SeatRepo) InitializePool(ctx context.Context, rooms map[string][]string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `DELETE FROM seats`); err != nil {
		return err
	}
	query := `INSERT INTO seats (seat_number, room, is_available) VALUES `
	args := make([]any, 0)
	first := true
	for room, numbers := range rooms {
		for _, sn := range numbers {
			if !first {
				query += ","
			}
			first = false
			query += "(?, ?, 1)"
			args = append(args, strings.TrimSpace(sn), room)
		}
	}
	if first {
		// empty pool requested; nothing to insert
		if err := tx.Commit(); err != nil {
			return err
		}
		committed = true
		return nil
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
