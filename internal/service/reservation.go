// Package service holds the business layer between HTTP handlers and
// the repositories: seat reservation, membership decisions, the expiry
// sweeper and notification fan-out.  Dependencies come in through
// constructors; nothing in here reaches for globals.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/heewon-dev/community-hub/internal/model"
	"github.com/heewon-dev/community-hub/internal/repository"
)

// Reservation duration bounds in hours.
const (
	MinReserveHours = 1
	MaxReserveHours = 8
)

// ErrInvalidDuration is returned when the requested duration is outside
// the 1..8 hour window.  Handlers translate it into HTTP 400.
var ErrInvalidDuration = errors.New("duration must be between 1 and 8 hours")

// ErrRestrictedRoom is returned when a non-elevated user tries to claim
// a STAFF seat.  Handlers translate it into HTTP 403.
var ErrRestrictedRoom = errors.New("seat is in a restricted room")

// ErrDuplicateReservation is returned when a claim would leave the user
// holding two seats at once.  The offending claim has already been
// rolled back when this is reported.
var ErrDuplicateReservation = errors.New("user already holds a reservation")

// ErrCompensationFailed wraps a store failure during the rollback step
// of the claim protocol.  Unlike the other reservation errors it is not
// an expected outcome: the user may be left double-booked until the
// next sweep, so callers must surface it as a server fault and it is
// logged as an incident at the point of failure.
var ErrCompensationFailed = errors.New("reservation rollback failed")

// SeatStore is the slice of the seat repository the reservation manager
// needs.  Every mutating call maps to one atomic conditional update in
// the store; the boolean result reports whether the guarding predicate
// held.  Implemented by repository.SeatRepo.
type SeatStore interface {
	GetBySeatNumber(ctx context.Context, seatNumber string) (*model.Seat, error)
	TryClaim(ctx context.Context, seatNumber string, holderID uint64, until time.Time) (*model.Seat, bool, error)
	TryRelease(ctx context.Context, seatNumber string, holderID *uint64) (*model.Seat, bool, error)
	CountHeldBy(ctx context.Context, holderID uint64) (int, error)
	HeldBy(ctx context.Context, holderID uint64) (*model.Seat, error)
	ListByRoom(ctx context.Context, room string) ([]model.Seat, error)
	ReleaseExpired(ctx context.Context) (int64, error)
}

// ReservationManager claims and releases seats under two invariants:
// a seat has at most one holder, and a user holds at most one seat.
// The first is enforced entirely by the store's conditional update; the
// second spans rows the store cannot lock together, so the claim path
// runs an explicit two-phase protocol: optimistic claim, re-count,
// compensating rollback when the count shows a duplicate.
type ReservationManager struct {
	seats SeatStore
	now   func() time.Time
}

// NewReservationManager constructs a ReservationManager over the given
// store.
func NewReservationManager(seats SeatStore) *ReservationManager {
	return &ReservationManager{seats: seats, now: func() time.Time { return time.Now().UTC() }}
}

// Claim reserves seatNumber for the user for the given number of hours.
// Two concurrent claims on the same seat resolve first-writer-wins: the
// loser gets ErrSeatTaken.  Two claims by the same user on different
// seats may both pass the conditional update; whichever re-count runs
// second rolls its own seat back, so the user ends up holding exactly
// one seat (which one is deliberately left to timing).
func (m *ReservationManager) Claim(ctx context.Context, userID uint64, role, seatNumber string, hours int) (*model.Seat, error) {
	if hours < MinReserveHours || hours > MaxReserveHours {
		return nil, ErrInvalidDuration
	}
	seat, err := m.seats.GetBySeatNumber(ctx, seatNumber)
	if err != nil {
		return nil, err
	}
	if seat.Room == model.RoomStaff && !model.Elevated(role) {
		return nil, ErrRestrictedRoom
	}

	until := m.now().Add(time.Duration(hours) * time.Hour)
	claimed, ok, err := m.seats.TryClaim(ctx, seatNumber, userID, until)
	if err != nil {
		return nil, err
	}
	if !ok {
		// The conditional update matched nothing.  Re-read to tell a
		// vanished seat apart from a lost race; the caller must not see
		// a racing claim reported as a generic failure.
		if _, err := m.seats.GetBySeatNumber(ctx, seatNumber); err != nil {
			return nil, err
		}
		return nil, repository.ErrSeatTaken
	}

	held, err := m.seats.CountHeldBy(ctx, userID)
	if err != nil {
		return nil, m.compensate(ctx, seatNumber, userID, err)
	}
	if held > 1 {
		// Another claim by the same user interleaved its pre-check with
		// ours.  Give this seat back and report the duplicate.
		if _, _, rbErr := m.seats.TryRelease(ctx, seatNumber, &userID); rbErr != nil {
			log.Printf("reservation: rollback of seat %s for user %d failed: %v", seatNumber, userID, rbErr)
			return nil, fmt.Errorf("%w: %v", ErrCompensationFailed, rbErr)
		}
		return nil, ErrDuplicateReservation
	}
	return claimed, nil
}

// compensate undoes a just-made claim after a store failure in the
// duplicate check, preserving the guarantee that a failed Claim leaves
// the pool as it was.
func (m *ReservationManager) compensate(ctx context.Context, seatNumber string, userID uint64, cause error) error {
	if _, _, rbErr := m.seats.TryRelease(ctx, seatNumber, &userID); rbErr != nil {
		log.Printf("reservation: rollback of seat %s for user %d failed: %v (after: %v)", seatNumber, userID, rbErr, cause)
		return fmt.Errorf("%w: %v", ErrCompensationFailed, rbErr)
	}
	return cause
}

// Release clears the hold on seatNumber.  Non-privileged users may only
// release a seat they hold; privileged (ADMIN) callers may release any
// held seat.  A follow-up read distinguishes a missing seat from one
// held by someone else.
func (m *ReservationManager) Release(ctx context.Context, userID uint64, seatNumber string, privileged bool) (*model.Seat, error) {
	var holder *uint64
	if !privileged {
		holder = &userID
	}
	seat, ok, err := m.seats.TryRelease(ctx, seatNumber, holder)
	if err != nil {
		return nil, err
	}
	if ok {
		return seat, nil
	}
	if _, err := m.seats.GetBySeatNumber(ctx, seatNumber); err != nil {
		return nil, err
	}
	// Seat exists but is either free or held by someone else.
	return nil, repository.ErrForbidden
}

// ListSeats returns the pool ordered by seat number, optionally
// filtered by room.
func (m *ReservationManager) ListSeats(ctx context.Context, room string) ([]model.Seat, error) {
	return m.seats.ListByRoom(ctx, room)
}

// MyReservation returns the seat the user currently holds, or nil.
func (m *ReservationManager) MyReservation(ctx context.Context, userID uint64) (*model.Seat, error) {
	return m.seats.HeldBy(ctx, userID)
}

// SweepExpired reclaims every lapsed hold in one set-based store
// operation and returns how many seats were freed.  Safe to call at
// any time; a second immediate call reclaims nothing.
func (m *ReservationManager) SweepExpired(ctx context.Context) (int64, error) {
	return m.seats.ReleaseExpired(ctx)
}
