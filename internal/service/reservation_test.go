package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heewon-dev/community-hub/internal/model"
	"github.com/heewon-dev/community-hub/internal/repository"
)

// fakeSeatStore is an in-memory SeatStore whose mutations are atomic
// conditional updates under a single mutex, mirroring the guarantees
// the SQL store provides per statement.
type fakeSeatStore struct {
	mu         sync.Mutex
	seats      map[string]*model.Seat
	now        func() time.Time
	releaseErr error // injected TryRelease failure
	countErr   error // injected CountHeldBy failure
}

func newFakeSeatStore(seatNumbers map[string]string) *fakeSeatStore {
	s := &fakeSeatStore{
		seats: make(map[string]*model.Seat),
		now:   func() time.Time { return time.Now().UTC() },
	}
	var id uint64
	for number, room := range seatNumbers {
		id++
		s.seats[number] = &model.Seat{ID: id, SeatNumber: number, Room: room, IsAvailable: true}
	}
	return s
}

func (s *fakeSeatStore) GetBySeatNumber(_ context.Context, seatNumber string) (*model.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seat, ok := s.seats[seatNumber]
	if !ok {
		return nil, repository.ErrSeatNotFound
	}
	cp := *seat
	return &cp, nil
}

func (s *fakeSeatStore) TryClaim(_ context.Context, seatNumber string, holderID uint64, until time.Time) (*model.Seat, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seat, ok := s.seats[seatNumber]
	if !ok || !seat.IsAvailable {
		return nil, false, nil
	}
	seat.IsAvailable = false
	holder := holderID
	seat.CurrentHolder = &holder
	u := until
	seat.ReservedUntil = &u
	cp := *seat
	return &cp, true, nil
}

func (s *fakeSeatStore) TryRelease(_ context.Context, seatNumber string, holderID *uint64) (*model.Seat, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.releaseErr != nil {
		return nil, false, s.releaseErr
	}
	seat, ok := s.seats[seatNumber]
	if !ok || seat.IsAvailable {
		return nil, false, nil
	}
	if holderID != nil && (seat.CurrentHolder == nil || *seat.CurrentHolder != *holderID) {
		return nil, false, nil
	}
	seat.IsAvailable = true
	seat.CurrentHolder = nil
	seat.ReservedUntil = nil
	cp := *seat
	return &cp, true, nil
}

func (s *fakeSeatStore) CountHeldBy(_ context.Context, holderID uint64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countErr != nil {
		return 0, s.countErr
	}
	n := 0
	for _, seat := range s.seats {
		if !seat.IsAvailable && seat.CurrentHolder != nil && *seat.CurrentHolder == holderID {
			n++
		}
	}
	return n, nil
}

func (s *fakeSeatStore) HeldBy(_ context.Context, holderID uint64) (*model.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, seat := range s.seats {
		if !seat.IsAvailable && seat.CurrentHolder != nil && *seat.CurrentHolder == holderID {
			cp := *seat
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeSeatStore) ListByRoom(_ context.Context, room string) ([]model.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Seat
	for _, seat := range s.seats {
		if room == "" || seat.Room == room {
			out = append(out, *seat)
		}
	}
	return out, nil
}

func (s *fakeSeatStore) ReleaseExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var n int64
	for _, seat := range s.seats {
		if !seat.IsAvailable && seat.ReservedUntil != nil && seat.ReservedUntil.Before(now) {
			seat.IsAvailable = true
			seat.CurrentHolder = nil
			seat.ReservedUntil = nil
			n++
		}
	}
	return n, nil
}

func TestClaimRejectsInvalidDuration(t *testing.T) {
	m := NewReservationManager(newFakeSeatStore(map[string]string{"G-1": model.RoomGeneral}))
	for _, hours := range []int{0, -1, 9, 100} {
		_, err := m.Claim(context.Background(), 1, model.RoleUser, "G-1", hours)
		assert.ErrorIs(t, err, ErrInvalidDuration, "hours=%d", hours)
	}
}

func TestClaimUnknownSeat(t *testing.T) {
	m := NewReservationManager(newFakeSeatStore(nil))
	_, err := m.Claim(context.Background(), 1, model.RoleUser, "G-1", 2)
	assert.ErrorIs(t, err, repository.ErrSeatNotFound)
}

func TestClaimStaffRoomRequiresElevatedRole(t *testing.T) {
	store := newFakeSeatStore(map[string]string{"S-1": model.RoomStaff})
	m := NewReservationManager(store)

	_, err := m.Claim(context.Background(), 1, model.RoleUser, "S-1", 2)
	assert.ErrorIs(t, err, ErrRestrictedRoom)

	seat, err := m.Claim(context.Background(), 2, model.RoleStaff, "S-1", 2)
	require.NoError(t, err)
	assert.False(t, seat.IsAvailable)
	require.NotNil(t, seat.CurrentHolder)
	assert.Equal(t, uint64(2), *seat.CurrentHolder)
}

func TestClaimOccupiedSeat(t *testing.T) {
	store := newFakeSeatStore(map[string]string{"G-1": model.RoomGeneral})
	m := NewReservationManager(store)

	_, err := m.Claim(context.Background(), 1, model.RoleUser, "G-1", 2)
	require.NoError(t, err)

	_, err = m.Claim(context.Background(), 2, model.RoleUser, "G-1", 2)
	assert.ErrorIs(t, err, repository.ErrSeatTaken)
}

func TestClaimSetsExpiryFromDuration(t *testing.T) {
	store := newFakeSeatStore(map[string]string{"G-1": model.RoomGeneral})
	m := NewReservationManager(store)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base }

	seat, err := m.Claim(context.Background(), 1, model.RoleUser, "G-1", 3)
	require.NoError(t, err)
	require.NotNil(t, seat.ReservedUntil)
	assert.Equal(t, base.Add(3*time.Hour), *seat.ReservedUntil)
}

// Two racing claims on one seat: exactly one wins, the loser sees the
// seat as taken rather than a generic failure.
func TestConcurrentClaimsSameSeat(t *testing.T) {
	store := newFakeSeatStore(map[string]string{"G-1": model.RoomGeneral})
	m := NewReservationManager(store)

	const racers = 16
	errs := make(chan error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(userID uint64) {
			defer wg.Done()
			_, err := m.Claim(context.Background(), userID, model.RoleUser, "G-1", 2)
			errs <- err
		}(uint64(i + 1))
	}
	wg.Wait()
	close(errs)

	wins, losses := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			wins++
		default:
			assert.ErrorIs(t, err, repository.ErrSeatTaken)
			losses++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, racers-1, losses)
}

// A second sequential claim by the same user rolls itself back and
// reports the duplicate; the first seat stays held and the second is
// returned to the pool.
func TestSecondClaimBySameUserRollsBack(t *testing.T) {
	store := newFakeSeatStore(map[string]string{"G-1": model.RoomGeneral, "G-2": model.RoomGeneral})
	m := NewReservationManager(store)

	_, err := m.Claim(context.Background(), 7, model.RoleUser, "G-1", 2)
	require.NoError(t, err)

	_, err = m.Claim(context.Background(), 7, model.RoleUser, "G-2", 2)
	assert.ErrorIs(t, err, ErrDuplicateReservation)

	held, err := store.CountHeldBy(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 1, held)

	second, err := store.GetBySeatNumber(context.Background(), "G-2")
	require.NoError(t, err)
	assert.True(t, second.IsAvailable)
}

// Racing claims by one user on different seats must never leave the
// user double-booked once both calls have returned.
func TestConcurrentClaimsSameUserNeverDoubleBook(t *testing.T) {
	store := newFakeSeatStore(map[string]string{"G-1": model.RoomGeneral, "G-2": model.RoomGeneral})
	m := NewReservationManager(store)

	var wg sync.WaitGroup
	for _, seatNumber := range []string{"G-1", "G-2"} {
		wg.Add(1)
		go func(sn string) {
			defer wg.Done()
			_, _ = m.Claim(context.Background(), 7, model.RoleUser, sn, 2)
		}(seatNumber)
	}
	wg.Wait()

	held, err := store.CountHeldBy(context.Background(), 7)
	require.NoError(t, err)
	assert.LessOrEqual(t, held, 1)
}

// When the duplicate check's rollback itself fails, the claim must
// surface the distinct compensation error: the user is left
// double-booked until the next sweep, and callers treat it as a server
// fault rather than an expected conflict.
func TestCompensationFailureSurfaces(t *testing.T) {
	store := newFakeSeatStore(map[string]string{"G-1": model.RoomGeneral, "G-2": model.RoomGeneral})
	m := NewReservationManager(store)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base }
	store.now = func() time.Time { return base }

	_, err := m.Claim(context.Background(), 7, model.RoleUser, "G-1", 2)
	require.NoError(t, err)

	store.releaseErr = errors.New("store unreachable")
	_, err = m.Claim(context.Background(), 7, model.RoleUser, "G-2", 2)
	assert.ErrorIs(t, err, ErrCompensationFailed)
	assert.NotErrorIs(t, err, ErrDuplicateReservation)

	// The failed rollback leaves the duplicate hold in place.
	held, err := store.CountHeldBy(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 2, held)

	// The sweep is the healing path once the store recovers.
	store.releaseErr = nil
	store.now = func() time.Time { return base.Add(3 * time.Hour) }
	freed, err := m.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), freed)
}

// A store failure in the duplicate count rolls the fresh claim back.
// A clean rollback reports the original cause and returns the seat; a
// failed rollback escalates to the compensation error.
func TestRecountFailureRollsBackClaim(t *testing.T) {
	store := newFakeSeatStore(map[string]string{"G-1": model.RoomGeneral})
	m := NewReservationManager(store)
	cause := errors.New("store unreachable")

	store.countErr = cause
	_, err := m.Claim(context.Background(), 7, model.RoleUser, "G-1", 2)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrCompensationFailed)

	seat, getErr := store.GetBySeatNumber(context.Background(), "G-1")
	require.NoError(t, getErr)
	assert.True(t, seat.IsAvailable, "failed claim must leave the pool untouched")

	store.releaseErr = errors.New("rollback also down")
	_, err = m.Claim(context.Background(), 7, model.RoleUser, "G-1", 2)
	assert.ErrorIs(t, err, ErrCompensationFailed)
}

func TestReleaseSemantics(t *testing.T) {
	store := newFakeSeatStore(map[string]string{"G-1": model.RoomGeneral, "G-2": model.RoomGeneral})
	m := NewReservationManager(store)

	_, err := m.Claim(context.Background(), 1, model.RoleUser, "G-1", 2)
	require.NoError(t, err)

	// Someone else cannot release the hold.
	_, err = m.Release(context.Background(), 2, "G-1", false)
	assert.ErrorIs(t, err, repository.ErrForbidden)

	// A free seat cannot be released either.
	_, err = m.Release(context.Background(), 1, "G-2", false)
	assert.ErrorIs(t, err, repository.ErrForbidden)

	// Unknown seats are reported as missing, not forbidden.
	_, err = m.Release(context.Background(), 1, "G-9", false)
	assert.ErrorIs(t, err, repository.ErrSeatNotFound)

	// The holder can release their own seat.
	seat, err := m.Release(context.Background(), 1, "G-1", false)
	require.NoError(t, err)
	assert.True(t, seat.IsAvailable)
}

func TestPrivilegedReleaseIgnoresHolder(t *testing.T) {
	store := newFakeSeatStore(map[string]string{"G-1": model.RoomGeneral})
	m := NewReservationManager(store)

	_, err := m.Claim(context.Background(), 1, model.RoleUser, "G-1", 2)
	require.NoError(t, err)

	seat, err := m.Release(context.Background(), 99, "G-1", true)
	require.NoError(t, err)
	assert.True(t, seat.IsAvailable)
}

func TestSweepExpiredIsIdempotent(t *testing.T) {
	store := newFakeSeatStore(map[string]string{"G-1": model.RoomGeneral, "G-2": model.RoomGeneral, "G-3": model.RoomGeneral})
	m := NewReservationManager(store)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return base }
	store.now = func() time.Time { return base }

	_, err := m.Claim(context.Background(), 1, model.RoleUser, "G-1", 1)
	require.NoError(t, err)
	_, err = m.Claim(context.Background(), 2, model.RoleUser, "G-2", 8)
	require.NoError(t, err)

	// Advance past the first hold's expiry but not the second's.
	store.now = func() time.Time { return base.Add(2 * time.Hour) }

	freed, err := m.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), freed)

	// A second immediate sweep finds nothing to reclaim.
	freed, err = m.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), freed)

	seat, err := store.GetBySeatNumber(context.Background(), "G-2")
	require.NoError(t, err)
	assert.False(t, seat.IsAvailable, "unexpired hold must survive the sweep")
}

func TestMyReservation(t *testing.T) {
	store := newFakeSeatStore(map[string]string{"G-1": model.RoomGeneral})
	m := NewReservationManager(store)

	seat, err := m.MyReservation(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, seat)

	_, err = m.Claim(context.Background(), 1, model.RoleUser, "G-1", 2)
	require.NoError(t, err)

	seat, err = m.MyReservation(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, seat)
	assert.Equal(t, "G-1", seat.SeatNumber)
}
