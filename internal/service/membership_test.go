package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heewon-dev/community-hub/internal/model"
	"github.com/heewon-dev/community-hub/internal/repository"
)

// fakeRecruitStore implements RecruitReader and MembershipStore over a
// single in-memory recruit, with the same transactional outcomes the
// SQL store produces (in particular: a capacity failure on approve
// still consumes the pending entry).
type fakeRecruitStore struct {
	mu      sync.Mutex
	recruit model.Recruit
	status  map[uint64]string // userID -> PENDING | MEMBER
}

func newFakeRecruitStore(rec model.Recruit) *fakeRecruitStore {
	return &fakeRecruitStore{recruit: rec, status: make(map[uint64]string)}
}

func (s *fakeRecruitStore) GetByID(_ context.Context, id uint64) (*model.Recruit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != s.recruit.ID {
		return nil, repository.ErrRecruitNotFound
	}
	cp := s.recruit
	return &cp, nil
}

func (s *fakeRecruitStore) GetAccess(_ context.Context, id uint64) (*model.RecruitAccess, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != s.recruit.ID {
		return nil, repository.ErrRecruitNotFound
	}
	access := &model.RecruitAccess{RecruitID: id, AuthorID: s.recruit.AuthorID}
	for userID, st := range s.status {
		if st == model.MembershipMember {
			access.MemberIDs = append(access.MemberIDs, userID)
		}
	}
	return access, nil
}

func (s *fakeRecruitStore) GetMembership(_ context.Context, _, userID uint64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status[userID], nil
}

func (s *fakeRecruitStore) AddPending(_ context.Context, _, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.status[userID] {
	case model.MembershipMember:
		return repository.ErrAlreadyMember
	case model.MembershipPending:
		return repository.ErrAlreadyPending
	}
	s.status[userID] = model.MembershipPending
	return nil
}

func (s *fakeRecruitStore) RemovePending(_ context.Context, _, userID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status[userID] != model.MembershipPending {
		return false, nil
	}
	delete(s.status, userID)
	return true, nil
}

func (s *fakeRecruitStore) Decide(_ context.Context, _, targetID uint64, approve bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status[targetID] != model.MembershipPending {
		return repository.ErrNotPending
	}
	if !approve {
		delete(s.status, targetID)
		return nil
	}
	if s.recruit.MemberCount >= s.recruit.Capacity {
		// The pending entry is consumed even when admission fails.
		delete(s.status, targetID)
		return repository.ErrRecruitFull
	}
	s.status[targetID] = model.MembershipMember
	s.recruit.MemberCount++
	return nil
}

func (s *fakeRecruitStore) RemoveMember(_ context.Context, _, targetID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status[targetID] != model.MembershipMember {
		return repository.ErrNotMember
	}
	delete(s.status, targetID)
	s.recruit.MemberCount--
	return nil
}

func openRecruit(capacity int) model.Recruit {
	return model.Recruit{ID: 1, AuthorID: 100, Title: "weekend raid", Capacity: capacity, MemberCount: 1, Status: model.RecruitOpen}
}

func TestAuthorizeReflectsCurrentMembership(t *testing.T) {
	store := newFakeRecruitStore(openRecruit(5))
	gate := NewMembershipGate(store, store, nil)
	ctx := context.Background()

	ok, err := gate.Authorize(ctx, 1, 100)
	require.NoError(t, err)
	assert.True(t, ok, "author is always authorized")

	ok, err = gate.Authorize(ctx, 1, 200)
	require.NoError(t, err)
	assert.False(t, ok, "stranger is not authorized")

	require.NoError(t, gate.RequestJoin(ctx, 1, 200))
	ok, err = gate.Authorize(ctx, 1, 200)
	require.NoError(t, err)
	assert.False(t, ok, "pending applicant is not yet authorized")

	require.NoError(t, gate.Decide(ctx, 100, 1, 200, true))
	ok, err = gate.Authorize(ctx, 1, 200)
	require.NoError(t, err)
	assert.True(t, ok, "admitted member is authorized")

	// Removal takes effect on the very next check; nothing is cached.
	require.NoError(t, gate.RemoveMember(ctx, 100, 1, 200))
	ok, err = gate.Authorize(ctx, 1, 200)
	require.NoError(t, err)
	assert.False(t, ok, "removed member loses access immediately")
}

func TestRequestJoinRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("closed recruit", func(t *testing.T) {
		rec := openRecruit(5)
		rec.Status = model.RecruitClosed
		store := newFakeRecruitStore(rec)
		gate := NewMembershipGate(store, store, nil)
		assert.ErrorIs(t, gate.RequestJoin(ctx, 1, 200), repository.ErrRecruitClosed)
	})

	t.Run("author joining own recruit", func(t *testing.T) {
		store := newFakeRecruitStore(openRecruit(5))
		gate := NewMembershipGate(store, store, nil)
		assert.ErrorIs(t, gate.RequestJoin(ctx, 1, 100), repository.ErrAlreadyMember)
	})

	t.Run("full recruit", func(t *testing.T) {
		rec := openRecruit(1) // author alone fills it
		store := newFakeRecruitStore(rec)
		gate := NewMembershipGate(store, store, nil)
		assert.ErrorIs(t, gate.RequestJoin(ctx, 1, 200), repository.ErrRecruitFull)
	})

	t.Run("duplicate request", func(t *testing.T) {
		store := newFakeRecruitStore(openRecruit(5))
		gate := NewMembershipGate(store, store, nil)
		require.NoError(t, gate.RequestJoin(ctx, 1, 200))
		assert.ErrorIs(t, gate.RequestJoin(ctx, 1, 200), repository.ErrAlreadyPending)
	})

	t.Run("unknown recruit", func(t *testing.T) {
		store := newFakeRecruitStore(openRecruit(5))
		gate := NewMembershipGate(store, store, nil)
		assert.ErrorIs(t, gate.RequestJoin(ctx, 9, 200), repository.ErrRecruitNotFound)
	})
}

func TestWithdrawJoinIsIdempotent(t *testing.T) {
	store := newFakeRecruitStore(openRecruit(5))
	gate := NewMembershipGate(store, store, nil)
	ctx := context.Background()

	require.NoError(t, gate.RequestJoin(ctx, 1, 200))
	require.NoError(t, gate.WithdrawJoin(ctx, 1, 200))
	// Withdrawing again, or without ever applying, is not an error.
	require.NoError(t, gate.WithdrawJoin(ctx, 1, 200))
	require.NoError(t, gate.WithdrawJoin(ctx, 1, 300))
}

func TestDecideRequiresAuthor(t *testing.T) {
	store := newFakeRecruitStore(openRecruit(5))
	gate := NewMembershipGate(store, store, nil)
	ctx := context.Background()

	require.NoError(t, gate.RequestJoin(ctx, 1, 200))
	assert.ErrorIs(t, gate.Decide(ctx, 999, 1, 200, true), repository.ErrForbidden)

	// The request survives a forbidden attempt.
	st, err := store.GetMembership(ctx, 1, 200)
	require.NoError(t, err)
	assert.Equal(t, model.MembershipPending, st)
}

func TestDecideRejectDropsPending(t *testing.T) {
	store := newFakeRecruitStore(openRecruit(5))
	gate := NewMembershipGate(store, store, nil)
	ctx := context.Background()

	require.NoError(t, gate.RequestJoin(ctx, 1, 200))
	require.NoError(t, gate.Decide(ctx, 100, 1, 200, false))

	st, err := store.GetMembership(ctx, 1, 200)
	require.NoError(t, err)
	assert.Empty(t, st)

	// Deciding the same request twice reports it as gone.
	assert.ErrorIs(t, gate.Decide(ctx, 100, 1, 200, false), repository.ErrNotPending)
}

// Approving once the recruit has filled up fails, but the pending entry
// is consumed anyway so the applicant is never stuck in limbo.
func TestDecideAtCapacityDropsRequest(t *testing.T) {
	store := newFakeRecruitStore(openRecruit(2))
	gate := NewMembershipGate(store, store, nil)
	ctx := context.Background()

	require.NoError(t, gate.RequestJoin(ctx, 1, 200))
	require.NoError(t, gate.RequestJoin(ctx, 1, 300))

	require.NoError(t, gate.Decide(ctx, 100, 1, 200, true)) // fills the last slot

	err := gate.Decide(ctx, 100, 1, 300, true)
	assert.ErrorIs(t, err, repository.ErrRecruitFull)

	st, err := store.GetMembership(ctx, 1, 300)
	require.NoError(t, err)
	assert.Empty(t, st, "capacity failure must still drop the request")
}

func TestRemoveMemberRules(t *testing.T) {
	store := newFakeRecruitStore(openRecruit(5))
	gate := NewMembershipGate(store, store, nil)
	ctx := context.Background()

	require.NoError(t, gate.RequestJoin(ctx, 1, 200))
	require.NoError(t, gate.Decide(ctx, 100, 1, 200, true))

	// Only the author may remove, and never themselves.
	assert.ErrorIs(t, gate.RemoveMember(ctx, 200, 1, 200), repository.ErrForbidden)
	assert.ErrorIs(t, gate.RemoveMember(ctx, 100, 1, 100), repository.ErrForbidden)

	require.NoError(t, gate.RemoveMember(ctx, 100, 1, 200))
	assert.ErrorIs(t, gate.RemoveMember(ctx, 100, 1, 200), repository.ErrNotMember)
}
