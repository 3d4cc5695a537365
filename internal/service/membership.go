package service

import (
	"context"

	"github.com/heewon-dev/community-hub/internal/model"
	"github.com/heewon-dev/community-hub/internal/repository"
)

// RecruitReader is the slice of repository.RecruitRepo the gate needs.
type RecruitReader interface {
	GetByID(ctx context.Context, id uint64) (*model.Recruit, error)
	GetAccess(ctx context.Context, id uint64) (*model.RecruitAccess, error)
}

// MembershipStore is the slice of repository.RecruitMemberRepo the gate
// needs.  Decide and RemoveMember are the store's own transactional
// protocols; the gate only adds the author check and notifications.
type MembershipStore interface {
	GetMembership(ctx context.Context, recruitID, userID uint64) (string, error)
	AddPending(ctx context.Context, recruitID, userID uint64) error
	RemovePending(ctx context.Context, recruitID, userID uint64) (bool, error)
	Decide(ctx context.Context, recruitID, targetID uint64, approve bool) error
	RemoveMember(ctx context.Context, recruitID, targetID uint64) error
}

// MembershipGate guards group rooms and runs the join/approve flow.
// Authorization is never cached: every check loads the current access
// snapshot from the store, because an author can approve or remove a
// member while that member's connection is already open.
type MembershipGate struct {
	recruits RecruitReader
	members  MembershipStore
	notifier *Notifier
}

// NewMembershipGate constructs a MembershipGate.  notifier may be nil
// in tests; notifications are fire-and-forget either way.
func NewMembershipGate(recruits RecruitReader, members MembershipStore, notifier *Notifier) *MembershipGate {
	return &MembershipGate{recruits: recruits, members: members, notifier: notifier}
}

// Authorize reports whether userID may use the recruit's room right
// now.  The decision itself is the pure RecruitAccess.Authorizes over
// a snapshot loaded fresh for this one call.
func (g *MembershipGate) Authorize(ctx context.Context, recruitID, userID uint64) (bool, error) {
	access, err := g.recruits.GetAccess(ctx, recruitID)
	if err != nil {
		return false, err
	}
	return access.Authorizes(userID), nil
}

// RequestJoin files a pending join request.  It rejects closed recruits,
// existing members, duplicate requests and full recruits, and notifies
// the author on success.
func (g *MembershipGate) RequestJoin(ctx context.Context, recruitID, userID uint64) error {
	rec, err := g.recruits.GetByID(ctx, recruitID)
	if err != nil {
		return err
	}
	if rec.Status == model.RecruitClosed {
		return repository.ErrRecruitClosed
	}
	if rec.AuthorID == userID {
		return repository.ErrAlreadyMember
	}
	if rec.MemberCount >= rec.Capacity {
		return repository.ErrRecruitFull
	}
	switch status, err := g.members.GetMembership(ctx, recruitID, userID); {
	case err != nil:
		return err
	case status == model.MembershipMember:
		return repository.ErrAlreadyMember
	case status == model.MembershipPending:
		return repository.ErrAlreadyPending
	}
	if err := g.members.AddPending(ctx, recruitID, userID); err != nil {
		return err
	}
	if g.notifier != nil {
		g.notifier.JoinApplication(ctx, rec, userID)
	}
	return nil
}

// WithdrawJoin removes the caller's pending request.  Idempotent:
// withdrawing a request that does not exist is not an error.
func (g *MembershipGate) WithdrawJoin(ctx context.Context, recruitID, userID uint64) error {
	if _, err := g.recruits.GetByID(ctx, recruitID); err != nil {
		return err
	}
	_, err := g.members.RemovePending(ctx, recruitID, userID)
	return err
}

// Decide lets the author approve or reject targetID's pending request.
// The pending entry is consumed in every outcome, including the
// capacity failure, so a stale request never blocks the queue; the
// applicant is notified of the result either way.
func (g *MembershipGate) Decide(ctx context.Context, authorID, recruitID, targetID uint64, approve bool) error {
	rec, err := g.recruits.GetByID(ctx, recruitID)
	if err != nil {
		return err
	}
	if rec.AuthorID != authorID {
		return repository.ErrForbidden
	}
	err = g.members.Decide(ctx, recruitID, targetID, approve)
	switch err {
	case nil:
		if g.notifier != nil {
			g.notifier.JoinDecision(ctx, rec, targetID, approve)
		}
		return nil
	case repository.ErrRecruitFull:
		// The request was still dropped; tell the applicant it failed.
		if g.notifier != nil {
			g.notifier.JoinDecision(ctx, rec, targetID, false)
		}
		return err
	default:
		return err
	}
}

// RemoveMember lets the author expel an admitted member.
func (g *MembershipGate) RemoveMember(ctx context.Context, authorID, recruitID, targetID uint64) error {
	rec, err := g.recruits.GetByID(ctx, recruitID)
	if err != nil {
		return err
	}
	if rec.AuthorID != authorID {
		return repository.ErrForbidden
	}
	if targetID == rec.AuthorID {
		// The author always counts as a member and cannot be removed.
		return repository.ErrForbidden
	}
	return g.members.RemoveMember(ctx, recruitID, targetID)
}
