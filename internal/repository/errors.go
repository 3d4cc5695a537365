// Package repository implements the data access layer over MySQL.  This
// file defines sentinel error values shared across repositories so that
// service and handler layers can distinguish failure scenarios with
// errors.Is.  Expected outcomes (not found, conflict, forbidden) are
// returned as these typed values and are never logged as incidents.
package repository

import "errors"

// ErrSeatNotFound is returned when no seat with the requested seat
// number exists.  Handlers should translate this into HTTP 404.
var ErrSeatNotFound = errors.New("seat not found")

// ErrSeatTaken is returned when a conditional claim matched no row
// because another user already holds the seat. Handlers should
// translate this into HTTP 409.
var ErrSeatTaken = errors.New("seat already taken")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own or lack the role for. Handlers should
// translate this into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrRecruitNotFound is returned when no recruit with the requested ID
// exists.
var ErrRecruitNotFound = errors.New("recruit not found")

// ErrRecruitClosed is returned when a join request targets a recruit
// whose status is CLOSED.
var ErrRecruitClosed = errors.New("recruit closed")

// ErrRecruitFull is returned when a join or approval would push the
// member count past capacity.  For approvals the pending entry is
// still removed before this error is reported.
var ErrRecruitFull = errors.New("recruit full")

// ErrAlreadyMember is returned when the target user is already an
// admitted member of the recruit.
var ErrAlreadyMember = errors.New("already a member")

// ErrAlreadyPending is returned when the target user already has a
// pending join request on the recruit.
var ErrAlreadyPending = errors.New("join request already pending")

// ErrNotPending is returned when a decision targets a user without a
// pending join request.
var ErrNotPending = errors.New("no pending join request")

// ErrNotMember is returned when a removal targets a user who is not an
// admitted member.
var ErrNotMember = errors.New("not a member")
