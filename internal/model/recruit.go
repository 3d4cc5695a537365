package model

import "time"

// Recruit status values.  A CLOSED recruit no longer accepts join
// requests; existing members keep access to its chat room.
const (
	RecruitOpen   = "OPEN"
	RecruitClosed = "CLOSED"
)

// Membership status values stored in recruit_members.  PENDING rows are
// applicants awaiting the author's decision; MEMBER rows are admitted
// users.  The (recruit_id, user_id) pair is unique, so a user is never
// both pending and a member at once.
const (
	MembershipPending = "PENDING"
	MembershipMember  = "MEMBER"
)

// Recruit is a capacity-bounded team-recruiting post.  The author is
// always an implicit member and counts toward capacity, so MemberCount
// starts at 1 and never drops below it.
//
// Fields:
//  ID          – primary key identifier.
//  AuthorID    – user who owns the recruit.
//  Title       – short display title.
//  Capacity    – maximum member count, author included.
//  MemberCount – current member count, author included.
//  Status      – OPEN or CLOSED.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Recruit struct {
	ID          uint64    `json:"id"`           // recruits.id
	AuthorID    uint64    `json:"author_id"`    // recruits.author_id
	Title       string    `json:"title"`        // recruits.title
	Capacity    int       `json:"capacity"`     // recruits.capacity
	MemberCount int       `json:"member_count"` // recruits.member_count
	Status      string    `json:"status"`       // recruits.status
	CreatedAt   time.Time `json:"created_at"`   // recruits.created_at
	UpdatedAt   time.Time `json:"updated_at"`   // recruits.updated_at
}

// RecruitAccess is a snapshot of who may use a recruit's chat room.  It
// is loaded fresh from the store for every privileged action so that
// decisions always reflect the current membership, never a copy cached
// on a connection.
type RecruitAccess struct {
	RecruitID uint64
	AuthorID  uint64
	MemberIDs []uint64
}

// Authorizes reports whether userID may access the recruit's room: the
// author always may, admitted members may, everyone else (including
// pending applicants) may not.
func (a RecruitAccess) Authorizes(userID uint64) bool {
	if userID == a.AuthorID {
		return true
	}
	for _, id := range a.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}
