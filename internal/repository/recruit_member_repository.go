package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/heewon-dev/community-hub/internal/model"
)

// RecruitMemberRepo provides data access to the recruit_members table.
// One row exists per (recruit_id, user_id) pair, enforced by a unique
// key, so a user can never be both pending and a member of the same
// recruit.  The multi-statement operations (Decide, RemoveMember) run
// inside a transaction; Decide deliberately commits the pending-row
// removal even when the approval itself fails for capacity, so a stale
// request never blocks the queue.
type RecruitMemberRepo struct {
	db *sql.DB
}

// NewRecruitMemberRepo returns a new RecruitMemberRepo bound to the
// given database.
func NewRecruitMemberRepo(db *sql.DB) *RecruitMemberRepo { return &RecruitMemberRepo{db: db} }

// GetMembership returns the membership status of userID on the recruit
// (PENDING or MEMBER), or the empty string when no row exists.
func (r *RecruitMemberRepo) GetMembership(ctx context.Context, recruitID, userID uint64) (string, error) {
	const q = `SELECT status FROM recruit_members WHERE recruit_id = ? AND user_id = ?`
	var status string
	err := r.db.QueryRowContext(ctx, q, recruitID, userID).Scan(&status)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return status, err
}

// AddPending inserts a pending join request.  A duplicate-key failure
// is mapped to ErrAlreadyPending or ErrAlreadyMember depending on the
// existing row's status.
func (r *RecruitMemberRepo) AddPending(ctx context.Context, recruitID, userID uint64) error {
	const q = `INSERT INTO recruit_members (recruit_id, user_id, status) VALUES (?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, recruitID, userID, model.MembershipPending)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			status, lookupErr := r.GetMembership(ctx, recruitID, userID)
			if lookupErr == nil && status == model.MembershipMember {
				return ErrAlreadyMember
			}
			return ErrAlreadyPending
		}
		return err
	}
	return nil
}

// RemovePending deletes a pending join request.  Removal is idempotent:
// it reports whether a row was actually removed but deleting a missing
// request is not an error.
func (r *RecruitMemberRepo) RemovePending(ctx context.Context, recruitID, userID uint64) (bool, error) {
	const q = `DELETE FROM recruit_members WHERE recruit_id = ? AND user_id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, recruitID, userID, model.MembershipPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Decide resolves targetID's pending join request.  The pending row is
// consumed in every outcome.  On approval the member count is bumped
// with a conditional update guarded by the capacity; when the recruit
// is already full the promotion is undone but the pending removal is
// still committed and ErrRecruitFull is returned.
func (r *RecruitMemberRepo) Decide(ctx context.Context, recruitID, targetID uint64, approve bool) error {
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

	if !approve {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM recruit_members WHERE recruit_id = ? AND user_id = ? AND status = ?`,
			recruitID, targetID, model.MembershipPending)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrNotPending
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		committed = true
		return nil
	}

	// Promote the pending row first so a missing request aborts before
	// the count is touched.
	res, err := tx.ExecContext(ctx,
		`UPDATE recruit_members SET status = ? WHERE recruit_id = ? AND user_id = ? AND status = ?`,
		model.MembershipMember, recruitID, targetID, model.MembershipPending)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotPending
	}

	res, err = tx.ExecContext(ctx,
		`UPDATE recruits SET member_count = member_count + 1 WHERE id = ? AND member_count < capacity`,
		recruitID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Capacity exhausted: drop the request entirely but commit that
		// removal, so the queue does not hold a stale entry.
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM recruit_members WHERE recruit_id = ? AND user_id = ?`,
			recruitID, targetID); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		committed = true
		return ErrRecruitFull
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// RemoveMember drops an admitted member and decrements the member
// count, which never goes below 1 because the author always counts.
func (r *RecruitMemberRepo) RemoveMember(ctx context.Context, recruitID, targetID uint64) error {
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
	res, err := tx.ExecContext(ctx,
		`DELETE FROM recruit_members WHERE recruit_id = ? AND user_id = ? AND status = ?`,
		recruitID, targetID, model.MembershipMember)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotMember
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE recruits SET member_count = member_count - 1 WHERE id = ? AND member_count > 1`,
		recruitID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ListPending returns user IDs awaiting a decision on the recruit.
func (r *RecruitMemberRepo) ListPending(ctx context.Context, recruitID uint64) ([]uint64, error) {
	return r.listByStatus(ctx, recruitID, model.MembershipPending)
}

// ListMembers returns admitted member IDs (the author is not stored in
// recruit_members and is therefore not included).
func (r *RecruitMemberRepo) ListMembers(ctx context.Context, recruitID uint64) ([]uint64, error) {
	return r.listByStatus(ctx, recruitID, model.MembershipMember)
}

func (r *RecruitMemberRepo) listByStatus(ctx context.Context, recruitID uint64, status string) ([]uint64, error) {
	const q = `SELECT user_id FROM recruit_members WHERE recruit_id = ? AND status = ? ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, q, recruitID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make([]uint64, 0)
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
