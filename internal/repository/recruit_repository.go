package repository

import (
	"context"
	"database/sql"

	"github.com/heewon-dev/community-hub/internal/model"
)

// RecruitRepo provides data access to the recruits table.  Member and
// pending-applicant rows live in recruit_members and are handled by
// RecruitMemberRepo; this repository owns the recruit record itself,
// including the denormalized member_count that capacity checks are
// conditioned on.
type RecruitRepo struct {
	db *sql.DB
}

// NewRecruitRepo returns a new RecruitRepo bound to the given database.
func NewRecruitRepo(db *sql.DB) *RecruitRepo { return &RecruitRepo{db: db} }

const recruitColumns = `id, author_id, title, capacity, member_count, status, created_at, updated_at`

func scanRecruit(row interface{ Scan(...any) error }) (*model.Recruit, error) {
	var rec model.Recruit
	err := row.Scan(&rec.ID, &rec.AuthorID, &rec.Title, &rec.Capacity, &rec.MemberCount,
		&rec.Status, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Create inserts a recruit with the author counted as its first member
// and populates the generated ID.
func (r *RecruitRepo) Create(ctx context.Context, rec *model.Recruit) error {
	const q = `INSERT INTO recruits (author_id, title, capacity, member_count, status) VALUES (?, ?, ?, 1, ?)`
	res, err := r.db.ExecContext(ctx, q, rec.AuthorID, rec.Title, rec.Capacity, model.RecruitOpen)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = uint64(id)
	loaded, err := r.GetByID(ctx, rec.ID)
	if err != nil {
		return err
	}
	*rec = *loaded
	return nil
}

// GetByID returns the recruit or ErrRecruitNotFound.
func (r *RecruitRepo) GetByID(ctx context.Context, id uint64) (*model.Recruit, error) {
	const q = `SELECT ` + recruitColumns + ` FROM recruits WHERE id = ?`
	rec, err := scanRecruit(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, ErrRecruitNotFound
	}
	return rec, err
}

// GetAccess loads the current access snapshot for a recruit: its author
// plus every admitted member.  Callers re-load this on each privileged
// action so authorization always reflects live membership.
func (r *RecruitRepo) GetAccess(ctx context.Context, id uint64) (*model.RecruitAccess, error) {
	const q = `SELECT author_id FROM recruits WHERE id = ?`
	var authorID uint64
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&authorID); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRecruitNotFound
		}
		return nil, err
	}
	const memberQ = `SELECT user_id FROM recruit_members WHERE recruit_id = ? AND status = ?`
	rows, err := r.db.QueryContext(ctx, memberQ, id, model.MembershipMember)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	access := &model.RecruitAccess{RecruitID: id, AuthorID: authorID}
	for rows.Next() {
		var uid uint64
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		access.MemberIDs = append(access.MemberIDs, uid)
	}
	return access, rows.Err()
}

// DeleteByAuthor removes a recruit owned by authorID.  Membership and
// message rows cascade via foreign keys.  Returns ErrRecruitNotFound
// when the recruit does not exist and ErrForbidden when it belongs to
// someone else.
func (r *RecruitRepo) DeleteByAuthor(ctx context.Context, id, authorID uint64) error {
	const checkQ = `SELECT author_id FROM recruits WHERE id = ?`
	var actual uint64
	if err := r.db.QueryRowContext(ctx, checkQ, id).Scan(&actual); err != nil {
		if err == sql.ErrNoRows {
			return ErrRecruitNotFound
		}
		return err
	}
	if actual != authorID {
		return ErrForbidden
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM recruits WHERE id = ?`, id)
	return err
}
