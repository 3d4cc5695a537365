package repository

import (
	"context"
	"database/sql"

	"github.com/heewon-dev/community-hub/internal/model"
)

// MessageRepo provides data access to the recruit_messages table.
// Messages are written before any realtime fan-out happens, so the
// stored history is the source of truth and live delivery is
// best-effort on top of it.
type MessageRepo struct {
	db *sql.DB
}

// NewMessageRepo returns a new MessageRepo bound to the given database.
func NewMessageRepo(db *sql.DB) *MessageRepo { return &MessageRepo{db: db} }

// Create inserts a message and populates its generated ID and
// creation timestamp.
func (r *MessageRepo) Create(ctx context.Context, m *model.Message) error {
	const q = `INSERT INTO recruit_messages (recruit_id, author_id, content) VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, m.RecruitID, m.AuthorID, m.Content)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	const sel = `SELECT created_at FROM recruit_messages WHERE id = ?`
	return r.db.QueryRowContext(ctx, sel, m.ID).Scan(&m.CreatedAt)
}

// ListByRecruit returns the newest messages of a recruit room, newest
// first, capped at limit (defaulting to 50 for non-positive values).
func (r *MessageRepo) ListByRecruit(ctx context.Context, recruitID uint64, limit int) ([]model.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	const q = `SELECT id, recruit_id, author_id, content, created_at
	           FROM recruit_messages
	           WHERE recruit_id = ?
	           ORDER BY id DESC
	           LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, recruitID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	msgs := make([]model.Message, 0, limit)
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.RecruitID, &m.AuthorID, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
