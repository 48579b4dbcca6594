package notifications

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store interface {
	Insert(ctx context.Context, n *Notification) error
	// Get returns nil when the notification does not exist.
	Get(ctx context.Context, id string) (*Notification, error)
	ListByRecipient(ctx context.Context, r Recipient, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, id string) error
	CountUnread(ctx context.Context, r Recipient) (int, error)
}

type Repo struct{ DB *pgxpool.Pool }

var _ Store = (*Repo)(nil)

func (r *Repo) Insert(ctx context.Context, n *Notification) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO notifications(id, user_id, group_tag, type, body, read, created_at)
		VALUES ($1, NULLIF($2,''), NULLIF($3,''), $4, $5, $6, $7)`,
		n.ID, n.UserID, n.Group, n.Type, n.Body, n.Read, n.CreatedAt)
	return err
}

func (r *Repo) Get(ctx context.Context, id string) (*Notification, error) {
	var n Notification
	err := r.DB.QueryRow(ctx, `
		SELECT id, COALESCE(user_id,''), COALESCE(group_tag,''), type, body, read, created_at
		FROM notifications WHERE id = $1`, id).
		Scan(&n.ID, &n.UserID, &n.Group, &n.Type, &n.Body, &n.Read, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &n, nil
}

func (r *Repo) ListByRecipient(ctx context.Context, rcpt Recipient, limit int) ([]Notification, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, COALESCE(user_id,''), COALESCE(group_tag,''), type, body, read, created_at
		FROM notifications
		WHERE (user_id = NULLIF($1,'')) OR (group_tag = NULLIF($2,''))
		ORDER BY created_at DESC
		LIMIT $3`, rcpt.UserID, rcpt.Group, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Group, &n.Type, &n.Body, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *Repo) MarkRead(ctx context.Context, id string) error {
	_, err := r.DB.Exec(ctx, `UPDATE notifications SET read = true WHERE id = $1`, id)
	return err
}

func (r *Repo) CountUnread(ctx context.Context, rcpt Recipient) (int, error) {
	var n int
	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications
		WHERE read = false
		  AND ((user_id = NULLIF($1,'')) OR (group_tag = NULLIF($2,'')))`,
		rcpt.UserID, rcpt.Group).Scan(&n)
	return n, err
}
