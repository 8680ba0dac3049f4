package localstore

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/timeline/internal/client/models"
	"github.com/dmitrijs2005/timeline/internal/common"
	"github.com/dmitrijs2005/timeline/internal/dbx"
	"github.com/google/uuid"
)

type CommentRepository struct {
	db dbx.DBTX
}

func (r *CommentRepository) Create(ctx context.Context, c *models.Comment) (*models.Comment, error) {
	out := *c
	out.ID = uuid.NewString()
	out.CreatedAt = nowFunc().UTC()

	_, err := r.db.ExecContext(ctx, `INSERT INTO comments (id, event_id, content, is_question, created_at) VALUES (?, ?, ?, ?, ?)`,
		out.ID, out.EventID, out.Content, out.IsQuestion, out.CreatedAt.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to insert comment: %w", err)
	}
	return &out, nil
}

func (r *CommentRepository) ListByEvent(ctx context.Context, eventID string) ([]*models.Comment, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, event_id, content, is_question, created_at FROM comments
		WHERE event_id = ? ORDER BY created_at, rowid`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to select comments: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Comment, 0)
	for rows.Next() {
		var (
			c       models.Comment
			created int64
		)
		if err := rows.Scan(&c.ID, &c.EventID, &c.Content, &c.IsQuestion, &created); err != nil {
			return nil, err
		}
		c.CreatedAt = time.Unix(0, created).UTC()
		result = append(result, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *CommentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *CommentRepository) ReassignEvent(ctx context.Context, from, to string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE comments SET event_id = ? WHERE event_id = ?`, to, from); err != nil {
		return fmt.Errorf("failed to reassign comments: %w", err)
	}
	return nil
}
