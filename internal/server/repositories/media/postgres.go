package media

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/timeline/internal/common"
	"github.com/dmitrijs2005/timeline/internal/dbx"
	"github.com/dmitrijs2005/timeline/internal/server/models"
)

// PostgresRepository implements attachment storage over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts m and fills its ID and CreatedAt. An unknown event id is
// reported as common.ErrorNotFound.
func (r *PostgresRepository) Create(ctx context.Context, m *models.Media) (*models.Media, error) {
	query := `
		INSERT INTO media (event_id, type, filename, url, storage_key, content_type, size)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		m.EventID, string(m.Type), m.Filename, m.URL, m.StorageKey, m.ContentType, m.Size).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		if dbx.IsForeignKeyViolation(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

const selectMedia = `
		SELECT id, event_id, type, filename, url, storage_key, content_type, size, created_at
		FROM media
	`

type scanner interface {
	Scan(dest ...any) error
}

func scanMedia(s scanner) (*models.Media, error) {
	m := &models.Media{}
	var typ string
	if err := s.Scan(&m.ID, &m.EventID, &typ, &m.Filename, &m.URL, &m.StorageKey, &m.ContentType, &m.Size, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Type = models.MediaType(typ)
	return m, nil
}

// GetByID returns a single attachment or common.ErrorNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Media, error) {
	query := selectMedia + `WHERE id = $1`
	m, err := scanMedia(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

// ListByEvent returns all attachments of eventID.
func (r *PostgresRepository) ListByEvent(ctx context.Context, eventID string) ([]*models.Media, error) {
	query := selectMedia + `WHERE event_id = $1 ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to select media: %w", err)
	}
	defer rows.Close()

	result := []*models.Media{}
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes an attachment by id. Exactly one row must be affected.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM media WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
