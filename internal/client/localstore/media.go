package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/timeline/internal/client/models"
	"github.com/dmitrijs2005/timeline/internal/common"
	"github.com/dmitrijs2005/timeline/internal/dbx"
	"github.com/google/uuid"
)

const mediaColumns = `id, event_id, remote_id, type, filename, url, local_path, content_type, size, created_at`

type MediaRepository struct {
	db dbx.DBTX
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func scanMedia(row interface{ Scan(dest ...any) error }) (*models.Media, error) {
	var (
		m        models.Media
		remoteID sql.NullString
		created  int64
	)
	if err := row.Scan(&m.ID, &m.EventID, &remoteID, &m.Type, &m.Filename, &m.URL, &m.LocalPath, &m.ContentType, &m.Size, &created); err != nil {
		return nil, err
	}
	m.RemoteID = remoteID.String
	m.CreatedAt = time.Unix(0, created).UTC()
	return &m, nil
}

// Create inserts m with a fresh local id.
func (r *MediaRepository) Create(ctx context.Context, m *models.Media) (*models.Media, error) {
	out := *m
	out.ID = uuid.NewString()
	out.CreatedAt = nowFunc().UTC()

	_, err := r.db.ExecContext(ctx, `INSERT INTO media (`+mediaColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		out.ID, out.EventID, nullable(out.RemoteID), out.Type, out.Filename, out.URL, out.LocalPath, out.ContentType, out.Size, out.CreatedAt.UnixNano())
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("failed to insert media: %w", err)
	}
	return &out, nil
}

// UpsertRemote stores server media keyed by its remote id and returns the
// local row.
func (r *MediaRepository) UpsertRemote(ctx context.Context, m *models.Media) (*models.Media, error) {
	if m.RemoteID == "" {
		return nil, fmt.Errorf("media has no remote id")
	}
	created := m.CreatedAt
	if created.IsZero() {
		created = nowFunc()
	}

	_, err := r.db.ExecContext(ctx, `INSERT INTO media (`+mediaColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(remote_id) DO UPDATE SET
			event_id = excluded.event_id,
			type = excluded.type,
			filename = excluded.filename,
			url = excluded.url,
			content_type = excluded.content_type,
			size = excluded.size`,
		uuid.NewString(), m.EventID, m.RemoteID, m.Type, m.Filename, m.URL, "", m.ContentType, m.Size, created.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to upsert media: %w", err)
	}
	return r.GetByRemoteID(ctx, m.RemoteID)
}

func (r *MediaRepository) get(ctx context.Context, column, value string) (*models.Media, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+mediaColumns+` FROM media WHERE `+column+` = ?`, value)
	m, err := scanMedia(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select media: %w", err)
	}
	return m, nil
}

func (r *MediaRepository) Get(ctx context.Context, id string) (*models.Media, error) {
	return r.get(ctx, "id", id)
}

func (r *MediaRepository) GetByRemoteID(ctx context.Context, remoteID string) (*models.Media, error) {
	return r.get(ctx, "remote_id", remoteID)
}

func (r *MediaRepository) list(ctx context.Context, where string, args ...any) ([]*models.Media, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+mediaColumns+` FROM media `+where+` ORDER BY created_at, rowid`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select media: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Media, 0)
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

func (r *MediaRepository) ListByEvent(ctx context.Context, eventID string) ([]*models.Media, error) {
	return r.list(ctx, "WHERE event_id = ?", eventID)
}

// ListPending returns attachments the server has not accepted yet.
func (r *MediaRepository) ListPending(ctx context.Context) ([]*models.Media, error) {
	return r.list(ctx, "WHERE remote_id IS NULL")
}

func (r *MediaRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM media WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete media: %w", err)
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

// ReassignEvent moves all media of event from to event to.
func (r *MediaRepository) ReassignEvent(ctx context.Context, from, to string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE media SET event_id = ? WHERE event_id = ?`, to, from); err != nil {
		return fmt.Errorf("failed to reassign media: %w", err)
	}
	return nil
}

// MarkUploaded records the server id and link of a pending attachment.
func (r *MediaRepository) MarkUploaded(ctx context.Context, id, remoteID, url string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE media SET remote_id = ?, url = ?, local_path = '' WHERE id = ?`, remoteID, url, id)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("failed to mark media uploaded: %w", err)
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
