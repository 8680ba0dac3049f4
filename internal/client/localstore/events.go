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
	"github.com/dmitrijs2005/timeline/internal/timex"
	"github.com/google/uuid"
)

const eventColumns = `id, user_id, title, description, event_date, pending, created_at, updated_at`

// EventRepository stores events. conn is set when the repository is bound
// to the pool, so Delete can open its own transaction.
type EventRepository struct {
	db   dbx.DBTX
	conn *sql.DB
}

func scanEvent(row interface{ Scan(dest ...any) error }) (*models.Event, error) {
	var (
		e                models.Event
		date             string
		created, updated int64
	)
	if err := row.Scan(&e.ID, &e.UserID, &e.Title, &e.Description, &date, &e.Pending, &created, &updated); err != nil {
		return nil, err
	}
	d, err := time.Parse(common.DateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("bad stored date %q: %w", date, err)
	}
	e.Date = d
	e.CreatedAt = time.Unix(0, created).UTC()
	e.UpdatedAt = time.Unix(0, updated).UTC()
	return &e, nil
}

func formatDate(t time.Time) string {
	return timex.NormalizeDate(t).Format(common.DateLayout)
}

// Create inserts e, generating an id when it has none.
func (r *EventRepository) Create(ctx context.Context, e *models.Event) (*models.Event, error) {
	out := *e
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	now := nowFunc().UTC()
	out.Date = timex.NormalizeDate(out.Date)
	out.CreatedAt, out.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx, `INSERT INTO events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		out.ID, out.UserID, out.Title, out.Description, formatDate(out.Date), out.Pending, now.UnixNano(), now.UnixNano())
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("failed to insert event: %w", err)
	}
	return &out, nil
}

// Upsert stores a copy received from the server, keeping its timestamps.
func (r *EventRepository) Upsert(ctx context.Context, e *models.Event) error {
	created, updated := e.CreatedAt, e.UpdatedAt
	if created.IsZero() {
		created = nowFunc()
	}
	if updated.IsZero() {
		updated = created
	}

	_, err := r.db.ExecContext(ctx, `INSERT INTO events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			title = excluded.title,
			description = excluded.description,
			event_date = excluded.event_date,
			pending = excluded.pending,
			updated_at = excluded.updated_at`,
		e.ID, e.UserID, e.Title, e.Description, formatDate(e.Date), e.Pending, created.UnixNano(), updated.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to upsert event: %w", err)
	}
	return nil
}

func (r *EventRepository) Get(ctx context.Context, id string) (*models.Event, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select event: %w", err)
	}
	return e, nil
}

func (r *EventRepository) list(ctx context.Context, where string, args ...any) ([]*models.Event, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events `+where+` ORDER BY event_date, created_at, rowid`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select events: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// List returns all events, oldest date first.
func (r *EventRepository) List(ctx context.Context) ([]*models.Event, error) {
	return r.list(ctx, "")
}

// ListPending returns events not yet pushed to the server.
func (r *EventRepository) ListPending(ctx context.Context) ([]*models.Event, error) {
	return r.list(ctx, "WHERE pending = 1")
}

// Update saves the editable fields of e.
func (r *EventRepository) Update(ctx context.Context, e *models.Event) error {
	now := nowFunc().UTC()
	res, err := r.db.ExecContext(ctx, `UPDATE events SET title = ?, description = ?, event_date = ?, updated_at = ? WHERE id = ?`,
		e.Title, e.Description, formatDate(e.Date), now.UnixNano(), e.ID)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	e.UpdatedAt = now
	return nil
}

func (r *EventRepository) deleteRow(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
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

// Delete removes the event with its media and comments atomically.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	del := func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE event_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete comments: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM media WHERE event_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete media: %w", err)
		}
		return (&EventRepository{db: tx}).deleteRow(ctx, id)
	}

	if r.conn != nil {
		return dbx.WithTx(ctx, r.conn, nil, del)
	}
	return del(ctx, r.db)
}
