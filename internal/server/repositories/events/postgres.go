package events

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/timeline/internal/common"
	"github.com/dmitrijs2005/timeline/internal/dbx"
	"github.com/dmitrijs2005/timeline/internal/server/models"
	"github.com/dmitrijs2005/timeline/internal/timex"
)

// PostgresRepository implements event storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectEvents = `
		SELECT e.id, e.user_id, e.title, e.description, e.event_date, e.created_at, e.updated_at,
			COALESCE(string_agg(m.id::text, ',' ORDER BY m.created_at), '')
		FROM events e
		LEFT JOIN media m ON m.event_id = e.id
	`

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (*models.Event, error) {
	e := &models.Event{}
	var mediaIDs string
	if err := s.Scan(&e.ID, &e.UserID, &e.Title, &e.Description, &e.Date, &e.CreatedAt, &e.UpdatedAt, &mediaIDs); err != nil {
		return nil, err
	}
	e.Date = timex.NormalizeDate(e.Date)
	e.MediaIDs = splitIDs(mediaIDs)
	return e, nil
}

func splitIDs(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}

// Create inserts event and fills its ID and timestamps.
func (r *PostgresRepository) Create(ctx context.Context, event *models.Event) (*models.Event, error) {
	query := `
		INSERT INTO events (user_id, title, description, event_date)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		event.UserID, event.Title, event.Description, timex.NormalizeDate(event.Date)).
		Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	event.Date = timex.NormalizeDate(event.Date)
	if event.MediaIDs == nil {
		event.MediaIDs = []string{}
	}
	return event, nil
}

// GetByID returns a single event. If not found, it returns common.ErrorNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	query := selectEvents + `
		WHERE e.id = $1
		GROUP BY e.id
	`
	e, err := scanEvent(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return e, nil
}

// ListByUser returns all events owned by userID in ascending date order.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Event, error) {
	query := selectEvents + `
		WHERE e.user_id = $1
		GROUP BY e.id
		ORDER BY e.event_date ASC, e.created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select events: %w", err)
	}
	defer rows.Close()

	result := []*models.Event{}
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

// Update overwrites the mutable fields of event and refreshes UpdatedAt.
func (r *PostgresRepository) Update(ctx context.Context, event *models.Event) error {
	query := `
		UPDATE events SET title = $2, description = $3, event_date = $4, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		event.ID, event.Title, event.Description, timex.NormalizeDate(event.Date)).Scan(&event.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Delete removes the event by id. Exactly one row must be affected.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM events WHERE id = $1`
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
