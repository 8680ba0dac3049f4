// Package events declares the event repository contract and its PostgreSQL
// implementation.
package events

import (
	"context"

	"github.com/dmitrijs2005/timeline/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, event *models.Event) (*models.Event, error)
	// GetByID returns the event with its media ids in creation order.
	GetByID(ctx context.Context, id string) (*models.Event, error)
	// ListByUser returns every event of userID sorted by date, then by
	// creation time.
	ListByUser(ctx context.Context, userID string) ([]*models.Event, error)
	// Update stores title, description and date of event.
	Update(ctx context.Context, event *models.Event) error
	// Delete removes the event; its media rows go with it.
	Delete(ctx context.Context, id string) error
}
