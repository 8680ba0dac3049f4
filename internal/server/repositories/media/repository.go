// Package media declares the attachment repository contract and its
// PostgreSQL implementation.
package media

import (
	"context"

	"github.com/dmitrijs2005/timeline/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, m *models.Media) (*models.Media, error)
	GetByID(ctx context.Context, id string) (*models.Media, error)
	// ListByEvent returns the attachments of eventID in creation order.
	ListByEvent(ctx context.Context, eventID string) ([]*models.Media, error)
	Delete(ctx context.Context, id string) error
}
