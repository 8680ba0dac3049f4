// Package users declares the user repository contract and its PostgreSQL
// implementation.
package users

import (
	"context"

	"github.com/dmitrijs2005/timeline/internal/server/models"
)

type Repository interface {
	// Create inserts user and fills its ID and timestamps. A taken email
	// yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	// GetByEmail looks up a user by case-folded email.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// UpdatePasswordHash replaces the stored hash of user id.
	UpdatePasswordHash(ctx context.Context, id string, hash string) error
}
