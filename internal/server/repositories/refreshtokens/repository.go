// Package refreshtokens persists the opaque refresh tokens handed out at
// login. Only a digest of each token is stored.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/timeline/internal/server/models"
)

type Repository interface {
	// Create records token for userID, valid for validity from now.
	Create(ctx context.Context, userID string, token string, validity time.Duration) error

	// Find returns the record of token or common.ErrorNotFound.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete consumes token. It returns common.ErrorNotFound when the token
	// is unknown or was already consumed, so only one caller can rotate it.
	Delete(ctx context.Context, token string) error

	// DeleteExpired purges the expired tokens of userID.
	DeleteExpired(ctx context.Context, userID string) error
}
