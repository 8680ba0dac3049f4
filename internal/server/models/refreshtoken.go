package models

import "time"

// RefreshToken is a stored refresh token. The token itself is never kept,
// only its SHA-256 digest.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	Expires   time.Time
	CreatedAt time.Time
}
