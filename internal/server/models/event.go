package models

import "time"

// Event is a dated entry on a user's timeline. Date is always 00:00 UTC.
// MediaIDs lists attached media in creation order.
type Event struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Date        time.Time
	MediaIDs    []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

