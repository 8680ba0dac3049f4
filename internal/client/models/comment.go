package models

import "time"

// Comment is a private note on an event. Comments never leave the local
// store. IsQuestion marks notes meant to be raised with the lawyer.
type Comment struct {
	ID         string
	EventID    string
	Content    string
	IsQuestion bool
	CreatedAt  time.Time
}
