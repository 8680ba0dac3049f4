// Package models defines the records kept by the terminal client.
package models

import "time"

// Event is a timeline entry as stored locally. Events created while offline
// carry a local id and Pending set until they are pushed to the server.
type Event struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Date        time.Time
	Pending     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Media lists the attachments in creation order. Filled by readers that
	// join media; repositories leave it nil.
	Media []*Media
}

// EventInput carries user-entered event fields before validation.
type EventInput struct {
	Title       string
	Description string
	Date        string
}

// EventUpdate is a partial edit; nil fields are kept.
type EventUpdate struct {
	Title       *string
	Description *string
	Date        *string
}
