package models

import "fmt"

// MediaRef points at an attachment either already stored on the server or
// still waiting for upload from this machine.
type MediaRef interface {
	fmt.Stringer
	mediaRef()
}

// Persisted references media known to the server by ID.
type Persisted struct {
	ID string
}

func (Persisted) mediaRef() {}

func (p Persisted) String() string { return p.ID }

// Pending references media that exists only in the local store. LocalRef is
// the local row id.
type Pending struct {
	LocalRef string
}

func (Pending) mediaRef() {}

func (p Pending) String() string { return "pending:" + p.LocalRef }
