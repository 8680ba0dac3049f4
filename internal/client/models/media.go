package models

import "time"

type MediaType string

const (
	MediaImage    MediaType = "image"
	MediaDocument MediaType = "document"
)

func (t MediaType) Valid() bool {
	return t == MediaImage || t == MediaDocument
}

// Media is an attachment of a local event. RemoteID is empty until the
// server has accepted it. LocalPath names the file to upload for pending
// attachments; URL holds the link for externally hosted ones.
type Media struct {
	ID          string
	EventID     string
	RemoteID    string
	Type        MediaType
	Filename    string
	URL         string
	LocalPath   string
	ContentType string
	Size        int64
	CreatedAt   time.Time
}

// Ref reports whether m is known to the server.
func (m *Media) Ref() MediaRef {
	if m.RemoteID != "" {
		return Persisted{ID: m.RemoteID}
	}
	return Pending{LocalRef: m.ID}
}
