package models

import (
	"strings"
	"time"
)

// MediaType classifies an attachment.
type MediaType string

const (
	MediaImage    MediaType = "image"
	MediaDocument MediaType = "document"
)

func (t MediaType) Valid() bool {
	return t == MediaImage || t == MediaDocument
}

// MediaTypeFromContentType maps a MIME type onto a MediaType: image/* is an
// image, everything else a document.
func MediaTypeFromContentType(contentType string) MediaType {
	if strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return MediaImage
	}
	return MediaDocument
}

// Media describes an attachment belonging to exactly one event.
//
// Uploaded files have a StorageKey in object storage; externally hosted
// references have only a URL. When read through the API, URL of an uploaded
// file is replaced with a presigned download link.
type Media struct {
	ID          string
	EventID     string
	Type        MediaType
	Filename    string
	URL         string
	StorageKey  string
	ContentType string
	Size        int64
	CreatedAt   time.Time
}
