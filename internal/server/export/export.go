// Package export renders a user's timeline as a PDF or DOCX document.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/timeline/internal/server/models"
	"github.com/gosimple/slug"
)

// DefaultTitle is used when the caller leaves the document title blank.
const DefaultTitle = "Relationship Timeline"

// DateLayout is how event dates are printed in documents.
const DateLayout = "January 2, 2006"

type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// ParseFormat accepts exactly "pdf" or "docx".
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatPDF, FormatDOCX:
		return Format(s), nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// ContentType returns the MIME type of documents in format f.
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	}
	return "application/octet-stream"
}

// Timeline is the render-ready view of the exported events.
type Timeline struct {
	Title   string
	Entries []Entry
}

type Entry struct {
	Title       string
	Date        time.Time
	Description string
	Attachments []Attachment
}

type Attachment struct {
	Filename string
	Type     models.MediaType
}

// Options selects which attachment types are listed.
type Options struct {
	IncludeImages    bool
	IncludeDocuments bool
}

func (o Options) includes(t models.MediaType) bool {
	switch t {
	case models.MediaImage:
		return o.IncludeImages
	case models.MediaDocument:
		return o.IncludeDocuments
	}
	return false
}

// Build assembles a Timeline from events (already in display order) and
// their media keyed by event id, keeping only the attachment types allowed
// by opts.
func Build(title string, events []*models.Event, media map[string][]*models.Media, opts Options) *Timeline {
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}

	tl := &Timeline{Title: title, Entries: make([]Entry, 0, len(events))}
	for _, e := range events {
		entry := Entry{Title: e.Title, Date: e.Date, Description: e.Description}
		for _, m := range media[e.ID] {
			if opts.includes(m.Type) {
				entry.Attachments = append(entry.Attachments, Attachment{Filename: m.Filename, Type: m.Type})
			}
		}
		tl.Entries = append(tl.Entries, entry)
	}
	return tl
}

// Document is a rendered export ready to be streamed.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Render produces the document for tl in format f. day stamps the filename.
func Render(tl *Timeline, f Format, day time.Time) (*Document, error) {
	var (
		data []byte
		err  error
	)
	switch f {
	case FormatPDF:
		data, err = RenderPDF(tl)
	case FormatDOCX:
		data, err = RenderDOCX(tl)
	default:
		return nil, fmt.Errorf("unsupported export format %q", f)
	}
	if err != nil {
		return nil, err
	}
	return &Document{
		Filename:    Filename(tl.Title, f, day),
		ContentType: f.ContentType(),
		Data:        data,
	}, nil
}

// Filename returns <slug(title)>-<format>-<yyyy-mm-dd>.<format>.
func Filename(title string, f Format, day time.Time) string {
	s := slug.Make(title)
	if s == "" {
		s = slug.Make(DefaultTitle)
	}
	return fmt.Sprintf("%s-%s-%s.%s", s, f, day.UTC().Format("2006-01-02"), f)
}
