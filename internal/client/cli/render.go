package cli

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/timeline/internal/client/models"
	"github.com/dmitrijs2005/timeline/internal/common"
)

const summaryWidth = 60

// summary returns the first line of s cut to width runes.
func summary(s string, width int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	r := []rune(s)
	return string(r[:width-1]) + "…"
}

func pendingMark(e *models.Event) string {
	if e.Pending {
		return " [not synced]"
	}
	return ""
}

func renderList(w io.Writer, events []*models.Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events yet. Use 'add' to create one.")
		return
	}
	for _, e := range events {
		fmt.Fprintf(w, "%s  %s  %s%s\n", e.Date.Format(common.DateLayout), e.ID, e.Title, pendingMark(e))
	}
}

// renderTimeline draws events top to bottom in date order with one header
// per year.
func renderTimeline(w io.Writer, events []*models.Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events yet. Use 'add' to create one.")
		return
	}

	year := -1
	for _, e := range events {
		if y := e.Date.Year(); y != year {
			if year != -1 {
				fmt.Fprintln(w, "│")
			}
			year = y
			fmt.Fprintf(w, "● %d\n", y)
		}
		fmt.Fprintln(w, "│")
		fmt.Fprintf(w, "├─ %s  %s%s\n", e.Date.Format("Jan 02"), e.Title, pendingMark(e))
		if d := summary(e.Description, summaryWidth); d != "" {
			fmt.Fprintf(w, "│    %s\n", d)
		}
		fmt.Fprintf(w, "│    id: %s\n", e.ID)
	}
	fmt.Fprintln(w, "╵")
}

func renderEvent(w io.Writer, e *models.Event, comments []*models.Comment) {
	fmt.Fprintf(w, "%s%s\n", e.Title, pendingMark(e))
	fmt.Fprintf(w, "Date: %s\n", e.Date.Format("January 2, 2006"))
	fmt.Fprintf(w, "ID:   %s\n\n", e.ID)
	fmt.Fprintln(w, e.Description)

	if len(e.Media) > 0 {
		fmt.Fprintln(w, "\nAttachments:")
		for _, m := range e.Media {
			state := ""
			if _, ok := m.Ref().(models.Pending); ok {
				state = " [not uploaded]"
			}
			id := m.ID
			if id == "" {
				id = m.RemoteID
			}
			fmt.Fprintf(w, "  • %s (%s) %s%s\n", m.Filename, m.Type, id, state)
		}
	}

	if len(comments) > 0 {
		fmt.Fprintln(w, "\nNotes:")
		for _, c := range comments {
			marker := "-"
			if c.IsQuestion {
				marker = "?"
			}
			fmt.Fprintf(w, "  %s %s  (%s)\n", marker, summary(c.Content, summaryWidth), c.ID)
		}
	}
}
