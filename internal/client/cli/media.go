package cli

import (
	"context"
	"net/url"
	"path"
	"strings"

	"github.com/dmitrijs2005/timeline/internal/client/models"
)

func isLink(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Attach adds a local file or an external link to an event.
func (a *App) Attach(ctx context.Context, args []string) error {
	eventID, err := a.argument(args, "attach <eventId>")
	if err != nil {
		return err
	}
	source, err := getSimpleText(a.reader, "File path or http(s) link", a.out)
	if err != nil {
		return err
	}
	if source == "" {
		a.println("Nothing attached")
		return nil
	}

	var m *models.Media
	if isLink(source) {
		m, err = a.attachLink(ctx, eventID, source)
	} else {
		var kind string
		kind, err = getSimpleText(a.reader, "Type: image or document (empty to detect)", a.out)
		if err != nil {
			return err
		}
		m, err = a.timeline.AttachFile(ctx, eventID, source, models.MediaType(strings.ToLower(kind)))
	}
	if err != nil {
		a.notify(ctx, err)
		return err
	}

	if _, pending := m.Ref().(models.Pending); pending {
		a.success("%s attached locally (%s); it will be uploaded on sync", m.Filename, m.ID)
	} else {
		a.success("%s attached (%s)", m.Filename, m.ID)
	}
	return nil
}

func (a *App) attachLink(ctx context.Context, eventID, link string) (*models.Media, error) {
	def := ""
	if u, err := url.Parse(link); err == nil {
		def = path.Base(u.Path)
		if def == "/" || def == "." {
			def = ""
		}
	}

	prompt := "File name"
	if def != "" {
		prompt += " [" + def + "]"
	}
	filename, err := getSimpleText(a.reader, prompt, a.out)
	if err != nil {
		return nil, err
	}
	if filename == "" {
		filename = def
	}
	kind, err := getSimpleText(a.reader, "Type: image or document", a.out)
	if err != nil {
		return nil, err
	}
	return a.timeline.AttachLink(ctx, eventID, models.MediaType(strings.ToLower(kind)), filename, link)
}

func (a *App) Detach(ctx context.Context, args []string) error {
	id, err := a.argument(args, "detach <mediaId>")
	if err != nil {
		return err
	}
	if err := a.timeline.DetachMedia(ctx, id); err != nil {
		a.notify(ctx, err)
		return err
	}
	a.success("Attachment removed")
	return nil
}

func (a *App) Download(ctx context.Context, args []string) error {
	id, err := a.argument(args, "download <mediaId>")
	if err != nil {
		return err
	}
	p, err := a.timeline.Download(ctx, id)
	if err != nil {
		a.notify(ctx, err)
		return err
	}
	a.success("Saved to %s", p)
	return nil
}
