package cli

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/timeline/internal/client/api"
)

// Export asks for the document settings and saves the rendered file.
func (a *App) Export(ctx context.Context) error {
	format, err := getSimpleText(a.reader, "Format: pdf or docx (default pdf)", a.out)
	if err != nil {
		return err
	}
	if format == "" {
		format = "pdf"
	}
	title, err := getSimpleText(a.reader, "Title (default Relationship Timeline)", a.out)
	if err != nil {
		return err
	}
	images, err := getConfirmation(a.reader, "Include images?", true, a.out)
	if err != nil {
		return err
	}
	documents, err := getConfirmation(a.reader, "Include documents?", true, a.out)
	if err != nil {
		return err
	}

	p, err := a.timeline.Export(ctx, api.ExportRequest{
		Format:           strings.ToLower(format),
		Title:            title,
		IncludeImages:    images,
		IncludeDocuments: documents,
	})
	if err != nil {
		a.notify(ctx, err)
		return err
	}
	a.success("Exported to %s", p)
	return nil
}

// Sync pushes what was created offline.
func (a *App) Sync(ctx context.Context) error {
	report, err := a.timeline.Sync(ctx)
	if report.Events > 0 || report.Media > 0 {
		a.success("Synced %d event(s) and %d attachment(s)", report.Events, report.Media)
	}
	if err != nil {
		a.notify(ctx, err)
		return err
	}
	if report.Events == 0 && report.Media == 0 {
		a.success("Nothing to sync")
	}
	return nil
}
