package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/timeline/internal/client/models"
	"github.com/dmitrijs2005/timeline/internal/common"
)

var errUsage = errors.New("usage")

// argument returns args[0] or prints usage.
func (a *App) argument(args []string, usage string) (string, error) {
	if len(args) == 0 || args[0] == "" {
		a.println("Usage:", usage)
		return "", errUsage
	}
	return args[0], nil
}

// events loads the caller's events, or a client's when userID is given.
func (a *App) events(ctx context.Context, args []string) ([]*models.Event, error) {
	if len(args) > 0 {
		if !a.currentSession().IsLawyer() {
			err := common.Forbidden("only lawyers can view other timelines")
			a.notify(ctx, err)
			return nil, err
		}
		events, err := a.timeline.ClientEvents(ctx, args[0])
		if err != nil {
			a.notify(ctx, err)
		}
		return events, err
	}

	events, err := a.timeline.ListEvents(ctx)
	if err != nil {
		a.notify(ctx, err)
	}
	return events, err
}

func (a *App) List(ctx context.Context, args []string) error {
	events, err := a.events(ctx, args)
	if err != nil {
		return err
	}
	renderList(a.out, events)
	return nil
}

func (a *App) Timeline(ctx context.Context, args []string) error {
	events, err := a.events(ctx, args)
	if err != nil {
		return err
	}
	renderTimeline(a.out, events)
	return nil
}

func (a *App) Show(ctx context.Context, args []string) error {
	id, err := a.argument(args, "show <eventId>")
	if err != nil {
		return err
	}
	e, comments, err := a.timeline.GetEvent(ctx, id)
	if err != nil {
		a.notify(ctx, err)
		return err
	}
	renderEvent(a.out, e, comments)
	return nil
}

func (a *App) Add(ctx context.Context) error {
	title, err := getSimpleText(a.reader, "Title", a.out)
	if err != nil {
		return err
	}
	date, err := getSimpleText(a.reader, "Date (YYYY-MM-DD)", a.out)
	if err != nil {
		return err
	}
	description, err := getMultiline(a.reader, "Description", a.out)
	if err != nil {
		return err
	}

	e, err := a.timeline.CreateEvent(ctx, models.EventInput{Title: title, Description: description, Date: date})
	if err != nil {
		a.notify(ctx, err)
		return err
	}
	if e.Pending {
		a.success("Event saved locally as %s; run sync when online", e.ID)
	} else {
		a.success("Event created: %s", e.ID)
	}
	return nil
}

// optional returns nil for an empty answer so the field is kept.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (a *App) Edit(ctx context.Context, args []string) error {
	id, err := a.argument(args, "edit <eventId>")
	if err != nil {
		return err
	}
	e, _, err := a.timeline.GetEvent(ctx, id)
	if err != nil {
		a.notify(ctx, err)
		return err
	}

	a.println("Press Enter to keep the current value.")
	title, err := getSimpleText(a.reader, fmt.Sprintf("Title [%s]", e.Title), a.out)
	if err != nil {
		return err
	}
	date, err := getSimpleText(a.reader, fmt.Sprintf("Date [%s]", e.Date.Format(common.DateLayout)), a.out)
	if err != nil {
		return err
	}
	description, err := getMultiline(a.reader, "Description (empty keeps the current one)", a.out)
	if err != nil {
		return err
	}

	upd := models.EventUpdate{Title: optional(title), Date: optional(date), Description: optional(description)}
	if upd.Title == nil && upd.Date == nil && upd.Description == nil {
		a.println("Nothing to change")
		return nil
	}
	if _, err := a.timeline.UpdateEvent(ctx, id, upd); err != nil {
		a.notify(ctx, err)
		return err
	}
	a.success("Event updated")
	return nil
}

func (a *App) Delete(ctx context.Context, args []string) error {
	id, err := a.argument(args, "delete <eventId>")
	if err != nil {
		return err
	}
	ok, err := getConfirmation(a.reader, "Delete the event with its attachments and comments?", false, a.out)
	if err != nil || !ok {
		return err
	}
	if err := a.timeline.DeleteEvent(ctx, id); err != nil {
		a.notify(ctx, err)
		return err
	}
	a.success("Event deleted")
	return nil
}
