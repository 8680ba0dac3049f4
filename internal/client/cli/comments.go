package cli

import "context"

// Comment adds a private note to an event, or removes one with
// "comment delete <id>".
func (a *App) Comment(ctx context.Context, args []string) error {
	if len(args) > 0 && args[0] == "delete" {
		id, err := a.argument(args[1:], "comment delete <commentId>")
		if err != nil {
			return err
		}
		if err := a.timeline.DeleteComment(ctx, id); err != nil {
			a.notify(ctx, err)
			return err
		}
		a.success("Comment removed")
		return nil
	}

	eventID, err := a.argument(args, "comment <eventId>")
	if err != nil {
		return err
	}
	text, err := getMultiline(a.reader, "Comment", a.out)
	if err != nil {
		return err
	}
	question, err := getConfirmation(a.reader, "Is this a question for your lawyer?", false, a.out)
	if err != nil {
		return err
	}

	if _, err := a.timeline.AddComment(ctx, eventID, text, question); err != nil {
		a.notify(ctx, err)
		return err
	}
	a.success("Comment saved")
	return nil
}
