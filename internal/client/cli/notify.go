package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/timeline/internal/client/services"
	"github.com/dmitrijs2005/timeline/internal/common"
)

const genericFailure = "an error occurred"

// userMessage picks the single line shown for err. Classified errors carry
// a message meant for the user; anything else is reported generically.
func userMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrOffline), errors.Is(err, services.ErrLocalDataNotAvailable):
		return err.Error()
	}

	var e *common.Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	if errors.Is(err, common.ErrorNotFound) {
		return "not found"
	}
	return genericFailure
}

// notify prints a failure toast and logs the full error.
func (a *App) notify(ctx context.Context, err error) {
	if err == nil {
		return
	}
	a.logger.Debug(ctx, "command failed", "error", err)
	a.println("✗ " + userMessage(err))
}

// success prints a confirmation toast.
func (a *App) success(format string, args ...any) {
	a.printf("✓ "+format+"\n", args...)
}
