package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	List(ctx context.Context, args []string) error
	Timeline(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Add(ctx context.Context) error
	Edit(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Attach(ctx context.Context, args []string) error
	Detach(ctx context.Context, args []string) error
	Comment(ctx context.Context, args []string) error
	Export(ctx context.Context) error
	Download(ctx context.Context, args []string) error
	Sync(ctx context.Context) error
}

const (
	helpLoggedOut = "Available commands: register, login, help, exit"
	helpLoggedIn  = `Available commands:
  list [userId]            list events (lawyers may pass a client's id)
  timeline [userId]        show events as a timeline grouped by year
  show <eventId>           event details, attachments and comments
  add                      create an event
  edit <eventId>           change title, date or description
  delete <eventId>         delete an event with its attachments
  attach <eventId>         attach a file or a link
  detach <mediaId>         remove an attachment
  download <mediaId>       save an uploaded attachment
  comment <eventId>        add a private note or question
  comment delete <id>      remove a note
  export                   export the timeline as PDF or DOCX
  sync                     push events created offline
  logout, help, exit`
)

// runREPL starts a simple read–eval–print loop for the timeline client.
//
// It reads a line from reader, parses the first token as the command and
// the rest as arguments, and dispatches to methods on 'a'. Unknown commands
// are reported back to the user. The loop exits on EOF, when ctx is done or
// when the user types "exit" or "quit".
//
// Errors returned by command handlers are ignored here; handlers report
// their own failures. This keeps the loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, w io.Writer) {
	for {
		if ctx.Err() != nil {
			return
		}
		fmt.Fprintf(w, "timeline %s> ", statusFn())
		line, err := readLine(reader)
		if err != nil {
			fmt.Fprintln(w)
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Fprintln(w, helpLoggedIn)
			} else {
				fmt.Fprintln(w, helpLoggedOut)
			}
			continue
		case "register":
			_ = a.Register(ctx)
			continue
		case "login":
			_ = a.Login(ctx)
			continue
		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return
		}

		if !a.isLoggedIn() {
			if isKnownCommand(cmd) {
				fmt.Fprintln(w, "Please log in first")
			} else {
				fmt.Fprintln(w, "Unknown command:", cmd)
			}
			continue
		}

		switch cmd {
		case "logout":
			_ = a.Logout(ctx)
		case "l", "list":
			_ = a.List(ctx, args)
		case "timeline":
			_ = a.Timeline(ctx, args)
		case "show":
			_ = a.Show(ctx, args)
		case "add":
			_ = a.Add(ctx)
		case "edit":
			_ = a.Edit(ctx, args)
		case "delete":
			_ = a.Delete(ctx, args)
		case "attach":
			_ = a.Attach(ctx, args)
		case "detach":
			_ = a.Detach(ctx, args)
		case "download":
			_ = a.Download(ctx, args)
		case "comment":
			_ = a.Comment(ctx, args)
		case "export":
			_ = a.Export(ctx)
		case "sync":
			_ = a.Sync(ctx)
		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}
	}
}

func isKnownCommand(cmd string) bool {
	switch cmd {
	case "logout", "l", "list", "timeline", "show", "add", "edit", "delete",
		"attach", "detach", "download", "comment", "export", "sync":
		return true
	}
	return false
}
