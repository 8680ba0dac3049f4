package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/timeline/internal/client/api"
	"github.com/dmitrijs2005/timeline/internal/client/models"
	"github.com/dmitrijs2005/timeline/internal/client/services"
	"github.com/dmitrijs2005/timeline/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// authService is implemented by *services.AuthService.
type authService interface {
	Register(ctx context.Context, in api.RegisterInput) (*api.User, error)
	Login(ctx context.Context, email, password string) (*models.Session, bool, error)
	RestoreSession(ctx context.Context) (*models.Session, error)
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error
}

// timelineService is implemented by *services.TimelineService.
type timelineService interface {
	SetOnline(v bool)
	Online() bool

	ListEvents(ctx context.Context) ([]*models.Event, error)
	ClientEvents(ctx context.Context, userID string) ([]*models.Event, error)
	GetEvent(ctx context.Context, id string) (*models.Event, []*models.Comment, error)
	CreateEvent(ctx context.Context, in models.EventInput) (*models.Event, error)
	UpdateEvent(ctx context.Context, id string, upd models.EventUpdate) (*models.Event, error)
	DeleteEvent(ctx context.Context, id string) error

	AttachFile(ctx context.Context, eventID, path string, mediaType models.MediaType) (*models.Media, error)
	AttachLink(ctx context.Context, eventID string, mediaType models.MediaType, filename, url string) (*models.Media, error)
	DetachMedia(ctx context.Context, mediaID string) error
	Download(ctx context.Context, mediaID string) (string, error)

	AddComment(ctx context.Context, eventID, content string, question bool) (*models.Comment, error)
	DeleteComment(ctx context.Context, id string) error

	Export(ctx context.Context, req api.ExportRequest) (string, error)
	Sync(ctx context.Context) (services.SyncReport, error)
}

type App struct {
	auth     authService
	timeline timelineService
	logger   logging.Logger

	reader *bufio.Reader
	out    io.Writer

	mu      sync.Mutex
	session *models.Session
	mode    Mode
}

func NewApp(auth authService, timeline timelineService, l logging.Logger, in io.Reader, out io.Writer) *App {
	return &App{
		auth:     auth,
		timeline: timeline,
		logger:   l.With("module", "cli"),
		reader:   bufio.NewReader(in),
		out:      out,
	}
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	a.timeline.SetOnline(mode == ModeOnline)
	if changed {
		a.println("Switched to", mode, "mode")
	}
}

func (a *App) setSession(s *models.Session) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.session = s
}

func (a *App) currentSession() *models.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

func (a *App) isLoggedIn() bool {
	return a.currentSession() != nil
}

func (a *App) getStatus() string {
	s := ""
	if sess := a.currentSession(); sess != nil {
		s = sess.Email + " "
	}
	if m := a.Mode(); m != "" {
		s += string(m)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// checkOnline pings the server once and updates the mode.
func (a *App) checkOnline(ctx context.Context, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	err := a.auth.Ping(ctx)
	cancel()

	if err != nil {
		a.setMode(ModeOffline)
		return
	}
	a.setMode(ModeOnline)
}

// Run resumes a saved session if there is one, watches connectivity and
// serves the REPL until the user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context, checkInterval time.Duration) {
	a.println("Welcome to Relationship Timeline (type 'help' for commands)")

	a.checkOnline(ctx, 3*time.Second)

	sess, err := a.auth.RestoreSession(ctx)
	switch {
	case err == nil:
		a.setSession(sess)
		a.printf("Resumed session of %s\n", sess.Email)
	case errors.Is(err, services.ErrNotLoggedIn):
	default:
		a.notify(ctx, err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go a.StartOnlineStatusWatcher(watchCtx, checkInterval)

	runREPL(ctx, a, a.getStatus, a.reader, a.out)
}

func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.checkOnline(ctx, 3*time.Second)
		case <-ctx.Done():
			return
		}
	}
}
