// Package httpapi exposes the timeline services over HTTP using a chi router.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/timeline/internal/logging"
	"github.com/dmitrijs2005/timeline/internal/server/config"
	"github.com/dmitrijs2005/timeline/internal/server/export"
	"github.com/dmitrijs2005/timeline/internal/server/models"
	"github.com/dmitrijs2005/timeline/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
)

const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 10 * time.Second
)

type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.LoginResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Identity(ctx context.Context, userID string) (*models.Identity, error)
}

type EventService interface {
	List(ctx context.Context, caller *models.Identity, userID string) ([]*models.Event, error)
	Create(ctx context.Context, caller *models.Identity, in services.EventInput) (*models.Event, error)
	Get(ctx context.Context, caller *models.Identity, id string) (*models.Event, error)
	Update(ctx context.Context, caller *models.Identity, id string, in services.EventUpdate) (*models.Event, error)
	Delete(ctx context.Context, caller *models.Identity, id string) error
}

type MediaService interface {
	ListByEvent(ctx context.Context, caller *models.Identity, eventID string) ([]*models.Media, error)
	Get(ctx context.Context, caller *models.Identity, id string) (*models.Media, error)
	Upload(ctx context.Context, caller *models.Identity, in services.UploadInput) (*models.Media, error)
	AddLink(ctx context.Context, caller *models.Identity, in services.LinkInput) (*models.Media, error)
	Delete(ctx context.Context, caller *models.Identity, id string) error
}

type ExportService interface {
	Export(ctx context.Context, caller *models.Identity, in services.ExportSettings) (*export.Document, error)
}

// Pinger reports database reachability for the health check.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Services bundles the use cases served by the API.
type Services struct {
	Users  UserService
	Events EventService
	Media  MediaService
	Export ExportService
	DB     Pinger
}

type Server struct {
	address       string
	logger        logging.Logger
	svc           Services
	jwtSecret     []byte
	accessTTL     time.Duration
	production    bool
	authRateLimit int
	maxUploadSize int64
}

func NewHTTPServer(cfg *config.Config, l logging.Logger, svc Services) *Server {
	return &Server{
		address:       cfg.EndpointAddrHTTP,
		logger:        l.With("module", "http_server"),
		svc:           svc,
		jwtSecret:     []byte(cfg.SecretKey),
		accessTTL:     cfg.AccessTokenValidityDuration,
		production:    cfg.IsProduction(),
		authRateLimit: cfg.AuthRateLimit,
		maxUploadSize: cfg.MaxUploadSize,
	}
}

// rateLimit limits unauthenticated endpoints per client IP. A non-positive
// limit disables it.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	if s.authRateLimit <= 0 {
		return next
	}
	return httprate.Limit(
		s.authRateLimit,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
	)(next)
}

// Routes builds the request router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.rateLimit)
			r.Post("/auth/register", s.register)
			r.Post("/auth/login", s.login)
			r.Post("/auth/refresh", s.refresh)
			r.Post("/public/register", s.register)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Get("/auth/session", s.session)

			r.Route("/events", func(r chi.Router) {
				r.Get("/", s.listEvents)
				r.Post("/", s.createEvent)
				r.Get("/{id}", s.getEvent)
				r.Put("/{id}", s.updateEvent)
				r.Delete("/{id}", s.deleteEvent)
			})

			r.Get("/media", s.getMedia)
			r.Post("/media", s.createMedia)
			r.Delete("/media", s.deleteMedia)

			r.Post("/export", s.exportTimeline)
		})
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	stopped := make(chan error, 1)
	go func() {
		<-ctx.Done()
		s.logger.Info(context.Background(), "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		stopped <- srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-stopped
}
