// Package httpapi exposes a Browser over HTTP: JSON snapshots, click
// endpoints and a server-sent event stream of state changes.
package httpapi

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/koustreak/schemascope/internal/browser"
	"github.com/koustreak/schemascope/internal/errs"
	"github.com/koustreak/schemascope/internal/logger"
	"github.com/koustreak/schemascope/internal/rules"
	"golang.org/x/sync/errgroup"
)

// Browser is the subset of *browser.Browser the handlers drive. Subscribe
// must queue the current snapshot before any later one.
type Browser interface {
	Snapshot() browser.Snapshot
	Subscribe() (<-chan browser.Snapshot, func())
	SetDbIndex(idx rules.DbIndex)
	Refresh()
	ClickTable(name string, force bool)
	SetTable(name string)
	ClickColumn(table, column string)
	DismissNotification()
}

// Catalog lists the configured databases. *rules.Catalog implements it.
type Catalog interface {
	Len() int
	Name(idx rules.DbIndex) string
}

var (
	_ Browser = (*browser.Browser)(nil)
	_ Catalog = (*rules.Catalog)(nil)
)

const shutdownTimeout = 5 * time.Second

// Server serves one Browser.
type Server struct {
	browser Browser
	catalog Catalog
	log     *logger.Logger
	router  chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithCatalog enables GET /api/databases.
func WithCatalog(c Catalog) Option {
	return func(s *Server) { s.catalog = c }
}

// New builds the router for b.
func New(b Browser, opts ...Option) *Server {
	s := &Server{browser: b, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Component("httpapi")

	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		s.requestLogger,
	)
	s.routes(r)
	s.router = r
	return s
}

func (s *Server) routes(r chi.Router) {
	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/events", s.handleEvents)
		r.Get("/databases", s.handleDatabases)

		r.Post("/db/{index}", s.handleSetDbIndex)
		r.Post("/refresh", s.handleRefresh)
		r.Put("/table", s.handleSetTable)
		r.Post("/tables/{table}/click", s.handleClickTable)
		r.Post("/tables/{table}/columns/{column}/click", s.handleClickColumn)
		r.Delete("/notification", s.handleDismiss)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: s,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		s.log.With().Str("addr", addr).Logger().Info("starting http server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return errs.Wrap(errs.ErrKindConnectionFailed, "http server error", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		s.log.Debug("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.With().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Str("duration", time.Since(start).String()).
			Logger().
			Debug("request")
	})
}
