// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package web serves the search results page over HTTP. Forms post to the
// session and redirect back to the page; long-running requests continue in
// the background while the page polls with a meta refresh.
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pdiddy/litreview/internal/render"
	"github.com/pdiddy/litreview/internal/session"
	"github.com/pdiddy/litreview/pkg/types"
)

// DefaultRefreshSeconds is how often the page reloads while a request is in
// flight.
const DefaultRefreshSeconds = 3

// Server is the HTTP front end for one session.
type Server struct {
	sess           *session.Session
	logger         *slog.Logger
	baseCtx        context.Context
	allowedOrigins []string
	refreshSeconds int
	requestLog     bool

	wg sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithBaseContext sets the context background requests run under. Cancel it
// to abort in-flight requests on shutdown.
func WithBaseContext(ctx context.Context) Option {
	return func(s *Server) {
		s.baseCtx = ctx
	}
}

// WithAllowedOrigins sets the CORS origins for the JSON endpoints.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// WithRefreshSeconds sets the loading page reload interval. Zero disables it.
func WithRefreshSeconds(n int) Option {
	return func(s *Server) {
		s.refreshSeconds = n
	}
}

// WithRequestLog enables chi's per-request access log.
func WithRequestLog(on bool) Option {
	return func(s *Server) {
		s.requestLog = on
	}
}

// New creates a server for sess.
func New(sess *session.Session, opts ...Option) *Server {
	s := &Server{
		sess:           sess,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		baseCtx:        context.Background(),
		allowedOrigins: []string{"*"},
		refreshSeconds: DefaultRefreshSeconds,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if s.requestLog {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/search", http.StatusFound)
	})
	r.Get("/search", s.handlePage)
	r.Post("/search", s.handleSubmit)
	r.Post("/retry", s.handleRetry)
	r.Post("/filters", s.handleFilters)

	r.Route("/papers/{id}", func(r chi.Router) {
		r.Post("/toggle", s.handleToggle)
		r.Get("/open", s.handleOpen)
	})

	r.Get("/api/state", s.handleState)

	return r
}

// Wait blocks until every background request has finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	data, err := render.NewPageData("", s.sess.Snapshot())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	data.RefreshSeconds = s.refreshSeconds

	var buf bytes.Buffer
	if err := render.Page(&buf, data); err != nil {
		s.serverError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	buf.WriteTo(w)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if p, err := s.sess.BeginSubmit(s.baseCtx, r.FormValue("q")); err == nil {
		s.start("search", p)
	}
	redirect(w, r, "/search")
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	if p, err := s.sess.BeginRetry(s.baseCtx); err == nil {
		s.start("retry", p)
	}
	redirect(w, r, "/search")
}

func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	yearFrom, err := formInt(r, "yearFrom")
	if err != nil {
		http.Error(w, "yearFrom must be a whole number", http.StatusBadRequest)
		return
	}
	yearTo, err := formInt(r, "yearTo")
	if err != nil {
		http.Error(w, "yearTo must be a whole number", http.StatusBadRequest)
		return
	}
	if yearFrom > 0 && yearTo > 0 && yearFrom > yearTo {
		http.Error(w, "yearFrom must not be after yearTo", http.StatusBadRequest)
		return
	}

	q := strings.TrimSpace(r.FormValue("q"))
	if q == "" {
		q = s.sess.Snapshot().Query
	}
	req := types.FilterRequest{Query: q, YearFrom: yearFrom, YearTo: yearTo}
	if p, err := s.sess.BeginApplyFilters(s.baseCtx, req); err == nil {
		s.start("filter", p)
	}
	redirect(w, r, "/search")
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	s.sess.ToggleExpand(id)
	redirect(w, r, "/search#paper-"+strconv.Itoa(id))
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	p, ok := types.FindPaper(s.sess.Snapshot().Papers, id)
	if !ok || !isWebURL(p.URL) {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, p.URL, http.StatusFound)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(s.sess.Snapshot()); err != nil {
		s.logger.Error("encoding state", slog.Any("error", err))
	}
}

// start sends a pending request in the background. The session is already
// Loading, so the page the form redirects to shows the loading panel.
func (s *Server) start(name string, p *session.Pending) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		err := p.Run()
		if err != nil && !errors.Is(err, session.ErrSuperseded) {
			s.logger.Debug("background request ended with error", slog.String("op", name), slog.Any("error", err))
		}
	}()
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("rendering page",
		slog.String("path", r.URL.Path),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Any("error", err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func redirect(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// formInt parses an optional integer form field. A blank field is zero.
func formInt(r *http.Request, key string) (int, error) {
	v := strings.TrimSpace(r.FormValue(key))
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func isWebURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
