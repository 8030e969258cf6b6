// Package server wires the HTTP surface: public pages, the admin console,
// the job board, the JSON API and the RSS feed.
package server

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.960 generate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/nomadhub1/nomadhub/internal/config"
	"github.com/nomadhub1/nomadhub/internal/digest"
	"github.com/nomadhub1/nomadhub/internal/publish"
	"github.com/nomadhub1/nomadhub/internal/render"
	"github.com/nomadhub1/nomadhub/internal/session"
	"github.com/nomadhub1/nomadhub/internal/upload"
)

// Deps are the collaborators the server is built from
type Deps struct {
	Config    *config.Config
	Store     Store
	Publisher *publish.Publisher
	Renderer  *render.Renderer
	Sessions  *session.Manager
	Uploads   *upload.Handler
	Digest    *digest.Assembler
	Logger    *zap.Logger
}

// Server represents the HTTP server
type Server struct {
	router    *chi.Mux
	http      *http.Server
	store     Store
	publisher *publish.Publisher
	renderer  *render.Renderer
	sessions  *session.Manager
	uploads   *upload.Handler
	digest    *digest.Assembler
	config    *config.Config
	log       *zap.Logger
	limiter   *RateLimiter
}

// New creates a new server instance
func New(d Deps) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		store:     d.Store,
		publisher: d.Publisher,
		renderer:  d.Renderer,
		sessions:  d.Sessions,
		uploads:   d.Uploads,
		digest:    d.Digest,
		config:    d.Config,
		log:       d.Logger.Named("server"),
		limiter:   NewRateLimiter(d.Config.LoginRateLimit, time.Minute),
	}

	s.setupRoutes()
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", d.Config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	r := s.router

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(s.sessions.Load)

	r.NotFound(s.notFound)

	// Static assets and uploads
	s.mountStatic(r)

	// Health check
	r.Get("/health", s.handleHealth)

	r.Get("/", s.handleHome)
	r.Get("/rss.xml", s.handleRSS)

	r.Route("/articles", func(r chi.Router) {
		r.Get("/", s.handleArticleList)
		r.Get("/search", s.handleSearch)
		r.Get("/{slug}", s.handleArticleDetail)

		r.Group(func(r chi.Router) {
			r.Use(s.sessions.RequireAdmin)
			r.Get("/new", s.handleArticleNew)
			r.Post("/", s.handleArticleCreate)
			r.Get("/edit/{id}", s.handleArticleEdit)
			r.Post("/update/{id}", s.handleArticleUpdate)
			r.Post("/delete/{id}", s.handleArticleDelete)
		})
	})

	r.Get("/categories", s.handleCategories)
	r.Get("/categories/{slug}", s.handleCategory)
	r.Get("/niches", s.handleNiches)
	r.Get("/niches/{slug}", s.handleNiche)

	r.Get("/legal/{page}", s.handleLegal)
	r.Get("/company/{page}", s.handleCompany)
	r.Get("/affiliate", s.handleAffiliate)

	r.Route("/job", func(r chi.Router) {
		r.Get("/", s.handleJobList)

		r.Group(func(r chi.Router) {
			r.Use(s.sessions.RequireAdmin)
			r.Get("/new", s.handleJobNew)
			r.Post("/new", s.handleJobCreate)
			r.Get("/{id}/edit", s.handleJobEdit)
			r.Post("/{id}/edit", s.handleJobUpdate)
			r.Post("/{id}/delete", s.handleJobDelete)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Get("/login", s.handleLoginPage)
		r.With(s.limiter.Limit).Post("/login", s.handleLogin)
		r.Get("/logout", s.handleLogout)
		r.Post("/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.sessions.RequireAdmin)
			r.Get("/dashboard", s.handleDashboard)
			r.Post("/categories", s.handleCategoryCreate)
			r.Get("/users", s.handleUserList)
			r.Get("/users/{id}/edit", s.handleUserEdit)
			r.Post("/users/{id}/edit", s.handleUserUpdate)
			r.Post("/users/{id}/delete", s.handleUserDelete)
			r.Get("/reset", s.handleResetPage)
			r.Post("/reset", s.handleReset)
			r.Get("/digest", s.handleDigest)
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.config.CORSAllowedOrigins,
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
		r.Get("/search", s.handleAPISearch)
		r.With(s.sessions.RequireAdmin).Get("/digest", s.handleDigest)
	})

	// Clean niche URLs like /nomad-travel-visas
	r.Get("/{slug}", s.handleNiche)
}

// Router returns the Chi router
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.log.Info("starting server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.log.Warn("health check failed", zap.Error(err))
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// page builds the layout data shared by every HTML page
func (s *Server) page(r *http.Request, title string) pageMeta {
	niches, err := s.store.GetAllNiches(r.Context())
	if err != nil {
		s.log.Warn("failed to load navigation niches", zap.Error(err))
	}
	return pageMeta{
		Title:    title,
		SiteName: s.config.SiteName,
		Niches:   niches,
		User:     session.FromContext(r.Context()),
		Flash:    s.sessions.ConsumeFlash(r),
	}
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, meta pageMeta, body templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := Layout(meta, body).Render(r.Context(), w); err != nil {
		s.log.Error("failed to render page", zap.String("path", r.URL.Path), zap.Error(err))
	}
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusNotFound, s.page(r, "Page not found"), ErrorPage("Page not found", "The page you are looking for does not exist."))
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	s.log.Error(msg,
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err),
	)
	s.render(w, r, http.StatusInternalServerError, s.page(r, "Server error"), ErrorPage("Server error", msg))
}

// pathID parses a positive numeric URL parameter
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
