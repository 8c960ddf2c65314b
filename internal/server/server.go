// Package server wires the HTTP surface: session auth, the viewer API,
// the media gateway routes, and the admin CRUD surface.
package server

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vidgate/vidgate/internal/admin"
	"github.com/vidgate/vidgate/internal/auth"
	"github.com/vidgate/vidgate/internal/media"
	"github.com/vidgate/vidgate/internal/ratelimit"
	"github.com/vidgate/vidgate/internal/store"
)

type Config struct {
	Store     *store.Store
	MediaRoot string
	JWTSecret string
	BaseURL   string
}

type Server struct {
	router       chi.Router
	store        *store.Store
	authHandler  *auth.Handler
	mediaHandler *media.Handler
	adminHandler *admin.Handler
}

func New(cfg Config) *Server {
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required; set the environment variable")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	secureCookies := len(baseURL) >= 8 && baseURL[:8] == "https://"

	gateway := media.NewGateway(cfg.Store, cfg.MediaRoot)
	if err := gateway.EnsureDirs(); err != nil {
		log.Fatalf("media directories: %v", err)
	}

	s := &Server{
		store:        cfg.Store,
		authHandler:  auth.NewHandler(cfg.Store, cfg.JWTSecret, secureCookies),
		mediaHandler: media.NewHandler(cfg.Store, gateway),
		adminHandler: admin.NewHandler(cfg.Store, gateway),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(slogMiddleware)
	r.Use(securityHeaders(SecurityConfig{BaseURL: baseURL}))
	r.Use(s.authHandler.Middleware)
	s.router = r

	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)

	loginLimiter := ratelimit.NewLimiter(0.5, 5)
	s.router.Route("/api/auth", func(r chi.Router) {
		r.With(loginLimiter.Middleware).Post("/login", s.authHandler.Login)
		r.Post("/logout", s.authHandler.Logout)
	})

	s.router.With(auth.RequireAuth).Get("/api/videos", s.mediaHandler.List)
	s.router.Get("/api/watch/{id}", s.mediaHandler.Watch)

	// Media delivery re-authorizes on every request inside the handler;
	// anonymous callers get the same not-available outcome as denied ones.
	s.router.Get("/video/{rank}/{filename}", s.mediaHandler.StreamVideo)
	s.router.Head("/video/{rank}/{filename}", s.mediaHandler.StreamVideo)
	s.router.Get("/thumb/{rank}/{filename}", s.mediaHandler.StreamThumb)

	s.router.Route("/api/admin", func(r chi.Router) {
		r.Use(auth.RequireAdmin)
		r.Get("/users", s.adminHandler.ListUsers)
		r.Post("/users", s.adminHandler.CreateUser)
		r.Patch("/users/{username}", s.adminHandler.UpdateUser)
		r.Delete("/users/{username}", s.adminHandler.DeleteUser)
		r.Get("/videos", s.adminHandler.ListVideos)
		r.Post("/videos", s.adminHandler.Upload)
		r.Patch("/videos/{id}", s.adminHandler.UpdateVideo)
		r.Delete("/videos/{id}", s.adminHandler.DeleteVideo)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.store != nil {
		if err := s.store.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unhealthy","error":"metadata store unreachable"}`))
			return
		}
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
