package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/flowdeck/flowdeck/internal/db"
	"github.com/flowdeck/flowdeck/internal/flows"
	"github.com/flowdeck/flowdeck/internal/live"
	"github.com/flowdeck/flowdeck/internal/render"
	"github.com/flowdeck/flowdeck/internal/semantic"
	"github.com/flowdeck/flowdeck/internal/tags"
	"github.com/flowdeck/flowdeck/internal/users"
)

// Config holds server configuration.
type Config struct {
	Port     int
	DataDir  string // directory for the SQLite database
	AllowAll bool   // allow all CORS origins (dev mode)
}

// Server is the flowdeck API server.
type Server struct {
	cfg        Config
	db         *db.DB
	index      *semantic.Index // nil when no embedder is configured
	hub        *live.Hub
	router     chi.Router
	httpServer *http.Server
}

// New creates a server with all dependencies wired. index may be nil.
func New(cfg Config, database *db.DB, index *semantic.Index) *Server {
	s := &Server{
		cfg:   cfg,
		db:    database,
		index: index,
		hub:   live.NewHub(),
	}

	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	userStore := users.NewStore(s.db)
	r.Use(userStore.Middleware)

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	flowStore := flows.NewStore(s.db)
	renderer := render.New()

	users.RegisterRoutes(r, userStore)
	flows.RegisterRoutes(r, flowStore, renderer, s.hub)
	tags.RegisterRoutes(r, tags.NewStore(s.db))
	semantic.RegisterRoutes(r, s.index)

	r.Get("/ws/flows", s.hub.ServeHTTP)

	return r
}

// Router returns the chi router for registering additional routes.
func (s *Server) Router() chi.Router { return s.router }

// Database returns the database connection.
func (s *Server) Database() *db.DB { return s.db }

// Hub returns the live update hub.
func (s *Server) Hub() *live.Hub { return s.hub }

// Index returns the semantic index, or nil when none is configured.
func (s *Server) Index() *semantic.Index { return s.index }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("flowdeck server listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
