package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pingkeep/pingkeep/internal/config"
	"github.com/pingkeep/pingkeep/internal/registry"
	"github.com/pingkeep/pingkeep/internal/scheduler"
	"github.com/pingkeep/pingkeep/internal/stats"
	"github.com/pingkeep/pingkeep/internal/storage"
	"github.com/pingkeep/pingkeep/internal/websocket"
)

// NewRouter creates the HTTP router exposing the engine's request surface.
func NewRouter(
	cfg *config.Config,
	store storage.Store,
	reg *registry.Service,
	coordinator *scheduler.Coordinator,
	calc *stats.Calculator,
	hub *websocket.Hub,
) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(SecurityHeadersMiddleware(cfg))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authLimiter := NewRateLimiter(1, 5)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Auth routes (rate limited)
		r.Group(func(r chi.Router) {
			r.Use(RateLimitMiddleware(authLimiter))
			r.Post("/auth/login", HandleLogin(store, cfg))
			r.Post("/auth/setup", HandleSetup(store, cfg))
		})
		r.Post("/auth/logout", HandleLogout())
		r.Get("/auth/status", HandleGetSetupStatus(store))

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(cfg.JWTSecret, store))

			r.Get("/user/me", HandleGetCurrentUser())

			r.Get("/urls", HandleGetURLs(reg))
			r.Post("/urls", HandleCreateURL(reg))
			r.Get("/urls/{id}", HandleGetURL(reg))
			r.Put("/urls/{id}", HandleUpdateURL(reg))
			r.Delete("/urls/{id}", HandleDeleteURL(reg))
			r.Post("/urls/{id}/check", HandleCheckNow(reg, coordinator))
			r.Get("/urls/{id}/checks", HandleGetChecks(reg, store))
			r.Get("/urls/{id}/stats", HandleGetStats(reg, calc))
		})
	})

	// WebSocket endpoint (authenticated via token)
	if hub != nil {
		r.Get("/ws", hub.HandleWebSocket)
	}

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
