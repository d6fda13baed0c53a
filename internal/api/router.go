package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/DanielChung520/AI-Box-sub013/internal/middleware"
)

// RouterConfig carries the middleware knobs the router needs.
type RouterConfig struct {
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
}

// NewRouter assembles the chi router with the standard middleware stack.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if cfg.RateLimitRPS > 0 {
		r.Use(middleware.RateLimiter(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		}))
	}
	r.Use(chimw.Timeout(120 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/healthz", h.healthz)

		r.Post("/query/resolve", h.resolveQuery)
		r.Get("/tasks/{taskID}/events", h.taskEvents)

		r.Post("/sessions", h.createSession)
		r.Get("/sessions/{sessionID}", h.getSession)
		r.Delete("/sessions/{sessionID}", h.deleteSession)
		r.Post("/sessions/{sessionID}/messages", h.addSessionMessage)

		r.Get("/history", h.listHistory)

		r.Get("/systems", h.listSystems)
		r.Get("/systems/{systemID}/validation", h.validateSystem)
		r.Post("/schemas/reload", h.reloadSchemas)
	})

	return r
}
