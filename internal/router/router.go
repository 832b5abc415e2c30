package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"api-chatbot/internal/handlers"
	"api-chatbot/internal/middleware"
	"api-chatbot/internal/websocket"
)

type Options struct {
	CORSOrigins []string
	Logger      zerolog.Logger
}

func New(
	chatHandler *handlers.ChatHandler,
	wsHub *websocket.Hub,
	generateLimiter *middleware.RateLimiter,
	opts Options,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(opts.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Metrics)

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", handlers.Health)

	r.Group(func(r chi.Router) {
		if generateLimiter != nil {
			r.Use(generateLimiter.Middleware)
		}
		r.Post("/generate", chatHandler.Generate)
	})

	r.Get("/history/{userId}", chatHandler.History)
	r.Delete("/history/{userId}", chatHandler.ClearHistory)

	if wsHub != nil {
		r.Get("/ws", wsHub.HandleWebSocket)
	}
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// NewGenerateLimiter builds the per-IP limiter for POST /generate from a
// per-minute budget.
func NewGenerateLimiter(perMinute int) *middleware.RateLimiter {
	return middleware.NewRateLimiter(perMinute, time.Minute)
}
