package router

import (
	"encoding/json"
	"net/http"

	"github.com/geekyuvi069/CureLink/internal/channels/slack"
	"github.com/geekyuvi069/CureLink/internal/clinic"
	"github.com/geekyuvi069/CureLink/internal/conversation"
	httpmiddleware "github.com/geekyuvi069/CureLink/internal/http/middleware"
	"github.com/geekyuvi069/CureLink/pkg/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	ChatHandler        *conversation.Handler
	SlackWebhook       *slack.WebhookHandler
	DoctorsHandler     *clinic.DoctorsHandler
	StatsHandler       *clinic.StatsHandler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	RateLimiter        *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	r.Get("/health", health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		if cfg.SlackWebhook != nil {
			api.Post("/slack/events", cfg.SlackWebhook.HandleEvents)
		}

		api.Group(func(public chi.Router) {
			if cfg.RateLimiter != nil {
				public.Use(httpmiddleware.RateLimit(cfg.RateLimiter))
			}
			if cfg.ChatHandler != nil {
				public.Post("/chat", cfg.ChatHandler.Chat)
			}
			if cfg.DoctorsHandler != nil {
				public.Get("/doctors", cfg.DoctorsHandler.List)
			}
			if cfg.StatsHandler != nil {
				public.Get("/doctors/stats", cfg.StatsHandler.GetStats)
			}
		})
	})

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
