package bootstrap

import (
	"context"
	"errors"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/geekyuvi069/CureLink/internal/api/router"
	"github.com/geekyuvi069/CureLink/internal/availability"
	"github.com/geekyuvi069/CureLink/internal/bookings"
	"github.com/geekyuvi069/CureLink/internal/channels/slack"
	"github.com/geekyuvi069/CureLink/internal/clinic"
	appconfig "github.com/geekyuvi069/CureLink/internal/config"
	"github.com/geekyuvi069/CureLink/internal/conversation"
	httpmiddleware "github.com/geekyuvi069/CureLink/internal/http/middleware"
	"github.com/geekyuvi069/CureLink/internal/notify"
	"github.com/geekyuvi069/CureLink/internal/observability/metrics"
	"github.com/geekyuvi069/CureLink/internal/tools"
	"github.com/geekyuvi069/CureLink/pkg/logging"
)

// App is the fully wired API process.
type App struct {
	Handler      http.Handler
	Orchestrator *conversation.Orchestrator
	SlackWorker  *slack.Worker
	RateLimiter  *httpmiddleware.RateLimiter

	closers []func()
}

// Options carries process-level dependencies that main owns.
type Options struct {
	AWS      aws.Config
	Registry *prometheus.Registry
	// Pool and Redis override the connections built from config (tests).
	Pool  *pgxpool.Pool
	Redis *redis.Client
}

// Build wires storage, integrations, the agent, and the HTTP surface.
func Build(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	app := &App{}

	loc, err := cfg.ClinicLocation()
	if err != nil {
		return nil, err
	}

	pool := opts.Pool
	if pool == nil {
		pool, err = BuildPostgresPool(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		if pool != nil {
			app.closers = append(app.closers, pool.Close)
		}
	}
	redisClient := opts.Redis
	if redisClient == nil {
		redisClient = BuildRedisClient(ctx, cfg, logger, true)
		if redisClient != nil {
			app.closers = append(app.closers, func() { _ = redisClient.Close() })
		}
	}

	storage, err := BuildStorage(cfg, pool, redisClient, logger)
	if err != nil {
		app.Close()
		return nil, err
	}

	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	agentMetrics := metrics.NewAgentMetrics(reg)
	metricsHandler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	dispatcher := notify.NewDispatcher(cfg.SlackWebhookURL, logger.Component("notify"))
	bookingSvc := bookings.NewService(bookings.Config{
		Directory:    storage.Directory,
		Repository:   storage.Appointments,
		Calendar:     BuildCalendar(ctx, cfg, logger),
		Email:        BuildEmailSender(cfg, opts.AWS, logger),
		Notifier:     dispatcher,
		Location:     loc,
		SlotDuration: cfg.AppointmentDuration,
		Metrics:      agentMetrics,
		Logger:       logger.Component("bookings"),
	})
	statsEngine := clinic.NewStatsEngine(storage.Directory, storage.Appointments, loc)

	executor := tools.NewExecutor(tools.NewRegistry(), tools.Deps{
		Availability: availability.NewEngine(storage.Directory, storage.Appointments, loc),
		Bookings:     bookingSvc,
		Stats:        statsEngine,
		Directory:    storage.Directory,
		Notifier:     dispatcher,
		Metrics:      agentMetrics,
		Logger:       logger.Component("tools"),
	})

	backend, closeBackend := BuildBackend(ctx, cfg, opts.AWS, logger)
	app.closers = append(app.closers, closeBackend)

	app.Orchestrator = conversation.NewOrchestrator(storage.Sessions, backend, executor, logger.Component("agent"),
		conversation.WithLocation(loc),
		conversation.WithMaxToolRounds(cfg.MaxToolRounds),
		conversation.WithMetrics(agentMetrics),
	)

	queue := BuildSlackQueue(cfg, opts.AWS, logger)
	app.SlackWorker = slack.NewWorker(app.Orchestrator, queue, slack.NewClient(cfg.SlackBotToken, logger.Component("slack")), logger.Component("slack"),
		slack.WithWorkerCount(cfg.WorkerCount),
	)
	webhook := slack.NewWebhookHandler(cfg.SlackSigningSecret, slack.NewPublisher(queue), logger.Component("slack"),
		slack.WithProcessedTracker(storage.Processed),
		slack.WithWebhookMetrics(agentMetrics),
	)

	app.RateLimiter = httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	app.Handler = router.New(&router.Config{
		Logger:             logger,
		ChatHandler:        conversation.NewHandler(app.Orchestrator, logger),
		SlackWebhook:       webhook,
		DoctorsHandler:     clinic.NewDoctorsHandler(storage.Directory, logger),
		StatsHandler:       clinic.NewStatsHandler(statsEngine, logger),
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        app.RateLimiter,
	})

	return app, nil
}

// Start launches background work: the Slack worker pool and rate limiter
// sweeps. Both stop when ctx is cancelled.
func (a *App) Start(ctx context.Context) {
	a.SlackWorker.Start(ctx)
	go a.RateLimiter.Run(ctx)
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
