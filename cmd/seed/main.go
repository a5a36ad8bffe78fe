package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/geekyuvi069/CureLink/internal/clinic"
	appconfig "github.com/geekyuvi069/CureLink/internal/config"
	"github.com/geekyuvi069/CureLink/pkg/logging"
)

// seed loads the starter doctor directory and weekly hours. Doctors already
// present by name are left untouched, so reruns are safe.
func main() {
	cfg := appconfig.Load()
	logger := logging.NewWithFormat(cfg.LogLevel, cfg.LogFormat, os.Stdout).Component("seed")

	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		logger.Error("failed to reach database", "error", err)
		os.Exit(1)
	}

	inserted, err := clinic.NewSeeder(db, logger).Seed(ctx, clinic.DefaultSeed)
	if err != nil {
		logger.Error("seed failed", "inserted", inserted, "error", err)
		os.Exit(1)
	}
	logger.Info("seed complete", "inserted", inserted, "total", len(clinic.DefaultSeed))
}
