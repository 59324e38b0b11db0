/*
Package config loads server configuration from the environment.

PURPOSE:
  One place that knows every knob the server has. A .env file is loaded if
  present (development convenience); real environments set variables
  directly, and explicit environment always wins over .env contents.

VARIABLES:
  PORT             HTTP server port              (default 8080)
  DB_DRIVER        "sqlite" or "postgres"        (default sqlite)
  DB_PATH          SQLite database path          (default leave.db)
  DATABASE_URL     PostgreSQL DSN (required when DB_DRIVER=postgres)
  NOTICE_DAYS      Lead time for non-emergency requests (default 2)
  ALLOWED_ORIGINS  Comma-separated CORS origins
  SEED             "true" to load demo data into an empty database
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/warp/leave-engine/leave"
)

// Config holds the server's runtime configuration.
type Config struct {
	Port           int
	DBDriver       string
	DBPath         string
	DatabaseURL    string
	NoticeDays     int
	AllowedOrigins []string
	Seed           bool
}

// Load reads configuration from .env (if present) and the environment.
func Load() (Config, error) {
	// Ignore a missing .env; it is a development convenience only.
	_ = godotenv.Load()

	cfg := Config{
		Port:       8080,
		DBDriver:   "sqlite",
		DBPath:     "leave.db",
		NoticeDays: leave.DefaultNoticeDays,
		AllowedOrigins: []string{
			"http://localhost:5173",
			"http://localhost:8080",
		},
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Port = port
	}

	if v := os.Getenv("DB_DRIVER"); v != "" {
		cfg.DBDriver = v
	}
	switch cfg.DBDriver {
	case "sqlite", "postgres":
	default:
		return Config{}, fmt.Errorf("unknown DB_DRIVER %q (want sqlite or postgres)", cfg.DBDriver)
	}

	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DBDriver == "postgres" && cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required when DB_DRIVER=postgres")
	}

	if v := os.Getenv("NOTICE_DAYS"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days < 0 {
			return Config{}, fmt.Errorf("invalid NOTICE_DAYS %q", v)
		}
		cfg.NoticeDays = days
	}

	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
	}

	cfg.Seed = os.Getenv("SEED") == "true"

	return cfg, nil
}
