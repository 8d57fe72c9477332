package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EnvDev  = "dev"
	EnvProd = "prod"

	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Config stores runtime configuration for the server.
type Config struct {
	AppEnv             string
	HTTPAddr           string
	LogLevel           string
	StoreBackend       string
	StoreDir           string
	ArchiveBackend     string
	DatabaseURL        string
	PersistTimeout     time.Duration
	NATSURL            string
	NATSSubject        string
	CORSAllowedOrigins []string
	UndoSurvivesNext   bool
}

func Load() (Config, error) {
	appEnv := strings.ToLower(strings.TrimSpace(getEnv("APP_ENV", EnvDev)))
	if appEnv != EnvDev && appEnv != EnvProd {
		return Config{}, fmt.Errorf("invalid APP_ENV %q: expected %s or %s", appEnv, EnvDev, EnvProd)
	}

	storeBackend, err := parseBackend("STORE_BACKEND", getEnv("STORE_BACKEND", BackendFile), BackendMemory, BackendFile, BackendPostgres)
	if err != nil {
		return Config{}, err
	}
	archiveBackend, err := parseBackend("ARCHIVE_BACKEND", getEnv("ARCHIVE_BACKEND", BackendMemory), BackendMemory, BackendPostgres)
	if err != nil {
		return Config{}, err
	}

	databaseURL := strings.TrimSpace(getEnv("DATABASE_URL", ""))
	if (storeBackend == BackendPostgres || archiveBackend == BackendPostgres) && databaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required when a postgres backend is selected")
	}

	storeDir := strings.TrimSpace(getEnv("STORE_DIR", "./data"))
	if storeBackend == BackendFile && storeDir == "" {
		return Config{}, fmt.Errorf("STORE_DIR is required when STORE_BACKEND=file")
	}

	persistTimeout, err := time.ParseDuration(getEnv("PERSIST_TIMEOUT", "5s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PERSIST_TIMEOUT: %w", err)
	}
	if persistTimeout <= 0 {
		return Config{}, fmt.Errorf("PERSIST_TIMEOUT must be > 0")
	}

	undoSurvivesNext, err := strconv.ParseBool(getEnv("UNDO_SURVIVES_NEXT", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UNDO_SURVIVES_NEXT: %w", err)
	}

	return Config{
		AppEnv:             appEnv,
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
		StoreBackend:       storeBackend,
		StoreDir:           storeDir,
		ArchiveBackend:     archiveBackend,
		DatabaseURL:        databaseURL,
		PersistTimeout:     persistTimeout,
		NATSURL:            strings.TrimSpace(getEnv("NATS_URL", "")),
		NATSSubject:        getEnv("NATS_SUBJECT", "auction.state"),
		CORSAllowedOrigins: parseCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		UndoSurvivesNext:   undoSurvivesNext,
	}, nil
}

func parseBackend(key, value string, allowed ...string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	for _, a := range allowed {
		if v == a {
			return v, nil
		}
	}
	return "", fmt.Errorf("invalid %s %q: expected one of %s", key, value, strings.Join(allowed, ", "))
}

func parseCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
