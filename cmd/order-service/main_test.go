package main

import (
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/app"
)

func TestSetupLogger(t *testing.T) {
	logger := log.New()
	cfg := app.DefaultConfig()
	cfg.LogLevel = "debug"
	cfg.LogFormat = "JSON"

	if err := setupLogger(logger, cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logger.GetLevel() != log.DebugLevel {
		t.Fatalf("unexpected level: %s", logger.GetLevel())
	}
	if _, ok := logger.Formatter.(*log.JSONFormatter); !ok {
		t.Fatalf("expected json formatter, got %T", logger.Formatter)
	}

	cfg.LogFormat = "text"
	if err := setupLogger(logger, cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := logger.Formatter.(*log.TextFormatter); !ok {
		t.Fatalf("expected text formatter, got %T", logger.Formatter)
	}
}

func TestSetupLoggerRejectsUnknownLevel(t *testing.T) {
	cfg := app.DefaultConfig()
	cfg.LogLevel = "verbose"

	if err := setupLogger(log.New(), cfg); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestConfigFiles(t *testing.T) {
	if got := configFiles(" ./local.yaml "); len(got) != 1 || got[0] != "./local.yaml" {
		t.Fatalf("unexpected files: %v", got)
	}
	if got := configFiles(""); len(got) != len(app.DefaultConfigFiles) {
		t.Fatalf("expected default files, got %v", got)
	}
}
