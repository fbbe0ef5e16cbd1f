package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"BACKEND_URL", "IDENTITY_SOURCE", "SELECTION_FALLBACK", "LOG_LEVEL", "REDIS_ADDR", "REDIS_DB"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BackendURL != DefaultBackendURL {
		t.Errorf("expected backend %q, got %q", DefaultBackendURL, cfg.BackendURL)
	}
	if cfg.Source != SourceTelegram || cfg.Fallback != FallbackFirst {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.LogLevel != logrus.InfoLevel {
		t.Errorf("expected info level, got %v", cfg.LogLevel)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("BACKEND_URL", "https://alarma.example/")
	t.Setenv("IDENTITY_SOURCE", "URL")
	t.Setenv("SELECTION_FALLBACK", "none")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("REDIS_TIMEOUT", "2s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BackendURL != "https://alarma.example" {
		t.Errorf("trailing slash not trimmed: %q", cfg.BackendURL)
	}
	if cfg.Source != SourceURL || cfg.Fallback != FallbackNone || cfg.LogLevel != logrus.DebugLevel {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Redis.DB != 2 || cfg.Redis.Timeout != 2*time.Second {
		t.Errorf("unexpected redis config: %+v", cfg.Redis)
	}
}

func TestLoad_BadSource(t *testing.T) {
	t.Setenv("IDENTITY_SOURCE", "carrier-pigeon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown identity source")
	}
}

func TestIdentitySourceOptions(t *testing.T) {
	if SourceTelegram.KeyField() != "chat_id" || SourceURL.KeyField() != "comunidad" {
		t.Error("unexpected key fields")
	}
	if SourceTelegram.RequiresMember() || !SourceURL.RequiresMember() {
		t.Error("unexpected member requirement")
	}
	if SourceTelegram.CloseDelay() != 0 || SourceURL.CloseDelay() != 2*time.Second {
		t.Error("unexpected close delays")
	}
}
