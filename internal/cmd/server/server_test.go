package server

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	t.Setenv("FOLIO_HTTP_ADDR", "")
	t.Setenv("FOLIO_DB_PATH", "")

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("expected default addr :8080, got %q", cfg.HTTPAddr)
	}
	if cfg.DBPath != "data/folio.db" {
		t.Fatalf("expected default db path, got %q", cfg.DBPath)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("FOLIO_HTTP_ADDR", ":9090")
	t.Setenv("FOLIO_LOG_LEVEL", "warn")

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-addr", ":9091", "-db", "/tmp/cms.db"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HTTPAddr != ":9091" {
		t.Fatalf("expected addr override :9091, got %q", cfg.HTTPAddr)
	}
	if cfg.DBPath != "/tmp/cms.db" {
		t.Fatalf("expected db override, got %q", cfg.DBPath)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("expected env log level warn, got %q", cfg.LogLevel)
	}
}
