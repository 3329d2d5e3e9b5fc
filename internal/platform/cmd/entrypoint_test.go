package cmd

import (
	"context"
	"errors"
	"flag"
	"testing"
)

func TestParseArgs(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	addr := fs.String("addr", ":8080", "addr")
	db := fs.String("db", "data/folio.db", "db")

	if err := ParseArgs(fs, []string{"-addr", "127.0.0.1:9001"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if *addr != "127.0.0.1:9001" {
		t.Fatalf("addr = %q, want flag value", *addr)
	}
	if *db != "data/folio.db" {
		t.Fatalf("db = %q, want default", *db)
	}
}

func TestParseArgsNilArgs(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	if err := ParseArgs(fs, nil); err != nil {
		t.Fatalf("parse nil args: %v", err)
	}
	if fs.NArg() != 0 {
		t.Fatalf("NArg = %d, want 0", fs.NArg())
	}
}

func TestParseArgsRejectsNilFlagSet(t *testing.T) {
	if err := ParseArgs(nil, []string{}); err == nil {
		t.Fatal("expected nil flag set error")
	}
}

func TestRunWithTelemetryRejectsMissingInputs(t *testing.T) {
	if err := RunWithTelemetry(context.Background(), "  ", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected missing service error")
	}
	if err := RunWithTelemetry(context.Background(), ServiceServer, nil); err == nil {
		t.Fatal("expected missing run function error")
	}
}

func TestRunWithTelemetryReturnsRunError(t *testing.T) {
	t.Setenv("FOLIO_OTEL_ENDPOINT", "")

	want := errors.New("boom")
	err := RunWithTelemetry(context.Background(), ServiceCmsctl, func(context.Context) error { return want })
	if !errors.Is(err, want) {
		t.Fatalf("err = %v, want %v", err, want)
	}
}

func TestRunWithTelemetryPassesContext(t *testing.T) {
	t.Setenv("FOLIO_OTEL_ENDPOINT", "")

	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "value")
	err := RunWithTelemetry(ctx, ServiceServer, func(got context.Context) error {
		if got.Value(key{}) != "value" {
			return errors.New("context not propagated")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}
