// Package main provides CMS maintenance commands.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	entrypoint "github.com/louisbranch/folio/internal/platform/cmd"
	"github.com/louisbranch/folio/internal/platform/config"
	"github.com/louisbranch/folio/internal/tools/cmsctl"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := cmsctl.Options{Out: os.Stdout, ErrOut: os.Stderr}
	err := entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceCmsctl, func(ctx context.Context) error {
		return cmsctl.Execute(ctx, opts, os.Args[1:])
	})
	if err != nil {
		config.Exitf("Error: %v", err)
	}
}
