package main

import (
	"context"
	"fmt"
	"os"

	"meeting-summary-service/internal/app"
	"meeting-summary-service/internal/cli"
	"meeting-summary-service/internal/config"
	"meeting-summary-service/internal/output"
)

func main() {
	if err := run(); err != nil {
		output.NewFormatter(os.Stderr).Error(err.Error())
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	deps := &cli.Dependencies{
		Config: cfg,
		NewApp: func(ctx context.Context, opts app.Options) (*app.Application, error) {
			return app.New(ctx, cfg, opts)
		},
	}

	return cli.NewRootCmd(deps).ExecuteContext(context.Background())
}
