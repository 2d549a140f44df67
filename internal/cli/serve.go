package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	grpcapi "meeting-summary-service/internal/api/grpc"
	"meeting-summary-service/internal/app"
	httpapi "meeting-summary-service/internal/http"
	"meeting-summary-service/internal/observability"
	"meeting-summary-service/internal/observability/metrics"
)

func NewServeCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, metrics and gRPC health endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, deps)
		},
	}
}

func serve(ctx context.Context, deps *Dependencies) error {
	cfg := deps.Config

	a, err := deps.NewApp(ctx, app.Options{})
	if err != nil {
		return err
	}
	if err := a.Start(ctx); err != nil {
		return err
	}
	defer a.Shutdown()
	logger := a.Logger

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	hub := httpapi.NewHub(a.Controller)
	go hub.Run(hubCtx)

	httpServer := &http.Server{
		Addr:              cfg.Service.HTTPAddr,
		Handler:           httpapi.NewRouter(a.Controller, hub, a.Ready),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 2)
	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("HTTP API listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	obs := observability.NewServer(":"+cfg.Observability.MetricsPort, a.Ready)
	obs.Start()

	lis, err := net.Listen("tcp", ":"+cfg.Service.GRPCPort)
	if err != nil {
		return err
	}
	grpcServer := grpcapi.New(metrics.DefaultMetrics)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("Shutdown signal received")
	case err = <-errCh:
		logger.Error().Err(err).Msg("Server failed")
	}

	grpcServer.Stop()
	stopHub()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("HTTP API shutdown")
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Observability server shutdown")
	}
	return err
}
