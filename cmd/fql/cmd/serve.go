package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/segmentio/action-destinations-sub030/internal/core/server"
	"github.com/segmentio/action-destinations-sub030/internal/fql"
	"github.com/segmentio/action-destinations-sub030/internal/fql/fqlcache"
)

// Version is reported at startup.
const Version = "0.1.0"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC subscription service",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "", "gRPC server host")
	serveCmd.Flags().Int("port", 0, "gRPC server port")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port, _ = cmd.Flags().GetInt("port")
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	cache := fqlcache.New(cfg.Cache.Size, nil)
	svc := server.NewService(fql.NewEngine(fql.WithParser(cache)))
	grpcServer, err := server.NewGRPCServer(cfg.Server, svc, logger)
	if err != nil {
		return err
	}

	logger.Info("starting fql subscription service",
		zap.String("version", Version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Int("cache_size", cfg.Cache.Size),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- grpcServer.Start(ctx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := grpcServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		stats := cache.Stats()
		logger.Info("stopped", zap.Uint64("cache_hits", stats.Hits), zap.Uint64("cache_misses", stats.Misses))
		return nil
	}
}
