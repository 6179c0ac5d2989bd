package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"alfredoptarigan/cv-analyzer/internal/handlers"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the analyze, parse and health endpoints.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := buildApplication(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	server := handlers.NewApp(cfg, a.svc, a.log)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		a.log.Info("server.shutting_down")
		if err := server.ShutdownWithTimeout(shutdownTimeout); err != nil {
			a.log.Error("server.forced_shutdown", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	a.log.Info("server.starting",
		zap.String("addr", addr),
		zap.String("env", cfg.Server.Env),
		zap.Bool("auth_required", cfg.Auth.APIKeyRequired),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Bool("semantic_check", cfg.Semantic.Enabled))

	if err := server.Listen(addr); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	a.log.Info("server.stopped")
	return nil
}
