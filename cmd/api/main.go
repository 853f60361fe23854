package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "todoitems/internal/adapter/http"
	"todoitems/internal/adapter/telemetry"
	. "todoitems/pkg/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "-h" || os.Args[1] == "--help") {
		help, err := HelpText()
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println(help)
		return
	}

	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, err := Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	logger, err := NewLokiLogger(config.ServiceName, config.Logging.LokiURL, config.Logging.Level)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	defer logger.Sync()

	tel, err := telemetry.NewContainer(ctx, telemetry.Config{
		ServiceName:    config.ServiceName,
		ServiceVersion: config.ServiceVersion,
		Environment:    config.Environment,
		MetricsPort:    config.Telemetry.MetricsPort,
		OTLPEndpoint:   config.Telemetry.OTLPEndpoint,
	}, logger.Zap())
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Zap().Warn("Telemetry shutdown failed", zap.Error(err))
		}
	}()

	tel.AppMetrics.StartSystemMetrics(ctx, 15*time.Second)

	server, err := api.NewServer(ctx, config, tel.AppMetrics, tel.NewTelemetryProbe(), logger)
	if err != nil {
		return fmt.Errorf("failed to build server: %w", err)
	}

	return server.Run(ctx)
}
