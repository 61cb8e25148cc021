package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rvanloon/twentemilieu/internal/config"
	"github.com/rvanloon/twentemilieu/internal/scheduler"
	"github.com/rvanloon/twentemilieu/internal/sensor"
	"github.com/rvanloon/twentemilieu/internal/server"
	"github.com/rvanloon/twentemilieu/internal/wasteapi"
)

// Command twentemilieu polls the Twentemilieu waste collection API for one
// configured address and exposes the upcoming pickups as sensor entities
// over HTTP.
//
// The service supports:
//   - Once-per-day schedule refresh with an in-memory snapshot cache
//   - Per-type, today and tomorrow sensor variants
//   - Prometheus metrics for the HTTP surface and the upstream API
//
// Usage:
//
//	twentemilieu [flags]
//
// The flags are:
//
//	-config string
//	      path to config file (default "config.yaml")
//	-port int
//	      HTTP server port (overrides the config file)
func main() {
	// Parse command line flags
	flags := parseFlags()

	// Load configuration
	appConfig, err := config.Load(flags.ConfigPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if flags.Port != 0 {
		appConfig.Server.Port = flags.Port
	}

	// Initialize structured logger
	logger := logrus.New()
	configureLogger(logger, appConfig.Logging)

	logger.WithFields(logrus.Fields{
		"port":      appConfig.Server.Port,
		"postcode":  appConfig.Address.Postcode,
		"resources": appConfig.Resources,
	}).Info("Starting server")

	// Create the API client and the schedule reader for the configured address
	client, err := wasteapi.NewClient(wasteapi.ClientConfig{
		BaseURL:        appConfig.API.URL,
		RateLimit:      appConfig.API.RateLimit,
		RateLimitBurst: appConfig.API.RateLimitBurst,
		CacheSize:      appConfig.API.CacheSize,
		Timeout:        time.Duration(appConfig.API.TimeoutSeconds) * time.Second,
	}, logger)
	if err != nil {
		logger.Fatalf("Failed to create waste api client: %v", err)
	}
	reader := wasteapi.NewReader(client, appConfig.Address.Postcode, appConfig.Address.HouseNumber, logger)
	sensors := sensor.ForResources(reader, appConfig.Resources, logger)

	// Create a context that will be canceled on shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize components
	sched := scheduler.NewScheduler(ctx, sensors, logger)
	svc := server.NewSensorService(sensors, logger)
	handler := server.SetupServer(svc, server.ServerConfig{
		RateLimit:      appConfig.Server.RateLimit,
		RateLimitBurst: appConfig.Server.RateLimitBurst,
	}, logger)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", appConfig.Server.Host, appConfig.Server.Port),
		Handler: handler,
	}

	errChan := make(chan error, 1)

	// Warm the schedule cache in a goroutine
	go func() {
		warmCtx, warmCancel := context.WithTimeout(ctx, 2*time.Minute)
		defer warmCancel()
		if err := reader.Refresh(warmCtx); err != nil {
			logger.WithError(err).Warn("initial schedule refresh failed")
		}
	}()

	// Start scheduler in a goroutine
	go func() {
		if err := sched.Start(); err != nil {
			errChan <- fmt.Errorf("scheduler error: %w", err)
		}
	}()

	// Handle shutdown gracefully
	go handleShutdown(ctx, srv, sched, logger, errChan)

	logger.WithFields(logrus.Fields{
		"addr": srv.Addr,
	}).Info("Starting HTTP server")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	// Wait for a fatal error or a completed shutdown
	if err := <-errChan; err != nil {
		logger.Fatalf("Service error: %v", err)
	}
	logger.Info("Server stopped")
}

type Flags struct {
	ConfigPath string
	Port       int
}

func parseFlags() *Flags {
	flags := &Flags{}

	flag.StringVar(&flags.ConfigPath, "config", "config.yaml", "path to config file")
	flag.IntVar(&flags.Port, "port", 0, "HTTP server port (overrides the config file)")

	flag.Parse()

	return flags
}

func configureLogger(logger *logrus.Logger, cfg config.LoggingConfig) {
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}

// Handle graceful shutdown
func handleShutdown(ctx context.Context, srv *http.Server, sched *scheduler.Scheduler, logger *logrus.Logger, errChan chan<- error) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		logger.Info("Context canceled, initiating shutdown")
	case sig := <-sigChan:
		logger.Infof("Received signal %v, initiating shutdown", sig)
	}

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("Gracefully stopping server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errChan <- fmt.Errorf("shutdown error: %w", err)
		return
	}
	errChan <- nil
}
