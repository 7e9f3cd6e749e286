// Package main implements the entry point for the configuration broker.
// The broker serves every configuration file found in its directory as a
// bus endpoint: applications read their configuration, change single
// entries, and subscribe to change notifications through it.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/c360/configbroker/broker"
	"github.com/c360/configbroker/metric"
	"github.com/c360/configbroker/natsclient"
)

// Build information constants
const (
	Version = "0.1.0"
	appName = "configbroker"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Broker failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cfg := parseFlags()
	if err := validateFlags(cfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cfg.ShowHelp {
		printDetailedHelp()
		return nil
	}

	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting configuration broker",
		"version", Version,
		"config_dir", cfg.ConfigDir,
		"nats_url", cfg.NatsURL)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	natsClient, err := natsclient.NewClient(cfg.NatsURL,
		natsclient.WithClientName(appName))
	if err != nil {
		return fmt.Errorf("create NATS client: %w", err)
	}

	slog.Info("Connecting to NATS")
	if err := natsClient.Connect(ctx); err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer func() {
		if err := natsClient.Close(context.Background()); err != nil {
			slog.Warn("NATS close failed", "error", err)
		}
	}()

	registry := metric.NewMetricsRegistry()

	b := broker.New(cfg.ConfigDir, natsClient, logger,
		broker.WithMetrics(registry, cfg.MetricsPort))

	if err := b.Run(ctx); err != nil {
		return fmt.Errorf("run broker: %w", err)
	}

	slog.Info("Broker shut down cleanly")
	return nil
}
