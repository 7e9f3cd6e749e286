// Package main implements the demo client for the configuration broker.
// The client keeps a typed cache of its own configuration, prints its
// timeout phrase every timeout interval, and applies configuration changes
// published by the broker without restarting.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/c360/configbroker/clientcache"
	"github.com/c360/configbroker/endpoint"
	"github.com/c360/configbroker/natsclient"
	"github.com/c360/configbroker/variant"
)

// Build information constants
const (
	Version = "0.1.0"
	appName = "configclient"
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
		slog.Error("Client failed", "error", err, "exit_code", 1)
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

	slog.Info("Starting configuration client",
		"version", Version,
		"application", cfg.Application,
		"config_path", cfg.ConfigPath)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Get || cfg.Set != "" {
		return runOneShot(ctx, cfg)
	}

	cache := clientcache.New(cfg.TimeoutMs, cfg.Phrase, logger)
	created, err := cache.LoadOrCreate(cfg.ConfigPath, cfg.CreateConfig)
	if err != nil {
		return fmt.Errorf("initialize configuration: %w", err)
	}
	if created {
		slog.Info("Configuration file written with defaults", "path", cfg.ConfigPath)
	}

	natsClient, err := natsclient.NewClient(cfg.NatsURL,
		natsclient.WithClientName(appName+"-"+cfg.Application))
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

	subscriber := clientcache.NewSubscriber(cache, natsClient, logger)
	if err := subscriber.Subscribe(ctx, endpoint.ServiceName, cfg.Application); err != nil {
		return fmt.Errorf("subscribe to configuration changes: %w", err)
	}
	defer subscriber.Unsubscribe()

	worker := clientcache.NewWorker(cache, os.Stdout, logger)
	worker.Start()

	<-ctx.Done()
	slog.Info("Shutting down")
	worker.Stop()

	return nil
}

// runOneShot performs a single get or set call against the broker and exits
func runOneShot(ctx context.Context, cfg *CLIConfig) error {
	natsClient, err := natsclient.NewClient(cfg.NatsURL,
		natsclient.WithClientName(appName+"-oneshot"))
	if err != nil {
		return fmt.Errorf("create NATS client: %w", err)
	}
	if err := natsClient.Connect(ctx); err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer func() {
		if err := natsClient.Close(context.Background()); err != nil {
			slog.Warn("NATS close failed", "error", err)
		}
	}()

	caller := endpoint.NewCaller(endpoint.ServiceName, natsClient)

	if cfg.Set != "" {
		key, raw, _ := strings.Cut(cfg.Set, "=")
		if err := caller.ChangeConfiguration(ctx, cfg.Application, key, parseValue(raw)); err != nil {
			return fmt.Errorf("change configuration: %w", err)
		}
		slog.Info("Configuration changed", "application", cfg.Application, "key", key)
	}

	if cfg.Get {
		config, err := caller.GetConfiguration(ctx, cfg.Application)
		if err != nil {
			return fmt.Errorf("get configuration: %w", err)
		}
		data, err := json.MarshalIndent(config, "", "    ")
		if err != nil {
			return fmt.Errorf("encode configuration: %w", err)
		}
		fmt.Println(string(data))
	}

	return nil
}

// parseValue reads a CLI value as a JSON scalar, falling back to a plain
// string so `--set TimeoutPhrase=Hey` works without shell-quoted quotes
func parseValue(raw string) variant.Value {
	var v variant.Value
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return variant.String(raw)
}
