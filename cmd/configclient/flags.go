package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Default settings
const (
	defaultApplication = "confManagerApplication1"
	defaultConfigDir   = "~/com.system.configurationManager/"
	defaultNatsURL     = "nats://127.0.0.1:4222"
	defaultTimeoutMs   = 1000
	defaultPhrase      = "Hey"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	Application  string
	ConfigPath   string
	TimeoutMs    int64
	Phrase       string
	CreateConfig bool
	Get          bool
	Set          string
	NatsURL      string
	LogLevel     string
	LogFormat    string
	Verbose      bool
	ShowVersion  bool
	ShowHelp     bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	// Define flags with environment variable fallback
	flag.StringVar(&cfg.Application, "application",
		getEnv("CONFIGCLIENT_APPLICATION", defaultApplication),
		"Application name to run as (env: CONFIGCLIENT_APPLICATION)")

	flag.StringVar(&cfg.ConfigPath, "config-path",
		getEnv("CONFIGCLIENT_CONFIG_PATH", ""),
		"Configuration file path, defaults to the broker directory entry for the application (env: CONFIGCLIENT_CONFIG_PATH)")

	flag.Int64Var(&cfg.TimeoutMs, "timeout",
		getEnvInt64("CONFIGCLIENT_TIMEOUT", defaultTimeoutMs),
		"Default sleep interval in milliseconds (env: CONFIGCLIENT_TIMEOUT)")

	flag.StringVar(&cfg.Phrase, "phrase",
		getEnv("CONFIGCLIENT_PHRASE", defaultPhrase),
		"Default timeout phrase (env: CONFIGCLIENT_PHRASE)")

	flag.BoolVar(&cfg.CreateConfig, "create-config",
		getEnvBool("CONFIGCLIENT_CREATE_CONFIG", false),
		"Rewrite the configuration file with the defaults before starting (env: CONFIGCLIENT_CREATE_CONFIG)")

	flag.BoolVar(&cfg.Get, "get", false,
		"Print the application's configuration from the broker and exit")

	flag.StringVar(&cfg.Set, "set", "",
		"Change one configuration entry through the broker (key=value) and exit")

	flag.StringVar(&cfg.NatsURL, "nats-url",
		getEnv("CONFIGCLIENT_NATS_URL", defaultNatsURL),
		"NATS server URL (env: CONFIGCLIENT_NATS_URL)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("CONFIGCLIENT_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: CONFIGCLIENT_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("CONFIGCLIENT_LOG_FORMAT", "text"),
		"Log format: json, text (env: CONFIGCLIENT_LOG_FORMAT)")

	flag.BoolVar(&cfg.Verbose, "verbose",
		getEnvBool("CONFIGCLIENT_VERBOSE", false),
		"Enable debug logging (env: CONFIGCLIENT_VERBOSE)")
	flag.BoolVar(&cfg.Verbose, "v", getEnvBool("CONFIGCLIENT_VERBOSE", false),
		"Enable debug logging (env: CONFIGCLIENT_VERBOSE)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")

	flag.Usage = printDetailedHelp

	flag.Parse()

	if cfg.Verbose {
		cfg.LogLevel = "debug"
	}
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = filepath.Join(defaultConfigDir, cfg.Application+".json")
	}

	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if cfg.Application == "" {
		return fmt.Errorf("application name must not be empty")
	}

	if cfg.TimeoutMs <= 0 {
		return fmt.Errorf("timeout must be positive, got %d", cfg.TimeoutMs)
	}

	if cfg.Set != "" && !strings.Contains(cfg.Set, "=") {
		return fmt.Errorf("--set wants key=value, got %q", cfg.Set)
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	validFormats := []string{"json", "text"}
	if !contains(validFormats, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	return nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - Configuration broker demo client

Periodically prints its timeout phrase and follows configuration changes
published by the broker.

Usage: %s [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Run with the default application name
  %s

  # Reset the configuration file to the built-in defaults
  %s --create-config

  # Run a second application with its own file
  %s --application=confManagerApplication2 --timeout=500 --phrase=Later

  # One-shot operations against a running broker
  %s --get
  %s --set Timeout=500

Version: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Utility function to check if slice contains string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
