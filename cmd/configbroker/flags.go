package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
)

// Default settings
const (
	defaultConfigDir = "~/com.system.configurationManager/"
	defaultNatsURL   = "nats://127.0.0.1:4222"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigDir   string
	NatsURL     string
	LogLevel    string
	LogFormat   string
	MetricsPort int
	Verbose     bool
	ShowVersion bool
	ShowHelp    bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	// Define flags with environment variable fallback
	flag.StringVar(&cfg.ConfigDir, "config-dir",
		getEnv("CONFIGBROKER_CONFIG_DIR", defaultConfigDir),
		"Directory of per-application configuration files (env: CONFIGBROKER_CONFIG_DIR)")

	flag.StringVar(&cfg.NatsURL, "nats-url",
		getEnv("CONFIGBROKER_NATS_URL", defaultNatsURL),
		"NATS server URL (env: CONFIGBROKER_NATS_URL)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("CONFIGBROKER_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: CONFIGBROKER_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("CONFIGBROKER_LOG_FORMAT", "json"),
		"Log format: json, text (env: CONFIGBROKER_LOG_FORMAT)")

	flag.IntVar(&cfg.MetricsPort, "metrics-port",
		getEnvInt("CONFIGBROKER_METRICS_PORT", 0),
		"Prometheus metrics port, 0 to disable (env: CONFIGBROKER_METRICS_PORT)")

	flag.BoolVar(&cfg.Verbose, "verbose",
		getEnvBool("CONFIGBROKER_VERBOSE", false),
		"Enable debug logging (env: CONFIGBROKER_VERBOSE)")
	flag.BoolVar(&cfg.Verbose, "v", getEnvBool("CONFIGBROKER_VERBOSE", false),
		"Enable debug logging (env: CONFIGBROKER_VERBOSE)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")

	flag.Usage = printDetailedHelp

	flag.Parse()

	if cfg.Verbose {
		cfg.LogLevel = "debug"
	}

	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if cfg.ConfigDir == "" {
		return fmt.Errorf("config directory must not be empty")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	validFormats := []string{"json", "text"}
	if !contains(validFormats, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	if cfg.MetricsPort < 0 || cfg.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", cfg.MetricsPort)
	}

	return nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - Runtime configuration broker

Usage: %s [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Serve the default configuration directory
  %s

  # Serve a custom directory with metrics exposed
  %s --config-dir=/etc/configbroker --metrics-port=9090

  # Run with environment variables
  export CONFIGBROKER_CONFIG_DIR=/etc/configbroker
  export CONFIGBROKER_LOG_LEVEL=debug
  %s

Version: %s
`, os.Args[0], os.Args[0], os.Args[0], Version)
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

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
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
