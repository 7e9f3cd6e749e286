// Package broker assembles application endpoints from a configuration
// directory and runs them on the message bus under the well-known service
// name. One broker instance owns the name at a time.
package broker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/c360/configbroker/configfile"
	"github.com/c360/configbroker/endpoint"
	"github.com/c360/configbroker/errors"
	"github.com/c360/configbroker/metric"
)

// State tracks the broker through its lifecycle
type State string

const (
	StateUninitialized State = "uninitialized"
	StateScanning      State = "scanning"
	StateRegistering   State = "registering"
	StateRunning       State = "running"
	StateShuttingDown  State = "shutting_down"
	StateStopped       State = "stopped"
)

// Bus is the transport surface the broker needs: request handlers,
// notification publishing, and exclusive ownership of the service name.
// *natsclient.Client satisfies it.
type Bus interface {
	endpoint.Bus
	ClaimName(ctx context.Context, service string) error
}

// Broker owns the application endpoints built from one configuration
// directory
type Broker struct {
	service   string
	configDir string
	bus       Bus
	logger    *slog.Logger

	registry    *metric.MetricsRegistry
	metricsPort int
	metricsSrv  *metric.Server

	mu        sync.Mutex
	state     State
	endpoints map[string]*endpoint.Application
}

// Option configures a Broker
type Option func(*Broker)

// WithServiceName overrides the well-known service name
func WithServiceName(service string) Option {
	return func(b *Broker) {
		b.service = service
	}
}

// WithMetrics attaches a metrics registry. A port of 0 records metrics
// without exposing them over HTTP.
func WithMetrics(registry *metric.MetricsRegistry, port int) Option {
	return func(b *Broker) {
		b.registry = registry
		b.metricsPort = port
	}
}

// New creates a broker serving the configuration files under configDir
func New(configDir string, bus Bus, logger *slog.Logger, opts ...Option) *Broker {
	b := &Broker{
		service:   endpoint.ServiceName,
		configDir: configDir,
		bus:       bus,
		logger:    logger.With("component", "broker"),
		state:     StateUninitialized,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// State returns the broker's current lifecycle state
func (b *Broker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Endpoint returns the registered endpoint for an application name, nil when
// none exists
func (b *Broker) Endpoint(name string) *endpoint.Application {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.endpoints[name]
}

// Endpoints returns the registered application endpoints in name order
func (b *Broker) Endpoints() []*endpoint.Application {
	b.mu.Lock()
	defer b.mu.Unlock()

	names := make([]string, 0, len(b.endpoints))
	for name := range b.endpoints {
		names = append(names, name)
	}
	sort.Strings(names)

	apps := make([]*endpoint.Application, 0, len(names))
	for _, name := range names {
		apps = append(apps, b.endpoints[name])
	}
	return apps
}

func (b *Broker) setState(s State) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}

// scanConfigDir collects the eligible configuration files in the directory,
// non-recursively, in lexicographic order. Two files naming the same
// application keep the first and skip the rest.
func (b *Broker) scanConfigDir() ([]string, error) {
	dir, err := configfile.ExpandHome(b.configDir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.WrapFatal(
			fmt.Errorf("%w: %v", errors.ErrConfigDir, err),
			"Broker", "scanConfigDir", "read configuration directory")
	}

	seen := make(map[string]string)
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if !configfile.Eligible(path) {
			continue
		}
		name := configfile.AppName(path)
		if prior, dup := seen[name]; dup {
			b.logger.Warn("Duplicate application name, keeping first file",
				"application", name, "kept", prior, "skipped", path)
			continue
		}
		seen[name] = path
		paths = append(paths, path)
	}

	if len(paths) == 0 {
		return nil, errors.WrapFatal(
			fmt.Errorf("%w: no eligible files in %s", errors.ErrNoConfigs, b.configDir),
			"Broker", "scanConfigDir", "scan configuration directory")
	}
	return paths, nil
}

// Start claims the service name, scans the configuration directory, and
// registers one endpoint per application. Registration is all or nothing:
// any failure unwinds the endpoints registered so far and returns the error.
func (b *Broker) Start(ctx context.Context) error {
	if err := b.bus.ClaimName(ctx, b.service); err != nil {
		return errors.Wrap(err, "Broker", "Start", "claim service name")
	}

	b.setState(StateScanning)
	paths, err := b.scanConfigDir()
	if err != nil {
		return err
	}
	b.logger.Info("Configuration directory scanned",
		"dir", b.configDir, "applications", len(paths))

	b.setState(StateRegistering)
	endpoints := make(map[string]*endpoint.Application, len(paths))
	unwind := func() {
		for _, app := range endpoints {
			app.Unregister()
		}
	}

	var endpointOpts []endpoint.Option
	if b.registry != nil {
		endpointOpts = append(endpointOpts, endpoint.WithMetrics(b.registry.CoreMetrics()))
	}

	for _, path := range paths {
		app, err := endpoint.NewApplication(b.service, path, b.bus, b.logger, endpointOpts...)
		if err != nil {
			unwind()
			return errors.Wrap(err, "Broker", "Start", "create application endpoint")
		}
		if err := app.Register(ctx); err != nil {
			unwind()
			return errors.Wrap(err, "Broker", "Start", "register application endpoint")
		}
		endpoints[app.Name()] = app
	}

	b.mu.Lock()
	b.endpoints = endpoints
	b.state = StateRunning
	b.mu.Unlock()

	if b.registry != nil {
		core := b.registry.CoreMetrics()
		core.EndpointsRegistered.Set(float64(len(endpoints)))
		core.BrokerUp.Set(1)
	}
	b.logger.Info("Broker running", "endpoints", len(endpoints))
	return nil
}

// Run starts the broker and blocks until ctx is cancelled, then shuts it
// down. The metrics HTTP server, when enabled, shares the broker's lifetime.
func (b *Broker) Run(ctx context.Context) error {
	if err := b.Start(ctx); err != nil {
		b.Stop()
		return err
	}
	defer b.Stop()

	g, gctx := errgroup.WithContext(ctx)

	if b.registry != nil && b.metricsPort > 0 {
		b.metricsSrv = metric.NewServer(b.metricsPort, "", b.registry)
		b.logger.Info("Metrics server starting", "address", b.metricsSrv.Address())
		g.Go(b.metricsSrv.Start)
		g.Go(func() error {
			<-gctx.Done()
			return b.metricsSrv.Stop()
		})
	} else {
		g.Go(func() error {
			<-gctx.Done()
			return nil
		})
	}

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// Stop unregisters all endpoints. Safe to call more than once.
func (b *Broker) Stop() {
	b.mu.Lock()
	if b.state == StateStopped {
		b.mu.Unlock()
		return
	}
	b.state = StateShuttingDown
	endpoints := b.endpoints
	b.endpoints = nil
	b.mu.Unlock()

	for _, app := range endpoints {
		app.Unregister()
	}

	if b.registry != nil {
		core := b.registry.CoreMetrics()
		core.BrokerUp.Set(0)
		core.EndpointsRegistered.Set(0)
	}

	b.setState(StateStopped)
	b.logger.Info("Broker stopped", "endpoints_released", len(endpoints))
}
