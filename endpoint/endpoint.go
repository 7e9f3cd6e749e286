// Package endpoint exposes one application's configuration as a named,
// addressable IPC surface: a GetConfiguration call, a ChangeConfiguration
// call, and a ConfigurationChanged notification emitted after every
// successful change.
package endpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/c360/configbroker/configfile"
	"github.com/c360/configbroker/configstore"
	"github.com/c360/configbroker/errors"
	"github.com/c360/configbroker/metric"
	"github.com/c360/configbroker/natsclient"
	"github.com/c360/configbroker/variant"
)

// Bus is the slice of the IPC substrate an endpoint needs: call dispatch and
// notification publishing
type Bus interface {
	Respond(subject string, handler func([]byte) []byte) (*natsclient.Subscription, error)
	Publish(ctx context.Context, subject string, data []byte) error
}

// Application wraps one application's configuration store behind its IPC
// endpoint. Change operations serialize on a per-endpoint mutex so the
// backing file is never written by two goroutines at once; endpoints of
// different applications never contend.
type Application struct {
	service    string
	name       string
	configPath string

	store  *configstore.Store
	bus    Bus
	logger *slog.Logger
	core   *metric.Metrics

	opMu sync.Mutex
	subs []*natsclient.Subscription
}

// Option configures an Application
type Option func(*Application)

// WithMetrics attaches broker core metrics to the endpoint
func WithMetrics(core *metric.Metrics) Option {
	return func(a *Application) {
		a.core = core
	}
}

// NewApplication loads the configuration file at configPath and wraps it in
// an endpoint for the derived application name. A load failure fails the
// construction; the broker treats that as fatal to startup.
func NewApplication(service, configPath string, bus Bus, logger *slog.Logger, opts ...Option) (*Application, error) {
	name := configfile.AppName(configPath)

	initial, err := configfile.Load(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "Application", "NewApplication", "load configuration")
	}

	a := &Application{
		service:    service,
		name:       name,
		configPath: configPath,
		store:      configstore.New(initial),
		bus:        bus,
		logger:     logger.With("component", "endpoint", "application", name),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.logger.Info("Application endpoint created",
		"path", configPath, "object_path", a.ObjectPath(), "keys", a.store.Len())
	return a, nil
}

// Name returns the application name derived from the config file base name
func (a *Application) Name() string {
	return a.name
}

// ObjectPath returns the endpoint identity on the bus
func (a *Application) ObjectPath() string {
	return ObjectPath(a.service, a.name)
}

// ConfigPath returns the backing configuration file path
func (a *Application) ConfigPath() string {
	return a.configPath
}

// Store returns the endpoint's configuration store
func (a *Application) Store() *configstore.Store {
	return a.store
}

// Register installs the endpoint's call handlers on the bus
func (a *Application) Register(_ context.Context) error {
	getSub, err := a.bus.Respond(GetSubject(a.service, a.name), a.handleGet)
	if err != nil {
		return errors.Wrap(err, "Application", "Register", "install GetConfiguration handler")
	}
	a.subs = append(a.subs, getSub)

	changeSub, err := a.bus.Respond(ChangeSubject(a.service, a.name), a.handleChange)
	if err != nil {
		return errors.Wrap(err, "Application", "Register", "install ChangeConfiguration handler")
	}
	a.subs = append(a.subs, changeSub)

	a.logger.Debug("Application endpoint registered")
	return nil
}

// Unregister removes the endpoint's call handlers from the bus
func (a *Application) Unregister() {
	for _, sub := range a.subs {
		if err := sub.Unsubscribe(); err != nil {
			a.logger.Warn("Failed to unsubscribe endpoint handler", "error", err)
		}
	}
	a.subs = nil
}

// GetConfiguration returns a snapshot of the application's configuration
func (a *Application) GetConfiguration() variant.Map {
	return a.store.GetAll()
}

// ChangeConfiguration replaces one entry, emits the ConfigurationChanged
// notification carrying the full new map, and mirrors the store to disk.
// The notification and the persistence write are part of the same logical
// operation and are not rolled back: a persistence failure is logged and
// swallowed because the in-memory store is authoritative for the session.
func (a *Application) ChangeConfiguration(ctx context.Context, key string, value variant.Value) error {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	if err := a.store.Set(key, value); err != nil {
		return err
	}

	snapshot := a.store.GetAll()
	a.emitConfigurationChanged(ctx, snapshot)

	if err := configfile.Save(a.configPath, snapshot); err != nil {
		a.logger.Warn("Configuration write failed; in-memory state remains authoritative",
			"path", a.configPath, "error", err)
		if a.core != nil {
			a.core.PersistenceFailures.WithLabelValues(a.name).Inc()
		}
	}

	a.logger.Info("Configuration changed", "key", key, "kind", value.Kind().String())
	return nil
}

// emitConfigurationChanged publishes the full-snapshot notification
func (a *Application) emitConfigurationChanged(ctx context.Context, snapshot variant.Map) {
	event := ChangedEvent{
		ID:          uuid.NewString(),
		Application: a.name,
		EmittedAt:   time.Now().UTC(),
		Config:      snapshot,
	}

	data, err := json.Marshal(event)
	if err != nil {
		a.logger.Error("Failed to encode ConfigurationChanged event", "error", err)
		return
	}

	if err := a.bus.Publish(ctx, ChangedSubject(a.service, a.name), data); err != nil {
		a.logger.Warn("Failed to publish ConfigurationChanged", "error", err)
		return
	}
	if a.core != nil {
		a.core.NotificationsPublished.WithLabelValues(a.name).Inc()
	}
}

// handleGet serves a GetConfiguration call
func (a *Application) handleGet(_ []byte) []byte {
	if a.core != nil {
		a.core.GetCalls.WithLabelValues(a.name).Inc()
	}

	reply := GetReply{Config: a.store.GetAll()}
	data, err := json.Marshal(reply)
	if err != nil {
		a.logger.Error("Failed to encode GetConfiguration reply", "error", err)
		data, _ = json.Marshal(GetReply{Error: newErrorInfo(err)})
	}
	return data
}

// handleChange serves a ChangeConfiguration call. The underlying error kinds
// travel back to the caller in the reply envelope; one caller's failure
// never affects other applications or other callers.
func (a *Application) handleChange(data []byte) []byte {
	err := a.applyChange(data)

	outcome := "success"
	if err != nil {
		outcome = "error"
		a.logger.Warn("ChangeConfiguration rejected", "error", err)
	}
	if a.core != nil {
		a.core.ChangeCalls.WithLabelValues(a.name, outcome).Inc()
	}

	reply, _ := json.Marshal(ChangeReply{Error: newErrorInfo(err)})
	return reply
}

func (a *Application) applyChange(data []byte) error {
	var req ChangeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %v", errors.ErrParse, err),
			"Application", "ChangeConfiguration", "decode request")
	}

	var value variant.Value
	if len(req.Value) > 0 {
		if err := json.Unmarshal(req.Value, &value); err != nil {
			return err
		}
	}

	return a.ChangeConfiguration(context.Background(), req.Key, value)
}
