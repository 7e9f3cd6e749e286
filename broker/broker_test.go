package broker

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/configbroker/endpoint"
	"github.com/c360/configbroker/errors"
	"github.com/c360/configbroker/metric"
	"github.com/c360/configbroker/natsclient"
	"github.com/c360/configbroker/variant"
)

type fakeBus struct {
	mu       sync.Mutex
	handlers map[string]func([]byte) []byte
	claimErr error
	claimed  []string
}

func newFakeBus() *fakeBus {
	return &fakeBus{handlers: make(map[string]func([]byte) []byte)}
}

func (b *fakeBus) Respond(subject string, handler func([]byte) []byte) (*natsclient.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[subject] = handler
	return &natsclient.Subscription{}, nil
}

func (b *fakeBus) Publish(_ context.Context, _ string, _ []byte) error {
	return nil
}

func (b *fakeBus) ClaimName(_ context.Context, service string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.claimErr != nil {
		return b.claimErr
	}
	b.claimed = append(b.claimed, service)
	return nil
}

func (b *fakeBus) handler(subject string) func([]byte) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handlers[subject]
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestStart_EmptyDirIsFatal(t *testing.T) {
	b := New(t.TempDir(), newFakeBus(), testLogger())

	err := b.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNoConfigs)
}

func TestStart_MissingDirIsFatal(t *testing.T) {
	b := New(filepath.Join(t.TempDir(), "absent"), newFakeBus(), testLogger())

	err := b.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrConfigDir)
}

func TestStart_NameClaimRejected(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "alpha.json", `{"Timeout": 1000}`)

	bus := newFakeBus()
	bus.claimErr = errors.ErrNameClaimed
	b := New(dir, bus, testLogger())

	err := b.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNameClaimed)
}

func TestStart_RegistersEndpoints(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "alpha.json", `{"Timeout": 1000, "TimeoutPhrase": "Hey"}`)
	writeConfig(t, dir, "beta.yaml", "Timeout: 250\n")

	bus := newFakeBus()
	b := New(dir, bus, testLogger())
	require.NoError(t, b.Start(context.Background()))
	defer b.Stop()

	assert.Equal(t, StateRunning, b.State())
	assert.Equal(t, []string{endpoint.ServiceName}, bus.claimed)
	require.Len(t, b.Endpoints(), 2)
	require.NotNil(t, b.Endpoint("alpha"))
	require.NotNil(t, b.Endpoint("beta"))
	assert.Nil(t, b.Endpoint("gamma"))

	// Both applications answer GetConfiguration
	for app, want := range map[string]variant.Value{
		"alpha": variant.Int(1000),
		"beta":  variant.Int(250),
	} {
		handler := bus.handler(endpoint.GetSubject(endpoint.ServiceName, app))
		require.NotNil(t, handler, "no handler for %s", app)

		var reply endpoint.GetReply
		require.NoError(t, json.Unmarshal(handler(nil), &reply))
		assert.Equal(t, want, reply.Config["Timeout"])
	}
}

func TestStart_DuplicateNameKeepsFirst(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "alpha.json", `{"Timeout": 1000}`)
	writeConfig(t, dir, "alpha.yaml", "Timeout: 9\n")

	b := New(dir, newFakeBus(), testLogger())
	require.NoError(t, b.Start(context.Background()))
	defer b.Stop()

	apps := b.Endpoints()
	require.Len(t, apps, 1)
	// alpha.json sorts before alpha.yaml, so the JSON file wins
	assert.Equal(t, variant.Int(1000), apps[0].GetConfiguration()["Timeout"])
}

func TestStart_SkipsIneligibleEntries(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "alpha.json", `{"Timeout": 1000}`)
	writeConfig(t, dir, "notes.txt", "ignore me")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))
	writeConfig(t, filepath.Join(dir, "nested"), "deep.json", `{"Timeout": 1}`)

	b := New(dir, newFakeBus(), testLogger())
	require.NoError(t, b.Start(context.Background()))
	defer b.Stop()

	apps := b.Endpoints()
	require.Len(t, apps, 1)
	assert.Equal(t, "alpha", apps[0].Name())
}

func TestStart_MalformedFileAbortsStartup(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "alpha.json", `{"Timeout": 1000}`)
	writeConfig(t, dir, "broken.json", `{"Timeout": `)

	b := New(dir, newFakeBus(), testLogger())
	err := b.Start(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrParse)
	assert.Empty(t, b.Endpoints())
}

func TestStop_Idempotent(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "alpha.json", `{"Timeout": 1000}`)

	registry := metric.NewMetricsRegistry()
	b := New(dir, newFakeBus(), testLogger(), WithMetrics(registry, 0))
	require.NoError(t, b.Start(context.Background()))

	b.Stop()
	b.Stop()
	assert.Equal(t, StateStopped, b.State())
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "alpha.json", `{"Timeout": 1000}`)

	b := New(dir, newFakeBus(), testLogger())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, StateStopped, b.State())
}

func TestRun_StartFailureEndsStopped(t *testing.T) {
	b := New(t.TempDir(), newFakeBus(), testLogger())

	err := b.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNoConfigs)
	assert.Equal(t, StateStopped, b.State())
}

func TestWithServiceName(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "alpha.json", `{"Timeout": 1000}`)

	bus := newFakeBus()
	b := New(dir, bus, testLogger(), WithServiceName("com.example.alt"))
	require.NoError(t, b.Start(context.Background()))
	defer b.Stop()

	assert.Equal(t, []string{"com.example.alt"}, bus.claimed)
	assert.NotNil(t, bus.handler(endpoint.GetSubject("com.example.alt", "alpha")))
}
