package clientcache

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/configbroker/natsclient"
)

// syncBuffer makes bytes.Buffer safe for the worker goroutine
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWorker_PrintsPhraseEachInterval(t *testing.T) {
	cache := New(10, "Hey", testLogger())
	out := &syncBuffer{}
	worker := NewWorker(cache, out, testLogger())

	worker.Start()
	assert.Eventually(t, func() bool {
		return strings.Count(out.String(), "Hey\n") >= 2
	}, 2*time.Second, 5*time.Millisecond)
	worker.Stop()
}

func TestWorker_PicksUpChangedValues(t *testing.T) {
	cache := New(10, "Hey", testLogger())
	out := &syncBuffer{}
	worker := NewWorker(cache, out, testLogger())

	worker.Start()
	defer worker.Stop()

	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Hey\n")
	}, 2*time.Second, 5*time.Millisecond)

	cache.ApplySnapshot(snapshotPayload(t, map[string]any{"TimeoutPhrase": "Later"}))

	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Later\n")
	}, 2*time.Second, 5*time.Millisecond)
}

func TestWorker_StopBoundedByOneInterval(t *testing.T) {
	cache := New(50, "Hey", testLogger())
	worker := NewWorker(cache, &syncBuffer{}, testLogger())

	worker.Start()
	start := time.Now()
	worker.Stop()
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	// Stop is idempotent
	worker.Stop()
}

func TestWorker_NothingPrintsAfterStop(t *testing.T) {
	cache := New(5, "Hey", testLogger())
	out := &syncBuffer{}
	worker := NewWorker(cache, out, testLogger())

	worker.Start()
	worker.Stop()

	settled := out.String()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, settled, out.String())
}

type fakeSubscribeBus struct {
	mu       sync.Mutex
	handlers map[string]func(context.Context, []byte)
	err      error
}

func (b *fakeSubscribeBus) Subscribe(_ context.Context, subject string, handler func(context.Context, []byte)) (*natsclient.Subscription, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handlers == nil {
		b.handlers = make(map[string]func(context.Context, []byte))
	}
	b.handlers[subject] = handler
	return &natsclient.Subscription{}, nil
}

func TestSubscriber_FeedsCache(t *testing.T) {
	cache := New(1000, "Hey", testLogger())
	bus := &fakeSubscribeBus{}
	sub := NewSubscriber(cache, bus, testLogger())

	err := sub.Subscribe(context.Background(), "com.system.configurationManager", "confManagerApplication1")
	require.NoError(t, err)

	subject := "com.system.configurationManager.Application.confManagerApplication1.ConfigurationChanged"
	handler := bus.handlers[subject]
	require.NotNil(t, handler)

	handler(context.Background(), snapshotPayload(t, map[string]any{"Timeout": 500}))

	timeout, _ := cache.Snapshot()
	assert.Equal(t, int64(500), timeout)

	sub.Unsubscribe()
}

func TestSubscriber_UnsubscribeWithoutSubscribe(t *testing.T) {
	sub := NewSubscriber(New(1000, "Hey", testLogger()), &fakeSubscribeBus{}, testLogger())
	sub.Unsubscribe()
}
