package clientcache

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Worker is the client's periodic loop: sleep for the cached timeout, then
// print the cached phrase. Both values are re-read every cycle, so a
// configuration change takes effect on the next wakeup.
type Worker struct {
	cache  *Cache
	out    io.Writer
	logger *slog.Logger

	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// NewWorker creates a worker printing to out
func NewWorker(cache *Cache, out io.Writer, logger *slog.Logger) *Worker {
	return &Worker{
		cache:  cache,
		out:    out,
		logger: logger.With("component", "worker"),
		stop:   make(chan struct{}),
	}
}

// Start launches the worker loop
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.run()
}

func (w *Worker) run() {
	defer w.wg.Done()

	for {
		timer := time.NewTimer(w.cache.Timeout())
		select {
		case <-w.stop:
			timer.Stop()
			return
		case <-timer.C:
		}

		// A stop that raced the timer wins; nothing prints after Stop
		// returns.
		select {
		case <-w.stop:
			return
		default:
		}

		if _, err := fmt.Fprintln(w.out, w.cache.Phrase()); err != nil {
			w.logger.Warn("Failed to write timeout phrase", "error", err)
		}
	}
}

// Stop signals the loop to exit and waits for it. The wait is bounded by
// one sleep interval. Safe to call more than once.
func (w *Worker) Stop() {
	w.once.Do(func() {
		close(w.stop)
	})
	w.wg.Wait()
}
