// Package clientcache holds a client application's view of its own
// configuration: a typed cache fed from the configuration file at startup
// and from ConfigurationChanged notifications afterwards, plus the worker
// loop that consumes the cached values.
package clientcache

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/c360/configbroker/configfile"
	"github.com/c360/configbroker/errors"
	"github.com/c360/configbroker/variant"
)

// Recognized configuration keys
const (
	KeyTimeout       = "Timeout"
	KeyTimeoutPhrase = "TimeoutPhrase"
)

// Cache is the client's typed configuration cache. Reads and writes contend
// from exactly two contexts: the worker loop and the notification handler.
type Cache struct {
	mu        sync.RWMutex
	timeoutMs int64
	phrase    string
	logger    *slog.Logger
}

// New creates a cache seeded with default values
func New(timeoutMs int64, phrase string, logger *slog.Logger) *Cache {
	return &Cache{
		timeoutMs: timeoutMs,
		phrase:    phrase,
		logger:    logger.With("component", "clientcache"),
	}
}

// Snapshot returns the current timeout and phrase under a read lock
func (c *Cache) Snapshot() (timeoutMs int64, phrase string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.timeoutMs, c.phrase
}

// Timeout returns the current sleep interval
func (c *Cache) Timeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.timeoutMs) * time.Millisecond
}

// Phrase returns the current timeout phrase
func (c *Cache) Phrase() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phrase
}

func (c *Cache) defaults() variant.Map {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return variant.Map{
		KeyTimeout:       variant.Int(c.timeoutMs),
		KeyTimeoutPhrase: variant.String(c.phrase),
	}
}

// LoadOrCreate initializes the cache from the configuration file at path.
// A missing file, or force set, writes the cache's current values as the
// new file; otherwise the file's values replace the cache's. It reports
// whether the file was (re)created.
func (c *Cache) LoadOrCreate(path string, force bool) (bool, error) {
	path, err := configfile.ExpandHome(path)
	if err != nil {
		return false, errors.Wrap(err, "Cache", "LoadOrCreate", "expand configuration path")
	}

	created, err := configfile.CreateDefault(path, c.defaults(), force)
	if err != nil {
		return false, errors.Wrap(err, "Cache", "LoadOrCreate", "create configuration file")
	}
	if created {
		c.logger.Info("Configuration file created with defaults", "path", path)
		return true, nil
	}

	m, err := configfile.Load(path)
	if err != nil {
		return false, errors.Wrap(err, "Cache", "LoadOrCreate", "load configuration file")
	}
	c.applyMap(m)
	c.logger.Info("Configuration file loaded", "path", path)
	return false, nil
}

// applyMap copies recognized, well-typed keys into the cache. Unrecognized
// keys and type mismatches are logged and skipped.
func (c *Cache) applyMap(m variant.Map) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, value := range m {
		switch key {
		case KeyTimeout:
			if ms, ok := value.IntVal(); ok {
				c.timeoutMs = ms
			} else {
				c.logger.Warn("Ignoring ill-typed configuration value",
					"key", key, "value", value.String())
			}
		case KeyTimeoutPhrase:
			if s, ok := value.StringVal(); ok {
				c.phrase = s
			} else {
				c.logger.Warn("Ignoring ill-typed configuration value",
					"key", key, "value", value.String())
			}
		default:
			c.logger.Debug("Ignoring unrecognized configuration key", "key", key)
		}
	}
}

// changedEnvelope is the part of the ConfigurationChanged payload the client
// consumes. Keys stay raw so one malformed entry cannot poison the rest.
type changedEnvelope struct {
	Application string                     `json:"application"`
	Config      map[string]json.RawMessage `json:"config"`
}

// ApplySnapshot applies a ConfigurationChanged payload to the cache. Each
// recognized key is decoded independently; a failure on one key is logged
// and leaves the other keys, and the cached value for that key, intact.
// Applying the same snapshot twice is a no-op.
func (c *Cache) ApplySnapshot(data []byte) {
	var event changedEnvelope
	if err := json.Unmarshal(data, &event); err != nil {
		c.logger.Warn("Ignoring undecodable configuration notification", "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if raw, ok := event.Config[KeyTimeout]; ok {
		var ms int64
		if err := json.Unmarshal(raw, &ms); err != nil {
			c.logger.Warn("Ignoring malformed notification value",
				"key", KeyTimeout, "error", err)
		} else {
			c.timeoutMs = ms
		}
	}

	if raw, ok := event.Config[KeyTimeoutPhrase]; ok {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			c.logger.Warn("Ignoring malformed notification value",
				"key", KeyTimeoutPhrase, "error", err)
		} else {
			c.phrase = s
		}
	}

	c.logger.Debug("Configuration notification applied",
		"application", event.Application,
		"timeout_ms", c.timeoutMs, "phrase", c.phrase)
}
