package clientcache

import (
	"context"
	"log/slog"

	"github.com/c360/configbroker/endpoint"
	"github.com/c360/configbroker/errors"
	"github.com/c360/configbroker/natsclient"
)

// Bus is the transport surface the subscriber needs. *natsclient.Client
// satisfies it.
type Bus interface {
	Subscribe(ctx context.Context, subject string, handler func(context.Context, []byte)) (*natsclient.Subscription, error)
}

// Subscriber feeds a cache from an application's ConfigurationChanged
// notifications
type Subscriber struct {
	cache  *Cache
	bus    Bus
	logger *slog.Logger
	sub    *natsclient.Subscription
}

// NewSubscriber creates a subscriber updating cache
func NewSubscriber(cache *Cache, bus Bus, logger *slog.Logger) *Subscriber {
	return &Subscriber{
		cache:  cache,
		bus:    bus,
		logger: logger.With("component", "subscriber"),
	}
}

// Subscribe starts listening for the application's configuration changes.
// The handler only touches the cache; it never calls back into the service.
func (s *Subscriber) Subscribe(ctx context.Context, service, application string) error {
	subject := endpoint.ChangedSubject(service, application)

	sub, err := s.bus.Subscribe(ctx, subject, func(_ context.Context, data []byte) {
		s.cache.ApplySnapshot(data)
	})
	if err != nil {
		return errors.Wrap(err, "Subscriber", "Subscribe", "subscribe to configuration changes")
	}

	s.sub = sub
	s.logger.Info("Subscribed to configuration changes",
		"application", application, "subject", subject)
	return nil
}

// Unsubscribe cancels the subscription. Safe to call without a prior
// Subscribe.
func (s *Subscriber) Unsubscribe() {
	if err := s.sub.Unsubscribe(); err != nil {
		s.logger.Warn("Failed to unsubscribe from configuration changes", "error", err)
	}
	s.sub = nil
}
