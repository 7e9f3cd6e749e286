// Package natsclient wraps the NATS connection used as the broker's IPC
// substrate: request/reply for calls, plain publish/subscribe for the
// configuration changed notification, and a well-known service name claim
// that keeps the broker a per-session singleton.
package natsclient

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/configbroker/errors"
	"github.com/c360/configbroker/pkg/retry"
)

// ConnectionStatus represents the state of the NATS connection
type ConnectionStatus int

// Possible connection statuses
const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
)

// String returns the string representation of ConnectionStatus
func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Subscription is a cancellable handle to an active subscription
type Subscription struct {
	sub *nats.Subscription
}

// Unsubscribe cancels the subscription. Safe to call on a nil handle.
func (s *Subscription) Unsubscribe() error {
	if s == nil || s.sub == nil {
		return nil
	}
	return s.sub.Unsubscribe()
}

// Client manages the NATS connection for one process
type Client struct {
	url    string
	status atomic.Value // stores ConnectionStatus
	logger Logger

	conn *nats.Conn
	subs []*nats.Subscription

	// Claimed well-known service name, empty when none
	claimedName string

	// Connection options
	maxReconnects int
	reconnectWait time.Duration
	timeout       time.Duration
	drainTimeout  time.Duration
	clientName    string
	connectRetry  retry.Config

	mu      sync.RWMutex
	closeMu sync.Mutex
	closed  atomic.Bool
}

// NewClient creates a new NATS client with optional configuration
func NewClient(url string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		url:    url,
		logger: &defaultLogger{},
		// Sensible defaults
		maxReconnects: -1, // infinite by default
		reconnectWait: 2 * time.Second,
		timeout:       5 * time.Second,
		drainTimeout:  10 * time.Second,
		connectRetry:  retry.Quick(),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapInvalid(err, "Client", "NewClient", "apply option")
		}
	}

	c.status.Store(StatusDisconnected)
	c.logger.Debugf("Created NATS client for %s", url)

	return c, nil
}

// URL returns the NATS server URL
func (c *Client) URL() string {
	return c.url
}

// Status returns the current connection status
func (c *Client) Status() ConnectionStatus {
	val := c.status.Load()
	if val == nil {
		return StatusDisconnected
	}
	return val.(ConnectionStatus)
}

// IsHealthy returns true if the connection is established
func (c *Client) IsHealthy() bool {
	return c.Status() == StatusConnected
}

func (c *Client) setStatus(status ConnectionStatus) {
	c.status.Store(status)
}

// GetConnection returns the current NATS connection
func (c *Client) GetConnection() *nats.Conn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

// SetConnection sets the NATS connection (for testing)
func (c *Client) SetConnection(conn *nats.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn = conn
	if conn != nil && conn.IsConnected() {
		c.setStatus(StatusConnected)
	}
}

// buildConnectionOptions builds NATS connection options from client configuration
func (c *Client) buildConnectionOptions() []nats.Option {
	opts := []nats.Option{
		nats.MaxReconnects(c.maxReconnects),
		nats.ReconnectWait(c.reconnectWait),
		nats.Timeout(c.timeout),
		nats.DrainTimeout(c.drainTimeout),
		nats.DisconnectErrHandler(c.handleDisconnect),
		nats.ReconnectHandler(c.handleReconnect),
		nats.ClosedHandler(c.handleClosed),
	}

	if c.clientName != "" {
		opts = append(opts, nats.Name(c.clientName))
	}

	return opts
}

// Connect establishes the connection, retrying with backoff while the
// substrate is unavailable. A definitive failure after all attempts maps to
// ErrIPCConnection.
func (c *Client) Connect(ctx context.Context) error {
	c.setStatus(StatusConnecting)
	c.logger.Printf("Connecting to NATS at %s", c.url)

	opts := c.buildConnectionOptions()

	err := retry.Do(ctx, c.connectRetry, func() error {
		conn, connErr := nats.Connect(c.url, opts...)
		if connErr != nil {
			c.logger.Debugf("Connection attempt failed: %v", connErr)
			return connErr
		}
		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()
		return nil
	})
	if err != nil {
		c.setStatus(StatusDisconnected)
		return errors.WrapTransient(
			fmt.Errorf("%w: %v", errors.ErrIPCConnection, err),
			"Client", "Connect", "establish connection")
	}

	c.setStatus(StatusConnected)
	c.logger.Printf("Successfully connected to NATS at %s", c.url)
	return nil
}

// Close drains the connection and cancels all tracked subscriptions.
// A claimed service name is released as part of the drain.
func (c *Client) Close(ctx context.Context) error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed.Load() {
		return nil // Already closed
	}
	c.closed.Store(true)

	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error

	for _, sub := range c.subs {
		if err := sub.Unsubscribe(); err != nil && !stderrors.Is(err, nats.ErrConnectionClosed) {
			errs = append(errs, errors.Wrap(err, "Client", "Close", "unsubscribe"))
			c.logger.Errorf("Failed to unsubscribe: %v", err)
		}
	}
	c.subs = nil
	if c.claimedName != "" {
		c.logger.Printf("Released service name %s", c.claimedName)
		c.claimedName = ""
	}

	if c.conn != nil {
		drainTimeout := c.drainTimeout
		if deadline, ok := ctx.Deadline(); ok {
			if remaining := time.Until(deadline); remaining > 0 && remaining < drainTimeout {
				drainTimeout = remaining
			}
		}

		drainDone := make(chan error, 1)
		go func() {
			drainDone <- c.conn.Drain()
		}()

		select {
		case err := <-drainDone:
			if err != nil {
				errs = append(errs, errors.Wrap(err, "Client", "Close", "drain connection"))
				c.logger.Errorf("Drain error: %v", err)
			}
		case <-time.After(drainTimeout):
			errs = append(errs, errors.WrapTransient(
				fmt.Errorf("drain timeout after %v", drainTimeout),
				"Client", "Close", "drain timeout"))
			c.logger.Errorf("Drain timeout after %v, force closing", drainTimeout)
		case <-ctx.Done():
			errs = append(errs, errors.Wrap(ctx.Err(), "Client", "Close", "context cancelled during drain"))
		}

		c.conn.Close()
		c.conn = nil
	}

	c.setStatus(StatusDisconnected)

	return stderrors.Join(errs...)
}

// Publish publishes a message to a NATS subject
func (c *Client) Publish(_ context.Context, subject string, data []byte) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || !conn.IsConnected() {
		return errors.ErrNotConnected
	}

	return conn.Publish(subject, data)
}

// Request performs a request/reply call and returns the reply payload.
// A subject with no responder maps to ErrIPCConnection: the service the
// caller is addressing is not on the bus.
func (c *Client) Request(ctx context.Context, subject string, data []byte) ([]byte, error) {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || !conn.IsConnected() {
		return nil, errors.ErrNotConnected
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	msg, err := conn.RequestWithContext(ctx, subject, data)
	if err != nil {
		if stderrors.Is(err, nats.ErrNoResponders) {
			return nil, errors.WrapTransient(
				fmt.Errorf("%w: no responder on %s", errors.ErrIPCConnection, subject),
				"Client", "Request", "await responder")
		}
		return nil, errors.WrapTransient(err, "Client", "Request", "send request")
	}

	return msg.Data, nil
}

// Subscribe subscribes to a subject and returns a cancellable handle.
// The handler runs on the connection's delivery goroutine and must not block.
func (c *Client) Subscribe(ctx context.Context, subject string, handler func(context.Context, []byte)) (*Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || !c.conn.IsConnected() {
		return nil, errors.ErrNotConnected
	}

	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(ctx, msg.Data)
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "Client", "Subscribe", "subscribe")
	}

	c.subs = append(c.subs, sub)
	return &Subscription{sub: sub}, nil
}

// Respond installs a request handler on a subject. The handler's return
// value is sent back to the requester as the reply payload.
func (c *Client) Respond(subject string, handler func([]byte) []byte) (*Subscription, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil || !c.conn.IsConnected() {
		return nil, errors.ErrNotConnected
	}

	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		reply := handler(msg.Data)
		if err := msg.Respond(reply); err != nil {
			c.logger.Errorf("Failed to respond on %s: %v", subject, err)
		}
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "Client", "Respond", "subscribe")
	}

	c.subs = append(c.subs, sub)
	return &Subscription{sub: sub}, nil
}

// ClaimName claims a well-known service name for this process. Exactly one
// process per session may hold a name: the claim probes for a live holder
// and fails with ErrNameClaimed when one answers. On success a liveness
// responder is installed so later claimants see the name as taken.
func (c *Client) ClaimName(ctx context.Context, service string) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || !conn.IsConnected() {
		return errors.ErrNotConnected
	}

	probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := conn.RequestWithContext(probeCtx, claimSubject(service), []byte("ping"))
	switch {
	case err == nil:
		return errors.WrapFatal(
			fmt.Errorf("%w: %s", errors.ErrNameClaimed, service),
			"Client", "ClaimName", "probe name holder")
	case stderrors.Is(err, nats.ErrNoResponders),
		stderrors.Is(err, nats.ErrTimeout),
		stderrors.Is(err, context.DeadlineExceeded):
		// Name is free
	default:
		return errors.WrapTransient(err, "Client", "ClaimName", "probe name holder")
	}

	sub, err := conn.Subscribe(claimSubject(service), func(msg *nats.Msg) {
		if err := msg.Respond([]byte("pong")); err != nil {
			c.logger.Debugf("Failed to answer name probe: %v", err)
		}
	})
	if err != nil {
		return errors.WrapTransient(err, "Client", "ClaimName", "install liveness responder")
	}

	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.claimedName = service
	c.mu.Unlock()

	c.logger.Printf("Claimed service name %s", service)
	return nil
}

// ClaimedName returns the currently held service name, empty when none
func (c *Client) ClaimedName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.claimedName
}

func claimSubject(service string) string {
	return service + ".ctl.ping"
}

// Event handlers for NATS connection
func (c *Client) handleDisconnect(_ *nats.Conn, err error) {
	c.setStatus(StatusReconnecting)
	if err != nil {
		c.logger.Errorf("NATS disconnected: %v", err)
	}
}

func (c *Client) handleReconnect(_ *nats.Conn) {
	c.setStatus(StatusConnected)
	c.logger.Printf("NATS reconnected")
}

func (c *Client) handleClosed(_ *nats.Conn) {
	c.setStatus(StatusDisconnected)
}
