package endpoint

import (
	"context"
	"encoding/json"

	"github.com/c360/configbroker/errors"
	"github.com/c360/configbroker/variant"
)

// Requester is the request/reply slice of the IPC substrate. *natsclient.Client
// satisfies it.
type Requester interface {
	Request(ctx context.Context, subject string, data []byte) ([]byte, error)
}

// Caller invokes another application's configuration operations over the bus
type Caller struct {
	service string
	req     Requester
}

// NewCaller creates a caller for the given service name
func NewCaller(service string, req Requester) *Caller {
	return &Caller{service: service, req: req}
}

// GetConfiguration fetches an application's full configuration map
func (c *Caller) GetConfiguration(ctx context.Context, application string) (variant.Map, error) {
	data, err := c.req.Request(ctx, GetSubject(c.service, application), nil)
	if err != nil {
		return nil, errors.Wrap(err, "Caller", "GetConfiguration", "request")
	}

	var reply GetReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, errors.WrapInvalid(err, "Caller", "GetConfiguration", "decode reply")
	}
	if reply.Error != nil {
		return nil, reply.Error.Err()
	}
	return reply.Config, nil
}

// ChangeConfiguration replaces one entry in an application's configuration
func (c *Caller) ChangeConfiguration(ctx context.Context, application, key string, value variant.Value) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.WrapInvalid(err, "Caller", "ChangeConfiguration", "encode value")
	}

	req, err := json.Marshal(ChangeRequest{Key: key, Value: raw})
	if err != nil {
		return errors.WrapInvalid(err, "Caller", "ChangeConfiguration", "encode request")
	}

	data, err := c.req.Request(ctx, ChangeSubject(c.service, application), req)
	if err != nil {
		return errors.Wrap(err, "Caller", "ChangeConfiguration", "request")
	}

	var reply ChangeReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return errors.WrapInvalid(err, "Caller", "ChangeConfiguration", "decode reply")
	}
	return reply.Error.Err()
}
