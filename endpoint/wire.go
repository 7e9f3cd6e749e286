package endpoint

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/c360/configbroker/errors"
	"github.com/c360/configbroker/variant"
)

// ChangeRequest is the wire form of a ChangeConfiguration call. Value stays
// raw so that an absent value (InvalidArgument) and an unsupported value type
// (TypeError) can be told apart at decode time.
type ChangeRequest struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value,omitempty"`
}

// ErrorInfo carries a call failure back to the specific caller
type ErrorInfo struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Err reconstructs a Go error from the wire form, preserving the taxonomy
// sentinel when the kind is known
func (e *ErrorInfo) Err() error {
	if e == nil {
		return nil
	}
	if sentinel := errors.FromKindName(e.Kind); sentinel != nil {
		return fmt.Errorf("%w: %s", sentinel, e.Message)
	}
	return fmt.Errorf("remote call failed: %s", e.Message)
}

// newErrorInfo converts a local error to its wire form
func newErrorInfo(err error) *ErrorInfo {
	if err == nil {
		return nil
	}
	return &ErrorInfo{Kind: errors.KindName(err), Message: err.Error()}
}

// GetReply is the reply to GetConfiguration
type GetReply struct {
	Config variant.Map `json:"config"`
	Error  *ErrorInfo  `json:"error,omitempty"`
}

// ChangeReply is the reply to ChangeConfiguration
type ChangeReply struct {
	Error *ErrorInfo `json:"error,omitempty"`
}

// ChangedEvent is the ConfigurationChanged notification payload. It carries
// the full current map, never a diff, so a subscriber resynchronizes fully
// even after lost or reordered deliveries. ID and EmittedAt identify a
// particular emission; applying the same snapshot twice is a no-op.
type ChangedEvent struct {
	ID          string      `json:"id"`
	Application string      `json:"application"`
	EmittedAt   time.Time   `json:"emitted_at"`
	Config      variant.Map `json:"config"`
}
