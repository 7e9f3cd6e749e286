// Package errors provides standardized error handling patterns for the
// configuration broker.
//
// # Overview
//
// The package implements a three-class error classification system: Transient
// (temporary, retryable), Invalid (bad input, non-retryable), and Fatal
// (unrecoverable, stop the process). On top of the classification it defines
// the broker's error taxonomy as sentinel variables:
//
//   - Persistence: ErrNotFound, ErrParse, ErrUnsupportedType
//   - Runtime changes: ErrInvalidArgument
//   - Broker startup: ErrConfigDir, ErrNoConfigs
//   - IPC substrate: ErrIPCConnection, ErrNameClaimed, ErrNotConnected
//
// The classification system integrates with Go's standard error handling,
// supporting errors.Is(), errors.As(), and error wrapping chains.
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"component.method: action failed: %w"
//
// Three wrapper functions provide classification-aware wrapping:
//
//	errors.WrapTransient(err, "Component", "Method", "action")
//	errors.WrapInvalid(err, "Component", "Method", "action")
//	errors.WrapFatal(err, "Component", "Method", "action")
//
// The generic Wrap() preserves the original error's classification.
//
// # Wire Mapping
//
// KindName and FromKindName translate between taxonomy sentinels and the
// stable identifiers carried in IPC error replies (for example "NotFound",
// "InvalidArgument"), so a remote caller can match on the same sentinels the
// broker uses locally:
//
//	if errors.Is(callErr, errors.ErrInvalidArgument) {
//	    // reject was caused by an empty key or unset value
//	}
//
// # Propagation Policy
//
// Startup errors (ErrConfigDir, ErrNoConfigs, endpoint construction failures,
// ErrNameClaimed) are fatal: the broker refuses to start in a partially
// working state. Per-call errors on ChangeConfiguration are returned to the
// specific caller only. Persistence write failures never propagate - the
// in-memory store is authoritative during a session - and are logged at
// warning level instead.
package errors
