// Package configbroker is the root of the runtime configuration broker.
//
// The broker serves a directory of per-application configuration files over
// the message bus. Each file becomes an application endpoint offering three
// operations:
//
//   - GetConfiguration: read the full configuration map
//   - ChangeConfiguration: replace one entry and persist the file
//   - ConfigurationChanged: notification carrying the full new map
//
// Values are scalars only (string, int64, float64, bool); see the variant
// package. The broker owns the well-known service name
// com.system.configurationManager exclusively, so at most one instance runs
// against a bus at a time.
//
// # Architecture
//
//	cmd/configbroker  broker daemon entry point
//	cmd/configclient  demo client that follows its own configuration
//	broker            directory scan, endpoint registration, lifecycle
//	endpoint          per-application bus endpoint and wire envelopes
//	configstore       in-memory configuration map with lock discipline
//	configfile        JSON/YAML file load, save, and default creation
//	variant           scalar value type and its JSON/YAML codecs
//	clientcache       client-side typed cache, worker loop, subscriber
//	natsclient        NATS connection management and request plumbing
//	metric            prometheus registry and metrics HTTP server
//	errors            classified errors and the wire error taxonomy
//	pkg/retry         backoff helper used for connection establishment
package configbroker
