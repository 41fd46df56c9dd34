// Package logging provides a minimal logging interface and adapters for voicemesh.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that agents, the manager and the memory glue use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - StructuredLogger with component / session attributes
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LogLevelInfo, Format: "json"})
//	mesh := voicemesh.New(func(o *voicemesh.Options) { o.Logger = logger })
//
// Messages are dotted event names ("agent.tool.dispatch") followed by
// key/value attributes.
package logging
