// Package jsonutil provides a thin, error-wrapped JSON encode/decode layer
// shared by the RPC envelope and broker packages, backed by sonic rather
// than encoding/json.
package jsonutil

const (
	// DefaultJSONIndent is the indent used by MarshalIndent callers that
	// don't care about a specific style.
	DefaultJSONIndent = "  "

	// MaxJSONSize bounds the size of a single decoded document.
	MaxJSONSize = 10 * 1024 * 1024 // 10MB
)
