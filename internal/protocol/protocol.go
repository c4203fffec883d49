// Package protocol defines the wire contract spoken over the bridge socket:
// one JSON object per request, one JSON object per response, with message
// boundaries inferred from JSON well-formedness rather than a length prefix.
package protocol

import "encoding/json"

// Reserved command names served by the bridge itself, never by a subprocess.
const (
	CommandIntrospect = "__introspect__"
	CommandPing       = "__ping__"
)

// Request is one message from a client.
type Request struct {
	Command       string          `json:"command"`
	Parameters    map[string]any  `json:"parameters,omitempty"`
	AuthTokenHash string          `json:"auth_token_hash,omitempty"`
	RequestID     json.RawMessage `json:"request_id,omitempty"`
}

// Response is the single reply to a request. Exactly one of the variant
// field groups is populated: server_info (introspection), message/timestamp
// (ping), command/returncode/stdout/stderr (execution), or error/details
// (failure). RequestID is copied verbatim from the request when present.
type Response struct {
	Success bool `json:"success"`

	Error      string `json:"error,omitempty"`
	Details    string `json:"details,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"`

	Command      string          `json:"command,omitempty"`
	ReturnCode   *int            `json:"returncode,omitempty"`
	Stdout       *string         `json:"stdout,omitempty"`
	Stderr       *string         `json:"stderr,omitempty"`
	ParsedOutput json.RawMessage `json:"parsed_output,omitempty"`
	ParseError   string          `json:"parse_error,omitempty"`

	Message   string  `json:"message,omitempty"`
	Timestamp float64 `json:"timestamp,omitempty"`

	ServerInfo *ServerInfo `json:"server_info,omitempty"`

	RequestID json.RawMessage `json:"request_id,omitempty"`
}

// ServerInfo is the introspection catalogue.
type ServerInfo struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Version     string                 `json:"version"`
	Commands    map[string]CommandInfo `json:"commands"`
}

// CommandInfo describes one whitelisted command to clients. Parameters and
// Examples carry the config-layer shapes verbatim.
type CommandInfo struct {
	Description string `json:"description"`
	Parameters  any    `json:"parameters"`
	Examples    any    `json:"examples"`
}

// ErrorResponse builds a failure response with the given reason.
func ErrorResponse(reason string) *Response {
	return &Response{Success: false, Error: reason}
}
