package config

import "time"

// ServerConfig is the top-level bridge configuration. It is loaded once at
// startup and never mutated afterwards.
type ServerConfig struct {
	Name        string `json:"name" toml:"name"`
	Description string `json:"description,omitempty" toml:"description"`
	Version     string `json:"version,omitempty" toml:"version"`

	SocketPath        string `json:"socket_path" toml:"socket_path"`
	SocketPermissions uint32 `json:"socket_permissions,omitempty" toml:"socket_permissions"`

	LogLevel string `json:"log_level,omitempty" toml:"log_level"`

	EnableRateLimit *bool           `json:"enable_rate_limit,omitempty" toml:"enable_rate_limit"`
	RateLimit       RateLimitConfig `json:"rate_limit,omitempty" toml:"rate_limit"`

	MaxRequestSize int `json:"max_request_size,omitempty" toml:"max_request_size"`
	MaxOutputSize  int `json:"max_output_size,omitempty" toml:"max_output_size"`

	EnableThreading bool `json:"enable_threading,omitempty" toml:"enable_threading"`

	AllowedExecutableDirs []string `json:"allowed_executable_dirs,omitempty" toml:"allowed_executable_dirs"`

	Commands map[string]CommandSpec `json:"commands" toml:"commands"`

	// Auth settings here are baseline values; the AUTH_* environment
	// variables take precedence (see the auth package).
	AuthEnabled   bool   `json:"auth_enabled,omitempty" toml:"auth_enabled"`
	AuthTokenHash string `json:"auth_token_hash,omitempty" toml:"auth_token_hash"`

	Debug bool `json:"debug,omitempty" toml:"debug"`
}

// RateLimitConfig caps requests per client within a sliding window.
type RateLimitConfig struct {
	Requests      int `json:"requests" toml:"requests"`
	WindowSeconds int `json:"window" toml:"window"`
}

// CommandSpec describes one whitelisted operation.
type CommandSpec struct {
	Description    string                   `json:"description,omitempty" toml:"description"`
	Executable     []string                 `json:"executable" toml:"executable"`
	TimeoutSeconds int                      `json:"timeout,omitempty" toml:"timeout"`
	Cwd            string                   `json:"cwd,omitempty" toml:"cwd"`
	Env            map[string]string        `json:"env,omitempty" toml:"env"`
	Parameters     map[string]ParameterSpec `json:"parameters,omitempty" toml:"parameters"`
	ResponseFormat *ResponseFormat          `json:"response_format,omitempty" toml:"response_format"`
	Examples       []map[string]any         `json:"examples,omitempty" toml:"examples"`
}

// ParameterSpec is the validation contract for one named argument.
type ParameterSpec struct {
	Description string `json:"description,omitempty" toml:"description"`
	Type        string `json:"type,omitempty" toml:"type"`         // string, number, boolean
	Required    bool   `json:"required,omitempty" toml:"required"`
	Style       string `json:"style,omitempty" toml:"style"` // flag, argument, single_flag
	Pattern     string `json:"pattern,omitempty" toml:"pattern"`
	Enum        []any  `json:"enum,omitempty" toml:"enum"`
	MaxLength   int    `json:"max_length,omitempty" toml:"max_length"`
}

// ResponseFormat holds optional post-processing of command output.
type ResponseFormat struct {
	ParseJSON bool `json:"parse_json,omitempty" toml:"parse_json"`
}

// Parameter types.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
)

// Parameter styles, controlling how a value is appended to argv.
const (
	StyleFlag       = "flag"        // --name value
	StyleArgument   = "argument"    // value
	StyleSingleFlag = "single_flag" // --name=value
)

// RateLimitEnabled reports whether the per-request rate limiter is active.
// It defaults to true when the config does not say otherwise.
func (c *ServerConfig) RateLimitEnabled() bool {
	return c.EnableRateLimit == nil || *c.EnableRateLimit
}

// Window returns the rate-limit window as a duration.
func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

// EffectiveType returns the parameter type, defaulting to string.
func (p ParameterSpec) EffectiveType() string {
	if p.Type == "" {
		return TypeString
	}
	return p.Type
}

// EffectiveStyle returns the argv style, defaulting to flag.
func (p ParameterSpec) EffectiveStyle() string {
	if p.Style == "" {
		return StyleFlag
	}
	return p.Style
}
