package auth

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sockbridge/sockbridge/internal/config"
)

// Environment variables controlling authentication. They take precedence
// over the equivalent config-file fields.
const (
	EnvEnabled       = "AUTH_ENABLED"
	EnvTokenHash     = "AUTH_TOKEN_HASH"
	EnvMaxAttempts   = "AUTH_MAX_ATTEMPTS"
	EnvWindowSeconds = "AUTH_WINDOW_SECONDS"
	EnvBlockDuration = "AUTH_BLOCK_DURATION"
)

// Lockout tuning defaults, used when the environment leaves them unset.
const (
	DefaultMaxAttempts   = 5
	DefaultWindowSeconds = 300
	DefaultBlockSeconds  = 300
)

// Settings is the resolved authentication configuration.
type Settings struct {
	Enabled       bool
	TokenHash     string
	MaxAttempts   int
	Window        time.Duration
	BlockDuration time.Duration
}

// SettingsFromEnv resolves auth settings from the environment on top of the
// config file. Enabling auth without a configured token hash is an error;
// the caller must treat it as fatal before binding any socket.
func SettingsFromEnv(cfg *config.ServerConfig) (Settings, error) {
	s := Settings{
		Enabled:       cfg.AuthEnabled,
		TokenHash:     cfg.AuthTokenHash,
		MaxAttempts:   DefaultMaxAttempts,
		Window:        DefaultWindowSeconds * time.Second,
		BlockDuration: DefaultBlockSeconds * time.Second,
	}

	if v, ok := os.LookupEnv(EnvEnabled); ok {
		s.Enabled = parseBool(v)
	}
	if v, ok := os.LookupEnv(EnvTokenHash); ok && v != "" {
		s.TokenHash = v
	}

	var err error
	if s.MaxAttempts, err = intFromEnv(EnvMaxAttempts, s.MaxAttempts); err != nil {
		return Settings{}, err
	}
	if s.Window, err = secondsFromEnv(EnvWindowSeconds, s.Window); err != nil {
		return Settings{}, err
	}
	if s.BlockDuration, err = secondsFromEnv(EnvBlockDuration, s.BlockDuration); err != nil {
		return Settings{}, err
	}

	if s.Enabled && s.TokenHash == "" {
		return Settings{}, errors.New("authentication enabled but no token hash configured (set AUTH_TOKEN_HASH)")
	}
	return s, nil
}

// parseBool accepts the loose bool-like strings used by the AUTH_ENABLED
// contract: 1/true/yes/on, case-insensitively. Anything else is false.
func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func intFromEnv(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s value %q", key, v)
	}
	return n, nil
}

func secondsFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s value %q", key, v)
	}
	return time.Duration(n) * time.Second, nil
}
