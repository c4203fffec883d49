package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Defaults applied when the config file leaves a knob unset.
const (
	DefaultSocketPermissions = 0o666
	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 60
	DefaultMaxRequestSize    = 1 << 20 // 1 MiB
	DefaultMaxOutputSize     = 100_000
	DefaultCommandTimeout    = 10
	DefaultLogLevel          = "INFO"
)

// LoadFrom reads, parses, and defaults a config file. The primary format is
// JSON; files ending in .toml are parsed as TOML. The result has not been
// validated; callers must run Validate before serving.
func LoadFrom(path string) (*ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg ServerConfig
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	} else {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *ServerConfig) {
	if cfg.SocketPermissions == 0 {
		cfg.SocketPermissions = DefaultSocketPermissions
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.Version == "" {
		cfg.Version = "1.0.0"
	}
	if cfg.RateLimit.Requests == 0 {
		cfg.RateLimit.Requests = DefaultRateLimitRequests
	}
	if cfg.RateLimit.WindowSeconds == 0 {
		cfg.RateLimit.WindowSeconds = DefaultRateLimitWindow
	}
	if cfg.MaxRequestSize == 0 {
		cfg.MaxRequestSize = DefaultMaxRequestSize
	}
	if cfg.MaxOutputSize == 0 {
		cfg.MaxOutputSize = DefaultMaxOutputSize
	}

	for name, cmd := range cfg.Commands {
		if cmd.TimeoutSeconds == 0 {
			cmd.TimeoutSeconds = DefaultCommandTimeout
			cfg.Commands[name] = cmd
		}
	}
}
