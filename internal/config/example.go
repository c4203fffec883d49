package config

// Example returns a complete example configuration, printed by the
// "example" subcommand so administrators have a starting point.
func Example() *ServerConfig {
	enableRateLimit := true
	return &ServerConfig{
		Name:              "Example Server",
		Description:       "Example configuration for the unix socket bridge",
		Version:           "1.0.0",
		SocketPath:        "/tmp/example.sock",
		SocketPermissions: DefaultSocketPermissions,
		LogLevel:          DefaultLogLevel,
		EnableRateLimit:   &enableRateLimit,
		RateLimit: RateLimitConfig{
			Requests:      DefaultRateLimitRequests,
			WindowSeconds: DefaultRateLimitWindow,
		},
		MaxRequestSize:  DefaultMaxRequestSize,
		MaxOutputSize:   DefaultMaxOutputSize,
		EnableThreading: false,
		AllowedExecutableDirs: []string{
			"/usr/bin/",
			"/bin/",
			"/usr/local/bin/",
		},
		Commands: map[string]CommandSpec{
			"echo": {
				Description:    "Echo a message",
				Executable:     []string{"echo"},
				TimeoutSeconds: 5,
				Parameters: map[string]ParameterSpec{
					"message": {
						Description: "Message to echo",
						Type:        TypeString,
						Required:    true,
						Style:       StyleArgument,
						MaxLength:   1000,
					},
				},
				Examples: []map[string]any{
					{
						"description": "Echo hello",
						"request": map[string]any{
							"command":    "echo",
							"parameters": map[string]any{"message": "hello"},
						},
					},
				},
			},
			"date": {
				Description:    "Get current date",
				Executable:     []string{"date"},
				TimeoutSeconds: 5,
			},
		},
	}
}
