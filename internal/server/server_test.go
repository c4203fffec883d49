package server

import (
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/sockbridge/sockbridge/internal/auth"
	"github.com/sockbridge/sockbridge/internal/config"
	"github.com/sockbridge/sockbridge/internal/identity"
	"github.com/sockbridge/sockbridge/internal/protocol"
)

func testServerConfig(t *testing.T) *config.ServerConfig {
	t.Helper()
	enabled := true
	return &config.ServerConfig{
		Name:                  "T",
		Version:               "1.0.0",
		SocketPath:            filepath.Join(t.TempDir(), "t.sock"),
		SocketPermissions:     config.DefaultSocketPermissions,
		EnableRateLimit:       &enabled,
		RateLimit:             config.RateLimitConfig{Requests: 100, WindowSeconds: 60},
		MaxRequestSize:        config.DefaultMaxRequestSize,
		MaxOutputSize:         config.DefaultMaxOutputSize,
		AllowedExecutableDirs: []string{"/bin/", "/usr/bin/"},
		Commands: map[string]config.CommandSpec{
			"echo": {
				Executable:     []string{"echo"},
				TimeoutSeconds: 5,
				Parameters: map[string]config.ParameterSpec{
					"message": {
						Type:     config.TypeString,
						Required: true,
						Style:    config.StyleArgument,
					},
				},
			},
		},
	}
}

func startServer(t *testing.T, opts Options) *protocol.Client {
	t.Helper()

	if opts.Framer == nil {
		opts.Framer = &protocol.JSONFramer{
			MaxSize:     opts.Config.MaxRequestSize,
			ReadTimeout: 500 * time.Millisecond,
		}
	}

	s := New(opts)
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(s.Stop)

	return protocol.NewClient(opts.Config.SocketPath, 5*time.Second)
}

func TestServeEchoScenario(t *testing.T) {
	cfg := testServerConfig(t)
	client := startServer(t, Options{Config: cfg})

	resp, err := client.Send(&protocol.Request{
		Command:    "echo",
		Parameters: map[string]any{"message": "hi"},
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if !resp.Success {
		t.Fatalf("response = %+v, want success", resp)
	}
	if resp.Command != "echo" {
		t.Errorf("command = %q, want echo", resp.Command)
	}
	if resp.ReturnCode == nil || *resp.ReturnCode != 0 {
		t.Errorf("returncode = %v, want 0", resp.ReturnCode)
	}
	if resp.Stdout == nil || *resp.Stdout != "hi" {
		t.Errorf("stdout = %v, want hi", resp.Stdout)
	}
	if resp.Stderr == nil || *resp.Stderr != "" {
		t.Errorf("stderr = %v, want empty", resp.Stderr)
	}
}

func TestServeMissingRequiredParameter(t *testing.T) {
	cfg := testServerConfig(t)
	client := startServer(t, Options{Config: cfg})

	resp, err := client.Send(&protocol.Request{Command: "echo"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if resp.Success {
		t.Fatal("response succeeded without required parameter")
	}
	if resp.Error != "Missing required parameter: message" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestServePing(t *testing.T) {
	cfg := testServerConfig(t)
	client := startServer(t, Options{Config: cfg})

	resp, err := client.Ping()
	if err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if !resp.Success || resp.Message != "pong" {
		t.Fatalf("ping response = %+v", resp)
	}
	if resp.Timestamp <= 0 {
		t.Errorf("timestamp = %v, want positive", resp.Timestamp)
	}
}

func TestServeIntrospectionIsIdempotent(t *testing.T) {
	cfg := testServerConfig(t)
	client := startServer(t, Options{Config: cfg})

	first, err := client.Introspect()
	if err != nil {
		t.Fatalf("Introspect() error = %v", err)
	}
	second, err := client.Introspect()
	if err != nil {
		t.Fatalf("Introspect() error = %v", err)
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Fatalf("introspection differs between calls:\n%s\n%s", a, b)
	}

	if first.ServerInfo == nil || first.ServerInfo.Name != "T" {
		t.Fatalf("server_info = %+v", first.ServerInfo)
	}
	if _, ok := first.ServerInfo.Commands["echo"]; !ok {
		t.Error("introspection missing echo command")
	}
}

func TestServeEchoesRequestIDAcrossOutcomes(t *testing.T) {
	cfg := testServerConfig(t)
	cfg.RateLimit = config.RateLimitConfig{Requests: 2, WindowSeconds: 60}
	client := startServer(t, Options{
		Config:       cfg,
		RateIdentity: identity.Fixed("same-client"),
	})

	requestID := json.RawMessage(`"req-42"`)

	// Success.
	resp, err := client.Send(&protocol.Request{
		Command:    "echo",
		Parameters: map[string]any{"message": "hi"},
		RequestID:  requestID,
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !reflect.DeepEqual(resp.RequestID, requestID) {
		t.Errorf("success request_id = %s, want %s", resp.RequestID, requestID)
	}

	// Validation failure.
	resp, err = client.Send(&protocol.Request{Command: "nope", RequestID: requestID})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if resp.Success || !reflect.DeepEqual(resp.RequestID, requestID) {
		t.Errorf("validation failure request_id = %s, want %s", resp.RequestID, requestID)
	}

	// Rate limited (third request from the same identity).
	resp, err = client.Send(&protocol.Request{Command: protocol.CommandPing, RequestID: requestID})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if resp.Error != "Rate limit exceeded" {
		t.Fatalf("error = %q, want rate limit rejection", resp.Error)
	}
	if !reflect.DeepEqual(resp.RequestID, requestID) {
		t.Errorf("rate-limited request_id = %s, want %s", resp.RequestID, requestID)
	}
	if resp.RetryAfter != 60 {
		t.Errorf("retry_after = %d, want 60", resp.RetryAfter)
	}
}

func TestServeRateLimitAppliesToReservedCommands(t *testing.T) {
	cfg := testServerConfig(t)
	cfg.RateLimit = config.RateLimitConfig{Requests: 1, WindowSeconds: 60}
	client := startServer(t, Options{
		Config:       cfg,
		RateIdentity: identity.Fixed("same-client"),
	})

	if resp, err := client.Ping(); err != nil || !resp.Success {
		t.Fatalf("first ping = %+v, %v", resp, err)
	}
	resp, err := client.Ping()
	if err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if resp.Success || resp.Error != "Rate limit exceeded" {
		t.Fatalf("second ping = %+v, want rate limit rejection", resp)
	}
}

func TestServeRateLimitDisabled(t *testing.T) {
	cfg := testServerConfig(t)
	disabled := false
	cfg.EnableRateLimit = &disabled
	cfg.RateLimit = config.RateLimitConfig{Requests: 1, WindowSeconds: 60}
	client := startServer(t, Options{
		Config:       cfg,
		RateIdentity: identity.Fixed("same-client"),
	})

	for i := 0; i < 3; i++ {
		resp, err := client.Ping()
		if err != nil || !resp.Success {
			t.Fatalf("ping %d = %+v, %v; want success with limiter disabled", i+1, resp, err)
		}
	}
}

func TestServeAuthLockout(t *testing.T) {
	cfg := testServerConfig(t)
	client := startServer(t, Options{
		Config: cfg,
		Auth: auth.Settings{
			Enabled:       true,
			TokenHash:     auth.HashToken("right"),
			MaxAttempts:   2,
			Window:        time.Minute,
			BlockDuration: time.Minute,
		},
		AuthIdentity: identity.Fixed("same-process"),
	})

	ping := func(token string) *protocol.Response {
		t.Helper()
		req := &protocol.Request{Command: protocol.CommandPing}
		if token != "" {
			req.AuthTokenHash = auth.HashToken(token)
		}
		resp, err := client.Send(req)
		if err != nil {
			t.Fatalf("Send() error = %v", err)
		}
		return resp
	}

	if resp := ping("wrong"); resp.Error != "Authentication failed" {
		t.Fatalf("first failure error = %q", resp.Error)
	}
	// Second failure reaches max_attempts and blocks.
	if resp := ping("wrong"); !strings.Contains(resp.Error, "Too many failed authentication attempts") {
		t.Fatalf("second failure error = %q, want lockout", resp.Error)
	}
	// Even the correct token is refused while blocked.
	if resp := ping("right"); !strings.Contains(resp.Error, "Too many failed authentication attempts") {
		t.Fatalf("correct token during block error = %q, want lockout", resp.Error)
	}
}

func TestServeAuthSuccessAndDisabled(t *testing.T) {
	cfg := testServerConfig(t)
	client := startServer(t, Options{
		Config: cfg,
		Auth: auth.Settings{
			Enabled:       true,
			TokenHash:     auth.HashToken("right"),
			MaxAttempts:   5,
			Window:        time.Minute,
			BlockDuration: time.Minute,
		},
		AuthIdentity: identity.Fixed("same-process"),
	})

	resp, err := client.Send(&protocol.Request{
		Command:       "echo",
		Parameters:    map[string]any{"message": "ok"},
		AuthTokenHash: auth.HashToken("right"),
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !resp.Success {
		t.Fatalf("authenticated request failed: %+v", resp)
	}

	// Disabled auth ignores any token field.
	cfg2 := testServerConfig(t)
	client2 := startServer(t, Options{Config: cfg2})
	resp, err = client2.Send(&protocol.Request{
		Command:       protocol.CommandPing,
		AuthTokenHash: "garbage",
	})
	if err != nil || !resp.Success {
		t.Fatalf("disabled-auth request = %+v, %v", resp, err)
	}
}

func TestServeRejectsOversizedRequest(t *testing.T) {
	cfg := testServerConfig(t)
	cfg.MaxRequestSize = 64
	client := startServer(t, Options{Config: cfg})

	resp, err := client.Send(&protocol.Request{
		Command:    "echo",
		Parameters: map[string]any{"message": strings.Repeat("x", 200)},
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if resp.Success || resp.Error != "Request too large (max 64 bytes)" {
		t.Fatalf("response = %+v, want size rejection", resp)
	}
}

func TestServeInvalidJSON(t *testing.T) {
	cfg := testServerConfig(t)
	startServer(t, Options{Config: cfg})

	conn, err := net.Dial("unix", cfg.SocketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	conn.(*net.UnixConn).CloseWrite() //nolint:errcheck

	var resp protocol.Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Success || resp.Error != "Invalid JSON" {
		t.Fatalf("response = %+v, want Invalid JSON", resp)
	}
}

func TestServeEmptyRequest(t *testing.T) {
	cfg := testServerConfig(t)
	startServer(t, Options{Config: cfg})

	conn, err := net.Dial("unix", cfg.SocketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.(*net.UnixConn).CloseWrite() //nolint:errcheck

	var resp protocol.Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Success || resp.Error != "Empty request" {
		t.Fatalf("response = %+v, want Empty request", resp)
	}
}

func TestStartAppliesSocketPermissions(t *testing.T) {
	cfg := testServerConfig(t)
	cfg.SocketPermissions = 0o600
	startServer(t, Options{Config: cfg})

	info, err := os.Stat(cfg.SocketPath)
	if err != nil {
		t.Fatalf("stat socket: %v", err)
	}
	if got := info.Mode().Perm(); got != 0o600 {
		t.Fatalf("socket mode = %o, want 600", got)
	}
}

func TestStopRemovesSocketFile(t *testing.T) {
	cfg := testServerConfig(t)

	s := New(Options{Config: cfg})
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	s.Stop()

	if _, err := os.Stat(cfg.SocketPath); !os.IsNotExist(err) {
		t.Fatalf("socket file still present after Stop: %v", err)
	}
}

func TestServeConcurrentConnections(t *testing.T) {
	cfg := testServerConfig(t)
	cfg.EnableThreading = true
	client := startServer(t, Options{Config: cfg})

	done := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() {
			resp, err := client.Ping()
			if err == nil && !resp.Success {
				err = &net.OpError{Op: "ping"}
			}
			done <- err
		}()
	}
	for i := 0; i < 4; i++ {
		if err := <-done; err != nil {
			t.Fatalf("concurrent ping failed: %v", err)
		}
	}
}
