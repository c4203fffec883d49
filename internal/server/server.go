// Package server ties the bridge pipeline together: it owns the Unix socket
// listener and walks each connection through framing, rate limiting,
// authentication, validation, and execution.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sockbridge/sockbridge/internal/auth"
	"github.com/sockbridge/sockbridge/internal/config"
	"github.com/sockbridge/sockbridge/internal/executor"
	"github.com/sockbridge/sockbridge/internal/identity"
	"github.com/sockbridge/sockbridge/internal/limiter"
	"github.com/sockbridge/sockbridge/internal/protocol"
)

// Per-read deadline while framing a request.
const readTimeout = 5 * time.Second

// Options configures a Server. Config and Auth are required; the rest
// default to production strategies.
type Options struct {
	Config *config.ServerConfig
	Auth   auth.Settings
	Logger *slog.Logger

	// RateIdentity keys the general request limiter. Defaults to a fresh
	// identity per connection.
	RateIdentity identity.Strategy
	// AuthIdentity keys the auth lockout. Defaults to peer credentials with
	// a per-connection fallback, so a process cannot dodge a block by
	// reconnecting.
	AuthIdentity identity.Strategy

	Framer protocol.Framer
}

// Server serves the bridge protocol on a Unix socket.
type Server struct {
	cfg  *config.ServerConfig
	log  *slog.Logger
	auth *auth.Authenticator

	framer   protocol.Framer
	requests *limiter.SlidingWindow
	exec     *executor.Executor

	rateIdentity identity.Strategy
	authIdentity identity.Strategy

	listener net.Listener
	running  atomic.Bool
	wg       sync.WaitGroup
}

// New assembles a server. The config must already be validated.
func New(opts Options) *Server {
	cfg := opts.Config

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	framer := opts.Framer
	if framer == nil {
		framer = &protocol.JSONFramer{MaxSize: cfg.MaxRequestSize, ReadTimeout: readTimeout}
	}

	rateIdentity := opts.RateIdentity
	if rateIdentity == nil {
		rateIdentity = identity.PerConnection()
	}
	authIdentity := opts.AuthIdentity
	if authIdentity == nil {
		authIdentity = identity.PeerCredential(identity.PerConnection())
	}

	return &Server{
		cfg:      cfg,
		log:      log,
		auth:     auth.New(opts.Auth),
		framer:   framer,
		requests: limiter.NewSlidingWindow(cfg.RateLimit.Requests, cfg.RateLimit.Window()),
		exec: &executor.Executor{
			AllowedDirs:   cfg.AllowedExecutableDirs,
			MaxOutputSize: cfg.MaxOutputSize,
			Debug:         cfg.Debug,
			Log:           log,
		},
		rateIdentity: rateIdentity,
		authIdentity: authIdentity,
	}
}

// Start binds the socket and begins accepting connections. It removes any
// stale socket file first and applies the configured permissions after bind.
func (s *Server) Start() error {
	os.Remove(s.cfg.SocketPath)

	ln, err := net.Listen("unix", s.cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.SocketPath, err)
	}
	if err := os.Chmod(s.cfg.SocketPath, fs.FileMode(s.cfg.SocketPermissions)); err != nil {
		ln.Close()
		os.Remove(s.cfg.SocketPath)
		return fmt.Errorf("setting socket permissions: %w", err)
	}
	s.listener = ln
	s.running.Store(true)

	names := make([]string, 0, len(s.cfg.Commands))
	for name := range s.cfg.Commands {
		names = append(names, name)
	}
	sort.Strings(names)

	s.log.Info("server listening", "name", s.cfg.Name, "socket", s.cfg.SocketPath)
	s.log.Info("available commands", "commands", names)
	if s.cfg.RateLimitEnabled() {
		s.log.Info("rate limit enabled",
			"requests", s.cfg.RateLimit.Requests,
			"window_seconds", s.cfg.RateLimit.WindowSeconds)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptLoop()
	}()
	return nil
}

// Stop stops accepting, waits for in-flight connections, and removes the
// socket file. Safe to call once after a successful Start.
func (s *Server) Stop() {
	s.running.Store(false)
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	os.Remove(s.cfg.SocketPath)
	s.log.Info("server stopped")
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Error("accept failed", "error", err)
			return
		}

		if s.cfg.EnableThreading {
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.handleConn(conn)
			}()
		} else {
			s.handleConn(conn)
		}
	}
}

// handleConn walks one connection through the pipeline. Every exit path
// closes the connection; every failure short-circuits to a structured error
// response.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	rateID := s.rateIdentity(conn)

	payload, err := s.framer.ReadMessage(conn)
	if err != nil {
		s.log.Warn("framing failed", "client", rateID, "error", err)
		s.respond(conn, protocol.ErrorResponse(err.Error()), nil)
		return
	}

	var req protocol.Request
	if err := json.Unmarshal(payload, &req); err != nil {
		resp := protocol.ErrorResponse("Invalid JSON")
		resp.Details = err.Error()
		s.respond(conn, resp, nil)
		return
	}
	s.log.Debug("received request", "client", rateID, "command", req.Command)

	if s.cfg.RateLimitEnabled() && !s.requests.Allow(rateID) {
		s.log.Warn("rate limit exceeded", "client", rateID)
		resp := protocol.ErrorResponse("Rate limit exceeded")
		resp.RetryAfter = s.cfg.RateLimit.WindowSeconds
		s.respond(conn, resp, &req)
		return
	}

	if s.auth.Enabled() {
		authID := s.authIdentity(conn)
		if ok, reason := s.auth.Authenticate(req.AuthTokenHash, authID); !ok {
			s.log.Warn("authentication rejected", "client", authID, "reason", reason)
			s.respond(conn, authErrorResponse(reason), &req)
			return
		}
	}

	if ok, reason := ValidateRequest(&req, s.cfg); !ok {
		s.respond(conn, protocol.ErrorResponse(reason), &req)
		return
	}

	var resp *protocol.Response
	switch req.Command {
	case protocol.CommandIntrospect:
		resp = s.introspection()
	case protocol.CommandPing:
		resp = pingResponse(time.Now())
	default:
		resp = s.exec.Execute(req.Command, s.cfg.Commands[req.Command], req.Parameters)
	}
	s.respond(conn, resp, &req)
}

func authErrorResponse(reason string) *protocol.Response {
	if reason == auth.ReasonRateLimited {
		return protocol.ErrorResponse("Too many failed authentication attempts. Try again later.")
	}
	return protocol.ErrorResponse("Authentication failed")
}

// respond writes the single JSON response, echoing the request id when the
// request parsed. A failed write is logged, never retried.
func (s *Server) respond(conn net.Conn, resp *protocol.Response, req *protocol.Request) {
	if req != nil && len(req.RequestID) > 0 {
		resp.RequestID = req.RequestID
	}
	conn.SetWriteDeadline(time.Now().Add(readTimeout)) //nolint:errcheck
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		s.log.Warn("writing response failed", "error", err)
	}
}
