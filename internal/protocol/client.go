package protocol

import (
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// Client sends requests to a bridge server over its Unix socket.
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for the given socket. A zero timeout disables
// the connection and I/O deadlines.
func NewClient(socketPath string, timeout time.Duration) *Client {
	return &Client{socketPath: socketPath, timeout: timeout}
}

// Send delivers one request and reads the single JSON response.
func (c *Client) Send(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", c.socketPath, err)
	}
	defer conn.Close()

	if c.timeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
			return nil, fmt.Errorf("setting deadline: %w", err)
		}
	}

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return &resp, nil
}

// Introspect fetches the server's command catalogue.
func (c *Client) Introspect() (*Response, error) {
	return c.Send(&Request{Command: CommandIntrospect})
}

// Ping checks that the server is responding.
func (c *Client) Ping() (*Response, error) {
	return c.Send(&Request{Command: CommandPing})
}
