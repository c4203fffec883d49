package server

import (
	"time"

	"github.com/sockbridge/sockbridge/internal/config"
	"github.com/sockbridge/sockbridge/internal/protocol"
)

// introspection returns the full command catalogue. It reads only immutable
// config, so repeated calls return identical output.
func (s *Server) introspection() *protocol.Response {
	commands := make(map[string]protocol.CommandInfo, len(s.cfg.Commands))
	for name, cmd := range s.cfg.Commands {
		params := cmd.Parameters
		if params == nil {
			params = map[string]config.ParameterSpec{}
		}
		examples := cmd.Examples
		if examples == nil {
			examples = []map[string]any{}
		}
		commands[name] = protocol.CommandInfo{
			Description: cmd.Description,
			Parameters:  params,
			Examples:    examples,
		}
	}

	return &protocol.Response{
		Success: true,
		ServerInfo: &protocol.ServerInfo{
			Name:        s.cfg.Name,
			Description: s.cfg.Description,
			Version:     s.cfg.Version,
			Commands:    commands,
		},
	}
}

func pingResponse(now time.Time) *protocol.Response {
	return &protocol.Response{
		Success:   true,
		Message:   "pong",
		Timestamp: float64(now.UnixNano()) / float64(time.Second),
	}
}
