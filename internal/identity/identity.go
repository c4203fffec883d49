// Package identity derives rate-limiting identities from connections.
//
// The bridge deliberately uses two different schemes: general request rate
// limiting keys on a per-connection identity, while the auth lockout keys on
// the peer's OS-level process credentials so the same process cannot dodge a
// block by reconnecting. Each limiter receives its strategy explicitly, which
// keeps the inconsistency visible and testable.
package identity

import (
	"fmt"
	"net"

	"github.com/google/uuid"
)

// Strategy maps a connection to a client identity string. It is called once
// per connection; the result is reused for every check on that connection.
type Strategy func(conn net.Conn) string

// PerConnection assigns every connection a fresh identity.
func PerConnection() Strategy {
	return func(net.Conn) string {
		return "conn_" + uuid.NewString()
	}
}

// PeerCredential identifies the peer by its OS-level process credentials.
// When the platform or transport cannot supply them, fallback is used.
func PeerCredential(fallback Strategy) Strategy {
	return func(conn net.Conn) string {
		id, err := peerCredentialID(conn)
		if err != nil {
			return fallback(conn)
		}
		return id
	}
}

// Fixed returns the same identity for every connection. Test use only.
func Fixed(id string) Strategy {
	return func(net.Conn) string { return id }
}

func formatPeer(uid uint32, pid int32) string {
	if pid > 0 {
		return fmt.Sprintf("peer_uid%d_pid%d", uid, pid)
	}
	return fmt.Sprintf("peer_uid%d", uid)
}
