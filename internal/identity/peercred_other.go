//go:build !linux && !darwin

package identity

import (
	"errors"
	"net"
)

func peerCredentialID(conn net.Conn) (string, error) {
	return "", errors.New("peer credentials unsupported on this platform")
}
