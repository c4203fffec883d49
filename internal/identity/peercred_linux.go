//go:build linux

package identity

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

func peerCredentialID(conn net.Conn) (string, error) {
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return "", fmt.Errorf("connection is not unix")
	}

	raw, err := unixConn.SyscallConn()
	if err != nil {
		return "", err
	}

	var cred *unix.Ucred
	var sockErr error
	if err := raw.Control(func(fd uintptr) {
		cred, sockErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	}); err != nil {
		return "", err
	}
	if sockErr != nil {
		return "", sockErr
	}

	return formatPeer(cred.Uid, cred.Pid), nil
}
