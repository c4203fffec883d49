//go:build darwin

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

	var cred *unix.Xucred
	var sockErr error
	if err := raw.Control(func(fd uintptr) {
		cred, sockErr = unix.GetsockoptXucred(int(fd), unix.SOL_LOCAL, unix.LOCAL_PEERCRED)
	}); err != nil {
		return "", err
	}
	if sockErr != nil {
		return "", sockErr
	}

	// Xucred carries no pid; uid alone still groups a user's processes.
	return formatPeer(cred.Uid, 0), nil
}
