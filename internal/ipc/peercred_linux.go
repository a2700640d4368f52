//go:build linux

package ipc

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// checkPeer rejects connections from any user other than the daemon's own.
func checkPeer(conn *net.UnixConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return fmt.Errorf("failed to get raw conn: %w", err)
	}

	var cred *unix.Ucred
	var credErr error
	if err := raw.Control(func(fd uintptr) {
		cred, credErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	}); err != nil {
		return fmt.Errorf("failed to read peer credentials: %w", err)
	}
	if credErr != nil {
		return fmt.Errorf("failed to read peer credentials: %w", credErr)
	}

	if uid := os.Getuid(); cred.Uid != uint32(uid) {
		return fmt.Errorf("peer uid %d does not match %d", cred.Uid, uid)
	}
	return nil
}
