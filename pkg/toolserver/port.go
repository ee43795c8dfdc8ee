package toolserver

import (
	"fmt"
	"net"
)

// AllocateFreePort asks the OS for an unused TCP port on the loopback
// interface. The listener is closed before returning, so nothing is reserved:
// the caller should bind the port promptly. Losing the race to another process
// is rare and surfaces later as a startup failure.
func AllocateFreePort() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("failed to allocate local port: %w", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	if err := ln.Close(); err != nil {
		return 0, fmt.Errorf("failed to release allocated port %d: %w", port, err)
	}
	return port, nil
}
