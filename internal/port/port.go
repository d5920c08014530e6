// Package port checks local TCP ports used by the SSL tunnel.
package port

import (
	"fmt"
	"net"
	"strconv"
)

// Loopback is the address the tunnel accepts on.
const Loopback = "127.0.0.1"

// IsAvailable checks if a loopback port is free for binding.
func IsAvailable(port int) bool {
	ln, err := net.Listen("tcp", net.JoinHostPort(Loopback, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	ln.Close()
	return true
}

// GetAvailable asks the OS for a free loopback port.
func GetAvailable() (int, error) {
	ln, err := net.Listen("tcp", net.JoinHostPort(Loopback, "0"))
	if err != nil {
		return 0, fmt.Errorf("failed to find available port: %w", err)
	}
	defer ln.Close()

	addr := ln.Addr().(*net.TCPAddr)
	return addr.Port, nil
}
