package utils

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// NormalizeListenAddr accepts "host:port", ":port" or a bare port number and
// returns a form net.Listen understands.
func NormalizeListenAddr(addr string) (string, error) {
	if !strings.Contains(addr, ":") {
		port, err := strconv.Atoi(addr)
		if err != nil {
			return "", fmt.Errorf("invalid port: %v", err)
		}
		addr = fmt.Sprintf(":%d", port)
	}

	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return "", fmt.Errorf("invalid port %q", portStr)
	}
	return addr, nil
}

// DialableAddr turns a listen address into one a client can connect to.
func DialableAddr(addr string) (string, error) {
	addr, err := NormalizeListenAddr(addr)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return addr, nil
}

// IsPortAvailable reports whether a tcp4 listener can bind host:port.
func IsPortAvailable(host string, port int) bool {
	Verbose("Checking if port %d is available on %s", port, host)
	listener, err := net.ListenTCP("tcp4", &net.TCPAddr{IP: net.ParseIP(host), Port: port})
	if err != nil {
		Verbose("error: %v", err)
		return false
	}

	defer listener.Close()
	return true
}

// CheckListenAddr fails early with a readable error when addr is taken.
func CheckListenAddr(addr string) error {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	port, _ := strconv.Atoi(portStr)
	if host == "localhost" {
		host = "127.0.0.1"
	}
	if !IsPortAvailable(host, port) {
		return fmt.Errorf("address %s is already in use, is another edgenav server running?", addr)
	}
	return nil
}
