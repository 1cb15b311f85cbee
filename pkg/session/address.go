package session

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Default ports used when none is configured.
const (
	CloudPort    = 443
	InsecurePort = 8080
	SecurePort   = 8443
)

// cloudDomain marks hosted instances, which always listen on 443.
const cloudDomain = "jamfcloud.com"

// Address is a normalized server address.
type Address struct {
	Scheme string
	Host   string
	Port   int
}

// BaseURL returns scheme://host:port.
func (a Address) BaseURL() string {
	return fmt.Sprintf("%s://%s", a.Scheme, net.JoinHostPort(a.Host, strconv.Itoa(a.Port)))
}

// String implements fmt.Stringer.
func (a Address) String() string {
	return a.BaseURL()
}

// Normalize resolves a raw server address into scheme, host and port.
//
// port == 0 means no explicit port was supplied. Supplying one while the
// address already carries an inline port is a configuration conflict.
func Normalize(raw string, port int, insecure bool) (Address, error) {
	addr := strings.ToLower(strings.TrimSpace(raw))
	if addr == "" {
		return Address{}, fmt.Errorf("%w: server address is required", ErrConfiguration)
	}
	if port < 0 || port > 65535 {
		return Address{}, fmt.Errorf("%w: port %d out of range", ErrConfiguration, port)
	}

	scheme := "https"
	if insecure {
		scheme = "http"
	}
	switch {
	case strings.HasPrefix(addr, "https://"):
		scheme, addr = "https", strings.TrimPrefix(addr, "https://")
	case strings.HasPrefix(addr, "http://"):
		scheme, addr = "http", strings.TrimPrefix(addr, "http://")
	case strings.Contains(addr, "://"):
		return Address{}, fmt.Errorf("%w: unsupported scheme in %q", ErrConfiguration, raw)
	}

	// Anything after the authority is dropped; templates carry the full path.
	if i := strings.IndexAny(addr, "/?#"); i >= 0 {
		addr = addr[:i]
	}

	host, inlinePort, err := splitHostPort(addr)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if host == "" {
		return Address{}, fmt.Errorf("%w: missing host in %q", ErrConfiguration, raw)
	}
	if inlinePort != 0 && port != 0 {
		return Address{}, fmt.Errorf("%w: port given both in address %q and as --port %d", ErrConfiguration, raw, port)
	}

	effective := port
	switch {
	case effective != 0:
	case inlinePort != 0:
		effective = inlinePort
	case host == cloudDomain || strings.HasSuffix(host, "."+cloudDomain):
		effective = CloudPort
	case insecure:
		effective = InsecurePort
	default:
		effective = SecurePort
	}

	return Address{Scheme: scheme, Host: host, Port: effective}, nil
}

// splitHostPort separates an optional inline port. IPv6 literals must be
// bracketed when a port is given.
func splitHostPort(addr string) (string, int, error) {
	if !strings.Contains(addr, ":") {
		return addr, 0, nil
	}
	if strings.Count(addr, ":") > 1 && !strings.HasPrefix(addr, "[") {
		return addr, 0, nil
	}
	if strings.HasPrefix(addr, "[") && strings.HasSuffix(addr, "]") {
		return strings.Trim(addr, "[]"), 0, nil
	}

	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	p, err := strconv.Atoi(portStr)
	if err != nil || p <= 0 || p > 65535 {
		return "", 0, fmt.Errorf("invalid port %q", portStr)
	}
	return host, p, nil
}
