package teamspeak

import (
	"context"
	"net"
	"strconv"
	"time"
)

// DefaultTimeout is used for connect and read deadlines when
// Config.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// DefaultQueryPort is the ServerQuery port of a stock server.
const DefaultQueryPort = 10011

// Dialer abstracts the [*net.Dialer] behavior.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Config holds configuration for a ServerQuery connection.
type Config struct {
	// Host is the server host name or address.
	// Required.
	Host string

	// Port is the ServerQuery TCP port.
	// Required: must be in 1..65535.
	Port int

	// Timeout bounds connecting and waiting for each received line.
	// Zero means DefaultTimeout.
	Timeout time.Duration

	// Dialer is used to open the TCP connection.
	// If nil, a zero net.Dialer is used.
	Dialer Dialer

	// Logger receives structured logs.
	// If nil, DefaultSLogger is used.
	Logger SLogger

	// CommandInterval is the minimum delay between two commands sent on the
	// connection, to stay below the server's flood protection.
	// Zero disables throttling.
	CommandInterval time.Duration

	// NewCircuitBreaker creates a circuit breaker for the server address.
	// If nil, no circuit breaker is used.
	NewCircuitBreaker func(serverAddr string) CircuitBreaker

	// LoadClientsFirst lists the clients of a channel before its
	// sub-channels in the node tree.
	LoadClientsFirst bool
}

// DefaultConfig returns a Config for host and port with defaults applied.
func DefaultConfig(host string, port int) Config {
	return Config{
		Host:    host,
		Port:    port,
		Timeout: DefaultTimeout,
	}
}

// Addr returns host:port.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Config) validate() error {
	if c.Host == "" {
		return &ConfigurationError{Key: "host"}
	}
	if c.Port == 0 {
		return &ConfigurationError{Key: "port"}
	}
	if c.Port < 0 || c.Port > 65535 {
		return &ConfigurationError{Key: "port", Reason: "must be in 1..65535"}
	}
	if c.Timeout < 0 {
		return &ConfigurationError{Key: "timeout", Reason: "must not be negative"}
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Dialer == nil {
		c.Dialer = &net.Dialer{}
	}
	if c.Logger == nil {
		c.Logger = DefaultSLogger()
	}
	return c
}
