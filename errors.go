package teamspeak

import (
	"errors"
	"fmt"
	"net"

	"github.com/bassosimone/errclass"
)

// Error types for connection and node tree operations.
// Like the query package errors they tell the caller whether the connection
// must be closed.

var (
	// ErrConnectionClosed is returned when the socket is closed or was never
	// opened, including when it is closed while a command awaits its reply.
	// Whether that command took effect on the server is unknown.
	ErrConnectionClosed = errors.New("teamspeak: connection closed")

	// ErrPoolClosed is returned by Pool.Acquire after Pool.Close.
	ErrPoolClosed = errors.New("teamspeak: pool closed")
)

// ConfigurationError reports missing or invalid connection parameters.
// Raised at construction, never retried.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("teamspeak: invalid config key '%s': %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("teamspeak: config must have a key for '%s'", e.Key)
}

// ShouldCloseConnection returns false - there is no connection yet
func (e *ConfigurationError) ShouldCloseConnection() bool {
	return false
}

// ConnectError wraps DNS resolution failures, refused connections and
// connect timeouts.
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("teamspeak: connect to %s failed: %v", e.Addr, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ConnectError) Unwrap() error {
	return e.Err
}

// IsDNS reports whether the failure happened while resolving the host.
func (e *ConnectError) IsDNS() bool {
	var dnsErr *net.DNSError
	return errors.As(e.Err, &dnsErr)
}

// Class returns an errno-like label of the failure, e.g. "ECONNREFUSED".
func (e *ConnectError) Class() string {
	return errclass.New(e.Err)
}

// ShouldCloseConnection returns true - nothing usable was opened
func (e *ConnectError) ShouldCloseConnection() bool {
	return true
}

// ReadTimeoutError is returned when no complete line arrived in time.
//
// Connection handling: a reply may still be in flight, CLOSE connection
type ReadTimeoutError struct {
	Timeout string
	Err     error
}

func (e *ReadTimeoutError) Error() string {
	return "teamspeak: read timed out after " + e.Timeout
}

// Unwrap returns the underlying error for error chain inspection
func (e *ReadTimeoutError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - reply pairing is lost
func (e *ReadTimeoutError) ShouldCloseConnection() bool {
	return true
}

// WriteError reports a failed write, including writes on a socket that is
// not connected.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("teamspeak: write failed: %v", e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *WriteError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - a partial line may have been sent
func (e *WriteError) ShouldCloseConnection() bool {
	return true
}

// UnknownPropertyError is returned by strict property access when the
// property is absent even after a refresh.
type UnknownPropertyError struct {
	Kind     Kind
	Property string
}

func (e *UnknownPropertyError) Error() string {
	return fmt.Sprintf("teamspeak: node '%s' has no property named '%s'", e.Kind, e.Property)
}

// ShouldCloseConnection returns false - caller error
func (e *UnknownPropertyError) ShouldCloseConnection() bool {
	return false
}

// ReadOnlyNodeError is returned when writing a property of a node kind that
// doesn't support modification.
type ReadOnlyNodeError struct {
	Kind Kind
}

func (e *ReadOnlyNodeError) Error() string {
	return fmt.Sprintf("teamspeak: node '%s' is read only", e.Kind)
}

// ShouldCloseConnection returns false - caller error
func (e *ReadOnlyNodeError) ShouldCloseConnection() bool {
	return false
}

// UnsupportedOperationError is returned by Node.Call when neither the node
// nor any of its ancestors declares the operation.
type UnsupportedOperationError struct {
	Kind      Kind
	Operation Operation
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("teamspeak: node method '%s()' does not exist on '%s'", e.Operation, e.Kind)
}

// ShouldCloseConnection returns false - caller error
func (e *UnsupportedOperationError) ShouldCloseConnection() bool {
	return false
}

// ErrorWithConnectionState is an interface for errors that indicate
// whether the connection should be closed.
// Implemented by all error types of this module and of package query.
type ErrorWithConnectionState interface {
	error
	ShouldCloseConnection() bool
}

// ShouldCloseConnection is a helper function to determine if an error
// requires closing the connection.
//
// Returns false for nil, CommandError and the node tree errors.
// Unknown error types are treated conservatively and return true.
func ShouldCloseConnection(err error) bool {
	if err == nil {
		return false
	}

	var e ErrorWithConnectionState
	if errors.As(err, &e) {
		return e.ShouldCloseConnection()
	}

	// Unknown error type - be conservative and close connection
	return true
}
