package query

import (
	"fmt"
)

// Error types for ServerQuery wire operations.
// Like all errors of this module they report whether the connection they
// happened on must be closed.

// DecodeError represents malformed wire data.
//
// Common causes:
//   - Token with an empty key
//   - Invalid escape sequence in a value
//   - Status line without a numeric id
//   - Missing TS3 ident on connect
//
// Connection handling: the reply stream is out of sync, CLOSE the connection
type DecodeError struct {
	Line    string
	Message string
	Err     error // Underlying error, if any
}

func (e *DecodeError) Error() string {
	msg := "query: decode error: " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Line != "" {
		msg += fmt.Sprintf(" (line %q)", e.Line)
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - the reply stream can't be trusted anymore
func (e *DecodeError) ShouldCloseConnection() bool {
	return true
}

// CommandError represents a status line with a non-zero id.
// This is a normal outcome for invalid operations (unknown ids, missing
// permissions, flood protection).
//
// Connection handling: the reply was read completely, connection can be REUSED
type CommandError struct {
	ID           int
	Message      string
	ExtraMessage string
	FailedPermID int
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("query: error %d: %s", e.ID, e.Message)
	if e.ExtraMessage != "" {
		msg += " (" + e.ExtraMessage + ")"
	}
	if e.FailedPermID != 0 {
		msg += fmt.Sprintf(" (failed_permid=%d)", e.FailedPermID)
	}
	return msg
}

// ShouldCloseConnection returns false - server side errors don't corrupt protocol state
func (e *CommandError) ShouldCloseConnection() bool {
	return false
}
