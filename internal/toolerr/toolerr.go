// Package toolerr classifies the failures of the tool core so that callers can decide
// between surfacing an error and rendering an in-band error result.
package toolerr

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/mcpbridge/mcpbridge/pkg/types"
)

// Kind identifies the class of a failure.
type Kind string

const (
	// KindConfiguration covers missing or invalid server configuration. Never retried.
	KindConfiguration Kind = "configuration"
	// KindTransport covers connection and mid-call failures. The connection is evicted.
	KindTransport Kind = "transport"
	// KindToolNotFound covers tool or server resolution misses.
	KindToolNotFound Kind = "tool_not_found"
	// KindBuiltin covers failures of in-process tools.
	KindBuiltin Kind = "builtin"
	// KindSerialization covers values that could not be encoded.
	KindSerialization Kind = "serialization"
)

// Error is an error annotated with its Kind and the operation that failed.
type Error struct {
	Kind     Kind
	Op       string
	ServerID string
	Err      error
}

func (e *Error) Error() string {
	if e.ServerID != "" {
		return fmt.Sprintf("%s (server %s): %v", e.Op, e.ServerID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an Error of the given kind.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// ForServer returns an Error of the given kind attributed to a server.
func ForServer(kind Kind, op, serverID string, err error) *Error {
	return &Error{Kind: kind, Op: op, ServerID: serverID, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Format renders an error as the text of an in-band error result.
func Format(err error) string {
	if err == nil {
		return "Unknown error"
	}
	var e *Error
	if errors.As(err, &e) {
		return fmt.Sprintf("Error [%s]: %s", e.Kind, err.Error())
	}
	return "Error: " + err.Error()
}

// Guard runs fn and converts any failure into an isError tool result.
// Errors and panics never escape it, so a model always receives a well-formed result.
func Guard(fn func() (*types.ToolCallResult, error)) (res *types.ToolCallResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = New(KindBuiltin, "tool panicked", fmt.Errorf("%v\n%s", r, debug.Stack()))
			res = types.ErrorResult(Format(New(KindBuiltin, "tool panicked", fmt.Errorf("%v", r))))
		}
	}()

	res, err = fn()
	if err != nil {
		return types.ErrorResult(Format(err)), err
	}
	if res == nil {
		return types.TextResult(""), nil
	}
	return res, nil
}
