package crud

import (
	"errors"
	"fmt"
)

// Kind sentinels. Use errors.Is against these to check the kind of a
// *ConnectError or *OpError.
var (
	ErrUnreachable      = errors.New("store unreachable")
	ErrAuthFailed       = errors.New("authentication failed")
	ErrProtocolMismatch = errors.New("protocol mismatch")

	ErrValidation    = errors.New("invalid argument")
	ErrNotFound      = errors.New("the requested entity could not be found")
	ErrBackend       = errors.New("backend failure")
	ErrSerialization = errors.New("malformed data from store")
)

// Backend-side sentinels. Backends wrap these so the core can classify the
// failure; anything else becomes a Backend error.
var (
	ErrDecode = errors.New("could not decode store response")
	ErrClosed = errors.New("connection is closed")
)

// ConnectKind classifies a failure to establish a connection.
type ConnectKind int

const (
	Unreachable ConnectKind = iota
	AuthFailed
	ProtocolMismatch
)

func (k ConnectKind) String() string {
	switch k {
	case Unreachable:
		return "unreachable"
	case AuthFailed:
		return "auth failed"
	case ProtocolMismatch:
		return "protocol mismatch"
	default:
		return fmt.Sprintf("ConnectKind(%d)", int(k))
	}
}

func (k ConnectKind) sentinel() error {
	switch k {
	case AuthFailed:
		return ErrAuthFailed
	case ProtocolMismatch:
		return ErrProtocolMismatch
	default:
		return ErrUnreachable
	}
}

// OpKind classifies a failed entity operation.
type OpKind int

const (
	KindValidation OpKind = iota
	KindNotFound
	KindBackend
	KindSerialization
)

func (k OpKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not found"
	case KindBackend:
		return "backend"
	case KindSerialization:
		return "serialization"
	default:
		return fmt.Sprintf("OpKind(%d)", int(k))
	}
}

func (k OpKind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindNotFound:
		return ErrNotFound
	case KindSerialization:
		return ErrSerialization
	default:
		return ErrBackend
	}
}

// ConnectError is returned by Connect.
type ConnectError struct {
	Kind    ConnectKind
	Backend string
	Err     error
}

func (e *ConnectError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("connect %s: %s", e.Backend, e.Kind)
	}
	return fmt.Sprintf("connect %s: %s: %s", e.Backend, e.Kind, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *ConnectError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// OpError is returned by every operation on a Conn.
type OpError struct {
	Kind OpKind
	Op   string
	Err  error
}

func (e *OpError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *OpError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// KindOf returns the OpKind carried by err, and false if err is not an
// *OpError.
func KindOf(err error) (OpKind, bool) {
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr.Kind, true
	}
	return 0, false
}

func classifyConnect(backend string, err error) *ConnectError {
	var ce *ConnectError
	if errors.As(err, &ce) {
		return ce
	}

	kind := Unreachable
	switch {
	case errors.Is(err, ErrAuthFailed):
		kind = AuthFailed
	case errors.Is(err, ErrProtocolMismatch):
		kind = ProtocolMismatch
	}
	return &ConnectError{Kind: kind, Backend: backend, Err: err}
}

func classifyOp(op string, err error) *OpError {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe
	}

	kind := KindBackend
	switch {
	case errors.Is(err, ErrNotFound):
		kind = KindNotFound
	case errors.Is(err, ErrDecode):
		kind = KindSerialization
	case errors.Is(err, ErrValidation):
		kind = KindValidation
	}
	return &OpError{Kind: kind, Op: op, Err: err}
}
