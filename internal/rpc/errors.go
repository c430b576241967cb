package rpc

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport matches any TransportError.
	ErrTransport = errors.New("rpc: transport failure")
	// ErrProtocol matches any RemoteProtocolError.
	ErrProtocol = errors.New("rpc: unexpected response")
	// ErrRejected matches any RemoteRejected.
	ErrRejected = errors.New("rpc: rejected by node")
	// ErrInvalidArgument is returned before any request is sent.
	ErrInvalidArgument = errors.New("rpc: invalid argument")
)

// TransportError is a connection, HTTP or timeout failure. These may be
// transient.
type TransportError struct {
	Method string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("rpc %s: transport: %v", e.Method, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// RemoteProtocolError means the node answered with a shape this client does
// not understand, usually an incompatible node version.
type RemoteProtocolError struct {
	Method string
	Reason string
}

func (e *RemoteProtocolError) Error() string {
	return fmt.Sprintf("rpc %s: invalid response: %s", e.Method, e.Reason)
}

func (e *RemoteProtocolError) Is(target error) bool { return target == ErrProtocol }

// RemoteRejected carries the error field of a node response.
type RemoteRejected struct {
	Method  string
	Code    int
	Message string
}

func (e *RemoteRejected) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("rpc %s: rejected (%d): %s", e.Method, e.Code, e.Message)
	}
	return fmt.Sprintf("rpc %s: rejected: %s", e.Method, e.Message)
}

func (e *RemoteRejected) Is(target error) bool { return target == ErrRejected }

func protocolError(method, format string, args ...interface{}) error {
	return &RemoteProtocolError{Method: method, Reason: fmt.Sprintf(format, args...)}
}
