// Package errs defines the error taxonomy shared across the context SDK.
//
// Callers are expected to branch with errors.Is; every sentinel is wrapped
// with additional detail at the failure site.
package errs

import "errors"

var (
	// ErrInvalidInput indicates a malformed key, identifier or configuration value.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotAuthenticated indicates the operation requires a connected
	// account or an authenticated session.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrUnsupportedEngineType indicates no engine factory is registered for
	// the service type declared in a context configuration. This is a
	// configuration error and is never retried.
	ErrUnsupportedEngineType = errors.New("unsupported engine type")

	// ErrUnknownAuthContextType indicates no authentication handler is
	// registered for the requested type.
	ErrUnknownAuthContextType = errors.New("unknown auth context type")

	// ErrContextNotConnected indicates a device-level operation on a context
	// that was never authenticated in this process.
	ErrContextNotConnected = errors.New("context not connected")

	// ErrNotImplemented indicates a capability this account variant
	// deliberately lacks.
	ErrNotImplemented = errors.New("not implemented")
)
