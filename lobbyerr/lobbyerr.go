// Package lobbyerr provides the typed-error wrapper used across the lobby
// core: an error carrying a grpc status code (codes.InvalidArgument,
// codes.DeadlineExceeded, codes.FailedPrecondition, codes.ResourceExhausted, ...)
// so callers can branch on failure kind without string matching.
//
// Recoverable conditions (NotFound, Full, NoAccess, Duplicate, SlotInUse)
// and invariant violations are both represented this way so callers can
// inspect the Code() to decide how to surface a refusal; JoinError (see
// join_gate.go) is a separate, plain typed value and never wrapped here.
package lobbyerr

import (
	"google.golang.org/grpc/codes"
)

// LobbyError pairs an error with a grpc status code so a caller can
// branch on failure kind at the boundary instead of matching strings.
type LobbyError interface {
	error
	Code() codes.Code
	Unwrap() error
}

type withCode struct {
	err  error
	code codes.Code
}

// WithCode attaches a code to err. Calling WithCode on an error that's
// already a LobbyError just rewraps it with the new code, so call sites
// can freely add context without losing the original cause.
func WithCode(err error, code codes.Code) LobbyError {
	return &withCode{err: err, code: code}
}

func (e *withCode) Error() string    { return e.err.Error() }
func (e *withCode) Code() codes.Code { return e.code }
func (e *withCode) Unwrap() error    { return e.err }

// CodeOf extracts the code from err if it is a LobbyError, else codes.Unknown.
func CodeOf(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	if le, ok := err.(LobbyError); ok {
		return le.Code()
	}
	return codes.Unknown
}

// Failure-kind to grpc-code mapping used at construction sites in package
// lobby:
//   NotFound           -> codes.NotFound
//   SlotInUse           -> codes.AlreadyExists
//   Full                -> codes.ResourceExhausted
//   NoAccess            -> codes.PermissionDenied
//   Duplicate           -> codes.AlreadyExists
//   InvariantViolation  -> codes.Internal
