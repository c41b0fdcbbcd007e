package api

import (
	"errors"
	"fmt"
)

// Kind classifies why a call failed.
type Kind int

const (
	KindNone Kind = iota
	// KindNetwork means the request never reached the server.
	KindNetwork
	// KindRejected means the server answered with a failure status or message.
	KindRejected
	// KindMalformed means a success-shaped response could not be decoded.
	KindMalformed
	// KindValidation means a client-side precondition failed before any request.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "NetworkFailure"
	case KindRejected:
		return "ServerRejected"
	case KindMalformed:
		return "MalformedResponse"
	case KindValidation:
		return "ValidationFailure"
	default:
		return "None"
	}
}

// Sentinels matched with errors.Is against an *Error of the same kind.
var (
	ErrNetworkFailure    = errors.New("network failure")
	ErrServerRejected    = errors.New("server rejected request")
	ErrMalformedResponse = errors.New("malformed response")
	ErrValidation        = errors.New("validation failed")

	// ErrUnauthorized is returned for task operations attempted without a session.
	ErrUnauthorized = &Error{Kind: KindValidation, Message: "Please log in first"}
)

// Fallback messages shown when no server message applies.
const (
	MsgNetwork   = "Could not reach the server"
	MsgMalformed = "Unexpected response from the server"
)

// Error is returned by every Client call and by client-side validation.
type Error struct {
	Kind    Kind
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match an *Error against the kind sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNetworkFailure:
		return e.Kind == KindNetwork
	case ErrServerRejected:
		return e.Kind == KindRejected
	case ErrMalformedResponse:
		return e.Kind == KindMalformed
	case ErrValidation:
		return e.Kind == KindValidation
	}
	return false
}

// KindOf returns the failure kind carried by err, or KindNone.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	if err != nil {
		return KindNetwork
	}
	return KindNone
}

// Validation builds a client-side validation failure.
func Validation(op, message string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: message}
}

// Describe turns err into the text shown to the user. Only a rejected call
// surfaces the server's own message; rejectedFallback covers a rejection
// without one.
func Describe(err error, rejectedFallback string) string {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return MsgNetwork
	}
	switch apiErr.Kind {
	case KindRejected:
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return rejectedFallback
	case KindMalformed:
		return MsgMalformed
	case KindValidation:
		return apiErr.Message
	default:
		return MsgNetwork
	}
}
