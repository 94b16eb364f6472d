package protocol

import (
	"errors"
	"fmt"
)

// Error kinds. Protocol violations are dropped silently; the other kinds are
// relayed to the offending client as host messages.
const (
	KindProtocol = "E_PROTOCOL"
	KindClient   = "E_CLIENT"
	KindArea     = "E_AREA"
	KindArgument = "E_ARGUMENT"
	KindServer   = "E_SERVER"
)

var knownKinds = map[string]struct{}{
	KindProtocol: {},
	KindClient:   {},
	KindArea:     {},
	KindArgument: {},
	KindServer:   {},
}

func IsKnownKind(kind string) bool {
	if kind == "" {
		return true
	}
	_, ok := knownKinds[kind]
	return ok
}

// Error is a user-facing failure. Msg is shown to the client verbatim.
type Error struct {
	Kind string
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func newError(kind, format string, args []any) *Error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Kind: kind, Msg: msg}
}

func ClientError(format string, args ...any) error   { return newError(KindClient, format, args) }
func AreaError(format string, args ...any) error     { return newError(KindArea, format, args) }
func ArgumentError(format string, args ...any) error { return newError(KindArgument, format, args) }
func ServerError(format string, args ...any) error   { return newError(KindServer, format, args) }

// KindOf returns the kind of err, or "" for errors that are not *Error.
func KindOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// UserMessage returns the text to relay to a client for err.
func UserMessage(err error) (string, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg, true
	}
	return "", false
}
