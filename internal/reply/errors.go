package reply

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an engine error.
type Kind byte

const (
	KindGeneric Kind = iota
	KindParse
	KindWrongType
	KindSyntax
	KindNotSupported
	KindInternal
	KindScript
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse"
	case KindWrongType:
		return "wrongtype"
	case KindSyntax:
		return "syntax"
	case KindNotSupported:
		return "notsupported"
	case KindInternal:
		return "internal"
	case KindScript:
		return "script"
	}
	return "generic"
}

// Error is a command-level error: a machine-readable code prefix plus a message.
// It renders the same way whether raised directly or from inside a script.
type Error struct {
	Kind Kind
	Code string
	Msg  string
}

func (e *Error) Error() string {
	return e.Code + " " + e.Msg
}

// Is matches errors of the same kind, code and message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code && e.Msg == t.Msg
}

// New returns an error with the given kind, code and message.
func New(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Msg: msg}
}

// Errorf returns a generic ERR with a formatted message.
func Errorf(format string, args ...any) *Error {
	return &Error{Kind: KindGeneric, Code: "ERR", Msg: fmt.Sprintf(format, args...)}
}

// Parse splits a rendered "CODE message" string back into an Error.
// Text without an upper-case code word gets the ERR prefix.
func Parse(kind Kind, text string) *Error {
	code, msg, found := strings.Cut(text, " ")
	if found && isCode(code) {
		return &Error{Kind: kind, Code: code, Msg: msg}
	}
	return &Error{Kind: kind, Code: "ERR", Msg: text}
}

func isCode(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}

var (
	ErrSyntax      = New(KindSyntax, "ERR", "syntax error")
	ErrWrongType   = New(KindWrongType, "WRONGTYPE", "Operation against a key holding the wrong kind of value")
	ErrNotInteger  = New(KindParse, "ERR", "value is not an integer or out of range")
	ErrNotFloat    = New(KindParse, "ERR", "value is not a valid float")
	ErrOverflow    = New(KindParse, "ERR", "increment or decrement would overflow")
	ErrNaNOrInf    = New(KindParse, "ERR", "increment would produce NaN or Infinity")
	ErrScoreNaN    = New(KindParse, "ERR", "resulting score is not a number (NaN)")
	ErrHashNotInt  = New(KindParse, "ERR", "hash value is not an integer")
	ErrHashNotFlt  = New(KindParse, "ERR", "hash value is not a float")
	ErrBitOffset   = New(KindParse, "ERR", "bit offset is not an integer or out of range")
	ErrBitValue    = New(KindParse, "ERR", "bit is not an integer or out of range")
	ErrBitArg      = New(KindParse, "ERR", "The bit argument must be 1 or 0.")
	ErrOffset      = New(KindParse, "ERR", "offset is out of range")
	ErrMaxSize     = New(KindGeneric, "ERR", "string exceeds maximum allowed size (512MB)")
	ErrMinMaxFloat = New(KindParse, "ERR", "min or max is not a float")
	ErrMinMaxLex   = New(KindParse, "ERR", "min or max not valid string range item")
	ErrNoSuchKey   = New(KindGeneric, "ERR", "no such key")
	ErrIndexRange  = New(KindGeneric, "ERR", "index out of range")
	ErrDBIndex     = New(KindGeneric, "ERR", "DB index is out of range")
	ErrSameObject  = New(KindGeneric, "ERR", "source and destination objects are the same")
	ErrPositive    = New(KindParse, "ERR", "value is out of range, must be positive")
	ErrSortScore   = New(KindParse, "ERR", "One or more scores can't be converted into double")
	ErrBusyKey     = New(KindGeneric, "BUSYKEY", "Target key name already exists.")
	ErrBadFormat   = New(KindInternal, "ERR", "Bad data format")
	ErrDumpPayload = New(KindInternal, "ERR", "DUMP payload version or checksum are wrong")
	ErrNoScript    = New(KindScript, "NOSCRIPT", "No matching script. Please use EVAL.")
)

// WrongArgs is the arity error for cmd.
func WrongArgs(cmd string) *Error {
	return New(KindSyntax, "ERR", fmt.Sprintf("wrong number of arguments for '%s' command", strings.ToLower(cmd)))
}

// UnknownCommand is the error for a command name that is not in the table.
func UnknownCommand(cmd string) *Error {
	return New(KindGeneric, "ERR", fmt.Sprintf("unknown command '%s'", cmd))
}

// NotSupported is returned by commands this server deliberately does not implement.
func NotSupported(cmd string) *Error {
	return New(KindNotSupported, "ERR", fmt.Sprintf("command '%s' is not supported by this server", strings.ToLower(cmd)))
}

// IsNotSupported reports whether err marks a deliberately absent command.
func IsNotSupported(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindNotSupported
}
