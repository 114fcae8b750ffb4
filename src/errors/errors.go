// Package errors defines the error kinds shared by the panels, the file
// operation engine and the editor. Every error carries a Kind so callers can
// branch on it with errors.Is against the Err* sentinels, and an optional
// cause reachable through Unwrap.
package errors

import (
	"errors"
	"fmt"
	"io/fs"
)

// Re-exported so callers need a single import.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Kind classifies an error.
type Kind int

const (
	Unknown Kind = iota
	NotADirectory
	AccessDenied
	AtRoot
	NameConflict
	InvalidName
	PartialFailure
	NoPathSet
	UnknownCommand
	IOFailure
	UnsavedChanges
)

var kindNames = map[Kind]string{
	Unknown:        "unknown error",
	NotADirectory:  "not a directory",
	AccessDenied:   "access denied",
	AtRoot:         "already at filesystem root",
	NameConflict:   "name conflict",
	InvalidName:    "invalid name",
	PartialFailure: "partial failure",
	NoPathSet:      "no file name",
	UnknownCommand: "unknown command",
	IOFailure:      "i/o failure",
	UnsavedChanges: "unsaved changes",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrNotADirectory  = &Error{Kind: NotADirectory}
	ErrAccessDenied   = &Error{Kind: AccessDenied}
	ErrAtRoot         = &Error{Kind: AtRoot}
	ErrNameConflict   = &Error{Kind: NameConflict}
	ErrInvalidName    = &Error{Kind: InvalidName}
	ErrPartialFailure = &Error{Kind: PartialFailure}
	ErrNoPathSet      = &Error{Kind: NoPathSet}
	ErrUnknownCommand = &Error{Kind: UnknownCommand}
	ErrIOFailure      = &Error{Kind: IOFailure}
	ErrUnsavedChanges = &Error{Kind: UnsavedChanges}
)

// Error is the concrete error type returned across the core.
type Error struct {
	Kind Kind
	Path string
	Msg  string
	Err  error
}

// New creates an error of the given kind. path and cause may be empty/nil.
func New(kind Kind, path string, cause error) *Error {
	return &Error{Kind: kind, Path: path, Err: cause}
}

// Newf creates an error of the given kind with a formatted detail message.
func Newf(kind Kind, path string, format string, args ...any) *Error {
	return &Error{Kind: kind, Path: path, Msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Path != "" {
		msg += ": " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Path == "" && t.Err == nil && t.Msg == ""
}

// KindOf returns the kind of the first *Error in err's chain, Unknown
// when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// FromFS classifies an error returned by the os/fs packages. Errors that
// already carry a kind pass through unchanged.
func FromFS(path string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, fs.ErrPermission) {
		return New(AccessDenied, path, err)
	}
	return New(IOFailure, path, err)
}
