package ftpfs

import "errors"

// Error is a domain error from facade operations.
//
// These are business outcomes (target exists, directory not empty, feature
// absent) as opposed to infrastructure failures, which are wrapped and
// carried in Cause. Callers branch on Code with IsCode rather than matching
// message text.
type Error struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable description
	Message string

	// Path is the remote path related to the error (if applicable)
	Path string

	// Cause is the underlying error, if any
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg += ": " + e.Path
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes the underlying error to errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// ErrorCode represents the category of a facade error.
type ErrorCode int

const (
	// ErrConnection indicates the connection could not be established or
	// maintained. Fatal to the current operation; the facade does not
	// retry (dial retries are the transport's configured policy).
	ErrConnection ErrorCode = iota

	// ErrConflict indicates the target exists and overwrite was false.
	// Expected and recoverable by caller choice.
	ErrConflict

	// ErrNotEmpty indicates a non-recursive delete hit a non-empty
	// directory.
	ErrNotEmpty

	// ErrNotSupported indicates the capability is genuinely absent
	// (e.g. direct write handles).
	ErrNotSupported

	// ErrNotFound indicates the path does not exist where an operation
	// required it to.
	ErrNotFound

	// ErrClosed indicates the facade was already disposed.
	ErrClosed

	// ErrIO indicates a remote command failed. Commands (write, move,
	// delete, create) propagate failures; queries degrade to absent
	// instead.
	ErrIO
)

// IsCode reports whether err is a facade Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code == code
	}
	return false
}

func connErr(msg string, cause error) *Error {
	return &Error{Code: ErrConnection, Message: msg, Cause: cause}
}

func ioErr(msg, path string, cause error) *Error {
	return &Error{Code: ErrIO, Message: msg, Path: path, Cause: cause}
}

func conflictErr(path string) *Error {
	return &Error{Code: ErrConflict, Message: "target already exists", Path: path}
}
