package ftpwire

import (
	"errors"
	"net/textproto"

	"github.com/jlaffaye/ftp"
)

// StatusCode extracts the FTP reply code from a server error. The second
// return is false when err does not carry a protocol status (network
// failures, parse errors, cancellations).
func StatusCode(err error) (int, bool) {
	var proto *textproto.Error
	if errors.As(err, &proto) {
		return proto.Code, true
	}
	return 0, false
}

// IsNotImplemented reports whether the server rejected the command as
// unrecognized or unsupported. This is the capability-negotiation signal:
// callers treat it as "feature absent", never as a failure.
func IsNotImplemented(err error) bool {
	code, ok := StatusCode(err)
	if !ok {
		return false
	}
	return code == ftp.StatusBadCommand ||
		code == ftp.StatusNotImplemented ||
		code == ftp.StatusNotImplementedParameter
}

// IsUnavailable reports whether the server answered "file unavailable"
// (no such path, permission denied, or similar 55x conditions).
func IsUnavailable(err error) bool {
	code, ok := StatusCode(err)
	if !ok {
		return false
	}
	return code == ftp.StatusFileUnavailable || code == ftp.StatusBadFileName
}

// IsProtocolError reports whether err is a server reply rather than a
// transport failure. Transport failures invalidate the session; protocol
// replies do not.
func IsProtocolError(err error) bool {
	_, ok := StatusCode(err)
	return ok
}

// NotImplementedError builds a command-not-recognized reply error. Used by
// Conn implementations that cannot issue a command at all, so callers see
// the same shape a rejecting server would produce.
func NotImplementedError(msg string) error {
	return &textproto.Error{Code: ftp.StatusNotImplemented, Msg: msg}
}

// UnavailableError builds a "file unavailable" reply error in the same
// shape a real server would produce.
func UnavailableError(msg string) error {
	return &textproto.Error{Code: ftp.StatusFileUnavailable, Msg: msg}
}
