// Package ftpwire defines the boundary to the wire-level FTP collaborator.
//
// The facade in pkg/ftpfs never speaks the protocol itself: it drives a Conn,
// which hides the command/response cycle and data-channel mechanics. The
// production Conn (see client.go) wraps github.com/jlaffaye/ftp; tests use
// the scripted fake in wiretest.
package ftpwire

import (
	"context"
	"io"
	"time"
)

// EntryType classifies a raw directory-listing record.
type EntryType int

const (
	// EntryTypeFile is a regular file.
	EntryTypeFile EntryType = iota

	// EntryTypeDir is a directory.
	EntryTypeDir

	// EntryTypeLink is a symbolic link. The facade filters these out of
	// listings before synthesis.
	EntryTypeLink
)

// Entry is an unprocessed directory-listing record as reported by the
// remote server.
//
// Servers report wildly different subsets of these fields. A zero time
// means "not reported" (the wire sentinel); a zero OwnerMode means the
// server does not expose permission bits. Normalization of these gaps is
// the metadata synthesizer's job, not this package's.
type Entry struct {
	// Name is the entry's name within its directory (not a full path).
	Name string

	// Type classifies the entry.
	Type EntryType

	// Size is the byte length. Directories report whatever the server
	// chooses (often 0 or a block size).
	Size uint64

	// ModTime is the last modification time, zero when not reported.
	ModTime time.Time

	// CreateTime is the creation time, zero when not reported. Most FTP
	// servers never report it.
	CreateTime time.Time

	// OwnerMode holds the owner rwx permission bits (0o400/0o200/0o100).
	// Zero means the server does not expose permissions.
	OwnerMode uint32

	// Target is the symlink target, only set for EntryTypeLink.
	Target string
}

// RawChecksum is a server-reported content checksum, before the facade maps
// the algorithm name onto its closed algorithm set.
type RawChecksum struct {
	// Algorithm is the name as reported by the server (e.g. "SHA-256",
	// "MD5", "CRC32").
	Algorithm string

	// Value is the hex digest string.
	Value string
}

// Feature identifies an optional server capability the facade may probe.
type Feature int

const (
	// FeatureMLST indicates the server supports machine-readable single
	// entry listings. Servers without it misbehave when asked to list the
	// root path, so the facade synthesizes root metadata instead.
	FeatureMLST Feature = iota

	// FeatureSetTime indicates the server accepts modification-time
	// updates (MFMT).
	FeatureSetTime

	// FeatureRecursiveList indicates directory listings can recurse on
	// the server side.
	FeatureRecursiveList

	// FeatureHash indicates the server may serve content checksums. This
	// is advisory: the authoritative signal is the command-not-recognized
	// status from Checksum itself.
	FeatureHash
)

// Conn is one connected session against the remote endpoint.
//
// A Conn permits exactly one in-flight exchange at a time. That invariant is
// not enforced here: the facade serializes all access through its
// exclusivity guard. Implementations are therefore free to be single
// threaded.
//
// Contexts are honored on a best-effort basis: implementations must check
// cancellation before starting an exchange, and should abort in-flight
// transfers where the underlying transport allows it.
type Conn interface {
	// IsConnected reports whether the session is still believed usable.
	// Implementations may answer from local state; a false return makes
	// the facade discard this Conn and dial a fresh one.
	IsConnected() bool

	// OpenRead starts a download and returns the data stream. Closing the
	// stream finalizes the exchange (drains the transfer completion
	// reply); no other exchange may be issued until then.
	OpenRead(ctx context.Context, path string) (io.ReadCloser, error)

	// Store uploads the reader's content to path, replacing any existing
	// file.
	Store(ctx context.Context, path string, r io.Reader) error

	// RenameFile moves a file. The destination must not exist on servers
	// that refuse clobbering renames; the facade checks beforehand.
	RenameFile(ctx context.Context, from, to string) error

	// RenameDir moves a directory.
	RenameDir(ctx context.Context, from, to string) error

	// DeleteFile removes a file.
	DeleteFile(ctx context.Context, path string) error

	// MakeDir creates a directory.
	MakeDir(ctx context.Context, path string) error

	// RemoveDir removes an empty directory.
	RemoveDir(ctx context.Context, path string) error

	// RemoveDirRecursive removes a directory and everything under it.
	RemoveDirRecursive(ctx context.Context, path string) error

	// List returns the raw entries directly under path. When recursive is
	// true and the implementation advertises FeatureRecursiveList, the
	// result additionally contains entries of all subdirectories, each
	// Name holding the path relative to the listed directory.
	List(ctx context.Context, path string, recursive bool) ([]Entry, error)

	// GetInfo returns the raw entry for a single path, or (nil, nil) when
	// the path does not exist.
	GetInfo(ctx context.Context, path string) (*Entry, error)

	// SetModTime updates a file's modification time.
	SetModTime(ctx context.Context, path string, t time.Time) error

	// Checksum asks the server for a content checksum. A server that does
	// not recognize the command fails with StatusNotImplemented; callers
	// detect that with IsNotImplemented.
	Checksum(ctx context.Context, path string) (*RawChecksum, error)

	// HasFeature reports whether the session advertises an optional
	// capability.
	HasFeature(f Feature) bool

	// Quit cleanly terminates the session.
	Quit() error
}

// Dialer produces connected sessions. Retry policy for refused connections
// lives here (the Endpoint's RetryAttempts), not in the facade.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}
