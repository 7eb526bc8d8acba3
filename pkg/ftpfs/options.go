package ftpfs

import "time"

// ListingOptions configures one directory-listing request.
type ListingOptions struct {
	// Recursive requests entries of all subdirectories in a single
	// listing, each path reported relative to the listed directory.
	Recursive bool

	// RecursionHonored is an output: ListDirectory sets it true when the
	// remote performed the requested recursion, false when only a single
	// level was returned and the caller must emulate recursion itself.
	RecursionHonored bool
}

// MetadataSet selects metadata fields to update. A nil field is left
// unchanged. Only ModTime updates are guaranteed supported; fields the
// remote cannot update are ignored silently, never errored.
type MetadataSet struct {
	// ModTime is the new last-write time.
	ModTime *time.Time

	// CreateTime is the new creation time. No known server accepts it;
	// it exists so callers can hand over a full metadata set and let the
	// facade apply what it can.
	CreateTime *time.Time
}

// Access is the access mode requested from Open.
type Access int

const (
	AccessRead Access = iota
	AccessWrite
	AccessReadWrite
)

func (a Access) String() string {
	switch a {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	case AccessReadWrite:
		return "read-write"
	default:
		return "unknown"
	}
}
