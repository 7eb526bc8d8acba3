package ftpfs

import (
	"github.com/driftfs/ftpfs/pkg/ftpwire"
)

// PermissionPolicy decides the capability flags for entries whose server
// reports zero owner-permission bits (servers that do not expose
// permissions at all).
type PermissionPolicy int

const (
	// PermissionPermissive treats unreported permissions as readable and
	// writable. This is the default.
	PermissionPermissive PermissionPolicy = iota

	// PermissionStrict treats unreported permissions as granting nothing.
	PermissionStrict
)

// owner permission bits as reported on the wire
const (
	ownerReadBit  = 0o400
	ownerWriteBit = 0o200
)

// synthesize converts a raw directory-entry record into a normalized
// LinkInfo. Symbolic links are filtered out by the caller before synthesis
// and must not reach here.
//
// Timestamp rules: an unset (zero) creation time falls back to the
// modification time, and vice versa; when both are unset the fields stay
// zero. Wire sentinels never survive into the result.
func synthesize(path string, raw ftpwire.Entry, policy PermissionPolicy) *LinkInfo {
	info := &LinkInfo{
		Path:   path,
		Exists: true,
		Size:   raw.Size,
	}

	switch raw.Type {
	case ftpwire.EntryTypeDir:
		info.Kind = KindDirectory
	case ftpwire.EntryTypeFile:
		info.Kind = KindFile
	default:
		info.Kind = KindUnknown
	}

	info.CreateTime = raw.CreateTime
	if info.CreateTime.IsZero() {
		info.CreateTime = raw.ModTime
	}
	info.ModifyTime = raw.ModTime
	if info.ModifyTime.IsZero() {
		info.ModifyTime = raw.CreateTime
	}

	info.Readable, info.Writable = capabilityFlags(raw.OwnerMode, policy)

	return info
}

// capabilityFlags derives read/write capability from the owner permission
// bits. A zero mode means the server does not expose permissions, so the
// configured policy decides.
func capabilityFlags(ownerMode uint32, policy PermissionPolicy) (readable, writable bool) {
	if ownerMode == 0 {
		permissive := policy == PermissionPermissive
		return permissive, permissive
	}
	return ownerMode&ownerReadBit != 0, ownerMode&ownerWriteBit != 0
}

// synthesizeRoot builds the root directory's LinkInfo without a remote
// round-trip. Servers without machine-readable listings misbehave when
// asked to describe the root path, so the facade answers locally: a
// directory, zero size, unset timestamps.
func synthesizeRoot(path string, policy PermissionPolicy) *LinkInfo {
	readable, writable := capabilityFlags(0, policy)
	return &LinkInfo{
		Path:     path,
		Exists:   true,
		Kind:     KindDirectory,
		Readable: readable,
		Writable: writable,
	}
}

// synthesizeFallback builds a minimal LinkInfo for an entry that is known
// to exist but whose follow-up lookup failed (lookups are best-effort).
func synthesizeFallback(path string, kind EntryKind, policy PermissionPolicy) *LinkInfo {
	readable, writable := capabilityFlags(0, policy)
	return &LinkInfo{
		Path:     path,
		Exists:   true,
		Kind:     kind,
		Readable: readable,
		Writable: writable,
	}
}
