package ftpfs

import (
	"context"
	"sync"
	"time"
)

// EntryKind classifies a normalized file-system entry. Kind is a tri-state:
// degenerate cases (a write whose follow-up lookup failed, for example)
// produce KindUnknown rather than a guess.
type EntryKind int

const (
	KindUnknown EntryKind = iota
	KindFile
	KindDirectory
)

func (k EntryKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	default:
		return "unknown"
	}
}

// LinkInfo is the normalized description of one remote file-system entry.
//
// A LinkInfo is an immutable snapshot taken at query time: later operations
// never update it in place. The only field filled in after construction is
// the lazily resolved content hash, memoized on first read; staleness of
// the snapshot (and of the cached hash) is the caller's responsibility.
//
// Timestamps use the zero time.Time for "unknown". Wire-level sentinel
// values never leak into a LinkInfo: the synthesizer replaces them with a
// fallback or with the zero value.
type LinkInfo struct {
	// Path is the full remote path.
	Path string

	// Exists reports whether the entry was present when queried.
	Exists bool

	// Kind classifies the entry.
	Kind EntryKind

	// CreateTime is the creation time, zero when unknown.
	CreateTime time.Time

	// ModifyTime is the last-write time, zero when unknown.
	ModifyTime time.Time

	// Size is the byte length.
	Size uint64

	// Readable and Writable are capability flags derived from the
	// server's permission report, or from the facade's permission policy
	// when the server reports none.
	Readable bool
	Writable bool

	hashOnce sync.Once
	hash     Hash
	hashOK   bool
	resolver hashResolver
}

// hashResolver performs the lazy hash round-trip for one path.
type hashResolver func(ctx context.Context, path string) (Hash, bool)

// IsDir reports whether the entry is known to be a directory.
func (li *LinkInfo) IsDir() bool {
	return li.Kind == KindDirectory
}

// IsFile reports whether the entry is known to be a regular file.
func (li *LinkInfo) IsFile() bool {
	return li.Kind == KindFile
}

// Hash resolves the entry's content hash, lazily and at most once per
// LinkInfo instance: the first call may cost a remote round-trip, later
// calls return the memoized result even if the remote content has since
// changed. The second return is false when no hash is available (remote
// does not support hashing, unknown algorithm, or any retrieval failure).
func (li *LinkInfo) Hash(ctx context.Context) (Hash, bool) {
	if !li.Exists || li.Kind != KindFile || li.resolver == nil {
		return Hash{}, false
	}

	li.hashOnce.Do(func() {
		li.hash, li.hashOK = li.resolver(ctx, li.Path)
	})
	return li.hash, li.hashOK
}

// HashBlocking is the blocking form of Hash.
func (li *LinkInfo) HashBlocking() (Hash, bool) {
	return li.Hash(context.Background())
}
