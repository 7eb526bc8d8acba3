// Package ftpfs exposes a uniform set of file and directory operations over
// a single stateful FTP session.
//
// The facade hides connection lifecycle (lazy dial, transparent
// reconnect), normalizes heterogeneous server metadata into LinkInfo
// snapshots, and degrades gracefully when optional server features
// (content hashing, machine-readable listings) are absent.
//
// Every operation exists in two calling conventions with identical
// observable semantics: a suspending form taking a context.Context, and a
// blocking form on the SyncClient returned by (*Client).Sync. Both forms
// contend on the same exclusivity primitive, so exactly one protocol
// exchange is ever in flight on the underlying connection regardless of
// which convention issued it.
package ftpfs

import (
	"context"
	"io"
	"path"
	"sync"

	"github.com/driftfs/ftpfs/internal/logger"
	"github.com/driftfs/ftpfs/internal/ratelimiter"
	"github.com/driftfs/ftpfs/pkg/ftpwire"
)

// Options tunes facade behavior. The zero value is usable.
type Options struct {
	// Permissions decides capability flags when the server reports no
	// permission bits. Defaults to PermissionPermissive.
	Permissions PermissionPolicy

	// ExchangesPerSecond throttles protocol exchanges against the remote.
	// Zero disables throttling.
	ExchangesPerSecond uint

	// ExchangeBurst is the throttle's burst capacity. Zero defaults to
	// ExchangesPerSecond.
	ExchangeBurst uint
}

// Client is one facade instance: one configured endpoint plus its single
// managed connection.
//
// A Client is safe for concurrent use from any number of goroutines; all
// operations serialize through one exclusivity primitive. The connection
// is created lazily on first use, recreated transparently after a drop,
// and disposed exactly once by Close.
type Client struct {
	dialer  ftpwire.Dialer
	policy  PermissionPolicy
	limiter *ratelimiter.ExchangeLimiter

	lock *exclusive

	// guarded by lock
	conn            ftpwire.Conn
	hashUnsupported bool
	closed          bool

	closeOnce sync.Once
	closeErr  error
}

// New creates a facade over the given dialer. A nil opts uses defaults.
func New(dialer ftpwire.Dialer, opts *Options) *Client {
	if opts == nil {
		opts = &Options{}
	}

	c := &Client{
		dialer: dialer,
		policy: opts.Permissions,
		lock:   newExclusive(),
	}
	if opts.ExchangesPerSecond > 0 {
		c.limiter = ratelimiter.New(opts.ExchangesPerSecond, opts.ExchangeBurst)
	}
	return c
}

// throttle paces the next exchange when a limiter is configured.
func (c *Client) throttle(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// ============================================================================
// Read operations
// ============================================================================

// ReadFile streams the file at path into w and returns the byte count.
func (c *Client) ReadFile(ctx context.Context, p string, w io.Writer) (int64, error) {
	g, conn, err := c.begin(ctx)
	if err != nil {
		return 0, err
	}
	defer g.release()

	if err := c.throttle(ctx); err != nil {
		return 0, err
	}

	rc, err := conn.OpenRead(ctx, p)
	if err != nil {
		return 0, ioErr("read failed", p, err)
	}

	n, copyErr := io.Copy(w, rc)
	closeErr := rc.Close()
	if copyErr != nil {
		return n, ioErr("read failed", p, copyErr)
	}
	if closeErr != nil {
		return n, ioErr("read finalization failed", p, closeErr)
	}
	return n, nil
}

// Open starts a direct streaming read and returns a live handle. Only
// AccessRead is supported; write access requests fail with ErrNotSupported.
//
// The handle owns the facade's exclusivity until closed: no other
// operation can proceed while it is open, and closing it is the only
// release point. Close finalizes the protocol exchange before releasing.
func (c *Client) Open(ctx context.Context, p string, access Access) (*ReadHandle, error) {
	if access != AccessRead {
		return nil, &Error{
			Code:    ErrNotSupported,
			Message: "only read access is supported, got " + access.String(),
			Path:    p,
		}
	}

	g, conn, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.throttle(ctx); err != nil {
		g.release()
		return nil, err
	}

	rc, err := conn.OpenRead(ctx, p)
	if err != nil {
		g.release()
		return nil, ioErr("open failed", p, err)
	}

	return &ReadHandle{rc: rc, guard: g, path: p}, nil
}

// ============================================================================
// Write operations
// ============================================================================

// WriteFile uploads r to path and returns the written file's metadata.
// With overwrite false an existing target is left untouched and the call
// fails with ErrConflict.
func (c *Client) WriteFile(ctx context.Context, p string, r io.Reader, overwrite bool) (*LinkInfo, error) {
	g, conn, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer g.release()

	if !overwrite {
		existing, err := c.statLocked(ctx, conn, p)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, conflictErr(p)
		}
	}

	if err := c.throttle(ctx); err != nil {
		return nil, err
	}
	if err := conn.Store(ctx, p, r); err != nil {
		return nil, ioErr("write failed", p, err)
	}

	if info := c.refreshLocked(ctx, conn, p); info != nil {
		return info, nil
	}
	return c.finish(synthesizeFallback(p, KindFile, c.policy)), nil
}

// Move renames src to dest. overwrite follows WriteFile's contract: an
// existing destination fails with ErrConflict unless overwrite is true, in
// which case an existing destination file is replaced. An existing
// destination directory is never replaced.
func (c *Client) Move(ctx context.Context, src, dest string, overwrite bool) (*LinkInfo, error) {
	g, conn, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer g.release()

	srcInfo, err := c.statLocked(ctx, conn, src)
	if err != nil {
		return nil, err
	}
	kind := KindUnknown
	if srcInfo != nil {
		kind = srcInfo.Kind
	}

	destInfo, err := c.statLocked(ctx, conn, dest)
	if err != nil {
		return nil, err
	}
	if destInfo != nil {
		if !overwrite {
			return nil, conflictErr(dest)
		}
		if destInfo.Kind == KindDirectory {
			return nil, &Error{Code: ErrConflict, Message: "destination is an existing directory", Path: dest}
		}
		// Replacing the destination is destructive; a missing source must
		// fail here, before anything is deleted.
		if srcInfo == nil {
			return nil, &Error{Code: ErrNotFound, Message: "source does not exist", Path: src}
		}
		if err := c.throttle(ctx); err != nil {
			return nil, err
		}
		if err := conn.DeleteFile(ctx, dest); err != nil {
			return nil, ioErr("replacing destination failed", dest, err)
		}
	}

	if err := c.throttle(ctx); err != nil {
		return nil, err
	}

	var mvErr error
	if kind == KindDirectory {
		mvErr = conn.RenameDir(ctx, src, dest)
	} else {
		mvErr = conn.RenameFile(ctx, src, dest)
	}
	if mvErr != nil {
		return nil, ioErr("move failed", src, mvErr)
	}

	if info := c.refreshLocked(ctx, conn, dest); info != nil {
		return info, nil
	}
	return c.finish(synthesizeFallback(dest, kind, c.policy)), nil
}

// Delete removes the file at path.
func (c *Client) Delete(ctx context.Context, p string) error {
	g, conn, err := c.begin(ctx)
	if err != nil {
		return err
	}
	defer g.release()

	if err := c.throttle(ctx); err != nil {
		return err
	}
	if err := conn.DeleteFile(ctx, p); err != nil {
		return ioErr("delete failed", p, err)
	}
	return nil
}

// ============================================================================
// Directory operations
// ============================================================================

// CreateDirectory creates a directory and returns its metadata.
func (c *Client) CreateDirectory(ctx context.Context, p string) (*LinkInfo, error) {
	g, conn, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer g.release()

	if err := c.throttle(ctx); err != nil {
		return nil, err
	}
	if err := conn.MakeDir(ctx, p); err != nil {
		return nil, ioErr("create directory failed", p, err)
	}

	if info := c.refreshLocked(ctx, conn, p); info != nil {
		return info, nil
	}
	return c.finish(synthesizeFallback(p, KindDirectory, c.policy)), nil
}

// DeleteDirectory removes a directory. With recursive false the directory
// must be empty; a populated directory fails with ErrNotEmpty.
func (c *Client) DeleteDirectory(ctx context.Context, p string, recursive bool) error {
	g, conn, err := c.begin(ctx)
	if err != nil {
		return err
	}
	defer g.release()

	if recursive {
		if err := c.throttle(ctx); err != nil {
			return err
		}
		if err := conn.RemoveDirRecursive(ctx, p); err != nil {
			return ioErr("recursive delete failed", p, err)
		}
		return nil
	}

	if err := c.throttle(ctx); err != nil {
		return err
	}
	entries, err := conn.List(ctx, p, false)
	if err != nil {
		return ioErr("listing before delete failed", p, err)
	}
	if len(entries) > 0 {
		return &Error{Code: ErrNotEmpty, Message: "directory not empty", Path: p}
	}

	if err := c.throttle(ctx); err != nil {
		return err
	}
	if err := conn.RemoveDir(ctx, p); err != nil {
		return ioErr("delete directory failed", p, err)
	}
	return nil
}

// ListDirectory returns one LinkInfo per non-link child of path, in the
// order the server reported them. Symbolic links are filtered out before
// synthesis.
//
// When opts requests recursion, opts.RecursionHonored reports whether the
// remote actually recursed; when false the caller gets a single level and
// must emulate recursion itself.
func (c *Client) ListDirectory(ctx context.Context, p string, opts *ListingOptions) ([]*LinkInfo, error) {
	var discard ListingOptions
	if opts == nil {
		opts = &discard
	}

	g, conn, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer g.release()

	recursive := opts.Recursive && conn.HasFeature(ftpwire.FeatureRecursiveList)
	opts.RecursionHonored = recursive
	if opts.Recursive && !recursive {
		logger.Debug("remote cannot recurse listings, returning a single level for %s", p)
	}

	if err := c.throttle(ctx); err != nil {
		return nil, err
	}
	raw, err := conn.List(ctx, p, recursive)
	if err != nil {
		return nil, ioErr("list failed", p, err)
	}

	infos := make([]*LinkInfo, 0, len(raw))
	for _, entry := range raw {
		if entry.Type == ftpwire.EntryTypeLink {
			continue
		}
		infos = append(infos, c.finish(synthesize(joinRemote(p, entry.Name), entry, c.policy)))
	}
	return infos, nil
}

// ============================================================================
// Metadata operations
// ============================================================================

// UpdateMetadata applies the given metadata fields to path and returns the
// refreshed metadata. Only modification-time updates are guaranteed
// supported; fields the remote cannot update are ignored silently.
func (c *Client) UpdateMetadata(ctx context.Context, p string, set MetadataSet) (*LinkInfo, error) {
	g, conn, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer g.release()

	if set.ModTime != nil && conn.HasFeature(ftpwire.FeatureSetTime) {
		if err := c.throttle(ctx); err != nil {
			return nil, err
		}
		if err := conn.SetModTime(ctx, p, *set.ModTime); err != nil {
			if !ftpwire.IsNotImplemented(err) {
				return nil, ioErr("metadata update failed", p, err)
			}
			logger.Debug("remote refused modification-time update for %s, ignoring", p)
		}
	}
	// CreateTime has no wire support anywhere; ignored by contract.

	if info := c.refreshLocked(ctx, conn, p); info != nil {
		return info, nil
	}
	return c.finish(synthesizeFallback(p, KindUnknown, c.policy)), nil
}

// Stat returns the entry's metadata, or (nil, nil) when the path does not
// exist. Lookups are queries: transient protocol failures read as absent
// rather than propagate.
func (c *Client) Stat(ctx context.Context, p string) (*LinkInfo, error) {
	g, conn, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer g.release()

	info, err := c.statLocked(ctx, conn, p)
	if err != nil {
		logger.Debug("lookup for %s failed, reading as absent: %v", p, err)
		return nil, nil
	}
	return info, nil
}

// HasReadAccess reports whether path is believed readable. Absent metadata
// defaults to permissive.
func (c *Client) HasReadAccess(ctx context.Context, p string) (bool, error) {
	info, err := c.Stat(ctx, p)
	if err != nil {
		return false, err
	}
	if info == nil {
		return true, nil
	}
	return info.Readable, nil
}

// HasWriteAccess reports whether path is believed writable. Absent
// metadata defaults to permissive.
func (c *Client) HasWriteAccess(ctx context.Context, p string) (bool, error) {
	info, err := c.Stat(ctx, p)
	if err != nil {
		return false, err
	}
	if info == nil {
		return true, nil
	}
	return info.Writable, nil
}

// ============================================================================
// Internals
// ============================================================================

// statLocked resolves one path to a LinkInfo. A clean "no such entry"
// answer is (nil, nil); lookup failures are returned so command guards can
// tell "absent" from "unknown" instead of proceeding on a guess. Queries
// degrade the error themselves. The caller must hold the exclusivity
// guard.
//
// The root path on servers without machine-readable listings is never
// looked up remotely; such servers misbehave on root queries, so the
// answer is synthesized locally.
func (c *Client) statLocked(ctx context.Context, conn ftpwire.Conn, p string) (*LinkInfo, error) {
	if isRoot(p) && !conn.HasFeature(ftpwire.FeatureMLST) {
		return c.finish(synthesizeRoot(p, c.policy)), nil
	}

	if err := c.throttle(ctx); err != nil {
		return nil, err
	}

	raw, err := conn.GetInfo(ctx, p)
	if err != nil {
		return nil, ioErr("lookup failed", p, err)
	}
	if raw == nil || raw.Type == ftpwire.EntryTypeLink {
		return nil, nil
	}

	return c.finish(synthesize(p, *raw, c.policy)), nil
}

// refreshLocked is the best-effort follow-up lookup after a successful
// command: a failure here reads as absent so the caller falls back to a
// synthesized result rather than failing an operation that already
// succeeded remotely.
func (c *Client) refreshLocked(ctx context.Context, conn ftpwire.Conn, p string) *LinkInfo {
	info, err := c.statLocked(ctx, conn, p)
	if err != nil {
		logger.Debug("refresh lookup for %s failed: %v", p, err)
		return nil
	}
	return info
}

// finish arms a freshly synthesized LinkInfo with the lazy hash resolver.
func (c *Client) finish(info *LinkInfo) *LinkInfo {
	info.resolver = c.hashFor
	return info
}

// hashFor is the LinkInfo-side entry into hash resolution: it re-acquires
// the exclusivity guard, so a Hash read contends with regular operations
// exactly like any other exchange.
func (c *Client) hashFor(ctx context.Context, p string) (Hash, bool) {
	g, err := c.lock.acquire(ctx)
	if err != nil {
		return Hash{}, false
	}
	defer g.release()

	conn, err := c.preparedLocked(ctx)
	if err != nil {
		return Hash{}, false
	}
	return c.resolveHashLocked(ctx, conn, p)
}

func isRoot(p string) bool {
	return p == "" || p == "/"
}

func joinRemote(dir, name string) string {
	return path.Join(dir, name)
}
