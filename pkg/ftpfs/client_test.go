package ftpfs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftfs/ftpfs/pkg/ftpwire"
	"github.com/driftfs/ftpfs/pkg/ftpwire/wiretest"
)

func newTestClient(t *testing.T, fake *wiretest.Fake) *Client {
	t.Helper()
	client := New(wiretest.NewDialer(fake), nil)
	t.Cleanup(func() { client.Close() })
	return client
}

// ============================================================================
// Read operations
// ============================================================================

func TestReadFile(t *testing.T) {
	fake := wiretest.NewFake()
	fake.AddFile("/docs/readme.txt", []byte("hello remote"))

	client := newTestClient(t, fake)

	var buf bytes.Buffer
	n, err := client.ReadFile(context.Background(), "/docs/readme.txt", &buf)

	require.NoError(t, err)
	assert.Equal(t, int64(12), n)
	assert.Equal(t, "hello remote", buf.String())
}

func TestReadFileMissing(t *testing.T) {
	fake := wiretest.NewFake()
	client := newTestClient(t, fake)

	var buf bytes.Buffer
	_, err := client.ReadFile(context.Background(), "/nope", &buf)

	require.Error(t, err)
	assert.True(t, IsCode(err, ErrIO))
}

func TestOpenStreamsAndHoldsExclusivity(t *testing.T) {
	fake := wiretest.NewFake()
	fake.AddFile("/stream.bin", []byte("0123456789"))

	client := newTestClient(t, fake)

	handle, err := client.Open(context.Background(), "/stream.bin", AccessRead)
	require.NoError(t, err)
	assert.Equal(t, "/stream.bin", handle.Path())

	// Another operation must not start while the handle is open.
	statDone := make(chan struct{})
	go func() {
		defer close(statDone)
		_, _ = client.Stat(context.Background(), "/stream.bin")
	}()

	select {
	case <-statDone:
		t.Fatal("operation completed while a read handle was open")
	case <-time.After(50 * time.Millisecond):
	}

	data, err := io.ReadAll(handle)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(data))

	require.NoError(t, handle.Close())
	require.NoError(t, handle.Close()) // idempotent

	select {
	case <-statDone:
	case <-time.After(time.Second):
		t.Fatal("operation still blocked after handle close")
	}

	assert.False(t, fake.Overlapped())
}

func TestOpenRejectsWriteAccess(t *testing.T) {
	fake := wiretest.NewFake()
	client := newTestClient(t, fake)

	for _, access := range []Access{AccessWrite, AccessReadWrite} {
		_, err := client.Open(context.Background(), "/f", access)
		require.Error(t, err)
		assert.True(t, IsCode(err, ErrNotSupported))
	}

	// The rejection happens before any exchange.
	assert.Empty(t, fake.Events())
}

// ============================================================================
// Write operations
// ============================================================================

func TestWriteFile(t *testing.T) {
	fake := wiretest.NewFake()
	client := newTestClient(t, fake)

	info, err := client.WriteFile(context.Background(), "/up/new.txt", strings.NewReader("payload"), false)

	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "/up/new.txt", info.Path)
	assert.True(t, info.IsFile())
	assert.Equal(t, uint64(7), info.Size)

	content, ok := fake.FileContent("/up/new.txt")
	require.True(t, ok)
	assert.Equal(t, "payload", string(content))
}

func TestWriteFileConflict(t *testing.T) {
	fake := wiretest.NewFake()
	fake.AddFile("/existing.txt", []byte("original"))

	client := newTestClient(t, fake)

	_, err := client.WriteFile(context.Background(), "/existing.txt", strings.NewReader("clobber"), false)

	require.Error(t, err)
	assert.True(t, IsCode(err, ErrConflict))

	// The target is untouched.
	content, _ := fake.FileContent("/existing.txt")
	assert.Equal(t, "original", string(content))
}

func TestWriteFileOverwrite(t *testing.T) {
	fake := wiretest.NewFake()
	fake.AddFile("/existing.txt", []byte("original"))

	client := newTestClient(t, fake)

	info, err := client.WriteFile(context.Background(), "/existing.txt", strings.NewReader("replaced"), true)

	require.NoError(t, err)
	assert.Equal(t, uint64(8), info.Size)

	content, _ := fake.FileContent("/existing.txt")
	assert.Equal(t, "replaced", string(content))
}

func TestMoveFile(t *testing.T) {
	fake := wiretest.NewFake()
	fake.AddFile("/src.txt", []byte("data"))

	client := newTestClient(t, fake)

	info, err := client.Move(context.Background(), "/src.txt", "/dest.txt", false)

	require.NoError(t, err)
	assert.Equal(t, "/dest.txt", info.Path)
	assert.True(t, info.IsFile())

	_, srcLeft := fake.FileContent("/src.txt")
	assert.False(t, srcLeft)
	content, ok := fake.FileContent("/dest.txt")
	require.True(t, ok)
	assert.Equal(t, "data", string(content))
}

func TestMoveConflictSemantics(t *testing.T) {
	t.Run("existing destination without overwrite", func(t *testing.T) {
		fake := wiretest.NewFake()
		fake.AddFile("/src.txt", []byte("new"))
		fake.AddFile("/dest.txt", []byte("old"))

		client := newTestClient(t, fake)

		_, err := client.Move(context.Background(), "/src.txt", "/dest.txt", false)
		require.Error(t, err)
		assert.True(t, IsCode(err, ErrConflict))

		content, _ := fake.FileContent("/dest.txt")
		assert.Equal(t, "old", string(content))
	})

	t.Run("existing destination file with overwrite", func(t *testing.T) {
		fake := wiretest.NewFake()
		fake.AddFile("/src.txt", []byte("new"))
		fake.AddFile("/dest.txt", []byte("old"))

		client := newTestClient(t, fake)

		info, err := client.Move(context.Background(), "/src.txt", "/dest.txt", true)
		require.NoError(t, err)
		assert.Equal(t, "/dest.txt", info.Path)

		content, _ := fake.FileContent("/dest.txt")
		assert.Equal(t, "new", string(content))
	})

	t.Run("missing source never destroys the destination", func(t *testing.T) {
		fake := wiretest.NewFake()
		fake.AddFile("/dest.txt", []byte("precious"))

		client := newTestClient(t, fake)

		_, err := client.Move(context.Background(), "/missing.txt", "/dest.txt", true)
		require.Error(t, err)
		assert.True(t, IsCode(err, ErrNotFound))

		content, ok := fake.FileContent("/dest.txt")
		require.True(t, ok)
		assert.Equal(t, "precious", string(content))
	})

	t.Run("existing destination directory is never replaced", func(t *testing.T) {
		fake := wiretest.NewFake()
		fake.AddFile("/src.txt", []byte("new"))
		fake.AddDir("/dest")

		client := newTestClient(t, fake)

		_, err := client.Move(context.Background(), "/src.txt", "/dest", true)
		require.Error(t, err)
		assert.True(t, IsCode(err, ErrConflict))
		assert.True(t, fake.HasDir("/dest"))
	})
}

// TestConflictGuardPropagatesLookupFailure covers commands whose overwrite
// guard depends on a lookup: a transient lookup failure must fail the
// command rather than read as "absent" and clobber the target.
func TestConflictGuardPropagatesLookupFailure(t *testing.T) {
	fake := wiretest.NewFake()
	fake.AddFile("/existing.txt", []byte("original"))
	fake.SetInfoError(&textproto.Error{Code: 450, Msg: "file busy"})

	client := newTestClient(t, fake)
	ctx := context.Background()

	_, err := client.WriteFile(ctx, "/existing.txt", strings.NewReader("clobber"), false)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrIO))

	content, _ := fake.FileContent("/existing.txt")
	assert.Equal(t, "original", string(content))

	_, err = client.Move(ctx, "/existing.txt", "/other.txt", false)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrIO))
	_, moved := fake.FileContent("/other.txt")
	assert.False(t, moved)

	// Queries keep degrading to absent.
	info, err := client.Stat(ctx, "/existing.txt")
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestMoveDirectory(t *testing.T) {
	fake := wiretest.NewFake()
	fake.AddDir("/old")
	fake.AddFile("/old/a.txt", []byte("a"))

	client := newTestClient(t, fake)

	info, err := client.Move(context.Background(), "/old", "/new", false)

	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.False(t, fake.HasDir("/old"))
	assert.True(t, fake.HasDir("/new"))

	content, ok := fake.FileContent("/new/a.txt")
	require.True(t, ok)
	assert.Equal(t, "a", string(content))
}

func TestDelete(t *testing.T) {
	fake := wiretest.NewFake()
	fake.AddFile("/gone.txt", []byte("x"))

	client := newTestClient(t, fake)

	require.NoError(t, client.Delete(context.Background(), "/gone.txt"))

	_, left := fake.FileContent("/gone.txt")
	assert.False(t, left)

	err := client.Delete(context.Background(), "/gone.txt")
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrIO))
}

// ============================================================================
// Directory operations
// ============================================================================

func TestCreateDirectory(t *testing.T) {
	fake := wiretest.NewFake()
	client := newTestClient(t, fake)

	info, err := client.CreateDirectory(context.Background(), "/projects/alpha")

	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, "/projects/alpha", info.Path)
	assert.True(t, fake.HasDir("/projects/alpha"))
}

func TestDeleteDirectoryEmpty(t *testing.T) {
	fake := wiretest.NewFake()
	fake.AddDir("/empty")

	client := newTestClient(t, fake)

	require.NoError(t, client.DeleteDirectory(context.Background(), "/empty", false))
	assert.False(t, fake.HasDir("/empty"))
}

func TestDeleteDirectoryNotEmpty(t *testing.T) {
	fake := wiretest.NewFake()
	fake.AddDir("/full")
	fake.AddFile("/full/keep.txt", []byte("x"))

	client := newTestClient(t, fake)

	err := client.DeleteDirectory(context.Background(), "/full", false)

	require.Error(t, err)
	assert.True(t, IsCode(err, ErrNotEmpty))
	assert.True(t, fake.HasDir("/full"))
}

func TestDeleteDirectoryRecursive(t *testing.T) {
	fake := wiretest.NewFake()
	fake.AddDir("/tree")
	fake.AddDir("/tree/sub")
	fake.AddFile("/tree/sub/leaf.txt", []byte("x"))

	client := newTestClient(t, fake)

	require.NoError(t, client.DeleteDirectory(context.Background(), "/tree", true))
	assert.False(t, fake.HasDir("/tree"))
	assert.False(t, fake.HasDir("/tree/sub"))
}

func TestListDirectoryFiltersLinks(t *testing.T) {
	fake := wiretest.NewFake()
	fake.AddDir("/mixed")
	fake.AddFile("/mixed/file.txt", []byte("x"))
	fake.AddDir("/mixed/sub")
	fake.AddLink("/mixed/shortcut", "/mixed/file.txt")

	client := newTestClient(t, fake)

	infos, err := client.ListDirectory(context.Background(), "/mixed", nil)

	require.NoError(t, err)
	require.Len(t, infos, 2)

	byPath := map[string]*LinkInfo{}
	for _, info := range infos {
		byPath[info.Path] = info
	}
	require.Contains(t, byPath, "/mixed/file.txt")
	require.Contains(t, byPath, "/mixed/sub")
	assert.True(t, byPath["/mixed/file.txt"].IsFile())
	assert.True(t, byPath["/mixed/sub"].IsDir())
}

func TestListDirectoryRecursionHonored(t *testing.T) {
	fake := wiretest.NewFake()
	fake.AddDir("/top")
	fake.AddDir("/top/nested")
	fake.AddFile("/top/nested/deep.txt", []byte("x"))

	client := newTestClient(t, fake)

	opts := &ListingOptions{Recursive: true}
	infos, err := client.ListDirectory(context.Background(), "/top", opts)
	require.NoError(t, err)
	assert.True(t, opts.RecursionHonored)
	assert.Len(t, infos, 2)

	// Without wire support the listing degrades to a single level and
	// reports it.
	fake.SetFeature(ftpwire.FeatureRecursiveList, false)
	opts = &ListingOptions{Recursive: true}
	infos, err = client.ListDirectory(context.Background(), "/top", opts)
	require.NoError(t, err)
	assert.False(t, opts.RecursionHonored)
	assert.Len(t, infos, 1)
}

// ============================================================================
// Metadata operations
// ============================================================================

func TestUpdateMetadataModTime(t *testing.T) {
	fake := wiretest.NewFake()
	fake.AddFile("/stamp.txt", []byte("x"))

	client := newTestClient(t, fake)

	when := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	info, err := client.UpdateMetadata(context.Background(), "/stamp.txt", MetadataSet{ModTime: &when})

	require.NoError(t, err)
	require.NotNil(t, info)
	assert.True(t, info.ModifyTime.Equal(when))
	assert.True(t, fake.ModTime("/stamp.txt").Equal(when))
}

func TestUpdateMetadataUnsupportedIsSilent(t *testing.T) {
	fake := wiretest.NewFake()
	fake.AddFile("/stamp.txt", []byte("x"))
	fake.SetFeature(ftpwire.FeatureSetTime, false)

	client := newTestClient(t, fake)

	when := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	info, err := client.UpdateMetadata(context.Background(), "/stamp.txt", MetadataSet{ModTime: &when})

	require.NoError(t, err)
	require.NotNil(t, info)
	assert.False(t, fake.ModTime("/stamp.txt").Equal(when))
}

func TestStat(t *testing.T) {
	fake := wiretest.NewFake()
	fake.AddFile("/present.txt", []byte("abc"))
	fake.AddLink("/alias", "/present.txt")

	client := newTestClient(t, fake)
	ctx := context.Background()

	info, err := client.Stat(ctx, "/present.txt")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, uint64(3), info.Size)

	absent, err := client.Stat(ctx, "/missing.txt")
	require.NoError(t, err)
	assert.Nil(t, absent)

	// Symbolic links read as absent.
	link, err := client.Stat(ctx, "/alias")
	require.NoError(t, err)
	assert.Nil(t, link)
}

func TestStatRootWithoutMachineListings(t *testing.T) {
	fake := wiretest.NewFake()
	fake.SetFeature(ftpwire.FeatureMLST, false)

	client := newTestClient(t, fake)

	info, err := client.Stat(context.Background(), "/")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.True(t, info.IsDir())
	assert.Zero(t, info.Size)
	assert.True(t, info.ModifyTime.IsZero())

	// The answer is synthesized locally, never asked of the remote.
	for _, ev := range fake.Events() {
		assert.NotEqual(t, "stat", ev.Op)
	}
}

func TestAccessChecks(t *testing.T) {
	fake := wiretest.NewFake()
	fake.AddFile("/locked.txt", []byte("x"))
	fake.SetOwnerMode("/locked.txt", 0o444)

	client := newTestClient(t, fake)
	ctx := context.Background()

	readable, err := client.HasReadAccess(ctx, "/locked.txt")
	require.NoError(t, err)
	assert.True(t, readable)

	writable, err := client.HasWriteAccess(ctx, "/locked.txt")
	require.NoError(t, err)
	assert.False(t, writable)

	// Absent entries default to permissive.
	readable, err = client.HasReadAccess(ctx, "/missing")
	require.NoError(t, err)
	assert.True(t, readable)
}

func TestStrictPermissionPolicy(t *testing.T) {
	fake := wiretest.NewFake()
	fake.AddFile("/unreported.txt", []byte("x"))

	client := New(wiretest.NewDialer(fake), &Options{Permissions: PermissionStrict})
	defer client.Close()

	info, err := client.Stat(context.Background(), "/unreported.txt")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.False(t, info.Readable)
	assert.False(t, info.Writable)
}

// ============================================================================
// Connection lifecycle
// ============================================================================

func TestReconnectAfterDrop(t *testing.T) {
	fake := wiretest.NewFake()
	fake.AddFile("/f.txt", []byte("x"))
	dialer := wiretest.NewDialer(fake)

	client := New(dialer, nil)
	defer client.Close()

	ctx := context.Background()
	_, err := client.Stat(ctx, "/f.txt")
	require.NoError(t, err)
	assert.Equal(t, 1, dialer.Dials())

	fake.Disconnect()

	info, err := client.Stat(ctx, "/f.txt")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, 2, dialer.Dials())
}

func TestDialFailure(t *testing.T) {
	fake := wiretest.NewFake()
	dialer := wiretest.NewDialer(fake)
	dialer.SetError(errors.New("connection refused"))

	client := New(dialer, nil)
	defer client.Close()

	_, err := client.Stat(context.Background(), "/f.txt")
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrConnection))
}

func TestLazyDial(t *testing.T) {
	fake := wiretest.NewFake()
	dialer := wiretest.NewDialer(fake)

	client := New(dialer, nil)
	assert.Zero(t, dialer.Dials())

	_, err := client.Stat(context.Background(), "/")
	require.NoError(t, err)
	assert.Equal(t, 1, dialer.Dials())

	require.NoError(t, client.Close())
}

func TestCloseIsIdempotentAndFinal(t *testing.T) {
	fake := wiretest.NewFake()
	client := New(wiretest.NewDialer(fake), nil)

	_, err := client.Stat(context.Background(), "/")
	require.NoError(t, err)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())
	assert.False(t, fake.IsConnected())

	_, err = client.Stat(context.Background(), "/")
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrClosed))
}

func TestCancellationDuringAcquire(t *testing.T) {
	fake := wiretest.NewFake()
	fake.AddFile("/slow.bin", []byte("data"))

	client := newTestClient(t, fake)

	// Park a handle on the exclusivity slot, then cancel a waiter.
	handle, err := client.Open(context.Background(), "/slow.bin", AccessRead)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := client.Stat(ctx, "/slow.bin")
		errCh <- err
	}()

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled waiter did not return")
	}

	require.NoError(t, handle.Close())
}

// ============================================================================
// Serialization
// ============================================================================

func TestOperationsNeverOverlap(t *testing.T) {
	fake := wiretest.NewFake()
	fake.AddDir("/work")
	fake.AddFile("/work/seed.txt", []byte("seed"))
	fake.SetLatency(2 * time.Millisecond)

	client := newTestClient(t, fake)
	blocking := client.Sync()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			switch i % 4 {
			case 0:
				var buf bytes.Buffer
				_, _ = client.ReadFile(ctx, "/work/seed.txt", &buf)
			case 1:
				_, _ = blocking.Stat("/work/seed.txt")
			case 2:
				_, _ = client.ListDirectory(ctx, "/work", nil)
			case 3:
				_, _ = blocking.ListDirectory("/work", nil)
			}
		}(i)
	}
	wg.Wait()

	assert.False(t, fake.Overlapped(), "two exchanges were in flight at once")

	// Every begin pairs with an end before the next begin.
	events := fake.Events()
	depth := 0
	for _, ev := range events {
		switch ev.Phase {
		case "begin":
			depth++
		case "end":
			depth--
		}
		assert.LessOrEqual(t, depth, 1)
	}
	assert.Zero(t, depth)
}
