package ftpfs

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftfs/ftpfs/pkg/ftpwire/wiretest"
)

// TestSyncClientRoundTrip drives a full session through the blocking
// convention only: upload, list, stat, rename, metadata, read, cleanup.
func TestSyncClientRoundTrip(t *testing.T) {
	fake := wiretest.NewFake()
	client := New(wiretest.NewDialer(fake), nil)
	blocking := client.Sync()
	defer blocking.Close()

	info, err := blocking.WriteFile("/inbox/report.txt", strings.NewReader("quarterly"), false)
	require.NoError(t, err)
	assert.True(t, info.IsFile())

	_, err = blocking.CreateDirectory("/archive")
	require.NoError(t, err)

	infos, err := blocking.ListDirectory("/inbox", nil)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "/inbox/report.txt", infos[0].Path)

	moved, err := blocking.Move("/inbox/report.txt", "/archive/report.txt", false)
	require.NoError(t, err)
	assert.Equal(t, "/archive/report.txt", moved.Path)

	when := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	stamped, err := blocking.UpdateMetadata("/archive/report.txt", MetadataSet{ModTime: &when})
	require.NoError(t, err)
	assert.True(t, stamped.ModifyTime.Equal(when))

	var buf bytes.Buffer
	n, err := blocking.ReadFile("/archive/report.txt", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(9), n)
	assert.Equal(t, "quarterly", buf.String())

	readable, err := blocking.HasReadAccess("/archive/report.txt")
	require.NoError(t, err)
	assert.True(t, readable)

	require.NoError(t, blocking.Delete("/archive/report.txt"))
	require.NoError(t, blocking.DeleteDirectory("/archive", false))

	absent, err := blocking.Stat("/archive")
	require.NoError(t, err)
	assert.Nil(t, absent)

	assert.False(t, fake.Overlapped())
}

// TestSyncClientSharesState verifies the two conventions observe the same
// facade: hash capability degradation seen through one is visible through
// the other.
func TestSyncClientSharesState(t *testing.T) {
	fake := wiretest.NewFake()
	fake.AddFile("/f.txt", []byte("x"))

	client := New(wiretest.NewDialer(fake), nil)
	blocking := client.Sync()
	defer client.Close()

	info, err := blocking.Stat("/f.txt")
	require.NoError(t, err)
	_, ok := info.HashBlocking()
	assert.False(t, ok)

	support, err := blocking.HashSupport()
	require.NoError(t, err)
	assert.True(t, support.ConfirmedUnsupported)
}

func TestSyncClientOpen(t *testing.T) {
	fake := wiretest.NewFake()
	fake.AddFile("/stream.txt", []byte("streamed"))

	client := New(wiretest.NewDialer(fake), nil)
	blocking := client.Sync()
	defer blocking.Close()

	handle, err := blocking.Open("/stream.txt", AccessRead)
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = buf.ReadFrom(handle)
	require.NoError(t, err)
	require.NoError(t, handle.Close())
	assert.Equal(t, "streamed", buf.String())
}
