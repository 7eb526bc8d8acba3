package ftpfs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftfs/ftpfs/pkg/ftpwire"
)

func TestSynthesizeTimestamps(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	modified := time.Date(2024, 6, 15, 12, 30, 0, 0, time.UTC)

	tests := []struct {
		name       string
		create     time.Time
		mod        time.Time
		wantCreate time.Time
		wantMod    time.Time
	}{
		{
			name:       "both reported",
			create:     created,
			mod:        modified,
			wantCreate: created,
			wantMod:    modified,
		},
		{
			name:       "only modification reported",
			mod:        modified,
			wantCreate: modified,
			wantMod:    modified,
		},
		{
			name:       "only creation reported",
			create:     created,
			wantCreate: created,
			wantMod:    created,
		},
		{
			name: "neither reported",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := ftpwire.Entry{
				Type:       ftpwire.EntryTypeFile,
				CreateTime: tt.create,
				ModTime:    tt.mod,
			}

			info := synthesize("/data/report.csv", raw, PermissionPermissive)

			assert.True(t, info.CreateTime.Equal(tt.wantCreate))
			assert.True(t, info.ModifyTime.Equal(tt.wantMod))
		})
	}
}

func TestSynthesizeKindAndSize(t *testing.T) {
	file := synthesize("/a", ftpwire.Entry{Type: ftpwire.EntryTypeFile, Size: 1024}, PermissionPermissive)
	require.True(t, file.Exists)
	assert.Equal(t, KindFile, file.Kind)
	assert.True(t, file.IsFile())
	assert.False(t, file.IsDir())
	assert.Equal(t, uint64(1024), file.Size)

	dir := synthesize("/b", ftpwire.Entry{Type: ftpwire.EntryTypeDir}, PermissionPermissive)
	assert.Equal(t, KindDirectory, dir.Kind)
	assert.True(t, dir.IsDir())
}

func TestCapabilityFlags(t *testing.T) {
	tests := []struct {
		name         string
		mode         uint32
		policy       PermissionPolicy
		wantReadable bool
		wantWritable bool
	}{
		{"owner read-write", 0o644, PermissionStrict, true, true},
		{"owner read-only", 0o444, PermissionPermissive, true, false},
		{"owner write-only", 0o200, PermissionPermissive, false, true},
		{"no owner access", 0o044, PermissionPermissive, false, false},
		{"unreported permissive", 0, PermissionPermissive, true, true},
		{"unreported strict", 0, PermissionStrict, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			readable, writable := capabilityFlags(tt.mode, tt.policy)
			assert.Equal(t, tt.wantReadable, readable)
			assert.Equal(t, tt.wantWritable, writable)
		})
	}
}

func TestSynthesizeRoot(t *testing.T) {
	info := synthesizeRoot("/", PermissionPermissive)

	require.True(t, info.Exists)
	assert.Equal(t, "/", info.Path)
	assert.Equal(t, KindDirectory, info.Kind)
	assert.Zero(t, info.Size)
	assert.True(t, info.CreateTime.IsZero())
	assert.True(t, info.ModifyTime.IsZero())
	assert.True(t, info.Readable)
	assert.True(t, info.Writable)
}

func TestSynthesizeFallback(t *testing.T) {
	info := synthesizeFallback("/up/loaded", KindFile, PermissionStrict)

	require.True(t, info.Exists)
	assert.Equal(t, KindFile, info.Kind)
	assert.False(t, info.Readable)
	assert.False(t, info.Writable)

	unknown := synthesizeFallback("/touched", KindUnknown, PermissionPermissive)
	assert.Equal(t, KindUnknown, unknown.Kind)
	assert.False(t, unknown.IsFile())
	assert.False(t, unknown.IsDir())
}
