package ftpfs

import (
	"context"
	"io"
)

// SyncClient is the blocking calling convention: every method mirrors a
// Client operation with byte-identical result and error semantics, waiting
// on the same exclusivity primitive, so blocking and suspending callers
// never interleave their protocol exchanges.
//
// SyncClient is a thin adapter over the suspending engine; it holds no
// state of its own.
type SyncClient struct {
	c *Client
}

// Sync returns the blocking facade over the same connection.
func (c *Client) Sync() *SyncClient {
	return &SyncClient{c: c}
}

func (s *SyncClient) ReadFile(p string, w io.Writer) (int64, error) {
	return s.c.ReadFile(context.Background(), p, w)
}

func (s *SyncClient) Open(p string, access Access) (*ReadHandle, error) {
	return s.c.Open(context.Background(), p, access)
}

func (s *SyncClient) WriteFile(p string, r io.Reader, overwrite bool) (*LinkInfo, error) {
	return s.c.WriteFile(context.Background(), p, r, overwrite)
}

func (s *SyncClient) Move(src, dest string, overwrite bool) (*LinkInfo, error) {
	return s.c.Move(context.Background(), src, dest, overwrite)
}

func (s *SyncClient) Delete(p string) error {
	return s.c.Delete(context.Background(), p)
}

func (s *SyncClient) CreateDirectory(p string) (*LinkInfo, error) {
	return s.c.CreateDirectory(context.Background(), p)
}

func (s *SyncClient) DeleteDirectory(p string, recursive bool) error {
	return s.c.DeleteDirectory(context.Background(), p, recursive)
}

func (s *SyncClient) ListDirectory(p string, opts *ListingOptions) ([]*LinkInfo, error) {
	return s.c.ListDirectory(context.Background(), p, opts)
}

func (s *SyncClient) UpdateMetadata(p string, set MetadataSet) (*LinkInfo, error) {
	return s.c.UpdateMetadata(context.Background(), p, set)
}

func (s *SyncClient) Stat(p string) (*LinkInfo, error) {
	return s.c.Stat(context.Background(), p)
}

func (s *SyncClient) HasReadAccess(p string) (bool, error) {
	return s.c.HasReadAccess(context.Background(), p)
}

func (s *SyncClient) HasWriteAccess(p string) (bool, error) {
	return s.c.HasWriteAccess(context.Background(), p)
}

func (s *SyncClient) HashSupport() (HashSupport, error) {
	return s.c.HashSupport(context.Background())
}

// Close disposes the shared facade. Identical to (*Client).Close.
func (s *SyncClient) Close() error {
	return s.c.Close()
}
