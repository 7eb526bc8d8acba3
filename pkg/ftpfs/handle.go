package ftpfs

import (
	"io"
	"sync"
)

// ReadHandle is a live streaming read returned by Open.
//
// The handle holds the facade's exclusivity from Open until Close: closing
// is the only release point. Close first finalizes the protocol exchange
// (draining the transfer-completion reply) and only then surrenders
// exclusivity, so the connection is never handed over mid-exchange. Close
// is idempotent and safe to call from a deferred cleanup even after a
// cancellation elsewhere.
type ReadHandle struct {
	rc    io.ReadCloser
	guard *guard
	path  string

	closeOnce sync.Once
	closeErr  error
}

// Path returns the remote path this handle reads from.
func (h *ReadHandle) Path() string {
	return h.path
}

// Read implements io.Reader.
func (h *ReadHandle) Read(p []byte) (int, error) {
	return h.rc.Read(p)
}

// Close finalizes the exchange and releases the facade for other
// operations.
func (h *ReadHandle) Close() error {
	h.closeOnce.Do(func() {
		h.closeErr = h.rc.Close()
		h.guard.release()
	})
	return h.closeErr
}
