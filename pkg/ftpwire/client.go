package ftpwire

import (
	"context"
	"fmt"
	"io"
	"net"
	"path"
	"strconv"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/driftfs/ftpfs/internal/logger"
)

// Endpoint describes one remote FTP endpoint. It is immutable after
// construction and owned by the dialer.
type Endpoint struct {
	Host     string
	Port     int
	User     string
	Password string

	// DisableUTF8 skips UTF-8 negotiation for servers that mishandle it.
	DisableUTF8 bool

	// DisableEPSV forces classic PASV for the data channel.
	DisableEPSV bool

	// ConnectTimeout bounds the control-connection dial. Zero means the
	// transport default.
	ConnectTimeout time.Duration

	// RetryAttempts is the number of additional dial attempts after a
	// refused connection. Zero means a single attempt.
	RetryAttempts int
}

func (e Endpoint) addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// NetDialer dials real FTP sessions over TCP.
type NetDialer struct {
	endpoint Endpoint
}

// NewDialer creates a dialer for the given endpoint.
func NewDialer(endpoint Endpoint) *NetDialer {
	return &NetDialer{endpoint: endpoint}
}

// Dial connects and authenticates, retrying up to the endpoint's configured
// attempt count. The last failure is returned when all attempts fail.
func (d *NetDialer) Dial(ctx context.Context) (Conn, error) {
	attempts := d.endpoint.RetryAttempts + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		conn, err := d.dialOnce(ctx)
		if err == nil {
			return conn, nil
		}

		lastErr = err
		logger.Debug("ftpwire: dial %s attempt %d/%d failed: %v", d.endpoint.addr(), attempt, attempts, err)
	}

	return nil, fmt.Errorf("dial %s: %w", d.endpoint.addr(), lastErr)
}

func (d *NetDialer) dialOnce(ctx context.Context) (Conn, error) {
	opts := []ftp.DialOption{ftp.DialWithContext(ctx)}
	if d.endpoint.ConnectTimeout > 0 {
		opts = append(opts, ftp.DialWithTimeout(d.endpoint.ConnectTimeout))
	}
	if d.endpoint.DisableEPSV {
		opts = append(opts, ftp.DialWithDisabledEPSV(true))
	}
	if d.endpoint.DisableUTF8 {
		opts = append(opts, ftp.DialWithDisabledUTF8(true))
	}

	c, err := ftp.Dial(d.endpoint.addr(), opts...)
	if err != nil {
		return nil, err
	}

	if err := c.Login(d.endpoint.User, d.endpoint.Password); err != nil {
		_ = c.Quit()
		return nil, fmt.Errorf("login as %q: %w", d.endpoint.User, err)
	}

	return &serverConn{conn: c, alive: true, mlst: true}, nil
}

// serverConn adapts a jlaffaye/ftp session to the Conn boundary.
//
// Liveness is tracked locally: any transport-level failure (as opposed to a
// protocol reply) marks the session dead, and IsConnected answers from that
// flag without a remote round-trip.
type serverConn struct {
	conn  *ftp.ServerConn
	alive bool

	// mlst starts optimistic and is flipped off the first time the server
	// rejects a single-entry listing as unimplemented.
	mlst bool
}

// fail records transport-level failures. Protocol replies (550 and friends)
// leave the session usable.
func (s *serverConn) fail(err error) error {
	if err != nil && !IsProtocolError(err) {
		s.alive = false
	}
	return err
}

func (s *serverConn) IsConnected() bool {
	return s.alive
}

func (s *serverConn) OpenRead(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := s.conn.Retr(p)
	if err != nil {
		return nil, s.fail(err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = resp.SetDeadline(deadline)
	}

	return &finalizedReader{resp: resp, owner: s}, nil
}

// finalizedReader finalizes the data-channel exchange on Close by draining
// the transfer-complete reply from the control connection.
type finalizedReader struct {
	resp  *ftp.Response
	owner *serverConn
}

func (r *finalizedReader) Read(p []byte) (int, error) {
	return r.resp.Read(p)
}

func (r *finalizedReader) Close() error {
	return r.owner.fail(r.resp.Close())
}

func (s *serverConn) Store(ctx context.Context, p string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.fail(s.conn.Stor(p, r))
}

func (s *serverConn) RenameFile(ctx context.Context, from, to string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.fail(s.conn.Rename(from, to))
}

func (s *serverConn) RenameDir(ctx context.Context, from, to string) error {
	// RNFR/RNTO moves directories the same way it moves files.
	return s.RenameFile(ctx, from, to)
}

func (s *serverConn) DeleteFile(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.fail(s.conn.Delete(p))
}

func (s *serverConn) MakeDir(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.fail(s.conn.MakeDir(p))
}

func (s *serverConn) RemoveDir(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.fail(s.conn.RemoveDir(p))
}

func (s *serverConn) RemoveDirRecursive(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.fail(s.conn.RemoveDirRecur(p))
}

func (s *serverConn) List(ctx context.Context, p string, recursive bool) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Server-side recursion is not offered by this transport; callers see
	// that through HasFeature(FeatureRecursiveList) and fall back to a
	// single level.
	raw, err := s.conn.List(p)
	if err != nil {
		return nil, s.fail(err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, e := range raw {
		if e.Name == "." || e.Name == ".." {
			continue
		}
		entries = append(entries, convertEntry(e))
	}
	return entries, nil
}

func (s *serverConn) GetInfo(ctx context.Context, p string) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.mlst {
		e, err := s.conn.GetEntry(p)
		switch {
		case err == nil:
			entry := convertEntry(e)
			return &entry, nil
		case IsNotImplemented(err):
			s.mlst = false
		case IsUnavailable(err):
			return nil, nil
		default:
			return nil, s.fail(err)
		}
	}

	return s.infoFromList(ctx, p)
}

// infoFromList resolves a single entry by listing the parent directory and
// matching the trailing name. Used when the server lacks MLST.
func (s *serverConn) infoFromList(ctx context.Context, p string) (*Entry, error) {
	name := path.Base(p)
	if name == "/" || name == "." {
		// The root has no parent to list; the facade synthesizes root
		// metadata itself.
		return nil, nil
	}

	entries, err := s.List(ctx, path.Dir(p), false)
	if err != nil {
		if IsUnavailable(err) {
			return nil, nil
		}
		return nil, err
	}

	for i := range entries {
		if entries[i].Name == name {
			return &entries[i], nil
		}
	}
	return nil, nil
}

func (s *serverConn) SetModTime(ctx context.Context, p string, t time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.conn.IsSetTimeSupported() {
		return NotImplementedError("MFMT not supported by server")
	}
	return s.fail(s.conn.SetTime(p, t))
}

// Checksum always reports command-not-recognized: the underlying transport
// client has no way to issue HASH/XCRC commands. Callers degrade to "no
// hash available", which is the contract for servers without the feature.
func (s *serverConn) Checksum(ctx context.Context, p string) (*RawChecksum, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, NotImplementedError("HASH not supported by transport client")
}

func (s *serverConn) HasFeature(f Feature) bool {
	switch f {
	case FeatureMLST:
		return s.mlst
	case FeatureSetTime:
		return s.conn.IsSetTimeSupported()
	case FeatureRecursiveList:
		return false
	case FeatureHash:
		return false
	default:
		return false
	}
}

func (s *serverConn) Quit() error {
	s.alive = false
	return s.conn.Quit()
}

func convertEntry(e *ftp.Entry) Entry {
	out := Entry{
		Name:    e.Name,
		Size:    e.Size,
		ModTime: e.Time,
		Target:  e.Target,
	}

	switch e.Type {
	case ftp.EntryTypeFolder:
		out.Type = EntryTypeDir
	case ftp.EntryTypeLink:
		out.Type = EntryTypeLink
	default:
		out.Type = EntryTypeFile
	}

	// The transport's listing parser does not surface permission bits, so
	// OwnerMode stays zero and the synthesizer applies its permission
	// policy default.
	return out
}
