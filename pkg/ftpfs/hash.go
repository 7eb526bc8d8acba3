package ftpfs

import (
	"context"
	"strings"

	"github.com/driftfs/ftpfs/internal/logger"
	"github.com/driftfs/ftpfs/pkg/ftpwire"
)

// HashAlgorithm is the closed set of content-hash algorithms the facade
// understands. Anything else the remote reports maps to HashNone and the
// result is treated as absent.
type HashAlgorithm int

const (
	HashNone HashAlgorithm = iota
	HashSHA1
	HashSHA256
	HashSHA512
	HashMD5
	HashCRC32
)

func (a HashAlgorithm) String() string {
	switch a {
	case HashSHA1:
		return "SHA1"
	case HashSHA256:
		return "SHA256"
	case HashSHA512:
		return "SHA512"
	case HashMD5:
		return "MD5"
	case HashCRC32:
		return "CRC32"
	default:
		return "NONE"
	}
}

// Hash is a resolved content hash.
type Hash struct {
	Algorithm HashAlgorithm
	Value     string
}

// algorithmFromName maps a server-reported algorithm name onto the closed
// set. Matching is case-insensitive and tolerates the dashed RFC names
// ("SHA-256").
func algorithmFromName(name string) HashAlgorithm {
	switch strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(name)), "-", "") {
	case "SHA1":
		return HashSHA1
	case "SHA256":
		return HashSHA256
	case "SHA512":
		return HashSHA512
	case "MD5":
		return HashMD5
	case "CRC32":
		return HashCRC32
	default:
		return HashNone
	}
}

// HashSupport is the result of explicit hash capability negotiation.
type HashSupport struct {
	// ConfirmedUnsupported is true once the remote has rejected the hash
	// command as unrecognized. The flag is facade-wide and irreversible:
	// every later hash request short-circuits to absent without a remote
	// round-trip.
	ConfirmedUnsupported bool
}

// HashSupport reports the current hash capability state. The state is
// shared facade state guarded by the same exclusivity primitive as
// connection access, so the answer is consistent with any exchange that
// completed before the call.
func (c *Client) HashSupport(ctx context.Context) (HashSupport, error) {
	g, err := c.lock.acquire(ctx)
	if err != nil {
		return HashSupport{}, err
	}
	defer g.release()

	return HashSupport{ConfirmedUnsupported: c.hashUnsupported}, nil
}

// resolveHashLocked performs one best-effort hash retrieval. The caller
// must hold the exclusivity guard.
//
// A command-not-recognized reply flips the facade-wide unsupported flag and
// reads as absent; any other failure also reads as absent. Hashing is never
// load-bearing, so nothing here surfaces as an error.
func (c *Client) resolveHashLocked(ctx context.Context, conn ftpwire.Conn, path string) (Hash, bool) {
	if c.hashUnsupported {
		return Hash{}, false
	}

	if err := c.throttle(ctx); err != nil {
		return Hash{}, false
	}

	raw, err := conn.Checksum(ctx, path)
	if err != nil {
		if ftpwire.IsNotImplemented(err) {
			logger.Info("remote does not support content hashing, disabling for this session")
			c.hashUnsupported = true
		} else {
			logger.Debug("hash retrieval for %s failed: %v", path, err)
		}
		return Hash{}, false
	}
	if raw == nil {
		return Hash{}, false
	}

	algorithm := algorithmFromName(raw.Algorithm)
	if algorithm == HashNone {
		logger.Debug("remote reported unknown hash algorithm %q for %s", raw.Algorithm, path)
		return Hash{}, false
	}

	return Hash{Algorithm: algorithm, Value: raw.Value}, true
}
