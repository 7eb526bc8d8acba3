package ftpfs

import (
	"context"

	"github.com/driftfs/ftpfs/internal/logger"
	"github.com/driftfs/ftpfs/pkg/ftpwire"
)

// preparedLocked returns a connected, ready-to-use session, dialing lazily
// on first use and redialing when the current session reports itself
// disconnected. The caller must hold the exclusivity guard.
//
// Dial failures surface as ErrConnection and are not retried here: the
// dialer owns the endpoint's configured attempt count.
func (c *Client) preparedLocked(ctx context.Context) (ftpwire.Conn, error) {
	if c.closed {
		return nil, &Error{Code: ErrClosed, Message: "client is closed"}
	}

	if c.conn != nil {
		if c.conn.IsConnected() {
			return c.conn, nil
		}
		logger.Info("connection lost, reconnecting")
		_ = c.conn.Quit()
		c.conn = nil
	}

	conn, err := c.dialer.Dial(ctx)
	if err != nil {
		return nil, connErr("cannot establish connection", err)
	}

	c.conn = conn
	return conn, nil
}

// begin acquires the exclusivity guard and a prepared session. On success
// the caller owns the guard and must release it on every exit path.
func (c *Client) begin(ctx context.Context) (*guard, ftpwire.Conn, error) {
	g, err := c.lock.acquire(ctx)
	if err != nil {
		return nil, nil, err
	}

	conn, err := c.preparedLocked(ctx)
	if err != nil {
		g.release()
		return nil, nil, err
	}
	return g, conn, nil
}

// Close disposes the facade: the underlying session, if one was ever
// created, is terminated exactly once. Close blocks until any in-flight
// operation releases the connection, and is idempotent; operations issued
// after Close fail with ErrClosed.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		g, _ := c.lock.acquire(context.Background())
		c.closed = true
		if c.conn != nil {
			c.closeErr = c.conn.Quit()
			c.conn = nil
		}
		g.release()
	})
	return c.closeErr
}
