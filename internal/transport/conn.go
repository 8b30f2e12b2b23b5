package transport

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// Conn wraps a client connection accepted by the server. Writes are
// serialized by a single mutex and Close is idempotent, so every code path
// may close defensively without double-closing the socket.
type Conn struct {
	raw    net.Conn
	mu     sync.Mutex
	closed atomic.Bool
}

// Wrap takes ownership of c.
func Wrap(c net.Conn) *Conn {
	return &Conn{raw: c}
}

// Write writes p under the connection's write mutex. Writing to a closed
// connection returns net.ErrClosed.
func (c *Conn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return 0, net.ErrClosed
	}
	return c.raw.Write(p)
}

// Read reads directly from the underlying connection.
func (c *Conn) Read(p []byte) (int, error) {
	return c.raw.Read(p)
}

// Closed reports whether Close has been called.
func (c *Conn) Closed() bool {
	return c.closed.Load()
}

// Close closes the underlying connection once. Later calls return nil.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Swap(true) {
		return nil
	}
	return c.raw.Close()
}

// RemoteAddr returns the peer address, or "" when unknown.
func (c *Conn) RemoteAddr() string {
	if addr := c.raw.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

// SetReadDeadline forwards to the underlying connection.
func (c *Conn) SetReadDeadline(t time.Time) error {
	return c.raw.SetReadDeadline(t)
}

// IsBrokenPipe reports whether err means the peer went away while we were
// writing.
func IsBrokenPipe(err error) bool {
	return errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, net.ErrClosed)
}
