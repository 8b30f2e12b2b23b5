package transport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

// ErrReadTimeout is returned by ReadMore and ReadUntil when every attempt
// timed out before enough bytes arrived.
var ErrReadTimeout = errors.New("transport: read attempts exhausted")

// ErrLimitExceeded is returned by ReadUntil when limit bytes arrived without
// the delimiter.
var ErrLimitExceeded = errors.New("transport: read limit exceeded")

// maxReadStep bounds a single read so buffers grow with the bytes actually
// received, never with what the peer announced.
const maxReadStep = 32 << 10

// ReadChunk performs the single bounded read done right after accept.
func ReadChunk(c *Conn, size int) ([]byte, error) {
	buf := make([]byte, size)
	n, err := c.Read(buf)
	if n > 0 {
		return buf[:n], nil
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return nil, err
}

// ReadMore reads until need extra bytes have been received. Each attempt
// waits at most wait for the socket to become readable; a timed-out attempt
// is retried until attempts run out. EOF before need bytes is an error.
func ReadMore(c *Conn, need int, wait time.Duration, attempts int) ([]byte, error) {
	if need <= 0 {
		return nil, nil
	}
	defer func() { _ = c.SetReadDeadline(time.Time{}) }()

	var out []byte
	buf := make([]byte, min(need, maxReadStep))
	misses := 0
	for len(out) < need {
		if err := c.SetReadDeadline(time.Now().Add(wait)); err != nil {
			return out, fmt.Errorf("transport: set deadline: %w", err)
		}
		n, err := c.Read(buf[:min(len(buf), need-len(out))])
		out = append(out, buf[:n]...)
		if err == nil {
			continue
		}
		if isTimeout(err) {
			misses++
			if misses >= attempts {
				return out, ErrReadTimeout
			}
			continue
		}
		if errors.Is(err, io.EOF) && len(out) >= need {
			break
		}
		return out, err
	}
	return out, nil
}

// ReadUntil appends to have, step bytes at a time, until delim appears.
// Timeouts are retried like ReadMore. Once limit bytes are held without
// delim it gives up with ErrLimitExceeded. The bytes read so far are always
// returned.
func ReadUntil(c *Conn, have, delim []byte, step, limit int, wait time.Duration, attempts int) ([]byte, error) {
	if step <= 0 || step > maxReadStep {
		step = maxReadStep
	}
	defer func() { _ = c.SetReadDeadline(time.Time{}) }()

	out := append([]byte(nil), have...)
	buf := make([]byte, step)
	misses := 0
	for !bytes.Contains(out, delim) {
		if len(out) >= limit {
			return out, ErrLimitExceeded
		}
		if err := c.SetReadDeadline(time.Now().Add(wait)); err != nil {
			return out, fmt.Errorf("transport: set deadline: %w", err)
		}
		n, err := c.Read(buf[:min(step, limit-len(out))])
		out = append(out, buf[:n]...)
		if err == nil {
			continue
		}
		if isTimeout(err) {
			misses++
			if misses >= attempts {
				return out, ErrReadTimeout
			}
			continue
		}
		if bytes.Contains(out, delim) {
			break
		}
		return out, err
	}
	return out, nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
