package transport

import (
	"errors"
	"net"
	"strings"
	"syscall"
	"testing"
	"time"
)

func TestCloseIsIdempotent(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	c := Wrap(server)
	if c.Closed() {
		t.Fatalf("fresh conn reported closed")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second close should be a no-op, got %v", err)
	}
	if !c.Closed() {
		t.Fatalf("conn should report closed")
	}
	if _, err := c.Write([]byte("x")); !errors.Is(err, net.ErrClosed) {
		t.Fatalf("write after close: expected net.ErrClosed, got %v", err)
	}
}

func TestReadChunkReturnsAvailableBytes(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	c := Wrap(server)
	defer c.Close()

	go func() { _, _ = client.Write([]byte("GET / HTTP/1.1\r\n\r\n")) }()

	raw, err := ReadChunk(c, 4096)
	if err != nil {
		t.Fatalf("ReadChunk: %v", err)
	}
	if string(raw) != "GET / HTTP/1.1\r\n\r\n" {
		t.Fatalf("unexpected chunk %q", raw)
	}
}

func TestReadChunkFailsOnEarlyClose(t *testing.T) {
	client, server := net.Pipe()
	c := Wrap(server)
	defer c.Close()

	_ = client.Close()
	if _, err := ReadChunk(c, 16); err == nil {
		t.Fatalf("expected error when peer closes before sending")
	}
}

func TestReadMoreCollectsSplitWrites(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	c := Wrap(server)
	defer c.Close()

	go func() {
		_, _ = client.Write([]byte("hel"))
		time.Sleep(20 * time.Millisecond)
		_, _ = client.Write([]byte("lo"))
	}()

	got, err := ReadMore(c, 5, time.Second, 3)
	if err != nil {
		t.Fatalf("ReadMore: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("expected hello, got %q", got)
	}
}

func TestReadMoreGivesUpAfterAttempts(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	c := Wrap(server)
	defer c.Close()

	start := time.Now()
	_, err := ReadMore(c, 4, 10*time.Millisecond, 3)
	if !errors.Is(err, ErrReadTimeout) {
		t.Fatalf("expected ErrReadTimeout, got %v", err)
	}
	if time.Since(start) < 30*time.Millisecond {
		t.Fatalf("expected three waits before giving up")
	}
}

func TestReadMoreLargeNeedReadsOnlyWhatArrives(t *testing.T) {
	client, server := net.Pipe()
	c := Wrap(server)
	defer c.Close()

	go func() {
		_, _ = client.Write([]byte("abc"))
		_ = client.Close()
	}()

	got, err := ReadMore(c, 1<<30, time.Second, 2)
	if err == nil {
		t.Fatalf("expected an error when the peer closes early")
	}
	if string(got) != "abc" {
		t.Fatalf("expected the bytes received so far, got %q", got)
	}
}

func TestReadUntilJoinsSegments(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	c := Wrap(server)
	defer c.Close()

	go func() {
		_, _ = client.Write([]byte("Host: a\r\n"))
		time.Sleep(20 * time.Millisecond)
		_, _ = client.Write([]byte("\r\nbody"))
	}()

	got, err := ReadUntil(c, []byte("GET / HTTP/1.1\r\n"), []byte("\r\n\r\n"), 8, 1024, time.Second, 3)
	if err != nil {
		t.Fatalf("ReadUntil: %v", err)
	}
	if !strings.HasPrefix(string(got), "GET / HTTP/1.1\r\nHost: a\r\n\r\n") {
		t.Fatalf("unexpected bytes %q", got)
	}
}

func TestReadUntilStopsAtLimit(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	c := Wrap(server)
	defer c.Close()

	go func() { _, _ = client.Write([]byte(strings.Repeat("x", 100))) }()

	got, err := ReadUntil(c, nil, []byte("\r\n\r\n"), 16, 32, time.Second, 3)
	if !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("expected ErrLimitExceeded, got %v", err)
	}
	if len(got) != 32 {
		t.Fatalf("should read exactly up to the limit, got %d bytes", len(got))
	}
}

func TestReadUntilTimesOut(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	c := Wrap(server)
	defer c.Close()

	got, err := ReadUntil(c, []byte("GET / HTTP/1.1\r\n"), []byte("\r\n\r\n"), 16, 1024, 10*time.Millisecond, 2)
	if !errors.Is(err, ErrReadTimeout) {
		t.Fatalf("expected ErrReadTimeout, got %v", err)
	}
	if string(got) != "GET / HTTP/1.1\r\n" {
		t.Fatalf("received bytes should be kept, got %q", got)
	}
}

func TestIsBrokenPipe(t *testing.T) {
	if !IsBrokenPipe(&net.OpError{Op: "write", Err: syscall.EPIPE}) {
		t.Fatalf("EPIPE should be a broken pipe")
	}
	if !IsBrokenPipe(syscall.ECONNRESET) {
		t.Fatalf("ECONNRESET should be a broken pipe")
	}
	if IsBrokenPipe(errors.New("disk full")) {
		t.Fatalf("unrelated error misclassified")
	}
}
