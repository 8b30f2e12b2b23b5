package middleware

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pickles-http/pickles/internal/config"
	"github.com/pickles-http/pickles/internal/logging"
	"github.com/pickles-http/pickles/internal/request"
	"github.com/pickles-http/pickles/internal/response"
)

// syncBuffer guards log output written from concurrent middleware goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestRegistry(t *testing.T) (*Registry, *syncBuffer) {
	t.Helper()
	logs := &syncBuffer{}
	logger, err := logging.NewWithWriter(config.LogConfig{LogLevel: "debug"}, logs)
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return NewRegistry(logger), logs
}

func newRequest(method, path string) *request.Request {
	return &request.Request{
		ID:              "req-1",
		Method:          method,
		Path:            path,
		Headers:         map[string]string{},
		ResponseHeaders: response.NewHeaders(),
	}
}

func TestCatcherAlwaysLogs(t *testing.T) {
	registry, logs := newTestRegistry(t)

	if err := registry.Run(newRequest("GET", "/")); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(logs.String(), "[INFO] [GET] - /") {
		t.Fatalf("catcher line missing: %q", logs.String())
	}
}

func TestRunWaitsForEveryMiddleware(t *testing.T) {
	registry, _ := newTestRegistry(t)
	var done atomic.Int32
	for i := 0; i < 5; i++ {
		delay := time.Duration(i*10) * time.Millisecond
		registry.Use(Func(func(*request.Request, map[string]string) error {
			time.Sleep(delay)
			done.Add(1)
			return nil
		}), nil)
	}

	_ = registry.Run(newRequest("GET", "/"))
	if got := done.Load(); got != 5 {
		t.Fatalf("Run returned before all middlewares finished: %d/5", got)
	}
}

func TestRunStartsMiddlewaresConcurrently(t *testing.T) {
	registry, _ := newTestRegistry(t)
	const n = 4
	var arrived sync.WaitGroup
	arrived.Add(n)
	allArrived := make(chan struct{})
	go func() {
		arrived.Wait()
		close(allArrived)
	}()

	for i := 0; i < n; i++ {
		registry.Use(Func(func(*request.Request, map[string]string) error {
			arrived.Done()
			select {
			case <-allArrived:
				return nil
			case <-time.After(2 * time.Second):
				return errors.New("middlewares did not overlap")
			}
		}), nil)
	}

	if err := registry.Run(newRequest("GET", "/")); err != nil {
		t.Fatalf("every middleware should be running at the same time: %v", err)
	}
}

func TestFailingMiddlewareIsIsolated(t *testing.T) {
	registry, logs := newTestRegistry(t)
	registry.Use(Func(func(*request.Request, map[string]string) error {
		panic("boom")
	}), nil)
	registry.Use(Func(func(*request.Request, map[string]string) error {
		return errors.New("nope")
	}), nil)
	registry.Use(CORS(), nil)

	req := newRequest("GET", "/")
	err := registry.Run(req)
	if err == nil {
		t.Fatalf("expected combined failure")
	}
	if !strings.Contains(err.Error(), "boom") || !strings.Contains(err.Error(), "nope") {
		t.Fatalf("combined error should mention both failures: %v", err)
	}
	out := logs.String()
	if !strings.Contains(out, "[INFO] [GET] - /") {
		t.Fatalf("catcher should still log: %q", out)
	}
	if strings.Count(out, "[ERROR] middleware failed") != 2 {
		t.Fatalf("each failure should be logged once: %q", out)
	}
	if _, ok := req.ResponseHeaders.Get("Access-Control-Allow-Origin"); !ok {
		t.Fatalf("healthy middleware should still contribute")
	}
}

func TestCORSDefaults(t *testing.T) {
	registry, _ := newTestRegistry(t)
	registry.Use(CORS(), nil)

	req := newRequest("OPTIONS", "/")
	_ = registry.Run(req)

	want := []string{
		"Access-Control-Allow-Origin: *",
		"Access-Control-Allow-Methods: GET, POST, PUT, DELETE, OPTIONS",
		"Access-Control-Allow-Headers: Content-Type, Authorization",
		"Access-Control-Max-Age: 86400",
	}
	got := req.ResponseHeaders.Lines()
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected CORS headers:\n%v\nwant\n%v", got, want)
	}
}

func TestCORSOverrideWins(t *testing.T) {
	registry, _ := newTestRegistry(t)
	registry.Use(CORS(), map[string]string{
		"access-control-allow-origin": "https://x.test",
		"Vary":                        "Origin",
	})

	req := newRequest("GET", "/")
	_ = registry.Run(req)

	if v, _ := req.ResponseHeaders.Get("Access-Control-Allow-Origin"); v != "https://x.test" {
		t.Fatalf("override should win, got %q", v)
	}
	for key, value := range DefaultCORSHeaders() {
		if key == "Access-Control-Allow-Origin" {
			continue
		}
		if v, _ := req.ResponseHeaders.Get(key); v != value {
			t.Fatalf("default %s should remain %q, got %q", key, value, v)
		}
	}
	if v, _ := req.ResponseHeaders.Get("Vary"); v != "Origin" {
		t.Fatalf("extra custom header should be staged, got %q", v)
	}
	if req.ResponseHeaders.Len() != 5 {
		t.Fatalf("expected 5 staged headers, got %v", req.ResponseHeaders.Lines())
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	registry, _ := newTestRegistry(t)
	registry.Use(RequestID(), nil)

	req := newRequest("GET", "/")
	_ = registry.Run(req)
	if v, _ := req.ResponseHeaders.Get("X-Request-ID"); v != "req-1" {
		t.Fatalf("X-Request-ID should carry the request id, got %q", v)
	}
}

func TestUseKeepsOrderAndCopiesHeaders(t *testing.T) {
	registry, _ := newTestRegistry(t)
	custom := map[string]string{"A": "1"}
	registry.Use(CORS(), custom)
	registry.Use(RequestID(), nil)
	registry.Use(nil, nil)
	custom["A"] = "changed"

	entries := registry.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Headers["A"] != "1" {
		t.Fatalf("registration should copy custom headers")
	}
	if entries[1].Headers == nil {
		t.Fatalf("nil custom headers should become an empty map")
	}
}
