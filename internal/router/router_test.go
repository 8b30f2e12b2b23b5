package router

import (
	"testing"

	"github.com/pickles-http/pickles/internal/request"
)

type namedHandler string

func (namedHandler) Handle(*request.Request) error { return nil }

func TestRouteIgnoresMethodCase(t *testing.T) {
	r := New()
	r.AddRoute("get", "/", namedHandler("home"))

	for _, method := range []string{"GET", "get", "Get"} {
		h, ok := r.Route(method, "/")
		if !ok {
			t.Fatalf("expected route for %s /", method)
		}
		if h != namedHandler("home") {
			t.Fatalf("wrong handler for %s: %v", method, h)
		}
	}
}

func TestRoutePathIsExactAndCaseSensitive(t *testing.T) {
	r := New()
	r.AddRoute("GET", "/users", namedHandler("users"))

	for _, path := range []string{"/Users", "/users/", "/users/1", "/user", ""} {
		if _, ok := r.Route("GET", path); ok {
			t.Fatalf("path %q should not match /users", path)
		}
	}
	if _, ok := r.Route("POST", "/users"); ok {
		t.Fatalf("method mismatch should not match")
	}
}

func TestAddRouteOverwrites(t *testing.T) {
	r := New()
	r.AddRoute("POST", "/post", namedHandler("first"))
	r.AddRoute("post", "/post", namedHandler("second"))

	h, ok := r.Route("POST", "/post")
	if !ok || h != namedHandler("second") {
		t.Fatalf("expected overwritten handler, got %v", h)
	}
	if got := r.Routes(); len(got) != 1 || got[0] != "POST /post" {
		t.Fatalf("router should hold a single entry, got %v", got)
	}
}

func TestCustomMethodsAreAccepted(t *testing.T) {
	r := New()
	r.AddRoute("purge", "/cache", HandlerFunc(func(*request.Request) error { return nil }))
	if _, ok := r.Route("PURGE", "/cache"); !ok {
		t.Fatalf("custom method should round-trip")
	}
}

func TestNilHandlerIgnored(t *testing.T) {
	r := New()
	r.AddRoute("GET", "/", nil)
	if _, ok := r.Route("GET", "/"); ok {
		t.Fatalf("nil handler should not be registered")
	}
}

func TestRouteOnEmptyRouter(t *testing.T) {
	var r *Router
	if _, ok := r.Route("GET", "/"); ok {
		t.Fatalf("nil router should not match")
	}
	if _, ok := New().Route("GET", "/"); ok {
		t.Fatalf("empty router should not match")
	}
}
