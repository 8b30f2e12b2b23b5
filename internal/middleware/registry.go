package middleware

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/multierr"

	"github.com/pickles-http/pickles/internal/logging"
	"github.com/pickles-http/pickles/internal/request"
)

// Middleware observes or decorates a request before its handler runs.
// customHeaders is the mapping given at registration time.
type Middleware interface {
	Handle(req *request.Request, customHeaders map[string]string) error
}

// Func adapts a function to the Middleware interface.
type Func func(req *request.Request, customHeaders map[string]string) error

// Handle makes Func satisfy Middleware.
func (f Func) Handle(req *request.Request, customHeaders map[string]string) error {
	return f(req, customHeaders)
}

// Entry pairs a middleware with the custom headers it was registered with.
type Entry struct {
	Middleware Middleware
	Headers    map[string]string
}

// Registry keeps middlewares in registration order. Registration must finish
// before serving starts.
type Registry struct {
	logger  *logging.Logger
	catcher Middleware
	entries []Entry
}

// NewRegistry returns a registry whose catcher logs through logger.
func NewRegistry(logger *logging.Logger) *Registry {
	return &Registry{
		logger:  logger,
		catcher: Catcher(logger),
	}
}

// Use appends m. A nil customHeaders is stored as an empty map.
func (r *Registry) Use(m Middleware, customHeaders map[string]string) {
	if m == nil {
		return
	}
	headers := make(map[string]string, len(customHeaders))
	for k, v := range customHeaders {
		headers[k] = v
	}
	r.entries = append(r.entries, Entry{Middleware: m, Headers: headers})
}

// Entries returns the registered entries in registration order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Run launches the catcher and every entry concurrently and waits for all of
// them. A failing or panicking middleware is logged and ignored; the combined
// failures are returned for diagnostics only.
func (r *Registry) Run(req *request.Request) error {
	var (
		mu   sync.Mutex
		errs error
	)
	record := func(name string, err error) {
		r.logger.WithFields(logrus.Fields{
			"action":     "middleware",
			"middleware": name,
			"request_id": req.ID,
		}).Error("middleware failed: " + err.Error())

		mu.Lock()
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
		mu.Unlock()
	}

	wg := conc.NewWaitGroup()
	wg.Go(func() {
		invoke("catcher", r.catcher, req, nil, record)
	})
	for i, entry := range r.entries {
		name := fmt.Sprintf("middleware[%d]", i)
		entry := entry
		wg.Go(func() {
			invoke(name, entry.Middleware, req, entry.Headers, record)
		})
	}
	wg.Wait()
	return errs
}

// invoke runs one middleware, turning a panic into a recorded error so it
// never reaches the wait group.
func invoke(name string, m Middleware, req *request.Request, headers map[string]string, record func(string, error)) {
	var pc panics.Catcher
	var err error
	pc.Try(func() {
		err = m.Handle(req, headers)
	})
	if recovered := pc.Recovered(); recovered != nil {
		record(name, recovered.AsError())
		return
	}
	if err != nil {
		record(name, err)
	}
}
