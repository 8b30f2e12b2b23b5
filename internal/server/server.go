package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/pickles-http/pickles/internal/config"
	"github.com/pickles-http/pickles/internal/logging"
	"github.com/pickles-http/pickles/internal/middleware"
	"github.com/pickles-http/pickles/internal/response"
	"github.com/pickles-http/pickles/internal/router"
	"github.com/pickles-http/pickles/internal/transport"
)

// OptionNotFoundMessage replaces the body sent when no route matches.
const OptionNotFoundMessage = "set_default_not_found_message"

// ErrUnknownOption is returned by ChangeServerOption for unrecognized names.
var ErrUnknownOption = errors.New("server: unknown option")

// pending is one accepted connection plus the first chunk read from it.
type pending struct {
	conn *transport.Conn
	raw  []byte
}

// Server owns the listener, the request queue and the worker. All state is
// held per instance; nothing is process-wide.
type Server struct {
	cfg         config.ServerConfig
	logger      *logging.Logger
	router      *router.Router
	middlewares *middleware.Registry
	writer      *response.Writer
	queue       *Queue[pending]

	mu              sync.RWMutex
	notFoundMessage string
}

// New builds a server from cfg. The logger is required.
func New(cfg config.ServerConfig, logger *logging.Logger) (*Server, error) {
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if cfg.QueueCapacity <= 0 {
		return nil, fmt.Errorf("invalid queue capacity: %d", cfg.QueueCapacity)
	}
	if cfg.ReadChunkSize <= 0 {
		return nil, fmt.Errorf("invalid read chunk size: %d", cfg.ReadChunkSize)
	}
	if cfg.BodyReadWait <= 0 {
		cfg.BodyReadWait = config.Duration(time.Second)
	}
	if cfg.BodyReadAttempts <= 0 {
		cfg.BodyReadAttempts = 1
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = config.DefaultMaxBodyBytes
	}
	if cfg.NotFoundStatus == 0 {
		cfg.NotFoundStatus = response.StatusNotFound
	}
	if cfg.NotFoundMessage == "" {
		cfg.NotFoundMessage = config.DefaultNotFoundMessage
	}

	return &Server{
		cfg:             cfg,
		logger:          logger,
		router:          router.New(),
		middlewares:     middleware.NewRegistry(logger),
		writer:          response.NewWriter(logger),
		queue:           NewQueue[pending](cfg.QueueCapacity),
		notFoundMessage: cfg.NotFoundMessage,
	}, nil
}

// AddRoute registers handler for the exact method and path.
func (s *Server) AddRoute(method, path string, handler router.Handler) {
	s.router.AddRoute(method, path, handler)
}

// Use appends a middleware with its custom headers.
func (s *Server) Use(m middleware.Middleware, customHeaders map[string]string) {
	s.middlewares.Use(m, customHeaders)
}

// ChangeServerOption updates a runtime option. Only OptionNotFoundMessage is
// recognized.
func (s *Server) ChangeServerOption(option string, value interface{}) error {
	switch option {
	case OptionNotFoundMessage:
		var msg string
		switch v := value.(type) {
		case string:
			msg = v
		case []byte:
			msg = string(v)
		case fmt.Stringer:
			msg = v.String()
		default:
			return fmt.Errorf("server: option %s expects a string, got %T", option, value)
		}
		s.mu.Lock()
		s.notFoundMessage = msg
		s.mu.Unlock()
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownOption, option)
	}
}

// NotFoundMessage returns the current not-found body.
func (s *Server) NotFoundMessage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.notFoundMessage
}

// Start listens on the configured address and serves until SIGINT or
// SIGTERM.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.ListenAndServe(ctx)
}

// ListenAndServe binds the configured address and serves until ctx is done.
// A bind failure is returned immediately. The logger is closed on return.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := s.cfg.Addr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", addr, err)
	}

	s.logger.WithFields(logrus.Fields{
		"action": "listen",
		"addr":   ln.Addr().String(),
		"routes": strings.Join(s.router.Routes(), ","),
	}).Info(fmt.Sprintf("PicklesServer is running on http://localhost:%d", ln.Addr().(*net.TCPAddr).Port))

	serveErr := s.Serve(ctx, ln)
	return multierr.Append(serveErr, s.logger.Close())
}

// Serve runs the acceptor on ln and the worker until ctx is done. Requests
// still queued at shutdown are closed without a response.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		s.work(ctx)
	}()

	stopListener := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-stopListener:
		}
		_ = ln.Close()
	}()

	err := s.accept(ctx, ln)
	close(stopListener)
	cancel()
	<-workerDone

	for _, item := range s.queue.Drain() {
		_ = item.conn.Close()
	}
	s.logger.WithFields(logrus.Fields{"action": "shutdown"}).Info("server stopped")
	return err
}

// accept is the acceptor loop: read one chunk per connection and enqueue it.
func (s *Server) accept(ctx context.Context, ln net.Listener) error {
	var backoff time.Duration
	for {
		raw, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			backoff = nextBackoff(backoff)
			s.logger.WithFields(logrus.Fields{"action": "accept"}).Warn(fmt.Sprintf("accept failed, retrying in %s: %v", backoff, err))
			select {
			case <-time.After(backoff):
				continue
			case <-ctx.Done():
				return nil
			}
		}
		backoff = 0

		conn := transport.Wrap(raw)
		chunk, ok := s.readFirstChunk(conn)
		if !ok {
			continue
		}
		if err := s.queue.Push(ctx, pending{conn: conn, raw: chunk}); err != nil {
			_ = conn.Close()
			return nil
		}
	}
}

// readFirstChunk reads the bounded initial chunk. A client that disconnects
// or stays silent is logged and dropped without being queued.
func (s *Server) readFirstChunk(conn *transport.Conn) ([]byte, bool) {
	wait := s.cfg.BodyReadWait.DurationValue() * time.Duration(max(s.cfg.BodyReadAttempts, 1))
	if wait > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(wait))
	}
	chunk, err := transport.ReadChunk(conn, s.cfg.ReadChunkSize)
	_ = conn.SetReadDeadline(time.Time{})
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"action": "read_request",
			"remote": conn.RemoteAddr(),
		}).Warn("connection closed before request was read: " + err.Error())
		_ = conn.Close()
		return nil, false
	}
	return chunk, true
}

func nextBackoff(prev time.Duration) time.Duration {
	if prev == 0 {
		return 5 * time.Millisecond
	}
	if next := prev * 2; next < time.Second {
		return next
	}
	return time.Second
}
