package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/panics"

	"github.com/pickles-http/pickles/internal/logging"
	"github.com/pickles-http/pickles/internal/request"
	"github.com/pickles-http/pickles/internal/response"
	"github.com/pickles-http/pickles/internal/router"
	"github.com/pickles-http/pickles/internal/transport"
)

// work is the single worker: one request at a time, in queue order.
func (s *Server) work(ctx context.Context) {
	for {
		item, ok := s.queue.Pop(ctx)
		if !ok {
			return
		}
		s.process(item)
	}
}

// process carries one connection from parsing to close. Nothing that happens
// here may stop the worker.
func (s *Server) process(item pending) {
	var pc panics.Catcher
	pc.Try(func() { s.dispatch(item) })
	if recovered := pc.Recovered(); recovered != nil {
		s.fail(item.conn, nil, logrus.Fields{"action": "dispatch"}, recovered.AsError())
	}
	// every exit path leaves the connection closed
	_ = item.conn.Close()
}

func (s *Server) dispatch(item pending) {
	req, err := request.Parse(item.conn, item.raw, request.Options{
		ReadChunkSize:    s.cfg.ReadChunkSize,
		BodyReadWait:     s.cfg.BodyReadWait.DurationValue(),
		BodyReadAttempts: s.cfg.BodyReadAttempts,
		MaxBodyBytes:     s.cfg.MaxBodyBytes,
		Writer:           s.writer,
	})
	if err != nil {
		s.rejectMalformed(item.conn, err)
		return
	}

	fields := logging.RequestFields(req.ID, req.Method, req.Path)
	handler, found := s.router.Route(req.Method, req.Path)

	if err := s.middlewares.Run(req); err != nil {
		s.logger.WithFields(fields).Debug("middleware chain finished with failures: " + err.Error())
	}

	if found && !req.Responded() {
		s.handle(req, handler, fields)
		return
	}
	s.notFound(req)
}

// handle invokes the matched handler. Returned errors and panics become a
// 500 response; a handler that never responds gets its connection closed.
func (s *Server) handle(req *request.Request, handler router.Handler, fields logrus.Fields) {
	var (
		pc  panics.Catcher
		err error
	)
	pc.Try(func() { err = handler.Handle(req) })
	if recovered := pc.Recovered(); recovered != nil {
		err = recovered.AsError()
	}
	if err != nil {
		s.fail(req.Conn, req.ResponseHeaders, fields, err)
		return
	}
	if !req.Responded() {
		s.logger.WithFields(fields).Warn("handler returned without sending a response")
		_ = req.Conn.Close()
	}
}

func (s *Server) notFound(req *request.Request) {
	_ = req.Send([]byte(s.NotFoundMessage()), response.Descriptor{Status: s.cfg.NotFoundStatus})
}

func (s *Server) rejectMalformed(conn *transport.Conn, err error) {
	var parseErr request.ParseError
	if !errors.As(err, &parseErr) {
		s.fail(conn, nil, logrus.Fields{"action": "parse"}, err)
		return
	}
	s.logger.WithFields(logrus.Fields{
		"action": "parse",
		"remote": conn.RemoteAddr(),
	}).Warn(parseErr.Error())
	_ = s.writer.Send(conn, []byte("Bad Request"), response.Descriptor{Status: response.StatusBadRequest})
}

// fail logs at ERROR and answers 500 when the connection is still open.
// staged carries the headers middlewares prepared, nil before parsing.
func (s *Server) fail(conn *transport.Conn, staged *response.Headers, fields logrus.Fields, err error) {
	s.logger.WithFields(fields).Error(fmt.Sprintf("Error handling request: %v", err))
	if !conn.Closed() {
		_ = s.writer.Send(conn, []byte("Internal Server Error"), response.Descriptor{
			Status:  response.StatusInternalServerError,
			Headers: staged,
		})
	}
	_ = conn.Close()
}
