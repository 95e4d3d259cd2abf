// Package server exposes one engine instance over the RESP protocol.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/tidwall/redcon"

	"github.com/mockredis/mockredis/internal/engine"
	"github.com/mockredis/mockredis/internal/protocol"
	"github.com/mockredis/mockredis/internal/reply"
)

// Server accepts RESP connections and runs their commands against a single
// engine instance. Every command, from any connection, holds one mutex, so
// the instance sees a single thread of control.
type Server struct {
	addr string

	mu sync.Mutex // guards in
	in *engine.Instance

	lmu      sync.Mutex
	listener net.Listener
	srv      *redcon.Server
	closed   bool

	connCount atomic.Int64
}

// New creates a Server that will listen on addr.
func New(addr string, in *engine.Instance) *Server {
	return &Server{addr: addr, in: in}
}

// Exec runs one command under the instance lock.
func (s *Server) Exec(name string, args ...string) (reply.Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.in.Do(name, args...)
}

// Stats reports instance statistics under the instance lock.
func (s *Server) Stats() engine.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.in.Stats()
}

// Clients returns the number of open connections.
func (s *Server) Clients() int64 { return s.connCount.Load() }

// Listen binds the listening socket.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("server: failed to listen: %w", err)
	}
	s.lmu.Lock()
	s.listener = ln
	s.srv = redcon.NewServer(s.addr, s.handleCommand, s.handleAccept, s.handleClose)
	s.lmu.Unlock()
	return nil
}

// Serve handles connections until ctx is cancelled or Close is called.
// Listen must have succeeded first.
func (s *Server) Serve(ctx context.Context) error {
	s.lmu.Lock()
	ln, srv := s.listener, s.srv
	s.lmu.Unlock()
	if srv == nil {
		return errors.New("server: not listening")
	}

	go func() {
		<-ctx.Done()
		s.Close()
	}()

	log.Printf("server: listening on %s", ln.Addr())
	err := srv.Serve(ln)

	s.lmu.Lock()
	closed := s.closed
	s.lmu.Unlock()
	if closed {
		return nil
	}
	return fmt.Errorf("server: serve: %w", err)
}

// Start listens and serves. It blocks until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Close stops accepting connections and closes open ones. The engine
// instance is left to its owner.
func (s *Server) Close() error {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	if s.closed || s.srv == nil {
		return nil
	}
	s.closed = true
	return s.srv.Close()
}

func (s *Server) handleAccept(conn redcon.Conn) bool {
	s.connCount.Add(1)
	return true
}

func (s *Server) handleClose(conn redcon.Conn, err error) {
	s.connCount.Add(-1)
	if err != nil && !errors.Is(err, io.EOF) {
		log.Printf("server: connection %s closed: %v", conn.RemoteAddr(), err)
	}
}

func (s *Server) handleCommand(conn redcon.Conn, cmd redcon.Command) {
	if !s.execute(conn, cmd) {
		return
	}
	for _, p := range conn.ReadPipeline() {
		if !s.execute(conn, p) {
			return
		}
	}
}

// execute runs one command and writes its reply. It reports false once
// the connection should be closed.
func (s *Server) execute(conn redcon.Conn, cmd redcon.Command) bool {
	if len(cmd.Args) == 0 {
		conn.WriteError("ERR empty command")
		return true
	}
	name := string(cmd.Args[0])
	args := make([]string, len(cmd.Args)-1)
	for i, a := range cmd.Args[1:] {
		args[i] = string(a)
	}

	r, err := s.Exec(name, args...)
	if err != nil {
		conn.WriteRaw(protocol.AppendError(nil, err))
	} else {
		conn.WriteRaw(protocol.AppendReply(nil, r))
	}

	if strings.EqualFold(name, "quit") {
		conn.Close()
		return false
	}
	return true
}
