// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/NVIDIA/gpu-diagd/pkg/diagmsg"
)

// MessageProcessor handles one decoded command and always produces a reply.
type MessageProcessor interface {
	ProcessMessage(ctx context.Context, cmd *diagmsg.Command) *diagmsg.Reply
}

// Option configures a Server.
type Option func(*Server)

// WithName sets the server identity reported by the health endpoints.
func WithName(name string) Option {
	return func(s *Server) { s.cfg.Name = name }
}

// WithVersion sets the server version reported by the health endpoints.
func WithVersion(version string) Option {
	return func(s *Server) { s.cfg.Version = version }
}

// WithConfig replaces the default configuration.
func WithConfig(cfg *Config) Option {
	return func(s *Server) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Server is the daemon's command socket listener plus its observability
// sidecar.
type Server struct {
	cfg       *Config
	processor MessageProcessor
	logger    *slog.Logger

	mu       sync.RWMutex
	ready    bool
	listener net.Listener

	conns sync.WaitGroup
}

// New creates a Server around the given processor with the provided options.
func New(processor MessageProcessor, opts ...Option) *Server {
	s := &Server{
		cfg:       NewConfig(),
		processor: processor,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ready reports whether the command socket is accepting connections.
func (s *Server) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Addr returns the command socket address, or nil before Run has opened it.
// With "tcp" and port 0 this is how callers learn the assigned port.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Run opens the command socket and the sidecar and blocks until the context
// is cancelled or SIGINT/SIGTERM arrives. Both listeners shut down together.
func (s *Server) Run(ctx context.Context) error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if s.cfg.ListenNetwork == "unix" {
		// A stale socket from an unclean exit blocks the bind.
		if err := os.Remove(s.cfg.ListenAddress); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	ln, err := net.Listen(s.cfg.ListenNetwork, s.cfg.ListenAddress)
	if err != nil {
		return err
	}

	sidecar := s.newSidecar()

	s.mu.Lock()
	s.listener = ln
	s.ready = true
	s.mu.Unlock()

	s.logger.Info("server started",
		"name", s.cfg.Name,
		"version", s.cfg.Version,
		"network", s.cfg.ListenNetwork,
		"address", ln.Addr().String(),
		"metricsAddress", s.cfg.MetricsAddress)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.acceptLoop(ctx, ln)
	})

	g.Go(func() error {
		if err := sidecar.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		s.mu.Lock()
		s.ready = false
		s.mu.Unlock()

		// Closing the listener unblocks Accept; open connections are
		// unblocked by their per-connection AfterFunc.
		closeErr := ln.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout())
		defer cancel()

		if !s.waitForConnections(shutdownCtx) {
			s.logger.Warn("shutdown timeout reached with connections still open")
		}
		if err := sidecar.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return closeErr
	})

	err = g.Wait()
	s.logger.Info("server stopped", "name", s.cfg.Name)
	return err
}

// waitForConnections waits for all connection handlers to exit, bounded by
// the context. It reports whether the handlers drained in time.
func (s *Server) waitForConnections(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		connectionsTotal.Inc()
		connectionsOpen.Inc()
		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

// handleConn serves one connection: a loop of command frame in, reply frame
// out. The connection ID is server-assigned so clients cannot spoof it.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	defer connectionsOpen.Dec()

	connID := uuid.NewString()
	logger := s.logger.With("connectionId", connID)
	logger.Debug("connection opened", "remote", conn.RemoteAddr().String())

	// Unblock a pending read when the server shuts down.
	unregister := context.AfterFunc(ctx, func() { conn.Close() })
	defer unregister()

	limiter := rate.NewLimiter(s.cfg.RateLimit, s.cfg.RateLimitBurst)

	for {
		cmd, err := diagmsg.ReadCommand(conn)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				logger.Debug("connection closed")
				return
			}
			// Framing is lost after a bad frame; the stream cannot be trusted.
			frameErrors.WithLabelValues("read").Inc()
			logger.Warn("dropping connection on unreadable frame", "error", err)
			return
		}
		framesTotal.WithLabelValues("read").Inc()

		if !limiter.Allow() {
			rateLimitThrottles.Inc()
			if err := limiter.Wait(ctx); err != nil {
				return
			}
		}

		cmd.Header.ConnectionID = connID
		reply := s.processor.ProcessMessage(ctx, cmd)

		if err := conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout())); err != nil {
			return
		}
		if err := diagmsg.WriteFrame(conn, reply); err != nil {
			frameErrors.WithLabelValues("write").Inc()
			logger.Warn("reply write failed", "error", err)
			return
		}
		framesTotal.WithLabelValues("write").Inc()
	}
}
