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
	"encoding/binary"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/gpu-diagd/pkg/diagmsg"
	diagerrors "github.com/NVIDIA/gpu-diagd/pkg/errors"
)

// recordingProcessor echoes the command header back and records what it saw.
type recordingProcessor struct {
	mu   sync.Mutex
	cmds []*diagmsg.Command
}

func (p *recordingProcessor) ProcessMessage(_ context.Context, cmd *diagmsg.Command) *diagmsg.Reply {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cmds = append(p.cmds, cmd)
	return &diagmsg.Reply{Header: cmd.Header, Status: diagerrors.ErrCodeOK}
}

func (p *recordingProcessor) seen() []*diagmsg.Command {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*diagmsg.Command(nil), p.cmds...)
}

// startTestServer runs a server on a throwaway unix socket and returns the
// socket path. The server is torn down with the test.
func startTestServer(t *testing.T, processor MessageProcessor) string {
	t.Helper()

	cfg := defaultConfig()
	cfg.Name = "gpudiagd-test"
	cfg.ListenNetwork = "unix"
	cfg.ListenAddress = filepath.Join(t.TempDir(), "gpudiagd.sock")
	cfg.MetricsAddress = "127.0.0.1:0"
	cfg.ShutdownTimeoutSeconds = 2

	s := New(processor,
		WithConfig(cfg),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop in time")
		}
	})

	require.Eventually(t, s.Ready, 5*time.Second, 10*time.Millisecond)
	return cfg.ListenAddress
}

func dialTestServer(t *testing.T, socket string) net.Conn {
	t.Helper()
	conn, err := net.Dial("unix", socket)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func stopCommand() *diagmsg.Command {
	return &diagmsg.Command{
		Header: diagmsg.CommandHeader{
			ModuleID:   diagmsg.ModuleIDDiag,
			SubCommand: diagmsg.DiagSubCmdStop,
			Version:    diagmsg.StopVersion1,
		},
	}
}

func TestServerCommandRoundTrip(t *testing.T) {
	processor := &recordingProcessor{}
	socket := startTestServer(t, processor)
	conn := dialTestServer(t, socket)

	require.NoError(t, diagmsg.WriteFrame(conn, stopCommand()))
	reply, err := diagmsg.ReadReply(conn)
	require.NoError(t, err)
	assert.Equal(t, diagerrors.ErrCodeOK, reply.Status)
	assert.Equal(t, diagmsg.DiagSubCmdStop, reply.Header.SubCommand)
	assert.NotEmpty(t, reply.Header.ConnectionID)
}

func TestServerAssignsConnectionID(t *testing.T) {
	processor := &recordingProcessor{}
	socket := startTestServer(t, processor)
	conn := dialTestServer(t, socket)

	// A spoofed connection ID is replaced with the server-assigned one.
	cmd := stopCommand()
	cmd.Header.ConnectionID = "spoofed"
	require.NoError(t, diagmsg.WriteFrame(conn, cmd))
	_, err := diagmsg.ReadReply(conn)
	require.NoError(t, err)

	require.NoError(t, diagmsg.WriteFrame(conn, stopCommand()))
	_, err = diagmsg.ReadReply(conn)
	require.NoError(t, err)

	seen := processor.seen()
	require.Len(t, seen, 2)
	assert.NotEqual(t, "spoofed", seen[0].Header.ConnectionID)
	assert.NotEmpty(t, seen[0].Header.ConnectionID)
	// Both commands on one connection share the connection ID.
	assert.Equal(t, seen[0].Header.ConnectionID, seen[1].Header.ConnectionID)

	other := dialTestServer(t, socket)
	require.NoError(t, diagmsg.WriteFrame(other, stopCommand()))
	_, err = diagmsg.ReadReply(other)
	require.NoError(t, err)

	seen = processor.seen()
	require.Len(t, seen, 3)
	assert.NotEqual(t, seen[0].Header.ConnectionID, seen[2].Header.ConnectionID)
}

func TestServerDropsConnectionOnOversizedFrame(t *testing.T) {
	socket := startTestServer(t, &recordingProcessor{})
	conn := dialTestServer(t, socket)

	var lengthBuf [4]byte
	binary.BigEndian.PutUint32(lengthBuf[:], diagmsg.MaxFrameLen+1)
	_, err := conn.Write(lengthBuf[:])
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	buf := make([]byte, 1)
	_, err = conn.Read(buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestServerRemovesStaleSocket(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "gpudiagd.sock")
	require.NoError(t, os.WriteFile(stale, nil, 0o600))

	cfg := defaultConfig()
	cfg.ListenNetwork = "unix"
	cfg.ListenAddress = stale
	cfg.MetricsAddress = "127.0.0.1:0"
	cfg.ShutdownTimeoutSeconds = 2

	s := New(&recordingProcessor{},
		WithConfig(cfg),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, s.Ready, 5*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestServerRunRejectsInvalidConfig(t *testing.T) {
	cfg := defaultConfig()
	cfg.ListenNetwork = "udp"

	s := New(&recordingProcessor{}, WithConfig(cfg))
	err := s.Run(context.Background())
	require.Error(t, err)
	assert.True(t, diagerrors.IsCode(err, diagerrors.ErrCodeBadParameter))
}
