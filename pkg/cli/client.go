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

package cli

import (
	"net"

	"github.com/urfave/cli/v3"

	"github.com/NVIDIA/gpu-diagd/pkg/defaults"
	"github.com/NVIDIA/gpu-diagd/pkg/diagmsg"
	"github.com/NVIDIA/gpu-diagd/pkg/errors"
)

// client is a synchronous wire client for the daemon command socket.
type client struct {
	conn net.Conn
}

// dialDaemon connects to the daemon socket named by the command's
// --network/--socket flags.
func dialDaemon(cmd *cli.Command) (*client, error) {
	conn, err := net.DialTimeout(cmd.String("network"), cmd.String("socket"), defaults.ClientDialTimeout)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailure, "connecting to daemon", err)
	}
	return &client{conn: conn}, nil
}

func (c *client) Close() error {
	return c.conn.Close()
}

// do sends one command and waits for its reply. A non-OK reply status is
// surfaced as an error carrying the daemon's status code and message.
func (c *client) do(cmd *diagmsg.Command) (*diagmsg.Reply, error) {
	if err := diagmsg.WriteFrame(c.conn, cmd); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "sending command", err)
	}
	reply, err := diagmsg.ReadReply(c.conn)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "reading reply", err)
	}
	if reply.Status != errors.ErrCodeOK {
		msg := reply.Message
		if msg == "" {
			msg = "daemon refused the command"
		}
		return reply, errors.New(reply.Status, msg)
	}
	return reply, nil
}
