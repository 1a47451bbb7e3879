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

package diagmsg

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/NVIDIA/gpu-diagd/pkg/errors"
)

// MaxFrameLen bounds a single command or reply frame. Run requests carry
// embedded config file contents and plugin paths, but nothing close to this.
const MaxFrameLen = 4 << 20

// MarshalPayload encodes a payload value for embedding in a Command or Reply.
func MarshalPayload(v any) (cbor.RawMessage, error) {
	b, err := cbor.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "encoding payload", err)
	}
	return cbor.RawMessage(b), nil
}

// UnmarshalPayload decodes a raw payload into v.
func UnmarshalPayload(p cbor.RawMessage, v any) error {
	if len(p) == 0 {
		return errors.New(errors.ErrCodeBadParameter, "empty payload")
	}
	if err := cbor.Unmarshal(p, v); err != nil {
		return errors.Wrap(errors.ErrCodeBadParameter, "malformed payload", err)
	}
	return nil
}

// WriteFrame writes one length-prefixed CBOR frame: a 4-byte big-endian
// length followed by the encoded value.
func WriteFrame(w io.Writer, v any) error {
	body, err := cbor.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}
	if len(body) > MaxFrameLen {
		return fmt.Errorf("frame size %d exceeds limit %d", len(body), MaxFrameLen)
	}

	var lengthBuf [4]byte
	binary.BigEndian.PutUint32(lengthBuf[:], uint32(len(body)))
	if _, err := w.Write(lengthBuf[:]); err != nil {
		return fmt.Errorf("writing frame length: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("writing frame body: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed CBOR frame into v.
func ReadFrame(r io.Reader, v any) error {
	var lengthBuf [4]byte
	if _, err := io.ReadFull(r, lengthBuf[:]); err != nil {
		return err
	}

	length := binary.BigEndian.Uint32(lengthBuf[:])
	if length > MaxFrameLen {
		return fmt.Errorf("frame size %d exceeds limit %d", length, MaxFrameLen)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return fmt.Errorf("reading frame body: %w", err)
	}
	if err := cbor.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decoding frame: %w", err)
	}
	return nil
}

// ReadCommand reads and decodes one command frame.
func ReadCommand(r io.Reader) (*Command, error) {
	var cmd Command
	if err := ReadFrame(r, &cmd); err != nil {
		return nil, err
	}
	return &cmd, nil
}

// ReadReply reads and decodes one reply frame.
func ReadReply(r io.Reader) (*Reply, error) {
	var reply Reply
	if err := ReadFrame(r, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}
