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

package telemetry

import (
	"fmt"
	"sync"
)

// FieldReader reads current telemetry values for a GPU. Implementations are
// synchronous; any latency is absorbed by the caller's own timeout.
type FieldReader interface {
	GetCurrentFieldValue(gpuID uint, field FieldID, flags uint) (FieldValue, error)
}

// UnsupportedReader is a FieldReader with no telemetry backend. Every read
// reports StatusNotSupported, which checks treat as a documented skip. The
// daemon uses it until a live backend is wired in.
type UnsupportedReader struct{}

// GetCurrentFieldValue implements FieldReader.
func (UnsupportedReader) GetCurrentFieldValue(_ uint, field FieldID, _ uint) (FieldValue, error) {
	return FieldValue{
		FieldID: field,
		Status:  StatusNotSupported,
		Type:    ValueTypeInt64,
		Int64:   Int64Blank,
	}, nil
}

// FakeReader is an injectable FieldReader for tests and fake-GPU runs.
// Values are keyed by GPU and field; reads of unseeded keys return a blank
// int64 value, matching how the telemetry subsystem reports missing data.
type FakeReader struct {
	mu     sync.Mutex
	values map[fakeKey]FieldValue
	errs   map[fakeKey]error

	// Reads counts GetCurrentFieldValue calls, for interaction assertions.
	Reads int
}

type fakeKey struct {
	gpuID uint
	field FieldID
}

// NewFakeReader returns an empty FakeReader.
func NewFakeReader() *FakeReader {
	return &FakeReader{
		values: make(map[fakeKey]FieldValue),
		errs:   make(map[fakeKey]error),
	}
}

// SetInt64 seeds an int64 reading.
func (f *FakeReader) SetInt64(gpuID uint, field FieldID, v int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[fakeKey{gpuID, field}] = FieldValue{
		FieldID: field,
		Type:    ValueTypeInt64,
		Int64:   v,
	}
}

// SetBlob seeds a blob reading.
func (f *FakeReader) SetBlob(gpuID uint, field FieldID, blob []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[fakeKey{gpuID, field}] = FieldValue{
		FieldID: field,
		Type:    ValueTypeBlob,
		Blob:    blob,
	}
}

// SetStatus seeds a reading whose subsystem status is non-zero.
func (f *FakeReader) SetStatus(gpuID uint, field FieldID, status int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[fakeKey{gpuID, field}] = FieldValue{
		FieldID: field,
		Status:  status,
		Type:    ValueTypeInt64,
	}
}

// FailWith makes reads of the given key return err.
func (f *FakeReader) FailWith(gpuID uint, field FieldID, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[fakeKey{gpuID, field}] = err
}

// GetCurrentFieldValue implements FieldReader.
func (f *FakeReader) GetCurrentFieldValue(gpuID uint, field FieldID, _ uint) (FieldValue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Reads++

	key := fakeKey{gpuID, field}
	if err, ok := f.errs[key]; ok {
		return FieldValue{}, fmt.Errorf("field %d on gpu %d: %w", field, gpuID, err)
	}
	if v, ok := f.values[key]; ok {
		return v, nil
	}
	return FieldValue{
		FieldID: field,
		Type:    ValueTypeInt64,
		Int64:   Int64Blank,
	}, nil
}
