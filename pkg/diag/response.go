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

package diag

import (
	"github.com/NVIDIA/gpu-diagd/pkg/diagmsg"
	"github.com/NVIDIA/gpu-diagd/pkg/errors"
)

// ResponseWrapper binds once to one of the historical response wire layouts
// and lets the run path write results, errors and info without branching on
// the version at every call site. All writes after the bound capacity is
// reached report CapacityExceeded instead of growing the list.
type ResponseWrapper struct {
	version uint32

	v7  *diagmsg.ResponseV7
	v8  *diagmsg.ResponseV8
	v9  *diagmsg.ResponseV9
	v10 *diagmsg.ResponseV10

	// views into the bound layout, set at bind time
	results *[]diagmsg.SimpleResult
	errs    *[]diagmsg.ErrorDetail
	info    *[]string
	driver  *string

	maxErrors int
	maxInfo   int
}

// NewResponseWrapper returns an unbound wrapper. Every write before Bind
// fails with BadParameter.
func NewResponseWrapper() *ResponseWrapper {
	return &ResponseWrapper{}
}

// Bind fixes the wire layout the wrapper serializes into. Binding happens
// exactly once, before any run work; re-binding and unknown versions are
// hard errors.
func (w *ResponseWrapper) Bind(version uint32) error {
	if w.version != 0 {
		return errors.NewWithContext(errors.ErrCodeBadParameter,
			"response wrapper already bound", map[string]any{"bound": w.version, "requested": version})
	}

	switch version {
	case diagmsg.ResponseVersion7:
		w.v7 = &diagmsg.ResponseV7{Version: version}
		w.results, w.errs, w.info = &w.v7.Results, &w.v7.Errors, &w.v7.Info
		w.maxErrors, w.maxInfo = diagmsg.MaxErrorsLegacy, diagmsg.MaxInfoLegacy
	case diagmsg.ResponseVersion8:
		w.v8 = &diagmsg.ResponseV8{Version: version}
		w.results, w.errs, w.info = &w.v8.Results, &w.v8.Errors, &w.v8.Info
		w.driver = &w.v8.DriverVersion
		w.maxErrors, w.maxInfo = diagmsg.MaxErrorsLegacy, diagmsg.MaxInfoLegacy
	case diagmsg.ResponseVersion9:
		w.v9 = &diagmsg.ResponseV9{Version: version}
		w.results, w.errs, w.info = &w.v9.Results, &w.v9.Errors, &w.v9.Info
		w.driver = &w.v9.DriverVersion
		w.maxErrors, w.maxInfo = diagmsg.MaxErrors, diagmsg.MaxInfo
	case diagmsg.ResponseVersion10:
		w.v10 = &diagmsg.ResponseV10{Version: version}
		w.results, w.errs, w.info = &w.v10.Results, &w.v10.Errors, &w.v10.Info
		w.driver = &w.v10.DriverVersion
		w.maxErrors, w.maxInfo = diagmsg.MaxErrors, diagmsg.MaxInfo
	default:
		return errors.NewWithContext(errors.ErrCodeVersionMismatch,
			"unsupported response version", map[string]any{"received": version})
	}

	w.version = version
	return nil
}

// Bound reports whether Bind has been called.
func (w *ResponseWrapper) Bound() bool {
	return w.version != 0
}

// Version returns the bound wire version, zero when unbound.
func (w *ResponseWrapper) Version() uint32 {
	return w.version
}

func (w *ResponseWrapper) mustBeBound() error {
	if w.version == 0 {
		return errors.New(errors.ErrCodeBadParameter, "response wrapper not bound")
	}
	return nil
}

// SetResult records the outcome for one GPU, or for the whole run when
// gpuID is AllGpus. A later call for the same GPU overwrites the earlier one.
func (w *ResponseWrapper) SetResult(gpuID int32, result diagmsg.Result) error {
	if err := w.mustBeBound(); err != nil {
		return err
	}
	for i := range *w.results {
		if (*w.results)[i].GpuID == gpuID {
			(*w.results)[i].Result = result
			return nil
		}
	}
	if len(*w.results) >= diagmsg.MaxNumDevices+1 {
		return errors.NewWithContext(errors.ErrCodeCapacityExceeded,
			"result list full", map[string]any{"max": diagmsg.MaxNumDevices})
	}
	*w.results = append(*w.results, diagmsg.SimpleResult{GpuID: gpuID, Result: result})
	return nil
}

// AddError appends a structured error entry. gpuID is AllGpus when the error
// is not attributable to a single device.
func (w *ResponseWrapper) AddError(gpuID int32, code uint32, message, nextSteps string) error {
	if err := w.mustBeBound(); err != nil {
		return err
	}
	if len(*w.errs) >= w.maxErrors {
		return errors.NewWithContext(errors.ErrCodeCapacityExceeded,
			"error list full", map[string]any{"max": w.maxErrors})
	}
	*w.errs = append(*w.errs, diagmsg.ErrorDetail{
		GpuID:     gpuID,
		Code:      code,
		Message:   message,
		NextSteps: nextSteps,
	})
	return nil
}

// AddInfo appends an informational note.
func (w *ResponseWrapper) AddInfo(message string) error {
	if err := w.mustBeBound(); err != nil {
		return err
	}
	if len(*w.info) >= w.maxInfo {
		return errors.NewWithContext(errors.ErrCodeCapacityExceeded,
			"info list full", map[string]any{"max": w.maxInfo})
	}
	*w.info = append(*w.info, message)
	return nil
}

// SetDriverVersion records the installed driver version. The version 7
// layout predates the field; the value is dropped there without error so the
// run path stays version-agnostic.
func (w *ResponseWrapper) SetDriverVersion(version string) error {
	if err := w.mustBeBound(); err != nil {
		return err
	}
	if w.driver != nil {
		*w.driver = version
	}
	return nil
}

// SetAuxData attaches the optional auxiliary payload. Only the version 10
// layout carries it.
func (w *ResponseWrapper) SetAuxData(aux *diagmsg.AuxData) error {
	if err := w.mustBeBound(); err != nil {
		return err
	}
	if w.v10 == nil {
		return errors.NewWithContext(errors.ErrCodeBadParameter,
			"auxiliary data requires response version 10", map[string]any{"bound": w.version})
	}
	w.v10.AuxData = aux
	return nil
}

// Response returns the bound layout for serialization, nil when unbound.
func (w *ResponseWrapper) Response() any {
	switch w.version {
	case diagmsg.ResponseVersion7:
		return w.v7
	case diagmsg.ResponseVersion8:
		return w.v8
	case diagmsg.ResponseVersion9:
		return w.v9
	case diagmsg.ResponseVersion10:
		return w.v10
	default:
		return nil
	}
}
