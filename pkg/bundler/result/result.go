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

package result

import (
	"sync"
	"time"
)

// Result is the outcome of rendering a single component bundle.
//
// Thread-safety: Result may be updated from multiple goroutines.
type Result struct {
	mu sync.Mutex

	// Component is the name of the rendered component.
	Component string `json:"component" yaml:"component"`

	// Stage is the component stage.
	Stage string `json:"stage" yaml:"stage"`

	// Files are the absolute paths of generated files.
	Files []string `json:"files" yaml:"files"`

	// Size is the total size of generated files in bytes.
	Size int64 `json:"size_bytes" yaml:"size_bytes"`

	// Duration is the time spent rendering.
	Duration time.Duration `json:"duration" yaml:"duration"`

	// Checksum is the SHA256 of the bundle checksums file, when generated.
	Checksum string `json:"checksum,omitempty" yaml:"checksum,omitempty"`

	// Errors are non-fatal problems found while rendering.
	Errors []string `json:"errors,omitempty" yaml:"errors,omitempty"`

	// Success is set once the bundle is fully written.
	Success bool `json:"success" yaml:"success"`
}

// New creates an empty result for a component.
func New(component string) *Result {
	return &Result{
		Component: component,
		Files:     make([]string, 0),
		Errors:    make([]string, 0),
	}
}

// AddFile records a generated file.
func (r *Result) AddFile(path string, size int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Files = append(r.Files, path)
	r.Size += size
}

// AddError records a non-fatal error. Nil errors are ignored.
func (r *Result) AddError(err error) {
	if err == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Errors = append(r.Errors, err.Error())
}

// MarkSuccess marks the result as successful.
func (r *Result) MarkSuccess() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Success = true
}

// FileList returns a copy of the recorded file paths.
func (r *Result) FileList() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.Files...)
}
