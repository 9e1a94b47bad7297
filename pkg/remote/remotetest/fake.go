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

// Package remotetest provides an in-memory remote.Runner for tests.
package remotetest

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/homelab-stack/homelab/pkg/errors"
	"github.com/homelab-stack/homelab/pkg/remote"
)

// Fake records commands and keeps files in memory.
type Fake struct {
	mu sync.Mutex

	// Files holds remote file content by absolute path.
	Files map[string][]byte
	// Modes holds the mode of every written file.
	Modes map[string]os.FileMode
	// Outputs maps a command substring to its output.
	Outputs map[string]string
	// Errors maps a command substring to the error Run returns.
	Errors map[string]error

	commands []string
	writes   []string
	closed   bool
}

var _ remote.Runner = (*Fake)(nil)

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		Files:   map[string][]byte{},
		Modes:   map[string]os.FileMode{},
		Outputs: map[string]string{},
		Errors:  map[string]error{},
	}
}

// Run records cmd and answers from Errors and Outputs.
func (f *Fake) Run(ctx context.Context, cmd string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.Wrap(errors.ErrCodeTimeout, "context done", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.commands = append(f.commands, cmd)
	for sub, err := range f.Errors {
		if strings.Contains(cmd, sub) {
			return "", err
		}
	}
	for sub, out := range f.Outputs {
		if strings.Contains(cmd, sub) {
			return out, nil
		}
	}
	return "", nil
}

// ReadFile returns the stored content or NOT_FOUND.
func (f *Fake) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := remote.ValidatePath(path); err != nil {
		return nil, err
	}
	if _, err := f.Run(ctx, remote.ReadCommand(path)); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.Files[path]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeNotFound, "%s: no such file", path)
	}
	return append([]byte(nil), data...), nil
}

// WriteFile stores a copy of data.
func (f *Fake) WriteFile(ctx context.Context, path string, data []byte, mode os.FileMode) error {
	if err := remote.ValidatePath(path); err != nil {
		return err
	}
	if _, err := f.Run(ctx, remote.UploadCommand(path, mode)); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Files[path] = append([]byte(nil), data...)
	f.Modes[path] = mode
	f.writes = append(f.writes, path)
	return nil
}

// Close marks the fake closed.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Commands returns the commands run so far, including those issued by
// ReadFile and WriteFile.
func (f *Fake) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

// Writes returns the written paths in order.
func (f *Fake) Writes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.writes...)
}

// Closed reports whether Close was called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Ran reports whether any command contains sub.
func (f *Fake) Ran(sub string) bool {
	for _, c := range f.Commands() {
		if strings.Contains(c, sub) {
			return true
		}
	}
	return false
}

// Dialer returns a remote.Dialer that always hands out f.
func (f *Fake) Dialer() remote.Dialer {
	return func(context.Context) (remote.Runner, error) {
		f.mu.Lock()
		f.closed = false
		f.mu.Unlock()
		return f, nil
	}
}
