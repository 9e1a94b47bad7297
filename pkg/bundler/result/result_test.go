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
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	r := New("metallb")
	require.NotNil(t, r)
	assert.Equal(t, "metallb", r.Component)
	assert.NotNil(t, r.Files)
	assert.Empty(t, r.Files)
	assert.NotNil(t, r.Errors)
	assert.False(t, r.Success)
	assert.Zero(t, r.Size)
}

func TestAddFile(t *testing.T) {
	r := New("metallb")
	r.AddFile("/out/metallb/values/metallb.yaml", 100)
	r.AddFile("/out/metallb/README.md", 0)

	assert.Len(t, r.Files, 2)
	assert.Equal(t, int64(100), r.Size)
	assert.Equal(t, r.Files, r.FileList())
}

func TestAddFileConcurrent(t *testing.T) {
	r := New("grafana")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.AddFile("f", 2)
		}()
	}
	wg.Wait()
	assert.Len(t, r.Files, 50)
	assert.Equal(t, int64(100), r.Size)
}

func TestAddError(t *testing.T) {
	r := New("coredns")
	r.AddError(nil)
	assert.Empty(t, r.Errors)

	r.AddError(errors.New("blocklist dir not found"))
	assert.Equal(t, []string{"blocklist dir not found"}, r.Errors)
}

func TestMarkSuccess(t *testing.T) {
	r := New("istio")
	r.MarkSuccess()
	assert.True(t, r.Success)
}

func TestOutputTotals(t *testing.T) {
	ok := New("metallb")
	ok.AddFile("a", 1024)
	ok.MarkSuccess()
	failed := New("tailscale")

	out := &Output{}
	out.Add(ok)
	out.Add(failed)
	out.Add(nil)
	out.AddFiles(2, 1024)
	out.Errors = append(out.Errors, BundleError{Component: "tailscale", Error: "missing oauth"})

	assert.Equal(t, 3, out.TotalFiles)
	assert.Equal(t, int64(2048), out.TotalSize)
	assert.Equal(t, 1, out.SuccessCount())
	assert.Equal(t, 1, out.FailureCount())
	assert.True(t, out.HasErrors())
	assert.Equal(t, []string{"tailscale"}, out.FailedComponents())
	assert.Same(t, ok, out.ByComponent()["metallb"])
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1024 * 1024, "1.0 MB"},
		{5 * 1024 * 1024 * 1024, "5.0 GB"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatBytes(tt.in))
		})
	}
}

func TestSummary(t *testing.T) {
	r := New("metallb")
	r.AddFile("a", 2048)
	r.MarkSuccess()

	out := &Output{TotalDuration: 1500 * time.Millisecond}
	out.Add(r)
	assert.Equal(t, "Rendered 1 files (2.0 KB) in 1.5s. Success: 1/1 components.", out.Summary())
}
