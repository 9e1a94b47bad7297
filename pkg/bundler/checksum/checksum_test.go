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

package checksum

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, files map[string]string) []string {
	t.Helper()
	var paths []string
	for name, content := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		paths = append(paths, p)
	}
	return paths
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	paths := writeFiles(t, dir, map[string]string{
		"values/metallb.yaml":           "controller: {}\n",
		"manifests/00-namespace-a.yaml": "kind: Namespace\n",
		"README.md":                     "# metallb\n",
	})

	path, digest, err := Generate(context.Background(), dir, paths)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, FileName), path)
	assert.Len(t, digest, 64)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)

	// sorted by relative path
	assert.True(t, strings.HasSuffix(lines[0], "  README.md"))
	assert.True(t, strings.HasSuffix(lines[1], "  manifests/00-namespace-a.yaml"))
	assert.True(t, strings.HasSuffix(lines[2], "  values/metallb.yaml"))
	// sha256 of "# metallb\n"
	assert.Len(t, strings.Fields(lines[0])[0], 64)
}

func TestGenerateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Generate(ctx, t.TempDir(), nil)
	require.Error(t, err)
}

func TestGenerateMissingFile(t *testing.T) {
	dir := t.TempDir()
	_, _, err := Generate(context.Background(), dir, []string{filepath.Join(dir, "nope")})
	require.Error(t, err)
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	paths := writeFiles(t, dir, map[string]string{
		"a.yaml": "a: 1\n",
		"b.yaml": "b: 2\n",
	})
	_, _, err := Generate(context.Background(), dir, paths)
	require.NoError(t, err)

	bad, err := Verify(dir)
	require.NoError(t, err)
	assert.Empty(t, bad)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("b: 3\n"), 0o644))
	bad, err = Verify(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.yaml"}, bad)
}

func TestVerifyMissingChecksums(t *testing.T) {
	_, err := Verify(t.TempDir())
	require.Error(t, err)
}

func TestPath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "metallb", FileName), Path(filepath.Join("out", "metallb")))
}
