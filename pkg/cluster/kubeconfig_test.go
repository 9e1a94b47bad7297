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

package cluster

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/homelab-stack/homelab/pkg/errors"
)

const k3sKubeconfig = `apiVersion: v1
clusters:
- cluster:
    certificate-authority-data: Y2E=
    server: https://127.0.0.1:6443
  name: default
contexts:
- context:
    cluster: default
    user: default
  name: default
current-context: default
kind: Config
preferences: {}
users:
- name: default
  user:
    client-certificate-data: Y2VydA==
    client-key-data: a2V5
`

const otherKubeconfig = `apiVersion: v1
kind: Config
clusters:
- name: work
  cluster:
    server: https://work.example.com
contexts:
- name: work
  context:
    cluster: work
    user: work
current-context: work
users:
- name: work
  user:
    token: abc
`

func TestRewriteKubeconfig(t *testing.T) {
	out, err := RewriteKubeconfig([]byte(k3sKubeconfig), "192.168.1.10", "homelab")
	require.NoError(t, err)

	cfg, err := clientcmd.Load(out)
	require.NoError(t, err)

	assert.Equal(t, "homelab", cfg.CurrentContext)
	require.Contains(t, cfg.Clusters, "homelab")
	assert.NotContains(t, cfg.Clusters, "default")
	assert.Equal(t, "https://192.168.1.10:6443", cfg.Clusters["homelab"].Server)
	assert.Equal(t, []byte("ca"), cfg.Clusters["homelab"].CertificateAuthorityData)
	require.Contains(t, cfg.AuthInfos, "homelab")
	assert.Equal(t, []byte("key"), cfg.AuthInfos["homelab"].ClientKeyData)
	assert.Equal(t, "homelab", cfg.Contexts["homelab"].Cluster)
	assert.Equal(t, "homelab", cfg.Contexts["homelab"].AuthInfo)
}

func TestRewriteKubeconfigErrors(t *testing.T) {
	_, err := RewriteKubeconfig([]byte(k3sKubeconfig), "192.168.1.10", "")
	assert.Equal(t, errors.ErrCodeInvalidRequest, errors.CodeOf(err))

	_, err = RewriteKubeconfig([]byte("{{{"), "192.168.1.10", "homelab")
	assert.Equal(t, errors.ErrCodeInvalidConfig, errors.CodeOf(err))

	_, err = RewriteKubeconfig([]byte("apiVersion: v1\nkind: Config\ncurrent-context: missing\n"), "192.168.1.10", "homelab")
	assert.Equal(t, errors.ErrCodeInvalidConfig, errors.CodeOf(err))
}

func TestReplaceLoopback(t *testing.T) {
	tests := []struct {
		server  string
		address string
		want    string
	}{
		{"https://127.0.0.1:6443", "192.168.1.10", "https://192.168.1.10:6443"},
		{"https://localhost:6443", "192.168.1.10", "https://192.168.1.10:6443"},
		{"https://127.0.0.1", "192.168.1.10", "https://192.168.1.10"},
		{"https://[::1]:6443", "fd00::10", "https://[fd00::10]:6443"},
		{"https://kube.local:6443", "192.168.1.10", "https://kube.local:6443"},
		{"https://127.0.0.1:6443", "", "https://127.0.0.1:6443"},
	}
	for _, tt := range tests {
		got, err := replaceLoopback(tt.server, tt.address)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.server)
	}
}

func TestMergeKubeconfig(t *testing.T) {
	homelab, err := RewriteKubeconfig([]byte(k3sKubeconfig), "192.168.1.10", "homelab")
	require.NoError(t, err)

	t.Run("new file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".kube", "config")
		require.NoError(t, MergeKubeconfig(path, homelab, false))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

		cfg, err := clientcmd.LoadFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, "homelab", cfg.CurrentContext)
	})

	t.Run("keeps existing entries and current context", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config")
		require.NoError(t, os.WriteFile(path, []byte(otherKubeconfig), 0o600))

		require.NoError(t, MergeKubeconfig(path, homelab, false))

		cfg, err := clientcmd.LoadFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, "work", cfg.CurrentContext)
		assert.Contains(t, cfg.Contexts, "work")
		assert.Contains(t, cfg.Contexts, "homelab")
	})

	t.Run("set current", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config")
		require.NoError(t, os.WriteFile(path, []byte(otherKubeconfig), 0o600))

		require.NoError(t, MergeKubeconfig(path, homelab, true))

		cfg, err := clientcmd.LoadFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, "homelab", cfg.CurrentContext)
	})

	t.Run("replaces stale entry", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config")
		require.NoError(t, MergeKubeconfig(path, homelab, true))

		moved, err := RewriteKubeconfig([]byte(k3sKubeconfig), "192.168.1.20", "homelab")
		require.NoError(t, err)
		require.NoError(t, MergeKubeconfig(path, moved, true))

		cfg, err := clientcmd.LoadFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, "https://192.168.1.20:6443", cfg.Clusters["homelab"].Server)
	})

	t.Run("invalid input", func(t *testing.T) {
		err := MergeKubeconfig(filepath.Join(t.TempDir(), "config"), []byte("{{{"), true)
		assert.Equal(t, errors.ErrCodeInvalidConfig, errors.CodeOf(err))
	})
}
