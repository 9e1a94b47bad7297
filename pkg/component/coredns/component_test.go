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

package coredns

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"

	"github.com/homelab-stack/homelab/pkg/component/componenttest"
	"github.com/homelab-stack/homelab/pkg/errors"
)

func TestCorefile(t *testing.T) {
	got, err := Corefile(CorefileData{
		Domain:    "homelab",
		GatewayIP: "10.43.200.53",
		Upstreams: []string{"1.1.1.1", "9.9.9.9"},
	})
	require.NoError(t, err)
	assert.Contains(t, got, "homelab:53 {\n    errors\n    forward . 10.43.200.53\n")
	assert.Contains(t, got, "forward . 1.1.1.1 9.9.9.9 {")
	assert.Contains(t, got, "hosts /etc/coredns/blocklist {")

	_, err = Corefile(CorefileData{Domain: "homelab"})
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidConfig))
}

func TestLoadBlocklists(t *testing.T) {
	t.Run("unset", func(t *testing.T) {
		got, n, err := LoadBlocklists("")
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Contains(t, got, "No blocklists configured")
	})

	t.Run("files in order", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("0.0.0.0 ads.example"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("0.0.0.0 track.example"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("ignored"), 0o644))

		got, n, err := LoadBlocklists(dir)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Less(t, strings.Index(got, "# From a.txt"), strings.Index(got, "# From b.txt"))
		assert.NotContains(t, got, "ignored")
	})

	t.Run("empty dir", func(t *testing.T) {
		got, n, err := LoadBlocklists(t.TempDir())
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Contains(t, got, "No blocklists found")
	})

	t.Run("missing dir", func(t *testing.T) {
		_, _, err := LoadBlocklists(filepath.Join(t.TempDir(), "nope"))
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
	})
}

func TestBuild(t *testing.T) {
	b := componenttest.Build(t, &Component{}, componenttest.Environment(t, componenttest.MinimalConfig))

	assert.Equal(t, []string{
		"ConfigMap/coredns-external",
		"Deployment/coredns-external",
		"Service/coredns-external",
	}, componenttest.Kinds(t, b))

	cm := componenttest.Find[*corev1.ConfigMap](t, b, AppName)
	assert.Contains(t, cm.Data["Corefile"], "forward . 1.1.1.1 8.8.8.8")

	deploy := componenttest.Find[*appsv1.Deployment](t, b, AppName)
	assert.Equal(t, int32(2), *deploy.Spec.Replicas)
	assert.Equal(t, "coredns/coredns:1.12.2", deploy.Spec.Template.Spec.Containers[0].Image)

	svc := componenttest.Find[*corev1.Service](t, b, AppName)
	assert.Equal(t, corev1.ServiceTypeLoadBalancer, svc.Spec.Type)
	assert.Equal(t, "homelab", svc.Annotations["metallb.io/address-pool"])
	assert.Len(t, svc.Spec.Ports, 3)
}

func TestBuildMissingBlocklistDir(t *testing.T) {
	env := componenttest.Environment(t, componenttest.MinimalConfig+`
dns:
  blocklistDir: /nonexistent/blocklists
`)
	_, err := (&Component{}).Build(t.Context(), env)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
}
