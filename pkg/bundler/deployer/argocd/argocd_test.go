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

package argocd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/homelab-stack/homelab/pkg/bundler/checksum"
	"github.com/homelab-stack/homelab/pkg/bundler/types"
	"github.com/homelab-stack/homelab/pkg/component"
	herrors "github.com/homelab-stack/homelab/pkg/errors"
)

func testComponents() []types.Component {
	return []types.Component{
		{
			Name:      "cert-manager",
			Namespace: "cert-manager",
			Stage:     "pki",
			Wave:      0,
			Charts: []component.Chart{{
				Release:    "cert-manager",
				Repository: "https://charts.jetstack.io",
				Name:       "cert-manager",
				Version:    "1.18.2",
				Namespace:  "cert-manager",
				Values:     map[string]any{"crds": map[string]any{"enabled": true}},
			}},
			Manifests: []string{"cert-manager/manifests/00-secret-homelab-ca.yaml"},
		},
		{
			Name:      "istio",
			Namespace: "istio-system",
			Stage:     "network",
			Wave:      0,
			CRDURLs:   []string{"https://example.com/gateway-api.yaml"},
			Charts: []component.Chart{
				{Release: "istio-base", Repository: "https://istio-release.storage.googleapis.com/charts", Name: "base", Version: "1.26.3", Namespace: "istio-system"},
			},
		},
		{
			Name:      "grafana",
			Namespace: "monitoring",
			Stage:     "monitoring",
			Wave:      2,
			DependsOn: []string{"cert-manager"},
			Manifests: []string{"grafana/manifests/00-configmap-grafana-config.yaml"},
		},
	}
}

// decodeAll reads every YAML document in path.
func decodeAll(t *testing.T, path string) []map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var docs []map[string]any
	dec := yaml.NewDecoder(bytes.NewReader(data))
	for {
		var doc map[string]any
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		docs = append(docs, doc)
	}
	return docs
}

func field(t *testing.T, obj map[string]any, keys ...string) any {
	t.Helper()
	var cur any = obj
	for _, k := range keys {
		m, ok := cur.(map[string]any)
		require.True(t, ok, "%v is not a map at %q", cur, k)
		cur = m[k]
	}
	return cur
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	out, err := NewGenerator().Generate(context.Background(), &GeneratorInput{
		Components:       testComponents(),
		Version:          "v1.0.0",
		RunID:            "run-1",
		RepoURL:          "https://git.example.com/homelab.git",
		IncludeReadme:    true,
		IncludeChecksums: true,
	}, dir)
	require.NoError(t, err)

	// 3 application files, app-of-apps, README, checksums.
	assert.Len(t, out.Files, 6)
	assert.Positive(t, out.TotalSize)
	assert.Empty(t, out.DeploymentNotes)
	assert.Equal(t, []string{
		"kubectl apply --server-side -f https://example.com/gateway-api.yaml",
		"Push " + dir + " to https://git.example.com/homelab.git",
		"kubectl apply -f " + filepath.Join(dir, AppOfAppsFile),
	}, out.DeploymentSteps)

	mismatched, err := checksum.Verify(dir)
	require.NoError(t, err)
	assert.Empty(t, mismatched)
}

func TestChartAndManifestApplications(t *testing.T) {
	dir := t.TempDir()
	_, err := NewGenerator().Generate(context.Background(), &GeneratorInput{
		Components:     testComponents(),
		RepoURL:        "https://git.example.com/homelab.git",
		TargetRevision: "main",
		BasePath:       "clusters/home",
	}, dir)
	require.NoError(t, err)

	docs := decodeAll(t, filepath.Join(dir, AppsDir, "cert-manager.yaml"))
	require.Len(t, docs, 2)

	chart := docs[0]
	assert.Equal(t, "Application", chart["kind"])
	assert.Equal(t, "cert-manager", field(t, chart, "metadata", "name"))
	assert.Equal(t, ArgoNamespace, field(t, chart, "metadata", "namespace"))
	assert.Equal(t, "0", field(t, chart, "metadata", "annotations", SyncWaveAnnotation))
	assert.Equal(t, "https://charts.jetstack.io", field(t, chart, "spec", "source", "repoURL"))
	assert.Equal(t, "1.18.2", field(t, chart, "spec", "source", "targetRevision"))
	assert.Equal(t, "cert-manager", field(t, chart, "spec", "destination", "namespace"))

	var values map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(field(t, chart, "spec", "source", "helm", "values").(string)), &values))
	assert.Equal(t, map[string]any{"crds": map[string]any{"enabled": true}}, values)

	manifests := docs[1]
	assert.Equal(t, "cert-manager-manifests", field(t, manifests, "metadata", "name"))
	assert.Equal(t, "https://git.example.com/homelab.git", field(t, manifests, "spec", "source", "repoURL"))
	assert.Equal(t, "main", field(t, manifests, "spec", "source", "targetRevision"))
	assert.Equal(t, "clusters/home/cert-manager/manifests", field(t, manifests, "spec", "source", "path"))

	parent := decodeAll(t, filepath.Join(dir, AppOfAppsFile))
	require.Len(t, parent, 1)
	assert.Equal(t, AppOfAppsName, field(t, parent[0], "metadata", "name"))
	assert.Equal(t, "clusters/home/argocd", field(t, parent[0], "spec", "source", "path"))
}

func TestSyncWaveFollowsPlan(t *testing.T) {
	dir := t.TempDir()
	_, err := NewGenerator().Generate(context.Background(), &GeneratorInput{Components: testComponents()}, dir)
	require.NoError(t, err)

	want := map[string]string{"cert-manager": "0", "istio": "0", "grafana": "2"}
	for name, wave := range want {
		docs := decodeAll(t, filepath.Join(dir, AppsDir, name+".yaml"))
		require.NotEmpty(t, docs, name)
		for _, d := range docs {
			assert.Equal(t, wave, field(t, d, "metadata", "annotations", SyncWaveAnnotation), name)
		}
	}

	docs := decodeAll(t, filepath.Join(dir, AppsDir, "istio.yaml"))
	require.Len(t, docs, 1, "no manifests application without manifests")
	assert.Equal(t, "{}\n", field(t, docs[0], "spec", "source", "helm", "values"))
}

func TestPlaceholderRepo(t *testing.T) {
	dir := t.TempDir()
	out, err := NewGenerator().Generate(context.Background(), &GeneratorInput{
		Components:    testComponents(),
		IncludeReadme: true,
	}, dir)
	require.NoError(t, err)

	require.Len(t, out.DeploymentNotes, 1)
	parent := decodeAll(t, filepath.Join(dir, AppOfAppsFile))
	assert.Equal(t, placeholderRepoURL, field(t, parent[0], "spec", "source", "repoURL"))
	assert.Equal(t, "HEAD", field(t, parent[0], "spec", "source", "targetRevision"))
	assert.Equal(t, "argocd", field(t, parent[0], "spec", "source", "path"))

	readme, err := os.ReadFile(filepath.Join(dir, component.ReadmeFile))
	require.NoError(t, err)
	assert.Contains(t, string(readme), "| 2 | `grafana-manifests` | grafana | `grafana/manifests` |")
	assert.Contains(t, string(readme), "## Notes")
}

func TestDuplicateApplication(t *testing.T) {
	components := testComponents()
	components[2].Charts = []component.Chart{{Release: "cert-manager", Name: "cert-manager", Repository: "https://charts.jetstack.io", Version: "1.0.0"}}

	_, err := NewGenerator().Generate(context.Background(), &GeneratorInput{Components: components}, t.TempDir())
	require.Error(t, err)
	assert.Equal(t, herrors.ErrCodeConflict, herrors.CodeOf(err))
}

func TestGenerateErrors(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name  string
		ctx   context.Context
		input *GeneratorInput
		code  herrors.ErrorCode
	}{
		{name: "nil input", ctx: context.Background(), code: herrors.ErrCodeInvalidRequest},
		{name: "no components", ctx: context.Background(), input: &GeneratorInput{}, code: herrors.ErrCodeInvalidRequest},
		{name: "cancelled", ctx: cancelled, input: &GeneratorInput{Components: testComponents()}, code: herrors.ErrCodeTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGenerator().Generate(tt.ctx, tt.input, t.TempDir())
			require.Error(t, err)
			assert.Equal(t, tt.code, herrors.CodeOf(err))
		})
	}
}
