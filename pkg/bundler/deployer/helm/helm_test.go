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

package helm

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homelab-stack/homelab/pkg/bundler/checksum"
	"github.com/homelab-stack/homelab/pkg/bundler/types"
	"github.com/homelab-stack/homelab/pkg/component"
	"github.com/homelab-stack/homelab/pkg/errors"
)

func testComponents() []types.Component {
	return []types.Component{
		{
			Name:      "istio",
			Namespace: "istio-system",
			Stage:     "network",
			Wave:      0,
			CRDURLs:   []string{"https://github.com/kubernetes-sigs/gateway-api/releases/download/v1.2.0/standard-install.yaml"},
			Charts: []component.Chart{
				{Release: "istio-base", Repository: "https://istio-release.storage.googleapis.com/charts", Name: "base", Version: "1.26.3", Namespace: "istio-system"},
				{Release: "istiod", Repository: "https://istio-release.storage.googleapis.com/charts", Name: "istiod", Version: "1.26.3", Namespace: "istio-system"},
			},
			Manifests: []string{"istio/manifests/00-namespace-istio-system.yaml"},
		},
		{
			Name:      "metallb",
			Namespace: "metallb-system",
			Stage:     "network",
			Wave:      0,
			Charts: []component.Chart{
				{Release: "metallb", Repository: "https://metallb.github.io/metallb", Name: "metallb", Version: "0.15.2", Namespace: "metallb-system"},
			},
			Manifests: []string{
				"metallb/manifests/00-namespace-metallb-system.yaml",
				"metallb/manifests/01-ipaddresspool-default.yaml",
			},
		},
		{
			Name:      "coredns",
			Namespace: "home-dns",
			Stage:     "dns",
			Wave:      1,
			DependsOn: []string{"metallb"},
			Manifests: []string{"coredns/manifests/00-configmap-coredns.yaml"},
		},
	}
}

func readFile(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return string(data)
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	input := &GeneratorInput{
		Components:       testComponents(),
		Version:          "v1.0.0",
		RunID:            "run-1",
		IncludeReadme:    true,
		IncludeChecksums: true,
	}

	out, err := NewGenerator().Generate(context.Background(), input, dir)
	require.NoError(t, err)

	require.Len(t, out.Files, 4)
	assert.Positive(t, out.TotalSize)
	assert.Equal(t, []string{"cd " + dir, "./deploy.sh"}, out.DeploymentSteps)
	for _, name := range []string{DeployScript, DestroyScript, component.ReadmeFile, checksum.FileName} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	info, err := os.Stat(filepath.Join(dir, DeployScript))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestDeployScriptOrder(t *testing.T) {
	dir := t.TempDir()
	_, err := NewGenerator().Generate(context.Background(), &GeneratorInput{
		Components: testComponents(),
		Version:    "v1.0.0",
		RunID:      "run-1",
	}, dir)
	require.NoError(t, err)

	script := readFile(t, dir, DeployScript)
	assert.True(t, strings.HasPrefix(script, "#!/usr/bin/env bash\n"))
	assert.Contains(t, script, "run run-1")
	assert.Contains(t, script, "set -euo pipefail")
	assert.Contains(t, script, `"${HELM}" upgrade --install metallb metallb \`)
	assert.Contains(t, script, `--repo 'https://metallb.github.io/metallb'`)
	assert.Contains(t, script, `--version '0.15.2'`)
	assert.Contains(t, script, `--values 'metallb/values/metallb.yaml'`)
	assert.Contains(t, script, `"${KUBECTL}" apply -f 'metallb/manifests/01-ipaddresspool-default.yaml'`)

	// CRDs before charts, charts before manifests, components in plan order.
	ordered := []string{
		"gateway-api/releases/download/v1.2.0/standard-install.yaml",
		"upgrade --install istio-base",
		"upgrade --install istiod",
		"istio/manifests/00-namespace-istio-system.yaml",
		"upgrade --install metallb",
		"metallb/manifests/00-namespace-metallb-system.yaml",
		"metallb/manifests/01-ipaddresspool-default.yaml",
		"coredns/manifests/00-configmap-coredns.yaml",
	}
	assertOrdered(t, script, ordered)
}

func TestDestroyScriptOrder(t *testing.T) {
	dir := t.TempDir()
	_, err := NewGenerator().Generate(context.Background(), &GeneratorInput{
		Components: testComponents(),
	}, dir)
	require.NoError(t, err)

	script := readFile(t, dir, DestroyScript)
	assert.Contains(t, script, `"${HELM}" uninstall istiod --namespace istio-system --ignore-not-found --wait`)

	ordered := []string{
		"delete --ignore-not-found -f 'coredns/manifests/00-configmap-coredns.yaml'",
		"metallb/manifests/01-ipaddresspool-default.yaml",
		"metallb/manifests/00-namespace-metallb-system.yaml",
		"uninstall metallb",
		"istio/manifests/00-namespace-istio-system.yaml",
		"uninstall istiod",
		"uninstall istio-base",
		"gateway-api/releases/download/v1.2.0/standard-install.yaml",
	}
	assertOrdered(t, script, ordered)
}

func TestDestroyDoesNotMutateInput(t *testing.T) {
	components := testComponents()
	_, err := NewGenerator().Generate(context.Background(), &GeneratorInput{Components: components}, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, testComponents(), components)
}

func TestReadme(t *testing.T) {
	dir := t.TempDir()
	_, err := NewGenerator().Generate(context.Background(), &GeneratorInput{
		Components:    testComponents(),
		Version:       "v1.0.0",
		IncludeReadme: true,
	}, dir)
	require.NoError(t, err)

	readme := readFile(t, dir, component.ReadmeFile)
	assert.Contains(t, readme, "| 1 | [istio](istio/README.md) | network | 0 | 2 | 1 | - |")
	assert.Contains(t, readme, "| 3 | [coredns](coredns/README.md) | dns | 1 | 0 | 1 | metallb |")
	assert.Contains(t, readme, "## CRDs")
}

func TestChecksumsCoverComponentFiles(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "coredns", "manifests", "00-configmap-coredns.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(manifest), 0o755))
	require.NoError(t, os.WriteFile(manifest, []byte("kind: ConfigMap\n"), 0o644))

	_, err := NewGenerator().Generate(context.Background(), &GeneratorInput{
		Components:       testComponents(),
		Files:            []string{manifest},
		IncludeChecksums: true,
	}, dir)
	require.NoError(t, err)

	sums := readFile(t, dir, checksum.FileName)
	assert.Contains(t, sums, "  coredns/manifests/00-configmap-coredns.yaml")
	assert.Contains(t, sums, "  deploy.sh")
	assert.Contains(t, sums, "  destroy.sh")

	mismatched, err := checksum.Verify(dir)
	require.NoError(t, err)
	assert.Empty(t, mismatched)
}

func TestGenerateErrors(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name  string
		ctx   context.Context
		input *GeneratorInput
		code  errors.ErrorCode
	}{
		{name: "nil input", ctx: context.Background(), input: nil, code: errors.ErrCodeInvalidRequest},
		{name: "no components", ctx: context.Background(), input: &GeneratorInput{}, code: errors.ErrCodeInvalidRequest},
		{name: "cancelled", ctx: cancelled, input: &GeneratorInput{Components: testComponents()}, code: errors.ErrCodeTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGenerator().Generate(tt.ctx, tt.input, t.TempDir())
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.CodeOf(err))
		})
	}
}

func assertOrdered(t *testing.T, s string, parts []string) {
	t.Helper()
	last := -1
	for _, p := range parts {
		i := strings.Index(s, p)
		require.GreaterOrEqual(t, i, 0, "missing %q", p)
		assert.Greater(t, i, last, "%q out of order", p)
		last = i
	}
}
