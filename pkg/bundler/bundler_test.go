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

package bundler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	corev1 "k8s.io/api/core/v1"

	"github.com/homelab-stack/homelab/pkg/bundler/checksum"
	"github.com/homelab-stack/homelab/pkg/bundler/config"
	"github.com/homelab-stack/homelab/pkg/bundler/deployer/argocd"
	"github.com/homelab-stack/homelab/pkg/bundler/deployer/helm"
	"github.com/homelab-stack/homelab/pkg/bundler/types"
	"github.com/homelab-stack/homelab/pkg/component"
	"github.com/homelab-stack/homelab/pkg/component/componenttest"
	"github.com/homelab-stack/homelab/pkg/errors"
)

type fakeComponent struct {
	name  string
	stage component.Stage
	deps  []string
	chart bool
	err   error
}

func (f *fakeComponent) Name() string { return f.name }
func (f *fakeComponent) Stage() component.Stage { return f.stage }
func (f *fakeComponent) DependsOn() []string { return f.deps }
func (f *fakeComponent) Enabled(*component.Environment) bool { return true }

func (f *fakeComponent) Build(ctx context.Context, _ *component.Environment) (*component.Bundle, error) {
	if f.err != nil {
		return nil, f.err
	}
	ns := f.name + "-system"
	b := component.NewBundle(f, ns)
	if f.chart {
		b.Charts = []component.Chart{{
			Release:    f.name,
			Repository: "https://charts.example.com",
			Name:       f.name,
			Version:    "1.0.0",
			Namespace:  ns,
			Values:     map[string]any{"replicas": 1},
		}}
	}
	b.Add(
		component.Namespace(ns, nil),
		&corev1.ConfigMap{
			ObjectMeta: component.ObjectMeta(f.name, ns, f.name),
			Data:       map[string]string{"name": f.name},
		},
	)
	return b, ctx.Err()
}

// fakeStack is a -> b -> c with a chart on a.
func fakeStack() []component.Component {
	return []component.Component{
		&fakeComponent{name: "c", stage: component.StageApps, deps: []string{"b"}},
		&fakeComponent{name: "b", stage: component.StageNetwork, deps: []string{"a"}},
		&fakeComponent{name: "a", stage: component.StagePKI, chart: true},
	}
}

func testEnv(t *testing.T) *component.Environment {
	t.Helper()
	return componenttest.Environment(t, componenttest.MinimalConfig)
}

func newBundler(t *testing.T, components []component.Component, opts ...config.Option) *DefaultBundler {
	t.Helper()
	b, err := New(
		WithComponents(components...),
		WithConfig(config.NewConfig(append([]config.Option{config.WithRunID("run-1")}, opts...)...)),
	)
	require.NoError(t, err)
	return b
}

func readStack(t *testing.T, dir string) Stack {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, StackFile))
	require.NoError(t, err)
	var s Stack
	require.NoError(t, yaml.Unmarshal(data, &s))
	return s
}

func TestNew(t *testing.T) {
	t.Run("default bundler", func(t *testing.T) {
		b, err := New()
		require.NoError(t, err)
		require.NotNil(t, b.Config)
		assert.Equal(t, types.DeployerHelm, b.Config.Deployer())
	})

	t.Run("with nil config", func(t *testing.T) {
		b, err := New(WithConfig(nil))
		require.NoError(t, err)
		assert.NotNil(t, b.Config)
	})

	t.Run("invalid config", func(t *testing.T) {
		_, err := NewWithConfig(config.NewConfig(config.WithConcurrency(0)))
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeInvalidRequest, errors.CodeOf(err))
	})
}

func TestMakeHelm(t *testing.T) {
	dir := t.TempDir()
	b := newBundler(t, fakeStack(), config.WithVersion("v1.2.3"))

	out, err := b.Make(context.Background(), testEnv(t), dir)
	require.NoError(t, err)

	assert.Equal(t, "run-1", out.RunID)
	assert.Equal(t, dir, out.OutputDir)
	require.Len(t, out.Results, 3)
	for i, name := range []string{"a", "b", "c"} {
		assert.Equal(t, name, out.Results[i].Component)
		assert.True(t, out.Results[i].Success)
		assert.NotEmpty(t, out.Results[i].Checksum)
	}
	assert.Empty(t, out.Errors)
	require.NotNil(t, out.Deployment)
	assert.Equal(t, "Helm scripts", out.Deployment.Type)
	assert.Positive(t, out.TotalSize)
	assert.Contains(t, out.Summary(), "Success: 3/3 components")

	for _, f := range []string{StackFile, helm.DeployScript, helm.DestroyScript, component.ReadmeFile, checksum.FileName} {
		assert.FileExists(t, filepath.Join(dir, f))
	}

	s := readStack(t, dir)
	assert.Equal(t, StackAPIVersion, s.APIVersion)
	assert.Equal(t, "run-1", s.RunID)
	assert.Equal(t, "v1.2.3", s.Version)
	assert.Equal(t, "homelab", s.Cluster)
	assert.Equal(t, "helm", s.Deployer)
	assert.Equal(t, []string{"a", "b", "c"}, s.Order)
	assert.Equal(t, [][]string{{"a"}, {"b"}, {"c"}}, s.Waves)
	require.Len(t, s.Components, 3)
	assert.Equal(t, "a", s.Components[0].Charts[0].Release)
	assert.Equal(t, []string{"a"}, s.Components[1].DependsOn)

	deploy, err := os.ReadFile(filepath.Join(dir, helm.DeployScript))
	require.NoError(t, err)
	assert.Contains(t, string(deploy), "--values 'a/values/a.yaml'")
	assert.Contains(t, string(deploy), "apply -f 'c/manifests/01-configmap-c.yaml'")

	mismatched, err := checksum.Verify(dir)
	require.NoError(t, err)
	assert.Empty(t, mismatched)
	sums, err := os.ReadFile(checksum.Path(dir))
	require.NoError(t, err)
	assert.Contains(t, string(sums), "  stack.yaml")
	assert.Contains(t, string(sums), "  b/manifests/00-namespace-b-system.yaml")
}

func TestMakeArgoCD(t *testing.T) {
	dir := t.TempDir()
	b := newBundler(t, fakeStack(),
		config.WithDeployer(types.DeployerArgoCD),
		config.WithRepoURL("https://git.example.com/homelab.git"),
	)

	out, err := b.Make(context.Background(), testEnv(t), dir)
	require.NoError(t, err)
	assert.Equal(t, "Argo CD applications", out.Deployment.Type)
	assert.Empty(t, out.Deployment.Notes)

	assert.FileExists(t, filepath.Join(dir, argocd.AppOfAppsFile))
	assert.NoFileExists(t, filepath.Join(dir, helm.DeployScript))

	app, err := os.ReadFile(filepath.Join(dir, argocd.AppsDir, "c.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(app), `argocd.argoproj.io/sync-wave: "2"`)
	assert.Contains(t, string(app), "path: c/manifests")
	assert.Equal(t, "argocd", readStack(t, dir).Deployer)
}

func TestMakeOnly(t *testing.T) {
	dir := t.TempDir()
	b := newBundler(t, fakeStack(), config.WithOnly("b"))

	out, err := b.Make(context.Background(), testEnv(t), dir)
	require.NoError(t, err)
	require.Len(t, out.Results, 2)
	assert.Equal(t, []string{"a", "b"}, readStack(t, dir).Order)
	assert.NoDirExists(t, filepath.Join(dir, "c"))

	_, err = newBundler(t, fakeStack(), config.WithOnly("nope")).Make(context.Background(), testEnv(t), t.TempDir())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidRequest, errors.CodeOf(err))
}

func TestMakeValueOverrides(t *testing.T) {
	dir := t.TempDir()
	b := newBundler(t, fakeStack(), config.WithValueOverrides(map[string][]string{
		"a": {"replicas=3", "image.tag=v2"},
	}))

	_, err := b.Make(context.Background(), testEnv(t), dir)
	require.NoError(t, err)

	values, err := os.ReadFile(filepath.Join(dir, "a", component.ValuesDir, "a.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(values), "replicas: 3")
	assert.Contains(t, string(values), "tag: v2")
}

func TestMakeRejectsUnknownOverrides(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{name: "typo", key: "aa"},
		{name: "component without chart", key: "b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBundler(t, fakeStack(), config.WithValueOverrides(map[string][]string{
				"a":    {"replicas=3"},
				tt.key: {"replicas=2"},
			}))
			_, err := b.Make(context.Background(), testEnv(t), t.TempDir())
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeInvalidRequest, errors.CodeOf(err))
			assert.Contains(t, err.Error(), tt.key)
		})
	}

	t.Run("component not selected", func(t *testing.T) {
		b := newBundler(t, fakeStack(), config.WithOnly("b"),
			config.WithValueOverrides(map[string][]string{"c": {"x=1"}}))
		_, err := b.Make(context.Background(), testEnv(t), t.TempDir())
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeInvalidRequest, errors.CodeOf(err))
	})
}

func TestMakeFailFast(t *testing.T) {
	components := fakeStack()
	components[1].(*fakeComponent).err = errors.New(errors.ErrCodeInvalidConfig, "b is misconfigured")
	before := testutil.ToFloat64(componentRenderFailures.WithLabelValues("b"))

	out, err := newBundler(t, components).Make(context.Background(), testEnv(t), t.TempDir())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidConfig, errors.CodeOf(err))
	assert.Contains(t, err.Error(), "failed to build b")
	require.NotNil(t, out)
	assert.Contains(t, out.FailedComponents(), "b")
	assert.Equal(t, before+1, testutil.ToFloat64(componentRenderFailures.WithLabelValues("b")))
}

func TestMakeCollectsAllErrors(t *testing.T) {
	components := fakeStack()
	components[0].(*fakeComponent).err = errors.New(errors.ErrCodeInvalidConfig, "c is misconfigured")
	components[1].(*fakeComponent).err = errors.New(errors.ErrCodeInvalidConfig, "b is misconfigured")
	dir := t.TempDir()

	out, err := newBundler(t, components, config.WithFailFast(false)).Make(context.Background(), testEnv(t), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 component(s) failed")
	assert.ElementsMatch(t, []string{"b", "c"}, out.FailedComponents())
	assert.Equal(t, 1, out.SuccessCount())
	assert.NoFileExists(t, filepath.Join(dir, StackFile))
}

func TestMakeRecordsMetrics(t *testing.T) {
	before := testutil.ToFloat64(componentsRendered.WithLabelValues("a"))
	_, err := newBundler(t, fakeStack()).Make(context.Background(), testEnv(t), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, before+1, testutil.ToFloat64(componentsRendered.WithLabelValues("a")))
}

func TestMakeErrors(t *testing.T) {
	b := newBundler(t, fakeStack())

	_, err := b.Make(context.Background(), nil, t.TempDir())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidRequest, errors.CodeOf(err))

	_, err = newBundler(t, []component.Component{}).Make(context.Background(), testEnv(t), t.TempDir())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidConfig, errors.CodeOf(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = b.Make(ctx, testEnv(t), t.TempDir())
	require.Error(t, err)
}

func TestManifestPaths(t *testing.T) {
	dir := filepath.Join("out")
	files := []string{
		filepath.Join(dir, "grafana", "values", "grafana.yaml"),
		filepath.Join(dir, "grafana", "manifests", "00-namespace-monitoring.yaml"),
		filepath.Join(dir, "grafana", "manifests", "01-configmap-grafana-config.yaml"),
		filepath.Join(dir, "grafana", "README.md"),
	}
	assert.Equal(t, []string{
		"grafana/manifests/00-namespace-monitoring.yaml",
		"grafana/manifests/01-configmap-grafana-config.yaml",
	}, manifestPaths(dir, "grafana", files))
}
