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
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/homelab-stack/homelab/pkg/bundler/config"
	"github.com/homelab-stack/homelab/pkg/bundler/deployer/argocd"
	"github.com/homelab-stack/homelab/pkg/bundler/deployer/helm"
	"github.com/homelab-stack/homelab/pkg/bundler/result"
	"github.com/homelab-stack/homelab/pkg/bundler/types"
	"github.com/homelab-stack/homelab/pkg/component"
	"github.com/homelab-stack/homelab/pkg/errors"
	"github.com/homelab-stack/homelab/pkg/stack"
)

const (
	// StackFile records what was rendered and in which order.
	StackFile = "stack.yaml"

	// StackAPIVersion versions the StackFile format.
	StackAPIVersion = "homelab.dev/v1"
)

// DefaultBundler renders every enabled component into a bundle directory
// and hands the result to a deployer that emits what the external engine
// runs (helm scripts or Argo CD Applications).
//
// Thread-safety: DefaultBundler is safe for concurrent use as long as each
// Make call writes to a different directory.
type DefaultBundler struct {
	// Config provides bundler-specific configuration including value overrides.
	Config *config.Config

	components []component.Component
}

// Option defines a functional option for configuring DefaultBundler.
type Option func(*DefaultBundler)

// WithConfig sets the bundler configuration.
func WithConfig(cfg *config.Config) Option {
	return func(db *DefaultBundler) {
		if cfg != nil {
			db.Config = cfg
		}
	}
}

// WithComponents replaces the registered components. Mostly for tests.
func WithComponents(components ...component.Component) Option {
	return func(db *DefaultBundler) {
		db.components = components
	}
}

// New creates a new DefaultBundler with the given options.
//
// Example:
//
//	b, err := bundler.New(
//	    bundler.WithConfig(config.NewConfig(
//	        config.WithDeployer(types.DeployerArgoCD),
//	    )),
//	)
func New(opts ...Option) (*DefaultBundler, error) {
	db := &DefaultBundler{
		Config: config.NewConfig(),
	}
	for _, opt := range opts {
		opt(db)
	}
	if db.components == nil {
		db.components = component.All()
	}
	if err := db.Config.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidRequest, "invalid bundler config", err)
	}
	return db, nil
}

// NewWithConfig creates a new DefaultBundler with the given config.
// This is a convenience function equivalent to New(WithConfig(cfg)).
func NewWithConfig(cfg *config.Config) (*DefaultBundler, error) {
	return New(WithConfig(cfg))
}

// Plan resolves the components to render for env, honouring the
// component filter.
func (b *DefaultBundler) Plan(env *component.Environment) (*stack.Plan, error) {
	plan, err := stack.Resolve(b.components, env)
	if err != nil {
		return nil, err
	}
	return plan.Filter(b.Config.Only())
}

// Make renders the stack into dir:
//   - <component>/: manifests, values, files, README.md and checksums.txt
//   - stack.yaml: run ID, version, apply order and waves
//   - deploy.sh and destroy.sh, or app-of-apps.yaml and argocd/
//   - README.md and checksums.txt covering the whole tree
//
// Components render in parallel. Returns a result.Output summarizing the
// generation results.
func (b *DefaultBundler) Make(ctx context.Context, env *component.Environment, dir string) (*result.Output, error) {
	start := time.Now()
	defer func() { renderDuration.Observe(time.Since(start).Seconds()) }()

	if env == nil || env.Config == nil {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "render environment cannot be nil")
	}
	if dir == "" {
		dir = "."
	}

	plan, err := b.Plan(env)
	if err != nil {
		return nil, err
	}
	if plan.Len() == 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "no components are enabled")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to create output directory", err)
	}

	output := &result.Output{
		RunID:     b.Config.RunID(),
		Results:   make([]*result.Result, 0, plan.Len()),
		Errors:    make([]result.BundleError, 0),
		OutputDir: dir,
	}

	slog.Debug("rendering stack",
		"run_id", output.RunID,
		"components", plan.Len(),
		"deployer", b.Config.Deployer(),
		"output_dir", dir,
	)

	components, err := b.renderAll(ctx, env, plan, dir, output)
	if err != nil {
		output.TotalDuration = time.Since(start)
		return output, err
	}
	if err := checkOverrides(components, b.Config.ValueOverrides()); err != nil {
		output.TotalDuration = time.Since(start)
		return output, err
	}

	files := make([]string, 0, output.TotalFiles+1)
	for _, r := range output.Results {
		files = append(files, r.FileList()...)
	}

	stackPath, size, err := b.writeStackFile(env, plan, components, output, dir)
	if err != nil {
		return output, err
	}
	output.AddFiles(1, size)
	files = append(files, stackPath)

	if err := b.deploy(ctx, components, files, dir, output); err != nil {
		return output, err
	}

	output.TotalDuration = time.Since(start)

	slog.Debug("stack rendered",
		"run_id", output.RunID,
		"files", output.TotalFiles,
		"size_bytes", output.TotalSize,
		"duration", output.TotalDuration.Round(time.Millisecond),
	)
	return output, nil
}

// checkOverrides rejects --set keys that match no rendered chart release or
// single-chart component.
func checkOverrides(components []types.Component, overrides map[string][]string) error {
	if len(overrides) == 0 {
		return nil
	}
	bundles := make([]*component.Bundle, 0, len(components))
	for _, c := range components {
		bundles = append(bundles, &component.Bundle{Name: c.Name, Charts: c.Charts})
	}
	if unknown := component.UnmatchedOverrides(bundles, overrides); len(unknown) > 0 {
		return errors.NewWithContext(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("value overrides match no rendered chart: %s", strings.Join(unknown, ", ")),
			map[string]any{"keys": unknown})
	}
	return nil
}

// renderAll builds and writes every planned component with bounded
// parallelism. Results are added to output in plan order.
func (b *DefaultBundler) renderAll(ctx context.Context, env *component.Environment, plan *stack.Plan,
	dir string, output *result.Output) ([]types.Component, error) {

	nodes := plan.Nodes()
	results := make([]*result.Result, len(nodes))
	rendered := make([]types.Component, len(nodes))
	errs := make([]error, len(nodes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.Config.Concurrency())

	for i, n := range nodes {
		g.Go(func() error {
			c, res, err := b.render(gctx, env, n, dir)
			results[i], rendered[i], errs[i] = res, c, err
			if err != nil && b.Config.FailFast() {
				return err
			}
			return nil
		})
	}
	waitErr := g.Wait()

	for i, n := range nodes {
		output.Add(results[i])
		if errs[i] != nil {
			output.Errors = append(output.Errors, result.BundleError{
				Component: n.Name,
				Error:     errs[i].Error(),
			})
		}
	}

	if waitErr != nil {
		return nil, waitErr
	}
	if output.HasErrors() {
		return nil, errors.NewWithContext(errors.ErrCodeInternal,
			fmt.Sprintf("%d component(s) failed to render", len(output.Errors)),
			map[string]any{"components": output.FailedComponents()})
	}
	return rendered, nil
}

// render builds one component and writes its bundle.
func (b *DefaultBundler) render(ctx context.Context, env *component.Environment, n stack.Node,
	dir string) (types.Component, *result.Result, error) {

	c := types.Component{
		Name:      n.Name,
		Stage:     n.Stage.String(),
		Wave:      n.Wave,
		DependsOn: n.DependsOn,
	}

	bundle, err := n.Component.Build(ctx, env)
	if err != nil {
		recordComponentFailure(n.Name)
		res := result.New(n.Name)
		res.Stage = c.Stage
		res.AddError(err)
		return c, res, errors.Wrapf(codeOf(err, errors.ErrCodeInternal), err, "failed to build %s", n.Name)
	}

	res, err := component.WriteBundle(ctx, bundle, dir, component.WriteOptions{
		IncludeReadme:    b.Config.IncludeReadme(),
		IncludeChecksums: b.Config.IncludeChecksums(),
		Overrides:        b.Config.ValueOverrides(),
	})
	if err != nil {
		recordComponentFailure(n.Name)
		res.AddError(err)
		return c, res, errors.Wrapf(codeOf(err, errors.ErrCodeInternal), err, "failed to write %s", n.Name)
	}
	recordComponentRendered(n.Name)

	c.Namespace = bundle.Namespace
	c.CRDURLs = bundle.CRDURLs
	c.Charts = bundle.Charts
	c.Manifests = manifestPaths(dir, n.Name, res.FileList())
	return c, res, nil
}

// manifestPaths returns the files below <dir>/<name>/manifests as slash
// separated paths relative to dir, in the order they were written.
func manifestPaths(dir, name string, files []string) []string {
	prefix := name + "/" + component.ManifestsDir + "/"
	var out []string
	for _, f := range files {
		rel, err := filepath.Rel(dir, f)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)
		if strings.HasPrefix(rel, prefix) {
			out = append(out, rel)
		}
	}
	return out
}

// Stack is the content of stack.yaml.
type Stack struct {
	APIVersion string           `yaml:"apiVersion"`
	RunID      string           `yaml:"runId"`
	Version    string           `yaml:"version"`
	Cluster    string           `yaml:"cluster,omitempty"`
	Domain     string           `yaml:"domain,omitempty"`
	Deployer   string           `yaml:"deployer"`
	Order      []string         `yaml:"order"`
	Waves      [][]string       `yaml:"waves"`
	Components []StackComponent `yaml:"components"`
}

// StackComponent describes one rendered component in stack.yaml.
type StackComponent struct {
	Name      string            `yaml:"name"`
	Stage     string            `yaml:"stage"`
	Wave      int               `yaml:"wave"`
	DependsOn []string          `yaml:"dependsOn,omitempty"`
	Charts    []component.Chart `yaml:"charts,omitempty"`
	Files     int               `yaml:"files"`
	Checksum  string            `yaml:"checksum,omitempty"`
}

// writeStackFile writes stack.yaml and returns its path and size.
func (b *DefaultBundler) writeStackFile(env *component.Environment, plan *stack.Plan,
	components []types.Component, output *result.Output, dir string) (string, int64, error) {

	byName := output.ByComponent()
	s := Stack{
		APIVersion: StackAPIVersion,
		RunID:      output.RunID,
		Version:    b.Config.Version(),
		Cluster:    env.Config.Cluster.Name,
		Domain:     env.Domain,
		Deployer:   b.Config.Deployer().String(),
		Order:      plan.Order(),
		Waves:      plan.Waves(),
	}
	for _, c := range components {
		sc := StackComponent{
			Name:      c.Name,
			Stage:     c.Stage,
			Wave:      c.Wave,
			DependsOn: c.DependsOn,
			Charts:    c.Charts,
		}
		if r, ok := byName[c.Name]; ok {
			sc.Files = len(r.Files)
			sc.Checksum = r.Checksum
		}
		s.Components = append(s.Components, sc)
	}

	data, err := yaml.Marshal(&s)
	if err != nil {
		return "", 0, errors.Wrap(errors.ErrCodeInternal, "failed to serialize stack", err)
	}
	data = append([]byte("# Generated by homelab. Do not edit.\n"), data...)

	path := filepath.Join(dir, StackFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", 0, errors.Wrap(errors.ErrCodeInternal, "failed to write stack file", err)
	}
	slog.Debug("wrote stack file", "path", path)
	return path, int64(len(data)), nil
}

// deploy runs the configured deployer over the rendered components.
func (b *DefaultBundler) deploy(ctx context.Context, components []types.Component, files []string,
	dir string, output *result.Output) error {

	switch b.Config.Deployer() {
	case types.DeployerArgoCD:
		out, err := argocd.NewGenerator().Generate(ctx, &argocd.GeneratorInput{
			Components:       components,
			Files:            files,
			Version:          b.Config.Version(),
			RunID:            b.Config.RunID(),
			RepoURL:          b.Config.RepoURL(),
			TargetRevision:   b.Config.RepoRevision(),
			IncludeReadme:    b.Config.IncludeReadme(),
			IncludeChecksums: b.Config.IncludeChecksums(),
		}, dir)
		if err != nil {
			return errors.Wrap(codeOf(err, errors.ErrCodeInternal), "failed to generate argocd applications", err)
		}
		output.AddFiles(len(out.Files), out.TotalSize)
		output.Deployment = &result.DeploymentInfo{
			Type:  "Argo CD applications",
			Steps: out.DeploymentSteps,
			Notes: out.DeploymentNotes,
		}
	default:
		out, err := helm.NewGenerator().Generate(ctx, &helm.GeneratorInput{
			Components:       components,
			Files:            files,
			Version:          b.Config.Version(),
			RunID:            b.Config.RunID(),
			IncludeReadme:    b.Config.IncludeReadme(),
			IncludeChecksums: b.Config.IncludeChecksums(),
		}, dir)
		if err != nil {
			return errors.Wrap(codeOf(err, errors.ErrCodeInternal), "failed to generate helm scripts", err)
		}
		output.AddFiles(len(out.Files), out.TotalSize)
		output.Deployment = &result.DeploymentInfo{
			Type:  "Helm scripts",
			Steps: out.DeploymentSteps,
		}
	}
	return nil
}

// codeOf returns the code carried by err, or def when it has none.
func codeOf(err error, def errors.ErrorCode) errors.ErrorCode {
	if code := errors.CodeOf(err); code != "" {
		return code
	}
	return def
}
