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

package config

import (
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/homelab-stack/homelab/pkg/bundler/types"
	"github.com/homelab-stack/homelab/pkg/defaults"
)

// DefaultRepoRevision is the Git revision Argo CD Applications track.
const DefaultRepoRevision = "HEAD"

// Config provides immutable configuration for the bundler.
// Build it with NewConfig and functional options; read it through getters.
type Config struct {
	// deployer selects the artefacts rendered for the external engine.
	deployer types.DeployerType

	// repoURL is the Git repository Argo CD reads the stack from.
	repoURL string

	// repoRevision is the Git revision Argo CD tracks.
	repoRevision string

	// includeReadme includes README documentation.
	includeReadme bool

	// includeChecksums includes checksum files for verification.
	includeChecksums bool

	// failFast stops the render at the first failed component.
	failFast bool

	// concurrency caps parallel component renders.
	concurrency int

	// version specifies the bundler version.
	version string

	// runID identifies one render in stack.yaml and logs.
	runID string

	// only limits the render to these components and their dependencies.
	only []string

	// valueOverrides contains --set expressions keyed by chart release.
	valueOverrides map[string][]string
}

// Deployer returns the deployer type.
func (c *Config) Deployer() types.DeployerType {
	return c.deployer
}

// RepoURL returns the Git repository URL for Argo CD.
func (c *Config) RepoURL() string {
	return c.repoURL
}

// RepoRevision returns the Git revision for Argo CD.
func (c *Config) RepoRevision() string {
	return c.repoRevision
}

// IncludeReadme returns the include readme setting.
func (c *Config) IncludeReadme() bool {
	return c.includeReadme
}

// IncludeChecksums returns the include checksums setting.
func (c *Config) IncludeChecksums() bool {
	return c.includeChecksums
}

// FailFast returns whether the first component failure aborts the render.
func (c *Config) FailFast() bool {
	return c.failFast
}

// Concurrency returns the maximum number of parallel component renders.
func (c *Config) Concurrency() int {
	return c.concurrency
}

// Version returns the bundler version.
func (c *Config) Version() string {
	return c.version
}

// RunID returns the render identifier.
func (c *Config) RunID() string {
	return c.runID
}

// Only returns a copy of the component filter.
func (c *Config) Only() []string {
	return slices.Clone(c.only)
}

// ValueOverrides returns a deep copy of the value overrides.
func (c *Config) ValueOverrides() map[string][]string {
	if len(c.valueOverrides) == 0 {
		return nil
	}
	out := make(map[string][]string, len(c.valueOverrides))
	for release, exprs := range c.valueOverrides {
		out[release] = slices.Clone(exprs)
	}
	return out
}

// Validate checks if the Config has valid settings.
func (c *Config) Validate() error {
	if _, err := types.ParseDeployerType(string(c.deployer)); err != nil {
		return err
	}
	if c.concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.concurrency)
	}
	if c.runID == "" {
		return fmt.Errorf("run ID cannot be empty")
	}
	for release := range c.valueOverrides {
		if release == "" {
			return fmt.Errorf("value overrides require a release name")
		}
	}
	return nil
}

// Option configures a Config.
type Option func(*Config)

// WithDeployer sets the deployer type.
func WithDeployer(d types.DeployerType) Option {
	return func(c *Config) {
		c.deployer = d
	}
}

// WithRepoURL sets the Git repository URL used in Argo CD Applications.
func WithRepoURL(url string) Option {
	return func(c *Config) {
		c.repoURL = url
	}
}

// WithRepoRevision sets the Git revision used in Argo CD Applications.
func WithRepoRevision(rev string) Option {
	return func(c *Config) {
		if rev != "" {
			c.repoRevision = rev
		}
	}
}

// WithIncludeReadme sets whether READMEs are written.
func WithIncludeReadme(enabled bool) Option {
	return func(c *Config) {
		c.includeReadme = enabled
	}
}

// WithIncludeChecksums sets whether checksums.txt files are written.
func WithIncludeChecksums(enabled bool) Option {
	return func(c *Config) {
		c.includeChecksums = enabled
	}
}

// WithFailFast sets whether the first failed component aborts the render.
func WithFailFast(enabled bool) Option {
	return func(c *Config) {
		c.failFast = enabled
	}
}

// WithConcurrency caps parallel component renders.
func WithConcurrency(n int) Option {
	return func(c *Config) {
		c.concurrency = n
	}
}

// WithVersion sets the bundler version.
func WithVersion(version string) Option {
	return func(c *Config) {
		c.version = version
	}
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(c *Config) {
		if id != "" {
			c.runID = id
		}
	}
}

// WithOnly limits the render to the named components and their dependencies.
func WithOnly(names ...string) Option {
	return func(c *Config) {
		c.only = append(c.only, names...)
	}
}

// WithValueOverrides adds --set expressions keyed by chart release.
func WithValueOverrides(overrides map[string][]string) Option {
	return func(c *Config) {
		for _, release := range slices.Sorted(maps.Keys(overrides)) {
			c.valueOverrides[release] = append(c.valueOverrides[release], overrides[release]...)
		}
	}
}

// NewConfig returns a Config with default values.
func NewConfig(options ...Option) *Config {
	c := &Config{
		deployer:         types.DeployerHelm,
		repoRevision:     DefaultRepoRevision,
		includeReadme:    true,
		includeChecksums: true,
		failFast:         true,
		concurrency:      defaults.RenderConcurrency,
		version:          "dev",
		runID:            uuid.NewString(),
		valueOverrides:   make(map[string][]string),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}
