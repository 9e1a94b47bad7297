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
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homelab-stack/homelab/pkg/bundler/types"
	"github.com/homelab-stack/homelab/pkg/defaults"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, types.DeployerHelm, cfg.Deployer())
	assert.Equal(t, DefaultRepoRevision, cfg.RepoRevision())
	assert.Empty(t, cfg.RepoURL())
	assert.True(t, cfg.IncludeReadme())
	assert.True(t, cfg.IncludeChecksums())
	assert.True(t, cfg.FailFast())
	assert.Equal(t, defaults.RenderConcurrency, cfg.Concurrency())
	assert.Equal(t, "dev", cfg.Version())
	assert.Empty(t, cfg.Only())
	assert.Nil(t, cfg.ValueOverrides())

	_, err := uuid.Parse(cfg.RunID())
	require.NoError(t, err)
	assert.NotEqual(t, cfg.RunID(), NewConfig().RunID())
	require.NoError(t, cfg.Validate())
}

func TestNewConfigWithOptions(t *testing.T) {
	cfg := NewConfig(
		WithDeployer(types.DeployerArgoCD),
		WithRepoURL("https://git.example.com/homelab.git"),
		WithRepoRevision("main"),
		WithIncludeReadme(false),
		WithIncludeChecksums(false),
		WithFailFast(false),
		WithConcurrency(1),
		WithVersion("v1.2.3"),
		WithRunID("run-1"),
		WithOnly("grafana"),
		WithOnly("coredns"),
	)

	assert.Equal(t, types.DeployerArgoCD, cfg.Deployer())
	assert.Equal(t, "https://git.example.com/homelab.git", cfg.RepoURL())
	assert.Equal(t, "main", cfg.RepoRevision())
	assert.False(t, cfg.IncludeReadme())
	assert.False(t, cfg.IncludeChecksums())
	assert.False(t, cfg.FailFast())
	assert.Equal(t, 1, cfg.Concurrency())
	assert.Equal(t, "v1.2.3", cfg.Version())
	assert.Equal(t, "run-1", cfg.RunID())
	assert.Equal(t, []string{"grafana", "coredns"}, cfg.Only())
	require.NoError(t, cfg.Validate())
}

func TestEmptyOptionsKeepDefaults(t *testing.T) {
	cfg := NewConfig(WithRunID(""), WithRepoRevision(""))
	assert.NotEmpty(t, cfg.RunID())
	assert.Equal(t, DefaultRepoRevision, cfg.RepoRevision())
}

func TestValueOverrides(t *testing.T) {
	cfg := NewConfig(
		WithValueOverrides(map[string][]string{
			"metallb": {"speaker.logLevel=debug"},
		}),
		WithValueOverrides(map[string][]string{
			"metallb":  {"controller.logLevel=info"},
			"longhorn": {"persistence.defaultClassReplicaCount=2"},
		}),
	)

	got := cfg.ValueOverrides()
	assert.Equal(t, map[string][]string{
		"metallb":  {"speaker.logLevel=debug", "controller.logLevel=info"},
		"longhorn": {"persistence.defaultClassReplicaCount=2"},
	}, got)

	got["metallb"][0] = "mutated"
	delete(got, "longhorn")
	assert.Equal(t, "speaker.logLevel=debug", cfg.ValueOverrides()["metallb"][0])
	assert.Contains(t, cfg.ValueOverrides(), "longhorn")
}

func TestOnlyReturnsCopy(t *testing.T) {
	cfg := NewConfig(WithOnly("grafana"))
	only := cfg.Only()
	only[0] = "mutated"
	assert.Equal(t, []string{"grafana"}, cfg.Only())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr string
	}{
		{
			name:   "valid default config",
			config: NewConfig(),
		},
		{
			name:    "unknown deployer",
			config:  NewConfig(WithDeployer("flux")),
			wantErr: "unsupported deployer",
		},
		{
			name:    "zero concurrency",
			config:  NewConfig(WithConcurrency(0)),
			wantErr: "concurrency",
		},
		{
			name:    "override without release",
			config:  NewConfig(WithValueOverrides(map[string][]string{"": {"a=b"}})),
			wantErr: "release name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
