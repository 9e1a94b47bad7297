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

/*
Package bundler renders the homelab stack into a directory that an
external engine applies.

# Core Components

  - DefaultBundler: resolves the plan and renders every component
  - stack.Plan: apply order and waves of the enabled components
  - component.WriteBundle: writes one component bundle
  - deployer/helm: deploy.sh and destroy.sh
  - deployer/argocd: Applications with sync waves and an App of Apps
  - result.Output: aggregated results of one render
  - config.Config: immutable bundler options

# Quick Start

	env := component.NewEnvironment(cfg, ca)

	b, err := bundler.New()
	if err != nil {
		return err
	}
	output, err := b.Make(ctx, env, "./stack")
	if err != nil {
		return err
	}
	fmt.Println(output.Summary())

Customize with functional options:

	b, err := bundler.New(bundler.WithConfig(config.NewConfig(
		config.WithDeployer(types.DeployerArgoCD),
		config.WithRepoURL("https://github.com/me/homelab-gitops.git"),
		config.WithOnly("grafana"),
	)))

# Output Structure

	stack/
	├── stack.yaml          # run ID, version, order and waves
	├── deploy.sh           # helm deployer
	├── destroy.sh          # helm deployer
	├── README.md
	├── checksums.txt       # every file in the tree
	├── cert-manager/
	│   ├── values/cert-manager.yaml
	│   ├── manifests/00-secret-homelab-ca.yaml
	│   ├── README.md
	│   └── checksums.txt
	└── ...

# Parallel Execution

Components render concurrently with errgroup, at most
config.Concurrency() at a time. Results are reported in plan order.
With FailFast (the default) the first failure cancels the remaining
renders; otherwise every failure is collected in result.Output.Errors
before Make returns an error. Deployer artefacts and stack.yaml are only
written when every component rendered.

# Metrics

  - homelab_render_duration_seconds: wall time of Make
  - homelab_components_rendered_total{component}
  - homelab_component_render_failures_total{component}
*/
package bundler
