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

// Package config provides configuration options for the stack bundler.
//
// Config is built with functional options and is read-only afterwards:
//
//	cfg := config.NewConfig(
//	    config.WithDeployer(types.DeployerArgoCD),
//	    config.WithRepoURL("https://github.com/me/homelab-gitops.git"),
//	    config.WithValueOverrides(map[string][]string{
//	        "metallb": {"speaker.logLevel=debug"},
//	    }),
//	)
//
// # Options
//
//   - Deployer: helm (default) or argocd
//   - RepoURL / RepoRevision: Git source for Argo CD Applications
//   - IncludeReadme / IncludeChecksums: documentation and checksums.txt
//   - FailFast: abort at the first failed component (default true)
//   - Concurrency: parallel component renders
//   - Only: render a subset of components plus their dependencies
//   - ValueOverrides: --set expressions keyed by chart release
//   - RunID: render identifier, a random UUID unless set
//   - Version: bundler version recorded in stack.yaml
package config
