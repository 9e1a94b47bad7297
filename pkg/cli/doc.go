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

// Package cli implements the homelab command-line interface.
//
// # Commands
//
// render - Render the stack:
//
//	homelab render --output ./stack [--deployer helm|argocd] [--push oci://ghcr.io/me/stack:v1]
//
// Renders every enabled component and writes deploy.sh/destroy.sh, or Argo CD
// Applications with sync waves when --deployer argocd is given.
//
// components - List the components, their stage and dependencies.
//
// pki init - Create or load the CA chain cert-manager issues from.
//
// node bootstrap - Prepare nodes over SSH (boot config, cgroups, packages).
//
// cluster up|down|kubeconfig|token|status - Install, remove and inspect k3s.
//
// vpn acl [apply] - Print the tailnet policy the Tailscale operator needs, or
// replace the tailnet policy with it using the admin OAuth client.
//
// homeassistant extract - Convert the UI managed Home Assistant configuration
// of the running pod to YAML files.
//
// # Global Flags
//
//	--config, -c   Infrastructure config (default: infra.yaml, env: HOMELAB_CONFIG)
//	--log-level    Log level: debug, info, warn, error (env: LOG_LEVEL)
//	--help, -h     Show command help
//	--version, -v  Show version information
//
// # Exit Codes
//
//	0  Success
//	1  General error (invalid arguments, execution failure)
//	2  Context canceled or timeout
//
// Version information is embedded at build time using ldflags:
//
//	go build -ldflags="-X 'github.com/homelab-stack/homelab/pkg/cli.version=1.0.0'"
package cli
