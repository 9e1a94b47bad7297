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

// Package config loads the infrastructure description (infra.yaml).
//
// The file lists the nodes to provision, SSH defaults, MetalLB address pools,
// Tailscale credentials, application settings and optional version pins.
// Secrets can be supplied through HOMELAB_* environment variables instead of
// the file:
//
//	HOMELAB_CLUSTER_TOKEN
//	HOMELAB_SSH_PASSWORD
//	HOMELAB_TAILSCALE_OPERATOR_CLIENT_ID / _SECRET
//	HOMELAB_TAILSCALE_ADMIN_CLIENT_ID / _SECRET
//
// Load applies defaults and validates; a config without a server node fails
// with INVALID_CONFIG.
package config
