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

package defaults

import "time"

// SSH timeouts for node provisioning.
const (
	// SSHDialTimeout bounds a single TCP connect plus SSH handshake.
	SSHDialTimeout = 10 * time.Second

	// SSHCommandTimeout is the default limit for one remote command.
	// The k3s installer downloads binaries, so this is generous.
	SSHCommandTimeout = 10 * time.Minute

	// RebootTimeout is how long a node may take to come back after reboot.
	RebootTimeout = 5 * time.Minute

	// RebootInitialDelay gives the node time to go down before redialing.
	RebootInitialDelay = 5 * time.Second

	// RebootRedialInterval is the minimum spacing between redial attempts.
	RebootRedialInterval = 2 * time.Second
)

// Kubernetes timeouts for cluster health checks.
const (
	// NodeReadyTimeout is the default wait for all nodes to report Ready.
	NodeReadyTimeout = 5 * time.Minute

	// NodeReadyPollInterval is the polling interval while waiting for nodes.
	NodeReadyPollInterval = 5 * time.Second

	// K8sAPITimeout bounds individual API calls.
	K8sAPITimeout = 30 * time.Second

	// HTTPClientTimeout bounds one request to an external HTTP API.
	HTTPClientTimeout = 30 * time.Second
)

// Rendering limits.
const (
	// RenderTimeout bounds a full stack render.
	RenderTimeout = 2 * time.Minute

	// RenderConcurrency caps how many component bundles render in parallel.
	RenderConcurrency = 4
)
