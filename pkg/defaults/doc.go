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

// Package defaults centralises timeouts and pinned component versions.
//
// Timeouts are grouped by concern:
//
//   - SSH timeouts: dialing nodes, running remote commands, waiting for reboots
//   - Kubernetes timeouts: API calls and node readiness
//   - Rendering limits: overall render deadline and bundle concurrency
//
// Versions are the chart, image and CRD release pins used when infra.yaml
// does not override them:
//
//	v := defaults.Versions()
//	v[defaults.KeyIstio] // "1.26.3"
package defaults
