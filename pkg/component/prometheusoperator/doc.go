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

// Package prometheusoperator renders the prometheus-operator CRDs chart and
// the operator deployment into the monitoring namespace.
//
// The package also holds the pieces the other monitoring components share:
// the kube-rbac-proxy sidecar, headless https services and ServiceMonitor
// construction.
package prometheusoperator
