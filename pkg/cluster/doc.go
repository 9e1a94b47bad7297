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

// Package cluster installs and removes k3s on the configured nodes and
// hands the resulting kubeconfig to the workstation.
//
// Install runs the upstream installer over SSH. The first server is started
// with --cluster-init (embedded etcd); the remaining servers and all agents
// join it. The join token is never placed on a command line: it is written
// to /etc/rancher/k3s/cluster-token (0600) and passed with --token-file or
// K3S_TOKEN_FILE. When no token is configured the first server generates
// one and Install reads it back before joining the others.
//
// Every server disables the bundled traefik, servicelb and local-storage,
// which the rendered stack replaces with Istio, MetalLB and Longhorn.
package cluster
