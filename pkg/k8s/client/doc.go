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

// Package client builds Kubernetes clients for the homelab cluster.
//
// The kubeconfig is resolved in this order:
//
//  1. the explicit path argument
//  2. the KUBECONFIG environment variable (first entry)
//  3. ~/.kube/config
//
// The CLI always runs outside the cluster, so there is no in-cluster
// fallback; a missing kubeconfig is a NOT_FOUND error.
//
//	clientset, config, err := client.BuildKubeClient("")
//	if err != nil {
//	    return err
//	}
//	nodes, err := clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
package client
