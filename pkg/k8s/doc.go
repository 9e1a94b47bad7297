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

// Package k8s groups the Kubernetes API helpers used after k3s is installed.
//
// # Sub-packages
//
// client: builds a clientset from a kubeconfig file
//
//	clientset, _, err := client.BuildKubeClient("")
//	if err != nil {
//	    return err
//	}
//
// node: lists nodes and summarizes their readiness
//
//	nodes, err := node.Summary(ctx, clientset)
//
// Both accept kubernetes.Interface so tests can use
// k8s.io/client-go/kubernetes/fake.
package k8s
