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

// Package types defines the values shared by the bundler and its deployers.
//
// DeployerType names the artefacts rendered for the external engine:
//
//	d, err := types.ParseDeployerType("argocd")
//	fmt.Println(d) // argocd
//
// Component is the deployer view of one rendered bundle: its plan position
// (stage and wave), the CRD URLs and pinned charts it installs, and the
// manifest files it applies afterwards. Paths are relative to the stack
// output directory so that generated scripts and Applications stay valid
// when the directory is moved or pushed to a Git repository.
package types
