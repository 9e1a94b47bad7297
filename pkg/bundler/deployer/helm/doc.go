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

// Package helm renders the stack as a pair of shell scripts driving helm
// and kubectl.
//
// deploy.sh walks the components in plan order. For each one it applies
// the CRD URLs, runs "helm upgrade --install" for every pinned chart with
// the component values file, and applies the manifests in file order.
// destroy.sh walks the same list backwards and undoes each step in reverse.
//
// Usage:
//
//	generator := helm.NewGenerator()
//	input := &helm.GeneratorInput{
//	    Components:       components,
//	    Version:          "1.0.0",
//	    IncludeReadme:    true,
//	    IncludeChecksums: true,
//	}
//	output, err := generator.Generate(ctx, input, "/path/to/output")
package helm
