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

/*
Package argocd renders the stack as Argo CD Applications behind an App of
Apps.

Every component becomes one Application per pinned Helm chart, with the
chart values inlined, plus one Application for its manifests directory
when it rendered any objects. All Applications of a component carry the
argocd.argoproj.io/sync-wave annotation of the component's plan wave, so
Argo CD syncs a component only after every component it depends on.

CRDs fetched from URLs are not expressible as an Application source; they
are listed as deployment steps to apply before the App of Apps.

# Usage

	generator := argocd.NewGenerator()

	input := &argocd.GeneratorInput{
		Components:       components,
		Version:          "v0.9.0",
		RepoURL:          "https://github.com/my-org/homelab-gitops.git",
		IncludeChecksums: true,
	}

	output, err := generator.Generate(ctx, input, "/path/to/output")
	if err != nil {
		log.Fatal(err)
	}

# Generated Structure

	output/
	├── app-of-apps.yaml           # Parent application
	├── README.md                  # Deployment instructions
	├── checksums.txt              # SHA256 checksums (optional)
	├── argocd/
	│   ├── cert-manager.yaml      # sync-wave: 0
	│   └── grafana.yaml           # sync-wave: 4
	├── cert-manager/
	│   └── manifests/...
	└── grafana/
	    └── manifests/...

# Configuration

RepoURL and BasePath locate the output directory in Git. If RepoURL is
empty a placeholder is written and a deployment note asks to replace it.
*/
package argocd
