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

package types

import (
	"fmt"
	"path"
	"strings"

	"github.com/homelab-stack/homelab/pkg/component"
)

// DeployerType selects the artefacts the bundler emits for the external
// engine that applies the stack.
type DeployerType string

const (
	// DeployerHelm emits deploy.sh and destroy.sh driving helm and kubectl.
	DeployerHelm DeployerType = "helm"

	// DeployerArgoCD emits Argo CD Applications and an App of Apps.
	DeployerArgoCD DeployerType = "argocd"
)

// String returns the string representation of the deployer type.
func (d DeployerType) String() string {
	return string(d)
}

// ParseDeployerType converts a string to a DeployerType.
func ParseDeployerType(s string) (DeployerType, error) {
	switch DeployerType(strings.ToLower(strings.TrimSpace(s))) {
	case DeployerHelm:
		return DeployerHelm, nil
	case DeployerArgoCD:
		return DeployerArgoCD, nil
	default:
		return "", fmt.Errorf("unsupported deployer type %q (must be one of %s)",
			s, strings.Join(SupportedDeployersAsStrings(), ", "))
	}
}

// SupportedDeployers returns all supported deployer types.
func SupportedDeployers() []DeployerType {
	return []DeployerType{DeployerHelm, DeployerArgoCD}
}

// SupportedDeployersAsStrings returns all supported deployer types as strings.
func SupportedDeployersAsStrings() []string {
	types := SupportedDeployers()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

// Component is a rendered bundle as the deployers see it. Paths are
// slash separated and relative to the stack output directory.
type Component struct {
	Name      string
	Namespace string
	Stage     string
	Wave      int
	DependsOn []string

	CRDURLs []string
	Charts  []component.Chart

	// Manifests are the manifest files in apply order.
	Manifests []string
}

// ValuesPath returns the values file written for the chart release.
func (c Component) ValuesPath(release string) string {
	return path.Join(c.Name, component.ValuesDir, release+".yaml")
}

// ManifestsPath returns the manifests directory of the component.
func (c Component) ManifestsPath() string {
	return path.Join(c.Name, component.ManifestsDir)
}

// HasManifests reports whether the component rendered any objects.
func (c Component) HasManifests() bool {
	return len(c.Manifests) > 0
}

// CRDURLs returns the CRD URLs of all components in order, without
// duplicates.
func CRDURLs(components []Component) []string {
	seen := map[string]bool{}
	var out []string
	for _, c := range components {
		for _, u := range c.CRDURLs {
			if !seen[u] {
				seen[u] = true
				out = append(out, u)
			}
		}
	}
	return out
}
