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

package istio

import (
	"context"
	"fmt"

	"github.com/homelab-stack/homelab/pkg/component"
	"github.com/homelab-stack/homelab/pkg/defaults"
	"github.com/homelab-stack/homelab/pkg/errors"
)

const (
	// Name is the component name.
	Name = "istio"

	// Namespace is the istio control plane namespace.
	Namespace = "istio-system"

	// Repository is the istio chart repository.
	Repository = "https://istio-release.storage.googleapis.com/charts"

	gatewayAPIURL = "https://github.com/kubernetes-sigs/gateway-api/releases/download/v%s/standard-install.yaml"
)

// Releases lists the istio charts in install order.
var Releases = []string{"istio-base", "istiod", "istio-cni", "ztunnel"}

var chartNames = map[string]string{
	"istio-base": "base",
	"istiod":     "istiod",
	"istio-cni":  "cni",
	"ztunnel":    "ztunnel",
}

func init() {
	component.MustRegister(&Component{})
}

// Component installs istio in ambient mode with the Gateway API CRDs.
type Component struct{}

func (c *Component) Name() string { return Name }

func (c *Component) Stage() component.Stage { return component.StageNetwork }

func (c *Component) DependsOn() []string { return nil }

func (c *Component) Enabled(env *component.Environment) bool {
	return env.Enabled(Name, true)
}

// GatewayAPIURL returns the standard Gateway API CRD manifest for version.
func GatewayAPIURL(version string) string {
	return fmt.Sprintf(gatewayAPIURL, version)
}

// Build renders the charts. User values are keyed by release, for example
// components.istio.values.istiod.pilot.replicaCount.
func (c *Component) Build(ctx context.Context, env *component.Environment) (*component.Bundle, error) {
	user := env.UserValues(Name)
	for key := range user {
		if _, ok := chartNames[key]; !ok {
			return nil, errors.Newf(errors.ErrCodeInvalidConfig,
				"components.istio.values.%s: expected one of %v", key, Releases)
		}
	}

	version := env.Version(defaults.KeyIstio)
	b := component.NewBundle(c, Namespace)
	b.CRDURLs = []string{GatewayAPIURL(env.Version(defaults.KeyGatewayAPI))}

	for _, release := range Releases {
		src, _ := user[release].(map[string]any)
		values, err := component.MergeValues(helmValues(release), src)
		if err != nil {
			return nil, err
		}
		b.Charts = append(b.Charts, component.Chart{
			Release:    release,
			Repository: Repository,
			Name:       chartNames[release],
			Version:    version,
			Namespace:  Namespace,
			Values:     values,
		})
	}
	b.Add(component.Namespace(Namespace, nil))
	b.Notes = append(b.Notes,
		"Label a namespace istio.io/dataplane-mode=ambient to enrol it in the mesh.",
		"Gateways of class "+component.GatewayClassName+" are provisioned by istiod.",
	)
	return b, ctx.Err()
}

func resources(reqCPU, reqMem, limCPU, limMem string) map[string]any {
	return map[string]any{
		"requests": map[string]any{"cpu": reqCPU, "memory": reqMem},
		"limits":   map[string]any{"cpu": limCPU, "memory": limMem},
	}
}

func helmValues(release string) map[string]any {
	switch release {
	case "istiod":
		return map[string]any{
			"profile":    "ambient",
			"pilot":      map[string]any{"resources": resources("20m", "64Mi", "200m", "128Mi")},
			"meshConfig": map[string]any{"accessLogFile": "/dev/stdout"},
		}
	case "istio-cni":
		// k3s keeps its CNI config outside the default paths
		return map[string]any{
			"profile": "ambient",
			"global":  map[string]any{"platform": "k3s"},
			"cni": map[string]any{
				"cniConfDir": "/var/lib/rancher/k3s/agent/etc/cni/net.d",
				"cniBinDir":  "/var/lib/rancher/k3s/data/cni",
				"resources":  resources("10m", "32Mi", "100m", "64Mi"),
			},
		}
	case "ztunnel":
		return map[string]any{
			"resources": resources("20m", "96Mi", "200m", "128Mi"),
		}
	default:
		return map[string]any{}
	}
}
