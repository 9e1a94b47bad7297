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

package k8sgateway

import (
	"context"
	"net"

	"github.com/homelab-stack/homelab/pkg/component"
	"github.com/homelab-stack/homelab/pkg/defaults"
	"github.com/homelab-stack/homelab/pkg/errors"
)

const (
	// Name is the component name.
	Name = "k8s-gateway"

	// Namespace is shared by the DNS components.
	Namespace = "home-dns"

	// Repository is the k8s-gateway chart repository.
	Repository = "https://k8s-gateway.github.io/k8s_gateway"
)

func init() {
	component.MustRegister(&Component{})
}

// Component answers queries for the homelab domain from HTTPRoute hostnames.
type Component struct{}

func (c *Component) Name() string { return Name }

func (c *Component) Stage() component.Stage { return component.StageDNS }

func (c *Component) DependsOn() []string { return []string{"istio", "metallb"} }

func (c *Component) Enabled(env *component.Environment) bool {
	return env.Enabled(Name, true)
}

func (c *Component) Build(ctx context.Context, env *component.Environment) (*component.Bundle, error) {
	if net.ParseIP(env.K8sGatewayIP) == nil {
		return nil, errors.Newf(errors.ErrCodeInvalidConfig,
			"k8s-gateway requires a fixed ClusterIP, got %q", env.K8sGatewayIP)
	}

	values, err := env.ChartValues(Name, map[string]any{
		"domain":           env.Domain,
		"watchedResources": []any{"HTTPRoute"},
		"gatewayClass":     component.GatewayClassName,
		"service": map[string]any{
			"type":      "ClusterIP",
			"clusterIP": env.K8sGatewayIP,
			"port":      53,
		},
		"rbac": map[string]any{"create": true},
	})
	if err != nil {
		return nil, err
	}

	b := component.NewBundle(c, Namespace)
	b.Charts = []component.Chart{{
		Release:    Name,
		Repository: Repository,
		Name:       "k8s-gateway",
		Version:    env.Version(defaults.KeyK8sGateway),
		Namespace:  Namespace,
		Values:     values,
	}}
	b.Add(component.AmbientNamespace(Namespace))
	b.Notes = append(b.Notes, "Resolves *."+env.Domain+" on "+env.K8sGatewayIP+":53 inside the cluster.")
	return b, ctx.Err()
}
