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

package prometheusoperator

import (
	"context"

	"github.com/homelab-stack/homelab/pkg/component"
	"github.com/homelab-stack/homelab/pkg/defaults"
)

const (
	// Name is the component name.
	Name = "prometheus-operator"

	// Namespace is shared by every monitoring component.
	Namespace = "monitoring"

	// Repository hosts the prometheus-operator-crds chart.
	Repository = "https://prometheus-community.github.io/helm-charts"

	// APIVersion of the monitoring.coreos.com resources.
	APIVersion = "monitoring.coreos.com/v1"

	// Image is the operator image repository.
	Image = "quay.io/prometheus-operator/prometheus-operator"

	// ReloaderImage is the config reloader the operator injects.
	ReloaderImage = "quay.io/prometheus-operator/prometheus-config-reloader"
)

func init() {
	component.MustRegister(&Component{})
}

// Component installs the monitoring.coreos.com CRDs and the operator.
type Component struct{}

func (c *Component) Name() string { return Name }

func (c *Component) Stage() component.Stage { return component.StageMonitoring }

func (c *Component) DependsOn() []string { return nil }

func (c *Component) Enabled(env *component.Environment) bool {
	return env.Enabled(Name, true)
}

func (c *Component) Build(ctx context.Context, env *component.Environment) (*component.Bundle, error) {
	values, err := env.ChartValues(Name, map[string]any{})
	if err != nil {
		return nil, err
	}

	version := env.Version(defaults.KeyPrometheusOperator)
	b := component.NewBundle(c, Namespace)
	b.Charts = []component.Chart{{
		Release:    "prometheus-operator-crds",
		Repository: Repository,
		Name:       "prometheus-operator-crds",
		Version:    env.Version(defaults.KeyPrometheusCRDs),
		Namespace:  Namespace,
		Values:     values,
	}}
	b.Add(component.AmbientNamespace(Namespace))
	b.Add(rbac()...)
	b.Add(
		deployment(version, env.Version(defaults.KeyKubeRBACProxy)),
		service(),
	)
	return b, ctx.Err()
}
