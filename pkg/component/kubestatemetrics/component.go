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

package kubestatemetrics

import (
	"context"

	"github.com/homelab-stack/homelab/pkg/component"
	"github.com/homelab-stack/homelab/pkg/component/prometheusoperator"
	"github.com/homelab-stack/homelab/pkg/defaults"
)

const (
	// Name is the component name.
	Name = "kube-state-metrics"

	// Image is the kube-state-metrics image repository.
	Image = "registry.k8s.io/kube-state-metrics/kube-state-metrics"
)

func init() {
	component.MustRegister(&Component{})
}

// Component exports object state metrics for the whole cluster.
type Component struct{}

func (c *Component) Name() string { return Name }

func (c *Component) Stage() component.Stage { return component.StageMonitoring }

func (c *Component) DependsOn() []string { return []string{prometheusoperator.Name} }

func (c *Component) Enabled(env *component.Environment) bool {
	return env.Enabled(Name, true)
}

func (c *Component) Build(ctx context.Context, env *component.Environment) (*component.Bundle, error) {
	b := component.NewBundle(c, prometheusoperator.Namespace)
	b.Add(rbac()...)
	b.Add(
		deployment(env.Version(defaults.KeyKubeStateMetrics)),
		service(),
		prometheusoperator.ServiceMonitor(Name,
			prometheusoperator.Endpoint{Port: "http-metrics", Interval: "30s", ScrapeTimeout: "30s"},
			prometheusoperator.Endpoint{Port: "telemetry", Interval: "30s", ScrapeTimeout: "30s"},
		),
	)
	return b, ctx.Err()
}
