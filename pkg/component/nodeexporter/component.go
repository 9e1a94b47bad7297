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

package nodeexporter

import (
	"context"

	"github.com/homelab-stack/homelab/pkg/component"
	"github.com/homelab-stack/homelab/pkg/component/prometheusoperator"
	"github.com/homelab-stack/homelab/pkg/defaults"
)

const (
	// Name is the component name.
	Name = "node-exporter"

	// Image is the node-exporter image repository.
	Image = "quay.io/prometheus/node-exporter"

	// Port is the host port kube-rbac-proxy serves metrics on.
	Port = 9100

	// TextfileDir is read by the textfile collector. homelab render
	// --metrics-file may point here on a node.
	TextfileDir = "/var/lib/node_exporter/textfile_collector"
)

func init() {
	component.MustRegister(&Component{})
}

// Component runs node-exporter on every node behind kube-rbac-proxy.
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
		daemonSet(env.Version(defaults.KeyNodeExporter), env.Version(defaults.KeyKubeRBACProxy)),
		prometheusoperator.HeadlessService(Name, Port),
		prometheusoperator.ServiceMonitor(Name, prometheusoperator.Endpoint{
			Port:             "https",
			Interval:         "15s",
			HTTPS:            true,
			InstanceFromNode: true,
		}),
	)
	return b, ctx.Err()
}
