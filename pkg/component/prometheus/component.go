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

package prometheus

import (
	"context"

	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/homelab-stack/homelab/pkg/component"
	"github.com/homelab-stack/homelab/pkg/component/certmanager"
	"github.com/homelab-stack/homelab/pkg/component/longhorn"
	"github.com/homelab-stack/homelab/pkg/component/prometheusoperator"
	"github.com/homelab-stack/homelab/pkg/defaults"
	"github.com/homelab-stack/homelab/pkg/errors"
)

const (
	// Name is the component name.
	Name = "prometheus"

	// Instance is the name of the Prometheus resource.
	Instance = "k8s"

	// ServiceName is the in-cluster address Grafana queries.
	ServiceName = "prometheus-k8s"

	// Port is the Prometheus web port.
	Port = 9090

	// Image is the prometheus image repository.
	Image = "quay.io/prometheus/prometheus"
)

func init() {
	component.MustRegister(&Component{})
}

// Component runs a single Prometheus that scrapes every ServiceMonitor.
type Component struct{}

func (c *Component) Name() string { return Name }

func (c *Component) Stage() component.Stage { return component.StageMonitoring }

func (c *Component) DependsOn() []string {
	return []string{prometheusoperator.Name, longhorn.Name, certmanager.Name}
}

func (c *Component) Enabled(env *component.Environment) bool {
	return env.Enabled(Name, true)
}

func (c *Component) Build(ctx context.Context, env *component.Environment) (*component.Bundle, error) {
	mon := env.Config.Monitoring
	size, err := resource.ParseQuantity(mon.StorageSize)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfig, err, "invalid monitoring.storageSize %q", mon.StorageSize)
	}

	b := component.NewBundle(c, prometheusoperator.Namespace)
	b.Add(rbac()...)
	b.Add(
		instance(env.Version(defaults.KeyPrometheus), mon.Retention, env.StorageClass, size),
		service(),
	)

	web, err := component.GatewayWeb(env, component.Web{
		Name:      Name,
		Namespace: prometheusoperator.Namespace,
		App:       Name,
		Hostname:  env.Hostname("prometheus"),
		Service:   ServiceName,
		Port:      Port,
	})
	if err != nil {
		return nil, err
	}
	b.Add(web...)
	b.Notes = append(b.Notes,
		"Prometheus UI: https://"+env.Hostname("prometheus"),
		"Retention "+mon.Retention+" on a "+size.String()+" "+env.StorageClass+" volume.",
	)
	return b, ctx.Err()
}
