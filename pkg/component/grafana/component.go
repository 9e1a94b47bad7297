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

package grafana

import (
	"context"
	"embed"
	"fmt"

	"github.com/homelab-stack/homelab/pkg/component"
	"github.com/homelab-stack/homelab/pkg/component/certmanager"
	"github.com/homelab-stack/homelab/pkg/component/prometheus"
	"github.com/homelab-stack/homelab/pkg/component/prometheusoperator"
	"github.com/homelab-stack/homelab/pkg/defaults"
)

const (
	// Name is the component name.
	Name = "grafana"

	// Image is the grafana image repository.
	Image = "grafana/grafana"

	// Port is the grafana web port.
	Port = 3000

	// DataSize is the size of the grafana data volume.
	DataSize = "10Gi"

	// ConfigMapName holds grafana.ini and the provisioning files.
	ConfigMapName = "grafana-config"

	// DashboardsConfigMapName holds the dashboard JSON.
	DashboardsConfigMapName = "grafana-dashboards"

	// DataClaimName is the data volume claim.
	DataClaimName = "grafana-data"

	dashboardDir = "/var/lib/grafana/dashboards"
)

var (
	//go:embed templates/*.tmpl
	templates embed.FS

	//go:embed dashboards/*.json
	dashboardFS embed.FS
)

func init() {
	component.MustRegister(&Component{})
}

// Component runs grafana with prometheus as the default datasource.
type Component struct{}

func (c *Component) Name() string { return Name }

func (c *Component) Stage() component.Stage { return component.StageMonitoring }

func (c *Component) DependsOn() []string {
	return []string{prometheus.Name, certmanager.Name}
}

func (c *Component) Enabled(env *component.Environment) bool {
	return env.Enabled(Name, true)
}

// PrometheusURL is the in-cluster datasource address.
func PrometheusURL() string {
	return fmt.Sprintf("http://%s.%s:%d", prometheus.ServiceName, prometheusoperator.Namespace, prometheus.Port)
}

func (c *Component) Build(ctx context.Context, env *component.Environment) (*component.Bundle, error) {
	hostname := env.Hostname(Name)

	cfg, err := configMap(settings{
		Hostname:      hostname,
		PrometheusURL: PrometheusURL(),
		DashboardDir:  dashboardDir,
	})
	if err != nil {
		return nil, err
	}
	dashboards, err := dashboardsConfigMap()
	if err != nil {
		return nil, err
	}
	pvc, err := component.PersistentVolumeClaim(DataClaimName, prometheusoperator.Namespace, Name, env.StorageClass, DataSize)
	if err != nil {
		return nil, err
	}

	b := component.NewBundle(c, prometheusoperator.Namespace)
	b.Add(
		cfg,
		dashboards,
		pvc,
		deployment(env.Version(defaults.KeyGrafana)),
		component.Service(Name, prometheusoperator.Namespace, Name, component.TCPPort("web", Port)),
	)

	web, err := component.GatewayWeb(env, component.Web{
		Name:      Name,
		Namespace: prometheusoperator.Namespace,
		App:       Name,
		Hostname:  hostname,
		Service:   Name,
		Port:      Port,
	})
	if err != nil {
		return nil, err
	}
	b.Add(web...)
	b.Notes = append(b.Notes,
		"Grafana UI: https://"+hostname,
		"Anonymous users are granted the Admin role.",
	)
	return b, ctx.Err()
}
