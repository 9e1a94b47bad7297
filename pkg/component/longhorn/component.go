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

package longhorn

import (
	"context"

	"github.com/homelab-stack/homelab/pkg/component"
	"github.com/homelab-stack/homelab/pkg/component/certmanager"
	"github.com/homelab-stack/homelab/pkg/component/istio"
	"github.com/homelab-stack/homelab/pkg/defaults"
)

const (
	// Name is the component name.
	Name = "longhorn"

	// UIName is the component exposing the longhorn UI through the mesh.
	UIName = "longhorn-ui"

	// Namespace is the longhorn system namespace.
	Namespace = "longhorn-system"

	// Repository is the longhorn chart repository.
	Repository = "https://charts.longhorn.io"

	// StorageClass is the default class the chart installs.
	StorageClass = "longhorn"

	// Frontend is the UI service created by the chart.
	Frontend = "longhorn-frontend"

	webName = "longhorn-webui"
)

func init() {
	component.MustRegister(&Component{})
	component.MustRegister(&UI{})
}

// Component installs longhorn as the default storage class.
type Component struct{}

func (c *Component) Name() string { return Name }

func (c *Component) Stage() component.Stage { return component.StageStorage }

func (c *Component) DependsOn() []string { return []string{certmanager.Name} }

func (c *Component) Enabled(env *component.Environment) bool {
	return env.Enabled(Name, true)
}

func (c *Component) Build(ctx context.Context, env *component.Environment) (*component.Bundle, error) {
	values, err := env.ChartValues(Name, helmValues(env.StorageClass))
	if err != nil {
		return nil, err
	}

	b := component.NewBundle(c, Namespace)
	b.Charts = []component.Chart{{
		Release:    Name,
		Repository: Repository,
		Name:       "longhorn",
		Version:    env.Version(defaults.KeyLonghorn),
		Namespace:  Namespace,
		Values:     values,
	}}

	b.Add(component.AmbientNamespace(Namespace))

	if env.StorageClass != StorageClass {
		b.Notes = append(b.Notes, "storage.storageClass is "+env.StorageClass+
			", the longhorn class is installed but not marked default.")
	}
	return b, ctx.Err()
}

// UI routes longhorn.<domain> to the chart frontend. The gateway classes
// come from istio, which is brought up after storage.
type UI struct{}

func (u *UI) Name() string { return UIName }

func (u *UI) Stage() component.Stage { return component.StageNetwork }

func (u *UI) DependsOn() []string { return []string{Name, certmanager.Name, istio.Name} }

func (u *UI) Enabled(env *component.Environment) bool {
	return env.Enabled(UIName, env.Enabled(Name, true))
}

func (u *UI) Build(ctx context.Context, env *component.Environment) (*component.Bundle, error) {
	web, err := component.GatewayWeb(env, component.Web{
		Name:      webName,
		Namespace: Namespace,
		App:       Name,
		Hostname:  env.Hostname("longhorn"),
		Service:   Frontend,
		Port:      80,
	})
	if err != nil {
		return nil, err
	}
	b := component.NewBundle(u, Namespace)
	b.Add(web...)
	b.Notes = append(b.Notes, "Longhorn UI: https://"+env.Hostname("longhorn"))
	return b, ctx.Err()
}

func helmValues(defaultClass string) map[string]any {
	return map[string]any{
		"persistence": map[string]any{
			"defaultClass":             defaultClass == StorageClass,
			"defaultFsType":            "ext4",
			"defaultClassReplicaCount": 2,
			"reclaimPolicy":            "Retain",
		},
		"defaultSettings": map[string]any{
			"defaultDataPath": "/var/lib/longhorn",
		},
	}
}
