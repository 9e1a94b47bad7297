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

package homeassistant

import (
	"context"
	"strings"

	"github.com/homelab-stack/homelab/pkg/component"
	"github.com/homelab-stack/homelab/pkg/component/certmanager"
	"github.com/homelab-stack/homelab/pkg/component/istio"
	"github.com/homelab-stack/homelab/pkg/component/longhorn"
	"github.com/homelab-stack/homelab/pkg/defaults"
	"github.com/homelab-stack/homelab/pkg/errors"
)

const (
	// Name is the component name.
	Name = "homeassistant"

	// Namespace is the Home Assistant namespace.
	Namespace = "homeassistant"

	// Image is the upstream Home Assistant image repository.
	Image = "ghcr.io/home-assistant/home-assistant"

	// ServiceName is the web service and the StatefulSet governing service.
	ServiceName = "homeassistant-web"

	// ConfigMapName holds the YAML files copied into /config on start.
	ConfigMapName = "homeassistant-config"

	// Port is the Home Assistant web port.
	Port = 8123
)

func init() {
	component.MustRegister(&Component{})
}

// Component runs Home Assistant as a single replica StatefulSet seeded
// from a local configuration directory.
type Component struct{}

func (c *Component) Name() string { return Name }

func (c *Component) Stage() component.Stage { return component.StageApps }

func (c *Component) DependsOn() []string {
	return []string{longhorn.Name, certmanager.Name, istio.Name}
}

func (c *Component) Enabled(env *component.Environment) bool {
	return env.Enabled(Name, env.Config.Apps.HomeAssistant.Enabled)
}

func (c *Component) Build(ctx context.Context, env *component.Environment) (*component.Bundle, error) {
	ha := env.Config.Apps.HomeAssistant
	if ha.ConfigDir == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "apps.homeassistant.configDir is required")
	}
	files, err := LoadConfig(ha.ConfigDir)
	if err != nil {
		return nil, err
	}

	image := ha.Image
	if image == "" {
		image = Image + ":" + env.Version(defaults.KeyHomeAssistant)
	}

	sts, err := statefulSet(image, ha.Timezone, env.StorageClass, ha.StorageSize)
	if err != nil {
		return nil, err
	}

	b := component.NewBundle(c, Namespace)
	b.Add(
		component.AmbientNamespace(Namespace),
		configMap(files),
		sts,
		component.Service(ServiceName, Namespace, Name, component.TCPPort("web", Port)),
	)

	web, err := component.GatewayWeb(env, component.Web{
		Name:      Name,
		Namespace: Namespace,
		App:       Name,
		Hostname:  ha.Hostname,
		Service:   ServiceName,
		Port:      Port,
	})
	if err != nil {
		return nil, err
	}
	b.Add(web...)
	b.Notes = append(b.Notes,
		"Home Assistant UI: https://"+ha.Hostname,
		"Configuration files: "+strings.Join(FileNames(files), ", "),
		"Configuration files are copied into the volume on every restart; edits made in the UI to those files are overwritten.",
	)
	return b, ctx.Err()
}
