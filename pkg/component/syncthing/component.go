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

package syncthing

import (
	"context"

	"github.com/homelab-stack/homelab/pkg/component"
	"github.com/homelab-stack/homelab/pkg/component/certmanager"
	"github.com/homelab-stack/homelab/pkg/component/istio"
	"github.com/homelab-stack/homelab/pkg/component/longhorn"
	"github.com/homelab-stack/homelab/pkg/component/tailscale"
	"github.com/homelab-stack/homelab/pkg/defaults"
	"github.com/homelab-stack/homelab/pkg/errors"
)

const (
	// Name is the component name.
	Name = "syncthing"

	// Namespace is the syncthing namespace.
	Namespace = "syncthing"

	// Image is the syncthing image repository.
	Image = "syncthing/syncthing"

	// ConfigMapName holds config.xml.
	ConfigMapName = "syncthing-config"

	// FrontendService serves the web UI.
	FrontendService = "syncthing-frontend"

	// SyncService is the LoadBalancer for peer traffic.
	SyncService = "syncthing-sync"

	// TailscaleHostnameAnnotation names the tailnet machine of an ingress.
	TailscaleHostnameAnnotation = "tailscale.com/hostname"

	// WebPort is the syncthing GUI port.
	WebPort = 8384
)

func init() {
	component.MustRegister(&Component{})
}

// Component runs syncthing with a declarative config.xml.
type Component struct{}

func (c *Component) Name() string { return Name }

func (c *Component) Stage() component.Stage { return component.StageApps }

func (c *Component) DependsOn() []string {
	return []string{longhorn.Name, certmanager.Name, istio.Name}
}

func (c *Component) Enabled(env *component.Environment) bool {
	return env.Enabled(Name, env.Config.Apps.Syncthing.Enabled)
}

func (c *Component) Build(ctx context.Context, env *component.Environment) (*component.Bundle, error) {
	st := env.Config.Apps.Syncthing
	doc, err := NewConfiguration(st)
	if err != nil {
		return nil, err
	}
	xmlData, err := doc.Marshal()
	if err != nil {
		return nil, err
	}

	sts, err := statefulSet(Image+":"+env.Version(defaults.KeySyncthing), env.StorageClass, st.StorageSize)
	if err != nil {
		return nil, err
	}

	b := component.NewBundle(c, Namespace)
	b.Add(
		component.AmbientNamespace(Namespace),
		configMap(string(xmlData)),
		sts,
		component.Service(FrontendService, Namespace, Name, component.TCPPort("web", WebPort)),
		syncService(),
	)

	web, err := component.GatewayWeb(env, component.Web{
		Name:      Name,
		Namespace: Namespace,
		App:       Name,
		Hostname:  st.Hostname,
		Service:   FrontendService,
		Port:      WebPort,
	})
	if err != nil {
		return nil, err
	}
	b.Add(web...)

	if st.Tailscale.Enabled {
		if !(&tailscale.Component{}).Enabled(env) {
			return nil, errors.New(errors.ErrCodeInvalidConfig,
				"apps.syncthing.tailscale.enabled requires the tailscale operator")
		}
		b.Add(tailscaleIngress(st.Tailscale.Hostname))
		b.Notes = append(b.Notes, "Tailnet UI: https://"+st.Tailscale.Hostname)
	}

	b.Notes = append(b.Notes,
		"Syncthing UI: https://"+st.Hostname,
		"config.xml is replaced on every restart; devices and folders added in the UI are not kept.",
	)
	return b, ctx.Err()
}
