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

package kubevip

import (
	"context"

	"github.com/homelab-stack/homelab/pkg/component"
	"github.com/homelab-stack/homelab/pkg/defaults"
	"github.com/homelab-stack/homelab/pkg/errors"
)

const (
	// Name is the component name.
	Name = "kube-vip"

	// Namespace hosts the DaemonSet next to the control plane.
	Namespace = "kube-system"

	// Image is the kube-vip image repository.
	Image = "ghcr.io/kube-vip/kube-vip"

	// APIServerPort is the port the VIP fronts.
	APIServerPort = 6443
)

func init() {
	component.MustRegister(&Component{})
}

// Component announces the control-plane VIP over ARP from the server nodes.
type Component struct{}

func (c *Component) Name() string { return Name }

func (c *Component) Stage() component.Stage { return component.StageCluster }

func (c *Component) DependsOn() []string { return nil }

// Enabled is true only when a VIP is configured.
func (c *Component) Enabled(env *component.Environment) bool {
	return env.Config.Cluster.VIP != "" && env.Enabled(Name, true)
}

func (c *Component) Build(ctx context.Context, env *component.Environment) (*component.Bundle, error) {
	vip := env.Config.Cluster.VIP
	if vip == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "kube-vip requires cluster.vip")
	}

	b := component.NewBundle(c, Namespace)
	b.Add(rbac()...)
	b.Add(daemonSet(vip, env.Config.Cluster.VIPInterface, env.Version(defaults.KeyKubeVip)))
	b.Notes = append(b.Notes,
		"The API server is reachable on https://"+vip+":6443 once a kube-vip pod holds the lease.",
		"Apply this bundle with a kubeconfig pointing at a server address, not at the VIP.",
	)
	return b, ctx.Err()
}
