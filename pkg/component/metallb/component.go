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

package metallb

import (
	"context"
	"strings"

	"k8s.io/apimachinery/pkg/runtime"

	"github.com/homelab-stack/homelab/pkg/component"
	"github.com/homelab-stack/homelab/pkg/config"
	"github.com/homelab-stack/homelab/pkg/defaults"
	"github.com/homelab-stack/homelab/pkg/errors"
)

const (
	// Name is the component name.
	Name = "metallb"

	// Namespace is the metallb system namespace.
	Namespace = "metallb-system"

	// Repository is the metallb chart repository.
	Repository = "https://metallb.github.io/metallb"

	// APIVersion of the address pool resources.
	APIVersion = "metallb.io/v1beta1"

	// AdvertisementName is the L2Advertisement covering every pool.
	AdvertisementName = "homelab"

	// PoolAnnotation selects the pool a LoadBalancer service draws from.
	PoolAnnotation = "metallb.io/address-pool"
)

func init() {
	component.MustRegister(&Component{})
}

// Component installs metallb with L2 address pools for LoadBalancer services.
type Component struct{}

func (c *Component) Name() string { return Name }

func (c *Component) Stage() component.Stage { return component.StageNetwork }

func (c *Component) DependsOn() []string { return nil }

func (c *Component) Enabled(env *component.Environment) bool {
	return env.Enabled(Name, true)
}

func (c *Component) Build(ctx context.Context, env *component.Environment) (*component.Bundle, error) {
	pools := env.Config.Network.AddressPools
	if len(pools) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "metallb requires at least one network.addressPools entry")
	}

	values, err := env.ChartValues(Name, helmValues())
	if err != nil {
		return nil, err
	}

	b := component.NewBundle(c, Namespace)
	b.Charts = []component.Chart{{
		Release:    Name,
		Repository: Repository,
		Name:       "metallb",
		Version:    env.Version(defaults.KeyMetalLB),
		Namespace:  Namespace,
		Values:     values,
	}}
	b.Add(component.Namespace(Namespace, nil))
	b.Add(addressPools(pools)...)
	for _, p := range pools {
		b.Notes = append(b.Notes, "Pool "+p.Name+" serves "+strings.Join(p.Addresses, ", ")+".")
	}
	return b, ctx.Err()
}

func helmValues() map[string]any {
	return map[string]any{
		"controller": map[string]any{
			"resources": map[string]any{
				"limits":   map[string]any{"cpu": "100m", "memory": "128Mi"},
				"requests": map[string]any{"cpu": "10m", "memory": "64Mi"},
			},
		},
		"speaker": map[string]any{
			"resources": map[string]any{
				"limits":   map[string]any{"cpu": "200m", "memory": "128Mi"},
				"requests": map[string]any{"cpu": "50m", "memory": "64Mi"},
			},
		},
	}
}

// addressPools declares an IPAddressPool per pool and one L2Advertisement
// announcing all of them.
func addressPools(pools []config.AddressPool) []runtime.Object {
	objs := make([]runtime.Object, 0, len(pools)+1)
	names := make([]any, 0, len(pools))
	for _, p := range pools {
		addrs := make([]any, 0, len(p.Addresses))
		for _, a := range p.Addresses {
			addrs = append(addrs, a)
		}
		objs = append(objs, component.Custom(APIVersion, "IPAddressPool", p.Name, Namespace, Name,
			map[string]any{"addresses": addrs}))
		names = append(names, p.Name)
	}
	objs = append(objs, component.Custom(APIVersion, "L2Advertisement", AdvertisementName, Namespace, Name,
		map[string]any{"ipAddressPools": names}))
	return objs
}
