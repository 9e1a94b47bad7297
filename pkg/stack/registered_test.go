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

package stack_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homelab-stack/homelab/pkg/component"
	_ "github.com/homelab-stack/homelab/pkg/component/certmanager"
	"github.com/homelab-stack/homelab/pkg/component/componenttest"
	_ "github.com/homelab-stack/homelab/pkg/component/coredns"
	_ "github.com/homelab-stack/homelab/pkg/component/grafana"
	_ "github.com/homelab-stack/homelab/pkg/component/homeassistant"
	_ "github.com/homelab-stack/homelab/pkg/component/istio"
	_ "github.com/homelab-stack/homelab/pkg/component/k8sgateway"
	_ "github.com/homelab-stack/homelab/pkg/component/kubestatemetrics"
	_ "github.com/homelab-stack/homelab/pkg/component/kubevip"
	_ "github.com/homelab-stack/homelab/pkg/component/longhorn"
	_ "github.com/homelab-stack/homelab/pkg/component/metallb"
	_ "github.com/homelab-stack/homelab/pkg/component/nodeexporter"
	_ "github.com/homelab-stack/homelab/pkg/component/prometheus"
	_ "github.com/homelab-stack/homelab/pkg/component/prometheusoperator"
	_ "github.com/homelab-stack/homelab/pkg/component/syncthing"
	_ "github.com/homelab-stack/homelab/pkg/component/tailscale"
	"github.com/homelab-stack/homelab/pkg/stack"
)

// TestRegisteredComponents resolves every registered component together.
func TestRegisteredComponents(t *testing.T) {
	env := componenttest.Environment(t, componenttest.MinimalConfig+`
tailscale:
  operator:
    clientId: id
    clientSecret: secret
apps:
  homeassistant:
    enabled: true
  syncthing:
    enabled: true
`)
	p, err := stack.Resolve(component.All(), env)
	require.NoError(t, err)
	assert.Equal(t, len(component.All()), p.Len())

	order := p.Order()
	assert.Equal(t, "kube-vip", order[0])
	assert.Equal(t, "cert-manager", order[1])

	var last component.Stage
	for _, n := range p.Nodes() {
		assert.GreaterOrEqual(t, n.Stage, last, "%s is out of stage order", n.Name)
		last = n.Stage
	}
}

func TestMinimalStack(t *testing.T) {
	env := componenttest.Environment(t, componenttest.MinimalConfig)
	p, err := stack.Resolve(component.All(), env)
	require.NoError(t, err)
	assert.NotContains(t, p.Order(), "tailscale")
	assert.NotContains(t, p.Order(), "homeassistant")
	assert.Contains(t, p.Order(), "longhorn-ui")
}
