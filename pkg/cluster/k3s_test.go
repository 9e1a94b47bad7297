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

package cluster

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homelab-stack/homelab/pkg/config"
	"github.com/homelab-stack/homelab/pkg/errors"
	"github.com/homelab-stack/homelab/pkg/node"
	"github.com/homelab-stack/homelab/pkg/remote"
	"github.com/homelab-stack/homelab/pkg/remote/remotetest"
)

type fleet struct {
	mu    sync.Mutex
	fakes map[string]*remotetest.Fake
	order []string
}

func newFleet() *fleet {
	return &fleet{fakes: map[string]*remotetest.Fake{}}
}

func (f *fleet) get(name string) *remotetest.Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.fakes[name]; ok {
		return r
	}
	r := remotetest.New()
	f.fakes[name] = r
	return r
}

func (f *fleet) connect(_ context.Context, n config.Node) (remote.Runner, error) {
	f.mu.Lock()
	f.order = append(f.order, n.Name)
	f.mu.Unlock()
	return f.get(n.Name), nil
}

func testCluster(f *fleet) *K3s {
	return &K3s{
		Name: "homelab",
		Servers: []config.Node{
			{Name: "rp0", Address: "192.168.1.11", Role: config.RoleServer},
			{Name: "rp1", Address: "192.168.1.12", Role: config.RoleServer, Labels: map[string]string{"zone": "b", "disk": "nvme"}},
		},
		Agents: []config.Node{
			{Name: "rp2", Address: "192.168.1.13", Role: config.RoleAgent, Environment: map[string]string{"K3S_DEBUG": "true"}},
		},
		SANs:    []string{"kube.local", "192.168.1.10"},
		VIP:     "192.168.1.10",
		Version: "v1.33.3+k3s1",
		Connect: f.connect,
	}
}

func TestNew(t *testing.T) {
	cfg := &config.Config{
		Cluster: config.Cluster{Name: "homelab", Token: "s3cret", VIP: "192.168.1.10"},
		Nodes: []config.Node{
			{Name: "rp0", Address: "192.168.1.11"},
			{Name: "rp1", Address: "192.168.1.12", Role: config.RoleAgent},
		},
	}
	k := New(cfg, nil)
	assert.Equal(t, "homelab", k.Name)
	assert.Equal(t, "s3cret", k.Token)
	require.Len(t, k.Servers, 1)
	require.Len(t, k.Agents, 1)
	assert.Contains(t, k.SANs, "k3s.local")
	assert.Contains(t, k.SANs, "192.168.1.10")
	assert.NotEmpty(t, k.Version)
	assert.Equal(t, "https://192.168.1.11:6443", k.JoinURL())
	assert.Equal(t, "192.168.1.10", k.APIAddress())
}

func TestServerCommand(t *testing.T) {
	k := testCluster(newFleet())

	first := k.ServerCommand(k.Servers[0], true, false)
	assert.True(t, strings.HasPrefix(first, "curl -sfL https://get.k3s.io | INSTALL_K3S_VERSION='v1.33.3+k3s1' sh -s - server --cluster-init"))
	assert.NotContains(t, first, "--token-file")
	assert.NotContains(t, first, "--server ")
	assert.Contains(t, first, "--disable=traefik --disable=servicelb --disable=local-storage")
	assert.Contains(t, first, "--tls-san 'kube.local' --tls-san '192.168.1.10'")
	assert.Contains(t, first, "--node-name 'rp0'")

	withToken := k.ServerCommand(k.Servers[0], true, true)
	assert.Contains(t, withToken, "--token-file '/etc/rancher/k3s/cluster-token'")

	join := k.ServerCommand(k.Servers[1], false, true)
	assert.Contains(t, join, "--server 'https://192.168.1.11:6443'")
	assert.NotContains(t, join, "--cluster-init")
	assert.Contains(t, join, "--node-label 'disk=nvme' --node-label 'zone=b'")
}

func TestAgentCommand(t *testing.T) {
	k := testCluster(newFleet())
	cmd := k.AgentCommand(k.Agents[0])
	assert.Equal(t,
		"curl -sfL https://get.k3s.io | INSTALL_K3S_VERSION='v1.33.3+k3s1' K3S_URL='https://192.168.1.11:6443' "+
			"K3S_TOKEN_FILE='/etc/rancher/k3s/cluster-token' sh -s - agent --node-name 'rp2'",
		cmd)
}

func TestInstallGeneratesToken(t *testing.T) {
	f := newFleet()
	f.get("rp0").Files[TokenPath] = []byte("K10abc::server:xyz\n")
	k := testCluster(f)

	require.NoError(t, k.Install(context.Background()))

	rp0 := f.get("rp0")
	assert.NotContains(t, rp0.Writes(), TokenFilePath)
	assert.True(t, rp0.Ran("--cluster-init"))

	for _, name := range []string{"rp1", "rp2"} {
		r := f.get(name)
		assert.Equal(t, "K10abc::server:xyz\n", string(r.Files[TokenFilePath]), name)
		assert.Equal(t, 0o600, int(r.Modes[TokenFilePath]), name)
		assert.True(t, r.Closed(), name)
	}
	assert.True(t, f.get("rp1").Ran("--server 'https://192.168.1.11:6443'"))
	assert.True(t, f.get("rp2").Ran("sh -s - agent"))

	dropIn := f.get("rp2").Files[node.DropInPath(config.RoleAgent)]
	assert.Contains(t, string(dropIn), `Environment="K3S_DEBUG=true"`)

	for _, c := range rp0.Commands() {
		assert.NotContains(t, c, "K10abc")
	}
}

func TestInstallConfiguredToken(t *testing.T) {
	f := newFleet()
	k := testCluster(f)
	k.Token = "configured"

	require.NoError(t, k.Install(context.Background()))

	rp0 := f.get("rp0")
	assert.Equal(t, "configured\n", string(rp0.Files[TokenFilePath]))
	assert.True(t, rp0.Ran("--cluster-init --token-file"))
	assert.False(t, rp0.Ran("sudo cat -- '"+TokenPath+"'"))
}

func TestInstallErrors(t *testing.T) {
	t.Run("no servers", func(t *testing.T) {
		k := testCluster(newFleet())
		k.Servers = nil
		err := k.Install(context.Background())
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeInvalidConfig, errors.CodeOf(err))
	})

	t.Run("installer fails", func(t *testing.T) {
		f := newFleet()
		f.get("rp0").Errors["get.k3s.io"] = errors.New(errors.ErrCodeRemoteExec, "exit status 1")
		k := testCluster(f)
		k.Token = "t"
		err := k.Install(context.Background())
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeRemoteExec, errors.CodeOf(err))
		assert.Equal(t, []string{"rp0"}, f.order)
	})

	t.Run("token missing", func(t *testing.T) {
		f := newFleet()
		err := testCluster(f).Install(context.Background())
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))
	})

	t.Run("invalid environment", func(t *testing.T) {
		f := newFleet()
		k := testCluster(f)
		k.Token = "t"
		k.Agents[0].Environment = map[string]string{"BAD KEY": "x"}
		err := k.Install(context.Background())
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeInvalidConfig, errors.CodeOf(err))
	})
}

func TestUninstall(t *testing.T) {
	f := newFleet()
	k := testCluster(f)
	k.Agents = append(k.Agents, config.Node{Name: "rp3", Address: "192.168.1.14", Role: config.RoleAgent})

	require.NoError(t, k.Uninstall(context.Background()))

	assert.Equal(t, []string{"rp3", "rp2", "rp1", "rp0"}, f.order)
	assert.Equal(t, []string{UninstallCommand(AgentUninstallScript)}, f.get("rp2").Commands())
	assert.Equal(t, []string{UninstallCommand(ServerUninstallScript)}, f.get("rp0").Commands())
	assert.Equal(t,
		"if [ -x '/usr/local/bin/k3s-uninstall.sh' ]; then sudo '/usr/local/bin/k3s-uninstall.sh'; fi",
		UninstallCommand(ServerUninstallScript))
}

func TestReadToken(t *testing.T) {
	f := newFleet()
	f.get("rp0").Files[TokenPath] = []byte("  K10abc  \n")
	token, err := testCluster(f).ReadToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "K10abc", token)

	empty := newFleet()
	empty.get("rp0").Files[TokenPath] = []byte("\n")
	_, err = testCluster(empty).ReadToken(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNotFound, errors.CodeOf(err))
}

func TestKubeconfig(t *testing.T) {
	f := newFleet()
	f.get("rp0").Files[KubeconfigPath] = []byte(k3sKubeconfig)

	data, err := testCluster(f).Kubeconfig(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(data), "server: https://192.168.1.10:6443")
	assert.Contains(t, string(data), "current-context: homelab")
}
