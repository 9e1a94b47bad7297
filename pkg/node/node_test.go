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

package node

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homelab-stack/homelab/pkg/config"
	"github.com/homelab-stack/homelab/pkg/errors"
	"github.com/homelab-stack/homelab/pkg/remote"
	"github.com/homelab-stack/homelab/pkg/remote/remotetest"
)

const stockCmdline = "console=serial0,115200 console=tty1 root=PARTUUID=0b7d1e3a-02 rootfstype=ext4 fsck.repair=yes rootwait\n"

var fastReboot = []remote.RebootOption{
	remote.WithInitialDelay(0),
	remote.WithRedialInterval(time.Millisecond),
	remote.WithRebootTimeout(time.Second),
}

func newPi() *remotetest.Fake {
	f := remotetest.New()
	f.Outputs[modelPath] = "Raspberry Pi 5 Model B Rev 1.0"
	f.Files[CmdlinePath] = []byte(stockCmdline)
	return f
}

func TestEnableCgroups(t *testing.T) {
	tests := []struct {
		name        string
		in          string
		want        string
		wantUpdated bool
	}{
		{
			name:        "stock",
			in:          "console=tty1 rootwait\n",
			want:        "console=tty1 rootwait cgroup_memory=1 cgroup_enable=memory\n",
			wantUpdated: true,
		},
		{
			name:        "partially enabled",
			in:          "console=tty1 cgroup_memory=1",
			want:        "console=tty1 cgroup_memory=1 cgroup_enable=memory\n",
			wantUpdated: true,
		},
		{
			name:        "already enabled",
			in:          "console=tty1 cgroup_memory=1 cgroup_enable=memory\n",
			want:        "console=tty1 cgroup_memory=1 cgroup_enable=memory\n",
			wantUpdated: false,
		},
		{
			name:        "similar parameter is not a match",
			in:          "cgroup_memory=10",
			want:        "cgroup_memory=10 cgroup_memory=1 cgroup_enable=memory\n",
			wantUpdated: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, updated := EnableCgroups(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantUpdated, updated)
		})
	}
}

func TestRaspberryPi5Bootstrap(t *testing.T) {
	before := newPi()
	after := remotetest.New()
	pi := &RaspberryPi5{Dial: after.Dialer(), RebootOptions: fastReboot}

	r, err := pi.Bootstrap(context.Background(), before)
	require.NoError(t, err)
	assert.Same(t, after, r)

	assert.Equal(t, configTxt, before.Files[ConfigTxtPath])
	assert.Equal(t, eepromConf, before.Files[EEPROMConfPath])
	assert.Contains(t, string(before.Files[CmdlinePath]), "cgroup_memory=1 cgroup_enable=memory")
	assert.True(t, before.Ran(PackagesCommand))
	assert.True(t, before.Ran("rpi-eeprom-config --apply '/boot/firmware/eeprom.conf'"))
	assert.True(t, before.Ran(remote.RebootCommand))
	assert.True(t, before.Closed())
}

func TestRaspberryPi5BootstrapIdempotent(t *testing.T) {
	f := newPi()
	f.Files[ConfigTxtPath] = configTxt
	f.Files[EEPROMConfPath] = eepromConf
	f.Files[CmdlinePath] = []byte("console=tty1 cgroup_memory=1 cgroup_enable=memory\n")

	pi := &RaspberryPi5{}
	r, err := pi.Bootstrap(context.Background(), f)
	require.NoError(t, err)
	assert.Same(t, f, r)

	assert.Empty(t, f.Writes())
	assert.False(t, f.Ran("rpi-eeprom-config"))
	assert.False(t, f.Ran(remote.RebootCommand))
}

func TestRaspberryPi5BootstrapOnlyCmdline(t *testing.T) {
	f := newPi()
	f.Files[ConfigTxtPath] = configTxt
	f.Files[EEPROMConfPath] = eepromConf

	pi := &RaspberryPi5{Dial: f.Dialer(), RebootOptions: fastReboot}
	_, err := pi.Bootstrap(context.Background(), f)
	require.NoError(t, err)

	assert.Equal(t, []string{CmdlinePath}, f.Writes())
	assert.False(t, f.Ran("rpi-eeprom-config"))
	assert.True(t, f.Ran(remote.RebootCommand))
}

func TestRaspberryPi5BootstrapErrors(t *testing.T) {
	t.Run("wrong board", func(t *testing.T) {
		f := newPi()
		f.Outputs[modelPath] = "Raspberry Pi 4 Model B Rev 1.4"
		_, err := (&RaspberryPi5{}).Bootstrap(context.Background(), f)
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeInvalidConfig, errors.CodeOf(err))
		assert.Empty(t, f.Writes())
	})

	t.Run("eeprom apply fails", func(t *testing.T) {
		f := newPi()
		f.Errors["rpi-eeprom-config"] = errors.New(errors.ErrCodeRemoteExec, "exit status 1")
		_, err := (&RaspberryPi5{}).Bootstrap(context.Background(), f)
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeRemoteExec, errors.CodeOf(err))
		assert.False(t, f.Ran(remote.RebootCommand))
	})

	t.Run("missing cmdline", func(t *testing.T) {
		f := newPi()
		delete(f.Files, CmdlinePath)
		_, err := (&RaspberryPi5{}).Bootstrap(context.Background(), f)
		require.Error(t, err)
	})

	t.Run("reboot needs dialer", func(t *testing.T) {
		_, err := (&RaspberryPi5{}).Bootstrap(context.Background(), newPi())
		require.Error(t, err)
		assert.Equal(t, errors.ErrCodeInvalidRequest, errors.CodeOf(err))
	})
}

func TestGenericBootstrap(t *testing.T) {
	f := remotetest.New()
	r, err := Generic{}.Bootstrap(context.Background(), f)
	require.NoError(t, err)
	assert.Same(t, f, r)
	assert.Equal(t, []string{PackagesCommand}, f.Commands())
	assert.Empty(t, f.Writes())
}

func TestFor(t *testing.T) {
	b, err := For(config.Node{Name: "rp0", Board: config.BoardRaspberryPi5}, nil)
	require.NoError(t, err)
	assert.IsType(t, &RaspberryPi5{}, b)

	b, err = For(config.Node{Name: "nuc"}, nil)
	require.NoError(t, err)
	assert.IsType(t, Generic{}, b)

	_, err = For(config.Node{Name: "x", Board: "beaglebone"}, nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidConfig, errors.CodeOf(err))
}

func TestBootstrapAll(t *testing.T) {
	var mu sync.Mutex
	fakes := map[string]*remotetest.Fake{}
	connect := func(_ context.Context, n config.Node) (remote.Runner, error) {
		mu.Lock()
		defer mu.Unlock()
		if f, ok := fakes[n.Name]; ok {
			return f, nil
		}
		f := newPi()
		fakes[n.Name] = f
		return f, nil
	}

	nodes := []config.Node{
		{Name: "rp0", Address: "192.168.1.11", Board: config.BoardRaspberryPi5},
		{Name: "rp1", Address: "192.168.1.12", Board: config.BoardRaspberryPi5},
		{Name: "nuc", Address: "192.168.1.20", Board: config.BoardGeneric},
	}
	require.NoError(t, BootstrapAll(context.Background(), nodes, connect, fastReboot...))

	require.Len(t, fakes, 3)
	assert.True(t, fakes["rp0"].Ran(remote.RebootCommand))
	assert.True(t, fakes["rp1"].Ran(remote.RebootCommand))
	assert.False(t, fakes["nuc"].Ran(remote.RebootCommand))
	for name, f := range fakes {
		assert.True(t, f.Closed(), name)
	}
}

func TestBootstrapAllErrors(t *testing.T) {
	err := BootstrapAll(context.Background(), nil, nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidConfig, errors.CodeOf(err))

	connect := func(context.Context, config.Node) (remote.Runner, error) {
		return nil, errors.New(errors.ErrCodeUnavailable, "connection refused")
	}
	err = BootstrapAll(context.Background(), []config.Node{{Name: "rp0"}}, connect)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUnavailable, errors.CodeOf(err))
}

func TestSystemdDropIn(t *testing.T) {
	b, err := SystemdDropIn(map[string]string{
		"K3S_DEBUG":      "true",
		"CONTAINERD_LOG": "info level",
	})
	require.NoError(t, err)

	out := string(b)
	assert.Contains(t, out, "[Service]")
	assert.Contains(t, out, `Environment="HOMELAB_MANAGED=true"`)
	assert.Contains(t, out, `Environment="CONTAINERD_LOG=info level"`)
	assert.Less(t, strings.Index(out, "CONTAINERD_LOG"), strings.Index(out, "K3S_DEBUG"))

	_, err = SystemdDropIn(map[string]string{"BAD KEY": "x"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidConfig, errors.CodeOf(err))

	_, err = SystemdDropIn(map[string]string{"MULTI": "a\nb"})
	require.Error(t, err)
}

func TestDropInPath(t *testing.T) {
	assert.Equal(t, "/etc/systemd/system/k3s.service.d/10-homelab.conf", DropInPath(config.RoleServer))
	assert.Equal(t, "/etc/systemd/system/k3s-agent.service.d/10-homelab.conf", DropInPath(config.RoleAgent))
}
