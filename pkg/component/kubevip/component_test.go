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
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"

	"github.com/homelab-stack/homelab/pkg/component"
	"github.com/homelab-stack/homelab/pkg/component/componenttest"
	"github.com/homelab-stack/homelab/pkg/errors"
)

const noVIP = `
nodes:
  - name: rp0
    address: 192.168.1.11
`

func TestEnabled(t *testing.T) {
	c := &Component{}
	assert.True(t, c.Enabled(componenttest.Environment(t, componenttest.MinimalConfig)))
	assert.False(t, c.Enabled(componenttest.Environment(t, noVIP)))
	assert.False(t, c.Enabled(componenttest.Environment(t, componenttest.MinimalConfig+`
components:
  kube-vip:
    enabled: false
`)))
}

func TestBuildWithoutVIP(t *testing.T) {
	_, err := (&Component{}).Build(context.Background(), componenttest.Environment(t, noVIP))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidConfig))
}

func TestBuild(t *testing.T) {
	env := componenttest.Environment(t, componenttest.MinimalConfig)
	b := componenttest.Build(t, &Component{}, env)

	assert.Equal(t, []string{
		"ServiceAccount/kube-vip",
		"ClusterRole/kube-vip",
		"ClusterRoleBinding/kube-vip",
		"DaemonSet/kube-vip",
	}, componenttest.Kinds(t, b))

	binding := componenttest.Find[*rbacv1.ClusterRoleBinding](t, b, Name)
	require.Len(t, binding.Subjects, 1)
	assert.Equal(t, Namespace, binding.Subjects[0].Namespace)

	ds := componenttest.Find[*appsv1.DaemonSet](t, b, Name)
	pod := ds.Spec.Template.Spec
	assert.True(t, pod.HostNetwork)
	assert.Equal(t, "true", pod.NodeSelector[controlPlaneRole])
	require.Len(t, pod.Containers, 1)

	ctr := pod.Containers[0]
	assert.Equal(t, "ghcr.io/kube-vip/kube-vip:v0.9.2", ctr.Image)
	assert.ElementsMatch(t, []corev1.Capability{"NET_ADMIN", "NET_RAW"}, ctr.SecurityContext.Capabilities.Add)

	got := map[string]string{}
	for _, e := range ctr.Env {
		got[e.Name] = e.Value
	}
	want := map[string]string{
		"address":            "192.168.1.10",
		"vip_interface":      "eth0",
		"vip_arp":            "true",
		"vip_leaseduration":  "5",
		"vip_renewdeadline":  "3",
		"vip_retryperiod":    "1",
		"vip_leaderelection": "true",
	}
	for k, v := range want {
		assert.Equal(t, v, got[k], k)
	}
}

func TestBuildInterfaceOverride(t *testing.T) {
	env := componenttest.Environment(t, `
cluster:
  vip: 10.0.0.2
  vipInterface: end0
nodes:
  - name: rp0
    address: 10.0.0.3
`)
	b := componenttest.Build(t, &Component{}, env)
	ds := componenttest.Find[*appsv1.DaemonSet](t, b, Name)

	var iface string
	for _, e := range ds.Spec.Template.Spec.Containers[0].Env {
		if e.Name == "vip_interface" {
			iface = e.Value
		}
	}
	if diff := cmp.Diff("end0", iface); diff != "" {
		t.Errorf("vip_interface mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistered(t *testing.T) {
	c, ok := component.Get(Name)
	require.True(t, ok)
	assert.Equal(t, component.StageCluster, c.Stage())
}
