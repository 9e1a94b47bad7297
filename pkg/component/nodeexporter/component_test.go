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

package nodeexporter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"

	"github.com/homelab-stack/homelab/pkg/component/componenttest"
	"github.com/homelab-stack/homelab/pkg/component/prometheusoperator"
)

func TestBuild(t *testing.T) {
	b := componenttest.Build(t, &Component{}, componenttest.Environment(t, componenttest.MinimalConfig))

	assert.Equal(t, []string{
		"ServiceAccount/node-exporter",
		"ClusterRole/node-exporter",
		"ClusterRoleBinding/node-exporter",
		"DaemonSet/node-exporter",
		"Service/node-exporter",
		"ServiceMonitor/node-exporter",
	}, componenttest.Kinds(t, b))
	assert.Equal(t, []string{prometheusoperator.Name}, b.DependsOn)

	ds := componenttest.Find[*appsv1.DaemonSet](t, b, Name)
	pod := ds.Spec.Template.Spec
	assert.True(t, pod.HostNetwork)
	assert.True(t, pod.HostPID)
	require.Len(t, pod.Containers, 2)

	exporter := pod.Containers[0]
	assert.Contains(t, exporter.Args, "--web.listen-address=127.0.0.1:9101")
	assert.Equal(t, []corev1.Capability{"SYS_TIME"}, exporter.SecurityContext.Capabilities.Add)

	proxy := pod.Containers[1]
	assert.Equal(t, int32(Port), proxy.Ports[0].HostPort)
	assert.Contains(t, proxy.Args, "--upstream=http://127.0.0.1:9101/")
	assert.Equal(t, "status.podIP", proxy.Env[0].ValueFrom.FieldRef.FieldPath)

	svc := componenttest.Find[*corev1.Service](t, b, Name)
	assert.Equal(t, corev1.ClusterIPNone, svc.Spec.ClusterIP)
}

func TestRestrictedNotShared(t *testing.T) {
	b := componenttest.Build(t, &Component{}, componenttest.Environment(t, componenttest.MinimalConfig))
	ds := componenttest.Find[*appsv1.DaemonSet](t, b, Name)
	assert.Empty(t, ds.Spec.Template.Spec.Containers[1].SecurityContext.Capabilities.Add)
	assert.Empty(t, prometheusoperator.Restricted().Capabilities.Add)
}
