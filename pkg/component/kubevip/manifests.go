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
	"strconv"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"

	"github.com/homelab-stack/homelab/pkg/component"
)

const controlPlaneRole = "node-role.kubernetes.io/control-plane"

var readWrite = []string{"list", "get", "watch", "create", "update"}

func rbac() []runtime.Object {
	role, binding := component.ClusterRBAC(Name, Namespace, Name, []rbacv1.PolicyRule{
		{
			APIGroups: []string{""},
			Resources: []string{"services", "endpoints", "nodes"},
			Verbs:     []string{"list", "get", "watch"},
		},
		{
			APIGroups: []string{""},
			Resources: []string{"configmaps"},
			Verbs:     readWrite,
		},
		{
			APIGroups: []string{"coordination.k8s.io"},
			Resources: []string{"leases"},
			Verbs:     readWrite,
		},
	})
	return []runtime.Object{
		component.ServiceAccount(Name, Namespace, Name),
		role,
		binding,
	}
}

// environment is the kube-vip manager configuration in ARP mode with
// control-plane leader election.
func environment(vip, iface string) []corev1.EnvVar {
	kv := [][2]string{
		{"vip_arp", "true"},
		{"port", strconv.Itoa(APIServerPort)},
		{"vip_interface", iface},
		{"vip_cidr", "32"},
		{"cp_enable", "true"},
		{"cp_namespace", Namespace},
		{"vip_ddns", "false"},
		{"svc_enable", "false"},
		{"vip_leaderelection", "true"},
		{"vip_leaseduration", "5"},
		{"vip_renewdeadline", "3"},
		{"vip_retryperiod", "1"},
		{"address", vip},
		{"prometheus_server", ":2112"},
	}
	env := make([]corev1.EnvVar, 0, len(kv))
	for _, e := range kv {
		env = append(env, corev1.EnvVar{Name: e[0], Value: e[1]})
	}
	return env
}

func daemonSet(vip, iface, version string) *appsv1.DaemonSet {
	labels := component.Labels(Name)
	labels["app.kubernetes.io/version"] = version

	return &appsv1.DaemonSet{
		ObjectMeta: component.ObjectMeta(Name, Namespace, Name),
		Spec: appsv1.DaemonSetSpec{
			Selector: component.Selector(Name),
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec: corev1.PodSpec{
					HostNetwork:        true,
					ServiceAccountName: Name,
					NodeSelector:       map[string]string{controlPlaneRole: "true"},
					Tolerations: []corev1.Toleration{
						{Key: controlPlaneRole, Operator: corev1.TolerationOpExists, Effect: corev1.TaintEffectNoSchedule},
						{Key: "node-role.kubernetes.io/master", Operator: corev1.TolerationOpExists, Effect: corev1.TaintEffectNoSchedule},
					},
					Containers: []corev1.Container{{
						Name:            Name,
						Image:           Image + ":v" + version,
						ImagePullPolicy: corev1.PullIfNotPresent,
						Args:            []string{"manager"},
						Env:             environment(vip, iface),
						SecurityContext: &corev1.SecurityContext{
							Capabilities: &corev1.Capabilities{
								Add: []corev1.Capability{"NET_ADMIN", "NET_RAW"},
							},
						},
						Resources: component.Resources("50m", "64Mi", "100m", "128Mi"),
					}},
				},
			},
		},
	}
}
