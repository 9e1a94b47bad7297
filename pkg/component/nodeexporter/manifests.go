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
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"

	"github.com/homelab-stack/homelab/pkg/component"
	"github.com/homelab-stack/homelab/pkg/component/prometheusoperator"
)

const (
	ns         = prometheusoperator.Namespace
	listenAddr = "127.0.0.1:9101"
)

// args excludes k3s container mounts and virtual interfaces.
var args = []string{
	"--web.listen-address=" + listenAddr,
	"--path.sysfs=/host/sys",
	"--path.rootfs=/host/root",
	"--path.procfs=/host/root/proc",
	"--path.udev.data=/host/root/run/udev/data",
	"--no-collector.wifi",
	"--no-collector.hwmon",
	"--no-collector.btrfs",
	"--collector.textfile.directory=/host/root" + TextfileDir,
	"--collector.filesystem.mount-points-exclude=^/(dev|proc|sys|run/k3s/containerd/.+|var/lib/docker/.+|var/lib/kubelet/pods/.+)($|/)",
	"--collector.netclass.ignored-devices=^(veth.*|[a-f0-9]{15})$",
	"--collector.netdev.device-exclude=^(veth.*|[a-f0-9]{15})$",
}

func rbac() []runtime.Object {
	sa := component.ServiceAccount(Name, ns, Name)
	sa.AutomountServiceAccountToken = ptr.To(false)
	role, binding := component.ClusterRBAC(Name, ns, Name, []rbacv1.PolicyRule{
		{APIGroups: []string{"authentication.k8s.io"}, Resources: []string{"tokenreviews"}, Verbs: []string{"create"}},
		{APIGroups: []string{"authorization.k8s.io"}, Resources: []string{"subjectaccessreviews"}, Verbs: []string{"create"}},
	})
	return []runtime.Object{sa, role, binding}
}

func hostMount(name, path string) corev1.VolumeMount {
	return corev1.VolumeMount{
		Name:             name,
		MountPath:        path,
		MountPropagation: ptr.To(corev1.MountPropagationHostToContainer),
		ReadOnly:         true,
	}
}

func hostVolume(name, path string) corev1.Volume {
	return corev1.Volume{
		Name:         name,
		VolumeSource: corev1.VolumeSource{HostPath: &corev1.HostPathVolumeSource{Path: path}},
	}
}

func daemonSet(version, proxyVersion string) *appsv1.DaemonSet {
	exporter := corev1.Container{
		Name:      Name,
		Image:     Image + ":v" + version,
		Args:      args,
		Resources: component.Resources("10m", "32Mi", "100m", "64Mi"),
		SecurityContext: func() *corev1.SecurityContext {
			sc := prometheusoperator.Restricted()
			sc.Capabilities.Add = []corev1.Capability{"SYS_TIME"}
			return sc
		}(),
		VolumeMounts: []corev1.VolumeMount{
			hostMount("sys", "/host/sys"),
			hostMount("root", "/host/root"),
		},
	}

	proxy := prometheusoperator.RBACProxy(proxyVersion,
		fmt.Sprintf("[$(IP)]:%d", Port), "http://"+listenAddr+"/", Port)
	proxy.Ports[0].HostPort = Port
	proxy.Ports[0].Protocol = corev1.ProtocolTCP
	proxy.Env = []corev1.EnvVar{{
		Name: "IP",
		ValueFrom: &corev1.EnvVarSource{
			FieldRef: &corev1.ObjectFieldSelector{FieldPath: "status.podIP"},
		},
	}}

	maxUnavailable := intstr.FromString("10%")
	return &appsv1.DaemonSet{
		ObjectMeta: component.ObjectMeta(Name, ns, Name),
		Spec: appsv1.DaemonSetSpec{
			Selector: component.Selector(Name),
			UpdateStrategy: appsv1.DaemonSetUpdateStrategy{
				Type:          appsv1.RollingUpdateDaemonSetStrategyType,
				RollingUpdate: &appsv1.RollingUpdateDaemonSet{MaxUnavailable: &maxUnavailable},
			},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels:      component.Labels(Name),
					Annotations: map[string]string{"kubectl.kubernetes.io/default-container": Name},
				},
				Spec: corev1.PodSpec{
					AutomountServiceAccountToken: ptr.To(true),
					ServiceAccountName:           Name,
					HostNetwork:                  true,
					HostPID:                      true,
					PriorityClassName:            "system-cluster-critical",
					NodeSelector:                 map[string]string{corev1.LabelOSStable: "linux"},
					Tolerations:                  []corev1.Toleration{{Operator: corev1.TolerationOpExists}},
					SecurityContext: &corev1.PodSecurityContext{
						RunAsGroup:   ptr.To[int64](65534),
						RunAsNonRoot: ptr.To(true),
						RunAsUser:    ptr.To[int64](65534),
					},
					Containers: []corev1.Container{exporter, proxy},
					Volumes: []corev1.Volume{
						hostVolume("sys", "/sys"),
						hostVolume("root", "/"),
					},
				},
			},
		},
	}
}
