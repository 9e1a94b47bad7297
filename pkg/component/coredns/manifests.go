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

package coredns

import (
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"

	"github.com/homelab-stack/homelab/pkg/component"
	"github.com/homelab-stack/homelab/pkg/component/k8sgateway"
	"github.com/homelab-stack/homelab/pkg/component/metallb"
)

const configDir = "/etc/coredns"

func configMap(corefile, blocklist string) *corev1.ConfigMap {
	return &corev1.ConfigMap{
		ObjectMeta: component.ObjectMeta(AppName, k8sgateway.Namespace, AppName),
		Data: map[string]string{
			"Corefile":  corefile,
			"blocklist": blocklist,
		},
	}
}

func port(name string, port int32, proto corev1.Protocol) corev1.ContainerPort {
	return corev1.ContainerPort{Name: name, ContainerPort: port, Protocol: proto}
}

func probe(path, port string, delay int32) *corev1.Probe {
	return &corev1.Probe{
		ProbeHandler: corev1.ProbeHandler{
			HTTPGet: &corev1.HTTPGetAction{
				Path:   path,
				Port:   intstr.FromString(port),
				Scheme: corev1.URISchemeHTTP,
			},
		},
		InitialDelaySeconds: delay,
		TimeoutSeconds:      5,
	}
}

func deployment(version string) *appsv1.Deployment {
	one := intstr.FromInt32(1)
	return &appsv1.Deployment{
		ObjectMeta: component.ObjectMeta(AppName, k8sgateway.Namespace, AppName),
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To[int32](2),
			Selector: component.Selector(AppName),
			Strategy: appsv1.DeploymentStrategy{
				Type: appsv1.RollingUpdateDeploymentStrategyType,
				RollingUpdate: &appsv1.RollingUpdateDeployment{
					MaxSurge:       &one,
					MaxUnavailable: &one,
				},
			},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: component.Labels(AppName)},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{{
						Name:  "coredns",
						Image: Image + ":" + version,
						Args:  []string{"-conf", configDir + "/Corefile"},
						Ports: []corev1.ContainerPort{
							port("dns", 53, corev1.ProtocolTCP),
							port("dns-udp", 53, corev1.ProtocolUDP),
							port("health", 8080, corev1.ProtocolTCP),
							port("ready", 8181, corev1.ProtocolTCP),
							port("metrics", 9153, corev1.ProtocolTCP),
						},
						LivenessProbe:  probe("/health", "health", 10),
						ReadinessProbe: probe("/ready", "ready", 5),
						Resources:      component.Resources("100m", "128Mi", "500m", "256Mi"),
						VolumeMounts: []corev1.VolumeMount{{
							Name:      "config",
							MountPath: configDir,
							ReadOnly:  true,
						}},
					}},
					Volumes: []corev1.Volume{{
						Name: "config",
						VolumeSource: corev1.VolumeSource{
							ConfigMap: &corev1.ConfigMapVolumeSource{
								LocalObjectReference: corev1.LocalObjectReference{Name: AppName},
							},
						},
					}},
				},
			},
		},
	}
}

func service(pool string) *corev1.Service {
	svc := component.Service(AppName, k8sgateway.Namespace, AppName,
		corev1.ServicePort{Name: "dns-tcp", Port: 53, Protocol: corev1.ProtocolTCP, TargetPort: intstr.FromString("dns")},
		corev1.ServicePort{Name: "dns-udp", Port: 53, Protocol: corev1.ProtocolUDP, TargetPort: intstr.FromString("dns-udp")},
		component.TCPPort("metrics", 9153),
	)
	svc.Spec.Type = corev1.ServiceTypeLoadBalancer
	svc.Annotations = map[string]string{metallb.PoolAnnotation: pool}
	return svc
}
