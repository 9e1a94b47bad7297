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

package syncthing

import (
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"

	"github.com/homelab-stack/homelab/pkg/component"
	"github.com/homelab-stack/homelab/pkg/component/tailscale"
	"github.com/homelab-stack/homelab/pkg/errors"
)

const (
	homeDir      = "/var/syncthing"
	dataVolume   = "data"
	configVolume = "config-template"
	stagingDir   = "/tmp/syncthing-config"
	userID       = 1000
)

const copyScript = `set -e
mkdir -p ` + homeDir + `/config
cp ` + stagingDir + `/config.xml ` + homeDir + `/config/config.xml
`

func configMap(xmlData string) *corev1.ConfigMap {
	return &corev1.ConfigMap{
		ObjectMeta: component.ObjectMeta(ConfigMapName, Namespace, Name),
		Data:       map[string]string{"config.xml": xmlData},
	}
}

func healthProbe(delay, period int32) *corev1.Probe {
	return &corev1.Probe{
		ProbeHandler: corev1.ProbeHandler{
			HTTPGet: &corev1.HTTPGetAction{
				Path:   "/rest/noauth/health",
				Port:   intstr.FromString("web"),
				Scheme: corev1.URISchemeHTTP,
			},
		},
		InitialDelaySeconds: delay,
		TimeoutSeconds:      10,
		PeriodSeconds:       period,
	}
}

func statefulSet(image, storageClass, storageSize string) (*appsv1.StatefulSet, error) {
	size, err := resource.ParseQuantity(storageSize)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfig, err, "invalid apps.syncthing.storageSize %q", storageSize)
	}
	data := corev1.VolumeMount{Name: dataVolume, MountPath: homeDir}

	return &appsv1.StatefulSet{
		ObjectMeta: component.ObjectMeta(Name, Namespace, Name),
		Spec: appsv1.StatefulSetSpec{
			ServiceName: FrontendService,
			Replicas:    ptr.To[int32](1),
			Selector:    component.Selector(Name),
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: component.Labels(Name)},
				Spec: corev1.PodSpec{
					SecurityContext: &corev1.PodSecurityContext{
						FSGroup:      ptr.To[int64](userID),
						RunAsUser:    ptr.To[int64](userID),
						RunAsGroup:   ptr.To[int64](userID),
						RunAsNonRoot: ptr.To(true),
					},
					InitContainers: []corev1.Container{{
						Name:    "config-init",
						Image:   image,
						Command: []string{"/bin/sh", "-c"},
						Args:    []string{copyScript},
						VolumeMounts: []corev1.VolumeMount{
							data,
							{Name: configVolume, MountPath: stagingDir, ReadOnly: true},
						},
					}},
					Containers: []corev1.Container{{
						Name:  Name,
						Image: image,
						Ports: []corev1.ContainerPort{
							{Name: "web", ContainerPort: WebPort, Protocol: corev1.ProtocolTCP},
							{Name: "sync-tcp", ContainerPort: 22000, Protocol: corev1.ProtocolTCP},
							{Name: "sync-udp", ContainerPort: 22000, Protocol: corev1.ProtocolUDP},
							{Name: "discovery", ContainerPort: 21027, Protocol: corev1.ProtocolUDP},
						},
						Env: []corev1.EnvVar{
							{Name: "PUID", Value: "1000"},
							{Name: "PGID", Value: "1000"},
						},
						LivenessProbe:  healthProbe(30, 60),
						ReadinessProbe: healthProbe(10, 10),
						Resources:      component.Resources("100m", "128Mi", "1000m", "512Mi"),
						VolumeMounts:   []corev1.VolumeMount{data},
					}},
					Volumes: []corev1.Volume{{
						Name: configVolume,
						VolumeSource: corev1.VolumeSource{
							ConfigMap: &corev1.ConfigMapVolumeSource{
								LocalObjectReference: corev1.LocalObjectReference{Name: ConfigMapName},
							},
						},
					}},
				},
			},
			VolumeClaimTemplates: []corev1.PersistentVolumeClaim{{
				ObjectMeta: metav1.ObjectMeta{Name: dataVolume},
				Spec:       component.ClaimSpec(storageClass, size),
			}},
		},
	}, nil
}

func syncService() *corev1.Service {
	svc := component.Service(SyncService, Namespace, Name,
		component.TCPPort("sync-tcp", 22000),
		corev1.ServicePort{Name: "sync-udp", Port: 22000, Protocol: corev1.ProtocolUDP, TargetPort: intstr.FromString("sync-udp")},
		corev1.ServicePort{Name: "discovery", Port: 21027, Protocol: corev1.ProtocolUDP, TargetPort: intstr.FromString("discovery")},
	)
	svc.Spec.Type = corev1.ServiceTypeLoadBalancer
	return svc
}

func tailscaleIngress(hostname string) *networkingv1.Ingress {
	meta := component.ObjectMeta(Name+"-tailscale", Namespace, Name)
	if hostname != "" {
		meta.Annotations = map[string]string{TailscaleHostnameAnnotation: hostname}
	}
	return &networkingv1.Ingress{
		ObjectMeta: meta,
		Spec: networkingv1.IngressSpec{
			IngressClassName: ptr.To(tailscale.IngressClass),
			DefaultBackend: &networkingv1.IngressBackend{
				Service: &networkingv1.IngressServiceBackend{
					Name: FrontendService,
					Port: networkingv1.ServiceBackendPort{Number: WebPort},
				},
			},
			TLS: []networkingv1.IngressTLS{{Hosts: []string{hostname}}},
		},
	}
}
