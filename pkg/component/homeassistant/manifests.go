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

package homeassistant

import (
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"

	"github.com/homelab-stack/homelab/pkg/component"
	"github.com/homelab-stack/homelab/pkg/errors"
)

const (
	dataVolume   = "data"
	configVolume = "config-files"
	stagingDir   = "/tmp/config"
	userID       = 1000
)

// copyScript seeds /config from the config map and installs custom
// components baked into the image.
const copyScript = `set -e
cp ` + stagingDir + `/*.yaml /config/ 2>/dev/null || true
cp ` + stagingDir + `/*.yml /config/ 2>/dev/null || true
if [ -d /usr/src/homeassistant/custom_components_staging ]; then
  mkdir -p /config/custom_components
  cp -r /usr/src/homeassistant/custom_components_staging/* /config/custom_components/
fi
ls -la /config/*.y*ml 2>/dev/null || echo "no YAML files found"
`

func configMap(files map[string]string) *corev1.ConfigMap {
	return &corev1.ConfigMap{
		ObjectMeta: component.ObjectMeta(ConfigMapName, Namespace, Name),
		Data:       files,
	}
}

func healthCheck(delay, period int32) *corev1.Probe {
	return &corev1.Probe{
		ProbeHandler: corev1.ProbeHandler{
			HTTPGet: &corev1.HTTPGetAction{
				Path:   "/",
				Port:   intstr.FromString("web"),
				Scheme: corev1.URISchemeHTTP,
			},
		},
		InitialDelaySeconds: delay,
		TimeoutSeconds:      10,
		PeriodSeconds:       period,
	}
}

func statefulSet(image, timezone, storageClass, storageSize string) (*appsv1.StatefulSet, error) {
	size, err := resource.ParseQuantity(storageSize)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfig, err, "invalid apps.homeassistant.storageSize %q", storageSize)
	}

	runAs := &corev1.SecurityContext{
		RunAsUser:    ptr.To[int64](userID),
		RunAsGroup:   ptr.To[int64](userID),
		RunAsNonRoot: ptr.To(true),
	}
	data := corev1.VolumeMount{Name: dataVolume, MountPath: "/config"}

	return &appsv1.StatefulSet{
		ObjectMeta: component.ObjectMeta(Name, Namespace, Name),
		Spec: appsv1.StatefulSetSpec{
			ServiceName: ServiceName,
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
						Name:            "config-init",
						Image:           image,
						Command:         []string{"/bin/sh", "-c"},
						Args:            []string{copyScript},
						SecurityContext: runAs,
						VolumeMounts: []corev1.VolumeMount{
							data,
							{Name: configVolume, MountPath: stagingDir, ReadOnly: true},
						},
					}},
					Containers: []corev1.Container{{
						Name:  Name,
						Image: image,
						Ports: []corev1.ContainerPort{{
							Name:          "web",
							ContainerPort: Port,
							Protocol:      corev1.ProtocolTCP,
						}},
						Env:            []corev1.EnvVar{{Name: "TZ", Value: timezone}},
						LivenessProbe:  healthCheck(60, 60),
						ReadinessProbe: healthCheck(30, 10),
						Resources:      component.Resources("100m", "256Mi", "1000m", "1Gi"),
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
