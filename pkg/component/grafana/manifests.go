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

package grafana

import (
	"io/fs"
	"path"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"

	"github.com/homelab-stack/homelab/pkg/component"
	"github.com/homelab-stack/homelab/pkg/component/prometheusoperator"
	"github.com/homelab-stack/homelab/pkg/errors"
)

const (
	ns      = prometheusoperator.Namespace
	dataDir = "/var/lib/grafana"
)

type settings struct {
	Hostname      string
	PrometheusURL string
	DashboardDir  string
}

// configFiles maps each key of the config map to its mount path.
var configFiles = map[string]string{
	"grafana.ini":     "/etc/grafana/grafana.ini",
	"datasources.yml": "/etc/grafana/provisioning/datasources/datasources.yml",
	"dashboards.yml":  "/etc/grafana/provisioning/dashboards/dashboards.yml",
}

func configMap(s settings) (*corev1.ConfigMap, error) {
	data := make(map[string]string, len(configFiles))
	for key := range configFiles {
		name := "templates/" + key + ".tmpl"
		tmpl, err := fs.ReadFile(templates, name)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInternal, err, "read %s", name)
		}
		out, err := component.RenderTemplate(string(tmpl), key, s)
		if err != nil {
			return nil, err
		}
		data[key] = out
	}
	return &corev1.ConfigMap{
		ObjectMeta: component.ObjectMeta(ConfigMapName, ns, Name),
		Data:       data,
	}, nil
}

// Dashboards returns the bundled dashboards keyed by file name.
func Dashboards() (map[string]string, error) {
	entries, err := fs.Glob(dashboardFS, "dashboards/*.json")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "list dashboards", err)
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		b, err := fs.ReadFile(dashboardFS, e)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInternal, err, "read %s", e)
		}
		out[path.Base(e)] = string(b)
	}
	return out, nil
}

func dashboardsConfigMap() (*corev1.ConfigMap, error) {
	data, err := Dashboards()
	if err != nil {
		return nil, err
	}
	return &corev1.ConfigMap{
		ObjectMeta: component.ObjectMeta(DashboardsConfigMapName, ns, Name),
		Data:       data,
	}, nil
}

func probe(delay, timeout, period int32) *corev1.Probe {
	return &corev1.Probe{
		ProbeHandler: corev1.ProbeHandler{
			HTTPGet: &corev1.HTTPGetAction{
				Path:   "/api/health",
				Port:   intstr.FromString("web"),
				Scheme: corev1.URISchemeHTTP,
			},
		},
		InitialDelaySeconds: delay,
		TimeoutSeconds:      timeout,
		PeriodSeconds:       period,
		SuccessThreshold:    1,
		FailureThreshold:    3,
	}
}

func deployment(version string) *appsv1.Deployment {
	mounts := []corev1.VolumeMount{}
	for _, key := range []string{"grafana.ini", "datasources.yml", "dashboards.yml"} {
		mounts = append(mounts, corev1.VolumeMount{
			Name:      "config",
			MountPath: configFiles[key],
			SubPath:   key,
			ReadOnly:  true,
		})
	}
	mounts = append(mounts,
		corev1.VolumeMount{Name: "dashboards", MountPath: dashboardDir, ReadOnly: true},
		corev1.VolumeMount{Name: "data", MountPath: dataDir},
	)

	return &appsv1.Deployment{
		ObjectMeta: component.ObjectMeta(Name, ns, Name),
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To[int32](1),
			Selector: component.Selector(Name),
			// ReadWriteOnce data volume cannot be shared by two pods.
			Strategy: appsv1.DeploymentStrategy{Type: appsv1.RecreateDeploymentStrategyType},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: component.Labels(Name)},
				Spec: corev1.PodSpec{
					SecurityContext: &corev1.PodSecurityContext{
						FSGroup:      ptr.To[int64](472),
						RunAsUser:    ptr.To[int64](472),
						RunAsGroup:   ptr.To[int64](472),
						RunAsNonRoot: ptr.To(true),
					},
					Containers: []corev1.Container{{
						Name:  Name,
						Image: Image + ":" + version,
						Ports: []corev1.ContainerPort{{
							Name:          "web",
							ContainerPort: Port,
							Protocol:      corev1.ProtocolTCP,
						}},
						Env:            []corev1.EnvVar{{Name: "GF_SECURITY_ADMIN_USER", Value: "admin"}},
						LivenessProbe:  probe(30, 30, 10),
						ReadinessProbe: probe(5, 3, 5),
						Resources:      component.Resources("100m", "128Mi", "500m", "512Mi"),
						VolumeMounts:   mounts,
					}},
					Volumes: []corev1.Volume{
						configMapVolume("config", ConfigMapName),
						configMapVolume("dashboards", DashboardsConfigMapName),
						{
							Name: "data",
							VolumeSource: corev1.VolumeSource{
								PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{ClaimName: DataClaimName},
							},
						},
					},
				},
			},
		},
	}
}

func configMapVolume(name, configMap string) corev1.Volume {
	return corev1.Volume{
		Name: name,
		VolumeSource: corev1.VolumeSource{
			ConfigMap: &corev1.ConfigMapVolumeSource{
				LocalObjectReference: corev1.LocalObjectReference{Name: configMap},
			},
		},
	}
}
