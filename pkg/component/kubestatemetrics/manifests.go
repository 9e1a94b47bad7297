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

package kubestatemetrics

import (
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

const ns = prometheusoperator.Namespace

var listWatch = []string{"list", "watch"}

func rbac() []runtime.Object {
	role, binding := component.ClusterRBAC(Name, ns, Name, []rbacv1.PolicyRule{
		{
			APIGroups: []string{""},
			Resources: []string{
				"configmaps", "secrets", "nodes", "pods", "services", "serviceaccounts",
				"resourcequotas", "replicationcontrollers", "limitranges",
				"persistentvolumeclaims", "persistentvolumes", "namespaces", "endpoints",
			},
			Verbs: listWatch,
		},
		{APIGroups: []string{"apps"}, Resources: []string{"statefulsets", "daemonsets", "deployments", "replicasets"}, Verbs: listWatch},
		{APIGroups: []string{"batch"}, Resources: []string{"cronjobs", "jobs"}, Verbs: listWatch},
		{APIGroups: []string{"autoscaling"}, Resources: []string{"horizontalpodautoscalers"}, Verbs: listWatch},
		{APIGroups: []string{"authentication.k8s.io"}, Resources: []string{"tokenreviews"}, Verbs: []string{"create"}},
		{APIGroups: []string{"authorization.k8s.io"}, Resources: []string{"subjectaccessreviews"}, Verbs: []string{"create"}},
		{APIGroups: []string{"policy"}, Resources: []string{"poddisruptionbudgets"}, Verbs: listWatch},
		{APIGroups: []string{"certificates.k8s.io"}, Resources: []string{"certificatesigningrequests"}, Verbs: listWatch},
		{APIGroups: []string{"discovery.k8s.io"}, Resources: []string{"endpointslices"}, Verbs: listWatch},
		{APIGroups: []string{"storage.k8s.io"}, Resources: []string{"storageclasses", "volumeattachments"}, Verbs: listWatch},
		{
			APIGroups: []string{"admissionregistration.k8s.io"},
			Resources: []string{"mutatingwebhookconfigurations", "validatingwebhookconfigurations"},
			Verbs:     listWatch,
		},
		{APIGroups: []string{"networking.k8s.io"}, Resources: []string{"networkpolicies", "ingressclasses", "ingresses"}, Verbs: listWatch},
		{APIGroups: []string{"coordination.k8s.io"}, Resources: []string{"leases"}, Verbs: listWatch},
		{
			APIGroups: []string{"rbac.authorization.k8s.io"},
			Resources: []string{"clusterrolebindings", "clusterroles", "rolebindings", "roles"},
			Verbs:     listWatch,
		},
	})
	return []runtime.Object{component.ServiceAccount(Name, ns, Name), role, binding}
}

// apiAccess mounts a short lived service account token by hand since the
// pod opts out of automounting.
func apiAccess() corev1.Volume {
	return corev1.Volume{
		Name: "kube-api-access",
		VolumeSource: corev1.VolumeSource{
			Projected: &corev1.ProjectedVolumeSource{
				DefaultMode: ptr.To[int32](0o644),
				Sources: []corev1.VolumeProjection{
					{ServiceAccountToken: &corev1.ServiceAccountTokenProjection{
						ExpirationSeconds: ptr.To[int64](3607),
						Path:              "token",
					}},
					{ConfigMap: &corev1.ConfigMapProjection{
						LocalObjectReference: corev1.LocalObjectReference{Name: "kube-root-ca.crt"},
						Items:                []corev1.KeyToPath{{Key: "ca.crt", Path: "ca.crt"}},
					}},
					{DownwardAPI: &corev1.DownwardAPIProjection{
						Items: []corev1.DownwardAPIVolumeFile{{
							Path:     "namespace",
							FieldRef: &corev1.ObjectFieldSelector{APIVersion: "v1", FieldPath: "metadata.namespace"},
						}},
					}},
				},
			},
		},
	}
}

func httpCheck(path string, port int) *corev1.Probe {
	return &corev1.Probe{
		ProbeHandler: corev1.ProbeHandler{
			HTTPGet: &corev1.HTTPGetAction{Path: path, Port: intstr.FromInt(port)},
		},
		InitialDelaySeconds: 5,
		TimeoutSeconds:      5,
	}
}

func deployment(version string) *appsv1.Deployment {
	sc := prometheusoperator.Restricted()
	sc.RunAsNonRoot = ptr.To(true)
	sc.RunAsUser = ptr.To[int64](65534)
	sc.SeccompProfile = &corev1.SeccompProfile{Type: corev1.SeccompProfileTypeRuntimeDefault}

	return &appsv1.Deployment{
		ObjectMeta: component.ObjectMeta(Name, ns, Name),
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To[int32](1),
			Selector: component.Selector(Name),
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: component.Labels(Name)},
				Spec: corev1.PodSpec{
					AutomountServiceAccountToken: ptr.To(false),
					ServiceAccountName:           Name,
					NodeSelector:                 map[string]string{corev1.LabelOSStable: "linux"},
					SecurityContext: &corev1.PodSecurityContext{
						FSGroup:      ptr.To[int64](65534),
						RunAsGroup:   ptr.To[int64](65534),
						RunAsNonRoot: ptr.To(true),
						RunAsUser:    ptr.To[int64](65534),
					},
					Containers: []corev1.Container{{
						Name:  Name,
						Image: Image + ":v" + version,
						Ports: []corev1.ContainerPort{
							{Name: "http-metrics", ContainerPort: 8080},
							{Name: "telemetry", ContainerPort: 8081},
						},
						LivenessProbe:   httpCheck("/healthz", 8080),
						ReadinessProbe:  httpCheck("/", 8081),
						Resources:       component.Resources("10m", "32Mi", "250m", "256Mi"),
						SecurityContext: sc,
						VolumeMounts: []corev1.VolumeMount{{
							Name:      "kube-api-access",
							MountPath: "/var/run/secrets/kubernetes.io/serviceaccount",
							ReadOnly:  true,
						}},
					}},
					Volumes: []corev1.Volume{apiAccess()},
				},
			},
		},
	}
}

func service() *corev1.Service {
	return component.Service(Name, ns, Name,
		component.TCPPort("http-metrics", 8080),
		component.TCPPort("telemetry", 8081),
	)
}
