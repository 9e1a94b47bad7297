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

package prometheusoperator

import (
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/utils/ptr"

	"github.com/homelab-stack/homelab/pkg/component"
)

var all = []string{"*"}

func rbac() []runtime.Object {
	sa := component.ServiceAccount(Name, Namespace, Name)
	sa.AutomountServiceAccountToken = ptr.To(false)

	role, binding := component.ClusterRBAC(Name, Namespace, Name, []rbacv1.PolicyRule{
		{
			APIGroups: []string{"monitoring.coreos.com"},
			Resources: []string{
				"alertmanagers", "alertmanagers/finalizers", "alertmanagers/status", "alertmanagerconfigs",
				"prometheuses", "prometheuses/finalizers", "prometheuses/status",
				"prometheusagents", "prometheusagents/finalizers", "prometheusagents/status",
				"thanosrulers", "thanosrulers/finalizers", "thanosrulers/status",
				"scrapeconfigs", "servicemonitors", "servicemonitors/status",
				"podmonitors", "probes", "prometheusrules",
			},
			Verbs: all,
		},
		{APIGroups: []string{"apps"}, Resources: []string{"statefulsets"}, Verbs: all},
		{APIGroups: []string{""}, Resources: []string{"configmaps", "secrets"}, Verbs: all},
		{APIGroups: []string{""}, Resources: []string{"pods"}, Verbs: []string{"list", "delete"}},
		{APIGroups: []string{""}, Resources: []string{"services", "services/finalizers", "endpoints"}, Verbs: []string{"get", "create", "update", "delete"}},
		{APIGroups: []string{""}, Resources: []string{"nodes"}, Verbs: []string{"list", "watch"}},
		{APIGroups: []string{""}, Resources: []string{"namespaces"}, Verbs: []string{"get", "list", "watch"}},
		{APIGroups: []string{""}, Resources: []string{"events"}, Verbs: []string{"patch", "create"}},
		{APIGroups: []string{"networking.k8s.io"}, Resources: []string{"ingresses"}, Verbs: []string{"get", "list", "watch"}},
		{APIGroups: []string{"storage.k8s.io"}, Resources: []string{"storageclasses"}, Verbs: []string{"get"}},
		{APIGroups: []string{"authentication.k8s.io"}, Resources: []string{"tokenreviews"}, Verbs: []string{"create"}},
		{APIGroups: []string{"authorization.k8s.io"}, Resources: []string{"subjectaccessreviews"}, Verbs: []string{"create"}},
	})
	return []runtime.Object{sa, role, binding}
}

func deployment(version, proxyVersion string) *appsv1.Deployment {
	return &appsv1.Deployment{
		ObjectMeta: component.ObjectMeta(Name, Namespace, Name),
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To[int32](1),
			Selector: component.Selector(Name),
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels:      component.Labels(Name),
					Annotations: map[string]string{"kubectl.kubernetes.io/default-container": Name},
				},
				Spec: corev1.PodSpec{
					AutomountServiceAccountToken: ptr.To(true),
					ServiceAccountName:           Name,
					NodeSelector:                 map[string]string{corev1.LabelOSStable: "linux"},
					SecurityContext: &corev1.PodSecurityContext{
						RunAsGroup:     ptr.To[int64](65534),
						RunAsNonRoot:   ptr.To(true),
						RunAsUser:      ptr.To[int64](65534),
						SeccompProfile: &corev1.SeccompProfile{Type: corev1.SeccompProfileTypeRuntimeDefault},
					},
					Containers: []corev1.Container{
						{
							Name:  Name,
							Image: Image + ":v" + version,
							Args: []string{
								"--kubelet-service=kube-system/kubelet",
								"--prometheus-config-reloader=" + ReloaderImage + ":v" + version,
								"--kubelet-endpoints=true",
								"--kubelet-endpointslice=false",
							},
							Env:             []corev1.EnvVar{{Name: "GOGC", Value: "30"}},
							Ports:           []corev1.ContainerPort{{Name: "http", ContainerPort: 8080}},
							Resources:       component.Resources("10m", "32Mi", "100m", "64Mi"),
							SecurityContext: Restricted(),
						},
						RBACProxy(proxyVersion, ":8443", "http://127.0.0.1:8080/", 8443),
					},
				},
			},
		},
	}
}

func service() *corev1.Service {
	return HeadlessService(Name, 8443)
}
