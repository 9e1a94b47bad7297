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

package prometheus

import (
	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/intstr"

	"github.com/homelab-stack/homelab/pkg/component"
	"github.com/homelab-stack/homelab/pkg/component/prometheusoperator"
)

const ns = prometheusoperator.Namespace

func rbac() []runtime.Object {
	role, binding := component.ClusterRBAC(ServiceName, ns, Name, []rbacv1.PolicyRule{
		{
			APIGroups: []string{""},
			Resources: []string{"nodes", "nodes/metrics", "services", "endpoints", "pods"},
			Verbs:     []string{"get", "list", "watch"},
		},
		{APIGroups: []string{""}, Resources: []string{"configmaps"}, Verbs: []string{"get"}},
		{APIGroups: []string{"networking.k8s.io"}, Resources: []string{"ingresses"}, Verbs: []string{"get", "list", "watch"}},
		{NonResourceURLs: []string{"/metrics", "/metrics/slis"}, Verbs: []string{"get"}},
	})
	return []runtime.Object{component.ServiceAccount(ServiceName, ns, Name), role, binding}
}

// instance declares the Prometheus resource. Empty selectors match every
// monitor, rule and probe in every namespace.
func instance(version, retention, storageClass string, size resource.Quantity) *unstructured.Unstructured {
	everything := func() map[string]any { return map[string]any{} }
	labels := map[string]any{}
	for k, v := range component.Labels(Name) {
		labels[k] = v
	}

	return component.Custom(prometheusoperator.APIVersion, "Prometheus", Instance, ns, Name, map[string]any{
		"image":              Image + ":v" + version,
		"version":            version,
		"replicas":           int64(1),
		"retention":          retention,
		"serviceAccountName": ServiceName,
		"securityContext": map[string]any{
			"fsGroup":      int64(2000),
			"runAsNonRoot": true,
			"runAsUser":    int64(1000),
		},
		"resources": map[string]any{
			"requests": map[string]any{"cpu": "10m", "memory": "64Mi"},
			"limits":   map[string]any{"cpu": "100m", "memory": "128Mi"},
		},
		"storage": map[string]any{
			"volumeClaimTemplate": map[string]any{
				"spec": map[string]any{
					"storageClassName": storageClass,
					"accessModes":      []any{"ReadWriteOnce"},
					"resources": map[string]any{
						"requests": map[string]any{"storage": size.String()},
					},
				},
			},
		},
		"serviceMonitorNamespaceSelector": everything(),
		"serviceMonitorSelector":          everything(),
		"podMonitorNamespaceSelector":     everything(),
		"podMonitorSelector":              everything(),
		"ruleNamespaceSelector":           everything(),
		"ruleSelector":                    everything(),
		"probeNamespaceSelector":          everything(),
		"probeSelector":                   everything(),
		"scrapeConfigNamespaceSelector":   everything(),
		"scrapeConfigSelector":            everything(),
		"nodeSelector":                    map[string]any{corev1.LabelOSStable: "linux"},
		"podMetadata":                     map[string]any{"labels": labels},
	})
}

func service() *corev1.Service {
	svc := component.Service(ServiceName, ns, Name,
		corev1.ServicePort{Name: "web", Port: Port, TargetPort: intstr.FromString("web")},
		corev1.ServicePort{Name: "reloader-web", Port: 8080, TargetPort: intstr.FromString("reloader-web")},
	)
	// pods are labelled by the operator, not by us
	svc.Spec.Selector = map[string]string{"prometheus": Instance}
	svc.Spec.SessionAffinity = corev1.ServiceAffinityClientIP
	return svc
}
