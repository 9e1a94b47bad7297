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
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"

	"github.com/homelab-stack/homelab/pkg/component"
)

// RBACProxyImage is the kube-rbac-proxy image repository.
const RBACProxyImage = "quay.io/brancz/kube-rbac-proxy"

const tlsCipherSuites = "TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256," +
	"TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384," +
	"TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305"

// RBACProxy is a kube-rbac-proxy sidecar serving upstream over TLS on listen.
func RBACProxy(version, listen, upstream string, port int32) corev1.Container {
	return corev1.Container{
		Name:  "kube-rbac-proxy",
		Image: RBACProxyImage + ":v" + version,
		Args: []string{
			"--secure-listen-address=" + listen,
			"--tls-cipher-suites=" + tlsCipherSuites,
			"--upstream=" + upstream,
		},
		Ports: []corev1.ContainerPort{{
			Name:          "https",
			ContainerPort: port,
		}},
		Resources: component.Resources("10m", "20Mi", "20m", "40Mi"),
		SecurityContext: &corev1.SecurityContext{
			AllowPrivilegeEscalation: ptr.To(false),
			Capabilities:             &corev1.Capabilities{Drop: []corev1.Capability{"ALL"}},
			ReadOnlyRootFilesystem:   ptr.To(true),
			RunAsGroup:               ptr.To[int64](65532),
			RunAsNonRoot:             ptr.To(true),
			RunAsUser:                ptr.To[int64](65532),
			SeccompProfile:           &corev1.SeccompProfile{Type: corev1.SeccompProfileTypeRuntimeDefault},
		},
	}
}

// Restricted is the container security context shared by the exporters.
func Restricted() *corev1.SecurityContext {
	return &corev1.SecurityContext{
		AllowPrivilegeEscalation: ptr.To(false),
		Capabilities:             &corev1.Capabilities{Drop: []corev1.Capability{"ALL"}},
		ReadOnlyRootFilesystem:   ptr.To(true),
	}
}

// Endpoint is a ServiceMonitor scrape endpoint.
type Endpoint struct {
	Port          string
	Interval      string
	ScrapeTimeout string

	// HTTPS scrapes through kube-rbac-proxy with the pod service account token.
	HTTPS bool

	// InstanceFromNode relabels instance to the node name.
	InstanceFromNode bool
}

func (e Endpoint) spec() map[string]any {
	out := map[string]any{"port": e.Port}
	if e.Interval != "" {
		out["interval"] = e.Interval
	}
	if e.ScrapeTimeout != "" {
		out["scrapeTimeout"] = e.ScrapeTimeout
	}
	if e.HTTPS {
		out["scheme"] = "https"
		out["bearerTokenFile"] = "/var/run/secrets/kubernetes.io/serviceaccount/token"
		out["tlsConfig"] = map[string]any{"insecureSkipVerify": true}
	}
	if e.InstanceFromNode {
		out["relabelings"] = []any{map[string]any{
			"action":       "replace",
			"regex":        "(.*)",
			"replacement":  "$1",
			"sourceLabels": []any{"__meta_kubernetes_pod_node_name"},
			"targetLabel":  "instance",
		}}
	}
	return out
}

// ServiceMonitor selects the services of app in the monitoring namespace.
func ServiceMonitor(app string, endpoints ...Endpoint) *unstructured.Unstructured {
	eps := make([]any, 0, len(endpoints))
	for _, e := range endpoints {
		eps = append(eps, e.spec())
	}
	return component.Custom(APIVersion, "ServiceMonitor", app, Namespace, app, map[string]any{
		"jobLabel": component.AppLabel,
		"selector": map[string]any{
			"matchLabels": map[string]any{component.AppLabel: app},
		},
		"endpoints": eps,
	})
}

// HeadlessService exposes the https port of app without a cluster IP.
func HeadlessService(app string, port int32) *corev1.Service {
	svc := component.Service(app, Namespace, app, corev1.ServicePort{
		Name:       "https",
		Port:       port,
		TargetPort: intstr.FromString("https"),
	})
	svc.Spec.ClusterIP = corev1.ClusterIPNone
	return svc
}
