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

package defaults

// Pinned versions of charts, images and CRD releases. Keys match the
// versions map in infra.yaml, where any of them can be overridden.
const (
	VersionCertManager        = "1.18.2"
	VersionCoreDNS            = "1.12.2"
	VersionGatewayAPI         = "1.2.0"
	VersionGrafana            = "11.6.2"
	VersionHomeAssistant      = "2025.8.1"
	VersionIstio              = "1.26.3"
	VersionK3s                = "v1.33.3+k3s1"
	VersionK8sGateway         = "3.2.3"
	VersionKubeRBACProxy      = "0.19.1"
	VersionKubeStateMetrics   = "2.14.0"
	VersionKubeVip            = "0.9.2"
	VersionLonghorn           = "1.9.1"
	VersionMetalLB            = "0.15.2"
	VersionNodeExporter       = "1.9.1"
	VersionPrometheus         = "3.5.0"
	VersionPrometheusOperator = "0.84.1"
	VersionPrometheusCRDs     = "22.0.2"
	VersionSyncthing          = "1.30.0"
	VersionTailscale          = "1.86.2"
)

// Version keys used in infra.yaml.
const (
	KeyCertManager        = "certManager"
	KeyCoreDNS            = "coredns"
	KeyGatewayAPI         = "gatewayApi"
	KeyGrafana            = "grafana"
	KeyHomeAssistant      = "homeassistant"
	KeyIstio              = "istio"
	KeyK3s                = "k3s"
	KeyK8sGateway         = "k8sGateway"
	KeyKubeRBACProxy      = "kubeRbacProxy"
	KeyKubeStateMetrics   = "kubeStateMetrics"
	KeyKubeVip            = "kubeVip"
	KeyLonghorn           = "longhorn"
	KeyMetalLB            = "metallb"
	KeyNodeExporter       = "nodeExporter"
	KeyPrometheus         = "prometheus"
	KeyPrometheusOperator = "prometheusOperator"
	KeyPrometheusCRDs     = "prometheusOperatorCrds"
	KeySyncthing          = "syncthing"
	KeyTailscale          = "tailscale"
)

// Versions returns a fresh map of all pinned versions keyed by infra.yaml key.
func Versions() map[string]string {
	return map[string]string{
		KeyCertManager:        VersionCertManager,
		KeyCoreDNS:            VersionCoreDNS,
		KeyGatewayAPI:         VersionGatewayAPI,
		KeyGrafana:            VersionGrafana,
		KeyHomeAssistant:      VersionHomeAssistant,
		KeyIstio:              VersionIstio,
		KeyK3s:                VersionK3s,
		KeyK8sGateway:         VersionK8sGateway,
		KeyKubeRBACProxy:      VersionKubeRBACProxy,
		KeyKubeStateMetrics:   VersionKubeStateMetrics,
		KeyKubeVip:            VersionKubeVip,
		KeyLonghorn:           VersionLonghorn,
		KeyMetalLB:            VersionMetalLB,
		KeyNodeExporter:       VersionNodeExporter,
		KeyPrometheus:         VersionPrometheus,
		KeyPrometheusOperator: VersionPrometheusOperator,
		KeyPrometheusCRDs:     VersionPrometheusCRDs,
		KeySyncthing:          VersionSyncthing,
		KeyTailscale:          VersionTailscale,
	}
}
