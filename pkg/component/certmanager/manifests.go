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

package certmanager

import (
	certmanagerv1 "github.com/cert-manager/cert-manager/pkg/apis/certmanager/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"

	"github.com/homelab-stack/homelab/pkg/component"
)

func manifests(env *component.Environment) []runtime.Object {
	secret := &corev1.Secret{
		ObjectMeta: component.ObjectMeta(CASecretName, Namespace, Name),
		Type:       corev1.SecretTypeTLS,
		Data: map[string][]byte{
			corev1.TLSPrivateKeyKey: env.CA.KeyPEM,
			corev1.TLSCertKey:       env.CA.ChainPEM,
		},
	}

	issuer := &certmanagerv1.ClusterIssuer{
		ObjectMeta: component.ObjectMeta(env.Issuer.Name, "", Name),
		Spec: certmanagerv1.IssuerSpec{
			IssuerConfig: certmanagerv1.IssuerConfig{
				CA: &certmanagerv1.CAIssuer{
					SecretName: CASecretName,
				},
			},
		},
	}

	return []runtime.Object{
		component.Namespace(Namespace, nil),
		secret,
		issuer,
	}
}
