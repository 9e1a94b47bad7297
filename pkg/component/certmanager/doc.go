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

// Package certmanager renders cert-manager and the homelab ClusterIssuer.
//
// The jetstack chart is installed with its CRDs. The intermediate CA from
// pkg/pki is stored in a kubernetes.io/tls secret: tls.key holds the
// intermediate key and tls.crt the full chain up to the root. The
// ClusterIssuer homelab-ca signs every web certificate in the cluster.
package certmanager
