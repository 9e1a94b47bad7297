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

// Package pki maintains the homelab certificate authority chain.
//
// A root authority signs one or more intermediates. Every authority keeps
// its own certificate and the PEM chain up to the root, which is what
// cert-manager needs as tls.crt of its CA issuer secret.
//
//	inter, err := pki.LoadOrCreateChain("pki", pki.DefaultChain)
//
// Files are stored as <slug>.key, <slug>.crt and <slug>.chain.crt.
package pki
