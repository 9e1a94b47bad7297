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

// Package oci packages a rendered stack directory as an OCI artifact and
// pushes it to a registry with ORAS.
//
// The artifact is an OCI 1.1 manifest with artifact type
// application/vnd.homelab.stack.v1 and a single reproducible tar+gzip layer
// holding the whole directory. Argo CD and Flux can source it directly.
//
// # Usage
//
//	ref, err := oci.ParseOutputTarget("oci://ghcr.io/me/homelab-stack:v1")
//	if err != nil {
//	    return err
//	}
//	result, err := oci.PackageAndPush(ctx, oci.OutputConfig{
//	    SourceDir: "./stack",
//	    Reference: ref,
//	    Version:   version,
//	})
//
// Package alone writes an OCI image layout to disk, which is useful for
// inspection and tests.
//
// # Authentication
//
// Credentials come from the Docker configuration (~/.docker/config.json)
// through the ORAS credentials package. PlainHTTP targets local registries;
// InsecureTLS skips certificate verification.
package oci
