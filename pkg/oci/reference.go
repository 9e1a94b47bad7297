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

package oci

import (
	"fmt"
	"strings"

	"github.com/distribution/reference"

	"github.com/homelab-stack/homelab/pkg/errors"
)

// URIScheme is the URI scheme for OCI registry output (e.g., "oci://ghcr.io/org/repo:tag").
const URIScheme = "oci://"

// Reference represents a parsed output target, which can be either an OCI registry
// reference or a local directory path.
type Reference struct {
	// IsOCI indicates whether this is an OCI registry reference (true) or local path (false).
	IsOCI bool
	// Registry is the OCI registry host (e.g., "ghcr.io", "localhost:5000").
	Registry string
	// Repository is the image repository path (e.g., "me/homelab-stack").
	Repository string
	// Tag is the image tag. Empty means the caller applies a default.
	Tag string
	// LocalPath is the local directory path for non-OCI output.
	LocalPath string
}

// ParseOutputTarget parses an output target string to detect OCI URI or local directory.
// Plain paths are returned as local targets.
func ParseOutputTarget(target string) (*Reference, error) {
	if !strings.HasPrefix(target, URIScheme) {
		return &Reference{
			IsOCI:     false,
			LocalPath: target,
		}, nil
	}

	ref, err := reference.ParseNormalizedNamed(strings.TrimPrefix(target, URIScheme))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidRequest, "invalid OCI reference", err)
	}
	if _, ok := ref.(reference.Digested); ok {
		return nil, errors.Newf(errors.ErrCodeInvalidRequest, "OCI reference %q must not contain a digest", target)
	}

	registry := reference.Domain(ref)
	repository := reference.Path(ref)

	var tag string
	if tagged, ok := ref.(reference.Tagged); ok {
		tag = tagged.Tag()
	}

	if err := ValidateRegistryReference(registry, repository); err != nil {
		return nil, err
	}

	return &Reference{
		IsOCI:      true,
		Registry:   registry,
		Repository: repository,
		Tag:        tag,
	}, nil
}

// ValidateRegistryReference checks that registry and repository form a valid
// image name. A leading http:// or https:// on the registry is ignored.
func ValidateRegistryReference(registry, repository string) error {
	name := stripProtocol(registry) + "/" + repository
	parsed, err := reference.ParseNormalizedNamed(name)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidRequest, err, "invalid registry reference %q", name)
	}
	if parsed.Name() != name {
		return errors.Newf(errors.ErrCodeInvalidRequest, "registry reference %q is not canonical", name)
	}
	return nil
}

// String returns "oci://registry/repository[:tag]" or the local path.
func (r *Reference) String() string {
	if !r.IsOCI {
		return r.LocalPath
	}
	return URIScheme + r.ImageReference()
}

// ImageReference returns the Docker-style image reference (without oci:// scheme).
// Returns empty string for non-OCI references.
func (r *Reference) ImageReference() string {
	if !r.IsOCI {
		return ""
	}
	if r.Tag == "" {
		return fmt.Sprintf("%s/%s", r.Registry, r.Repository)
	}
	return fmt.Sprintf("%s/%s:%s", r.Registry, r.Repository, r.Tag)
}

// WithTag returns a copy of the reference with the specified tag.
// For non-OCI references, returns the same reference unchanged.
func (r *Reference) WithTag(tag string) *Reference {
	if !r.IsOCI {
		return r
	}
	out := *r
	out.Tag = tag
	return &out
}
