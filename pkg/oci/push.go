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
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	ociv1 "github.com/opencontainers/image-spec/specs-go/v1"
	oras "oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content/file"
	"oras.land/oras-go/v2/content/oci"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"

	"github.com/homelab-stack/homelab/pkg/errors"
)

// ArtifactType is the media type of a rendered homelab stack.
const ArtifactType = "application/vnd.homelab.stack.v1"

// PackageOptions configures local packaging into an OCI image layout.
type PackageOptions struct {
	// SourceDir is the rendered stack directory.
	SourceDir string
	// StoreDir receives the OCI image layout.
	StoreDir string
	// Tag names the manifest in the layout.
	Tag string
	// Annotations are added to the manifest.
	Annotations map[string]string
	// ReproducibleTimestamp fixes org.opencontainers.image.created.
	ReproducibleTimestamp string
}

// PackageResult describes a packaged artifact.
type PackageResult struct {
	// Digest is the SHA256 digest of the manifest.
	Digest string
	// StorePath is the OCI image layout directory.
	StorePath string
}

// Package packs SourceDir as a single-layer artifact into an OCI image
// layout at StoreDir.
func Package(ctx context.Context, opts PackageOptions) (*PackageResult, error) {
	if opts.Tag == "" {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "tag is required for OCI packaging")
	}
	if opts.StoreDir == "" {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "store directory is required for OCI packaging")
	}

	absSource, err := filepath.Abs(opts.SourceDir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to resolve source directory", err)
	}
	info, err := os.Stat(absSource)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeNotFound, err, "source directory %s not found", absSource)
	}
	if !info.IsDir() {
		return nil, errors.Newf(errors.ErrCodeInvalidRequest, "source %s is not a directory", absSource)
	}

	fs, err := file.New(absSource)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to create file store", err)
	}
	defer func() { _ = fs.Close() }()

	// Make tars deterministic for reproducible builds
	fs.TarReproducible = true

	layerDesc, err := fs.Add(ctx, ".", ociv1.MediaTypeImageLayerGzip, absSource)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to add source directory to store", err)
	}

	annotations := make(map[string]string, len(opts.Annotations)+1)
	maps.Copy(annotations, opts.Annotations)
	if opts.ReproducibleTimestamp != "" {
		annotations[ociv1.AnnotationCreated] = opts.ReproducibleTimestamp
	}

	manifestDesc, err := oras.PackManifest(ctx, fs, oras.PackManifestVersion1_1, ArtifactType, oras.PackManifestOptions{
		Layers:              []ociv1.Descriptor{layerDesc},
		ManifestAnnotations: annotations,
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to pack manifest", err)
	}
	if err := fs.Tag(ctx, manifestDesc, opts.Tag); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to tag manifest in local store", err)
	}

	store, err := oci.New(opts.StoreDir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to create OCI layout", err)
	}
	desc, err := oras.Copy(ctx, fs, opts.Tag, store, opts.Tag, oras.DefaultCopyOptions)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to copy artifact to OCI layout", err)
	}

	return &PackageResult{
		Digest:    desc.Digest.String(),
		StorePath: opts.StoreDir,
	}, nil
}

// PushOptions configures a push from a local OCI layout.
type PushOptions struct {
	// Registry is the OCI registry host (e.g., "ghcr.io", "localhost:5000").
	Registry string
	// Repository is the image repository path.
	Repository string
	// Tag is the image tag.
	Tag string
	// PlainHTTP uses HTTP instead of HTTPS for the registry connection.
	PlainHTTP bool
	// InsecureTLS skips TLS certificate verification.
	InsecureTLS bool
}

// PushResult contains the result of a successful OCI push.
type PushResult struct {
	// Digest is the SHA256 digest of the pushed artifact.
	Digest string
	// Reference is the full image reference (registry/repository:tag).
	Reference string
}

// PushFromStore copies the tagged artifact from the OCI layout at storePath
// to the registry.
func PushFromStore(ctx context.Context, storePath string, opts PushOptions) (*PushResult, error) {
	if opts.Tag == "" {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "tag is required to push OCI image")
	}
	registryHost := stripProtocol(opts.Registry)
	if err := ValidateRegistryReference(registryHost, opts.Repository); err != nil {
		return nil, err
	}
	refString := fmt.Sprintf("%s/%s:%s", registryHost, opts.Repository, opts.Tag)

	store, err := oci.New(storePath)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to open OCI layout", err)
	}

	repo, err := remote.NewRepository(fmt.Sprintf("%s/%s", registryHost, opts.Repository))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidRequest, "failed to initialize remote repository", err)
	}
	repo.PlainHTTP = opts.PlainHTTP
	repo.Client = createAuthClient(opts.PlainHTTP, opts.InsecureTLS)

	desc, err := oras.Copy(ctx, store, opts.Tag, repo, opts.Tag, oras.DefaultCopyOptions)
	if err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeUnavailable, "failed to push artifact to registry", err,
			map[string]any{"reference": refString})
	}

	return &PushResult{
		Digest:    desc.Digest.String(),
		Reference: refString,
	}, nil
}

// OutputConfig configures the package and push workflow.
type OutputConfig struct {
	// SourceDir is the rendered stack directory.
	SourceDir string
	// StoreDir keeps the OCI layout; a temporary directory is used when empty.
	StoreDir string
	// Reference is the parsed registry target. It must carry a tag.
	Reference *Reference
	// Version is recorded as org.opencontainers.image.version.
	Version string
	// PlainHTTP uses HTTP instead of HTTPS for the registry connection.
	PlainHTTP bool
	// InsecureTLS skips TLS certificate verification.
	InsecureTLS bool
	// Annotations replace the default manifest annotations when set.
	Annotations map[string]string
}

// PackageAndPush packages a directory as an OCI artifact and pushes it.
func PackageAndPush(ctx context.Context, cfg OutputConfig) (*PushResult, error) {
	if cfg.Reference == nil || !cfg.Reference.IsOCI {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "OCI reference is required for PackageAndPush")
	}
	if cfg.Reference.Tag == "" {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "tag is required for OCI packaging")
	}

	storeDir := cfg.StoreDir
	if storeDir == "" {
		tmp, err := os.MkdirTemp("", "homelab-oci-*")
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, "failed to create temp directory", err)
		}
		defer os.RemoveAll(tmp)
		storeDir = tmp
	}

	annotations := cfg.Annotations
	if annotations == nil {
		annotations = map[string]string{
			ociv1.AnnotationVersion: cfg.Version,
			ociv1.AnnotationTitle:   "homelab stack",
		}
	}

	pkg, err := Package(ctx, PackageOptions{
		SourceDir:   cfg.SourceDir,
		StoreDir:    storeDir,
		Tag:         cfg.Reference.Tag,
		Annotations: annotations,
	})
	if err != nil {
		return nil, err
	}
	slog.Debug("OCI artifact packaged locally", "digest", pkg.Digest, "store_path", pkg.StorePath)

	result, err := PushFromStore(ctx, pkg.StorePath, PushOptions{
		Registry:    cfg.Reference.Registry,
		Repository:  cfg.Reference.Repository,
		Tag:         cfg.Reference.Tag,
		PlainHTTP:   cfg.PlainHTTP,
		InsecureTLS: cfg.InsecureTLS,
	})
	if err != nil {
		return nil, err
	}

	slog.Info("OCI artifact pushed", "reference", result.Reference, "digest", result.Digest)
	return result, nil
}

// stripProtocol removes http:// or https:// prefix from a registry URL.
func stripProtocol(registry string) string {
	registry = strings.TrimPrefix(registry, "https://")
	registry = strings.TrimPrefix(registry, "http://")
	return registry
}

// createAuthClient creates an HTTP client with optional TLS configuration
// and Docker credential support.
func createAuthClient(plainHTTP, insecureTLS bool) *auth.Client {
	credStore, err := credentials.NewStoreFromDocker(credentials.StoreOptions{})
	if err != nil {
		slog.Debug("docker credentials unavailable", "error", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !plainHTTP && insecureTLS {
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		} else {
			transport.TLSClientConfig.InsecureSkipVerify = true //nolint:gosec
		}
	}

	client := &auth.Client{
		Client: &http.Client{Transport: transport},
		Cache:  auth.NewCache(),
	}
	if credStore != nil {
		client.Credential = credentials.Credential(credStore)
	}
	return client
}
