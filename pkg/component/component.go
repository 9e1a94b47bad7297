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

package component

import (
	"context"
	"log/slog"

	cmmeta "github.com/cert-manager/cert-manager/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"

	"github.com/homelab-stack/homelab/pkg/config"
	"github.com/homelab-stack/homelab/pkg/pki"
)

const (
	// ClusterIssuerName is the cert-manager ClusterIssuer backed by the homelab CA.
	ClusterIssuerName = "homelab-ca"

	// GatewayClassName is the Gateway API class implemented by istio.
	GatewayClassName = "istio"

	// AmbientLabel enrols a namespace in the istio ambient mesh.
	AmbientLabel = "istio.io/dataplane-mode"

	// ManagedByLabel marks every object rendered by homelab.
	ManagedByLabel = "app.kubernetes.io/managed-by"

	// ManagedByValue is the value of ManagedByLabel.
	ManagedByValue = "homelab"
)

// Chart is a pinned Helm chart installation.
type Chart struct {
	// Release is the Helm release name.
	Release string `json:"release" yaml:"release"`

	// Repository is the chart repository URL.
	Repository string `json:"repository" yaml:"repository"`

	// Name is the chart name inside the repository.
	Name string `json:"chart" yaml:"chart"`

	// Version is the pinned chart version.
	Version string `json:"version" yaml:"version"`

	// Namespace is the release namespace.
	Namespace string `json:"namespace" yaml:"namespace"`

	// Values are the release values.
	Values map[string]any `json:"-" yaml:"-"`
}

// Bundle is everything a component wants applied to the cluster.
type Bundle struct {
	Name      string
	Namespace string
	Stage     Stage
	DependsOn []string

	// CRDURLs are applied before any chart or manifest.
	CRDURLs []string

	// Charts are installed in order.
	Charts []Chart

	// Objects are applied after the charts.
	Objects []runtime.Object

	// Files are written verbatim relative to the bundle directory.
	Files map[string][]byte

	// Notes are surfaced in the README.
	Notes []string

	// Templates optionally overrides the default README template.
	Templates TemplateFunc
}

// NewBundle returns an empty bundle for c.
func NewBundle(c Component, namespace string) *Bundle {
	return &Bundle{
		Name:      c.Name(),
		Namespace: namespace,
		Stage:     c.Stage(),
		DependsOn: c.DependsOn(),
		Files:     map[string][]byte{},
	}
}

// Add appends objects to the bundle.
func (b *Bundle) Add(objs ...runtime.Object) {
	b.Objects = append(b.Objects, objs...)
}

// AddFile adds a verbatim file to the bundle.
func (b *Bundle) AddFile(name string, data []byte) {
	if b.Files == nil {
		b.Files = map[string][]byte{}
	}
	b.Files[name] = data
}

// Component is a named set of resources that share a lifecycle.
type Component interface {
	Name() string
	Stage() Stage
	DependsOn() []string
	Enabled(env *Environment) bool
	Build(ctx context.Context, env *Environment) (*Bundle, error)
}

// Environment is the shared state every component renders against.
type Environment struct {
	Config *config.Config

	// CA is the authority cert-manager issues from. May be nil when the
	// cert-manager component is disabled.
	CA *pki.Authority

	// Issuer references the ClusterIssuer that signs web certificates.
	Issuer cmmeta.ObjectReference

	StorageClass string
	Domain       string
	DNSPool      string
	K8sGatewayIP string
}

// NewEnvironment derives the render environment from cfg.
func NewEnvironment(cfg *config.Config, ca *pki.Authority) *Environment {
	return &Environment{
		Config: cfg,
		CA:     ca,
		Issuer: cmmeta.ObjectReference{
			Name:  ClusterIssuerName,
			Kind:  "ClusterIssuer",
			Group: "cert-manager.io",
		},
		StorageClass: cfg.Storage.StorageClass,
		Domain:       cfg.Cluster.Domain,
		DNSPool:      cfg.Network.DNSPool,
		K8sGatewayIP: cfg.Network.K8sGatewayIP,
	}
}

// Version returns the pinned version for key.
func (e *Environment) Version(key string) string {
	return e.Config.Version(key)
}

// Hostname qualifies name with the homelab domain.
func (e *Environment) Hostname(name string) string {
	return name + "." + e.Domain
}

// Enabled reports whether the named component is switched on, using def when
// the config does not say.
func (e *Environment) Enabled(name string, def bool) bool {
	return e.Config.ComponentEnabled(name, def)
}

// UserValues returns a deep copy of the user supplied values for a component.
func (e *Environment) UserValues(name string) map[string]any {
	v, err := CopyValues(e.Config.ComponentValues(name))
	if err != nil {
		slog.Warn("ignoring uncopyable component values", "component", name, "error", err)
		return nil
	}
	return v
}

// AmbientLabels enrol a namespace in the ambient mesh.
func AmbientLabels() map[string]string {
	return map[string]string{AmbientLabel: "ambient"}
}
