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
	"context"
	_ "embed"

	"github.com/homelab-stack/homelab/pkg/component"
	"github.com/homelab-stack/homelab/pkg/defaults"
	"github.com/homelab-stack/homelab/pkg/errors"
)

const (
	// Name is the component name.
	Name = "cert-manager"

	// Namespace is where cert-manager and the CA secret live.
	Namespace = "cert-manager"

	// Repository is the jetstack chart repository.
	Repository = "https://charts.jetstack.io"

	// CASecretName holds the intermediate CA the ClusterIssuer signs with.
	CASecretName = "homelab-ca"
)

//go:embed templates/README.md.tmpl
var readmeTemplate string

// GetTemplate returns the cert-manager bundle templates.
var GetTemplate = component.StandardTemplates(readmeTemplate)

func init() {
	component.MustRegister(&Component{})
}

// Component installs cert-manager and a ClusterIssuer backed by the homelab CA.
type Component struct{}

func (c *Component) Name() string { return Name }

func (c *Component) Stage() component.Stage { return component.StagePKI }

func (c *Component) DependsOn() []string { return nil }

func (c *Component) Enabled(env *component.Environment) bool {
	return env.Enabled(Name, true)
}

// Build renders the chart, the CA secret and the ClusterIssuer.
func (c *Component) Build(ctx context.Context, env *component.Environment) (*component.Bundle, error) {
	if env.CA == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfig,
			"cert-manager requires the homelab CA, run `homelab pki init` or pass --pki-dir")
	}

	values, err := env.ChartValues(Name, helmValues())
	if err != nil {
		return nil, err
	}

	b := component.NewBundle(c, Namespace)
	b.Templates = GetTemplate
	b.Charts = []component.Chart{{
		Release:    Name,
		Repository: Repository,
		Name:       "cert-manager",
		Version:    "v" + env.Version(defaults.KeyCertManager),
		Namespace:  Namespace,
		Values:     values,
	}}
	b.Add(manifests(env)...)
	b.Notes = append(b.Notes,
		"manifests/01-secret-"+CASecretName+".yaml contains the CA private key; keep the rendered output private.",
		"The CA chain is "+env.CA.Name+" issued by "+env.CA.Root().Name+".",
	)
	return b, ctx.Err()
}
