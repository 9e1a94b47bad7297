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

package tailscale

import (
	"context"

	"github.com/homelab-stack/homelab/pkg/component"
	"github.com/homelab-stack/homelab/pkg/config"
	"github.com/homelab-stack/homelab/pkg/defaults"
	"github.com/homelab-stack/homelab/pkg/errors"
)

const (
	// Name is the component name.
	Name = "tailscale"

	// Namespace is the operator namespace.
	Namespace = "tailscale-system"

	// Repository is the tailscale chart repository.
	Repository = "https://pkgs.tailscale.com/helmcharts"

	// IngressClass is the ingress class served by the operator.
	IngressClass = "tailscale"

	// ACLFile is the policy document written next to the chart values.
	ACLFile = "acl.json"
)

func init() {
	component.MustRegister(&Component{})
}

// Component installs the tailscale Kubernetes operator.
type Component struct{}

func (c *Component) Name() string { return Name }

func (c *Component) Stage() component.Stage { return component.StageNetwork }

func (c *Component) DependsOn() []string { return nil }

// Enabled defaults to true once operator credentials are configured.
func (c *Component) Enabled(env *component.Environment) bool {
	op := env.Config.Tailscale.Operator
	return env.Enabled(Name, op.ClientID != "" || op.ClientSecret != "")
}

func (c *Component) Build(ctx context.Context, env *component.Environment) (*component.Bundle, error) {
	ts := env.Config.Tailscale
	if err := requireOAuth(ts.Operator); err != nil {
		return nil, err
	}

	values, err := env.ChartValues(Name, helmValues(ts))
	if err != nil {
		return nil, err
	}
	acl, err := ACL()
	if err != nil {
		return nil, err
	}

	b := component.NewBundle(c, Namespace)
	b.Charts = []component.Chart{{
		Release:    "tailscale-operator",
		Repository: Repository,
		Name:       "tailscale-operator",
		Version:    env.Version(defaults.KeyTailscale),
		Namespace:  Namespace,
		Values:     values,
	}}
	b.Add(component.Namespace(Namespace, nil))
	b.AddFile(ACLFile, acl)
	b.Notes = append(b.Notes,
		"values/tailscale-operator.yaml contains the operator OAuth client secret.",
		"Upload acl.json as the tailnet policy before installing, the operator needs the tag:k8s-operator owner.",
	)
	return b, ctx.Err()
}

func requireOAuth(c config.OAuthClient) error {
	var missing []string
	if c.ClientID == "" {
		missing = append(missing, "tailscale.operator.clientId")
	}
	if c.ClientSecret == "" {
		missing = append(missing, "tailscale.operator.clientSecret")
	}
	if len(missing) > 0 {
		return errors.NewWithContext(errors.ErrCodeInvalidConfig,
			"tailscale operator requires OAuth credentials",
			map[string]any{"missing": missing})
	}
	return nil
}

func helmValues(ts config.Tailscale) map[string]any {
	return map[string]any{
		"oauth": map[string]any{
			"clientId":     ts.Operator.ClientID,
			"clientSecret": ts.Operator.ClientSecret,
		},
		"operatorConfig": map[string]any{
			"hostname": ts.Hostname,
		},
	}
}
