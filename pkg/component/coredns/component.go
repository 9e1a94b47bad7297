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

package coredns

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/homelab-stack/homelab/pkg/component"
	"github.com/homelab-stack/homelab/pkg/component/k8sgateway"
	"github.com/homelab-stack/homelab/pkg/defaults"
	"github.com/homelab-stack/homelab/pkg/errors"
)

const (
	// Name is the component name.
	Name = "coredns"

	// AppName names the deployment, service and config map.
	AppName = "coredns-external"

	// Image is the CoreDNS image repository.
	Image = "coredns/coredns"
)

//go:embed templates/Corefile.tmpl
var corefileTemplate string

func init() {
	component.MustRegister(&Component{})
}

// Component runs a LAN facing CoreDNS that blocks ad domains, forwards the
// homelab domain to k8s-gateway and everything else upstream.
type Component struct{}

func (c *Component) Name() string { return Name }

func (c *Component) Stage() component.Stage { return component.StageDNS }

func (c *Component) DependsOn() []string { return []string{k8sgateway.Name, "metallb"} }

func (c *Component) Enabled(env *component.Environment) bool {
	return env.Enabled(Name, true)
}

// CorefileData feeds the Corefile template.
type CorefileData struct {
	Domain    string
	GatewayIP string
	Upstreams []string
}

// Corefile renders the CoreDNS configuration.
func Corefile(data CorefileData) (string, error) {
	if len(data.Upstreams) == 0 {
		return "", errors.New(errors.ErrCodeInvalidConfig, "coredns requires at least one upstream resolver")
	}
	return component.RenderTemplate(corefileTemplate, "Corefile", data)
}

// LoadBlocklists concatenates every *.txt hosts file in dir in name order.
// An empty dir yields a placeholder; a configured but missing dir is an error.
func LoadBlocklists(dir string) (string, int, error) {
	var sb strings.Builder
	sb.WriteString("# Combined blocklists\n")
	if dir == "" {
		sb.WriteString("# No blocklists configured\n")
		return sb.String(), 0, nil
	}

	if _, err := os.Stat(dir); err != nil {
		return "", 0, component.RequireFile(Name, dir, err)
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil {
		return "", 0, errors.Wrap(errors.ErrCodeInvalidConfig, "invalid blocklist directory", err)
	}
	sort.Strings(matches)
	for _, path := range matches {
		content, err := os.ReadFile(path)
		if err != nil {
			return "", 0, component.RequireFile(Name, path, err)
		}
		fmt.Fprintf(&sb, "\n# From %s\n%s\n", filepath.Base(path), content)
	}
	if len(matches) == 0 {
		sb.WriteString("# No blocklists found\n")
	}
	return sb.String(), len(matches), nil
}

func (c *Component) Build(ctx context.Context, env *component.Environment) (*component.Bundle, error) {
	corefile, err := Corefile(CorefileData{
		Domain:    env.Domain,
		GatewayIP: env.K8sGatewayIP,
		Upstreams: env.Config.DNS.Upstreams,
	})
	if err != nil {
		return nil, err
	}
	blocklist, lists, err := LoadBlocklists(env.Config.DNS.BlocklistDir)
	if err != nil {
		return nil, err
	}

	b := component.NewBundle(c, k8sgateway.Namespace)
	b.Add(configMap(corefile, blocklist))
	b.Add(deployment(env.Version(defaults.KeyCoreDNS)))
	b.Add(service(env.DNSPool))
	b.Notes = append(b.Notes,
		fmt.Sprintf("Point LAN clients at the %s LoadBalancer address from pool %s.", AppName, env.DNSPool),
		fmt.Sprintf("%d blocklist file(s) loaded.", lists),
	)
	return b, ctx.Err()
}
