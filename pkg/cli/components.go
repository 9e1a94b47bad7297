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

package cli

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/homelab-stack/homelab/pkg/component"
	_ "github.com/homelab-stack/homelab/pkg/component/certmanager"
	_ "github.com/homelab-stack/homelab/pkg/component/coredns"
	_ "github.com/homelab-stack/homelab/pkg/component/grafana"
	_ "github.com/homelab-stack/homelab/pkg/component/homeassistant"
	_ "github.com/homelab-stack/homelab/pkg/component/istio"
	_ "github.com/homelab-stack/homelab/pkg/component/k8sgateway"
	_ "github.com/homelab-stack/homelab/pkg/component/kubestatemetrics"
	_ "github.com/homelab-stack/homelab/pkg/component/kubevip"
	_ "github.com/homelab-stack/homelab/pkg/component/longhorn"
	_ "github.com/homelab-stack/homelab/pkg/component/metallb"
	_ "github.com/homelab-stack/homelab/pkg/component/nodeexporter"
	_ "github.com/homelab-stack/homelab/pkg/component/prometheus"
	_ "github.com/homelab-stack/homelab/pkg/component/prometheusoperator"
	_ "github.com/homelab-stack/homelab/pkg/component/syncthing"
	_ "github.com/homelab-stack/homelab/pkg/component/tailscale"
	"github.com/homelab-stack/homelab/pkg/errors"
	"github.com/homelab-stack/homelab/pkg/serializer"
)

// componentInfo describes a registered component.
type componentInfo struct {
	Name      string   `json:"name" yaml:"name"`
	Stage     string   `json:"stage" yaml:"stage"`
	DependsOn []string `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`
	// Enabled is nil when no config was available.
	Enabled *bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

type componentList []componentInfo

func (l componentList) Header() []string {
	return []string{"name", "stage", "depends on", "enabled"}
}

func (l componentList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, c := range l {
		enabled := "-"
		if c.Enabled != nil {
			enabled = strconv.FormatBool(*c.Enabled)
		}
		rows = append(rows, []string{c.Name, c.Stage, strings.Join(c.DependsOn, ", "), enabled})
	}
	return rows
}

// listComponents describes components in registry order. env may be nil.
func listComponents(components []component.Component, env *component.Environment) componentList {
	out := make(componentList, 0, len(components))
	for _, c := range components {
		info := componentInfo{
			Name:      c.Name(),
			Stage:     c.Stage().String(),
			DependsOn: c.DependsOn(),
		}
		if env != nil {
			enabled := c.Enabled(env)
			info.Enabled = &enabled
		}
		out = append(out, info)
	}
	return out
}

func componentsCmd() *cli.Command {
	return &cli.Command{
		Name:  "components",
		Usage: "List the stack components with their stage and dependencies",
		Description: `Lists every component in stage order. When the config file exists the
enabled column shows whether the component would be rendered.`,
		Flags: []cli.Flag{formatFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			format, err := serializer.ParseFormat(cmd.String("format"))
			if err != nil {
				return err
			}

			var env *component.Environment
			cfg, err := loadConfig(cmd)
			switch {
			case err == nil:
				env = component.NewEnvironment(cfg, nil)
			case errors.IsCode(err, errors.ErrCodeNotFound):
				slog.Debug("no config, enabled state unknown", "error", err)
			default:
				return err
			}

			return serializer.NewWriter(format, cmd.Root().Writer).
				Serialize(ctx, listComponents(component.All(), env))
		},
	}
}
