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
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/homelab-stack/homelab/pkg/config"
	"github.com/homelab-stack/homelab/pkg/defaults"
	"github.com/homelab-stack/homelab/pkg/node"
	"github.com/homelab-stack/homelab/pkg/remote"
)

// newConnector opens runners to nodes. Replaced in tests.
var newConnector = remote.SSHConnector

func askPassFlag() *cli.BoolFlag {
	return &cli.BoolFlag{
		Name:  "ask-pass",
		Usage: "Prompt for the SSH password instead of reading it from the config or HOMELAB_SSH_PASSWORD",
	}
}

// connectorFor returns the connector for cfg, prompting for a password
// when --ask-pass is set.
func connectorFor(cmd *cli.Command, cfg *config.Config) (remote.Connector, error) {
	var password string
	if cmd.Bool("ask-pass") {
		pw, err := remote.PromptPassword(fmt.Sprintf("SSH password for %s: ", cfg.SSH.User))
		if err != nil {
			return nil, err
		}
		password = pw
	}
	return newConnector(cfg, password), nil
}

// selectNodes returns the named nodes, or all nodes when names is empty.
func selectNodes(cfg *config.Config, names []string) ([]config.Node, error) {
	if len(names) == 0 {
		return cfg.Nodes, nil
	}
	nodes := make([]config.Node, 0, len(names))
	for _, name := range names {
		n, err := cfg.Node(name)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func nodeCmd() *cli.Command {
	return &cli.Command{
		Name:  "node",
		Usage: "Prepare bare-metal nodes",
		Commands: []*cli.Command{
			{
				Name:                      "bootstrap",
				Usage:                     "Configure boards and install node prerequisites over SSH",
				DisableSliceFlagSeparator: true,
				Description: `Bootstraps every node in parallel. Raspberry Pi 5 nodes get the boot
config, EEPROM settings and memory cgroups, and reboot when anything
changed. All boards get the packages Longhorn needs.

Running it again on a bootstrapped node changes nothing.

# Examples

  homelab node bootstrap
  homelab node bootstrap --node rp1 --ask-pass`,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "node",
						Aliases: []string{"n"},
						Usage:   "Bootstrap only the named node (can be repeated)",
					},
					&cli.DurationFlag{
						Name:  "reboot-timeout",
						Value: defaults.RebootTimeout,
						Usage: "How long a node may take to come back after a reboot",
					},
					askPassFlag(),
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}
					nodes, err := selectNodes(cfg, cmd.StringSlice("node"))
					if err != nil {
						return err
					}
					connect, err := connectorFor(cmd, cfg)
					if err != nil {
						return err
					}

					slog.Info("bootstrapping nodes", "count", len(nodes))
					if err := node.BootstrapAll(ctx, nodes, connect,
						remote.WithRebootTimeout(cmd.Duration("reboot-timeout"))); err != nil {
						return err
					}
					slog.Info("nodes bootstrapped", "count", len(nodes))
					return nil
				},
			},
		},
	}
}
