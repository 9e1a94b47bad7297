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
	"os"

	"github.com/urfave/cli/v3"

	"github.com/homelab-stack/homelab/pkg/component/tailscale"
	"github.com/homelab-stack/homelab/pkg/errors"
)

func vpnCmd() *cli.Command {
	return &cli.Command{
		Name:  "vpn",
		Usage: "Tailscale helpers",
		Commands: []*cli.Command{
			{
				Name:  "acl",
				Usage: "Print the tailnet ACL policy the operator needs",
				Description: `Prints the tailnet policy file granting the Kubernetes operator ownership
of the tags it assigns to proxies. Paste it into the Tailscale admin
console before deploying the tailscale component, or send it with
"vpn acl apply".`,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the policy to this file instead of stdout",
					},
				},
				Commands: []*cli.Command{vpnACLApplyCmd()},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					data, err := tailscale.ACL()
					if err != nil {
						return err
					}

					path := cmd.String("output")
					if path == "" {
						_, err := cmd.Root().Writer.Write(data)
						return err
					}
					if err := os.WriteFile(path, data, 0o644); err != nil {
						return errors.Wrap(errors.ErrCodeInternal, "failed to write policy", err)
					}
					slog.Info("tailnet policy written", "path", path)
					return nil
				},
			},
		},
	}
}

func vpnACLApplyCmd() *cli.Command {
	return &cli.Command{
		Name:  "apply",
		Usage: "Replace the tailnet ACL policy using the admin OAuth client",
		Description: `Replaces the tailnet policy file with the operator policy. Authenticates
with tailscale.admin from the config (or HOMELAB_TAILSCALE_ADMIN_CLIENT_ID
and _SECRET). The OAuth client needs the policy_file scope.

The whole policy file is replaced. Rules added in the admin console are lost.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "tailnet",
				Value: tailscale.DefaultTailnet,
				Usage: "Tailnet to update (- selects the tailnet of the OAuth client)",
			},
			&cli.StringFlag{
				Name:   "api-url",
				Value:  tailscale.APIURL,
				Hidden: true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			policy, err := tailscale.ACL()
			if err != nil {
				return err
			}
			client, err := tailscale.NewAdminClient(ctx, cfg.Tailscale.Admin, cmd.String("api-url"))
			if err != nil {
				return err
			}
			client.Tailnet = cmd.String("tailnet")

			if err := client.SetPolicy(ctx, policy); err != nil {
				return err
			}
			slog.Info("tailnet policy applied", "tailnet", client.Tailnet)
			return nil
		},
	}
}
