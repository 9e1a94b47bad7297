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
	"os"
	"strconv"

	"github.com/urfave/cli/v3"

	"github.com/homelab-stack/homelab/pkg/cluster"
	"github.com/homelab-stack/homelab/pkg/config"
	"github.com/homelab-stack/homelab/pkg/defaults"
	"github.com/homelab-stack/homelab/pkg/errors"
	"github.com/homelab-stack/homelab/pkg/k8s/client"
	"github.com/homelab-stack/homelab/pkg/k8s/node"
	"github.com/homelab-stack/homelab/pkg/serializer"
)

// Kubernetes clients used by cluster commands. Replaced in tests.
var (
	clientFromKubeconfig = client.NewFromKubeconfig
	clientFromFile       = client.BuildKubeClient
)

type nodeList []*node.Node

func (l nodeList) Header() []string {
	return []string{"name", "role", "ready", "version", "age", "ip"}
}

func (l nodeList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, n := range l {
		rows = append(rows, []string{n.Name, n.Role, strconv.FormatBool(n.Ready), n.Version, n.Age, n.IP})
	}
	return rows
}

// k3sFor builds the k3s installer for the config and SSH flags of cmd.
func k3sFor(cmd *cli.Command) (*config.Config, *cluster.K3s, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	connect, err := connectorFor(cmd, cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, cluster.New(cfg, connect), nil
}

func clusterCmd() *cli.Command {
	return &cli.Command{
		Name:  "cluster",
		Usage: "Manage the k3s cluster",
		Commands: []*cli.Command{
			clusterUpCmd(),
			clusterDownCmd(),
			clusterKubeconfigCmd(),
			clusterTokenCmd(),
			clusterStatusCmd(),
		},
	}
}

func clusterUpCmd() *cli.Command {
	return &cli.Command{
		Name:  "up",
		Usage: "Install k3s on every node",
		Description: `Installs k3s on the servers one at a time, the first with --cluster-init,
then joins the agents in parallel. Without a configured token the token
generated by the first server is used.

With --wait the command blocks until every node reports Ready.`,
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "wait",
				Usage: "Wait up to this long for all nodes to become Ready (0 disables waiting)",
			},
			askPassFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, k3s, err := k3sFor(cmd)
			if err != nil {
				return err
			}

			slog.Info("installing k3s", "servers", len(k3s.Servers), "agents", len(k3s.Agents))
			if err := k3s.Install(ctx); err != nil {
				return err
			}
			slog.Info("k3s installed", "api", k3s.APIAddress())

			timeout := cmd.Duration("wait")
			if timeout <= 0 {
				return nil
			}

			data, err := k3s.Kubeconfig(ctx)
			if err != nil {
				return err
			}
			cs, _, err := clientFromKubeconfig(data)
			if err != nil {
				return err
			}
			return cluster.WaitForNodesReady(ctx, cs, len(cfg.Nodes), timeout)
		},
	}
}

func clusterDownCmd() *cli.Command {
	return &cli.Command{
		Name:  "down",
		Usage: "Uninstall k3s from every node",
		Description: `Runs the k3s uninstall scripts, agents first and servers last, in the
reverse of install order. Nodes without k3s are skipped.`,
		Flags: []cli.Flag{askPassFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, k3s, err := k3sFor(cmd)
			if err != nil {
				return err
			}
			slog.Info("uninstalling k3s", "servers", len(k3s.Servers), "agents", len(k3s.Agents))
			return k3s.Uninstall(ctx)
		},
	}
}

func clusterKubeconfigCmd() *cli.Command {
	return &cli.Command{
		Name:  "kubeconfig",
		Usage: "Fetch the cluster kubeconfig",
		Description: `Reads the kubeconfig from the first server, points it at the VIP (or the
first server) and renames the cluster, context and user after the cluster.

Without --merge the kubeconfig is printed. With --merge it is merged into
the given file, which is created when missing.

# Examples

  homelab cluster kubeconfig > homelab.yaml
  homelab cluster kubeconfig --merge ~/.kube/config --set-current`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "merge",
				Usage: "Merge into this kubeconfig file instead of printing",
			},
			&cli.BoolFlag{
				Name:  "set-current",
				Usage: "Make the cluster the current context of the merged file",
			},
			askPassFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, k3s, err := k3sFor(cmd)
			if err != nil {
				return err
			}
			data, err := k3s.Kubeconfig(ctx)
			if err != nil {
				return err
			}

			path := cmd.String("merge")
			if path == "" {
				_, err := cmd.Root().Writer.Write(data)
				return err
			}
			if err := cluster.MergeKubeconfig(path, data, cmd.Bool("set-current")); err != nil {
				return err
			}
			slog.Info("kubeconfig merged", "path", path, "context", cfg.Cluster.Name)
			return nil
		},
	}
}

func clusterTokenCmd() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Save the k3s join token",
		Description: `Reads the join token from the first server and saves it with mode 0600.
Use --output - to print it instead.

# Examples

  homelab cluster token
  homelab cluster token --output ~/.config/homelab/cluster-token`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   "cluster-token",
				Usage:   "File to save the token to (- for stdout)",
			},
			askPassFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, k3s, err := k3sFor(cmd)
			if err != nil {
				return err
			}
			token, err := k3s.ReadToken(ctx)
			if err != nil {
				return err
			}

			path := cmd.String("output")
			if path == "-" {
				_, err := fmt.Fprintln(cmd.Root().Writer, token)
				return err
			}
			if err := os.WriteFile(path, []byte(token+"\n"), 0o600); err != nil {
				return errors.Wrap(errors.ErrCodeInternal, "failed to write cluster token", err)
			}
			// WriteFile keeps the mode of an existing file.
			if err := os.Chmod(path, 0o600); err != nil {
				return errors.Wrap(errors.ErrCodeInternal, "failed to restrict cluster token file", err)
			}
			_, err = fmt.Fprintf(cmd.Root().Writer, "Cluster token saved to: %s\n", path)
			return err
		},
	}
}

func clusterStatusCmd() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the cluster nodes",
		Description: `Lists the nodes of the cluster with their role and readiness. With
--timeout the command first waits for every configured node to be Ready.`,
		Flags: []cli.Flag{
			kubeconfigFlag(),
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Wait up to this long for all configured nodes to become Ready",
			},
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			format, err := serializer.ParseFormat(cmd.String("format"))
			if err != nil {
				return err
			}
			cs, _, err := clientFromFile(cmd.String("kubeconfig"))
			if err != nil {
				return err
			}

			if timeout := cmd.Duration("timeout"); timeout > 0 {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				if err := cluster.WaitForNodesReady(ctx, cs, len(cfg.Nodes), timeout); err != nil {
					return err
				}
			}

			listCtx, cancel := context.WithTimeout(ctx, defaults.K8sAPITimeout)
			defer cancel()
			nodes, err := node.Summary(listCtx, cs)
			if err != nil {
				return err
			}
			return serializer.NewWriter(format, cmd.Root().Writer).Serialize(ctx, nodeList(nodes))
		},
	}
}
