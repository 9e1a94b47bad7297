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
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/homelab-stack/homelab/pkg/config"
	"github.com/homelab-stack/homelab/pkg/logging"
)

const (
	name           = "homelab"
	versionDefault = "dev"
)

var (
	// overridden during build with ldflags
	version = versionDefault
	commit  = "unknown"
	date    = "unknown"
)

// Shared flags are built per command since flags hold parse state.
func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Value:   config.DefaultPath,
		Sources: cli.EnvVars(config.EnvConfigPath),
		Usage:   "Path to the infrastructure config file",
	}
}

func kubeconfigFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "kubeconfig",
		Aliases: []string{"k"},
		Usage:   "Path to kubeconfig file (overrides KUBECONFIG env and default ~/.kube/config)",
	}
}

func formatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"t"},
		Value:   "table",
		Usage:   "Output format: table, yaml or json",
	}
}

// Execute runs the homelab CLI with os.Args. SIGINT and SIGTERM cancel
// the context of the running command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCmd().Run(ctx, os.Args)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 when the command was interrupted or timed out and 1 otherwise.
func exitCode(err error) int {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return 2
	}
	return 1
}

func newRootCmd() *cli.Command {
	return &cli.Command{
		Name:                      name,
		Usage:                     "Provision and render a home Kubernetes cluster",
		Version:                   fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		EnableShellCompletion:     true,
		DisableSliceFlagSeparator: true,
		Description: `homelab provisions k3s on Raspberry Pi 5 nodes over SSH and renders the
cluster stack into Helm scripts or Argo CD applications.

# Typical flow

  homelab node bootstrap
  homelab cluster up --wait 5m
  homelab cluster kubeconfig --merge ~/.kube/config
  homelab vpn acl apply
  homelab render --output ./stack
  ./stack/deploy.sh`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
				Usage:   "Log level (debug, info, warn, error)",
			},
			configFlag(),
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			logging.SetDefaultStructuredLoggerWithLevel(name, version, cmd.String("log-level"))
			slog.Debug("starting",
				"name", name,
				"version", version,
				"commit", commit,
				"date", date)
			return ctx, nil
		},
		Commands: []*cli.Command{
			renderCmd(),
			componentsCmd(),
			pkiCmd(),
			nodeCmd(),
			clusterCmd(),
			vpnCmd(),
			homeAssistantCmd(),
			versionCmd(),
		},
	}
}

// loadConfig reads the infrastructure config named by the --config flag.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	return config.Load(cmd.String("config"))
}
