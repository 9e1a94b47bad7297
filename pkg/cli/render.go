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
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"

	"github.com/homelab-stack/homelab/pkg/bundler"
	"github.com/homelab-stack/homelab/pkg/bundler/config"
	"github.com/homelab-stack/homelab/pkg/bundler/result"
	"github.com/homelab-stack/homelab/pkg/bundler/types"
	"github.com/homelab-stack/homelab/pkg/component"
	"github.com/homelab-stack/homelab/pkg/errors"
	"github.com/homelab-stack/homelab/pkg/oci"
	"github.com/homelab-stack/homelab/pkg/pki"
)

const (
	defaultOutputDir = "stack"
	defaultPKIDir    = "pki"
)

// renderCmdOptions holds parsed options for the render command.
type renderCmdOptions struct {
	outputDir      string
	deployer       types.DeployerType
	repoURL        string
	valueOverrides map[string][]string
	only           []string
	pkiDir         string
	metricsFile    string
	target         *oci.Reference
	plainHTTP      bool
	insecureTLS    bool
}

// parseRenderCmdOptions parses and validates command options.
func parseRenderCmdOptions(cmd *cli.Command) (*renderCmdOptions, error) {
	opts := &renderCmdOptions{
		outputDir:   cmd.String("output"),
		repoURL:     cmd.String("repo"),
		only:        cmd.StringSlice("only"),
		pkiDir:      cmd.String("pki-dir"),
		metricsFile: cmd.String("metrics-file"),
		plainHTTP:   cmd.Bool("plain-http"),
		insecureTLS: cmd.Bool("insecure-tls"),
	}

	var err error
	opts.deployer, err = types.ParseDeployerType(cmd.String("deployer"))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidRequest, "invalid --deployer", err)
	}

	opts.valueOverrides, err = component.ParseOverrides(cmd.StringSlice("set"))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidRequest, "invalid --set flag", err)
	}

	if push := cmd.String("push"); push != "" {
		ref, err := oci.ParseOutputTarget(push)
		if err != nil {
			return nil, err
		}
		if !ref.IsOCI {
			return nil, errors.Newf(errors.ErrCodeInvalidRequest, "--push must be an %s reference, got %q", oci.URIScheme, push)
		}
		if ref.Tag == "" {
			ref = ref.WithTag(defaultTag(version))
		}
		opts.target = ref
	}

	return opts, nil
}

// defaultTag derives an image tag from a version. Tags do not allow '+'.
func defaultTag(v string) string {
	tag := strings.ReplaceAll(strings.TrimSpace(v), "+", "_")
	if tag == "" {
		return versionDefault
	}
	return tag
}

func renderCmd() *cli.Command {
	return &cli.Command{
		Name:                      "render",
		EnableShellCompletion:     true,
		DisableSliceFlagSeparator: true,
		Usage:                 "Render the stack into Helm scripts or Argo CD applications",
		Description: `Renders every enabled component into its own directory and emits what
the deployment engine runs.

# Default Output (--deployer helm)

  - <component>/: manifests, values, files, README.md
  - stack.yaml: apply order and sync waves
  - deploy.sh / destroy.sh: ordered helm and kubectl invocations
  - README.md, checksums.txt

# Argo CD Output (--deployer argocd)

  - argocd/<component>.yaml: one Application per chart and manifest set
  - app-of-apps.yaml: parent Application
  - README.md, checksums.txt

# Examples

Render with the default deployer:
  homelab render --output ./stack

Override a chart value:
  homelab render --set longhorn:defaultSettings.defaultReplicaCount=2

Render only some components and their dependencies:
  homelab render --only cert-manager --only longhorn

Render for Argo CD and push the tree to a registry:
  homelab render --deployer argocd --repo https://github.com/me/homelab.git \
    --push oci://ghcr.io/me/homelab-stack:v1`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   defaultOutputDir,
				Usage:   "Output directory for the rendered stack",
			},
			&cli.StringFlag{
				Name:    "deployer",
				Aliases: []string{"d"},
				Value:   string(types.DeployerHelm),
				Usage:   fmt.Sprintf("Deployment method: %s", strings.Join(types.SupportedDeployersAsStrings(), " or ")),
			},
			&cli.StringFlag{
				Name:  "repo",
				Usage: "Git repository URL for Argo CD applications (only used with --deployer argocd)",
			},
			&cli.StringSliceFlag{
				Name:  "set",
				Usage: "Override chart values (format: <component|release>:path.to.field=value, can be repeated)",
			},
			&cli.StringSliceFlag{
				Name:  "only",
				Usage: "Render only the named components (can be repeated)",
			},
			&cli.StringFlag{
				Name:  "pki-dir",
				Value: defaultPKIDir,
				Usage: "Directory holding the CA chain, created when missing",
			},
			&cli.StringFlag{
				Name:  "metrics-file",
				Usage: "Write render metrics in Prometheus text format to this file",
			},
			&cli.StringFlag{
				Name:  "push",
				Usage: "Push the rendered stack to an OCI registry (format: oci://registry/repository[:tag])",
			},
			&cli.BoolFlag{
				Name:  "plain-http",
				Usage: "Use HTTP instead of HTTPS for the OCI registry (for local development)",
			},
			&cli.BoolFlag{
				Name:  "insecure-tls",
				Usage: "Skip TLS certificate verification for the OCI registry",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts, err := parseRenderCmdOptions(cmd)
			if err != nil {
				return err
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ca, err := pki.LoadOrCreateChain(opts.pkiDir, pki.DefaultChain)
			if err != nil {
				return err
			}

			b, err := bundler.NewWithConfig(config.NewConfig(
				config.WithDeployer(opts.deployer),
				config.WithRepoURL(opts.repoURL),
				config.WithVersion(version),
				config.WithOnly(opts.only...),
				config.WithValueOverrides(opts.valueOverrides),
			))
			if err != nil {
				return err
			}

			slog.Info("rendering stack",
				"deployer", opts.deployer,
				"output", opts.outputDir,
				"run_id", b.Config.RunID(),
			)

			out, err := b.Make(ctx, component.NewEnvironment(cfg, ca), opts.outputDir)
			if opts.metricsFile != "" {
				if merr := writeMetrics(opts.metricsFile); merr != nil {
					slog.Error("failed to write metrics", "error", merr, "path", opts.metricsFile)
				}
			}
			if err != nil {
				return err
			}

			slog.Info("stack rendered",
				"components", len(out.Results),
				"files", out.TotalFiles,
				"size_bytes", out.TotalSize,
				"duration_sec", out.TotalDuration.Seconds(),
			)
			printDeploymentInstructions(cmd.Root().Writer, out)

			if opts.target != nil {
				return pushStack(ctx, opts)
			}
			return nil
		},
	}
}

// writeMetrics dumps the default registry for the node-exporter textfile collector.
func writeMetrics(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to write metrics file", err)
	}
	return nil
}

func pushStack(ctx context.Context, opts *renderCmdOptions) error {
	absSourceDir, err := filepath.Abs(opts.outputDir)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to resolve output directory", err)
	}

	slog.Info("pushing stack",
		"registry", opts.target.Registry,
		"repository", opts.target.Repository,
		"tag", opts.target.Tag,
	)

	res, err := oci.PackageAndPush(ctx, oci.OutputConfig{
		SourceDir:   absSourceDir,
		Reference:   opts.target,
		Version:     version,
		PlainHTTP:   opts.plainHTTP,
		InsecureTLS: opts.insecureTLS,
	})
	if err != nil {
		return err
	}

	slog.Info("stack pushed", "reference", res.Reference, "digest", res.Digest)
	return nil
}

// printDeploymentInstructions prints the summary and the deployer's steps.
func printDeploymentInstructions(w io.Writer, out *result.Output) {
	fmt.Fprintf(w, "\n%s\n", out.Summary())
	fmt.Fprintf(w, "Output directory: %s\n", out.OutputDir)
	if out.Deployment == nil {
		return
	}

	fmt.Fprintf(w, "\n%s generated. To deploy:\n", out.Deployment.Type)
	for i, step := range out.Deployment.Steps {
		fmt.Fprintf(w, "  %d. %s\n", i+1, step)
	}
	for _, note := range out.Deployment.Notes {
		fmt.Fprintf(w, "\nNote: %s\n", note)
	}
}
