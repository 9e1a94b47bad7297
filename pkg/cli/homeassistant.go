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

	"github.com/homelab-stack/homelab/pkg/component/homeassistant"
	"github.com/homelab-stack/homelab/pkg/errors"
)

func homeAssistantCmd() *cli.Command {
	return &cli.Command{
		Name:  "homeassistant",
		Usage: "Home Assistant helpers",
		Commands: []*cli.Command{
			{
				Name:  "extract",
				Usage: "Convert UI managed Home Assistant configuration to YAML",
				Description: `Reads automations, scripts, scenes, dashboards and integrations from the
.storage directory of the running pod and writes them as YAML files with a
configuration.yaml that includes them. The pod is reached with the k3s
kubectl of the first server node.

The output defaults to apps.homeassistant.configDir, so the next render
seeds the instance with the extracted files. Existing files are overwritten.
Integration credentials are not extracted.`,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Directory to write the files to (default: apps.homeassistant.configDir)",
					},
					askPassFlag(),
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, err := loadConfig(cmd)
					if err != nil {
						return err
					}
					dir := cmd.String("output")
					if dir == "" {
						dir = cfg.Apps.HomeAssistant.ConfigDir
					}
					if dir == "" {
						return errors.New(errors.ErrCodeInvalidRequest,
							"--output or apps.homeassistant.configDir is required")
					}
					servers := cfg.Servers()
					if len(servers) == 0 {
						return errors.New(errors.ErrCodeInvalidConfig, "at least one server node is required")
					}
					connect, err := connectorFor(cmd, cfg)
					if err != nil {
						return err
					}

					r, err := connect(ctx, servers[0])
					if err != nil {
						return err
					}
					defer r.Close()

					written, err := homeassistant.Extract(ctx, r, dir)
					if err != nil {
						return err
					}
					slog.Info("home assistant configuration extracted", "dir", dir, "files", len(written))
					for _, f := range written {
						if _, err := fmt.Fprintln(cmd.Root().Writer, f); err != nil {
							return err
						}
					}
					return nil
				},
			},
		},
	}
}
