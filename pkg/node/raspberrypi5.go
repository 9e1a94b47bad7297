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

package node

import (
	"context"
	_ "embed"
	"log/slog"
	"slices"
	"strings"

	"github.com/homelab-stack/homelab/pkg/errors"
	"github.com/homelab-stack/homelab/pkg/remote"
)

const (
	ConfigTxtPath  = "/boot/firmware/config.txt"
	EEPROMConfPath = "/boot/firmware/eeprom.conf"
	CmdlinePath    = "/boot/firmware/cmdline.txt"

	modelPath = "/proc/device-tree/model"
	pi5Model  = "Raspberry Pi 5"
)

var (
	//go:embed files/config.txt
	configTxt []byte

	//go:embed files/eeprom.conf
	eepromConf []byte

	cgroupParams = []string{"cgroup_memory=1", "cgroup_enable=memory"}
)

// RaspberryPi5 boots from NVMe with memory cgroups enabled.
type RaspberryPi5 struct {
	// Dial reconnects after the reboot.
	Dial          remote.Dialer
	RebootOptions []remote.RebootOption
}

// Bootstrap applies the boot configuration and reboots when it changed.
func (p *RaspberryPi5) Bootstrap(ctx context.Context, r remote.Runner) (remote.Runner, error) {
	model, err := r.Run(ctx, "tr -d '\\0' < "+modelPath)
	if err != nil {
		return r, errors.Wrap(errors.ErrCodeRemoteExec, "failed to read board model", err)
	}
	if !strings.Contains(model, pi5Model) {
		return r, errors.Newf(errors.ErrCodeInvalidConfig, "board is %q, not a %s", strings.TrimSpace(model), pi5Model)
	}

	if err := installPackages(ctx, r); err != nil {
		return r, err
	}

	changed, err := writeIfChanged(ctx, r, ConfigTxtPath, configTxt, 0o644)
	if err != nil {
		return r, err
	}

	eepromChanged, err := writeIfChanged(ctx, r, EEPROMConfPath, eepromConf, 0o644)
	if err != nil {
		return r, err
	}
	if eepromChanged {
		slog.Info("applying eeprom configuration")
		if _, err := r.Run(ctx, "sudo rpi-eeprom-config --apply "+remote.Quote(EEPROMConfPath)); err != nil {
			return r, errors.Wrap(errors.ErrCodeRemoteExec, "failed to apply eeprom configuration", err)
		}
		changed = true
	}

	current, err := r.ReadFile(ctx, CmdlinePath)
	if err != nil {
		return r, errors.Wrapf(errors.ErrCodeRemoteExec, err, "failed to read %s", CmdlinePath)
	}
	if cmdline, updated := EnableCgroups(string(current)); updated {
		if err := r.WriteFile(ctx, CmdlinePath, []byte(cmdline), 0o644); err != nil {
			return r, errors.Wrapf(errors.ErrCodeRemoteExec, err, "failed to write %s", CmdlinePath)
		}
		slog.Info("enabled memory cgroups", "path", CmdlinePath)
		changed = true
	}

	if !changed {
		slog.Info("boot configuration up to date, skipping reboot")
		return r, nil
	}
	if p.Dial == nil {
		return r, errors.New(errors.ErrCodeInvalidRequest, "reboot required but no dialer configured")
	}

	slog.Info("rebooting node to apply boot configuration")
	return remote.Reboot(ctx, r, p.Dial, p.RebootOptions...)
}

// EnableCgroups appends the memory cgroup parameters missing from a kernel
// command line. The line is returned with a single trailing newline.
func EnableCgroups(cmdline string) (string, bool) {
	line := strings.TrimSpace(cmdline)
	fields := strings.Fields(line)
	updated := false
	for _, param := range cgroupParams {
		if !slices.Contains(fields, param) {
			line += " " + param
			updated = true
		}
	}
	return strings.TrimSpace(line) + "\n", updated
}
