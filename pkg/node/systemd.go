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
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/coreos/go-systemd/v22/unit"

	"github.com/homelab-stack/homelab/pkg/config"
	"github.com/homelab-stack/homelab/pkg/errors"
)

// DropInName is the file name of the managed k3s drop-in.
const DropInName = "10-homelab.conf"

// DropInPath returns where the drop-in for role is installed.
func DropInPath(role config.Role) string {
	service := "k3s.service"
	if role == config.RoleAgent {
		service = "k3s-agent.service"
	}
	return "/etc/systemd/system/" + service + ".d/" + DropInName
}

// SystemdDropIn renders a [Service] drop-in setting env for the k3s unit.
// Keys are sorted so the output is stable.
func SystemdDropIn(env map[string]string) ([]byte, error) {
	opts := []*unit.UnitOption{
		unit.NewUnitOption("Service", "Environment", strconv.Quote("HOMELAB_MANAGED=true")),
	}
	for _, k := range slices.Sorted(maps.Keys(env)) {
		if k == "" || strings.ContainsAny(k, "= \t\n\"") {
			return nil, errors.Newf(errors.ErrCodeInvalidConfig, "invalid environment variable name %q", k)
		}
		if strings.Contains(env[k], "\n") {
			return nil, errors.Newf(errors.ErrCodeInvalidConfig, "environment variable %s contains a newline", k)
		}
		opts = append(opts, unit.NewUnitOption("Service", "Environment", strconv.Quote(k+"="+env[k])))
	}

	b, err := io.ReadAll(unit.Serialize(opts))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to serialize drop-in", err)
	}
	return b, nil
}
