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

package component

import (
	"fmt"
	"strings"

	"github.com/homelab-stack/homelab/pkg/errors"
)

// Stage groups components into the phases a homelab comes up in.
// Stages are ordered; a component may only depend on components of the
// same or an earlier stage.
type Stage int

const (
	StageCluster Stage = iota
	StagePKI
	StageStorage
	StageNetwork
	StageDNS
	StageMonitoring
	StageApps
)

var stageNames = []string{
	StageCluster:    "cluster",
	StagePKI:        "pki",
	StageStorage:    "storage",
	StageNetwork:    "network",
	StageDNS:        "dns",
	StageMonitoring: "monitoring",
	StageApps:       "apps",
}

// String returns the stage name.
func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// ParseStage converts a stage name to a Stage.
func ParseStage(name string) (Stage, error) {
	for i, n := range stageNames {
		if strings.EqualFold(n, name) {
			return Stage(i), nil
		}
	}
	return 0, errors.Newf(errors.ErrCodeInvalidConfig, "unknown stage %q (must be one of %s)", name, strings.Join(stageNames, ", "))
}

// Stages returns every stage in order.
func Stages() []Stage {
	out := make([]Stage, len(stageNames))
	for i := range stageNames {
		out[i] = Stage(i)
	}
	return out
}

// MarshalText implements encoding.TextMarshaler.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Stage) UnmarshalText(text []byte) error {
	parsed, err := ParseStage(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
