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

package defaults

import (
	"testing"
	"time"

	"github.com/Masterminds/semver/v3"
)

func TestTimeoutConstants(t *testing.T) {
	tests := []struct {
		name     string
		timeout  time.Duration
		minValue time.Duration
		maxValue time.Duration
	}{
		{"SSHDialTimeout", SSHDialTimeout, 1 * time.Second, 30 * time.Second},
		{"SSHCommandTimeout", SSHCommandTimeout, 1 * time.Minute, 30 * time.Minute},
		{"RebootTimeout", RebootTimeout, 1 * time.Minute, 15 * time.Minute},
		{"RebootInitialDelay", RebootInitialDelay, 1 * time.Second, 30 * time.Second},
		{"NodeReadyTimeout", NodeReadyTimeout, 1 * time.Minute, 15 * time.Minute},
		{"NodeReadyPollInterval", NodeReadyPollInterval, 1 * time.Second, 30 * time.Second},
		{"K8sAPITimeout", K8sAPITimeout, 5 * time.Second, 60 * time.Second},
		{"HTTPClientTimeout", HTTPClientTimeout, 5 * time.Second, 2 * time.Minute},
		{"RenderTimeout", RenderTimeout, 30 * time.Second, 10 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.timeout < tt.minValue {
				t.Errorf("%s (%v) is below minimum expected value (%v)", tt.name, tt.timeout, tt.minValue)
			}
			if tt.timeout > tt.maxValue {
				t.Errorf("%s (%v) is above maximum expected value (%v)", tt.name, tt.timeout, tt.maxValue)
			}
		})
	}
}

func TestRebootTimeoutRelationships(t *testing.T) {
	if RebootInitialDelay >= RebootTimeout {
		t.Errorf("RebootInitialDelay (%v) should be less than RebootTimeout (%v)",
			RebootInitialDelay, RebootTimeout)
	}
	if RebootRedialInterval >= RebootTimeout {
		t.Errorf("RebootRedialInterval (%v) should be less than RebootTimeout (%v)",
			RebootRedialInterval, RebootTimeout)
	}
}

func TestVersionsAreSemver(t *testing.T) {
	for key, v := range Versions() {
		if _, err := semver.NewVersion(v); err != nil {
			t.Errorf("version %s=%q is not valid semver: %v", key, v, err)
		}
	}
}

func TestVersionsReturnsCopy(t *testing.T) {
	v := Versions()
	v[KeyIstio] = "0.0.1"
	if Versions()[KeyIstio] != VersionIstio {
		t.Error("Versions() should return a fresh map")
	}
}
