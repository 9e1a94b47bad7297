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

package tailscale

import (
	"encoding/json"

	"github.com/homelab-stack/homelab/pkg/errors"
)

// Rule is a tailnet access rule.
type Rule struct {
	Action string   `json:"action"`
	Src    []string `json:"src"`
	Dst    []string `json:"dst"`
}

// Policy is the subset of the tailnet policy file homelab manages.
type Policy struct {
	ACLs      []Rule              `json:"acls"`
	TagOwners map[string][]string `json:"tagOwners"`
}

// DefaultPolicy allows all traffic and lets the operator own the tags it
// assigns to proxies.
func DefaultPolicy() Policy {
	return Policy{
		ACLs: []Rule{
			{Action: "accept", Src: []string{"*"}, Dst: []string{"*:*"}},
		},
		TagOwners: map[string][]string{
			"tag:k8s-operator": {},
			"tag:k8s":          {"tag:k8s-operator"},
		},
	}
}

// ACL renders DefaultPolicy as indented JSON.
func ACL() ([]byte, error) {
	data, err := json.MarshalIndent(DefaultPolicy(), "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to marshal tailscale policy", err)
	}
	return append(data, '\n'), nil
}
