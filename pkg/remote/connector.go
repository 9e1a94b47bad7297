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

package remote

import (
	"context"

	"github.com/homelab-stack/homelab/pkg/config"
)

// Connector opens a Runner to a configured node.
type Connector func(ctx context.Context, n config.Node) (Runner, error)

// SSHConnector dials nodes with the SSH settings of cfg. A non-empty
// password replaces the configured one.
func SSHConnector(cfg *config.Config, password string) Connector {
	return func(ctx context.Context, n config.Node) (Runner, error) {
		c := ConfigFor(cfg, n)
		if password != "" {
			c.Password = password
		}
		return Dial(ctx, c)
	}
}

// DialerFor binds connect to a single node.
func DialerFor(connect Connector, n config.Node) Dialer {
	return func(ctx context.Context) (Runner, error) {
		return connect(ctx, n)
	}
}
