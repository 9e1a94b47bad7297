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

package cluster

import (
	"context"
	"log/slog"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/kubernetes"

	"github.com/homelab-stack/homelab/pkg/defaults"
	"github.com/homelab-stack/homelab/pkg/errors"
	"github.com/homelab-stack/homelab/pkg/k8s/node"
)

var readyPollInterval = defaults.NodeReadyPollInterval

// WaitForNodesReady polls until at least expected nodes report Ready.
// API errors while k3s starts are retried until timeout.
func WaitForNodesReady(ctx context.Context, client kubernetes.Interface, expected int, timeout time.Duration) error {
	if expected <= 0 {
		return errors.Newf(errors.ErrCodeInvalidRequest, "expected node count must be positive, got %d", expected)
	}
	if timeout <= 0 {
		timeout = defaults.NodeReadyTimeout
	}

	ready := 0
	var lastErr error
	err := wait.PollUntilContextTimeout(ctx, readyPollInterval, timeout, true, func(ctx context.Context) (bool, error) {
		nodes, err := node.List(ctx, client, "")
		if err != nil {
			lastErr = err
			slog.Debug("listing nodes failed, retrying", "error", err)
			return false, nil
		}
		ready = 0
		for _, n := range nodes {
			if node.IsReady(n) {
				ready++
			}
		}
		slog.Debug("waiting for nodes", "ready", ready, "expected", expected)
		return ready >= expected, nil
	})
	if err != nil {
		ctxInfo := map[string]any{"ready": ready, "expected": expected, "timeout": timeout.String()}
		if lastErr != nil {
			ctxInfo["lastError"] = lastErr.Error()
		}
		return errors.WrapWithContext(errors.ErrCodeTimeout, "nodes did not become ready", err, ctxInfo)
	}

	slog.Info("all nodes ready", "count", ready)
	return nil
}
