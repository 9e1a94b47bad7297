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
	stderrors "errors"
	"io"
	"log/slog"
	"net"
	"syscall"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/time/rate"

	"github.com/homelab-stack/homelab/pkg/defaults"
	"github.com/homelab-stack/homelab/pkg/errors"
)

// RebootCommand is issued to restart a node.
const RebootCommand = "sudo reboot"

type rebootOptions struct {
	timeout      time.Duration
	initialDelay time.Duration
	interval     time.Duration
}

// RebootOption customizes Reboot.
type RebootOption func(*rebootOptions)

// WithRebootTimeout bounds how long the node may take to come back.
func WithRebootTimeout(d time.Duration) RebootOption {
	return func(o *rebootOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithInitialDelay sets how long to wait before the first redial.
func WithInitialDelay(d time.Duration) RebootOption {
	return func(o *rebootOptions) {
		if d >= 0 {
			o.initialDelay = d
		}
	}
}

// WithRedialInterval sets the minimum spacing between redial attempts.
func WithRedialInterval(d time.Duration) RebootOption {
	return func(o *rebootOptions) {
		if d > 0 {
			o.interval = d
		}
	}
}

// Reboot restarts the node behind r and returns a fresh Runner once the node
// accepts commands again. r is closed in all cases.
func Reboot(ctx context.Context, r Runner, dial Dialer, opts ...RebootOption) (Runner, error) {
	o := rebootOptions{
		timeout:      defaults.RebootTimeout,
		initialDelay: defaults.RebootInitialDelay,
		interval:     defaults.RebootRedialInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}

	_, err := r.Run(ctx, RebootCommand)
	_ = r.Close()
	if err != nil && !IsDisconnect(err) {
		return nil, errors.Wrap(errors.ErrCodeRemoteExec, "failed to reboot node", err)
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	timer := time.NewTimer(o.initialDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, rebootTimeout(ctx.Err(), o.timeout, 0)
	case <-timer.C:
	}

	limiter := rate.NewLimiter(rate.Every(o.interval), 1)
	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			return nil, rebootTimeout(lastErr, o.timeout, attempt-1)
		}

		next, err := dial(ctx)
		if err == nil {
			if _, err = next.Run(ctx, "true"); err == nil {
				slog.Info("node is back after reboot", "attempts", attempt)
				return next, nil
			}
			_ = next.Close()
		}
		lastErr = err
		slog.Debug("node not reachable yet", "attempt", attempt, "error", err)
	}
}

func rebootTimeout(cause error, timeout time.Duration, attempts int) error {
	return errors.WrapWithContext(errors.ErrCodeTimeout, "node did not come back after reboot", cause,
		map[string]any{"timeout": timeout.String(), "attempts": attempts})
}

// IsDisconnect reports whether err is the connection dropping underneath a
// command, as happens when the command reboots the node.
func IsDisconnect(err error) bool {
	if err == nil {
		return false
	}
	var exitMissing *ssh.ExitMissingError
	if stderrors.As(err, &exitMissing) {
		return true
	}
	return stderrors.Is(err, io.EOF) ||
		stderrors.Is(err, net.ErrClosed) ||
		stderrors.Is(err, syscall.ECONNRESET) ||
		stderrors.Is(err, syscall.EPIPE)
}
