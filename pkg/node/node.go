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
	"bytes"
	"context"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/homelab-stack/homelab/pkg/config"
	"github.com/homelab-stack/homelab/pkg/errors"
	"github.com/homelab-stack/homelab/pkg/remote"
)

// PackagesCommand installs the storage client packages Longhorn requires.
const PackagesCommand = "sudo DEBIAN_FRONTEND=noninteractive sh -c 'apt-get update -q && apt-get install -y -q open-iscsi nfs-common'"

// Bootstrapper prepares one machine. It returns the Runner to keep using,
// which differs from r when the machine was rebooted.
type Bootstrapper interface {
	Bootstrap(ctx context.Context, r remote.Runner) (remote.Runner, error)
}

// For returns the bootstrapper for the board of n.
func For(n config.Node, dial remote.Dialer, opts ...remote.RebootOption) (Bootstrapper, error) {
	switch n.Board {
	case config.BoardRaspberryPi5:
		return &RaspberryPi5{Dial: dial, RebootOptions: opts}, nil
	case config.BoardGeneric, "":
		return Generic{}, nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidConfig, "node %q has unsupported board %q", n.Name, n.Board)
	}
}

// Generic makes no boot changes.
type Generic struct{}

// Bootstrap installs the common packages.
func (Generic) Bootstrap(ctx context.Context, r remote.Runner) (remote.Runner, error) {
	if err := installPackages(ctx, r); err != nil {
		return r, err
	}
	return r, nil
}

func installPackages(ctx context.Context, r remote.Runner) error {
	slog.Info("installing packages", "packages", "open-iscsi,nfs-common")
	if _, err := r.Run(ctx, PackagesCommand); err != nil {
		return errors.Wrap(errors.ErrCodeRemoteExec, "failed to install packages", err)
	}
	return nil
}

// writeIfChanged writes data to path unless the node already has it.
func writeIfChanged(ctx context.Context, r remote.Runner, path string, data []byte, mode os.FileMode) (bool, error) {
	current, err := r.ReadFile(ctx, path)
	if err == nil && bytes.Equal(current, data) {
		slog.Debug("file up to date", "path", path)
		return false, nil
	}
	if err := r.WriteFile(ctx, path, data, mode); err != nil {
		return false, errors.Wrapf(errors.ErrCodeRemoteExec, err, "failed to write %s", path)
	}
	slog.Info("updated file", "path", path, "size_bytes", len(data))
	return true, nil
}

// BootstrapAll bootstraps nodes in parallel, one connection per node.
func BootstrapAll(ctx context.Context, nodes []config.Node, connect remote.Connector, opts ...remote.RebootOption) error {
	if len(nodes) == 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "no nodes to bootstrap")
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, n := range nodes {
		g.Go(func() error {
			return bootstrapOne(ctx, n, connect, opts)
		})
	}
	return g.Wait()
}

func bootstrapOne(ctx context.Context, n config.Node, connect remote.Connector, opts []remote.RebootOption) error {
	b, err := For(n, remote.DialerFor(connect, n), opts...)
	if err != nil {
		return err
	}

	r, err := connect(ctx, n)
	if err != nil {
		return err
	}

	slog.Info("bootstrapping node", "node", n.Name, "board", n.Board)
	r, err = b.Bootstrap(ctx, r)
	if r != nil {
		defer r.Close()
	}
	if err != nil {
		code := errors.CodeOf(err)
		if code == "" {
			code = errors.ErrCodeInternal
		}
		return errors.WrapWithContext(code, "bootstrap failed", err, map[string]any{"node": n.Name})
	}
	slog.Info("node bootstrapped", "node", n.Name)
	return nil
}
