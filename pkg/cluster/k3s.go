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
	"fmt"
	"log/slog"
	"maps"
	"net"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/homelab-stack/homelab/pkg/config"
	"github.com/homelab-stack/homelab/pkg/defaults"
	"github.com/homelab-stack/homelab/pkg/errors"
	"github.com/homelab-stack/homelab/pkg/node"
	"github.com/homelab-stack/homelab/pkg/remote"
)

const (
	InstallScriptURL = "https://get.k3s.io"
	TokenPath        = "/var/lib/rancher/k3s/server/token"
	KubeconfigPath   = "/etc/rancher/k3s/k3s.yaml"
	TokenFilePath    = "/etc/rancher/k3s/cluster-token"

	ServerUninstallScript = "/usr/local/bin/k3s-uninstall.sh"
	AgentUninstallScript  = "/usr/local/bin/k3s-agent-uninstall.sh"

	apiServerPort = "6443"
)

// DisabledComponents are the packaged k3s add-ons the stack replaces.
var DisabledComponents = []string{"traefik", "servicelb", "local-storage"}

// K3s describes one k3s cluster.
type K3s struct {
	Name    string
	Servers []config.Node
	Agents  []config.Node
	Token   string
	SANs    []string
	VIP     string
	Version string
	Connect remote.Connector
}

// New builds a K3s from the infrastructure config.
func New(cfg *config.Config, connect remote.Connector) *K3s {
	return &K3s{
		Name:    cfg.Cluster.Name,
		Servers: cfg.Servers(),
		Agents:  cfg.Agents(),
		Token:   cfg.Cluster.Token,
		SANs:    cfg.SANs(),
		VIP:     cfg.Cluster.VIP,
		Version: cfg.Version(defaults.KeyK3s),
		Connect: connect,
	}
}

// JoinURL is the API endpoint joining nodes register with. The first server
// is used rather than the VIP because kube-vip only runs once the stack is
// deployed.
func (k *K3s) JoinURL() string {
	return "https://" + net.JoinHostPort(k.Servers[0].Address, apiServerPort)
}

// APIAddress is the address written into the kubeconfig: the VIP when set.
func (k *K3s) APIAddress() string {
	if k.VIP != "" {
		return k.VIP
	}
	return k.Servers[0].Address
}

// Install installs k3s on every server in order, then on all agents in
// parallel.
func (k *K3s) Install(ctx context.Context) error {
	if len(k.Servers) == 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "at least one server node is required")
	}
	if k.Connect == nil {
		return errors.New(errors.ErrCodeInvalidRequest, "no connector configured")
	}

	token := k.Token
	for i, n := range k.Servers {
		init := i == 0
		if err := k.installNode(ctx, n, token, k.ServerCommand(n, init, token != "")); err != nil {
			return err
		}
		if init && token == "" {
			t, err := k.readToken(ctx)
			if err != nil {
				return err
			}
			token = t
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, n := range k.Agents {
		g.Go(func() error {
			return k.installNode(gctx, n, token, k.AgentCommand(n))
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("k3s installed", "servers", len(k.Servers), "agents", len(k.Agents))
	return nil
}

func (k *K3s) installNode(ctx context.Context, n config.Node, token, cmd string) error {
	r, err := k.Connect(ctx, n)
	if err != nil {
		return err
	}
	defer r.Close()

	role := roleOf(n)
	slog.Info("installing k3s", "node", n.Name, "role", role, "version", k.Version)

	if token != "" {
		if err := r.WriteFile(ctx, TokenFilePath, []byte(token+"\n"), 0o600); err != nil {
			return errors.WrapWithContext(errors.ErrCodeRemoteExec, "failed to write cluster token", err,
				map[string]any{"node": n.Name})
		}
	}

	if len(n.Environment) > 0 {
		dropIn, err := node.SystemdDropIn(n.Environment)
		if err != nil {
			return err
		}
		if err := r.WriteFile(ctx, node.DropInPath(role), dropIn, 0o644); err != nil {
			return errors.WrapWithContext(errors.ErrCodeRemoteExec, "failed to write systemd drop-in", err,
				map[string]any{"node": n.Name})
		}
	}

	if _, err := r.Run(ctx, cmd); err != nil {
		return errors.WrapWithContext(errors.ErrCodeRemoteExec, "k3s installation failed", err,
			map[string]any{"node": n.Name, "role": string(role)})
	}
	return nil
}

func roleOf(n config.Node) config.Role {
	if n.Role == "" {
		return config.RoleServer
	}
	return n.Role
}

func (k *K3s) installPrefix(env ...string) string {
	var b strings.Builder
	b.WriteString("curl -sfL " + InstallScriptURL + " | ")
	if k.Version != "" {
		b.WriteString("INSTALL_K3S_VERSION=" + remote.Quote(k.Version) + " ")
	}
	for _, e := range env {
		b.WriteString(e + " ")
	}
	b.WriteString("sh -s - ")
	return b.String()
}

// ServerCommand returns the installer invocation for a server. init starts
// a new cluster; otherwise the server joins JoinURL.
func (k *K3s) ServerCommand(n config.Node, init, withTokenFile bool) string {
	args := []string{"server"}
	if init {
		args = append(args, "--cluster-init")
	} else {
		args = append(args, "--server", remote.Quote(k.JoinURL()))
	}
	if withTokenFile || !init {
		args = append(args, "--token-file", remote.Quote(TokenFilePath))
	}
	args = append(args, "--node-name", remote.Quote(n.Name))
	for _, c := range DisabledComponents {
		args = append(args, "--disable="+c)
	}
	for _, san := range k.SANs {
		args = append(args, "--tls-san", remote.Quote(san))
	}
	args = append(args, nodeLabelArgs(n)...)
	return k.installPrefix() + strings.Join(args, " ")
}

// AgentCommand returns the installer invocation for an agent.
func (k *K3s) AgentCommand(n config.Node) string {
	args := []string{"agent", "--node-name", remote.Quote(n.Name)}
	args = append(args, nodeLabelArgs(n)...)
	return k.installPrefix(
		"K3S_URL="+remote.Quote(k.JoinURL()),
		"K3S_TOKEN_FILE="+remote.Quote(TokenFilePath),
	) + strings.Join(args, " ")
}

func nodeLabelArgs(n config.Node) []string {
	var args []string
	for _, key := range slices.Sorted(maps.Keys(n.Labels)) {
		args = append(args, "--node-label", remote.Quote(fmt.Sprintf("%s=%s", key, n.Labels[key])))
	}
	return args
}

// Uninstall removes k3s from agents, then servers, in reverse declaration
// order. Nodes without k3s are skipped.
func (k *K3s) Uninstall(ctx context.Context) error {
	if k.Connect == nil {
		return errors.New(errors.ErrCodeInvalidRequest, "no connector configured")
	}
	for _, n := range slices.Backward(k.Agents) {
		if err := k.uninstallNode(ctx, n, AgentUninstallScript); err != nil {
			return err
		}
	}
	for _, n := range slices.Backward(k.Servers) {
		if err := k.uninstallNode(ctx, n, ServerUninstallScript); err != nil {
			return err
		}
	}
	slog.Info("k3s uninstalled", "servers", len(k.Servers), "agents", len(k.Agents))
	return nil
}

// UninstallCommand runs script when it exists.
func UninstallCommand(script string) string {
	q := remote.Quote(script)
	return fmt.Sprintf("if [ -x %s ]; then sudo %s; fi", q, q)
}

func (k *K3s) uninstallNode(ctx context.Context, n config.Node, script string) error {
	r, err := k.Connect(ctx, n)
	if err != nil {
		return err
	}
	defer r.Close()

	slog.Info("uninstalling k3s", "node", n.Name)
	if _, err := r.Run(ctx, UninstallCommand(script)); err != nil {
		return errors.WrapWithContext(errors.ErrCodeRemoteExec, "k3s uninstall failed", err,
			map[string]any{"node": n.Name})
	}
	return nil
}

// ReadToken reads the join token from the first server.
func (k *K3s) ReadToken(ctx context.Context) (string, error) {
	if len(k.Servers) == 0 {
		return "", errors.New(errors.ErrCodeInvalidConfig, "at least one server node is required")
	}
	return k.readToken(ctx)
}

func (k *K3s) readToken(ctx context.Context) (string, error) {
	data, err := k.readFromFirstServer(ctx, TokenPath)
	if err != nil {
		return "", err
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", errors.Newf(errors.ErrCodeNotFound, "%s is empty on %s", TokenPath, k.Servers[0].Name)
	}
	return token, nil
}

// Kubeconfig returns the admin kubeconfig of the first server, rewritten to
// point at APIAddress and named after the cluster.
func (k *K3s) Kubeconfig(ctx context.Context) ([]byte, error) {
	if len(k.Servers) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "at least one server node is required")
	}
	data, err := k.readFromFirstServer(ctx, KubeconfigPath)
	if err != nil {
		return nil, err
	}
	return RewriteKubeconfig(data, k.APIAddress(), k.Name)
}

func (k *K3s) readFromFirstServer(ctx context.Context, path string) ([]byte, error) {
	if k.Connect == nil {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "no connector configured")
	}
	first := k.Servers[0]
	r, err := k.Connect(ctx, first)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err := r.ReadFile(ctx, path)
	if err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeNotFound, "failed to read file from server", err,
			map[string]any{"node": first.Name, "path": path})
	}
	return data, nil
}
