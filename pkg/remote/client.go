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
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/homelab-stack/homelab/pkg/config"
	"github.com/homelab-stack/homelab/pkg/defaults"
	"github.com/homelab-stack/homelab/pkg/errors"
)

// Runner executes commands and moves files on a single node.
type Runner interface {
	// Run executes cmd and returns its standard output.
	Run(ctx context.Context, cmd string) (string, error)
	// ReadFile returns the content of an absolute path, read with sudo.
	ReadFile(ctx context.Context, path string) ([]byte, error)
	// WriteFile installs data at an absolute path with the given mode.
	WriteFile(ctx context.Context, path string, data []byte, mode os.FileMode) error
	// Close releases the connection.
	Close() error
}

// Dialer opens a new Runner to the same node.
type Dialer func(ctx context.Context) (Runner, error)

// Config describes how to reach one node.
type Config struct {
	// Node is the node name used in logs and metrics.
	Node           string
	Address        string
	Port           int
	User           string
	Password       string
	PrivateKeyPath string
	// KnownHostsPath enables host key verification when set.
	KnownHostsPath string
	DialTimeout    time.Duration
	CommandTimeout time.Duration
}

// ConfigFor builds the connection settings of n from the infrastructure config.
func ConfigFor(cfg *config.Config, n config.Node) Config {
	s := cfg.SSHFor(n)
	return Config{
		Node:           n.Name,
		Address:        n.Address,
		Port:           s.Port,
		User:           s.User,
		Password:       s.Password,
		PrivateKeyPath: s.PrivateKeyPath,
		KnownHostsPath: s.KnownHostsPath,
		DialTimeout:    defaults.SSHDialTimeout,
		CommandTimeout: defaults.SSHCommandTimeout,
	}
}

// Addr returns host:port.
func (c Config) Addr() string {
	port := c.Port
	if port == 0 {
		port = 22
	}
	return net.JoinHostPort(c.Address, strconv.Itoa(port))
}

// Client is a Runner backed by an SSH connection.
type Client struct {
	cfg  Config
	conn *ssh.Client
}

var _ Runner = (*Client)(nil)

// Dial connects to the node described by cfg.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Address == "" {
		return nil, errors.Newf(errors.ErrCodeInvalidConfig, "node %q has no address", cfg.Node)
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaults.SSHDialTimeout
	}
	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = defaults.SSHCommandTimeout
	}

	clientConfig, err := clientConfig(cfg)
	if err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()

	addr := cfg.Addr()
	var d net.Dialer
	nc, err := d.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return nil, errors.WrapWithContext(errors.ErrCodeUnavailable, "failed to reach node", err,
			map[string]any{"node": cfg.Node, "address": addr})
	}
	if deadline, ok := dialCtx.Deadline(); ok {
		_ = nc.SetDeadline(deadline)
	}

	conn, chans, reqs, err := ssh.NewClientConn(nc, addr, clientConfig)
	if err != nil {
		_ = nc.Close()
		return nil, errors.WrapWithContext(errors.ErrCodeUnavailable, "ssh handshake failed", err,
			map[string]any{"node": cfg.Node, "address": addr, "user": cfg.User})
	}
	_ = nc.SetDeadline(time.Time{})

	slog.Debug("ssh connected", "node", cfg.Node, "address", addr, "user", cfg.User)

	return &Client{cfg: cfg, conn: ssh.NewClient(conn, chans, reqs)}, nil
}

// Dialer returns a Dialer that reconnects with the same settings.
func (c *Client) Dialer() Dialer {
	cfg := c.cfg
	return func(ctx context.Context) (Runner, error) {
		return Dial(ctx, cfg)
	}
}

func clientConfig(cfg Config) (*ssh.ClientConfig, error) {
	auth, err := authMethods(cfg)
	if err != nil {
		return nil, err
	}
	callback, err := hostKeyCallback(cfg)
	if err != nil {
		return nil, err
	}
	return &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            auth,
		HostKeyCallback: callback,
		Timeout:         cfg.DialTimeout,
	}, nil
}

func authMethods(cfg Config) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	if cfg.PrivateKeyPath != "" {
		key, err := os.ReadFile(cfg.PrivateKeyPath)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeNotFound, err, "failed to read private key %s", cfg.PrivateKeyPath)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidConfig, err, "failed to parse private key %s", cfg.PrivateKeyPath)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if cfg.Password != "" {
		methods = append(methods, ssh.Password(cfg.Password))
	}
	if len(methods) == 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidConfig,
			"no ssh credentials for node %q: set ssh.privateKeyPath or ssh.password", cfg.Node)
	}
	return methods, nil
}

func hostKeyCallback(cfg Config) (ssh.HostKeyCallback, error) {
	if cfg.KnownHostsPath == "" {
		return func(hostname string, _ net.Addr, key ssh.PublicKey) error {
			slog.Debug("accepting host key", "node", cfg.Node, "host", hostname,
				"fingerprint", ssh.FingerprintSHA256(key))
			return nil
		}, nil
	}
	callback, err := knownhosts.New(cfg.KnownHostsPath)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfig, err, "failed to load known hosts %s", cfg.KnownHostsPath)
	}
	return callback, nil
}

// Run executes cmd in a new session. Output on stderr is attached to the
// error when the command fails.
func (c *Client) Run(ctx context.Context, cmd string) (string, error) {
	return c.run(ctx, cmd, nil)
}

func (c *Client) run(ctx context.Context, cmd string, stdin io.Reader) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CommandTimeout)
	defer cancel()

	session, err := c.conn.NewSession()
	if err != nil {
		recordCommand(c.cfg.Node, err)
		return "", errors.WrapWithContext(errors.ErrCodeUnavailable, "failed to open ssh session", err,
			map[string]any{"node": c.cfg.Node})
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdin = stdin
	session.Stdout = &stdout
	session.Stderr = &stderr

	slog.Debug("running remote command", "node", c.cfg.Node, "command", cmd)

	done := make(chan error, 1)
	go func() { done <- session.Run(cmd) }()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGTERM)
		_ = session.Close()
		recordCommand(c.cfg.Node, ctx.Err())
		return "", errors.WrapWithContext(errors.ErrCodeTimeout, "remote command did not finish", ctx.Err(),
			map[string]any{"node": c.cfg.Node, "command": cmd})
	case err := <-done:
		recordCommand(c.cfg.Node, err)
		if err != nil {
			return stdout.String(), errors.WrapWithContext(errors.ErrCodeRemoteExec, "remote command failed", err,
				map[string]any{"node": c.cfg.Node, "command": cmd, "stderr": stderr.String()})
		}
		return stdout.String(), nil
	}
}

// ReadFile reads path with `sudo cat`.
func (c *Client) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}
	out, err := c.Run(ctx, ReadCommand(path))
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

// WriteFile streams data into a private temporary file then installs it at
// path, in one session.
func (c *Client) WriteFile(ctx context.Context, path string, data []byte, mode os.FileMode) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	if _, err := c.run(ctx, UploadCommand(path, mode), bytes.NewReader(data)); err != nil {
		return errors.Wrapf(errors.CodeOf(err), err, "failed to install %s", path)
	}
	slog.Debug("wrote remote file", "node", c.cfg.Node, "path", path, "size_bytes", len(data))
	return nil
}

// Close closes the SSH connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	if err != nil && !stderrors.Is(err, net.ErrClosed) {
		return fmt.Errorf("failed to close ssh connection: %w", err)
	}
	return nil
}
