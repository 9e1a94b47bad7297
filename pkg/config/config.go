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

package config

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/netip"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/distribution/reference"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/validation"

	"github.com/homelab-stack/homelab/pkg/defaults"
	"github.com/homelab-stack/homelab/pkg/errors"
)

const (
	// DefaultPath is the config file used when none is given.
	DefaultPath = "infra.yaml"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "HOMELAB_"

	// EnvConfigPath names the environment variable holding the config path.
	EnvConfigPath = EnvPrefix + "CONFIG"

	defaultClusterName  = "homelab"
	defaultDomain       = "homelab"
	defaultSSHPort      = 22
	defaultVIPInterface = "eth0"
	defaultStorageClass = "longhorn"
	defaultPoolName     = "homelab"
	defaultPoolRange    = "192.168.100.6-192.168.100.254"
	defaultK8sGatewayIP = "10.43.200.53"
	defaultRetention    = "30d"
	defaultPromStorage  = "50Gi"
)

// DefaultSANs are added to every k3s server certificate.
var DefaultSANs = []string{"kube.local", "kubernetes.local", "k8s.local", "k3s.local"}

// DefaultUpstreams are the resolvers CoreDNS forwards to.
var DefaultUpstreams = []string{"1.1.1.1", "8.8.8.8"}

// LookupFunc resolves environment variables. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// Load reads, defaults, overlays environment and validates the config at path.
// An empty path falls back to HOMELAB_CONFIG and then DefaultPath.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithContext(errors.ErrCodeNotFound, "config file not found", err,
				map[string]any{"path": path})
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to read config file", err)
	}

	cfg, err := Parse(data, os.LookupEnv)
	if err != nil {
		return nil, err
	}

	slog.Debug("config loaded",
		"path", path,
		"nodes", len(cfg.Nodes),
		"pools", len(cfg.Network.AddressPools),
	)

	return cfg, nil
}

// Parse decodes infra.yaml content, applies defaults and env overrides, and validates.
// Unknown fields are rejected.
func Parse(data []byte, lookup LookupFunc) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, "failed to parse config", err)
	}

	cfg.ApplyEnv(lookup)
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Cluster.Name == "" {
		c.Cluster.Name = defaultClusterName
	}
	if c.Cluster.Domain == "" {
		c.Cluster.Domain = defaultDomain
	}
	if c.Cluster.VIPInterface == "" {
		c.Cluster.VIPInterface = defaultVIPInterface
	}
	if c.SSH.Port == 0 {
		c.SSH.Port = defaultSSHPort
	}
	for i := range c.Nodes {
		if c.Nodes[i].Role == "" {
			c.Nodes[i].Role = RoleServer
		}
		if c.Nodes[i].Board == "" {
			c.Nodes[i].Board = BoardGeneric
		}
	}
	if len(c.Network.AddressPools) == 0 {
		c.Network.AddressPools = []AddressPool{{Name: defaultPoolName, Addresses: []string{defaultPoolRange}}}
	}
	if c.Network.DNSPool == "" {
		c.Network.DNSPool = c.Network.AddressPools[0].Name
	}
	if c.Network.K8sGatewayIP == "" {
		c.Network.K8sGatewayIP = defaultK8sGatewayIP
	}
	if c.Tailscale.Hostname == "" {
		c.Tailscale.Hostname = c.Cluster.Name + "-operator"
	}
	if c.Storage.StorageClass == "" {
		c.Storage.StorageClass = defaultStorageClass
	}
	if len(c.DNS.Upstreams) == 0 {
		c.DNS.Upstreams = append([]string(nil), DefaultUpstreams...)
	}
	if c.Monitoring.Retention == "" {
		c.Monitoring.Retention = defaultRetention
	}
	if c.Monitoring.StorageSize == "" {
		c.Monitoring.StorageSize = defaultPromStorage
	}

	ha := &c.Apps.HomeAssistant
	if ha.StorageSize == "" {
		ha.StorageSize = "10Gi"
	}
	if ha.Hostname == "" {
		ha.Hostname = "homeassistant." + c.Cluster.Domain
	}
	if ha.Timezone == "" {
		ha.Timezone = "UTC"
	}

	st := &c.Apps.Syncthing
	if st.StorageSize == "" {
		st.StorageSize = "100Gi"
	}
	if st.Hostname == "" {
		st.Hostname = "syncthing." + c.Cluster.Domain
	}
	if st.Tailscale.Hostname == "" {
		st.Tailscale.Hostname = "syncthing"
	}

	versions := defaults.Versions()
	for k, v := range c.Versions {
		versions[k] = v
	}
	c.Versions = versions
}

// ApplyEnv overlays secrets from HOMELAB_* environment variables.
func (c *Config) ApplyEnv(lookup LookupFunc) {
	if lookup == nil {
		return
	}
	set := func(dst *string, key string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	set(&c.Cluster.Token, "CLUSTER_TOKEN")
	set(&c.Cluster.VIP, "CLUSTER_VIP")
	set(&c.SSH.User, "SSH_USER")
	set(&c.SSH.Password, "SSH_PASSWORD")
	set(&c.SSH.PrivateKeyPath, "SSH_PRIVATE_KEY_PATH")
	set(&c.Tailscale.Operator.ClientID, "TAILSCALE_OPERATOR_CLIENT_ID")
	set(&c.Tailscale.Operator.ClientSecret, "TAILSCALE_OPERATOR_CLIENT_SECRET")
	set(&c.Tailscale.Admin.ClientID, "TAILSCALE_ADMIN_CLIENT_ID")
	set(&c.Tailscale.Admin.ClientSecret, "TAILSCALE_ADMIN_CLIENT_SECRET")
}

// Validate checks required fields and formats. All problems are reported together.
func (c *Config) Validate() error {
	var problems []string

	if len(c.Nodes) == 0 {
		problems = append(problems, "at least one node is required")
	} else if len(c.Servers()) == 0 {
		problems = append(problems, "at least one server node is required")
	}

	seen := make(map[string]bool, len(c.Nodes))
	for i, n := range c.Nodes {
		if n.Name == "" {
			problems = append(problems, fmt.Sprintf("nodes[%d]: name is required", i))
		} else if seen[n.Name] {
			problems = append(problems, fmt.Sprintf("nodes[%d]: duplicate name %q", i, n.Name))
		}
		seen[n.Name] = true
		if n.Address == "" {
			problems = append(problems, fmt.Sprintf("nodes[%d]: address is required", i))
		} else if err := ValidateHost(n.Address); err != nil {
			problems = append(problems, fmt.Sprintf("nodes[%d]: %v", i, err))
		}
		switch n.Role {
		case RoleServer, RoleAgent, "":
		default:
			problems = append(problems, fmt.Sprintf("nodes[%d]: unknown role %q", i, n.Role))
		}
		switch n.Board {
		case BoardRaspberryPi5, BoardGeneric, "":
		default:
			problems = append(problems, fmt.Sprintf("nodes[%d]: unknown board %q", i, n.Board))
		}
	}

	if c.Cluster.VIP != "" && net.ParseIP(c.Cluster.VIP) == nil {
		problems = append(problems, fmt.Sprintf("cluster.vip %q is not a valid IP address", c.Cluster.VIP))
	}

	poolNames := make(map[string]bool, len(c.Network.AddressPools))
	for i, p := range c.Network.AddressPools {
		if p.Name == "" {
			problems = append(problems, fmt.Sprintf("network.addressPools[%d]: name is required", i))
		}
		poolNames[p.Name] = true
		if len(p.Addresses) == 0 {
			problems = append(problems, fmt.Sprintf("network.addressPools[%d]: at least one address range is required", i))
		}
		for _, a := range p.Addresses {
			if err := ValidateAddressRange(a); err != nil {
				problems = append(problems, fmt.Sprintf("network.addressPools[%d]: %v", i, err))
			}
		}
	}
	if c.Network.DNSPool != "" && len(c.Network.AddressPools) > 0 && !poolNames[c.Network.DNSPool] {
		problems = append(problems, fmt.Sprintf("network.dnsPool %q does not name an address pool", c.Network.DNSPool))
	}
	if c.Network.K8sGatewayIP != "" && net.ParseIP(c.Network.K8sGatewayIP) == nil {
		problems = append(problems, fmt.Sprintf("network.k8sGatewayIP %q is not a valid IP address", c.Network.K8sGatewayIP))
	}
	for _, u := range c.DNS.Upstreams {
		if net.ParseIP(u) == nil {
			problems = append(problems, fmt.Sprintf("dns.upstreams: %q is not a valid IP address", u))
		}
	}

	for k, v := range c.Versions {
		if _, err := semver.NewVersion(v); err != nil {
			problems = append(problems, fmt.Sprintf("versions.%s: %q is not a valid version", k, v))
		}
	}

	if img := c.Apps.HomeAssistant.Image; img != "" {
		if _, err := reference.ParseNormalizedNamed(img); err != nil {
			problems = append(problems, fmt.Sprintf("apps.homeassistant.image: %v", err))
		}
	}

	if len(problems) > 0 {
		return errors.NewWithContext(errors.ErrCodeInvalidConfig,
			"invalid configuration: "+strings.Join(problems, "; "),
			map[string]any{"problems": problems})
	}
	return nil
}

// ValidateHost accepts an IP address or a DNS host name, without a port.
func ValidateHost(s string) error {
	if _, err := netip.ParseAddr(s); err == nil {
		return nil
	}
	if msgs := validation.IsDNS1123Subdomain(strings.ToLower(s)); len(msgs) > 0 {
		return fmt.Errorf("address %q is neither an IP address nor a host name: %s", s, strings.Join(msgs, "; "))
	}
	// an all-numeric last label is a mistyped IP, not a host name
	labels := strings.Split(s, ".")
	if strings.Trim(labels[len(labels)-1], "0123456789") == "" {
		return fmt.Errorf("address %q is not a valid IP address", s)
	}
	return nil
}

// ValidateAddressRange accepts "a.b.c.d-e.f.g.h" ranges and CIDR prefixes.
func ValidateAddressRange(s string) error {
	if strings.Contains(s, "/") {
		if _, err := netip.ParsePrefix(s); err != nil {
			return fmt.Errorf("invalid CIDR %q", s)
		}
		return nil
	}
	from, to, ok := strings.Cut(s, "-")
	if !ok {
		return fmt.Errorf("address range %q must be a CIDR or a-b range", s)
	}
	start, err := netip.ParseAddr(strings.TrimSpace(from))
	if err != nil {
		return fmt.Errorf("invalid range start in %q", s)
	}
	end, err := netip.ParseAddr(strings.TrimSpace(to))
	if err != nil {
		return fmt.Errorf("invalid range end in %q", s)
	}
	if start.Is4() != end.Is4() {
		return fmt.Errorf("range %q mixes address families", s)
	}
	if end.Less(start) {
		return fmt.Errorf("range %q ends before it starts", s)
	}
	return nil
}

// Servers returns server nodes in declaration order.
func (c *Config) Servers() []Node {
	return c.nodesWithRole(RoleServer)
}

// Agents returns agent nodes in declaration order.
func (c *Config) Agents() []Node {
	return c.nodesWithRole(RoleAgent)
}

func (c *Config) nodesWithRole(role Role) []Node {
	var out []Node
	for _, n := range c.Nodes {
		r := n.Role
		if r == "" {
			r = RoleServer
		}
		if r == role {
			out = append(out, n)
		}
	}
	return out
}

// Node looks up a node by name.
func (c *Config) Node(name string) (Node, error) {
	for _, n := range c.Nodes {
		if n.Name == name {
			return n, nil
		}
	}
	return Node{}, errors.Newf(errors.ErrCodeNotFound, "node %q not found in config", name)
}

// SSHFor returns the node's SSH settings with cluster-wide defaults filled in.
func (c *Config) SSHFor(n Node) SSH {
	s := c.SSH
	if n.SSH != nil {
		if n.SSH.User != "" {
			s.User = n.SSH.User
		}
		if n.SSH.Port != 0 {
			s.Port = n.SSH.Port
		}
		if n.SSH.Password != "" {
			s.Password = n.SSH.Password
		}
		if n.SSH.PrivateKeyPath != "" {
			s.PrivateKeyPath = n.SSH.PrivateKeyPath
		}
		if n.SSH.KnownHostsPath != "" {
			s.KnownHostsPath = n.SSH.KnownHostsPath
		}
	}
	if s.Port == 0 {
		s.Port = defaultSSHPort
	}
	return s
}

// Version returns the pinned version for key, falling back to the built-in pin.
func (c *Config) Version(key string) string {
	if v, ok := c.Versions[key]; ok && v != "" {
		return v
	}
	return defaults.Versions()[key]
}

// ComponentEnabled reports whether a component is enabled, using def when unset.
func (c *Config) ComponentEnabled(name string, def bool) bool {
	if cc, ok := c.Components[name]; ok && cc.Enabled != nil {
		return *cc.Enabled
	}
	return def
}

// ComponentValues returns user supplied Helm values for a component, or nil.
func (c *Config) ComponentValues(name string) map[string]any {
	if cc, ok := c.Components[name]; ok {
		return cc.Values
	}
	return nil
}

// APIServerAddress is the address clients should use for the Kubernetes API:
// the VIP when set, otherwise the first server.
func (c *Config) APIServerAddress() string {
	if c.Cluster.VIP != "" {
		return c.Cluster.VIP
	}
	if s := c.Servers(); len(s) > 0 {
		return s[0].Address
	}
	return ""
}

// SANs returns the TLS SANs for k3s servers: defaults, configured extras,
// the VIP and every server address, de-duplicated in order.
func (c *Config) SANs() []string {
	var out []string
	seen := map[string]bool{}
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range DefaultSANs {
		add(s)
	}
	for _, s := range c.Cluster.SANs {
		add(s)
	}
	add(c.Cluster.VIP)
	for _, n := range c.Servers() {
		add(n.Address)
	}
	return out
}
