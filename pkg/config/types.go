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

// Config is the infrastructure description read from infra.yaml.
type Config struct {
	Cluster    Cluster                    `yaml:"cluster"`
	SSH        SSH                        `yaml:"ssh"`
	Nodes      []Node                     `yaml:"nodes"`
	Network    Network                    `yaml:"network"`
	Tailscale  Tailscale                  `yaml:"tailscale"`
	Storage    Storage                    `yaml:"storage"`
	DNS        DNS                        `yaml:"dns"`
	Monitoring Monitoring                 `yaml:"monitoring"`
	Apps       Apps                       `yaml:"apps"`
	Versions   map[string]string          `yaml:"versions,omitempty"`
	Components map[string]ComponentConfig `yaml:"components,omitempty"`
}

// Cluster holds cluster-wide k3s settings.
type Cluster struct {
	Name         string   `yaml:"name"`
	Token        string   `yaml:"token,omitempty"`
	VIP          string   `yaml:"vip,omitempty"`
	VIPInterface string   `yaml:"vipInterface,omitempty"`
	SANs         []string `yaml:"sans,omitempty"`
	Domain       string   `yaml:"domain,omitempty"`
}

// SSH holds connection defaults shared by all nodes.
type SSH struct {
	User           string `yaml:"user,omitempty"`
	Port           int    `yaml:"port,omitempty"`
	Password       string `yaml:"password,omitempty"`
	PrivateKeyPath string `yaml:"privateKeyPath,omitempty"`
	KnownHostsPath string `yaml:"knownHostsPath,omitempty"`
}

// Role is the k3s role of a node.
type Role string

const (
	RoleServer Role = "server"
	RoleAgent  Role = "agent"
)

// Board selects the bootstrap procedure for a node.
type Board string

const (
	BoardRaspberryPi5 Board = "raspberrypi5"
	BoardGeneric      Board = "generic"
)

// Node is a single machine in the cluster.
type Node struct {
	Name        string            `yaml:"name"`
	Address     string            `yaml:"address"`
	Role        Role              `yaml:"role,omitempty"`
	Board       Board             `yaml:"board,omitempty"`
	Labels      map[string]string `yaml:"labels,omitempty"`
	SSH         *SSH              `yaml:"ssh,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty"`
}

// AddressPool is a MetalLB address pool.
type AddressPool struct {
	Name      string   `yaml:"name"`
	Addresses []string `yaml:"addresses"`
}

// Network configures load balancer pools and in-cluster DNS addressing.
type Network struct {
	AddressPools []AddressPool `yaml:"addressPools,omitempty"`
	DNSPool      string        `yaml:"dnsPool,omitempty"`
	K8sGatewayIP string        `yaml:"k8sGatewayIP,omitempty"`
}

// OAuthClient is a Tailscale OAuth client credential pair.
type OAuthClient struct {
	ClientID     string `yaml:"clientId,omitempty"`
	ClientSecret string `yaml:"clientSecret,omitempty"`
}

// Tailscale holds operator and admin credentials.
type Tailscale struct {
	Operator OAuthClient `yaml:"operator"`
	Admin    OAuthClient `yaml:"admin"`
	Hostname string      `yaml:"hostname,omitempty"`
}

// Storage selects the default storage class.
type Storage struct {
	StorageClass string `yaml:"storageClass,omitempty"`
}

// DNS configures the LAN resolver.
type DNS struct {
	Upstreams    []string `yaml:"upstreams,omitempty"`
	BlocklistDir string   `yaml:"blocklistDir,omitempty"`
}

// Monitoring configures the Prometheus instance.
type Monitoring struct {
	Retention   string `yaml:"retention,omitempty"`
	StorageSize string `yaml:"storageSize,omitempty"`
}

// Apps holds the self-hosted application settings.
type Apps struct {
	HomeAssistant HomeAssistant `yaml:"homeassistant"`
	Syncthing     Syncthing     `yaml:"syncthing"`
}

// HomeAssistant configures the Home Assistant StatefulSet.
type HomeAssistant struct {
	Enabled     bool   `yaml:"enabled"`
	Image       string `yaml:"image,omitempty"`
	ConfigDir   string `yaml:"configDir,omitempty"`
	StorageSize string `yaml:"storageSize,omitempty"`
	Hostname    string `yaml:"hostname,omitempty"`
	Timezone    string `yaml:"timezone,omitempty"`
}

// Syncthing configures the Syncthing StatefulSet and its declarative config.
type Syncthing struct {
	Enabled     bool                       `yaml:"enabled"`
	StorageSize string                     `yaml:"storageSize,omitempty"`
	Hostname    string                     `yaml:"hostname,omitempty"`
	Tailscale   TailscaleIngress           `yaml:"tailscale"`
	Devices     map[string]SyncthingDevice `yaml:"devices,omitempty"`
	Folders     map[string]SyncthingFolder `yaml:"folders,omitempty"`
}

// TailscaleIngress exposes a service on the tailnet.
type TailscaleIngress struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname,omitempty"`
}

// SyncthingDevice is a peer device.
type SyncthingDevice struct {
	ID        string   `yaml:"id"`
	Name      string   `yaml:"name,omitempty"`
	Addresses []string `yaml:"addresses,omitempty"`
}

// SyncthingFolder is a shared folder. Devices reference keys of Syncthing.Devices.
type SyncthingFolder struct {
	ID      string   `yaml:"id"`
	Label   string   `yaml:"label,omitempty"`
	Path    string   `yaml:"path"`
	Devices []string `yaml:"devices,omitempty"`
	Type    string   `yaml:"type,omitempty"`
}

// ComponentConfig toggles a component and supplies extra Helm values.
type ComponentConfig struct {
	Enabled *bool          `yaml:"enabled,omitempty"`
	Values  map[string]any `yaml:"values,omitempty"`
}
