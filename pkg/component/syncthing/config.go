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

package syncthing

import (
	"encoding/xml"
	"sort"

	"github.com/homelab-stack/homelab/pkg/config"
	"github.com/homelab-stack/homelab/pkg/errors"
)

// Folder types accepted by syncthing.
const (
	FolderSendReceive = "sendreceive"
	FolderSendOnly    = "sendonly"
	FolderReceiveOnly = "receiveonly"
)

// configVersion is the syncthing config schema the document is written for.
const configVersion = 37

// Configuration is the root of config.xml.
type Configuration struct {
	XMLName xml.Name       `xml:"configuration"`
	Version int            `xml:"version,attr"`
	Folders []FolderConfig `xml:"folder"`
	Devices []DeviceConfig `xml:"device"`
	GUI     GUIConfig      `xml:"gui"`
	Options OptionsConfig  `xml:"options"`
}

// FolderConfig is a shared folder.
type FolderConfig struct {
	ID               string         `xml:"id,attr"`
	Label            string         `xml:"label,attr"`
	Path             string         `xml:"path,attr"`
	Type             string         `xml:"type,attr"`
	RescanIntervalS  int            `xml:"rescanIntervalS,attr"`
	FSWatcherEnabled bool           `xml:"fsWatcherEnabled,attr"`
	FSWatcherDelayS  int            `xml:"fsWatcherDelayS,attr"`
	IgnorePerms      bool           `xml:"ignorePerms,attr"`
	AutoNormalize    bool           `xml:"autoNormalize,attr"`
	Devices          []FolderDevice `xml:"device"`
	MinDiskFree      Size           `xml:"minDiskFree"`
	Versioning       Versioning     `xml:"versioning"`
	Order            string         `xml:"order"`
	MaxConflicts     int            `xml:"maxConflicts"`
	MarkerName       string         `xml:"markerName"`
	Paused           bool           `xml:"paused"`
}

// FolderDevice shares a folder with a device.
type FolderDevice struct {
	ID           string `xml:"id,attr"`
	IntroducedBy string `xml:"introducedBy,attr"`
}

// Size is a value with a unit attribute.
type Size struct {
	Unit  string `xml:"unit,attr"`
	Value string `xml:",chardata"`
}

// Versioning keeps old file versions.
type Versioning struct {
	Params []Param `xml:"param"`
}

// Param is a versioning parameter.
type Param struct {
	Key string `xml:"key,attr"`
	Val string `xml:"val,attr"`
}

// DeviceConfig is a peer device.
type DeviceConfig struct {
	ID                string   `xml:"id,attr"`
	Name              string   `xml:"name,attr"`
	Compression       string   `xml:"compression,attr"`
	Introducer        bool     `xml:"introducer,attr"`
	Addresses         []string `xml:"address"`
	Paused            bool     `xml:"paused"`
	AutoAcceptFolders bool     `xml:"autoAcceptFolders"`
}

// GUIConfig configures the web UI.
type GUIConfig struct {
	Enabled bool   `xml:"enabled,attr"`
	TLS     bool   `xml:"tls,attr"`
	Address string `xml:"address"`
	Theme   string `xml:"theme"`
}

// OptionsConfig holds global options.
type OptionsConfig struct {
	ListenAddresses       []string `xml:"listenAddress"`
	GlobalAnnounceEnabled bool     `xml:"globalAnnounceEnabled"`
	LocalAnnounceEnabled  bool     `xml:"localAnnounceEnabled"`
	RelaysEnabled         bool     `xml:"relaysEnabled"`
	StartBrowser          bool     `xml:"startBrowser"`
	URAccepted            int      `xml:"urAccepted"`
	CrashReportingEnabled bool     `xml:"crashReportingEnabled"`
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NewConfiguration builds config.xml from the declared devices and folders.
// Devices default their name to their key and their address to dynamic.
// Folders default their label to their key and their type to sendreceive.
// Folder device references that name no declared device are dropped.
func NewConfiguration(st config.Syncthing) (*Configuration, error) {
	cfg := &Configuration{
		Version: configVersion,
		GUI: GUIConfig{
			Enabled: true,
			Address: "0.0.0.0:8384",
			Theme:   "default",
		},
		Options: OptionsConfig{
			ListenAddresses:       []string{"default"},
			GlobalAnnounceEnabled: true,
			LocalAnnounceEnabled:  true,
			RelaysEnabled:         true,
			URAccepted:            -1,
		},
	}

	for _, key := range sortedKeys(st.Devices) {
		d := st.Devices[key]
		if d.ID == "" {
			return nil, errors.Newf(errors.ErrCodeInvalidConfig, "apps.syncthing.devices.%s: id is required", key)
		}
		name := d.Name
		if name == "" {
			name = key
		}
		addrs := d.Addresses
		if len(addrs) == 0 {
			addrs = []string{"dynamic"}
		}
		cfg.Devices = append(cfg.Devices, DeviceConfig{
			ID:          d.ID,
			Name:        name,
			Compression: "metadata",
			Addresses:   addrs,
		})
	}

	for _, key := range sortedKeys(st.Folders) {
		f := st.Folders[key]
		if f.ID == "" || f.Path == "" {
			return nil, errors.Newf(errors.ErrCodeInvalidConfig, "apps.syncthing.folders.%s: id and path are required", key)
		}
		typ := f.Type
		switch typ {
		case "":
			typ = FolderSendReceive
		case FolderSendReceive, FolderSendOnly, FolderReceiveOnly:
		default:
			return nil, errors.Newf(errors.ErrCodeInvalidConfig, "apps.syncthing.folders.%s: unknown type %q", key, typ)
		}
		label := f.Label
		if label == "" {
			label = key
		}

		var devices []FolderDevice
		for _, ref := range f.Devices {
			d, ok := st.Devices[ref]
			if !ok {
				continue
			}
			devices = append(devices, FolderDevice{ID: d.ID})
		}

		cfg.Folders = append(cfg.Folders, FolderConfig{
			ID:               f.ID,
			Label:            label,
			Path:             f.Path,
			Type:             typ,
			RescanIntervalS:  3600,
			FSWatcherEnabled: true,
			FSWatcherDelayS:  10,
			AutoNormalize:    true,
			Devices:          devices,
			MinDiskFree:      Size{Unit: "%", Value: "1"},
			Versioning: Versioning{Params: []Param{
				{Key: "cleanupIntervalS", Val: "3600"},
				{Key: "command", Val: ""},
				{Key: "maxAge", Val: "365"},
			}},
			Order:        "random",
			MaxConflicts: 10,
			MarkerName:   ".stfolder",
		})
	}
	return cfg, nil
}

// Marshal renders the configuration as an indented XML document.
func (c *Configuration) Marshal() ([]byte, error) {
	out, err := xml.MarshalIndent(c, "", "    ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to marshal syncthing config", err)
	}
	return append([]byte(xml.Header), append(out, '\n')...), nil
}
