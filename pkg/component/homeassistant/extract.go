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

package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/homelab-stack/homelab/pkg/errors"
	"github.com/homelab-stack/homelab/pkg/remote"
)

const (
	// StorageDir holds the UI managed configuration inside the pod.
	StorageDir = "/config/.storage"

	// PodName is the only replica of the StatefulSet.
	PodName = Name + "-0"
)

// Files written by Extract.
const (
	AutomationsFile  = "automations.yaml"
	ScriptsFile      = "scripts.yaml"
	ScenesFile       = "scenes.yaml"
	LovelaceFile     = "ui-lovelace.yaml"
	IntegrationsFile = "integrations.yaml"
)

const integrationsHeader = `# Integration configurations extracted from the UI.
# Credentials and tokens are not included; re-enter them after a restore.

`

// storageFile is the envelope Home Assistant wraps .storage documents in.
type storageFile struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

type integration struct {
	Title   string         `yaml:"title"`
	Options map[string]any `yaml:"options"`
}

type extractor struct {
	storage string
	output  string
	// convert returns nil when there is nothing to write.
	convert func(data json.RawMessage) ([]byte, error)
}

var extractors = []extractor{
	{"automations", AutomationsFile, convertList("id")},
	{"scripts", ScriptsFile, convertScripts},
	{"scenes", ScenesFile, convertList("id")},
	{"lovelace", LovelaceFile, convertAny},
	{"core.config_entries", IntegrationsFile, convertIntegrations},
}

// StorageFileCommand prints one .storage document from the running pod
// through the k3s kubectl of a server node. A missing document prints
// nothing.
func StorageFileCommand(file string) string {
	p := remote.Quote(path.Join(StorageDir, file))
	script := fmt.Sprintf("if [ -f %s ]; then cat %s; fi", p, p)
	return fmt.Sprintf("sudo k3s kubectl exec -n %s %s -c %s -- sh -c %s",
		Namespace, PodName, Name, remote.Quote(script))
}

// Extract converts the UI managed automations, scripts, scenes, dashboards
// and integrations of the running instance to YAML files in dir and writes
// a configuration.yaml including them. It returns the names of the files
// written, configuration.yaml last.
func Extract(ctx context.Context, r remote.Runner, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to create output directory", err)
	}

	var written []string
	for _, e := range extractors {
		out, err := r.Run(ctx, StorageFileCommand(e.storage))
		if err != nil {
			return nil, errors.WrapWithContext(errors.ErrCodeRemoteExec,
				"failed to read Home Assistant storage", err,
				map[string]any{"file": e.storage})
		}
		if strings.TrimSpace(out) == "" {
			slog.Debug("storage document not found", "file", e.storage)
			continue
		}

		var doc storageFile
		if err := json.Unmarshal([]byte(out), &doc); err != nil {
			return nil, errors.WrapWithContext(errors.ErrCodeInvalidRequest,
				"invalid Home Assistant storage document", err,
				map[string]any{"file": e.storage})
		}
		if len(doc.Data) == 0 || bytes.Equal(doc.Data, []byte("null")) {
			continue
		}

		data, err := e.convert(doc.Data)
		if err != nil {
			return nil, errors.WrapWithContext(errors.ErrCodeInvalidRequest,
				"failed to convert Home Assistant storage document", err,
				map[string]any{"file": e.storage})
		}
		if data == nil {
			continue
		}
		if err := writeConfigFile(dir, e.output, data); err != nil {
			return nil, err
		}
		slog.Info("extracted", "file", e.output)
		written = append(written, e.output)
	}

	if err := writeConfigFile(dir, MainFile, MainConfig(written)); err != nil {
		return nil, err
	}
	if _, err := LoadConfig(dir); err != nil {
		return nil, err
	}
	return append(written, MainFile), nil
}

// MainConfig returns a configuration.yaml that includes the extracted
// automations, scripts and scenes.
func MainConfig(extracted []string) []byte {
	var b strings.Builder
	b.WriteString(`# Home Assistant configuration
default_config:
frontend:
config:

http:
  use_x_forwarded_for: true
  trusted_proxies:
    - 10.0.0.0/8
    - 172.16.0.0/12
    - 192.168.0.0/16

recorder:
  db_url: sqlite:////config/home-assistant_v2.db
  purge_keep_days: 7

logger:
  default: info

history:
  include:
    domains:
      - sensor
      - binary_sensor
      - light
      - switch
`)
	includes := []struct{ key, file string }{
		{"automation", AutomationsFile},
		{"script", ScriptsFile},
		{"scene", ScenesFile},
	}
	for _, inc := range includes {
		for _, f := range extracted {
			if f == inc.file {
				fmt.Fprintf(&b, "\n%s: !include %s\n", inc.key, inc.file)
			}
		}
	}
	return []byte(b.String())
}

func writeConfigFile(dir, name string, data []byte) error {
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return errors.WrapWithContext(errors.ErrCodeInternal, "failed to write configuration file", err,
			map[string]any{"path": p})
	}
	return nil
}

func marshalYAML(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// convertList drops the given keys from every item of a list document.
func convertList(drop ...string) func(json.RawMessage) ([]byte, error) {
	return func(data json.RawMessage) ([]byte, error) {
		var items []map[string]any
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, err
		}
		for _, item := range items {
			for _, k := range drop {
				delete(item, k)
			}
		}
		return marshalYAML(items)
	}
}

func convertScripts(data json.RawMessage) ([]byte, error) {
	var scripts map[string]map[string]any
	if err := json.Unmarshal(data, &scripts); err != nil {
		return nil, err
	}
	for _, s := range scripts {
		delete(s, "id")
		delete(s, "last_triggered")
	}
	return marshalYAML(scripts)
}

func convertAny(data json.RawMessage) ([]byte, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return marshalYAML(v)
}

// convertIntegrations groups config entries by domain keeping only the
// title and options.
func convertIntegrations(data json.RawMessage) ([]byte, error) {
	var doc struct {
		Entries []struct {
			Domain  string         `json:"domain"`
			Title   string         `json:"title"`
			Options map[string]any `json:"options"`
		} `json:"entries"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	byDomain := make(map[string][]integration)
	for _, e := range doc.Entries {
		domain := e.Domain
		if domain == "" {
			domain = "unknown"
		}
		title := e.Title
		if title == "" {
			title = "untitled"
		}
		options := e.Options
		if options == nil {
			options = map[string]any{}
		}
		byDomain[domain] = append(byDomain[domain], integration{Title: title, Options: options})
	}
	if len(byDomain) == 0 {
		return nil, nil
	}

	out, err := marshalYAML(byDomain)
	if err != nil {
		return nil, err
	}
	return append([]byte(integrationsHeader), out...), nil
}
