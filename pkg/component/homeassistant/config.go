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
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/homelab-stack/homelab/pkg/component"
	"github.com/homelab-stack/homelab/pkg/errors"
)

// MainFile must be present in the configuration directory.
const MainFile = "configuration.yaml"

// LoadConfig reads every *.yaml and *.yml file directly under dir keyed by
// file name. Each file must parse as YAML; custom tags such as !include
// and !secret are accepted.
func LoadConfig(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, component.RequireFile(Name, dir, err)
	}

	files := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, component.RequireFile(Name, path, err)
		}
		var node yaml.Node
		if err := yaml.Unmarshal(content, &node); err != nil {
			return nil, errors.WrapWithContext(errors.ErrCodeInvalidConfig,
				"invalid Home Assistant configuration file", err,
				map[string]any{"path": path})
		}
		files[e.Name()] = string(content)
	}

	if _, ok := files[MainFile]; !ok {
		return nil, component.RequireFile(Name, filepath.Join(dir, MainFile), os.ErrNotExist)
	}
	return files, nil
}

// FileNames returns the keys of files in order.
func FileNames(files map[string]string) []string {
	names := make([]string, 0, len(files))
	for n := range files {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
