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
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/homelab-stack/homelab/pkg/errors"
	"github.com/homelab-stack/homelab/pkg/remote/remotetest"
)

const (
	storedAutomations = `{"version":1,"data":[
		{"id":"1700000000","alias":"Lights on","trigger":[{"platform":"sun","event":"sunset"}],"action":[{"service":"light.turn_on"}]}
	]}`
	storedScripts = `{"version":1,"data":{
		"goodnight":{"id":"goodnight","alias":"Goodnight","last_triggered":"2025-01-01T00:00:00","sequence":[{"service":"light.turn_off"}]}
	}}`
	storedEntries = `{"version":1,"data":{"entries":[
		{"domain":"hue","title":"Bridge","options":{"allow_unreachable":true},"data":{"api_key":"secret"}},
		{"domain":"hue","title":"","data":{}},
		{"title":"Mystery"}
	]}}`
)

func storagePath(file string) string {
	return StorageDir + "/" + file
}

func readYAML(t *testing.T, path string, v any) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, yaml.Unmarshal(data, v))
}

func TestStorageFileCommand(t *testing.T) {
	cmd := StorageFileCommand("core.config_entries")
	assert.Contains(t, cmd, "sudo k3s kubectl exec -n homeassistant homeassistant-0 -c homeassistant -- sh -c ")
	assert.Contains(t, cmd, "/config/.storage/core.config_entries")
}

func TestExtract(t *testing.T) {
	r := remotetest.New()
	r.Outputs[storagePath("automations")] = storedAutomations
	r.Outputs[storagePath("scripts")] = storedScripts
	r.Outputs[storagePath("core.config_entries")] = storedEntries
	dir := filepath.Join(t.TempDir(), "config")

	written, err := Extract(context.Background(), r, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{AutomationsFile, ScriptsFile, IntegrationsFile, MainFile}, written)
	assert.Len(t, r.Commands(), len(extractors))

	var automations []map[string]any
	readYAML(t, filepath.Join(dir, AutomationsFile), &automations)
	require.Len(t, automations, 1)
	assert.NotContains(t, automations[0], "id")
	assert.Equal(t, "Lights on", automations[0]["alias"])

	var scripts map[string]map[string]any
	readYAML(t, filepath.Join(dir, ScriptsFile), &scripts)
	require.Contains(t, scripts, "goodnight")
	assert.NotContains(t, scripts["goodnight"], "id")
	assert.NotContains(t, scripts["goodnight"], "last_triggered")
	assert.Equal(t, "Goodnight", scripts["goodnight"]["alias"])

	var integrations map[string][]integration
	readYAML(t, filepath.Join(dir, IntegrationsFile), &integrations)
	want := map[string][]integration{
		"hue": {
			{Title: "Bridge", Options: map[string]any{"allow_unreachable": true}},
			{Title: "untitled", Options: map[string]any{}},
		},
		"unknown": {{Title: "Mystery", Options: map[string]any{}}},
	}
	if diff := cmp.Diff(want, integrations, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("integrations mismatch (-want +got):\n%s", diff)
	}
	raw, err := os.ReadFile(filepath.Join(dir, IntegrationsFile))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret")

	main, err := os.ReadFile(filepath.Join(dir, MainFile))
	require.NoError(t, err)
	assert.Contains(t, string(main), "automation: !include automations.yaml")
	assert.Contains(t, string(main), "script: !include scripts.yaml")
	assert.NotContains(t, string(main), "scene:")

	files, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Len(t, files, 4)
}

func TestExtractNothingStored(t *testing.T) {
	dir := t.TempDir()
	written, err := Extract(context.Background(), remotetest.New(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{MainFile}, written)
	assert.NoFileExists(t, filepath.Join(dir, AutomationsFile))
}

func TestExtractErrors(t *testing.T) {
	tests := []struct {
		name string
		set  func(r *remotetest.Fake)
		want errors.ErrorCode
	}{
		{
			name: "pod unreachable",
			set: func(r *remotetest.Fake) {
				r.Errors["kubectl exec"] = errors.New(errors.ErrCodeRemoteExec, "pod not found")
			},
			want: errors.ErrCodeRemoteExec,
		},
		{
			name: "corrupt document",
			set: func(r *remotetest.Fake) {
				r.Outputs[storagePath("scenes")] = "{not json"
			},
			want: errors.ErrCodeInvalidRequest,
		},
		{
			name: "unexpected shape",
			set: func(r *remotetest.Fake) {
				r.Outputs[storagePath("automations")] = `{"version":1,"data":{"not":"a list"}}`
			},
			want: errors.ErrCodeInvalidRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := remotetest.New()
			tt.set(r)
			_, err := Extract(context.Background(), r, t.TempDir())
			require.Error(t, err)
			assert.Equal(t, tt.want, errors.CodeOf(err))
		})
	}
}

func TestMainConfig(t *testing.T) {
	got := string(MainConfig([]string{ScenesFile, LovelaceFile}))
	assert.Contains(t, got, "scene: !include scenes.yaml")
	assert.NotContains(t, got, "automation:")
	assert.NotContains(t, got, "ui-lovelace")

	var node yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(got), &node))
}
