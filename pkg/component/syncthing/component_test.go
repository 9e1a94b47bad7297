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
	"context"
	"encoding/xml"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"

	"github.com/homelab-stack/homelab/pkg/component/componenttest"
	"github.com/homelab-stack/homelab/pkg/config"
	"github.com/homelab-stack/homelab/pkg/errors"
)

const (
	laptopID = "YFRAWME-SEF4QKB-GGUK25Q-ABHMASU-HIYZTRX-G3H2AD7-237IM24-R6SZHQG"
	studioID = "Y6NSC7H-7ISVMIQ-MG6CA4Z-TIXVGBU-CPCRHHN-EAKVOKC-RVWTF45-ZIEANQ7"
)

func declared() config.Syncthing {
	return config.Syncthing{
		Devices: map[string]config.SyncthingDevice{
			"laptop": {ID: laptopID},
			"studio": {ID: studioID, Name: "mac-studio", Addresses: []string{"tcp://192.168.1.50:22000"}},
		},
		Folders: map[string]config.SyncthingFolder{
			"notes": {
				ID:      "notes/personal",
				Path:    "/var/syncthing/data/notes",
				Devices: []string{"laptop", "studio", "retired-phone"},
			},
			"photos": {
				ID:      "photos",
				Label:   "Photos",
				Path:    "/var/syncthing/data/photos",
				Devices: []string{"studio"},
				Type:    FolderReceiveOnly,
			},
		},
	}
}

func TestNewConfiguration(t *testing.T) {
	cfg, err := NewConfiguration(declared())
	require.NoError(t, err)

	require.Len(t, cfg.Devices, 2)
	assert.Equal(t, "laptop", cfg.Devices[0].Name)
	assert.Equal(t, []string{"dynamic"}, cfg.Devices[0].Addresses)
	assert.Equal(t, "mac-studio", cfg.Devices[1].Name)

	require.Len(t, cfg.Folders, 2)
	notes := cfg.Folders[0]
	assert.Equal(t, "notes", notes.Label)
	assert.Equal(t, FolderSendReceive, notes.Type)
	if diff := cmp.Diff([]FolderDevice{{ID: laptopID}, {ID: studioID}}, notes.Devices); diff != "" {
		t.Errorf("folder devices mismatch (-want +got):\n%s", diff)
	}

	photos := cfg.Folders[1]
	assert.Equal(t, "Photos", photos.Label)
	assert.Equal(t, FolderReceiveOnly, photos.Type)
}

func TestNewConfigurationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Syncthing)
	}{
		{
			name: "device without id",
			mutate: func(st *config.Syncthing) {
				st.Devices["phone"] = config.SyncthingDevice{Name: "phone"}
			},
		},
		{
			name: "folder without path",
			mutate: func(st *config.Syncthing) {
				st.Folders["music"] = config.SyncthingFolder{ID: "music"}
			},
		},
		{
			name: "unknown folder type",
			mutate: func(st *config.Syncthing) {
				st.Folders["music"] = config.SyncthingFolder{ID: "music", Path: "/music", Type: "mirror"}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := declared()
			tt.mutate(&st)
			_, err := NewConfiguration(st)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidConfig))
		})
	}
}

func TestMarshal(t *testing.T) {
	cfg, err := NewConfiguration(declared())
	require.NoError(t, err)
	out, err := cfg.Marshal()
	require.NoError(t, err)

	s := string(out)
	assert.Contains(t, s, `<?xml version="1.0" encoding="UTF-8"?>`)
	assert.Contains(t, s, `<configuration version="37">`)
	assert.Contains(t, s, `<folder id="notes/personal" label="notes" path="/var/syncthing/data/notes" type="sendreceive"`)
	assert.Contains(t, s, `<minDiskFree unit="%">1</minDiskFree>`)
	assert.Contains(t, s, `<address>0.0.0.0:8384</address>`)

	var back Configuration
	require.NoError(t, xml.Unmarshal(out, &back))
	if diff := cmp.Diff(*cfg, back, cmp.FilterPath(func(p cmp.Path) bool {
		return p.String() == "XMLName"
	}, cmp.Ignore())); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func appConfig(extra string) string {
	return componenttest.MinimalConfig + `
apps:
  syncthing:
    enabled: true
    devices:
      laptop:
        id: ` + laptopID + `
    folders:
      notes:
        id: notes
        path: /var/syncthing/data/notes
        devices: [laptop]
` + extra
}

func TestBuild(t *testing.T) {
	env := componenttest.Environment(t, appConfig(""))
	c := &Component{}
	require.True(t, c.Enabled(env))

	b := componenttest.Build(t, c, env)
	assert.Equal(t, []string{
		"Namespace/syncthing",
		"ConfigMap/syncthing-config",
		"StatefulSet/syncthing",
		"Service/syncthing-frontend",
		"Service/syncthing-sync",
		"Certificate/syncthing",
		"Gateway/syncthing",
		"HTTPRoute/syncthing-httpredirect",
		"HTTPRoute/syncthing",
	}, componenttest.Kinds(t, b))

	cm := componenttest.Find[*corev1.ConfigMap](t, b, ConfigMapName)
	assert.Contains(t, cm.Data["config.xml"], laptopID)

	sts := componenttest.Find[*appsv1.StatefulSet](t, b, Name)
	ports := sts.Spec.Template.Spec.Containers[0].Ports
	require.Len(t, ports, 4)
	assert.Equal(t, corev1.ProtocolUDP, ports[2].Protocol)
	assert.Equal(t, "100Gi", sts.Spec.VolumeClaimTemplates[0].Spec.Resources.Requests.Storage().String())

	sync := componenttest.Find[*corev1.Service](t, b, SyncService)
	assert.Equal(t, corev1.ServiceTypeLoadBalancer, sync.Spec.Type)
	assert.Len(t, sync.Spec.Ports, 3)
}

func TestBuildTailscaleIngress(t *testing.T) {
	env := componenttest.Environment(t, appConfig(`    tailscale:
      enabled: true
      hostname: files
tailscale:
  operator:
    clientId: id
    clientSecret: secret
`))
	b := componenttest.Build(t, &Component{}, env)

	ing := componenttest.Find[*networkingv1.Ingress](t, b, "syncthing-tailscale")
	assert.Equal(t, "tailscale", *ing.Spec.IngressClassName)
	assert.Equal(t, "files", ing.Annotations[TailscaleHostnameAnnotation])
	assert.Equal(t, FrontendService, ing.Spec.DefaultBackend.Service.Name)
	assert.Equal(t, []string{"files"}, ing.Spec.TLS[0].Hosts)
}

func TestBuildTailscaleRequiresOperator(t *testing.T) {
	env := componenttest.Environment(t, appConfig(`    tailscale:
      enabled: true
`))
	_, err := (&Component{}).Build(context.Background(), env)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidConfig))
}

func TestDisabledByDefault(t *testing.T) {
	assert.False(t, (&Component{}).Enabled(componenttest.Environment(t, componenttest.MinimalConfig)))
}
