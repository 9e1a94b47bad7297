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

package istio

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homelab-stack/homelab/pkg/component/componenttest"
	"github.com/homelab-stack/homelab/pkg/defaults"
	"github.com/homelab-stack/homelab/pkg/errors"
)

func TestBuild(t *testing.T) {
	b := componenttest.Build(t, &Component{}, componenttest.Environment(t, componenttest.MinimalConfig))

	assert.Equal(t, []string{
		"https://github.com/kubernetes-sigs/gateway-api/releases/download/v" + defaults.VersionGatewayAPI + "/standard-install.yaml",
	}, b.CRDURLs)

	var releases []string
	for _, c := range b.Charts {
		releases = append(releases, c.Release)
		assert.Equal(t, defaults.VersionIstio, c.Version)
		assert.Equal(t, Namespace, c.Namespace)
	}
	assert.Equal(t, Releases, releases)

	cni := componenttest.Chart(t, b, "istio-cni")
	assert.Equal(t, "cni", cni.Name)
	assert.Equal(t, map[string]any{"platform": "k3s"}, cni.Values["global"])
	assert.Equal(t, "ambient", componenttest.Chart(t, b, "istiod").Values["profile"])
}

func TestBuildUserValuesByRelease(t *testing.T) {
	env := componenttest.Environment(t, componenttest.MinimalConfig+`
components:
  istio:
    values:
      istiod:
        pilot:
          replicaCount: 2
`)
	b := componenttest.Build(t, &Component{}, env)
	pilot := componenttest.Chart(t, b, "istiod").Values["pilot"].(map[string]any)
	assert.Equal(t, 2, pilot["replicaCount"])
	assert.Contains(t, pilot, "resources")
}

func TestBuildUnknownRelease(t *testing.T) {
	env := componenttest.Environment(t, componenttest.MinimalConfig+`
components:
  istio:
    values:
      pilot:
        replicaCount: 2
`)
	_, err := (&Component{}).Build(context.Background(), env)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidConfig))
}

func TestBuildGatewayAPIVersionOverride(t *testing.T) {
	env := componenttest.Environment(t, componenttest.MinimalConfig+`
versions:
  gatewayApi: 1.3.0
`)
	b := componenttest.Build(t, &Component{}, env)
	assert.Equal(t, []string{GatewayAPIURL("1.3.0")}, b.CRDURLs)
}
