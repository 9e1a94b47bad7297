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

// Package componenttest provides helpers for testing components.
package componenttest

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"k8s.io/apimachinery/pkg/runtime"

	"github.com/homelab-stack/homelab/pkg/bundler/result"
	"github.com/homelab-stack/homelab/pkg/component"
	"github.com/homelab-stack/homelab/pkg/config"
	"github.com/homelab-stack/homelab/pkg/pki"
)

// MinimalConfig is a valid single node infra.yaml.
const MinimalConfig = `
cluster:
  name: homelab
  vip: 192.168.1.10
nodes:
  - name: rp0
    address: 192.168.1.11
    role: server
    board: raspberrypi5
`

var (
	caOnce sync.Once
	ca     *pki.Authority
	caErr  error
)

// CA returns a small test authority chain shared by all tests in the binary.
func CA(t testing.TB) *pki.Authority {
	t.Helper()
	caOnce.Do(func() {
		var root *pki.Authority
		root, caErr = pki.NewRootCA(pki.DefaultRootName, pki.WithKeySize(2048))
		if caErr == nil {
			ca, caErr = root.IssueIntermediateCA(pki.DefaultIntermediateName)
		}
	})
	if caErr != nil {
		t.Fatalf("failed to create test CA: %v", caErr)
	}
	return ca
}

// NoEnv is a lookup that finds no environment variables.
func NoEnv(string) (string, bool) { return "", false }

// Config parses data as infra.yaml without consulting the environment.
func Config(t testing.TB, data string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(data), NoEnv)
	if err != nil {
		t.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}

// Environment builds a render environment from data and the test CA.
func Environment(t testing.TB, data string) *component.Environment {
	t.Helper()
	return component.NewEnvironment(Config(t, data), CA(t))
}

// Build builds c against env and fails the test on error.
func Build(t testing.TB, c component.Component, env *component.Environment) *component.Bundle {
	t.Helper()
	b, err := c.Build(context.Background(), env)
	if err != nil {
		t.Fatalf("%s: Build() error = %v", c.Name(), err)
	}
	if b == nil {
		t.Fatalf("%s: Build() returned nil bundle", c.Name())
	}
	if b.Name != c.Name() {
		t.Errorf("bundle name = %q, want %q", b.Name, c.Name())
	}
	if err := component.ValidateObjects(b.Objects); err != nil {
		t.Errorf("%s: invalid objects: %v", c.Name(), err)
	}
	return b
}

// Write writes b into a temporary directory with README and checksums and
// returns the result and the bundle directory.
func Write(t testing.TB, b *component.Bundle) (*result.Result, string) {
	t.Helper()
	dir := t.TempDir()
	res, err := component.WriteBundle(context.Background(), b, dir, component.WriteOptions{
		IncludeReadme:    true,
		IncludeChecksums: true,
	})
	if err != nil {
		t.Fatalf("%s: WriteBundle() error = %v", b.Name, err)
	}
	if !res.Success {
		t.Errorf("%s: result not marked successful", b.Name)
	}
	bundleDir := filepath.Join(dir, b.Name)
	for _, f := range []string{component.ReadmeFile, "checksums.txt"} {
		if _, err := os.Stat(filepath.Join(bundleDir, f)); err != nil {
			t.Errorf("%s: expected %s: %v", b.Name, f, err)
		}
	}
	return res, bundleDir
}

// Find returns the first object of type T named name.
func Find[T runtime.Object](t testing.TB, b *component.Bundle, name string) T {
	t.Helper()
	for _, obj := range b.Objects {
		typed, ok := obj.(T)
		if !ok {
			continue
		}
		ref, err := component.RefOf(typed)
		if err != nil {
			t.Fatalf("RefOf: %v", err)
		}
		if ref.Name == name {
			return typed
		}
	}
	var zero T
	t.Fatalf("%s: no %T named %q", b.Name, zero, name)
	return zero
}

// Chart returns the chart with the given release.
func Chart(t testing.TB, b *component.Bundle, release string) component.Chart {
	t.Helper()
	for _, c := range b.Charts {
		if c.Release == release {
			return c
		}
	}
	t.Fatalf("%s: no chart release %q", b.Name, release)
	return component.Chart{}
}

// Kinds lists the kind/name of every object in b.
func Kinds(t testing.TB, b *component.Bundle) []string {
	t.Helper()
	out := make([]string, 0, len(b.Objects))
	for _, obj := range b.Objects {
		ref, err := component.RefOf(obj)
		if err != nil {
			t.Fatalf("RefOf: %v", err)
		}
		out = append(out, ref.Kind+"/"+ref.Name)
	}
	return out
}
