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

// Package component provides the framework every homelab component is built on.
//
// A Component declares a Stage, the components it depends on and a Build
// method that returns a Bundle: pinned Helm charts with their values, typed
// Kubernetes objects, CRD URLs and extra files. Components never talk to a
// cluster. The bundle is written to disk and an external engine (Helm and
// kubectl, or Argo CD) applies it.
//
// # Writing a component
//
//	type Component struct{}
//
//	func init() { component.MustRegister(&Component{}) }
//
//	func (c *Component) Name() string { return "metallb" }
//	func (c *Component) Stage() component.Stage { return component.StageNetwork }
//	func (c *Component) DependsOn() []string { return nil }
//	func (c *Component) Enabled(env *component.Environment) bool {
//	    return env.Enabled("metallb", true)
//	}
//
//	func (c *Component) Build(ctx context.Context, env *component.Environment) (*component.Bundle, error) {
//	    b := component.NewBundle(c, "metallb-system")
//	    b.Add(component.Namespace("metallb-system", nil))
//	    return b, nil
//	}
//
// # Writing bundles
//
// WriteBundle lays a bundle out as:
//
//	<name>/
//	  manifests/NN-<kind>-<name>.yaml
//	  values/<release>.yaml
//	  README.md
//	  checksums.txt
//
// Object files are numbered in declaration order so a plain
// `kubectl apply -f manifests/` applies namespaces before their contents.
//
// # Values
//
// Chart defaults are merged with the user's components.<name>.values using
// MergeValues (mergo), then --set overrides are applied with Helm's strvals
// semantics by ApplyValueOverrides.
package component
