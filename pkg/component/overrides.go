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

package component

import (
	"maps"
	"slices"
	"strings"

	"dario.cat/mergo"
	"github.com/mitchellh/copystructure"
	"helm.sh/helm/v3/pkg/strvals"

	"github.com/homelab-stack/homelab/pkg/errors"
)

// ParseOverride splits a "<name>:<path>=<value>" flag. name is a chart
// release or a component name.
func ParseOverride(s string) (string, string, error) {
	name, expr, ok := strings.Cut(s, ":")
	if !ok || name == "" {
		return "", "", errors.Newf(errors.ErrCodeInvalidRequest, "override %q must be <name>:<path>=<value>", s)
	}
	if path, _, ok := strings.Cut(expr, "="); !ok || path == "" {
		return "", "", errors.Newf(errors.ErrCodeInvalidRequest, "override %q must be <name>:<path>=<value>", s)
	}
	return name, expr, nil
}

// ParseOverrides groups --set flags by name, preserving their order.
func ParseOverrides(flags []string) (map[string][]string, error) {
	out := make(map[string][]string)
	for _, f := range flags {
		release, expr, err := ParseOverride(f)
		if err != nil {
			return nil, err
		}
		out[release] = append(out[release], expr)
	}
	return out, nil
}

// ApplyValueOverrides applies Helm --set style expressions to values in order.
// Scalars are typed the way Helm types them.
func ApplyValueOverrides(values map[string]any, overrides []string) error {
	if values == nil {
		return errors.New(errors.ErrCodeInternal, "target values cannot be nil")
	}
	for _, o := range overrides {
		if err := strvals.ParseInto(o, values); err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidRequest, err, "failed to apply override %q", o)
		}
	}
	return nil
}

// chartOverrides returns the expressions for release in b. Expressions keyed
// by the component name come first and are only allowed when b renders a
// single chart.
func chartOverrides(b *Bundle, release string, overrides map[string][]string) ([]string, error) {
	exprs := overrides[release]
	if b.Name == release {
		return exprs, nil
	}
	byName, ok := overrides[b.Name]
	if !ok {
		return exprs, nil
	}
	if len(b.Charts) != 1 {
		return nil, errors.Newf(errors.ErrCodeInvalidRequest,
			"%s renders %d charts, key overrides by release instead", b.Name, len(b.Charts))
	}
	return append(slices.Clone(byName), exprs...), nil
}

// UnmatchedOverrides returns the override keys that name neither a chart release
// nor a component with exactly one chart in bundles.
func UnmatchedOverrides(bundles []*Bundle, overrides map[string][]string) []string {
	known := make(map[string]bool)
	for _, b := range bundles {
		if b == nil {
			continue
		}
		if len(b.Charts) == 1 {
			known[b.Name] = true
		}
		for _, c := range b.Charts {
			known[c.Release] = true
		}
	}
	var unknown []string
	for _, k := range slices.Sorted(maps.Keys(overrides)) {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	return unknown
}

// CopyValues returns a deep copy of values. Nested maps and lists of the
// copy share nothing with values.
func CopyValues(values map[string]any) (map[string]any, error) {
	if values == nil {
		return nil, nil
	}
	c, err := copystructure.Copy(values)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to copy values", err)
	}
	return c.(map[string]any), nil
}

// MergeValues deep-merges a copy of src over dst and returns the result.
// Keys present in src win; nested maps are merged. The result never shares
// nested maps with src.
func MergeValues(dst, src map[string]any) (map[string]any, error) {
	if dst == nil {
		dst = map[string]any{}
	}
	if len(src) == 0 {
		return dst, nil
	}
	src, err := CopyValues(src)
	if err != nil {
		return nil, err
	}
	if err := mergo.Merge(&dst, src, mergo.WithOverride); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, "failed to merge values", err)
	}
	return dst, nil
}

// ChartValues merges the user values configured for component over defaults.
func (e *Environment) ChartValues(component string, defaults map[string]any) (map[string]any, error) {
	return MergeValues(defaults, e.UserValues(component))
}
