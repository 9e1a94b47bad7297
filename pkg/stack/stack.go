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

package stack

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/homelab-stack/homelab/pkg/component"
	"github.com/homelab-stack/homelab/pkg/errors"
)

// Node is a component placed in the plan.
type Node struct {
	Component component.Component
	Name      string
	Stage     component.Stage
	DependsOn []string

	// Wave is one more than the highest wave among the dependencies.
	Wave int
}

// Plan is the validated apply order of the enabled components.
type Plan struct {
	nodes  []Node
	byName map[string]int
}

// Resolve orders the enabled components. Every dependency must be
// registered, enabled and in the same or an earlier stage. Ties are broken
// by stage and then name so the order is stable.
func Resolve(components []component.Component, env *component.Environment) (*Plan, error) {
	all := make(map[string]component.Component, len(components))
	for _, c := range components {
		if _, dup := all[c.Name()]; dup {
			return nil, errors.Newf(errors.ErrCodeConflict, "component %q is declared twice", c.Name())
		}
		all[c.Name()] = c
	}

	enabled := make(map[string]component.Component)
	for name, c := range all {
		if c.Enabled(env) {
			enabled[name] = c
		}
	}

	for _, name := range sortedNames(enabled) {
		c := enabled[name]
		for _, dep := range c.DependsOn() {
			target, known := all[dep]
			switch {
			case !known:
				return nil, errors.NewWithContext(errors.ErrCodeInvalidConfig,
					fmt.Sprintf("component %q depends on unknown component %q", name, dep),
					map[string]any{"component": name, "dependency": dep})
			case enabled[dep] == nil:
				return nil, errors.NewWithContext(errors.ErrCodeInvalidConfig,
					fmt.Sprintf("component %q depends on %q, which is disabled", name, dep),
					map[string]any{"component": name, "dependency": dep})
			case target.Stage() > c.Stage():
				return nil, errors.NewWithContext(errors.ErrCodeInvalidConfig,
					fmt.Sprintf("component %q (%s) depends on %q from the later stage %s",
						name, c.Stage(), dep, target.Stage()),
					map[string]any{"component": name, "dependency": dep})
			}
		}
	}

	if err := detectCycles(enabled); err != nil {
		return nil, err
	}
	return sortPlan(enabled), nil
}

func sortedNames(m map[string]component.Component) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// detectCycles walks the dependency graph depth first and reports the
// first cycle as a path.
func detectCycles(components map[string]component.Component) error {
	visited := make(map[string]bool)
	onPath := make(map[string]bool)
	var path []string

	var visit func(name string) error
	visit = func(name string) error {
		visited[name] = true
		onPath[name] = true
		path = append(path, name)

		for _, dep := range components[name].DependsOn() {
			if !visited[dep] {
				if err := visit(dep); err != nil {
					return err
				}
			} else if onPath[dep] {
				start := slices.Index(path, dep)
				cycle := append(slices.Clone(path[start:]), dep)
				return errors.NewWithContext(errors.ErrCodeConflict,
					"circular dependency: "+strings.Join(cycle, " -> "),
					map[string]any{"cycle": cycle})
			}
		}

		path = path[:len(path)-1]
		onPath[name] = false
		return nil
	}

	for _, name := range sortedNames(components) {
		if !visited[name] {
			if err := visit(name); err != nil {
				return err
			}
		}
	}
	return nil
}

// sortPlan runs Kahn's algorithm over an acyclic graph.
func sortPlan(components map[string]component.Component) *Plan {
	pending := make(map[string]int, len(components))
	dependents := make(map[string][]string)
	for name, c := range components {
		pending[name] = len(c.DependsOn())
		for _, dep := range c.DependsOn() {
			dependents[dep] = append(dependents[dep], name)
		}
	}

	less := func(a, b string) bool {
		sa, sb := components[a].Stage(), components[b].Stage()
		if sa != sb {
			return sa < sb
		}
		return a < b
	}

	var ready []string
	for name, n := range pending {
		if n == 0 {
			ready = append(ready, name)
		}
	}

	p := &Plan{byName: make(map[string]int, len(components))}
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return less(ready[i], ready[j]) })
		name := ready[0]
		ready = ready[1:]

		c := components[name]
		wave := 0
		for _, dep := range c.DependsOn() {
			wave = max(wave, p.nodes[p.byName[dep]].Wave+1)
		}
		p.byName[name] = len(p.nodes)
		p.nodes = append(p.nodes, Node{
			Component: c,
			Name:      name,
			Stage:     c.Stage(),
			DependsOn: slices.Clone(c.DependsOn()),
			Wave:      wave,
		})

		for _, d := range dependents[name] {
			pending[d]--
			if pending[d] == 0 {
				ready = append(ready, d)
			}
		}
	}
	return p
}

// Len returns the number of planned components.
func (p *Plan) Len() int { return len(p.nodes) }

// Nodes returns the planned components in apply order.
func (p *Plan) Nodes() []Node { return slices.Clone(p.nodes) }

// Node returns the named node.
func (p *Plan) Node(name string) (Node, bool) {
	i, ok := p.byName[name]
	if !ok {
		return Node{}, false
	}
	return p.nodes[i], true
}

// Order returns component names in apply order.
func (p *Plan) Order() []string {
	out := make([]string, len(p.nodes))
	for i, n := range p.nodes {
		out[i] = n.Name
	}
	return out
}

// DestroyOrder returns component names in reverse apply order so that
// dependents are removed before what they depend on.
func (p *Plan) DestroyOrder() []string {
	out := p.Order()
	slices.Reverse(out)
	return out
}

// Waves groups component names by wave. Every dependency of a component is
// in an earlier wave. Within a wave names keep apply order.
func (p *Plan) Waves() [][]string {
	var waves [][]string
	for _, n := range p.nodes {
		for len(waves) <= n.Wave {
			waves = append(waves, nil)
		}
		waves[n.Wave] = append(waves[n.Wave], n.Name)
	}
	return waves
}

// Filter keeps the named components and everything they depend on,
// preserving apply order. Unknown names are an INVALID_REQUEST error.
func (p *Plan) Filter(names []string) (*Plan, error) {
	if len(names) == 0 {
		return p, nil
	}
	keep := make(map[string]bool)
	var walk func(string)
	walk = func(name string) {
		if keep[name] {
			return
		}
		keep[name] = true
		for _, dep := range p.nodes[p.byName[name]].DependsOn {
			walk(dep)
		}
	}
	for _, name := range names {
		if _, ok := p.byName[name]; !ok {
			return nil, errors.NewWithContext(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("component %q is not enabled", name),
				map[string]any{"component": name, "enabled": p.Order()})
		}
		walk(name)
	}

	out := &Plan{byName: make(map[string]int, len(keep))}
	for _, n := range p.nodes {
		if keep[n.Name] {
			out.byName[n.Name] = len(out.nodes)
			out.nodes = append(out.nodes, n)
		}
	}
	return out, nil
}
