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
	"fmt"
	"sort"
	"sync"
)

// Global registry for components.
// Component packages register themselves via init() functions.
var global = NewRegistry()

// Register registers a component globally.
// Returns an error if a component with the same name is already registered.
func Register(c Component) error {
	return global.Register(c)
}

// MustRegister is a convenience function that panics on registration error.
// Use this in init() functions where registration must succeed.
func MustRegister(c Component) {
	if err := Register(c); err != nil {
		panic(err)
	}
}

// Get returns a globally registered component.
func Get(name string) (Component, bool) {
	return global.Get(name)
}

// All returns every globally registered component sorted by stage then name.
func All() []Component {
	return global.All()
}

// Names returns the names of every globally registered component.
func Names() []string {
	return global.Names()
}

// Registry holds components by name.
// Thread-safety: Registry is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	components map[string]Component
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		components: make(map[string]Component),
	}
}

// Register adds c. Names must be unique.
func (r *Registry) Register(c Component) error {
	if c == nil || c.Name() == "" {
		return fmt.Errorf("component must have a name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.components[c.Name()]; exists {
		return fmt.Errorf("component %s already registered", c.Name())
	}
	r.components[c.Name()] = c
	return nil
}

// Get retrieves a component by name.
func (r *Registry) Get(name string) (Component, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.components[name]
	return c, ok
}

// All returns every component sorted by stage then name.
func (r *Registry) All() []Component {
	r.mu.RLock()
	out := make([]Component, 0, len(r.components))
	for _, c := range r.components {
		out = append(out, c)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Stage() != out[j].Stage() {
			return out[i].Stage() < out[j].Stage()
		}
		return out[i].Name() < out[j].Name()
	})
	return out
}

// Names returns component names sorted by stage then name.
func (r *Registry) Names() []string {
	all := r.All()
	names := make([]string, len(all))
	for i, c := range all {
		names[i] = c.Name()
	}
	return names
}

// Count returns the number of registered components.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.components)
}
