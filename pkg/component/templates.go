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
	_ "embed"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed templates/README.md.tmpl
var defaultReadmeTemplate string

// TemplateFunc retrieves templates by name.
// Returns the template content and whether it was found.
type TemplateFunc func(name string) (string, bool)

// NewTemplateGetter creates a TemplateFunc from a map of template names to content.
//
//	//go:embed templates/README.md.tmpl
//	var readmeTemplate string
//
//	var GetTemplate = NewTemplateGetter(map[string]string{
//	    "README.md": readmeTemplate,
//	})
func NewTemplateGetter(templates map[string]string) TemplateFunc {
	return func(name string) (string, bool) {
		tmpl, ok := templates[name]
		return tmpl, ok
	}
}

// StandardTemplates returns a TemplateFunc for components that only have a README template.
func StandardTemplates(readmeTemplate string) TemplateFunc {
	return NewTemplateGetter(map[string]string{
		ReadmeFile: readmeTemplate,
	})
}

// DefaultTemplates serves the README used by components without their own.
var DefaultTemplates = StandardTemplates(defaultReadmeTemplate)

// acronyms keep their casing in display names.
var acronyms = map[string]string{
	"dns": "DNS",
	"k8s": "K8s",
	"pki": "PKI",
	"vip": "VIP",
}

// DisplayName turns a component name such as "kube-state-metrics" into
// "Kube State Metrics".
func DisplayName(name string) string {
	caser := cases.Title(language.English)
	words := strings.FieldsFunc(name, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		if a, ok := acronyms[strings.ToLower(w)]; ok {
			words[i] = a
			continue
		}
		words[i] = caser.String(w)
	}
	return strings.Join(words, " ")
}
