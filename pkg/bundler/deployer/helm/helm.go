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

package helm

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/homelab-stack/homelab/pkg/bundler/checksum"
	"github.com/homelab-stack/homelab/pkg/bundler/types"
	"github.com/homelab-stack/homelab/pkg/component"
	"github.com/homelab-stack/homelab/pkg/errors"
)

const (
	// DeployScript applies the stack.
	DeployScript = "deploy.sh"

	// DestroyScript removes the stack.
	DestroyScript = "destroy.sh"
)

//go:embed templates/deploy.sh.tmpl
var deployTemplate string

//go:embed templates/destroy.sh.tmpl
var destroyTemplate string

//go:embed templates/README.md.tmpl
var readmeTemplate string

// GeneratorInput contains all data needed to generate the scripts.
type GeneratorInput struct {
	// Components are the rendered bundles in apply order.
	Components []types.Component

	// Files are component files already written below the output
	// directory. They are included in checksums.txt.
	Files []string

	// Version is the generator version.
	Version string

	// RunID identifies the render.
	RunID string

	// IncludeReadme indicates whether to generate README.md.
	IncludeReadme bool

	// IncludeChecksums indicates whether to generate a checksums.txt file.
	IncludeChecksums bool
}

// GeneratorOutput contains the result of script generation.
type GeneratorOutput struct {
	// Files contains the paths of generated files.
	Files []string

	// TotalSize is the total size of all generated files.
	TotalSize int64

	// Duration is the time taken to generate the scripts.
	Duration time.Duration

	// DeploymentSteps contains ordered deployment instructions for the user.
	DeploymentSteps []string
}

// scriptData is passed to the script and README templates.
type scriptData struct {
	Version    string
	RunID      string
	Components []types.Component
	CRDURLs    []string
}

// Generator creates deploy.sh and destroy.sh from rendered components.
type Generator struct{}

// NewGenerator creates a new script generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate writes deploy.sh, destroy.sh, README.md and checksums.txt into
// outputDir.
func (g *Generator) Generate(ctx context.Context, input *GeneratorInput, outputDir string) (*GeneratorOutput, error) {
	start := time.Now()

	if input == nil {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "generator input is required")
	}
	if len(input.Components) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "at least one component is required")
	}

	w := component.NewWriter("helm")
	if err := w.CheckContext(ctx); err != nil {
		return nil, err
	}

	data := scriptData{
		Version:    input.Version,
		RunID:      input.RunID,
		Components: input.Components,
		CRDURLs:    types.CRDURLs(input.Components),
	}
	if err := w.RenderAndWriteTemplate(deployTemplate, DeployScript,
		filepath.Join(outputDir, DeployScript), data, 0o755); err != nil {
		return nil, err
	}

	data.Components = reverse(input.Components)
	if err := w.RenderAndWriteTemplate(destroyTemplate, DestroyScript,
		filepath.Join(outputDir, DestroyScript), data, 0o755); err != nil {
		return nil, err
	}
	data.Components = input.Components

	if input.IncludeReadme {
		if err := w.RenderAndWriteTemplate(readmeTemplate, component.ReadmeFile,
			filepath.Join(outputDir, component.ReadmeFile), data, 0o644); err != nil {
			return nil, err
		}
	}

	if input.IncludeChecksums {
		files := append(w.Result.FileList(), input.Files...)
		path, _, err := checksum.Generate(ctx, outputDir, files)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, "failed to generate checksums", err)
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, "failed to stat checksums file", err)
		}
		w.Result.AddFile(path, info.Size())
	}

	output := &GeneratorOutput{
		Files:     w.Result.FileList(),
		TotalSize: w.Result.Size,
		Duration:  time.Since(start),
		DeploymentSteps: []string{
			fmt.Sprintf("cd %s", outputDir),
			"./" + DeployScript,
		},
	}

	slog.Debug("helm scripts generated",
		"components", len(input.Components),
		"files", len(output.Files),
		"size_bytes", output.TotalSize,
	)
	return output, nil
}

// reverse returns the components in reverse order with their charts and
// manifests reversed as well.
func reverse(in []types.Component) []types.Component {
	out := make([]types.Component, len(in))
	for i, c := range in {
		c.Charts = slices.Clone(c.Charts)
		slices.Reverse(c.Charts)
		c.Manifests = slices.Clone(c.Manifests)
		slices.Reverse(c.Manifests)
		c.CRDURLs = slices.Clone(c.CRDURLs)
		slices.Reverse(c.CRDURLs)
		out[len(in)-1-i] = c
	}
	return out
}
