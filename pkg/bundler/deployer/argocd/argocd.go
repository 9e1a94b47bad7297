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

package argocd

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/homelab-stack/homelab/pkg/bundler/checksum"
	"github.com/homelab-stack/homelab/pkg/bundler/types"
	"github.com/homelab-stack/homelab/pkg/component"
	"github.com/homelab-stack/homelab/pkg/errors"
)

const (
	// AppsDir holds one file of Applications per component.
	AppsDir = "argocd"

	// AppOfAppsFile is the parent Application applied by hand.
	AppOfAppsFile = "app-of-apps.yaml"

	// AppOfAppsName is the name of the parent Application.
	AppOfAppsName = "homelab"

	// ArgoNamespace is where Argo CD watches for Applications.
	ArgoNamespace = "argocd"

	// SyncWaveAnnotation orders Applications within the App of Apps.
	SyncWaveAnnotation = "argocd.argoproj.io/sync-wave"

	// placeholderRepoURL is used when no repository is configured.
	placeholderRepoURL = "https://github.com/YOUR-ORG/YOUR-REPO.git"
)

//go:embed templates/application.yaml.tmpl
var applicationTemplate string

//go:embed templates/app-of-apps.yaml.tmpl
var appOfAppsTemplate string

//go:embed templates/README.md.tmpl
var readmeTemplate string

// ApplicationData contains data for rendering an Argo CD Application.
type ApplicationData struct {
	Name          string
	Component     string
	Namespace     string
	ArgoNamespace string
	SyncWave      int

	// Chart is set for chart Applications. Values holds its inline values.
	Chart  *component.Chart
	Values string

	// RepoURL, TargetRevision and Path locate a manifests directory.
	RepoURL        string
	TargetRevision string
	Path           string
}

// AppOfAppsData contains data for rendering the App of Apps manifest.
type AppOfAppsData struct {
	Name           string
	ArgoNamespace  string
	RepoURL        string
	TargetRevision string
	Path           string
}

// ReadmeData contains data for rendering the README.
type ReadmeData struct {
	Version      string
	RunID        string
	AppsDir      string
	Steps        []string
	Notes        []string
	Applications []ApplicationData
}

// GeneratorInput contains all data needed to generate Argo CD Applications.
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

	// RepoURL is the Git repository holding the output directory.
	// If empty, a placeholder URL is used.
	RepoURL string

	// TargetRevision is the Git revision to track. Defaults to HEAD.
	TargetRevision string

	// BasePath is the output directory's path inside the repository.
	// Defaults to the repository root.
	BasePath string

	// IncludeReadme indicates whether to generate README.md.
	IncludeReadme bool

	// IncludeChecksums indicates whether to generate a checksums.txt file.
	IncludeChecksums bool
}

// GeneratorOutput contains the result of Argo CD Application generation.
type GeneratorOutput struct {
	// Files contains the paths of generated files.
	Files []string

	// TotalSize is the total size of all generated files.
	TotalSize int64

	// Duration is the time taken to generate the applications.
	Duration time.Duration

	// DeploymentSteps contains ordered deployment instructions for the user.
	DeploymentSteps []string

	// DeploymentNotes contains optional notes (e.g., "Update repo URL").
	DeploymentNotes []string
}

// Generator creates Argo CD Applications from rendered components.
type Generator struct{}

// NewGenerator creates a new Argo CD application generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate writes argocd/<component>.yaml for every component, the App of
// Apps, README.md and checksums.txt into outputDir.
func (g *Generator) Generate(ctx context.Context, input *GeneratorInput, outputDir string) (*GeneratorOutput, error) {
	start := time.Now()

	if input == nil {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "generator input is required")
	}
	if len(input.Components) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "at least one component is required")
	}

	repoURL := input.RepoURL
	if repoURL == "" {
		repoURL = placeholderRepoURL
	}
	revision := input.TargetRevision
	if revision == "" {
		revision = "HEAD"
	}
	basePath := path.Clean("/" + filepath.ToSlash(input.BasePath))[1:]

	w := component.NewWriter("argocd")
	seen := map[string]string{}
	var all []ApplicationData

	for _, c := range input.Components {
		if err := w.CheckContext(ctx); err != nil {
			return nil, err
		}

		apps, err := applications(c, repoURL, revision, basePath)
		if err != nil {
			return nil, err
		}

		var buf bytes.Buffer
		for i, app := range apps {
			if owner, dup := seen[app.Name]; dup {
				return nil, errors.Newf(errors.ErrCodeConflict,
					"application %q is rendered by both %s and %s", app.Name, owner, c.Name)
			}
			seen[app.Name] = c.Name

			doc, err := component.RenderTemplate(applicationTemplate, app.Name, app)
			if err != nil {
				return nil, err
			}
			if i > 0 {
				buf.WriteString("---\n")
			}
			buf.WriteString(doc)
		}
		all = append(all, apps...)

		if err := w.WriteFile(filepath.Join(outputDir, AppsDir, c.Name+".yaml"), buf.Bytes(), 0o644); err != nil {
			return nil, err
		}
	}

	parent := AppOfAppsData{
		Name:           AppOfAppsName,
		ArgoNamespace:  ArgoNamespace,
		RepoURL:        repoURL,
		TargetRevision: revision,
		Path:           path.Join(basePath, AppsDir),
	}
	if err := w.RenderAndWriteTemplate(appOfAppsTemplate, AppOfAppsFile,
		filepath.Join(outputDir, AppOfAppsFile), parent, 0o644); err != nil {
		return nil, err
	}

	output := &GeneratorOutput{}
	for _, u := range types.CRDURLs(input.Components) {
		output.DeploymentSteps = append(output.DeploymentSteps,
			fmt.Sprintf("kubectl apply --server-side -f %s", u))
	}
	output.DeploymentSteps = append(output.DeploymentSteps,
		fmt.Sprintf("Push %s to %s", outputDir, repoURL),
		fmt.Sprintf("kubectl apply -f %s", filepath.Join(outputDir, AppOfAppsFile)),
	)
	if input.RepoURL == "" {
		output.DeploymentNotes = append(output.DeploymentNotes,
			"Update the repoURL in "+AppOfAppsFile+" and "+AppsDir+"/*.yaml before applying")
	}

	if input.IncludeReadme {
		data := ReadmeData{
			Version:      input.Version,
			RunID:        input.RunID,
			AppsDir:      AppsDir,
			Steps:        output.DeploymentSteps,
			Notes:        output.DeploymentNotes,
			Applications: all,
		}
		if err := w.RenderAndWriteTemplate(readmeTemplate, component.ReadmeFile,
			filepath.Join(outputDir, component.ReadmeFile), data, 0o644); err != nil {
			return nil, err
		}
	}

	if input.IncludeChecksums {
		files := append(w.Result.FileList(), input.Files...)
		sumPath, _, err := checksum.Generate(ctx, outputDir, files)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, "failed to generate checksums", err)
		}
		info, err := os.Stat(sumPath)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, "failed to stat checksums file", err)
		}
		w.Result.AddFile(sumPath, info.Size())
	}

	output.Files = w.Result.FileList()
	output.TotalSize = w.Result.Size
	output.Duration = time.Since(start)

	slog.Debug("argocd applications generated",
		"applications", len(all),
		"files", len(output.Files),
		"size_bytes", output.TotalSize,
	)
	return output, nil
}

// applications returns one Application per chart and one for the
// manifests of c, all in the component's wave.
func applications(c types.Component, repoURL, revision, basePath string) ([]ApplicationData, error) {
	namespace := c.Namespace
	if namespace == "" {
		namespace = "default"
	}

	apps := make([]ApplicationData, 0, len(c.Charts)+1)
	for i := range c.Charts {
		chart := c.Charts[i]
		values, err := marshalValues(chart.Values)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInternal, err, "%s: failed to marshal values for %s", c.Name, chart.Release)
		}
		ns := chart.Namespace
		if ns == "" {
			ns = namespace
		}
		apps = append(apps, ApplicationData{
			Name:          chart.Release,
			Component:     c.Name,
			Namespace:     ns,
			ArgoNamespace: ArgoNamespace,
			SyncWave:      c.Wave,
			Chart:         &chart,
			Values:        values,
		})
	}

	if c.HasManifests() {
		apps = append(apps, ApplicationData{
			Name:           c.Name + "-manifests",
			Component:      c.Name,
			Namespace:      namespace,
			ArgoNamespace:  ArgoNamespace,
			SyncWave:       c.Wave,
			RepoURL:        repoURL,
			TargetRevision: revision,
			Path:           path.Join(basePath, c.ManifestsPath()),
		})
	}
	return apps, nil
}

// marshalValues renders chart values for inlining into an Application.
func marshalValues(values map[string]any) (string, error) {
	if len(values) == 0 {
		return "{}", nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(values); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
