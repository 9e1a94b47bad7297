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
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/runtime"

	"github.com/homelab-stack/homelab/pkg/bundler/checksum"
	"github.com/homelab-stack/homelab/pkg/bundler/result"
	"github.com/homelab-stack/homelab/pkg/errors"
)

const (
	// ManifestsDir holds one file per rendered object.
	ManifestsDir = "manifests"

	// ValuesDir holds one values file per chart.
	ValuesDir = "values"

	// ReadmeFile is the generated bundle README.
	ReadmeFile = "README.md"
)

// Writer writes a bundle to disk and records what it wrote.
//
// Thread-safety: a Writer belongs to a single bundle. Do not share Writer
// instances between concurrent renders.
type Writer struct {
	Result *result.Result
}

// NewWriter creates a writer for the named component.
func NewWriter(component string) *Writer {
	return &Writer{Result: result.New(component)}
}

// BundleDirectories holds the standard bundle directory structure.
type BundleDirectories struct {
	Root      string
	Manifests string
	Values    string
}

// CreateBundleDir creates the bundle root. Subdirectories are created on
// demand when files are written into them.
func (w *Writer) CreateBundleDir(outputDir, bundleName string) (BundleDirectories, error) {
	root := filepath.Join(outputDir, bundleName)
	dirs := BundleDirectories{
		Root:      root,
		Manifests: filepath.Join(root, ManifestsDir),
		Values:    filepath.Join(root, ValuesDir),
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return dirs, errors.Wrapf(errors.ErrCodeInternal, err, "failed to create directory %s", root)
	}

	slog.Debug("bundle directory created",
		"bundle", bundleName,
		"root", root,
	)
	return dirs, nil
}

// WriteFile writes content to path, creating parent directories, and tracks
// it in the result.
func (w *Writer) WriteFile(path string, content []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(errors.ErrCodeInternal, err, "failed to create directory for %s", path)
	}
	if err := os.WriteFile(path, content, perm); err != nil {
		return errors.Wrapf(errors.ErrCodeInternal, err, "failed to write %s", path)
	}

	w.Result.AddFile(path, int64(len(content)))

	slog.Debug("file written",
		"path", path,
		"size_bytes", len(content),
	)
	return nil
}

// WriteFileString writes string content to a file.
func (w *Writer) WriteFileString(path, content string, perm os.FileMode) error {
	return w.WriteFile(path, []byte(content), perm)
}

// WriteManifests writes each object into dir as NN-<kind>-<name>.yaml,
// numbered in declaration order. It returns the written file names.
func (w *Writer) WriteManifests(dir string, objs []runtime.Object) ([]string, error) {
	if err := ValidateObjects(objs); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(objs))
	for i, obj := range objs {
		ref, err := RefOf(obj)
		if err != nil {
			return nil, err
		}
		data, err := MarshalObject(obj)
		if err != nil {
			return nil, err
		}
		name := ManifestName(i, ref)
		if err := w.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

// MarshalValues renders chart values as YAML below a provenance header.
func MarshalValues(chart Chart) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# Generated by homelab\n# Chart: %s/%s %s\n# Release: %s/%s\n",
		chart.Repository, chart.Name, chart.Version, chart.Namespace, chart.Release)
	buf.WriteString("---\n")

	if len(chart.Values) > 0 {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(chart.Values); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInternal, err, "failed to marshal values for %s", chart.Release)
		}
		if err := enc.Close(); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInternal, err, "failed to marshal values for %s", chart.Release)
		}
	}
	return buf.Bytes(), nil
}

// WriteValues writes values/<release>.yaml and returns its path.
func (w *Writer) WriteValues(dir string, chart Chart) (string, error) {
	data, err := MarshalValues(chart)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, chart.Release+".yaml")
	return path, w.WriteFile(path, data, 0o644)
}

// RenderTemplate renders a text template with the sprig function map.
func (w *Writer) RenderTemplate(tmplContent, name string, data any) (string, error) {
	return RenderTemplate(tmplContent, name, data)
}

// RenderTemplate renders a text template with the sprig function map.
func RenderTemplate(tmplContent, name string, data any) (string, error) {
	tmpl, err := template.New(name).Funcs(sprig.TxtFuncMap()).Parse(tmplContent)
	if err != nil {
		return "", errors.Wrapf(errors.ErrCodeInternal, err, "failed to parse template %s", name)
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.Wrapf(errors.ErrCodeInternal, err, "failed to execute template %s", name)
	}
	return buf.String(), nil
}

// RenderAndWriteTemplate renders a template and writes it to a file.
func (w *Writer) RenderAndWriteTemplate(tmplContent, name, outputPath string, data any, perm os.FileMode) error {
	content, err := w.RenderTemplate(tmplContent, name, data)
	if err != nil {
		return err
	}
	return w.WriteFileString(outputPath, content, perm)
}

// GenerateChecksums writes checksums.txt for every file written so far.
func (w *Writer) GenerateChecksums(ctx context.Context, bundleDir string) error {
	files := w.Result.FileList()
	path, digest, err := checksum.Generate(ctx, bundleDir, files)
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to stat checksums file", err)
	}
	w.Result.AddFile(path, info.Size())
	w.Result.Checksum = digest
	return nil
}

// Finalize marks the bundle as written.
func (w *Writer) Finalize(start time.Time) {
	w.Result.Duration = time.Since(start)
	w.Result.MarkSuccess()

	slog.Debug("bundle finalized",
		"component", w.Result.Component,
		"files", len(w.Result.Files),
		"size_bytes", w.Result.Size,
		"duration", w.Result.Duration.Round(time.Millisecond),
	)
}

// CheckContext returns the context error once it is cancelled.
func (w *Writer) CheckContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return errors.Wrap(errors.ErrCodeTimeout, "context cancelled", ctx.Err())
	default:
		return nil
	}
}

// AddError records a non-fatal error in the result.
func (w *Writer) AddError(err error) {
	if err != nil {
		w.Result.AddError(err)
		slog.Warn("non-fatal error during bundle generation",
			"component", w.Result.Component,
			"error", err,
		)
	}
}

// WriteOptions control what WriteBundle emits.
type WriteOptions struct {
	IncludeReadme    bool
	IncludeChecksums bool

	// Overrides are --set expressions keyed by chart release, or by
	// component name when the component renders a single chart.
	Overrides map[string][]string
}

// ReadmeData is passed to README templates.
type ReadmeData struct {
	Bundle      *Bundle
	DisplayName string
	Manifests   []string
	Values      map[string]string
	Files       []string
}

// WriteBundle writes b below outputDir/<name>:
// manifests, chart values, extra files, README and checksums.
func WriteBundle(ctx context.Context, b *Bundle, outputDir string, opts WriteOptions) (*result.Result, error) {
	start := time.Now()
	w := NewWriter(b.Name)
	w.Result.Stage = b.Stage.String()

	if err := w.CheckContext(ctx); err != nil {
		return w.Result, err
	}

	dirs, err := w.CreateBundleDir(outputDir, b.Name)
	if err != nil {
		return w.Result, err
	}

	data := ReadmeData{
		Bundle:      b,
		DisplayName: DisplayName(b.Name),
		Values:      map[string]string{},
	}

	for i := range b.Charts {
		chart := &b.Charts[i]
		if chart.Values == nil {
			chart.Values = map[string]any{}
		}
		exprs, err := chartOverrides(b, chart.Release, opts.Overrides)
		if err != nil {
			return w.Result, err
		}
		if err := ApplyValueOverrides(chart.Values, exprs); err != nil {
			return w.Result, errors.Wrapf(errors.ErrCodeInvalidRequest, err, "%s: invalid override for %s", b.Name, chart.Release)
		}
		path, err := w.WriteValues(dirs.Values, *chart)
		if err != nil {
			return w.Result, err
		}
		data.Values[chart.Release] = filepath.ToSlash(filepath.Join(ValuesDir, filepath.Base(path)))
	}

	if len(b.Objects) > 0 {
		names, err := w.WriteManifests(dirs.Manifests, b.Objects)
		if err != nil {
			return w.Result, errors.Wrapf(errors.CodeOf(err), err, "%s: failed to write manifests", b.Name)
		}
		data.Manifests = names
	}

	extra := make([]string, 0, len(b.Files))
	for name := range b.Files {
		extra = append(extra, name)
	}
	sort.Strings(extra)
	for _, name := range extra {
		if err := w.CheckContext(ctx); err != nil {
			return w.Result, err
		}
		clean := filepath.Clean(filepath.FromSlash(name))
		if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
			return w.Result, errors.Newf(errors.ErrCodeInternal, "%s: file %q escapes the bundle", b.Name, name)
		}
		if err := w.WriteFile(filepath.Join(dirs.Root, clean), b.Files[name], 0o644); err != nil {
			return w.Result, err
		}
	}
	data.Files = extra

	if opts.IncludeReadme {
		getTemplate := b.Templates
		if getTemplate == nil {
			getTemplate = DefaultTemplates
		}
		tmpl, ok := getTemplate(ReadmeFile)
		if !ok {
			tmpl, _ = DefaultTemplates(ReadmeFile)
		}
		if err := w.RenderAndWriteTemplate(tmpl, b.Name+"/"+ReadmeFile,
			filepath.Join(dirs.Root, ReadmeFile), data, 0o644); err != nil {
			return w.Result, err
		}
	}

	if opts.IncludeChecksums {
		if err := w.GenerateChecksums(ctx, dirs.Root); err != nil {
			return w.Result, err
		}
	}

	w.Finalize(start)
	return w.Result, nil
}
