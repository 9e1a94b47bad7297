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

package result

import (
	"fmt"
	"time"
)

// DeploymentInfo tells the user how to hand the rendered stack to the engine.
type DeploymentInfo struct {
	// Type describes the deployment method (e.g., "Helm scripts", "Argo CD applications").
	Type string `json:"type" yaml:"type"`

	// Steps contains ordered deployment instructions.
	Steps []string `json:"steps" yaml:"steps"`

	// Notes contains optional warnings or additional information.
	Notes []string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Output contains the aggregated results of a render.
type Output struct {
	// RunID identifies the render.
	RunID string `json:"run_id" yaml:"run_id"`

	// Results contains per component results in plan order.
	Results []*Result `json:"results" yaml:"results"`

	// TotalSize is the total size in bytes of all generated files.
	TotalSize int64 `json:"total_size_bytes" yaml:"total_size_bytes"`

	// TotalFiles is the total count of generated files.
	TotalFiles int `json:"total_files" yaml:"total_files"`

	// TotalDuration is the wall time of the render.
	TotalDuration time.Duration `json:"total_duration" yaml:"total_duration"`

	// Errors contains errors from failed components.
	Errors []BundleError `json:"errors,omitempty" yaml:"errors,omitempty"`

	// OutputDir is the directory the stack was rendered into.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Deployment contains instructions from the deployer.
	Deployment *DeploymentInfo `json:"deployment,omitempty" yaml:"deployment,omitempty"`
}

// BundleError is the failure of a single component.
type BundleError struct {
	Component string `json:"component" yaml:"component"`
	Error     string `json:"error" yaml:"error"`
}

// Add appends a component result and updates the totals.
func (o *Output) Add(r *Result) {
	if r == nil {
		return
	}
	o.Results = append(o.Results, r)
	o.TotalFiles += len(r.Files)
	o.TotalSize += r.Size
}

// AddFiles accounts for files written outside any component bundle.
func (o *Output) AddFiles(count int, size int64) {
	o.TotalFiles += count
	o.TotalSize += size
}

// HasErrors returns true if any component failed.
func (o *Output) HasErrors() bool {
	return len(o.Errors) > 0
}

// SuccessCount returns the number of successful components.
func (o *Output) SuccessCount() int {
	count := 0
	for _, r := range o.Results {
		if r.Success {
			count++
		}
	}
	return count
}

// FailureCount returns the number of failed components.
func (o *Output) FailureCount() int {
	return len(o.Results) - o.SuccessCount()
}

// ByComponent returns results keyed by component name.
func (o *Output) ByComponent() map[string]*Result {
	results := make(map[string]*Result, len(o.Results))
	for _, r := range o.Results {
		results[r.Component] = r
	}
	return results
}

// FailedComponents returns the names of components that failed.
func (o *Output) FailedComponents() []string {
	failed := make([]string, 0, len(o.Errors))
	for _, e := range o.Errors {
		failed = append(failed, e.Component)
	}
	return failed
}

// Summary returns a human-readable summary of the render.
func (o *Output) Summary() string {
	return fmt.Sprintf(
		"Rendered %d files (%s) in %v. Success: %d/%d components.",
		o.TotalFiles,
		formatBytes(o.TotalSize),
		o.TotalDuration.Round(time.Millisecond),
		o.SuccessCount(),
		len(o.Results),
	)
}

// formatBytes formats bytes into human-readable format.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
