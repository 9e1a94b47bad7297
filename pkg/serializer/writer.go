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

package serializer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"
	"slices"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/homelab-stack/homelab/pkg/errors"
)

// Format represents the output format type
type Format string

const (
	// FormatJSON outputs data in JSON format
	FormatJSON Format = "json"
	// FormatYAML outputs data in YAML format
	FormatYAML Format = "yaml"
	// FormatTable outputs data in table format
	FormatTable Format = "table"
)

const defaultValueKey = "value"

func (f Format) IsUnknown() bool {
	switch f {
	case FormatJSON, FormatYAML, FormatTable:
		return false
	default:
		return true
	}
}

// SupportedFormats returns a list of all supported output formats.
func SupportedFormats() []string {
	return []string{
		string(FormatJSON),
		string(FormatYAML),
		string(FormatTable),
	}
}

// ParseFormat converts a flag value into a Format.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if f.IsUnknown() {
		return "", errors.Newf(errors.ErrCodeInvalidRequest, "unknown output format %q (want one of: %s)",
			s, strings.Join(SupportedFormats(), ", "))
	}
	return f, nil
}

// Writer handles serialization of command results to various formats.
// Close must be called to release file handles when using NewFileWriterOrStdout.
type Writer struct {
	format Format
	output io.Writer
	closer io.Closer
}

// NewWriter creates a new Writer with the specified format and output destination.
// If output is nil, os.Stdout will be used.
// If format is unknown, defaults to YAML.
func NewWriter(format Format, output io.Writer) *Writer {
	if output == nil {
		output = os.Stdout
	}
	if format.IsUnknown() {
		slog.Warn("unknown format, defaulting to YAML", "format", format)
		format = FormatYAML
	}
	return &Writer{
		format: format,
		output: output,
	}
}

// NewFileWriterOrStdout creates a Writer for path, or for stdout when path
// is empty or the file cannot be created.
// Remember to call Close() on the returned Writer to ensure the file is properly closed.
func NewFileWriterOrStdout(format Format, path string) *Writer {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return NewWriter(format, os.Stdout)
	}

	file, err := os.Create(trimmed)
	if err != nil {
		slog.Error("failed to create output file", "error", err, "path", trimmed)
		return NewWriter(format, os.Stdout)
	}

	w := NewWriter(format, file)
	w.closer = file
	return w
}

// Close releases any resources associated with the Writer.
// It's safe to call Close multiple times or on stdout-based writers.
func (w *Writer) Close() error {
	if w.closer == nil {
		return nil
	}
	err := w.closer.Close()
	w.closer = nil
	return err
}

// Serialize writes v in the configured format.
func (w *Writer) Serialize(ctx context.Context, v any) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeTimeout, "serialization canceled", err)
	}
	switch w.format {
	case FormatJSON:
		return w.serializeJSON(v)
	case FormatYAML:
		return w.serializeYAML(v)
	case FormatTable:
		return w.serializeTable(v)
	default:
		return errors.Newf(errors.ErrCodeInvalidRequest, "unsupported format: %s", w.format)
	}
}

func (w *Writer) serializeJSON(v any) error {
	encoder := json.NewEncoder(w.output)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to serialize to JSON", err)
	}
	return nil
}

func (w *Writer) serializeYAML(v any) error {
	encoder := yaml.NewEncoder(w.output)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to serialize to YAML", err)
	}
	return encoder.Close()
}

func (w *Writer) serializeTable(v any) error {
	header, rows := tableOf(v)
	if len(rows) == 0 {
		fmt.Fprintln(w.output, "<empty>")
		return nil
	}

	table := tablewriter.NewWriter(w.output)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.AppendBulk(rows)
	table.Render()
	return nil
}

// tableOf returns the columns and rows for v.
func tableOf(v any) ([]string, [][]string) {
	if t, ok := v.(Tabular); ok {
		return t.Header(), t.Rows()
	}

	flat := make(map[string]any)
	flattenValue(flat, reflect.ValueOf(v), "")

	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{key, fmt.Sprintf("%v", flat[key])})
	}
	return []string{"field", "value"}, rows
}

func flattenValue(out map[string]any, val reflect.Value, prefix string) {
	if !val.IsValid() {
		return
	}

	for val.Kind() == reflect.Pointer || val.Kind() == reflect.Interface {
		if val.IsNil() {
			if prefix != "" {
				out[prefix] = nil
			}
			return
		}
		val = val.Elem()
	}

	//nolint:exhaustive // We handle the common cases explicitly; all others go to default
	switch val.Kind() {
	case reflect.Struct:
		typ := val.Type()
		for i := 0; i < val.NumField(); i++ {
			field := typ.Field(i)
			if !field.IsExported() {
				continue
			}
			key := joinKey(prefix, field.Name)
			flattenValue(out, val.Field(i), key)
		}
	case reflect.Map:
		for _, mapKey := range val.MapKeys() {
			key := joinKey(prefix, fmt.Sprintf("%v", mapKey.Interface()))
			flattenValue(out, val.MapIndex(mapKey), key)
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < val.Len(); i++ {
			key := joinKey(prefix, fmt.Sprintf("[%d]", i))
			flattenValue(out, val.Index(i), key)
		}
	default:
		if prefix == "" {
			prefix = defaultValueKey
		}
		out[prefix] = val.Interface()
	}
}

func joinKey(prefix, suffix string) string {
	if prefix == "" {
		return suffix
	}
	if suffix == "" {
		return prefix
	}
	return prefix + "." + suffix
}
