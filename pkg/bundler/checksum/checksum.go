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

package checksum

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/homelab-stack/homelab/pkg/errors"
)

// FileName is the standard name for checksum files.
const FileName = "checksums.txt"

// Generate writes a checksums.txt file into bundleDir containing the SHA256
// of every file, one "<hash>  <relative-path>" line each, sorted by path.
// It returns the path of the written file and its SHA256.
func Generate(ctx context.Context, bundleDir string, files []string) (string, string, error) {
	if err := ctx.Err(); err != nil {
		return "", "", errors.Wrap(errors.ErrCodeInternal, "context cancelled", err)
	}

	lines := make([]string, 0, len(files))
	for _, file := range files {
		sum, err := fileSum(file)
		if err != nil {
			return "", "", err
		}

		relPath, err := filepath.Rel(bundleDir, file)
		if err != nil || strings.HasPrefix(relPath, "..") {
			relPath = file
		}
		lines = append(lines, fmt.Sprintf("%s  %s", sum, filepath.ToSlash(relPath)))
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i][66:] < lines[j][66:] })

	content := []byte(strings.Join(lines, "\n") + "\n")
	path := Path(bundleDir)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", "", errors.Wrap(errors.ErrCodeInternal, "failed to write checksums", err)
	}

	slog.Debug("checksums generated",
		"file_count", len(lines),
		"path", path,
	)

	digest := sha256.Sum256(content)
	return path, hex.EncodeToString(digest[:]), nil
}

// Verify re-reads every file listed in bundleDir/checksums.txt and reports
// the paths whose content no longer matches.
func Verify(bundleDir string) ([]string, error) {
	data, err := os.ReadFile(Path(bundleDir))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNotFound, "failed to read checksums", err)
	}

	var mismatched []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		want, rel, ok := strings.Cut(line, "  ")
		if !ok {
			return nil, errors.Newf(errors.ErrCodeInvalidRequest, "malformed checksum line %q", line)
		}

		path := rel
		if !filepath.IsAbs(path) {
			path = filepath.Join(bundleDir, filepath.FromSlash(rel))
		}
		got, err := fileSum(path)
		if err != nil || got != want {
			mismatched = append(mismatched, rel)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "failed to scan checksums", err)
	}
	return mismatched, nil
}

// Path returns the path of the checksums file in bundleDir.
func Path(bundleDir string) string {
	return filepath.Join(bundleDir, FileName)
}

func fileSum(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(errors.ErrCodeInternal, err, "failed to read %s for checksum", path)
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}
