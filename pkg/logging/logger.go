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

package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
)

const (
	// EnvLogLevel names the environment variable holding the log level.
	EnvLogLevel = "LOG_LEVEL"

	defaultLevel = slog.LevelInfo
)

// ParseLogLevel converts a level name to a slog.Level.
// Unknown or empty values map to INFO.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return defaultLevel
	}
}

// NewStructuredLogger returns a JSON logger writing to stderr with module and
// version attributes. Debug level adds source locations.
func NewStructuredLogger(module, version, level string) *slog.Logger {
	return newLogger(os.Stderr, module, version, ParseLogLevel(level))
}

func newLogger(w io.Writer, module, version string, lvl slog.Level) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: lvl <= slog.LevelDebug,
		Level:     lvl,
	})
	return slog.New(h).With(
		slog.String("module", module),
		slog.String("version", version),
	)
}

// SetDefaultStructuredLogger installs the structured logger as the slog
// default, reading the level from LOG_LEVEL.
func SetDefaultStructuredLogger(module, version string) {
	SetDefaultStructuredLoggerWithLevel(module, version, os.Getenv(EnvLogLevel))
}

// SetDefaultStructuredLoggerWithLevel installs the structured logger as the
// slog default with an explicit level.
func SetDefaultStructuredLoggerWithLevel(module, version, level string) {
	slog.SetDefault(NewStructuredLogger(module, version, level))
}

// NewLogLogger adapts the default slog logger to a standard library logger
// for libraries that only accept *log.Logger.
func NewLogLogger(level slog.Level, addSource bool) *log.Logger {
	h := slog.Default().Handler()
	if addSource {
		h = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{AddSource: true, Level: level})
	}
	return slog.NewLogLogger(h, level)
}
