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

// Package logging configures structured slog output for the homelab CLI.
//
// Records are JSON on stderr and always carry the module and version
// attributes. The level comes from --log-level or the LOG_LEVEL environment
// variable (debug, info, warn|warning, error; default info). Debug records
// include the source location.
//
// Usage:
//
//	logging.SetDefaultStructuredLoggerWithLevel("homelab", version, "debug")
//	slog.Info("bootstrapping node", "node", "rp0")
//
// Example record:
//
//	{
//	    "time": "2025-01-15T10:30:00.123Z",
//	    "level": "INFO",
//	    "msg": "bundle generated",
//	    "module": "homelab",
//	    "version": "v0.1.0",
//	    "files": 84
//	}
//
// Packages log through slog directly; pkg/cli installs the default logger
// before any command runs.
package logging
