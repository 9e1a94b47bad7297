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

// Package errors defines the structured error type returned by homelab
// packages.
//
// Each error carries a code that the CLI uses to report failures, for
// example INVALID_CONFIG for a cluster without server nodes or NOT_FOUND
// for a Home Assistant directory lacking configuration.yaml.
//
// Example usage:
//
//	err := errors.WrapWithContext(
//	    errors.ErrCodeRemoteExec,
//	    "failed to install k3s",
//	    cause,
//	    map[string]any{
//	        "node": node.Name,
//	    },
//	)
package errors
