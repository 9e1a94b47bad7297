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

package certmanager

func resources(reqCPU, reqMem, limCPU, limMem string) map[string]any {
	return map[string]any{
		"requests": map[string]any{"cpu": reqCPU, "memory": reqMem},
		"limits":   map[string]any{"cpu": limCPU, "memory": limMem},
	}
}

func helmValues() map[string]any {
	return map[string]any{
		"crds":      map[string]any{"enabled": true},
		"resources": resources("5m", "32Mi", "50m", "64Mi"),
		"cainjector": map[string]any{
			"resources": resources("50m", "64Mi", "100m", "128Mi"),
		},
		"webhook": map[string]any{
			"resources": resources("5m", "32Mi", "50m", "64Mi"),
		},
	}
}
