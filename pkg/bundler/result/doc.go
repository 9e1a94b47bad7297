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

// Package result tracks what a render produced.
//
// A Result describes one component bundle: the files written, their total
// size, how long rendering took and any non-fatal errors. Output aggregates
// the results of a whole stack render together with the deployer's
// instructions.
//
//	out := &result.Output{RunID: runID, OutputDir: dir}
//	out.Add(res)
//	fmt.Println(out.Summary())
package result
