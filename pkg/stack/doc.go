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

// Package stack turns the registered components into a plan: the enabled
// components in a dependency respecting apply order, grouped into waves.
//
// Dependencies may only point at the same or an earlier stage. Within those
// constraints components are ordered by stage and then by name, so the same
// configuration always renders the same deploy script.
package stack
