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

// Package longhorn renders the longhorn distributed block storage chart and
// exposes the longhorn UI through the istio gateway.
//
// The package registers two components. longhorn installs the chart in the
// storage stage so volumes exist before anything claims them. longhorn-ui
// adds the gateway routes in the network stage, once istio is up. It follows
// the enabled state of longhorn unless set under components.
package longhorn
