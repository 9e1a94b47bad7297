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

package remote

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var remoteCommands = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "homelab_remote_commands_total",
		Help: "Total number of commands run on nodes over SSH",
	},
	[]string{"node", "result"},
)

func recordCommand(node string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	remoteCommands.WithLabelValues(node, result).Inc()
}
