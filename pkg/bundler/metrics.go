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

package bundler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	renderDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "homelab_render_duration_seconds",
			Help:    "Time taken to render the complete stack",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
	)

	componentsRendered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homelab_components_rendered_total",
			Help: "Total number of component bundles rendered",
		},
		[]string{"component"},
	)

	componentRenderFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homelab_component_render_failures_total",
			Help: "Total number of component bundles that failed to render",
		},
		[]string{"component"},
	)
)

func recordComponentRendered(name string) {
	componentsRendered.WithLabelValues(name).Inc()
}

func recordComponentFailure(name string) {
	componentRenderFailures.WithLabelValues(name).Inc()
}
