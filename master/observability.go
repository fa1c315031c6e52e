// Copyright 2026 R5Valkyrie
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package master groups the wiring shared by the master server binary.
package master

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/r5valkyrie/master-server-sub000/master/presence"
	"github.com/r5valkyrie/master-server-sub000/master/registration"
)

// Metrics bundles the metrics of all master server components against one
// registry.
type Metrics struct {
	Registration *registration.Metrics
	Presence     *presence.Metrics

	registry *prometheus.Registry
}

// NewMetrics creates a fresh registry with the process collectors and all
// component metrics registered.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return &Metrics{
		Registration: registration.NewMetrics(registry),
		Presence:     presence.NewMetrics(registry),
		registry:     registry,
	}
}

// Handler exposes the registry in prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
