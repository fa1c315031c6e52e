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

package presence

import "github.com/prometheus/client_golang/prometheus"

const (
	eventOnline  = "online"
	eventOffline = "offline"
)

// Metrics can be used to expose presence metrics. May be nil.
type Metrics struct {
	// Events counts emitted presence events by type.
	Events *prometheus.CounterVec
}

// NewMetrics creates the presence metrics registered with the given
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ms_presence_events_total",
			Help: "The amount of emitted presence events, by event type.",
		}, []string{"event_type"}),
	}
	reg.MustRegister(m.Events)
	return m
}

func (m *Metrics) event(eventType string) {
	if m == nil || m.Events == nil {
		return
	}
	m.Events.WithLabelValues(eventType).Inc()
}
