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

package registration

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result label values of the registrations counter.
const (
	resultOk         = "ok"
	resultInvalid    = "invalid"
	resultTimeout    = "timeout"
	resultStoreError = "store_error"
	resultError      = "error"
)

// Metrics can be used to expose registration metrics. Each field may be
// set individually.
type Metrics struct {
	// Registrations counts registration attempts by result.
	Registrations *prometheus.CounterVec
	// VerifyDuration observes the wall-clock time of successful attempts.
	VerifyDuration prometheus.Histogram
}

// NewMetrics creates the registration metrics registered with the given
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ms_registrations_total",
			Help: "The amount of registration attempts, by result.",
		}, []string{"result"}),
		VerifyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ms_registration_duration_seconds",
			Help:    "Time to verify and store a successful registration.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.Registrations, m.VerifyDuration)
	return m
}

func (m *Metrics) result(result string) {
	if m == nil || m.Registrations == nil {
		return
	}
	m.Registrations.WithLabelValues(result).Inc()
}

func (m *Metrics) observeDuration(d time.Duration) {
	if m == nil || m.VerifyDuration == nil {
		return
	}
	m.VerifyDuration.Observe(d.Seconds())
}
