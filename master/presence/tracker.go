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

import (
	"context"
	"fmt"
	"net/netip"
	"sort"
	"strings"

	"github.com/r5valkyrie/master-server-sub000/master/registry"
	"github.com/r5valkyrie/master-server-sub000/pkg/log"
)

// Tracker is the periodic diffing task. It is driven by a periodic.Runner
// and must not be run concurrently with itself; the runner guarantees
// that.
type Tracker struct {
	Store    Store
	Notifier Notifier
	Metrics  *Metrics

	// previous maps the last observed keys to their last-known names. It
	// is replaced wholesale at the end of a successful tick, never mutated
	// incrementally, so a failed tick leaves the last consistent snapshot
	// in place.
	previous map[netip.AddrPort]string
}

func (t *Tracker) Name() string { return "presence_diff" }

// Run performs one diffing tick. A store error skips the tick: the
// previous set stays untouched and the diff is retried on the next
// interval.
func (t *Tracker) Run(ctx context.Context) {
	logger := log.FromCtx(ctx)
	current, err := t.Store.AllKeys(ctx)
	if err != nil {
		logger.Info("Registry unavailable, skipping tick", "err", err)
		return
	}
	next := make(map[netip.AddrPort]string, len(current))

	for endpoint := range current {
		if name, ok := t.previous[endpoint]; ok {
			next[endpoint] = name
			continue
		}
		// Joined since the last tick. A key only enters next together with
		// its online event; on a fetch failure it is left out so the join is
		// retried on the next tick instead of being swallowed.
		l, ok, err := t.Store.GetByEndpoint(ctx, endpoint)
		switch {
		case err != nil:
			logger.Info("Fetching joined listing failed", "endpoint", endpoint, "err", err)
		case ok:
			next[endpoint] = l.Name
			t.Notifier.ServerOnline(ctx, l)
			t.Metrics.event(eventOnline)
		default:
			// Expired between the key scan and the fetch; it never joined.
		}
	}
	for endpoint, name := range t.previous {
		if _, ok := current[endpoint]; !ok {
			t.Notifier.ServerOffline(ctx, endpoint, name)
			t.Metrics.event(eventOffline)
		}
	}

	t.previous = next
}

// CountTask periodically reports aggregate totals.
type CountTask struct {
	Store    Store
	Notifier Notifier
}

func (t *CountTask) Name() string { return "presence_counts" }

func (t *CountTask) Run(ctx context.Context) {
	listings, err := t.Store.GetAll(ctx, true)
	if err != nil {
		log.FromCtx(ctx).Info("Registry unavailable, skipping tick", "err", err)
		return
	}
	players := 0
	for _, l := range listings {
		players += l.PlayerCount
	}
	t.Notifier.Snapshot(ctx, len(listings), players)
}

// SummaryTask periodically reports the rendered public listing.
type SummaryTask struct {
	Store    Store
	Notifier Notifier
}

func (t *SummaryTask) Name() string { return "presence_summary" }

func (t *SummaryTask) Run(ctx context.Context) {
	listings, err := t.Store.GetAll(ctx, false)
	if err != nil {
		log.FromCtx(ctx).Info("Registry unavailable, skipping tick", "err", err)
		return
	}
	t.Notifier.Summary(ctx, listings)
}

// Render produces the human-readable one-line-per-server summary handed
// to the notification collaborator.
func Render(listings []registry.Listing) string {
	if len(listings) == 0 {
		return "no servers online"
	}
	sorted := append([]registry.Listing{}, listings...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	var b strings.Builder
	for i, l := range sorted {
		if i != 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s | %s | %s | %d/%d",
			l.Name, l.Map, l.Playlist, l.PlayerCount, l.MaxPlayers)
	}
	return b.String()
}
