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

package presence_test

import (
	"context"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/r5valkyrie/master-server-sub000/master/presence"
	"github.com/r5valkyrie/master-server-sub000/master/registry"
	"github.com/r5valkyrie/master-server-sub000/pkg/private/serrors"
)

type fakeStore struct {
	listings map[netip.AddrPort]registry.Listing
	err      error
	fetchErr map[netip.AddrPort]error
}

func (s *fakeStore) AllKeys(context.Context) (map[netip.AddrPort]struct{}, error) {
	if s.err != nil {
		return nil, s.err
	}
	keys := make(map[netip.AddrPort]struct{}, len(s.listings))
	for endpoint := range s.listings {
		keys[endpoint] = struct{}{}
	}
	return keys, nil
}

func (s *fakeStore) GetByEndpoint(
	_ context.Context,
	endpoint netip.AddrPort,
) (registry.Listing, bool, error) {

	if s.err != nil {
		return registry.Listing{}, false, s.err
	}
	if err := s.fetchErr[endpoint]; err != nil {
		return registry.Listing{}, false, err
	}
	l, ok := s.listings[endpoint]
	return l, ok, nil
}

func (s *fakeStore) GetAll(_ context.Context, includeHidden bool) ([]registry.Listing, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []registry.Listing
	for _, l := range s.listings {
		if l.Hidden && !includeHidden {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (s *fakeStore) set(listings ...registry.Listing) {
	s.listings = make(map[netip.AddrPort]registry.Listing)
	for _, l := range listings {
		s.listings[l.Endpoint] = l
	}
}

type event struct {
	kind     string
	endpoint netip.AddrPort
	name     string
}

type recordingNotifier struct {
	events  []event
	servers int
	players int
	summary string
	snapped bool
	summed  bool
}

func (n *recordingNotifier) ServerOnline(_ context.Context, l registry.Listing) {
	n.events = append(n.events, event{kind: "online", endpoint: l.Endpoint, name: l.Name})
}

func (n *recordingNotifier) ServerOffline(_ context.Context, ep netip.AddrPort, name string) {
	n.events = append(n.events, event{kind: "offline", endpoint: ep, name: name})
}

func (n *recordingNotifier) Snapshot(_ context.Context, servers, players int) {
	n.snapped, n.servers, n.players = true, servers, players
}

func (n *recordingNotifier) Summary(_ context.Context, listings []registry.Listing) {
	n.summed, n.summary = true, presence.Render(listings)
}

func listing(endpoint, name string) registry.Listing {
	return registry.Listing{
		Endpoint:    netip.MustParseAddrPort(endpoint),
		Name:        name,
		Map:         "mp_rr_canyonlands",
		Playlist:    "survival",
		PlayerCount: 5,
		MaxPlayers:  60,
	}
}

func TestDiff(t *testing.T) {
	a := listing("192.0.2.1:37015", "alpha")
	b := listing("192.0.2.2:37015", "bravo")
	c := listing("192.0.2.3:37015", "charlie")

	store := &fakeStore{}
	notifier := &recordingNotifier{}
	tracker := &presence.Tracker{Store: store, Notifier: notifier}
	ctx := context.Background()

	// First tick from an empty previous set: everything joins.
	store.set(a, b)
	tracker.Run(ctx)
	assert.ElementsMatch(t, []event{
		{kind: "online", endpoint: a.Endpoint, name: "alpha"},
		{kind: "online", endpoint: b.Endpoint, name: "bravo"},
	}, notifier.events)

	// {a,b} -> {b,c}: exactly one join for c and one leave for a, with
	// a's last-known identity.
	notifier.events = nil
	store.set(b, c)
	tracker.Run(ctx)
	assert.ElementsMatch(t, []event{
		{kind: "online", endpoint: c.Endpoint, name: "charlie"},
		{kind: "offline", endpoint: a.Endpoint, name: "alpha"},
	}, notifier.events)

	// Steady state: no events.
	notifier.events = nil
	tracker.Run(ctx)
	assert.Empty(t, notifier.events)
}

func TestStoreErrorKeepsPreviousSet(t *testing.T) {
	a := listing("192.0.2.1:37015", "alpha")
	store := &fakeStore{}
	notifier := &recordingNotifier{}
	tracker := &presence.Tracker{Store: store, Notifier: notifier}
	ctx := context.Background()

	store.set(a)
	tracker.Run(ctx)
	notifier.events = nil

	// Outage: the tick is skipped, no spurious leave events.
	store.err = serrors.New("connection refused")
	tracker.Run(ctx)
	assert.Empty(t, notifier.events)

	// Store recovers with the same content: still no events.
	store.err = nil
	tracker.Run(ctx)
	assert.Empty(t, notifier.events)
}

func TestJoinRetriedAfterFetchFailure(t *testing.T) {
	a := listing("192.0.2.1:37015", "alpha")
	store := &fakeStore{}
	notifier := &recordingNotifier{}
	tracker := &presence.Tracker{Store: store, Notifier: notifier}
	ctx := context.Background()

	// The key scan sees a, but fetching its listing fails: no event yet.
	store.set(a)
	store.fetchErr = map[netip.AddrPort]error{a.Endpoint: serrors.New("connection reset")}
	tracker.Run(ctx)
	assert.Empty(t, notifier.events)

	// The fetch recovers: the join is emitted on the next tick, not lost.
	store.fetchErr = nil
	tracker.Run(ctx)
	assert.Equal(t, []event{
		{kind: "online", endpoint: a.Endpoint, name: "alpha"},
	}, notifier.events)

	// Steady state afterwards, no duplicate join and no phantom leave.
	notifier.events = nil
	tracker.Run(ctx)
	assert.Empty(t, notifier.events)
}

func TestCountTask(t *testing.T) {
	a := listing("192.0.2.1:37015", "alpha")
	hidden := listing("192.0.2.2:37015", "bravo")
	hidden.Hidden = true

	store := &fakeStore{}
	store.set(a, hidden)
	notifier := &recordingNotifier{}
	task := &presence.CountTask{Store: store, Notifier: notifier}
	task.Run(context.Background())

	assert.True(t, notifier.snapped)
	assert.Equal(t, 2, notifier.servers, "count totals include hidden servers")
	assert.Equal(t, 10, notifier.players)
}

func TestSummaryTask(t *testing.T) {
	a := listing("192.0.2.1:37015", "alpha")
	hidden := listing("192.0.2.2:37015", "bravo")
	hidden.Hidden = true

	store := &fakeStore{}
	store.set(a, hidden)
	notifier := &recordingNotifier{}
	task := &presence.SummaryTask{Store: store, Notifier: notifier}
	task.Run(context.Background())

	assert.True(t, notifier.summed)
	assert.Contains(t, notifier.summary, "alpha")
	assert.NotContains(t, notifier.summary, "bravo", "summaries only cover public listings")
}

func TestRenderEmpty(t *testing.T) {
	assert.Equal(t, "no servers online", presence.Render(nil))
}
