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

// Package presence observes the registry and turns the passive expiry of
// listings into explicit join and leave events. The tracker diffs the
// current key set against the previously observed one on every tick; two
// slower tasks emit aggregate snapshots. All tasks only read the registry
// and tolerate it being transiently unavailable by keeping their previous
// state.
package presence

import (
	"context"
	"net/netip"

	"github.com/r5valkyrie/master-server-sub000/master/registry"
	"github.com/r5valkyrie/master-server-sub000/pkg/log"
)

// Store is the read-only view of the registry the tracker needs.
type Store interface {
	AllKeys(ctx context.Context) (map[netip.AddrPort]struct{}, error)
	GetByEndpoint(ctx context.Context, endpoint netip.AddrPort) (registry.Listing, bool, error)
	GetAll(ctx context.Context, includeHidden bool) ([]registry.Listing, error)
}

// Notifier receives presence events. Delivery (Discord and friends) is an
// external collaborator; implementations must be non-blocking enough to
// not delay the next tick, or do their own buffering.
type Notifier interface {
	// ServerOnline is called once for every key that joined the registry.
	ServerOnline(ctx context.Context, l registry.Listing)
	// ServerOffline is called once for every key that left, with the
	// last-known identity of the listing.
	ServerOffline(ctx context.Context, endpoint netip.AddrPort, name string)
	// Snapshot receives the periodic aggregate count totals.
	Snapshot(ctx context.Context, servers, players int)
	// Summary receives the periodic rendered listing summary.
	Summary(ctx context.Context, listings []registry.Listing)
}

// LogNotifier is a Notifier that writes presence events to the log. It is
// the default when no delivery collaborator is wired up.
type LogNotifier struct{}

func (LogNotifier) ServerOnline(ctx context.Context, l registry.Listing) {
	log.FromCtx(ctx).Info("Server online",
		"endpoint", l.Endpoint, "name", l.Name, "map", l.Map, "playlist", l.Playlist)
}

func (LogNotifier) ServerOffline(ctx context.Context, endpoint netip.AddrPort, name string) {
	log.FromCtx(ctx).Info("Server offline", "endpoint", endpoint, "name", name)
}

func (LogNotifier) Snapshot(ctx context.Context, servers, players int) {
	log.FromCtx(ctx).Info("Registry snapshot", "servers", servers, "players", players)
}

func (LogNotifier) Summary(ctx context.Context, listings []registry.Listing) {
	log.FromCtx(ctx).Info("Registry summary", "listing", Render(listings))
}
