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

// Package registry stores verified listings in a volatile, TTL-capable
// key-value store. Each listing lives in a Redis hash keyed by its
// endpoint; expiry is passive through the key TTL, so a listing that is
// not refreshed simply stops being visible. Hidden listings additionally
// mirror an opaque token key so their owner can re-find them without the
// entry being enumerable.
package registry

import (
	"context"
	"errors"
	"net/netip"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/r5valkyrie/master-server-sub000/pkg/log"
	"github.com/r5valkyrie/master-server-sub000/pkg/private/serrors"
)

const (
	serverKeyPrefix = "servers:"
	tokenKeyPrefix  = "token:"
	scanBatchSize   = 64
)

// Store is the registry of verified listings.
type Store struct {
	client redis.UniversalClient
}

// NewStore creates a store on top of the given Redis client.
func NewStore(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

// Put upserts the listing under its endpoint key and resets the TTL. For
// hidden listings with a token, the token mirror key is refreshed in the
// same transaction. Errors are hard failures; the caller must not treat
// the listing as registered.
func (s *Store) Put(ctx context.Context, l Listing, ttl time.Duration) error {
	fields, err := l.fieldMap()
	if err != nil {
		return err
	}
	key := serverKey(l.Endpoint)
	pipe := s.client.TxPipeline()
	// Del before HSet so fields removed from the listing do not linger.
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, ttl)
	if l.Hidden && l.Token != "" {
		pipe.Set(ctx, tokenKeyPrefix+l.Token, l.Endpoint.String(), ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return serrors.WrapStr("writing listing", err, "endpoint", l.Endpoint)
	}
	return nil
}

// GetByEndpoint returns the non-expired listing stored under the given
// endpoint, or false if there is none.
func (s *Store) GetByEndpoint(ctx context.Context, endpoint netip.AddrPort) (Listing, bool, error) {
	fields, err := s.client.HGetAll(ctx, serverKey(endpoint)).Result()
	if err != nil {
		return Listing{}, false, serrors.WrapStr("reading listing", err, "endpoint", endpoint)
	}
	if len(fields) == 0 {
		return Listing{}, false, nil
	}
	l, err := listingFromMap(endpoint, fields)
	if err != nil {
		return Listing{}, false, err
	}
	return l, true, nil
}

// GetByToken resolves a hidden listing through its owner token.
func (s *Store) GetByToken(ctx context.Context, token string) (Listing, bool, error) {
	epStr, err := s.client.Get(ctx, tokenKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return Listing{}, false, nil
	}
	if err != nil {
		return Listing{}, false, serrors.WrapStr("resolving token", err)
	}
	endpoint, err := netip.ParseAddrPort(epStr)
	if err != nil {
		return Listing{}, false, serrors.WrapStr("parsing token target", err)
	}
	return s.GetByEndpoint(ctx, endpoint)
}

// GetAll enumerates all non-expired listings. Hidden listings are only
// included when includeHidden is set. Entries that expire between the key
// scan and the fetch are skipped.
func (s *Store) GetAll(ctx context.Context, includeHidden bool) ([]Listing, error) {
	keys, err := s.scanKeys(ctx)
	if err != nil {
		return nil, err
	}
	listings := make([]Listing, 0, len(keys))
	for _, endpoint := range keys {
		l, ok, err := s.GetByEndpoint(ctx, endpoint)
		if err != nil {
			log.FromCtx(ctx).Info("Skipping unreadable listing",
				"endpoint", endpoint, "err", err)
			continue
		}
		if !ok || (l.Hidden && !includeHidden) {
			continue
		}
		listings = append(listings, l)
	}
	return listings, nil
}

// AllKeys returns the endpoint keys of all currently non-expired entries.
func (s *Store) AllKeys(ctx context.Context) (map[netip.AddrPort]struct{}, error) {
	keys, err := s.scanKeys(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[netip.AddrPort]struct{}, len(keys))
	for _, endpoint := range keys {
		set[endpoint] = struct{}{}
	}
	return set, nil
}

// Delete removes a listing and its token mirror. This is the owner delist
// path; expiry never calls it.
func (s *Store) Delete(ctx context.Context, endpoint netip.AddrPort) error {
	l, ok, err := s.GetByEndpoint(ctx, endpoint)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, serverKey(endpoint))
	if l.Token != "" {
		pipe.Del(ctx, tokenKeyPrefix+l.Token)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return serrors.WrapStr("deleting listing", err, "endpoint", endpoint)
	}
	return nil
}

func (s *Store) scanKeys(ctx context.Context) ([]netip.AddrPort, error) {
	var endpoints []netip.AddrPort
	iter := s.client.Scan(ctx, 0, serverKeyPrefix+"*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		endpoint, err := parseServerKey(iter.Val())
		if err != nil {
			log.FromCtx(ctx).Info("Skipping malformed registry key",
				"key", iter.Val(), "err", err)
			continue
		}
		endpoints = append(endpoints, endpoint)
	}
	if err := iter.Err(); err != nil {
		return nil, serrors.WrapStr("scanning registry keys", err)
	}
	return endpoints, nil
}

func serverKey(endpoint netip.AddrPort) string {
	return serverKeyPrefix + endpoint.String()
}

func parseServerKey(key string) (netip.AddrPort, error) {
	raw, ok := strings.CutPrefix(key, serverKeyPrefix)
	if !ok {
		return netip.AddrPort{}, serrors.New("missing key prefix", "key", key)
	}
	return netip.ParseAddrPort(raw)
}
