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

// Package registration accepts proposed listings, proves their endpoint is
// reachable under the claimed secret, and writes them into the registry.
// A listing is never visible before it is verified.
package registration

import (
	"context"
	"net/netip"
	"time"

	"github.com/google/uuid"

	"github.com/r5valkyrie/master-server-sub000/master/registry"
	"github.com/r5valkyrie/master-server-sub000/master/verifier"
	"github.com/r5valkyrie/master-server-sub000/pkg/log"
	"github.com/r5valkyrie/master-server-sub000/pkg/private/serrors"
)

const (
	// DefaultVerifyTimeout bounds a single verification attempt.
	DefaultVerifyTimeout = 800 * time.Millisecond
	// DefaultListingTTL is the sliding expiry window of a listing.
	DefaultListingTTL = 30 * time.Second
)

// ErrInvalid is the cause of all field validation failures. Validation
// happens before any network I/O.
var ErrInvalid = serrors.New("invalid listing")

// ErrVerifyTimeout is returned when the endpoint did not answer the
// challenge in time. It is distinct from other failures so that operators
// can diagnose firewall and NAT problems.
var ErrVerifyTimeout = serrors.New("verification timed out, check your ports")

// Store is the registry the handler writes verified listings into.
type Store interface {
	Put(ctx context.Context, l registry.Listing, ttl time.Duration) error
	GetByEndpoint(ctx context.Context, endpoint netip.AddrPort) (registry.Listing, bool, error)
	GetByToken(ctx context.Context, token string) (registry.Listing, bool, error)
}

// Request is a proposed listing as submitted by a game server. The IP is
// resolved by the transport layer, everything else is self-reported.
type Request struct {
	IP           netip.Addr
	Port         int
	Name         string
	Description  string
	Map          string
	Playlist     string
	PlayerCount  int
	MaxPlayers   int
	Version      string
	Checksum     string
	Region       string
	Hidden       bool
	Password     string
	Token        string
	Key          string // base64-encoded shared secret
	RequiredMods []string
	OptionalMods []string
}

// Response reports the registered endpoint and, for hidden listings, the
// stable owner token.
type Response struct {
	Endpoint netip.AddrPort
	Token    string
}

// Registrar drives verification attempts and registry writes.
type Registrar struct {
	Store Store
	// Timeout bounds the verification race; DefaultVerifyTimeout if zero.
	Timeout time.Duration
	// TTL is the listing expiry window; DefaultListingTTL if zero.
	TTL time.Duration
	// Metrics may be nil.
	Metrics *Metrics
}

// Register performs exactly one verification attempt for the proposed
// listing and, on success, writes or refreshes the registry entry.
// Repeating a successful registration before expiry refreshes the TTL and
// overwrites the mutable fields; the endpoint is the key, so no duplicate
// is created.
func (r *Registrar) Register(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	l, err := validate(req)
	if err != nil {
		r.Metrics.result(resultInvalid)
		return Response{}, err
	}

	sess, err := verifier.Start(req.IP, req.Port, l.Secret)
	if err != nil {
		r.Metrics.result(resultError)
		return Response{}, err
	}
	defer sess.Close()

	timer := time.NewTimer(r.timeout())
	defer timer.Stop()
	select {
	case value := <-sess.Verified():
		log.FromCtx(ctx).Debug("Endpoint verified",
			"endpoint", l.Endpoint, "challenge", value, "elapsed", time.Since(start))
	case <-timer.C:
		r.Metrics.result(resultTimeout)
		return Response{}, serrors.WithCtx(ErrVerifyTimeout, "endpoint", l.Endpoint)
	case <-ctx.Done():
		r.Metrics.result(resultError)
		return Response{}, ctx.Err()
	}
	// The socket is released by the deferred Close in every branch; a
	// response arriving after the timeout is discarded with it.

	if l.Hidden {
		token, err := r.resolveToken(ctx, req.Token, l.Endpoint)
		if err != nil {
			r.Metrics.result(resultStoreError)
			return Response{}, err
		}
		l.Token = token
	}
	if err := r.Store.Put(ctx, l, r.ttl()); err != nil {
		r.Metrics.result(resultStoreError)
		return Response{}, err
	}
	r.Metrics.result(resultOk)
	r.Metrics.observeDuration(time.Since(start))
	return Response{Endpoint: l.Endpoint, Token: l.Token}, nil
}

// resolveToken preserves the stable token of a hidden listing across
// re-registrations: a declared token that resolves to the same endpoint
// wins, then the token of the existing entry, then a freshly minted one.
func (r *Registrar) resolveToken(
	ctx context.Context,
	declared string,
	endpoint netip.AddrPort,
) (string, error) {

	if declared != "" {
		existing, ok, err := r.Store.GetByToken(ctx, declared)
		if err != nil {
			return "", err
		}
		if ok && existing.Endpoint == endpoint {
			return declared, nil
		}
	}
	existing, ok, err := r.Store.GetByEndpoint(ctx, endpoint)
	if err != nil {
		return "", err
	}
	if ok && existing.Token != "" {
		return existing.Token, nil
	}
	return uuid.NewString(), nil
}

func (r *Registrar) timeout() time.Duration {
	if r.Timeout != 0 {
		return r.Timeout
	}
	return DefaultVerifyTimeout
}

func (r *Registrar) ttl() time.Duration {
	if r.TTL != 0 {
		return r.TTL
	}
	return DefaultListingTTL
}
