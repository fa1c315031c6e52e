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

package registration_test

import (
	"context"
	"encoding/base64"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r5valkyrie/master-server-sub000/master/registration"
	"github.com/r5valkyrie/master-server-sub000/master/registry"
	"github.com/r5valkyrie/master-server-sub000/master/verifier/verifiertest"
)

var (
	testSecret    = []byte("0123456789abcdef")
	testSecretB64 = base64.StdEncoding.EncodeToString(testSecret)
)

func testRegistrar(t *testing.T) (*registration.Registrar, *registry.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	store := registry.NewStore(client)
	return &registration.Registrar{Store: store}, store, mr
}

func validRequest(target netip.AddrPort) registration.Request {
	return registration.Request{
		IP:           target.Addr(),
		Port:         int(target.Port()),
		Name:         "Worlds Edge 24/7",
		Description:  "vanilla rotation",
		Map:          "mp_rr_desertlands",
		Playlist:     "survival",
		PlayerCount:  3,
		MaxPlayers:   60,
		Version:      "1.3.0",
		Checksum:     "2864434397",
		Region:       "eu",
		Key:          testSecretB64,
		RequiredMods: []string{"core", " core ", "", "ranked"},
		OptionalMods: []string{"skins"},
	}
}

func TestRegisterSuccess(t *testing.T) {
	r, store, _ := testRegistrar(t)
	target := verifiertest.Start(t, testSecret, 42)
	req := validRequest(target)

	resp, err := r.Register(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, registry.EndpointOf(target.Addr(), target.Port()), resp.Endpoint)
	assert.Empty(t, resp.Token, "public listings have no token")

	got, ok, err := store.GetByEndpoint(context.Background(), resp.Endpoint)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, req.Name, got.Name)
	assert.Equal(t, []string{"core", "ranked"}, got.RequiredMods)
	assert.Equal(t, testSecret, got.Secret)
	assert.False(t, got.HasPassword)
}

func TestRegisterTimeout(t *testing.T) {
	r, store, _ := testRegistrar(t)
	r.Timeout = 150 * time.Millisecond
	target := verifiertest.StartSilent(t)

	start := time.Now()
	_, err := r.Register(context.Background(), validRequest(target))
	assert.ErrorIs(t, err, registration.ErrVerifyTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)

	_, ok, err := store.GetByEndpoint(context.Background(),
		registry.EndpointOf(target.Addr(), target.Port()))
	require.NoError(t, err)
	assert.False(t, ok, "a timed-out registration must not be visible")
}

func TestRegisterIdempotent(t *testing.T) {
	r, store, mr := testRegistrar(t)
	target := verifiertest.Start(t, testSecret, 42)
	req := validRequest(target)

	_, err := r.Register(context.Background(), req)
	require.NoError(t, err)
	mr.FastForward(20 * time.Second)

	req.PlayerCount = 17
	_, err = r.Register(context.Background(), req)
	require.NoError(t, err)
	mr.FastForward(20 * time.Second)

	all, err := store.GetAll(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, all, 1, "re-registration must not duplicate the entry")
	assert.Equal(t, 17, all[0].PlayerCount, "mutable fields are overwritten")
}

func TestHiddenTokenStableAcrossRenewals(t *testing.T) {
	r, store, _ := testRegistrar(t)
	target := verifiertest.Start(t, testSecret, 42)
	req := validRequest(target)
	req.Hidden = true

	first, err := r.Register(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, first.Token)

	// Renewal without declaring the token still keeps it.
	second, err := r.Register(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.Token, second.Token)

	// Renewal declaring the token keeps it too.
	req.Token = first.Token
	third, err := r.Register(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.Token, third.Token)

	got, ok, err := store.GetByToken(context.Background(), first.Token)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first.Endpoint, got.Endpoint)

	visible, err := store.GetAll(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, visible, "hidden listings are not enumerable")
}

func TestPublicListingDropsToken(t *testing.T) {
	r, store, _ := testRegistrar(t)
	target := verifiertest.Start(t, testSecret, 42)
	req := validRequest(target)
	req.Token = "declared-but-public"

	resp, err := r.Register(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, resp.Token)

	got, ok, err := store.GetByEndpoint(context.Background(), resp.Endpoint)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, got.Token, "public listings never store a token")
}

func TestForeignTokenNotAdopted(t *testing.T) {
	r, _, _ := testRegistrar(t)

	// A hidden listing on one endpoint.
	targetA := verifiertest.Start(t, testSecret, 1)
	reqA := validRequest(targetA)
	reqA.Hidden = true
	respA, err := r.Register(context.Background(), reqA)
	require.NoError(t, err)

	// Another endpoint declaring A's token must get its own.
	targetB := verifiertest.Start(t, testSecret, 2)
	reqB := validRequest(targetB)
	reqB.Hidden = true
	reqB.Token = respA.Token
	respB, err := r.Register(context.Background(), reqB)
	require.NoError(t, err)
	assert.NotEqual(t, respA.Token, respB.Token)
}

func TestRegisterStoreOutage(t *testing.T) {
	r, _, mr := testRegistrar(t)
	target := verifiertest.Start(t, testSecret, 42)

	mr.Close()
	_, err := r.Register(context.Background(), validRequest(target))
	require.Error(t, err)
	assert.NotErrorIs(t, err, registration.ErrVerifyTimeout)
	assert.NotErrorIs(t, err, registration.ErrInvalid)
}

func TestRegisterContextCancelled(t *testing.T) {
	r, _, _ := testRegistrar(t)
	r.Timeout = 5 * time.Second
	target := verifiertest.StartSilent(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Register(ctx, validRequest(target))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestValidation(t *testing.T) {
	r, _, _ := testRegistrar(t)
	target := netip.MustParseAddrPort("127.0.0.1:37015")

	testCases := map[string]func(*registration.Request){
		"missing name":        func(r *registration.Request) { r.Name = "" },
		"long name":           func(r *registration.Request) { r.Name = strings.Repeat("n", 65) },
		"long description":    func(r *registration.Request) { r.Description = strings.Repeat("d", 513) },
		"missing map":         func(r *registration.Request) { r.Map = "" },
		"missing playlist":    func(r *registration.Request) { r.Playlist = "" },
		"playlist charset":    func(r *registration.Request) { r.Playlist = "no spaces!" },
		"port zero":           func(r *registration.Request) { r.Port = 0 },
		"port too high":       func(r *registration.Request) { r.Port = 65536 },
		"port negative":       func(r *registration.Request) { r.Port = -1 },
		"max players zero":    func(r *registration.Request) { r.MaxPlayers = 0 },
		"players over max":    func(r *registration.Request) { r.PlayerCount = 61 },
		"players negative":    func(r *registration.Request) { r.PlayerCount = -1 },
		"missing version":     func(r *registration.Request) { r.Version = "" },
		"missing checksum":    func(r *registration.Request) { r.Checksum = "" },
		"long password":       func(r *registration.Request) { r.Password = strings.Repeat("p", 65) },
		"key not base64":      func(r *registration.Request) { r.Key = "%%%" },
		"key wrong length":    func(r *registration.Request) { r.Key = "c2hvcnQ=" },
		"long mod identifier": func(r *registration.Request) { r.RequiredMods = []string{strings.Repeat("m", 129)} },
	}
	for name, mutate := range testCases {
		t.Run(name, func(t *testing.T) {
			req := validRequest(target)
			mutate(&req)
			_, err := r.Register(context.Background(), req)
			assert.ErrorIs(t, err, registration.ErrInvalid)
		})
	}
}

func TestPasswordImpliesFlag(t *testing.T) {
	r, store, _ := testRegistrar(t)
	target := verifiertest.Start(t, testSecret, 42)
	req := validRequest(target)
	req.Password = "hunter2"

	resp, err := r.Register(context.Background(), req)
	require.NoError(t, err)

	got, ok, err := store.GetByEndpoint(context.Background(), resp.Endpoint)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.HasPassword)
	assert.Equal(t, "hunter2", got.Password)
}
