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

package mgmtapi

import (
	"net/netip"
	"strconv"

	"github.com/r5valkyrie/master-server-sub000/master/registration"
	"github.com/r5valkyrie/master-server-sub000/master/registry"
)

// Error codes of the structured failure payload.
const (
	codeInvalid       = "invalid_request"
	codeVerifyTimeout = "verify_timeout"
	codeRegistryDown  = "registry_unavailable"
	codeRateLimited   = "rate_limited"
	codeNotFound      = "not_found"
)

type registerRequest struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Map          string   `json:"map"`
	Playlist     string   `json:"playlist"`
	PlayerCount  int      `json:"player_count"`
	MaxPlayers   int      `json:"max_players"`
	Version      string   `json:"version"`
	Checksum     string   `json:"checksum"`
	Region       string   `json:"region"`
	Hidden       bool     `json:"hidden"`
	Password     string   `json:"password"`
	Token        string   `json:"token"`
	Key          string   `json:"key"`
	Port         int      `json:"port"`
	RequiredMods []string `json:"required_mods"`
	OptionalMods []string `json:"optional_mods"`
}

func (b registerRequest) toRequest(ip netip.Addr) registration.Request {
	return registration.Request{
		IP:           ip,
		Port:         b.Port,
		Name:         b.Name,
		Description:  b.Description,
		Map:          b.Map,
		Playlist:     b.Playlist,
		PlayerCount:  b.PlayerCount,
		MaxPlayers:   b.MaxPlayers,
		Version:      b.Version,
		Checksum:     b.Checksum,
		Region:       b.Region,
		Hidden:       b.Hidden,
		Password:     b.Password,
		Token:        b.Token,
		Key:          b.Key,
		RequiredMods: b.RequiredMods,
		OptionalMods: b.OptionalMods,
	}
}

type registerResponse struct {
	Success bool   `json:"success"`
	IP      string `json:"ip"`
	Port    int    `json:"port"`
	Token   string `json:"token,omitempty"`
}

type errorResponse struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// listingView is the published form of a listing. The password, the
// shared secret, and the owner token of other people's servers are never
// part of it.
type listingView struct {
	IP           string   `json:"ip"`
	Port         int      `json:"port"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Map          string   `json:"map"`
	Playlist     string   `json:"playlist"`
	PlayerCount  int      `json:"player_count"`
	MaxPlayers   int      `json:"max_players"`
	HasPassword  bool     `json:"has_password"`
	RequiredMods []string `json:"required_mods"`
	OptionalMods []string `json:"optional_mods"`
	Version      string   `json:"version"`
	Checksum     string   `json:"checksum"`
	Region       string   `json:"region"`
}

func newListingView(l registry.Listing) listingView {
	return listingView{
		IP:           l.Endpoint.Addr().String(),
		Port:         int(l.Endpoint.Port()),
		Name:         l.Name,
		Description:  l.Description,
		Map:          l.Map,
		Playlist:     l.Playlist,
		PlayerCount:  l.PlayerCount,
		MaxPlayers:   l.MaxPlayers,
		HasPassword:  l.HasPassword,
		RequiredMods: l.RequiredMods,
		OptionalMods: l.OptionalMods,
		Version:      l.Version,
		Checksum:     l.Checksum,
		Region:       l.Region,
	}
}

// legacyListingView renders every scalar as its string form, for clients
// that predate typed fields.
type legacyListingView struct {
	IP           string   `json:"ip"`
	Port         string   `json:"port"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Map          string   `json:"map"`
	Playlist     string   `json:"playlist"`
	PlayerCount  string   `json:"player_count"`
	MaxPlayers   string   `json:"max_players"`
	HasPassword  string   `json:"has_password"`
	RequiredMods []string `json:"required_mods"`
	OptionalMods []string `json:"optional_mods"`
	Version      string   `json:"version"`
	Checksum     string   `json:"checksum"`
	Region       string   `json:"region"`
}

func newLegacyListingView(l registry.Listing) legacyListingView {
	return legacyListingView{
		IP:           l.Endpoint.Addr().String(),
		Port:         strconv.Itoa(int(l.Endpoint.Port())),
		Name:         l.Name,
		Description:  l.Description,
		Map:          l.Map,
		Playlist:     l.Playlist,
		PlayerCount:  strconv.Itoa(l.PlayerCount),
		MaxPlayers:   strconv.Itoa(l.MaxPlayers),
		HasPassword:  strconv.FormatBool(l.HasPassword),
		RequiredMods: l.RequiredMods,
		OptionalMods: l.OptionalMods,
		Version:      l.Version,
		Checksum:     l.Checksum,
		Region:       l.Region,
	}
}
