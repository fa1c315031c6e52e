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

package registry

import (
	"encoding/hex"
	"encoding/json"
	"net/netip"
	"strconv"

	"github.com/r5valkyrie/master-server-sub000/pkg/private/serrors"
)

// EndpointOf builds the canonical endpoint key from an address and port.
// IPv4-mapped IPv6 addresses are unmapped so the same server always yields
// the same key.
func EndpointOf(ip netip.Addr, port uint16) netip.AddrPort {
	return netip.AddrPortFrom(ip.Unmap(), port)
}

// Listing is a verified game server advertisement. The endpoint is the
// primary key; a listing is absent once its TTL lapses. The in-memory form
// is the canonical typed representation, the string form exists only at
// the store boundary.
type Listing struct {
	Endpoint     netip.AddrPort
	Name         string
	Description  string
	Map          string
	Playlist     string
	PlayerCount  int
	MaxPlayers   int
	HasPassword  bool
	Password     string
	RequiredMods []string
	OptionalMods []string
	Version      string
	Checksum     string
	Region       string
	Hidden       bool
	Token        string
	// Secret is the shared verification key. It is retained in the registry
	// entry only and never republished.
	Secret []byte
}

// The string-typed field names of the stored hash form.
const (
	fieldName         = "name"
	fieldDescription  = "description"
	fieldMap          = "map"
	fieldPlaylist     = "playlist"
	fieldPlayerCount  = "player_count"
	fieldMaxPlayers   = "max_players"
	fieldHasPassword  = "has_password"
	fieldPassword     = "password"
	fieldRequiredMods = "required_mods"
	fieldOptionalMods = "optional_mods"
	fieldVersion      = "version"
	fieldChecksum     = "checksum"
	fieldRegion       = "region"
	fieldHidden       = "hidden"
	fieldToken        = "token"
	fieldSecret       = "secret"
)

// fieldMap serializes the listing into the string-typed storage form.
func (l Listing) fieldMap() (map[string]string, error) {
	required, err := json.Marshal(l.RequiredMods)
	if err != nil {
		return nil, serrors.WrapStr("encoding required mods", err)
	}
	optional, err := json.Marshal(l.OptionalMods)
	if err != nil {
		return nil, serrors.WrapStr("encoding optional mods", err)
	}
	return map[string]string{
		fieldName:         l.Name,
		fieldDescription:  l.Description,
		fieldMap:          l.Map,
		fieldPlaylist:     l.Playlist,
		fieldPlayerCount:  strconv.Itoa(l.PlayerCount),
		fieldMaxPlayers:   strconv.Itoa(l.MaxPlayers),
		fieldHasPassword:  strconv.FormatBool(l.HasPassword),
		fieldPassword:     l.Password,
		fieldRequiredMods: string(required),
		fieldOptionalMods: string(optional),
		fieldVersion:      l.Version,
		fieldChecksum:     l.Checksum,
		fieldRegion:       l.Region,
		fieldHidden:       strconv.FormatBool(l.Hidden),
		fieldToken:        l.Token,
		fieldSecret:       hex.EncodeToString(l.Secret),
	}, nil
}

// listingFromMap decodes the string-typed storage form back into the
// canonical typed representation.
func listingFromMap(endpoint netip.AddrPort, m map[string]string) (Listing, error) {
	l := Listing{
		Endpoint:    endpoint,
		Name:        m[fieldName],
		Description: m[fieldDescription],
		Map:         m[fieldMap],
		Playlist:    m[fieldPlaylist],
		Password:    m[fieldPassword],
		Version:     m[fieldVersion],
		Checksum:    m[fieldChecksum],
		Region:      m[fieldRegion],
		Token:       m[fieldToken],
	}
	var err error
	if l.PlayerCount, err = strconv.Atoi(m[fieldPlayerCount]); err != nil {
		return Listing{}, serrors.WrapStr("decoding player count", err)
	}
	if l.MaxPlayers, err = strconv.Atoi(m[fieldMaxPlayers]); err != nil {
		return Listing{}, serrors.WrapStr("decoding max players", err)
	}
	if l.HasPassword, err = strconv.ParseBool(m[fieldHasPassword]); err != nil {
		return Listing{}, serrors.WrapStr("decoding password flag", err)
	}
	if l.Hidden, err = strconv.ParseBool(m[fieldHidden]); err != nil {
		return Listing{}, serrors.WrapStr("decoding hidden flag", err)
	}
	if err = json.Unmarshal([]byte(m[fieldRequiredMods]), &l.RequiredMods); err != nil {
		return Listing{}, serrors.WrapStr("decoding required mods", err)
	}
	if err = json.Unmarshal([]byte(m[fieldOptionalMods]), &l.OptionalMods); err != nil {
		return Listing{}, serrors.WrapStr("decoding optional mods", err)
	}
	if l.Secret, err = hex.DecodeString(m[fieldSecret]); err != nil {
		return Listing{}, serrors.WrapStr("decoding secret", err)
	}
	return l, nil
}
