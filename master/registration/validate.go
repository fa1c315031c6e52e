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
	"encoding/base64"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/r5valkyrie/master-server-sub000/master/registry"
	"github.com/r5valkyrie/master-server-sub000/pkg/private/serrors"
	"github.com/r5valkyrie/master-server-sub000/pkg/seal"
)

const (
	maxNameLen        = 64
	maxDescriptionLen = 512
	maxMapLen         = 64
	maxPlaylistLen    = 64
	maxVersionLen     = 32
	maxChecksumLen    = 64
	maxRegionLen      = 16
	maxPasswordLen    = 64
	maxTokenLen       = 64
	maxModLen         = 128
	maxPlayerCap      = 128
)

var playlistRe = regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)

// validate applies the per-field rules and converts a valid request into
// the canonical listing form. All failures wrap ErrInvalid with a specific
// reason.
func validate(req Request) (registry.Listing, error) {
	switch {
	case req.Name == "":
		return registry.Listing{}, invalid("name is required")
	case utf8.RuneCountInString(req.Name) > maxNameLen:
		return registry.Listing{}, invalid("name too long", "max", maxNameLen)
	case utf8.RuneCountInString(req.Description) > maxDescriptionLen:
		return registry.Listing{}, invalid("description too long", "max", maxDescriptionLen)
	case req.Map == "":
		return registry.Listing{}, invalid("map is required")
	case utf8.RuneCountInString(req.Map) > maxMapLen:
		return registry.Listing{}, invalid("map too long", "max", maxMapLen)
	case req.Playlist == "":
		return registry.Listing{}, invalid("playlist is required")
	case len(req.Playlist) > maxPlaylistLen:
		return registry.Listing{}, invalid("playlist too long", "max", maxPlaylistLen)
	case !playlistRe.MatchString(req.Playlist):
		return registry.Listing{}, invalid("playlist has invalid characters",
			"playlist", req.Playlist)
	case req.Port < 1 || req.Port > 65535:
		return registry.Listing{}, invalid("port out of range", "port", req.Port)
	case !req.IP.IsValid():
		return registry.Listing{}, invalid("ip is required")
	case req.MaxPlayers < 1 || req.MaxPlayers > maxPlayerCap:
		return registry.Listing{}, invalid("max players out of range",
			"max_players", req.MaxPlayers)
	case req.PlayerCount < 0 || req.PlayerCount > req.MaxPlayers:
		return registry.Listing{}, invalid("player count out of range",
			"player_count", req.PlayerCount, "max_players", req.MaxPlayers)
	case req.Version == "":
		return registry.Listing{}, invalid("version is required")
	case len(req.Version) > maxVersionLen:
		return registry.Listing{}, invalid("version too long", "max", maxVersionLen)
	case req.Checksum == "":
		return registry.Listing{}, invalid("checksum is required")
	case len(req.Checksum) > maxChecksumLen:
		return registry.Listing{}, invalid("checksum too long", "max", maxChecksumLen)
	case len(req.Region) > maxRegionLen:
		return registry.Listing{}, invalid("region too long", "max", maxRegionLen)
	case len(req.Password) > maxPasswordLen:
		return registry.Listing{}, invalid("password too long", "max", maxPasswordLen)
	case len(req.Token) > maxTokenLen:
		return registry.Listing{}, invalid("token too long", "max", maxTokenLen)
	}
	secret, err := base64.StdEncoding.DecodeString(req.Key)
	if err != nil {
		return registry.Listing{}, invalid("key is not valid base64")
	}
	if len(secret) != seal.KeySize {
		return registry.Listing{}, invalid("key has wrong length",
			"expected", seal.KeySize, "actual", len(secret))
	}
	requiredMods, err := normalizeMods(req.RequiredMods)
	if err != nil {
		return registry.Listing{}, err
	}
	optionalMods, err := normalizeMods(req.OptionalMods)
	if err != nil {
		return registry.Listing{}, err
	}
	// A declared token is only meaningful for hidden listings; public
	// entries never carry one.
	token := req.Token
	if !req.Hidden {
		token = ""
	}
	return registry.Listing{
		Endpoint:     registry.EndpointOf(req.IP, uint16(req.Port)),
		Name:         req.Name,
		Description:  req.Description,
		Map:          req.Map,
		Playlist:     req.Playlist,
		PlayerCount:  req.PlayerCount,
		MaxPlayers:   req.MaxPlayers,
		HasPassword:  req.Password != "",
		Password:     req.Password,
		RequiredMods: requiredMods,
		OptionalMods: optionalMods,
		Version:      req.Version,
		Checksum:     req.Checksum,
		Region:       req.Region,
		Hidden:       req.Hidden,
		Token:        token,
		Secret:       secret,
	}, nil
}

// normalizeMods drops blank identifiers and deduplicates while preserving
// order.
func normalizeMods(mods []string) ([]string, error) {
	out := make([]string, 0, len(mods))
	seen := make(map[string]struct{}, len(mods))
	for _, mod := range mods {
		mod = strings.TrimSpace(mod)
		if mod == "" {
			continue
		}
		if len(mod) > maxModLen {
			return nil, invalid("mod identifier too long", "max", maxModLen)
		}
		if _, ok := seen[mod]; ok {
			continue
		}
		seen[mod] = struct{}{}
		out = append(out, mod)
	}
	return out, nil
}

func invalid(reason string, ctx ...interface{}) error {
	return serrors.WrapStr(reason, ErrInvalid, ctx...)
}
