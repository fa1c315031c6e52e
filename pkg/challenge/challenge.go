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

// Package challenge implements the fixed-layout datagrams of the liveness
// verification handshake. All fields are big-endian. Both directions travel
// sealed (see package seal); this package deals with the plaintext layouts
// only.
//
// Challenge (master -> game server, 22 bytes):
//
//	int32  magic = -1
//	uint8  type  = 0x48
//	uint8  len   = 7
//	[7]byte      "connect"
//	uint32 uidLow
//	uint32 uidHigh
//	uint8  version = 2
//
// Response (game server -> master, 17 bytes):
//
//	int32  magic = -1
//	uint8  type  = 0x49
//	int32  challenge
//	int64  echoedUid
package challenge

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/r5valkyrie/master-server-sub000/pkg/private/serrors"
)

const (
	// Magic is the leading marker of both datagrams.
	Magic = int32(-1)
	// TypeChallenge is the message type of the outbound challenge.
	TypeChallenge = uint8(0x48)
	// TypeResponse is the message type of the expected response.
	TypeResponse = uint8(0x49)
	// Version is the protocol version carried in the challenge.
	Version = uint8(2)

	// ChallengeLen is the plaintext length of a serialized challenge.
	ChallengeLen = 22
	// ResponseLen is the plaintext length of a serialized response.
	ResponseLen = 17
)

// connectTag is the ASCII marker embedded in every challenge.
const connectTag = "connect"

// magicWire is the unsigned wire form of Magic (two's complement of -1).
const magicWire = ^uint32(0)

// ErrMalformed indicates a datagram that is not a matching response: too
// short, wrong magic, wrong message type, or a session identifier that does
// not echo the challenge. Callers treat it as "not yet a valid response"
// and keep waiting.
var ErrMalformed = serrors.New("not a matching challenge response")

// Challenge is an outbound liveness probe, identified by a 64-bit session
// identifier.
type Challenge struct {
	UID uint64
}

// NewChallenge creates a challenge with a random session identifier.
func NewChallenge() (Challenge, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return Challenge{}, serrors.WrapStr("generating session identifier", err)
	}
	return Challenge{UID: binary.BigEndian.Uint64(buf[:])}, nil
}

// Serialize returns the plaintext wire form of the challenge.
func (c Challenge) Serialize() []byte {
	b := make([]byte, ChallengeLen)
	binary.BigEndian.PutUint32(b[0:4], magicWire)
	b[4] = TypeChallenge
	b[5] = uint8(len(connectTag))
	copy(b[6:13], connectTag)
	binary.BigEndian.PutUint32(b[13:17], uint32(c.UID))
	binary.BigEndian.PutUint32(b[17:21], uint32(c.UID>>32))
	b[21] = Version
	return b
}

// Response is a decoded challenge response.
type Response struct {
	Challenge int32
	UID       uint64
}

// ParseResponse decodes and structurally checks a plaintext response
// against the session identifier of the challenge it must echo. Any
// mismatch yields ErrMalformed.
func ParseResponse(b []byte, uid uint64) (Response, error) {
	if len(b) < ResponseLen {
		return Response{}, serrors.WithCtx(ErrMalformed, "reason", "short", "len", len(b))
	}
	if int32(binary.BigEndian.Uint32(b[0:4])) != Magic {
		return Response{}, serrors.WithCtx(ErrMalformed, "reason", "bad magic")
	}
	if b[4] != TypeResponse {
		return Response{}, serrors.WithCtx(ErrMalformed, "reason", "bad type", "type", b[4])
	}
	echoed := binary.BigEndian.Uint64(b[9:17])
	if echoed != uid {
		return Response{}, serrors.WithCtx(ErrMalformed, "reason", "uid mismatch")
	}
	return Response{
		Challenge: int32(binary.BigEndian.Uint32(b[5:9])),
		UID:       echoed,
	}, nil
}

// BuildResponse returns the plaintext wire form of a response. The game
// side of the handshake lives in the same codebase, and tests use it to
// stand in for a game server.
func BuildResponse(challengeValue int32, uid uint64) []byte {
	b := make([]byte, ResponseLen)
	binary.BigEndian.PutUint32(b[0:4], magicWire)
	b[4] = TypeResponse
	binary.BigEndian.PutUint32(b[5:9], uint32(challengeValue))
	binary.BigEndian.PutUint64(b[9:17], uid)
	return b
}
