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

// Package verifiertest provides a game-server stand-in for tests that
// exercise the verification handshake.
package verifiertest

import (
	"encoding/binary"
	"net"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/r5valkyrie/master-server-sub000/pkg/challenge"
	"github.com/r5valkyrie/master-server-sub000/pkg/seal"
)

// Start runs a game-server stub that answers every valid sealed challenge
// with a correct sealed response carrying the given challenge value. It
// returns the stub's endpoint.
func Start(t *testing.T, secret []byte, value int32) netip.AddrPort {
	return start(t, secret, value, false)
}

// StartSpoofed runs a stub that builds correct responses but sends them
// from a different socket than the one the challenge was addressed to.
func StartSpoofed(t *testing.T, secret []byte, value int32) netip.AddrPort {
	return start(t, secret, value, true)
}

// StartSilent runs a stub that consumes challenges without ever answering.
func StartSilent(t *testing.T) netip.AddrPort {
	conn := listen(t)
	go func() {
		buf := make([]byte, 1024)
		for {
			if _, _, err := conn.ReadFromUDPAddrPort(buf); err != nil {
				return
			}
		}
	}()
	return localAddrPort(t, conn)
}

func start(t *testing.T, secret []byte, value int32, spoofSource bool) netip.AddrPort {
	conn := listen(t)
	go func() {
		buf := make([]byte, 1024)
		for {
			n, src, err := conn.ReadFromUDPAddrPort(buf)
			if err != nil {
				return
			}
			plaintext, err := seal.Open(buf[:n], secret)
			if err != nil || len(plaintext) != challenge.ChallengeLen {
				continue
			}
			low := binary.BigEndian.Uint32(plaintext[13:17])
			high := binary.BigEndian.Uint32(plaintext[17:21])
			uid := uint64(high)<<32 | uint64(low)
			packet, err := seal.Seal(challenge.BuildResponse(value, uid), secret)
			if err != nil {
				continue
			}
			out := conn
			if spoofSource {
				spoofed, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
				if err != nil {
					continue
				}
				out = spoofed
			}
			_, _ = out.WriteToUDPAddrPort(packet, src)
			if spoofSource {
				out.Close()
			}
		}
	}()
	return localAddrPort(t, conn)
}

func listen(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func localAddrPort(t *testing.T, conn *net.UDPConn) netip.AddrPort {
	t.Helper()
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	require.True(t, ok)
	return addr.AddrPort()
}
