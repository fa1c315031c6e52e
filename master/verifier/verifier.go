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

// Package verifier proves that a registering process controls the endpoint
// it claims. A session owns one UDP socket, sends a single sealed
// challenge, and waits for a matching sealed response from exactly the
// target endpoint. Retry policy belongs to the caller; a session is
// one-shot.
package verifier

import (
	"net"
	"net/netip"
	"sync"

	"github.com/r5valkyrie/master-server-sub000/pkg/challenge"
	"github.com/r5valkyrie/master-server-sub000/pkg/log"
	"github.com/r5valkyrie/master-server-sub000/pkg/private/serrors"
	"github.com/r5valkyrie/master-server-sub000/pkg/seal"
)

const maxDatagramSize = 1024

// Session is a single verification attempt. It transitions
// idle -> connecting -> awaiting-response -> verified or closed.
type Session struct {
	conn      *net.UDPConn
	remote    netip.AddrPort
	secret    []byte
	uid       uint64
	verified  chan int32
	closeOnce sync.Once
}

// Start binds an ephemeral UDP socket, sends the sealed challenge to the
// target, and begins listening for the response. Ports outside 0-65535 are
// rejected before anything is sent.
func Start(ip netip.Addr, port int, secret []byte) (*Session, error) {
	if port < 0 || port > 65535 {
		return nil, serrors.New("port out of range", "port", port)
	}
	c, err := challenge.NewChallenge()
	if err != nil {
		return nil, err
	}
	packet, err := seal.Seal(c.Serialize(), secret)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, serrors.WrapStr("binding verification socket", err)
	}
	s := &Session{
		conn:     conn,
		remote:   netip.AddrPortFrom(ip.Unmap(), uint16(port)),
		secret:   secret,
		uid:      c.UID,
		verified: make(chan int32, 1),
	}
	if _, err := conn.WriteToUDPAddrPort(packet, s.remote); err != nil {
		s.Close()
		return nil, serrors.WrapStr("sending challenge", err, "remote", s.remote)
	}
	go func() {
		defer log.HandlePanic()
		s.readLoop()
	}()
	return s, nil
}

// Verified yields the decoded challenge value once a matching response has
// arrived. The channel never yields more than once.
func (s *Session) Verified() <-chan int32 {
	return s.verified
}

// Close releases the socket. It is idempotent and safe to call at any
// point, including before any response has arrived.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.conn.Close()
	})
}

func (s *Session) readLoop() {
	buf := make([]byte, maxDatagramSize)
	for {
		n, src, err := s.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			// Socket closed, the session is over.
			return
		}
		// Anything not from exactly the claimed endpoint is ignored, as is
		// every datagram that fails to authenticate or to parse. Only a
		// correctly matching response resolves the session.
		if src.Addr().Unmap() != s.remote.Addr() || src.Port() != s.remote.Port() {
			continue
		}
		plaintext, err := seal.Open(buf[:n], s.secret)
		if err != nil {
			continue
		}
		resp, err := challenge.ParseResponse(plaintext, s.uid)
		if err != nil {
			continue
		}
		s.verified <- resp.Challenge
		return
	}
}
