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

// Package seal implements the authenticated encryption applied to every
// verification datagram. A sealed packet has the wire layout
//
//	nonce (12 bytes) || tag (16 bytes) || ciphertext
//
// under AES-128-GCM with a fresh random nonce per packet. Both ends bind a
// fixed additional-authenticated-data constant into every seal and open, so
// packets produced by unrelated protocols never authenticate.
package seal

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"

	"github.com/r5valkyrie/master-server-sub000/pkg/private/serrors"
)

const (
	// KeySize is the size of the shared secret in bytes.
	KeySize = 16
	// NonceSize is the size of the GCM nonce in bytes.
	NonceSize = 12
	// TagSize is the size of the authentication tag in bytes.
	TagSize = 16
	// Overhead is the number of bytes a sealed packet is larger than its
	// plaintext.
	Overhead = NonceSize + TagSize
)

// packetAAD is bound into every seal and open call. It is not secret, but
// an open with a mismatching value fails authentication.
var packetAAD = []byte("r5v-verify/2")

// ErrAuthFailed is returned by Open when a packet does not authenticate
// under the given key. Callers must drop the datagram; there is no partial
// or zero-filled plaintext on failure.
var ErrAuthFailed = serrors.New("datagram authentication failed")

// Seal encrypts and authenticates plaintext under the given 128-bit key.
func Seal(plaintext, key []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	packet := make([]byte, NonceSize, Overhead+len(plaintext))
	if _, err := rand.Read(packet[:NonceSize]); err != nil {
		return nil, serrors.WrapStr("generating nonce", err)
	}
	// GCM appends ciphertext||tag; the wire wants nonce||tag||ciphertext.
	sealed := aead.Seal(nil, packet[:NonceSize], plaintext, packetAAD)
	ct, tag := sealed[:len(plaintext)], sealed[len(plaintext):]
	packet = append(packet, tag...)
	packet = append(packet, ct...)
	return packet, nil
}

// Open authenticates and decrypts a sealed packet. It returns ErrAuthFailed
// if the packet was not produced under the given key and AAD, or if it was
// modified in transit.
func Open(packet, key []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	if len(packet) < Overhead {
		return nil, ErrAuthFailed
	}
	nonce := packet[:NonceSize]
	tag := packet[NonceSize:Overhead]
	ct := packet[Overhead:]
	sealed := make([]byte, 0, len(ct)+TagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)
	// Decrypt into a fresh buffer; an empty plaintext opens to an empty,
	// non-nil slice so the round trip preserves the input exactly.
	plaintext, err := aead.Open(make([]byte, 0, len(ct)), nonce, sealed, packetAAD)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, serrors.New("invalid key length", "expected", KeySize, "actual", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, serrors.WrapStr("creating cipher", err)
	}
	return cipher.NewGCM(block)
}
