/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package signal derives the canonical binding token for a signal value. The
// token is bound into the proof by the attestation app so the proof cannot be
// replayed against a different payload.
package signal

import (
	"fmt"
	"math/big"

	"golang.org/x/crypto/sha3"
)

// TokenLen is the rendered token length: 0x prefix plus 64 hex characters.
const TokenLen = 66

// Token is the canonical binding token derived from a signal value.
type Token string

// Hash derives the binding token for the given signal bytes. The derivation is
// deterministic across platforms and over time: a Keccak-256 digest reduced
// into the proving field by dropping the low byte, rendered as a fixed-length
// 0x-prefixed hex string. An empty (or nil) signal is legal and yields the
// token of the empty input.
func Hash(signalBytes []byte) Token {
	h := sha3.NewLegacyKeccak256()

	// hash.Hash writers never return errors
	h.Write(signalBytes) //nolint:errcheck,gosec

	digest := new(big.Int).SetBytes(h.Sum(nil))
	digest.Rsh(digest, 8)

	return Token(fmt.Sprintf("0x%064x", digest))
}

// HashString derives the binding token for the given signal string.
func HashString(signalValue string) Token {
	return Hash([]byte(signalValue))
}

// Verify reports whether the token was derived from the given signal bytes.
func Verify(signalBytes []byte, token Token) bool {
	return Hash(signalBytes) == token
}

// String returns the rendered token.
func (t Token) String() string {
	return string(t)
}

// Valid reports whether the token has the canonical rendered shape.
func (t Token) Valid() bool {
	if len(t) != TokenLen || t[0] != '0' || t[1] != 'x' {
		return false
	}

	for _, r := range t[2:] {
		if !isHexDigit(r) {
			return false
		}
	}

	return true
}

func isHexDigit(r rune) bool {
	return r >= '0' && r <= '9' || r >= 'a' && r <= 'f'
}
