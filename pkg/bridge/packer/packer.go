/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package packer seals and opens bridge envelopes with session-scoped
// symmetric key material. The relay only ever carries the sealed form.
package packer

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/google/tink/go/subtle/random"

	"github.com/proofpass/proofpass-go/pkg/bridge"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32

	// NonceSize is the GCM nonce length in bytes.
	NonceSize = 12
)

// ErrDecryptionFailed is returned when an envelope cannot be authenticated
// and decrypted with the session key. Tampered and truncated envelopes fail
// with this error rather than yielding garbage plaintext.
var ErrDecryptionFailed = errors.New("envelope decryption failed")

// KeyMaterial is the symmetric key and request nonce generated for exactly
// one session. It must never be reused across sessions, retries included.
type KeyMaterial struct {
	Key   []byte
	Nonce []byte
}

// GenerateKeyMaterial returns fresh key material from a cryptographically
// secure random source.
func GenerateKeyMaterial() *KeyMaterial {
	return &KeyMaterial{
		Key:   random.GetRandomBytes(KeySize),
		Nonce: random.GetRandomBytes(NonceSize),
	}
}

// Packer seals and opens envelopes under one session's key material.
type Packer struct {
	aead  cipher.AEAD
	nonce []byte
}

// New returns a packer for the given key material.
func New(km *KeyMaterial) (*Packer, error) {
	if km == nil {
		return nil, errors.New("key material is required")
	}

	if len(km.Key) != KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", KeySize, len(km.Key))
	}

	if len(km.Nonce) != NonceSize {
		return nil, fmt.Errorf("nonce must be %d bytes, got %d", NonceSize, len(km.Nonce))
	}

	block, err := aes.NewCipher(km.Key)
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}

	return &Packer{aead: aead, nonce: km.Nonce}, nil
}

// Seal encrypts the plaintext under the session key with the session request
// nonce and returns the transport envelope.
func (p *Packer) Seal(plaintext []byte) (*bridge.Envelope, error) {
	if len(plaintext) == 0 {
		return nil, errors.New("plaintext is empty")
	}

	ciphertext := p.aead.Seal(nil, p.nonce, plaintext, nil)

	return &bridge.Envelope{
		IV:      base64.StdEncoding.EncodeToString(p.nonce),
		Payload: base64.StdEncoding.EncodeToString(ciphertext),
	}, nil
}

// Open authenticates and decrypts an envelope received from the relay. The
// envelope carries its own IV: response envelopes are sealed by the
// attestation app under a nonce of its choosing.
func (p *Packer) Open(env *bridge.Envelope) ([]byte, error) {
	if env == nil {
		return nil, errors.New("envelope is required")
	}

	iv, err := base64.StdEncoding.DecodeString(env.IV)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed iv: %v", ErrDecryptionFailed, err)
	}

	if len(iv) != NonceSize {
		return nil, fmt.Errorf("%w: iv must be %d bytes, got %d", ErrDecryptionFailed, NonceSize, len(iv))
	}

	ciphertext, err := base64.StdEncoding.DecodeString(env.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed payload: %v", ErrDecryptionFailed, err)
	}

	plaintext, err := p.aead.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	return plaintext, nil
}
