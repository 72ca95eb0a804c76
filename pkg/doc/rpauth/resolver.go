/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rpauth

import (
	"crypto"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-jose/go-jose/v3"

	"github.com/proofpass/proofpass-go/pkg/doc/request"
)

// KeyResolver resolves the registered verification key of a relying party.
type KeyResolver interface {
	// PublicKey returns the public key registered for the relying party id.
	PublicKey(rpID request.RPID) (crypto.PublicKey, error)
}

// StaticKeyResolver is a fixed in-memory relying party key registry.
type StaticKeyResolver struct {
	mu   sync.RWMutex
	keys map[request.RPID]crypto.PublicKey
}

// NewStaticKeyResolver returns an empty registry.
func NewStaticKeyResolver() *StaticKeyResolver {
	return &StaticKeyResolver{keys: make(map[request.RPID]crypto.PublicKey)}
}

// Register stores the verification key for the relying party id.
func (r *StaticKeyResolver) Register(rpID string, key crypto.PublicKey) error {
	id, err := request.ValidateRPID(rpID)
	if err != nil {
		return err
	}

	if key == nil {
		return fmt.Errorf("verification key for %q is required", rpID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.keys[id] = key

	return nil
}

// PublicKey returns the key registered for the relying party id.
func (r *StaticKeyResolver) PublicKey(rpID request.RPID) (crypto.PublicKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key, ok := r.keys[rpID]
	if !ok {
		return nil, fmt.Errorf("no verification key registered for relying party %q", rpID)
	}

	return key, nil
}

// JWKSResolver resolves relying party keys from a JSON Web Key Set whose key
// ids are relying party ids.
type JWKSResolver struct {
	set jose.JSONWebKeySet
}

// NewJWKSResolver parses the given JWKS document.
func NewJWKSResolver(jwksJSON []byte) (*JWKSResolver, error) {
	var set jose.JSONWebKeySet

	if err := json.Unmarshal(jwksJSON, &set); err != nil {
		return nil, fmt.Errorf("parse JWKS document: %w", err)
	}

	if len(set.Keys) == 0 {
		return nil, fmt.Errorf("JWKS document holds no keys")
	}

	return &JWKSResolver{set: set}, nil
}

// PublicKey returns the JWKS key whose key id equals the relying party id.
func (r *JWKSResolver) PublicKey(rpID request.RPID) (crypto.PublicKey, error) {
	keys := r.set.Key(rpID.String())
	if len(keys) == 0 {
		return nil, fmt.Errorf("no JWKS entry for relying party %q", rpID)
	}

	jwk := keys[0]
	if !jwk.Valid() {
		return nil, fmt.Errorf("JWKS entry for relying party %q is invalid", rpID)
	}

	return jwk.Key, nil
}
