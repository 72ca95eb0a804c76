/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rpauth

import (
	"fmt"
	"time"

	"github.com/bluele/gcache"
)

// NonceGuard remembers presented nonces until their contexts expire so a
// second presentation within the validity window is rejected. The relay
// remains the authoritative replay enforcer; the guard covers deployments
// verifying contexts on their own backend.
// underlying gcache is threadsafe, no need of locks.
type NonceGuard struct {
	gstore gcache.Cache
}

// NewNonceGuard returns an empty guard.
func NewNonceGuard() *NonceGuard {
	return &NonceGuard{gstore: gcache.New(0).Build()}
}

// Remember records the nonce until the given expiry. It returns
// ErrNonceReplayed when the nonce is already recorded and unexpired.
func (g *NonceGuard) Remember(nonce string, expiresAt, now time.Time) error {
	if _, err := g.gstore.Get(nonce); err == nil {
		return ErrNonceReplayed
	}

	ttl := expiresAt.Sub(now)
	if ttl <= 0 {
		return ErrExpired
	}

	if err := g.gstore.SetWithExpire(nonce, struct{}{}, ttl); err != nil {
		return fmt.Errorf("record nonce: %w", err)
	}

	return nil
}
