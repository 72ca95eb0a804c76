/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package rpauth produces and verifies the signed, time-boxed assertion
// proving that a verification request originates from an authorized relying
// party. Signing runs on the relying party's backend only; verification runs
// wherever the registered public keys are available.
package rpauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/proofpass/proofpass-go/pkg/doc/request"
)

// DefaultTTL is the validity window applied when the signer is not configured
// with an explicit one.
const DefaultTTL = 300 * time.Second

var (
	// ErrSignatureInvalid is returned when the signature does not verify over
	// the asserted fields under the relying party's registered key.
	ErrSignatureInvalid = errors.New("relying party signature invalid")

	// ErrExpired is returned when the assertion's validity window has passed.
	ErrExpired = errors.New("relying party context expired")

	// ErrNotYetValid is returned when the assertion's validity window has not started.
	ErrNotYetValid = errors.New("relying party context not yet valid")

	// ErrNonceReplayed is returned when a nonce is presented again within its
	// validity window.
	ErrNonceReplayed = errors.New("relying party nonce replayed")
)

// Context carries the signed authorization issued by the relying party's
// backend for one action. It is a required input to session creation.
type Context struct {
	RPID      request.RPID `json:"rp_id"`
	Nonce     string       `json:"nonce"`
	CreatedAt int64        `json:"created_at"`
	ExpiresAt int64        `json:"expires_at"`
	Signature string       `json:"signature"`
}

// Validate checks the structural shape and the time window of the context
// without verifying the signature. Sessions are created from contexts that
// pass this check; full signature verification requires the key registry and
// runs on the verifying side.
func (c *Context) Validate(now time.Time) error {
	if c == nil {
		return errors.New("relying party context is required")
	}

	if _, err := request.ValidateRPID(c.RPID.String()); err != nil {
		return fmt.Errorf("relying party context: %w", err)
	}

	if c.Nonce == "" {
		return errors.New("relying party context: empty nonce")
	}

	if c.Signature == "" {
		return errors.New("relying party context: empty signature")
	}

	if c.CreatedAt >= c.ExpiresAt {
		return fmt.Errorf("relying party context: created_at %d is not before expires_at %d",
			c.CreatedAt, c.ExpiresAt)
	}

	ts := now.Unix()

	if ts < c.CreatedAt {
		return ErrNotYetValid
	}

	if ts > c.ExpiresAt {
		return ErrExpired
	}

	return nil
}
