/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rpauth

import (
	"crypto/ecdsa"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v3"
	"github.com/go-jose/go-jose/v3/jwt"
	"github.com/google/tink/go/subtle/random"

	"github.com/proofpass/proofpass-go/pkg/doc/request"
)

const nonceLen = 16

// actionClaim is the private claim carrying the canonical action value.
const actionClaim = "action"

// Signer issues signed request contexts for one relying party. It wraps the
// relying party's private key and must only run on the relying party's
// backend, never in a client runtime.
type Signer struct {
	rpID request.RPID
	key  *ecdsa.PrivateKey
	ttl  time.Duration
	now  func() time.Time
}

// SignerOpt configures a Signer.
type SignerOpt func(*Signer)

// WithTTL overrides the default validity window applied to signed contexts.
func WithTTL(ttl time.Duration) SignerOpt {
	return func(s *Signer) {
		s.ttl = ttl
	}
}

// WithSignerClock overrides the time source, used by tests.
func WithSignerClock(now func() time.Time) SignerOpt {
	return func(s *Signer) {
		s.now = now
	}
}

// NewSigner returns a signer for the given relying party id and P-256 key.
func NewSigner(rpID string, key *ecdsa.PrivateKey, opts ...SignerOpt) (*Signer, error) {
	id, err := request.ValidateRPID(rpID)
	if err != nil {
		return nil, err
	}

	if key == nil {
		return nil, errors.New("signing key is required")
	}

	s := &Signer{
		rpID: id,
		key:  key,
		ttl:  DefaultTTL,
		now:  time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.ttl <= 0 {
		return nil, fmt.Errorf("ttl must be positive, got %s", s.ttl)
	}

	return s, nil
}

// Sign produces a signed, time-boxed context authorizing the given action.
// The nonce is freshly random per call; created_at is the current time and
// expires_at follows after the configured ttl. The signature covers the
// canonical, order-fixed claim set {action, nonce, created_at, expires_at}
// with the relying party id as issuer.
func (s *Signer) Sign(action request.Action) (*Context, error) {
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.ES256, Key: s.key},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return nil, fmt.Errorf("create jose signer: %w", err)
	}

	nonce := base64.RawURLEncoding.EncodeToString(random.GetRandomBytes(nonceLen))

	createdAt := s.now().Unix()
	expiresAt := createdAt + int64(s.ttl/time.Second)

	claims := jwt.Claims{
		Issuer:    s.rpID.String(),
		ID:        nonce,
		IssuedAt:  jwt.NewNumericDate(time.Unix(createdAt, 0)),
		NotBefore: jwt.NewNumericDate(time.Unix(createdAt, 0)),
		Expiry:    jwt.NewNumericDate(time.Unix(expiresAt, 0)),
	}

	sig, err := jwt.Signed(signer).
		Claims(claims).
		Claims(map[string]interface{}{actionClaim: action.Canonical()}).
		CompactSerialize()
	if err != nil {
		return nil, fmt.Errorf("sign relying party context: %w", err)
	}

	return &Context{
		RPID:      s.rpID,
		Nonce:     nonce,
		CreatedAt: createdAt,
		ExpiresAt: expiresAt,
		Signature: sig,
	}, nil
}
