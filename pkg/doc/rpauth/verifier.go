/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rpauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-jose/go-jose/v3/jwt"

	"github.com/proofpass/proofpass-go/pkg/doc/request"
)

// Verifier checks signed relying party contexts against the registered keys.
type Verifier struct {
	resolver KeyResolver
	guard    *NonceGuard
	now      func() time.Time
}

// VerifierOpt configures a Verifier.
type VerifierOpt func(*Verifier)

// WithNonceGuard enables local nonce replay rejection.
func WithNonceGuard(guard *NonceGuard) VerifierOpt {
	return func(v *Verifier) {
		v.guard = guard
	}
}

// WithVerifierClock overrides the time source, used by tests.
func WithVerifierClock(now func() time.Time) VerifierOpt {
	return func(v *Verifier) {
		v.now = now
	}
}

// NewVerifier returns a verifier resolving relying party keys through the
// given resolver.
func NewVerifier(resolver KeyResolver, opts ...VerifierOpt) (*Verifier, error) {
	if resolver == nil {
		return nil, errors.New("key resolver is required")
	}

	v := &Verifier{
		resolver: resolver,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(v)
	}

	return v, nil
}

// Verify checks that the context's signature covers the asserted fields and
// the given action under the relying party's registered key, and that the
// validity window holds at the current time. The returned error is nil on
// success or wraps one of ErrSignatureInvalid, ErrExpired, ErrNotYetValid and
// ErrNonceReplayed.
func (v *Verifier) Verify(rpCtx *Context, action request.Action) error {
	if rpCtx == nil {
		return errors.New("relying party context is required")
	}

	token, err := jwt.ParseSigned(rpCtx.Signature)
	if err != nil {
		return fmt.Errorf("%w: malformed signature: %v", ErrSignatureInvalid, err)
	}

	key, err := v.resolver.PublicKey(rpCtx.RPID)
	if err != nil {
		return fmt.Errorf("resolve relying party key: %w", err)
	}

	var (
		claims  jwt.Claims
		private map[string]interface{}
	)

	if err := token.Claims(key, &claims, &private); err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	if err := v.matchAssertedFields(rpCtx, action, claims, private); err != nil {
		return err
	}

	if err := claims.ValidateWithLeeway(jwt.Expected{Time: v.now()}, 0); err != nil {
		switch {
		case errors.Is(err, jwt.ErrExpired):
			return ErrExpired
		case errors.Is(err, jwt.ErrNotValidYet), errors.Is(err, jwt.ErrIssuedInTheFuture):
			return ErrNotYetValid
		default:
			return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
		}
	}

	if v.guard != nil {
		if err := v.guard.Remember(rpCtx.Nonce, time.Unix(rpCtx.ExpiresAt, 0), v.now()); err != nil {
			return err
		}
	}

	return nil
}

// matchAssertedFields rejects contexts whose asserted fields differ from the
// signed claim set: a valid signature over different values must not
// authenticate the asserted ones.
func (v *Verifier) matchAssertedFields(rpCtx *Context, action request.Action,
	claims jwt.Claims, private map[string]interface{}) error {
	if claims.Issuer != rpCtx.RPID.String() {
		return fmt.Errorf("%w: signed issuer %q does not match rp id %q",
			ErrSignatureInvalid, claims.Issuer, rpCtx.RPID)
	}

	if claims.ID != rpCtx.Nonce {
		return fmt.Errorf("%w: signed nonce does not match asserted nonce", ErrSignatureInvalid)
	}

	if claims.IssuedAt == nil || claims.IssuedAt.Time().Unix() != rpCtx.CreatedAt {
		return fmt.Errorf("%w: signed created_at does not match asserted created_at", ErrSignatureInvalid)
	}

	if claims.Expiry == nil || claims.Expiry.Time().Unix() != rpCtx.ExpiresAt {
		return fmt.Errorf("%w: signed expires_at does not match asserted expires_at", ErrSignatureInvalid)
	}

	signedAction, _ := private[actionClaim].(string)
	if signedAction != action.Canonical() {
		return fmt.Errorf("%w: signed action %q does not match action %q",
			ErrSignatureInvalid, signedAction, action.Canonical())
	}

	return nil
}
