/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package request provides the identifier validators and the verification
// request model shared by sessions, constraints and the relying party
// authenticator.
package request

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/proofpass/proofpass-go/pkg/doc/signal"
)

const (
	appIDPrefix   = "app_"
	stagingPrefix = "staging_"
	rpIDPrefix    = "rp_"

	maxIDSuffixLen = 64
)

// ErrInvalidFormat is returned when an identifier fails format validation.
var ErrInvalidFormat = errors.New("invalid identifier format")

// AppID identifies an application registered in the developer portal.
type AppID string

// String returns the wire value of the app id.
func (a AppID) String() string {
	return string(a)
}

// IsStaging reports whether the app id belongs to the staging environment.
func (a AppID) IsStaging() bool {
	return strings.HasPrefix(string(a), appIDPrefix+stagingPrefix)
}

// ValidateAppID checks the format of an application identifier. It is pure and
// total: malformed input is reported through the returned error before any
// network interaction can happen.
func ValidateAppID(id string) (AppID, error) {
	suffix, ok := strings.CutPrefix(id, appIDPrefix)
	if !ok {
		return "", fmt.Errorf("app id %q must start with %q: %w", id, appIDPrefix, ErrInvalidFormat)
	}

	// staging ids carry an extra environment marker between prefix and suffix
	suffix = strings.TrimPrefix(suffix, stagingPrefix)

	if err := validateIDSuffix(suffix); err != nil {
		return "", fmt.Errorf("app id %q: %w", id, err)
	}

	return AppID(id), nil
}

// RPID identifies a relying party registered with the verification service.
type RPID string

// String returns the wire value of the relying party id.
func (r RPID) String() string {
	return string(r)
}

// ValidateRPID checks the format of a relying party identifier.
func ValidateRPID(id string) (RPID, error) {
	suffix, ok := strings.CutPrefix(id, rpIDPrefix)
	if !ok {
		return "", fmt.Errorf("rp id %q must start with %q: %w", id, rpIDPrefix, ErrInvalidFormat)
	}

	if err := validateIDSuffix(suffix); err != nil {
		return "", fmt.Errorf("rp id %q: %w", id, err)
	}

	return RPID(id), nil
}

func validateIDSuffix(suffix string) error {
	if suffix == "" {
		return fmt.Errorf("empty suffix: %w", ErrInvalidFormat)
	}

	if len(suffix) > maxIDSuffixLen {
		return fmt.Errorf("suffix longer than %d characters: %w", maxIDSuffixLen, ErrInvalidFormat)
	}

	for _, r := range suffix {
		if !isAlphanumeric(r) {
			return fmt.Errorf("suffix contains illegal character %q: %w", r, ErrInvalidFormat)
		}
	}

	return nil
}

func isAlphanumeric(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'
}

// Request describes one acceptable (credential, signal, auth-strength)
// combination for a verification attempt. The signal is bound into the request
// as its hashed token at construction time.
type Request struct {
	CredentialType CredentialType `json:"credential_type"`
	Signal         signal.Token   `json:"signal,omitempty"`
	FaceAuth       bool           `json:"face_auth,omitempty"`
}

// Opt is a request construction option.
type Opt func(*Request)

// WithSignal binds the given signal value into the request.
func WithSignal(value string) Opt {
	return func(r *Request) {
		r.Signal = signal.HashString(value)
	}
}

// WithSignalBytes binds the given raw signal bytes into the request.
func WithSignalBytes(value []byte) Opt {
	return func(r *Request) {
		r.Signal = signal.Hash(value)
	}
}

// WithFaceAuth requires an additional face authentication during the
// attestation. Only legal for orb and face credentials.
func WithFaceAuth() Opt {
	return func(r *Request) {
		r.FaceAuth = true
	}
}

// New builds a verification request for the given credential type.
func New(credentialType CredentialType, opts ...Opt) (*Request, error) {
	r := &Request{CredentialType: credentialType}

	for _, opt := range opts {
		opt(r)
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}

	return r, nil
}

// Validate checks the request invariants.
func (r *Request) Validate() error {
	if !r.CredentialType.Valid() {
		return fmt.Errorf("unknown credential type %q", r.CredentialType)
	}

	if r.FaceAuth && !r.CredentialType.supportsFaceAuth() {
		return fmt.Errorf("face_auth is not supported for credential type %q", r.CredentialType)
	}

	return nil
}

// ValidateAll checks a request list for session use: it must be non-empty,
// hold valid entries and not repeat a credential type.
func ValidateAll(requests []*Request) error {
	if len(requests) == 0 {
		return errors.New("at least one verification request is required")
	}

	var seen []CredentialType

	for i, r := range requests {
		if r == nil {
			return fmt.Errorf("verification request %d is nil", i)
		}

		if err := r.Validate(); err != nil {
			return fmt.Errorf("verification request %d: %w", i, err)
		}

		if slices.Contains(seen, r.CredentialType) {
			return fmt.Errorf("duplicate verification request for credential type %q", r.CredentialType)
		}

		seen = append(seen, r.CredentialType)
	}

	return nil
}

// CredentialsOf lists the credential types of the given requests in submission order.
func CredentialsOf(requests []*Request) []CredentialType {
	credentials := make([]CredentialType, 0, len(requests))

	for _, r := range requests {
		credentials = append(credentials, r.CredentialType)
	}

	return credentials
}
