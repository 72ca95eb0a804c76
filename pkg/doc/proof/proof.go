/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package proof defines the attestation artifact returned by a confirmed
// verification and the closed taxonomy of terminal failure codes.
package proof

import (
	"fmt"

	"github.com/proofpass/proofpass-go/pkg/doc/request"
)

// Proof is the immutable output artifact of a confirmed verification.
type Proof struct {
	Proof          string                 `json:"proof"`
	MerkleRoot     string                 `json:"merkle_root"`
	NullifierHash  string                 `json:"nullifier_hash"`
	CredentialType request.CredentialType `json:"credential_type"`
}

// Validate checks that the artifact carries all required fields.
func (p *Proof) Validate() error {
	if p.Proof == "" {
		return fmt.Errorf("proof payload is empty")
	}

	if p.MerkleRoot == "" {
		return fmt.Errorf("merkle root is empty")
	}

	if p.NullifierHash == "" {
		return fmt.Errorf("nullifier hash is empty")
	}

	if !p.CredentialType.Valid() {
		return fmt.Errorf("unknown credential type %q", p.CredentialType)
	}

	return nil
}

// ErrorCode classifies a terminal verification failure. The set is closed:
// callers decide display and retry policy from the code alone.
type ErrorCode string

// Terminal failure codes.
const (
	ErrGenericError            ErrorCode = "generic_error"
	ErrConnectionFailed        ErrorCode = "connection_failed"
	ErrVerificationRejected    ErrorCode = "verification_rejected"
	ErrMaxVerificationsReached ErrorCode = "max_verifications_reached"
	ErrCredentialUnavailable   ErrorCode = "credential_unavailable"
	ErrMalformedRequest        ErrorCode = "malformed_request"
	ErrInvalidNetwork          ErrorCode = "invalid_network"
	ErrInclusionProofFailed    ErrorCode = "inclusion_proof_failed"
	ErrInclusionProofPending   ErrorCode = "inclusion_proof_pending"
	ErrUnexpectedResponse      ErrorCode = "unexpected_response"
	ErrFailedByHostApp         ErrorCode = "failed_by_host_app"
)

//nolint:gochecknoglobals
var knownErrorCodes = map[ErrorCode]struct{}{
	ErrGenericError:            {},
	ErrConnectionFailed:        {},
	ErrVerificationRejected:    {},
	ErrMaxVerificationsReached: {},
	ErrCredentialUnavailable:   {},
	ErrMalformedRequest:        {},
	ErrInvalidNetwork:          {},
	ErrInclusionProofFailed:    {},
	ErrInclusionProofPending:   {},
	ErrUnexpectedResponse:      {},
	ErrFailedByHostApp:         {},
}

// Known reports whether the code belongs to the closed taxonomy.
func (e ErrorCode) Known() bool {
	_, ok := knownErrorCodes[e]

	return ok
}

// String returns the wire value of the code.
func (e ErrorCode) String() string {
	return string(e)
}

// ParseErrorCode maps a wire value to the taxonomy. Values outside the closed
// set collapse to ErrGenericError so callers always receive a known code.
func ParseErrorCode(v string) ErrorCode {
	code := ErrorCode(v)
	if !code.Known() {
		return ErrGenericError
	}

	return code
}

// VerificationError is the terminal failure surfaced to callers when the
// attestation flow fails.
type VerificationError struct {
	Code ErrorCode
}

// NewVerificationError returns a terminal failure for the given code.
func NewVerificationError(code ErrorCode) *VerificationError {
	return &VerificationError{Code: code}
}

// Error implements the error interface.
func (e *VerificationError) Error() string {
	return fmt.Sprintf("verification failed: %s", e.Code)
}
