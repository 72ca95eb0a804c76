/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verification

import (
	"github.com/proofpass/proofpass-go/pkg/client/verifier"
	"github.com/proofpass/proofpass-go/pkg/doc/constraint"
	"github.com/proofpass/proofpass-go/pkg/doc/proof"
	"github.com/proofpass/proofpass-go/pkg/doc/rpauth"
)

// RequestTemplate describes one credential request over the controller
// boundary. Signal carries the raw value; it is hashed before it leaves the
// process.
type RequestTemplate struct {
	CredentialType string `json:"credential_type"`
	Signal         string `json:"signal,omitempty"`
	FaceAuth       bool   `json:"face_auth,omitempty"`
}

// CreateSessionRequest model
//
// This is used to create a verification session.
type CreateSessionRequest struct {
	Action            string            `json:"action,omitempty"`
	ActionDescription string            `json:"action_description,omitempty"`
	Requests          []RequestTemplate `json:"requests"`
	Constraints       *constraint.Node  `json:"constraints,omitempty"`
	RPContext         *rpauth.Context   `json:"rp_context"`
}

// CreateSessionResponse model
//
// Represents a newly created session.
type CreateSessionResponse struct {
	RequestID    string `json:"request_id"`
	ConnectorURI string `json:"connector_uri"`
	State        string `json:"state"`
}

// StatusRequest model
//
// This is used to query the status of a session.
type StatusRequest struct {
	RequestID string `json:"request_id"`
}

// StatusResponse model
//
// Represents the session state at the time of the query.
type StatusResponse struct {
	RequestID string          `json:"request_id"`
	State     string          `json:"state"`
	Proof     *proof.Proof    `json:"proof,omitempty"`
	ErrorCode proof.ErrorCode `json:"error_code,omitempty"`
}

// WaitProofRequest model
//
// This is used to block until the session terminates.
type WaitProofRequest struct {
	RequestID      string `json:"request_id"`
	TimeoutSeconds int64  `json:"timeout_seconds,omitempty"`
}

// WaitProofResponse model
//
// Carries the proof of a confirmed session.
type WaitProofResponse struct {
	RequestID string       `json:"request_id"`
	Proof     *proof.Proof `json:"proof"`
}

// VerifyProofRequest model
//
// This is used to verify a received proof with the developer portal.
type VerifyProofRequest struct {
	AppID          string `json:"app_id,omitempty"`
	Proof          string `json:"proof"`
	MerkleRoot     string `json:"merkle_root"`
	NullifierHash  string `json:"nullifier_hash"`
	CredentialType string `json:"credential_type"`
	Action         string `json:"action,omitempty"`
	SignalHash     string `json:"signal_hash,omitempty"`
}

// VerifyProofResponse model
//
// Carries the portal's verification result.
type VerifyProofResponse struct {
	verifier.VerifyResponse
}

// SessionRecord is the persisted view of a session, observable across
// commands after the live session is gone.
type SessionRecord struct {
	RequestID    string          `json:"request_id"`
	AppID        string          `json:"app_id"`
	Action       string          `json:"action,omitempty"`
	State        string          `json:"state"`
	ErrorCode    proof.ErrorCode `json:"error_code,omitempty"`
	ConnectorURI string          `json:"connector_uri"`
	CreatedAt    int64           `json:"created_at"`
	UpdatedAt    int64           `json:"updated_at"`
}

// StatusEvent is the webhook payload published when a session reaches a
// terminal state.
type StatusEvent struct {
	RequestID string          `json:"request_id"`
	AppID     string          `json:"app_id"`
	State     string          `json:"state"`
	ErrorCode proof.ErrorCode `json:"error_code,omitempty"`
}
