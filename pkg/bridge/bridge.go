/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package bridge defines the wire model exchanged with the relay: encrypted
// envelopes, relay statuses and the plaintext payload schemas sealed inside
// them. The relay itself never sees the plaintext forms.
package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/proofpass/proofpass-go/pkg/doc/constraint"
	"github.com/proofpass/proofpass-go/pkg/doc/proof"
	"github.com/proofpass/proofpass-go/pkg/doc/request"
	"github.com/proofpass/proofpass-go/pkg/doc/rpauth"
)

// Relay statuses reported for a pending request.
const (
	// StatusInitialized means the attestation app has not fetched the request yet.
	StatusInitialized = "initialized"
	// StatusRetrieved means the attestation app holds the request and the user
	// has not confirmed yet.
	StatusRetrieved = "retrieved"
	// StatusCompleted means a completion envelope is available.
	StatusCompleted = "completed"
)

// Envelope is the encrypted form of a payload exchanged through the relay.
// Both fields are standard base64.
type Envelope struct {
	IV      string `json:"iv"`
	Payload string `json:"payload"`
}

// CreateResponse is the relay's reply to registering a request.
type CreateResponse struct {
	RequestID string `json:"request_id"`
}

// PollResponse is the relay's reply to a status query. Response is only set
// once Status is StatusCompleted.
type PollResponse struct {
	Status   string    `json:"status"`
	Response *Envelope `json:"response,omitempty"`
}

// RequestPayload is the plaintext request sealed for the attestation app.
type RequestPayload struct {
	AppID             request.AppID      `json:"app_id"`
	Action            request.Action     `json:"action"`
	ActionDescription string             `json:"action_description,omitempty"`
	Requests          []*request.Request `json:"requests"`
	Constraints       *constraint.Node   `json:"constraints,omitempty"`
	RPContext         *rpauth.Context    `json:"rp_context"`
}

// errorKey is the discriminator field of a failure completion payload.
const errorKey = "error_code"

// DecodeCompletion interprets a decrypted completion payload. It returns
// either the proof artifact or the terminal error code the attestation app
// reported. A payload that is neither is reported through the error return.
func DecodeCompletion(plaintext []byte) (*proof.Proof, proof.ErrorCode, error) {
	var fields map[string]interface{}

	if err := json.Unmarshal(plaintext, &fields); err != nil {
		return nil, "", fmt.Errorf("completion payload is not a JSON object: %w", err)
	}

	if rawCode, ok := fields[errorKey]; ok {
		code, ok := rawCode.(string)
		if !ok {
			return nil, "", fmt.Errorf("completion error code is not a string")
		}

		return nil, proof.ParseErrorCode(code), nil
	}

	var result proof.Proof

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  &result,
	})
	if err != nil {
		return nil, "", fmt.Errorf("create completion decoder: %w", err)
	}

	if err := decoder.Decode(fields); err != nil {
		return nil, "", fmt.Errorf("decode completion payload: %w", err)
	}

	if err := result.Validate(); err != nil {
		return nil, "", fmt.Errorf("completion payload: %w", err)
	}

	return &result, "", nil
}
