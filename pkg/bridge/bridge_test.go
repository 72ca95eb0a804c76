/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package bridge

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/proofpass/proofpass-go/pkg/doc/constraint"
	"github.com/proofpass/proofpass-go/pkg/doc/proof"
	"github.com/proofpass/proofpass-go/pkg/doc/request"
	"github.com/proofpass/proofpass-go/pkg/doc/rpauth"
)

func TestDecodeCompletionProof(t *testing.T) {
	plaintext := []byte(`{
		"proof": "0x1a2b",
		"merkle_root": "0x3c4d",
		"nullifier_hash": "0x5e6f",
		"credential_type": "orb"
	}`)

	p, code, err := DecodeCompletion(plaintext)
	require.NoError(t, err)
	require.Empty(t, code)
	require.Equal(t, &proof.Proof{
		Proof:          "0x1a2b",
		MerkleRoot:     "0x3c4d",
		NullifierHash:  "0x5e6f",
		CredentialType: request.CredentialOrb,
	}, p)
}

func TestDecodeCompletionError(t *testing.T) {
	p, code, err := DecodeCompletion([]byte(`{"error_code": "verification_rejected"}`))
	require.NoError(t, err)
	require.Nil(t, p)
	require.Equal(t, proof.ErrVerificationRejected, code)

	// unknown codes collapse to generic_error
	_, code, err = DecodeCompletion([]byte(`{"error_code": "out_of_band"}`))
	require.NoError(t, err)
	require.Equal(t, proof.ErrGenericError, code)
}

func TestDecodeCompletionMalformed(t *testing.T) {
	tests := []struct {
		name      string
		plaintext string
	}{
		{name: "not json", plaintext: "ZZZZ"},
		{name: "json array", plaintext: "[1,2]"},
		{name: "error code not a string", plaintext: `{"error_code": 7}`},
		{name: "missing proof fields", plaintext: `{"proof": "0x1a2b"}`},
		{name: "unknown credential", plaintext: `{
			"proof": "0x1a2b", "merkle_root": "0x3c4d", "nullifier_hash": "0x5e6f",
			"credential_type": "iris"
		}`},
		{name: "wrong field type", plaintext: `{
			"proof": 12, "merkle_root": "0x3c4d", "nullifier_hash": "0x5e6f",
			"credential_type": "orb"
		}`},
	}

	for _, tc := range tests {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			p, code, err := DecodeCompletion([]byte(tc.plaintext))
			require.Error(t, err)
			require.Nil(t, p)
			require.Empty(t, code)
		})
	}
}

func TestRequestPayloadJSON(t *testing.T) {
	orb, err := request.New(request.CredentialOrb, request.WithSignal("my_signal"))
	require.NoError(t, err)

	payload := &RequestPayload{
		AppID:             "app_9cdd0a714aa9b0d81e803f2552f32dd5",
		Action:            request.NewAction("vote"),
		ActionDescription: "Cast your vote",
		Requests:          []*request.Request{orb},
		Constraints:       constraint.AnyOf(constraint.Leaf(request.CredentialOrb)),
		RPContext: &rpauth.Context{
			RPID:      "rp_4e71c99d1bff412a",
			Nonce:     "n-1",
			CreatedAt: 100,
			ExpiresAt: 400,
			Signature: "sig",
		},
	}

	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	var asMap map[string]interface{}

	require.NoError(t, json.Unmarshal(raw, &asMap))
	require.Equal(t, "vote", asMap["action"])
	require.Equal(t, "app_9cdd0a714aa9b0d81e803f2552f32dd5", asMap["app_id"])

	var restored RequestPayload

	require.NoError(t, json.Unmarshal(raw, &restored))
	require.Equal(t, payload, &restored)
}
