/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rpsign

import (
	"github.com/proofpass/proofpass-go/pkg/doc/rpauth"
)

// SignRequestRequest is the body of a request to issue a signed relying party
// context for one action.
type SignRequestRequest struct {
	Action string `json:"action"`
}

// SignRequestResponse carries the freshly signed relying party context.
type SignRequestResponse struct {
	RPContext *rpauth.Context `json:"rp_context"`
}

// VerifyContextRequest asks the agent to check a presented relying party
// context against the expected action.
type VerifyContextRequest struct {
	RPContext *rpauth.Context `json:"rp_context"`
	Action    string          `json:"action"`
}

// VerifyContextResponse reports a successfully verified context.
type VerifyContextResponse struct {
	Verified bool `json:"verified"`
}
