/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verification

import (
	"github.com/proofpass/proofpass-go/pkg/controller/command/verification"
)

// createSessionReq model
//
// This is used for createSession request.
//
// swagger:parameters createSessionReq
type createSessionReq struct { // nolint: unused,deadcode
	// Params for createSession
	//
	// in: body
	verification.CreateSessionRequest
}

// createSessionRes model
//
// This is used for returning the create session response.
//
// swagger:response createSessionRes
type createSessionRes struct { // nolint: unused,deadcode

	// in: body
	verification.CreateSessionResponse
}

// sessionStatusRes model
//
// This is used for returning the session status response.
//
// swagger:response sessionStatusRes
type sessionStatusRes struct { // nolint: unused,deadcode

	// in: body
	verification.StatusResponse
}

// waitProofRes model
//
// This is used for returning the proof once the session confirms.
//
// swagger:response waitProofRes
type waitProofRes struct { // nolint: unused,deadcode

	// in: body
	verification.WaitProofResponse
}

// verifyProofReq model
//
// This is used for verifyProof request.
//
// swagger:parameters verifyProofReq
type verifyProofReq struct { // nolint: unused,deadcode
	// Params for verifyProof
	//
	// in: body
	verification.VerifyProofRequest
}

// verifyProofRes model
//
// This is used for returning the portal's verification response.
//
// swagger:response verifyProofRes
type verifyProofRes struct { // nolint: unused,deadcode

	// in: body
	verification.VerifyProofResponse
}
