/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rpsign

import (
	"github.com/proofpass/proofpass-go/pkg/controller/command/rpsign"
)

// signRequestReq model
//
// This is used for signRequest request.
//
// swagger:parameters signRequestReq
type signRequestReq struct { // nolint: unused,deadcode
	// Params for signRequest
	//
	// in: body
	rpsign.SignRequestRequest
}

// signRequestRes model
//
// This is used for returning the signed relying party context.
//
// swagger:response signRequestRes
type signRequestRes struct { // nolint: unused,deadcode

	// in: body
	rpsign.SignRequestResponse
}

// verifyContextReq model
//
// This is used for verifyContext request.
//
// swagger:parameters verifyContextReq
type verifyContextReq struct { // nolint: unused,deadcode
	// Params for verifyContext
	//
	// in: body
	rpsign.VerifyContextRequest
}

// verifyContextRes model
//
// This is used for returning the context verification result.
//
// swagger:response verifyContextRes
type verifyContextRes struct { // nolint: unused,deadcode

	// in: body
	rpsign.VerifyContextResponse
}
