/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package proofpass enables Go developers to request and verify privacy-preserving
// identity attestations from the ProofPass mobile app over an untrusted bridge relay.
//
// Packages for end developer usage
//
// pkg/client/verification: Creates verification sessions and polls them to a terminal
// proof or failure.
// Reference: https://pkg.go.dev/github.com/proofpass/proofpass-go/pkg/client/verification
//
// pkg/client/verifier: Verifies received proofs against the developer portal.
// Reference: https://pkg.go.dev/github.com/proofpass/proofpass-go/pkg/client/verifier
//
// pkg/controller/rest/verification: Provides the verification session flow over REST.
// Reference: https://pkg.go.dev/github.com/proofpass/proofpass-go/pkg/controller/rest/verification
//
// Basic workflow
//
//	1) Create a client instance using its New func, passing your app ID and options.
//	2) Call CreateSession with the credential requests for your action.
//	3) Render the session's connector URI to the user (QR code or deep link).
//	4) Call PollForProof to wait for the attestation result.
//	5) Pass the proof to your backend and verify it with the verifier client.
package proofpass
