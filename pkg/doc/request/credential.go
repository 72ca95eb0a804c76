/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package request

import "fmt"

// CredentialType is one of the closed set of credential classes the attestation
// app can present. The declaration order below is the trust ranking used for
// tie-breaking: orb is the strongest, device the weakest.
type CredentialType string

// Credential types in descending trust order.
const (
	CredentialOrb            CredentialType = "orb"
	CredentialFace           CredentialType = "face"
	CredentialSecureDocument CredentialType = "secure_document"
	CredentialDocument       CredentialType = "document"
	CredentialDevice         CredentialType = "device"
)

//nolint:gochecknoglobals
var credentialRanks = map[CredentialType]int{
	CredentialOrb:            0,
	CredentialFace:           1,
	CredentialSecureDocument: 2,
	CredentialDocument:       3,
	CredentialDevice:         4,
}

// CredentialTypes returns all credential types in descending trust order.
func CredentialTypes() []CredentialType {
	return []CredentialType{
		CredentialOrb,
		CredentialFace,
		CredentialSecureDocument,
		CredentialDocument,
		CredentialDevice,
	}
}

// ParseCredentialType maps the wire value to a known credential type.
func ParseCredentialType(v string) (CredentialType, error) {
	ct := CredentialType(v)
	if !ct.Valid() {
		return "", fmt.Errorf("unknown credential type %q", v)
	}

	return ct, nil
}

// Valid reports whether the credential type belongs to the closed set.
func (c CredentialType) Valid() bool {
	_, ok := credentialRanks[c]

	return ok
}

// Rank returns the trust ranking of the credential type, 0 being the strongest.
func (c CredentialType) Rank() int {
	rank, ok := credentialRanks[c]
	if !ok {
		return len(credentialRanks)
	}

	return rank
}

// StrongerThan reports whether c ranks above other in the trust ordering.
func (c CredentialType) StrongerThan(other CredentialType) bool {
	return c.Rank() < other.Rank()
}

// String returns the wire value of the credential type.
func (c CredentialType) String() string {
	return string(c)
}

// supportsFaceAuth reports whether the face_auth attribute is legal for this credential type.
func (c CredentialType) supportsFaceAuth() bool {
	return c == CredentialOrb || c == CredentialFace
}
