/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package request

import (
	"encoding/hex"
)

// Action identifies the operation being authorized by a verification. It is
// immutable once constructed: either a raw string kept verbatim or an ABI
// encoded byte payload rendered in its 0x-hex form. An empty action is legal
// and canonicalizes to the empty string.
type Action struct {
	value string
}

// NewAction creates an action from its raw string form.
func NewAction(value string) Action {
	return Action{value: value}
}

// NewActionBytes creates an action from an ABI encoded payload.
func NewActionBytes(payload []byte) Action {
	if len(payload) == 0 {
		return Action{}
	}

	return Action{value: "0x" + hex.EncodeToString(payload)}
}

// Canonical returns the deterministic string form of the action. This is the
// exact value bound into relying party signatures and bridge payloads.
func (a Action) Canonical() string {
	return a.value
}

// IsEmpty reports whether the action carries no value.
func (a Action) IsEmpty() bool {
	return a.value == ""
}

// String returns the canonical form.
func (a Action) String() string {
	return a.value
}

// MarshalText renders the canonical form.
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.value), nil
}

// UnmarshalText restores an action from its canonical form.
func (a *Action) UnmarshalText(text []byte) error {
	a.value = string(text)

	return nil
}
