/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package session

import (
	"github.com/proofpass/proofpass-go/pkg/doc/proof"
)

// State is the lifecycle state of a verification session.
type State string

const (
	// StateWaitingForConnection means no attestation app has retrieved the
	// request yet.
	StateWaitingForConnection State = "waiting_for_connection"

	// StateAwaitingConfirmation means an app holds the request and the user
	// has not decided yet.
	StateAwaitingConfirmation State = "awaiting_confirmation"

	// StateConfirmed means the app returned a proof. Terminal.
	StateConfirmed State = "confirmed"

	// StateFailed means the verification failed with a terminal error code.
	// Terminal.
	StateFailed State = "failed"
)

//nolint:gochecknoglobals
var stateRanks = map[State]int{
	StateWaitingForConnection: 0,
	StateAwaitingConfirmation: 1,
	StateConfirmed:            2,
	StateFailed:               2,
}

// String returns the wire value of the state.
func (s State) String() string {
	return string(s)
}

// Terminal reports whether the state admits no further transitions.
func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateFailed
}

// CanTransitionTo reports whether the lifecycle permits moving from s to next.
// Progress is strictly forward: a session never leaves a terminal state and
// never moves backwards, so a stale relay read cannot regress it.
func (s State) CanTransitionTo(next State) bool {
	if s.Terminal() {
		return false
	}

	rank, ok := stateRanks[s]
	if !ok {
		return false
	}

	nextRank, ok := stateRanks[next]
	if !ok {
		return false
	}

	return nextRank > rank
}

// Status is a point-in-time view of a session's progress. Proof is set only
// in StateConfirmed and Code only in StateFailed.
type Status struct {
	State State           `json:"state"`
	Proof *proof.Proof    `json:"proof,omitempty"`
	Code  proof.ErrorCode `json:"error_code,omitempty"`
}
