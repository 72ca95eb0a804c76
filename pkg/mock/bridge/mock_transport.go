/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package bridge

import (
	"context"
	"sync"

	"github.com/proofpass/proofpass-go/pkg/bridge"
)

// MockTransport mock implementation of the bridge relay transport.
//
// FetchStatus replays Statuses in order and repeats the final entry once the
// script is exhausted, so a test can model initialized -> retrieved ->
// completed with a three-element script.
type MockTransport struct {
	CreateRequestFunc func(ctx context.Context, env *bridge.Envelope) (string, error)
	FetchStatusFunc   func(ctx context.Context, requestID string) (*bridge.PollResponse, error)

	RequestID        string
	ErrCreateRequest error
	ErrFetchStatus   error
	Statuses         []*bridge.PollResponse

	mu               sync.Mutex
	createdEnvelopes []*bridge.Envelope
	fetchCount       int
	next             int
}

// CreateRequest mock publish of a sealed request envelope.
func (m *MockTransport) CreateRequest(ctx context.Context, env *bridge.Envelope) (string, error) {
	if m.CreateRequestFunc != nil {
		return m.CreateRequestFunc(ctx, env)
	}

	if m.ErrCreateRequest != nil {
		return "", m.ErrCreateRequest
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.createdEnvelopes = append(m.createdEnvelopes, env)

	if m.RequestID != "" {
		return m.RequestID, nil
	}

	return "mock-request-id", nil
}

// FetchStatus mock fetch of the relay status document.
func (m *MockTransport) FetchStatus(ctx context.Context, requestID string) (*bridge.PollResponse, error) {
	if m.FetchStatusFunc != nil {
		return m.FetchStatusFunc(ctx, requestID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.fetchCount++

	if m.ErrFetchStatus != nil {
		return nil, m.ErrFetchStatus
	}

	if len(m.Statuses) == 0 {
		return &bridge.PollResponse{Status: bridge.StatusInitialized}, nil
	}

	idx := m.next
	if idx >= len(m.Statuses) {
		idx = len(m.Statuses) - 1
	}

	m.next++

	return m.Statuses[idx], nil
}

// CreatedEnvelopes returns the envelopes published through the mock.
func (m *MockTransport) CreatedEnvelopes() []*bridge.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.createdEnvelopes
}

// FetchCount returns how many times FetchStatus was called.
func (m *MockTransport) FetchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.fetchCount
}
