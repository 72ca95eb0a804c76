/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package session

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/multiformats/go-multibase"

	"github.com/proofpass/proofpass-go/pkg/bridge/packer"
	"github.com/proofpass/proofpass-go/pkg/bridge/transport"
)

const (
	// DefaultPairingBaseURL is the hosted pairing page connector URIs point at.
	// An attestation app installed on the device intercepts the link; without
	// one, the page walks the user through pairing.
	DefaultPairingBaseURL = "https://pair.proofpass.org/verify"

	protocolTag = "ppid"
)

// ConnectorInfo is the decoded content of a connector URI: everything an
// attestation app needs to resolve and answer one session.
type ConnectorInfo struct {
	RequestID string
	Key       []byte
	Nonce     []byte
	BridgeURL string
}

func buildConnectorURI(requestID string, km *packer.KeyMaterial, bridgeURL string) (string, error) {
	key, err := multibase.Encode(multibase.Base64url, km.Key)
	if err != nil {
		return "", fmt.Errorf("encode session key: %w", err)
	}

	nonce, err := multibase.Encode(multibase.Base64url, km.Nonce)
	if err != nil {
		return "", fmt.Errorf("encode session nonce: %w", err)
	}

	q := url.Values{}
	q.Set("t", protocolTag)
	q.Set("i", requestID)
	q.Set("k", key)
	q.Set("n", nonce)

	// the default bridge is implied, only custom relays travel in the URI
	if bridgeURL != "" && bridgeURL != transport.DefaultBridgeURL {
		q.Set("b", bridgeURL)
	}

	return DefaultPairingBaseURL + "?" + q.Encode(), nil
}

// ParseConnectorURI decodes a connector URI produced by New.
func ParseConnectorURI(raw string) (*ConnectorInfo, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse connector uri: %w", err)
	}

	q := u.Query()

	if tag := q.Get("t"); tag != protocolTag {
		return nil, fmt.Errorf("unsupported connector protocol %q", tag)
	}

	requestID := q.Get("i")
	if requestID == "" {
		return nil, errors.New("connector uri is missing the request id")
	}

	_, key, err := multibase.Decode(q.Get("k"))
	if err != nil {
		return nil, fmt.Errorf("decode session key: %w", err)
	}

	if len(key) != packer.KeySize {
		return nil, fmt.Errorf("session key must be %d bytes, got %d", packer.KeySize, len(key))
	}

	_, nonce, err := multibase.Decode(q.Get("n"))
	if err != nil {
		return nil, fmt.Errorf("decode session nonce: %w", err)
	}

	if len(nonce) != packer.NonceSize {
		return nil, fmt.Errorf("session nonce must be %d bytes, got %d", packer.NonceSize, len(nonce))
	}

	bridgeURL := q.Get("b")
	if bridgeURL == "" {
		bridgeURL = transport.DefaultBridgeURL
	}

	return &ConnectorInfo{
		RequestID: requestID,
		Key:       key,
		Nonce:     nonce,
		BridgeURL: bridgeURL,
	}, nil
}
