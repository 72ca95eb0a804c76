/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package verifier checks received proofs against the developer portal. The
// portal performs the cryptographic verification; this client wraps its REST
// endpoint and maps structured rejections to typed errors.
package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/proofpass/proofpass-go/pkg/common/log"
	"github.com/proofpass/proofpass-go/pkg/doc/proof"
	"github.com/proofpass/proofpass-go/pkg/doc/request"
	"github.com/proofpass/proofpass-go/pkg/doc/signal"
)

const (
	// DefaultPortalURL is the hosted developer portal.
	DefaultPortalURL = "https://developer.proofpass.org"

	verifyPath = "/api/v2/verify/"

	contentType = "application/json"

	defaultRequestTimeout = 30 * time.Second
)

// Portal rejection codes with dedicated meaning to callers. The portal may
// emit further codes; they travel through APIError.Code unchanged.
const (
	CodeInvalidProof            = "invalid_proof"
	CodeInvalidMerkleRoot       = "invalid_merkle_root"
	CodeMaxVerificationsReached = "max_verifications_reached"
)

var logger = log.New("proofpass/client/verifier")

// APIError is a structured rejection from the developer portal.
type APIError struct {
	Status    int    `json:"-"`
	Code      string `json:"code"`
	Detail    string `json:"detail"`
	Attribute string `json:"attribute,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("portal rejected proof: %s (%s)", e.Detail, e.Code)
}

// VerifyRequest is the portal verification payload.
type VerifyRequest struct {
	Proof          string                 `json:"proof"`
	MerkleRoot     string                 `json:"merkle_root"`
	NullifierHash  string                 `json:"nullifier_hash"`
	CredentialType request.CredentialType `json:"credential_type"`
	Action         request.Action         `json:"action"`
	SignalHash     signal.Token           `json:"signal_hash,omitempty"`
}

// NewVerifyRequest builds the portal payload from a received proof and the
// action and signal the session was created with.
func NewVerifyRequest(p *proof.Proof, action request.Action, signalHash signal.Token) (*VerifyRequest, error) {
	if p == nil {
		return nil, errors.New("proof is required")
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return &VerifyRequest{
		Proof:          p.Proof,
		MerkleRoot:     p.MerkleRoot,
		NullifierHash:  p.NullifierHash,
		CredentialType: p.CredentialType,
		Action:         action,
		SignalHash:     signalHash,
	}, nil
}

// VerifyResponse is the portal's acceptance body.
type VerifyResponse struct {
	Success       bool   `json:"success"`
	Action        string `json:"action,omitempty"`
	NullifierHash string `json:"nullifier_hash,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
	Uses          int    `json:"uses,omitempty"`
	MaxUses       int    `json:"max_uses,omitempty"`
}

// Client verifies proofs through one developer portal.
type Client struct {
	client    *http.Client
	portalURL string
}

// Opt is a verifier client option.
type Opt func(*Client)

// WithHTTPClient overrides the HTTP client used for portal calls.
func WithHTTPClient(client *http.Client) Opt {
	return func(c *Client) {
		c.client = client
	}
}

// WithPortalURL points the client at a different portal deployment.
func WithPortalURL(portalURL string) Opt {
	return func(c *Client) {
		c.portalURL = strings.TrimSuffix(portalURL, "/")
	}
}

// New returns a portal client for DefaultPortalURL unless overridden.
func New(opts ...Opt) *Client {
	c := &Client{
		client:    &http.Client{Timeout: defaultRequestTimeout},
		portalURL: DefaultPortalURL,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// VerifyProof submits the proof to the portal for the given app. A structured
// portal rejection is returned as *APIError.
func (c *Client) VerifyProof(ctx context.Context, appID request.AppID, verifyReq *VerifyRequest) (*VerifyResponse, error) {
	if _, err := request.ValidateAppID(appID.String()); err != nil {
		return nil, err
	}

	if verifyReq == nil {
		return nil, errors.New("verify request is required")
	}

	body, err := json.Marshal(verifyReq)
	if err != nil {
		return nil, errors.Wrap(err, "marshal verify request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.portalURL+verifyPath+appID.String(), bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "create portal request")
	}

	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "post proof to portal")
	}

	defer closeResponseBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}

	var verified VerifyResponse

	if err := json.NewDecoder(resp.Body).Decode(&verified); err != nil {
		return nil, errors.Wrap(err, "decode portal response")
	}

	return &verified, nil
}

// decodeAPIError maps a non-200 portal reply to *APIError when the body is
// structured, and to a generic error otherwise.
func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Code == "" {
		return errors.Errorf("portal returned status %s", resp.Status)
	}

	return apiErr
}

func closeResponseBody(respBody io.Closer) {
	if err := respBody.Close(); err != nil {
		logger.Errorf("failed to close response body: %v", err)
	}
}
