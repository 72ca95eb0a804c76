/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package transport implements the HTTP client side of the bridge relay
// protocol. It publishes sealed request envelopes and fetches status
// documents, and never sees plaintext.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/proofpass/proofpass-go/pkg/bridge"
	"github.com/proofpass/proofpass-go/pkg/common/log"
)

const (
	// DefaultBridgeURL is the hosted relay used when no custom bridge URL
	// is configured.
	DefaultBridgeURL = "https://bridge.proofpass.org"

	contentType = "application/json"

	defaultRequestTimeout = 30 * time.Second
)

var logger = log.New("proofpass/bridge/transport")

// ErrRequestNotFound is returned by FetchStatus when the relay does not know
// the request id. A freshly created request may not have propagated yet, so
// callers treat this as transient.
var ErrRequestNotFound = errors.New("bridge request not found")

// Client talks to one bridge relay.
type Client struct {
	client    *http.Client
	bridgeURL string
}

// Opt is a bridge transport client option.
type Opt func(*Client)

// WithHTTPClient overrides the HTTP client used for relay calls.
func WithHTTPClient(client *http.Client) Opt {
	return func(c *Client) {
		c.client = client
	}
}

// WithBridgeURL points the client at a self-hosted relay instead of the
// default hosted one.
func WithBridgeURL(bridgeURL string) Opt {
	return func(c *Client) {
		c.bridgeURL = strings.TrimSuffix(bridgeURL, "/")
	}
}

// WithTLSConfig sets the TLS configuration on the underlying HTTP transport.
func WithTLSConfig(tlsConfig *tls.Config) Opt {
	return func(c *Client) {
		c.client = &http.Client{
			Timeout: defaultRequestTimeout,
			Transport: &http.Transport{
				TLSClientConfig: tlsConfig,
			},
		}
	}
}

// New returns a relay client for DefaultBridgeURL unless overridden.
func New(opts ...Opt) *Client {
	c := &Client{
		client:    &http.Client{Timeout: defaultRequestTimeout},
		bridgeURL: DefaultBridgeURL,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BridgeURL returns the relay base URL the client talks to.
func (c *Client) BridgeURL() string {
	return c.bridgeURL
}

// CreateRequest publishes a sealed request envelope and returns the request
// id assigned by the relay.
func (c *Client) CreateRequest(ctx context.Context, env *bridge.Envelope) (string, error) {
	if env == nil {
		return "", errors.New("envelope is required")
	}

	body, err := json.Marshal(env)
	if err != nil {
		return "", errors.Wrap(err, "marshal envelope")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.bridgeURL+"/request", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "create relay request")
	}

	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "post request envelope")
	}

	defer closeResponseBody(resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", errors.Errorf("relay rejected request: status %s", resp.Status)
	}

	var created bridge.CreateResponse

	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", errors.Wrap(err, "decode create response")
	}

	if created.RequestID == "" {
		return "", errors.New("relay returned an empty request id")
	}

	return created.RequestID, nil
}

// FetchStatus retrieves the relay's status document for a request id.
func (c *Client) FetchStatus(ctx context.Context, requestID string) (*bridge.PollResponse, error) {
	if requestID == "" {
		return nil, errors.New("request id is required")
	}

	statusURL := c.bridgeURL + "/response/" + url.PathEscape(requestID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create relay request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "get request status")
	}

	defer closeResponseBody(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.Wrapf(ErrRequestNotFound, "request %s", requestID)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("relay returned status %s", resp.Status)
	}

	var poll bridge.PollResponse

	if err := json.NewDecoder(resp.Body).Decode(&poll); err != nil {
		return nil, errors.Wrap(err, "decode status response")
	}

	if poll.Status == "" {
		return nil, errors.New("relay status document is missing a status")
	}

	return &poll, nil
}

func closeResponseBody(respBody io.Closer) {
	if err := respBody.Close(); err != nil {
		logger.Errorf("failed to close response body: %v", err)
	}
}
