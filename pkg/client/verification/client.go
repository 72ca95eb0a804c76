/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package verification provides the high level client API for running
// identity verification sessions. A Client is bound to one registered
// application and creates sessions against the bridge relay.
//
// Basic usage:
//
//	client, err := verification.New("app_f5a6e2b9")
//	// handle error
//	s, err := client.CreateSession(ctx, &verification.SessionArgs{...})
//	// present s.ConnectorURI() to the user
//	proof, err := client.PollForProof(ctx, s)
package verification

import (
	"context"
	"errors"
	"time"

	"github.com/proofpass/proofpass-go/pkg/bridge/session"
	"github.com/proofpass/proofpass-go/pkg/doc/constraint"
	"github.com/proofpass/proofpass-go/pkg/doc/proof"
	"github.com/proofpass/proofpass-go/pkg/doc/request"
	"github.com/proofpass/proofpass-go/pkg/doc/rpauth"
)

const (
	// DefaultPollInterval is the relay poll cadence used when none is configured.
	DefaultPollInterval = 3 * time.Second

	// DefaultPollTimeout bounds how long PollForProof waits for the user.
	DefaultPollTimeout = 5 * time.Minute
)

// Client runs verification sessions for one registered application.
type Client struct {
	appID        request.AppID
	relay        session.Transport
	bridgeURL    string
	pollInterval time.Duration
	pollTimeout  time.Duration
}

// Opt is a client construction option.
type Opt func(*Client)

// WithBridgeURL points sessions at a self-hosted relay.
func WithBridgeURL(bridgeURL string) Opt {
	return func(c *Client) {
		c.bridgeURL = bridgeURL
	}
}

// WithTransport overrides the relay transport used by sessions.
func WithTransport(relay session.Transport) Opt {
	return func(c *Client) {
		c.relay = relay
	}
}

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(interval time.Duration) Opt {
	return func(c *Client) {
		c.pollInterval = interval
	}
}

// WithPollTimeout overrides DefaultPollTimeout.
func WithPollTimeout(timeout time.Duration) Opt {
	return func(c *Client) {
		c.pollTimeout = timeout
	}
}

// New returns a client for the given application id.
func New(appID string, opts ...Opt) (*Client, error) {
	validated, err := request.ValidateAppID(appID)
	if err != nil {
		return nil, err
	}

	c := &Client{
		appID:        validated,
		pollInterval: DefaultPollInterval,
		pollTimeout:  DefaultPollTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// AppID returns the application the client verifies for.
func (c *Client) AppID() request.AppID {
	return c.appID
}

// SessionArgs carries the per-session inputs. The app id comes from the
// client.
type SessionArgs struct {
	Action            request.Action
	ActionDescription string
	Requests          []*request.Request
	Constraints       *constraint.Node
	RPContext         *rpauth.Context
}

// CreateSession registers a verification request with the relay and returns
// the pending session.
func (c *Client) CreateSession(ctx context.Context, args *SessionArgs) (*session.Session, error) {
	if args == nil {
		return nil, errors.New("session args are required")
	}

	var opts []session.Opt
	if c.relay != nil {
		opts = append(opts, session.WithTransport(c.relay))
	}

	return session.New(ctx, &session.Args{
		AppID:             c.appID.String(),
		Action:            args.Action,
		ActionDescription: args.ActionDescription,
		Requests:          args.Requests,
		Constraints:       args.Constraints,
		RPContext:         args.RPContext,
		BridgeURL:         c.bridgeURL,
	}, opts...)
}

// PollForProof polls the session with the client's interval and timeout until
// it terminates.
func (c *Client) PollForProof(ctx context.Context, s *session.Session) (*proof.Proof, error) {
	if s == nil {
		return nil, errors.New("session is required")
	}

	return s.PollForProof(ctx, c.pollInterval, c.pollTimeout)
}

// Verify is the one-shot convenience: it creates the session and polls it to
// completion. Callers needing the connector URI before the user acts should
// use CreateSession and PollForProof separately.
func (c *Client) Verify(ctx context.Context, args *SessionArgs) (*proof.Proof, error) {
	s, err := c.CreateSession(ctx, args)
	if err != nil {
		return nil, err
	}

	return c.PollForProof(ctx, s)
}
