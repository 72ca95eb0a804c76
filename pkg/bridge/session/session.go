/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package session implements the verification session lifecycle: sealing and
// registering a request with the bridge relay, deriving the connector URI and
// polling the relay until the attestation app answers.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/proofpass/proofpass-go/pkg/bridge"
	"github.com/proofpass/proofpass-go/pkg/bridge/packer"
	"github.com/proofpass/proofpass-go/pkg/bridge/transport"
	"github.com/proofpass/proofpass-go/pkg/common/log"
	"github.com/proofpass/proofpass-go/pkg/doc/constraint"
	"github.com/proofpass/proofpass-go/pkg/doc/proof"
	"github.com/proofpass/proofpass-go/pkg/doc/request"
	"github.com/proofpass/proofpass-go/pkg/doc/rpauth"
)

var logger = log.New("proofpass/bridge/session")

var (
	// ErrTimeout is returned by PollForProof when the polling window elapses
	// without the session reaching a terminal state.
	ErrTimeout = errors.New("verification polling timed out")

	// ErrCancelled is returned by PollForProof when the caller's context ends
	// before the session reaches a terminal state.
	ErrCancelled = errors.New("verification polling cancelled")
)

var errNotTerminal = errors.New("session has not reached a terminal state")

// Transport publishes sealed request envelopes and fetches status documents
// from a bridge relay.
type Transport interface {
	CreateRequest(ctx context.Context, env *bridge.Envelope) (string, error)
	FetchStatus(ctx context.Context, requestID string) (*bridge.PollResponse, error)
}

// Args carries the inputs to session creation.
type Args struct {
	AppID             string
	Action            request.Action
	ActionDescription string
	Requests          []*request.Request
	Constraints       *constraint.Node
	RPContext         *rpauth.Context
	BridgeURL         string
}

type options struct {
	relay Transport
	now   func() time.Time
}

// Opt is a session creation option.
type Opt func(*options)

// WithTransport overrides the relay transport. Args.BridgeURL only affects
// the connector URI when a custom transport is in place.
func WithTransport(relay Transport) Opt {
	return func(o *options) {
		o.relay = relay
	}
}

// WithClock overrides the time source used to validate the relying party
// context window.
func WithClock(now func() time.Time) Opt {
	return func(o *options) {
		o.now = now
	}
}

// Session is one pending verification. Its request id and connector URI are
// fixed at creation; its status only moves forward.
type Session struct {
	requestID    string
	connectorURI string
	appID        request.AppID
	action       request.Action
	tree         *constraint.Node
	packer       *packer.Packer
	relay        Transport

	mu     sync.RWMutex
	status Status
}

// New validates the arguments, seals the request payload under fresh key
// material and registers it with the relay. The returned session starts in
// StateWaitingForConnection.
//
// Key material is generated per session and never reused. Retrying a failed
// creation produces a new session with new key material.
func New(ctx context.Context, args *Args, opts ...Opt) (*Session, error) {
	if args == nil {
		return nil, errors.New("session args are required")
	}

	o := &options{now: time.Now}

	for _, opt := range opts {
		opt(o)
	}

	if o.relay == nil {
		var topts []transport.Opt
		if args.BridgeURL != "" {
			topts = append(topts, transport.WithBridgeURL(args.BridgeURL))
		}

		o.relay = transport.New(topts...)
	}

	appID, err := request.ValidateAppID(args.AppID)
	if err != nil {
		return nil, err
	}

	if err := request.ValidateAll(args.Requests); err != nil {
		return nil, err
	}

	if err := args.RPContext.Validate(o.now()); err != nil {
		return nil, err
	}

	tree, err := constraint.Build(args.Requests, args.Constraints)
	if err != nil {
		return nil, err
	}

	km := packer.GenerateKeyMaterial()

	p, err := packer.New(km)
	if err != nil {
		return nil, fmt.Errorf("create session packer: %w", err)
	}

	plaintext, err := json.Marshal(&bridge.RequestPayload{
		AppID:             appID,
		Action:            args.Action,
		ActionDescription: args.ActionDescription,
		Requests:          args.Requests,
		Constraints:       tree,
		RPContext:         args.RPContext,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request payload: %w", err)
	}

	env, err := p.Seal(plaintext)
	if err != nil {
		return nil, fmt.Errorf("seal request payload: %w", err)
	}

	requestID, err := o.relay.CreateRequest(ctx, env)
	if err != nil {
		return nil, fmt.Errorf("register request with relay: %w", err)
	}

	connectorURI, err := buildConnectorURI(requestID, km, args.BridgeURL)
	if err != nil {
		return nil, fmt.Errorf("derive connector uri: %w", err)
	}

	logger.Debugf("created verification session: request id %s, app %s", requestID, appID)

	return &Session{
		requestID:    requestID,
		connectorURI: connectorURI,
		appID:        appID,
		action:       args.Action,
		tree:         tree,
		packer:       p,
		relay:        o.relay,
		status:       Status{State: StateWaitingForConnection},
	}, nil
}

// RequestID returns the relay-assigned id of this session's request.
func (s *Session) RequestID() string {
	return s.requestID
}

// ConnectorURI returns the pairing URI the attestation app consumes.
func (s *Session) ConnectorURI() string {
	return s.connectorURI
}

// AppID returns the application this session verifies for.
func (s *Session) AppID() request.AppID {
	return s.appID
}

// Action returns the action this session attests to.
func (s *Session) Action() request.Action {
	return s.action
}

// Status returns the session's current status.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.status
}

// applyStatus advances the cached status if the transition is legal. Illegal
// transitions are dropped, so a stale relay read cannot move a session
// backwards or out of a terminal state.
func (s *Session) applyStatus(next Status) Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.status.State.CanTransitionTo(next.State) {
		return s.status
	}

	s.status = next

	return s.status
}

// PollOnce fetches the relay's view once and applies it. It returns the
// (possibly unchanged) status. A relay that does not know the request id yet
// is treated as not-yet-propagated, not as an error.
func (s *Session) PollOnce(ctx context.Context) (Status, error) {
	if current := s.Status(); current.State.Terminal() {
		return current, nil
	}

	poll, err := s.relay.FetchStatus(ctx, s.requestID)
	if err != nil {
		if errors.Is(err, transport.ErrRequestNotFound) {
			logger.Debugf("request %s not visible on relay yet", s.requestID)
			return s.Status(), nil
		}

		return s.Status(), fmt.Errorf("fetch relay status: %w", err)
	}

	switch poll.Status {
	case bridge.StatusInitialized:
		return s.Status(), nil
	case bridge.StatusRetrieved:
		return s.applyStatus(Status{State: StateAwaitingConfirmation}), nil
	case bridge.StatusCompleted:
		return s.applyStatus(s.decodeCompletion(poll.Response)), nil
	default:
		logger.Warnf("relay returned unknown status %q for request %s", poll.Status, s.requestID)
		return s.Status(), nil
	}
}

// decodeCompletion turns a completion envelope into a terminal status. Any
// envelope that cannot be authenticated, decrypted and decoded into a proof
// that satisfies the session's constraints fails the session rather than
// confirming it.
func (s *Session) decodeCompletion(env *bridge.Envelope) Status {
	if env == nil {
		logger.Warnf("relay reported completion without a response envelope for request %s", s.requestID)
		return Status{State: StateFailed, Code: proof.ErrUnexpectedResponse}
	}

	plaintext, err := s.packer.Open(env)
	if err != nil {
		logger.Warnf("failed to open completion envelope for request %s: %v", s.requestID, err)
		return Status{State: StateFailed, Code: proof.ErrUnexpectedResponse}
	}

	p, code, err := bridge.DecodeCompletion(plaintext)
	if err != nil {
		logger.Warnf("malformed completion payload for request %s: %v", s.requestID, err)
		return Status{State: StateFailed, Code: proof.ErrUnexpectedResponse}
	}

	if p == nil {
		return Status{State: StateFailed, Code: code}
	}

	if !s.tree.Evaluate(p.CredentialType) {
		logger.Warnf("completion credential %q does not satisfy session constraints for request %s",
			p.CredentialType, s.requestID)

		return Status{State: StateFailed, Code: proof.ErrUnexpectedResponse}
	}

	return Status{State: StateConfirmed, Proof: p}
}

// PollForProof polls the relay at the given interval until the session
// reaches a terminal state, the timeout elapses or ctx ends. On confirmation
// it returns the proof. A failed verification surfaces as
// *proof.VerificationError, an elapsed window as ErrTimeout and a cancelled
// context as ErrCancelled.
func (s *Session) PollForProof(ctx context.Context, interval, timeout time.Duration) (*proof.Proof, error) {
	if interval <= 0 {
		return nil, errors.New("poll interval must be positive")
	}

	if timeout < interval {
		return nil, errors.New("poll timeout must be at least one interval")
	}

	operation := func() error {
		select {
		case <-ctx.Done():
			return backoff.Permanent(ErrCancelled)
		default:
		}

		status, err := s.PollOnce(ctx)
		if err != nil {
			logger.Warnf("poll attempt for request %s failed: %v", s.requestID, err)
			return err
		}

		switch status.State {
		case StateConfirmed:
			return nil
		case StateFailed:
			return backoff.Permanent(proof.NewVerificationError(status.Code))
		default:
			return errNotTerminal
		}
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), uint64(timeout/interval)), ctx)

	err := backoff.Retry(operation, policy)

	var verificationErr *proof.VerificationError

	switch {
	case err == nil:
		return s.Status().Proof, nil
	case errors.As(err, &verificationErr):
		return nil, verificationErr
	case errors.Is(err, ErrCancelled), ctx.Err() != nil:
		return nil, ErrCancelled
	case errors.Is(err, errNotTerminal):
		return nil, ErrTimeout
	default:
		return nil, fmt.Errorf("%w: last poll error: %v", ErrTimeout, err)
	}
}
