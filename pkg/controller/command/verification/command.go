/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package verification provides controller commands for creating verification
// sessions, observing their progress and verifying received proofs.
package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/proofpass/proofpass-go/pkg/bridge/session"
	"github.com/proofpass/proofpass-go/pkg/client/verification"
	"github.com/proofpass/proofpass-go/pkg/client/verifier"
	"github.com/proofpass/proofpass-go/pkg/common/log"
	"github.com/proofpass/proofpass-go/pkg/controller/command"
	"github.com/proofpass/proofpass-go/pkg/controller/internal/cmdutil"
	"github.com/proofpass/proofpass-go/pkg/doc/proof"
	"github.com/proofpass/proofpass-go/pkg/doc/request"
	"github.com/proofpass/proofpass-go/pkg/doc/signal"
	"github.com/proofpass/proofpass-go/pkg/internal/logutil"
	"github.com/proofpass/proofpass-go/pkg/storage"
)

var logger = log.New("proofpass/command/verification")

// Error codes.
const (
	// InvalidRequestErrorCode is typically a code for invalid requests.
	InvalidRequestErrorCode = command.Code(iota + command.Verification)
	// CreateSessionErrorCode is for failures while creating a session.
	CreateSessionErrorCode
	// StatusErrorCode is for failures while reading a session's status.
	StatusErrorCode
	// WaitProofErrorCode is for failures while waiting for a proof.
	WaitProofErrorCode
	// VerifyProofErrorCode is for failures while verifying a proof.
	VerifyProofErrorCode
)

// constants for verification commands.
const (
	// command name.
	CommandName = "verification"

	// command methods.
	CreateSessionCommandMethod = "CreateSession"
	StatusCommandMethod        = "Status"
	WaitProofCommandMethod     = "WaitProof"
	VerifyProofCommandMethod   = "VerifyProof"

	// error messages.
	errEmptyRequestID = "request id is mandatory"
	errEmptyRequests  = "at least one credential request is mandatory"
	errUnknownSession = "unknown request id"
	errInactive       = "session is no longer active"

	// StatusTopic is the webhook topic terminal session statuses are
	// published to.
	StatusTopic = "verification_status"

	storeNamespace = "verification"
)

// provider contains dependencies for the verification command and is
// typically created by using controller.GetCommandHandlers.
type provider interface {
	StorageProvider() storage.Provider
	AppID() string
	BridgeURL() string
	PortalURL() string
}

type config struct {
	relay        session.Transport
	pollInterval time.Duration
	pollTimeout  time.Duration
}

// Opt is a verification command option.
type Opt func(*config)

// WithTransport overrides the relay transport used for sessions.
func WithTransport(relay session.Transport) Opt {
	return func(c *config) {
		c.relay = relay
	}
}

// WithPollInterval overrides the relay poll cadence used by WaitProof.
func WithPollInterval(interval time.Duration) Opt {
	return func(c *config) {
		c.pollInterval = interval
	}
}

// WithPollTimeout overrides the default WaitProof timeout.
func WithPollTimeout(timeout time.Duration) Opt {
	return func(c *config) {
		c.pollTimeout = timeout
	}
}

// Command contains command operations for verification sessions.
type Command struct {
	client   *verification.Client
	verifier *verifier.Client
	store    storage.Store
	notifier command.Notifier

	pollInterval time.Duration
	pollTimeout  time.Duration

	mu   sync.RWMutex
	live map[string]*session.Session
}

// New returns a new verification controller command instance.
func New(p provider, notifier command.Notifier, opts ...Opt) (*Command, error) {
	cfg := &config{
		pollInterval: verification.DefaultPollInterval,
		pollTimeout:  verification.DefaultPollTimeout,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	var clientOpts []verification.Opt

	if p.BridgeURL() != "" {
		clientOpts = append(clientOpts, verification.WithBridgeURL(p.BridgeURL()))
	}

	if cfg.relay != nil {
		clientOpts = append(clientOpts, verification.WithTransport(cfg.relay))
	}

	client, err := verification.New(p.AppID(), clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create verification client: %w", err)
	}

	var verifierOpts []verifier.Opt

	if p.PortalURL() != "" {
		verifierOpts = append(verifierOpts, verifier.WithPortalURL(p.PortalURL()))
	}

	store, err := p.StorageProvider().OpenStore(storeNamespace)
	if err != nil {
		return nil, fmt.Errorf("open verification store: %w", err)
	}

	return &Command{
		client:       client,
		verifier:     verifier.New(verifierOpts...),
		store:        store,
		notifier:     notifier,
		pollInterval: cfg.pollInterval,
		pollTimeout:  cfg.pollTimeout,
		live:         make(map[string]*session.Session),
	}, nil
}

// GetHandlers returns list of all commands supported by this controller command.
func (o *Command) GetHandlers() []command.Handler {
	return []command.Handler{
		cmdutil.NewCommandHandler(CommandName, CreateSessionCommandMethod, o.CreateSession),
		cmdutil.NewCommandHandler(CommandName, StatusCommandMethod, o.Status),
		cmdutil.NewCommandHandler(CommandName, WaitProofCommandMethod, o.WaitProof),
		cmdutil.NewCommandHandler(CommandName, VerifyProofCommandMethod, o.VerifyProof),
	}
}

// CreateSession registers a new verification request with the relay and
// returns its request id and connector URI.
func (o *Command) CreateSession(rw io.Writer, req io.Reader) command.Error {
	var createReq CreateSessionRequest

	err := json.NewDecoder(req).Decode(&createReq)
	if err != nil {
		logutil.LogInfo(logger, CommandName, CreateSessionCommandMethod, err.Error())
		return command.NewValidationError(InvalidRequestErrorCode, fmt.Errorf("failed request decode : %w", err))
	}

	if len(createReq.Requests) == 0 {
		logutil.LogDebug(logger, CommandName, CreateSessionCommandMethod, errEmptyRequests)
		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyRequests))
	}

	requests, err := buildRequests(createReq.Requests)
	if err != nil {
		logutil.LogInfo(logger, CommandName, CreateSessionCommandMethod, err.Error())
		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	s, err := o.client.CreateSession(context.Background(), &verification.SessionArgs{
		Action:            request.NewAction(createReq.Action),
		ActionDescription: createReq.ActionDescription,
		Requests:          requests,
		Constraints:       createReq.Constraints,
		RPContext:         createReq.RPContext,
	})
	if err != nil {
		logutil.LogError(logger, CommandName, CreateSessionCommandMethod, err.Error())
		return command.NewExecuteError(CreateSessionErrorCode, err)
	}

	o.mu.Lock()
	o.live[s.RequestID()] = s
	o.mu.Unlock()

	o.saveRecord(s, s.Status())

	command.WriteNillableResponse(rw, &CreateSessionResponse{
		RequestID:    s.RequestID(),
		ConnectorURI: s.ConnectorURI(),
		State:        s.Status().State.String(),
	}, logger)

	logutil.LogDebug(logger, CommandName, CreateSessionCommandMethod, "success",
		logutil.CreateKeyValueString("request_id", s.RequestID()))

	return nil
}

// Status polls the relay once for the given session and returns its state.
// Sessions that are no longer live are answered from the persisted record.
func (o *Command) Status(rw io.Writer, req io.Reader) command.Error {
	var statusReq StatusRequest

	err := json.NewDecoder(req).Decode(&statusReq)
	if err != nil {
		logutil.LogInfo(logger, CommandName, StatusCommandMethod, err.Error())
		return command.NewValidationError(InvalidRequestErrorCode, fmt.Errorf("failed request decode : %w", err))
	}

	if statusReq.RequestID == "" {
		logutil.LogDebug(logger, CommandName, StatusCommandMethod, errEmptyRequestID)
		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyRequestID))
	}

	o.mu.RLock()
	s, live := o.live[statusReq.RequestID]
	o.mu.RUnlock()

	if !live {
		record, err := o.readRecord(statusReq.RequestID)
		if err != nil {
			logutil.LogInfo(logger, CommandName, StatusCommandMethod, err.Error())
			return command.NewExecuteError(StatusErrorCode, errors.New(errUnknownSession))
		}

		command.WriteNillableResponse(rw, &StatusResponse{
			RequestID: record.RequestID,
			State:     record.State,
			ErrorCode: record.ErrorCode,
		}, logger)

		return nil
	}

	status, err := s.PollOnce(context.Background())
	if err != nil {
		logutil.LogError(logger, CommandName, StatusCommandMethod, err.Error())
		return command.NewExecuteError(StatusErrorCode, err)
	}

	o.observeStatus(s, status)

	command.WriteNillableResponse(rw, &StatusResponse{
		RequestID: s.RequestID(),
		State:     status.State.String(),
		Proof:     status.Proof,
		ErrorCode: status.Code,
	}, logger)

	logutil.LogDebug(logger, CommandName, StatusCommandMethod, "success",
		logutil.CreateKeyValueString("state", status.State.String()))

	return nil
}

// WaitProof blocks until the session terminates, the configured timeout
// elapses or the request is cancelled, and returns the proof on confirmation.
func (o *Command) WaitProof(rw io.Writer, req io.Reader) command.Error {
	var waitReq WaitProofRequest

	err := json.NewDecoder(req).Decode(&waitReq)
	if err != nil {
		logutil.LogInfo(logger, CommandName, WaitProofCommandMethod, err.Error())
		return command.NewValidationError(InvalidRequestErrorCode, fmt.Errorf("failed request decode : %w", err))
	}

	if waitReq.RequestID == "" {
		logutil.LogDebug(logger, CommandName, WaitProofCommandMethod, errEmptyRequestID)
		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyRequestID))
	}

	o.mu.RLock()
	s, live := o.live[waitReq.RequestID]
	o.mu.RUnlock()

	if !live {
		msg := errUnknownSession
		if _, err := o.readRecord(waitReq.RequestID); err == nil {
			msg = errInactive
		}

		logutil.LogDebug(logger, CommandName, WaitProofCommandMethod, msg)

		return command.NewExecuteError(WaitProofErrorCode, errors.New(msg))
	}

	timeout := o.pollTimeout
	if waitReq.TimeoutSeconds > 0 {
		timeout = time.Duration(waitReq.TimeoutSeconds) * time.Second
	}

	p, err := s.PollForProof(context.Background(), o.pollInterval, timeout)

	o.observeStatus(s, s.Status())

	if err != nil {
		logutil.LogError(logger, CommandName, WaitProofCommandMethod, err.Error())
		return command.NewExecuteError(WaitProofErrorCode, err)
	}

	command.WriteNillableResponse(rw, &WaitProofResponse{
		RequestID: s.RequestID(),
		Proof:     p,
	}, logger)

	logutil.LogDebug(logger, CommandName, WaitProofCommandMethod, "success")

	return nil
}

// VerifyProof submits a received proof to the developer portal.
func (o *Command) VerifyProof(rw io.Writer, req io.Reader) command.Error {
	var verifyReq VerifyProofRequest

	err := json.NewDecoder(req).Decode(&verifyReq)
	if err != nil {
		logutil.LogInfo(logger, CommandName, VerifyProofCommandMethod, err.Error())
		return command.NewValidationError(InvalidRequestErrorCode, fmt.Errorf("failed request decode : %w", err))
	}

	credentialType, err := request.ParseCredentialType(verifyReq.CredentialType)
	if err != nil {
		logutil.LogDebug(logger, CommandName, VerifyProofCommandMethod, err.Error())
		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	appID := o.client.AppID()
	if verifyReq.AppID != "" {
		validated, err := request.ValidateAppID(verifyReq.AppID)
		if err != nil {
			logutil.LogDebug(logger, CommandName, VerifyProofCommandMethod, err.Error())
			return command.NewValidationError(InvalidRequestErrorCode, err)
		}

		appID = validated
	}

	verified, err := o.verifier.VerifyProof(context.Background(), appID, &verifier.VerifyRequest{
		Proof:          verifyReq.Proof,
		MerkleRoot:     verifyReq.MerkleRoot,
		NullifierHash:  verifyReq.NullifierHash,
		CredentialType: credentialType,
		Action:         request.NewAction(verifyReq.Action),
		SignalHash:     signal.Token(verifyReq.SignalHash),
	})
	if err != nil {
		logutil.LogError(logger, CommandName, VerifyProofCommandMethod, err.Error())
		return command.NewExecuteError(VerifyProofErrorCode, err)
	}

	command.WriteNillableResponse(rw, &VerifyProofResponse{VerifyResponse: *verified}, logger)

	logutil.LogDebug(logger, CommandName, VerifyProofCommandMethod, "success")

	return nil
}

// observeStatus persists the latest status and publishes a webhook event the
// first time a session is seen terminal.
func (o *Command) observeStatus(s *session.Session, status session.Status) {
	changed := o.saveRecord(s, status)

	if !status.State.Terminal() || !changed || o.notifier == nil {
		return
	}

	event, err := json.Marshal(&StatusEvent{
		RequestID: s.RequestID(),
		AppID:     s.AppID().String(),
		State:     status.State.String(),
		ErrorCode: status.Code,
	})
	if err != nil {
		logger.Errorf("failed to marshal status event: %v", err)
		return
	}

	if err := o.notifier.Notify(StatusTopic, event); err != nil {
		logger.Warnf("failed to notify subscribers about request %s: %v", s.RequestID(), err)
	}
}

// saveRecord writes the session's persisted view and reports whether the
// stored state changed.
func (o *Command) saveRecord(s *session.Session, status session.Status) bool {
	now := time.Now().Unix()

	record := &SessionRecord{
		RequestID:    s.RequestID(),
		AppID:        s.AppID().String(),
		Action:       s.Action().Canonical(),
		State:        status.State.String(),
		ErrorCode:    status.Code,
		ConnectorURI: s.ConnectorURI(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	changed := true

	if old, err := o.readRecord(s.RequestID()); err == nil {
		record.CreatedAt = old.CreatedAt
		changed = old.State != record.State
	}

	data, err := json.Marshal(record)
	if err != nil {
		logger.Errorf("failed to marshal session record: %v", err)
		return changed
	}

	if err := o.store.Put(s.RequestID(), data); err != nil {
		logger.Errorf("failed to persist session record: %v", err)
	}

	return changed
}

func (o *Command) readRecord(requestID string) (*SessionRecord, error) {
	data, err := o.store.Get(requestID)
	if err != nil {
		return nil, err
	}

	record := &SessionRecord{}
	if err := json.Unmarshal(data, record); err != nil {
		return nil, fmt.Errorf("unmarshal session record: %w", err)
	}

	return record, nil
}

// buildRequests turns boundary templates into validated requests, hashing raw
// signals on the way.
func buildRequests(templates []RequestTemplate) ([]*request.Request, error) {
	requests := make([]*request.Request, 0, len(templates))

	for i, tmpl := range templates {
		credentialType, err := request.ParseCredentialType(tmpl.CredentialType)
		if err != nil {
			return nil, fmt.Errorf("request %d: %w", i, err)
		}

		var opts []request.Opt

		if tmpl.Signal != "" {
			opts = append(opts, request.WithSignal(tmpl.Signal))
		}

		if tmpl.FaceAuth {
			opts = append(opts, request.WithFaceAuth())
		}

		r, err := request.New(credentialType, opts...)
		if err != nil {
			return nil, fmt.Errorf("request %d: %w", i, err)
		}

		requests = append(requests, r)
	}

	return requests, nil
}
