/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package rpsign provides controller commands for issuing and checking signed
// relying party contexts. These commands wrap the relying party's private key
// and belong on the relying party's backend, never in a client runtime.
package rpsign

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/proofpass/proofpass-go/pkg/common/log"
	"github.com/proofpass/proofpass-go/pkg/controller/command"
	"github.com/proofpass/proofpass-go/pkg/controller/internal/cmdutil"
	"github.com/proofpass/proofpass-go/pkg/doc/request"
	"github.com/proofpass/proofpass-go/pkg/doc/rpauth"
	"github.com/proofpass/proofpass-go/pkg/internal/logutil"
)

var logger = log.New("proofpass/command/rpsign")

// Error codes.
const (
	// InvalidRequestErrorCode is typically a code for invalid requests.
	InvalidRequestErrorCode = command.Code(iota + command.RPSign)
	// SignRequestErrorCode is for failures while signing a context.
	SignRequestErrorCode
	// VerifyContextErrorCode is for failures while verifying a context.
	VerifyContextErrorCode
)

// constants for rpsign commands.
const (
	// command name.
	CommandName = "rpsign"

	// command methods.
	SignRequestCommandMethod   = "SignRequest"
	VerifyContextCommandMethod = "VerifyContext"

	// error messages.
	errEmptyAction  = "action is mandatory"
	errEmptyContext = "rp context is mandatory"
)

// provider contains dependencies for the rpsign command and is typically
// created by using controller.GetCommandHandlers.
type provider interface {
	RPID() string
	RPPrivateKey() *ecdsa.PrivateKey
}

type config struct {
	ttl      time.Duration
	resolver rpauth.KeyResolver
	guard    *rpauth.NonceGuard
}

// Opt is an rpsign command option.
type Opt func(*config)

// WithTTL overrides the validity window applied to signed contexts.
func WithTTL(ttl time.Duration) Opt {
	return func(c *config) {
		c.ttl = ttl
	}
}

// WithKeyResolver overrides the key registry used to verify presented
// contexts. The default registry holds only this agent's own key.
func WithKeyResolver(resolver rpauth.KeyResolver) Opt {
	return func(c *config) {
		c.resolver = resolver
	}
}

// WithNonceGuard overrides the replay guard shared with other verifying
// components.
func WithNonceGuard(guard *rpauth.NonceGuard) Opt {
	return func(c *config) {
		c.guard = guard
	}
}

// Command contains command operations for relying party signatures.
type Command struct {
	signer   *rpauth.Signer
	verifier *rpauth.Verifier
}

// New returns a new rpsign controller command instance.
func New(p provider, opts ...Opt) (*Command, error) {
	cfg := &config{}

	for _, opt := range opts {
		opt(cfg)
	}

	var signerOpts []rpauth.SignerOpt

	if cfg.ttl > 0 {
		signerOpts = append(signerOpts, rpauth.WithTTL(cfg.ttl))
	}

	signer, err := rpauth.NewSigner(p.RPID(), p.RPPrivateKey(), signerOpts...)
	if err != nil {
		return nil, fmt.Errorf("create relying party signer: %w", err)
	}

	resolver := cfg.resolver

	if resolver == nil {
		registry := rpauth.NewStaticKeyResolver()
		if err := registry.Register(p.RPID(), p.RPPrivateKey().Public()); err != nil {
			return nil, fmt.Errorf("register relying party key: %w", err)
		}

		resolver = registry
	}

	guard := cfg.guard
	if guard == nil {
		guard = rpauth.NewNonceGuard()
	}

	verifier, err := rpauth.NewVerifier(resolver, rpauth.WithNonceGuard(guard))
	if err != nil {
		return nil, fmt.Errorf("create relying party verifier: %w", err)
	}

	return &Command{signer: signer, verifier: verifier}, nil
}

// GetHandlers returns list of all commands supported by this controller command.
func (o *Command) GetHandlers() []command.Handler {
	return []command.Handler{
		cmdutil.NewCommandHandler(CommandName, SignRequestCommandMethod, o.SignRequest),
		cmdutil.NewCommandHandler(CommandName, VerifyContextCommandMethod, o.VerifyContext),
	}
}

// SignRequest issues a signed, time-boxed relying party context authorizing
// the given action. Each call produces a fresh nonce.
func (o *Command) SignRequest(rw io.Writer, req io.Reader) command.Error {
	var signReq SignRequestRequest

	err := json.NewDecoder(req).Decode(&signReq)
	if err != nil {
		logutil.LogInfo(logger, CommandName, SignRequestCommandMethod, err.Error())
		return command.NewValidationError(InvalidRequestErrorCode, fmt.Errorf("failed request decode : %w", err))
	}

	if signReq.Action == "" {
		logutil.LogDebug(logger, CommandName, SignRequestCommandMethod, errEmptyAction)
		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyAction))
	}

	rpCtx, err := o.signer.Sign(request.NewAction(signReq.Action))
	if err != nil {
		logutil.LogError(logger, CommandName, SignRequestCommandMethod, err.Error())
		return command.NewExecuteError(SignRequestErrorCode, err)
	}

	command.WriteNillableResponse(rw, &SignRequestResponse{RPContext: rpCtx}, logger)

	logutil.LogDebug(logger, CommandName, SignRequestCommandMethod, "success",
		logutil.CreateKeyValueString("rp_id", rpCtx.RPID.String()))

	return nil
}

// VerifyContext checks a presented relying party context against the expected
// action. Verification consumes the context's nonce.
func (o *Command) VerifyContext(rw io.Writer, req io.Reader) command.Error {
	var verifyReq VerifyContextRequest

	err := json.NewDecoder(req).Decode(&verifyReq)
	if err != nil {
		logutil.LogInfo(logger, CommandName, VerifyContextCommandMethod, err.Error())
		return command.NewValidationError(InvalidRequestErrorCode, fmt.Errorf("failed request decode : %w", err))
	}

	if verifyReq.RPContext == nil {
		logutil.LogDebug(logger, CommandName, VerifyContextCommandMethod, errEmptyContext)
		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyContext))
	}

	if verifyReq.Action == "" {
		logutil.LogDebug(logger, CommandName, VerifyContextCommandMethod, errEmptyAction)
		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyAction))
	}

	if err := o.verifier.Verify(verifyReq.RPContext, request.NewAction(verifyReq.Action)); err != nil {
		logutil.LogInfo(logger, CommandName, VerifyContextCommandMethod, err.Error())
		return command.NewExecuteError(VerifyContextErrorCode, err)
	}

	command.WriteNillableResponse(rw, &VerifyContextResponse{Verified: true}, logger)

	logutil.LogDebug(logger, CommandName, VerifyContextCommandMethod, "success")

	return nil
}
