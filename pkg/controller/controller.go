/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package controller aggregates command and REST handlers exposed by the
// agent.
package controller

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/proofpass/proofpass-go/pkg/controller/command"
	rpsigncmd "github.com/proofpass/proofpass-go/pkg/controller/command/rpsign"
	verificationcmd "github.com/proofpass/proofpass-go/pkg/controller/command/verification"
	"github.com/proofpass/proofpass-go/pkg/controller/rest"
	rpsignrest "github.com/proofpass/proofpass-go/pkg/controller/rest/rpsign"
	verificationrest "github.com/proofpass/proofpass-go/pkg/controller/rest/verification"
	"github.com/proofpass/proofpass-go/pkg/controller/webnotifier"
	"github.com/proofpass/proofpass-go/pkg/storage"
)

// Provider contains dependencies for controller command and REST operations.
type Provider interface {
	StorageProvider() storage.Provider
	AppID() string
	BridgeURL() string
	PortalURL() string
	RPID() string
	RPPrivateKey() *ecdsa.PrivateKey
}

type allOpts struct {
	webhookURLs []string
	notifier    command.Notifier
}

// Opt represents a controller option.
type Opt func(opts *allOpts)

// WithWebhookURLs is an option for setting up a webhook dispatcher which will notify clients of events
func WithWebhookURLs(webhookURLs ...string) Opt {
	return func(opts *allOpts) {
		opts.webhookURLs = webhookURLs
	}
}

// WithNotifier is an option for setting up a notifier which will notify clients of events
func WithNotifier(notifier command.Notifier) Opt {
	return func(opts *allOpts) {
		opts.notifier = notifier
	}
}

// GetRESTHandlers returns all REST handlers provided by controller.
func GetRESTHandlers(p Provider, opts ...Opt) ([]rest.Handler, error) {
	restAPIOpts := &allOpts{}
	// Apply options
	for _, opt := range opts {
		opt(restAPIOpts)
	}

	notifier := restAPIOpts.notifier
	if notifier == nil {
		notifier = webnotifier.New(restAPIOpts.webhookURLs)
	}

	// verification REST operation
	verificationOp, err := verificationrest.New(p, notifier)
	if err != nil {
		return nil, fmt.Errorf("create verification rest operation : %w", err)
	}

	var allHandlers []rest.Handler
	allHandlers = append(allHandlers, verificationOp.GetRESTHandlers()...)

	// the signing surface is exposed only when the agent holds a relying
	// party key
	if signingConfigured(p) {
		rpsignOp, err := rpsignrest.New(p)
		if err != nil {
			return nil, fmt.Errorf("create rpsign rest operation : %w", err)
		}

		allHandlers = append(allHandlers, rpsignOp.GetRESTHandlers()...)
	}

	return allHandlers, nil
}

// GetCommandHandlers returns all command handlers provided by controller.
func GetCommandHandlers(p Provider, opts ...Opt) ([]command.Handler, error) {
	cmdOpts := &allOpts{}
	// Apply options
	for _, opt := range opts {
		opt(cmdOpts)
	}

	notifier := cmdOpts.notifier
	if notifier == nil {
		notifier = webnotifier.New(cmdOpts.webhookURLs)
	}

	// verification command operation
	verificationCmd, err := verificationcmd.New(p, notifier)
	if err != nil {
		return nil, fmt.Errorf("create verification command : %w", err)
	}

	var allHandlers []command.Handler
	allHandlers = append(allHandlers, verificationCmd.GetHandlers()...)

	// the signing surface is exposed only when the agent holds a relying
	// party key
	if signingConfigured(p) {
		rpsignCmd, err := rpsigncmd.New(p)
		if err != nil {
			return nil, fmt.Errorf("create rpsign command : %w", err)
		}

		allHandlers = append(allHandlers, rpsignCmd.GetHandlers()...)
	}

	return allHandlers, nil
}

func signingConfigured(p Provider) bool {
	return p.RPID() != "" && p.RPPrivateKey() != nil
}
