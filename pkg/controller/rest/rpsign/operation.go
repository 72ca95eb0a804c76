/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rpsign

import (
	"crypto/ecdsa"
	"fmt"
	"io"
	"net/http"

	"github.com/proofpass/proofpass-go/pkg/controller/command"
	cmdrpsign "github.com/proofpass/proofpass-go/pkg/controller/command/rpsign"
	"github.com/proofpass/proofpass-go/pkg/controller/internal/cmdutil"
	"github.com/proofpass/proofpass-go/pkg/controller/rest"
)

// constants for rpsign operations.
const (
	RPSignOperationID = "/rpsign"
	SignRequestPath   = RPSignOperationID + "/sign"
	VerifyContextPath = RPSignOperationID + "/verify"
)

// provider contains dependencies for the rpsign operations and is typically
// created by using controller.GetRESTHandlers.
type provider interface {
	RPID() string
	RPPrivateKey() *ecdsa.PrivateKey
}

type rpsignCommand interface {
	SignRequest(rw io.Writer, req io.Reader) command.Error
	VerifyContext(rw io.Writer, req io.Reader) command.Error
}

// Operation contains REST operations provided by the rpsign controller.
type Operation struct {
	handlers []rest.Handler
	command  rpsignCommand
}

// New returns new rpsign rest client instance.
func New(p provider, opts ...cmdrpsign.Opt) (*Operation, error) {
	cmd, err := cmdrpsign.New(p, opts...)
	if err != nil {
		return nil, fmt.Errorf("create rpsign command: %w", err)
	}

	o := &Operation{command: cmd}
	o.registerHandler()

	return o, nil
}

// GetRESTHandlers get all controller API handler available for this service.
func (o *Operation) GetRESTHandlers() []rest.Handler {
	return o.handlers
}

// registerHandler register handlers to be exposed from this protocol service as REST API endpoints.
func (o *Operation) registerHandler() {
	o.handlers = []rest.Handler{
		cmdutil.NewHTTPHandler(SignRequestPath, http.MethodPost, o.SignRequest),
		cmdutil.NewHTTPHandler(VerifyContextPath, http.MethodPost, o.VerifyContext),
	}
}

// SignRequest swagger:route POST /rpsign/sign rpsign signRequestReq
//
// Issues a signed relying party context for one action.
//
// Responses:
//    default: genericError
//        200: signRequestRes
func (o *Operation) SignRequest(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(o.command.SignRequest, rw, req.Body)
}

// VerifyContext swagger:route POST /rpsign/verify rpsign verifyContextReq
//
// Checks a presented relying party context against the expected action.
//
// Responses:
//    default: genericError
//        200: verifyContextRes
func (o *Operation) VerifyContext(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(o.command.VerifyContext, rw, req.Body)
}
