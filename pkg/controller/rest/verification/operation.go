/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package verification

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/proofpass/proofpass-go/pkg/controller/command"
	cmdverification "github.com/proofpass/proofpass-go/pkg/controller/command/verification"
	"github.com/proofpass/proofpass-go/pkg/controller/internal/cmdutil"
	"github.com/proofpass/proofpass-go/pkg/controller/rest"
	"github.com/proofpass/proofpass-go/pkg/storage"
)

// constants for verification operations.
const (
	VerificationOperationID = "/verification"
	CreateSessionPath       = VerificationOperationID + "/sessions"
	StatusPath              = VerificationOperationID + "/sessions/{id}"
	WaitProofPath           = VerificationOperationID + "/sessions/{id}/proof"
	VerifyProofPath         = VerificationOperationID + "/verify"
)

// provider contains dependencies for the verification operations and is
// typically created by using controller.GetRESTHandlers.
type provider interface {
	StorageProvider() storage.Provider
	AppID() string
	BridgeURL() string
	PortalURL() string
}

type verificationCommand interface {
	CreateSession(rw io.Writer, req io.Reader) command.Error
	Status(rw io.Writer, req io.Reader) command.Error
	WaitProof(rw io.Writer, req io.Reader) command.Error
	VerifyProof(rw io.Writer, req io.Reader) command.Error
}

// Operation contains REST operations provided by the verification controller.
type Operation struct {
	handlers []rest.Handler
	command  verificationCommand
}

// New returns new verification rest client instance.
func New(p provider, notifier command.Notifier, opts ...cmdverification.Opt) (*Operation, error) {
	cmd, err := cmdverification.New(p, notifier, opts...)
	if err != nil {
		return nil, fmt.Errorf("create verification command: %w", err)
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
		cmdutil.NewHTTPHandler(CreateSessionPath, http.MethodPost, o.CreateSession),
		cmdutil.NewHTTPHandler(StatusPath, http.MethodGet, o.Status),
		cmdutil.NewHTTPHandler(WaitProofPath, http.MethodGet, o.WaitProof),
		cmdutil.NewHTTPHandler(VerifyProofPath, http.MethodPost, o.VerifyProof),
	}
}

// CreateSession swagger:route POST /verification/sessions verification createSessionReq
//
// Registers a new verification session with the relay.
//
// Responses:
//    default: genericError
//        200: createSessionRes
func (o *Operation) CreateSession(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(o.command.CreateSession, rw, req.Body)
}

// Status swagger:route GET /verification/sessions/{id} verification sessionStatusReq
//
// Polls the relay once and returns the session's state.
//
// Responses:
//    default: genericError
//        200: sessionStatusRes
func (o *Operation) Status(rw http.ResponseWriter, req *http.Request) {
	id, found := getRequestIDFromRequest(rw, req)
	if !found {
		return
	}

	request := fmt.Sprintf(`{"request_id":"%s"}`, id)

	rest.Execute(o.command.Status, rw, bytes.NewBufferString(request))
}

// WaitProof swagger:route GET /verification/sessions/{id}/proof verification waitProofReq
//
// Blocks until the session terminates or the timeout elapses and returns the
// proof on confirmation.
//
// Responses:
//    default: genericError
//        200: waitProofRes
func (o *Operation) WaitProof(rw http.ResponseWriter, req *http.Request) {
	id, found := getRequestIDFromRequest(rw, req)
	if !found {
		return
	}

	request := fmt.Sprintf(`{"request_id":"%s", "timeout_seconds":%d}`, id, waitTimeoutSeconds(req))

	rest.Execute(o.command.WaitProof, rw, bytes.NewBufferString(request))
}

// VerifyProof swagger:route POST /verification/verify verification verifyProofReq
//
// Submits a received proof to the developer portal.
//
// Responses:
//    default: genericError
//        200: verifyProofRes
func (o *Operation) VerifyProof(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(o.command.VerifyProof, rw, req.Body)
}

// waitTimeoutSeconds returns the timeout query value, or zero to use the
// configured default.
func waitTimeoutSeconds(req *http.Request) int64 {
	timeout, err := strconv.ParseInt(req.URL.Query().Get("timeout"), 10, 64)
	if err != nil {
		return 0
	}

	return timeout
}

// getRequestIDFromRequest returns request ID from request.
func getRequestIDFromRequest(rw http.ResponseWriter, req *http.Request) (string, bool) {
	id := mux.Vars(req)["id"]
	if id == "" {
		rest.SendHTTPStatusError(rw, http.StatusBadRequest, cmdverification.InvalidRequestErrorCode,
			fmt.Errorf("empty request ID"))
		return "", false
	}

	return id, true
}
