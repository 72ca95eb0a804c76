/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rest

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/proofpass/proofpass-go/pkg/common/log"
	"github.com/proofpass/proofpass-go/pkg/controller/command"
)

var logger = log.New("proofpass/controller/rest")

// Handler http handler for each controller API endpoint.
type Handler interface {
	Path() string
	Method() string
	Handle() http.HandlerFunc
}

// Execute executes given command with args provided and writes command errors to the http response.
func Execute(exec command.Exec, rw http.ResponseWriter, req io.Reader) {
	rw.Header().Set("Content-Type", "application/json")

	err := exec(rw, req)
	if err != nil {
		SendError(rw, err)
	}
}

// SendError writes given command error to the http response with a status code matching the error type.
func SendError(rw http.ResponseWriter, err command.Error) {
	if err.Type() == command.ValidationError {
		SendHTTPStatusError(rw, http.StatusBadRequest, err.Code(), err)
		return
	}

	SendHTTPStatusError(rw, http.StatusInternalServerError, err.Code(), err)
}

// SendHTTPStatusError sends given http status code to response with error body.
func SendHTTPStatusError(rw http.ResponseWriter, httpStatus int, code command.Code, err error) {
	rw.WriteHeader(httpStatus)

	e := json.NewEncoder(rw).Encode(genericErrorBody{Code: code, Message: err.Error()})
	if e != nil {
		logger.Errorf("Unable to send error response, %s", e)
	}
}

// genericErrorBody is the error response body for controller endpoints.
type genericErrorBody struct {
	Code    command.Code `json:"code"`
	Message string       `json:"message"`
}
