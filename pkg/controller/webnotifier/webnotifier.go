/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package webnotifier pushes controller events, such as terminal session
// statuses, to configured webhook subscribers.
package webnotifier

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/proofpass/proofpass-go/pkg/common/log"
	"github.com/proofpass/proofpass-go/pkg/controller/command"
)

const (
	notificationSendTimeout = 10 * time.Second
	emptyTopicErrMsg        = "topic value is empty"
	emptyMessageErrMsg      = "message is empty"
	failedToCreateErrMsg    = "failed to create topic message : %w"
)

var logger = log.New("proofpass/webnotifier")

// WebNotifier is a dispatcher notifying all configured subscribers.
type WebNotifier struct {
	notifiers []command.Notifier
}

// New returns a new instance of a WebNotifier.
func New(webhookURLs []string) *WebNotifier {
	return &WebNotifier{
		notifiers: []command.Notifier{NewHTTPNotifier(webhookURLs)},
	}
}

// Notify sends the given message to all subscribers.
// If multiple errors are encountered, then the first one is returned.
func (n *WebNotifier) Notify(topic string, message []byte) error {
	var allErrs error

	for _, notifier := range n.notifiers {
		err := notifier.Notify(topic, message)
		allErrs = appendError(allErrs, err)
	}

	return allErrs
}

// PrepareTopicMessage wraps a raw event payload into the topic envelope
// subscribers receive.
func PrepareTopicMessage(topic string, message []byte) ([]byte, error) {
	topicMsg := struct {
		ID      string          `json:"id"`
		Topic   string          `json:"topic"`
		Message json.RawMessage `json:"message"`
	}{
		ID:      uuid.New().String(),
		Topic:   topic,
		Message: message,
	}

	return json.Marshal(topicMsg)
}

func appendError(errToAppendTo, err error) error {
	if errToAppendTo == nil {
		return err
	}

	if err == nil {
		return errToAppendTo
	}

	return fmt.Errorf("%v;%v", errToAppendTo, err)
}
