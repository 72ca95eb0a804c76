/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package modlog

import (
	"github.com/proofpass/proofpass-go/pkg/internal/common/logging/metadata"
)

// Logger is the underlying logger contract required by moduled wrappers.
// note: kept structurally identical to 'log.Logger' to avoid circular references.
type Logger interface {
	Fatalf(msg string, args ...interface{})
	Panicf(msg string, args ...interface{})
	Debugf(msg string, args ...interface{})
	Infof(msg string, args ...interface{})
	Warnf(msg string, args ...interface{})
	Errorf(msg string, args ...interface{})
}

// NewModLog returns a new moduled logger wrapping the given logger implementation.
func NewModLog(logger Logger, module string) *ModLog {
	return &ModLog{logger: logger, module: module}
}

// ModLog is a moduled wrapper for a logger implementation.
// It adds module based level filtering on top of the provider's logger.
type ModLog struct {
	logger Logger
	module string
}

// Fatalf calls underlying logger.Fatalf.
func (m *ModLog) Fatalf(format string, args ...interface{}) {
	m.logger.Fatalf(format, args...)
}

// Panicf calls underlying logger.Panicf.
func (m *ModLog) Panicf(format string, args ...interface{}) {
	m.logger.Panicf(format, args...)
}

// Debugf calls underlying logger.Debugf if DEBUG level enabled.
func (m *ModLog) Debugf(format string, args ...interface{}) {
	if metadata.IsEnabledFor(m.module, metadata.DEBUG) {
		m.logger.Debugf(format, args...)
	}
}

// Infof calls underlying logger.Infof if INFO level enabled.
func (m *ModLog) Infof(format string, args ...interface{}) {
	if metadata.IsEnabledFor(m.module, metadata.INFO) {
		m.logger.Infof(format, args...)
	}
}

// Warnf calls underlying logger.Warnf if WARNING level enabled.
func (m *ModLog) Warnf(format string, args ...interface{}) {
	if metadata.IsEnabledFor(m.module, metadata.WARNING) {
		m.logger.Warnf(format, args...)
	}
}

// Errorf calls underlying logger.Errorf if ERROR level enabled.
func (m *ModLog) Errorf(format string, args ...interface{}) {
	if metadata.IsEnabledFor(m.module, metadata.ERROR) {
		m.logger.Errorf(format, args...)
	}
}
