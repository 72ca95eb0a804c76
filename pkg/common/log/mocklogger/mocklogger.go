/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocklogger

import (
	"fmt"

	"github.com/proofpass/proofpass-go/pkg/common/log"
)

// MockLogger is a mocked logger that can be used for testing.
type MockLogger struct {
	AllLogContents   string
	FatalLogContents string
	PanicLogContents string
	DebugLogContents string
	InfoLogContents  string
	WarnLogContents  string
	ErrorLogContents string
}

// Fatalf records a fatal log entry without terminating.
func (m *MockLogger) Fatalf(msg string, args ...interface{}) {
	m.FatalLogContents += fmt.Sprintf(msg, args...)
	m.AllLogContents += fmt.Sprintf(msg, args...)
}

// Panicf records a panic log entry without panicking.
func (m *MockLogger) Panicf(msg string, args ...interface{}) {
	m.PanicLogContents += fmt.Sprintf(msg, args...)
	m.AllLogContents += fmt.Sprintf(msg, args...)
}

// Debugf records a debug log entry.
func (m *MockLogger) Debugf(msg string, args ...interface{}) {
	m.DebugLogContents += fmt.Sprintf(msg, args...)
	m.AllLogContents += fmt.Sprintf(msg, args...)
}

// Infof records an info log entry.
func (m *MockLogger) Infof(msg string, args ...interface{}) {
	m.InfoLogContents += fmt.Sprintf(msg, args...)
	m.AllLogContents += fmt.Sprintf(msg, args...)
}

// Warnf records a warning log entry.
func (m *MockLogger) Warnf(msg string, args ...interface{}) {
	m.WarnLogContents += fmt.Sprintf(msg, args...)
	m.AllLogContents += fmt.Sprintf(msg, args...)
}

// Errorf records an error log entry.
func (m *MockLogger) Errorf(msg string, args ...interface{}) {
	m.ErrorLogContents += fmt.Sprintf(msg, args...)
	m.AllLogContents += fmt.Sprintf(msg, args...)
}

// Provider is a mock logger provider that can be used for testing.
type Provider struct {
	MockLogger *MockLogger
}

// GetLogger returns the stored mock logger regardless of module.
func (p *Provider) GetLogger(string) log.Logger {
	return p.MockLogger
}
