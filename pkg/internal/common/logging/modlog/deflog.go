/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package modlog

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/proofpass/proofpass-go/pkg/internal/common/logging/metadata"
)

const logLevelFormatter = "UTC %s -> "

// NewDefLog returns a new default logger implementation for given module.
func NewDefLog(module string) *DefLog {
	prefix := fmt.Sprintf(" [%s] ", module)
	logger := log.New(os.Stdout, prefix, log.Ldate|log.Ltime|log.LUTC)

	return &DefLog{logger: logger, module: module}
}

// DefLog is a standard logger implementation on top of the go log package.
type DefLog struct {
	logger *log.Logger
	module string
}

// Fatalf is CRITICAL log formatted followed by a call to os.Exit(1).
func (l *DefLog) Fatalf(format string, args ...interface{}) {
	l.logf(metadata.CRITICAL, format, args...)
	os.Exit(1)
}

// Panicf is CRITICAL log formatted followed by a call to panic().
func (l *DefLog) Panicf(format string, args ...interface{}) {
	l.logf(metadata.CRITICAL, format, args...)
	panic(fmt.Sprintf(format, args...))
}

// Debugf calls go 'log.Output' and can be used for logging verbose messages.
// Arguments are handled in the manner of fmt.Printf.
func (l *DefLog) Debugf(format string, args ...interface{}) {
	l.logf(metadata.DEBUG, format, args...)
}

// Infof calls go 'log.Output' and can be used for logging general information messages.
// INFO is default logging level.
// Arguments are handled in the manner of fmt.Printf.
func (l *DefLog) Infof(format string, args ...interface{}) {
	l.logf(metadata.INFO, format, args...)
}

// Warnf calls go 'log.Output' and can be used for logging possible errors.
// Arguments are handled in the manner of fmt.Printf.
func (l *DefLog) Warnf(format string, args ...interface{}) {
	l.logf(metadata.WARNING, format, args...)
}

// Errorf calls go 'log.Output' and can be used for logging errors.
// Arguments are handled in the manner of fmt.Printf.
func (l *DefLog) Errorf(format string, args ...interface{}) {
	l.logf(metadata.ERROR, format, args...)
}

// ChangeOutput for changing output destination for the logger.
func (l *DefLog) ChangeOutput(output io.Writer) {
	l.logger.SetOutput(output)
}

func (l *DefLog) logf(level metadata.Level, format string, args ...interface{}) {
	// prefix indicates the log level and that the timezone used is UTC
	customPrefix := fmt.Sprintf(logLevelFormatter, metadata.ParseString(level))

	if err := l.logger.Output(calldepth, customPrefix+fmt.Sprintf(format, args...)); err != nil {
		fmt.Printf("error from logger.Output %v\n", err)
	}
}

// calldepth is the count of the number of frames to skip when computing the file name
// and line number of the log call site.
const calldepth = 3
