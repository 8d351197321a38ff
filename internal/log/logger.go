// Package log provides a global logger with a configurable logging level and output.
//
// Security events such as rejected inbound packets are logged at warning level with a distinct
// label so they can be filtered from routine diagnostics.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

type Level int

const (
	LevelNone    Level = iota // Disables logging.
	LevelError                // Logs failures the caller can't recover from.
	LevelWarning              // Logs security events and anomalies expected occasionally.
	LevelInfo                 // Logs lifecycle events such as counter initialization.
	LevelDebug                // Logs encoded items and checkpoints.
)

type label int

const (
	labelDebug label = iota
	labelInfo
	labelWarning
	labelSecurity
	labelError
)

var labels = map[label]string{
	labelDebug:    "[debug]",
	labelInfo:     "[info ]",
	labelWarning:  "[warn ]",
	labelSecurity: "[secur]",
	labelError:    "[error]",
}

var (
	logMutex       sync.Mutex
	globalLogLevel Level
	output         io.Writer = os.Stderr
)

func SetLevel(level Level) {
	logMutex.Lock()
	defer logMutex.Unlock()
	globalLogLevel = level
}

// SetOutput redirects log lines to w and returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	logMutex.Lock()
	defer logMutex.Unlock()
	previous := output
	output = w
	return previous
}

// Enabled returns true if messages at level would be written.
func Enabled(level Level) bool {
	logMutex.Lock()
	defer logMutex.Unlock()
	return level <= globalLogLevel
}

func log(level Level, l label, format string, a ...interface{}) {
	logMutex.Lock()
	defer logMutex.Unlock()
	if level > globalLogLevel {
		return
	}
	msg := fmt.Sprintf("%s %s ", time.Now().Format(time.RFC3339), labels[l])
	msg += fmt.Sprintf(format, a...)
	fmt.Fprintln(output, msg)
}

func Debug(format string, a ...interface{}) {
	log(LevelDebug, labelDebug, format, a...)
}
func Info(format string, a ...interface{}) {
	log(LevelInfo, labelInfo, format, a...)
}
func Warning(format string, a ...interface{}) {
	log(LevelWarning, labelWarning, format, a...)
}
func Security(format string, a ...interface{}) {
	log(LevelWarning, labelSecurity, format, a...)
}
func Error(format string, a ...interface{}) {
	log(LevelError, labelError, format, a...)
}
