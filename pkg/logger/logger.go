// Package logger provides structured JSON logging for the ledger services.
package logger

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"
)

type Logger interface {
	Info(message string, fields map[string]interface{})
	Error(message string, fields map[string]interface{})
	Warn(message string, fields map[string]interface{})
	Debug(message string, fields map[string]interface{})
	Fatal(message string, fields map[string]interface{})
}

// levels ordered for the LOG_LEVEL threshold.
const (
	levelDebug = iota
	levelInfo
	levelWarn
	levelError
	levelFatal
)

var levelNames = map[int]string{
	levelDebug: "debug",
	levelInfo:  "info",
	levelWarn:  "warn",
	levelError: "error",
	levelFatal: "fatal",
}

type jsonLogger struct {
	service string
	min     int
	mu      sync.Mutex
	out     io.Writer
}

// New builds a stdout JSON logger. LOG_LEVEL=debug|info|warn|error
// controls the threshold; anything unrecognized means info.
func New(service string) Logger {
	min := levelInfo
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		min = levelDebug
	case "warn":
		min = levelWarn
	case "error":
		min = levelError
	}
	return &jsonLogger{service: service, min: min, out: os.Stdout}
}

func (l *jsonLogger) emit(level int, message string, fields map[string]interface{}) {
	if level < l.min {
		return
	}

	entry := make(map[string]interface{}, len(fields)+4)
	for k, v := range fields {
		entry[k] = v
	}
	entry["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	entry["level"] = levelNames[level]
	entry["service"] = l.service
	entry["message"] = message

	line, err := json.Marshal(entry)
	if err != nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.out.Write(append(line, '\n'))
}

func (l *jsonLogger) Debug(message string, fields map[string]interface{}) {
	l.emit(levelDebug, message, fields)
}

func (l *jsonLogger) Info(message string, fields map[string]interface{}) {
	l.emit(levelInfo, message, fields)
}

func (l *jsonLogger) Warn(message string, fields map[string]interface{}) {
	l.emit(levelWarn, message, fields)
}

func (l *jsonLogger) Error(message string, fields map[string]interface{}) {
	l.emit(levelError, message, fields)
}

func (l *jsonLogger) Fatal(message string, fields map[string]interface{}) {
	l.emit(levelFatal, message, fields)
	os.Exit(1)
}

// NewNop returns a logger that discards everything; used in tests.
func NewNop() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Debug(string, map[string]interface{}) {}
func (nopLogger) Info(string, map[string]interface{})  {}
func (nopLogger) Warn(string, map[string]interface{})  {}
func (nopLogger) Error(string, map[string]interface{}) {}
func (nopLogger) Fatal(string, map[string]interface{}) {}
