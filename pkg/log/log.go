// Copyright 2026 R5Valkyrie
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log provides structured logging for the master server. It is a
// thin wrapper around zap that supports key-value context pairs on every
// call site.
package log

import (
	"fmt"
	"runtime/debug"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/r5valkyrie/master-server-sub000/pkg/private/serrors"
)

// Logger describes the logger interface.
type Logger interface {
	New(ctx ...interface{}) Logger
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
	Enabled(lvl Level) bool
}

// Level is the log level.
type Level = zapcore.Level

// The log levels supported by Setup.
const (
	LevelDebug = zapcore.DebugLevel
	LevelInfo  = zapcore.InfoLevel
	LevelError = zapcore.ErrorLevel
)

type logger struct {
	logger *zap.Logger
}

func (l *logger) New(ctx ...interface{}) Logger {
	return &logger{logger: l.logger.With(convertCtx(ctx)...)}
}

func (l *logger) Debug(msg string, ctx ...interface{}) {
	l.logger.Debug(msg, convertCtx(ctx)...)
}

func (l *logger) Info(msg string, ctx ...interface{}) {
	l.logger.Info(msg, convertCtx(ctx)...)
}

func (l *logger) Error(msg string, ctx ...interface{}) {
	l.logger.Error(msg, convertCtx(ctx)...)
}

func (l *logger) Enabled(lvl Level) bool {
	return l.logger.Core().Enabled(lvl)
}

var root = zap.NewNop()

// Setup configures the logging backend. It must be called before the first
// call to Root, New, or any of the package-level logging functions.
func Setup(cfg Config) error {
	cfg.InitDefaults()
	level, err := parseLevel(cfg.Console.Level)
	if err != nil {
		return err
	}
	encoding := "console"
	if strings.EqualFold(cfg.Console.Format, "json") {
		encoding = "json"
	}
	zCfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         encoding,
		EncoderConfig:    encoderConfig(encoding),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	z, err := zCfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return serrors.WrapStr("creating logger", err)
	}
	root = z
	return nil
}

func encoderConfig(encoding string) zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	if encoding == "console" {
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	return cfg
}

func parseLevel(lvl string) (zapcore.Level, error) {
	switch strings.ToLower(lvl) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, serrors.New("unknown log level", "level", lvl)
	}
}

// Root returns the root logger. It is never nil.
func Root() Logger {
	return &logger{logger: root}
}

// New creates a logger with the given context attached.
func New(ctx ...interface{}) Logger {
	return &logger{logger: root.With(convertCtx(ctx)...)}
}

// Debug logs at debug level.
func Debug(msg string, ctx ...interface{}) {
	root.Debug(msg, convertCtx(ctx)...)
}

// Info logs at info level.
func Info(msg string, ctx ...interface{}) {
	root.Info(msg, convertCtx(ctx)...)
}

// Error logs at error level.
func Error(msg string, ctx ...interface{}) {
	root.Error(msg, convertCtx(ctx)...)
}

// Discard sets the logger up to discard all log entries. This is useful for
// testing.
func Discard() {
	root = zap.NewNop()
}

// Flush writes the logs to the underlying buffer.
func Flush() {
	_ = root.Sync()
}

// HandlePanic catches panics and logs them before exiting. It should be
// deferred at the start of every goroutine.
func HandlePanic() {
	if msg := recover(); msg != nil {
		root.Error("Panic", zap.Any("msg", msg), zap.ByteString("stack", debug.Stack()))
		_ = root.Sync()
		panic(msg)
	}
}

func convertCtx(ctx []interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(ctx)/2)
	for i := 0; i+1 < len(ctx); i += 2 {
		fields = append(fields, zap.Any(fmt.Sprint(ctx[i]), ctx[i+1]))
	}
	return fields
}
