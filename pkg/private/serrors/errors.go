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

// Package serrors provides errors with additional log context in the form
// of key-value pairs. The returned errors support the standard Is and As
// functionality; for any error err returned by WrapStr with cause c,
// errors.Is(err, c) is true.
package serrors

import (
	"bytes"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ctxPair is one item of context info.
type ctxPair struct {
	Key   string
	Value interface{}
}

type basicError struct {
	msg   string
	cause error
	ctx   []ctxPair
}

func (e basicError) Error() string {
	var buf bytes.Buffer
	buf.WriteString(e.msg)
	if len(e.ctx) != 0 {
		fmt.Fprint(&buf, " ")
		encodeContext(&buf, e.ctx)
	}
	if e.cause != nil {
		fmt.Fprintf(&buf, ": %s", e.cause)
	}
	return buf.String()
}

// Is supports sentinel matching through errors.Is. basicError is not
// comparable because of the context slice, so identity is carried by the
// message instead: an error matches a sentinel with the same message,
// regardless of attached context.
func (e basicError) Is(err error) bool {
	other, ok := err.(basicError)
	return ok && e.msg == other.msg
}

func (e basicError) Unwrap() error {
	return e.cause
}

// MarshalLogObject implements zapcore.ObjectMarshaler to have a nicer log
// representation.
func (e basicError) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("msg", e.msg)
	if e.cause != nil {
		if m, ok := e.cause.(zapcore.ObjectMarshaler); ok {
			if err := enc.AddObject("cause", m); err != nil {
				return err
			}
		} else {
			enc.AddString("cause", e.cause.Error())
		}
	}
	for _, pair := range e.ctx {
		zap.Any(pair.Key, pair.Value).AddTo(enc)
	}
	return nil
}

// New creates a new error with the given message and context.
func New(msg string, errCtx ...interface{}) error {
	return basicError{
		msg: msg,
		ctx: mkContext(errCtx),
	}
}

// WrapStr returns an error that associates the given message with the given
// cause (an underlying error), and the given context. The returned error
// supports Is: Is(cause) returns true.
func WrapStr(msg string, cause error, errCtx ...interface{}) error {
	return basicError{
		msg:   msg,
		cause: cause,
		ctx:   mkContext(errCtx),
	}
}

// WithCtx returns an error that is the same as the given error but contains
// the additional context. The additional context is printed in the Error
// method. The returned error supports Is: Is(err) returns true.
func WithCtx(err error, errCtx ...interface{}) error {
	b, ok := err.(basicError)
	if !ok {
		return basicError{
			msg:   err.Error(),
			cause: err,
			ctx:   mkContext(errCtx),
		}
	}
	b.ctx = append(b.ctx, mkContext(errCtx)...)
	return b
}

func mkContext(errCtx []interface{}) []ctxPair {
	np := len(errCtx) / 2
	if np == 0 {
		return nil
	}
	ctx := make([]ctxPair, np)
	for i := 0; i < np; i++ {
		ctx[i] = ctxPair{Key: fmt.Sprint(errCtx[2*i]), Value: errCtx[2*i+1]}
	}
	sort.Slice(ctx, func(a, b int) bool {
		return ctx[a].Key < ctx[b].Key
	})
	return ctx
}

func encodeContext(buf *bytes.Buffer, pairs []ctxPair) {
	buf.WriteString("{")
	for i, pair := range pairs {
		if i != 0 {
			buf.WriteString("; ")
		}
		fmt.Fprintf(buf, "%s=%v", pair.Key, pair.Value)
	}
	buf.WriteString("}")
}
