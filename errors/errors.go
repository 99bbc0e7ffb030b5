// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package errors implements the error type used throughout the
// MetaSUB utilities. Errors carry an interpretable kind (so that
// callers can tell a missing sample-table entry from a malformed
// path), an optional severity (so that network operations can be
// retried consistently), a message, and an optional cause. Errors
// chain: the full chain is printed by Error and traversed by Is.
package errors

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/metasub/utils/log"
)

// Separator is inserted between chained errors in error messages.
var Separator = ":\n\t"

// Kind defines the type of error.
type Kind int

const (
	// Other indicates an unknown error.
	Other Kind = iota
	// Canceled indicates a context cancellation.
	Canceled
	// Timeout indicates an operation time out.
	Timeout
	// NotExist indicates a nonexistent resource: a missing file, an
	// object key that is not in the bucket, or a sample name that is
	// not in a lookup table.
	NotExist
	// NotAllowed indicates a permission or authentication failure.
	NotAllowed
	// Exists indicates that a resource already exists.
	Exists
	// Integrity indicates an integrity failure, e.g. a truncated
	// gzip stream or a fastq file whose line count is not a
	// multiple of four.
	Integrity
	// Invalid indicates that the caller supplied invalid parameters,
	// including paths that do not follow the expected naming
	// conventions.
	Invalid
	// Net indicates a network error.
	Net
	// Remote indicates an error returned by a remote service.
	Remote
	// TooManyTries indicates a retry budget was exhausted.
	TooManyTries
	maxKind
)

var kinds = map[Kind]string{
	Other:        "unknown error",
	Canceled:     "operation was canceled",
	Timeout:      "operation timed out",
	NotExist:     "resource does not exist",
	NotAllowed:   "access denied",
	Exists:       "resource already exists",
	Integrity:    "integrity error",
	Invalid:      "invalid argument",
	Net:          "network error",
	Remote:       "remote error",
	TooManyTries: "too many tries",
}

// String returns a human-readable explanation of the error kind k.
func (k Kind) String() string {
	return kinds[k]
}

// Severity defines an Error's severity, which determines whether an
// error-producing operation may be retried.
type Severity int

const (
	// Temporary indicates that the underlying condition is likely
	// temporary and may be retried in an application specific context.
	Temporary Severity = -1
	// Unknown is the default severity.
	Unknown Severity = 0
)

var severities = map[Severity]string{
	Temporary: "temporary",
	Unknown:   "unknown",
}

// String returns a human-readable explanation of the error severity s.
func (s Severity) String() string {
	return severities[s]
}

// Error is the standard error type, carrying a kind, a severity, a
// message, and potentially an underlying error. Errors should be
// constructed by E.
type Error struct {
	Kind     Kind
	Severity Severity
	Message  string
	// Err is the error that caused this error, if any.
	Err error
}

// E constructs a new error from the provided arguments. Arguments
// are interpreted according to their types:
//
//   - Kind: sets the Error's kind
//   - Severity: sets the Error's severity
//   - string: sets the Error's message; multiple strings are
//     separated by a single space
//   - *Error: copies the error and sets it as the cause
//   - error: sets the Error's cause
//
// If no kind is provided but a cause is, E classifies the cause:
// os.IsNotExist errors have kind NotExist, context.Canceled has kind
// Canceled, and errors reporting Timeout() have kind Timeout. Causes
// reporting Temporary() raise the severity to Temporary. A cause of
// type *Error passes its kind and severity up the chain.
func E(args ...interface{}) error {
	if len(args) == 0 {
		panic("errors.E: no args")
	}
	e := new(Error)
	var msg strings.Builder
	for _, arg := range args {
		switch arg := arg.(type) {
		case Kind:
			e.Kind = arg
		case Severity:
			e.Severity = arg
		case string:
			if msg.Len() > 0 {
				msg.WriteString(" ")
			}
			msg.WriteString(arg)
		case *Error:
			copy := *arg
			if len(args) == 1 {
				return &copy
			}
			e.Err = &copy
		case error:
			e.Err = arg
		default:
			_, file, line, _ := runtime.Caller(1)
			log.Error.Printf("errors.E: bad call (type %T) from %s:%d: %v", arg, file, line, arg)
			return &Error{
				Kind:    Invalid,
				Message: fmt.Sprintf("unknown type %T, value %v in error call", arg, arg),
			}
		}
	}
	e.Message = msg.String()
	if e.Err == nil {
		return e
	}
	if prev, ok := e.Err.(*Error); ok {
		if prev.Kind == e.Kind || e.Kind == Other {
			e.Kind = prev.Kind
			prev.Kind = Other
		}
		if prev.Severity == e.Severity || e.Severity == Unknown {
			e.Severity = prev.Severity
			prev.Severity = Unknown
		}
		return e
	}
	if err, ok := e.Err.(interface{ Temporary() bool }); ok && err.Temporary() && e.Severity == Unknown {
		e.Severity = Temporary
	}
	if e.Kind != Other {
		return e
	}
	switch {
	case os.IsNotExist(e.Err):
		e.Kind = NotExist
	case os.IsPermission(e.Err):
		e.Kind = NotAllowed
	case errors.Is(e.Err, context.Canceled):
		e.Kind = Canceled
	case errors.Is(e.Err, context.DeadlineExceeded):
		e.Kind = Timeout
	default:
		if err, ok := e.Err.(interface{ Timeout() bool }); ok && err.Timeout() {
			e.Kind = Timeout
		}
	}
	return e
}

// Recover converts any error into an *Error.
func Recover(err error) *Error {
	if err == nil {
		return nil
	}
	if err, ok := err.(*Error); ok {
		return err
	}
	return E(err).(*Error)
}

// Error returns a human readable string describing this error.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b bytes.Buffer
	e.writeError(&b)
	return b.String()
}

func (e *Error) writeError(b *bytes.Buffer) {
	if e.Message != "" {
		pad(b, ": ")
		b.WriteString(e.Message)
	}
	if e.Kind != Other {
		pad(b, ": ")
		b.WriteString(e.Kind.String())
	}
	if e.Severity != Unknown {
		pad(b, " ")
		b.WriteByte('(')
		b.WriteString(e.Severity.String())
		b.WriteByte(')')
	}
	if e.Err == nil {
		return
	}
	if err, ok := e.Err.(*Error); ok {
		pad(b, Separator)
		b.WriteString(err.Error())
	} else {
		pad(b, ": ")
		b.WriteString(e.Err.Error())
	}
}

// Unwrap returns the error's cause so that the standard library's
// errors.Is and errors.As see through the chain.
func (e *Error) Unwrap() error {
	return e.Err
}

// Timeout tells whether this error is a timeout error.
func (e *Error) Timeout() bool {
	return e.Kind == Timeout
}

// Temporary tells whether this error is temporary.
func (e *Error) Temporary() bool {
	return e.Severity <= Temporary
}

// Is tells whether an error has the specified kind. Errors of kind
// Other are traversed until an error with a kind is found.
func Is(kind Kind, err error) bool {
	if err == nil {
		return false
	}
	for e := Recover(err); e != nil; {
		if e.Kind != Other {
			return e.Kind == kind
		}
		next, ok := e.Err.(*Error)
		if !ok {
			return false
		}
		e = next
	}
	return false
}

// IsTemporary tells whether the provided error is likely temporary.
func IsTemporary(err error) bool {
	return err != nil && Recover(err).Temporary()
}

// New is synonymous with the standard errors.New, so that users need
// only import one errors package.
func New(msg string) error {
	return errors.New(msg)
}

func pad(b *bytes.Buffer, s string) {
	if b.Len() == 0 {
		return
	}
	b.WriteString(s)
}
