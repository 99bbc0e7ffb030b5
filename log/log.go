// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package log provides simple level logging for the MetaSUB
// command line tools. Diagnostics are written through Go's standard
// logger (to standard error by default); the progress lines that form
// part of a command's output contract (e.g. "WASABI UPLOADING ...")
// are not log messages and are written to the command's stdout
// instead.
//
// Commands register the -log flag through AddFlags.
package log

import (
	"flag"
	"fmt"
	"io"
	golog "log"
	"sync/atomic"
)

// A Level is a log verbosity level. If the logger is logging at
// level L, all messages with level M <= L are output.
type Level int32

const (
	// Off never outputs messages.
	Off = Level(-3)
	// Error outputs error messages.
	Error = Level(-2)
	// Info outputs informational messages. This is the default.
	Info = Level(0)
	// Debug outputs messages intended for debugging.
	Debug = Level(1)
)

var level = int32(Info)

// String returns the string representation of the level l.
func (l Level) String() string {
	switch l {
	case Off:
		return "off"
	case Error:
		return "error"
	case Info:
		return "info"
	case Debug:
		return "debug"
	default:
		if l < 0 {
			panic("invalid log level")
		}
		return fmt.Sprintf("debug%d", l)
	}
}

// ParseLevel parses a level name as printed by Level.String.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "off":
		return Off, nil
	case "error":
		return Error, nil
	case "info":
		return Info, nil
	case "debug":
		return Debug, nil
	}
	return Off, fmt.Errorf("invalid log level %q", s)
}

// SetLevel sets the current log level.
func SetLevel(l Level) {
	atomic.StoreInt32(&level, int32(l))
}

// GetLevel returns the current log level.
func GetLevel() Level {
	return Level(atomic.LoadInt32(&level))
}

// At returns whether the logger is currently logging at the provided level.
func At(l Level) bool {
	return l <= GetLevel()
}

// SetOutput sets the output destination of the logger.
func SetOutput(w io.Writer) {
	golog.SetOutput(w)
}

// SetFlags sets the output flags of the logger.
func SetFlags(flags int) {
	golog.SetFlags(flags)
}

const (
	Ldate         = golog.Ldate
	Ltime         = golog.Ltime
	Lmicroseconds = golog.Lmicroseconds
	Lshortfile    = golog.Lshortfile
	LstdFlags     = golog.LstdFlags
)

// Output outputs s at the provided level and call depth.
func Output(calldepth int, l Level, s string) error {
	if !At(l) {
		return nil
	}
	if l == Error {
		s = "ERROR " + s
	}
	return golog.Output(calldepth+1, s)
}

// Printf formats a message in the manner of fmt.Sprintf and outputs
// it at level l.
func (l Level) Printf(format string, v ...interface{}) {
	if At(l) {
		_ = Output(2, l, fmt.Sprintf(format, v...))
	}
}

// Printf formats a message in the manner of fmt.Sprintf and outputs
// it at the Info level.
func Printf(format string, v ...interface{}) {
	if At(Info) {
		_ = Output(2, Info, fmt.Sprintf(format, v...))
	}
}

// AddFlags registers the -log flag on the provided flag set.
func AddFlags(fs *flag.FlagSet) {
	fs.Var(levelFlag{}, "log", "set log level (off, error, info, debug)")
}

type levelFlag struct{}

func (levelFlag) String() string {
	return GetLevel().String()
}

func (levelFlag) Set(s string) error {
	l, err := ParseLevel(s)
	if err != nil {
		return err
	}
	SetLevel(l)
	return nil
}

func (levelFlag) Get() interface{} {
	return GetLevel()
}
