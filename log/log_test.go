// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package log

import (
	"bytes"
	"flag"
	"os"
	"testing"

	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetFlags(0)
	defer func() {
		SetOutput(os.Stderr)
		SetFlags(LstdFlags)
		SetLevel(Info)
	}()

	Printf("listing %s", "metasub")
	Debug.Printf("hidden")
	Error.Printf("failed")
	expect.EQ(t, buf.String(), "listing metasub\nERROR failed\n")

	buf.Reset()
	SetLevel(Error)
	Printf("quiet")
	Error.Printf("loud %d", 1)
	expect.EQ(t, buf.String(), "ERROR loud 1\n")
}

func TestFlag(t *testing.T) {
	defer SetLevel(Info)
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	AddFlags(fs)
	assert.NoError(t, fs.Parse([]string{"-log", "debug"}))
	assert.True(t, At(Debug))
	assert.NotNil(t, fs.Parse([]string{"-log", "verbose"}))
}

func TestString(t *testing.T) {
	for _, l := range []Level{Off, Error, Info, Debug} {
		got, err := ParseLevel(l.String())
		assert.NoError(t, err)
		assert.EQ(t, got, l)
	}
	assert.EQ(t, Level(3).String(), "debug3")
}
