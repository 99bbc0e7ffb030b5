// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package errors_test

import (
	"context"
	goerrors "errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/metasub/utils/errors"
)

func TestError(t *testing.T) {
	_, err := os.Open("/dev/notexist")
	e1 := errors.E(err, "open sample table")
	assert.True(t, errors.Is(errors.NotExist, e1))
	e2 := errors.E(errors.Invalid, "haib17CEM4890", e1)
	expect.EQ(t, e2.Error(), "haib17CEM4890: invalid argument:\n\topen sample table: resource does not exist: open /dev/notexist: no such file or directory")
	assert.True(t, errors.Is(errors.Invalid, e2))
	assert.False(t, errors.Is(errors.NotExist, e2))
}

func TestKindInheritance(t *testing.T) {
	inner := errors.E(errors.Remote, errors.Temporary, "POST /samples")
	outer := errors.E("create sample", inner)
	assert.True(t, errors.Is(errors.Remote, outer))
	assert.True(t, errors.IsTemporary(outer))
	assert.False(t, errors.IsTemporary(errors.E("plain")))
}

func TestContextErrors(t *testing.T) {
	assert.True(t, errors.Is(errors.Canceled, errors.E(context.Canceled)))
	assert.True(t, errors.Is(errors.Timeout, errors.E("slow", context.DeadlineExceeded)))
}

func TestUnwrap(t *testing.T) {
	sentinel := goerrors.New("sentinel")
	err := errors.E(errors.Net, "fetch", sentinel)
	assert.True(t, goerrors.Is(err, sentinel))
}

func TestBadArg(t *testing.T) {
	err := errors.E(3.14)
	assert.True(t, errors.Is(errors.Invalid, err))
}

func TestOnce(t *testing.T) {
	var (
		once errors.Once
		wg   sync.WaitGroup
	)
	assert.Nil(t, once.Err())
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			once.Set(fmt.Errorf("error %d", i))
		}(i)
	}
	wg.Wait()
	assert.NotNil(t, once.Err())
	first := once.Err()
	once.Set(errors.New("late"))
	assert.EQ(t, once.Err(), first)
}

func TestOnceNil(t *testing.T) {
	var once errors.Once
	once.Set(nil)
	assert.Nil(t, once.Err())
}

func TestCleanUp(t *testing.T) {
	fail := func() error { return errors.New("close failed") }
	run := func(first error) (err error) {
		err = first
		defer errors.CleanUp(fail, &err)
		return err
	}
	assert.EQ(t, run(nil).Error(), "close failed")
	expect.HasSubstr(t, run(errors.New("write failed")).Error(), "second error in clean up: close failed")
}
