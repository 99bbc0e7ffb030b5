// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package wasabi

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/metasub/utils/errors"
)

func TestPoolRing(t *testing.T) {
	p := NewPool(1)
	release := make(chan struct{})
	p.Submit("blocked", func() error {
		<-release
		return nil
	})
	p.Submit("second", func() error { return nil })

	// The third job reuses the first job's slot, so its submission
	// waits for the first job.
	submitted := make(chan struct{})
	go func() {
		p.Submit("third", func() error { return nil })
		close(submitted)
	}()
	select {
	case <-submitted:
		t.Fatal("submitted to a busy slot")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	select {
	case <-submitted:
	case <-time.After(10 * time.Second):
		t.Fatal("submission did not proceed")
	}
	assert.NoError(t, p.Close())
}

func TestPoolErrors(t *testing.T) {
	p := NewPool(4)
	var n int32
	for i := 0; i < 100; i++ {
		i := i
		p.Submit(fmt.Sprintf("job %d", i), func() error {
			atomic.AddInt32(&n, 1)
			if i == 10 {
				return errors.E(errors.Net, "connection reset")
			}
			return nil
		})
	}
	err := p.Close()
	expect.EQ(t, atomic.LoadInt32(&n), int32(100))
	expect.True(t, errors.Is(errors.Net, err))
	expect.HasSubstr(t, err.Error(), "job 10")
	// Close is idempotent.
	expect.True(t, errors.Is(errors.Net, p.Close()))
}

func TestPoolSubmitClosed(t *testing.T) {
	p := NewPool(1)
	assert.NoError(t, p.Close())
	defer func() {
		expect.NotNil(t, recover())
	}()
	p.Submit("late", func() error { return nil })
}
