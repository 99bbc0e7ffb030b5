// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package wasabi

import (
	"sync"

	"github.com/metasub/utils/errors"
	"github.com/metasub/utils/log"
)

type job struct {
	name string
	fn   func() error
	done chan struct{}
}

// Pool runs transfer jobs on a fixed number of workers. Jobs are
// assigned, in turn, to a ring of 2*threads slots; submitting a job to
// a slot first waits for the job previously assigned to that slot to
// complete. This bounds the number of outstanding jobs while keeping
// every worker busy.
//
// A failed job does not stop the pool: the failure is logged and the
// first one is returned by Close.
type Pool struct {
	mu     sync.Mutex
	work   chan job
	slots  []chan struct{}
	next   int
	closed bool
	wg     sync.WaitGroup
	err    errors.Once
}

// NewPool returns a pool with the given number of workers. NewPool
// panics if threads < 1.
func NewPool(threads int) *Pool {
	if threads < 1 {
		panic("wasabi.NewPool: threads < 1")
	}
	p := &Pool{
		work:  make(chan job, 2*threads),
		slots: make([]chan struct{}, 2*threads),
	}
	p.wg.Add(threads)
	for i := 0; i < threads; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for j := range p.work {
		if err := j.fn(); err != nil {
			log.Error.Printf("%s: %v", j.name, err)
			p.err.Set(errors.E(err, j.name))
		}
		close(j.done)
	}
}

// Submit submits a named job, blocking until the job's slot is free.
// Submit panics if the pool is closed.
func (p *Pool) Submit(name string, fn func() error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		panic("wasabi: submit to closed pool")
	}
	if prev := p.slots[p.next]; prev != nil {
		<-prev
	}
	j := job{name: name, fn: fn, done: make(chan struct{})}
	p.work <- j
	p.slots[p.next] = j.done
	p.next = (p.next + 1) % len(p.slots)
}

// Close waits for all submitted jobs to complete and stops the
// workers. It returns the first job failure, if any. Close may be
// called more than once.
func (p *Pool) Close() error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.work)
	}
	p.mu.Unlock()
	p.wg.Wait()
	return p.err.Err()
}
