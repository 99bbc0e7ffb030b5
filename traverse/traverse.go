// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package traverse provides bounded concurrent traversal of
// collections, such as the list of fastq files to fetch from a
// sequencing center.
package traverse

import (
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/metasub/utils/errors"
)

// A T is a traverser. It invokes functions over the indices of a
// collection with at most Limit concurrent invocations. A zero
// Limit means no limit.
type T struct {
	Limit int
}

// Limit returns a traverser with limit n.
func Limit(n int) T {
	if n <= 0 {
		log.Panicf("traverse.Limit: invalid limit: %d", n)
	}
	return T{Limit: n}
}

// Each invokes fn(i) for 0 <= i < n. It returns when all invocations
// have completed, or after the first invocation fails, in which case
// that error is returned and no new invocations are started. Panics
// in fn are propagated to the caller.
func (t T) Each(n int, fn func(i int) error) error {
	workers := t.Limit
	if workers == 0 || workers > n {
		workers = n
	}
	var (
		once errors.Once
		wg   sync.WaitGroup
		next int64 = -1
	)
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for once.Err() == nil {
				i := int(atomic.AddInt64(&next, 1))
				if i >= n {
					return
				}
				once.Set(apply(fn, i))
			}
		}()
	}
	wg.Wait()
	err := once.Err()
	if perr, ok := err.(panicErr); ok {
		panic(fmt.Sprintf("traverse child: %v\n%s", perr.v, string(perr.stack)))
	}
	return err
}

func apply(fn func(i int) error, i int) (err error) {
	defer func() {
		if perr := recover(); perr != nil {
			err = panicErr{perr, debug.Stack()}
		}
	}()
	return fn(i)
}

type panicErr struct {
	v     interface{}
	stack []byte
}

func (p panicErr) Error() string { return fmt.Sprint(p.v) }
