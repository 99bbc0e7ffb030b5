// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package traverse_test

import (
	"errors"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/metasub/utils/traverse"
)

func recovered(f func()) (v interface{}) {
	defer func() { v = recover() }()
	f()
	return v
}

func TestTraverse(t *testing.T) {
	list := make([]int, 5)
	err := traverse.Limit(5).Each(5, func(i int) error {
		list[i] += i
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := list, []int{0, 1, 2, 3, 4}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	expectedErr := errors.New("test error")
	err = traverse.Limit(5).Each(5, func(i int) error {
		if i == 3 {
			return expectedErr
		}
		return nil
	})
	if got, want := err, expectedErr; got != want {
		t.Errorf("got %v want %v", got, want)
	}
}

func TestLimit(t *testing.T) {
	for _, test := range []struct{ n, limit int }{{1, 1}, {10, 2}, {100, 50}, {7, 100}} {
		var (
			active, max int32
			visited     = make([]int32, test.n)
		)
		err := traverse.Limit(test.limit).Each(test.n, func(i int) error {
			cur := atomic.AddInt32(&active, 1)
			for {
				m := atomic.LoadInt32(&max)
				if cur <= m || atomic.CompareAndSwapInt32(&max, m, cur) {
					break
				}
			}
			atomic.AddInt32(&visited[i], 1)
			atomic.AddInt32(&active, -1)
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		if int(max) > test.limit {
			t.Errorf("n=%d: %d concurrent invocations, limit %d", test.n, max, test.limit)
		}
		for i, v := range visited {
			if v != 1 {
				t.Errorf("n=%d: index %d visited %d times", test.n, i, v)
			}
		}
	}
}

func TestZero(t *testing.T) {
	if err := traverse.Limit(4).Each(0, func(int) error { panic("called") }); err != nil {
		t.Fatal(err)
	}
}

func TestPanic(t *testing.T) {
	v := recovered(func() {
		_ = traverse.Limit(2).Each(4, func(i int) error {
			if i == 2 {
				panic("flowcell")
			}
			return nil
		})
	})
	s, ok := v.(string)
	if !ok || !strings.HasPrefix(s, "traverse child: flowcell") {
		t.Errorf("unexpected panic value %v", v)
	}
}

func TestInvalidLimit(t *testing.T) {
	if recovered(func() { traverse.Limit(0) }) == nil {
		t.Error("expected panic")
	}
}
