// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package retry contains retry policies for the network calls made
// by the MetaSUB utilities (metadata fetches, sequencing-center
// downloads).
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/metasub/utils/errors"
)

// A Policy tells whether a new try should be attempted, and after how
// long. Retries are numbered from zero.
type Policy interface {
	Retry(retry int) (bool, time.Duration)
}

// Wait queries the policy at the provided retry number and sleeps
// until the next try should be attempted. Wait returns an error if
// the policy prohibits further tries, if the context is done, or if
// the context's deadline would pass while waiting.
func Wait(ctx context.Context, policy Policy, retry int) error {
	keepgoing, wait := policy.Retry(retry)
	if !keepgoing {
		return errors.E(errors.TooManyTries, fmt.Sprintf("gave up after %d tries", retry))
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < wait {
		return errors.E(errors.Timeout, "ran out of time while waiting for retry")
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return errors.E(ctx.Err())
	}
}

// Do calls fn until it succeeds, returns an error that is not
// temporary, or the policy gives up. The last error from fn is
// returned.
func Do(ctx context.Context, policy Policy, fn func() error) error {
	for retries := 0; ; retries++ {
		err := fn()
		if err == nil || !errors.IsTemporary(err) {
			return err
		}
		if werr := Wait(ctx, policy, retries); werr != nil {
			return errors.E(err, werr.Error())
		}
	}
}

type backoff struct {
	factor       float64
	initial, max time.Duration
}

// Backoff returns a policy that initially waits for initial; on each
// try the wait is multiplied by factor, up to max.
func Backoff(initial, max time.Duration, factor float64) Policy {
	return &backoff{initial: initial, max: max, factor: factor}
}

func (b *backoff) Retry(retries int) (bool, time.Duration) {
	wait := time.Duration(float64(b.initial) * math.Pow(b.factor, float64(retries)))
	if wait > b.max {
		wait = b.max
	}
	return true, wait
}

type jitter struct {
	policy Policy
	frac   float64
}

// Jitter returns a policy that perturbs the waits of the provided
// policy by up to the given fraction.
func Jitter(policy Policy, frac float64) Policy {
	return &jitter{policy, frac}
}

func (j *jitter) Retry(retries int) (bool, time.Duration) {
	ok, wait := j.policy.Retry(retries)
	if !ok || wait == 0 {
		return ok, wait
	}
	delta := j.frac * float64(wait) * (2*rand.Float64() - 1)
	return true, wait + time.Duration(delta)
}

type maxRetries struct {
	policy Policy
	max    int
}

// MaxRetries returns a policy that permits at most n retries of the
// underlying policy.
func MaxRetries(policy Policy, n int) Policy {
	if n < 0 {
		panic("retry.MaxRetries: n < 0")
	}
	return &maxRetries{policy, n}
}

func (m *maxRetries) Retry(retries int) (bool, time.Duration) {
	if retries >= m.max {
		return false, 0
	}
	return m.policy.Retry(retries)
}
