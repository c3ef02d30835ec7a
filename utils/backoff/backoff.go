// Copyright (c) 2016-2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package backoff bounds retries of an operation by total wait time.
package backoff

import (
	"context"
	"fmt"
	"time"

	"github.com/jpillora/backoff"
)

// Config defines backoff configuration.
type Config struct {
	Min          time.Duration `yaml:"min"`
	Max          time.Duration `yaml:"max"`
	Factor       float64       `yaml:"factor"`
	RetryTimeout time.Duration `yaml:"retry_timeout"`
	NoJitter     bool          `yaml:"no_jitter"`
}

func (c Config) applyDefaults() Config {
	if c.Min == 0 {
		c.Min = 500 * time.Millisecond
	}
	if c.Max == 0 {
		c.Max = 2 * time.Second
	}
	if c.Factor == 0 {
		c.Factor = 1.5
	}
	if c.RetryTimeout == 0 {
		c.RetryTimeout = 10 * time.Second
	}
	return c
}

// Backoff computes the waits between attempts.
type Backoff struct {
	config Config
	b      *backoff.Backoff
}

// New creates a new Backoff.
func New(config Config) *Backoff {
	config = config.applyDefaults()
	return &Backoff{config, &backoff.Backoff{
		Factor: config.Factor,
		Jitter: !config.NoJitter,
		Min:    config.Min,
		Max:    config.Max,
	}}
}

// Duration returns the wait after the given attempt, counting from 0.
func (b *Backoff) Duration(attempt int) time.Duration {
	return b.b.ForAttempt(float64(attempt))
}

// Attempts returns an iterator over attempts whose waits add up to at most
// the retry timeout. The first attempt never waits.
func (b *Backoff) Attempts() *Attempts {
	var waits int
	var total time.Duration
	for {
		d := b.Duration(waits)
		if total+d > b.config.RetryTimeout {
			break
		}
		total += d
		waits++
	}
	return &Attempts{
		backoff:     b,
		attempt:     -1,
		maxAttempts: waits,
	}
}

type timeoutError struct {
	attempts int
	timeout  time.Duration
}

func (e timeoutError) Error() string {
	return fmt.Sprintf("timed out after %d attempts in %s", e.attempts, e.timeout)
}

// IsTimeoutError returns true if err is returned by Attempts.Err after all
// attempts were used up.
func IsTimeoutError(err error) bool {
	_, ok := err.(timeoutError)
	return ok
}

// Attempts iterates over the attempts of an operation.
type Attempts struct {
	backoff     *Backoff
	attempt     int
	maxAttempts int
	err         error
}

// WaitForNext waits before the next attempt. Returns false once no attempts
// are left or ctx is done, see Err.
func (a *Attempts) WaitForNext(ctx context.Context) bool {
	if a.attempt < 0 {
		a.attempt = 0
		return true
	}
	if a.attempt >= a.maxAttempts {
		a.err = timeoutError{a.maxAttempts + 1, a.backoff.config.RetryTimeout}
		return false
	}
	select {
	case <-time.After(a.backoff.Duration(a.attempt)):
	case <-ctx.Done():
		a.err = ctx.Err()
		return false
	}
	a.attempt++
	return true
}

// Err returns why WaitForNext returned false.
func (a *Attempts) Err() error {
	return a.err
}
