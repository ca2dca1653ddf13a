// Package retry models bounded retry-with-backoff as an explicit state machine.
//
// [Next] is pure: given a policy and the state after an attempt it decides
// whether to give up or how long to wait. [Do] drives it.
package retry

import (
	"context"
	"time"

	"github.com/jpillora/backoff"
)

// Policy bounds the attempts made for one driver action.
type Policy struct {
	MaxAttempts int // total attempts, including the first
	Min         time.Duration
	Max         time.Duration
	Factor      float64
}

// DefaultPolicy makes three attempts with 1s, then 2s between them.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, Min: time.Second, Max: 8 * time.Second, Factor: 2}
}

// State is what is known after an attempt has completed.
type State struct {
	Attempt int // attempts made so far
	LastErr error
}

// Decision is the next step of the state machine.
type Decision struct {
	GiveUp bool
	Delay  time.Duration
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Next decides what follows an attempt.
//
// Success or an exhausted attempt budget gives up.
func Next(p Policy, s State) Decision {
	if s.LastErr == nil || s.Attempt >= max(p.MaxAttempts, 1) {
		return Decision{GiveUp: true}
	}

	b := &backoff.Backoff{Min: p.Min, Max: p.Max, Factor: p.Factor, Jitter: false}
	return Decision{Delay: b.ForAttempt(float64(s.Attempt - 1))}
}

// Do calls fn until it succeeds or [Next] gives up, sleeping between attempts.
// It returns the number of attempts made and the last error.
//
// Once ctx is done no further attempt is made. Deadlines applied by fn to a
// single attempt are ordinary failures and are retried.
func Do(ctx context.Context, p Policy, sleep SleepFunc, fn func(ctx context.Context) error) (int, error) {
	if sleep == nil {
		sleep = Sleep
	}

	state := State{}
	for {
		state.LastErr = fn(ctx)
		state.Attempt++

		d := Next(p, state)
		if d.GiveUp || ctx.Err() != nil {
			return state.Attempt, state.LastErr
		}
		if err := sleep(ctx, d.Delay); err != nil {
			return state.Attempt, state.LastErr
		}
	}
}

// Sleep waits for d, returning early with the context error if ctx ends first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
