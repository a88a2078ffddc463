// Package poll waits for a condition to become true within a bounded time.
//
// Conditions report (done, err). A fatal error, either wrapped with [Abort]
// or classified as cloud.KindFatal, stops polling at once and is returned to
// the caller. Any other error is logged and treated as "not yet", so a
// condition never has to decide on its own whether an error ends the wait.
package poll

import (
	"context"
	"errors"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/imamik/vnfstack/internal/cloud"
	"github.com/imamik/vnfstack/internal/metrics"
	"github.com/imamik/vnfstack/internal/util/retry"
)

// Condition is evaluated once per poll cycle.
type Condition func(ctx context.Context) (done bool, err error)

// Options bounds a poll.
type Options struct {
	// Name labels log lines and metrics, e.g. "instance-active".
	Name string

	Timeout  time.Duration
	Interval time.Duration

	// Block waits up to Timeout. When false the effective timeout is a
	// single Interval.
	Block bool

	Logger logr.Logger
}

// Abort marks err as fatal so that Until stops immediately.
func Abort(err error) error {
	return retry.Fatal(err)
}

// IsAbort reports whether err stops polling.
func IsAbort(err error) bool {
	return retry.IsFatal(err) || cloud.IsFatal(err)
}

// Until evaluates cond immediately and then every Interval until it returns
// true or the timeout elapses. It returns the last result of cond.
//
// A timeout is not an error: Until returns (false, nil). The error is only
// set when the condition aborted or ctx itself was cancelled.
func Until(ctx context.Context, cond Condition, opts Options) (bool, error) {
	if opts.Interval <= 0 {
		return false, errors.New("poll interval must be positive")
	}
	timeout := opts.Timeout
	if !opts.Block || timeout < opts.Interval {
		timeout = opts.Interval
	}
	log := opts.Logger.WithValues("poll", opts.Name)

	var aborted error
	cycle := 0
	err := wait.PollUntilContextTimeout(ctx, opts.Interval, timeout, true, func(ctx context.Context) (bool, error) {
		cycle++
		metrics.RecordPollCycle(opts.Name)

		done, err := cond(ctx)
		if err == nil {
			if !done {
				log.V(1).Info("condition not met", "cycle", cycle)
			}
			return done, nil
		}
		if IsAbort(err) {
			aborted = err
			return false, err
		}
		log.Info("condition failed, retrying", "cycle", cycle, "error", err.Error())
		return false, nil
	})

	switch {
	case err == nil:
		metrics.RecordPollOutcome(opts.Name, metrics.OutcomeDone)
		return true, nil
	case aborted != nil:
		metrics.RecordPollOutcome(opts.Name, metrics.OutcomeAborted)
		return false, aborted
	case ctx.Err() != nil:
		metrics.RecordPollOutcome(opts.Name, metrics.OutcomeAborted)
		return false, ctx.Err()
	default:
		metrics.RecordPollOutcome(opts.Name, metrics.OutcomeTimeout)
		log.Info("timed out", "timeout", timeout.String(), "cycles", cycle)
		return false, nil
	}
}
