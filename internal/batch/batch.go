// Pubrec - Community Recommendations from Shared Memberships
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pubrec

// Package batch issues keyed calls in fixed-size windows.
//
// Each window runs its calls concurrently and waits for all of them before
// pausing and starting the next window. A failing call is recorded and
// skipped; only errors classified as fatal stop the run.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/tomtom215/pubrec/internal/logging"
	"github.com/tomtom215/pubrec/internal/metrics"
)

// Default window settings.
const (
	DefaultWindow      = 25
	DefaultDelay       = 180 * time.Millisecond
	DefaultCallTimeout = 10 * time.Second
)

// ProgressFunc is called after each window with the number of completed calls.
type ProgressFunc func(done, total int)

// Options configures a Run.
type Options struct {
	// Operation labels logs and metrics (e.g. "member_scan").
	Operation string

	// Window is the maximum number of calls in flight.
	Window int

	// Delay is the pause between windows.
	Delay time.Duration

	// CallTimeout bounds each individual call.
	CallTimeout time.Duration

	// IsFatal reports whether an error must abort the run.
	// Context cancellation of the parent is always fatal.
	IsFatal func(error) bool

	// Progress is optional.
	Progress ProgressFunc
}

// withDefaults fills zero values.
func (o Options) withDefaults() Options {
	if o.Window <= 0 {
		o.Window = DefaultWindow
	}
	if o.Delay < 0 {
		o.Delay = 0
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = DefaultCallTimeout
	}
	if o.Operation == "" {
		o.Operation = "batch"
	}
	return o
}

// Result holds the values of successful calls keyed by request identity.
type Result[K comparable, V any] struct {
	Values map[K]V

	// Failed lists keys whose call failed, in submission order.
	Failed []K
}

// Succeeded returns the number of successful calls.
func (r *Result[K, V]) Succeeded() int {
	return len(r.Values)
}

// FatalError wraps the error that stopped a run.
type FatalError struct {
	Operation string
	Err       error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s aborted: %v", e.Operation, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// outcome is the result of one call inside a window.
type outcome[V any] struct {
	value V
	err   error
}

// Run calls fn once per key, Window keys at a time.
//
// Keys are deduplicated by the caller; a repeated key overwrites its earlier
// value. The returned Result is non-nil even when err is non-nil and holds
// everything collected before the run stopped.
func Run[K comparable, V any](ctx context.Context, keys []K, opts Options, fn func(ctx context.Context, key K) (V, error)) (*Result[K, V], error) {
	opts = opts.withDefaults()
	res := &Result[K, V]{Values: make(map[K]V, len(keys))}
	if len(keys) == 0 {
		return res, nil
	}

	logger := logging.Ctx(ctx).With().
		Str("component", "batch").
		Str("operation", opts.Operation).
		Logger()

	windows := lo.Chunk(keys, opts.Window)
	done := 0

	for i, window := range windows {
		if i > 0 && opts.Delay > 0 {
			select {
			case <-time.After(opts.Delay):
			case <-ctx.Done():
				return res, &FatalError{Operation: opts.Operation, Err: ctx.Err()}
			}
		}
		if err := ctx.Err(); err != nil {
			return res, &FatalError{Operation: opts.Operation, Err: err}
		}

		outcomes := runWindow(ctx, window, opts.CallTimeout, fn)

		var fatal error
		failures := 0
		for j, key := range window {
			o := outcomes[j]
			if o.err == nil {
				res.Values[key] = o.value
				continue
			}
			failures++
			res.Failed = append(res.Failed, key)
			logger.Debug().Err(o.err).Interface("key", key).Msg("Call failed, skipping")
			if fatal == nil && isFatal(ctx, opts, o.err) {
				fatal = o.err
			}
		}

		done += len(window)
		metrics.RecordBatchWindow(opts.Operation, failures)
		if opts.Progress != nil {
			opts.Progress(done, len(keys))
		}

		if fatal != nil {
			logger.Warn().Err(fatal).Int("window", i+1).Int("windows", len(windows)).Msg("Batch aborted")
			return res, &FatalError{Operation: opts.Operation, Err: fatal}
		}
	}

	if len(res.Failed) > 0 {
		logger.Info().
			Int("succeeded", res.Succeeded()).
			Int("failed", len(res.Failed)).
			Msg("Batch completed with skipped calls")
	}

	return res, nil
}

// runWindow issues one window of calls concurrently and waits for all of them.
func runWindow[K comparable, V any](ctx context.Context, window []K, timeout time.Duration, fn func(ctx context.Context, key K) (V, error)) []outcome[V] {
	outcomes := make([]outcome[V], len(window))

	var wg sync.WaitGroup
	for j, key := range window {
		wg.Add(1)
		go func(j int, key K) {
			defer wg.Done()

			callCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			v, err := safeCall(callCtx, key, fn)
			outcomes[j] = outcome[V]{value: v, err: err}
		}(j, key)
	}
	wg.Wait()

	return outcomes
}

// safeCall converts a panicking call into an error.
func safeCall[K comparable, V any](ctx context.Context, key K, fn func(ctx context.Context, key K) (V, error)) (v V, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("call panicked: %v", r)
		}
	}()
	return fn(ctx, key)
}

// isFatal classifies a call error.
func isFatal(ctx context.Context, opts Options, err error) bool {
	// The parent context ending is fatal; a per-call deadline is not
	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return true
	}
	if opts.IsFatal != nil {
		return opts.IsFatal(err)
	}
	return false
}
