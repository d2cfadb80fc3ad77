// Package bridge reconciles the two calling styles of the repository layer:
// plain blocking callers (startup scripts, CLI tools) and callers driving an
// event loop that must never block on storage. Instead of detecting how it
// was called at runtime, every operation is invoked through an explicit
// capability: Call runs inline on the caller's goroutine, Submit offloads to
// a bounded worker pool and hands back a completion handle. Both paths
// return the same result type and preserve the error taxonomy.
package bridge

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Bridge owns the worker pool backing the Submit path. A single Bridge is
// shared by all repositories of a store instance.
type Bridge struct {
	slots  chan struct{}
	logger zerolog.Logger
}

// New creates a Bridge whose pool admits at most poolSize concurrent
// operations.
func New(poolSize int, logger zerolog.Logger) *Bridge {
	if poolSize <= 0 {
		poolSize = 1
	}
	return &Bridge{
		slots:  make(chan struct{}, poolSize),
		logger: logger,
	}
}

// PoolSize returns the maximum number of concurrently running operations.
func (b *Bridge) PoolSize() int {
	return cap(b.slots)
}

// Handle exposes the completion of a submitted operation. Wait blocks until
// the operation finishes; Done supports select-based callers. There is no
// mid-operation cancellation: once dispatched, an operation runs to
// completion, and callers with deadlines must rely on retry idempotence at
// their own layer.
type Handle[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Done returns a channel closed when the operation has completed.
func (h *Handle[T]) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the operation completes and returns its outcome.
func (h *Handle[T]) Wait() (T, error) {
	<-h.done
	return h.value, h.err
}

// Call runs op inline on the caller's goroutine and returns synchronously.
// Failures are logged through the bridge's logger.
func Call[T any](b *Bridge, ctx context.Context, op func(context.Context) (T, error)) (T, error) {
	value, err := op(ctx)
	if err != nil {
		b.logger.Debug().Err(err).Msg("Bridge call failed")
	}
	return value, traced(err)
}

// Submit dispatches op to the worker pool and returns immediately. The
// submitting goroutine is never blocked, even when the pool is saturated:
// the spawned worker waits for a slot, not the caller.
func Submit[T any](b *Bridge, ctx context.Context, op func(context.Context) (T, error)) *Handle[T] {
	h := &Handle[T]{done: make(chan struct{})}

	go func() {
		b.slots <- struct{}{}
		defer func() { <-b.slots }()
		defer close(h.done)
		defer func() {
			if p := recover(); p != nil {
				b.logger.Error().Interface("panic", p).Msg("Bridge operation panicked")
				h.err = fmt.Errorf("bridge: operation panicked: %v", p)
			}
		}()

		value, err := op(ctx)
		h.value = value
		h.err = traced(err)
	}()

	return h
}

// traced adds the bridge marker without changing the error's kind, so
// errors.Is classification survives the boundary.
func traced(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("bridge: %w", err)
}
