package bridge_test

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maberbac/gestion-condos-sub001/internal/bridge"
	"github.com/maberbac/gestion-condos-sub001/internal/utils"
)

func testBridge(poolSize int) *bridge.Bridge {
	return bridge.New(poolSize, zerolog.New(nil).Level(zerolog.Disabled))
}

func TestCall(t *testing.T) {
	ctx := context.Background()

	t.Run("Runs inline and returns the result", func(t *testing.T) {
		b := testBridge(2)

		got, err := bridge.Call(b, ctx, func(ctx context.Context) (int, error) {
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, got)
	})

	t.Run("Preserves the error taxonomy", func(t *testing.T) {
		b := testBridge(2)

		_, err := bridge.Call(b, ctx, func(ctx context.Context) (int, error) {
			return 0, utils.WrapNotFoundError("unit", "7")
		})
		require.Error(t, err)
		assert.True(t, utils.IsNotFoundError(err), "classification must survive the bridge")
		assert.Contains(t, err.Error(), "bridge:", "the trace marker is the only addition")
	})

	t.Run("Failures are logged through the bridge's logger", func(t *testing.T) {
		var buf bytes.Buffer
		b := bridge.New(1, zerolog.New(&buf).Level(zerolog.DebugLevel))

		_, err := bridge.Call(b, ctx, func(ctx context.Context) (int, error) {
			return 0, utils.WrapNotFoundError("unit", "7")
		})
		require.Error(t, err)
		assert.Contains(t, buf.String(), "Bridge call failed")

		buf.Reset()
		_, err = bridge.Call(b, ctx, func(ctx context.Context) (int, error) {
			return 1, nil
		})
		require.NoError(t, err)
		assert.Empty(t, buf.String(), "successes are not logged")
	})
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("Returns the result through the handle", func(t *testing.T) {
		b := testBridge(2)

		h := bridge.Submit(b, ctx, func(ctx context.Context) (string, error) {
			return "done", nil
		})

		got, err := h.Wait()
		require.NoError(t, err)
		assert.Equal(t, "done", got)
	})

	t.Run("Never blocks the submitting goroutine", func(t *testing.T) {
		b := testBridge(1)

		release := make(chan struct{})
		slow := bridge.Submit(b, ctx, func(ctx context.Context) (int, error) {
			<-release
			return 1, nil
		})

		// While the slow operation holds the only pool slot, the submitter
		// must still be free to make progress.
		sideEffect := make(chan struct{})
		go func() {
			close(sideEffect)
		}()

		select {
		case <-sideEffect:
		case <-time.After(time.Second):
			t.Fatal("submitting goroutine was blocked by an in-flight operation")
		}

		select {
		case <-slow.Done():
			t.Fatal("operation completed before it was released")
		default:
		}

		close(release)
		got, err := slow.Wait()
		require.NoError(t, err)
		assert.Equal(t, 1, got)
	})

	t.Run("Preserves the error taxonomy across the pool boundary", func(t *testing.T) {
		b := testBridge(2)

		h := bridge.Submit(b, ctx, func(ctx context.Context) (int, error) {
			return 0, utils.WrapPersistenceError("read units", assertableErr{})
		})

		_, err := h.Wait()
		require.Error(t, err)
		assert.True(t, utils.IsPersistenceError(err))
		assert.False(t, utils.IsValidationError(err))
	})

	t.Run("Marshals a panic as an error", func(t *testing.T) {
		b := testBridge(2)

		h := bridge.Submit(b, ctx, func(ctx context.Context) (int, error) {
			panic("storage layer exploded")
		})

		_, err := h.Wait()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "panicked")
		assert.Contains(t, err.Error(), "storage layer exploded")
	})

	t.Run("Pool bound limits concurrent operations", func(t *testing.T) {
		const poolSize = 2
		const submissions = 8
		b := testBridge(poolSize)

		var running, peak int64
		release := make(chan struct{})

		var handles []*bridge.Handle[int]
		for i := 0; i < submissions; i++ {
			handles = append(handles, bridge.Submit(b, ctx, func(ctx context.Context) (int, error) {
				now := atomic.AddInt64(&running, 1)
				for {
					old := atomic.LoadInt64(&peak)
					if now <= old || atomic.CompareAndSwapInt64(&peak, old, now) {
						break
					}
				}
				<-release
				atomic.AddInt64(&running, -1)
				return 0, nil
			}))
		}

		// Let workers reach the gate
		time.Sleep(50 * time.Millisecond)
		close(release)

		var wg sync.WaitGroup
		for _, h := range handles {
			wg.Add(1)
			go func(h *bridge.Handle[int]) {
				defer wg.Done()
				_, err := h.Wait()
				assert.NoError(t, err)
			}(h)
		}
		wg.Wait()

		assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(poolSize))
	})

	t.Run("Done supports select-based callers", func(t *testing.T) {
		b := testBridge(1)

		h := bridge.Submit(b, ctx, func(ctx context.Context) (bool, error) {
			return true, nil
		})

		select {
		case <-h.Done():
		case <-time.After(time.Second):
			t.Fatal("handle never completed")
		}

		got, err := h.Wait()
		require.NoError(t, err)
		assert.True(t, got)
	})
}

// assertableErr is a trivial error used as a persistence cause in tests.
type assertableErr struct{}

func (assertableErr) Error() string { return "disk unplugged" }
