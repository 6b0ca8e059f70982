package eventloop_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lyzr/notf/common/logger"
	"github.com/lyzr/notf/eventloop"
)

func testLogger() *logger.Logger { return logger.New("error", "text") }

func TestScheduleRunsInFIFOOrder(t *testing.T) {
	loop := eventloop.New(testLogger())
	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		loop.Schedule(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			if i == 4 {
				cancel()
			}
		})
	}

	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop after cancellation")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestScheduleEventReceivesRunContext(t *testing.T) {
	loop := eventloop.New(testLogger())
	ctx, cancel := context.WithCancel(context.Background())

	received := make(chan context.Context, 1)
	loop.ScheduleEvent(func(evCtx context.Context) {
		received <- evCtx
		cancel()
	})

	done := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(done)
	}()

	select {
	case got := <-received:
		assert.Equal(t, ctx, got)
	case <-time.After(2 * time.Second):
		t.Fatal("event was never dispatched")
	}
	<-done
}

// TestShutdownDrainsQueuedEvents covers Shutdown's documented behavior:
// events already queued at shutdown time still run before Run returns, but
// Shutdown itself blocks until that drain completes.
func TestShutdownDrainsQueuedEvents(t *testing.T) {
	loop := eventloop.New(testLogger())
	ctx := context.Background()

	block := make(chan struct{})
	var drained int32
	var mu sync.Mutex

	loop.Schedule(func() {
		<-block // hold the logic thread until the test signals
	})
	for i := 0; i < 3; i++ {
		loop.Schedule(func() {
			mu.Lock()
			drained++
			mu.Unlock()
		})
	}

	runDone := make(chan struct{})
	go func() {
		loop.Run(ctx)
		close(runDone)
	}()

	shutdownDone := make(chan struct{})
	go func() {
		loop.Shutdown()
		close(shutdownDone)
	}()

	// Shutdown must not complete while the first event still blocks the
	// logic thread.
	select {
	case <-shutdownDone:
		t.Fatal("shutdown returned before the blocking event released the logic thread")
	case <-time.After(100 * time.Millisecond):
	}

	close(block)

	select {
	case <-shutdownDone:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not complete after the blocking event released the logic thread")
	}
	<-runDone

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, int32(3), drained, "every event queued before shutdown must still run")
}

func TestSatisfiesOperatorScheduler(t *testing.T) {
	loop := eventloop.New(testLogger())
	var scheduler interface{ Schedule(fn func()) } = loop
	require.NotNil(t, scheduler)
}
