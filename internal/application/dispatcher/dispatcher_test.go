package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/garyjia/expense-manager/internal/domain/event"
)

// mockLogger implements Logger for testing
type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

func (m *mockLogger) ErrorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors)
}

func (m *mockLogger) HasInfo(msg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, info := range m.infos {
		if info == msg {
			return true
		}
	}
	return false
}

func submitted() *event.Event {
	return event.NewEvent(event.TypeExpenseSubmitted, "org-1", "exp-1", "user-1", map[string]interface{}{
		event.KeyTitle: "Taxi",
	})
}

func noop(ctx context.Context, evt *event.Event) error { return nil }

func TestSubscribe(t *testing.T) {
	t.Run("logs registration and generates names", func(t *testing.T) {
		logger := &mockLogger{}
		d := NewDispatcher(WithLogger(logger))

		d.Subscribe(event.TypeExpenseSubmitted, "", noop)

		if !logger.HasInfo("Handler registered") {
			t.Error("expected registration to be logged")
		}
		handlers := d.ListHandlers(event.TypeExpenseSubmitted)
		if len(handlers) != 1 || handlers[0].Name != "expense.submitted-handler-0" {
			t.Errorf("unexpected handlers: %+v", handlers)
		}
		if handlers[0].Handler != nil {
			t.Error("expected handler function not to be exposed")
		}
	})

	t.Run("catch-all handlers run after typed handlers", func(t *testing.T) {
		d := NewDispatcher()
		var order []string

		d.Subscribe(AnyEvent, "publisher", func(ctx context.Context, evt *event.Event) error {
			order = append(order, "publisher")
			return nil
		})
		d.Subscribe(event.TypeExpenseSubmitted, "notify", func(ctx context.Context, evt *event.Event) error {
			order = append(order, "notify")
			return nil
		})
		d.Subscribe(event.TypeExpenseApproved, "other", func(ctx context.Context, evt *event.Event) error {
			order = append(order, "other")
			return nil
		})

		if err := d.Dispatch(context.Background(), submitted()); err != nil {
			t.Fatalf("dispatch failed: %v", err)
		}
		if len(order) != 2 || order[0] != "notify" || order[1] != "publisher" {
			t.Errorf("expected [notify publisher], got %v", order)
		}
	})
}

func TestUnsubscribe(t *testing.T) {
	d := NewDispatcher()
	called1, called2 := false, false

	d.Subscribe(event.TypeExpenseSubmitted, "handler-1", func(ctx context.Context, evt *event.Event) error {
		called1 = true
		return nil
	})
	d.Subscribe(event.TypeExpenseSubmitted, "handler-2", func(ctx context.Context, evt *event.Event) error {
		called2 = true
		return nil
	})

	d.Unsubscribe(event.TypeExpenseSubmitted, "handler-1")

	if err := d.Dispatch(context.Background(), submitted()); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if called1 {
		t.Error("expected handler-1 not to be called")
	}
	if !called2 {
		t.Error("expected handler-2 to be called")
	}
}

func TestDispatch(t *testing.T) {
	t.Run("runs every handler and joins errors", func(t *testing.T) {
		d := NewDispatcher()
		expectedErr := errors.New("handler error")
		called := false

		d.Subscribe(event.TypeExpenseSubmitted, "failing", func(ctx context.Context, evt *event.Event) error {
			return expectedErr
		})
		d.Subscribe(event.TypeExpenseSubmitted, "next", func(ctx context.Context, evt *event.Event) error {
			called = true
			return nil
		})

		err := d.Dispatch(context.Background(), submitted())
		if !errors.Is(err, expectedErr) {
			t.Errorf("expected error to wrap %v, got %v", expectedErr, err)
		}
		if !called {
			t.Error("expected second handler to run after a failure")
		}
	})

	t.Run("recovers from handler panic", func(t *testing.T) {
		logger := &mockLogger{}
		d := NewDispatcher(WithLogger(logger))

		d.Subscribe(event.TypeExpenseSubmitted, "panics", func(ctx context.Context, evt *event.Event) error {
			panic("test panic")
		})

		if err := d.Dispatch(context.Background(), submitted()); err == nil {
			t.Fatal("expected error from panic recovery")
		}
		if logger.ErrorCount() == 0 {
			t.Error("expected panic to be logged as error")
		}
	})

	t.Run("returns ErrClosed when dispatcher is closed", func(t *testing.T) {
		d := NewDispatcher()
		if err := d.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}

		if err := d.Dispatch(context.Background(), submitted()); !errors.Is(err, ErrClosed) {
			t.Fatalf("expected ErrClosed, got %v", err)
		}
	})
}

func TestDispatchAsync(t *testing.T) {
	t.Run("handlers outlive a cancelled request context", func(t *testing.T) {
		d := NewDispatcher()
		var ctxErr atomic.Value

		d.Subscribe(event.TypeExpenseSubmitted, "slow", func(ctx context.Context, evt *event.Event) error {
			time.Sleep(20 * time.Millisecond)
			ctxErr.Store(fmt.Sprint(ctx.Err()))
			return nil
		})

		ctx, cancel := context.WithCancel(context.Background())
		d.DispatchAsync(ctx, submitted())
		cancel()

		if err := d.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}
		if got := ctxErr.Load(); got != "<nil>" {
			t.Errorf("expected live context in handler, got %v", got)
		}
	})

	t.Run("applies the async timeout", func(t *testing.T) {
		d := NewDispatcher(WithAsyncTimeout(10 * time.Millisecond))
		var timedOut atomic.Bool

		d.Subscribe(event.TypeExpenseSubmitted, "waits", func(ctx context.Context, evt *event.Event) error {
			<-ctx.Done()
			timedOut.Store(errors.Is(ctx.Err(), context.DeadlineExceeded))
			return ctx.Err()
		})

		d.DispatchAsync(context.Background(), submitted())
		if err := d.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}
		if !timedOut.Load() {
			t.Error("expected handler context to hit its deadline")
		}
	})

	t.Run("logs errors without blocking other handlers", func(t *testing.T) {
		logger := &mockLogger{}
		d := NewDispatcher(WithLogger(logger))
		var called atomic.Int32

		d.Subscribe(event.TypeExpenseSubmitted, "failing", func(ctx context.Context, evt *event.Event) error {
			return errors.New("handler error")
		})
		d.Subscribe(AnyEvent, "counter", func(ctx context.Context, evt *event.Event) error {
			called.Add(1)
			return nil
		})

		d.DispatchAsync(context.Background(), submitted())
		if err := d.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}

		if called.Load() != 1 {
			t.Errorf("expected catch-all handler to be called once, got %d", called.Load())
		}
		if logger.ErrorCount() == 0 {
			t.Error("expected error to be logged")
		}
	})

	t.Run("does not dispatch when dispatcher is closed", func(t *testing.T) {
		logger := &mockLogger{}
		d := NewDispatcher(WithLogger(logger))
		var called atomic.Int32

		d.Subscribe(event.TypeExpenseSubmitted, "counter", func(ctx context.Context, evt *event.Event) error {
			called.Add(1)
			return nil
		})
		if err := d.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}

		d.DispatchAsync(context.Background(), submitted())
		time.Sleep(20 * time.Millisecond)

		if called.Load() > 0 {
			t.Error("expected handler not to be called after close")
		}
		if logger.ErrorCount() == 0 {
			t.Error("expected error log for dispatching to closed dispatcher")
		}
	})
}

func TestClose(t *testing.T) {
	d := NewDispatcher()
	if err := d.Close(); err != nil {
		t.Fatalf("first close failed: %v", err)
	}
	if err := d.Close(); err == nil {
		t.Fatal("expected error on second close")
	}
}

func TestConcurrentDispatch(t *testing.T) {
	d := NewDispatcher()
	var called atomic.Int32

	for i := 0; i < 5; i++ {
		d.Subscribe(event.TypeExpenseApproved, fmt.Sprintf("handler-%d", i), func(ctx context.Context, evt *event.Event) error {
			called.Add(1)
			return nil
		})
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			evt := event.NewEvent(event.TypeExpenseApproved, "org-1", "exp-1", "mgr-1", nil)
			_ = d.Dispatch(context.Background(), evt)
		}()
	}
	wg.Wait()

	if called.Load() != 50 {
		t.Errorf("expected 50 handler calls, got %d", called.Load())
	}
}
