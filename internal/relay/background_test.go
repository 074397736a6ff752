package relay

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type errorSink struct {
	mu    sync.Mutex
	names []string
	errs  []error
}

func (s *errorSink) record(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = append(s.names, name)
	s.errs = append(s.errs, err)
}

func TestExecutor_ErrorReachesCallback(t *testing.T) {
	sink := &errorSink{}
	exec := NewExecutor(testLogger(), sink.record)

	boom := errors.New("boom")
	exec.Spawn(context.Background(), "failing task", func(context.Context) error {
		return boom
	})
	exec.Wait()

	if len(sink.errs) != 1 || !errors.Is(sink.errs[0], boom) {
		t.Errorf("callback errors = %v", sink.errs)
	}
	if sink.names[0] != "failing task" {
		t.Errorf("callback name = %q", sink.names[0])
	}
}

func TestExecutor_PanicRecovered(t *testing.T) {
	sink := &errorSink{}
	exec := NewExecutor(testLogger(), sink.record)

	exec.Spawn(context.Background(), "panicking task", func(context.Context) error {
		panic("unexpected state")
	})
	exec.Wait()

	if len(sink.errs) != 1 {
		t.Fatalf("callback errors = %v", sink.errs)
	}
	if got := sink.errs[0].Error(); got != "panic: unexpected state" {
		t.Errorf("err = %q", got)
	}
}

func TestExecutor_SuccessSkipsCallback(t *testing.T) {
	sink := &errorSink{}
	exec := NewExecutor(testLogger(), sink.record)

	var ran bool
	exec.Spawn(context.Background(), "ok", func(context.Context) error {
		ran = true
		return nil
	})
	exec.Wait()

	if !ran {
		t.Error("task did not run")
	}
	if len(sink.errs) != 0 {
		t.Errorf("unexpected callback: %v", sink.errs)
	}
}

func TestExecutor_WaitDrainsAll(t *testing.T) {
	exec := NewExecutor(testLogger(), nil)

	var mu sync.Mutex
	done := 0
	for i := 0; i < 10; i++ {
		exec.Spawn(context.Background(), "task", func(context.Context) error {
			mu.Lock()
			done++
			mu.Unlock()
			return nil
		})
	}
	exec.Wait()

	if done != 10 {
		t.Errorf("done = %d, want 10", done)
	}
}
