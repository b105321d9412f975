// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

package resilience

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/fishbone/internal/logging"
)

var errTransient = errors.New("connection reset")

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func newTestExecutor(buf *bytes.Buffer) *Executor {
	return New(Config{MaxAttempts: 3, BaseDelay: time.Second, Strategy: Linear},
		WithLogger(logging.NewTestLogger(buf)),
		WithSleep(noSleep))
}

func TestConfig_Delay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		attempt int
		want    time.Duration
	}{
		{"linear first", Config{BaseDelay: time.Second, Strategy: Linear}, 1, time.Second},
		{"linear third", Config{BaseDelay: time.Second, Strategy: Linear}, 3, 3 * time.Second},
		{"exponential first", Config{BaseDelay: 100 * time.Millisecond, Strategy: Exponential}, 1, 100 * time.Millisecond},
		{"exponential fourth", Config{BaseDelay: 100 * time.Millisecond, Strategy: Exponential}, 4, 800 * time.Millisecond},
		{"capped", Config{BaseDelay: time.Second, MaxDelay: 2 * time.Second, Strategy: Exponential}, 5, 2 * time.Second},
		{"zero attempt treated as first", Config{BaseDelay: time.Second}, 0, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.cfg.Delay(tt.attempt); got != tt.want {
				t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestExecute_SucceedsAfterTwoFailures(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	exec := newTestExecutor(&buf)

	calls := 0
	var committed string
	err := Execute(context.Background(), exec, "stages", func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errTransient
		}
		return "ok", nil
	}, func(v string) { committed = v })

	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if committed != "ok" {
		t.Errorf("committed = %q, want ok", committed)
	}

	out := buf.String()
	if n := strings.Count(out, `"level":"warn"`); n != 2 {
		t.Errorf("warn lines = %d, want 2\n%s", n, out)
	}
	for _, want := range []string{`"attempt":1`, `"attempt":2`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s", want)
		}
	}
}

func TestExecute_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	exec := newTestExecutor(&buf)

	calls := 0
	applied := false
	err := Execute(context.Background(), exec, "client-options", func(context.Context) (int, error) {
		calls++
		return 0, errTransient
	}, func(int) { applied = true })

	if err == nil {
		t.Fatal("Execute() error = nil, want failure")
	}
	if !errors.Is(err, errTransient) {
		t.Errorf("error %v does not wrap the call error", err)
	}
	if !strings.Contains(err.Error(), "attempt 3/3 failed") {
		t.Errorf("error = %q, want attempt 3/3 prefix", err)
	}
	if IsCancelled(err) {
		t.Error("exhaustion must not be reported as cancellation")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if applied {
		t.Error("apply must not run on failure")
	}
	// The last attempt is not followed by a retry, so it is not logged as one.
	if n := strings.Count(buf.String(), `"level":"warn"`); n != 2 {
		t.Errorf("warn lines = %d, want 2", n)
	}
}

func TestExecute_BackoffDelays(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var waits []time.Duration
	exec := New(Config{MaxAttempts: 4, BaseDelay: 10 * time.Millisecond, Strategy: Exponential},
		WithSleep(func(ctx context.Context, d time.Duration) error {
			mu.Lock()
			waits = append(waits, d)
			mu.Unlock()
			return nil
		}))

	_ = Execute(context.Background(), exec, "stages", func(context.Context) (int, error) {
		return 0, errTransient
	}, nil)

	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond}
	if len(waits) != len(want) {
		t.Fatalf("waits = %v, want %v", waits, want)
	}
	for i := range want {
		if waits[i] != want[i] {
			t.Errorf("wait[%d] = %v, want %v", i, waits[i], want[i])
		}
	}
}

func TestExecute_CancelledIsTerminal(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	exec := newTestExecutor(&buf)

	calls := 0
	err := Execute(context.Background(), exec, "stages", func(context.Context) (int, error) {
		calls++
		return 0, context.Canceled
	}, nil)

	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("Execute() error = %v, want ErrCancelled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, cancellation must not retry", calls)
	}
	if strings.Contains(buf.String(), `"level":"warn"`) {
		t.Error("cancellation must be silent")
	}
}

func TestExecute_ParentContextCancelled(t *testing.T) {
	t.Parallel()

	exec := New(DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := Execute(ctx, exec, "stages", func(context.Context) (int, error) {
		called = true
		return 1, nil
	}, nil)

	if !errors.Is(err, ErrCancelled) {
		t.Errorf("Execute() error = %v, want ErrCancelled", err)
	}
	if called {
		t.Error("call must not run with a cancelled context")
	}
}

// A slow request A is superseded by a fast request B on the same slot. Even
// though A's call returns a value after B commits, only B's value is kept.
func TestExecute_SupersededResultIsDiscarded(t *testing.T) {
	t.Parallel()

	exec := New(DefaultConfig(), WithSleep(noSleep))

	var mu sync.Mutex
	var state []string
	commit := func(v string) {
		mu.Lock()
		state = append(state, v)
		mu.Unlock()
	}

	aStarted := make(chan struct{})
	bDone := make(chan struct{})
	aErr := make(chan error, 1)

	go func() {
		aErr <- Execute(context.Background(), exec, "client:c1", func(ctx context.Context) (string, error) {
			close(aStarted)
			<-bDone
			// Ignores ctx and returns late, like a response already on the wire.
			return "A", nil
		}, commit)
	}()

	<-aStarted
	err := Execute(context.Background(), exec, "client:c1", func(context.Context) (string, error) {
		return "B", nil
	}, commit)
	close(bDone)

	if err != nil {
		t.Fatalf("B error = %v", err)
	}
	if got := <-aErr; !errors.Is(got, ErrCancelled) {
		t.Errorf("A error = %v, want ErrCancelled", got)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(state) != 1 || state[0] != "B" {
		t.Errorf("state = %v, want [B]", state)
	}
}

func TestExecute_SupersessionCancelsContext(t *testing.T) {
	t.Parallel()

	exec := New(DefaultConfig(), WithSleep(noSleep))

	started := make(chan struct{})
	aErr := make(chan error, 1)
	go func() {
		aErr <- Execute(context.Background(), exec, "stages", func(ctx context.Context) (int, error) {
			close(started)
			<-ctx.Done()
			return 0, ctx.Err()
		}, nil)
	}()

	<-started
	if err := Execute(context.Background(), exec, "stages", func(context.Context) (int, error) {
		return 1, nil
	}, nil); err != nil {
		t.Fatalf("second Execute() error = %v", err)
	}

	select {
	case err := <-aErr:
		if !IsCancelled(err) {
			t.Errorf("first Execute() error = %v, want cancellation", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first invocation was not cancelled")
	}
}

func TestExecute_IndependentSlotsDoNotInterfere(t *testing.T) {
	t.Parallel()

	exec := New(DefaultConfig(), WithSleep(noSleep))

	var wg sync.WaitGroup
	var committed atomic.Int32
	for _, slot := range []string{"stages", "client-options", "client:a", "client:b"} {
		wg.Add(1)
		go func(slot string) {
			defer wg.Done()
			err := Execute(context.Background(), exec, slot, func(context.Context) (string, error) {
				time.Sleep(5 * time.Millisecond)
				return slot, nil
			}, func(string) { committed.Add(1) })
			if err != nil {
				t.Errorf("slot %s error = %v", slot, err)
			}
		}(slot)
	}
	wg.Wait()

	if got := committed.Load(); got != 4 {
		t.Errorf("committed = %d, want 4", got)
	}
}

func TestExecutor_Cancel(t *testing.T) {
	t.Parallel()

	exec := New(DefaultConfig(), WithSleep(noSleep))

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- Execute(context.Background(), exec, "client:c1", func(ctx context.Context) (int, error) {
			close(started)
			<-ctx.Done()
			return 0, ctx.Err()
		}, nil)
	}()

	<-started
	if !exec.InFlight("client:c1") {
		t.Error("InFlight = false while call is running")
	}
	exec.Cancel("client:c1")

	if err := <-done; !errors.Is(err, ErrCancelled) {
		t.Errorf("error = %v, want ErrCancelled", err)
	}
	if exec.InFlight("client:c1") {
		t.Error("InFlight = true after Cancel")
	}

	// CancelAll on an idle executor is a no-op.
	exec.CancelAll()
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	exec := New(Config{})
	if got := exec.Config().MaxAttempts; got != 3 {
		t.Errorf("MaxAttempts = %d, want 3", got)
	}
	if got := exec.Config().Strategy; got != Linear {
		t.Errorf("Strategy = %q, want linear", got)
	}
}

func TestSlotLabel(t *testing.T) {
	t.Parallel()

	if got := slotLabel("client:1234"); got != "client" {
		t.Errorf("slotLabel(client:1234) = %q", got)
	}
	if got := slotLabel("stages"); got != "stages" {
		t.Errorf("slotLabel(stages) = %q", got)
	}
}

func TestExecute_PermanentErrorStopsRetries(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	exec := newTestExecutor(&buf)

	errMissing := errors.New("not found")
	calls := 0
	applied := false
	err := Execute(context.Background(), exec, "client:missing", func(context.Context) (int, error) {
		calls++
		return 0, Permanent(errMissing)
	}, func(int) { applied = true })

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if !errors.Is(err, errMissing) {
		t.Errorf("error %v does not wrap the call error", err)
	}
	if !IsPermanent(err) {
		t.Error("IsPermanent() = false for a permanent failure")
	}
	if !strings.Contains(err.Error(), "attempt 1/3 failed") {
		t.Errorf("error = %q, want attempt 1/3 prefix", err)
	}
	if IsCancelled(err) {
		t.Error("permanent failure must not be reported as cancellation")
	}
	if applied {
		t.Error("apply must not run on failure")
	}
	if n := strings.Count(buf.String(), `"level":"warn"`); n != 0 {
		t.Errorf("warn lines = %d, want 0", n)
	}
}

func TestPermanent(t *testing.T) {
	t.Parallel()

	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
	if IsPermanent(errTransient) {
		t.Error("plain error reported as permanent")
	}
	err := Permanent(errTransient)
	if err.Error() != errTransient.Error() {
		t.Errorf("Error() = %q, want %q", err.Error(), errTransient.Error())
	}
	if !errors.Is(err, errTransient) {
		t.Error("Permanent must unwrap to its cause")
	}
}
