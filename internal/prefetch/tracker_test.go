package prefetch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/launchpath/flowkit/internal/models"
)

func TestWait_AlreadyTerminal(t *testing.T) {
	tr := NewTracker()
	tr.MarkReady("a")
	if out := tr.Wait(context.Background(), "a", 0); !out.OK || out.TimedOut || out.Err != nil {
		t.Fatalf("Wait on ready screen = %+v, want immediate success", out)
	}

	cause := errors.New("boom")
	tr.MarkPreparing("b")
	tr.MarkFailed("b", cause)
	if out := tr.Wait(context.Background(), "b", 0); out.OK || !errors.Is(out.Err, cause) {
		t.Fatalf("Wait on failed screen = %+v, want immediate failure", out)
	}
}

func TestMark_IdempotentOnceTerminal(t *testing.T) {
	tr := NewTracker()
	tr.MarkPreparing("x")
	tr.MarkReady("x")
	tr.MarkFailed("x", errors.New("late"))
	if got := tr.Status("x"); got != StatusReady {
		t.Fatalf("Status after late MarkFailed = %v, want ready", got)
	}
	tr.MarkPreparing("x")
	if got := tr.Status("x"); got != StatusReady {
		t.Fatalf("Status after MarkPreparing on terminal = %v, want ready", got)
	}
}

func TestBeginPreparing_OneAttemptPerScreen(t *testing.T) {
	tr := NewTracker()
	if !tr.BeginPreparing("x") {
		t.Fatal("first BeginPreparing should succeed")
	}
	if tr.BeginPreparing("x") {
		t.Fatal("second BeginPreparing should be rejected")
	}
	tr.MarkReady("x")
	if tr.BeginPreparing("x") {
		t.Fatal("BeginPreparing after terminal state should be rejected")
	}
}

// Two waiters with different timeouts both resolve through the real
// readiness signal when it arrives before either deadline, and no
// timeout fires afterwards.
func TestWait_RealSignalWins(t *testing.T) {
	tr := NewTracker()
	tr.MarkPreparing("x")

	var wg sync.WaitGroup
	outcomes := make([]WaitOutcome, 2)
	for i, timeout := range []time.Duration{300 * time.Millisecond, 5 * time.Second} {
		wg.Add(1)
		go func(i int, timeout time.Duration) {
			defer wg.Done()
			outcomes[i] = tr.Wait(context.Background(), "x", timeout)
		}(i, timeout)
	}

	time.Sleep(50 * time.Millisecond)
	tr.MarkReady("x")
	wg.Wait()

	for i, out := range outcomes {
		if !out.OK || out.TimedOut || out.Err != nil {
			t.Errorf("waiter %d outcome = %+v, want plain success", i, out)
		}
	}

	// Past the first deadline nothing else may fire; tracked timeout
	// tasks were cancelled on resolution.
	time.Sleep(350 * time.Millisecond)
	if got := tr.Status("x"); got != StatusReady {
		t.Fatalf("Status = %v after quiet period, want ready", got)
	}
}

// A fired timeout resolves exactly its own waiter; a sibling with a
// longer deadline keeps waiting for the real signal.
func TestWait_TimeoutIndependence(t *testing.T) {
	tr := NewTracker()
	tr.MarkPreparing("x")

	fastDone := make(chan WaitOutcome, 1)
	slowDone := make(chan WaitOutcome, 1)
	go func() { fastDone <- tr.Wait(context.Background(), "x", 60*time.Millisecond) }()
	go func() { slowDone <- tr.Wait(context.Background(), "x", 5*time.Second) }()

	var fast WaitOutcome
	select {
	case fast = <-fastDone:
	case <-time.After(2 * time.Second):
		t.Fatal("fast waiter never timed out")
	}
	if !fast.OK || !fast.TimedOut {
		t.Fatalf("fast waiter outcome = %+v, want timed-out success", fast)
	}

	select {
	case out := <-slowDone:
		t.Fatalf("slow waiter resolved prematurely: %+v", out)
	case <-time.After(50 * time.Millisecond):
	}

	tr.MarkReady("x")
	select {
	case slow := <-slowDone:
		if !slow.OK || slow.TimedOut {
			t.Fatalf("slow waiter outcome = %+v, want plain success", slow)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("slow waiter never resolved after MarkReady")
	}
}

// Readiness racing a deadline must resolve the waiter exactly once,
// with no deadlock. Run many rounds to give the race a chance.
func TestWait_SingleResolutionUnderRace(t *testing.T) {
	for i := 0; i < 50; i++ {
		tr := NewTracker()
		tr.MarkPreparing("x")

		done := make(chan WaitOutcome, 1)
		go func() { done <- tr.Wait(context.Background(), "x", time.Millisecond) }()
		go func() {
			time.Sleep(time.Millisecond)
			tr.MarkReady("x")
		}()

		select {
		case out := <-done:
			if !out.OK {
				t.Fatalf("round %d: outcome = %+v, want success", i, out)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("round %d: waiter deadlocked", i)
		}

		// A second resolution would have been a second channel send;
		// the buffered channel would hold it.
		select {
		case out := <-done:
			t.Fatalf("round %d: waiter resolved twice: %+v", i, out)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestWait_ContextCancelDeregisters(t *testing.T) {
	tr := NewTracker()
	tr.MarkPreparing("x")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan WaitOutcome, 1)
	go func() { done <- tr.Wait(ctx, "x", 0) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case out := <-done:
		if !errors.Is(out.Err, context.Canceled) {
			t.Fatalf("outcome = %+v, want context.Canceled", out)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled waiter never returned")
	}

	// The prepare attempt is unaffected.
	tr.MarkReady("x")
	if got := tr.Status("x"); got != StatusReady {
		t.Fatalf("Status = %v, want ready", got)
	}
}

func TestMarkFailed_NilCauseDefaults(t *testing.T) {
	tr := NewTracker()
	tr.MarkPreparing("x")
	tr.MarkFailed("x", nil)
	out := tr.Wait(context.Background(), "x", 0)
	if !errors.Is(out.Err, models.ErrFailedToLoadAsset) {
		t.Fatalf("outcome err = %v, want ErrFailedToLoadAsset", out.Err)
	}
}

func TestReset_FlushesRemainingWaiters(t *testing.T) {
	tr := NewTracker()
	tr.MarkPreparing("x")

	done := make(chan WaitOutcome, 1)
	go func() { done <- tr.Wait(context.Background(), "x", 0) }()
	time.Sleep(20 * time.Millisecond)

	tr.Reset()
	select {
	case out := <-done:
		if out.OK || out.Err == nil {
			t.Fatalf("outcome = %+v, want cancellation", out)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiter not flushed by Reset")
	}
	if got := tr.Status("x"); got != StatusUndefined {
		t.Fatalf("Status after Reset = %v, want undefined", got)
	}
}
