package control

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestManager(t *testing.T) *SignalManager {
	t.Helper()
	sm, err := NewSignalManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewSignalManager failed: %v", err)
	}
	t.Cleanup(sm.Close)
	sm.pollInterval = 5 * time.Millisecond
	return sm
}

func TestWait_PassesWithNoSignals(t *testing.T) {
	sm := newTestManager(t)

	if err := sm.Wait(context.Background()); err != nil {
		t.Errorf("Wait with no signals should pass, got %v", err)
	}
}

func TestWait_CancelSignal(t *testing.T) {
	sm := newTestManager(t)

	if err := sm.SendCancel(); err != nil {
		t.Fatalf("SendCancel failed: %v", err)
	}

	if err := sm.Wait(context.Background()); !errors.Is(err, ErrCancelled) {
		t.Errorf("Wait = %v, want ErrCancelled", err)
	}
}

func TestWait_BlocksWhilePausedThenResumes(t *testing.T) {
	sm := newTestManager(t)

	if err := sm.SendPause(); err != nil {
		t.Fatalf("SendPause failed: %v", err)
	}
	if !sm.Paused() {
		t.Fatal("Paused should report true after SendPause")
	}

	done := make(chan error, 1)
	go func() {
		done <- sm.Wait(context.Background())
	}()

	select {
	case err := <-done:
		t.Fatalf("Wait returned %v while paused", err)
	case <-time.After(50 * time.Millisecond):
	}

	if err := sm.Resume(); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Wait after resume = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after resume")
	}
}

func TestWait_ContextCancelUnblocksPause(t *testing.T) {
	sm := newTestManager(t)

	if err := sm.SendPause(); err != nil {
		t.Fatalf("SendPause failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := sm.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait = %v, want context.DeadlineExceeded", err)
	}
}

func TestCancelWinsOverPause(t *testing.T) {
	sm := newTestManager(t)

	if err := sm.SendPause(); err != nil {
		t.Fatalf("SendPause failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- sm.Wait(context.Background())
	}()

	time.Sleep(20 * time.Millisecond)
	if err := sm.SendCancel(); err != nil {
		t.Fatalf("SendCancel failed: %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, ErrCancelled) {
			t.Errorf("Wait = %v, want ErrCancelled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after cancel")
	}
}

func TestClearSignals(t *testing.T) {
	sm := newTestManager(t)

	sm.SendCancel()
	sm.SendPause()
	sm.ClearSignals()

	if sm.Cancelled() {
		t.Error("Cancelled should be false after ClearSignals")
	}
	if sm.Paused() {
		t.Error("Paused should be false after ClearSignals")
	}
}
