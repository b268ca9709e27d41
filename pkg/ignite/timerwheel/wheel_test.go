package timerwheel

import (
	"context"
	"testing"
	"time"
)

func TestWheelFiresAfterDeadline(t *testing.T) {
	w := New(64, 5*time.Millisecond)
	defer w.Close()

	start := time.Now()
	_, done := w.Add(30 * time.Millisecond)
	<-done
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Fatalf("fired too early: %v", elapsed)
	}
}

func TestWheelDelCancelsBeforeFire(t *testing.T) {
	w := New(64, 5*time.Millisecond)
	defer w.Close()

	handle, done := w.Add(200 * time.Millisecond)
	w.Del(handle)

	select {
	case <-done:
		t.Fatal("timeout fired despite cancellation")
	case <-time.After(50 * time.Millisecond):
		// expected: no fire
	}
}

func TestSleepRespectsContextCancellation(t *testing.T) {
	w := New(64, 5*time.Millisecond)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := Sleep(ctx, w, time.Second)
	if err != context.Canceled {
		t.Fatalf("got %v", err)
	}
}

func TestSleepZeroDuration(t *testing.T) {
	w := New(64, 5*time.Millisecond)
	defer w.Close()
	if err := Sleep(context.Background(), w, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWheelMultipleConcurrentTimers(t *testing.T) {
	w := New(16, 5*time.Millisecond)
	defer w.Close()

	const n = 20
	results := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			_, done := w.Add(time.Duration(i+1) * time.Millisecond)
			<-done
			results <- struct{}{}
		}(i)
	}
	for i := 0; i < n; i++ {
		select {
		case <-results:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for timers")
		}
	}
}
