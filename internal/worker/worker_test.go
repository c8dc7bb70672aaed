package worker

import (
	"sync/atomic"
	"testing"
)

func testContract(t *testing.T, w Interface) {
	t.Helper()
	if !w.Reset() {
		t.Fatal("Reset failed")
	}
	var ran atomic.Int32
	for i := 0; i < 100; i++ {
		if !w.Launch(func(interface{}) bool {
			ran.Add(1)
			return true
		}, nil) {
			t.Fatalf("Launch %d failed", i)
		}
	}
	if !w.Sync() {
		t.Fatal("Sync reported failure")
	}
	if got := ran.Load(); got != 100 {
		t.Fatalf("ran %d hooks, want 100", got)
	}

	// A failing hook must surface through Sync and stay sticky.
	w.Launch(func(interface{}) bool { return false }, nil)
	if w.Sync() {
		t.Fatal("Sync ignored a failed hook")
	}
	if w.Sync() {
		t.Fatal("failure must be sticky until Reset")
	}
	if !w.Reset() {
		t.Fatal("Reset after failure")
	}
	if !w.Sync() {
		t.Fatal("Reset must clear the failure")
	}
	w.End()
}

func TestWorker(t *testing.T) {
	testContract(t, New())
}

func TestSequential(t *testing.T) {
	testContract(t, NewSequential())
}

// TestWorkerPassesData checks the hook receives its payload.
func TestWorkerPassesData(t *testing.T) {
	w := New()
	w.Reset()
	defer w.End()
	done := make(chan int, 1)
	w.Launch(func(data interface{}) bool {
		done <- data.(int)
		return true
	}, 42)
	if !w.Sync() {
		t.Fatal("Sync failed")
	}
	if got := <-done; got != 42 {
		t.Fatalf("hook got %d, want 42", got)
	}
}

// TestEndIsIdempotent makes sure lifecycle calls do not wedge.
func TestEndIsIdempotent(t *testing.T) {
	w := New()
	w.Reset()
	w.End()
	w.End()
	if !w.Reset() {
		t.Fatal("Reset after End failed")
	}
	w.End()
}
