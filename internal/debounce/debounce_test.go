package debounce

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedule_FiresAfterQuietPeriod(t *testing.T) {
	task := NewTask(20 * time.Millisecond)
	var fired atomic.Int32

	task.Schedule(func() { fired.Add(1) })
	if fired.Load() != 0 {
		t.Fatal("fired before the quiet period")
	}

	time.Sleep(80 * time.Millisecond)
	if fired.Load() != 1 {
		t.Fatalf("fired = %d, want 1", fired.Load())
	}
}

func TestSchedule_CoalescesBurst(t *testing.T) {
	task := NewTask(30 * time.Millisecond)
	var fired atomic.Int32

	for i := 0; i < 5; i++ {
		task.Schedule(func() { fired.Add(1) })
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(120 * time.Millisecond)
	if fired.Load() != 1 {
		t.Fatalf("fired = %d, want burst coalesced into 1", fired.Load())
	}
}

func TestCancel_DropsPendingFire(t *testing.T) {
	task := NewTask(20 * time.Millisecond)
	var fired atomic.Int32

	task.Schedule(func() { fired.Add(1) })
	task.Cancel()

	time.Sleep(80 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatal("cancelled task still fired")
	}
	if task.Pending() {
		t.Error("Pending() after Cancel")
	}
}

func TestFlush_RunsImmediately(t *testing.T) {
	task := NewTask(time.Hour)
	var fired atomic.Int32

	task.Schedule(func() { fired.Add(1) })
	task.Flush()

	if fired.Load() != 1 {
		t.Fatalf("fired = %d, want immediate run", fired.Load())
	}
	if task.Pending() {
		t.Error("Pending() after Flush")
	}

	// Flush with nothing pending is a no-op.
	task.Flush()
	if fired.Load() != 1 {
		t.Error("second Flush re-ran the function")
	}
}

func TestSchedule_ReplacesPendingFunction(t *testing.T) {
	task := NewTask(time.Hour)
	var first, second atomic.Int32

	task.Schedule(func() { first.Add(1) })
	task.Schedule(func() { second.Add(1) })
	task.Flush()

	if first.Load() != 0 {
		t.Error("superseded function ran")
	}
	if second.Load() != 1 {
		t.Error("latest function did not run")
	}
}
