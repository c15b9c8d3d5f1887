package runloop

import (
	"testing"
	"time"
)

func TestRunPendingDrainsNestedTasks(t *testing.T) {
	l := New()
	var order []string
	l.Schedule(func() {
		order = append(order, "a")
		l.Schedule(func() { order = append(order, "c") })
	})
	l.Schedule(func() { order = append(order, "b") })

	if n := l.RunPending(); n != 3 {
		t.Fatalf("RunPending() = %d, want 3", n)
	}
	if got := len(order); got != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Fatalf("order = %v, want [a b c]", order)
	}
}

func TestAfterRenderWaitsForRenderSettled(t *testing.T) {
	l := New()
	ran := 0
	l.AfterRender(func() { ran++ })

	l.RunPending()
	if ran != 0 {
		t.Fatalf("after-render task ran before render settled")
	}
	if !l.HasAfterRender() {
		t.Fatalf("expected pending after-render work")
	}
	if n := l.RenderSettled(); n != 1 {
		t.Fatalf("RenderSettled() = %d, want 1", n)
	}
	if ran != 1 {
		t.Fatalf("ran = %d, want 1", ran)
	}
	if n := l.RenderSettled(); n != 0 {
		t.Fatalf("task ran twice")
	}
}

func TestCancelledAfterRenderNeverRuns(t *testing.T) {
	l := New()
	ran := false
	task := l.AfterRender(func() { ran = true })
	task.Cancel()
	task.Cancel()

	if l.HasAfterRender() {
		t.Fatalf("cancelled task should not count as pending")
	}
	l.RenderSettled()
	if ran {
		t.Fatalf("cancelled task ran")
	}
	if task.Pending() {
		t.Fatalf("cancelled task still pending")
	}
}

func TestDeferredDuringRenderWaitsForNextRender(t *testing.T) {
	l := New()
	var second bool
	l.AfterRender(func() {
		l.AfterRender(func() { second = true })
	})

	l.RenderSettled()
	if second {
		t.Fatalf("task deferred during a render pass ran in the same pass")
	}
	l.RenderSettled()
	if !second {
		t.Fatalf("task deferred during a render pass never ran")
	}
}

func TestWakeSignalsFromOtherGoroutines(t *testing.T) {
	l := New()
	go l.Schedule(func() {})

	select {
	case <-l.Wake():
	case <-time.After(time.Second):
		t.Fatalf("no wake signal")
	}
	if n := l.RunPending(); n != 1 {
		t.Fatalf("RunPending() = %d, want 1", n)
	}
}

func TestCloseDropsWork(t *testing.T) {
	l := New()
	ran := false
	task := l.AfterRender(func() { ran = true })
	l.Schedule(func() { ran = true })
	l.Close()
	l.Close()

	l.Schedule(func() { ran = true })
	late := l.AfterRender(func() { ran = true })

	l.RunPending()
	l.RenderSettled()
	if ran {
		t.Fatalf("work ran after Close")
	}
	if task.Pending() || late.Pending() {
		t.Fatalf("tasks should not be pending after Close")
	}
}
