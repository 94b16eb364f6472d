package clock

import (
	"testing"
	"time"
)

func TestFake_AfterFuncOrder(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	var order []int
	f.AfterFunc(3*time.Second, func() { order = append(order, 3) })
	f.AfterFunc(1*time.Second, func() { order = append(order, 1) })
	stopped := f.AfterFunc(2*time.Second, func() { order = append(order, 2) })
	if !stopped.Stop() {
		t.Fatalf("expected stop to cancel pending timer")
	}
	f.Advance(time.Second)
	if len(order) != 1 || order[0] != 1 {
		t.Fatalf("after 1s: %v", order)
	}
	f.Advance(5 * time.Second)
	if len(order) != 2 || order[1] != 3 {
		t.Fatalf("after 6s: %v", order)
	}
	if stopped.Stop() {
		t.Fatalf("second stop must report false")
	}
	if f.Pending() != 0 {
		t.Fatalf("pending=%d", f.Pending())
	}
}

func TestFake_AfterAndWait(t *testing.T) {
	f := NewFake(time.Unix(100, 0))
	done := make(chan time.Time, 1)
	go func() { done <- <-f.After(30 * time.Second) }()
	f.WaitForTimers(1)
	f.Advance(29 * time.Second)
	select {
	case <-done:
		t.Fatalf("fired early")
	default:
	}
	f.Advance(time.Second)
	select {
	case got := <-done:
		if !got.Equal(time.Unix(130, 0)) {
			t.Fatalf("fired at %v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timer did not fire")
	}
}

func TestFake_CallbackReschedules(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	n := 0
	f.AfterFunc(time.Second, func() {
		n++
		f.AfterFunc(time.Second, func() { n++ })
	})
	f.Advance(3 * time.Second)
	if n != 1 {
		t.Fatalf("n=%d after first advance", n)
	}
	f.Advance(time.Second)
	if n != 2 {
		t.Fatalf("n=%d", n)
	}
}
