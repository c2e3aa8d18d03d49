package clock

import (
	"testing"
	"time"
)

func TestFakeAfter(t *testing.T) {
	c := NewFake()
	ch := c.After(3 * time.Second)

	c.Advance(2 * time.Second)
	select {
	case <-ch:
		t.Fatal("fired before deadline")
	default:
	}

	c.Advance(time.Second)
	select {
	case <-ch:
	default:
		t.Fatal("did not fire at deadline")
	}
}

func TestFakeAfterFuncOrder(t *testing.T) {
	c := NewFake()
	var got []int
	c.AfterFunc(500*time.Millisecond, func() { got = append(got, 2) })
	c.AfterFunc(300*time.Millisecond, func() { got = append(got, 1) })
	stopped := c.AfterFunc(400*time.Millisecond, func() { got = append(got, 99) })

	if !stopped.Stop() {
		t.Fatal("Stop() = false, want true")
	}
	c.Advance(time.Second)

	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("callbacks = %v, want [1 2]", got)
	}
	if c.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", c.Pending())
	}
}

func TestFakeBlockUntil(t *testing.T) {
	c := NewFake()
	done := make(chan struct{})
	go func() {
		<-c.After(time.Second)
		close(done)
	}()

	c.BlockUntil(1)
	c.Advance(time.Second)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiter not released")
	}
}
