// Copyright 2026 The TaskFlow Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeNowAdvances(t *testing.T) {
	c := Fake(epoch)
	c.Advance(5 * time.Second)
	if got, want := c.Now(), epoch.Add(5*time.Second); !got.Equal(want) {
		t.Fatalf("Now() = %v, want %v", got, want)
	}
}

func TestFakeAfter(t *testing.T) {
	c := Fake(epoch)
	channel := c.After(3 * time.Second)

	c.Advance(2 * time.Second)
	select {
	case <-channel:
		t.Fatal("After fired before its deadline")
	default:
	}

	c.Advance(time.Second)
	select {
	case <-channel:
	default:
		t.Fatal("After did not fire at its deadline")
	}
	if c.PendingCount() != 0 {
		t.Errorf("PendingCount = %d after firing, want 0", c.PendingCount())
	}
}

func TestFakeAfterNonPositiveFiresImmediately(t *testing.T) {
	c := Fake(epoch)
	select {
	case <-c.After(0):
	default:
		t.Fatal("After(0) did not fire immediately")
	}
}

func TestFakeAfterFuncOrderAndStop(t *testing.T) {
	c := Fake(epoch)
	var order []string
	c.AfterFunc(2*time.Second, func() { order = append(order, "second") })
	c.AfterFunc(time.Second, func() { order = append(order, "first") })
	cancelled := c.AfterFunc(time.Second, func() { order = append(order, "cancelled") })

	if !cancelled.Stop() {
		t.Fatal("Stop on a pending timer returned false")
	}
	if cancelled.Stop() {
		t.Fatal("second Stop returned true")
	}

	c.Advance(3 * time.Second)
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("callbacks ran as %v, want [first second]", order)
	}
}

func TestFakeAfterFuncCanRearm(t *testing.T) {
	c := Fake(epoch)
	fired := 0
	var rearm func()
	rearm = func() {
		fired++
		if fired < 3 {
			c.AfterFunc(time.Second, rearm)
		}
	}
	c.AfterFunc(time.Second, rearm)

	// A timer armed from a callback counts from the advanced time, so
	// it waits for the next Advance even when a long step was taken.
	c.Advance(5 * time.Second)
	if fired != 1 {
		t.Fatalf("fired %d times after first Advance, want 1", fired)
	}
	c.Advance(500 * time.Millisecond)
	if fired != 1 {
		t.Fatalf("re-armed timer fired early (%d)", fired)
	}
	c.Advance(500 * time.Millisecond)
	c.Advance(time.Second)
	if fired != 3 {
		t.Fatalf("fired %d times, want 3", fired)
	}
	if c.PendingCount() != 0 {
		t.Fatalf("PendingCount = %d after last callback", c.PendingCount())
	}
}

func TestFakeTicker(t *testing.T) {
	c := Fake(epoch)
	ticker := c.NewTicker(time.Second)

	for i := range 3 {
		c.Advance(time.Second)
		select {
		case <-ticker.C:
		default:
			t.Fatalf("tick %d missing", i)
		}
	}

	ticker.Stop()
	c.Advance(time.Second)
	select {
	case <-ticker.C:
		t.Fatal("tick after Stop")
	default:
	}
}

func TestFakeTickerPanicsOnZeroInterval(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("NewTicker(0) did not panic")
		}
	}()
	Fake(epoch).NewTicker(0)
}

func TestFakeWaitForTimers(t *testing.T) {
	c := Fake(epoch)
	done := make(chan struct{})
	go func() {
		<-c.After(time.Minute)
		close(done)
	}()

	c.WaitForTimers(1)
	c.Advance(time.Minute)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("goroutine did not observe the timer")
	}
}
