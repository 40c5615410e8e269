package timeutil

import (
	"testing"
	"time"
)

var epoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestMockClockNowAndAdvance(t *testing.T) {
	c := NewMockClock(epoch)
	if !c.Now().Equal(epoch) {
		t.Fatalf("Now() = %v, want %v", c.Now(), epoch)
	}
	c.Advance(250 * time.Millisecond)
	if got := c.Since(epoch); got != 250*time.Millisecond {
		t.Fatalf("Since = %v, want 250ms", got)
	}
}

func TestMockClockAfterFiresOnAdvance(t *testing.T) {
	c := NewMockClock(epoch)
	ch := c.After(time.Second)

	c.Advance(999 * time.Millisecond)
	select {
	case <-ch:
		t.Fatal("fired before deadline")
	default:
	}

	c.Advance(time.Millisecond)
	select {
	case at := <-ch:
		if !at.Equal(epoch.Add(time.Second)) {
			t.Fatalf("fired at %v", at)
		}
	default:
		t.Fatal("did not fire at deadline")
	}
}

func TestMockClockAfterZeroFiresImmediately(t *testing.T) {
	c := NewMockClock(epoch)
	select {
	case <-c.After(0):
	default:
		t.Fatal("After(0) did not fire")
	}
}

func TestMockClockSleepRecords(t *testing.T) {
	c := NewMockClock(epoch)
	c.Sleep(5 * time.Millisecond)
	c.Sleep(7 * time.Millisecond)
	got := c.Sleeps()
	if len(got) != 2 || got[0] != 5*time.Millisecond || got[1] != 7*time.Millisecond {
		t.Fatalf("Sleeps() = %v", got)
	}
}

func TestRealClockBasics(t *testing.T) {
	var c Clock = RealClock{}
	before := c.Now()
	c.Sleep(time.Millisecond)
	if c.Since(before) <= 0 {
		t.Fatal("Since did not advance")
	}
	select {
	case <-c.After(time.Millisecond):
	case <-time.After(time.Second):
		t.Fatal("After never fired")
	}
}
