package node

import "time"

// SampleClock schedules a finite ladder of sample slots at a fixed period:
// slot i is due once start + i*period has passed. A late poll catches up by
// index only — each overdue slot reads the sensor's current value, nothing
// is back-filled — so jitter is tolerated but never corrected.
type SampleClock struct {
	period time.Duration
	total  int
	start  time.Time
	next   int
	armed  bool
}

func NewSampleClock(period time.Duration, total int) *SampleClock {
	return &SampleClock{period: period, total: total}
}

// Start arms the clock for a fresh capture beginning at now.
func (c *SampleClock) Start(now time.Time) {
	c.start = now
	c.next = 0
	c.armed = true
}

// Due reports whether the next unfilled slot's deadline has elapsed.
func (c *SampleClock) Due(now time.Time) bool {
	if !c.armed || c.next >= c.total {
		return false
	}
	deadline := c.start.Add(time.Duration(c.next) * c.period)
	return !now.Before(deadline)
}

// Take consumes the next slot and returns its index. Callers must check
// Due first.
func (c *SampleClock) Take() int {
	i := c.next
	c.next++
	return i
}

// Exhausted reports whether every slot has been taken.
func (c *SampleClock) Exhausted() bool {
	return c.armed && c.next >= c.total
}
