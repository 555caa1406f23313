package app

import (
	"math"
	"sync"
	"time"
)

// Countdown calls onTick once per interval with the remaining count, then decrements.
// The call with count 0 is the last one; the countdown stops itself afterwards.
type Countdown struct {
	sched    Scheduler
	interval time.Duration
	onTick   func(count int)

	mu      sync.Mutex
	count   int
	running bool
	cancel  func()
}

func NewCountdown(count int, interval time.Duration, sched Scheduler, onTick func(count int)) *Countdown {
	if count < 0 {
		count = 0
	}
	return &Countdown{
		sched:    sched,
		interval: interval,
		onTick:   onTick,
		count:    count,
	}
}

// Start begins ticking, or resumes after Stop from the current count.
func (c *Countdown) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.running = true
	c.cancel = c.sched.Every(c.interval, c.tick)
}

// Stop cancels all future ticks. Safe to call more than once.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
}

func (c *Countdown) stopLocked() {
	c.running = false
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// Running reports whether more ticks will fire.
func (c *Countdown) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Count is the value the next tick will report.
func (c *Countdown) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// SetCount replaces the remaining count without restarting. Negative values clamp to 0.
func (c *Countdown) SetCount(n int) {
	if n < 0 {
		n = 0
	}
	c.mu.Lock()
	c.count = n
	c.mu.Unlock()
}

// Add shifts the remaining count by delta in one step, clamping to [0, math.MaxInt].
func (c *Countdown) Add(delta int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case delta > 0 && c.count > math.MaxInt-delta:
		c.count = math.MaxInt
	case delta < 0 && (c.count <= 0 || c.count+delta < 0):
		c.count = 0
	default:
		c.count += delta
	}
	return c.count
}

func (c *Countdown) tick() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	if c.count < 0 {
		c.stopLocked()
		c.mu.Unlock()
		return
	}
	n := c.count
	c.count--
	if n == 0 {
		c.stopLocked()
	}
	c.mu.Unlock()

	c.onTick(n)
}
