package app

import (
	"sync"
	"time"
)

// Scheduler runs callbacks later. Every returned stop func is idempotent.
type Scheduler interface {
	Every(interval time.Duration, fn func()) (stop func())
	After(delay time.Duration, fn func()) (stop func())
}

type clockScheduler struct{}

// NewClockScheduler schedules on the wall clock.
func NewClockScheduler() Scheduler {
	return clockScheduler{}
}

func (clockScheduler) Every(interval time.Duration, fn func()) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				// stop may have raced with the tick
				select {
				case <-done:
					return
				default:
				}
				fn()
			case <-done:
				return
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

func (clockScheduler) After(delay time.Duration, fn func()) func() {
	t := time.AfterFunc(delay, fn)
	return func() { t.Stop() }
}
