// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package clock abstracts wall-clock time and timer scheduling so that
// timeout behavior can be driven deterministically in tests and in the
// simulator.
package clock

import (
	"sort"
	"sync"
	"time"
)

// Timer is a handle to a scheduled callback.
type Timer interface {
	// Stop cancels the timer. It reports whether the callback was
	// prevented from running.
	Stop() bool
}

// Clock provides current time and one-shot timers.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// System is a Clock backed by the runtime clock.
type System struct{}

// NewSystem returns the real clock.
func NewSystem() *System { return &System{} }

func (*System) Now() time.Time { return time.Now() }

func (*System) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// MockClock is a manually advanced clock for tests and simulations.
// Callbacks run synchronously on the goroutine calling Advance, in
// deadline order.
type MockClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*mockTimer
	nextID int
}

type mockTimer struct {
	clk      *MockClock
	id       int
	deadline time.Time
	f        func()
	stopped  bool
}

func (t *mockTimer) Stop() bool {
	t.clk.mu.Lock()
	defer t.clk.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// NewMock returns a MockClock starting at the given time.
func NewMock(start time.Time) *MockClock {
	return &MockClock{now: start}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *MockClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &mockTimer{clk: c, id: c.nextID, deadline: c.now.Add(d), f: f}
	c.nextID++
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward and fires every timer whose deadline
// has been reached.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	deadline := c.now

	var due []*mockTimer
	var rest []*mockTimer
	for _, t := range c.timers {
		if !t.stopped && !t.deadline.After(deadline) {
			due = append(due, t)
		} else if !t.stopped {
			rest = append(rest, t)
		}
	}
	c.timers = rest
	sort.SliceStable(due, func(i, j int) bool {
		if due[i].deadline.Equal(due[j].deadline) {
			return due[i].id < due[j].id
		}
		return due[i].deadline.Before(due[j].deadline)
	})
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}
