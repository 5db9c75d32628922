// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package clock

import (
	"testing"
	"time"
)

func TestMockClockAdvanceFiresInOrder(t *testing.T) {
	clk := NewMock(time.Unix(0, 0))
	var order []int
	clk.AfterFunc(200*time.Millisecond, func() { order = append(order, 2) })
	clk.AfterFunc(100*time.Millisecond, func() { order = append(order, 1) })
	clk.AfterFunc(300*time.Millisecond, func() { order = append(order, 3) })

	clk.Advance(250 * time.Millisecond)
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("expected [1 2], got %v", order)
	}

	clk.Advance(50 * time.Millisecond)
	if len(order) != 3 || order[2] != 3 {
		t.Fatalf("expected [1 2 3], got %v", order)
	}
}

func TestMockClockStop(t *testing.T) {
	clk := NewMock(time.Unix(0, 0))
	fired := false
	tm := clk.AfterFunc(time.Second, func() { fired = true })
	if !tm.Stop() {
		t.Error("first Stop should report true")
	}
	if tm.Stop() {
		t.Error("second Stop should report false")
	}
	clk.Advance(2 * time.Second)
	if fired {
		t.Error("stopped timer must not fire")
	}
}

func TestMockClockNow(t *testing.T) {
	start := time.Unix(1000, 0)
	clk := NewMock(start)
	clk.Advance(1500 * time.Millisecond)
	if got := clk.Now(); !got.Equal(start.Add(1500 * time.Millisecond)) {
		t.Errorf("Now() = %v", got)
	}
}
