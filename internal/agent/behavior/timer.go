package behavior

import (
	"fmt"
	"time"
)

// TimerNode reports StatusRunning until its duration has elapsed since the
// first Execute of a cycle, then StatusSuccess once. The duration is resolved
// at the start of each cycle and held fixed until the cycle ends.
type TimerNode struct {
	named
	duration     time.Duration
	durationFunc func() time.Duration

	running bool
	start   time.Time
	current time.Duration
}

func NewTimer(d time.Duration) *TimerNode {
	return &TimerNode{named: named{name: "TimerNode"}, duration: d}
}

// NewTimerFunc resolves the duration by calling fn at the start of every
// cycle.
func NewTimerFunc(fn func() time.Duration) *TimerNode {
	return &TimerNode{named: named{name: "TimerNode"}, durationFunc: fn}
}

func (n *TimerNode) Execute(c *Context) Status {
	now := c.Now()
	if !n.running {
		n.start = now
		n.running = true
		n.current = n.duration
		if n.durationFunc != nil {
			n.current = n.durationFunc()
		}
	}

	elapsed := now.Sub(n.start)
	remaining := n.current - elapsed
	if remaining < 0 {
		remaining = 0
	}
	c.visit(n)
	c.CurrentPath = fmt.Sprintf("%s (%.1fs)", c.CurrentPath, remaining.Seconds())

	if elapsed >= n.current {
		n.running = false
		return c.record(StatusSuccess)
	}
	return c.record(StatusRunning)
}

func (n *TimerNode) Reset() {
	n.running = false
	n.start = time.Time{}
	n.current = 0
}

// Running reports whether a timing cycle is in progress.
func (n *TimerNode) Running() bool { return n.running }
