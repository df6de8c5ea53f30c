package behavior

import "strconv"

// Inverter swaps Success and Failure from its child. Running and Invalid
// pass through.
type Inverter struct {
	named
	child Node
}

func NewInverter(child Node) *Inverter {
	return &Inverter{named: named{name: "InverterNode"}, child: child}
}

func (n *Inverter) Execute(c *Context) Status {
	c.enter(n)
	defer c.leave()
	if n.child == nil {
		return c.record(StatusInvalid)
	}

	status := n.child.Execute(c)
	inverted := status
	switch status {
	case StatusSuccess:
		inverted = StatusFailure
	case StatusFailure:
		inverted = StatusSuccess
	}
	c.tracef("%s: %s -> %s", n.name, status, inverted)
	return c.record(inverted)
}

func (n *Inverter) Reset() {
	if n.child != nil {
		n.child.Reset()
	}
}

func (n *Inverter) Children() []Node {
	if n.child == nil {
		return nil
	}
	return []Node{n.child}
}

// RepeatForever makes a Repeat run its child once per tick indefinitely.
const RepeatForever = -1

// Repeat runs its child a fixed number of times, or forever.
//
// In bounded mode the child is re-run within the same tick until it reports
// Running or the count is reached; a child Failure still counts as one
// completed repetition. In unbounded mode the child runs once per tick and
// the node always reports Running.
type Repeat struct {
	named
	child Node
	count int

	completed int
}

func NewRepeat(child Node, count int) *Repeat {
	return &Repeat{named: named{name: "RepeatNode"}, child: child, count: count}
}

func (n *Repeat) Execute(c *Context) Status {
	c.tracef("%s: repeat %d/%s", n.name, n.completed, n.limit())
	c.enter(n)
	defer c.leave()
	if n.child == nil || n.count < RepeatForever {
		return c.record(StatusInvalid)
	}

	if n.count == RepeatForever {
		n.child.Execute(c)
		return c.record(StatusRunning)
	}

	for n.completed < n.count {
		if n.child.Execute(c) == StatusRunning {
			return c.record(StatusRunning)
		}
		n.completed++
	}

	c.tracef("%s: completed all %d repetitions", n.name, n.count)
	n.completed = 0
	return c.record(StatusSuccess)
}

func (n *Repeat) Reset() {
	n.completed = 0
	if n.child != nil {
		n.child.Reset()
	}
}

func (n *Repeat) Children() []Node {
	if n.child == nil {
		return nil
	}
	return []Node{n.child}
}

// Completed returns the repetitions finished in the current cycle.
func (n *Repeat) Completed() int { return n.completed }

func (n *Repeat) limit() string {
	if n.count == RepeatForever {
		return "inf"
	}
	return strconv.Itoa(n.count)
}
