package behavior

// Composite owns an ordered list of children. The list is built once and
// never changes while the tree is executing.
type Composite struct {
	named
	children []Node
}

func (n *Composite) AddChild(child Node) {
	n.children = append(n.children, child)
}

// Children returns a copy of the child list.
func (n *Composite) Children() []Node {
	out := make([]Node, len(n.children))
	copy(out, n.children)
	return out
}

// Reset resets every child unconditionally.
func (n *Composite) Reset() {
	for _, child := range n.children {
		child.Reset()
	}
}

func newComposite(kind string, children []Node) Composite {
	return Composite{named: named{name: kind}, children: append([]Node(nil), children...)}
}

// Selector tries children in order until one succeeds. A running child is
// resumed on the next tick without re-evaluating the siblings before it.
type Selector struct {
	Composite
	current int
}

func NewSelector(children ...Node) *Selector {
	return &Selector{Composite: newComposite("SelectorNode", children)}
}

func (s *Selector) Execute(c *Context) Status {
	c.enter(s)
	defer c.leave()
	if len(s.children) == 0 {
		return c.record(StatusInvalid)
	}
	c.tracef("%s: starting from child %d/%d", s.name, s.current, len(s.children))

	for s.current < len(s.children) {
		status := s.children[s.current].Execute(c)
		c.tracef("%s: child %d returned %s", s.name, s.current, status)
		switch status {
		case StatusRunning:
			return c.record(StatusRunning)
		case StatusSuccess:
			s.Reset()
			return c.record(StatusSuccess)
		default:
			s.current++
		}
	}

	c.tracef("%s: all children failed", s.name)
	s.Reset()
	return c.record(StatusFailure)
}

func (s *Selector) Reset() {
	s.current = 0
	s.Composite.Reset()
}

// Sequence runs children in order while they succeed. A running child is
// resumed on the next tick; the first failure aborts the pass.
type Sequence struct {
	Composite
	current int
}

func NewSequence(children ...Node) *Sequence {
	return &Sequence{Composite: newComposite("SequenceNode", children)}
}

func (s *Sequence) Execute(c *Context) Status {
	c.enter(s)
	defer c.leave()
	if len(s.children) == 0 {
		return c.record(StatusInvalid)
	}
	c.tracef("%s: starting from child %d/%d", s.name, s.current, len(s.children))

	for s.current < len(s.children) {
		status := s.children[s.current].Execute(c)
		c.tracef("%s: child %d returned %s", s.name, s.current, status)
		switch status {
		case StatusRunning:
			return c.record(StatusRunning)
		case StatusSuccess:
			s.current++
		default:
			s.Reset()
			return c.record(StatusFailure)
		}
	}

	c.tracef("%s: all children succeeded", s.name)
	s.Reset()
	return c.record(StatusSuccess)
}

func (s *Sequence) Reset() {
	s.current = 0
	s.Composite.Reset()
}

// Policy is a Parallel quorum rule.
type Policy int

const (
	// RequireOne resolves when at least one child agrees.
	RequireOne Policy = iota
	// RequireAll resolves only when every child agrees.
	RequireAll
)

func (p Policy) String() string {
	if p == RequireAll {
		return "all"
	}
	return "one"
}

// Parallel executes every child on every tick and resolves by quorum.
// Failure is checked before success. Resolving resets every child, including
// ones still running.
type Parallel struct {
	Composite
	SuccessPolicy Policy
	FailurePolicy Policy
}

func NewParallel(success, failure Policy, children ...Node) *Parallel {
	return &Parallel{
		Composite:     newComposite("ParallelNode", children),
		SuccessPolicy: success,
		FailurePolicy: failure,
	}
}

// DefaultParallel succeeds when all children succeed and fails as soon as
// one fails.
func DefaultParallel(children ...Node) *Parallel {
	return NewParallel(RequireAll, RequireOne, children...)
}

func (p *Parallel) Execute(c *Context) Status {
	c.enter(p)
	defer c.leave()
	if len(p.children) == 0 {
		return c.record(StatusFailure)
	}

	successCount := 0
	failureCount := 0
	runningCount := 0

	for _, child := range p.children {
		switch child.Execute(c) {
		case StatusSuccess:
			successCount++
		case StatusRunning:
			runningCount++
		default:
			failureCount++
		}
	}

	total := len(p.children)
	var result Status
	switch {
	case p.FailurePolicy == RequireOne && failureCount > 0:
		result = StatusFailure
	case p.FailurePolicy == RequireAll && failureCount == total:
		result = StatusFailure
	case p.SuccessPolicy == RequireOne && successCount > 0:
		result = StatusSuccess
	case p.SuccessPolicy == RequireAll && successCount == total:
		result = StatusSuccess
	case runningCount > 0:
		result = StatusRunning
	default:
		result = StatusFailure
	}
	c.tracef("%s: %d success, %d failure, %d running -> %s", p.name, successCount, failureCount, runningCount, result)
	if result != StatusRunning {
		p.Reset()
	}
	return c.record(result)
}
