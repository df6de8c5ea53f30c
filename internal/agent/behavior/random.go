package behavior

import "math/rand/v2"

// RandomSelector is a Selector that walks its children in a shuffled order.
// A fresh permutation is drawn at the start of every pass, never mid-pass.
type RandomSelector struct {
	Composite
	rng *rand.Rand

	order       []int
	current     int
	needShuffle bool
}

func NewRandomSelector(children ...Node) *RandomSelector {
	return &RandomSelector{
		Composite:   newComposite("RandomSelectorNode", children),
		needShuffle: true,
	}
}

// WithRand sets the source used for shuffling. A nil source uses the
// package-level generator.
func (s *RandomSelector) WithRand(rng *rand.Rand) *RandomSelector {
	s.rng = rng
	return s
}

func (s *RandomSelector) Execute(c *Context) Status {
	c.enter(s)
	defer c.leave()
	if len(s.children) == 0 {
		return c.record(StatusInvalid)
	}

	if s.needShuffle {
		s.shuffle()
		s.needShuffle = false
	}

	for s.current < len(s.order) {
		idx := s.order[s.current]
		status := s.children[idx].Execute(c)
		c.tracef("%s: child %d returned %s", s.name, idx, status)
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

	s.Reset()
	return c.record(StatusFailure)
}

// shuffle draws a uniform permutation of child indices (Fisher-Yates).
func (s *RandomSelector) shuffle() {
	s.order = s.order[:0]
	for i := range s.children {
		s.order = append(s.order, i)
	}
	for i := len(s.order) - 1; i > 0; i-- {
		j := s.intN(i + 1)
		s.order[i], s.order[j] = s.order[j], s.order[i]
	}
}

func (s *RandomSelector) intN(n int) int {
	if s.rng != nil {
		return s.rng.IntN(n)
	}
	return rand.IntN(n)
}

func (s *RandomSelector) Reset() {
	s.current = 0
	s.needShuffle = true
	s.Composite.Reset()
}

// Order returns the permutation of the current pass, or nil before the
// first Execute of a pass.
func (s *RandomSelector) Order() []int {
	if s.needShuffle {
		return nil
	}
	out := make([]int, len(s.order))
	copy(out, s.order)
	return out
}
