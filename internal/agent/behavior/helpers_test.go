package behavior

// scripted is a leaf that returns its scripted statuses in order, repeating
// the last one once the script runs out.
type scripted struct {
	calls    int
	statuses []Status
}

func script(statuses ...Status) *scripted {
	return &scripted{statuses: statuses}
}

func (s *scripted) next() Status {
	idx := s.calls
	if idx >= len(s.statuses) {
		idx = len(s.statuses) - 1
	}
	s.calls++
	return s.statuses[idx]
}

func (s *scripted) node() *ActionNode {
	return NewAction(s.next)
}

// resettable counts Reset calls.
type resettable struct {
	named
	status Status
	resets int
}

func (r *resettable) Execute(c *Context) Status {
	c.visit(r)
	return c.record(r.status)
}

func (r *resettable) Reset() { r.resets++ }
