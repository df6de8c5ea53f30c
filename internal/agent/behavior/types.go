package behavior

// Status is the outcome of a single Execute call.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailure
	StatusRunning
	// StatusInvalid marks a node that reached a state it cannot resolve
	// (no children, missing child). Composites treat it as StatusFailure.
	StatusInvalid
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusFailure:
		return "FAILURE"
	case StatusRunning:
		return "RUNNING"
	case StatusInvalid:
		return "INVALID"
	default:
		return "UNKNOWN"
	}
}

// Node is one unit of a behaviour tree. Execute is called once per tick and
// must not block; multi-tick work is modelled by returning StatusRunning.
// A node that returned StatusRunning resumes where it left off on the next
// Execute. Reset discards any resumption state.
type Node interface {
	Execute(c *Context) Status
	Reset()
	Name() string
}

// Parent is implemented by composites and decorators.
type Parent interface {
	Node
	Children() []Node
}

// named carries the display name shared by every node kind.
type named struct {
	name string
}

func (n *named) Name() string { return n.name }

// SetName overrides the kind name used in paths and traces.
func (n *named) SetName(name string) {
	if name != "" {
		n.name = name
	}
}
