package behavior

// ActionNode returns whatever its function returns, uninterpreted.
type ActionNode struct {
	named
	action func() Status
}

func NewAction(action func() Status) *ActionNode {
	return &ActionNode{named: named{name: "ActionNode"}, action: action}
}

func (n *ActionNode) Execute(c *Context) Status {
	c.visit(n)
	if n.action == nil {
		return c.record(StatusInvalid)
	}
	status := n.action()
	c.tracef("%s: %s", n.name, status)
	return c.record(status)
}

func (n *ActionNode) Reset() {}

// ConditionNode maps a boolean predicate to StatusSuccess or StatusFailure.
// It never reports StatusRunning.
type ConditionNode struct {
	named
	condition func() bool
}

func NewCondition(condition func() bool) *ConditionNode {
	return &ConditionNode{named: named{name: "ConditionNode"}, condition: condition}
}

func (n *ConditionNode) Execute(c *Context) Status {
	c.visit(n)
	status := StatusFailure
	if n.condition != nil && n.condition() {
		status = StatusSuccess
	}
	c.tracef("%s: %s", n.name, status)
	return c.record(status)
}

func (n *ConditionNode) Reset() {}
