package scenario

import (
	"fmt"
	"sort"
	"time"

	"example.com/npc-behaviour/internal/agent/behavior"
)

// Registry names the leaf callables a scenario may reference.
type Registry struct {
	Actions    map[string]func() behavior.Status
	Conditions map[string]func() bool
	Durations  map[string]func() time.Duration
}

func NewRegistry() *Registry {
	return &Registry{
		Actions:    make(map[string]func() behavior.Status),
		Conditions: make(map[string]func() bool),
		Durations:  make(map[string]func() time.Duration),
	}
}

func (r *Registry) Action(name string, fn func() behavior.Status) { r.Actions[name] = fn }

func (r *Registry) Condition(name string, fn func() bool) { r.Conditions[name] = fn }

func (r *Registry) Duration(name string, fn func() time.Duration) { r.Durations[name] = fn }

// Names lists every registered ref, sorted.
func (r *Registry) Names() []string {
	var out []string
	for k := range r.Actions {
		out = append(out, "action:"+k)
	}
	for k := range r.Conditions {
		out = append(out, "condition:"+k)
	}
	for k := range r.Durations {
		out = append(out, "duration:"+k)
	}
	sort.Strings(out)
	return out
}

// Build turns a validated spec into a behaviour tree. Every ref must be
// present in reg.
func Build(spec Spec, reg *Registry) (behavior.Node, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if reg == nil {
		reg = NewRegistry()
	}
	root, err := build(spec.Root, reg, "root")
	if err != nil {
		return nil, err
	}
	return root, nil
}

// nameable is satisfied by every node constructed here.
type nameable interface {
	behavior.Node
	SetName(string)
}

func build(n NodeSpec, reg *Registry, at string) (behavior.Node, error) {
	children := make([]behavior.Node, 0, len(n.Children))
	for i, c := range n.Children {
		child, err := build(c, reg, fmt.Sprintf("%s.children[%d]", at, i))
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	var node nameable
	switch n.Type {
	case TypeSelector:
		node = behavior.NewSelector(children...)
	case TypeSequence:
		node = behavior.NewSequence(children...)
	case TypeRandomSelector:
		node = behavior.NewRandomSelector(children...)
	case TypeParallel:
		success, _ := parsePolicy(n.Success, "all")
		failure, _ := parsePolicy(n.Failure, "one")
		node = behavior.NewParallel(success, failure, children...)
	case TypeInverter:
		node = behavior.NewInverter(children[0])
	case TypeRepeat:
		count := behavior.RepeatForever
		if n.Count != nil {
			count = *n.Count
		}
		node = behavior.NewRepeat(children[0], count)
	case TypeAction:
		fn, ok := reg.Actions[n.Ref]
		if !ok {
			return nil, fmt.Errorf("%s: unknown action %q", at, n.Ref)
		}
		node = behavior.NewAction(fn)
	case TypeCondition:
		fn, ok := reg.Conditions[n.Ref]
		if !ok {
			return nil, fmt.Errorf("%s: unknown condition %q", at, n.Ref)
		}
		node = behavior.NewCondition(fn)
	case TypeTimer:
		if n.Ref != "" {
			fn, ok := reg.Durations[n.Ref]
			if !ok {
				return nil, fmt.Errorf("%s: unknown duration %q", at, n.Ref)
			}
			node = behavior.NewTimerFunc(fn)
		} else {
			d, err := time.ParseDuration(n.Duration)
			if err != nil {
				return nil, fmt.Errorf("%s: timer duration: %w", at, err)
			}
			node = behavior.NewTimer(d)
		}
	default:
		return nil, fmt.Errorf("%s: unknown node type %q", at, n.Type)
	}

	switch {
	case n.Name != "":
		node.SetName(n.Name)
	case n.Ref != "":
		node.SetName(n.Ref)
	}
	return node, nil
}

func parsePolicy(raw, def string) (behavior.Policy, error) {
	if raw == "" {
		raw = def
	}
	switch raw {
	case "one":
		return behavior.RequireOne, nil
	case "all":
		return behavior.RequireAll, nil
	default:
		return 0, fmt.Errorf("unknown policy %q (want one or all)", raw)
	}
}
