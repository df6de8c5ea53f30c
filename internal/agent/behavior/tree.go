package behavior

import (
	"fmt"
	"strings"
)

// Tree pairs a root node with the Context it is always executed with.
type Tree struct {
	Root    Node
	Context *Context

	ticks uint64
}

func NewTree(root Node) *Tree {
	return &Tree{Root: root, Context: NewContext()}
}

// Tick executes the root once. If a leaf panics, every node's resumption
// state is discarded before the panic continues to the caller.
func (t *Tree) Tick() Status {
	t.ticks++
	if t.Root == nil {
		return t.Context.record(StatusInvalid)
	}
	defer func() {
		if r := recover(); r != nil {
			t.Root.Reset()
			t.Context.unwind()
			panic(r)
		}
	}()
	return t.Root.Execute(t.Context)
}

// Reset discards resumption state across the tree. The blackboard is kept.
func (t *Tree) Reset() {
	if t.Root != nil {
		t.Root.Reset()
	}
	t.Context.unwind()
}

// Replace swaps in a new root with fresh resumption state.
func (t *Tree) Replace(root Node) {
	if t.Root != nil {
		t.Root.Reset()
	}
	t.Root = root
	t.Context.LastExecutedNode = nil
	t.Context.CurrentPath = ""
	t.Context.unwind()
}

// Ticks returns how many times Tick has been called.
func (t *Tree) Ticks() uint64 { return t.ticks }

// Dump renders the structure below n, one node per line.
func Dump(n Node) string {
	var sb strings.Builder
	dump(&sb, n, 0)
	return sb.String()
}

func dump(sb *strings.Builder, n Node, depth int) {
	if n == nil {
		return
	}
	fmt.Fprintf(sb, "%s%s\n", strings.Repeat("  ", depth), n.Name())
	p, ok := n.(Parent)
	if !ok {
		return
	}
	for _, child := range p.Children() {
		dump(sb, child, depth+1)
	}
}
