package behavior

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectorShortCircuit(t *testing.T) {
	a, b, c := script(StatusFailure), script(StatusSuccess), script(StatusFailure)
	sel := NewSelector(a.node(), b.node(), c.node())
	ctx := NewContext()

	require.Equal(t, StatusSuccess, sel.Execute(ctx))
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, 0, c.calls)
	assert.Equal(t, 0, ctx.CurrentDepth)
}

func TestSelectorResumesRunningChild(t *testing.T) {
	a, b, c := script(StatusFailure), script(StatusRunning, StatusSuccess), script(StatusSuccess)
	sel := NewSelector(a.node(), b.node(), c.node())
	ctx := NewContext()

	require.Equal(t, StatusRunning, sel.Execute(ctx))
	require.Equal(t, StatusSuccess, sel.Execute(ctx))

	assert.Equal(t, 1, a.calls, "failed sibling must not be re-evaluated")
	assert.Equal(t, 2, b.calls)
	assert.Equal(t, 0, c.calls)

	// resolved: next pass starts from the first child again
	require.Equal(t, StatusSuccess, sel.Execute(ctx))
	assert.Equal(t, 2, a.calls)
}

func TestSelectorAllFail(t *testing.T) {
	a, b := script(StatusFailure), script(StatusInvalid)
	sel := NewSelector(a.node(), b.node())
	ctx := NewContext()

	require.Equal(t, StatusFailure, sel.Execute(ctx))
	require.Equal(t, StatusFailure, sel.Execute(ctx))
	assert.Equal(t, 2, a.calls)
	assert.Equal(t, 2, b.calls)
}

func TestSequenceFailurePropagation(t *testing.T) {
	a, b, c := script(StatusSuccess), script(StatusFailure), script(StatusSuccess)
	seq := NewSequence(a.node(), b.node(), c.node())
	ctx := NewContext()

	require.Equal(t, StatusFailure, seq.Execute(ctx))
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, 0, c.calls)
}

func TestSequenceTreatsInvalidAsFailure(t *testing.T) {
	a, b := script(StatusInvalid), script(StatusSuccess)
	seq := NewSequence(a.node(), b.node())

	require.Equal(t, StatusFailure, seq.Execute(NewContext()))
	assert.Equal(t, 0, b.calls)
}

func TestSequenceResumesRunningChild(t *testing.T) {
	a, b, c := script(StatusSuccess), script(StatusRunning, StatusRunning, StatusSuccess), script(StatusSuccess)
	seq := NewSequence(a.node(), b.node(), c.node())
	ctx := NewContext()

	require.Equal(t, StatusRunning, seq.Execute(ctx))
	require.Equal(t, StatusRunning, seq.Execute(ctx))
	require.Equal(t, StatusSuccess, seq.Execute(ctx))
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 3, b.calls)
	assert.Equal(t, 1, c.calls)
}

func TestEmptyOrderedCompositesAreInvalid(t *testing.T) {
	ctx := NewContext()
	assert.Equal(t, StatusInvalid, NewSelector().Execute(ctx))
	assert.Equal(t, StatusInvalid, NewSequence().Execute(ctx))
	assert.Equal(t, StatusInvalid, NewRandomSelector().Execute(ctx))
	assert.Equal(t, StatusFailure, DefaultParallel().Execute(ctx))
	assert.Equal(t, 0, ctx.CurrentDepth)
}

func TestParallelQuorum(t *testing.T) {
	tests := []struct {
		name     string
		success  Policy
		failure  Policy
		children []Status
		want     Status
	}{
		{"one success beats partial failure", RequireOne, RequireAll, []Status{StatusFailure, StatusFailure, StatusSuccess}, StatusSuccess},
		{"all failed", RequireOne, RequireAll, []Status{StatusFailure, StatusFailure, StatusFailure}, StatusFailure},
		{"default fails on first failure", RequireAll, RequireOne, []Status{StatusSuccess, StatusFailure, StatusRunning}, StatusFailure},
		{"default waits for running", RequireAll, RequireOne, []Status{StatusSuccess, StatusRunning, StatusSuccess}, StatusRunning},
		{"default all success", RequireAll, RequireOne, []Status{StatusSuccess, StatusSuccess}, StatusSuccess},
		{"failure checked before success", RequireOne, RequireOne, []Status{StatusSuccess, StatusFailure}, StatusFailure},
		{"invalid counts as failure", RequireAll, RequireOne, []Status{StatusSuccess, StatusInvalid}, StatusFailure},
		{"nothing resolves", RequireAll, RequireAll, []Status{StatusSuccess, StatusFailure}, StatusFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var children []Node
			for _, st := range tt.children {
				children = append(children, script(st).node())
			}
			p := NewParallel(tt.success, tt.failure, children...)
			assert.Equal(t, tt.want, p.Execute(NewContext()))
		})
	}
}

func TestParallelRunsEveryChildEveryTick(t *testing.T) {
	a, b := script(StatusFailure), script(StatusRunning)
	p := DefaultParallel(a.node(), b.node())
	ctx := NewContext()
	for i := 0; i < 3; i++ {
		p.Execute(ctx)
	}
	assert.Equal(t, 3, a.calls)
	assert.Equal(t, 3, b.calls)
}

func TestParallelResolutionResetsRunningChildren(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	ctx := NewContext()
	ctx.Clock = clock
	count := 0
	work := NewSequence(
		NewAction(func() Status { count++; return StatusSuccess }),
		NewTimer(time.Second),
	)
	p := NewParallel(RequireOne, RequireOne, NewCondition(func() bool { return true }), work)

	require.Equal(t, StatusSuccess, p.Execute(ctx))
	require.Equal(t, 1, count)
	assert.Equal(t, 0, work.current)

	clock.Advance(900 * time.Millisecond)
	require.Equal(t, StatusSuccess, p.Execute(ctx))
	assert.Equal(t, 2, count, "the running sequence restarts from its first child")
}

func TestRandomSelectorVisitsEachChildOncePerPass(t *testing.T) {
	const n = 4
	var visits []int
	children := make([]Node, n)
	for i := 0; i < n; i++ {
		i := i
		children[i] = NewAction(func() Status {
			visits = append(visits, i)
			return StatusFailure
		})
	}
	rs := NewRandomSelector(children...).WithRand(rand.New(rand.NewPCG(1, 2)))
	ctx := NewContext()

	orders := map[string]bool{}
	for pass := 0; pass < 200; pass++ {
		visits = visits[:0]
		require.Equal(t, StatusFailure, rs.Execute(ctx))
		require.Len(t, visits, n)
		seen := map[int]bool{}
		for _, v := range visits {
			require.False(t, seen[v], "child %d visited twice in pass %d", v, pass)
			seen[v] = true
		}
		orders[fmt.Sprint(visits)] = true
	}
	assert.Greater(t, len(orders), 1, "order should vary across passes")
}

func TestRandomSelectorKeepsOrderWhileRunning(t *testing.T) {
	running := script(StatusRunning, StatusRunning, StatusSuccess)
	fail := script(StatusFailure)
	rs := NewRandomSelector(fail.node(), running.node()).WithRand(rand.New(rand.NewPCG(7, 7)))
	ctx := NewContext()

	require.Equal(t, StatusRunning, rs.Execute(ctx))
	order := rs.Order()
	failCalls := fail.calls
	require.Equal(t, StatusRunning, rs.Execute(ctx))
	assert.Equal(t, order, rs.Order(), "no reshuffle mid-pass")
	assert.Equal(t, failCalls, fail.calls, "failed sibling not revisited mid-pass")

	require.Equal(t, StatusSuccess, rs.Execute(ctx))
	assert.Nil(t, rs.Order(), "resolved pass discards the permutation")
}

func TestCompositeResetIsIdempotent(t *testing.T) {
	leaf := &resettable{named: named{name: "leaf"}, status: StatusRunning}
	first := script(StatusSuccess)
	seq := NewSequence(first.node(), leaf)
	ctx := NewContext()

	require.Equal(t, StatusRunning, seq.Execute(ctx))
	require.Equal(t, 1, seq.current)

	seq.Reset()
	seq.Reset()
	assert.Equal(t, 0, seq.current)
	assert.Equal(t, 2, leaf.resets)

	require.Equal(t, StatusRunning, seq.Execute(ctx))
	assert.Equal(t, 2, first.calls, "reset restarts the pass")
}

func TestResetIsIdempotentForEveryComposite(t *testing.T) {
	ctx := NewContext()

	leaf := &resettable{named: named{name: "leaf"}, status: StatusRunning}
	sel := NewSelector(script(StatusFailure).node(), leaf)
	require.Equal(t, StatusRunning, sel.Execute(ctx))
	require.Equal(t, 1, sel.current)
	sel.Reset()
	sel.Reset()
	assert.Equal(t, 0, sel.current)
	assert.Equal(t, 2, leaf.resets)

	rs := NewRandomSelector(&resettable{named: named{name: "r"}, status: StatusRunning}).WithRand(rand.New(rand.NewPCG(1, 1)))
	require.Equal(t, StatusRunning, rs.Execute(ctx))
	require.NotNil(t, rs.Order())
	rs.Reset()
	rs.Reset()
	assert.True(t, rs.needShuffle)
	assert.Nil(t, rs.Order())
	assert.Equal(t, 0, rs.current)

	a := &resettable{named: named{name: "a"}, status: StatusRunning}
	p := DefaultParallel(a)
	require.Equal(t, StatusRunning, p.Execute(ctx))
	p.Reset()
	p.Reset()
	assert.Equal(t, 2, a.resets)
	assert.Equal(t, StatusRunning, p.Execute(ctx))

	inner := &resettable{named: named{name: "inner"}, status: StatusRunning}
	inv := NewInverter(inner)
	require.Equal(t, StatusRunning, inv.Execute(ctx))
	inv.Reset()
	inv.Reset()
	assert.Equal(t, 2, inner.resets)
	assert.Equal(t, StatusRunning, inv.Execute(ctx))
	assert.Equal(t, 0, ctx.CurrentDepth)
}

func TestCompositeResetReachesEveryChild(t *testing.T) {
	a := &resettable{named: named{name: "a"}}
	b := &resettable{named: named{name: "b"}}
	p := DefaultParallel(a, b)
	p.Reset()
	assert.Equal(t, 1, a.resets)
	assert.Equal(t, 1, b.resets)
}

func TestAddChildAndChildrenCopy(t *testing.T) {
	sel := NewSelector()
	sel.AddChild(NewCondition(func() bool { return true }))
	kids := sel.Children()
	require.Len(t, kids, 1)
	kids[0] = nil
	assert.NotNil(t, sel.Children()[0])
}
