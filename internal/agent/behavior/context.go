package behavior

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// Context is the per-tree execution state threaded through every Execute
// call. One Context belongs to exactly one tree and is reused every tick;
// it must never be shared between trees that tick concurrently.
//
// LastExecutedNode, CurrentPath and LastNodeStatus are debug telemetry the
// host may render after a tick. They do not affect execution.
// LastExecutedNode is only meaningful for the tree currently installed;
// Tree.Replace clears it and hosts must not hold on to it across a Replace.
type Context struct {
	LastExecutedNode Node
	CurrentPath      string
	LastNodeStatus   Status
	CurrentDepth     int
	Blackboard       *Blackboard

	// Clock supplies "now" to timer nodes. Defaults to the wall clock.
	Clock Clock
	// Logger receives indented trace lines when set.
	Logger *log.Logger

	path []string
}

func NewContext() *Context {
	return &Context{
		Blackboard: NewBlackboard(),
		Clock:      RealClock(),
	}
}

// Now returns the current time according to the context clock.
func (c *Context) Now() time.Time {
	if c.Clock == nil {
		return time.Now()
	}
	return c.Clock.Now()
}

// enter records n as the current node and descends one level. Every call
// must be paired with a deferred leave.
func (c *Context) enter(n Node) {
	c.path = append(c.path, n.Name())
	c.LastExecutedNode = n
	c.CurrentPath = strings.Join(c.path, "/")
	c.CurrentDepth++
}

func (c *Context) leave() {
	if len(c.path) > 0 {
		c.path = c.path[:len(c.path)-1]
	}
	c.CurrentDepth--
}

// visit records a leaf without descending.
func (c *Context) visit(n Node) {
	c.LastExecutedNode = n
	if len(c.path) == 0 {
		c.CurrentPath = n.Name()
		return
	}
	c.CurrentPath = strings.Join(c.path, "/") + "/" + n.Name()
}

func (c *Context) record(status Status) Status {
	c.LastNodeStatus = status
	return status
}

// unwind drops any breadcrumb left behind by an aborted tick.
func (c *Context) unwind() {
	c.path = c.path[:0]
	c.CurrentDepth = 0
}

func (c *Context) tracef(format string, args ...interface{}) {
	if c.Logger == nil {
		return
	}
	depth := c.CurrentDepth
	if depth < 0 {
		depth = 0
	}
	c.Logger.Printf("%s%s", strings.Repeat("  ", depth), fmt.Sprintf(format, args...))
}
