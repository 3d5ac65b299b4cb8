package evaluator

import (
	"fmt"
	"strings"
)

// Evaluation records one node visit when tracing is enabled. Records form
// a tree mirroring the traversal: Children are in visit order.
type Evaluation struct {
	Node     Node
	Source   any
	Result   any
	Err      error
	SetOp    bool
	Parent   *Evaluation
	Children []*Evaluation
}

// Format renders the record and its descendants, one visit per line.
func (e *Evaluation) Format() string {
	var b strings.Builder
	e.format(&b, 0)
	return b.String()
}

func (e *Evaluation) format(b *strings.Builder, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	op := "get"
	if e.SetOp {
		op = "set"
	}
	fmt.Fprintf(b, "%s %s %s", op, e.Node.Kind(), e.Node)
	switch {
	case e.Err != nil:
		fmt.Fprintf(b, " ! %v", e.Err)
	case e.SetOp:
		fmt.Fprintf(b, " <- %v", e.Result)
	default:
		fmt.Fprintf(b, " -> %v", e.Result)
	}
	b.WriteByte('\n')
	for _, c := range e.Children {
		c.format(b, depth+1)
	}
}

// RootEvaluation returns the trace of the evaluation in progress.
func (c *Context) RootEvaluation() *Evaluation { return c.rootEval }

// LastEvaluation returns the trace of the most recently completed
// top-level node visit.
func (c *Context) LastEvaluation() *Evaluation { return c.lastEval }

// SetTracing turns trace recording on or off.
func (c *Context) SetTracing(on bool) { c.tracing = on }

func (c *Context) traceStart(n Node, source any, setOp bool) *Evaluation {
	if !c.tracing {
		return nil
	}
	ev := &Evaluation{Node: n, Source: source, SetOp: setOp, Parent: c.curEval}
	if c.curEval == nil {
		c.rootEval = ev
	} else {
		c.curEval.Children = append(c.curEval.Children, ev)
	}
	c.curEval = ev
	return ev
}

func (c *Context) traceEnd(ev *Evaluation, result any, err error) {
	if ev == nil {
		return
	}
	ev.Result, ev.Err = result, err
	c.curEval = ev.Parent
	if ev.Parent == nil {
		c.lastEval = ev
		c.rootEval = nil
	}
}
