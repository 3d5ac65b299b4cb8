package evaluator_test

import (
	"bytes"
	"context"
	"log/slog"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sandrolain/gognl/pkg/accessor"
	"github.com/sandrolain/gognl/pkg/evaluator"
	"github.com/sandrolain/gognl/pkg/members"
	"github.com/sandrolain/gognl/pkg/types"
)

// ── context state ────────────────────────────────────────────────────────────

func TestContextRootAndStacks(t *testing.T) {
	ctx := evaluator.NewContext(evaluator.WithRuntime(accessor.NewRuntime()))
	p := newPerson()

	ctx.SetRoot(p)
	if ctx.Root() != p || ctx.CurrentObject() != p {
		t.Fatal("SetRoot should set root and current object")
	}
	if got := ctx.TypeStack(); len(got) != 1 || got[0] != reflect.TypeOf(p) {
		t.Fatalf("type stack = %v", got)
	}

	node := evaluator.NewChain(evaluator.Prop("Address"), evaluator.Prop("City"))
	if _, err := evaluator.Evaluate(node, ctx, p); err != nil {
		t.Fatal(err)
	}
	if ctx.CurrentType() != reflect.TypeOf("") {
		t.Errorf("current type = %v, want string", ctx.CurrentType())
	}
	if ctx.PreviousType() != reflect.TypeOf(&Address{}) {
		t.Errorf("previous type = %v, want *Address", ctx.PreviousType())
	}
	if ctx.CurrentAccessor() == nil {
		t.Error("accessor stack should not be empty")
	}
	if ctx.CurrentObject() != "Turin" {
		t.Errorf("current object = %v", ctx.CurrentObject())
	}

	ctx.SetRoot(nil)
	if len(ctx.TypeStack()) != 0 || len(ctx.AccessorStack()) != 0 {
		t.Error("SetRoot(nil) should leave both stacks empty")
	}
}

func TestContextVariables(t *testing.T) {
	ctx := evaluator.NewContext(evaluator.WithVar("a", 1))
	if v, ok := ctx.Get("a"); !ok || v != 1 {
		t.Fatalf("a = %v, %v", v, ok)
	}
	ctx.Set("b", 2)
	ctx.Set("root", "r")
	if ctx.Root() != "r" {
		t.Errorf("binding root should replace it")
	}
	if _, ok := ctx.Vars()["root"]; ok {
		t.Error("root must not be stored as a plain variable")
	}
	ctx.Delete("a")
	if _, ok := ctx.Get("a"); ok {
		t.Error("a should be unbound")
	}
	ctx.SetRoot("kept")
	if v, _ := ctx.Get("b"); v != 2 {
		t.Error("SetRoot must keep variables")
	}
	ctx.Clear()
	if len(ctx.Vars()) != 0 || ctx.Root() != "kept" {
		t.Error("Clear should drop variables and keep the root")
	}
}

func TestStacksRolledBackBetweenOperands(t *testing.T) {
	ctx := evaluator.NewContext(evaluator.WithRuntime(accessor.NewRuntime()))
	p := newPerson()
	node := evaluator.NewComparison(types.KindEq,
		evaluator.NewChain(evaluator.Prop("Address"), evaluator.Prop("City")),
		evaluator.Prop("Age"),
	)
	if _, err := evaluator.Evaluate(node, ctx, p); err != nil {
		t.Fatal(err)
	}
	// root, then int pushed by Age; nothing left from the first operand.
	if got := ctx.TypeStack(); len(got) != 2 || got[1] != reflect.TypeOf(0) {
		t.Errorf("type stack = %v", got)
	}
}

// ── trace ────────────────────────────────────────────────────────────────────

func TestTrace(t *testing.T) {
	ctx := evaluator.NewContext(evaluator.WithRuntime(accessor.NewRuntime()), evaluator.WithTrace(true))
	node := evaluator.NewChain(evaluator.Prop("Address"), evaluator.Prop("City"))
	if _, err := evaluator.Evaluate(node, ctx, newPerson()); err != nil {
		t.Fatal(err)
	}

	ev := ctx.LastEvaluation()
	if ev == nil {
		t.Fatal("no trace recorded")
	}
	if ev.Node != node || ev.Result != "Turin" {
		t.Errorf("root record = %v -> %v", ev.Node, ev.Result)
	}
	if len(ev.Children) != 2 {
		t.Fatalf("children = %d, want 2", len(ev.Children))
	}
	if ev.Children[1].Parent != ev {
		t.Error("child should link to its parent")
	}
	out := ev.Format()
	for _, want := range []string{"get chain Address.City -> Turin", "  get property City -> Turin"} {
		if !strings.Contains(out, want) {
			t.Errorf("trace missing %q:\n%s", want, out)
		}
	}
	if ctx.RootEvaluation() != nil {
		t.Error("no evaluation should be in progress")
	}
}

func TestTraceRecordsErrors(t *testing.T) {
	ctx := evaluator.NewContext(evaluator.WithRuntime(accessor.NewRuntime()), evaluator.WithTrace(true))
	_, err := evaluator.Evaluate(evaluator.Prop("Nope"), ctx, newPerson())
	if err == nil {
		t.Fatal("expected error")
	}
	if ev := ctx.LastEvaluation(); ev == nil || ev.Err == nil {
		t.Fatalf("trace = %+v", ev)
	}
}

// ── entry points ─────────────────────────────────────────────────────────────

type fixedAccelerator struct{ calls atomic.Int32 }

func (a *fixedAccelerator) Get(*evaluator.Context, any) (any, error) {
	a.calls.Add(1)
	return "fast", nil
}

func (a *fixedAccelerator) Set(*evaluator.Context, any, any) error {
	a.calls.Add(1)
	return nil
}

type panickingAccelerator struct{}

func (panickingAccelerator) Get(*evaluator.Context, any) (any, error) { panic("boom") }
func (panickingAccelerator) Set(*evaluator.Context, any, any) error   { panic("boom") }

func TestAcceleratorPreferred(t *testing.T) {
	node := evaluator.Prop("Name")
	acc := &fixedAccelerator{}
	node.SetAccelerator(acc)
	ctx := evaluator.NewContext()

	v, err := evaluator.Evaluate(node, ctx, newPerson())
	if err != nil || v != "fast" {
		t.Fatalf("Evaluate = %v, %v", v, err)
	}
	if err := evaluator.Assign(node, ctx, newPerson(), "x"); err != nil {
		t.Fatal(err)
	}
	if acc.calls.Load() != 2 {
		t.Errorf("accelerator calls = %d", acc.calls.Load())
	}

	node.SetAccelerator(nil)
	if v, _ := evaluator.Evaluate(node, ctx, newPerson()); v != "Ann" {
		t.Errorf("after detaching = %v", v)
	}
}

func TestPanicBecomesEvaluationError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	node := evaluator.Prop("Name")
	node.SetAccelerator(panickingAccelerator{})
	ctx := evaluator.NewContext(evaluator.WithLogger(logger))

	_, err := evaluator.Evaluate(node, ctx, newPerson())
	if !types.IsCode(err, types.ErrEvaluation) {
		t.Fatalf("got %v", err)
	}
	err = evaluator.Assign(node, ctx, newPerson(), 1)
	if !types.IsCode(err, types.ErrEvaluation) {
		t.Fatalf("got %v", err)
	}
	if !strings.Contains(buf.String(), "evaluation panicked") {
		t.Errorf("panic not logged: %s", buf.String())
	}
}

func TestNilNode(t *testing.T) {
	_, err := evaluator.Evaluate(nil, evaluator.NewContext(), 1)
	if !types.IsCode(err, types.ErrNotANode) {
		t.Errorf("got %v", err)
	}
	err = evaluator.Assign(nil, evaluator.NewContext(), 1, 2)
	if !types.IsCode(err, types.ErrNotANode) {
		t.Errorf("got %v", err)
	}
}

func TestEvaluateAs(t *testing.T) {
	ctx := evaluator.NewContext()
	v, err := evaluator.EvaluateAs(c(3), ctx, nil, reflect.TypeOf(""))
	if err != nil || v != "3" {
		t.Fatalf("as string = %v, %v", v, err)
	}
	v, err = evaluator.EvaluateAs(c("12"), ctx, nil, reflect.TypeOf(int64(0)))
	if err != nil || v != int64(12) {
		t.Fatalf("as int64 = %v, %v", v, err)
	}
	_, err = evaluator.EvaluateAs(c("x"), ctx, nil, reflect.TypeOf(0))
	if !types.IsCode(err, types.ErrConversion) {
		t.Fatalf("bad conversion = %v", err)
	}
}

func TestMaxDepth(t *testing.T) {
	ev := newEvaluator(evaluator.WithMaxDepth(2))
	node := evaluator.NewChain(evaluator.Prop("Address"), evaluator.Prop("City"))
	_, err := ev.Eval(context.Background(), node, newPerson())
	if !types.IsCode(err, types.ErrEvaluation) {
		t.Fatalf("got %v", err)
	}

	ctx := ev.NewContext(context.Background())
	if _, err := evaluator.Evaluate(c(1), ctx, nil); err != nil {
		t.Fatalf("shallow tree after failure: %v", err)
	}
}

// ── capability gate ──────────────────────────────────────────────────────────

func TestMemberAccessGate(t *testing.T) {
	ev := newEvaluator(evaluator.WithMemberAccess(members.ReadOnly(members.PublicAccess{})))
	p := newPerson()

	v, err := ev.Eval(context.Background(), evaluator.Prop("Name"), p)
	if err != nil || v != "Ann" {
		t.Fatalf("read = %v, %v", v, err)
	}
	err = ev.Assign(context.Background(), evaluator.Prop("Name"), p, "X")
	if !types.IsCode(err, types.ErrAccessDenied) {
		t.Fatalf("write = %v", err)
	}

	deny := members.AccessFunc(func(_ reflect.Type, m members.Member, op members.Operation) bool {
		return op != members.Invoke
	})
	ev = newEvaluator(evaluator.WithMemberAccess(deny))
	_, err = ev.Eval(context.Background(), evaluator.NewMethod("greet", c("Hi")), p)
	if !types.IsCode(err, types.ErrAccessDenied) {
		t.Fatalf("invoke = %v", err)
	}
}

// ── evaluator ────────────────────────────────────────────────────────────────

func TestEvaluatorCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newEvaluator().Eval(ctx, c(1), nil)
	if !types.IsCode(err, types.ErrEvaluation) {
		t.Fatalf("got %v", err)
	}
}

func TestEvaluatorTimeoutStopsSelection(t *testing.T) {
	seq := func(yield func(any) bool) {
		for i := 0; ; i++ {
			time.Sleep(time.Millisecond)
			if !yield(i) {
				return
			}
		}
	}
	ev := newEvaluator(evaluator.WithTimeout(20 * time.Millisecond))
	node := evaluator.NewSelection(types.KindProject, evaluator.NewThisRef())

	_, err := ev.Eval(context.Background(), node, seq)
	if !types.IsCode(err, types.ErrEvaluation) {
		t.Fatalf("got %v", err)
	}
}

func TestEvalMany(t *testing.T) {
	nodes := []evaluator.Node{
		evaluator.Prop("Name"),
		evaluator.Prop("Age"),
		evaluator.NewChain(evaluator.Prop("Address"), evaluator.Prop("City")),
	}
	for _, concurrent := range []bool{true, false} {
		ev := newEvaluator(evaluator.WithConcurrency(concurrent))
		got, err := ev.EvalMany(context.Background(), nodes, newPerson())
		if err != nil {
			t.Fatal(err)
		}
		compareValue(t, got, []any{"Ann", 34, "Turin"})
	}

	_, err := newEvaluator().EvalMany(context.Background(), []evaluator.Node{c(1), evaluator.Prop("Nope")}, newPerson())
	if !types.IsCode(err, types.ErrNoSuchMember) {
		t.Errorf("got %v", err)
	}
}

func TestEvalStringCaching(t *testing.T) {
	var parses atomic.Int32
	parse := func(expr string) (evaluator.Node, error) {
		parses.Add(1)
		return evaluator.Prop(expr), nil
	}
	ev := newEvaluator(evaluator.WithParser(parse), evaluator.WithCaching(true), evaluator.WithCacheSize(4))

	for range 3 {
		v, err := ev.EvalString(context.Background(), "Name", newPerson())
		if err != nil || v != "Ann" {
			t.Fatalf("EvalString = %v, %v", v, err)
		}
	}
	if parses.Load() != 1 {
		t.Errorf("parses = %d, want 1", parses.Load())
	}
	if ev.Cache().Len() != 1 || ev.Cache().Capacity() != 4 {
		t.Errorf("cache len = %d, capacity = %d", ev.Cache().Len(), ev.Cache().Capacity())
	}

	_, err := newEvaluator().EvalString(context.Background(), "Name", nil)
	if !types.IsCode(err, types.ErrNotANode) {
		t.Errorf("without parser = %v", err)
	}
}

func TestDebugLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ev := newEvaluator(evaluator.WithLogger(logger), evaluator.WithDebug(true))

	if _, err := ev.Eval(context.Background(), evaluator.Prop("Name"), newPerson()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"evaluating node", "kind=property", "evaluation finished"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}
