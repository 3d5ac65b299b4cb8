package evaluator_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/sandrolain/gognl/pkg/accessor"
	"github.com/sandrolain/gognl/pkg/evaluator"
	"github.com/sandrolain/gognl/pkg/types"
)

// ── fixtures ─────────────────────────────────────────────────────────────────

type Address struct {
	City string
}

type Person struct {
	Name    string
	Age     int
	Address *Address
	Tags    []string
}

func (p *Person) Greet(greeting string) string { return greeting + ", " + p.Name }

func newPerson() *Person {
	return &Person{
		Name:    "Ann",
		Age:     34,
		Address: &Address{City: "Turin"},
		Tags:    []string{"a", "b", "c"},
	}
}

// ── helpers ──────────────────────────────────────────────────────────────────

func c(v any) evaluator.Node { return evaluator.NewConst(v) }

func newEvaluator(opts ...evaluator.EvalOption) *evaluator.Evaluator {
	opts = append([]evaluator.EvalOption{evaluator.WithRuntime(accessor.NewRuntime())}, opts...)
	return evaluator.New(opts...)
}

func eval(t *testing.T, node evaluator.Node, data any) any {
	t.Helper()

	result, err := newEvaluator().Eval(context.Background(), node, data)
	if err != nil {
		t.Fatalf("Failed to eval %s: %v", node, err)
	}
	return result
}

func evalExpectError(t *testing.T, node evaluator.Node, data any, code types.ErrorCode) error {
	t.Helper()

	_, err := newEvaluator().Eval(context.Background(), node, data)
	if !types.IsCode(err, code) {
		t.Fatalf("eval %s: got error %v, want code %s", node, err, code)
	}
	return err
}

func compareValue(t *testing.T, got, want any) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

// ── literals and operators ───────────────────────────────────────────────────

func TestEvalLiterals(t *testing.T) {
	tests := []struct {
		name  string
		value any
	}{
		{"string", "hello"},
		{"int", 42},
		{"float", 3.14},
		{"bool", true},
		{"null", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compareValue(t, eval(t, c(tt.value), nil), tt.value)
		})
	}
}

func TestEvalArithmetic(t *testing.T) {
	tests := []struct {
		name string
		node evaluator.Node
		want any
	}{
		{"add ints", evaluator.NewArithmetic(types.KindAdd, c(2), c(3)), 5},
		{"add widens", evaluator.NewArithmetic(types.KindAdd, c(2), c(0.5)), 2.5},
		{"concat", evaluator.NewArithmetic(types.KindAdd, c("a"), c(1)), "a1"},
		{"n-ary", evaluator.NewArithmetic(types.KindAdd, c(1), c(2), c(3)), 6},
		{"subtract", evaluator.NewArithmetic(types.KindSubtract, c(10), c(4)), 6},
		{"integer divide", evaluator.NewArithmetic(types.KindDivide, c(7), c(2)), 3},
		{"remainder", evaluator.NewArithmetic(types.KindRemainder, c(7), c(2)), 1},
		{"multiply", evaluator.NewArithmetic(types.KindMultiply, c(2), c(2.5)), 5.0},
		{"bit and", evaluator.NewArithmetic(types.KindBitAnd, c(6), c(3)), 2},
		{"shift left", evaluator.NewArithmetic(types.KindShiftLeft, c(1), c(4)), 16},
		{"negate", evaluator.NewUnary(types.KindNegate, c(5)), -5},
		{"bit negate", evaluator.NewUnary(types.KindBitNegate, c(0)), -1},
		{"not", evaluator.NewUnary(types.KindNot, c(false)), true},
		{"not string", evaluator.NewUnary(types.KindNot, c("")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compareValue(t, eval(t, tt.node, nil), tt.want)
		})
	}
}

func TestEvalArithmeticErrors(t *testing.T) {
	evalExpectError(t, evaluator.NewArithmetic(types.KindDivide, c(1), c(0)), nil, types.ErrArithmetic)
	evalExpectError(t, evaluator.NewArithmetic(types.KindMultiply, c("x"), c(2)), nil, types.ErrConversion)
}

func TestEvalComparison(t *testing.T) {
	tests := []struct {
		name string
		kind types.NodeKind
		a, b any
		want bool
	}{
		{"eq mixed numbers", types.KindEq, 1, 1.0, true},
		{"eq strings", types.KindEq, "a", "a", true},
		{"not eq", types.KindNotEq, "a", "b", true},
		{"less", types.KindLess, 1, 2.5, true},
		{"less eq", types.KindLessEq, 2, 2, true},
		{"greater", types.KindGreater, "b", "a", true},
		{"greater eq", types.KindGreaterEq, 1, 2, false},
		{"nil eq nil", types.KindEq, nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compareValue(t, eval(t, evaluator.NewComparison(tt.kind, c(tt.a), c(tt.b)), nil), tt.want)
		})
	}
}

func TestEvalMembership(t *testing.T) {
	list := evaluator.NewList(c(1), c(2), c(3))
	compareValue(t, eval(t, evaluator.NewMembership(types.KindIn, c(2), list), nil), true)
	compareValue(t, eval(t, evaluator.NewMembership(types.KindNotIn, c(9), list), nil), true)
	compareValue(t, eval(t, evaluator.NewMembership(types.KindIn, c("b"), evaluator.Prop("Tags")), newPerson()), true)
}

func TestEvalLogicalReturnsOperand(t *testing.T) {
	compareValue(t, eval(t, evaluator.NewLogical(types.KindOr, c(nil), c("x")), nil), "x")
	compareValue(t, eval(t, evaluator.NewLogical(types.KindAnd, c(1), c(0), c(2)), nil), 0)
}

func TestEvalTestSequenceAssign(t *testing.T) {
	node := evaluator.NewTest(evaluator.NewComparison(types.KindGreater, evaluator.Prop("Age"), c(18)), c("adult"), c("minor"))
	compareValue(t, eval(t, node, newPerson()), "adult")

	seq := evaluator.NewSequence(
		evaluator.NewAssign(evaluator.NewVarRef("x"), c(3)),
		evaluator.NewArithmetic(types.KindMultiply, evaluator.NewVarRef("x"), c(2)),
	)
	compareValue(t, eval(t, seq, nil), 6)
}

func TestAssignmentNodeAndAssignEntryPoint(t *testing.T) {
	var node *evaluator.Assignment = evaluator.NewAssign(evaluator.Prop("Age"), c(50))
	if node.Kind() != types.KindAssign {
		t.Fatalf("kind = %s", node.Kind())
	}
	if got := node.String(); got != "Age = 50" {
		t.Errorf("String() = %q", got)
	}

	p := newPerson()
	ectx := evaluator.NewContext(evaluator.WithRuntime(accessor.NewRuntime()))
	compareValue(t, mustEvaluate(t, node, ectx, p), 50)
	compareValue(t, p.Age, 50)

	// an assignment node is not itself an assignment target
	err := evaluator.Assign(node, ectx, p, 1)
	if !types.IsCode(err, types.ErrUnsupportedAssignment) {
		t.Errorf("Assign through an assignment: %v", err)
	}
}

func mustEvaluate(t *testing.T, node evaluator.Node, ectx *evaluator.Context, root any) any {
	t.Helper()
	v, err := evaluator.Evaluate(node, ectx, root)
	if err != nil {
		t.Fatalf("Evaluate(%s): %v", node, err)
	}
	return v
}

func TestEvalInstanceOf(t *testing.T) {
	compareValue(t, eval(t, evaluator.NewInstanceOf(c("s"), "string"), nil), true)
	compareValue(t, eval(t, evaluator.NewInstanceOf(c(1), "string"), nil), false)
	evalExpectError(t, evaluator.NewInstanceOf(c(1), "Nope"), nil, types.ErrUnknownClass)
}

// ── navigation ───────────────────────────────────────────────────────────────

func TestEvalNavigation(t *testing.T) {
	data := map[string]any{
		"person": newPerson(),
		"nums":   []int{10, 20, 30},
	}

	tests := []struct {
		name string
		node evaluator.Node
		want any
	}{
		{"map key", evaluator.Prop("nums"), []int{10, 20, 30}},
		{"nested", evaluator.NewChain(evaluator.Prop("person"), evaluator.Prop("Address"), evaluator.Prop("City")), "Turin"},
		{"lower-case field", evaluator.NewChain(evaluator.Prop("person"), evaluator.Prop("name")), "Ann"},
		{"index", evaluator.NewChain(evaluator.Prop("nums"), evaluator.IndexAt(1)), 20},
		{"first", evaluator.NewChain(evaluator.Prop("nums"), evaluator.IndexAt(types.SubscriptFirst)), 10},
		{"mid", evaluator.NewChain(evaluator.Prop("nums"), evaluator.IndexAt(types.SubscriptMid)), 20},
		{"size", evaluator.NewChain(evaluator.Prop("nums"), evaluator.Prop("size")), 3},
		{"computed index", evaluator.NewChain(evaluator.Prop("nums"), evaluator.Index(evaluator.NewArithmetic(types.KindSubtract, c(3), c(1)))), 30},
		{"method", evaluator.NewChain(evaluator.Prop("person"), evaluator.NewMethod("greet", c("Hi"))), "Hi, Ann"},
		{"string method", evaluator.NewChain(evaluator.Prop("person"), evaluator.Prop("Name"), evaluator.NewMethod("toUpperCase")), "ANN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compareValue(t, eval(t, tt.node, data), tt.want)
		})
	}
}

func TestEvalIndexKeyEvaluatedAgainstRoot(t *testing.T) {
	data := map[string]any{
		"nums": []int{10, 20, 30},
		"i":    2,
	}
	node := evaluator.NewChain(evaluator.Prop("nums"), evaluator.Index(evaluator.Prop("i")))
	compareValue(t, eval(t, node, data), 30)
}

func TestEvalMethodFallsBackToRoot(t *testing.T) {
	node := evaluator.NewChain(evaluator.Prop("Address"), evaluator.NewMethod("greet", c("Hello")))
	compareValue(t, eval(t, node, newPerson()), "Hello, Ann")
}

func TestEvalNavigationErrors(t *testing.T) {
	err := evalExpectError(t, evaluator.NewChain(evaluator.Prop("Address"), evaluator.Prop("Zip")), newPerson(), types.ErrNoSuchMember)
	var e *types.Error
	if !errors.As(err, &e) || e.Expression != "Zip" {
		t.Errorf("expression = %q, want %q", e.Expression, "Zip")
	}

	evalExpectError(t, evaluator.NewChain(evaluator.Prop("Tags"), evaluator.IndexAt(5)), newPerson(), types.ErrIndexOutOfRange)
	evalExpectError(t, evaluator.NewChain(evaluator.Prop("missing"), evaluator.Prop("x")), map[string]any{}, types.ErrNullSource)
}

func TestAssignThroughNodes(t *testing.T) {
	ev := newEvaluator()
	ctx := context.Background()
	p := newPerson()

	tests := []struct {
		name  string
		node  evaluator.Node
		value any
		check func() any
		want  any
	}{
		{"field", evaluator.Prop("Age"), 40, func() any { return p.Age }, 40},
		{"converted", evaluator.Prop("Age"), "41", func() any { return p.Age }, 41},
		{"nested", evaluator.NewChain(evaluator.Prop("Address"), evaluator.Prop("City")), "Rome", func() any { return p.Address.City }, "Rome"},
		{"element", evaluator.NewChain(evaluator.Prop("Tags"), evaluator.IndexAt(types.SubscriptLast)), "z", func() any { return p.Tags[2] }, "z"},
		{"test branch", evaluator.NewTest(c(false), evaluator.Prop("Age"), evaluator.Prop("Name")), "Bo", func() any { return p.Name }, "Bo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ev.Assign(ctx, tt.node, p, tt.value); err != nil {
				t.Fatalf("Assign: %v", err)
			}
			compareValue(t, tt.check(), tt.want)
		})
	}
}

func TestAssignLogicalRespectsShortCircuit(t *testing.T) {
	ev := newEvaluator()
	p := newPerson()

	// false && Name = ... never reaches Name.
	err := ev.Assign(context.Background(), evaluator.NewLogical(types.KindAnd, c(false), evaluator.Prop("Name")), p, "X")
	if err != nil || p.Name != "Ann" {
		t.Fatalf("and: name = %q, err = %v", p.Name, err)
	}
	err = ev.Assign(context.Background(), evaluator.NewLogical(types.KindOr, c(false), evaluator.Prop("Name")), p, "X")
	if err != nil || p.Name != "X" {
		t.Fatalf("or: name = %q, err = %v", p.Name, err)
	}
}

// ── collections ──────────────────────────────────────────────────────────────

func TestEvalSelection(t *testing.T) {
	data := map[string]any{"nums": []int{1, 2, 3, 4, 5}}
	gt2 := func() evaluator.Node {
		return evaluator.NewComparison(types.KindGreater, evaluator.NewThisRef(), c(2))
	}

	tests := []struct {
		name string
		kind types.NodeKind
		expr evaluator.Node
		want any
	}{
		{"select", types.KindSelect, gt2(), []any{3, 4, 5}},
		{"select first", types.KindSelectFirst, gt2(), []any{3}},
		{"select last", types.KindSelectLast, gt2(), []any{5}},
		{"select none", types.KindSelect, c(false), []any{}},
		{"project", types.KindProject, evaluator.NewArithmetic(types.KindMultiply, evaluator.NewThisRef(), c(10)), []any{10, 20, 30, 40, 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := evaluator.NewChain(evaluator.Prop("nums"), evaluator.NewSelection(tt.kind, tt.expr))
			compareValue(t, eval(t, node, data), tt.want)
		})
	}
}

func TestEvalListAndMap(t *testing.T) {
	list := eval(t, evaluator.NewList(c(1), evaluator.Prop("Name")), newPerson())
	compareValue(t, list, []any{1, "Ann"})

	m := eval(t, evaluator.NewMap("",
		evaluator.NewKeyValue(c("b"), c(2)),
		evaluator.NewKeyValue(c("a"), evaluator.Prop("Age")),
	), newPerson())
	om, ok := m.(*accessor.OrderedMap)
	if !ok {
		t.Fatalf("map literal = %T", m)
	}
	compareValue(t, om.Keys(), []any{"b", "a"})
	if v, _ := om.Get("a"); v != 34 {
		t.Errorf("a = %v", v)
	}

	typed := eval(t, evaluator.NewMap("map", evaluator.NewKeyValue(c("k"), c(1))), nil)
	compareValue(t, typed, map[string]any{"k": 1})

	evalExpectError(t, evaluator.NewMap("", evaluator.NewKeyValue(evaluator.NewList(c(1)), c(1))), nil, types.ErrConversion)
}

// ── statics and constructors ─────────────────────────────────────────────────

func TestEvalStatics(t *testing.T) {
	rt := accessor.NewRuntime()
	personType := reflect.TypeOf(&Person{})
	rt.Classes.RegisterType(personType)
	rt.Classes.RegisterConstant(personType, "Adult", 18)
	if err := rt.Classes.RegisterStaticFunc(personType, "named", func(name string) *Person { return &Person{Name: name} }); err != nil {
		t.Fatal(err)
	}
	ev := evaluator.New(evaluator.WithRuntime(rt))
	ctx := context.Background()

	v, err := ev.Eval(ctx, evaluator.NewStaticField("Person", "Adult"), nil)
	if err != nil || v != 18 {
		t.Fatalf("static field = %v, %v", v, err)
	}
	v, err = ev.Eval(ctx, evaluator.NewChain(evaluator.NewStaticMethod("Person", "named", c("Cy")), evaluator.Prop("Name")), nil)
	if err != nil || v != "Cy" {
		t.Fatalf("static method = %v, %v", v, err)
	}
	v, err = ev.Eval(ctx, evaluator.NewCtor("Person"), nil)
	if _, ok := v.(*Person); err != nil || !ok {
		t.Fatalf("ctor = %T, %v", v, err)
	}
	v, err = ev.Eval(ctx, evaluator.NewArrayCtor("int", c(3)), nil)
	if err != nil || !reflect.DeepEqual(v, []int{0, 0, 0}) {
		t.Fatalf("array ctor = %v, %v", v, err)
	}
	v, err = ev.Eval(ctx, evaluator.NewArrayCtor("string", evaluator.NewList(c(1), c("x"))), nil)
	if err != nil || !reflect.DeepEqual(v, []string{"1", "x"}) {
		t.Fatalf("array initializer = %v, %v", v, err)
	}

	ectx := ev.NewContext(ctx)
	if !evaluator.NewStaticField("Person", "Adult").IsConstant(ectx) {
		t.Error("constant static field should be constant")
	}
	err = ev.Assign(ctx, evaluator.NewStaticField("Person", "Adult"), nil, 21)
	if !types.IsCode(err, types.ErrUnsupportedAssignment) {
		t.Errorf("assign constant static = %v", err)
	}
}

// ── variables, eval and lambda ───────────────────────────────────────────────

func TestEvalVariables(t *testing.T) {
	ev := newEvaluator(evaluator.WithVar("limit", 30))
	p := newPerson()

	node := evaluator.NewComparison(types.KindGreater, evaluator.Prop("Age"), evaluator.NewVarRef("limit"))
	v, err := ev.Eval(context.Background(), node, p)
	if err != nil || v != true {
		t.Fatalf("var compare = %v, %v", v, err)
	}

	v, err = ev.Eval(context.Background(), evaluator.NewVarRef("root"), p)
	if err != nil || v != p {
		t.Fatalf("#root = %v, %v", v, err)
	}
	v, err = ev.Eval(context.Background(), evaluator.NewVarRef("missing"), p)
	if err != nil || v != nil {
		t.Fatalf("unbound var = %v, %v", v, err)
	}
}

func TestEvalEvalAndLambda(t *testing.T) {
	other := &Person{Name: "Dee"}
	lambda := evaluator.NewLambda(evaluator.Prop("Name"))
	node := evaluator.NewEval(lambda, c(other))
	compareValue(t, eval(t, node, newPerson()), "Dee")

	parse := func(expr string) (evaluator.Node, error) {
		return evaluator.NewChain(evaluator.Prop(expr), evaluator.NewMethod("length")), nil
	}
	ev := newEvaluator(evaluator.WithParser(parse))
	v, err := ev.Eval(context.Background(), evaluator.NewEval(c("Name"), evaluator.NewRootRef()), newPerson())
	if err != nil || v != 3 {
		t.Fatalf("parsed eval = %v, %v", v, err)
	}

	evalExpectError(t, evaluator.NewEval(c("Name"), evaluator.NewRootRef()), nil, types.ErrNotANode)
	evalExpectError(t, evaluator.NewEval(c(1), evaluator.NewRootRef()), nil, types.ErrNotANode)
}

// ── rendering ────────────────────────────────────────────────────────────────

func TestNodeString(t *testing.T) {
	tests := []struct {
		node evaluator.Node
		want string
	}{
		{evaluator.NewChain(evaluator.Prop("a"), evaluator.IndexAt(0), evaluator.NewMethod("f", c(1), c("s"))), `a[0].f(1, "s")`},
		{evaluator.NewArithmetic(types.KindAdd, c(1), evaluator.NewArithmetic(types.KindMultiply, c(2), c(3))), "1 + (2 * 3)"},
		{evaluator.NewArithmetic(types.KindAdd, evaluator.NewArithmetic(types.KindAdd, c(1), c(2)), c(3)), "1 + 2 + 3"},
		{evaluator.NewChain(evaluator.Prop("items"), evaluator.IndexAt(types.SubscriptLast)), "items[$last]"},
		{evaluator.NewStaticMethod("Math", "max", c(1), c(2)), "@Math@max(1, 2)"},
		{evaluator.NewUnary(types.KindNot, evaluator.NewVarRef("x")), "!#x"},
		{evaluator.NewTest(c(true), c(nil), c(int64(2))), "true ? null : 2L"},
		{evaluator.NewSelection(types.KindSelect, evaluator.NewThisRef()), "{? #this }"},
		{evaluator.NewMap("", evaluator.NewKeyValue(c("k"), c(1))), `#{ "k" : 1 }`},
		{evaluator.NewCtor("Person", c("x")), `new Person("x")`},
		{evaluator.NewLambda(evaluator.Prop("x")), ":[ x ]"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.node.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFlatteningReparentsChildren(t *testing.T) {
	inner := evaluator.NewChain(evaluator.Prop("a"), evaluator.Prop("b"))
	outer := evaluator.NewChain(inner, evaluator.Prop("c"))
	if n := len(outer.Children()); n != 3 {
		t.Fatalf("children = %d, want 3", n)
	}
	for _, ch := range outer.Children() {
		if ch.Parent() != outer {
			t.Errorf("%s parent = %v", ch, ch.Parent())
		}
	}
	if !strings.HasPrefix(outer.String(), "a.b") {
		t.Errorf("string = %q", outer.String())
	}
}
