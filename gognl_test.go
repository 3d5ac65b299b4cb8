package gognl_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/sandrolain/gognl"
	"github.com/sandrolain/gognl/pkg/evaluator"
	"github.com/sandrolain/gognl/pkg/ext"
	"github.com/sandrolain/gognl/pkg/types"
)

type address struct{ City string }

type person struct {
	Name    string
	Age     int
	Address *address
}

func TestGetAndSetValue(t *testing.T) {
	p := &person{Name: "Ann", Age: 34, Address: &address{City: "Turin"}}
	node := evaluator.NewChain(evaluator.Prop("Address"), evaluator.Prop("City"))

	v, err := gognl.GetValue(node, p)
	if err != nil || v != "Turin" {
		t.Fatalf("GetValue = %v, %v", v, err)
	}
	if err := gognl.SetValue(node, p, "Rome"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	if p.Address.City != "Rome" {
		t.Errorf("city = %q", p.Address.City)
	}

	age, err := gognl.GetValueAs(evaluator.Prop("Age"), p, reflect.TypeFor[int64]())
	if err != nil || age != int64(34) {
		t.Fatalf("GetValueAs = %#v, %v", age, err)
	}
	if _, err := gognl.GetValueAs(evaluator.Prop("Name"), p, reflect.TypeFor[int]()); !types.IsCode(err, types.ErrConversion) {
		t.Errorf("converting a name to int: %v", err)
	}
}

func TestParseAndEval(t *testing.T) {
	node := gognl.MustParse("{chain: [{property: items}, {property: !subscript last, indexed: true}]}")
	v, err := gognl.Eval(context.Background(), node, map[string]any{"items": []any{1, 2, 3}})
	if err != nil || v != 3 {
		t.Fatalf("Eval = %v, %v", v, err)
	}

	if _, err := gognl.Parse("{add: [1]}"); !types.IsCode(err, types.ErrMalformedTree) {
		t.Errorf("Parse of a one-operand add: %v", err)
	}
}

func TestMustParsePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustParse did not panic")
		}
	}()
	gognl.MustParse("{nope: 1}")
}

func TestEvalYAML(t *testing.T) {
	ctx := context.Background()

	v, err := gognl.EvalYAML(ctx, "{staticMethod: max, class: Math, args: [1, 2]}", nil, ext.WithMath())
	if err != nil || v != 2 {
		t.Fatalf("EvalYAML = %v, %v", v, err)
	}

	// eval nodes decode their string operand as a tree
	v, err = gognl.EvalYAML(ctx, "{eval: ['{property: n}', {root: ~}]}", map[string]any{"n": 5})
	if err != nil || v != 5 {
		t.Fatalf("nested eval = %v, %v", v, err)
	}
}

func TestVersion(t *testing.T) {
	if gognl.Version() == "" {
		t.Error("empty version")
	}
}
