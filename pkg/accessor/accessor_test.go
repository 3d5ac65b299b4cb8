package accessor_test

import (
	"encoding/json"
	"reflect"
	"slices"
	"testing"

	"github.com/sandrolain/gognl/pkg/accessor"
	"github.com/sandrolain/gognl/pkg/coerce"
	"github.com/sandrolain/gognl/pkg/members"
	"github.com/sandrolain/gognl/pkg/types"
)

// ── fixtures ─────────────────────────────────────────────────────────────────

type testCtx struct {
	rt        *accessor.Runtime
	indexed   bool
	access    members.MemberAccess
	types     []reflect.Type
	accessors []reflect.Type
}

func newCtx() *testCtx {
	return &testCtx{rt: accessor.NewRuntime(), access: members.PublicAccess{}}
}

func (c *testCtx) Root() any                             { return nil }
func (c *testCtx) Runtime() *accessor.Runtime            { return c.rt }
func (c *testCtx) Converter() coerce.Converter           { return coerce.DefaultConverter{} }
func (c *testCtx) MemberAccess() members.MemberAccess    { return c.access }
func (c *testCtx) ClassResolver() accessor.ClassResolver { return c.rt.Classes }
func (c *testCtx) IndexedAccess() bool                   { return c.indexed }
func (c *testCtx) SetCurrentType(t reflect.Type)         { c.types = append(c.types, t) }
func (c *testCtx) SetCurrentAccessor(t reflect.Type)     { c.accessors = append(c.accessors, t) }

type Account struct {
	Owner   string
	balance int
}

func (a *Account) GetBalance() int    { return a.balance }
func (a *Account) Deposit(n int)      { a.balance += n }
func (a *Account) GetSummary() string { return a.Owner }

type Names []string

func (n Names) Size() int { return 42 }

type Color int

const (
	Red Color = iota
	Green
)

func (c Color) String() string { return [...]string{"RED", "GREEN"}[c] }

type Grid struct{ cells []string }

func (g *Grid) GetCell(i int) string    { return g.cells[i] }
func (g *Grid) SetCell(i int, v string) { g.cells[i] = v }
func (g *Grid) CellCount() int          { return len(g.cells) }

func wantCode(t *testing.T, err error, code types.ErrorCode) {
	t.Helper()
	if !types.IsCode(err, code) {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

// ── shapes and registry ──────────────────────────────────────────────────────

func TestShapeOf(t *testing.T) {
	tests := []struct {
		value any
		want  accessor.Shape
	}{
		{[]int{}, accessor.ShapeSequence},
		{[2]int{}, accessor.ShapeSequence},
		{&[]int{}, accessor.ShapeSequence},
		{map[string]int{}, accessor.ShapeMapping},
		{accessor.NewOrderedMap(), accessor.ShapeMapping},
		{accessor.NewIterator(slices.Values([]any{})), accessor.ShapeIterator},
		{"s", accessor.ShapeString},
		{&Account{}, accessor.ShapeObject},
		{nil, accessor.ShapeObject},
	}
	for _, tt := range tests {
		if got := accessor.ShapeOf(reflect.TypeOf(tt.value)); got != tt.want {
			t.Errorf("ShapeOf(%T) = %s, want %s", tt.value, got, tt.want)
		}
	}
}

type fixed struct{ accessor.ObjectAccessor }

func (fixed) GetProperty(accessor.Context, any, any) (any, error) { return "fixed", nil }

func TestRegistryBindings(t *testing.T) {
	ctx := newCtx()
	acct := &Account{Owner: "ada"}

	if v, err := accessor.GetProperty(ctx, acct, "owner"); err != nil || v != "ada" {
		t.Fatalf("builtin: %v, %v", v, err)
	}
	ctx.rt.Registry.RegisterPropertyAccessor(reflect.TypeOf(acct), fixed{})
	if v, _ := accessor.GetProperty(ctx, acct, "owner"); v != "fixed" {
		t.Fatalf("exact registration not honoured: %v", v)
	}

	stringer := reflect.TypeOf((*interface{ String() string })(nil)).Elem()
	ctx.rt.Registry.RegisterPropertyAccessor(stringer, fixed{})
	if v, _ := accessor.GetProperty(ctx, Green, "anything"); v != "fixed" {
		t.Fatalf("interface registration not honoured: %v", v)
	}
	if _, err := accessor.GetProperty(ctx, nil, "x"); !types.IsCode(err, types.ErrNullSource) {
		t.Fatalf("expected NullSource, got %v", err)
	}
}

// ── sequences ────────────────────────────────────────────────────────────────

func TestSequenceRead(t *testing.T) {
	items := []string{"a", "b", "c"}
	tests := []struct {
		name string
		key  any
		want any
	}{
		{"size", "size", 3},
		{"length", "length", 3},
		{"isEmpty", "isEmpty", false},
		{"index", 1, "b"},
		{"int64 index", int64(2), "c"},
		{"first", types.SubscriptFirst, "a"},
		{"mid", types.SubscriptMid, "b"},
		{"last", types.SubscriptLast, "c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := accessor.GetProperty(newCtx(), items, tt.key)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	_, err := accessor.GetProperty(newCtx(), items, 3)
	wantCode(t, err, types.ErrIndexOutOfRange)
	_, err = accessor.GetProperty(newCtx(), items, 1.5)
	if err != nil {
		t.Fatalf("a real index is truncated, got %v", err)
	}
}

func TestDynamicSubscriptOnEmptySequence(t *testing.T) {
	var empty []int
	for _, d := range []types.DynamicSubscript{types.SubscriptFirst, types.SubscriptMid, types.SubscriptLast} {
		v, err := accessor.GetProperty(newCtx(), empty, d)
		if err != nil || v != nil {
			t.Errorf("%s: got %v, %v; want nil, nil", d, v, err)
		}
		if err := accessor.SetProperty(newCtx(), empty, d, 1); err != nil {
			t.Errorf("%s: write should be a no-op, got %v", d, err)
		}
	}
}

func TestAllSubscriptCopies(t *testing.T) {
	items := []int{1, 2, 3}
	got, err := accessor.GetProperty(newCtx(), items, types.SubscriptAll)
	if err != nil {
		t.Fatal(err)
	}
	copied := got.([]int)
	copied[0] = 99
	if items[0] != 1 {
		t.Fatal("writing the $all copy changed the original")
	}
}

func TestSequenceWrite(t *testing.T) {
	ctx := newCtx()

	items := []int{1, 2, 3}
	if err := accessor.SetProperty(ctx, items, 0, "7"); err != nil || items[0] != 7 {
		t.Fatalf("index write: %v, %v", items, err)
	}
	if err := accessor.SetProperty(ctx, items, types.SubscriptLast, 9); err != nil || items[2] != 9 {
		t.Fatalf("$last write: %v, %v", items, err)
	}
	if err := accessor.SetProperty(ctx, items, types.SubscriptAll, []any{4, 5, 6}); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(items, []int{4, 5, 6}) {
		t.Fatalf("$all copy in place: %v", items)
	}
	err := accessor.SetProperty(ctx, items, types.SubscriptAll, []int{1})
	wantCode(t, err, types.ErrMalformedIndex)
	err = accessor.SetProperty(ctx, items, types.SubscriptAll, 5)
	wantCode(t, err, types.ErrMalformedIndex)

	grow := []int{1}
	if err := accessor.SetProperty(ctx, &grow, types.SubscriptAll, []int{1, 2, 3}); err != nil || len(grow) != 3 {
		t.Fatalf("$all through pointer: %v, %v", grow, err)
	}

	arr := [2]int{1, 2}
	err = accessor.SetProperty(ctx, arr, 0, 5)
	wantCode(t, err, types.ErrNotAddressable)
	if err := accessor.SetProperty(ctx, &arr, 0, 5); err != nil || arr[0] != 5 {
		t.Fatalf("array through pointer: %v, %v", arr, err)
	}
	err = accessor.SetProperty(ctx, items, "size", 1)
	wantCode(t, err, types.ErrUnsupportedAssignment)
}

// ── mappings ─────────────────────────────────────────────────────────────────

func TestMappingPseudoProperties(t *testing.T) {
	m := map[string]int{"size": 10, "b": 2, "a": 1}

	ctx := newCtx()
	if v, _ := accessor.GetProperty(ctx, m, "size"); v != 3 {
		t.Errorf("m.size = %v, want 3", v)
	}
	ctx.indexed = true
	if v, _ := accessor.GetProperty(ctx, m, "size"); v != 10 {
		t.Errorf(`m["size"] = %v, want 10`, v)
	}
	ctx.indexed = false
	keys, _ := accessor.GetProperty(ctx, m, "keys")
	if !reflect.DeepEqual(keys, []any{"a", "b", "size"}) {
		t.Errorf("keys = %v", keys)
	}
	if v, err := accessor.GetProperty(ctx, m, "missing"); err != nil || v != nil {
		t.Errorf("missing key = %v, %v", v, err)
	}
}

func TestMappingWrite(t *testing.T) {
	ctx := newCtx()
	m := map[int]string{}
	if err := accessor.SetProperty(ctx, m, "1", "one"); err != nil || m[1] != "one" {
		t.Fatalf("converted key write: %v, %v", m, err)
	}
	var nilMap map[string]any
	err := accessor.SetProperty(ctx, nilMap, "k", 1)
	wantCode(t, err, types.ErrNotAddressable)

	om := accessor.NewOrderedMap()
	if err := accessor.SetProperty(ctx, om, "z", 1); err != nil {
		t.Fatal(err)
	}
	om.Put("a", 2)
	om.Put("z", 3)
	if !reflect.DeepEqual(om.Keys(), []any{"z", "a"}) {
		t.Fatalf("insertion order lost: %v", om.Keys())
	}
	data, err := json.Marshal(om)
	if err != nil || string(data) != `{"z":3,"a":2}` {
		t.Fatalf("MarshalJSON = %s, %v", data, err)
	}
}

func TestDynamicSubscriptOnMapping(t *testing.T) {
	ctx := newCtx()
	ctx.indexed = true
	m := map[string]any{"a": 1}
	om := accessor.NewOrderedMap()
	om.Put("a", 1)

	for _, target := range []any{m, &m, om} {
		for _, d := range []types.DynamicSubscript{types.SubscriptFirst, types.SubscriptLast, types.SubscriptAll} {
			_, err := accessor.GetProperty(ctx, target, d)
			wantCode(t, err, types.ErrMalformedIndex)
			err = accessor.SetProperty(ctx, target, d, 2)
			wantCode(t, err, types.ErrMalformedIndex)
		}
	}
	if len(m) != 1 || m["a"] != 1 {
		t.Errorf("map changed: %v", m)
	}
	if !reflect.DeepEqual(om.Keys(), []any{"a"}) {
		t.Errorf("ordered map changed: %v", om.Keys())
	}

	it := accessor.NewIterator(slices.Values([]any{1}))
	_, err := accessor.GetProperty(ctx, it, types.SubscriptFirst)
	wantCode(t, err, types.ErrMalformedIndex)
}

// ── objects ──────────────────────────────────────────────────────────────────

func TestObjectAccess(t *testing.T) {
	acct := &Account{Owner: "ada", balance: 5}

	ctx := newCtx()
	if v, err := accessor.GetProperty(ctx, acct, "balance"); err != nil || v != 5 {
		t.Fatalf("getter: %v, %v", v, err)
	}
	if ctx.types[len(ctx.types)-1] != reflect.TypeOf(0) {
		t.Errorf("current type not recorded: %v", ctx.types)
	}
	_, err := accessor.GetProperty(ctx, acct, "nothing")
	wantCode(t, err, types.ErrNoSuchMember)

	err = accessor.SetProperty(ctx, acct, "balance", 1)
	wantCode(t, err, types.ErrAccessDenied)
	err = accessor.SetProperty(ctx, acct, "summary", "x")
	wantCode(t, err, types.ErrUnsupportedAssignment)

	full := newCtx()
	full.access = members.FullAccess{}
	if err := accessor.SetProperty(full, acct, "balance", "8"); err != nil || acct.balance != 8 {
		t.Fatalf("full access write: %v, %d", err, acct.balance)
	}
	if err := accessor.SetProperty(ctx, acct, "owner", "bob"); err != nil || acct.Owner != "bob" {
		t.Fatalf("field write: %v, %q", err, acct.Owner)
	}
	_, err = accessor.GetProperty(ctx, acct, types.SubscriptLast)
	wantCode(t, err, types.ErrMalformedIndex)
}

// ── methods ──────────────────────────────────────────────────────────────────

func TestMethodAccessors(t *testing.T) {
	tests := []struct {
		name   string
		target any
		method string
		args   []any
		want   any
	}{
		{"string length counts runes", "héllo", "length", nil, 5},
		{"toUpperCase", "abc", "toUpperCase", nil, "ABC"},
		{"substring", "abcdef", "substring", []any{1, 3}, "bc"},
		{"substring tail", "abcdef", "substring", []any{4}, "ef"},
		{"indexOf", "abcabc", "indexOf", []any{"ca"}, 2},
		{"charAt", "xyz", "charAt", []any{2}, "z"},
		{"sequence contains", []int{1, 2}, "contains", []any{2.0}, true},
		{"sequence get", []string{"a", "b"}, "get", []any{1}, "b"},
		{"map containsKey", map[string]int{"a": 1}, "containsKey", []any{"a"}, true},
		{"map get ignores pseudo names", map[string]int{"size": 4}, "get", []any{"size"}, 4},
		{"declared method wins", Names{"a"}, "size", nil, 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := accessor.CallMethod(newCtx(), tt.target, tt.method, tt.args)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v (%T), want %v", got, got, tt.want)
			}
		})
	}

	acct := &Account{}
	if _, err := accessor.CallMethod(newCtx(), acct, "deposit", []any{"3"}); err != nil || acct.balance != 3 {
		t.Fatalf("converted argument: %v, %d", err, acct.balance)
	}
	_, err := accessor.CallMethod(newCtx(), acct, "withdraw", nil)
	wantCode(t, err, types.ErrNoSuchMember)
	_, err = accessor.CallMethod(newCtx(), "abc", "substring", []any{2, 9})
	wantCode(t, err, types.ErrIndexOutOfRange)
	_, err = accessor.CallMethod(newCtx(), nil, "x", nil)
	wantCode(t, err, types.ErrNullSource)
}

// ── indexed properties ───────────────────────────────────────────────────────

func TestIndexedProperty(t *testing.T) {
	ctx := newCtx()
	g := &Grid{cells: []string{"a", "b", "c"}}
	ip, ok := ctx.rt.Resolver.IndexedProperty(reflect.TypeOf(g), "cell")
	if !ok {
		t.Fatal("cell is an indexed property")
	}
	if v, err := accessor.GetIndexed(ctx, g, ip, types.SubscriptLast); err != nil || v != "c" {
		t.Fatalf("$last = %v, %v", v, err)
	}
	all, err := accessor.GetIndexed(ctx, g, ip, types.SubscriptAll)
	if err != nil || !reflect.DeepEqual(all, []string{"a", "b", "c"}) {
		t.Fatalf("$all = %v, %v", all, err)
	}
	if err := accessor.SetIndexed(ctx, g, ip, 0, "z"); err != nil || g.cells[0] != "z" {
		t.Fatalf("set: %v, %v", err, g.cells)
	}
}

type Scores struct{ values []int }

func (s *Scores) GetScore(i int) int    { return s.values[i] }
func (s *Scores) SetScore(i int, v int) { s.values[i] = v }
func (s *Scores) ScoreCount() int       { return len(s.values) }

func TestIndexedPropertyAllWrite(t *testing.T) {
	ctx := newCtx()
	g := &Grid{cells: []string{"a", "b", "c"}}
	ip, _ := ctx.rt.Resolver.IndexedProperty(reflect.TypeOf(g), "cell")

	if err := accessor.SetIndexed(ctx, g, ip, types.SubscriptAll, []any{"x", "y", "z"}); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(g.cells, []string{"x", "y", "z"}) {
		t.Fatalf("cells = %v", g.cells)
	}

	for _, value := range []any{[]any{"only"}, "xyz", nil} {
		err := accessor.SetIndexed(ctx, g, ip, types.SubscriptAll, value)
		wantCode(t, err, types.ErrMalformedIndex)
	}
	if !slices.Equal(g.cells, []string{"x", "y", "z"}) {
		t.Fatalf("rejected writes changed cells: %v", g.cells)
	}

	s := &Scores{values: []int{1, 2}}
	sip, _ := ctx.rt.Resolver.IndexedProperty(reflect.TypeOf(s), "score")
	if err := accessor.SetIndexed(ctx, s, sip, types.SubscriptAll, []string{"7", "8"}); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(s.values, []int{7, 8}) {
		t.Fatalf("converted $all write: %v", s.values)
	}
	if err := accessor.SetIndexed(ctx, s, sip, types.SubscriptAll, []any{9, struct{}{}}); err == nil {
		t.Fatal("an unconvertible element should fail")
	}
	if !slices.Equal(s.values, []int{7, 8}) {
		t.Errorf("a failed $all write applied part of its elements: %v", s.values)
	}
}

// ── classes ──────────────────────────────────────────────────────────────────

var counter = 1

func TestClasses(t *testing.T) {
	ctx := newCtx()
	classes := ctx.rt.Classes
	acctType := reflect.TypeOf(&Account{})
	colorType := reflect.TypeOf(Red)

	classes.RegisterType(acctType)
	if got, err := classes.ResolveClass("Account"); err != nil || got != acctType {
		t.Fatalf("ResolveClass = %v, %v", got, err)
	}
	_, err := classes.ResolveClass("Nope")
	wantCode(t, err, types.ErrUnknownClass)

	if err := classes.RegisterStaticField(acctType, "counter", &counter); err != nil {
		t.Fatal(err)
	}
	classes.RegisterConstant(acctType, "Limit", 100)
	if err := accessor.SetStaticField(ctx, acctType, "counter", 5); err != nil || counter != 5 {
		t.Fatalf("static write: %v, %d", err, counter)
	}
	err = accessor.SetStaticField(ctx, acctType, "Limit", 1)
	wantCode(t, err, types.ErrUnsupportedAssignment)
	if v, _ := accessor.GetStaticField(ctx, acctType, "class"); v != acctType {
		t.Errorf("class pseudo-field = %v", v)
	}

	if err := classes.RegisterEnum(colorType, Red, Green); err != nil {
		t.Fatal(err)
	}
	if v, err := accessor.GetStaticField(ctx, colorType, "GREEN"); err != nil || v != Green {
		t.Errorf("enum = %v, %v", v, err)
	}

	if err := classes.RegisterStaticFunc(acctType, "open", func(owner string) *Account { return &Account{Owner: owner} }); err != nil {
		t.Fatal(err)
	}
	v, err := accessor.CallStatic(ctx, acctType, "open", []any{"eve"})
	if err != nil || v.(*Account).Owner != "eve" {
		t.Fatalf("static call = %v, %v", v, err)
	}

	v, err = accessor.Construct(ctx, reflect.TypeOf(Account{}), nil)
	if _, ok := v.(*Account); err != nil || !ok {
		t.Fatalf("zero struct construction = %T, %v", v, err)
	}
	v, err = accessor.Construct(ctx, reflect.TypeOf(&accessor.OrderedMap{}), nil)
	if om, ok := v.(*accessor.OrderedMap); err != nil || !ok || om.Len() != 0 {
		t.Fatalf("registered constructor = %T, %v", v, err)
	}
	v, err = accessor.NewArray(ctx, reflect.TypeOf(""), []any{1, 2})
	if err != nil || !reflect.DeepEqual(v, []string{"1", "2"}) {
		t.Fatalf("NewArray = %v, %v", v, err)
	}
}

// ── elements ─────────────────────────────────────────────────────────────────

func TestElements(t *testing.T) {
	ch := make(chan int, 2)
	ch <- 1
	ch <- 2
	close(ch)

	om := accessor.NewOrderedMap()
	om.Put("b", 1)
	om.Put("a", 2)

	tests := []struct {
		name   string
		target any
		want   []any
	}{
		{"slice", []int{1, 2}, []any{1, 2}},
		{"map values by key", map[string]int{"b": 2, "a": 1}, []any{1, 2}},
		{"ordered map", om, []any{1, 2}},
		{"channel", ch, []any{1, 2}},
		{"integer range", 3, []any{0, 1, 2}},
		{"nil", nil, nil},
		{"scalar", "x", []any{"x"}},
	}
	rt := accessor.NewRuntime()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq, err := accessor.Elements(rt, tt.target)
			if err != nil {
				t.Fatal(err)
			}
			got := slices.Collect(seq)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
