// Package astyaml reads and writes expression trees as YAML.
//
// A tree is a YAML value. Scalars are constants; a sequence is a list
// literal; a mapping holds exactly one node-kind key, whose value carries
// the operands, plus the modifiers that kind accepts:
//
//	chain:
//	  - property: Address
//	  - property: City
//
//	add: [1, {var: n}, !long 2]
//
//	staticMethod: max
//	class: Math
//	args: [3, 4]
//
// Modifiers are class (instanceof, staticField, staticMethod, map),
// args (method, staticMethod, new), indexed (property) and array (new).
//
// Typed constants use local tags: !long (int64), !float (float64), !big
// (*big.Int), !dec (*apd.Decimal) and !subscript (first, mid, last, all).
package astyaml

import (
	"fmt"
	"math/big"
	"slices"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
	"gopkg.in/yaml.v3"

	"github.com/sandrolain/gognl/pkg/evaluator"
	"github.com/sandrolain/gognl/pkg/types"
)

// Local tags for constants YAML has no core type for.
const (
	TagLong      = "!long"
	TagFloat     = "!float"
	TagBig       = "!big"
	TagDecimal   = "!dec"
	TagSubscript = "!subscript"
)

// Limits on decoded trees, aliases expanded.
const (
	maxDepth = 512
	maxNodes = 1 << 18
)

// Decode parses a YAML document holding one expression tree.
func Decode(data []byte) (evaluator.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, types.NewError(types.ErrMalformedTree, "invalid YAML").WithCause(err)
	}
	if len(doc.Content) == 0 {
		return nil, types.NewError(types.ErrMalformedTree, "empty document")
	}
	return DecodeNode(&doc)
}

// Parse decodes src; it has the shape of an evaluator.ParseFunc so that
// string operands of eval nodes can hold YAML trees.
func Parse(src string) (evaluator.Node, error) {
	return Decode([]byte(src))
}

// DecodeNode converts an already parsed YAML node.
func DecodeNode(n *yaml.Node) (evaluator.Node, error) {
	d := &decoder{}
	return d.node(n)
}

// Tree wraps a node so that it can be a field of YAML-decoded structs.
type Tree struct {
	evaluator.Node
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *Tree) UnmarshalYAML(value *yaml.Node) error {
	n, err := DecodeNode(value)
	if err != nil {
		return err
	}
	t.Node = n
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (t Tree) MarshalYAML() (any, error) {
	if t.Node == nil {
		return nil, nil
	}
	return EncodeNode(t.Node)
}

type decoder struct {
	depth int
	count int
}

func malformed(n *yaml.Node, format string, args ...any) *types.Error {
	msg := fmt.Sprintf(format, args...)
	if n != nil && n.Line > 0 {
		msg = fmt.Sprintf("line %d, column %d: %s", n.Line, n.Column, msg)
	}
	return types.NewError(types.ErrMalformedTree, msg)
}

func (d *decoder) node(n *yaml.Node) (evaluator.Node, error) {
	if d.depth++; d.depth > maxDepth {
		return nil, malformed(n, "tree nested deeper than %d", maxDepth)
	}
	defer func() { d.depth-- }()
	if d.count++; d.count > maxNodes {
		return nil, malformed(n, "tree has more than %d nodes", maxNodes)
	}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) != 1 {
			return nil, malformed(n, "document must hold exactly one tree")
		}
		return d.node(n.Content[0])
	case yaml.AliasNode:
		return d.node(n.Alias)
	case yaml.ScalarNode:
		v, err := scalar(n)
		if err != nil {
			return nil, err
		}
		return evaluator.NewConst(v), nil
	case yaml.SequenceNode:
		elems, err := d.nodes(n)
		if err != nil {
			return nil, err
		}
		return evaluator.NewList(elems...), nil
	case yaml.MappingNode:
		return d.mapping(n)
	}
	return nil, malformed(n, "unexpected YAML node")
}

func (d *decoder) nodes(n *yaml.Node) ([]evaluator.Node, error) {
	if n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	if n.Kind != yaml.SequenceNode {
		return nil, malformed(n, "expected a sequence of trees")
	}
	out := make([]evaluator.Node, len(n.Content))
	for i, c := range n.Content {
		node, err := d.node(c)
		if err != nil {
			return nil, err
		}
		out[i] = node
	}
	return out, nil
}

// scalar decodes a constant, honouring the local tags.
func scalar(n *yaml.Node) (any, error) {
	switch n.Tag {
	case TagLong:
		v, err := strconv.ParseInt(strings.TrimSpace(n.Value), 0, 64)
		if err != nil {
			return nil, malformed(n, "bad %s %q", TagLong, n.Value)
		}
		return v, nil
	case TagFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(n.Value), 64)
		if err != nil {
			return nil, malformed(n, "bad %s %q", TagFloat, n.Value)
		}
		return f, nil
	case TagBig:
		b, ok := new(big.Int).SetString(strings.TrimSpace(n.Value), 0)
		if !ok {
			return nil, malformed(n, "bad %s %q", TagBig, n.Value)
		}
		return b, nil
	case TagDecimal:
		dec, _, err := apd.NewFromString(strings.TrimSpace(n.Value))
		if err != nil {
			return nil, malformed(n, "bad %s %q", TagDecimal, n.Value)
		}
		return dec, nil
	case TagSubscript:
		s, ok := types.ParseSubscript(strings.TrimSpace(n.Value))
		if !ok {
			return nil, malformed(n, "unknown subscript %q", n.Value)
		}
		return s, nil
	}
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, malformed(n, "bad constant %q", n.Value).WithCause(err)
	}
	return v, nil
}

// ── mappings ─────────────────────────────────────────────────────────────────

var modifiers = map[string]bool{"class": true, "args": true, "indexed": true, "array": true}

var kindModifiers = map[types.NodeKind][]string{
	types.KindInstanceOf:   {"class"},
	types.KindStaticField:  {"class"},
	types.KindStaticMethod: {"class", "args"},
	types.KindMap:          {"class"},
	types.KindMethod:       {"args"},
	types.KindCtor:         {"args", "array"},
	types.KindProperty:     {"indexed"},
}

type fields struct {
	n      *yaml.Node
	kind   types.NodeKind
	value  *yaml.Node
	byName map[string]*yaml.Node
}

func fieldsOf(n *yaml.Node) (*fields, error) {
	f := &fields{n: n, byName: make(map[string]*yaml.Node, len(n.Content)/2)}
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.Kind != yaml.ScalarNode {
			return nil, malformed(k, "mapping keys must be scalars")
		}
		if _, dup := f.byName[k.Value]; dup {
			return nil, malformed(k, "duplicate key %q", k.Value)
		}
		f.byName[k.Value] = v
		if modifiers[k.Value] {
			continue
		}
		if f.value != nil {
			return nil, malformed(k, "both %q and %q name a node kind", f.kind, k.Value)
		}
		f.kind, f.value = types.NodeKind(k.Value), v
	}
	if f.value == nil {
		return nil, malformed(n, "mapping names no node kind")
	}
	return f, nil
}

// only rejects modifiers the kind does not take.
func (f *fields) only(allowed ...string) error {
	for name := range f.byName {
		if modifiers[name] && !slices.Contains(allowed, name) {
			return malformed(f.byName[name], "%s does not take %q", f.kind, name)
		}
	}
	return nil
}

func (f *fields) name() (string, error) {
	return nameOf(f.value, string(f.kind))
}

func (f *fields) class(required bool) (string, error) {
	c, ok := f.byName["class"]
	if !ok {
		if required {
			return "", malformed(f.n, "%s needs a class", f.kind)
		}
		return "", nil
	}
	return nameOf(c, "class")
}

func nameOf(n *yaml.Node, what string) (string, error) {
	if n.Kind != yaml.ScalarNode || n.Value == "" || n.ShortTag() != "!!str" {
		return "", malformed(n, "%s must be a non-empty name", what)
	}
	return n.Value, nil
}

func (d *decoder) args(f *fields) ([]evaluator.Node, error) {
	a, ok := f.byName["args"]
	if !ok {
		return nil, nil
	}
	return d.nodes(a)
}

// operands decodes the kind's value as a sequence of between lo and hi
// trees; hi < 0 means unbounded.
func (d *decoder) operands(f *fields, lo, hi int) ([]evaluator.Node, error) {
	ops, err := d.nodes(f.value)
	if err != nil {
		return nil, err
	}
	if len(ops) < lo || (hi >= 0 && len(ops) > hi) {
		switch {
		case lo == hi:
			return nil, malformed(f.value, "%s takes %d operands, got %d", f.kind, lo, len(ops))
		case hi < 0:
			return nil, malformed(f.value, "%s takes at least %d operands, got %d", f.kind, lo, len(ops))
		}
		return nil, malformed(f.value, "%s takes %d to %d operands, got %d", f.kind, lo, hi, len(ops))
	}
	return ops, nil
}

func (d *decoder) mapping(n *yaml.Node) (evaluator.Node, error) {
	f, err := fieldsOf(n)
	if err != nil {
		return nil, err
	}
	if err := f.only(kindModifiers[f.kind]...); err != nil {
		return nil, err
	}

	switch f.kind {
	case types.KindConst:
		return d.constant(f.value)

	case types.KindAdd, types.KindSubtract, types.KindMultiply, types.KindDivide, types.KindRemainder,
		types.KindBitAnd, types.KindBitOr, types.KindXor,
		types.KindShiftLeft, types.KindShiftRight, types.KindUnsignedShiftRight:
		ops, err := d.operands(f, 2, -1)
		if err != nil {
			return nil, err
		}
		return evaluator.NewArithmetic(f.kind, ops...), nil

	case types.KindNegate, types.KindBitNegate, types.KindNot:
		op, err := d.node(f.value)
		if err != nil {
			return nil, err
		}
		return evaluator.NewUnary(f.kind, op), nil

	case types.KindAnd, types.KindOr:
		ops, err := d.operands(f, 2, -1)
		if err != nil {
			return nil, err
		}
		return evaluator.NewLogical(f.kind, ops...), nil

	case types.KindEq, types.KindNotEq, types.KindLess, types.KindLessEq, types.KindGreater, types.KindGreaterEq:
		ops, err := d.operands(f, 2, 2)
		if err != nil {
			return nil, err
		}
		return evaluator.NewComparison(f.kind, ops[0], ops[1]), nil

	case types.KindIn, types.KindNotIn:
		ops, err := d.operands(f, 2, 2)
		if err != nil {
			return nil, err
		}
		return evaluator.NewMembership(f.kind, ops[0], ops[1]), nil

	case types.KindInstanceOf:
		class, err := f.class(true)
		if err != nil {
			return nil, err
		}
		op, err := d.node(f.value)
		if err != nil {
			return nil, err
		}
		return evaluator.NewInstanceOf(op, class), nil

	case types.KindTest:
		ops, err := d.operands(f, 3, 3)
		if err != nil {
			return nil, err
		}
		return evaluator.NewTest(ops[0], ops[1], ops[2]), nil

	case types.KindSequence:
		ops, err := d.operands(f, 1, -1)
		if err != nil {
			return nil, err
		}
		return evaluator.NewSequence(ops...), nil

	case types.KindAssign:
		ops, err := d.operands(f, 2, 2)
		if err != nil {
			return nil, err
		}
		return evaluator.NewAssign(ops[0], ops[1]), nil

	case types.KindChain:
		ops, err := d.operands(f, 1, -1)
		if err != nil {
			return nil, err
		}
		return evaluator.NewChain(ops...), nil

	case types.KindProperty:
		return d.property(f)

	case types.KindMethod:
		name, err := f.name()
		if err != nil {
			return nil, err
		}
		args, err := d.args(f)
		if err != nil {
			return nil, err
		}
		return evaluator.NewMethod(name, args...), nil

	case types.KindStaticField:
		class, err := f.class(true)
		if err != nil {
			return nil, err
		}
		name, err := f.name()
		if err != nil {
			return nil, err
		}
		return evaluator.NewStaticField(class, name), nil

	case types.KindStaticMethod:
		class, err := f.class(true)
		if err != nil {
			return nil, err
		}
		name, err := f.name()
		if err != nil {
			return nil, err
		}
		args, err := d.args(f)
		if err != nil {
			return nil, err
		}
		return evaluator.NewStaticMethod(class, name, args...), nil

	case types.KindCtor:
		return d.ctor(f)

	case types.KindList:
		elems, err := d.nodes(f.value)
		if err != nil {
			return nil, err
		}
		return evaluator.NewList(elems...), nil

	case types.KindMap:
		return d.mapLiteral(f)

	case types.KindKeyValue:
		ops, err := d.operands(f, 2, 2)
		if err != nil {
			return nil, err
		}
		return evaluator.NewKeyValue(ops[0], ops[1]), nil

	case types.KindVarRef:
		name, err := f.name()
		if err != nil {
			return nil, err
		}
		return evaluator.NewVarRef(name), nil

	case types.KindRootRef:
		return evaluator.NewRootRef(), nil

	case types.KindThisRef:
		return evaluator.NewThisRef(), nil

	case types.KindSelect, types.KindSelectFirst, types.KindSelectLast, types.KindProject:
		expr, err := d.node(f.value)
		if err != nil {
			return nil, err
		}
		return evaluator.NewSelection(f.kind, expr), nil

	case types.KindEval:
		ops, err := d.operands(f, 2, 2)
		if err != nil {
			return nil, err
		}
		return evaluator.NewEval(ops[0], ops[1]), nil

	case types.KindLambda:
		body, err := d.node(f.value)
		if err != nil {
			return nil, err
		}
		return evaluator.NewLambda(body), nil
	}
	return nil, malformed(n, "unknown node kind %q", f.kind)
}

// constant decodes the value of a const: key. Unlike a bare tree,
// sequences and mappings here are literal data.
func (d *decoder) constant(n *yaml.Node) (evaluator.Node, error) {
	if n.Kind == yaml.ScalarNode {
		v, err := scalar(n)
		if err != nil {
			return nil, err
		}
		return evaluator.NewConst(v), nil
	}
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, malformed(n, "bad constant").WithCause(err)
	}
	return evaluator.NewConst(v), nil
}

func (d *decoder) property(f *fields) (evaluator.Node, error) {
	indexed := false
	if ix, ok := f.byName["indexed"]; ok {
		if err := ix.Decode(&indexed); err != nil {
			return nil, malformed(ix, "indexed must be a boolean")
		}
	}
	key, err := d.node(f.value)
	if err != nil {
		return nil, err
	}
	return evaluator.NewProperty(key, indexed), nil
}

func (d *decoder) ctor(f *fields) (evaluator.Node, error) {
	class, err := nameOf(f.value, "new")
	if err != nil {
		return nil, err
	}
	if arr, ok := f.byName["array"]; ok {
		if _, hasArgs := f.byName["args"]; hasArgs {
			return nil, malformed(f.n, "new takes either args or array")
		}
		sizeOrInit, err := d.node(arr)
		if err != nil {
			return nil, err
		}
		return evaluator.NewArrayCtor(class, sizeOrInit), nil
	}
	args, err := d.args(f)
	if err != nil {
		return nil, err
	}
	return evaluator.NewCtor(class, args...), nil
}

func (d *decoder) mapLiteral(f *fields) (evaluator.Node, error) {
	class, err := f.class(false)
	if err != nil {
		return nil, err
	}
	seq := f.value
	if seq.Kind == yaml.AliasNode {
		seq = seq.Alias
	}
	if seq.Kind != yaml.SequenceNode {
		return nil, malformed(seq, "map takes a sequence of entries")
	}
	entries := make([]*evaluator.KeyValue, len(seq.Content))
	for i, e := range seq.Content {
		kv, err := d.entry(e)
		if err != nil {
			return nil, err
		}
		entries[i] = kv
	}
	return evaluator.NewMap(class, entries...), nil
}

// entry decodes {key: k, value: v} or {keyValue: [k, v]}.
func (d *decoder) entry(n *yaml.Node) (*evaluator.KeyValue, error) {
	if n.Kind == yaml.MappingNode && len(n.Content) == 4 {
		var key, value *yaml.Node
		for i := 0; i < 4; i += 2 {
			switch n.Content[i].Value {
			case "key":
				key = n.Content[i+1]
			case "value":
				value = n.Content[i+1]
			}
		}
		if key != nil && value != nil {
			k, err := d.node(key)
			if err != nil {
				return nil, err
			}
			v, err := d.node(value)
			if err != nil {
				return nil, err
			}
			return evaluator.NewKeyValue(k, v), nil
		}
	}
	node, err := d.node(n)
	if err != nil {
		return nil, err
	}
	kv, ok := node.(*evaluator.KeyValue)
	if !ok {
		return nil, malformed(n, "map entries are {key, value} or keyValue nodes")
	}
	return kv, nil
}
