package astyaml

import (
	"bytes"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
	"gopkg.in/yaml.v3"

	"github.com/sandrolain/gognl/pkg/evaluator"
	"github.com/sandrolain/gognl/pkg/types"
)

// Encode renders node as a YAML document that Decode reads back into an
// equivalent tree. Constants keep their type when it is bool, string, int,
// int64, float64, *big.Int, *apd.Decimal or a dynamic subscript; other
// constants are written as YAML data.
func Encode(node evaluator.Node) ([]byte, error) {
	n, err := EncodeNode(node)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(n); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeNode converts node to a YAML node.
func EncodeNode(node evaluator.Node) (*yaml.Node, error) {
	switch n := node.(type) {
	case nil:
		return nil, types.NewError(types.ErrNotANode, "cannot encode a nil node")
	case *evaluator.Const:
		return constant(n.Value())
	case *evaluator.Property:
		key, err := EncodeNode(n.Children()[0])
		if err != nil {
			return nil, err
		}
		m := mapping(n.Kind(), key)
		if n.IsIndexed() {
			m.Content = append(m.Content, str("indexed"), &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: "true"})
		}
		return m, nil
	case *evaluator.Method:
		return withArgs(mapping(n.Kind(), str(n.Name())), n.Children())
	case *evaluator.StaticField:
		return withClass(mapping(n.Kind(), str(n.Name())), n.Class()), nil
	case *evaluator.StaticMethod:
		return withArgs(withClass(mapping(n.Kind(), str(n.Name())), n.Class()), n.Children())
	case *evaluator.Ctor:
		m := mapping(n.Kind(), str(n.Class()))
		if !n.IsArray() {
			return withArgs(m, n.Children())
		}
		arr, err := EncodeNode(n.Children()[0])
		if err != nil {
			return nil, err
		}
		m.Content = append(m.Content, str("array"), arr)
		return m, nil
	case *evaluator.InstanceOf:
		op, err := EncodeNode(n.Children()[0])
		if err != nil {
			return nil, err
		}
		return withClass(mapping(n.Kind(), op), n.Class()), nil
	case *evaluator.Map:
		entries := &yaml.Node{Kind: yaml.SequenceNode}
		for _, c := range n.Children() {
			kv := c.(*evaluator.KeyValue)
			k, err := EncodeNode(kv.Key())
			if err != nil {
				return nil, err
			}
			v, err := EncodeNode(kv.Value())
			if err != nil {
				return nil, err
			}
			entries.Content = append(entries.Content, &yaml.Node{
				Kind:    yaml.MappingNode,
				Content: []*yaml.Node{str("key"), k, str("value"), v},
			})
		}
		return withClass(mapping(n.Kind(), entries), n.Class()), nil
	case *evaluator.VarRef:
		return mapping(n.Kind(), str(n.Name())), nil
	case *evaluator.RootRef, *evaluator.ThisRef:
		return mapping(n.Kind(), &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "~"}), nil
	case *evaluator.Unary, *evaluator.Selection, *evaluator.Lambda:
		op, err := EncodeNode(node.Children()[0])
		if err != nil {
			return nil, err
		}
		return mapping(node.Kind(), op), nil
	}

	// Everything else is its kind over the sequence of its children.
	seq, err := sequence(node.Children())
	if err != nil {
		return nil, err
	}
	return mapping(node.Kind(), seq), nil
}

func str(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func mapping(kind types.NodeKind, value *yaml.Node) *yaml.Node {
	style := yaml.Style(0)
	if value.Kind == yaml.ScalarNode {
		style = yaml.FlowStyle
	}
	return &yaml.Node{Kind: yaml.MappingNode, Style: style, Content: []*yaml.Node{str(string(kind)), value}}
}

func sequence(nodes []evaluator.Node) (*yaml.Node, error) {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, c := range nodes {
		v, err := EncodeNode(c)
		if err != nil {
			return nil, err
		}
		seq.Content = append(seq.Content, v)
	}
	return seq, nil
}

func withClass(m *yaml.Node, class string) *yaml.Node {
	if class != "" {
		m.Content = append(m.Content, str("class"), str(class))
	}
	return m
}

func withArgs(m *yaml.Node, args []evaluator.Node) (*yaml.Node, error) {
	if len(args) == 0 {
		return m, nil
	}
	seq, err := sequence(args)
	if err != nil {
		return nil, err
	}
	m.Style = 0
	m.Content = append(m.Content, str("args"), seq)
	return m, nil
}

func constant(v any) (*yaml.Node, error) {
	scalar := func(tag, value string) *yaml.Node {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
	}
	switch x := v.(type) {
	case nil:
		return scalar("!!null", "null"), nil
	case bool:
		return scalar("!!bool", strconv.FormatBool(x)), nil
	case string:
		return str(x), nil
	case int:
		return scalar("!!int", strconv.Itoa(x)), nil
	case int64:
		return scalar(TagLong, strconv.FormatInt(x, 10)), nil
	case float64:
		return scalar("!!float", formatFloat(x)), nil
	case *big.Int:
		return scalar(TagBig, x.String()), nil
	case *apd.Decimal:
		return scalar(TagDecimal, x.String()), nil
	case types.DynamicSubscript:
		return scalar(TagSubscript, x.Name()), nil
	}

	var data yaml.Node
	if err := data.Encode(v); err != nil {
		return nil, fmt.Errorf("astyaml: cannot encode constant %T: %w", v, err)
	}
	if data.Kind == yaml.ScalarNode {
		return &data, nil
	}
	return mapping(types.KindConst, &data), nil
}

// formatFloat writes f so that YAML resolves it as a float again.
func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	case math.IsNaN(f):
		return ".nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
