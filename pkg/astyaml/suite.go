package astyaml

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/sandrolain/gognl/pkg/accessor"
	"github.com/sandrolain/gognl/pkg/coerce"
	"github.com/sandrolain/gognl/pkg/evaluator"
	"github.com/sandrolain/gognl/pkg/types"
)

// Suite is a YAML file of conformance cases.
type Suite struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Data        map[string]any `yaml:"data,omitempty"` // named roots
	Vars        map[string]any `yaml:"vars,omitempty"`
	Tests       []Case         `yaml:"tests"`

	// File is the path the suite was loaded from.
	File string `yaml:"-"`
}

// Case is a single conformance case.
type Case struct {
	Name string `yaml:"name"`
	Skip string `yaml:"skip,omitempty"` // reason

	// Root names an entry of the suite's data; Input is an inline root.
	// Both empty means a null root.
	Root  string `yaml:"root,omitempty"`
	Input any    `yaml:"input,omitempty"`

	Expr Tree `yaml:"expr"`
	// Assign, when present, is written through Expr before the value is
	// read back.
	Assign yaml.Node `yaml:"assign,omitempty"`

	Expect Expectation `yaml:"expect"`
}

// Expectation defines what a case must produce.
type Expectation struct {
	Value  any    `yaml:"value,omitempty"`  // compared with ==, element-wise for sequences and maps
	Null   bool   `yaml:"null,omitempty"`   // the value is null
	Error  string `yaml:"error,omitempty"`  // error code
	Type   string `yaml:"type,omitempty"`   // Go type, as printed by %T
	String string `yaml:"string,omitempty"` // rendering of the tree
}

// Result is the outcome of running a case.
type Result struct {
	Case    *Case
	Value   any
	Err     error
	Failure string
}

// Passed reports whether the case met its expectation.
func (r Result) Passed() bool { return r.Failure == "" }

// LoadSuite reads one suite file.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.File = path
	if s.Name == "" {
		s.Name = filepath.Base(path)
	}
	return &s, nil
}

// LoadSuites loads every .yaml file below dir, in path order.
func LoadSuites(dir string) ([]*Suite, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && (filepath.Ext(path) == ".yaml" || filepath.Ext(path) == ".yml") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	suites := make([]*Suite, 0, len(paths))
	for _, p := range paths {
		s, err := LoadSuite(p)
		if err != nil {
			return nil, err
		}
		suites = append(suites, s)
	}
	return suites, nil
}

// Run evaluates c against ev. The root is a deep copy so that assignments
// do not leak between cases.
func (s *Suite) Run(ctx context.Context, ev *evaluator.Evaluator, c *Case) Result {
	res := Result{Case: c}
	if c.Expr.Node == nil {
		res.Failure = "case has no expr"
		return res
	}
	if c.Expect.String != "" && c.Expr.String() != c.Expect.String {
		res.Failure = fmt.Sprintf("renders as %q, want %q", c.Expr.String(), c.Expect.String)
		return res
	}

	var root any
	if c.Root != "" {
		v, ok := s.Data[c.Root]
		if !ok {
			res.Failure = fmt.Sprintf("unknown root %q", c.Root)
			return res
		}
		root = clone(v)
	} else {
		root = clone(c.Input)
	}

	ectx := ev.NewContext(ctx)
	for name, v := range s.Vars {
		ectx.Set(name, clone(v))
	}

	if c.Assign.Kind != 0 {
		var value any
		if err := c.Assign.Decode(&value); err != nil {
			res.Failure = fmt.Sprintf("bad assign value: %v", err)
			return res
		}
		res.Err = evaluator.Assign(c.Expr.Node, ectx, root, value)
	}
	if res.Err == nil {
		res.Value, res.Err = evaluator.Evaluate(c.Expr.Node, ectx, root)
	}
	res.Failure = c.Expect.check(res.Value, res.Err)
	return res
}

func (e Expectation) check(v any, err error) string {
	if e.Error != "" {
		if err == nil {
			return fmt.Sprintf("got %#v, want error %s", v, e.Error)
		}
		if code := types.CodeOf(err); string(code) != e.Error {
			return fmt.Sprintf("got error %v, want code %s", err, e.Error)
		}
		return ""
	}
	if err != nil {
		return fmt.Sprintf("unexpected error: %v", err)
	}
	if e.Type != "" {
		if got := fmt.Sprintf("%T", v); got != e.Type {
			return fmt.Sprintf("got type %s, want %s", got, e.Type)
		}
	}
	switch {
	case e.Null:
		if v != nil {
			return fmt.Sprintf("got %#v, want null", v)
		}
	case e.Value != nil:
		if !Equivalent(e.Value, v) {
			return fmt.Sprintf("got %#v, want %#v", v, e.Value)
		}
	}
	return ""
}

// Equivalent compares a YAML-decoded expectation with an evaluation
// result: scalars with the engine's equality, sequences element by element
// and maps key by key.
func Equivalent(want, got any) bool {
	switch w := want.(type) {
	case []any:
		g, ok := sequenceOf(got)
		if !ok || len(g) != len(w) {
			return false
		}
		for i := range w {
			if !Equivalent(w[i], g[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		g, ok := mapOf(got)
		if !ok || len(g) != len(w) {
			return false
		}
		for k, wv := range w {
			gv, ok := g[k]
			if !ok || !Equivalent(wv, gv) {
				return false
			}
		}
		return true
	}
	return coerce.Equal(want, got)
}

func sequenceOf(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func mapOf(v any) (map[string]any, bool) {
	if om, ok := v.(*accessor.OrderedMap); ok {
		out := make(map[string]any, om.Len())
		for _, k := range om.Keys() {
			out[coerce.StringValue(k)], _ = om.Get(k)
		}
		return out, true
	}
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[coerce.StringValue(iter.Key().Interface())] = iter.Value().Interface()
	}
	return out, true
}

// clone deep-copies YAML-decoded data.
func clone(v any) any {
	switch x := v.(type) {
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = clone(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = clone(e)
		}
		return out
	}
	return v
}
