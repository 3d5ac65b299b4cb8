package astyaml_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sandrolain/gognl/pkg/astyaml"
	"github.com/sandrolain/gognl/pkg/evaluator"
	"github.com/sandrolain/gognl/pkg/ext"
)

func TestConformance(t *testing.T) {
	suites, err := astyaml.LoadSuites("testdata")
	if err != nil {
		t.Fatalf("LoadSuites: %v", err)
	}
	if len(suites) == 0 {
		t.Fatal("no suites found in testdata")
	}

	ev := evaluator.New(ext.WithAll())
	for _, s := range suites {
		t.Run(s.Name, func(t *testing.T) {
			for i := range s.Tests {
				c := &s.Tests[i]
				t.Run(c.Name, func(t *testing.T) {
					if c.Skip != "" {
						t.Skip(c.Skip)
					}
					res := s.Run(context.Background(), ev, c)
					if !res.Passed() {
						t.Errorf("%s: %s", c.Expr, res.Failure)
					}
				})
			}
		})
	}
}

func TestLoadSuiteDefaultsName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unnamed.yaml")
	doc := "tests:\n  - name: one\n    expr: {add: [1, 2]}\n    expect: {value: 3}\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	s, err := astyaml.LoadSuite(path)
	if err != nil {
		t.Fatalf("LoadSuite: %v", err)
	}
	if s.Name != "unnamed.yaml" || s.File != path {
		t.Errorf("name = %q, file = %q", s.Name, s.File)
	}
	if len(s.Tests) != 1 || s.Tests[0].Expr.String() != "1 + 2" {
		t.Fatalf("tests = %+v", s.Tests)
	}
}

func TestLoadSuiteRejectsMalformedTree(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	doc := "tests:\n  - name: bad\n    expr: {add: [1]}\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := astyaml.LoadSuite(path); err == nil {
		t.Fatal("expected an error for a one-operand add")
	}
}

func TestRunReportsFailures(t *testing.T) {
	ev := evaluator.New()
	s := &astyaml.Suite{
		Data: map[string]any{"r": map[string]any{"n": 1}},
	}

	tests := []struct {
		name   string
		c      astyaml.Case
		passed bool
	}{
		{"value match", astyaml.Case{Root: "r", Expr: tree(t, "{property: n}"), Expect: astyaml.Expectation{Value: 1}}, true},
		{"value mismatch", astyaml.Case{Root: "r", Expr: tree(t, "{property: n}"), Expect: astyaml.Expectation{Value: 2}}, false},
		{"type mismatch", astyaml.Case{Root: "r", Expr: tree(t, "{property: n}"), Expect: astyaml.Expectation{Type: "string"}}, false},
		{"missing error", astyaml.Case{Expr: tree(t, "1"), Expect: astyaml.Expectation{Error: "T0403"}}, false},
		{"wrong error", astyaml.Case{Expr: tree(t, "{divide: [1, 0]}"), Expect: astyaml.Expectation{Error: "T0401"}}, false},
		{"expected error", astyaml.Case{Expr: tree(t, "{divide: [1, 0]}"), Expect: astyaml.Expectation{Error: "T0403"}}, true},
		{"unexpected error", astyaml.Case{Expr: tree(t, "{divide: [1, 0]}"), Expect: astyaml.Expectation{Value: 1}}, false},
		{"unknown root", astyaml.Case{Root: "nope", Expr: tree(t, "1"), Expect: astyaml.Expectation{Value: 1}}, false},
		{"not null", astyaml.Case{Expr: tree(t, "1"), Expect: astyaml.Expectation{Null: true}}, false},
		{"no expr", astyaml.Case{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.Run(context.Background(), ev, &tt.c)
			if res.Passed() != tt.passed {
				t.Errorf("passed = %v, want %v (failure %q)", res.Passed(), tt.passed, res.Failure)
			}
		})
	}
}

func TestEquivalent(t *testing.T) {
	tests := []struct {
		name      string
		want, got any
		equal     bool
	}{
		{"numbers across kinds", 1, int64(1), true},
		{"int and float", 2, 2.0, true},
		{"typed slice", []any{1, 2}, []int{1, 2}, true},
		{"length differs", []any{1}, []int{1, 2}, false},
		{"nested map", map[string]any{"a": []any{1}}, map[string]any{"a": []int{1}}, true},
		{"map value differs", map[string]any{"a": 1}, map[string]int{"a": 2}, false},
		{"sequence against scalar", []any{1}, 1, false},
		{"null", nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := astyaml.Equivalent(tt.want, tt.got); got != tt.equal {
				t.Errorf("Equivalent(%#v, %#v) = %v", tt.want, tt.got, got)
			}
		})
	}
}

func tree(t *testing.T, src string) astyaml.Tree {
	t.Helper()
	n, err := astyaml.Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return astyaml.Tree{Node: n}
}
