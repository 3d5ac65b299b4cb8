// Command gognl evaluates YAML expression trees against YAML or JSON data.
//
// Usage:
//
//	gognl eval    [flags] <tree.yaml>     evaluate and print the result as JSON
//	gognl assign  [flags] -value v <tree> assign through the tree, print the data
//	gognl test    [flags] [dir|file...]   run YAML conformance suites
//	gognl inspect [flags]                 interactive inspector
//
// A gognl.yaml file in the working directory, or the file named by
// -config, sets the timeout, tracing, debug logging, enabled classes and
// variables.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sandrolain/gognl"
	"github.com/sandrolain/gognl/pkg/astyaml"
	"github.com/sandrolain/gognl/pkg/evaluator"
)

func main() {
	if err := runCLI(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCLI(args []string) error {
	if len(args) < 2 {
		return usageError()
	}
	switch args[1] {
	case "eval":
		return evalCommand(args[2:])
	case "assign":
		return assignCommand(args[2:])
	case "test":
		return testCommand(args[2:])
	case "inspect":
		return inspectCommand(args[2:])
	case "version":
		fmt.Println(gognl.Version())
		return nil
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		return usageError()
	}
}

// ── eval and assign ──────────────────────────────────────────────────────────

// session is what eval, assign and inspect share: a configured evaluator
// and the data to run against.
type session struct {
	cfg  Config
	ev   *evaluator.Evaluator
	data any
}

type sessionFlags struct {
	config string
	data   string
	expr   string
	trace  bool
	vars   varList
}

func (f *sessionFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.config, "config", "", "configuration file (default ./"+defaultConfigFile+" when present)")
	fs.StringVar(&f.data, "data", "", "YAML or JSON data file, - for stdin")
	fs.StringVar(&f.expr, "e", "", "inline YAML tree instead of a tree file")
	fs.BoolVar(&f.trace, "trace", false, "print the evaluation trace to stderr")
	fs.Var(&f.vars, "var", "bind a variable, name=yaml-value (repeatable)")
}

func (f *sessionFlags) open() (*session, error) {
	cfg, err := loadConfig(f.config)
	if err != nil {
		return nil, err
	}
	if f.trace {
		cfg.Trace = true
	}
	data, err := readData(f.data)
	if err != nil {
		return nil, err
	}
	opts := cfg.options()
	for _, v := range f.vars {
		opts = append(opts, evaluator.WithVar(v.name, v.value))
	}
	return &session{cfg: cfg, ev: evaluator.New(opts...), data: data}, nil
}

// tree returns the -e tree or decodes the single positional file.
func (f *sessionFlags) tree(cmd string, args []string) (evaluator.Node, error) {
	if f.expr != "" {
		if len(args) > 0 {
			return nil, fmt.Errorf("gognl %s: -e and a tree file are exclusive", cmd)
		}
		return astyaml.Parse(f.expr)
	}
	if len(args) != 1 {
		return nil, fmt.Errorf("gognl %s: tree file required", cmd)
	}
	src, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read tree: %w", err)
	}
	return astyaml.Decode(src)
}

func (s *session) timeout() time.Duration {
	if s.cfg.Timeout > 0 {
		return s.cfg.Timeout
	}
	return 30 * time.Second
}

// run evaluates node, or assigns value through it when assign is set, and
// writes the trace to trace when tracing is on.
func (s *session) run(node evaluator.Node, assign bool, value any, trace io.Writer) (any, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout())
	defer cancel()

	ectx := s.ev.NewContext(ctx)
	var (
		result any
		err    error
	)
	if assign {
		err = evaluator.Assign(node, ectx, s.data, value)
		result = s.data
	} else {
		result, err = evaluator.Evaluate(node, ectx, s.data)
	}
	if s.cfg.Trace && trace != nil {
		if last := ectx.LastEvaluation(); last != nil {
			fmt.Fprint(trace, last.Format())
		}
	}
	return result, err
}

func evalCommand(args []string) error {
	fs := flag.NewFlagSet("eval", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	var sf sessionFlags
	sf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	node, err := sf.tree("eval", fs.Args())
	if err != nil {
		return err
	}
	s, err := sf.open()
	if err != nil {
		return err
	}
	result, err := s.run(node, false, nil, os.Stderr)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}
	return printJSON(os.Stdout, result)
}

func assignCommand(args []string) error {
	fs := flag.NewFlagSet("assign", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	var sf sessionFlags
	sf.register(fs)
	raw := fs.String("value", "", "YAML value to assign")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *raw == "" {
		return errors.New("gognl assign: -value required")
	}
	var value any
	if err := yaml.Unmarshal([]byte(*raw), &value); err != nil {
		return fmt.Errorf("gognl assign: bad value: %w", err)
	}
	node, err := sf.tree("assign", fs.Args())
	if err != nil {
		return err
	}
	s, err := sf.open()
	if err != nil {
		return err
	}
	data, err := s.run(node, true, value, os.Stderr)
	if err != nil {
		return fmt.Errorf("assignment failed: %w", err)
	}
	return printJSON(os.Stdout, data)
}

// ── test ─────────────────────────────────────────────────────────────────────

func testCommand(args []string) error {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	config := fs.String("config", "", "configuration file")
	verbose := fs.Bool("v", false, "list every case")
	run := fs.String("run", "", "only run cases whose suite/case name contains this")
	if err := fs.Parse(args); err != nil {
		return err
	}
	paths := fs.Args()
	if len(paths) == 0 {
		paths = []string{"."}
	}

	cfg, err := loadConfig(*config)
	if err != nil {
		return err
	}
	var suites []*astyaml.Suite
	for _, p := range paths {
		found, err := loadSuites(p)
		if err != nil {
			return err
		}
		suites = append(suites, found...)
	}

	ev := evaluator.New(cfg.options()...)
	var passed, failed, skipped int
	for _, s := range suites {
		for i := range s.Tests {
			c := &s.Tests[i]
			name := s.Name + "/" + c.Name
			if *run != "" && !strings.Contains(name, *run) {
				continue
			}
			if c.Skip != "" {
				skipped++
				if *verbose {
					fmt.Printf("SKIP %s (%s)\n", name, c.Skip)
				}
				continue
			}
			res := s.Run(context.Background(), ev, c)
			if res.Passed() {
				passed++
				if *verbose {
					fmt.Printf("PASS %s\n", name)
				}
				continue
			}
			failed++
			fmt.Printf("FAIL %s: %s\n", name, res.Failure)
		}
	}
	fmt.Printf("%d passed, %d failed, %d skipped\n", passed, failed, skipped)
	if failed > 0 {
		return fmt.Errorf("%d case(s) failed", failed)
	}
	return nil
}

func loadSuites(path string) ([]*astyaml.Suite, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return astyaml.LoadSuites(path)
	}
	s, err := astyaml.LoadSuite(path)
	if err != nil {
		return nil, err
	}
	return []*astyaml.Suite{s}, nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

// readData decodes a YAML (or JSON) document. An empty path means no data.
func readData(path string) (any, error) {
	var (
		raw []byte
		err error
	)
	switch path {
	case "":
		return nil, nil
	case "-":
		raw, err = io.ReadAll(os.Stdin)
	default:
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}
	var data any
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse data %s: %w", path, err)
	}
	return data, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return nil
}

type binding struct {
	name  string
	value any
}

// varList collects -var name=value flags; values are YAML.
type varList []binding

func (l *varList) String() string {
	names := make([]string, len(*l))
	for i, b := range *l {
		names[i] = b.name
	}
	return strings.Join(names, ",")
}

func (l *varList) Set(s string) error {
	name, raw, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return fmt.Errorf("expected name=value, got %q", s)
	}
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return fmt.Errorf("variable %s: %w", name, err)
	}
	*l = append(*l, binding{name: name, value: v})
	return nil
}

func usageError() error {
	printUsage()
	return errors.New("invalid command")
}

func printUsage() {
	prog := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [flags]\n", prog)
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  eval [flags] <tree.yaml>       evaluate a tree, print the result as JSON")
	fmt.Fprintln(os.Stderr, "  assign [flags] -value v <tree> assign through a tree, print the data")
	fmt.Fprintln(os.Stderr, "  test [flags] [dir|file...]     run YAML conformance suites")
	fmt.Fprintln(os.Stderr, "  inspect [flags]                interactive inspector")
	fmt.Fprintln(os.Stderr, "  version                        print the version")
	fmt.Fprintln(os.Stderr, "Flags:")
	fmt.Fprintln(os.Stderr, "  -config <file>   configuration (default ./gognl.yaml)")
	fmt.Fprintln(os.Stderr, "  -data <file>     YAML or JSON data, - for stdin")
	fmt.Fprintln(os.Stderr, "  -e <tree>        inline YAML tree")
	fmt.Fprintln(os.Stderr, "  -var name=value  bind a variable (repeatable)")
	fmt.Fprintln(os.Stderr, "  -trace           print the evaluation trace")
}

type flagErrorSink struct{}

func (flagErrorSink) Write(p []byte) (int, error) {
	return len(p), nil
}
