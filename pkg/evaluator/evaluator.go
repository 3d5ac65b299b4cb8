// Package evaluator implements the expression tree and its evaluation.
//
// Trees are built from the node constructors of this package (or decoded
// by a codec such as astyaml) and evaluated against a root object through
// a Context. Property and method resolution is delegated to the accessor
// and members packages.
//
// # Example
//
//	node := evaluator.NewChain(evaluator.Prop("items"), evaluator.IndexAt(types.SubscriptLast))
//	ev := evaluator.New()
//	result, err := ev.Eval(ctx, node, data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Concurrency
//
// A tree may be evaluated by many goroutines at once as long as each uses
// its own Context. The Evaluator creates one Context per call.
//
//	results, err := ev.EvalMany(ctx, nodes, data)
package evaluator

import (
	"context"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/sandrolain/gognl/pkg/accessor"
	"github.com/sandrolain/gognl/pkg/cache"
	"github.com/sandrolain/gognl/pkg/coerce"
	"github.com/sandrolain/gognl/pkg/members"
	"github.com/sandrolain/gognl/pkg/types"
)

// ParseFunc turns expression source into a tree. It is consulted by Eval
// nodes whose expression evaluates to a string and by Evaluator.EvalString.
type ParseFunc func(expr string) (Node, error)

// Evaluator evaluates trees with a fixed configuration.
type Evaluator struct {
	opts   EvalOptions
	logger *slog.Logger
	cache  *cache.LRU[string, Node] // non-nil when Caching is enabled
}

// EvalOptions configures evaluator and context behavior.
type EvalOptions struct {
	// Runtime holds the member resolver, accessor registry and classes.
	// Defaults to accessor.Default().
	Runtime *accessor.Runtime
	// ClassResolver maps class names to types. Defaults to Runtime.Classes.
	ClassResolver accessor.ClassResolver
	// Converter coerces values to parameter and field types.
	Converter coerce.Converter
	// MemberAccess gates every member use. Defaults to members.PublicAccess.
	MemberAccess members.MemberAccess
	// Vars are the initial variable bindings.
	Vars map[string]any
	// Parser lets Eval nodes and EvalString parse expression source.
	Parser ParseFunc
	// Caching enables caching of trees parsed by EvalString.
	Caching bool
	// CacheSize sets the maximum number of cached trees. Defaults to 256.
	CacheSize int
	// Cache is a custom tree cache. If non-nil, Caching is implicitly enabled.
	Cache *cache.LRU[string, Node]
	// Concurrency lets EvalMany evaluate trees in parallel.
	Concurrency bool
	// MaxDepth limits node nesting during evaluation.
	MaxDepth int
	// Timeout sets the evaluation timeout of Evaluator calls.
	Timeout time.Duration
	// Trace records an evaluation trace on the context.
	Trace bool
	// Debug enables per-node debug logging.
	Debug bool
	// Logger for structured logging.
	Logger *slog.Logger
}

// defaultConcurrency controls the default value of EvalOptions.Concurrency.
// It is false on WebAssembly targets, see evaluator_wasm.go.
var defaultConcurrency = true

// EvalOption configures evaluation behavior.
type EvalOption func(*EvalOptions)

func buildOptions(opts []EvalOption) EvalOptions {
	options := EvalOptions{
		Concurrency: defaultConcurrency,
		MaxDepth:    10000,
		Timeout:     30 * time.Second,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Runtime == nil {
		options.Runtime = accessor.Default()
	}
	if options.Converter == nil {
		options.Converter = coerce.DefaultConverter{}
	}
	if options.MemberAccess == nil {
		options.MemberAccess = members.PublicAccess{}
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return options
}

// New creates a new Evaluator.
func New(opts ...EvalOption) *Evaluator {
	options := buildOptions(opts)

	var c *cache.LRU[string, Node]
	if options.Cache != nil {
		c = options.Cache
	} else if options.Caching {
		size := options.CacheSize
		if size <= 0 {
			size = 256
		}
		c = cache.New[string, Node](size)
	}

	return &Evaluator{
		opts:   options,
		logger: options.Logger,
		cache:  c,
	}
}

// Cache returns the tree cache, or nil if caching is disabled.
func (e *Evaluator) Cache() *cache.LRU[string, Node] {
	return e.cache
}

// NewContext creates a context carrying the evaluator's configuration.
func (e *Evaluator) NewContext(ctx context.Context) *Context {
	return newContext(ctx, e.opts)
}

func (e *Evaluator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.opts.Timeout > 0 {
		return context.WithTimeout(ctx, e.opts.Timeout)
	}
	return context.WithCancel(ctx)
}

// Eval evaluates node against data.
func (e *Evaluator) Eval(ctx context.Context, node Node, data any) (any, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return nil, types.NewError(types.ErrEvaluation, "evaluation cancelled").WithCause(err)
	}

	c := newContext(ctx, e.opts)
	result, err := Evaluate(node, c, data)
	if e.opts.Debug {
		e.logger.Debug("evaluation finished", "expression", nodeString(node), "error", err)
	}
	return result, err
}

// EvalAs evaluates node against data and converts the result to t.
func (e *Evaluator) EvalAs(ctx context.Context, node Node, data any, t reflect.Type) (any, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	return EvaluateAs(node, newContext(ctx, e.opts), data, t)
}

// Assign stores value through node into data.
func (e *Evaluator) Assign(ctx context.Context, node Node, data, value any) error {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return types.NewError(types.ErrEvaluation, "evaluation cancelled").WithCause(err)
	}

	err := Assign(node, newContext(ctx, e.opts), data, value)
	if e.opts.Debug {
		e.logger.Debug("assignment finished", "expression", nodeString(node), "error", err)
	}
	return err
}

// Parse parses expr with the configured parser, consulting the tree cache
// when caching is enabled.
func (e *Evaluator) Parse(expr string) (Node, error) {
	if e.opts.Parser == nil {
		return nil, types.Errorf(types.ErrNotANode, "no parser configured for %q", expr)
	}
	if e.cache == nil {
		return e.opts.Parser(expr)
	}
	return e.cache.GetOrCompute(expr, func() (Node, error) {
		return e.opts.Parser(expr)
	})
}

// EvalString parses expr and evaluates it against data.
func (e *Evaluator) EvalString(ctx context.Context, expr string, data any) (any, error) {
	node, err := e.Parse(expr)
	if err != nil {
		return nil, err
	}
	return e.Eval(ctx, node, data)
}

// EvalMany evaluates independent trees against the same data. Results are
// in the order of nodes; the first error by position is returned. With
// Concurrency enabled each tree runs in its own goroutine.
func (e *Evaluator) EvalMany(ctx context.Context, nodes []Node, data any) ([]any, error) {
	results := make([]any, len(nodes))
	errs := make([]error, len(nodes))

	if !e.opts.Concurrency || len(nodes) < 2 {
		for i, n := range nodes {
			results[i], errs[i] = e.Eval(ctx, n, data)
			if errs[i] != nil {
				return nil, errs[i]
			}
		}
		return results, nil
	}

	var wg sync.WaitGroup
	for i, n := range nodes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = e.Eval(ctx, n, data)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

func nodeString(n Node) string {
	if n == nil {
		return ""
	}
	return n.String()
}

// ── options ──────────────────────────────────────────────────────────────────

// WithRuntime sets the member resolver, accessor registry and classes.
func WithRuntime(rt *accessor.Runtime) EvalOption {
	return func(opts *EvalOptions) {
		opts.Runtime = rt
	}
}

// WithClassResolver sets the class-name resolver.
func WithClassResolver(r accessor.ClassResolver) EvalOption {
	return func(opts *EvalOptions) {
		opts.ClassResolver = r
	}
}

// WithConverter sets the type-coercion strategy.
func WithConverter(c coerce.Converter) EvalOption {
	return func(opts *EvalOptions) {
		opts.Converter = c
	}
}

// WithMemberAccess sets the capability gate.
func WithMemberAccess(a members.MemberAccess) EvalOption {
	return func(opts *EvalOptions) {
		opts.MemberAccess = a
	}
}

// WithVar binds an initial variable.
func WithVar(name string, value any) EvalOption {
	return func(opts *EvalOptions) {
		if opts.Vars == nil {
			opts.Vars = make(map[string]any)
		}
		opts.Vars[name] = value
	}
}

// WithParser sets the parser used for string expressions.
func WithParser(p ParseFunc) EvalOption {
	return func(opts *EvalOptions) {
		opts.Parser = p
	}
}

// WithCaching enables or disables caching of parsed trees.
// When enabled, a default LRU cache of 256 entries is created.
// To control the cache size use WithCacheSize; to supply your own cache use WithCache.
func WithCaching(enabled bool) EvalOption {
	return func(opts *EvalOptions) {
		opts.Caching = enabled
	}
}

// WithCacheSize sets the maximum number of cached trees.
// Only effective when combined with WithCaching(true).
func WithCacheSize(size int) EvalOption {
	return func(opts *EvalOptions) {
		opts.CacheSize = size
	}
}

// WithCache attaches an external tree cache.
// The evaluator will use this cache regardless of the Caching flag.
func WithCache(c *cache.LRU[string, Node]) EvalOption {
	return func(opts *EvalOptions) {
		opts.Cache = c
	}
}

// WithConcurrency enables or disables concurrent evaluation in EvalMany.
func WithConcurrency(enabled bool) EvalOption {
	return func(opts *EvalOptions) {
		opts.Concurrency = enabled
	}
}

// WithTimeout sets the evaluation timeout.
func WithTimeout(timeout time.Duration) EvalOption {
	return func(opts *EvalOptions) {
		opts.Timeout = timeout
	}
}

// WithTrace enables or disables trace recording.
func WithTrace(enabled bool) EvalOption {
	return func(opts *EvalOptions) {
		opts.Trace = enabled
	}
}

// WithDebug enables or disables debug logging.
func WithDebug(enabled bool) EvalOption {
	return func(opts *EvalOptions) {
		opts.Debug = enabled
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) EvalOption {
	return func(opts *EvalOptions) {
		opts.Logger = logger
	}
}

// WithMaxDepth sets the maximum node nesting depth.
func WithMaxDepth(depth int) EvalOption {
	return func(opts *EvalOptions) {
		opts.MaxDepth = depth
	}
}
