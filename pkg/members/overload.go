package members

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/sandrolain/gognl/pkg/coerce"
	"github.com/sandrolain/gognl/pkg/types"
)

type callKey struct {
	t    reflect.Type
	name string
	set  string
	sig  string
}

// candidateSet identifies candidates by identity, so a selection made
// among a subset is never reused for a larger overload set.
func candidateSet(candidates []*Method) string {
	var b strings.Builder
	for _, m := range candidates {
		fmt.Fprintf(&b, "%p;", m)
	}
	return b.String()
}

func signature(args []any) string {
	var b strings.Builder
	for _, a := range args {
		if a == nil {
			b.WriteString("nil;")
			continue
		}
		// Type identity, not name: two packages may declare the same name.
		fmt.Fprintf(&b, "%p;", reflect.TypeOf(a))
	}
	return b.String()
}

// Select chooses the candidate to invoke with args.
//
// Candidates whose parameters directly accept every argument are preferred,
// and among them the most specific one wins: scanning parameters left to
// right, the first position where one candidate's type is assignable to the
// other's decides. Ties keep the earlier candidate. When nothing accepts the
// arguments directly, the first candidate whose parameters all accept the
// converted arguments is used.
//
// target identifies the candidate set for memoization: the receiver type for
// methods, the class for static functions and constructors.
func (r *Resolver) Select(conv coerce.Converter, target reflect.Type, candidates []*Method, args []any) (*Invocation, error) {
	if len(candidates) == 0 {
		return nil, types.NewError(types.ErrNoSuchMember, "no candidate methods")
	}
	key := callKey{t: target, name: candidates[0].Name, set: candidateSet(candidates), sig: signature(args)}
	if m, ok := r.overloads.Get(key); ok {
		if inv, ok := bind(m, args); ok {
			return inv, nil
		}
	}

	var best *Invocation
	for _, m := range candidates {
		inv, ok := bind(m, args)
		if !ok {
			continue
		}
		if best == nil || moreSpecific(inv, best) {
			best = inv
		}
	}
	if best != nil {
		r.overloads.Set(key, best.Method)
		return best, nil
	}

	if conv != nil {
		for _, m := range candidates {
			if inv, ok := convert(conv, m, args); ok {
				return inv, nil
			}
		}
	}
	return nil, types.Errorf(types.ErrNoOverload, "no overload of %s accepts (%s)", candidates[0].Name, describeArgs(args))
}

func describeArgs(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		if a == nil {
			parts[i] = "nil"
		} else {
			parts[i] = reflect.TypeOf(a).String()
		}
	}
	return strings.Join(parts, ", ")
}

func nilable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return true
	}
	return false
}

func accepts(p reflect.Type, arg any) bool {
	if arg == nil {
		return nilable(p)
	}
	return reflect.TypeOf(arg).AssignableTo(p)
}

func argValue(p reflect.Type, arg any) reflect.Value {
	if arg == nil {
		return reflect.Zero(p)
	}
	return reflect.ValueOf(arg)
}

// bind matches args against m's parameters by assignability alone.
func bind(m *Method, args []any) (*Invocation, bool) {
	n := len(m.params)
	if !m.variadic {
		if len(args) != n {
			return nil, false
		}
		vals := make([]reflect.Value, n)
		for i, p := range m.params {
			if !accepts(p, args[i]) {
				return nil, false
			}
			vals[i] = argValue(p, args[i])
		}
		return &Invocation{Method: m, Args: vals}, true
	}

	if len(args) < n-1 {
		return nil, false
	}
	vals := make([]reflect.Value, 0, len(args))
	for i := range n - 1 {
		if !accepts(m.params[i], args[i]) {
			return nil, false
		}
		vals = append(vals, argValue(m.params[i], args[i]))
	}
	last := m.params[n-1]
	if len(args) == n && args[n-1] != nil && accepts(last, args[n-1]) {
		return &Invocation{Method: m, Args: append(vals, reflect.ValueOf(args[n-1])), Spread: true}, true
	}
	elem := last.Elem()
	for _, a := range args[n-1:] {
		if !accepts(elem, a) {
			return nil, false
		}
		vals = append(vals, argValue(elem, a))
	}
	return &Invocation{Method: m, Args: vals}, true
}

// convert matches args against m's parameters through conv.
func convert(conv coerce.Converter, m *Method, args []any) (*Invocation, bool) {
	n := len(m.params)
	if (!m.variadic && len(args) != n) || (m.variadic && len(args) < n-1) {
		return nil, false
	}
	vals := make([]reflect.Value, len(args))
	for i, a := range args {
		p := paramAt(m, i)
		v, ok := conv.Convert(a, p)
		if !ok || !accepts(p, v) && v != nil {
			return nil, false
		}
		vals[i] = argValue(p, v)
	}
	return &Invocation{Method: m, Args: vals}, true
}

func paramAt(m *Method, i int) reflect.Type {
	n := len(m.params)
	if m.variadic && i >= n-1 {
		return m.params[n-1].Elem()
	}
	return m.params[i]
}

// moreSpecific reports whether a's parameters are strictly narrower than b's
// at the first position where they differ.
func moreSpecific(a, b *Invocation) bool {
	n := len(a.Args)
	for i := range n {
		pa, pb := boundParam(a, i), boundParam(b, i)
		if pa == pb {
			continue
		}
		if pa.AssignableTo(pb) {
			return true
		}
		if pb.AssignableTo(pa) {
			return false
		}
	}
	return !a.Method.variadic && b.Method.variadic
}

func boundParam(inv *Invocation, i int) reflect.Type {
	if inv.Spread {
		return inv.Method.params[i]
	}
	return paramAt(inv.Method, i)
}
