package members

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"unicode"
	"unicode/utf8"

	"github.com/sandrolain/gognl/pkg/cache"
)

// TagName is the struct tag consulted for field names.
const TagName = "gognl"

type propertyKey struct {
	t    reflect.Type
	name string
}

// IndexedProperty is a property exposed through an index accessor pair,
// e.g. GetItem(i int) and SetItem(i int, v T).
type IndexedProperty struct {
	Name   string
	Getter *Method
	Setter *Method // nil when read-only
	Length *Method // nil when the length comes from the whole-property reader

	// ObjectIndexed is set when the index parameter is not an integer.
	ObjectIndexed bool
}

// Resolver discovers and caches the members of Go types.
//
// THREAD-SAFETY: every per-type lookup is computed once through a
// cache.OnceMap; overload selections are memoized in a bounded LRU.
// Registration invalidates the caches and is meant for setup time.
type Resolver struct {
	methods cache.OnceMap[reflect.Type, map[string][]*Method]
	fields  cache.OnceMap[reflect.Type, map[string]*Field]
	getters cache.OnceMap[propertyKey, *Method]
	setters cache.OnceMap[propertyKey, []*Method]
	indexed cache.OnceMap[propertyKey, *IndexedProperty]

	overloads *cache.LRU[callKey, *Method]

	mu     sync.RWMutex
	extras map[reflect.Type]map[string][]*Method

	scans atomic.Int64
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithOverloadCacheSize bounds the memoized overload selections.
func WithOverloadCacheSize(n int) ResolverOption {
	return func(r *Resolver) {
		r.overloads = cache.New[callKey, *Method](n)
	}
}

// NewResolver creates an empty resolver.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		overloads: cache.New[callKey, *Method](1024),
		extras:    make(map[reflect.Type]map[string][]*Method),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Scans returns the number of reflective type scans performed so far.
func (r *Resolver) Scans() int64 {
	return r.scans.Load()
}

// RegisterMethod adds fn as a method called name on t. The first parameter
// of fn receives the target and must accept t. Registering on an interface
// type makes the method available on every type implementing it. Several
// registrations under one name form an overload set.
func (r *Resolver) RegisterMethod(t reflect.Type, name string, fn any) error {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func || fv.IsNil() {
		return fmt.Errorf("members: method %s: %T is not a function", name, fn)
	}
	ft := fv.Type()
	if ft.NumIn() == 0 || !t.AssignableTo(ft.In(0)) {
		return fmt.Errorf("members: method %s: first parameter of %s must accept %s", name, ft, t)
	}
	r.mu.Lock()
	byName := r.extras[t]
	if byName == nil {
		byName = make(map[string][]*Method)
		r.extras[t] = byName
	}
	byName[name] = append(byName[name], newMethod(name, t, fv, true))
	r.mu.Unlock()
	r.invalidate()
	return nil
}

func (r *Resolver) invalidate() {
	r.methods.Clear()
	r.getters.Clear()
	r.setters.Clear()
	r.indexed.Clear()
	r.overloads.Clear()
}

// Methods returns every method of t called name or its capitalized form.
// Registered methods precede Go methods of the same name.
func (r *Resolver) Methods(t reflect.Type, name string) []*Method {
	if t == nil {
		return nil
	}
	byName := r.methods.Get(t, r.scanMethods)
	found := byName[name]
	if cname := Capitalize(name); cname != name {
		if more := byName[cname]; len(more) > 0 {
			found = append(found[:len(found):len(found)], more...)
		}
	}
	return found
}

func (r *Resolver) scanMethods(t reflect.Type) map[string][]*Method {
	r.scans.Add(1)
	byName := make(map[string][]*Method)

	r.mu.RLock()
	for name, ms := range r.extras[t] {
		byName[name] = append(byName[name], ms...)
	}
	for et, methods := range r.extras {
		if et != t && et.Kind() == reflect.Interface && t.Implements(et) {
			for name, ms := range methods {
				byName[name] = append(byName[name], ms...)
			}
		}
	}
	r.mu.RUnlock()

	if t.Kind() != reflect.Interface {
		for i := range t.NumMethod() {
			m := t.Method(i)
			byName[m.Name] = append(byName[m.Name], newMethod(m.Name, t, m.Func, true))
		}
	}
	return byName
}

// Field returns the field of t (or of the struct t points to) matching name
// by tag, Go name or capitalized name.
func (r *Resolver) Field(t reflect.Type, name string) (*Field, bool) {
	if t == nil {
		return nil, false
	}
	byName := r.fields.Get(t, r.scanFields)
	if f, ok := byName[name]; ok {
		return f, true
	}
	f, ok := byName[Capitalize(name)]
	return f, ok
}

func (r *Resolver) scanFields(t reflect.Type) map[string]*Field {
	r.scans.Add(1)
	byName := make(map[string]*Field)
	st := t
	if st.Kind() == reflect.Ptr {
		st = st.Elem()
	}
	if st.Kind() != reflect.Struct {
		return byName
	}

	// VisibleFields lists promoted fields right after their embedding field,
	// so shallower declarations are seen first and shadowed ones are absent.
	tagged := make(map[string]*Field)
	for _, sf := range reflect.VisibleFields(st) {
		f := &Field{
			Name:      sf.Name,
			Index:     sf.Index,
			Type:      sf.Type,
			Declaring: declaringStruct(st, sf.Index),
			exported:  sf.IsExported(),
		}
		if _, dup := byName[sf.Name]; !dup {
			byName[sf.Name] = f
		}
		if tag, ok := sf.Tag.Lookup(TagName); ok && tag != "" && tag != "-" {
			if _, dup := tagged[tag]; !dup {
				tagged[tag] = f
			}
		}
	}
	for tag, f := range tagged {
		byName[tag] = f
	}
	return byName
}

// declaringStruct follows index through embedded fields and returns the
// struct type that declares the final field.
func declaringStruct(t reflect.Type, index []int) reflect.Type {
	for _, i := range index[:len(index)-1] {
		t = t.Field(i).Type
		if t.Kind() == reflect.Ptr {
			t = t.Elem()
		}
	}
	return t
}

// Getter returns the reader method of property name on t.
func (r *Resolver) Getter(t reflect.Type, name string) (*Method, bool) {
	if t == nil {
		return nil, false
	}
	m := r.getters.Get(propertyKey{t, name}, func(k propertyKey) *Method {
		cname := Capitalize(k.name)
		for _, candidate := range []string{"Get" + cname, "Is" + cname, cname, k.name} {
			for _, m := range r.Methods(k.t, candidate) {
				if len(m.params) == 0 && m.result != nil {
					return m
				}
			}
		}
		return nil
	})
	return m, m != nil
}

// Setter returns the first writer method of property name on t.
func (r *Resolver) Setter(t reflect.Type, name string) (*Method, bool) {
	ms := r.Setters(t, name)
	if len(ms) == 0 {
		return nil, false
	}
	return ms[0], true
}

// Setters returns every writer method of property name on t, in the order
// Methods reports them. Writes choose among them with Select.
func (r *Resolver) Setters(t reflect.Type, name string) []*Method {
	if t == nil {
		return nil
	}
	return r.setters.Get(propertyKey{t, name}, func(k propertyKey) []*Method {
		var out []*Method
		for _, m := range r.Methods(k.t, "Set"+Capitalize(k.name)) {
			if len(m.params) == 1 && !m.variadic {
				out = append(out, m)
			}
		}
		return out
	})
}

// IndexedProperty returns the index accessor pair of property name on t.
func (r *Resolver) IndexedProperty(t reflect.Type, name string) (*IndexedProperty, bool) {
	if t == nil {
		return nil, false
	}
	p := r.indexed.Get(propertyKey{t, name}, func(k propertyKey) *IndexedProperty {
		cname := Capitalize(k.name)
		var ip *IndexedProperty
		for _, m := range r.Methods(k.t, "Get"+cname) {
			if len(m.params) == 1 && !m.variadic && m.result != nil {
				ip = &IndexedProperty{Name: k.name, Getter: m, ObjectIndexed: !isIntegerKind(m.params[0].Kind())}
				break
			}
		}
		if ip == nil {
			return nil
		}
		for _, m := range r.Methods(k.t, "Set"+cname) {
			if len(m.params) == 2 && !m.variadic {
				ip.Setter = m
				break
			}
		}
		for _, candidate := range []string{"Num" + cname, cname + "Len", cname + "Count", "Len" + cname} {
			for _, m := range r.Methods(k.t, candidate) {
				if len(m.params) == 0 && m.result != nil && isIntegerKind(m.result.Kind()) {
					ip.Length = m
					return ip
				}
			}
		}
		return ip
	})
	return p, p != nil
}

func isIntegerKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// Capitalize upper-cases the first rune of s.
func Capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 || unicode.IsUpper(r) {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}
