package accessor

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"sync"

	"github.com/sandrolain/gognl/pkg/coerce"
)

// OrderedMap is a Mapping that remembers insertion order. Map literals
// evaluate to it. Keys must be comparable.
type OrderedMap struct {
	keys   []any
	values map[any]any
}

// NewOrderedMap creates an empty map.
func NewOrderedMap() *OrderedMap {
	return &OrderedMap{values: make(map[any]any)}
}

// Len implements Mapping.
func (o *OrderedMap) Len() int { return len(o.keys) }

// Keys implements Mapping. The returned slice is a copy.
func (o *OrderedMap) Keys() []any {
	out := make([]any, len(o.keys))
	copy(out, o.keys)
	return out
}

// Get implements Mapping.
func (o *OrderedMap) Get(key any) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Put implements Mapping. Replacing a value keeps the key's position.
func (o *OrderedMap) Put(key, value any) {
	if o.values == nil {
		o.values = make(map[any]any)
	}
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// Delete removes key.
func (o *OrderedMap) Delete(key any) {
	if _, ok := o.values[key]; !ok {
		return
	}
	delete(o.values, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

func (o *OrderedMap) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(coerce.StringValue(k))
		b.WriteByte('=')
		b.WriteString(coerce.StringValue(o.values[k]))
	}
	b.WriteByte('}')
	return b.String()
}

// bufPool holds buffers for MarshalJSON.
var bufPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

func acquireBuf() *bytes.Buffer {
	b := bufPool.Get().(*bytes.Buffer)
	b.Reset()
	return b
}

// releaseBuf drops very large buffers instead of retaining them.
func releaseBuf(b *bytes.Buffer) {
	if b.Cap() <= 64*1024 {
		bufPool.Put(b)
	}
}

// MarshalJSON writes the entries in insertion order. Keys are written in
// their string form.
func (o *OrderedMap) MarshalJSON() ([]byte, error) {
	buf := acquireBuf()
	defer releaseBuf(buf)
	buf.WriteByte('{')
	for i, key := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(coerce.StringValue(key)))
		buf.WriteByte(':')
		valueBytes, err := json.Marshal(o.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(valueBytes)
	}
	buf.WriteByte('}')
	// buf is returned to the pool; copy out first.
	result := make([]byte, buf.Len())
	copy(result, buf.Bytes())
	return result, nil
}
