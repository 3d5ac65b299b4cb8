package types

import "fmt"

// DynamicSubscript is a symbolic index resolved against the length of the
// indexed sequence at evaluation time.
type DynamicSubscript uint8

const (
	SubscriptFirst DynamicSubscript = iota // $first: index 0
	SubscriptMid                           // $mid: index len/2
	SubscriptLast                          // $last: index len-1
	SubscriptAll                           // $all: the whole sequence
)

var subscriptNames = [...]string{
	SubscriptFirst: "first",
	SubscriptMid:   "mid",
	SubscriptLast:  "last",
	SubscriptAll:   "all",
}

// ParseSubscript maps "first", "mid", "last" and "all" (with or without a
// leading '$') to their subscript.
func ParseSubscript(s string) (DynamicSubscript, bool) {
	if len(s) > 0 && s[0] == '$' {
		s = s[1:]
	}
	for i, name := range subscriptNames {
		if name == s {
			return DynamicSubscript(i), true
		}
	}
	return 0, false
}

// Name returns the bare subscript name.
func (d DynamicSubscript) Name() string {
	if int(d) < len(subscriptNames) {
		return subscriptNames[d]
	}
	return fmt.Sprintf("subscript(%d)", uint8(d))
}

// String returns the source form, e.g. "$last".
func (d DynamicSubscript) String() string {
	return "$" + d.Name()
}

// Index resolves a positional subscript against length. It reports false
// when the sequence is empty or when d is SubscriptAll, which has no single
// position.
func (d DynamicSubscript) Index(length int) (int, bool) {
	if length <= 0 {
		return 0, false
	}
	switch d {
	case SubscriptFirst:
		return 0, true
	case SubscriptMid:
		return length / 2, true
	case SubscriptLast:
		return length - 1, true
	}
	return 0, false
}
