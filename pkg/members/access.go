package members

import "reflect"

// Operation is the kind of use a member is put to.
type Operation uint8

const (
	Read Operation = iota
	Write
	Invoke
)

func (op Operation) String() string {
	switch op {
	case Read:
		return "read"
	case Write:
		return "write"
	case Invoke:
		return "invoke"
	}
	return "unknown"
}

// MemberAccess is the single capability gate consulted before any member is
// read, written or invoked. It is asked at use time, never at resolution
// time, so a resolved member may still be refused.
type MemberAccess interface {
	IsAccessible(target reflect.Type, member Member, op Operation) bool
}

// AccessFunc adapts a function to MemberAccess.
type AccessFunc func(target reflect.Type, member Member, op Operation) bool

// IsAccessible implements MemberAccess.
func (f AccessFunc) IsAccessible(target reflect.Type, member Member, op Operation) bool {
	return f(target, member, op)
}

// PublicAccess permits exported members only. It is the default gate.
type PublicAccess struct{}

// IsAccessible implements MemberAccess.
func (PublicAccess) IsAccessible(_ reflect.Type, member Member, _ Operation) bool {
	return member.IsExported()
}

// FullAccess permits every member, including unexported fields.
type FullAccess struct{}

// IsAccessible implements MemberAccess.
func (FullAccess) IsAccessible(reflect.Type, Member, Operation) bool { return true }

// ReadOnly wraps a gate and refuses every write.
func ReadOnly(inner MemberAccess) MemberAccess {
	return AccessFunc(func(target reflect.Type, member Member, op Operation) bool {
		return op != Write && inner.IsAccessible(target, member, op)
	})
}
