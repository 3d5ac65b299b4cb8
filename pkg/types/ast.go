package types

// NodeKind identifies the kind of an AST node.
type NodeKind string

// AST node kinds.
const (
	// Literals
	KindConst NodeKind = "const"

	// Arithmetic
	KindAdd                NodeKind = "add"                // a + b + c
	KindSubtract           NodeKind = "subtract"           // a - b
	KindMultiply           NodeKind = "multiply"           // a * b * c
	KindDivide             NodeKind = "divide"             // a / b
	KindRemainder          NodeKind = "remainder"          // a % b
	KindBitAnd             NodeKind = "bitAnd"             // a & b
	KindBitOr              NodeKind = "bitOr"              // a | b
	KindXor                NodeKind = "xor"                // a ^ b
	KindShiftLeft          NodeKind = "shiftLeft"          // a << b
	KindShiftRight         NodeKind = "shiftRight"         // a >> b
	KindUnsignedShiftRight NodeKind = "unsignedShiftRight" // a >>> b

	// Unary
	KindNegate    NodeKind = "negate"    // -a
	KindBitNegate NodeKind = "bitNegate" // ~a
	KindNot       NodeKind = "not"       // !a

	// Logical
	KindAnd NodeKind = "and"
	KindOr  NodeKind = "or"

	// Comparison
	KindEq        NodeKind = "eq"
	KindNotEq     NodeKind = "notEq"
	KindLess      NodeKind = "less"
	KindLessEq    NodeKind = "lessEq"
	KindGreater   NodeKind = "greater"
	KindGreaterEq NodeKind = "greaterEq"

	// Membership and type tests
	KindIn         NodeKind = "in"
	KindNotIn      NodeKind = "notIn"
	KindInstanceOf NodeKind = "instanceof"

	// Control flow
	KindTest     NodeKind = "test"     // a ? b : c
	KindSequence NodeKind = "sequence" // a, b, c
	KindAssign   NodeKind = "assign"   // a = b

	// Navigation
	KindChain        NodeKind = "chain"        // a.b[c].d()
	KindProperty     NodeKind = "property"     // name or [index]
	KindMethod       NodeKind = "method"       // name(args)
	KindStaticField  NodeKind = "staticField"  // @Class@field
	KindStaticMethod NodeKind = "staticMethod" // @Class@method(args)

	// Constructors
	KindCtor     NodeKind = "new"      // new Class(args)
	KindList     NodeKind = "list"     // { a, b }
	KindMap      NodeKind = "map"      // #{ k : v }
	KindKeyValue NodeKind = "keyValue" // k : v

	// Variables
	KindVarRef  NodeKind = "var"  // #name
	KindRootRef NodeKind = "root" // #root
	KindThisRef NodeKind = "this" // #this

	// Collections
	KindSelect      NodeKind = "select"      // {? expr }
	KindSelectFirst NodeKind = "selectFirst" // {^ expr }
	KindSelectLast  NodeKind = "selectLast"  // {$ expr }
	KindProject     NodeKind = "project"     // { expr }

	// Meta
	KindEval   NodeKind = "eval"   // (expr)(root)
	KindLambda NodeKind = "lambda" // :[ expr ]
)

var operators = map[NodeKind]string{
	KindAdd:                "+",
	KindSubtract:           "-",
	KindMultiply:           "*",
	KindDivide:             "/",
	KindRemainder:          "%",
	KindBitAnd:             "&",
	KindBitOr:              "|",
	KindXor:                "^",
	KindShiftLeft:          "<<",
	KindShiftRight:         ">>",
	KindUnsignedShiftRight: ">>>",
	KindNegate:             "-",
	KindBitNegate:          "~",
	KindNot:                "!",
	KindAnd:                "&&",
	KindOr:                 "||",
	KindEq:                 "==",
	KindNotEq:              "!=",
	KindLess:               "<",
	KindLessEq:             "<=",
	KindGreater:            ">",
	KindGreaterEq:          ">=",
	KindIn:                 "in",
	KindNotIn:              "not in",
	KindInstanceOf:         "instanceof",
	KindSequence:           ",",
	KindAssign:             "=",
}

// Operator returns the infix or prefix symbol of an operator kind, or the
// empty string for kinds that are not operators.
func (k NodeKind) Operator() string {
	return operators[k]
}

// Flattens reports whether constructing a node of this kind absorbs children
// of the same kind into a single n-ary node.
func (k NodeKind) Flattens() bool {
	switch k {
	case KindAdd, KindMultiply, KindBitAnd, KindBitOr, KindXor,
		KindAnd, KindOr, KindSequence, KindChain:
		return true
	}
	return false
}
