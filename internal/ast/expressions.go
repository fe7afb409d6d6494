package ast

import "github.com/buildc-lang/buildc/internal/symbols"

// InvalidExpr is the parser-recovery placeholder (spec §7).
type InvalidExpr struct{ base }

func (e *InvalidExpr) exprNode() {}

// LiteralKind enumerates the literal forms (spec §8 scenario 1's case-value
// subset names these exactly: Integer/Float/Boolean/String/None).
type LiteralKind uint8

const (
	LiteralInteger LiteralKind = iota
	LiteralFloat
	LiteralBoolean
	LiteralString
	LiteralNone
)

// LiteralExpr is a constant literal. For LiteralString, Interpolations
// holds the re-parsed placeholder expressions in left-to-right order (spec
// §4.2/§4.5.2); an empty Interpolations means no `$`/`${}` placeholders.
type LiteralExpr struct {
	base
	Kind           LiteralKind
	Image          string // raw lexeme, or the "{N}"-templated string image
	Interpolations []Expr
}

func (e *LiteralExpr) exprNode() {}

// VariableExpr is a bare identifier reference (spec §3.3/§4.4).
type VariableExpr struct {
	base
	Name   Identifier
	Symbol symbols.Symbol // one-write: resolved (or Undeclared) symbol
}

func (e *VariableExpr) exprNode() {}

func (e *VariableExpr) SetSymbol(s symbols.Symbol) {
	if e.Symbol != nil {
		panic("ast: VariableExpr.Symbol written twice")
	}
	e.Symbol = s
}

// SelfExpr is the `self` literal.
type SelfExpr struct {
	base
	Symbol symbols.Symbol
}

func (e *SelfExpr) exprNode() {}

// SuperExpr is the `super` literal.
type SuperExpr struct {
	base
	Symbol symbols.Symbol
}

func (e *SuperExpr) exprNode() {}

// BinaryOp enumerates arithmetic/bitwise/relational/equality operators
// (spec §4.3 precedence table).
type BinaryOp uint8

const (
	OpMul BinaryOp = iota
	OpDiv
	OpMod
	OpAdd
	OpSub
	OpShl
	OpShr
	OpBitAnd
	OpBitXor
	OpBitOr
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpEqual
	OpNotEqual
)

// BinaryExpr is `lhs op rhs`.
type BinaryExpr struct {
	base
	Op  BinaryOp
	LHS Expr
	RHS Expr
}

func (e *BinaryExpr) exprNode() {}

// LogicalOp distinguishes `and`/`or` (spec §4.5.2: short-circuit, not
// plain binary ops — each gets its own IR desugaring).
type LogicalOp uint8

const (
	LogicalAnd LogicalOp = iota
	LogicalOr
)

// LogicalExpr is `lhs and rhs` / `lhs or rhs`.
type LogicalExpr struct {
	base
	Op  LogicalOp
	LHS Expr
	RHS Expr
}

func (e *LogicalExpr) exprNode() {}

// UnaryOp enumerates prefix unary operators (spec §4.3 precedence table).
type UnaryOp uint8

const (
	UnaryPlus UnaryOp = iota
	UnaryMinus
	UnaryBitNot
	UnaryNot
)

// UnaryExpr is `op operand`.
type UnaryExpr struct {
	base
	Op      UnaryOp
	Operand Expr
}

func (e *UnaryExpr) exprNode() {}

// DefinedExpr is `defined id [in postfix]` (spec §4.3 unary level).
type DefinedExpr struct {
	base
	Name Identifier
	In   Expr // nil if no `in postfix` clause

	Symbol symbols.Symbol // one-write: resolved symbol, or Undeclared if unresolved
}

func (e *DefinedExpr) exprNode() {}

func (e *DefinedExpr) SetSymbol(s symbols.Symbol) {
	if e.Symbol != nil {
		panic("ast: DefinedExpr.Symbol written twice")
	}
	e.Symbol = s
}

// RaiseExpr is the unary `raise postfix` form (spec §4.3 unary level).
type RaiseExpr struct {
	base
	Value Expr
}

func (e *RaiseExpr) exprNode() {}

// TernaryExpr is `thenExpr if cond else elseExpr` (spec §4.3 level 13,
// right-assoc; must not cross a newline between thenExpr and `if`).
type TernaryExpr struct {
	base
	Then Expr
	Cond Expr
	Else Expr
}

func (e *TernaryExpr) exprNode() {}

// TypeTestExpr is `target is [not] Type` (spec §4.3: a distinct node, not a
// BinaryExpr).
type TypeTestExpr struct {
	base
	Target Expr
	Negate bool
	Type   Identifier

	Symbol symbols.Symbol // one-write: resolved type symbol
}

func (e *TypeTestExpr) exprNode() {}

func (e *TypeTestExpr) SetSymbol(s symbols.Symbol) {
	if e.Symbol != nil {
		panic("ast: TypeTestExpr.Symbol written twice")
	}
	e.Symbol = s
}

// ContainmentTestExpr is `value [not] in target` (spec §4.3: a distinct
// node). Per spec §9's open question, IR generation reads Target as the
// container operand and Value as the element operand, in that order,
// regardless of surface spelling order; preserved here unrevalidated.
type ContainmentTestExpr struct {
	base
	Value  Expr
	Negate bool
	Target Expr
}

func (e *ContainmentTestExpr) exprNode() {}

// CallArg is one invocation argument; Name is non-empty for a named
// argument form if the surface syntax supports it (kept for forward
// compatibility with keyword-argument calls).
type CallArg struct {
	Name  string
	Value Expr
}

// InvocationExpr is `callee(args...)` (spec §4.3 postfix level).
type InvocationExpr struct {
	base
	Callee Expr
	Args   []CallArg
}

func (e *InvocationExpr) exprNode() {}

// MemberAccessExpr is `target.name` (spec §4.3 postfix level).
type MemberAccessExpr struct {
	base
	Target Expr
	Name   Identifier
}

func (e *MemberAccessExpr) exprNode() {}

// SubscriptExpr is `target[index]` (spec §4.3 postfix level).
type SubscriptExpr struct {
	base
	Target Expr
	Index  Expr
}

func (e *SubscriptExpr) exprNode() {}

// ListExpr is `[elem, ...]`.
type ListExpr struct {
	base
	Elements []Expr
}

func (e *ListExpr) exprNode() {}

// MapEntry is one `key: value` item of a MapExpr.
type MapEntry struct {
	Key   Expr
	Value Expr
}

// MapExpr is `{ key: value, ... }` used in expression position (not to be
// confused with BlockStmt; the parser disambiguates by context).
type MapExpr struct {
	base
	Entries []MapEntry
}

func (e *MapExpr) exprNode() {}

// RangeExpr is `begin...end`. The parser builds one only where `...`
// follows a parenthesized expression, as in `for x in (a)...b`; a case
// label holding one is rejected as an invalid case value.
type RangeExpr struct {
	base
	Begin Expr
	End   Expr
}

func (e *RangeExpr) exprNode() {}

// ClosureExpr is `(params) => body` (spec §4.3 "Closure disambiguation").
// Body is either an ArrowStmt-wrapped single expression or a BlockStmt,
// normalized here to a []Stmt so the IR generator doesn't special-case it.
type ClosureExpr struct {
	base
	Params *Parameters
	Body   []Stmt

	Symbol        symbols.Symbol // one-write: the ClosureSymbol
	boundedLocals []symbols.Symbol
	boundedSet    bool // guards the one-write BoundedLocals field
}

func (e *ClosureExpr) exprNode() {}

func (e *ClosureExpr) SetSymbol(s symbols.Symbol) {
	if e.Symbol != nil {
		panic("ast: ClosureExpr.Symbol written twice")
	}
	e.Symbol = s
}

// SetBoundedLocals writes the one-write captured-locals list (spec §3.3).
func (e *ClosureExpr) SetBoundedLocals(locals []symbols.Symbol) {
	if e.boundedSet {
		panic("ast: ClosureExpr.boundedLocals written twice")
	}
	e.boundedSet = true
	e.boundedLocals = locals
}

func (e *ClosureExpr) BoundedLocals() []symbols.Symbol { return e.boundedLocals }
