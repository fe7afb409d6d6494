// Package ir implements the per-function intermediate representation
// described in spec §3.6: basic blocks of opaque-register IR statements in
// SSA form, built incrementally by IRBuilder (builder.go) and produced from
// the AST by IRGenerator (generator.go).
package ir

import (
	"fmt"
	"strconv"

	"github.com/buildc-lang/buildc/internal/ast"
	"github.com/buildc-lang/buildc/internal/symbols"
	"github.com/buildc-lang/buildc/internal/token"
)

// Reg is a 32-bit opaque register id (spec §3.6 "IRValue").
type Reg uint32

// InvalidReg is the sentinel for "no value / void" (spec §3.6 IRInvalidValue).
const InvalidReg Reg = 0xFFFFFFFF

// Const is a compile-time constant operand for LoadConst. It reuses the same
// closed shape as ast.CaseValue (a case label is, after all, just a constant
// literal) with LiteralNone added for the bare `none` literal.
type Const struct {
	Kind ast.LiteralKind
	I    int64
	F    float64
	B    bool
	S    string
}

// ConstFromLiteral converts a non-interpolated literal expression's surface
// form to a Const; interpolated strings never reach this (they lower to
// an Invoke of Format on the template string instead, see generator.go).
func ConstFromLiteral(kind ast.LiteralKind, image string) Const {
	c := Const{Kind: kind}
	switch kind {
	case ast.LiteralInteger:
		c.I, _ = strconv.ParseInt(image, 0, 64)
	case ast.LiteralFloat:
		c.F, _ = strconv.ParseFloat(image, 64)
	case ast.LiteralBoolean:
		c.B = image == "true"
	case ast.LiteralString:
		c.S = image
	}
	return c
}

// Op enumerates the IR opcode catalog (spec §6.3), in catalog order.
type Op uint8

const (
	OpLoadConst Op = iota
	OpLoadSymbol
	OpStoreSymbol
	OpDeclareSymbol
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpShl
	OpShr
	OpAnd
	OpOr
	OpXor
	OpNeg
	OpNot
	OpDefined
	OpTest
	OpCall
	OpInvoke
	OpGetMember
	OpGetSubscript
	OpSetMember
	OpSetSubscript
	OpBr
	OpBrCond
	OpJumpTable
	OpReturn
	OpRaise
	OpAssert
	OpSelect
	OpMakeList
	OpMakeMap
	OpMakeClosure
	OpImport
	OpExport
)

// TestKind is the IRTestKind subcode of a Test statement (spec §6.3).
type TestKind uint8

const (
	TestLess TestKind = iota
	TestLessOrEqual
	TestGreater
	TestGreaterOrEqual
	TestEqual
	TestNotEqual
	TestInstance
	TestNotInstance
	TestContain
	TestNotContain
)

// Stmt is implemented by every concrete IR instruction. Each carries its own
// opcode-specific operand fields rather than one generic operand array,
// mirroring the tagged-sum-type style internal/ast already uses for AST
// nodes (spec §9's redesign away from a single variant struct).
type Stmt interface {
	Op() Op
	Pos() token.Position
	stmtNode()
}

type base struct {
	op  Op
	pos token.Position
}

func (b base) Op() Op              { return b.op }
func (b base) Pos() token.Position { return b.pos }

// LoadConstStmt is `%result = LoadConst value`.
type LoadConstStmt struct {
	base
	Result Reg
	Value  Const
}

func (*LoadConstStmt) stmtNode() {}

// LoadSymbolStmt is `%result = LoadSymbol sym` (a global/non-local read).
type LoadSymbolStmt struct {
	base
	Result Reg
	Sym    symbols.Symbol
}

func (*LoadSymbolStmt) stmtNode() {}

// StoreSymbolStmt is `StoreSymbol sym, value` (a global write).
type StoreSymbolStmt struct {
	base
	Sym   symbols.Symbol
	Value Reg
}

func (*StoreSymbolStmt) stmtNode() {}

// DeclareSymbolStmt introduces a new global binding with its initial value
// (spec §8 scenario 1: `var x = 1 + 2` lowers to a DeclareSymbol, not a
// plain StoreSymbol).
type DeclareSymbolStmt struct {
	base
	Sym   symbols.Symbol
	Value Reg
}

func (*DeclareSymbolStmt) stmtNode() {}

// BinaryStmt covers Add/Sub/Mul/Div/Mod/Shl/Shr/And/Or/Xor (spec §6.3).
type BinaryStmt struct {
	base
	Result Reg
	LHS    Reg
	RHS    Reg
}

func (*BinaryStmt) stmtNode() {}

// UnaryStmt covers Neg/Not.
type UnaryStmt struct {
	base
	Result  Reg
	Operand Reg
}

func (*UnaryStmt) stmtNode() {}

// DefinedStmt is `defined id [in container]` (spec §4.3 unary level);
// Container is InvalidReg when there is no `in` clause.
type DefinedStmt struct {
	base
	Result    Reg
	Sym       symbols.Symbol
	Container Reg
}

func (*DefinedStmt) stmtNode() {}

// TestStmt is a relational/equality/is/in comparison (spec §6.3 Test with
// an IRTestKind subcode).
type TestStmt struct {
	base
	Result Reg
	Kind   TestKind
	LHS    Reg
	RHS    Reg
}

func (*TestStmt) stmtNode() {}

// CallStmt invokes a function-like value directly (spec §4.5.2 "Call vs
// Invoke dispatch").
type CallStmt struct {
	base
	Result Reg
	Callee Reg
	Args   []Reg
}

func (*CallStmt) stmtNode() {}

// InvokeStmt invokes a named method looked up against Target (spec §4.5.2).
type InvokeStmt struct {
	base
	Result Reg
	Target Reg
	Name   string
	Args   []Reg
}

func (*InvokeStmt) stmtNode() {}

// GetMemberStmt is `%result = target.name`.
type GetMemberStmt struct {
	base
	Result Reg
	Target Reg
	Name   string
}

func (*GetMemberStmt) stmtNode() {}

// GetSubscriptStmt is `%result = target[index]`.
type GetSubscriptStmt struct {
	base
	Result Reg
	Target Reg
	Index  Reg
}

func (*GetSubscriptStmt) stmtNode() {}

// SetMemberStmt is `target.name = value`.
type SetMemberStmt struct {
	base
	Target Reg
	Name   string
	Value  Reg
}

func (*SetMemberStmt) stmtNode() {}

// SetSubscriptStmt is `target[index] = value`.
type SetSubscriptStmt struct {
	base
	Target Reg
	Index  Reg
	Value  Reg
}

func (*SetSubscriptStmt) stmtNode() {}

// BrStmt is an unconditional branch; a block terminator.
type BrStmt struct {
	base
	Target *BasicBlock
}

func (*BrStmt) stmtNode() {}

// BrCondStmt is a conditional branch; a block terminator.
type BrCondStmt struct {
	base
	Cond Reg
	Then *BasicBlock
	Else *BasicBlock
}

func (*BrCondStmt) stmtNode() {}

// JumpCase is one `(value, target)` entry of a JumpTable.
type JumpCase struct {
	Value  Const
	Target *BasicBlock
}

// JumpTableStmt is a match dispatch; a block terminator.
type JumpTableStmt struct {
	base
	Value   Reg
	Default *BasicBlock
	Cases   []JumpCase
}

func (*JumpTableStmt) stmtNode() {}

// ReturnStmt is a block terminator; Value is InvalidReg for a bare `return`.
type ReturnStmt struct {
	base
	Value Reg
}

func (*ReturnStmt) stmtNode() {}

// RaiseStmt is a block terminator.
type RaiseStmt struct {
	base
	Value Reg
}

func (*RaiseStmt) stmtNode() {}

// AssertStmt evaluates an already-failed assertion's message and raises; it
// is not itself a terminator (the generator always follows it with a Br to
// the shared merge block, spec §4.5.2's assert desugaring).
type AssertStmt struct {
	base
	Cond    Reg
	Message Reg
}

func (*AssertStmt) stmtNode() {}

// SelectStmt is the SSA φ node (spec §4.5.1): one value per predecessor
// block, in predecessor order.
type SelectStmt struct {
	base
	Result Reg
	Sym    symbols.Symbol // which symbol this phi reconstructs, for debugging
	Preds  []*BasicBlock
	Values []Reg
}

func (*SelectStmt) stmtNode() {}

// MakeListStmt builds a list literal.
type MakeListStmt struct {
	base
	Result   Reg
	Elements []Reg
}

func (*MakeListStmt) stmtNode() {}

// MapPair is one key/value operand pair of a MakeMap.
type MapPair struct {
	Key   Reg
	Value Reg
}

// MakeMapStmt builds a map literal.
type MakeMapStmt struct {
	base
	Result Reg
	Pairs  []MapPair
}

func (*MakeMapStmt) stmtNode() {}

// MakeClosureStmt builds a closure value, binding its captured locals (spec
// §4.4 "closure capture discovery" / §4.5.2 "class without init").
type MakeClosureStmt struct {
	base
	Result   Reg
	Symbol   *symbols.ClosureSymbol
	Captures []symbols.Symbol
}

func (*MakeClosureStmt) stmtNode() {}

// ImportStmt / ExportStmt are module-level ops for script-scope import/
// export declarations (spec §6.3).
type ImportStmt struct {
	base
	Name string
}

func (*ImportStmt) stmtNode() {}

type ExportStmt struct {
	base
	Name  string
	Value Reg
}

func (*ExportStmt) stmtNode() {}

// IsTerminal reports whether s is one of the five terminal opcodes (spec
// §3.6 invariant: every block ends with exactly one of these).
func IsTerminal(s Stmt) bool {
	switch s.(type) {
	case *BrStmt, *BrCondStmt, *JumpTableStmt, *ReturnStmt, *RaiseStmt:
		return true
	default:
		return false
	}
}

// BasicBlock is one node of a function's CFG (spec §3.6).
type BasicBlock struct {
	Label string
	Preds []*BasicBlock
	Succs []*BasicBlock
	Stmts []Stmt

	consts  map[Const]Reg
	defined map[symbols.Symbol]Reg
	sealed  bool
}

func newBasicBlock(label string) *BasicBlock {
	return &BasicBlock{Label: label, consts: map[Const]Reg{}, defined: map[symbols.Symbol]Reg{}}
}

func (b *BasicBlock) String() string { return b.Label }

// ExceptHandler is one `(handlerBlock, typeSymbol_or_None)` entry of an
// ExceptInfo (spec §3.6); a nil Type denotes a finally/re-raise handler.
type ExceptHandler struct {
	Block *BasicBlock
	Type  symbols.Symbol
}

// ExceptInfo describes one protected region's exception handlers (spec
// §3.6).
type ExceptInfo struct {
	Begin, End *BasicBlock
	Handlers   []ExceptHandler
}

// CodeBlock is the finished IR for one function/method/closure body (spec
// §3.6).
type CodeBlock struct {
	Name     string
	Blocks   []*BasicBlock
	Vararg   bool
	Handlers []ExceptInfo
	Args     []symbols.Symbol
}

func (c *CodeBlock) String() string {
	return fmt.Sprintf("CodeBlock(%s, %d blocks)", c.Name, len(c.Blocks))
}
