package ast

import "github.com/buildc-lang/buildc/internal/symbols"

// InvalidStmt is the parser-recovery placeholder (spec §7).
type InvalidStmt struct{ base }

func (s *InvalidStmt) stmtNode() {}

// DeclStmt adapts a local declaration (var/const, or a nested def/class)
// into a Stmt so a BlockStmt's body can hold declarations and ordinary
// statements uniformly, mirroring StmtDecl's adaptation the other way
// round at script scope.
type DeclStmt struct {
	base
	Decl Decl
}

func (s *DeclStmt) stmtNode() {}

// BlockStmt is `{ stmt... }` (spec §6.2).
type BlockStmt struct {
	base
	Body []Stmt
}

func (s *BlockStmt) stmtNode() {}

// ArrowStmt is a single-expression body introduced by `=>` (spec §6.2),
// used as the shorthand body of a function/method/closure.
type ArrowStmt struct {
	base
	Value Expr
}

func (s *ArrowStmt) stmtNode() {}

// IfStmt is `if cond { then } [else elseClause]` (spec §6.2). Else is nil
// when absent; it may itself be an IfStmt (else-if chain) or a BlockStmt.
type IfStmt struct {
	base
	Cond Expr
	Then *BlockStmt
	Else Stmt // *IfStmt, *BlockStmt, or nil
}

func (s *IfStmt) stmtNode() {}

// MatchArm is one `case k1, k2: stmts` / `default: stmts` group inside a
// match, collapsing one-or-more Labels sharing a body (spec §4.3).
type MatchArm struct {
	base
	Labels []*Label
	Body   []Stmt
}

// MatchStmt is `match value { arm... }` (spec §6.2/§4.3: at least one
// labeled arm is required).
type MatchStmt struct {
	base
	Value Expr
	Arms  []*MatchArm
}

func (s *MatchStmt) stmtNode() {}

// ForStmt is `for id in expr { body }` (spec §4.3): introduces a Loop scope
// with id as a readonly local.
type ForStmt struct {
	base
	Var        Identifier
	Iterable   Expr
	Body       *BlockStmt
	VarSymbol  symbols.Symbol // plain field set once by sema: the readonly loop variable
}

func (s *ForStmt) stmtNode() {}

// WhileStmt is `while cond { body }` (spec §6.2).
type WhileStmt struct {
	base
	Cond Expr
	Body *BlockStmt
}

func (s *WhileStmt) stmtNode() {}

// WithStmt is `with expr as id { body }` (spec §6.2), desugared per the
// table in spec §4.5.2.
type WithStmt struct {
	base
	Resource  Expr
	Var       Identifier
	Body      *BlockStmt
	VarSymbol symbols.Symbol // plain field set once by sema
}

func (s *WithStmt) stmtNode() {}

// ExceptClause is one `except [Type [as id]] { body }` arm of a try
// statement.
type ExceptClause struct {
	base
	Type *Identifier // nil catches any exception
	Var  *Identifier // nil if no `as id` binding
	Body *BlockStmt

	Symbol symbols.Symbol // one-write: the Except variable symbol, if bound
}

func (e *ExceptClause) SetSymbol(s symbols.Symbol) {
	if e.Symbol != nil {
		panic("ast: ExceptClause.Symbol written twice")
	}
	e.Symbol = s
}

// TryStmt is `try { body } [except ...]* [finally { body }]` (spec §4.3:
// requires body plus at least one of except/finally).
type TryStmt struct {
	base
	Body    *BlockStmt
	Excepts []*ExceptClause
	Finally *BlockStmt // nil if absent
}

func (s *TryStmt) stmtNode() {}

// BreakStmt is `break [expr] [if guard]` (spec §6.2); Value/Guard are nil
// when absent. Both must be on the same source line as `break` (spec
// §4.3).
type BreakStmt struct {
	base
	Value Expr
	Guard Expr
}

func (s *BreakStmt) stmtNode() {}

// ContinueStmt is `continue [if guard]`.
type ContinueStmt struct {
	base
	Guard Expr
}

func (s *ContinueStmt) stmtNode() {}

// ReturnStmt is `return [expr] [if guard]`.
type ReturnStmt struct {
	base
	Value Expr
	Guard Expr
}

func (s *ReturnStmt) stmtNode() {}

// AssertStmt is `assert cond [: message]` (spec §4.5.2 desugaring note).
type AssertStmt struct {
	base
	Cond    Expr
	Message Expr // nil if absent; default literal supplied at IR generation
}

func (s *AssertStmt) stmtNode() {}

// PassStmt is the no-op `pass` statement (spec §6.2); inside match it is
// fall-through to the next arm (spec §9 open question, preserved as-is).
type PassStmt struct{ base }

func (s *PassStmt) stmtNode() {}

// AssignOp enumerates plain `=` and the inplace compound-assignment forms.
type AssignOp uint8

const (
	AssignPlain AssignOp = iota
	AssignAdd
	AssignSub
	AssignMul
	AssignDiv
	AssignMod
	AssignAnd
	AssignOr
	AssignXor
	AssignShl
	AssignShr
)

// AssignStmt is `lhs op= rhs` (spec §6.2). lhs must be a MemberAccess,
// Subscript, or a writable non-bounded-local Variable literal (spec §4.4).
type AssignStmt struct {
	base
	Target Expr
	Op     AssignOp
	Value  Expr
}

func (s *AssignStmt) stmtNode() {}

// ExprStmt wraps a bare expression used as a statement (spec §6.2).
type ExprStmt struct {
	base
	Value Expr
}

func (s *ExprStmt) stmtNode() {}
