// Package ast implements the tagged-sum-type AST described in spec §3.3:
// Declaration, Statement, Expression, Parameters and Label node kinds, each
// carrying a SourceRange and, for some kinds, one-write fields filled in by
// later compiler stages.
//
// Node kinds use a tagged sum type (unexported per-category marker methods
// plus an exhaustive type switch in walkers) rather than the original implementation's
// pointer-graph-with-As<T>() downcasts (spec §9).
package ast

import (
	"github.com/buildc-lang/buildc/internal/symbols"
	"github.com/buildc-lang/buildc/internal/token"
)

// Node is implemented by every AST node.
type Node interface {
	Range() token.Range
}

// Decl is implemented by every declaration node.
type Decl interface {
	Node
	declNode()
}

// Stmt is implemented by every statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is implemented by every expression node.
type Expr interface {
	Node
	exprNode()
}

// base holds the SourceRange every node carries (spec §3.3).
type base struct{ rng token.Range }

func (b base) Range() token.Range { return b.rng }

// SetRange records a node's source range after construction. Every node
// type embeds base by value, so this promotes to *T for every concrete
// node type T; callers outside the package (the parser) build a node
// literal with its content fields set and then call SetRange once the
// node's full extent is known.
func (b *base) SetRange(r token.Range) { b.rng = r }

// ================================================================
// Top level
// ================================================================

// Script is always the AST root (spec §3.3 invariant).
type Script struct {
	base
	Imports   []*ImportDecl
	Exports   []*ExportDecl
	Body      []Decl // top-level def/class/task/var/const and bare statements
}

func (s *Script) declNode() {}

// Identifier is a name plus the range it was spelled at (spec §3.2).
type Identifier struct {
	Range token.Range
	Name  string
}

// ================================================================
// Declarations
// ================================================================

// InvalidDecl is the parser-recovery placeholder (spec §7): downstream
// walkers treat it as a no-op. It also satisfies ClassMember, so the parser
// can embed it in its placeholder for a malformed class member.
type InvalidDecl struct{ base }

func (d *InvalidDecl) declNode()    {}
func (d *InvalidDecl) classMember() {}

// StmtDecl adapts a bare top-level statement (an expression, an if/while/
// for, ...) into a Decl so Script.Body can hold declarations and ordinary
// statements uniformly (spec §3.3: a script's body is executed top to
// bottom like a function body).
type StmtDecl struct {
	base
	Stmt Stmt
}

func (d *StmtDecl) declNode() {}

// ImportDecl is `import name`.
type ImportDecl struct {
	base
	Name Identifier
}

func (d *ImportDecl) declNode() {}

// ExportDecl is `export <decl>` wrapping the exported declaration.
type ExportDecl struct {
	base
	Inner Decl
}

func (d *ExportDecl) declNode() {}

// AccessFlags collects the const/static/var modifiers parsed by the
// access-modifier parser (spec §4.3.x).
type AccessFlags struct {
	Const  bool
	Static bool
	Var    bool
	First  token.Range // range of the first modifier seen, for diagnostics
}

// VarDecl is a `var`/`const` variable declaration, at any scope.
type VarDecl struct {
	base
	Access AccessFlags
	Name   Identifier
	Value  Expr // nil if uninitialized

	Symbol symbols.Symbol // one-write: set by SemanticAnalyzer
}

func (d *VarDecl) declNode() {}

// SetSymbol writes the one-write Symbol field exactly once.
func (d *VarDecl) SetSymbol(s symbols.Symbol) {
	if d.Symbol != nil {
		panic("ast: VarDecl.Symbol written twice")
	}
	d.Symbol = s
}

// Param is a single function/method/closure parameter.
type Param struct {
	base
	Name Identifier

	Symbol symbols.Symbol // plain field, set by SemanticAnalyzer; see ForStmt.VarSymbol
}

// Parameters is the variable-arity parameter list node (spec §3.3).
type Parameters struct {
	base
	Params []*Param
	Vararg bool // true when the last parameter is `...name`
}

// FunctionDecl is `def name(params) { body }` (spec §4.3 top level).
type FunctionDecl struct {
	base
	Name   Identifier
	Params *Parameters
	Body   *BlockStmt

	Symbol symbols.Symbol // one-write
}

func (d *FunctionDecl) declNode() {}

func (d *FunctionDecl) SetSymbol(s symbols.Symbol) {
	if d.Symbol != nil {
		panic("ast: FunctionDecl.Symbol written twice")
	}
	d.Symbol = s
}

// ClassMember is implemented by every member declaration valid inside a
// class body (spec §4.3 "Class members").
type ClassMember interface {
	Decl
	classMember()
}

// ClassDecl is `class Name [extends Base] { members }`.
type ClassDecl struct {
	base
	Name    Identifier
	Extends *Identifier // nil if no `extends` clause
	Members []ClassMember

	Symbol symbols.Symbol // one-write
}

func (d *ClassDecl) declNode() {}

func (d *ClassDecl) SetSymbol(s symbols.Symbol) {
	if d.Symbol != nil {
		panic("ast: ClassDecl.Symbol written twice")
	}
	d.Symbol = s
}

// ClassInitDecl is `init(params) { body }`.
type ClassInitDecl struct {
	base
	Params *Parameters
	Body   *BlockStmt

	Symbol          symbols.Symbol // one-write
	SelfSymbol      symbols.Symbol // plain field: implicit "self" binding, set by SemanticAnalyzer
	initializerCall bool           // one-write: self()/super() seen as first stmt
}

func (d *ClassInitDecl) declNode()    {}
func (d *ClassInitDecl) classMember() {}

func (d *ClassInitDecl) SetSymbol(s symbols.Symbol) {
	if d.Symbol != nil {
		panic("ast: ClassInitDecl.Symbol written twice")
	}
	d.Symbol = s
}

// SetInitializerCall writes the one-write initializerCall flag.
func (d *ClassInitDecl) SetInitializerCall() {
	if d.initializerCall {
		panic("ast: ClassInitDecl.initializerCall written twice")
	}
	d.initializerCall = true
}

func (d *ClassInitDecl) InitializerCallSeen() bool { return d.initializerCall }

// ClassDeinitDecl is `deinit() { body }`.
type ClassDeinitDecl struct {
	base
	Body *BlockStmt

	Symbol     symbols.Symbol
	SelfSymbol symbols.Symbol // plain field: implicit "self" binding, set by SemanticAnalyzer
}

func (d *ClassDeinitDecl) declNode()    {}
func (d *ClassDeinitDecl) classMember() {}

// MethodDecorationKind distinguishes the method-like member forms (spec
// §4.3 class member dispatch).
type MethodDecorationKind uint8

const (
	MethodPlain MethodDecorationKind = iota
	MethodStatic
	MethodOperator
	MethodInplaceOperator
)

// ClassMethodDecl is `[static] def name(params) { body }`, or an operator
// overload `def operator OP (params) { body }`.
type ClassMethodDecl struct {
	base
	Decoration MethodDecorationKind
	Name       Identifier // method name, or the operator spelling
	Params     *Parameters
	Body       *BlockStmt

	Symbol     symbols.Symbol
	SelfSymbol symbols.Symbol // plain field: implicit "self" binding, nil for a static method
}

func (d *ClassMethodDecl) declNode()    {}
func (d *ClassMethodDecl) classMember() {}

func (d *ClassMethodDecl) SetSymbol(s symbols.Symbol) {
	if d.Symbol != nil {
		panic("ast: ClassMethodDecl.Symbol written twice")
	}
	d.Symbol = s
}

// ClassFieldDecl is `const name = expr` / `static name = expr` at class
// scope (a field without one of those modifiers is a parse error, spec
// §4.4).
type ClassFieldDecl struct {
	base
	Access AccessFlags
	Name   Identifier
	Value  Expr

	Symbol symbols.Symbol
}

func (d *ClassFieldDecl) declNode()    {}
func (d *ClassFieldDecl) classMember() {}

// PropertyAccessorKind distinguishes get/set (spec §4.3/§4.4).
type PropertyAccessorKind uint8

const (
	AccessorGet PropertyAccessorKind = iota
	AccessorSet
)

// ClassPropertyDecl is `get name() { body }` or `set name(value) { body }`;
// getter/setter of the same name unify into one PropertySymbol (spec
// §4.4).
type ClassPropertyDecl struct {
	base
	Accessor PropertyAccessorKind
	Name     Identifier
	Param    *Param // setter's value parameter; nil for getter
	Body     *BlockStmt

	Symbol     symbols.Symbol // one-write: the PropertySymbol (shared by get/set pair)
	SelfSymbol symbols.Symbol // plain field: implicit "self" binding, set by SemanticAnalyzer
}

func (d *ClassPropertyDecl) declNode()    {}
func (d *ClassPropertyDecl) classMember() {}

func (d *ClassPropertyDecl) SetSymbol(s symbols.Symbol) {
	if d.Symbol != nil {
		panic("ast: ClassPropertyDecl.Symbol written twice")
	}
	d.Symbol = s
}

// TaskMember is implemented by every member declaration valid inside a task
// body (spec §4.3 "Task members").
type TaskMember interface {
	Decl
	taskMember()
}

// TaskDecl is `task Name [extends Base] [dependsOn a, b] { members }`.
type TaskDecl struct {
	base
	Name      Identifier
	Extends   *Identifier
	DependsOn []Identifier
	Members   []TaskMember

	Symbol symbols.Symbol
}

func (d *TaskDecl) declNode() {}

func (d *TaskDecl) SetSymbol(s symbols.Symbol) {
	if d.Symbol != nil {
		panic("ast: TaskDecl.Symbol written twice")
	}
	d.Symbol = s
}

// TaskActionKind distinguishes do/doFirst/doLast (spec §4.4).
type TaskActionKind uint8

const (
	ActionDo TaskActionKind = iota
	ActionDoFirst
	ActionDoLast
)

// TaskActionDecl is `do { body }` / `doFirst { body }` / `doLast { body }`,
// desugared to a method with the fixed synthesized signature from spec
// §4.4.
type TaskActionDecl struct {
	base
	Action TaskActionKind
	Body   *BlockStmt

	Symbol     symbols.Symbol // one-write
	SelfSymbol symbols.Symbol // plain field: implicit "self" binding, set by SemanticAnalyzer
}

func (d *TaskActionDecl) declNode() {}
func (d *TaskActionDecl) taskMember() {}

func (d *TaskActionDecl) SetSymbol(s symbols.Symbol) {
	if d.Symbol != nil {
		panic("ast: TaskActionDecl.Symbol written twice")
	}
	d.Symbol = s
}

// TaskInputsDecl is `inputs E [with W]`.
type TaskInputsDecl struct {
	base
	Pattern  Expr
	Resolver Expr // nil if no `with` clause
}

func (d *TaskInputsDecl) declNode() {}
func (d *TaskInputsDecl) taskMember() {}

// TaskOutputsDecl is `outputs E [from F]`.
type TaskOutputsDecl struct {
	base
	Pattern Expr
	From    Expr // nil if no `from` clause
}

func (d *TaskOutputsDecl) declNode() {}
func (d *TaskOutputsDecl) taskMember() {}

// TaskPropertyDecl is a bare `name = expr` inside a task body.
type TaskPropertyDecl struct {
	base
	Name  Identifier
	Value Expr

	Symbol symbols.Symbol
}

func (d *TaskPropertyDecl) declNode() {}
func (d *TaskPropertyDecl) taskMember() {}
