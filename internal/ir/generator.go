package ir

import (
	"github.com/buildc-lang/buildc/internal/ast"
	"github.com/buildc-lang/buildc/internal/symbols"
	"github.com/buildc-lang/buildc/internal/token"
)

// rangeSymbol stands in for range-literal construction (spec §4.5.2): the
// catalog has no dedicated range opcode, so `a...b` lowers to a call against
// a synthesized two-argument global function instead.
var rangeSymbol = symbols.NewFunction("Range", token.Position{}, 2, false)

// loopFrame records the two jump targets a break/continue inside a loop or
// match arm resolves against (spec §4.5.2's for/while/match desugarings).
type loopFrame struct {
	breakTarget    *BasicBlock
	continueTarget *BasicBlock
}

// Generator lowers an analyzed AST to one CodeBlock per function-like body
// (spec §4.5.2 "IRGenerator"). Every declaration, statement and expression
// kind the parser produces has exactly one lowering here; control-flow
// constructs build their own basic blocks against the active Builder and
// lean on its Braun-et-al SSA machinery (builder.go) rather than ever
// constructing a SelectStmt by hand.
type Generator struct {
	b      *Builder
	loops  []loopFrame
	blocks []*CodeBlock
}

func NewGenerator() *Generator { return &Generator{} }

func posOf(n ast.Node) token.Position { return n.Range().Begin }

// GenerateScript lowers a whole script to its CodeBlocks; the script body
// itself becomes one "<script>" CodeBlock (blocks[0]), covering imports, the
// top-level body, and exports in source order (spec §4.5.2 "script lowering").
func (g *Generator) GenerateScript(script *ast.Script) []*CodeBlock {
	scriptBlock := g.withFunction("<script>", nil, false, func() {
		for _, imp := range script.Imports {
			g.b.Emit(&ImportStmt{base: base{OpImport, posOf(imp)}, Name: imp.Name.Name})
		}
		for _, d := range script.Body {
			g.genDecl(d)
		}
		for _, exp := range script.Exports {
			g.genExportDecl(exp)
		}
	})
	// withFunction appends each CodeBlock once its body is finished, so the
	// nested ones precede the script; move the script to the front.
	g.blocks = append([]*CodeBlock{scriptBlock}, g.blocks[:len(g.blocks)-1]...)
	return g.blocks
}

// withFunction generates one nested function-like body (a script, function,
// method, property accessor, or closure) as its own Builder session and
// CodeBlock (spec §4.5.1 "one Builder per CodeBlock").
func (g *Generator) withFunction(name string, params []symbols.Symbol, vararg bool, body func()) *CodeBlock {
	prev := g.b
	g.b = NewBuilder()
	entry := g.b.NewBlock()
	g.b.SetBlock(entry, false)
	g.b.SealBlock(entry)
	g.b.SeedParams(entry, params)

	body()

	if !blockTerminated(g.b.Current()) {
		g.b.Emit(&ReturnStmt{base: base{OpReturn, token.Position{}}, Value: InvalidReg})
	}
	cb := g.b.Finalize(name, params, vararg, entry)
	g.blocks = append(g.blocks, cb)
	g.b = prev
	return cb
}

func blockTerminated(bb *BasicBlock) bool {
	if bb == nil || len(bb.Stmts) == 0 {
		return false
	}
	return IsTerminal(bb.Stmts[len(bb.Stmts)-1])
}

func paramSymbols(params *ast.Parameters) []symbols.Symbol {
	if params == nil {
		return nil
	}
	out := make([]symbols.Symbol, len(params.Params))
	for i, p := range params.Params {
		out[i] = p.Symbol
	}
	return out
}

// newTemp synthesizes an ephemeral local used to merge an expression-level
// branch (ternary, and/or) back into a single SSA value: the caller writes
// each branch's result into it and reads it once in the merge block, letting
// the Builder insert the necessary Select automatically.
func newTemp(pos token.Position) *symbols.VariableSymbol {
	sym := symbols.NewVariable("<tmp>", pos, symbols.VarImplicit, false)
	sym.MarkInitialized()
	return sym
}

// ================================================================
// Declarations
// ================================================================

func (g *Generator) genDecl(d ast.Decl) {
	switch v := d.(type) {
	case *ast.VarDecl:
		g.genVarDecl(v)
	case *ast.FunctionDecl:
		g.genFunctionDecl(v)
	case *ast.ClassDecl:
		g.genClassDecl(v)
	case *ast.TaskDecl:
		g.genTaskDecl(v)
	case *ast.ExportDecl:
		g.genExportDecl(v)
	case *ast.StmtDecl:
		g.genStmt(v.Stmt)
	case *ast.InvalidDecl:
		// parser-recovery placeholder.
	}
}

func (g *Generator) genVarDecl(v *ast.VarDecl) {
	pos := posOf(v)
	var val Reg
	if v.Value != nil {
		val = g.genExpr(v.Value)
	} else {
		val = g.b.ReadConst(pos, Const{Kind: ast.LiteralNone})
	}
	if isGlobalLike(v.Symbol) {
		g.b.Emit(&DeclareSymbolStmt{base: base{OpDeclareSymbol, pos}, Sym: v.Symbol, Value: val})
	} else {
		g.b.WriteSymbol(pos, v.Symbol, val)
	}
}

func (g *Generator) genFunctionDecl(v *ast.FunctionDecl) {
	fs, ok := v.Symbol.(*symbols.FunctionSymbol)
	if !ok {
		return
	}
	params := paramSymbols(v.Params)
	vararg := v.Params != nil && v.Params.Vararg
	g.withFunction(fs.MangledName(), params, vararg, func() {
		g.genBlockBody(v.Body.Body)
	})
}

func (g *Generator) genExportDecl(v *ast.ExportDecl) {
	g.genDecl(v.Inner)
	name, val := g.exportNameValue(v.Inner)
	if name == "" {
		return
	}
	g.b.Emit(&ExportStmt{base: base{OpExport, posOf(v)}, Name: name, Value: val})
}

// exportNameValue names and, for a variable, reads the value an export
// record reports; a function/class/task has no runtime register of its own
// (spec §4.5.2 scenario "export wraps a declaration").
func (g *Generator) exportNameValue(d ast.Decl) (string, Reg) {
	switch v := d.(type) {
	case *ast.VarDecl:
		return v.Name.Name, g.b.ReadSymbol(posOf(v), v.Symbol)
	case *ast.FunctionDecl:
		return v.Name.Name, InvalidReg
	case *ast.ClassDecl:
		return v.Name.Name, InvalidReg
	case *ast.TaskDecl:
		return v.Name.Name, InvalidReg
	default:
		return "", InvalidReg
	}
}

// ----- classes -----

func (g *Generator) genClassDecl(v *ast.ClassDecl) {
	cs, ok := v.Symbol.(*symbols.ClassSymbol)
	if !ok {
		return
	}
	g.genClassCinit(v, cs)

	hasInit := false
	for _, m := range v.Members {
		if _, ok := m.(*ast.ClassInitDecl); ok {
			hasInit = true
			break
		}
	}
	if !hasInit && cs.BaseClass != nil {
		g.genSyntheticInit(cs)
	}
	for _, m := range v.Members {
		g.genClassMember(m, cs)
	}
}

// genClassCinit generates the class's static initializer: every field with
// an initializer expression, evaluated in declaration order (spec §4.4
// "<cinit>" synthesis).
func (g *Generator) genClassCinit(v *ast.ClassDecl, cs *symbols.ClassSymbol) {
	var fields []*ast.ClassFieldDecl
	for _, m := range v.Members {
		if f, ok := m.(*ast.ClassFieldDecl); ok && f.Value != nil {
			fields = append(fields, f)
		}
	}
	if len(fields) == 0 {
		return
	}
	name := cs.Name() + symbols.MemberSeparator + symbols.ClassInitializerName
	g.withFunction(name, nil, false, func() {
		for _, f := range fields {
			pos := posOf(f)
			val := g.genExpr(f.Value)
			g.b.Emit(&DeclareSymbolStmt{base: base{OpDeclareSymbol, pos}, Sym: f.Symbol, Value: val})
		}
	})
}

// genSyntheticInit builds the implicit zero-arg initializer a class with no
// explicit init but a base class still needs, calling only super.<init>()
// (spec §4.4 "class with no init").
func (g *Generator) genSyntheticInit(cs *symbols.ClassSymbol) {
	pos := token.Position{}
	self := symbols.NewVariable("self", pos, symbols.VarImplicit, true)
	self.MarkInitialized()
	sym := symbols.NewMethod(symbols.InitializerName, pos, 0, false, false, cs)
	cs.AddMethod(sym)
	g.withFunction(sym.MangledName(), []symbols.Symbol{self}, false, func() {
		selfReg := g.b.ReadSymbol(pos, self)
		g.b.Emit(&InvokeStmt{base: base{OpInvoke, pos}, Result: InvalidReg, Target: selfReg, Name: symbols.InitializerName})
	})
}

func (g *Generator) genClassMember(m ast.ClassMember, cs *symbols.ClassSymbol) {
	switch v := m.(type) {
	case *ast.ClassInitDecl:
		g.genClassInit(v, cs)
	case *ast.ClassDeinitDecl:
		g.genClassDeinit(v, cs)
	case *ast.ClassFieldDecl:
		// fully handled by genClassCinit.
	case *ast.ClassMethodDecl:
		g.genClassMethod(v, cs)
	case *ast.ClassPropertyDecl:
		g.genClassProperty(v, cs)
	}
}

func (g *Generator) genClassInit(d *ast.ClassInitDecl, cs *symbols.ClassSymbol) {
	sym, ok := d.Symbol.(*symbols.MethodSymbol)
	if !ok {
		return
	}
	self, _ := d.SelfSymbol.(*symbols.VariableSymbol)
	params := append([]symbols.Symbol{self}, paramSymbols(d.Params)...)
	vararg := d.Params != nil && d.Params.Vararg
	g.withFunction(sym.MangledName(), params, vararg, func() {
		if !d.InitializerCallSeen() && cs.BaseClass != nil {
			pos := posOf(d)
			selfReg := g.b.ReadSymbol(pos, self)
			g.b.Emit(&InvokeStmt{base: base{OpInvoke, pos}, Result: InvalidReg, Target: selfReg, Name: symbols.InitializerName})
		}
		g.genBlockBody(d.Body.Body)
	})
}

func (g *Generator) genClassDeinit(v *ast.ClassDeinitDecl, cs *symbols.ClassSymbol) {
	sym, ok := v.Symbol.(*symbols.MethodSymbol)
	if !ok {
		return
	}
	self, _ := v.SelfSymbol.(*symbols.VariableSymbol)
	g.withFunction(sym.MangledName(), []symbols.Symbol{self}, false, func() {
		g.genBlockBody(v.Body.Body)
	})
}

func (g *Generator) genClassMethod(v *ast.ClassMethodDecl, cs *symbols.ClassSymbol) {
	sym, ok := v.Symbol.(*symbols.MethodSymbol)
	if !ok {
		return
	}
	var params []symbols.Symbol
	if v.Decoration != ast.MethodStatic {
		if self, ok := v.SelfSymbol.(*symbols.VariableSymbol); ok {
			params = append(params, self)
		}
	}
	params = append(params, paramSymbols(v.Params)...)
	vararg := v.Params != nil && v.Params.Vararg
	g.withFunction(sym.MangledName(), params, vararg, func() {
		g.genBlockBody(v.Body.Body)
	})
}

func (g *Generator) genClassProperty(v *ast.ClassPropertyDecl, cs *symbols.ClassSymbol) {
	prop, ok := v.Symbol.(*symbols.PropertySymbol)
	if !ok {
		return
	}
	self, _ := v.SelfSymbol.(*symbols.VariableSymbol)
	params := []symbols.Symbol{self}
	var sym *symbols.MethodSymbol
	if v.Accessor == ast.AccessorSet {
		sym = prop.Setter
		if v.Param != nil {
			if ps, ok := v.Param.Symbol.(*symbols.VariableSymbol); ok {
				params = append(params, ps)
			}
		}
	} else {
		sym = prop.Getter
	}
	if sym == nil {
		return
	}
	g.withFunction(sym.MangledName(), params, false, func() {
		g.genBlockBody(v.Body.Body)
	})
}

// ----- tasks -----

func (g *Generator) genTaskDecl(v *ast.TaskDecl) {
	cs, ok := v.Symbol.(*symbols.ClassSymbol)
	if !ok {
		return
	}
	g.genTaskCinit(v, cs)
	g.genTaskInit(v, cs)
	for _, m := range v.Members {
		g.genTaskMember(m, cs)
	}
}

func (g *Generator) genTaskCinit(v *ast.TaskDecl, cs *symbols.ClassSymbol) {
	var props []*ast.TaskPropertyDecl
	for _, m := range v.Members {
		if p, ok := m.(*ast.TaskPropertyDecl); ok {
			props = append(props, p)
		}
	}
	if len(props) == 0 {
		return
	}
	name := cs.Name() + symbols.MemberSeparator + symbols.ClassInitializerName
	g.withFunction(name, nil, false, func() {
		for _, p := range props {
			pos := posOf(p)
			val := g.genExpr(p.Value)
			g.b.Emit(&DeclareSymbolStmt{base: base{OpDeclareSymbol, pos}, Sym: p.Symbol, Value: val})
		}
	})
}

// genTaskInit builds a task's always-synthesized `<init>$1(self, name)`,
// forwarding name to super.<init> and then desugaring the task's own
// inputs/outputs clauses to method calls against self (spec §4.4 task
// lowering; tasks never declare their own ClassInitDecl).
func (g *Generator) genTaskInit(v *ast.TaskDecl, cs *symbols.ClassSymbol) {
	pos := token.Position{}
	self := symbols.NewVariable("self", pos, symbols.VarImplicit, true)
	self.MarkInitialized()
	nameParam := symbols.NewVariable("name", pos, symbols.VarParameter, false)
	nameParam.MarkInitialized()
	sym := symbols.NewMethod(symbols.InitializerName, pos, 1, false, false, cs)
	cs.AddMethod(sym)

	g.withFunction(sym.MangledName(), []symbols.Symbol{self, nameParam}, false, func() {
		selfReg := g.b.ReadSymbol(pos, self)
		if cs.BaseClass != nil {
			nameReg := g.b.ReadSymbol(pos, nameParam)
			g.b.Emit(&InvokeStmt{base: base{OpInvoke, pos}, Result: InvalidReg, Target: selfReg, Name: symbols.InitializerName, Args: []Reg{nameReg}})
		}
		for _, m := range v.Members {
			switch mm := m.(type) {
			case *ast.TaskInputsDecl:
				pattern := g.genExpr(mm.Pattern)
				g.b.Emit(&InvokeStmt{base: base{OpInvoke, posOf(mm)}, Result: InvalidReg, Target: selfReg, Name: "Inputs", Args: []Reg{pattern}})
				if mm.Resolver != nil {
					resolver := g.genExpr(mm.Resolver)
					g.b.Emit(&InvokeStmt{base: base{OpInvoke, posOf(mm)}, Result: InvalidReg, Target: selfReg, Name: "Resolver", Args: []Reg{resolver}})
				}
			case *ast.TaskOutputsDecl:
				pattern := g.genExpr(mm.Pattern)
				if mm.From != nil {
					from := g.genExpr(mm.From)
					g.b.Emit(&InvokeStmt{base: base{OpInvoke, posOf(mm)}, Result: InvalidReg, Target: selfReg, Name: "Pattern", Args: []Reg{pattern, from}})
				} else {
					g.b.Emit(&InvokeStmt{base: base{OpInvoke, posOf(mm)}, Result: InvalidReg, Target: selfReg, Name: "Outputs", Args: []Reg{pattern}})
				}
			}
		}
	})
}

func (g *Generator) genTaskMember(m ast.TaskMember, cs *symbols.ClassSymbol) {
	if v, ok := m.(*ast.TaskActionDecl); ok {
		g.genTaskAction(v, cs)
	}
}

func (g *Generator) genTaskAction(v *ast.TaskActionDecl, cs *symbols.ClassSymbol) {
	sym, ok := v.Symbol.(*symbols.MethodSymbol)
	if !ok {
		return
	}
	var params []symbols.Symbol
	if self, ok := v.SelfSymbol.(*symbols.VariableSymbol); ok {
		params = append(params, self)
	}
	g.withFunction(sym.MangledName(), params, false, func() {
		g.genBlockBody(v.Body.Body)
	})
}

// ================================================================
// Statements
// ================================================================

func (g *Generator) genBlockBody(stmts []ast.Stmt) {
	for _, s := range stmts {
		if blockTerminated(g.b.Current()) {
			return
		}
		g.genStmt(s)
	}
}

func (g *Generator) genStmt(s ast.Stmt) {
	switch v := s.(type) {
	case *ast.DeclStmt:
		g.genDecl(v.Decl)
	case *ast.BlockStmt:
		g.genBlockBody(v.Body)
	case *ast.IfStmt:
		g.genIf(v)
	case *ast.MatchStmt:
		g.genMatch(v)
	case *ast.ForStmt:
		g.genFor(v)
	case *ast.WhileStmt:
		g.genWhile(v)
	case *ast.WithStmt:
		g.genWith(v)
	case *ast.TryStmt:
		g.genTry(v)
	case *ast.BreakStmt:
		g.genBreak(v)
	case *ast.ContinueStmt:
		g.genContinue(v)
	case *ast.ReturnStmt:
		g.genReturn(v)
	case *ast.AssertStmt:
		g.genAssert(v)
	case *ast.PassStmt:
		// no-op; every structured construct already auto-branches a
		// non-terminated block to its successor.
	case *ast.AssignStmt:
		g.genAssign(v)
	case *ast.ExprStmt:
		g.genExpr(v.Value)
	case *ast.InvalidStmt:
		// parser-recovery placeholder.
	}
}

func (g *Generator) genIf(v *ast.IfStmt) {
	pos := posOf(v)
	cond := g.genExpr(v.Cond)
	thenBlock := g.b.NewBlock()
	mergeBlock := g.b.NewBlock()
	elseBlock := mergeBlock
	if v.Else != nil {
		elseBlock = g.b.NewBlock()
	}
	g.b.EmitBrCond(pos, cond, thenBlock, elseBlock)
	g.b.SealBlock(thenBlock)
	if v.Else != nil {
		g.b.SealBlock(elseBlock)
	}

	g.b.SetBlock(thenBlock, false)
	g.genBlockBody(v.Then.Body)
	if !blockTerminated(g.b.Current()) {
		g.b.EmitBr(pos, mergeBlock)
	}

	if v.Else != nil {
		g.b.SetBlock(elseBlock, false)
		g.genStmt(v.Else)
		if !blockTerminated(g.b.Current()) {
			g.b.EmitBr(pos, mergeBlock)
		}
	}

	g.b.SetBlock(mergeBlock, false)
	g.b.SealBlock(mergeBlock)
}

// genMatch lowers a match statement to a JumpTable plus one block per arm
// (spec §4.5.2): an arm with no explicit `pass`/terminator falls through to
// the next arm, exactly like a continue into that arm's block.
func (g *Generator) genMatch(v *ast.MatchStmt) {
	pos := posOf(v)
	value := g.genExpr(v.Value)
	mergeBlock := g.b.NewBlock()

	armBlocks := make([]*BasicBlock, len(v.Arms))
	for i := range v.Arms {
		armBlocks[i] = g.b.NewBlock()
	}

	def := mergeBlock
	var cases []JumpCase
	for i, arm := range v.Arms {
		for _, lbl := range arm.Labels {
			if lbl.Kind == ast.LabelDefault {
				def = armBlocks[i]
				continue
			}
			cv, ok := lbl.EvaluatedCaseValue()
			if !ok || cv == nil {
				continue
			}
			cases = append(cases, JumpCase{
				Value:  Const{Kind: cv.Kind, I: cv.I, F: cv.F, B: cv.B, S: cv.S},
				Target: armBlocks[i],
			})
		}
	}
	g.b.EmitJumpTable(pos, value, def, cases)

	for i, arm := range v.Arms {
		g.b.SealBlock(armBlocks[i])
		g.b.SetBlock(armBlocks[i], false)
		next := mergeBlock
		if i+1 < len(armBlocks) {
			next = armBlocks[i+1]
		}
		g.loops = append(g.loops, loopFrame{breakTarget: mergeBlock, continueTarget: next})
		g.genBlockBody(arm.Body)
		g.loops = g.loops[:len(g.loops)-1]
		if !blockTerminated(g.b.Current()) {
			g.b.EmitBr(pos, next)
		}
	}

	g.b.SetBlock(mergeBlock, false)
	g.b.SealBlock(mergeBlock)
}

// genFor desugars `for x in e { body }` to `t := e; while t.HasNext { x :=
// t.Next; body }` (spec §4.5.2 desugaring table).
func (g *Generator) genFor(v *ast.ForStmt) {
	pos := posOf(v)
	iterSym := newTemp(pos)
	g.b.WriteSymbol(pos, iterSym, g.genExpr(v.Iterable))

	headerBlock := g.b.NewBlock()
	bodyBlock := g.b.NewBlock()
	mergeBlock := g.b.NewBlock()

	g.b.EmitBr(pos, headerBlock)
	g.b.SetBlock(headerBlock, false)
	hasNext := g.emitGetMember(pos, g.b.ReadSymbol(pos, iterSym), "HasNext")
	g.b.EmitBrCond(pos, hasNext, bodyBlock, mergeBlock)
	g.b.SealBlock(bodyBlock)

	g.b.SetBlock(bodyBlock, false)
	next := g.emitGetMember(pos, g.b.ReadSymbol(pos, iterSym), "Next")
	g.b.WriteSymbol(pos, v.VarSymbol, next)
	g.loops = append(g.loops, loopFrame{breakTarget: mergeBlock, continueTarget: headerBlock})
	g.genBlockBody(v.Body.Body)
	g.loops = g.loops[:len(g.loops)-1]
	if !blockTerminated(g.b.Current()) {
		g.b.EmitBr(pos, headerBlock)
	}
	g.b.SealBlock(headerBlock)

	g.b.SetBlock(mergeBlock, false)
	g.b.SealBlock(mergeBlock)
}

func (g *Generator) genWhile(v *ast.WhileStmt) {
	pos := posOf(v)
	headerBlock := g.b.NewBlock()
	bodyBlock := g.b.NewBlock()
	mergeBlock := g.b.NewBlock()

	g.b.EmitBr(pos, headerBlock)
	g.b.SetBlock(headerBlock, false)
	cond := g.genExpr(v.Cond)
	g.b.EmitBrCond(pos, cond, bodyBlock, mergeBlock)
	g.b.SealBlock(bodyBlock)

	g.b.SetBlock(bodyBlock, false)
	g.loops = append(g.loops, loopFrame{breakTarget: mergeBlock, continueTarget: headerBlock})
	g.genBlockBody(v.Body.Body)
	g.loops = g.loops[:len(g.loops)-1]
	if !blockTerminated(g.b.Current()) {
		g.b.EmitBr(pos, headerBlock)
	}
	g.b.SealBlock(headerBlock)

	g.b.SetBlock(mergeBlock, false)
	g.b.SealBlock(mergeBlock)
}

// genWith lowers `with e as x { body }` to: bind x to e, run the body, then
// invoke Close on x and continue after the statement (spec §4.5.2). No
// exception handler is registered for the body, so Close runs only when the
// body completes normally; a return, raise or break that leaves the body
// skips it.
func (g *Generator) genWith(v *ast.WithStmt) {
	pos := posOf(v)
	g.b.WriteSymbol(pos, v.VarSymbol, g.genExpr(v.Resource))

	tryBlock := g.b.NewBlock()
	finallyBlock := g.b.NewBlock()
	mergeBlock := g.b.NewBlock()

	g.b.EmitBr(pos, tryBlock)
	g.b.SealBlock(tryBlock)
	g.b.SetBlock(tryBlock, false)
	g.genBlockBody(v.Body.Body)
	if !blockTerminated(g.b.Current()) {
		g.b.EmitBr(pos, finallyBlock)
	}

	g.b.SealBlock(finallyBlock)
	g.b.SetBlock(finallyBlock, false)
	resReg := g.b.ReadSymbol(pos, v.VarSymbol)
	g.b.Emit(&InvokeStmt{base: base{OpInvoke, pos}, Result: InvalidReg, Target: resReg, Name: "Close"})
	if !blockTerminated(g.b.Current()) {
		g.b.EmitBr(pos, mergeBlock)
	}

	g.b.SetBlock(mergeBlock, false)
	g.b.SealBlock(mergeBlock)
}

// genTry lowers try/except/finally. Handler blocks are reached through an
// approximate exceptional edge rather than an ordinary branch, since the
// runtime is assumed to dispatch handlers out-of-band from the ExceptInfo
// PC-range table; the edge only exists so the handler stays reachable from
// entry for CFG-reachability purposes.
func (g *Generator) genTry(v *ast.TryStmt) {
	pos := posOf(v)
	tryBlock := g.b.NewBlock()
	mergeBlock := g.b.NewBlock()

	g.b.EmitBr(pos, tryBlock)
	g.b.SealBlock(tryBlock)
	g.b.SetBlock(tryBlock, false)
	g.genBlockBody(v.Body.Body)
	if !blockTerminated(g.b.Current()) {
		g.b.EmitBr(pos, mergeBlock)
	}

	info := ExceptInfo{Begin: tryBlock, End: tryBlock}
	for _, ex := range v.Excepts {
		handlerBlock := g.b.NewBlock()
		AddEdge(tryBlock, handlerBlock)
		g.b.SealBlock(handlerBlock)
		g.b.SetBlock(handlerBlock, false)

		exSym := symbols.NewVariable("<exception>", pos, symbols.VarImplicit, true)
		exSym.MarkInitialized()
		exReg := g.b.newReg()
		g.b.Emit(&LoadSymbolStmt{base: base{OpLoadSymbol, pos}, Result: exReg, Sym: exSym})
		if ex.Var != nil && ex.Symbol != nil {
			g.b.WriteSymbol(pos, ex.Symbol, exReg)
		}
		g.genBlockBody(ex.Body.Body)
		if !blockTerminated(g.b.Current()) {
			g.b.EmitBr(pos, mergeBlock)
		}

		var typeSym symbols.Symbol
		if ex.Type != nil {
			typeSym = symbols.NewType(ex.Type.Name, ex.Type.Range.Begin)
		}
		info.Handlers = append(info.Handlers, ExceptHandler{Block: handlerBlock, Type: typeSym})
	}

	if v.Finally != nil {
		finallyBlock := g.b.NewBlock()
		AddEdge(tryBlock, finallyBlock)
		g.b.SealBlock(finallyBlock)
		g.b.SetBlock(finallyBlock, false)
		g.genBlockBody(v.Finally.Body)
		if !blockTerminated(g.b.Current()) {
			g.b.Emit(&RaiseStmt{base: base{OpRaise, pos}, Value: InvalidReg})
		}
		info.Handlers = append(info.Handlers, ExceptHandler{Block: finallyBlock, Type: nil})
	}
	g.b.AddHandler(info)

	g.b.SetBlock(mergeBlock, false)
	g.b.SealBlock(mergeBlock)
}

// genGuarded implements the `stmt [if guard]` trailing-guard form shared by
// break/continue/return (spec §4.3): with no guard, thenFn runs inline;
// otherwise thenFn runs only on the true branch, and the false branch
// becomes the new current block for the caller to continue from.
func (g *Generator) genGuarded(pos token.Position, guard ast.Expr, thenFn func()) {
	if guard == nil {
		thenFn()
		return
	}
	cond := g.genExpr(guard)
	thenBlock := g.b.NewBlock()
	elseBlock := g.b.NewBlock()
	g.b.EmitBrCond(pos, cond, thenBlock, elseBlock)
	g.b.SealBlock(thenBlock)
	g.b.SealBlock(elseBlock)

	g.b.SetBlock(thenBlock, false)
	thenFn()

	g.b.SetBlock(elseBlock, false)
}

func (g *Generator) genBreak(v *ast.BreakStmt) {
	pos := posOf(v)
	if len(g.loops) == 0 {
		return
	}
	frame := g.loops[len(g.loops)-1]
	g.genGuarded(pos, v.Guard, func() {
		if v.Value != nil {
			g.genExpr(v.Value)
		}
		g.b.EmitBr(pos, frame.breakTarget)
	})
}

func (g *Generator) genContinue(v *ast.ContinueStmt) {
	pos := posOf(v)
	if len(g.loops) == 0 {
		return
	}
	frame := g.loops[len(g.loops)-1]
	g.genGuarded(pos, v.Guard, func() {
		g.b.EmitBr(pos, frame.continueTarget)
	})
}

func (g *Generator) genReturn(v *ast.ReturnStmt) {
	pos := posOf(v)
	g.genGuarded(pos, v.Guard, func() {
		val := InvalidReg
		if v.Value != nil {
			val = g.genExpr(v.Value)
		}
		g.b.Emit(&ReturnStmt{base: base{OpReturn, pos}, Value: val})
	})
}

// genAssert lowers `assert cond [: message]` to a non-terminal Assert
// reached only on failure, with an explicit Br back to the shared merge
// block afterward (spec §4.5.2: Assert never ends a block by itself).
func (g *Generator) genAssert(v *ast.AssertStmt) {
	pos := posOf(v)
	cond := g.genExpr(v.Cond)
	assertBlock := g.b.NewBlock()
	mergeBlock := g.b.NewBlock()
	g.b.EmitBrCond(pos, cond, mergeBlock, assertBlock)
	g.b.SealBlock(assertBlock)

	g.b.SetBlock(assertBlock, false)
	var msg Reg
	if v.Message != nil {
		msg = g.genExpr(v.Message)
	} else {
		msg = g.b.ReadConst(pos, Const{Kind: ast.LiteralString, S: "assertion failed."})
	}
	g.b.Emit(&AssertStmt{base: base{OpAssert, pos}, Cond: cond, Message: msg})
	g.b.EmitBr(pos, mergeBlock)

	g.b.SetBlock(mergeBlock, false)
	g.b.SealBlock(mergeBlock)
}

func assignOpToOp(op ast.AssignOp) Op {
	switch op {
	case ast.AssignAdd:
		return OpAdd
	case ast.AssignSub:
		return OpSub
	case ast.AssignMul:
		return OpMul
	case ast.AssignDiv:
		return OpDiv
	case ast.AssignMod:
		return OpMod
	case ast.AssignAnd:
		return OpAnd
	case ast.AssignOr:
		return OpOr
	case ast.AssignXor:
		return OpXor
	case ast.AssignShl:
		return OpShl
	case ast.AssignShr:
		return OpShr
	default:
		return OpAdd
	}
}

func (g *Generator) emitBinary(pos token.Position, op Op, lhs, rhs Reg) Reg {
	res := g.b.newReg()
	g.b.Emit(&BinaryStmt{base: base{op, pos}, Result: res, LHS: lhs, RHS: rhs})
	return res
}

func (g *Generator) emitGetMember(pos token.Position, target Reg, name string) Reg {
	res := g.b.newReg()
	g.b.Emit(&GetMemberStmt{base: base{OpGetMember, pos}, Result: res, Target: target, Name: name})
	return res
}

// genAssign evaluates each target's sub-expressions exactly once, even for
// a compound `op=` form, so a target like `list[next()] += 1` doesn't call
// `next()` twice (spec §4.4 assignment-target rules).
func (g *Generator) genAssign(v *ast.AssignStmt) {
	pos := posOf(v)
	switch target := v.Target.(type) {
	case *ast.VariableExpr:
		val := g.genExpr(v.Value)
		if v.Op != ast.AssignPlain {
			cur := g.b.ReadSymbol(pos, target.Symbol)
			val = g.emitBinary(pos, assignOpToOp(v.Op), cur, val)
		}
		if isGlobalLike(target.Symbol) {
			g.b.Emit(&StoreSymbolStmt{base: base{OpStoreSymbol, pos}, Sym: target.Symbol, Value: val})
		} else {
			g.b.WriteSymbol(pos, target.Symbol, val)
		}

	case *ast.MemberAccessExpr:
		tgt := g.genExpr(target.Target)
		val := g.genExpr(v.Value)
		if v.Op != ast.AssignPlain {
			cur := g.emitGetMember(pos, tgt, target.Name.Name)
			val = g.emitBinary(pos, assignOpToOp(v.Op), cur, val)
		}
		g.b.Emit(&SetMemberStmt{base: base{OpSetMember, pos}, Target: tgt, Name: target.Name.Name, Value: val})

	case *ast.SubscriptExpr:
		tgt := g.genExpr(target.Target)
		idx := g.genExpr(target.Index)
		val := g.genExpr(v.Value)
		if v.Op != ast.AssignPlain {
			res := g.b.newReg()
			g.b.Emit(&GetSubscriptStmt{base: base{OpGetSubscript, pos}, Result: res, Target: tgt, Index: idx})
			val = g.emitBinary(pos, assignOpToOp(v.Op), res, val)
		}
		g.b.Emit(&SetSubscriptStmt{base: base{OpSetSubscript, pos}, Target: tgt, Index: idx, Value: val})
	}
}

// ================================================================
// Expressions
// ================================================================

func binaryOp(op ast.BinaryOp) Op {
	switch op {
	case ast.OpMul:
		return OpMul
	case ast.OpDiv:
		return OpDiv
	case ast.OpMod:
		return OpMod
	case ast.OpAdd:
		return OpAdd
	case ast.OpSub:
		return OpSub
	case ast.OpShl:
		return OpShl
	case ast.OpShr:
		return OpShr
	case ast.OpBitAnd:
		return OpAnd
	case ast.OpBitXor:
		return OpXor
	case ast.OpBitOr:
		return OpOr
	default:
		return OpAdd
	}
}

func isRelational(op ast.BinaryOp) bool {
	switch op {
	case ast.OpLess, ast.OpLessEqual, ast.OpGreater, ast.OpGreaterEqual, ast.OpEqual, ast.OpNotEqual:
		return true
	default:
		return false
	}
}

func testKind(op ast.BinaryOp) TestKind {
	switch op {
	case ast.OpLess:
		return TestLess
	case ast.OpLessEqual:
		return TestLessOrEqual
	case ast.OpGreater:
		return TestGreater
	case ast.OpGreaterEqual:
		return TestGreaterOrEqual
	case ast.OpEqual:
		return TestEqual
	case ast.OpNotEqual:
		return TestNotEqual
	default:
		return TestEqual
	}
}

func (g *Generator) genExpr(e ast.Expr) Reg {
	pos := posOf(e)
	switch v := e.(type) {
	case *ast.LiteralExpr:
		return g.genLiteral(v)
	case *ast.VariableExpr:
		return g.b.ReadSymbol(pos, v.Symbol)
	case *ast.SelfExpr:
		return g.b.ReadSymbol(pos, v.Symbol)
	case *ast.SuperExpr:
		return g.b.ReadSymbol(pos, v.Symbol)
	case *ast.BinaryExpr:
		lhs := g.genExpr(v.LHS)
		rhs := g.genExpr(v.RHS)
		if isRelational(v.Op) {
			res := g.b.newReg()
			g.b.Emit(&TestStmt{base: base{OpTest, pos}, Result: res, Kind: testKind(v.Op), LHS: lhs, RHS: rhs})
			return res
		}
		return g.emitBinary(pos, binaryOp(v.Op), lhs, rhs)
	case *ast.LogicalExpr:
		return g.genLogical(v)
	case *ast.UnaryExpr:
		return g.genUnary(v)
	case *ast.DefinedExpr:
		return g.genDefined(v)
	case *ast.RaiseExpr:
		return g.genRaise(v)
	case *ast.TernaryExpr:
		return g.genTernary(v)
	case *ast.TypeTestExpr:
		return g.genTypeTest(v)
	case *ast.ContainmentTestExpr:
		return g.genContainment(v)
	case *ast.InvocationExpr:
		return g.genInvocation(v)
	case *ast.MemberAccessExpr:
		return g.genMemberAccess(v)
	case *ast.SubscriptExpr:
		return g.genSubscript(v)
	case *ast.ListExpr:
		return g.genList(v)
	case *ast.MapExpr:
		return g.genMap(v)
	case *ast.RangeExpr:
		return g.genRange(v)
	case *ast.ClosureExpr:
		return g.genClosure(v)
	case *ast.InvalidExpr:
		return InvalidReg
	default:
		return InvalidReg
	}
}

func (g *Generator) genLiteral(v *ast.LiteralExpr) Reg {
	pos := posOf(v)
	if v.Kind == ast.LiteralString && len(v.Interpolations) > 0 {
		template := g.b.ReadConst(pos, Const{Kind: ast.LiteralString, S: v.Image})
		args := make([]Reg, len(v.Interpolations))
		for i, part := range v.Interpolations {
			args[i] = g.genExpr(part)
		}
		res := g.b.newReg()
		g.b.Emit(&InvokeStmt{base: base{OpInvoke, pos}, Result: res, Target: template, Name: "Format", Args: args})
		return res
	}
	return g.b.ReadConst(pos, ConstFromLiteral(v.Kind, v.Image))
}

// genLogical desugars `and`/`or` to a short-circuit branch merged back
// through a synthetic temp, rather than a hand-built Select (spec §4.5.2).
func (g *Generator) genLogical(v *ast.LogicalExpr) Reg {
	pos := posOf(v)
	tmp := newTemp(pos)
	lhs := g.genExpr(v.LHS)
	g.b.WriteSymbol(pos, tmp, lhs)

	rhsBlock := g.b.NewBlock()
	mergeBlock := g.b.NewBlock()
	if v.Op == ast.LogicalAnd {
		g.b.EmitBrCond(pos, lhs, rhsBlock, mergeBlock)
	} else {
		g.b.EmitBrCond(pos, lhs, mergeBlock, rhsBlock)
	}
	g.b.SealBlock(rhsBlock)

	g.b.SetBlock(rhsBlock, false)
	g.b.WriteSymbol(pos, tmp, g.genExpr(v.RHS))
	g.b.EmitBr(pos, mergeBlock)

	g.b.SetBlock(mergeBlock, false)
	g.b.SealBlock(mergeBlock)
	return g.b.ReadSymbol(pos, tmp)
}

func (g *Generator) genTernary(v *ast.TernaryExpr) Reg {
	pos := posOf(v)
	tmp := newTemp(pos)
	cond := g.genExpr(v.Cond)
	thenBlock := g.b.NewBlock()
	elseBlock := g.b.NewBlock()
	mergeBlock := g.b.NewBlock()
	g.b.EmitBrCond(pos, cond, thenBlock, elseBlock)
	g.b.SealBlock(thenBlock)
	g.b.SealBlock(elseBlock)

	g.b.SetBlock(thenBlock, false)
	g.b.WriteSymbol(pos, tmp, g.genExpr(v.Then))
	g.b.EmitBr(pos, mergeBlock)

	g.b.SetBlock(elseBlock, false)
	g.b.WriteSymbol(pos, tmp, g.genExpr(v.Else))
	g.b.EmitBr(pos, mergeBlock)

	g.b.SetBlock(mergeBlock, false)
	g.b.SealBlock(mergeBlock)
	return g.b.ReadSymbol(pos, tmp)
}

func (g *Generator) genUnary(v *ast.UnaryExpr) Reg {
	pos := posOf(v)
	operand := g.genExpr(v.Operand)
	switch v.Op {
	case ast.UnaryPlus:
		return operand
	case ast.UnaryMinus:
		res := g.b.newReg()
		g.b.Emit(&UnaryStmt{base: base{OpNeg, pos}, Result: res, Operand: operand})
		return res
	case ast.UnaryBitNot, ast.UnaryNot:
		res := g.b.newReg()
		g.b.Emit(&UnaryStmt{base: base{OpNot, pos}, Result: res, Operand: operand})
		return res
	default:
		return operand
	}
}

func (g *Generator) genDefined(v *ast.DefinedExpr) Reg {
	pos := posOf(v)
	container := InvalidReg
	if v.In != nil {
		container = g.genExpr(v.In)
	}
	res := g.b.newReg()
	g.b.Emit(&DefinedStmt{base: base{OpDefined, pos}, Result: res, Sym: v.Symbol, Container: container})
	return res
}

// genRaise emits a terminal Raise mid-expression and returns InvalidReg;
// per-block DCE at Finalize drops whatever the caller still tries to emit
// into this now-dead block (spec §4.5.2 "raise as an expression").
func (g *Generator) genRaise(v *ast.RaiseExpr) Reg {
	pos := posOf(v)
	val := g.genExpr(v.Value)
	g.b.Emit(&RaiseStmt{base: base{OpRaise, pos}, Value: val})
	return InvalidReg
}

func (g *Generator) genTypeTest(v *ast.TypeTestExpr) Reg {
	pos := posOf(v)
	lhs := g.genExpr(v.Target)
	rhsReg := g.b.newReg()
	g.b.Emit(&LoadSymbolStmt{base: base{OpLoadSymbol, pos}, Result: rhsReg, Sym: v.Symbol})
	kind := TestInstance
	if v.Negate {
		kind = TestNotInstance
	}
	res := g.b.newReg()
	g.b.Emit(&TestStmt{base: base{OpTest, pos}, Result: res, Kind: kind, LHS: lhs, RHS: rhsReg})
	return res
}

// genContainment always reads Target as the container and Value as the
// element, regardless of `in`/`not in` surface spelling, and emits the Test
// with the container as its first operand (spec §9 open question, resolved
// in ContainmentTestExpr's own doc comment).
func (g *Generator) genContainment(v *ast.ContainmentTestExpr) Reg {
	pos := posOf(v)
	elem := g.genExpr(v.Value)
	container := g.genExpr(v.Target)
	kind := TestContain
	if v.Negate {
		kind = TestNotContain
	}
	res := g.b.newReg()
	g.b.Emit(&TestStmt{base: base{OpTest, pos}, Result: res, Kind: kind, LHS: container, RHS: elem})
	return res
}

func (g *Generator) genArgs(args []ast.CallArg) []Reg {
	out := make([]Reg, len(args))
	for i, a := range args {
		out[i] = g.genExpr(a.Value)
	}
	return out
}

// genInvocation picks Call vs Invoke by callee shape (spec §4.5.2 "Call vs
// Invoke dispatch"): a member-access callee, or a bare self()/super() call,
// lowers to Invoke; anything else is a direct Call against a callee value.
func (g *Generator) genInvocation(v *ast.InvocationExpr) Reg {
	pos := posOf(v)
	switch callee := v.Callee.(type) {
	case *ast.MemberAccessExpr:
		target := g.genExpr(callee.Target)
		args := g.genArgs(v.Args)
		res := g.b.newReg()
		g.b.Emit(&InvokeStmt{base: base{OpInvoke, pos}, Result: res, Target: target, Name: callee.Name.Name, Args: args})
		return res
	case *ast.SelfExpr:
		target := g.b.ReadSymbol(pos, callee.Symbol)
		args := g.genArgs(v.Args)
		res := g.b.newReg()
		g.b.Emit(&InvokeStmt{base: base{OpInvoke, pos}, Result: res, Target: target, Name: symbols.InitializerName, Args: args})
		return res
	case *ast.SuperExpr:
		target := g.b.ReadSymbol(pos, callee.Symbol)
		args := g.genArgs(v.Args)
		res := g.b.newReg()
		g.b.Emit(&InvokeStmt{base: base{OpInvoke, pos}, Result: res, Target: target, Name: symbols.InitializerName, Args: args})
		return res
	default:
		calleeReg := g.genExpr(v.Callee)
		args := g.genArgs(v.Args)
		res := g.b.newReg()
		g.b.Emit(&CallStmt{base: base{OpCall, pos}, Result: res, Callee: calleeReg, Args: args})
		return res
	}
}

func (g *Generator) genMemberAccess(v *ast.MemberAccessExpr) Reg {
	pos := posOf(v)
	target := g.genExpr(v.Target)
	return g.emitGetMember(pos, target, v.Name.Name)
}

func (g *Generator) genSubscript(v *ast.SubscriptExpr) Reg {
	pos := posOf(v)
	target := g.genExpr(v.Target)
	index := g.genExpr(v.Index)
	res := g.b.newReg()
	g.b.Emit(&GetSubscriptStmt{base: base{OpGetSubscript, pos}, Result: res, Target: target, Index: index})
	return res
}

func (g *Generator) genList(v *ast.ListExpr) Reg {
	pos := posOf(v)
	elems := make([]Reg, len(v.Elements))
	for i, e := range v.Elements {
		elems[i] = g.genExpr(e)
	}
	res := g.b.newReg()
	g.b.Emit(&MakeListStmt{base: base{OpMakeList, pos}, Result: res, Elements: elems})
	return res
}

func (g *Generator) genMap(v *ast.MapExpr) Reg {
	pos := posOf(v)
	pairs := make([]MapPair, len(v.Entries))
	for i, entry := range v.Entries {
		pairs[i] = MapPair{Key: g.genExpr(entry.Key), Value: g.genExpr(entry.Value)}
	}
	res := g.b.newReg()
	g.b.Emit(&MakeMapStmt{base: base{OpMakeMap, pos}, Result: res, Pairs: pairs})
	return res
}

// genRange lowers `begin...end` to a call against a synthesized global
// Range function; the catalog has no dedicated range-construction opcode.
func (g *Generator) genRange(v *ast.RangeExpr) Reg {
	pos := posOf(v)
	begin := g.genExpr(v.Begin)
	end := g.genExpr(v.End)
	callee := g.b.newReg()
	g.b.Emit(&LoadSymbolStmt{base: base{OpLoadSymbol, pos}, Result: callee, Sym: rangeSymbol})
	res := g.b.newReg()
	g.b.Emit(&CallStmt{base: base{OpCall, pos}, Result: res, Callee: callee, Args: []Reg{begin, end}})
	return res
}

func (g *Generator) genClosure(v *ast.ClosureExpr) Reg {
	pos := posOf(v)
	sym, ok := v.Symbol.(*symbols.ClosureSymbol)
	if !ok {
		return InvalidReg
	}
	params := paramSymbols(v.Params)
	vararg := v.Params != nil && v.Params.Vararg
	g.withFunction(sym.Name(), params, vararg, func() {
		g.genBlockBody(v.Body)
	})
	res := g.b.newReg()
	g.b.Emit(&MakeClosureStmt{base: base{OpMakeClosure, pos}, Result: res, Symbol: sym, Captures: v.BoundedLocals()})
	return res
}
