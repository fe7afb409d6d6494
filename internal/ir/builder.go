package ir

import (
	"fmt"

	"github.com/buildc-lang/buildc/internal/symbols"
	"github.com/buildc-lang/buildc/internal/token"
)

// Builder constructs one function/method/closure's IR in SSA form using the
// incomplete-φ algorithm of Braun et al., "Simple and Efficient Construction
// of Static Single Assignment Form" (spec §4.5.1).
type Builder struct {
	valueCounter uint32
	blockCounter int
	current      *BasicBlock

	blocks []*BasicBlock

	incompletePhis map[*BasicBlock]map[symbols.Symbol]*SelectStmt
	candidates     map[*BasicBlock][]*SelectStmt

	handlers []ExceptInfo
}

// NewBuilder creates an empty Builder for one function body.
func NewBuilder() *Builder {
	return &Builder{
		incompletePhis: map[*BasicBlock]map[symbols.Symbol]*SelectStmt{},
		candidates:     map[*BasicBlock][]*SelectStmt{},
	}
}

// NewBlock allocates a fresh, initially unsealed BasicBlock labeled L0, L1, ….
func (b *Builder) NewBlock() *BasicBlock {
	bb := newBasicBlock(fmt.Sprintf("L%d", b.blockCounter))
	b.blockCounter++
	b.blocks = append(b.blocks, bb)
	return bb
}

// Current returns the block currently receiving emitted statements.
func (b *Builder) Current() *BasicBlock { return b.current }

// SetBlock changes the insertion block, optionally sealing the block being
// left behind (spec §4.5.1 "set_block(b, seal?)").
func (b *Builder) SetBlock(bb *BasicBlock, sealPrevious bool) {
	if sealPrevious && b.current != nil {
		b.SealBlock(b.current)
	}
	b.current = bb
}

func (b *Builder) newReg() Reg {
	r := Reg(b.valueCounter)
	b.valueCounter++
	return r
}

// AddEdge records a CFG edge from `from` to `to`; callers emitting a
// branch-shaped statement must call this for each target so
// predecessor/successor links stay symmetric (spec §8 CFG reachability).
func AddEdge(from, to *BasicBlock) {
	from.Succs = append(from.Succs, to)
	to.Preds = append(to.Preds, from)
}

// Emit appends a non-branching statement to the current block and returns
// it; branch-shaped statements go through EmitBr/EmitBrCond/EmitJumpTable
// instead, since those also need to wire CFG edges.
func (b *Builder) Emit(s Stmt) Stmt {
	b.current.Stmts = append(b.current.Stmts, s)
	return s
}

// EmitBr appends an unconditional branch terminator and wires the edge.
func (b *Builder) EmitBr(pos token.Position, target *BasicBlock) {
	AddEdge(b.current, target)
	b.Emit(&BrStmt{base: base{OpBr, pos}, Target: target})
}

// EmitBrCond appends a conditional branch terminator and wires both edges.
func (b *Builder) EmitBrCond(pos token.Position, cond Reg, then, els *BasicBlock) {
	AddEdge(b.current, then)
	AddEdge(b.current, els)
	b.Emit(&BrCondStmt{base: base{OpBrCond, pos}, Cond: cond, Then: then, Else: els})
}

// EmitJumpTable appends a JumpTable terminator and wires every case plus
// the default edge.
func (b *Builder) EmitJumpTable(pos token.Position, value Reg, def *BasicBlock, cases []JumpCase) {
	AddEdge(b.current, def)
	for _, c := range cases {
		AddEdge(b.current, c.Target)
	}
	b.Emit(&JumpTableStmt{base: base{OpJumpTable, pos}, Value: value, Default: def, Cases: cases})
}

// ReadSymbol is the public entry point (spec §4.5.1 "read_symbol(src_pos,
// sym)"): a global symbol always loads fresh (globals aren't SSA-renamed,
// they round-trip through LoadSymbol/StoreSymbol like memory); a local is
// resolved through the per-block SSA cache.
func (b *Builder) ReadSymbol(pos token.Position, sym symbols.Symbol) Reg {
	if isGlobalLike(sym) {
		r := b.newReg()
		b.Emit(&LoadSymbolStmt{base: base{OpLoadSymbol, pos}, Result: r, Sym: sym})
		return r
	}
	return b.readSymbolInBlock(sym, b.current)
}

func isGlobalLike(sym symbols.Symbol) bool {
	vs, ok := sym.(*symbols.VariableSymbol)
	if !ok {
		return true
	}
	return !vs.VarKind.IsLocalStorage()
}

// readSymbolInBlock implements the internal recursive read_symbol(sym,
// block) (spec §4.5.1).
func (b *Builder) readSymbolInBlock(sym symbols.Symbol, block *BasicBlock) Reg {
	if v, ok := block.defined[sym]; ok {
		return v
	}
	if !block.sealed {
		sel := &SelectStmt{base: base{op: OpSelect}, Result: b.newReg(), Sym: sym}
		if b.incompletePhis[block] == nil {
			b.incompletePhis[block] = map[symbols.Symbol]*SelectStmt{}
		}
		b.incompletePhis[block][sym] = sel
		block.defined[sym] = sel.Result
		return sel.Result
	}
	if len(block.Preds) == 1 {
		v := b.readSymbolInBlock(sym, block.Preds[0])
		block.defined[sym] = v
		return v
	}
	sel := &SelectStmt{base: base{op: OpSelect}, Result: b.newReg(), Sym: sym}
	block.defined[sym] = sel.Result
	b.addPhiOperands(sel, sym, block)
	return b.tryRemoveTrivialPhi(sel, block)
}

func (b *Builder) addPhiOperands(sel *SelectStmt, sym symbols.Symbol, block *BasicBlock) {
	for _, pred := range block.Preds {
		v := b.readSymbolInBlock(sym, pred)
		sel.Preds = append(sel.Preds, pred)
		sel.Values = append(sel.Values, v)
	}
	b.candidates[block] = append(b.candidates[block], sel)
}

// tryRemoveTrivialPhi implements spec §4.5.1's simplification: a φ whose
// operands are all the same register (ignoring self-references) is
// rewritten away; a φ with no operands at all (an unreachable block) gets a
// synthetic LoadSymbol at the block head instead.
func (b *Builder) tryRemoveTrivialPhi(sel *SelectStmt, block *BasicBlock) Reg {
	same := InvalidReg
	trivial := true
	for _, v := range sel.Values {
		if v == sel.Result || v == same {
			continue
		}
		if same != InvalidReg {
			trivial = false
			break
		}
		same = v
	}
	if !trivial {
		return sel.Result
	}
	if same == InvalidReg {
		load := &LoadSymbolStmt{base: base{OpLoadSymbol, token.Position{}}, Result: sel.Result, Sym: sel.Sym}
		block.Stmts = append([]Stmt{load}, block.Stmts...)
		removeCandidate(b.candidates, block, sel)
		return sel.Result
	}
	b.replaceAllUses(block, sel, same)
	return same
}

// replaceAllUses rewrites every reference to sel.Result into replacement,
// across already-emitted statements, other blocks' SSA caches, and any φ
// that itself used sel as an operand (recursing into those per spec
// §4.5.1's "try_remove_trivial_phi ... Recurse into any φ that referenced
// the replaced value").
func (b *Builder) replaceAllUses(owner *BasicBlock, sel *SelectStmt, replacement Reg) {
	old := sel.Result
	removeCandidate(b.candidates, owner, sel)

	for _, blk := range b.blocks {
		for sym, v := range blk.defined {
			if v == old {
				blk.defined[sym] = replacement
			}
		}
		for _, s := range blk.Stmts {
			replaceRegInStmt(s, old, replacement)
		}
		for _, cand := range b.candidates[blk] {
			if cand == sel {
				continue
			}
			touched := false
			for i, v := range cand.Values {
				if v == old {
					cand.Values[i] = replacement
					touched = true
				}
			}
			if touched {
				b.tryRemoveTrivialPhi(cand, blk)
			}
		}
	}
}

func removeCandidate(candidates map[*BasicBlock][]*SelectStmt, owner *BasicBlock, sel *SelectStmt) {
	list := candidates[owner]
	for i, c := range list {
		if c == sel {
			candidates[owner] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// replaceRegInStmt rewrites every Reg-typed operand of s equal to old into
// replacement. Result registers are never rewritten (a definition keeps its
// own identity; only uses change).
func replaceRegInStmt(s Stmt, old, replacement Reg) {
	repl := func(r Reg) Reg {
		if r == old {
			return replacement
		}
		return r
	}
	switch v := s.(type) {
	case *StoreSymbolStmt:
		v.Value = repl(v.Value)
	case *DeclareSymbolStmt:
		v.Value = repl(v.Value)
	case *BinaryStmt:
		v.LHS, v.RHS = repl(v.LHS), repl(v.RHS)
	case *UnaryStmt:
		v.Operand = repl(v.Operand)
	case *DefinedStmt:
		v.Container = repl(v.Container)
	case *TestStmt:
		v.LHS, v.RHS = repl(v.LHS), repl(v.RHS)
	case *CallStmt:
		v.Callee = repl(v.Callee)
		for i, a := range v.Args {
			v.Args[i] = repl(a)
		}
	case *InvokeStmt:
		v.Target = repl(v.Target)
		for i, a := range v.Args {
			v.Args[i] = repl(a)
		}
	case *GetMemberStmt:
		v.Target = repl(v.Target)
	case *GetSubscriptStmt:
		v.Target, v.Index = repl(v.Target), repl(v.Index)
	case *SetMemberStmt:
		v.Target, v.Value = repl(v.Target), repl(v.Value)
	case *SetSubscriptStmt:
		v.Target, v.Index, v.Value = repl(v.Target), repl(v.Index), repl(v.Value)
	case *BrCondStmt:
		v.Cond = repl(v.Cond)
	case *JumpTableStmt:
		v.Value = repl(v.Value)
	case *ReturnStmt:
		v.Value = repl(v.Value)
	case *RaiseStmt:
		v.Value = repl(v.Value)
	case *AssertStmt:
		v.Cond, v.Message = repl(v.Cond), repl(v.Message)
	case *SelectStmt:
		for i, val := range v.Values {
			v.Values[i] = repl(val)
		}
	case *MakeListStmt:
		for i, e := range v.Elements {
			v.Elements[i] = repl(e)
		}
	case *MakeMapStmt:
		for i, p := range v.Pairs {
			v.Pairs[i].Key, v.Pairs[i].Value = repl(p.Key), repl(p.Value)
		}
	case *ExportStmt:
		v.Value = repl(v.Value)
	}
}

// SeedParams binds a function's incoming arguments to the first len(params)
// registers, in order, before any other value is allocated (spec §6.3 has
// no dedicated "load parameter" opcode, so the calling convention is that
// argument values occupy the low registers of the entry block by
// construction). Must be called once, immediately after SetBlock(entry,
// false), before generating the function body.
func (b *Builder) SeedParams(entry *BasicBlock, params []symbols.Symbol) {
	for i, p := range params {
		entry.defined[p] = Reg(i)
	}
	if uint32(len(params)) > b.valueCounter {
		b.valueCounter = uint32(len(params))
	}
}

// WriteSymbol implements spec §4.5.1 "write_symbol": update the current
// block's SSA cache, additionally emitting a StoreSymbol for a global.
func (b *Builder) WriteSymbol(pos token.Position, sym symbols.Symbol, val Reg) {
	b.current.defined[sym] = val
	if isGlobalLike(sym) {
		b.Emit(&StoreSymbolStmt{base: base{OpStoreSymbol, pos}, Sym: sym, Value: val})
	}
}

// ReadConst implements spec §4.5.1 "read_const": reuse an existing load of
// the same constant within the current block if one exists, else emit a
// fresh LoadConst and cache it.
func (b *Builder) ReadConst(pos token.Position, value Const) Reg {
	if r, ok := b.current.consts[value]; ok {
		return r
	}
	r := b.newReg()
	b.Emit(&LoadConstStmt{base: base{OpLoadConst, pos}, Result: r, Value: value})
	b.current.consts[value] = r
	return r
}

// SealBlock implements spec §4.5.1 "seal_block": resolve every φ left
// incomplete because the block's predecessor set wasn't known yet, then
// mark the block sealed.
func (b *Builder) SealBlock(block *BasicBlock) {
	for sym, sel := range b.incompletePhis[block] {
		b.addPhiOperands(sel, sym, block)
		b.tryRemoveTrivialPhi(sel, block)
	}
	delete(b.incompletePhis, block)
	block.sealed = true
}

// AddHandler appends one exception-handling region, built up as try/with
// statements are generated (spec §4.5.1 "handlers").
func (b *Builder) AddHandler(h ExceptInfo) {
	b.handlers = append(b.handlers, h)
}

// Finalize implements spec §4.5.1 "finalize()": per-block dead-code
// elimination after the first terminal, reverse-postorder block ordering
// from entry, re-inserting any φ that is still a genuine (non-trivial)
// candidate at the head of its block, and producing the CodeBlock.
func (b *Builder) Finalize(name string, args []symbols.Symbol, vararg bool, entry *BasicBlock) *CodeBlock {
	for _, blk := range b.blocks {
		for i, s := range blk.Stmts {
			if IsTerminal(s) {
				blk.Stmts = blk.Stmts[:i+1]
				break
			}
		}
	}
	for blk, phis := range b.candidates {
		for _, sel := range phis {
			if !stmtsContain(blk.Stmts, sel) {
				blk.Stmts = append([]Stmt{sel}, blk.Stmts...)
			}
		}
	}
	order := reversePostorder(entry)
	return &CodeBlock{Name: name, Blocks: order, Vararg: vararg, Handlers: b.handlers, Args: args}
}

func stmtsContain(stmts []Stmt, target Stmt) bool {
	for _, s := range stmts {
		if s == target {
			return true
		}
	}
	return false
}

// reversePostorder returns every block reachable from entry in reverse
// postorder (spec §4.5.1 finalize step 2; also spec §8's CFG reachability
// property, which this ordering is what makes dominator-friendly).
func reversePostorder(entry *BasicBlock) []*BasicBlock {
	visited := map[*BasicBlock]bool{}
	var post []*BasicBlock
	var visit func(*BasicBlock)
	visit = func(bb *BasicBlock) {
		if visited[bb] {
			return
		}
		visited[bb] = true
		for _, succ := range bb.Succs {
			visit(succ)
		}
		post = append(post, bb)
	}
	visit(entry)
	order := make([]*BasicBlock, len(post))
	for i, bb := range post {
		order[len(post)-1-i] = bb
	}
	return order
}
