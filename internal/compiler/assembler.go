package compiler

import (
	"math"

	"github.com/buildc-lang/buildc/internal/ast"
	"github.com/buildc-lang/buildc/internal/bytecode"
	"github.com/buildc-lang/buildc/internal/diag"
	"github.com/buildc-lang/buildc/internal/ir"
	"github.com/buildc-lang/buildc/internal/symbols"
	"github.com/buildc-lang/buildc/internal/token"
)

// HandlerArm is one `(handler block, exception type)` entry of a
// HandlerRange; TypeName is empty for a catch-all/re-raise handler.
type HandlerArm struct {
	Block    *bytecode.Label
	TypeName string
}

// HandlerRange describes one protected region's byte extent and handlers.
// Neither spec.md §6.4/§6.5 nor the original BytecodeWriter define a wire
// format for exception tables (only label bookkeeping hooks exist), so
// this is exposed as plain Go data on AssembledCode rather than an
// invented byte encoding; a future component serializing a full module
// (not just one function's instruction stream) owns turning this into
// bytes, the way ScriptCode owned it in the original implementation.
type HandlerRange struct {
	Begin, End *bytecode.Label
	Handlers   []HandlerArm
}

// AssembledCode is one CodeBlock's fully assembled form: an instruction
// stream, the constant pool it indexes into, and the line-info/handler
// metadata that ride alongside it without being part of the stream itself.
type AssembledCode struct {
	Name     string
	Bytecode []byte
	Consts   []ir.Const
	Lines    []bytecode.LineEntry
	Handlers []HandlerRange
	Vararg   bool
	NumArgs  int
}

// asmCtx threads the writer, constant pool, and a synthetic-temp-register
// allocator through one CodeBlock's emission. Temps are only needed by
// JumpTableStmt's non-integer-case fallback (see emitJumpTable) and are
// seeded above every register the generator itself assigned, so they can
// never alias a real value.
type asmCtx struct {
	w       *bytecode.Writer
	pool    *ConstPool
	nextTmp ir.Reg
}

func (c *asmCtx) newTemp() ir.Reg {
	r := c.nextTmp
	c.nextTmp++
	return r
}

func (c *asmCtx) nameIndex(sym symbols.Symbol) uint16 {
	return c.pool.InternName(sym.MangledName())
}

func nameConst(name string) ir.Const {
	return ir.Const{Kind: ast.LiteralString, S: name}
}

// Assemble assembles one CodeBlock's basic blocks into flat bytecode,
// interning every constant/name operand into a fresh ConstPool. cb.Blocks
// is already in reverse-postorder (ir.Builder.Finalize), so a single
// linear pass correctly places every label before any backward branch
// needs it and registers every forward one before it is first referenced.
func Assemble(cb *ir.CodeBlock, rep *diag.Reporter) *AssembledCode {
	w := bytecode.NewWriter(rep)
	ctx := &asmCtx{w: w, pool: NewConstPool(), nextTmp: maxRegUsed(cb) + 1}

	for _, block := range cb.Blocks {
		w.RegisterLabel(block)
		for _, stmt := range block.Stmts {
			ctx.emitStmt(stmt)
		}
		w.EndLabel(block)
	}

	handlers := make([]HandlerRange, len(cb.Handlers))
	for i, h := range cb.Handlers {
		arms := make([]HandlerArm, len(h.Handlers))
		for j, arm := range h.Handlers {
			typeName := ""
			if arm.Type != nil {
				typeName = arm.Type.MangledName()
			}
			arms[j] = HandlerArm{Block: w.GetLabel(arm.Block), TypeName: typeName}
		}
		handlers[i] = HandlerRange{Begin: w.GetLabel(h.Begin), End: w.GetLabel(h.End), Handlers: arms}
	}

	return &AssembledCode{
		Name:     cb.Name,
		Bytecode: w.Build(),
		Consts:   ctx.pool.Entries(),
		Lines:    w.GetLineInfo(),
		Handlers: handlers,
		Vararg:   cb.Vararg,
		NumArgs:  len(cb.Args),
	}
}

func (c *asmCtx) emitStmt(s ir.Stmt) {
	w, pos := c.w, s.Pos()
	switch v := s.(type) {
	case *ir.LoadConstStmt:
		w.WriteRegIndex(pos, v.Op(), v.Result, c.pool.Intern(v.Value))
	case *ir.LoadSymbolStmt:
		w.WriteRegIndex(pos, v.Op(), v.Result, c.nameIndex(v.Sym))
	case *ir.StoreSymbolStmt:
		w.WriteRegIndex(pos, v.Op(), v.Value, c.nameIndex(v.Sym))
	case *ir.DeclareSymbolStmt:
		w.WriteRegIndex(pos, v.Op(), v.Value, c.nameIndex(v.Sym))
	case *ir.BinaryStmt:
		w.WriteRegRegReg(pos, v.Op(), v.Result, v.LHS, v.RHS)
	case *ir.UnaryStmt:
		w.WriteRegReg(pos, v.Op(), v.Result, v.Operand)
	case *ir.DefinedStmt:
		// v.Container truncates to byte(ir.InvalidReg) == 0xFF when there is
		// no `in` clause, which is exactly the "no container" sentinel a
		// single-byte register operand would need anyway.
		w.WriteRegRegIndex(pos, v.Op(), v.Result, v.Container, c.nameIndex(v.Sym))
	case *ir.TestStmt:
		w.WriteTest(pos, v.Op(), v.Kind, v.Result, v.LHS, v.RHS)
	case *ir.CallStmt:
		w.WriteRegRegIndex(pos, v.Op(), v.Result, v.Callee, uint16(len(v.Args)))
		w.WriteRegList(v.Args)
	case *ir.InvokeStmt:
		w.WriteRegRegIndex(pos, v.Op(), v.Result, v.Target, c.pool.InternName(v.Name))
		w.WriteArgCount(len(v.Args))
		w.WriteRegList(v.Args)
	case *ir.GetMemberStmt:
		w.WriteRegRegIndex(pos, v.Op(), v.Result, v.Target, c.pool.InternName(v.Name))
	case *ir.SetMemberStmt:
		w.WriteRegRegIndex(pos, v.Op(), v.Target, v.Value, c.pool.InternName(v.Name))
	case *ir.GetSubscriptStmt:
		w.WriteRegRegReg(pos, v.Op(), v.Result, v.Target, v.Index)
	case *ir.SetSubscriptStmt:
		w.WriteRegRegReg(pos, v.Op(), v.Target, v.Index, v.Value)
	case *ir.BrStmt:
		w.WriteBr(pos, v.Op(), w.GetLabel(v.Target))
	case *ir.BrCondStmt:
		// The IR carries two targets, but the record shape has room for
		// only one relative offset: branch on true, fall into an explicit
		// unconditional branch to Else otherwise.
		w.WriteBrCond(pos, v.Op(), v.Cond, w.GetLabel(v.Then))
		w.WriteBr(pos, ir.OpBr, w.GetLabel(v.Else))
	case *ir.JumpTableStmt:
		c.emitJumpTable(v)
	case *ir.ReturnStmt:
		c.emitOptionalReg(pos, v.Op(), v.Value)
	case *ir.RaiseStmt:
		c.emitOptionalReg(pos, v.Op(), v.Value)
	case *ir.AssertStmt:
		w.WriteRegReg(pos, v.Op(), v.Cond, v.Message)
	case *ir.SelectStmt:
		entries := make([]bytecode.SelectEntry, len(v.Preds))
		for i, p := range v.Preds {
			entries[i] = bytecode.SelectEntry{Pred: w.GetLabel(p), Value: v.Values[i]}
		}
		w.WriteSelect(pos, v.Op(), v.Result, entries)
	case *ir.MakeListStmt:
		w.WriteRegIndex(pos, v.Op(), v.Result, uint16(len(v.Elements)))
		w.WriteRegList(v.Elements)
	case *ir.MakeMapStmt:
		w.WriteRegIndex(pos, v.Op(), v.Result, uint16(len(v.Pairs)))
		w.WriteRegList(flattenPairs(v.Pairs))
	case *ir.MakeClosureStmt:
		w.WriteRegIndex(pos, v.Op(), v.Result, c.nameIndex(v.Symbol))
		w.WriteArgCount(len(v.Captures))
		w.WriteIndexList(c.captureIndices(v.Captures))
	case *ir.ImportStmt:
		w.WriteIndex(pos, v.Op(), c.pool.InternName(v.Name))
	case *ir.ExportStmt:
		w.WriteRegIndex(pos, v.Op(), v.Value, c.pool.InternName(v.Name))
	default:
		panic("compiler: unhandled ir.Stmt in emitStmt")
	}
}

// emitOptionalReg emits a bare opcode for a Return/Raise with no value
// (ir.InvalidReg), or the reg-carrying shape otherwise.
func (c *asmCtx) emitOptionalReg(pos token.Position, op ir.Op, value ir.Reg) {
	if value == ir.InvalidReg {
		c.w.WriteOp(pos, op)
		return
	}
	c.w.WriteReg(pos, op, value)
}

func flattenPairs(pairs []ir.MapPair) []ir.Reg {
	out := make([]ir.Reg, 0, len(pairs)*2)
	for _, p := range pairs {
		out = append(out, p.Key, p.Value)
	}
	return out
}

func (c *asmCtx) captureIndices(captures []symbols.Symbol) []uint16 {
	out := make([]uint16, len(captures))
	for i, sym := range captures {
		out[i] = c.nameIndex(sym)
	}
	return out
}

// jumpTableValue reports whether c can be encoded directly in a JumpTable
// record's bare u16 value slot (spec §6.4 gives JumpTable no pool
// indirection, unlike every other operand-carrying record). Integers in
// range and booleans can; floats, strings, and none cannot, and fall back
// to an explicit equality-test guard chain emitted ahead of the table (see
// emitJumpTable).
func jumpTableValue(c ir.Const) (uint16, bool) {
	switch c.Kind {
	case ast.LiteralInteger:
		if c.I < 0 || c.I > math.MaxUint16 {
			return 0, false
		}
		return uint16(c.I), true
	case ast.LiteralBoolean:
		if c.B {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// emitJumpTable lowers a match dispatch. Cases whose value fits the
// record's bare u16 slot go straight into one JumpTable record; any other
// case (a float/string/none match arm) is instead checked by an explicit
// LoadConst+Test(Equal)+BrCond guard emitted before the table, the way a
// sparse or non-integer switch lowers to an if/else chain in a real
// compiler. A guard that doesn't fire falls through to the next guard, and
// finally into the table, which still ends at the original Default block.
func (c *asmCtx) emitJumpTable(v *ir.JumpTableStmt) {
	w, pos := c.w, v.Pos()

	var direct []bytecode.JumpEntry
	for _, kase := range v.Cases {
		if val, ok := jumpTableValue(kase.Value); ok {
			direct = append(direct, bytecode.JumpEntry{Value: val, Target: w.GetLabel(kase.Target)})
			continue
		}

		constReg := c.newTemp()
		testReg := c.newTemp()
		w.WriteRegIndex(pos, ir.OpLoadConst, constReg, c.pool.Intern(kase.Value))
		w.WriteTest(pos, ir.OpTest, ir.TestEqual, testReg, v.Value, constReg)
		w.WriteBrCond(pos, ir.OpBrCond, testReg, w.GetLabel(kase.Target))
	}

	w.WriteJumpTable(pos, v.Op(), v.Value, w.GetLabel(v.Default), direct)
}

// maxRegUsed scans every real register operand a CodeBlock's statements
// reference and returns the largest one seen (ir.InvalidReg is excluded:
// it marks "no value", not a register the generator actually allocated).
// Synthetic temps the assembler itself needs (emitJumpTable's fallback
// guards) are allocated starting one above this, so they can never collide
// with a register the generator assigned meaning to.
func maxRegUsed(cb *ir.CodeBlock) ir.Reg {
	var max ir.Reg
	note := func(r ir.Reg) {
		if r != ir.InvalidReg && r > max {
			max = r
		}
	}
	for _, block := range cb.Blocks {
		for _, s := range block.Stmts {
			switch v := s.(type) {
			case *ir.LoadConstStmt:
				note(v.Result)
			case *ir.LoadSymbolStmt:
				note(v.Result)
			case *ir.StoreSymbolStmt:
				note(v.Value)
			case *ir.DeclareSymbolStmt:
				note(v.Value)
			case *ir.BinaryStmt:
				note(v.Result)
				note(v.LHS)
				note(v.RHS)
			case *ir.UnaryStmt:
				note(v.Result)
				note(v.Operand)
			case *ir.DefinedStmt:
				note(v.Result)
				note(v.Container)
			case *ir.TestStmt:
				note(v.Result)
				note(v.LHS)
				note(v.RHS)
			case *ir.CallStmt:
				note(v.Result)
				note(v.Callee)
				for _, a := range v.Args {
					note(a)
				}
			case *ir.InvokeStmt:
				note(v.Result)
				note(v.Target)
				for _, a := range v.Args {
					note(a)
				}
			case *ir.GetMemberStmt:
				note(v.Result)
				note(v.Target)
			case *ir.SetMemberStmt:
				note(v.Target)
				note(v.Value)
			case *ir.GetSubscriptStmt:
				note(v.Result)
				note(v.Target)
				note(v.Index)
			case *ir.SetSubscriptStmt:
				note(v.Target)
				note(v.Index)
				note(v.Value)
			case *ir.BrCondStmt:
				note(v.Cond)
			case *ir.JumpTableStmt:
				note(v.Value)
			case *ir.ReturnStmt:
				note(v.Value)
			case *ir.RaiseStmt:
				note(v.Value)
			case *ir.AssertStmt:
				note(v.Cond)
				note(v.Message)
			case *ir.SelectStmt:
				note(v.Result)
				for _, r := range v.Values {
					note(r)
				}
			case *ir.MakeListStmt:
				note(v.Result)
				for _, r := range v.Elements {
					note(r)
				}
			case *ir.MakeMapStmt:
				note(v.Result)
				for _, p := range v.Pairs {
					note(p.Key)
					note(p.Value)
				}
			case *ir.MakeClosureStmt:
				note(v.Result)
			case *ir.ExportStmt:
				note(v.Value)
			}
		}
	}
	return max
}
