package ir_test

import (
	"testing"

	"github.com/buildc-lang/buildc/internal/diag"
	"github.com/buildc-lang/buildc/internal/ir"
	"github.com/buildc-lang/buildc/internal/lexer"
	"github.com/buildc-lang/buildc/internal/parser"
	"github.com/buildc-lang/buildc/internal/sema"
	"github.com/buildc-lang/buildc/internal/source"
)

// TestGenerateScriptLowersGlobalVarDecl matches the worked example from
// spec §8 scenario 1: `var x = 1 + 2` lowers to
// `%0 = LoadConst 1; %1 = LoadConst 2; %2 = Add %0 %1; DeclareSymbol x, %2; Return`.
func TestGenerateScriptLowersGlobalVarDecl(t *testing.T) {
	rep := diag.NewReporter(nil)
	text := source.New("var x = 1 + 2")
	p := parser.New(text, lexer.New(text, rep), rep)
	script := p.ParseScript()
	sema.Analyze(script, rep)
	if rep.HasErrors() {
		t.Fatalf("diagnostics = %v, want none", rep.Diagnostics())
	}

	blocks := ir.NewGenerator().GenerateScript(script)
	if len(blocks) == 0 {
		t.Fatal("GenerateScript returned no CodeBlocks")
	}
	scriptBlock := blocks[0]
	if scriptBlock.Name != "<script>" {
		t.Errorf("blocks[0].Name = %q, want %q", scriptBlock.Name, "<script>")
	}
	if len(scriptBlock.Blocks) == 0 {
		t.Fatal("script CodeBlock has no basic blocks")
	}

	stmts := scriptBlock.Blocks[0].Stmts
	var ops []ir.Op
	for _, s := range stmts {
		ops = append(ops, s.Op())
	}
	want := []ir.Op{ir.OpLoadConst, ir.OpLoadConst, ir.OpAdd, ir.OpDeclareSymbol, ir.OpReturn}
	if len(ops) != len(want) {
		t.Fatalf("ops = %v, want %v", ops, want)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Errorf("ops[%d] = %v, want %v", i, ops[i], want[i])
		}
	}

	add, ok := stmts[2].(*ir.BinaryStmt)
	if !ok {
		t.Fatalf("stmts[2] = %T, want *ir.BinaryStmt", stmts[2])
	}
	load0, ok := stmts[0].(*ir.LoadConstStmt)
	if !ok {
		t.Fatalf("stmts[0] = %T, want *ir.LoadConstStmt", stmts[0])
	}
	load1, ok := stmts[1].(*ir.LoadConstStmt)
	if !ok {
		t.Fatalf("stmts[1] = %T, want *ir.LoadConstStmt", stmts[1])
	}
	if add.LHS != load0.Result || add.RHS != load1.Result {
		t.Errorf("Add operands = (%v, %v), want (%v, %v)", add.LHS, add.RHS, load0.Result, load1.Result)
	}

	decl, ok := stmts[3].(*ir.DeclareSymbolStmt)
	if !ok {
		t.Fatalf("stmts[3] = %T, want *ir.DeclareSymbolStmt", stmts[3])
	}
	if decl.Value != add.Result {
		t.Errorf("DeclareSymbol value = %v, want Add's result %v", decl.Value, add.Result)
	}
	if decl.Sym.MangledName() != "x" {
		t.Errorf("DeclareSymbol name = %q, want %q", decl.Sym.MangledName(), "x")
	}
}

// TestIsTerminalRecognizesEveryTerminatorKind exercises IsTerminal across
// all five terminal opcodes and one non-terminal, grounding the spec §3.6
// invariant that every basic block ends with exactly one terminator.
func TestIsTerminalRecognizesEveryTerminatorKind(t *testing.T) {
	block := &ir.BasicBlock{Label: "b"}
	cases := []struct {
		name string
		stmt ir.Stmt
		want bool
	}{
		{"Br", &ir.BrStmt{Target: block}, true},
		{"BrCond", &ir.BrCondStmt{Then: block, Else: block}, true},
		{"JumpTable", &ir.JumpTableStmt{Default: block}, true},
		{"Return", &ir.ReturnStmt{Value: ir.InvalidReg}, true},
		{"Raise", &ir.RaiseStmt{Value: ir.InvalidReg}, true},
		{"Binary", &ir.BinaryStmt{}, false},
	}
	for _, c := range cases {
		if got := ir.IsTerminal(c.stmt); got != c.want {
			t.Errorf("IsTerminal(%s) = %v, want %v", c.name, got, c.want)
		}
	}
}
