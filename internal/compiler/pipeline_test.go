package compiler_test

import (
	"testing"

	"github.com/buildc-lang/buildc/internal/ast"
	"github.com/buildc-lang/buildc/internal/compiler"
	"github.com/buildc-lang/buildc/internal/diag"
	"github.com/buildc-lang/buildc/internal/token"
)

// TestCompileStageTokensStopsBeforeParsing verifies StageTokens never
// constructs a parser: Script stays nil even for a source a parser would
// accept.
func TestCompileStageTokensStopsBeforeParsing(t *testing.T) {
	// Given/When
	result, err := compiler.Compile("var x = 1 + 2", compiler.StageTokens, compiler.Options{})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	// Then: tokens were produced and end with EOF, but nothing downstream ran
	if len(result.Tokens) == 0 || result.Tokens[len(result.Tokens)-1].Kind != token.EOF {
		t.Fatalf("Tokens = %v, want a non-empty stream ending in EOF", result.Tokens)
	}
	if result.Script != nil {
		t.Errorf("Script = %v, want nil at StageTokens", result.Script)
	}
}

// TestCompileStageASTStopsBeforeSema verifies StageAST yields the parsed
// tree pre-semantic-decoration: Scope is nil even though the script would
// analyze cleanly.
func TestCompileStageASTStopsBeforeSema(t *testing.T) {
	result, err := compiler.Compile("var x = 1 + 2", compiler.StageAST, compiler.Options{})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	if result.Script == nil || len(result.Script.Body) != 1 {
		t.Fatalf("Script.Body = %v, want exactly one declaration", result.Script)
	}
	if _, ok := result.Script.Body[0].(*ast.VarDecl); !ok {
		t.Errorf("Script.Body[0] = %T, want *ast.VarDecl", result.Script.Body[0])
	}
	if result.Scope != nil {
		t.Errorf("Scope = %v, want nil at StageAST (sema not yet run)", result.Scope)
	}
	if result.CodeBlocks != nil {
		t.Errorf("CodeBlocks = %v, want nil at StageAST", result.CodeBlocks)
	}
}

// TestCompileFullPipelineAssemblesBytecode verifies a clean script reaches
// StageBytecode with no diagnostics and a non-empty instruction stream.
func TestCompileFullPipelineAssemblesBytecode(t *testing.T) {
	result, err := compiler.Compile("var x = 1 + 2", compiler.StageBytecode, compiler.Options{})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if result.HasErrors() {
		t.Fatalf("Diagnostics = %v, want none", result.Reporter.Diagnostics())
	}
	if len(result.CodeBlocks) == 0 {
		t.Fatal("CodeBlocks is empty, want at least the script's implicit init block")
	}
	if len(result.Assembled) != len(result.CodeBlocks) {
		t.Fatalf("len(Assembled) = %d, want %d (one per CodeBlock)", len(result.Assembled), len(result.CodeBlocks))
	}
	for i, a := range result.Assembled {
		if len(a.Bytecode) == 0 {
			t.Errorf("Assembled[%d].Bytecode is empty", i)
		}
	}
}

// TestCompileStopsBeforeIRWhenSemaReportsErrors verifies spec §7's
// requirement that IR generation never runs over an AST sema rejected.
func TestCompileStopsBeforeIRWhenSemaReportsErrors(t *testing.T) {
	result, err := compiler.Compile("var x = 1\nvar x = 2", compiler.StageBytecode, compiler.Options{})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if !result.HasErrors() {
		t.Fatal("HasErrors() = false, want true for a redefinition of x")
	}
	if result.CodeBlocks != nil {
		t.Errorf("CodeBlocks = %v, want nil once sema reports an error", result.CodeBlocks)
	}
	if result.Assembled != nil {
		t.Errorf("Assembled = %v, want nil once sema reports an error", result.Assembled)
	}
}

// TestCompileMaxErrorsStopsEarly verifies MaxErrors halts the pipeline at
// the first stage boundary where the reporter's diagnostic count reaches
// the limit, without needing to reach the requested Stage.
func TestCompileMaxErrorsStopsEarly(t *testing.T) {
	result, err := compiler.Compile("var x = 1\nvar x = 2\nvar x = 3", compiler.StageBytecode, compiler.Options{MaxErrors: 1})
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if len(result.Reporter.Diagnostics()) == 0 {
		t.Fatal("Diagnostics() is empty, want at least one redefinition error")
	}
	if result.CodeBlocks != nil {
		t.Errorf("CodeBlocks = %v, want nil once MaxErrors is reached", result.CodeBlocks)
	}
}

// TestResultHasErrorsReflectsReporter exercises Result.HasErrors directly
// against a Reporter holding only a warning, which must not count.
func TestResultHasErrorsReflectsReporter(t *testing.T) {
	rep := diag.NewReporter(nil)
	rep.Warn(diag.KindRedundantKeyword, token.Position{}, "redundant")
	result := &compiler.Result{Reporter: rep}
	if result.HasErrors() {
		t.Error("HasErrors() = true for a warning-only reporter, want false")
	}
}
