package sema_test

import (
	"testing"

	"github.com/buildc-lang/buildc/internal/ast"
	"github.com/buildc-lang/buildc/internal/diag"
	"github.com/buildc-lang/buildc/internal/lexer"
	"github.com/buildc-lang/buildc/internal/parser"
	"github.com/buildc-lang/buildc/internal/sema"
	"github.com/buildc-lang/buildc/internal/source"
)

func parseScript(t *testing.T, src string, rep *diag.Reporter) *ast.Script {
	t.Helper()
	text := source.New(src)
	p := parser.New(text, lexer.New(text, rep), rep)
	return p.ParseScript()
}

// TestAnalyzeAcceptsCleanGlobalDeclaration verifies a single top-level `var`
// analyzes with no diagnostics, per spec §8 scenario 1.
func TestAnalyzeAcceptsCleanGlobalDeclaration(t *testing.T) {
	rep := diag.NewReporter(nil)
	script := parseScript(t, "var x = 1 + 2", rep)
	if rep.HasErrors() {
		t.Fatalf("parse diagnostics = %v, want none", rep.Diagnostics())
	}

	scope := sema.Analyze(script, rep)

	if rep.HasErrors() {
		t.Errorf("Analyze diagnostics = %v, want none", rep.Diagnostics())
	}
	if scope == nil {
		t.Fatal("Analyze() returned a nil scope")
	}
}

// TestAnalyzeReportsRedefinition verifies declaring the same global name
// twice is flagged as a redefinition rather than silently shadowing.
func TestAnalyzeReportsRedefinition(t *testing.T) {
	rep := diag.NewReporter(nil)
	script := parseScript(t, "var x = 1\nvar x = 2", rep)
	if rep.HasErrors() {
		t.Fatalf("parse diagnostics = %v, want none", rep.Diagnostics())
	}

	sema.Analyze(script, rep)

	if !rep.HasErrors() {
		t.Fatal("Analyze diagnostics has no errors, want a redefinition error")
	}
	found := false
	for _, d := range rep.Diagnostics() {
		if d.Kind == diag.KindRedefinition {
			found = true
		}
	}
	if !found {
		t.Errorf("Diagnostics = %v, want one KindRedefinition", rep.Diagnostics())
	}
}
