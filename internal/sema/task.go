package sema

import (
	"github.com/buildc-lang/buildc/internal/ast"
	"github.com/buildc-lang/buildc/internal/diag"
	"github.com/buildc-lang/buildc/internal/symbols"
)

// reservedTaskPropertyNames collides with the fixed vocabulary a task
// declaration already uses (spec §4.4: a task property may not shadow one
// of the built-in clause names).
var reservedTaskPropertyNames = map[string]bool{
	"name": true, "dependsOn": true, "extends": true, "inputs": true, "outputs": true,
}

// analyzeTaskDecl builds a task's ClassSymbol (tasks desugar to a class per
// spec §4.5.2: reusing ClassSymbol with IsTask set) and walks every member.
func (a *SemanticAnalyzer) analyzeTaskDecl(d *ast.TaskDecl) {
	sym, ok := a.hoisted[d].(*symbols.ClassSymbol)
	if !ok {
		sym = symbols.NewClass(d.Name.Name, d.Name.Range.Begin, true)
		a.declare(d.Name, sym, 0, false)
	}
	d.SetSymbol(sym)

	if d.Extends != nil {
		a.linkBaseClass(d.Name, d.Extends, sym)
	}
	for _, dep := range d.DependsOn {
		if dep.Name == d.Name.Name {
			a.rep.Report(diag.KindDependsOnSelf, dep.Range.Begin, "task cannot depend on itself")
			continue
		}
		if _, ok := a.resolveNamed(dep.Name); !ok {
			a.rep.Report(diag.KindUsedBeforeDeclare, dep.Range.Begin, "undeclared task %s", dep.Name)
		}
	}

	var sawInputs, sawOutputs bool
	names := map[string]bool{}
	for _, m := range d.Members {
		a.preDeclareTaskMember(m, sym, names, &sawInputs, &sawOutputs)
	}

	child := a.decl.NewClassScope()
	a.withDeclScope(child, func() {
		for _, m := range d.Members {
			a.analyzeTaskMember(m, sym)
		}
	})
}

func actionMethodName(kind ast.TaskActionKind) string {
	switch kind {
	case ast.ActionDoFirst:
		return symbols.DoFirstClauseName
	case ast.ActionDoLast:
		return symbols.DoLastClauseName
	default:
		return symbols.DoClauseName
	}
}

func (a *SemanticAnalyzer) preDeclareTaskMember(m ast.TaskMember, owner *symbols.ClassSymbol, names map[string]bool, sawInputs, sawOutputs *bool) {
	switch v := m.(type) {
	case *ast.TaskActionDecl:
		name := actionMethodName(v.Action)
		if owner.LookupMethod(name, 0, false) != nil {
			a.rep.Report(diag.KindRedefinition, v.Range().Begin, "duplicate %s clause", name)
		}
		sym := symbols.NewMethod(name, v.Range().Begin, 0, false, false, owner)
		owner.AddMethod(sym)
		v.SetSymbol(sym)
	case *ast.TaskInputsDecl:
		if *sawInputs {
			a.rep.Report(diag.KindDuplicateInputs, v.Range().Begin, "a task may declare only one 'inputs' clause")
		}
		*sawInputs = true
	case *ast.TaskOutputsDecl:
		if *sawOutputs {
			a.rep.Report(diag.KindDuplicateOutputs, v.Range().Begin, "a task may declare only one 'outputs' clause")
		}
		*sawOutputs = true
	case *ast.TaskPropertyDecl:
		if reservedTaskPropertyNames[v.Name.Name] {
			a.rep.Report(diag.KindReservedIdentifier, v.Name.Range.Begin, "%s is a reserved task property name", v.Name.Name)
		}
		if names[v.Name.Name] {
			a.rep.Report(diag.KindRedefinition, v.Name.Range.Begin, "%s is already declared in this task", v.Name.Name)
		}
		names[v.Name.Name] = true
		sym := symbols.NewField(v.Name.Name, v.Name.Range.Begin, owner, symbols.FieldStatic)
		owner.Fields[v.Name.Name] = sym
		v.Symbol = sym
	}
}

func (a *SemanticAnalyzer) analyzeTaskMember(m ast.TaskMember, owner *symbols.ClassSymbol) {
	switch v := m.(type) {
	case *ast.TaskActionDecl:
		child := a.decl.NewMethodScope(symbols.MethodKindAction, true)
		a.withDeclScope(child, func() {
			v.SelfSymbol = a.declareSelf()
			a.analyzeBlockBody(v.Body)
		})
	case *ast.TaskInputsDecl:
		a.analyzeExpr(v.Pattern)
		if v.Resolver != nil {
			a.analyzeExpr(v.Resolver)
		}
	case *ast.TaskOutputsDecl:
		a.analyzeExpr(v.Pattern)
		if v.From != nil {
			a.analyzeExpr(v.From)
		}
	case *ast.TaskPropertyDecl:
		a.analyzeExpr(v.Value)
		if sym := owner.Fields[v.Name.Name]; sym != nil {
			sym.MarkInitialized()
		}
	}
}
