package sema

import (
	"github.com/buildc-lang/buildc/internal/ast"
	"github.com/buildc-lang/buildc/internal/diag"
	"github.com/buildc-lang/buildc/internal/symbols"
	"github.com/buildc-lang/buildc/internal/token"
)

// analyzeClassDecl builds a.hoisted's shell ClassSymbol (or creates one, for
// a class declared in a nested scope where hoisting doesn't apply) into a
// full member table, then walks every member body (spec §4.4
// "BuildClassSymbol").
func (a *SemanticAnalyzer) analyzeClassDecl(d *ast.ClassDecl) {
	sym, ok := a.hoisted[d].(*symbols.ClassSymbol)
	if !ok {
		sym = symbols.NewClass(d.Name.Name, d.Name.Range.Begin, false)
		a.declare(d.Name, sym, 0, false)
	}
	d.SetSymbol(sym)

	if d.Extends != nil {
		a.linkBaseClass(d.Name, d.Extends, sym)
	}

	names := map[string]bool{}
	for _, m := range d.Members {
		a.preDeclareMember(m, sym, names)
	}

	child := a.decl.NewClassScope()
	a.withDeclScope(child, func() {
		for _, m := range d.Members {
			a.analyzeClassMember(m, sym)
		}
	})
}

func (a *SemanticAnalyzer) linkBaseClass(name ast.Identifier, extends *ast.Identifier, sym *symbols.ClassSymbol) {
	if extends.Name == name.Name {
		a.rep.Report(diag.KindExtendsSelf, extends.Range.Begin, "%s cannot extend itself", symbols.Describe(sym))
		return
	}
	base, ok := a.resolveNamed(extends.Name)
	if !ok {
		a.rep.Report(diag.KindUsedBeforeDeclare, extends.Range.Begin, "undeclared base %s", extends.Name)
		return
	}
	if cs, ok := base.(*symbols.ClassSymbol); ok {
		sym.BaseClass = cs
	} else {
		a.rep.Report(diag.KindUsedBeforeDeclare, extends.Range.Begin, "%s is not a class or task", symbols.Describe(base))
	}
}

// preDeclareMember pre-creates the Method/Field/Property symbol for one
// class member without analyzing its body, catching redefinitions and
// unifying a get/set pair into a single PropertySymbol (spec §4.4).
func (a *SemanticAnalyzer) preDeclareMember(m ast.ClassMember, owner *symbols.ClassSymbol, names map[string]bool) {
	switch v := m.(type) {
	case *ast.ClassInitDecl:
		argc, vararg := paramSignature(v.Params)
		sym := symbols.NewMethod(symbols.InitializerName, v.Range().Begin, argc, vararg, false, owner)
		if owner.LookupMethod(symbols.InitializerName, argc, vararg) != nil {
			a.rep.Report(diag.KindRedefinition, v.Range().Begin, "initializer with this signature is already declared")
		}
		owner.AddMethod(sym)
		v.SetSymbol(sym)
	case *ast.ClassDeinitDecl:
		sym := symbols.NewMethod(symbols.DeinitializerName, v.Range().Begin, 0, false, false, owner)
		owner.AddMethod(sym)
		v.Symbol = sym
	case *ast.ClassFieldDecl:
		if names[v.Name.Name] {
			a.rep.Report(diag.KindRedefinition, v.Name.Range.Begin, "%s is already declared in this class", v.Name.Name)
		}
		names[v.Name.Name] = true
		access := symbols.FieldConst
		if v.Access.Static {
			access = symbols.FieldStatic
		}
		sym := symbols.NewField(v.Name.Name, v.Name.Range.Begin, owner, access)
		owner.Fields[v.Name.Name] = sym
	case *ast.ClassMethodDecl:
		argc, vararg := paramSignature(v.Params)
		isOperator := v.Decoration == ast.MethodOperator || v.Decoration == ast.MethodInplaceOperator
		if owner.LookupMethod(v.Name.Name, argc, vararg) != nil {
			a.rep.Report(diag.KindRedefinition, v.Name.Range.Begin, "method %s/%d is already declared", v.Name.Name, argc)
		} else if !isOperator && names[v.Name.Name] {
			a.rep.Report(diag.KindRedefinition, v.Name.Range.Begin, "%s is already declared in this class", v.Name.Name)
		}
		names[v.Name.Name] = true
		if isOperator {
			a.validateOperatorArity(v, argc, vararg)
		}
		static := v.Decoration == ast.MethodStatic
		sym := symbols.NewMethod(v.Name.Name, v.Name.Range.Begin, argc, vararg, static, owner)
		owner.AddMethod(sym)
	case *ast.ClassPropertyDecl:
		prop, exists := owner.Properties[v.Name.Name]
		if !exists {
			prop = symbols.NewProperty(v.Name.Name, v.Name.Range.Begin, owner)
			owner.Properties[v.Name.Name] = prop
		}
		if names[v.Name.Name] && !exists {
			a.rep.Report(diag.KindRedefinition, v.Name.Range.Begin, "%s is already declared in this class", v.Name.Name)
		}
		names[v.Name.Name] = true
		switch v.Accessor {
		case ast.AccessorGet:
			if prop.Getter != nil {
				a.rep.Report(diag.KindRedefinition, v.Name.Range.Begin, "getter for %s is already declared", v.Name.Name)
			}
			prop.Getter = symbols.NewMethod(v.Name.Name, v.Name.Range.Begin, 0, false, false, owner)
		case ast.AccessorSet:
			if prop.Setter != nil {
				a.rep.Report(diag.KindRedefinition, v.Name.Range.Begin, "setter for %s is already declared", v.Name.Name)
			}
			prop.Setter = symbols.NewMethod(v.Name.Name, v.Name.Range.Begin, 1, false, false, owner)
		}
		v.SetSymbol(prop)
	default:
		// parser-recovery placeholder (invalidClassMember); already
		// diagnosed by the parser.
	}
}

func paramSignature(p *ast.Parameters) (argc int, vararg bool) {
	if p == nil {
		return 0, false
	}
	return len(p.Params), p.Vararg
}

// validateOperatorArity enforces spec §4.4's operator-overload arity rules:
// subscript operators take their index (and, for the setter form, value)
// parameter; every other overloadable operator is strictly binary (one
// right-hand operand) and none may be vararg.
func (a *SemanticAnalyzer) validateOperatorArity(v *ast.ClassMethodDecl, argc int, vararg bool) {
	if vararg {
		a.rep.Report(diag.KindOperatorVararg, v.Name.Range.Begin, "operator %s cannot be variadic", v.Name.Name)
	}
	want := 1
	switch v.Name.Name {
	case "[]":
		want = 1
	case "[]=":
		want = 2
	}
	if argc != want {
		a.rep.Report(diag.KindOperatorArgMismatch, v.Name.Range.Begin, "operator %s expects %d argument(s), got %d", v.Name.Name, want, argc)
	}
}

// analyzeClassMember walks one member's body with the scope the member
// kind requires (spec §3.5 MethodScopeKind).
func (a *SemanticAnalyzer) analyzeClassMember(m ast.ClassMember, owner *symbols.ClassSymbol) {
	switch v := m.(type) {
	case *ast.ClassInitDecl:
		a.analyzeClassInit(v, owner)
	case *ast.ClassDeinitDecl:
		child := a.decl.NewMethodScope(symbols.MethodKindDeinitializer, true)
		a.withDeclScope(child, func() {
			v.SelfSymbol = a.declareSelf()
			a.analyzeBlockBody(v.Body)
		})
	case *ast.ClassFieldDecl:
		a.analyzeClassField(v, owner)
	case *ast.ClassMethodDecl:
		a.analyzeClassMethod(v, owner)
	case *ast.ClassPropertyDecl:
		a.analyzeClassProperty(v, owner)
	default:
		// invalidClassMember recovery placeholder.
	}
}

// isInitializerCall reports whether s is an expression statement invoking
// self(...)/super(...), the surface form of an explicit initializer-chain
// call (spec §4.4, scenario 6).
func isInitializerCall(s ast.Stmt) bool {
	es, ok := s.(*ast.ExprStmt)
	if !ok {
		return false
	}
	inv, ok := es.Value.(*ast.InvocationExpr)
	if !ok {
		return false
	}
	switch inv.Callee.(type) {
	case *ast.SelfExpr, *ast.SuperExpr:
		return true
	default:
		return false
	}
}

func (a *SemanticAnalyzer) analyzeClassInit(d *ast.ClassInitDecl, owner *symbols.ClassSymbol) {
	child := a.decl.NewMethodScope(symbols.MethodKindInitializer, true)
	a.withDeclScope(child, func() {
		d.SelfSymbol = a.declareSelf()
		a.declareParameters(d.Params)
		seen := false
		for i, s := range d.Body.Body {
			if isInitializerCall(s) {
				switch {
				case i != 0:
					a.rep.Report(diag.KindInvalidInitCall, s.Range().Begin, "self()/super() call must be the first statement of the initializer")
				case seen:
					a.rep.Report(diag.KindDuplicateInitCall, s.Range().Begin, "duplicate initializer call")
				default:
					seen = true
					d.SetInitializerCall()
					a.decl.SetInitializerCallSeen()
				}
			}
			a.analyzeStmt(s)
		}
	})
}

func (a *SemanticAnalyzer) analyzeClassField(v *ast.ClassFieldDecl, owner *symbols.ClassSymbol) {
	if v.Value != nil {
		a.analyzeExpr(v.Value)
	}
	if sym := owner.Fields[v.Name.Name]; sym != nil {
		v.Symbol = sym
		if v.Value != nil {
			sym.MarkInitialized()
		}
	}
}

func (a *SemanticAnalyzer) analyzeClassMethod(v *ast.ClassMethodDecl, owner *symbols.ClassSymbol) {
	argc, vararg := paramSignature(v.Params)
	sym := owner.LookupMethod(v.Name.Name, argc, vararg)
	if sym != nil {
		v.SetSymbol(sym)
	}
	kind := symbols.MethodKindPlain
	inInstance := true
	switch v.Decoration {
	case ast.MethodStatic:
		kind, inInstance = symbols.MethodKindStatic, false
	case ast.MethodOperator:
		kind = symbols.MethodKindOperator
	case ast.MethodInplaceOperator:
		kind = symbols.MethodKindInplaceOperator
	}
	child := a.decl.NewMethodScope(kind, inInstance)
	a.withDeclScope(child, func() {
		if inInstance {
			v.SelfSymbol = a.declareSelf()
		}
		a.declareParameters(v.Params)
		a.analyzeBlockBody(v.Body)
	})
}

func (a *SemanticAnalyzer) analyzeClassProperty(v *ast.ClassPropertyDecl, owner *symbols.ClassSymbol) {
	kind := symbols.MethodKindGetter
	if v.Accessor == ast.AccessorSet {
		kind = symbols.MethodKindSetter
	}
	child := a.decl.NewMethodScope(kind, true)
	a.withDeclScope(child, func() {
		v.SelfSymbol = a.declareSelf()
		if v.Accessor == ast.AccessorSet && v.Param != nil {
			sym := a.createLocalSymbol(v.Param.Name, symbols.VarParameter, false)
			sym.MarkInitialized()
			v.Param.Symbol = sym
		}
		a.analyzeBlockBody(v.Body)
	})
}

// declareSelf binds the implicit "self" local a method/init/deinit/property
// body reads self/super through (spec §4.4: implicit self binding for class
// members). It is looked up like any other local, including across closure
// boundaries, so a closure created inside a method captures self exactly
// like any other enclosing local.
func (a *SemanticAnalyzer) declareSelf() *symbols.VariableSymbol {
	sym := symbols.NewVariable("self", token.Position{}, symbols.VarImplicit, true)
	sym.MarkInitialized()
	a.local.Declare("self", sym)
	return sym
}
