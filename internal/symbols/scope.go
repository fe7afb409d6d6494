package symbols

// LocalScopeKind enumerates the lexical scope kinds (spec §3.5).
type LocalScopeKind uint8

const (
	ScopeRoot LocalScopeKind = iota
	ScopeBlock
	ScopeLoop
	ScopeMatch
	ScopeExcept
	ScopeFinally
)

// LocalScope is a lexical scope (spec §3.5): parent pointer, depth, and a
// multimap name->Symbol (multiple entries permit overload resolution).
type LocalScope struct {
	Kind   LocalScopeKind
	Parent *LocalScope
	Depth  int
	Decl   *DeclScope // the owning declaration scope

	firstNode int // first-node-in-scope counter, spec §3.5
	symbols   map[string][]Symbol
}

// NewRootScope creates the root LocalScope of a DeclScope.
func NewRootScope(decl *DeclScope) *LocalScope {
	return &LocalScope{Kind: ScopeRoot, Depth: 0, Decl: decl, symbols: map[string][]Symbol{}}
}

// NewChild creates a nested LocalScope of the given kind, inheriting the
// parent's DeclScope.
func (s *LocalScope) NewChild(kind LocalScopeKind) *LocalScope {
	return &LocalScope{Kind: kind, Parent: s, Depth: s.Depth + 1, Decl: s.Decl, symbols: map[string][]Symbol{}}
}

// IsGlobal is true only in a ScriptScope's root LocalScope with no parent
// (spec §3.5).
func (s *LocalScope) IsGlobal() bool {
	return s.Parent == nil && s.Decl != nil && s.Decl.Kind == DeclScript
}

// Declare adds sym under name, permitting multiple entries for overload
// resolution via LookupLocal.
func (s *LocalScope) Declare(name string, sym Symbol) {
	s.symbols[name] = append(s.symbols[name], sym)
}

// LookupResult classifies what LookupLocal found (spec §4.4).
type LookupResult uint8

const (
	NotFound LookupResult = iota
	FoundInScope
	FoundRedefinition
)

// LookupLocal searches this scope (not ancestors) for name with signature
// (argc, vararg). Overloadable kinds (Function/Method) distinguish by
// signature; all other kinds simply match by name. A match by name but
// not by signature is a FoundRedefinition (spec §4.4): the name is in use,
// but as a different overload/kind.
func (s *LocalScope) LookupLocal(name string, argc int, vararg bool) (Symbol, LookupResult) {
	entries, ok := s.symbols[name]
	if !ok || len(entries) == 0 {
		return nil, NotFound
	}
	for _, e := range entries {
		if sig, overloadable := signatureOf(e); overloadable {
			if sig.argc == argc && sig.vararg == vararg {
				return e, FoundInScope
			}
			continue
		}
		return e, FoundInScope
	}
	return entries[0], FoundRedefinition
}

type signature struct {
	argc   int
	vararg bool
}

func signatureOf(s Symbol) (signature, bool) {
	switch v := s.(type) {
	case *FunctionSymbol:
		return signature{v.Argc, v.Vararg}, true
	case *MethodSymbol:
		return signature{v.Argc, v.Vararg}, true
	default:
		return signature{}, false
	}
}

// Lookup searches this scope and ancestors for the nearest declaration of
// name (ignoring overload signature; used for simple variable references).
func (s *LocalScope) Lookup(name string) (Symbol, *LocalScope) {
	for sc := s; sc != nil; sc = sc.Parent {
		if entries := sc.symbols[name]; len(entries) > 0 {
			return entries[len(entries)-1], sc
		}
	}
	return nil, nil
}

// canBreakOrContinue walks ancestors until a Loop or Match is found,
// stopping (returning false) at a Finally (spec §3.5: break/continue are
// forbidden inside finally).
func (s *LocalScope) canBreakOrContinue() bool {
	for sc := s; sc != nil; sc = sc.Parent {
		switch sc.Kind {
		case ScopeFinally:
			return false
		case ScopeLoop, ScopeMatch:
			return true
		}
	}
	return false
}

// CanBreak reports whether a break statement in this scope is valid.
func (s *LocalScope) CanBreak() bool { return s.canBreakOrContinue() }

// CanContinue reports whether a continue statement in this scope is valid.
func (s *LocalScope) CanContinue() bool { return s.canBreakOrContinue() }

// InFinally reports whether this scope is lexically inside a Finally block,
// within the current declaration scope (a nested function/closure starts a
// fresh return-ability context, but LocalScope nesting alone doesn't cross
// that boundary here since each DeclScope owns its own root LocalScope).
func (s *LocalScope) InFinally() bool {
	for sc := s; sc != nil; sc = sc.Parent {
		if sc.Kind == ScopeFinally {
			return true
		}
	}
	return false
}

// CanReturn implements spec §3.5: declScope.canReturn && !inFinally().
func (s *LocalScope) CanReturn() bool {
	return s.Decl != nil && s.Decl.CanReturn && !s.InFinally()
}

// DeclScopeKind enumerates the declaration scope kinds (spec §3.5).
type DeclScopeKind uint8

const (
	DeclScript DeclScopeKind = iota
	DeclFunction
	DeclClass
	DeclMethod
	DeclClosure
)

// ReturnFlag classifies how a DeclScope's enclosing construct wants return
// statements to behave (spec §3.5).
type ReturnFlag uint8

const (
	ReturnInvalid ReturnFlag = iota
	ReturnOptional
	ReturnMustReturn
	ReturnNeverReturn
)

// MethodScopeKind enumerates the method-kind attribute of a MethodScope
// (spec §3.5).
type MethodScopeKind uint8

const (
	MethodKindInitializer MethodScopeKind = iota
	MethodKindDeinitializer
	MethodKindPlain
	MethodKindStatic
	MethodKindOperator
	MethodKindInplaceOperator
	MethodKindGetter
	MethodKindSetter
	MethodKindAction
)

// DeclScope is a declaration scope (spec §3.5): each owns a root LocalScope
// and may override capabilities.
type DeclScope struct {
	Kind       DeclScopeKind
	Parent     *DeclScope
	Root       *LocalScope
	CanImport  bool
	CanExport  bool
	InInstance bool
	CanReturn  bool
	ReturnFlag ReturnFlag

	// Method-scope-only fields (valid when Kind == DeclMethod).
	MethodKind          MethodScopeKind
	initializerCallSeen bool

	// Closure-scope-only fields (valid when Kind == DeclClosure).
	boundedLocals []Symbol
}

// NewScriptScope creates the top-level DeclScope for a compilation unit.
func NewScriptScope() *DeclScope {
	d := &DeclScope{Kind: DeclScript, CanImport: true, CanExport: true, CanReturn: true, ReturnFlag: ReturnOptional}
	d.Root = NewRootScope(d)
	return d
}

// NewFunctionScope creates a nested function DeclScope.
func (d *DeclScope) NewFunctionScope() *DeclScope {
	child := &DeclScope{Kind: DeclFunction, Parent: d, CanReturn: true, ReturnFlag: ReturnOptional}
	child.Root = NewRootScope(child)
	return child
}

// NewClassScope creates a nested class DeclScope.
func (d *DeclScope) NewClassScope() *DeclScope {
	child := &DeclScope{Kind: DeclClass, Parent: d}
	child.Root = NewRootScope(child)
	return child
}

// NewMethodScope creates a nested method DeclScope of the given
// MethodScopeKind, with the return-ability rules the original implements
// per method kind: initializers/deinitializers/setters/actions never
// return a value.
func (d *DeclScope) NewMethodScope(kind MethodScopeKind, inInstance bool) *DeclScope {
	child := &DeclScope{Kind: DeclMethod, Parent: d, InInstance: inInstance, CanReturn: true, MethodKind: kind}
	switch kind {
	case MethodKindInitializer, MethodKindDeinitializer, MethodKindSetter, MethodKindAction:
		child.ReturnFlag = ReturnNeverReturn
	case MethodKindGetter, MethodKindOperator, MethodKindInplaceOperator, MethodKindPlain:
		child.ReturnFlag = ReturnOptional
	case MethodKindStatic:
		child.ReturnFlag = ReturnOptional
	}
	child.Root = NewRootScope(child)
	return child
}

// NewClosureScope creates a nested closure DeclScope, inheriting the
// enclosing scope's return-ability (a closure body can `return` from
// itself, spec is silent so we treat it like a function).
func (d *DeclScope) NewClosureScope() *DeclScope {
	child := &DeclScope{Kind: DeclClosure, Parent: d, CanReturn: true, ReturnFlag: ReturnOptional}
	child.Root = NewRootScope(child)
	return child
}

// SetInitializerCallSeen sets the one-write initializer-call-seen flag
// (spec §4.4). Valid only on a MethodScope of kind Initializer.
func (d *DeclScope) SetInitializerCallSeen() {
	if d.initializerCallSeen {
		panic("symbols: DeclScope.initializerCallSeen written twice")
	}
	d.initializerCallSeen = true
}

func (d *DeclScope) InitializerCallSeen() bool { return d.initializerCallSeen }

// AddBoundedLocal records a captured local in a ClosureScope's ordered set,
// skipping duplicates (spec §3.5 ClosureScope owns an ordered set).
func (d *DeclScope) AddBoundedLocal(sym Symbol) {
	for _, existing := range d.boundedLocals {
		if existing == sym {
			return
		}
	}
	d.boundedLocals = append(d.boundedLocals, sym)
}

// BoundedLocals returns the closure's captured locals in discovery order.
func (d *DeclScope) BoundedLocals() []Symbol { return d.boundedLocals }
