// Package symbols implements the symbol table described in spec §3.4: one
// Symbol per declared entity, mangled-name overload identity, and the two
// orthogonal scope hierarchies (LocalScope, DeclScope) of spec §3.5.
package symbols

import (
	"fmt"
	"strings"

	"github.com/buildc-lang/buildc/internal/token"
)

// Name-mangling constants, reproduced verbatim from the original
// implementation's Symbol::ArgumentSeparator/MemberSeparator/VariadicSuffix
// and synthetic member names (spec §3.4, SPEC_FULL.md supplement).
const (
	ArgumentSeparator = "$"
	MemberSeparator   = "."
	VariadicSuffix    = "+"

	ClassInitializerName   = "<cinit>"
	InitializerName        = "<init>"
	DeinitializerName      = "<deinit>"
	DoClauseName           = "action"
	DoFirstClauseName      = "actionBefore"
	DoLastClauseName       = "actionAfter"
)

// Kind enumerates the Symbol sum type (spec §3.4).
type Kind uint8

const (
	Undeclared Kind = iota
	VariableKind
	TypeKind
	FunctionKind
	ClassKind
	TaskKind
	FieldKind
	MethodKind
	PropertyKind
	ClosureKind
)

// Symbol is the interface every concrete symbol kind implements.
type Symbol interface {
	Kind() Kind
	Name() string
	MangledName() string
	Position() token.Position
}

// base is embedded by every concrete Symbol to provide the common fields.
type base struct {
	kind Kind
	name string
	pos  token.Position
}

func (b *base) Kind() Kind            { return b.kind }
func (b *base) Name() string          { return b.name }
func (b *base) Position() token.Position { return b.pos }
func (b *base) MangledName() string   { return b.name }

// UndeclaredSymbol is the placeholder created for a reference to a name
// that was never declared, so that later analysis proceeds structurally
// (spec §4.4).
type UndeclaredSymbol struct{ base }

func NewUndeclared(name string, pos token.Position) *UndeclaredSymbol {
	return &UndeclaredSymbol{base{Undeclared, name, pos}}
}

// VariableKindAttr classifies a VariableSymbol (spec §3.4).
type VariableKindAttr uint8

const (
	VarGlobal VariableKindAttr = iota
	VarLocal
	VarExported
	VarParameter
	VarExcept
	VarImplicit
)

func (v VariableKindAttr) IsLocalStorage() bool {
	return v == VarLocal || v == VarParameter || v == VarExcept || v == VarImplicit
}

// VariableSymbol represents a variable, parameter, or implicit binding
// (spec §3.4).
type VariableSymbol struct {
	base
	VarKind     VariableKindAttr
	Readonly    bool
	initialized bool // one-write: set once control flow analysis proves init
}

func NewVariable(name string, pos token.Position, kind VariableKindAttr, readonly bool) *VariableSymbol {
	return &VariableSymbol{base: base{VariableKind, name, pos}, VarKind: kind, Readonly: readonly}
}

// MarkInitialized sets the one-write initialized flag. Calling it twice is
// a program error (spec §3.3 one-write-field invariant).
func (v *VariableSymbol) MarkInitialized() {
	if v.initialized {
		panic("symbols: VariableSymbol.initialized written twice for " + v.name)
	}
	v.initialized = true
}

func (v *VariableSymbol) Initialized() bool { return v.initialized }

// FunctionSymbol represents a free function (spec §3.4).
type FunctionSymbol struct {
	base
	Argc   int
	Vararg bool
}

func NewFunction(name string, pos token.Position, argc int, vararg bool) *FunctionSymbol {
	return &FunctionSymbol{base: base{FunctionKind, name, pos}, Argc: argc, Vararg: vararg}
}

func (f *FunctionSymbol) MangledName() string {
	return mangle(f.name, f.Argc, f.Vararg)
}

func mangle(name string, argc int, vararg bool) string {
	suffix := ""
	if vararg {
		suffix = VariadicSuffix
	}
	return fmt.Sprintf("%s%s%d%s", name, ArgumentSeparator, argc, suffix)
}

// MethodSymbol represents a class/task method (spec §3.4).
type MethodSymbol struct {
	base
	Argc   int
	Vararg bool
	Static bool
	Owner  *ClassSymbol
}

func NewMethod(name string, pos token.Position, argc int, vararg, static bool, owner *ClassSymbol) *MethodSymbol {
	return &MethodSymbol{base: base{MethodKind, name, pos}, Argc: argc, Vararg: vararg, Static: static, Owner: owner}
}

func (m *MethodSymbol) MangledName() string {
	owner := ""
	if m.Owner != nil {
		owner = m.Owner.Name() + MemberSeparator
	}
	return owner + mangle(m.name, m.Argc, m.Vararg)
}

// FieldAccess classifies a FieldSymbol's access flag (spec §3.4).
type FieldAccess uint8

const (
	FieldConst FieldAccess = iota
	FieldStatic
)

// FieldSymbol represents a class/task field (spec §3.4).
type FieldSymbol struct {
	base
	Owner       *ClassSymbol
	Access      FieldAccess
	initialized bool
}

func NewField(name string, pos token.Position, owner *ClassSymbol, access FieldAccess) *FieldSymbol {
	return &FieldSymbol{base: base{FieldKind, name, pos}, Owner: owner, Access: access}
}

func (f *FieldSymbol) MangledName() string {
	owner := ""
	if f.Owner != nil {
		owner = f.Owner.Name() + MemberSeparator
	}
	return owner + f.name
}

func (f *FieldSymbol) MarkInitialized() {
	if f.initialized {
		panic("symbols: FieldSymbol.initialized written twice for " + f.name)
	}
	f.initialized = true
}

func (f *FieldSymbol) Initialized() bool { return f.initialized }

// PropertySymbol represents a class/task property with optional
// getter/setter (spec §3.4); writability derives from setter presence.
type PropertySymbol struct {
	base
	Owner  *ClassSymbol
	Getter *MethodSymbol
	Setter *MethodSymbol
}

func NewProperty(name string, pos token.Position, owner *ClassSymbol) *PropertySymbol {
	return &PropertySymbol{base: base{PropertyKind, name, pos}, Owner: owner}
}

func (p *PropertySymbol) MangledName() string {
	owner := ""
	if p.Owner != nil {
		owner = p.Owner.Name() + MemberSeparator
	}
	return owner + p.name
}

func (p *PropertySymbol) Writable() bool { return p.Setter != nil }

// ClassSymbol represents a class or task declaration; it owns its member
// symbols (spec §3.4). Tasks reuse ClassSymbol with IsTask set, since a
// task desugars to a class (spec §4.5.2).
type ClassSymbol struct {
	base
	IsTask     bool
	BaseClass  *ClassSymbol
	Fields     map[string]*FieldSymbol
	Methods    map[string][]*MethodSymbol // multiple entries: overloads by argc/vararg
	Properties map[string]*PropertySymbol
}

func NewClass(name string, pos token.Position, isTask bool) *ClassSymbol {
	return &ClassSymbol{
		base:       base{ClassKind, name, pos},
		IsTask:     isTask,
		Fields:     map[string]*FieldSymbol{},
		Methods:    map[string][]*MethodSymbol{},
		Properties: map[string]*PropertySymbol{},
	}
}

func (c *ClassSymbol) Kind() Kind {
	if c.IsTask {
		return TaskKind
	}
	return ClassKind
}

// AddMethod registers a method under its simple name, permitting overloads
// with distinct mangled names.
func (c *ClassSymbol) AddMethod(m *MethodSymbol) {
	c.Methods[m.Name()] = append(c.Methods[m.Name()], m)
}

// LookupMethod finds a method by simple name + signature.
func (c *ClassSymbol) LookupMethod(name string, argc int, vararg bool) *MethodSymbol {
	for _, m := range c.Methods[name] {
		if m.Argc == argc && m.Vararg == vararg {
			return m
		}
	}
	return nil
}

// ClosureSymbol represents an anonymous closure, numbered in declaration
// order (spec §3.4).
type ClosureSymbol struct {
	base
	Index int
}

func NewClosure(index int, pos token.Position) *ClosureSymbol {
	return &ClosureSymbol{base: base{ClosureKind, fmt.Sprintf("<closure#%d>", index), pos}, Index: index}
}

// BoundedLocalSymbol wraps a Local/Parameter/Except/Implicit variable
// captured by an enclosing closure (spec §4.4 "closure capture
// discovery"). The wrapped symbol's defining scope is shallower than the
// referencing ClosureScope's root; reads/writes of the BoundedLocalSymbol
// are lowered to captured-cell access rather than a direct register.
type BoundedLocalSymbol struct {
	base
	Inner *VariableSymbol
}

func NewBoundedLocal(inner *VariableSymbol) *BoundedLocalSymbol {
	return &BoundedLocalSymbol{base: base{VariableKind, inner.Name(), inner.Position()}, Inner: inner}
}

// TypeSymbol represents a reference to a type by its bare name. The IR
// generator creates one for the type of an `except Type` clause, which sema
// does not resolve; `is Type` and `extends` clauses resolve to the declared
// symbol instead.
type TypeSymbol struct{ base }

func NewType(name string, pos token.Position) *TypeSymbol {
	return &TypeSymbol{base{TypeKind, name, pos}}
}

// Describe renders a human-readable descriptive name, matching the spirit of
// the original's Symbol::GetDescriptiveName (used only for diagnostics).
func Describe(s Symbol) string {
	switch v := s.(type) {
	case *VariableSymbol:
		kindName := map[VariableKindAttr]string{
			VarGlobal: "global variable", VarLocal: "local variable",
			VarExported: "exported variable", VarParameter: "parameter",
			VarExcept: "exception variable", VarImplicit: "variable",
		}[v.VarKind]
		return fmt.Sprintf("%s '%s'", kindName, v.Name())
	case *FunctionSymbol:
		return fmt.Sprintf("function '%s'", v.MangledName())
	case *MethodSymbol:
		return fmt.Sprintf("method '%s'", v.MangledName())
	case *FieldSymbol:
		return fmt.Sprintf("field '%s'", v.MangledName())
	case *PropertySymbol:
		return fmt.Sprintf("property '%s'", v.MangledName())
	case *ClassSymbol:
		if v.IsTask {
			return fmt.Sprintf("task '%s'", v.Name())
		}
		return fmt.Sprintf("class '%s'", v.Name())
	case *ClosureSymbol:
		return fmt.Sprintf("closure #%d", v.Index)
	case *BoundedLocalSymbol:
		return "captured " + Describe(v.Inner)
	case *UndeclaredSymbol:
		return fmt.Sprintf("undeclared '%s'", v.Name())
	case *TypeSymbol:
		return fmt.Sprintf("type '%s'", v.Name())
	default:
		return strings.TrimSpace(fmt.Sprintf("symbol '%s'", s.Name()))
	}
}
