// Package token defines the lexical catalog shared by the lexer and parser:
// token kinds, source positions/ranges, and the keyword table (spec §6.1).
package token

import "fmt"

// Position is a single point in source text (spec §3.1).
//
// Cursor is a byte offset into the buffer the Lexer scans; Line/Column are
// 1-based. A zero Line/Column pair denotes an empty/synthetic position.
type Position struct {
	Cursor uint32
	Line   uint32
	Column uint32
}

// IsSynthetic reports whether p carries no real source location.
func (p Position) IsSynthetic() bool { return p.Line == 0 && p.Column == 0 }

func (p Position) String() string {
	if p.IsSynthetic() {
		return "<synthetic>"
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// Range is a half-open-by-cursor span [Begin, End] (spec §3.1).
type Range struct {
	Begin Position
	End   Position
}

// Merge returns the pointwise (min begin, max end) union of two ranges.
func Merge(a, b Range) Range {
	r := a
	if b.Begin.Cursor < r.Begin.Cursor {
		r.Begin = b.Begin
	}
	if b.End.Cursor > r.End.Cursor {
		r.End = b.End
	}
	return r
}

func (r Range) String() string { return fmt.Sprintf("%s-%s", r.Begin, r.End) }

// Kind enumerates lexical token types.
type Kind uint8

const (
	EOF Kind = iota
	Illegal

	Identifier
	Integer
	Float
	StringLiteral
	NoneLiteral
	BooleanLiteral

	// Keywords (spec §6.1), one Kind per spelling.
	KwAnd
	KwAs
	KwAssert
	KwBreak
	KwCase
	KwClass
	KwContinue
	KwConst
	KwDef
	KwDefault
	KwDefined
	KwDeinit
	KwDependsOn
	KwDo
	KwDoFirst
	KwDoLast
	KwElse
	KwExcept
	KwExport
	KwExtends
	KwFalse
	KwFinally
	KwFor
	KwFrom
	KwGet
	KwIf
	KwImport
	KwIn
	KwInit
	KwInputs
	KwIs
	KwMatch
	KwNone
	KwNot
	KwOperator
	KwOr
	KwOutputs
	KwPass
	KwRaise
	KwReturn
	KwSelf
	KwSet
	KwStatic
	KwSuper
	KwTask
	KwTrue
	KwTry
	KwVar
	KwWhile
	KwWith

	// Punctuators (spec §6.1).
	Plus
	Minus
	Star
	Slash
	Percent
	ShiftLeft
	ShiftRight
	Amp
	Pipe
	Tilde
	Caret
	Less
	LessEqual
	Greater
	GreaterEqual
	EqualEqual
	NotEqual
	Equal
	PlusEqual
	MinusEqual
	StarEqual
	SlashEqual
	PercentEqual
	AmpEqual
	PipeEqual
	CaretEqual
	ShiftLeftEqual
	ShiftRightEqual
	Comma
	Colon
	Dot
	Ellipsis
	FatArrow
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket

	// Produced only by the lexer, consumed by the parser/string scanner.
	InterpolationStart // beginning of a string with >=1 placeholder
	Newline
	Comment
)

var names = map[Kind]string{
	EOF: "EOF", Illegal: "ILLEGAL",
	Identifier: "identifier", Integer: "integer", Float: "float",
	StringLiteral: "string", NoneLiteral: "none", BooleanLiteral: "boolean",
	KwAnd: "and", KwAs: "as", KwAssert: "assert", KwBreak: "break", KwCase: "case",
	KwClass: "class", KwContinue: "continue", KwConst: "const", KwDef: "def",
	KwDefault: "default", KwDefined: "defined", KwDeinit: "deinit",
	KwDependsOn: "dependsOn", KwDo: "do", KwDoFirst: "doFirst", KwDoLast: "doLast",
	KwElse: "else", KwExcept: "except", KwExport: "export", KwExtends: "extends",
	KwFalse: "false", KwFinally: "finally", KwFor: "for", KwFrom: "from",
	KwGet: "get", KwIf: "if", KwImport: "import", KwIn: "in", KwInit: "init",
	KwInputs: "inputs", KwIs: "is", KwMatch: "match", KwNone: "none", KwNot: "not",
	KwOperator: "operator", KwOr: "or", KwOutputs: "outputs", KwPass: "pass",
	KwRaise: "raise", KwReturn: "return", KwSelf: "self", KwSet: "set",
	KwStatic: "static", KwSuper: "super", KwTask: "task", KwTrue: "true",
	KwTry: "try", KwVar: "var", KwWhile: "while", KwWith: "with",
	Plus: "+", Minus: "-", Star: "*", Slash: "/", Percent: "%",
	ShiftLeft: "<<", ShiftRight: ">>", Amp: "&", Pipe: "|", Tilde: "~", Caret: "^",
	Less: "<", LessEqual: "<=", Greater: ">", GreaterEqual: ">=",
	EqualEqual: "==", NotEqual: "!=", Equal: "=",
	PlusEqual: "+=", MinusEqual: "-=", StarEqual: "*=", SlashEqual: "/=",
	PercentEqual: "%=", AmpEqual: "&=", PipeEqual: "|=", CaretEqual: "^=",
	ShiftLeftEqual: "<<=", ShiftRightEqual: ">>=",
	Comma: ",", Colon: ":", Dot: ".", Ellipsis: "...", FatArrow: "=>",
	LParen: "(", RParen: ")", LBrace: "{", RBrace: "}", LBracket: "[", RBracket: "]",
	InterpolationStart: "<interpolation>", Newline: "<newline>", Comment: "<comment>",
}

func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}
	return "<unknown>"
}

// Keywords is the minimal-perfect-hash-backed catalog of reserved words
// (spec §6.1); implemented here as a plain map, which at this catalog size
// (50 entries) a Go map already resolves in O(1) expected time without a
// hand-built perfect hash.
var Keywords = map[string]Kind{
	"and": KwAnd, "as": KwAs, "assert": KwAssert, "break": KwBreak, "case": KwCase,
	"class": KwClass, "continue": KwContinue, "const": KwConst, "def": KwDef,
	"default": KwDefault, "defined": KwDefined, "deinit": KwDeinit,
	"dependsOn": KwDependsOn, "do": KwDo, "doFirst": KwDoFirst, "doLast": KwDoLast,
	"else": KwElse, "except": KwExcept, "export": KwExport, "extends": KwExtends,
	"false": KwFalse, "finally": KwFinally, "for": KwFor, "from": KwFrom,
	"get": KwGet, "if": KwIf, "import": KwImport, "in": KwIn, "init": KwInit,
	"inputs": KwInputs, "is": KwIs, "match": KwMatch, "none": KwNone, "not": KwNot,
	"operator": KwOperator, "or": KwOr, "outputs": KwOutputs, "pass": KwPass,
	"raise": KwRaise, "return": KwReturn, "self": KwSelf, "set": KwSet,
	"static": KwStatic, "super": KwSuper, "task": KwTask, "true": KwTrue,
	"try": KwTry, "var": KwVar, "while": KwWhile, "with": KwWith,
}

// LookupKeyword resolves an identifier spelling to a keyword Kind, reporting
// false when it is an ordinary identifier.
func LookupKeyword(s string) (Kind, bool) {
	k, ok := Keywords[s]
	return k, ok
}

// Token is a single lexical unit (spec §4.2).
type Token struct {
	Kind  Kind
	Range Range
	// Image holds the literal text for identifiers/numbers/strings. For a
	// string literal this is the *processed* image: interpolation
	// placeholders are replaced with "{N}" markers (spec §4.2).
	Image string
}

func (t Token) String() string {
	if t.Image != "" {
		return fmt.Sprintf("%s(%q)@%s", t.Kind, t.Image, t.Range)
	}
	return fmt.Sprintf("%s@%s", t.Kind, t.Range)
}
