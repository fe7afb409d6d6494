// Package diag implements the ErrorReporter collaborator described in
// spec §5 and §7: synchronous, non-throwing diagnostic reporting with
// optional reference locations and fixit hints.
package diag

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/buildc-lang/buildc/internal/token"
)

// Severity classifies a Diagnostic.
type Severity uint8

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "error"
}

// Kind is a stable identifier for a diagnostic, grouped by the stage that
// raises it, mirroring spec §7's kind catalog.
type Kind string

const (
	// Lexical
	KindInvalidEncoding          Kind = "invalid-encoding"
	KindInvalidCharacter         Kind = "invalid-character"
	KindIncompleteNumber         Kind = "incomplete-number"
	KindIncompleteString         Kind = "incomplete-string"
	KindDisallowedCodePoint      Kind = "disallowed-code-point"
	KindCommentInInterpolation   Kind = "comment-in-interpolation"
	KindNewlineInString          Kind = "newline-in-string"

	// Syntactic
	KindMissingToken        Kind = "missing-token"
	KindUnexpectedToken     Kind = "unexpected-token"
	KindUnclosedBrace       Kind = "unclosed-brace"
	KindUnclosedParen       Kind = "unclosed-paren"
	KindUnclosedBracket     Kind = "unclosed-bracket"
	KindExpectedExpression  Kind = "expected-expression"
	KindExpectedStatement   Kind = "expected-statement"
	KindExpectedModifier    Kind = "expected-modifier"
	KindOperatorNotOverridable Kind = "operator-not-overridable"
	KindRedundantKeyword    Kind = "redundant-keyword"

	// Semantic
	KindRedefinition           Kind = "redefinition"
	KindRedeclaration          Kind = "redeclaration"
	KindUsedBeforeDeclare      Kind = "used-before-declare"
	KindUsedBeforeInit         Kind = "used-before-init"
	KindCannotImport           Kind = "cannot-import"
	KindCannotExport           Kind = "cannot-export"
	KindCannotBreak            Kind = "cannot-break"
	KindCannotBreakInFinally   Kind = "cannot-break-in-finally"
	KindCannotContinue         Kind = "cannot-continue"
	KindCannotContinueInFinally Kind = "cannot-continue-in-finally"
	KindCannotReturn           Kind = "cannot-return"
	KindDuplicateCase          Kind = "duplicate-case"
	KindInvalidCaseValue       Kind = "invalid-case-value"
	KindReservedIdentifier     Kind = "reserved-identifier"
	KindCannotAssign           Kind = "cannot-assign"
	KindInvalidInitCall        Kind = "invalid-init-call"
	KindDuplicateInitCall      Kind = "duplicate-init-call"
	KindDuplicateInputs        Kind = "duplicate-inputs"
	KindDuplicateOutputs       Kind = "duplicate-outputs"
	KindExtendsSelf            Kind = "extends-self"
	KindDependsOnSelf          Kind = "depends-on-self"
	KindOperatorArgMismatch    Kind = "operator-arg-mismatch"
	KindOperatorVararg         Kind = "operator-vararg"
	KindAssignToBoundedLocal   Kind = "assign-to-bounded-local"

	// Bytecode
	KindBranchOffsetOutOfRange Kind = "branch-offset-out-of-range"
)

// Fixit is an edit hint attached to a Diagnostic.
type Fixit struct {
	InsertAt *token.Position // non-nil for an "insert text at position" hint
	InsertText string
	Remove   *token.Range // non-nil for a "remove range" hint
}

// Reference is a secondary location attached to a Diagnostic (e.g. "first
// defined here").
type Reference struct {
	Position token.Position
	Message  string
}

// Diagnostic is a single reported problem (spec §7).
type Diagnostic struct {
	Severity   Severity
	Kind       Kind
	Position   token.Position
	Message    string
	References []Reference
	Fixits     []Fixit
}

func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s: %s", d.Position, d.Severity, d.Message)
	for _, r := range d.References {
		fmt.Fprintf(&b, "\n  %s: note: %s", r.Position, r.Message)
	}
	return b.String()
}

// Builder is the chainable handle returned by Reporter.Report, letting a
// caller attach references/fixits without the report call itself ever
// failing (spec §5: "reporting never throws").
type Builder struct {
	r    *Reporter
	diag *Diagnostic
}

// Reference attaches a secondary location to the diagnostic being built.
func (b *Builder) Reference(pos token.Position, message string) *Builder {
	if b == nil || b.diag == nil {
		return b
	}
	b.diag.References = append(b.diag.References, Reference{Position: pos, Message: message})
	return b
}

// Insert attaches an "insert text at position" fixit.
func (b *Builder) Insert(pos token.Position, text string) *Builder {
	if b == nil || b.diag == nil {
		return b
	}
	p := pos
	b.diag.Fixits = append(b.diag.Fixits, Fixit{InsertAt: &p, InsertText: text})
	return b
}

// Remove attaches a "remove range" fixit.
func (b *Builder) Remove(r token.Range) *Builder {
	if b == nil || b.diag == nil {
		return b
	}
	rr := r
	b.diag.Fixits = append(b.diag.Fixits, Fixit{Remove: &rr})
	return b
}

// Reporter accumulates Diagnostics for one compilation. It never panics and
// never aborts a caller's control flow; see spec §5.
type Reporter struct {
	log  *slog.Logger
	diags []Diagnostic
}

// NewReporter creates a Reporter. A nil logger falls back to slog.Default(),
// matching the teacher's lexer debug-logger default.
func NewReporter(log *slog.Logger) *Reporter {
	if log == nil {
		log = slog.Default()
	}
	return &Reporter{log: log}
}

// Report records an error-severity Diagnostic and returns a chainable
// Builder for attaching references/fixits.
func (r *Reporter) Report(kind Kind, pos token.Position, format string, args ...any) *Builder {
	return r.report(Error, kind, pos, format, args...)
}

// Warn records a warning-severity Diagnostic.
func (r *Reporter) Warn(kind Kind, pos token.Position, format string, args ...any) *Builder {
	return r.report(Warning, kind, pos, format, args...)
}

func (r *Reporter) report(sev Severity, kind Kind, pos token.Position, format string, args ...any) *Builder {
	d := Diagnostic{Severity: sev, Kind: kind, Position: pos, Message: fmt.Sprintf(format, args...)}
	r.diags = append(r.diags, d)
	idx := len(r.diags) - 1
	r.log.Debug("diagnostic reported", "severity", sev, "kind", kind, "pos", pos.String(), "message", d.Message)
	return &Builder{r: r, diag: &r.diags[idx]}
}

// Diagnostics returns every Diagnostic reported so far, in report order.
func (r *Reporter) Diagnostics() []Diagnostic { return r.diags }

// HasErrors reports whether any error-severity Diagnostic was reported.
// Per spec §7, IR generation must never run on a compilation for which
// this returns true.
func (r *Reporter) HasErrors() bool {
	for _, d := range r.diags {
		if d.Severity == Error {
			return true
		}
	}
	return false
}
