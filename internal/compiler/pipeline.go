package compiler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/buildc-lang/buildc/internal/ast"
	"github.com/buildc-lang/buildc/internal/diag"
	"github.com/buildc-lang/buildc/internal/ir"
	"github.com/buildc-lang/buildc/internal/lexer"
	"github.com/buildc-lang/buildc/internal/parser"
	"github.com/buildc-lang/buildc/internal/sema"
	"github.com/buildc-lang/buildc/internal/source"
	"github.com/buildc-lang/buildc/internal/symbols"
	"github.com/buildc-lang/buildc/internal/token"
)

// Stage identifies how far through the pipeline a Compile call should run,
// mirroring the debug subcommands spec §7 calls out (tokens/ast/ir/
// bytecode).
type Stage int

const (
	StageTokens Stage = iota
	StageAST
	StageIR
	StageBytecode
)

// Result accumulates whatever a Compile call produced before it stopped,
// either because it reached the requested Stage or because the reporter
// hit a stopping condition.
type Result struct {
	Tokens     []token.Token
	Script     *ast.Script
	Scope      *symbols.DeclScope
	CodeBlocks []*ir.CodeBlock
	Assembled  []*AssembledCode
	Reporter   *diag.Reporter
}

// HasErrors reports whether the reporter collected any error-severity
// diagnostic during this Compile call.
func (r *Result) HasErrors() bool { return r.Reporter.HasErrors() }

// Compile runs src through the pipeline up to and including through,
// sharing one diag.Reporter across every stage. A panic raised by any
// stage's internal invariant checks (ast/symbols "written twice" guards)
// is recovered and reported as err rather than propagated, since those
// panics indicate a bug in buildc itself, not a malformed script.
func Compile(src string, through Stage, opts Options) (result *Result, err error) {
	log := opts.logger()
	rep := diag.NewReporter(log)
	result = &Result{Reporter: rep}

	defer func() {
		if rv := recover(); rv != nil {
			log.Warn("compile: recovered from internal panic", "panic", rv)
			err = fmt.Errorf("buildc: internal invariant violation: %v", rv)
		}
	}()

	tabSize := opts.TabSize
	if tabSize <= 0 {
		tabSize = source.DefaultTabSize
	}
	lx := lexer.New(source.NewWithTabSize(src, tabSize), rep)

	start := time.Now()
	for {
		tok := lx.Next()
		result.Tokens = append(result.Tokens, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	opts.debugStage(log, "tokens", start, len(result.Tokens))

	if through == StageTokens || exceeded(rep, opts) {
		return result, nil
	}

	// A Text's cursor is stateful, so the tokens pass above cannot be
	// reused: parsing gets its own fresh Text and Lexer over the same src.
	text := source.NewWithTabSize(src, tabSize)
	p := parser.New(text, lexer.New(text, rep), rep)

	start = time.Now()
	result.Script = p.ParseScript()
	opts.debugStage(log, "ast", start, len(result.Script.Body))

	if through == StageAST || exceeded(rep, opts) {
		return result, nil
	}

	start = time.Now()
	result.Scope = sema.Analyze(result.Script, rep)
	opts.debugStage(log, "sema", start, 0)

	// spec §7: IR generation assumes the AST is already error-free.
	if rep.HasErrors() {
		return result, nil
	}

	gen := ir.NewGenerator()
	result.CodeBlocks = gen.GenerateScript(result.Script)
	opts.debugStage(log, "ir", start, len(result.CodeBlocks))

	if through == StageIR || exceeded(rep, opts) {
		return result, nil
	}

	start = time.Now()
	for _, cb := range result.CodeBlocks {
		result.Assembled = append(result.Assembled, Assemble(cb, rep))
	}
	opts.debugStage(log, "bytecode", start, len(result.Assembled))

	return result, nil
}

func (o Options) debugStage(log *slog.Logger, stage string, start time.Time, count int) {
	if o.Debug {
		log.Debug("compile: stage complete", "stage", stage, "elapsed", time.Since(start), "count", count)
	}
}

func exceeded(rep *diag.Reporter, opts Options) bool {
	return opts.MaxErrors > 0 && len(rep.Diagnostics()) >= opts.MaxErrors
}
