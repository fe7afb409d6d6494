// Package compiler wires the lexer, parser, semantic analyzer, IR builder,
// and bytecode writer into the single pipeline spec §7 describes, sharing
// one diag.Reporter across every stage the way the teacher's CLI shares one
// Vault/Scrubber pair across its own plan/execute stages.
package compiler

import "log/slog"

// Options configures one Compile call.
type Options struct {
	// TabSize overrides source.DefaultTabSize for column accounting.
	TabSize int
	// Debug enables per-stage slog.Debug logging (elapsed time, counts).
	Debug bool
	// MaxErrors stops the pipeline early once the reporter has accumulated
	// this many diagnostics; 0 means no limit.
	MaxErrors int
	// Logger receives pipeline-lifecycle logs (stage start/elapsed, panic
	// recovery). A nil Logger falls back to slog.Default(). This is
	// distinct from the diag.Reporter's own internal logger: Logger
	// narrates the pipeline, the Reporter narrates the source.
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}
