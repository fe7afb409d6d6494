package compiler

import "github.com/buildc-lang/buildc/internal/ir"

// ConstPool interns the constant operands one CodeBlock's bytecode
// references, so a Load instruction carries a small pool index instead of
// repeating the literal's bytes inline (spec §4.6 constant-pool). bytecode.
// Writer itself has no notion of a constant pool: it assembles one
// instruction stream from caller-supplied indices, nothing more. Building
// and owning the pool is this package's job.
//
// Symbol/member names are interned into the same pool as string constants
// (InternName), since the bytecode record shapes that carry a name (member
// access, method invocation, import/export) use exactly the same `u16
// index into the constant table` slot a LoadConst does.
type ConstPool struct {
	entries []ir.Const
	index   map[ir.Const]uint16
}

// NewConstPool returns an empty pool.
func NewConstPool() *ConstPool {
	return &ConstPool{index: map[ir.Const]uint16{}}
}

// Intern returns c's pool index, adding it if this is the first occurrence.
func (p *ConstPool) Intern(c ir.Const) uint16 {
	if idx, ok := p.index[c]; ok {
		return idx
	}
	idx := uint16(len(p.entries))
	p.entries = append(p.entries, c)
	p.index[c] = idx
	return idx
}

// InternName interns name as a string constant, for records that reference
// a symbol or member name rather than a literal value.
func (p *ConstPool) InternName(name string) uint16 {
	return p.Intern(nameConst(name))
}

// Entries returns every interned constant, in assignment order (entry i
// has pool index i).
func (p *ConstPool) Entries() []ir.Const {
	return p.entries
}
