// Package bytecode implements BytecodeWriter (spec §4.6): linear assembly
// of one function's basic blocks into the flat record stream described by
// §6.4, with a label table for forward branch references and a parallel
// line-info stream (§6.5) for source-mapped diagnostics.
package bytecode

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/buildc-lang/buildc/internal/diag"
	"github.com/buildc-lang/buildc/internal/ir"
	"github.com/buildc-lang/buildc/internal/token"
)

// Label marks one BasicBlock's position in the emitted byte stream. Begin
// and End are recorded in bytes rather than a narrower width so Build can
// detect (and report, rather than silently wrap) an address that would not
// fit the interpreter's 32-bit absolute or 16-bit relative operand fields.
type Label struct {
	Block *ir.BasicBlock
	Begin uint64
	End   uint64
}

// labelRef is one not-yet-patched branch/jump-table operand: Position is the
// byte offset of its placeholder field, filled in by Build once every
// label's Begin is known.
type labelRef struct {
	label    *Label
	absolute bool
	position int
	pos      token.Position
}

// LineEntry is one row of the line-info stream (spec §6.5).
type LineEntry struct {
	Offset uint32
	Line   uint32
	Column uint32
}

// JumpEntry is one `(value, target)` arm of a JumpTable record.
type JumpEntry struct {
	Value  uint16
	Target *Label
}

// Writer assembles a single function's bytecode. It holds no state beyond
// one CodeBlock's worth of labels and references; callers construct a new
// Writer per function, matching the per-translation-unit ownership spec §5
// requires of every other compiler collaborator.
type Writer struct {
	buf    bytes.Buffer
	labels map[*ir.BasicBlock]*Label
	refs   []labelRef
	lines  []LineEntry
	rep    *diag.Reporter
}

// NewWriter creates a Writer. A nil Reporter falls back to diag.NewReporter(nil),
// matching the Reporter-optional convention used across the package (see
// diag.NewReporter).
func NewWriter(rep *diag.Reporter) *Writer {
	if rep == nil {
		rep = diag.NewReporter(nil)
	}
	return &Writer{labels: map[*ir.BasicBlock]*Label{}, rep: rep}
}

// RegisterLabel marks the writer's current byte offset as block's label
// Begin. Safe to call more than once (e.g. re-entering a loop header);
// each call rebases Begin to the current offset.
func (w *Writer) RegisterLabel(block *ir.BasicBlock) {
	l := w.GetLabel(block)
	l.Begin = uint64(w.buf.Len())
}

// GetLabel idempotently returns block's Label, creating it on first
// reference so a forward branch can target a block not yet emitted.
func (w *Writer) GetLabel(block *ir.BasicBlock) *Label {
	l, ok := w.labels[block]
	if !ok {
		l = &Label{Block: block}
		w.labels[block] = l
	}
	return l
}

// EndLabel records the last byte belonging to block's region, needed to
// express an exception handler's protected byte range.
func (w *Writer) EndLabel(block *ir.BasicBlock) {
	l := w.GetLabel(block)
	l.End = uint64(w.buf.Len()) - 1
}

func (w *Writer) recordLine(pos token.Position) {
	if pos.IsSynthetic() {
		return
	}
	w.lines = append(w.lines, LineEntry{Offset: uint32(w.buf.Len()), Line: pos.Line, Column: pos.Column})
}

func (w *Writer) writeOp(op ir.Op)      { w.buf.WriteByte(byte(op)) }
func (w *Writer) writeReg(r ir.Reg)     { w.buf.WriteByte(byte(r)) }
func (w *Writer) writeU16(v uint16)     { _ = binary.Write(&w.buf, binary.LittleEndian, v) }
func (w *Writer) writeI16(v int16)      { _ = binary.Write(&w.buf, binary.LittleEndian, v) }
func (w *Writer) writeU32(v uint32)     { _ = binary.Write(&w.buf, binary.LittleEndian, v) }

// WriteOp emits a bare opcode (shape `op`): Pass-equivalents, Return with no
// value, and the like.
func (w *Writer) WriteOp(pos token.Position, op ir.Op) {
	w.recordLine(pos)
	w.writeOp(op)
}

// WriteReg emits shape `op, reg`.
func (w *Writer) WriteReg(pos token.Position, op ir.Op, reg ir.Reg) {
	w.recordLine(pos)
	w.writeOp(op)
	w.writeReg(reg)
}

// WriteIndex emits shape `op, u16` (a single constant-pool index).
func (w *Writer) WriteIndex(pos token.Position, op ir.Op, index uint16) {
	w.recordLine(pos)
	w.writeOp(op)
	w.writeU16(index)
}

// WriteIndex2 emits shape `op, u16, u16` (Import/Export's name-pool index
// pair).
func (w *Writer) WriteIndex2(pos token.Position, op ir.Op, index1, index2 uint16) {
	w.recordLine(pos)
	w.writeOp(op)
	w.writeU16(index1)
	w.writeU16(index2)
}

// WriteRegShort emits shape `op, reg, i16` (an immediate small integer
// operand, not a branch — BrCond's relative offset is patched separately by
// WriteBrCond).
func (w *Writer) WriteRegShort(pos token.Position, op ir.Op, reg ir.Reg, val int16) {
	w.recordLine(pos)
	w.writeOp(op)
	w.writeReg(reg)
	w.writeI16(val)
}

// WriteRegIndex emits shape `op, reg, u16` (e.g. GetMember's name-pool
// index against a register operand).
func (w *Writer) WriteRegIndex(pos token.Position, op ir.Op, reg ir.Reg, index uint16) {
	w.recordLine(pos)
	w.writeOp(op)
	w.writeReg(reg)
	w.writeU16(index)
}

// WriteRegReg emits shape `op, reg, reg`.
func (w *Writer) WriteRegReg(pos token.Position, op ir.Op, reg1, reg2 ir.Reg) {
	w.recordLine(pos)
	w.writeOp(op)
	w.writeReg(reg1)
	w.writeReg(reg2)
}

// WriteRegRegIndex emits shape `op, reg, reg, u16` (SetMember's target,
// value and name-pool index).
func (w *Writer) WriteRegRegIndex(pos token.Position, op ir.Op, reg1, reg2 ir.Reg, index uint16) {
	w.recordLine(pos)
	w.writeOp(op)
	w.writeReg(reg1)
	w.writeReg(reg2)
	w.writeU16(index)
}

// WriteRegRegReg emits shape `op, reg, reg, reg` (binary arithmetic, GetSubscript/SetSubscript).
func (w *Writer) WriteRegRegReg(pos token.Position, op ir.Op, reg1, reg2, reg3 ir.Reg) {
	w.recordLine(pos)
	w.writeOp(op)
	w.writeReg(reg1)
	w.writeReg(reg2)
	w.writeReg(reg3)
}

// WriteTest emits shape `op, testkind, reg, reg, reg`.
func (w *Writer) WriteTest(pos token.Position, op ir.Op, kind ir.TestKind, reg1, reg2, reg3 ir.Reg) {
	w.recordLine(pos)
	w.writeOp(op)
	w.buf.WriteByte(byte(kind))
	w.writeReg(reg1)
	w.writeReg(reg2)
	w.writeReg(reg3)
}

// WriteBr emits an unconditional branch: `op (Br), u32 absolute`. The u32
// operand is a placeholder until Build patches every label reference.
func (w *Writer) WriteBr(pos token.Position, op ir.Op, label *Label) {
	w.recordLine(pos)
	w.writeOp(op)
	w.refs = append(w.refs, labelRef{label: label, absolute: true, position: w.buf.Len(), pos: pos})
	w.writeU32(0)
}

// WriteBrCond emits a conditional branch: `op (BrCond), reg, i16 relative`.
func (w *Writer) WriteBrCond(pos token.Position, op ir.Op, reg ir.Reg, label *Label) {
	w.recordLine(pos)
	w.writeOp(op)
	w.writeReg(reg)
	w.refs = append(w.refs, labelRef{label: label, absolute: false, position: w.buf.Len(), pos: pos})
	w.writeU16(0)
}

// WriteJumpTable emits `op (JumpTable), reg, u16 n, u32 default, [u16 val, u32 target]×n`.
func (w *Writer) WriteJumpTable(pos token.Position, op ir.Op, reg ir.Reg, dflt *Label, table []JumpEntry) {
	w.recordLine(pos)
	w.writeOp(op)
	w.writeReg(reg)
	w.writeU16(uint16(len(table)))
	w.refs = append(w.refs, labelRef{label: dflt, absolute: true, position: w.buf.Len(), pos: pos})
	w.writeU32(0)
	for _, e := range table {
		w.writeU16(e.Value)
		w.refs = append(w.refs, labelRef{label: e.Target, absolute: true, position: w.buf.Len(), pos: pos})
		w.writeU32(0)
	}
}

// JumpEntry above and the three helpers below cover every shape the §6.4
// table gives a fixed byte count; the opcode catalog (§6.3) also contains
// variable-arity ops (Call, Invoke, MakeList, MakeMap, MakeClosure, Select)
// the table's shape list never assigns a record to. Those are assembled as
// a fixed-shape header (written with one of the methods above) followed by
// a raw, headerless continuation appended with one of these three — no new
// opcode byte, no new line-table entry, since they continue the record the
// header already started.

// WriteRegList appends one raw register byte per element of regs, with no
// opcode or line-table entry of its own.
func (w *Writer) WriteRegList(regs []ir.Reg) {
	for _, r := range regs {
		w.writeReg(r)
	}
}

// WriteIndexList appends one raw u16 pool index per element of indices,
// with no opcode or line-table entry of its own.
func (w *Writer) WriteIndexList(indices []uint16) {
	for _, idx := range indices {
		w.writeU16(idx)
	}
}

// WriteArgCount appends a single raw byte, the argument/capture count of a
// variable-arity record whose header already spent its one u16 operand on
// something else (e.g. Invoke's name-pool index).
func (w *Writer) WriteArgCount(n int) {
	w.buf.WriteByte(byte(n))
}

// SelectEntry is one `(predecessor, value)` operand of a Select record.
type SelectEntry struct {
	Pred  *Label
	Value ir.Reg
}

// WriteSelect emits the SSA merge op: `op (Select), reg result, u16 n,
// [u32 predecessor-label, reg value]×n`. Select has no entry in the §6.4
// table at all — the table only covers ops with a source-independent
// shape, and a φ's shape depends on how many predecessors its block has.
// The interpreter is expected to resolve which operand to take by
// comparing the label of the block control actually arrived from, reusing
// the same absolute-label addressing Br/JumpTable already establish.
func (w *Writer) WriteSelect(pos token.Position, op ir.Op, result ir.Reg, entries []SelectEntry) {
	w.recordLine(pos)
	w.writeOp(op)
	w.writeReg(result)
	w.writeU16(uint16(len(entries)))
	for _, e := range entries {
		w.refs = append(w.refs, labelRef{label: e.Pred, absolute: true, position: w.buf.Len(), pos: pos})
		w.writeU32(0)
		w.writeReg(e.Value)
	}
}

// Build patches every forward label reference into the buffer and returns
// it. An absolute reference whose label.Begin exceeds math.MaxUint32, or a
// relative reference whose offset falls outside int16's range, is reported
// through the Reporter as KindBranchOffsetOutOfRange but the truncated
// value is still written and the buffer is still returned — the writer
// never aborts emission over an interpreter limit (spec §4.6/§7).
func (w *Writer) Build() []byte {
	buf := w.buf.Bytes()
	for _, ref := range w.refs {
		if ref.absolute {
			begin := ref.label.Begin
			if begin > math.MaxUint32 {
				w.rep.Report(diag.KindBranchOffsetOutOfRange, ref.pos,
					"branch target at byte %d exceeds the interpreter's 32-bit address limit", begin)
			}
			binary.LittleEndian.PutUint32(buf[ref.position:], uint32(begin))
		} else {
			diff := int64(ref.label.Begin) - int64(ref.position) - 2
			if diff < math.MinInt16 || diff > math.MaxInt16 {
				w.rep.Report(diag.KindBranchOffsetOutOfRange, ref.pos,
					"relative branch offset %d exceeds the interpreter's 16-bit range", diff)
			}
			binary.LittleEndian.PutUint16(buf[ref.position:], uint16(int16(diff)))
		}
	}
	return buf
}

// GetLineInfo returns the line-info stream built up alongside emission
// (spec §6.5); synthetic positions were never recorded, so a CodeBlock
// generated without source spans yields an empty slice.
func (w *Writer) GetLineInfo() []LineEntry {
	return w.lines
}
