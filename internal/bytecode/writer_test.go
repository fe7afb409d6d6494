package bytecode_test

import (
	"encoding/binary"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/buildc-lang/buildc/internal/bytecode"
	"github.com/buildc-lang/buildc/internal/diag"
	"github.com/buildc-lang/buildc/internal/ir"
	"github.com/buildc-lang/buildc/internal/token"
)

func pos(line, col uint32) token.Position {
	return token.Position{Line: line, Column: col}
}

// TestWriteRecordShapes checks five fixed-size record shapes from the
// bytecode record-format table (op, op+reg, op+u16, op+reg×3, test) against
// their exact byte layout.
func TestWriteRecordShapes(t *testing.T) {
	// Given: one instruction of each of those five shapes
	w := bytecode.NewWriter(nil)
	w.WriteOp(pos(1, 1), ir.OpReturn)
	w.WriteReg(pos(0, 0), ir.OpNeg, ir.Reg(2))
	w.WriteIndex(pos(0, 0), ir.OpLoadConst, 0x1234)
	w.WriteRegRegReg(pos(0, 0), ir.OpAdd, ir.Reg(1), ir.Reg(2), ir.Reg(3))
	w.WriteTest(pos(0, 0), ir.OpTest, ir.TestEqual, ir.Reg(4), ir.Reg(5), ir.Reg(6))

	// When: built
	buf := w.Build()

	// Then: bytes match the shapes exactly, in emission order
	want := []byte{
		byte(ir.OpReturn),
		byte(ir.OpNeg), 2,
		byte(ir.OpLoadConst), 0x34, 0x12,
		byte(ir.OpAdd), 1, 2, 3,
		byte(ir.OpTest), byte(ir.TestEqual), 4, 5, 6,
	}
	if diff := cmp.Diff(want, buf); diff != "" {
		t.Errorf("Build() mismatch (-want +got):\n%s", diff)
	}
}

// TestBrPatchesAbsoluteTarget verifies a forward Br resolves to the target
// label's byte offset once the target block has been registered.
func TestBrPatchesAbsoluteTarget(t *testing.T) {
	// Given: a forward branch to a block emitted after it
	w := bytecode.NewWriter(nil)
	target := &ir.BasicBlock{Label: "merge"}
	label := w.GetLabel(target)

	w.WriteBr(pos(1, 1), ir.OpBr, label)
	w.WriteOp(pos(0, 0), ir.OpNot) // filler so the target isn't at offset 0
	w.RegisterLabel(target)
	w.WriteOp(pos(2, 1), ir.OpReturn)

	// When: built
	buf := w.Build()

	// Then: the u32 operand following Br equals the target's offset (6:
	// 1 opcode byte + 4 operand bytes + 1 filler opcode byte)
	got := binary.LittleEndian.Uint32(buf[1:5])
	if got != 6 {
		t.Errorf("Br operand = %d, want 6", got)
	}
}

// TestBrCondPatchesRelativeOffset verifies BrCond's i16 operand is
// label.Begin - (position after the 2-byte operand).
func TestBrCondPatchesRelativeOffset(t *testing.T) {
	// Given: a conditional branch immediately followed by its target
	w := bytecode.NewWriter(nil)
	target := &ir.BasicBlock{Label: "else"}
	label := w.GetLabel(target)

	w.WriteBrCond(pos(1, 1), ir.OpBrCond, ir.Reg(0), label) // bytes 0..3
	w.RegisterLabel(target)                                 // offset 4

	buf := w.Build()

	got := int16(binary.LittleEndian.Uint16(buf[2:4]))
	if got != 0 {
		t.Errorf("BrCond relative offset = %d, want 0 (target immediately follows operand)", got)
	}
}

// TestJumpTableLayout verifies the variable-length JumpTable record: reg,
// u16 count, u32 default, then (u16, u32) pairs.
func TestJumpTableLayout(t *testing.T) {
	w := bytecode.NewWriter(nil)
	dflt := w.GetLabel(&ir.BasicBlock{Label: "default"})
	case0 := w.GetLabel(&ir.BasicBlock{Label: "case0"})
	case1 := w.GetLabel(&ir.BasicBlock{Label: "case1"})

	w.WriteJumpTable(pos(1, 1), ir.OpJumpTable, ir.Reg(1), dflt,
		[]bytecode.JumpEntry{{Value: 0, Target: case0}, {Value: 1, Target: case1}})

	buf := w.Build()

	wantLen := 1 + 1 + 2 + 4 + (2+4)*2
	if len(buf) != wantLen {
		t.Fatalf("len(buf) = %d, want %d", len(buf), wantLen)
	}
	if n := binary.LittleEndian.Uint16(buf[2:4]); n != 2 {
		t.Errorf("jump table count = %d, want 2", n)
	}
}

// TestBuildReportsOutOfRangeRelativeOffset verifies an overflowing relative
// branch is reported but still leaves a usable (truncated) buffer, per
// spec §4.6/§7: the writer never aborts emission over an interpreter limit.
func TestBuildReportsOutOfRangeRelativeOffset(t *testing.T) {
	// Given: a BrCond whose target sits far beyond int16's range
	rep := diag.NewReporter(nil)
	w := bytecode.NewWriter(rep)
	target := &ir.BasicBlock{Label: "far"}
	label := w.GetLabel(target)

	w.WriteBrCond(pos(1, 1), ir.OpBrCond, ir.Reg(0), label)
	label.Begin = 1 << 20 // far outside [-32768, 32767] once the -2 bias is applied

	// When
	buf := w.Build()

	// Then: a diagnostic was reported, and Build still returned a buffer
	diags := rep.Diagnostics()
	if len(diags) != 1 || diags[0].Kind != diag.KindBranchOffsetOutOfRange {
		t.Fatalf("Diagnostics() = %v, want one KindBranchOffsetOutOfRange", diags)
	}
	if len(buf) != 4 {
		t.Errorf("len(buf) = %d, want 4 (op, reg, i16 operand)", len(buf))
	}
}

// TestGetLineInfoSkipsSyntheticPositions verifies only non-synthetic
// positions are recorded in the line-info stream (spec §6.5).
func TestGetLineInfoSkipsSyntheticPositions(t *testing.T) {
	w := bytecode.NewWriter(nil)
	w.WriteOp(token.Position{}, ir.OpNot)     // synthetic: no entry
	w.WriteOp(pos(3, 7), ir.OpReturn)          // real position: one entry
	w.Build()

	want := []bytecode.LineEntry{{Offset: 1, Line: 3, Column: 7}}
	if diff := cmp.Diff(want, w.GetLineInfo()); diff != "" {
		t.Errorf("GetLineInfo() mismatch (-want +got):\n%s", diff)
	}
}

// TestRegisterLabelIsIdempotentAcrossGetLabel verifies GetLabel returns the
// same Label instance RegisterLabel later updates, so a forward reference
// obtained before the block is emitted still observes the patched Begin.
func TestRegisterLabelIsIdempotentAcrossGetLabel(t *testing.T) {
	w := bytecode.NewWriter(nil)
	block := &ir.BasicBlock{Label: "b"}

	forward := w.GetLabel(block)
	w.WriteOp(pos(1, 1), ir.OpNot)
	w.RegisterLabel(block)
	again := w.GetLabel(block)

	if forward != again {
		t.Fatalf("GetLabel returned different instances for the same block")
	}
	if forward.Begin != 1 {
		t.Errorf("Begin = %d, want 1", forward.Begin)
	}
}
