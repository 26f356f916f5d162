package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/remora-mod/remora/classfile"
)

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

var (
	ErrBadOpcode  = errors.New("bytecode: unknown opcode")
	ErrTruncated  = errors.New("bytecode: truncated instruction")
	ErrBadBranch  = errors.New("bytecode: branch target is not an instruction boundary")
	ErrBadRange   = errors.New("bytecode: exception range is not on instruction boundaries")
	ErrBranchSpan = errors.New("bytecode: branch offset exceeds 16 bits")
	ErrRangeSpan  = errors.New("bytecode: exception range offset exceeds 16 bits")
	ErrEmptyBody  = errors.New("bytecode: empty method body")
	ErrBadInsert  = errors.New("bytecode: insertion index out of range")
)

// ---------------------------------------------------------------------------
// Instruction-list form
// ---------------------------------------------------------------------------

// Instr is one decoded instruction. For branch opcodes A is the target
// instruction index; for pool opcodes it is the constant pool index; for
// local opcodes it is the slot number.
type Instr struct {
	Op Opcode
	A  int
}

// Range is a protected region in instruction-index form: instructions in
// [Start, End) are covered, and a raise inside them enters Handler with the
// raised value on the stack. TypeRef names the caught class in the pool.
type Range struct {
	Start   int
	End     int
	Handler int
	TypeRef uint16
}

// Body is a method body lifted out of byte form. Branch operands are
// instruction indices and protected regions are index ranges, so code can
// be spliced without offset arithmetic. Encode lowers it back to bytes.
type Body struct {
	Instrs []Instr
	Ranges []Range
}

// ---------------------------------------------------------------------------
// Decoding
// ---------------------------------------------------------------------------

// Decode lifts raw code into instruction-list form. Every branch target and
// exception range bound must land exactly on an instruction boundary.
func Decode(code *classfile.Code) (*Body, error) {
	data := code.Bytes
	if len(data) == 0 {
		return nil, ErrEmptyBody
	}

	// First pass: instruction boundaries.
	indexAt := make(map[int]int)
	var offsets []int
	for off := 0; off < len(data); {
		op := Opcode(data[off])
		if !op.Known() {
			return nil, fmt.Errorf("%w: 0x%02X at offset %d", ErrBadOpcode, byte(op), off)
		}
		n := op.Len()
		if off+n > len(data) {
			return nil, fmt.Errorf("%w: %s at offset %d", ErrTruncated, op, off)
		}
		indexAt[off] = len(offsets)
		offsets = append(offsets, off)
		off += n
	}
	endIndex := len(offsets)
	indexAt[len(data)] = endIndex

	// Second pass: operands, with branch offsets resolved to indices.
	body := &Body{Instrs: make([]Instr, 0, len(offsets))}
	for _, off := range offsets {
		op := Opcode(data[off])
		in := Instr{Op: op}
		switch op.Info().Operand {
		case OperandSlot:
			in.A = int(data[off+1])
		case OperandPool:
			in.A = int(binary.BigEndian.Uint16(data[off+1 : off+3]))
		case OperandBranch:
			delta := int(int16(binary.BigEndian.Uint16(data[off+1 : off+3])))
			target := off + op.Len() + delta
			ti, ok := indexAt[target]
			if !ok || ti >= endIndex {
				return nil, fmt.Errorf("%w: %s at offset %d targets %d", ErrBadBranch, op, off, target)
			}
			in.A = ti
		}
		body.Instrs = append(body.Instrs, in)
	}

	// Exception ranges to index form. End may equal the code length.
	for _, h := range code.Handlers {
		start, ok1 := indexAt[int(h.Start)]
		end, ok2 := indexAt[int(h.End)]
		entry, ok3 := indexAt[int(h.Entry)]
		if !ok1 || !ok2 || !ok3 || start >= endIndex || entry >= endIndex {
			return nil, fmt.Errorf("%w: [%d, %d) -> %d", ErrBadRange, h.Start, h.End, h.Entry)
		}
		if start >= end {
			return nil, fmt.Errorf("%w: [%d, %d) is empty", ErrBadRange, h.Start, h.End)
		}
		body.Ranges = append(body.Ranges, Range{
			Start:   start,
			End:     end,
			Handler: entry,
			TypeRef: h.TypeRef,
		})
	}
	return body, nil
}

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

// Encode lowers the body back to raw code. MaxStack and MaxLocals are left
// zero; run Verify to compute them.
func (b *Body) Encode() (*classfile.Code, error) {
	if len(b.Instrs) == 0 {
		return nil, ErrEmptyBody
	}

	offsets := make([]int, len(b.Instrs)+1)
	off := 0
	for i, in := range b.Instrs {
		offsets[i] = off
		off += in.Op.Len()
	}
	offsets[len(b.Instrs)] = off

	buf := make([]byte, 0, off)
	for i, in := range b.Instrs {
		buf = append(buf, byte(in.Op))
		switch in.Op.Info().Operand {
		case OperandSlot:
			buf = append(buf, byte(in.A))
		case OperandPool:
			buf = binary.BigEndian.AppendUint16(buf, uint16(in.A))
		case OperandBranch:
			if in.A < 0 || in.A >= len(b.Instrs) {
				return nil, fmt.Errorf("%w: instr %d targets %d", ErrBadBranch, i, in.A)
			}
			delta := offsets[in.A] - (offsets[i] + in.Op.Len())
			if delta < -0x8000 || delta > 0x7FFF {
				return nil, fmt.Errorf("%w: instr %d delta %d", ErrBranchSpan, i, delta)
			}
			buf = binary.BigEndian.AppendUint16(buf, uint16(int16(delta)))
		}
	}

	code := &classfile.Code{Bytes: buf}
	for _, r := range b.Ranges {
		if r.Start < 0 || r.End > len(b.Instrs) || r.Start >= r.End ||
			r.Handler < 0 || r.Handler >= len(b.Instrs) {
			return nil, fmt.Errorf("%w: [%d, %d) -> %d", ErrBadRange, r.Start, r.End, r.Handler)
		}
		start, end, entry := offsets[r.Start], offsets[r.End], offsets[r.Handler]
		if end > 0xFFFF {
			return nil, fmt.Errorf("%w: range end at %d", ErrRangeSpan, end)
		}
		code.Handlers = append(code.Handlers, classfile.Handler{
			Start:   uint16(start),
			End:     uint16(end),
			Entry:   uint16(entry),
			TypeRef: r.TypeRef,
		})
	}
	return code, nil
}

// ---------------------------------------------------------------------------
// Splicing
// ---------------------------------------------------------------------------

// InsertBefore splices add ahead of instruction idx. Branches and handler
// entries that pointed at idx keep pointing there, so every path that
// previously reached idx runs the spliced code first. Protected ranges
// covering idx stay covering the spliced code.
func (b *Body) InsertBefore(idx int, add ...Instr) error {
	if idx < 0 || idx >= len(b.Instrs) {
		return fmt.Errorf("%w: %d of %d", ErrBadInsert, idx, len(b.Instrs))
	}
	n := len(add)
	if n == 0 {
		return nil
	}
	b.shift(idx, n)
	b.Instrs = append(b.Instrs[:idx], append(append([]Instr{}, add...), b.Instrs[idx:]...)...)
	return nil
}

// InsertPrologue splices add ahead of the whole body and redirects every
// branch, handler and range past it, so the prologue runs exactly once on
// entry and backward branches to the old first instruction skip it.
func (b *Body) InsertPrologue(add ...Instr) {
	n := len(add)
	if n == 0 {
		return
	}
	for i := range b.Instrs {
		if b.Instrs[i].Op.IsBranch() {
			b.Instrs[i].A += n
		}
	}
	for i := range b.Ranges {
		b.Ranges[i].Start += n
		b.Ranges[i].End += n
		b.Ranges[i].Handler += n
	}
	b.Instrs = append(append([]Instr{}, add...), b.Instrs...)
}

// shift renumbers indices strictly greater than idx by n. Indices equal to
// idx are left alone so control joining at idx flows through the insertion.
func (b *Body) shift(idx, n int) {
	for i := range b.Instrs {
		if b.Instrs[i].Op.IsBranch() && b.Instrs[i].A > idx {
			b.Instrs[i].A += n
		}
	}
	for i := range b.Ranges {
		if b.Ranges[i].Start > idx {
			b.Ranges[i].Start += n
		}
		if b.Ranges[i].End > idx {
			b.Ranges[i].End += n
		}
		if b.Ranges[i].Handler > idx {
			b.Ranges[i].Handler += n
		}
	}
}
