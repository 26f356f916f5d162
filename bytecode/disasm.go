package bytecode

import (
	"fmt"
	"strings"

	"github.com/remora-mod/remora/classfile"
)

// Disassemble renders a body one instruction per line with pool operands
// resolved. It is diagnostic output: unresolvable operands render as an
// error note instead of failing.
func Disassemble(b *Body, pool *classfile.Pool) string {
	var sb strings.Builder
	for i, in := range b.Instrs {
		fmt.Fprintf(&sb, "%4d  %-18s%s\n", i, in.Op.String(), operandString(in, pool))
	}
	for _, r := range b.Ranges {
		catch := "?"
		if cls, err := pool.ClassName(r.TypeRef); err == nil {
			catch = cls
		}
		fmt.Fprintf(&sb, "      [%d, %d) -> %d catch %s\n", r.Start, r.End, r.Handler, catch)
	}
	return sb.String()
}

func operandString(in Instr, pool *classfile.Pool) string {
	switch in.Op.Info().Operand {
	case OperandSlot:
		return fmt.Sprintf("%d", in.A)
	case OperandBranch:
		return fmt.Sprintf("-> %d", in.A)
	case OperandPool:
		return poolString(in, pool)
	default:
		return ""
	}
}

func poolString(in Instr, pool *classfile.Pool) string {
	idx := uint16(in.A)
	if in.Op == OpNew {
		cls, err := pool.ClassName(idx)
		if err != nil {
			return fmt.Sprintf("#%d <%v>", idx, err)
		}
		return fmt.Sprintf("#%d %s", idx, cls)
	}
	if in.Op == OpPushConst {
		e, err := pool.Entry(idx)
		if err != nil {
			return fmt.Sprintf("#%d <%v>", idx, err)
		}
		switch e.Kind {
		case classfile.KindUtf8:
			return fmt.Sprintf("#%d %q", idx, e.Utf8)
		case classfile.KindInt32:
			return fmt.Sprintf("#%d %d", idx, e.Int32)
		case classfile.KindFloat64:
			return fmt.Sprintf("#%d %g", idx, e.Float64)
		default:
			return fmt.Sprintf("#%d <%s>", idx, e.Kind)
		}
	}
	class, name, desc, err := pool.Member(idx)
	if err != nil {
		return fmt.Sprintf("#%d <%v>", idx, err)
	}
	return fmt.Sprintf("#%d %s.%s %s", idx, class, name, desc)
}
