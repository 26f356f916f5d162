package transform

import (
	"fmt"

	"github.com/remora-mod/remora/bytecode"
	"github.com/remora-mod/remora/classfile"
)

// ---------------------------------------------------------------------------
// Guarded call-out
// ---------------------------------------------------------------------------

func (g GuardedCallout) apply(cf *classfile.ClassFile, body *bytecode.Body, sig bytecode.Sig) error {
	pool := cf.Pool
	var params []classfile.Type
	var ins []bytecode.Instr

	if !sig.Static {
		params = append(params, classfile.Type{Kind: classfile.KindRef, Class: sig.Owner})
		ins = append(ins, bytecode.Instr{Op: bytecode.OpLoad, A: 0})
	}
	if g.Arg >= 0 {
		if g.Arg >= len(sig.Params) {
			return fmt.Errorf("%w: argument %d of %d", ErrBadRule, g.Arg, len(sig.Params))
		}
		slot := g.Arg
		if !sig.Static {
			slot++
		}
		params = append(params, sig.Params[g.Arg])
		ins = append(ins, bytecode.Instr{Op: bytecode.OpLoad, A: slot})
	}

	desc := classfile.FormatDescriptor(params, classfile.Type{Kind: classfile.KindBool})
	ref := pool.AddMemberRef(g.Callout.Class, g.Callout.Name, desc)
	if ref == 0 {
		return ErrPoolFull
	}
	ins = append(ins, bytecode.Instr{Op: bytecode.OpCallStatic, A: int(ref)})

	// True means intercepted: fall through to the default exit. False jumps
	// over it into the original body.
	jump := len(ins)
	ins = append(ins, bytecode.Instr{Op: bytecode.OpJumpIfFalse})
	exit, err := defaultExit(sig.Ret, pool)
	if err != nil {
		return err
	}
	ins = append(ins, exit...)
	ins[jump].A = len(ins)

	body.InsertPrologue(ins...)
	return nil
}

// defaultExit builds the instruction tail that returns a method's
// documented default: void, false, zero, empty string or null.
func defaultExit(ret classfile.Type, pool *classfile.Pool) ([]bytecode.Instr, error) {
	switch ret.Kind {
	case classfile.KindVoid:
		return []bytecode.Instr{{Op: bytecode.OpReturn}}, nil
	case classfile.KindBool:
		return []bytecode.Instr{
			{Op: bytecode.OpPushFalse},
			{Op: bytecode.OpReturnValue},
		}, nil
	case classfile.KindInt:
		return constExit(pool.AddInt32(0))
	case classfile.KindFloat:
		return constExit(pool.AddFloat64(0))
	case classfile.KindString:
		return constExit(pool.AddUtf8(""))
	case classfile.KindRef:
		return []bytecode.Instr{
			{Op: bytecode.OpPushNull},
			{Op: bytecode.OpReturnValue},
		}, nil
	default:
		return nil, fmt.Errorf("%w: no default for return kind %s", ErrBadRule, ret.Kind)
	}
}

func constExit(idx uint16) ([]bytecode.Instr, error) {
	if idx == 0 {
		return nil, ErrPoolFull
	}
	return []bytecode.Instr{
		{Op: bytecode.OpPushConst, A: int(idx)},
		{Op: bytecode.OpReturnValue},
	}, nil
}

// ---------------------------------------------------------------------------
// Full replace
// ---------------------------------------------------------------------------

func (r FullReplace) apply(cf *classfile.ClassFile, body *bytecode.Body, sig bytecode.Sig) error {
	pool := cf.Pool
	var params []classfile.Type
	var ins []bytecode.Instr

	slot := 0
	if !sig.Static {
		params = append(params, classfile.Type{Kind: classfile.KindRef, Class: sig.Owner})
		ins = append(ins, bytecode.Instr{Op: bytecode.OpLoad, A: 0})
		slot = 1
	}
	for _, p := range sig.Params {
		params = append(params, p)
		ins = append(ins, bytecode.Instr{Op: bytecode.OpLoad, A: slot})
		slot++
	}

	desc := classfile.FormatDescriptor(params, sig.Ret)
	ref := pool.AddMemberRef(r.Callout.Class, r.Callout.Name, desc)
	if ref == 0 {
		return ErrPoolFull
	}
	ins = append(ins, bytecode.Instr{Op: bytecode.OpCallStatic, A: int(ref)})
	if sig.Ret.Kind == classfile.KindVoid {
		ins = append(ins, bytecode.Instr{Op: bytecode.OpReturn})
	} else {
		ins = append(ins, bytecode.Instr{Op: bytecode.OpReturnValue})
	}

	body.Instrs = ins
	body.Ranges = nil
	return nil
}

// ---------------------------------------------------------------------------
// Field override
// ---------------------------------------------------------------------------

func (f FieldOverride) apply(cf *classfile.ClassFile, body *bytecode.Body, sig bytecode.Sig) error {
	if (f.Const == nil) == (f.Compute == nil) {
		return fmt.Errorf("%w: field override needs exactly one of const and compute", ErrBadRule)
	}
	pool := cf.Pool

	var computeRef uint16
	if f.Compute != nil {
		ft, err := classfile.ParseType(f.Field.Desc)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrBadRule, err)
		}
		desc := classfile.FormatDescriptor([]classfile.Type{ft}, ft)
		if computeRef = pool.AddMemberRef(f.Compute.Class, f.Compute.Name, desc); computeRef == 0 {
			return ErrPoolFull
		}
	} else {
		switch f.Const.Kind {
		case classfile.KindString, classfile.KindInt, classfile.KindFloat:
		default:
			return fmt.Errorf("%w: no constant form for %s", ErrBadRule, f.Const.Kind)
		}
	}

	var sites []int
	for i, in := range body.Instrs {
		if in.Op != bytecode.OpPutField && in.Op != bytecode.OpPutStatic {
			continue
		}
		class, name, desc, err := pool.Member(uint16(in.A))
		if err != nil {
			continue
		}
		if class != f.Field.Class || desc != f.Field.Desc {
			continue
		}
		if f.Field.Name != "" && f.Field.Name != name {
			continue
		}
		sites = append(sites, i)
	}

	patched := 0
	for k := len(sites) - 1; k >= 0; k-- {
		i := sites[k]
		if f.Const != nil {
			// Only the narrow constant-feeds-assignment shape is rewritten;
			// anything else is not this rule's target.
			if i == 0 || body.Instrs[i-1].Op != bytecode.OpPushConst {
				continue
			}
			idx := f.Const.poolIndex(pool)
			if idx == 0 {
				return ErrPoolFull
			}
			body.Instrs[i-1].A = int(idx)
			patched++
			continue
		}
		if err := body.InsertBefore(i, bytecode.Instr{Op: bytecode.OpCallStatic, A: int(computeRef)}); err != nil {
			return err
		}
		patched++
	}
	if patched == 0 {
		return ErrNoTarget
	}
	return nil
}

// ---------------------------------------------------------------------------
// Pre-return injection
// ---------------------------------------------------------------------------

func (p PreReturnInject) apply(cf *classfile.ClassFile, body *bytecode.Body, sig bytecode.Sig) error {
	pool := cf.Pool
	var params []classfile.Type
	var load []bytecode.Instr
	if !sig.Static {
		params = append(params, classfile.Type{Kind: classfile.KindRef, Class: sig.Owner})
		load = append(load, bytecode.Instr{Op: bytecode.OpLoad, A: 0})
	}
	desc := classfile.FormatDescriptor(params, classfile.Type{Kind: classfile.KindVoid})
	ref := pool.AddMemberRef(p.Callout.Class, p.Callout.Name, desc)
	if ref == 0 {
		return ErrPoolFull
	}
	call := append(load, bytecode.Instr{Op: bytecode.OpCallStatic, A: int(ref)})

	// Normal exits only. Raise edges must keep their meaning, so OpThrow
	// sites are left alone.
	var exits []int
	for i, in := range body.Instrs {
		if in.Op.IsReturn() {
			exits = append(exits, i)
		}
	}
	if len(exits) == 0 {
		return ErrNoTarget
	}
	// Back to front so earlier exit indices stay valid across splices.
	for k := len(exits) - 1; k >= 0; k-- {
		if err := body.InsertBefore(exits[k], call...); err != nil {
			return err
		}
	}
	return nil
}
