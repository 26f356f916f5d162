package bytecode

import (
	"errors"
	"fmt"

	"github.com/remora-mod/remora/classfile"
)

// ---------------------------------------------------------------------------
// Structural verifier
//
// Mirrors the host loader's acceptance rules: every reachable instruction
// must see a consistent operand stack and consistent locals no matter which
// path reached it. Operands are checked at kind level; when two reference
// types meet at a join the common ancestor comes from the resolver. The
// stack and local budgets are recomputed as a side effect.
// ---------------------------------------------------------------------------

var (
	ErrUnderflow    = errors.New("bytecode: operand stack underflow")
	ErrTypeMismatch = errors.New("bytecode: operand type mismatch")
	ErrBadLocal     = errors.New("bytecode: bad local slot")
	ErrFallsOff     = errors.New("bytecode: control flow falls off the end")
)

// vkind is the verifier's value classification.
type vkind uint8

const (
	vTop vkind = iota // undefined or conflicting
	vBool
	vInt
	vFloat
	vString
	vRef
)

// vtype is an abstract value. cls is set for vRef; the empty class is the
// null type, which merges into any reference.
type vtype struct {
	kind vkind
	cls  string
}

func (t vtype) String() string {
	switch t.kind {
	case vBool:
		return "bool"
	case vInt:
		return "int"
	case vFloat:
		return "float"
	case vString:
		return "string"
	case vRef:
		if t.cls == "" {
			return "null"
		}
		return "ref " + t.cls
	default:
		return "top"
	}
}

// valueOf maps a descriptor type to its abstract value.
func valueOf(t classfile.Type) vtype {
	switch t.Kind {
	case classfile.KindBool:
		return vtype{kind: vBool}
	case classfile.KindInt:
		return vtype{kind: vInt}
	case classfile.KindFloat:
		return vtype{kind: vFloat}
	case classfile.KindString:
		return vtype{kind: vString}
	case classfile.KindRef:
		return vtype{kind: vRef, cls: t.Class}
	default:
		return vtype{}
	}
}

// ---------------------------------------------------------------------------
// Frames
// ---------------------------------------------------------------------------

// frame is the abstract machine state at one instruction.
type frame struct {
	stack  []vtype
	locals []vtype
}

func (f *frame) clone() *frame {
	return &frame{
		stack:  append([]vtype(nil), f.stack...),
		locals: append([]vtype(nil), f.locals...),
	}
}

func (f *frame) push(t vtype) {
	f.stack = append(f.stack, t)
}

func (f *frame) pop() (vtype, error) {
	if len(f.stack) == 0 {
		return vtype{}, ErrUnderflow
	}
	t := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return t, nil
}

func (f *frame) popRef() (vtype, error) {
	t, err := f.pop()
	if err != nil {
		return vtype{}, err
	}
	if t.kind != vRef {
		return vtype{}, fmt.Errorf("%w: have %s, want reference", ErrTypeMismatch, t)
	}
	return t, nil
}

func (f *frame) popBool() error {
	t, err := f.pop()
	if err != nil {
		return err
	}
	if t.kind != vBool {
		return fmt.Errorf("%w: have %s, want bool", ErrTypeMismatch, t)
	}
	return nil
}

func (f *frame) popNumeric() (vtype, error) {
	t, err := f.pop()
	if err != nil {
		return vtype{}, err
	}
	if t.kind != vInt && t.kind != vFloat {
		return vtype{}, fmt.Errorf("%w: have %s, want numeric", ErrTypeMismatch, t)
	}
	return t, nil
}

// popMatch pops a value that must be usable where want is expected.
// References match at kind level; class identity is the loader's problem,
// the join rules above keep the frame itself consistent.
func (f *frame) popMatch(want vtype) error {
	t, err := f.pop()
	if err != nil {
		return err
	}
	if want.kind == vRef {
		if t.kind != vRef {
			return fmt.Errorf("%w: have %s, want %s", ErrTypeMismatch, t, want)
		}
		return nil
	}
	if t.kind != want.kind {
		return fmt.Errorf("%w: have %s, want %s", ErrTypeMismatch, t, want)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Signatures
// ---------------------------------------------------------------------------

// Sig describes the method whose body is being checked. The owner class is
// typed into slot 0 unless the method is static.
type Sig struct {
	Owner  string
	Static bool
	Params []classfile.Type
	Ret    classfile.Type
}

// SigFor builds a Sig from a method's declaration in its class file.
func SigFor(cf *classfile.ClassFile, m *classfile.MethodInfo) (Sig, error) {
	desc := cf.MethodDesc(m)
	params, ret, err := classfile.ParseDescriptor(desc)
	if err != nil {
		return Sig{}, err
	}
	return Sig{
		Owner:  cf.Name(),
		Static: m.Flags&classfile.FlagStatic != 0,
		Params: params,
		Ret:    ret,
	}, nil
}

// ---------------------------------------------------------------------------
// Verifier
// ---------------------------------------------------------------------------

// Budgets are the recomputed frame limits for a verified body.
type Budgets struct {
	MaxStack  uint16
	MaxLocals uint16
}

// Verifier checks bodies against one class's constant pool.
type Verifier struct {
	Pool     *classfile.Pool
	Resolver AncestorResolver
}

// Verify abstract-interprets the body from its entry, following branch and
// raise edges, and returns the recomputed budgets. Unreachable instructions
// are tolerated; an inconsistent reachable frame is an error.
func (v *Verifier) Verify(b *Body, sig Sig) (Budgets, error) {
	n := len(b.Instrs)
	if n == 0 {
		return Budgets{}, ErrEmptyBody
	}
	for _, r := range b.Ranges {
		if r.Start < 0 || r.End > n || r.Start >= r.End || r.Handler < 0 || r.Handler >= n {
			return Budgets{}, fmt.Errorf("%w: [%d, %d) -> %d", ErrBadRange, r.Start, r.End, r.Handler)
		}
	}

	entry := &frame{}
	if !sig.Static {
		entry.locals = append(entry.locals, vtype{kind: vRef, cls: sig.Owner})
	}
	for _, p := range sig.Params {
		entry.locals = append(entry.locals, valueOf(p))
	}

	in := make([]*frame, n)
	in[0] = entry
	work := []int{0}
	queued := make([]bool, n)
	queued[0] = true
	maxStack := 0
	maxLocals := len(entry.locals)

	enqueue := func(t int) {
		if !queued[t] {
			queued[t] = true
			work = append(work, t)
		}
	}

	for len(work) > 0 {
		i := work[len(work)-1]
		work = work[:len(work)-1]
		queued[i] = false

		f := in[i].clone()
		if d := len(f.stack); d > maxStack {
			maxStack = d
		}

		// A raise anywhere in a protected region enters its handler with
		// the locals as of the raising instruction and only the raised
		// value on the stack.
		for _, r := range b.Ranges {
			if i < r.Start || i >= r.End {
				continue
			}
			cls, err := v.Pool.ClassName(r.TypeRef)
			if err != nil {
				return Budgets{}, fmt.Errorf("bytecode: handler type ref %d: %w", r.TypeRef, err)
			}
			hf := &frame{
				stack:  []vtype{{kind: vRef, cls: cls}},
				locals: append([]vtype(nil), f.locals...),
			}
			changed, err := v.join(in, r.Handler, hf)
			if err != nil {
				return Budgets{}, fmt.Errorf("instr %d: handler join at %d: %w", i, r.Handler, err)
			}
			if changed {
				enqueue(r.Handler)
			}
		}

		next, err := v.step(f, i, b.Instrs[i], sig)
		if err != nil {
			return Budgets{}, fmt.Errorf("instr %d (%s): %w", i, b.Instrs[i].Op, err)
		}
		if d := len(f.stack); d > maxStack {
			maxStack = d
		}
		if l := len(f.locals); l > maxLocals {
			maxLocals = l
		}

		for _, t := range next {
			if t == n {
				return Budgets{}, fmt.Errorf("%w: after instr %d", ErrFallsOff, i)
			}
			if t < 0 || t > n {
				return Budgets{}, fmt.Errorf("%w: instr %d targets %d", ErrBadBranch, i, t)
			}
			changed, err := v.join(in, t, f)
			if err != nil {
				return Budgets{}, fmt.Errorf("instr %d: join at %d: %w", i, t, err)
			}
			if changed {
				enqueue(t)
			}
		}
	}
	return Budgets{MaxStack: uint16(maxStack), MaxLocals: uint16(maxLocals)}, nil
}

// join folds frame f into the recorded entry state of instruction t and
// reports whether that state changed. Stacks must agree in depth; locals
// that disagree degrade to top.
func (v *Verifier) join(in []*frame, t int, f *frame) (bool, error) {
	if in[t] == nil {
		in[t] = f.clone()
		return true, nil
	}
	g := in[t]
	if len(g.stack) != len(f.stack) {
		return false, fmt.Errorf("%w: stack depth %d meets %d", ErrTypeMismatch, len(g.stack), len(f.stack))
	}
	changed := false
	for i := range g.stack {
		m, err := v.meetStack(g.stack[i], f.stack[i])
		if err != nil {
			return false, fmt.Errorf("stack slot %d: %w", i, err)
		}
		if m != g.stack[i] {
			g.stack[i] = m
			changed = true
		}
	}
	long := len(g.locals)
	if len(f.locals) > long {
		long = len(f.locals)
	}
	for i := 0; i < long; i++ {
		a, b := vtype{}, vtype{}
		if i < len(g.locals) {
			a = g.locals[i]
		}
		if i < len(f.locals) {
			b = f.locals[i]
		}
		m := v.meetLocal(a, b)
		if i < len(g.locals) {
			if m != g.locals[i] {
				g.locals[i] = m
				changed = true
			}
		} else {
			g.locals = append(g.locals, m)
			changed = true
		}
	}
	return changed, nil
}

// meetStack merges two stack values. Kind disagreement on the stack is a
// structural error.
func (v *Verifier) meetStack(a, b vtype) (vtype, error) {
	if a == b {
		return a, nil
	}
	if a.kind == vRef && b.kind == vRef {
		return v.meetRef(a, b), nil
	}
	return vtype{}, fmt.Errorf("%w: %s meets %s", ErrTypeMismatch, a, b)
}

// meetLocal merges two local values. Disagreement degrades the slot to top
// rather than failing, matching how the host loader treats locals that are
// only live on some paths.
func (v *Verifier) meetLocal(a, b vtype) vtype {
	if a == b {
		return a
	}
	if a.kind == vRef && b.kind == vRef {
		return v.meetRef(a, b)
	}
	return vtype{}
}

func (v *Verifier) meetRef(a, b vtype) vtype {
	switch {
	case a.cls == b.cls:
		return a
	case a.cls == "":
		return b
	case b.cls == "":
		return a
	default:
		return vtype{kind: vRef, cls: v.Resolver.CommonAncestor(a.cls, b.cls)}
	}
}

// step simulates one instruction against f and returns its successor
// indices. Exits return none.
func (v *Verifier) step(f *frame, i int, in Instr, sig Sig) ([]int, error) {
	switch in.Op {
	case OpNop:

	case OpPop:
		if _, err := f.pop(); err != nil {
			return nil, err
		}

	case OpDup:
		t, err := f.pop()
		if err != nil {
			return nil, err
		}
		f.push(t)
		f.push(t)

	case OpSwap:
		b, err := f.pop()
		if err != nil {
			return nil, err
		}
		a, err := f.pop()
		if err != nil {
			return nil, err
		}
		f.push(b)
		f.push(a)

	case OpPushConst:
		e, err := v.Pool.Entry(uint16(in.A))
		if err != nil {
			return nil, err
		}
		switch e.Kind {
		case classfile.KindUtf8:
			f.push(vtype{kind: vString})
		case classfile.KindInt32:
			f.push(vtype{kind: vInt})
		case classfile.KindFloat64:
			f.push(vtype{kind: vFloat})
		default:
			return nil, fmt.Errorf("%w: pool entry %d is %s, not loadable", ErrTypeMismatch, in.A, e.Kind)
		}

	case OpPushNull:
		f.push(vtype{kind: vRef})

	case OpPushTrue, OpPushFalse:
		f.push(vtype{kind: vBool})

	case OpLoad:
		if in.A < 0 || in.A >= len(f.locals) || f.locals[in.A].kind == vTop {
			return nil, fmt.Errorf("%w: load of undefined slot %d", ErrBadLocal, in.A)
		}
		f.push(f.locals[in.A])

	case OpStore:
		t, err := f.pop()
		if err != nil {
			return nil, err
		}
		if in.A < 0 || in.A > 0xFF {
			return nil, fmt.Errorf("%w: slot %d", ErrBadLocal, in.A)
		}
		for len(f.locals) <= in.A {
			f.locals = append(f.locals, vtype{})
		}
		f.locals[in.A] = t

	case OpGetField:
		ft, err := v.fieldType(in.A)
		if err != nil {
			return nil, err
		}
		if _, err := f.popRef(); err != nil {
			return nil, err
		}
		f.push(ft)

	case OpPutField:
		ft, err := v.fieldType(in.A)
		if err != nil {
			return nil, err
		}
		if err := f.popMatch(ft); err != nil {
			return nil, err
		}
		if _, err := f.popRef(); err != nil {
			return nil, err
		}

	case OpGetStatic:
		ft, err := v.fieldType(in.A)
		if err != nil {
			return nil, err
		}
		f.push(ft)

	case OpPutStatic:
		ft, err := v.fieldType(in.A)
		if err != nil {
			return nil, err
		}
		if err := f.popMatch(ft); err != nil {
			return nil, err
		}

	case OpCallVirtual, OpCallStatic:
		params, ret, err := v.methodSig(in.A)
		if err != nil {
			return nil, err
		}
		for p := len(params) - 1; p >= 0; p-- {
			if err := f.popMatch(valueOf(params[p])); err != nil {
				return nil, fmt.Errorf("arg %d: %w", p, err)
			}
		}
		if in.Op == OpCallVirtual {
			if _, err := f.popRef(); err != nil {
				return nil, err
			}
		}
		if ret.Kind != classfile.KindVoid {
			f.push(valueOf(ret))
		}

	case OpNew:
		cls, err := v.Pool.ClassName(uint16(in.A))
		if err != nil {
			return nil, err
		}
		f.push(vtype{kind: vRef, cls: cls})

	case OpAdd, OpSub, OpMul, OpDiv:
		b, err := f.popNumeric()
		if err != nil {
			return nil, err
		}
		a, err := f.popNumeric()
		if err != nil {
			return nil, err
		}
		if a.kind != b.kind {
			return nil, fmt.Errorf("%w: %s with %s", ErrTypeMismatch, a, b)
		}
		f.push(a)

	case OpNeg:
		a, err := f.popNumeric()
		if err != nil {
			return nil, err
		}
		f.push(a)

	case OpCmpEq, OpCmpNe:
		b, err := f.pop()
		if err != nil {
			return nil, err
		}
		a, err := f.pop()
		if err != nil {
			return nil, err
		}
		if a.kind != b.kind {
			return nil, fmt.Errorf("%w: %s with %s", ErrTypeMismatch, a, b)
		}
		f.push(vtype{kind: vBool})

	case OpCmpLt, OpCmpLe, OpCmpGt, OpCmpGe:
		b, err := f.popNumeric()
		if err != nil {
			return nil, err
		}
		a, err := f.popNumeric()
		if err != nil {
			return nil, err
		}
		if a.kind != b.kind {
			return nil, fmt.Errorf("%w: %s with %s", ErrTypeMismatch, a, b)
		}
		f.push(vtype{kind: vBool})

	case OpJump:
		return []int{in.A}, nil

	case OpJumpIfTrue, OpJumpIfFalse:
		if err := f.popBool(); err != nil {
			return nil, err
		}
		return []int{in.A, i + 1}, nil

	case OpJumpIfNull, OpJumpIfNotNull:
		if _, err := f.popRef(); err != nil {
			return nil, err
		}
		return []int{in.A, i + 1}, nil

	case OpReturn:
		if sig.Ret.Kind != classfile.KindVoid {
			return nil, fmt.Errorf("%w: void return from %s method", ErrTypeMismatch, sig.Ret.Kind)
		}
		return nil, nil

	case OpReturnValue:
		if sig.Ret.Kind == classfile.KindVoid {
			return nil, fmt.Errorf("%w: value return from void method", ErrTypeMismatch)
		}
		if err := f.popMatch(valueOf(sig.Ret)); err != nil {
			return nil, err
		}
		return nil, nil

	case OpThrow:
		if _, err := f.popRef(); err != nil {
			return nil, err
		}
		return nil, nil

	default:
		return nil, fmt.Errorf("%w: 0x%02X", ErrBadOpcode, byte(in.Op))
	}
	return []int{i + 1}, nil
}

func (v *Verifier) fieldType(idx int) (vtype, error) {
	_, _, desc, err := v.Pool.Member(uint16(idx))
	if err != nil {
		return vtype{}, err
	}
	t, err := classfile.ParseType(desc)
	if err != nil {
		return vtype{}, err
	}
	if t.Kind == classfile.KindVoid {
		return vtype{}, fmt.Errorf("%w: void field", ErrTypeMismatch)
	}
	return valueOf(t), nil
}

func (v *Verifier) methodSig(idx int) ([]classfile.Type, classfile.Type, error) {
	_, _, desc, err := v.Pool.Member(uint16(idx))
	if err != nil {
		return nil, classfile.Type{}, err
	}
	return classfile.ParseDescriptor(desc)
}
