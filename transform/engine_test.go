package transform

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/remora-mod/remora/bytecode"
	"github.com/remora-mod/remora/classfile"
)

func guardRule(name string) Rule {
	return Rule{
		Name:  name,
		Class: "gw.fn",
		Match: MethodMatch{Shape: []classfile.TypeKind{classfile.KindRef}},
		Action: GuardedCallout{
			Callout: Callout{Class: "remora.Callouts", Name: name},
			Arg:     0,
		},
	}
}

func TestEngineIgnoresUnmatchedClass(t *testing.T) {
	eng := NewEngine([]Rule{guardRule("guard")}, bytecode.UniversalBase("gw.base"))

	// Classes no rule aims at are passed through on the name check alone,
	// so even unparseable bytes survive untouched.
	junk := []byte("not a class")
	if out := eng.Transform("gw.zz", junk); !bytes.Equal(out, junk) {
		t.Errorf("Transform altered an unmatched class")
	}
	r := eng.Report()
	if r.Seen != 1 || r.Matched != 0 {
		t.Errorf("Report = %+v, want Seen=1 Matched=0", r)
	}
}

func TestEngineBadDataPassthrough(t *testing.T) {
	eng := NewEngine([]Rule{guardRule("guard")}, bytecode.UniversalBase("gw.base"))
	junk := []byte("not a class")
	if out := eng.Transform("gw.fn", junk); !bytes.Equal(out, junk) {
		t.Errorf("Transform altered unparseable bytes")
	}
}

func TestEngineSkipsMissingTarget(t *testing.T) {
	// The method shapes in the class do not include the rule's pattern.
	cf := classfile.New("gw.fn", "gw.base")
	body := &bytecode.Body{Instrs: []bytecode.Instr{{Op: bytecode.OpReturn}}}
	data := finishClass(t, cf, "aa", "(I)V", body)

	eng := NewEngine([]Rule{guardRule("guard")}, bytecode.UniversalBase("gw.base"))
	if out := eng.Transform("gw.fn", data); !bytes.Equal(out, data) {
		t.Errorf("Transform altered a class with no matching method")
	}
	r := eng.Report()
	if r.Skipped != 1 || r.Rewritten != 0 || r.Failed != 0 {
		t.Errorf("Report = %+v, want Skipped=1 Rewritten=0 Failed=0", r)
	}
}

func TestEngineDropsFailingRule(t *testing.T) {
	cf := classfile.New("gw.fn", "gw.base")
	body := &bytecode.Body{Instrs: []bytecode.Instr{
		{Op: bytecode.OpPushTrue},
		{Op: bytecode.OpReturnValue},
	}}
	data := finishClass(t, cf, "aa", "(Lgw.bk;)Z", body)

	bad := guardRule("guard")
	bad.Action = GuardedCallout{
		Callout: Callout{Class: "remora.Callouts", Name: "guard"},
		Arg:     5, // out of range for a one-parameter method
	}
	eng := NewEngine([]Rule{bad}, bytecode.UniversalBase("gw.base"))
	if out := eng.Transform("gw.fn", data); !bytes.Equal(out, data) {
		t.Errorf("Transform altered the class despite a failing rule")
	}
	if r := eng.Report(); r.Failed != 1 || r.Rewritten != 0 {
		t.Errorf("Report = %+v, want Failed=1 Rewritten=0", r)
	}
}

func TestEngineRecoversFromPanic(t *testing.T) {
	cf := classfile.New("gw.fn", "gw.base")
	body := &bytecode.Body{Instrs: []bytecode.Instr{
		{Op: bytecode.OpPushTrue},
		{Op: bytecode.OpReturnValue},
	}}
	data := finishClass(t, cf, "aa", "(Lgw.bk;)Z", body)

	broken := guardRule("guard")
	broken.Action = nil
	eng := NewEngine([]Rule{broken}, bytecode.UniversalBase("gw.base"))
	if out := eng.Transform("gw.fn", data); !bytes.Equal(out, data) {
		t.Errorf("Transform altered the class while panicking")
	}
}

func TestEngineChainsRules(t *testing.T) {
	cf := classfile.New("gw.fn", "gw.base")
	body := &bytecode.Body{Instrs: []bytecode.Instr{
		{Op: bytecode.OpPushTrue},
		{Op: bytecode.OpReturnValue},
	}}
	data := finishClass(t, cf, "aa", "(Lgw.bk;)Z", body)

	notify := Rule{
		Name:   "notify",
		Class:  "gw.fn",
		Match:  MethodMatch{Shape: []classfile.TypeKind{classfile.KindRef}},
		Action: PreReturnInject{Callout: Callout{Class: "remora.Callouts", Name: "notify"}},
	}
	eng := NewEngine([]Rule{guardRule("guard"), notify}, bytecode.UniversalBase("gw.base"))

	out := eng.Transform("gw.fn", data)
	_, rbody := methodBody(t, out, "aa")
	want := []bytecode.Opcode{
		bytecode.OpLoad, bytecode.OpLoad, bytecode.OpCallStatic, bytecode.OpJumpIfFalse,
		bytecode.OpPushFalse, bytecode.OpLoad, bytecode.OpCallStatic, bytecode.OpReturnValue,
		bytecode.OpPushTrue, bytecode.OpLoad, bytecode.OpCallStatic, bytecode.OpReturnValue,
	}
	if !reflect.DeepEqual(ops(rbody), want) {
		t.Fatalf("ops = %v, want %v", ops(rbody), want)
	}
	if got := rbody.Instrs[3].A; got != 8 {
		t.Errorf("guard jump target = %d, want 8", got)
	}
	if r := eng.Report(); r.Rewritten != 2 {
		t.Errorf("Rewritten = %d, want 2", r.Rewritten)
	}
}
