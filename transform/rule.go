// Package transform is the load-time rewrite engine. It intercepts classes
// on their way into the host loader, matches methods by declaring class and
// structural shape, splices in calls to the dispatch layer, and re-verifies
// every rewritten body before handing it back. A class that cannot be
// rewritten cleanly is always passed through untouched.
package transform

import (
	"errors"

	"github.com/remora-mod/remora/bytecode"
	"github.com/remora-mod/remora/classfile"
)

var (
	// ErrNoTarget means a rule's pattern is not present in the class it was
	// aimed at. This is the expected outcome when the host's internal
	// layout shifts, not a failure.
	ErrNoTarget = errors.New("transform: target pattern not present")

	ErrBadRule  = errors.New("transform: malformed rule")
	ErrPoolFull = errors.New("transform: constant pool full")
)

// Rule aims one rewrite action at methods of one host class. Methods are
// matched structurally: the parameter shape always, the name only when one
// is pinned for this host version.
type Rule struct {
	Name   string // diagnostic id
	Class  string // declaring class
	Match  MethodMatch
	Action Action
}

// MethodMatch selects methods within the target class.
type MethodMatch struct {
	Name  string // pinned name, empty matches any
	Shape []classfile.TypeKind
}

// Matches reports whether a method's name and descriptor fit the pattern.
func (m MethodMatch) Matches(name, desc string) bool {
	if m.Name != "" && m.Name != name {
		return false
	}
	params, _, err := classfile.ParseDescriptor(desc)
	if err != nil {
		return false
	}
	if len(params) != len(m.Shape) {
		return false
	}
	for i, p := range params {
		if p.Kind != m.Shape[i] {
			return false
		}
	}
	return true
}

// Callout names a static entry point in the dispatch layer. Injected code
// references it by class and method name; the descriptor is derived from
// the rewritten method's own signature.
type Callout struct {
	Class string
	Name  string
}

// FieldRef identifies the assignment target of a field override. An empty
// Name matches any field of the class with the right descriptor.
type FieldRef struct {
	Class string
	Name  string
	Desc  string
}

// Constant is a replacement constant for a field override.
type Constant struct {
	Kind  classfile.TypeKind
	Str   string
	Int   int32
	Float float64
}

// poolIndex interns the constant, returning 0 when the pool is full or the
// kind has no constant form.
func (c Constant) poolIndex(p *classfile.Pool) uint16 {
	switch c.Kind {
	case classfile.KindString:
		return p.AddUtf8(c.Str)
	case classfile.KindInt:
		return p.AddInt32(c.Int)
	case classfile.KindFloat:
		return p.AddFloat64(c.Float)
	default:
		return 0
	}
}

// Action is one rewrite strategy. The set is closed: these four shapes are
// the only rewrites the engine knows how to verify.
type Action interface {
	name() string
	apply(cf *classfile.ClassFile, body *bytecode.Body, sig bytecode.Sig) error
}

// GuardedCallout injects a cancellable interception at method entry: call
// the dispatch function with the receiver (and one chosen argument), and if
// it answers true, return the method's zero default instead of running the
// original body.
type GuardedCallout struct {
	Callout Callout
	Arg     int // parameter position passed after the receiver, -1 for none
}

func (GuardedCallout) name() string { return "guarded-callout" }

// FullReplace discards the original body and forwards the receiver and all
// arguments to the dispatch function, returning its result.
type FullReplace struct {
	Callout Callout
}

func (FullReplace) name() string { return "full-replace" }

// FieldOverride forces assignments to one field to a fixed constant or
// through a computing dispatch function, leaving surrounding logic intact.
// Exactly one of Const and Compute must be set.
type FieldOverride struct {
	Field   FieldRef
	Const   *Constant
	Compute *Callout
}

func (FieldOverride) name() string { return "field-override" }

// PreReturnInject calls the dispatch function with the receiver immediately
// before every normal return point. Raise edges are left alone.
type PreReturnInject struct {
	Callout Callout
}

func (PreReturnInject) name() string { return "pre-return-inject" }
