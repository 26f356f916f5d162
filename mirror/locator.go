package mirror

import (
	"fmt"
	"sync"

	"github.com/remora-mod/remora/classfile"
	"github.com/remora-mod/remora/host"
)

// memberEntry memoizes one (class, operation) resolution, positive or
// negative. The sync.Once keeps the scan to a single execution no matter
// how many callers race on first use.
type memberEntry struct {
	once   sync.Once
	method host.Method
	field  host.Field
	err    error
}

// locate returns the memoized member for op on cls, scanning on first
// use. Negative results memoize too: a member that is absent in this
// release stays absent, so asking again would only repeat the walk.
func (c *Context) locate(cls host.Class, op string) (*memberEntry, error) {
	key := cls.Name() + "\x00" + op
	v, _ := c.members.LoadOrStore(key, &memberEntry{})
	e := v.(*memberEntry)
	e.once.Do(func() {
		e.method, e.field, e.err = c.scan(cls, op)
		if e.err != nil {
			log.Debugf("%v", e.err)
		}
	})
	return e, e.err
}

// scan walks cls and then its super chain for the first member matching
// the operation's pin: name when one is pinned, staticness, and shape.
// Shape comparison is by kind, never by class name, so reference types
// match across releases that renamed them.
func (c *Context) scan(cls host.Class, op string) (host.Method, host.Field, error) {
	p, ok := c.pins.Member(op)
	if !ok {
		return nil, nil, fmt.Errorf("%w: operation %q has no pin", ErrNoMember, op)
	}

	switch p.Kind {
	case "method":
		params, ret, err := classfile.ParseDescriptor(p.Desc)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s: %v", ErrNoMember, op, err)
		}
		want := classfile.KindsOf(params)
		for k := cls; k != nil; k = k.Super() {
			for _, m := range k.Methods() {
				if p.Name != "" && m.Name() != p.Name {
					continue
				}
				if m.Static() != p.Static || m.ReturnKind() != ret.Kind {
					continue
				}
				if !kindsEqual(m.ParamKinds(), want) {
					continue
				}
				return m, nil, nil
			}
		}
	case "field":
		t, err := classfile.ParseType(p.Desc)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s: %v", ErrNoMember, op, err)
		}
		for k := cls; k != nil; k = k.Super() {
			for _, f := range k.Fields() {
				if p.Name != "" && f.Name() != p.Name {
					continue
				}
				if f.Static() != p.Static || f.Kind() != t.Kind {
					continue
				}
				return nil, f, nil
			}
		}
	}
	return nil, nil, fmt.Errorf("%w: %s on %s", ErrNoMember, op, cls.Name())
}

func kindsEqual(a, b []classfile.TypeKind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
