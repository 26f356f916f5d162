// Package hosttest is an in-memory stand-in for the host application:
// buildable classes with invokable members, stateful objects, and a
// runtime that records what the agent installs. It exists so the adapter
// and dispatch layers can be exercised without a live host.
package hosttest

import (
	"fmt"
	"sync"

	"github.com/remora-mod/remora/classfile"
	"github.com/remora-mod/remora/host"
)

// ---------------------------------------------------------------------------
// Classes and members
// ---------------------------------------------------------------------------

// Class is a buildable host.Class. Add* methods return the class so test
// setup can chain them.
type Class struct {
	name    string
	super   *Class
	ifaces  []*Class
	methods []*Method
	fields  []*Field
}

// NewClass declares a class under super. A nil super makes it a root.
func NewClass(name string, super *Class) *Class {
	return &Class{name: name, super: super}
}

func (c *Class) Name() string { return c.name }

func (c *Class) Super() host.Class {
	if c.super == nil {
		return nil
	}
	return c.super
}

func (c *Class) Interfaces() []host.Class {
	out := make([]host.Class, len(c.ifaces))
	for i, x := range c.ifaces {
		out[i] = x
	}
	return out
}

func (c *Class) Methods() []host.Method {
	out := make([]host.Method, len(c.methods))
	for i, m := range c.methods {
		out[i] = m
	}
	return out
}

func (c *Class) Fields() []host.Field {
	out := make([]host.Field, len(c.fields))
	for i, f := range c.fields {
		out[i] = f
	}
	return out
}

// AddInterface marks the class as implementing iface.
func (c *Class) AddInterface(iface *Class) *Class {
	c.ifaces = append(c.ifaces, iface)
	return c
}

// InvokeFunc backs a test method body.
type InvokeFunc func(recv *Object, args []any) (any, error)

// AddMethod declares an instance method backed by fn.
func (c *Class) AddMethod(name string, params []classfile.TypeKind, ret classfile.TypeKind, fn InvokeFunc) *Class {
	c.methods = append(c.methods, &Method{name: name, params: params, ret: ret, fn: fn})
	return c
}

// AddStaticMethod declares a static method backed by fn.
func (c *Class) AddStaticMethod(name string, params []classfile.TypeKind, ret classfile.TypeKind, fn InvokeFunc) *Class {
	c.methods = append(c.methods, &Method{name: name, static: true, params: params, ret: ret, fn: fn})
	return c
}

// AddField declares an instance field. Objects of the class read it as the
// kind's zero value until written.
func (c *Class) AddField(name string, kind classfile.TypeKind) *Class {
	c.fields = append(c.fields, &Field{name: name, kind: kind})
	return c
}

// Method implements host.Method over an InvokeFunc.
type Method struct {
	name   string
	static bool
	params []classfile.TypeKind
	ret    classfile.TypeKind
	fn     InvokeFunc
}

func (m *Method) Name() string { return m.name }
func (m *Method) Static() bool { return m.static }
func (m *Method) ParamKinds() []classfile.TypeKind { return m.params }
func (m *Method) ReturnKind() classfile.TypeKind { return m.ret }

func (m *Method) Invoke(recv host.Object, args ...any) (any, error) {
	var o *Object
	if recv != nil {
		var ok bool
		if o, ok = recv.(*Object); !ok {
			return nil, fmt.Errorf("hosttest: foreign receiver %T", recv)
		}
	}
	if m.fn == nil {
		return nil, fmt.Errorf("hosttest: method %s has no body", m.name)
	}
	return m.fn(o, args)
}

// Field implements host.Field over per-object state.
type Field struct {
	name string
	kind classfile.TypeKind
}

func (f *Field) Name() string { return f.name }
func (f *Field) Static() bool { return false }
func (f *Field) Kind() classfile.TypeKind { return f.kind }

func (f *Field) Get(recv host.Object) (any, error) {
	o, ok := recv.(*Object)
	if !ok {
		return nil, fmt.Errorf("hosttest: foreign receiver %T", recv)
	}
	if v, ok := o.State(f.name); ok {
		return v, nil
	}
	return zeroOf(f.kind), nil
}

func (f *Field) Set(recv host.Object, value any) error {
	o, ok := recv.(*Object)
	if !ok {
		return fmt.Errorf("hosttest: foreign receiver %T", recv)
	}
	o.SetState(f.name, value)
	return nil
}

func zeroOf(k classfile.TypeKind) any {
	switch k {
	case classfile.KindBool:
		return false
	case classfile.KindInt:
		return int32(0)
	case classfile.KindFloat:
		return float64(0)
	case classfile.KindString:
		return ""
	default:
		return nil
	}
}

// ---------------------------------------------------------------------------
// Objects
// ---------------------------------------------------------------------------

// Object is a stateful instance of a test class.
type Object struct {
	class *Class

	mu    sync.Mutex
	state map[string]any
}

// NewObject instantiates a class.
func NewObject(c *Class) *Object {
	return &Object{class: c, state: make(map[string]any)}
}

func (o *Object) Class() host.Class { return o.class }

// SetState writes a named slot, standing in for host field storage.
func (o *Object) SetState(name string, v any) *Object {
	o.mu.Lock()
	o.state[name] = v
	o.mu.Unlock()
	return o
}

// State reads a named slot.
func (o *Object) State(name string) (any, bool) {
	o.mu.Lock()
	v, ok := o.state[name]
	o.mu.Unlock()
	return v, ok
}

// ---------------------------------------------------------------------------
// Runtime
// ---------------------------------------------------------------------------

// Runtime records what the agent installs and lets tests play the host's
// side: feed classes through the interceptor, call bound callouts the way
// rewritten code would.
type Runtime struct {
	mu        sync.Mutex
	transform host.TransformFunc
	callouts  map[string]host.CalloutFunc
	started   bool
}

func NewRuntime() *Runtime {
	return &Runtime{callouts: make(map[string]host.CalloutFunc)}
}

func (r *Runtime) InterceptClasses(fn host.TransformFunc) {
	r.mu.Lock()
	r.transform = fn
	r.mu.Unlock()
}

func (r *Runtime) BindCallout(class, name string, fn host.CalloutFunc) {
	r.mu.Lock()
	r.callouts[class+"."+name] = fn
	r.mu.Unlock()
}

func (r *Runtime) Start() error {
	r.mu.Lock()
	r.started = true
	r.mu.Unlock()
	return nil
}

// Started reports whether Start ran.
func (r *Runtime) Started() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

// LoadClass feeds class bytes through the installed interceptor, returning
// what the host would load.
func (r *Runtime) LoadClass(name string, data []byte) []byte {
	r.mu.Lock()
	fn := r.transform
	r.mu.Unlock()
	if fn == nil {
		return data
	}
	return fn(name, data)
}

// HasCallout reports whether a callout is bound.
func (r *Runtime) HasCallout(class, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.callouts[class+"."+name]
	return ok
}

// Call invokes a bound callout the way an injected call site would. It
// panics when the callout is unbound; binding is part of what tests assert.
func (r *Runtime) Call(class, name string, args ...any) any {
	r.mu.Lock()
	fn, ok := r.callouts[class+"."+name]
	r.mu.Unlock()
	if !ok {
		panic(fmt.Sprintf("hosttest: no callout bound for %s.%s", class, name))
	}
	return fn(args)
}
