// Package host defines the boundary to the instrumented application: the
// opaque object model the adapter layer introspects, and the narrow
// loading/callout surface the agent installs into.
//
// Values crossing the boundary are limited to what the host's type system
// can express: bool, int32, float64, string, nil, Object and []Object.
// Nothing in this package interprets those values; it only moves them.
package host

import "github.com/remora-mod/remora/classfile"

// Object is one opaque host instance. Everything known about it must be
// discovered through its class.
type Object interface {
	Class() Class
}

// Class describes a host runtime class. Methods and Fields list declared
// members only; walking inherited members is the caller's job, which is
// deliberate: member scans and ancestor classification both need the chain
// one link at a time.
type Class interface {
	Name() string
	Super() Class // nil at the root
	Interfaces() []Class
	Methods() []Method
	Fields() []Field
}

// Method is a live, invokable handle on one declared method.
type Method interface {
	Name() string
	Static() bool
	ParamKinds() []classfile.TypeKind
	ReturnKind() classfile.TypeKind
	// Invoke calls the method. recv is ignored for static methods.
	Invoke(recv Object, args ...any) (any, error)
}

// Field is a live handle on one declared field.
type Field interface {
	Name() string
	Static() bool
	Kind() classfile.TypeKind
	Get(recv Object) (any, error)
	Set(recv Object, value any) error
}

// TransformFunc is installed ahead of the host's class loader. It receives
// every class about to be loaded and returns the bytes to load instead;
// returning the input unchanged loads the class as shipped.
type TransformFunc func(name string, data []byte) []byte

// CalloutFunc receives a call from rewritten code. args holds the values
// the injected call site passed: the receiver first when the rewritten
// method was an instance method, then the forwarded arguments.
type CalloutFunc func(args []any) any

// Runtime is the slice of the host the agent touches at install time.
type Runtime interface {
	// InterceptClasses installs fn ahead of the class loader. Must be
	// called before Start.
	InterceptClasses(fn TransformFunc)
	// BindCallout routes static calls to class.name made by rewritten code
	// into fn, from any loading context the host creates.
	BindCallout(class, name string, fn CalloutFunc)
	// Start hands control to the host's own startup.
	Start() error
}
