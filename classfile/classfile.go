// Package classfile reads and writes the host's compiled class format.
//
// The format was recovered by inspection of shipped host bundles: a
// big-endian container holding a constant pool, class references, field and
// method tables, and per-method code attributes. Nothing here interprets
// code; decoding instruction bytes is the bytecode package's job.
package classfile

import "errors"

// FormatVersion is the class format version the pinned host release ships.
const FormatVersion uint16 = 3

// ClassMagic identifies a host class file: "HXCF".
var ClassMagic = []byte{'H', 'X', 'C', 'F'}

// Access flags as they appear in class, field and method headers.
const (
	FlagPublic    uint16 = 0x0001
	FlagPrivate   uint16 = 0x0002
	FlagStatic    uint16 = 0x0008
	FlagFinal     uint16 = 0x0010
	FlagInterface uint16 = 0x0200
	FlagAbstract  uint16 = 0x0400
)

// Errors reported while decoding class data.
var (
	ErrBadMagic      = errors.New("classfile: bad magic")
	ErrBadVersion    = errors.New("classfile: unsupported format version")
	ErrTruncated     = errors.New("classfile: truncated data")
	ErrBadPoolIndex  = errors.New("classfile: constant pool index out of range")
	ErrBadPoolKind   = errors.New("classfile: constant pool entry has wrong kind")
	ErrBadDescriptor = errors.New("classfile: malformed descriptor")
	ErrCodeTooLong   = errors.New("classfile: code attribute exceeds limit")
)

// ClassFile is one parsed host class.
type ClassFile struct {
	Version    uint16
	Flags      uint16
	Pool       *Pool
	ThisClass  uint16   // pool index of a ClassRef
	SuperClass uint16   // pool index of a ClassRef; 0 for the root class
	Interfaces []uint16 // pool indices of ClassRefs
	Fields     []*FieldInfo
	Methods    []*MethodInfo
}

// FieldInfo describes one declared field. Name and Desc are Utf8 pool
// indices; Desc holds a single type descriptor such as "I" or "Lgw.df;".
type FieldInfo struct {
	Flags uint16
	Name  uint16
	Desc  uint16
}

// MethodInfo describes one declared method. Name and Desc are Utf8 pool
// indices; Desc holds a "(<params>)<ret>" descriptor. Code is nil for
// abstract methods.
type MethodInfo struct {
	Flags uint16
	Name  uint16
	Desc  uint16
	Code  *Code
}

// Code is a method body: stack and local slot budgets, raw instruction
// bytes, and the exception handler table.
type Code struct {
	MaxStack  uint16
	MaxLocals uint16
	Bytes     []byte
	Handlers  []Handler
}

// Handler is one exception-table entry. Start and End are byte offsets into
// Code.Bytes with [Start, End) protected; Entry is the handler's byte
// offset; TypeRef is a pool ClassRef for the caught type.
type Handler struct {
	Start   uint16
	End     uint16
	Entry   uint16
	TypeRef uint16
}

// New creates an empty class file for the named class with the given
// superclass. A superName of "" leaves SuperClass unset (the root class).
func New(name, superName string) *ClassFile {
	cf := &ClassFile{
		Version: FormatVersion,
		Pool:    NewPool(),
	}
	cf.ThisClass = cf.Pool.AddClassRef(name)
	if superName != "" {
		cf.SuperClass = cf.Pool.AddClassRef(superName)
	}
	return cf
}

// Name returns the class's own name, or "" if the pool reference is bad.
func (cf *ClassFile) Name() string {
	name, err := cf.Pool.ClassName(cf.ThisClass)
	if err != nil {
		return ""
	}
	return name
}

// SuperName returns the superclass name, or "" for the root class or a bad
// reference.
func (cf *ClassFile) SuperName() string {
	if cf.SuperClass == 0 {
		return ""
	}
	name, err := cf.Pool.ClassName(cf.SuperClass)
	if err != nil {
		return ""
	}
	return name
}

// InterfaceNames returns the resolved names of the implemented interfaces.
// Unresolvable references are skipped.
func (cf *ClassFile) InterfaceNames() []string {
	var names []string
	for _, idx := range cf.Interfaces {
		if name, err := cf.Pool.ClassName(idx); err == nil {
			names = append(names, name)
		}
	}
	return names
}

// MethodName resolves a method's name, or "" on a bad reference.
func (cf *ClassFile) MethodName(m *MethodInfo) string {
	s, err := cf.Pool.Utf8(m.Name)
	if err != nil {
		return ""
	}
	return s
}

// MethodDesc resolves a method's descriptor string, or "" on a bad
// reference.
func (cf *ClassFile) MethodDesc(m *MethodInfo) string {
	s, err := cf.Pool.Utf8(m.Desc)
	if err != nil {
		return ""
	}
	return s
}

// FieldName resolves a field's name, or "" on a bad reference.
func (cf *ClassFile) FieldName(f *FieldInfo) string {
	s, err := cf.Pool.Utf8(f.Name)
	if err != nil {
		return ""
	}
	return s
}

// FieldDesc resolves a field's descriptor string, or "" on a bad reference.
func (cf *ClassFile) FieldDesc(f *FieldInfo) string {
	s, err := cf.Pool.Utf8(f.Desc)
	if err != nil {
		return ""
	}
	return s
}

// AddField declares a field and returns its FieldInfo.
func (cf *ClassFile) AddField(flags uint16, name, desc string) *FieldInfo {
	f := &FieldInfo{
		Flags: flags,
		Name:  cf.Pool.AddUtf8(name),
		Desc:  cf.Pool.AddUtf8(desc),
	}
	cf.Fields = append(cf.Fields, f)
	return f
}

// AddMethod declares a method and returns its MethodInfo. Code may be nil
// for abstract methods.
func (cf *ClassFile) AddMethod(flags uint16, name, desc string, code *Code) *MethodInfo {
	m := &MethodInfo{
		Flags: flags,
		Name:  cf.Pool.AddUtf8(name),
		Desc:  cf.Pool.AddUtf8(desc),
		Code:  code,
	}
	cf.Methods = append(cf.Methods, m)
	return m
}

// AddInterface records an implemented interface by name.
func (cf *ClassFile) AddInterface(name string) {
	cf.Interfaces = append(cf.Interfaces, cf.Pool.AddClassRef(name))
}
