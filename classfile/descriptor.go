package classfile

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Descriptor grammar: "(<params>)<ret>"
//
//	Z  bool
//	I  int32
//	F  float64
//	S  string
//	L<class>;  reference
//	V  void (return position only)
// ---------------------------------------------------------------------------

// TypeKind classifies a descriptor type.
type TypeKind uint8

const (
	KindVoid TypeKind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindRef
)

// String returns a short name for the kind.
func (k TypeKind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindRef:
		return "ref"
	default:
		return fmt.Sprintf("TypeKind(%d)", uint8(k))
	}
}

// Type is a parsed descriptor type. Class is set only for KindRef.
type Type struct {
	Kind  TypeKind
	Class string
}

// String renders the type back into descriptor form.
func (t Type) String() string {
	switch t.Kind {
	case KindVoid:
		return "V"
	case KindBool:
		return "Z"
	case KindInt:
		return "I"
	case KindFloat:
		return "F"
	case KindString:
		return "S"
	case KindRef:
		return "L" + t.Class + ";"
	default:
		return "?"
	}
}

// ParseType parses a single type descriptor such as "I" or "Lgw.df;".
func ParseType(s string) (Type, error) {
	t, rest, err := takeType(s)
	if err != nil {
		return Type{}, err
	}
	if rest != "" {
		return Type{}, fmt.Errorf("%w: trailing %q in %q", ErrBadDescriptor, rest, s)
	}
	return t, nil
}

// ParseDescriptor parses a method descriptor "(<params>)<ret>".
func ParseDescriptor(s string) (params []Type, ret Type, err error) {
	if len(s) < 3 || s[0] != '(' {
		return nil, Type{}, fmt.Errorf("%w: %q", ErrBadDescriptor, s)
	}
	rp := strings.IndexByte(s, ')')
	if rp < 0 {
		return nil, Type{}, fmt.Errorf("%w: %q", ErrBadDescriptor, s)
	}

	rest := s[1:rp]
	for rest != "" {
		var t Type
		t, rest, err = takeType(rest)
		if err != nil {
			return nil, Type{}, fmt.Errorf("%w: %q", ErrBadDescriptor, s)
		}
		if t.Kind == KindVoid {
			return nil, Type{}, fmt.Errorf("%w: void parameter in %q", ErrBadDescriptor, s)
		}
		params = append(params, t)
	}

	ret, err = ParseType(s[rp+1:])
	if err != nil {
		return nil, Type{}, fmt.Errorf("%w: %q", ErrBadDescriptor, s)
	}
	return params, ret, nil
}

// FormatDescriptor builds a method descriptor string from parts.
func FormatDescriptor(params []Type, ret Type) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, t := range params {
		sb.WriteString(t.String())
	}
	sb.WriteByte(')')
	sb.WriteString(ret.String())
	return sb.String()
}

// KindsOf strips a parsed parameter list down to its kinds. Shape matching
// compares kinds only: one reference type matches any other.
func KindsOf(params []Type) []TypeKind {
	kinds := make([]TypeKind, len(params))
	for i, t := range params {
		kinds[i] = t.Kind
	}
	return kinds
}

// takeType consumes one type from the front of s.
func takeType(s string) (Type, string, error) {
	if s == "" {
		return Type{}, "", ErrBadDescriptor
	}
	switch s[0] {
	case 'V':
		return Type{Kind: KindVoid}, s[1:], nil
	case 'Z':
		return Type{Kind: KindBool}, s[1:], nil
	case 'I':
		return Type{Kind: KindInt}, s[1:], nil
	case 'F':
		return Type{Kind: KindFloat}, s[1:], nil
	case 'S':
		return Type{Kind: KindString}, s[1:], nil
	case 'L':
		end := strings.IndexByte(s, ';')
		if end < 2 {
			return Type{}, "", ErrBadDescriptor
		}
		return Type{Kind: KindRef, Class: s[1:end]}, s[end+1:], nil
	default:
		return Type{}, "", ErrBadDescriptor
	}
}
