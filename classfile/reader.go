package classfile

import (
	"encoding/binary"
	"fmt"
	"math"
)

// maxCodeBytes bounds a single method body. The host loader enforces the
// same limit, so anything larger is corrupt.
const maxCodeBytes = 1 << 20

// Parse decodes a host class file.
func Parse(data []byte) (*ClassFile, error) {
	r := &reader{data: data}

	magic, err := r.bytes(4)
	if err != nil {
		return nil, err
	}
	if string(magic) != string(ClassMagic) {
		return nil, fmt.Errorf("%w: got %q", ErrBadMagic, magic)
	}

	cf := &ClassFile{Pool: NewPool()}
	if cf.Version, err = r.u16(); err != nil {
		return nil, err
	}
	if cf.Version != FormatVersion {
		return nil, fmt.Errorf("%w: got %d, support %d", ErrBadVersion, cf.Version, FormatVersion)
	}
	if cf.Flags, err = r.u16(); err != nil {
		return nil, err
	}

	if err := r.readPool(cf.Pool); err != nil {
		return nil, err
	}

	if cf.ThisClass, err = r.u16(); err != nil {
		return nil, err
	}
	if cf.SuperClass, err = r.u16(); err != nil {
		return nil, err
	}

	ifaceCount, err := r.u16()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(ifaceCount); i++ {
		idx, err := r.u16()
		if err != nil {
			return nil, err
		}
		cf.Interfaces = append(cf.Interfaces, idx)
	}

	fieldCount, err := r.u16()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(fieldCount); i++ {
		f := &FieldInfo{}
		if f.Flags, err = r.u16(); err != nil {
			return nil, err
		}
		if f.Name, err = r.u16(); err != nil {
			return nil, err
		}
		if f.Desc, err = r.u16(); err != nil {
			return nil, err
		}
		cf.Fields = append(cf.Fields, f)
	}

	methodCount, err := r.u16()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(methodCount); i++ {
		m, err := r.readMethod()
		if err != nil {
			return nil, fmt.Errorf("method %d: %w", i, err)
		}
		cf.Methods = append(cf.Methods, m)
	}

	if r.offset != len(r.data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrTruncated, len(r.data)-r.offset)
	}
	return cf, nil
}

// ---------------------------------------------------------------------------
// Cursor
// ---------------------------------------------------------------------------

type reader struct {
	data   []byte
	offset int
}

func (r *reader) bytes(n int) ([]byte, error) {
	if r.offset+n > len(r.data) {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d", ErrTruncated, n, r.offset)
	}
	b := r.data[r.offset : r.offset+n]
	r.offset += n
	return b, nil
}

func (r *reader) u8() (uint8, error) {
	b, err := r.bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) u16() (uint16, error) {
	b, err := r.bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *reader) u32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *reader) u64() (uint64, error) {
	b, err := r.bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (r *reader) str() (string, error) {
	n, err := r.u16()
	if err != nil {
		return "", err
	}
	b, err := r.bytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ---------------------------------------------------------------------------
// Sections
// ---------------------------------------------------------------------------

func (r *reader) readPool(p *Pool) error {
	count, err := r.u16()
	if err != nil {
		return err
	}
	for i := 0; i < int(count); i++ {
		kind, err := r.u8()
		if err != nil {
			return err
		}
		e := Entry{Kind: Kind(kind)}
		switch e.Kind {
		case KindUtf8:
			if e.Utf8, err = r.str(); err != nil {
				return err
			}
		case KindInt32:
			v, err := r.u32()
			if err != nil {
				return err
			}
			e.Int32 = int32(v)
		case KindFloat64:
			v, err := r.u64()
			if err != nil {
				return err
			}
			e.Float64 = math.Float64frombits(v)
		case KindClassRef:
			if e.Name, err = r.u16(); err != nil {
				return err
			}
		case KindMemberRef:
			if e.Class, err = r.u16(); err != nil {
				return err
			}
			if e.Name, err = r.u16(); err != nil {
				return err
			}
			if e.Desc, err = r.u16(); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: kind %d in pool entry %d", ErrBadPoolKind, kind, i+1)
		}
		p.entries = append(p.entries, e)
	}
	return nil
}

func (r *reader) readMethod() (*MethodInfo, error) {
	m := &MethodInfo{}
	var err error
	if m.Flags, err = r.u16(); err != nil {
		return nil, err
	}
	if m.Name, err = r.u16(); err != nil {
		return nil, err
	}
	if m.Desc, err = r.u16(); err != nil {
		return nil, err
	}

	hasCode, err := r.u8()
	if err != nil {
		return nil, err
	}
	if hasCode == 0 {
		return m, nil
	}

	code := &Code{}
	if code.MaxStack, err = r.u16(); err != nil {
		return nil, err
	}
	if code.MaxLocals, err = r.u16(); err != nil {
		return nil, err
	}
	codeLen, err := r.u32()
	if err != nil {
		return nil, err
	}
	if codeLen > maxCodeBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrCodeTooLong, codeLen)
	}
	raw, err := r.bytes(int(codeLen))
	if err != nil {
		return nil, err
	}
	code.Bytes = make([]byte, codeLen)
	copy(code.Bytes, raw)

	handlerCount, err := r.u16()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(handlerCount); i++ {
		var h Handler
		if h.Start, err = r.u16(); err != nil {
			return nil, err
		}
		if h.End, err = r.u16(); err != nil {
			return nil, err
		}
		if h.Entry, err = r.u16(); err != nil {
			return nil, err
		}
		if h.TypeRef, err = r.u16(); err != nil {
			return nil, err
		}
		code.Handlers = append(code.Handlers, h)
	}

	m.Code = code
	return m, nil
}
