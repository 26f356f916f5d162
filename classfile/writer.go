package classfile

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Write serializes a class file back to the host's binary form. Writing a
// parsed class without modification reproduces the input byte for byte.
func Write(cf *ClassFile) ([]byte, error) {
	buf := make([]byte, 0, 256)

	buf = append(buf, ClassMagic...)
	buf = binary.BigEndian.AppendUint16(buf, cf.Version)
	buf = binary.BigEndian.AppendUint16(buf, cf.Flags)

	// Constant pool, reserved slot 0 excluded.
	buf = binary.BigEndian.AppendUint16(buf, uint16(cf.Pool.Len()-1))
	for i := 1; i < cf.Pool.Len(); i++ {
		e := cf.Pool.entries[i]
		buf = append(buf, byte(e.Kind))
		switch e.Kind {
		case KindUtf8:
			if len(e.Utf8) > 0xFFFF {
				return nil, fmt.Errorf("classfile: utf8 entry %d too long (%d bytes)", i, len(e.Utf8))
			}
			buf = binary.BigEndian.AppendUint16(buf, uint16(len(e.Utf8)))
			buf = append(buf, e.Utf8...)
		case KindInt32:
			buf = binary.BigEndian.AppendUint32(buf, uint32(e.Int32))
		case KindFloat64:
			buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(e.Float64))
		case KindClassRef:
			buf = binary.BigEndian.AppendUint16(buf, e.Name)
		case KindMemberRef:
			buf = binary.BigEndian.AppendUint16(buf, e.Class)
			buf = binary.BigEndian.AppendUint16(buf, e.Name)
			buf = binary.BigEndian.AppendUint16(buf, e.Desc)
		default:
			return nil, fmt.Errorf("%w: kind %d in pool entry %d", ErrBadPoolKind, e.Kind, i)
		}
	}

	buf = binary.BigEndian.AppendUint16(buf, cf.ThisClass)
	buf = binary.BigEndian.AppendUint16(buf, cf.SuperClass)

	buf = binary.BigEndian.AppendUint16(buf, uint16(len(cf.Interfaces)))
	for _, idx := range cf.Interfaces {
		buf = binary.BigEndian.AppendUint16(buf, idx)
	}

	buf = binary.BigEndian.AppendUint16(buf, uint16(len(cf.Fields)))
	for _, f := range cf.Fields {
		buf = binary.BigEndian.AppendUint16(buf, f.Flags)
		buf = binary.BigEndian.AppendUint16(buf, f.Name)
		buf = binary.BigEndian.AppendUint16(buf, f.Desc)
	}

	buf = binary.BigEndian.AppendUint16(buf, uint16(len(cf.Methods)))
	for i, m := range cf.Methods {
		buf = binary.BigEndian.AppendUint16(buf, m.Flags)
		buf = binary.BigEndian.AppendUint16(buf, m.Name)
		buf = binary.BigEndian.AppendUint16(buf, m.Desc)
		if m.Code == nil {
			buf = append(buf, 0)
			continue
		}
		buf = append(buf, 1)
		if len(m.Code.Bytes) > maxCodeBytes {
			return nil, fmt.Errorf("%w: method %d has %d bytes", ErrCodeTooLong, i, len(m.Code.Bytes))
		}
		buf = binary.BigEndian.AppendUint16(buf, m.Code.MaxStack)
		buf = binary.BigEndian.AppendUint16(buf, m.Code.MaxLocals)
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(m.Code.Bytes)))
		buf = append(buf, m.Code.Bytes...)
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(m.Code.Handlers)))
		for _, h := range m.Code.Handlers {
			buf = binary.BigEndian.AppendUint16(buf, h.Start)
			buf = binary.BigEndian.AppendUint16(buf, h.End)
			buf = binary.BigEndian.AppendUint16(buf, h.Entry)
			buf = binary.BigEndian.AppendUint16(buf, h.TypeRef)
		}
	}

	return buf, nil
}
