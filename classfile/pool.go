package classfile

// ---------------------------------------------------------------------------
// Constant pool
// ---------------------------------------------------------------------------

// Kind tags a constant pool entry.
type Kind uint8

const (
	KindInvalid Kind = iota // reserved index 0
	KindUtf8
	KindInt32
	KindFloat64
	KindClassRef
	KindMemberRef
)

// String returns a short name for a pool entry kind.
func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindUtf8:
		return "utf8"
	case KindInt32:
		return "int32"
	case KindFloat64:
		return "float64"
	case KindClassRef:
		return "classref"
	case KindMemberRef:
		return "memberref"
	default:
		return "unknown"
	}
}

// Entry is one constant pool slot. Which fields are meaningful depends on
// Kind:
//
//	KindUtf8      Utf8
//	KindInt32     Int32
//	KindFloat64   Float64
//	KindClassRef  Name (Utf8 index)
//	KindMemberRef Class (ClassRef index), Name and Desc (Utf8 indices)
type Entry struct {
	Kind    Kind
	Utf8    string
	Int32   int32
	Float64 float64
	Class   uint16
	Name    uint16
	Desc    uint16
}

// Pool is a class file's constant pool. Index 0 is reserved as the invalid
// reference. Entries are append-only: injected constants go at the end and
// existing indices never move, which is what keeps untouched code valid
// after a rewrite extends the pool.
type Pool struct {
	entries []Entry
}

// NewPool creates a pool containing only the reserved invalid entry.
func NewPool() *Pool {
	return &Pool{entries: []Entry{{Kind: KindInvalid}}}
}

// Len returns the number of entries including the reserved slot.
func (p *Pool) Len() int {
	return len(p.entries)
}

// Entry returns the entry at index i.
func (p *Pool) Entry(i uint16) (Entry, error) {
	if int(i) >= len(p.entries) {
		return Entry{}, ErrBadPoolIndex
	}
	return p.entries[i], nil
}

// Utf8 resolves a Utf8 entry.
func (p *Pool) Utf8(i uint16) (string, error) {
	e, err := p.Entry(i)
	if err != nil {
		return "", err
	}
	if e.Kind != KindUtf8 {
		return "", ErrBadPoolKind
	}
	return e.Utf8, nil
}

// Int32 resolves an Int32 entry.
func (p *Pool) Int32(i uint16) (int32, error) {
	e, err := p.Entry(i)
	if err != nil {
		return 0, err
	}
	if e.Kind != KindInt32 {
		return 0, ErrBadPoolKind
	}
	return e.Int32, nil
}

// Float64 resolves a Float64 entry.
func (p *Pool) Float64(i uint16) (float64, error) {
	e, err := p.Entry(i)
	if err != nil {
		return 0, err
	}
	if e.Kind != KindFloat64 {
		return 0, ErrBadPoolKind
	}
	return e.Float64, nil
}

// ClassName resolves a ClassRef entry to its class name.
func (p *Pool) ClassName(i uint16) (string, error) {
	e, err := p.Entry(i)
	if err != nil {
		return "", err
	}
	if e.Kind != KindClassRef {
		return "", ErrBadPoolKind
	}
	return p.Utf8(e.Name)
}

// Member resolves a MemberRef entry to (class, name, descriptor) strings.
func (p *Pool) Member(i uint16) (class, name, desc string, err error) {
	e, err := p.Entry(i)
	if err != nil {
		return "", "", "", err
	}
	if e.Kind != KindMemberRef {
		return "", "", "", ErrBadPoolKind
	}
	if class, err = p.ClassName(e.Class); err != nil {
		return "", "", "", err
	}
	if name, err = p.Utf8(e.Name); err != nil {
		return "", "", "", err
	}
	if desc, err = p.Utf8(e.Desc); err != nil {
		return "", "", "", err
	}
	return class, name, desc, nil
}

// add appends an entry and returns its index, or 0 if the pool is full.
func (p *Pool) add(e Entry) uint16 {
	if len(p.entries) > 0xFFFF {
		return 0
	}
	p.entries = append(p.entries, e)
	return uint16(len(p.entries) - 1)
}

// AddUtf8 returns the index of a Utf8 entry for s, appending one if it is
// not already present.
func (p *Pool) AddUtf8(s string) uint16 {
	for i, e := range p.entries {
		if e.Kind == KindUtf8 && e.Utf8 == s {
			return uint16(i)
		}
	}
	return p.add(Entry{Kind: KindUtf8, Utf8: s})
}

// AddInt32 returns the index of an Int32 entry for v, appending one if it
// is not already present.
func (p *Pool) AddInt32(v int32) uint16 {
	for i, e := range p.entries {
		if e.Kind == KindInt32 && e.Int32 == v {
			return uint16(i)
		}
	}
	return p.add(Entry{Kind: KindInt32, Int32: v})
}

// AddFloat64 returns the index of a Float64 entry for v, appending one if
// it is not already present.
func (p *Pool) AddFloat64(v float64) uint16 {
	for i, e := range p.entries {
		if e.Kind == KindFloat64 && e.Float64 == v {
			return uint16(i)
		}
	}
	return p.add(Entry{Kind: KindFloat64, Float64: v})
}

// AddClassRef returns the index of a ClassRef for the named class,
// appending the reference (and its name) if not already present.
func (p *Pool) AddClassRef(name string) uint16 {
	nameIdx := p.AddUtf8(name)
	for i, e := range p.entries {
		if e.Kind == KindClassRef && e.Name == nameIdx {
			return uint16(i)
		}
	}
	return p.add(Entry{Kind: KindClassRef, Name: nameIdx})
}

// AddMemberRef returns the index of a MemberRef for (class, name, desc),
// appending it if not already present.
func (p *Pool) AddMemberRef(class, name, desc string) uint16 {
	classIdx := p.AddClassRef(class)
	nameIdx := p.AddUtf8(name)
	descIdx := p.AddUtf8(desc)
	for i, e := range p.entries {
		if e.Kind == KindMemberRef && e.Class == classIdx && e.Name == nameIdx && e.Desc == descIdx {
			return uint16(i)
		}
	}
	return p.add(Entry{Kind: KindMemberRef, Class: classIdx, Name: nameIdx, Desc: descIdx})
}
