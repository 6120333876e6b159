package classfile

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Constant pool tags, JVMS §4.4.
const (
	TagUtf8               uint8 = 1
	TagInteger            uint8 = 3
	TagFloat              uint8 = 4
	TagLong               uint8 = 5
	TagDouble             uint8 = 6
	TagClass              uint8 = 7
	TagString             uint8 = 8
	TagFieldref           uint8 = 9
	TagMethodref          uint8 = 10
	TagInterfaceMethodref uint8 = 11
	TagNameAndType        uint8 = 12
	TagMethodHandle       uint8 = 15
	TagMethodType         uint8 = 16
	TagDynamic            uint8 = 17
	TagInvokeDynamic      uint8 = 18
	TagModule             uint8 = 19
	TagPackage            uint8 = 20
)

// maxPoolCount is the largest constant_pool_count a class file can declare.
const maxPoolCount = math.MaxUint16

// Constant is one constant pool entry. Info holds the entry bytes that follow
// the tag, exactly as they appear in the class file. The slot after a Long or
// Double is a placeholder with Tag 0.
type Constant struct {
	Tag  uint8
	Info []byte
}

// ConstantPool is the 1-based constant pool of a class. Index 0 is unused.
type ConstantPool struct {
	entries []Constant
	// index maps tag+info to the first index holding it. Built on first
	// intern.
	index map[string]uint16
}

// Len returns constant_pool_count, i.e. one more than the highest index.
func (p *ConstantPool) Len() int {
	return len(p.entries)
}

// At returns the entry at index i.
func (p *ConstantPool) At(i uint16) (Constant, bool) {
	if i == 0 || int(i) >= len(p.entries) || p.entries[i].Tag == 0 {
		return Constant{}, false
	}
	return p.entries[i], true
}

func infoSize(tag uint8) (int, error) {
	switch tag {
	case TagInteger, TagFloat, TagFieldref, TagMethodref, TagInterfaceMethodref,
		TagNameAndType, TagDynamic, TagInvokeDynamic:
		return 4, nil
	case TagLong, TagDouble:
		return 8, nil
	case TagClass, TagString, TagMethodType, TagModule, TagPackage:
		return 2, nil
	case TagMethodHandle:
		return 3, nil
	default:
		return 0, fmt.Errorf("%w: unknown constant pool tag %d", ErrMalformedClass, tag)
	}
}

func readConstantPool(r *byteReader) (ConstantPool, error) {
	count := int(r.u2())
	if r.err != nil {
		return ConstantPool{}, r.err
	}
	if count == 0 {
		return ConstantPool{}, fmt.Errorf("%w: constant_pool_count is zero", ErrMalformedClass)
	}

	entries := make([]Constant, count)
	for i := 1; i < count; i++ {
		tag := r.u1()
		if r.err != nil {
			return ConstantPool{}, fmt.Errorf("constant pool entry %d: %w", i, r.err)
		}
		if tag == TagUtf8 {
			n := int(r.u2())
			data := r.bytes(n)
			if r.err != nil {
				return ConstantPool{}, fmt.Errorf("constant pool entry %d: %w", i, r.err)
			}
			entries[i] = Constant{Tag: tag, Info: appendU2(nil, uint16(n))}
			entries[i].Info = append(entries[i].Info, data...)
			continue
		}
		size, err := infoSize(tag)
		if err != nil {
			return ConstantPool{}, fmt.Errorf("constant pool entry %d: %w", i, err)
		}
		info := r.bytes(size)
		if r.err != nil {
			return ConstantPool{}, fmt.Errorf("constant pool entry %d: %w", i, r.err)
		}
		entries[i] = Constant{Tag: tag, Info: info}
		if tag == TagLong || tag == TagDouble {
			if i+1 >= count {
				return ConstantPool{}, fmt.Errorf("%w: constant pool entry %d: wide constant in last slot", ErrMalformedClass, i)
			}
			i++
		}
	}
	return ConstantPool{entries: entries}, nil
}

func (p *ConstantPool) appendTo(b []byte) []byte {
	b = appendU2(b, uint16(len(p.entries)))
	for i := 1; i < len(p.entries); i++ {
		e := p.entries[i]
		if e.Tag == 0 {
			continue
		}
		b = append(b, e.Tag)
		b = append(b, e.Info...)
	}
	return b
}

// Utf8 returns the decoded string at index i.
func (p *ConstantPool) Utf8(i uint16) (string, error) {
	c, ok := p.At(i)
	if !ok || c.Tag != TagUtf8 {
		return "", fmt.Errorf("%w: constant %d is not Utf8", ErrMalformedClass, i)
	}
	s, err := decodeModifiedUTF8(c.Info[2:])
	if err != nil {
		return "", fmt.Errorf("constant %d: %w", i, err)
	}
	return s, nil
}

// ClassName returns the internal name referenced by the Class constant at i.
func (p *ConstantPool) ClassName(i uint16) (string, error) {
	c, ok := p.At(i)
	if !ok || c.Tag != TagClass {
		return "", fmt.Errorf("%w: constant %d is not Class", ErrMalformedClass, i)
	}
	return p.Utf8(binary.BigEndian.Uint16(c.Info))
}

func (p *ConstantPool) add(c Constant, slots int) (uint16, error) {
	if len(p.entries)+slots > maxPoolCount {
		return 0, ErrConstantPoolFull
	}
	if len(p.entries) == 0 {
		p.entries = append(p.entries, Constant{})
	}
	idx := uint16(len(p.entries))
	p.entries = append(p.entries, c)
	if p.index != nil {
		p.index[poolKey(c.Tag, c.Info)] = idx
	}
	if slots == 2 {
		p.entries = append(p.entries, Constant{})
	}
	return idx, nil
}

func poolKey(tag uint8, info []byte) string {
	return string(append([]byte{tag}, info...))
}

// findInfo returns the index of an existing entry with identical tag and
// bytes, or 0.
func (p *ConstantPool) findInfo(tag uint8, info []byte) uint16 {
	if p.index == nil {
		p.index = make(map[string]uint16, len(p.entries))
		for i := len(p.entries) - 1; i >= 1; i-- {
			if e := p.entries[i]; e.Tag != 0 {
				p.index[poolKey(e.Tag, e.Info)] = uint16(i)
			}
		}
	}
	return p.index[poolKey(tag, info)]
}

func (p *ConstantPool) intern(tag uint8, info []byte) (uint16, error) {
	if idx := p.findInfo(tag, info); idx != 0 {
		return idx, nil
	}
	slots := 1
	if tag == TagLong || tag == TagDouble {
		slots = 2
	}
	return p.add(Constant{Tag: tag, Info: info}, slots)
}

// AddUtf8 returns the index of a Utf8 entry holding s, appending one when
// the pool has none. Existing indices never move.
func (p *ConstantPool) AddUtf8(s string) (uint16, error) {
	enc := encodeModifiedUTF8(s)
	if len(enc) > math.MaxUint16 {
		return 0, fmt.Errorf("utf8 constant of %d bytes exceeds 65535", len(enc))
	}
	info := appendU2(nil, uint16(len(enc)))
	return p.intern(TagUtf8, append(info, enc...))
}

// AddInteger interns a CONSTANT_Integer.
func (p *ConstantPool) AddInteger(v int32) (uint16, error) {
	return p.intern(TagInteger, appendU4(nil, uint32(v)))
}

// AddFloat interns a CONSTANT_Float.
func (p *ConstantPool) AddFloat(v float32) (uint16, error) {
	return p.intern(TagFloat, appendU4(nil, math.Float32bits(v)))
}

// AddLong interns a CONSTANT_Long.
func (p *ConstantPool) AddLong(v int64) (uint16, error) {
	return p.intern(TagLong, binary.BigEndian.AppendUint64(nil, uint64(v)))
}

// AddDouble interns a CONSTANT_Double.
func (p *ConstantPool) AddDouble(v float64) (uint16, error) {
	return p.intern(TagDouble, binary.BigEndian.AppendUint64(nil, math.Float64bits(v)))
}

func (p *ConstantPool) clone() ConstantPool {
	entries := make([]Constant, len(p.entries))
	copy(entries, p.entries)
	return ConstantPool{entries: entries}
}
