// Package classfiletest assembles small, well-formed class files for tests.
package classfiletest

import (
	"encoding/binary"
	"math"

	"github.com/ilmirus/compatgrep/pkg/classfile"
)

// Builder accumulates the pieces of one class. Call Bytes to encode.
type Builder struct {
	pool    [][]byte
	utf8    map[string]uint16
	classes map[string]uint16

	access     uint16
	this       uint16
	super      uint16
	interfaces []uint16
	fields     [][]byte
	methods    [][]byte
	attrs      [][]byte
	inner      [][]byte
}

// New starts a public class with internal name name extending java/lang/Object.
func New(name string) *Builder {
	b := &Builder{
		utf8:    make(map[string]uint16),
		classes: make(map[string]uint16),
		access:  classfile.AccPublic | 0x0020, // ACC_SUPER
	}
	b.this = b.class(name)
	b.super = b.class("java/lang/Object")
	return b
}

func (b *Builder) add(entry []byte) uint16 {
	b.pool = append(b.pool, entry)
	return uint16(len(b.pool))
}

func (b *Builder) utf(s string) uint16 {
	if idx, ok := b.utf8[s]; ok {
		return idx
	}
	e := []byte{classfile.TagUtf8}
	e = binary.BigEndian.AppendUint16(e, uint16(len(s)))
	e = append(e, s...)
	idx := b.add(e)
	b.utf8[s] = idx
	return idx
}

func (b *Builder) class(name string) uint16 {
	if idx, ok := b.classes[name]; ok {
		return idx
	}
	nameIdx := b.utf(name)
	idx := b.add(binary.BigEndian.AppendUint16([]byte{classfile.TagClass}, nameIdx))
	b.classes[name] = idx
	return idx
}

func (b *Builder) long(v int64) uint16 {
	idx := b.add(binary.BigEndian.AppendUint64([]byte{classfile.TagLong}, uint64(v)))
	b.pool = append(b.pool, nil) // second slot
	return idx
}

func (b *Builder) double(v float64) uint16 {
	idx := b.add(binary.BigEndian.AppendUint64([]byte{classfile.TagDouble}, math.Float64bits(v)))
	b.pool = append(b.pool, nil)
	return idx
}

func attr(nameIdx uint16, info []byte) []byte {
	out := binary.BigEndian.AppendUint16(nil, nameIdx)
	out = binary.BigEndian.AppendUint32(out, uint32(len(info)))
	return append(out, info...)
}

func u2(v uint16) []byte {
	return binary.BigEndian.AppendUint16(nil, v)
}

// Access replaces the class access flags.
func (b *Builder) Access(flags uint16) *Builder {
	b.access = flags
	return b
}

// Super sets the superclass.
func (b *Builder) Super(name string) *Builder {
	b.super = b.class(name)
	return b
}

// Interface adds a direct superinterface.
func (b *Builder) Interface(name string) *Builder {
	b.interfaces = append(b.interfaces, b.class(name))
	return b
}

// SourceFile adds a SourceFile attribute.
func (b *Builder) SourceFile(name string) *Builder {
	b.attrs = append(b.attrs, attr(b.utf("SourceFile"), u2(b.utf(name))))
	return b
}

// Annotation adds an annotation without elements to the class-level visible
// or invisible annotations attribute.
func (b *Builder) Annotation(desc string, visible bool) *Builder {
	name := "RuntimeInvisibleAnnotations"
	if visible {
		name = "RuntimeVisibleAnnotations"
	}
	info := u2(1)
	info = append(info, u2(b.utf(desc))...)
	info = append(info, u2(0)...)
	b.attrs = append(b.attrs, attr(b.utf(name), info))
	return b
}

// InnerClass records an InnerClasses entry for inner nested in outer.
func (b *Builder) InnerClass(inner, outer, simple string, access uint16) *Builder {
	e := u2(b.class(inner))
	e = append(e, u2(b.class(outer))...)
	e = append(e, u2(b.utf(simple))...)
	e = append(e, u2(access)...)
	b.inner = append(b.inner, e)
	return b
}

// Field adds a field without attributes.
func (b *Builder) Field(access uint16, name, desc string) *Builder {
	f := u2(access)
	f = append(f, u2(b.utf(name))...)
	f = append(f, u2(b.utf(desc))...)
	f = append(f, u2(0)...)
	b.fields = append(b.fields, f)
	return b
}

// LongConstant adds a static final long field with a ConstantValue, which
// puts a two-slot entry in the constant pool.
func (b *Builder) LongConstant(name string, v int64) *Builder {
	f := u2(classfile.AccPublic | classfile.AccStatic | classfile.AccFinal)
	f = append(f, u2(b.utf(name))...)
	f = append(f, u2(b.utf("J"))...)
	f = append(f, u2(1)...)
	f = append(f, attr(b.utf("ConstantValue"), u2(b.long(v)))...)
	b.fields = append(b.fields, f)
	return b
}

// DoubleConstant is LongConstant for a double.
func (b *Builder) DoubleConstant(name string, v float64) *Builder {
	f := u2(classfile.AccPublic | classfile.AccStatic | classfile.AccFinal)
	f = append(f, u2(b.utf(name))...)
	f = append(f, u2(b.utf("D"))...)
	f = append(f, u2(1)...)
	f = append(f, attr(b.utf("ConstantValue"), u2(b.double(v)))...)
	b.fields = append(b.fields, f)
	return b
}

// Method adds a method with a one-instruction Code attribute.
func (b *Builder) Method(access uint16, name, desc string) *Builder {
	return b.method(access, name, desc, "")
}

// GenericMethod adds a method carrying a Signature attribute.
func (b *Builder) GenericMethod(access uint16, name, desc, signature string) *Builder {
	return b.method(access, name, desc, signature)
}

func (b *Builder) method(access uint16, name, desc, signature string) *Builder {
	m := u2(access)
	m = append(m, u2(b.utf(name))...)
	m = append(m, u2(b.utf(desc))...)

	// max_stack, max_locals, a single "return", no handlers or attributes.
	code := u2(1)
	code = append(code, u2(8)...)
	code = binary.BigEndian.AppendUint32(code, 1)
	code = append(code, 0xB1)
	code = append(code, u2(0)...)
	code = append(code, u2(0)...)

	attrs := [][]byte{attr(b.utf("Code"), code)}
	if signature != "" {
		attrs = append(attrs, attr(b.utf("Signature"), u2(b.utf(signature))))
	}
	m = append(m, u2(uint16(len(attrs)))...)
	for _, a := range attrs {
		m = append(m, a...)
	}
	b.methods = append(b.methods, m)
	return b
}

// Bytes encodes the class file.
func (b *Builder) Bytes() []byte {
	attrs := b.attrs
	if len(b.inner) > 0 {
		info := u2(uint16(len(b.inner)))
		for _, e := range b.inner {
			info = append(info, e...)
		}
		attrs = append(attrs[:len(attrs):len(attrs)], attr(b.utf("InnerClasses"), info))
	}

	out := binary.BigEndian.AppendUint32(nil, 0xCAFEBABE)
	out = append(out, u2(0)...)  // minor
	out = append(out, u2(52)...) // major: Java 8
	out = append(out, u2(uint16(len(b.pool)+1))...)
	for _, e := range b.pool {
		out = append(out, e...)
	}
	out = append(out, u2(b.access)...)
	out = append(out, u2(b.this)...)
	out = append(out, u2(b.super)...)
	out = append(out, u2(uint16(len(b.interfaces)))...)
	for _, idx := range b.interfaces {
		out = append(out, u2(idx)...)
	}
	out = appendAll(out, b.fields)
	out = appendAll(out, b.methods)
	return appendAll(out, attrs)
}

func appendAll(out []byte, items [][]byte) []byte {
	out = append(out, u2(uint16(len(items)))...)
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}
