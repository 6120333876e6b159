// Package classfile decodes the structural subset of JVM class files that
// compat checking needs (names, access flags, member tables, attributes) and
// rewrites classes without disturbing anything it does not understand.
package classfile

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedClass reports bytes that do not decode as a class file.
	ErrMalformedClass = errors.New("malformed class file")
	// ErrConstantPoolFull reports a rewrite that would need more than 65535
	// constant pool slots.
	ErrConstantPoolFull = errors.New("constant pool full")
)

const classMagic uint32 = 0xCAFEBABE

// Access flags shared by classes, fields and methods.
const (
	AccPublic    uint16 = 0x0001
	AccPrivate   uint16 = 0x0002
	AccProtected uint16 = 0x0004
	AccStatic    uint16 = 0x0008
	AccFinal     uint16 = 0x0010
	AccSynthetic uint16 = 0x1000
)

// Attribute is an attribute whose body is kept verbatim.
type Attribute struct {
	NameIndex uint16
	Info      []byte
}

// Member is a field_info or method_info entry.
type Member struct {
	AccessFlags     uint16
	NameIndex       uint16
	DescriptorIndex uint16
	Attributes      []Attribute
}

// Class is a decoded class file. Everything outside the constant pool
// references pool indices, so appending to the pool never invalidates it.
type Class struct {
	MinorVersion uint16
	MajorVersion uint16
	Pool         ConstantPool
	AccessFlags  uint16
	ThisClass    uint16
	SuperClass   uint16
	Interfaces   []uint16
	Fields       []Member
	Methods      []Member
	Attributes   []Attribute
}

// Parse decodes a class file. It fails with ErrMalformedClass when the bytes
// are not a structurally valid class.
func Parse(data []byte) (*Class, error) {
	r := &byteReader{buf: data}
	if magic := r.u4(); r.err == nil && magic != classMagic {
		return nil, fmt.Errorf("%w: bad magic 0x%08x", ErrMalformedClass, magic)
	}
	c := &Class{
		MinorVersion: r.u2(),
		MajorVersion: r.u2(),
	}
	if r.err != nil {
		return nil, r.err
	}

	pool, err := readConstantPool(r)
	if err != nil {
		return nil, err
	}
	c.Pool = pool

	c.AccessFlags = r.u2()
	c.ThisClass = r.u2()
	c.SuperClass = r.u2()
	n := int(r.u2())
	if r.err == nil {
		c.Interfaces = make([]uint16, 0, min(n, r.remaining()/2))
	}
	for i := 0; i < n && r.err == nil; i++ {
		c.Interfaces = append(c.Interfaces, r.u2())
	}
	if r.err != nil {
		return nil, r.err
	}

	if c.Fields, err = readMembers(r, "field"); err != nil {
		return nil, err
	}
	if c.Methods, err = readMembers(r, "method"); err != nil {
		return nil, err
	}
	if c.Attributes, err = readAttributes(r); err != nil {
		return nil, fmt.Errorf("class attributes: %w", err)
	}
	if r.remaining() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformedClass, r.remaining())
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func readMembers(r *byteReader, kind string) ([]Member, error) {
	n := int(r.u2())
	if r.err != nil {
		return nil, r.err
	}
	members := make([]Member, 0, min(n, r.remaining()/8))
	for i := 0; i < n; i++ {
		m := Member{
			AccessFlags:     r.u2(),
			NameIndex:       r.u2(),
			DescriptorIndex: r.u2(),
		}
		attrs, err := readAttributes(r)
		if err != nil {
			return nil, fmt.Errorf("%s %d: %w", kind, i, err)
		}
		m.Attributes = attrs
		members = append(members, m)
	}
	return members, nil
}

func readAttributes(r *byteReader) ([]Attribute, error) {
	n := int(r.u2())
	if r.err != nil {
		return nil, r.err
	}
	var attrs []Attribute
	for i := 0; i < n; i++ {
		nameIndex := r.u2()
		length := r.u4()
		if r.err == nil && uint64(length) > uint64(r.remaining()) {
			return nil, fmt.Errorf("%w: attribute %d declares %d bytes, %d remain", ErrMalformedClass, i, length, r.remaining())
		}
		info := r.bytes(int(length))
		if r.err != nil {
			return nil, r.err
		}
		attrs = append(attrs, Attribute{NameIndex: nameIndex, Info: info})
	}
	return attrs, nil
}

// validate resolves every pool reference made from outside the pool.
func (c *Class) validate() error {
	if _, err := c.Pool.ClassName(c.ThisClass); err != nil {
		return fmt.Errorf("this_class: %w", err)
	}
	if c.SuperClass != 0 {
		if _, err := c.Pool.ClassName(c.SuperClass); err != nil {
			return fmt.Errorf("super_class: %w", err)
		}
	}
	for i, idx := range c.Interfaces {
		if _, err := c.Pool.ClassName(idx); err != nil {
			return fmt.Errorf("interface %d: %w", i, err)
		}
	}
	for i, m := range c.Fields {
		if err := c.validateMember(m); err != nil {
			return fmt.Errorf("field %d: %w", i, err)
		}
	}
	for i, m := range c.Methods {
		if err := c.validateMember(m); err != nil {
			return fmt.Errorf("method %d: %w", i, err)
		}
	}
	for i, a := range c.Attributes {
		if _, err := c.Pool.Utf8(a.NameIndex); err != nil {
			return fmt.Errorf("class attribute %d: %w", i, err)
		}
	}
	return nil
}

func (c *Class) validateMember(m Member) error {
	if _, err := c.Pool.Utf8(m.NameIndex); err != nil {
		return err
	}
	if _, err := c.Pool.Utf8(m.DescriptorIndex); err != nil {
		return err
	}
	for i, a := range m.Attributes {
		if _, err := c.Pool.Utf8(a.NameIndex); err != nil {
			return fmt.Errorf("attribute %d: %w", i, err)
		}
	}
	return nil
}

// Name returns the internal name of the class, e.g. "android/view/View".
func (c *Class) Name() string {
	name, _ := c.Pool.ClassName(c.ThisClass)
	return name
}

// SuperName returns the internal name of the superclass, or "" for
// java/lang/Object and module-info.
func (c *Class) SuperName() string {
	if c.SuperClass == 0 {
		return ""
	}
	name, _ := c.Pool.ClassName(c.SuperClass)
	return name
}

// InterfaceNames returns the internal names of the direct superinterfaces.
func (c *Class) InterfaceNames() []string {
	names := make([]string, 0, len(c.Interfaces))
	for _, idx := range c.Interfaces {
		name, _ := c.Pool.ClassName(idx)
		names = append(names, name)
	}
	return names
}

// TypeDescriptor returns the field descriptor naming this class, the form a
// method parameter referencing it takes ("Landroid/view/View;").
func (c *Class) TypeDescriptor() string {
	return "L" + c.Name() + ";"
}

// AttributeName returns the name of attribute a.
func (c *Class) AttributeName(a Attribute) string {
	name, _ := c.Pool.Utf8(a.NameIndex)
	return name
}

// FindAttribute returns the index of the first class attribute called name,
// or -1.
func (c *Class) FindAttribute(name string) int {
	for i, a := range c.Attributes {
		if c.AttributeName(a) == name {
			return i
		}
	}
	return -1
}

// MethodTable decodes the method table in declaration order.
func (c *Class) MethodTable() ([]Method, error) {
	methods := make([]Method, 0, len(c.Methods))
	for i, m := range c.Methods {
		method, err := c.decodeMethod(m)
		if err != nil {
			return nil, fmt.Errorf("method %d: %w", i, err)
		}
		methods = append(methods, method)
	}
	return methods, nil
}

// FieldNames returns field names in declaration order.
func (c *Class) FieldNames() []string {
	names := make([]string, 0, len(c.Fields))
	for _, f := range c.Fields {
		name, _ := c.Pool.Utf8(f.NameIndex)
		names = append(names, name)
	}
	return names
}

// Marshal encodes the class. For any c returned by Parse, Marshal reproduces
// the parsed bytes exactly.
func (c *Class) Marshal() []byte {
	b := make([]byte, 0, 1024)
	b = appendU4(b, classMagic)
	b = appendU2(b, c.MinorVersion)
	b = appendU2(b, c.MajorVersion)
	b = c.Pool.appendTo(b)
	b = appendU2(b, c.AccessFlags)
	b = appendU2(b, c.ThisClass)
	b = appendU2(b, c.SuperClass)
	b = appendU2(b, uint16(len(c.Interfaces)))
	for _, idx := range c.Interfaces {
		b = appendU2(b, idx)
	}
	b = appendMembers(b, c.Fields)
	b = appendMembers(b, c.Methods)
	b = appendAttributes(b, c.Attributes)
	return b
}

func appendMembers(b []byte, members []Member) []byte {
	b = appendU2(b, uint16(len(members)))
	for _, m := range members {
		b = appendU2(b, m.AccessFlags)
		b = appendU2(b, m.NameIndex)
		b = appendU2(b, m.DescriptorIndex)
		b = appendAttributes(b, m.Attributes)
	}
	return b
}

func appendAttributes(b []byte, attrs []Attribute) []byte {
	b = appendU2(b, uint16(len(attrs)))
	for _, a := range attrs {
		b = appendU2(b, a.NameIndex)
		b = appendU4(b, uint32(len(a.Info)))
		b = append(b, a.Info...)
	}
	return b
}
