package classfile

import (
	"encoding/binary"
	"fmt"
	"slices"
	"strings"
)

const (
	attrSignature = "Signature"

	// ConstructorMarker appears in the names of <init> and <clinit> only.
	ConstructorMarker = "<"
)

// Method is a decoded method_info entry. ParameterTypes and ReturnType hold
// JVM field descriptors ("I", "Ljava/lang/String;", "[J"); ReturnType is
// "V" for void.
type Method struct {
	Name           string
	AccessFlags    uint16
	Descriptor     string
	ReturnType     string
	ParameterTypes []string
	// Signature is the generic signature, empty when the method has none.
	Signature string
}

// IsStatic reports whether ACC_STATIC is set.
func (m Method) IsStatic() bool {
	return m.AccessFlags&AccStatic != 0
}

// IsInitializer reports whether m is a constructor or static initializer.
func (m Method) IsInitializer() bool {
	return strings.Contains(m.Name, ConstructorMarker)
}

// HasGenericSignature reports whether m carries a Signature attribute.
func (m Method) HasGenericSignature() bool {
	return m.Signature != ""
}

// SameOverload reports whether m and o share name and parameter types.
// Return types do not take part in overload identity.
func (m Method) SameOverload(o Method) bool {
	return m.Name == o.Name && slices.Equal(m.ParameterTypes, o.ParameterTypes)
}

// String renders "<returnType> <name>(<paramTypes>)" using Java source
// type names, e.g. "void setAlpha(android.view.View, float)".
func (m Method) String() string {
	params := make([]string, len(m.ParameterTypes))
	for i, p := range m.ParameterTypes {
		params[i] = JavaTypeName(p)
	}
	return fmt.Sprintf("%s %s(%s)", JavaTypeName(m.ReturnType), m.Name, strings.Join(params, ", "))
}

func (c *Class) decodeMethod(m Member) (Method, error) {
	name, err := c.Pool.Utf8(m.NameIndex)
	if err != nil {
		return Method{}, err
	}
	desc, err := c.Pool.Utf8(m.DescriptorIndex)
	if err != nil {
		return Method{}, err
	}
	params, ret, err := ParseMethodDescriptor(desc)
	if err != nil {
		return Method{}, fmt.Errorf("%s: %w", name, err)
	}
	method := Method{
		Name:           name,
		AccessFlags:    m.AccessFlags,
		Descriptor:     desc,
		ReturnType:     ret,
		ParameterTypes: params,
	}
	for _, a := range m.Attributes {
		if c.AttributeName(a) != attrSignature {
			continue
		}
		if len(a.Info) != 2 {
			return Method{}, fmt.Errorf("%w: %s: Signature attribute of %d bytes", ErrMalformedClass, name, len(a.Info))
		}
		sig, err := c.Pool.Utf8(binary.BigEndian.Uint16(a.Info))
		if err != nil {
			return Method{}, fmt.Errorf("%s: signature: %w", name, err)
		}
		method.Signature = sig
	}
	return method, nil
}

// ParseMethodDescriptor splits a method descriptor such as
// "(Landroid/view/View;I)V" into parameter and return field descriptors.
func ParseMethodDescriptor(desc string) ([]string, string, error) {
	if !strings.HasPrefix(desc, "(") {
		return nil, "", fmt.Errorf("%w: method descriptor %q", ErrMalformedClass, desc)
	}
	params := []string{}
	i := 1
	for i < len(desc) && desc[i] != ')' {
		n := fieldDescriptorLen(desc[i:])
		if n == 0 {
			return nil, "", fmt.Errorf("%w: method descriptor %q", ErrMalformedClass, desc)
		}
		params = append(params, desc[i:i+n])
		i += n
	}
	if i >= len(desc) {
		return nil, "", fmt.Errorf("%w: method descriptor %q", ErrMalformedClass, desc)
	}
	ret := desc[i+1:]
	if ret == "" || (ret != "V" && fieldDescriptorLen(ret) != len(ret)) {
		return nil, "", fmt.Errorf("%w: method descriptor %q", ErrMalformedClass, desc)
	}
	return params, ret, nil
}

// fieldDescriptorLen returns the length of the field descriptor at the start
// of s, or 0 when s does not start with one.
func fieldDescriptorLen(s string) int {
	i := 0
	for i < len(s) && s[i] == '[' {
		i++
	}
	if i >= len(s) {
		return 0
	}
	switch s[i] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return i + 1
	case 'L':
		end := strings.IndexByte(s[i:], ';')
		if end <= 1 {
			return 0
		}
		return i + end + 1
	}
	return 0
}

var primitiveNames = map[byte]string{
	'B': "byte",
	'C': "char",
	'D': "double",
	'F': "float",
	'I': "int",
	'J': "long",
	'S': "short",
	'Z': "boolean",
	'V': "void",
}

// JavaTypeName renders a field descriptor as a Java source type name:
// "[Ljava/lang/String;" becomes "java.lang.String[]".
func JavaTypeName(desc string) string {
	dims := 0
	for dims < len(desc) && desc[dims] == '[' {
		dims++
	}
	base := desc[dims:]
	var name string
	switch {
	case len(base) == 1 && primitiveNames[base[0]] != "":
		name = primitiveNames[base[0]]
	case strings.HasPrefix(base, "L") && strings.HasSuffix(base, ";"):
		name = strings.ReplaceAll(base[1:len(base)-1], "/", ".")
	default:
		name = base
	}
	return name + strings.Repeat("[]", dims)
}
