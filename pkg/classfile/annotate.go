package classfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrUnsupportedValue reports an annotation parameter of a type that has no
// element_value encoding.
var ErrUnsupportedValue = errors.New("unsupported annotation value")

const (
	attrVisibleAnnotations   = "RuntimeVisibleAnnotations"
	attrInvisibleAnnotations = "RuntimeInvisibleAnnotations"
)

// ClassRef is a class literal annotation value, given as a field descriptor
// ("Landroidx/core/view/ViewCompat;").
type ClassRef string

// EnumRef is an enum constant annotation value.
type EnumRef struct {
	Type  string // field descriptor of the enum type
	Value string // constant name
}

// Annotation describes one class-level annotation to inject.
type Annotation struct {
	// Type is the annotation type descriptor, e.g. "Lcompat/HasCompat;".
	Type string
	// Visible selects RuntimeVisibleAnnotations. The default is
	// RuntimeInvisibleAnnotations (class retention).
	Visible bool
	// Params maps element names to values. Supported value types are
	// string, bool, int, int32, int64, float32, float64, ClassRef, EnumRef
	// and []string. Elements are written in sorted name order.
	Params map[string]any
}

func (a Annotation) attributeName() string {
	if a.Visible {
		return attrVisibleAnnotations
	}
	return attrInvisibleAnnotations
}

// Annotate returns content with ann attached to the class. The constant pool
// is only appended to, so every other structure (super class, interfaces,
// fields, methods and their code, inner classes, enclosing method, source
// file, existing annotations, unknown attributes) is carried over unchanged
// and in its original order. Annotating the same input twice with the same
// annotation yields identical bytes.
func Annotate(content []byte, ann Annotation) ([]byte, error) {
	c, err := Parse(content)
	if err != nil {
		return nil, err
	}
	out, err := c.WithAnnotation(ann)
	if err != nil {
		return nil, err
	}
	return out.Marshal(), nil
}

// WithAnnotation returns a copy of c carrying ann. c is not modified.
func (c *Class) WithAnnotation(ann Annotation) (*Class, error) {
	if ann.Type == "" || ann.Type[0] != 'L' || fieldDescriptorLen(ann.Type) != len(ann.Type) {
		return nil, fmt.Errorf("annotate: annotation type %q is not a class descriptor", ann.Type)
	}

	out := *c
	out.Pool = c.Pool.clone()
	out.Attributes = cloneAttributes(c.Attributes)

	encoded, err := encodeAnnotation(&out.Pool, ann)
	if err != nil {
		return nil, fmt.Errorf("annotate %s: %w", c.Name(), err)
	}

	attrName := ann.attributeName()
	if i := out.FindAttribute(attrName); i >= 0 {
		existing := out.Attributes[i].Info
		if len(existing) < 2 {
			return nil, fmt.Errorf("%w: %s attribute of %d bytes", ErrMalformedClass, attrName, len(existing))
		}
		count := binary.BigEndian.Uint16(existing)
		if count == math.MaxUint16 {
			return nil, fmt.Errorf("annotate %s: %s already holds %d annotations", c.Name(), attrName, count)
		}
		info := make([]byte, 0, len(existing)+len(encoded))
		info = appendU2(info, count+1)
		info = append(info, existing[2:]...)
		info = append(info, encoded...)
		out.Attributes[i] = Attribute{NameIndex: out.Attributes[i].NameIndex, Info: info}
		return &out, nil
	}

	nameIndex, err := out.Pool.AddUtf8(attrName)
	if err != nil {
		return nil, fmt.Errorf("annotate %s: %w", c.Name(), err)
	}
	info := appendU2(nil, 1)
	info = append(info, encoded...)
	out.Attributes = append(out.Attributes, Attribute{NameIndex: nameIndex, Info: info})
	return &out, nil
}

func cloneAttributes(attrs []Attribute) []Attribute {
	out := make([]Attribute, len(attrs), len(attrs)+1)
	copy(out, attrs)
	return out
}

// encodeAnnotation writes an annotation structure (JVMS §4.7.16), interning
// the constants it needs into pool.
func encodeAnnotation(pool *ConstantPool, ann Annotation) ([]byte, error) {
	typeIndex, err := pool.AddUtf8(ann.Type)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ann.Params))
	for name := range ann.Params {
		names = append(names, name)
	}
	sort.Strings(names)

	b := appendU2(nil, typeIndex)
	b = appendU2(b, uint16(len(names)))
	for _, name := range names {
		nameIndex, err := pool.AddUtf8(name)
		if err != nil {
			return nil, err
		}
		b = appendU2(b, nameIndex)
		b, err = appendElementValue(b, pool, ann.Params[name])
		if err != nil {
			return nil, fmt.Errorf("element %s: %w", name, err)
		}
	}
	return b, nil
}

func appendElementValue(b []byte, pool *ConstantPool, v any) ([]byte, error) {
	var (
		tag byte
		idx uint16
		err error
	)
	switch v := v.(type) {
	case string:
		tag = 's'
		idx, err = pool.AddUtf8(v)
	case bool:
		tag = 'Z'
		var i int32
		if v {
			i = 1
		}
		idx, err = pool.AddInteger(i)
	case int:
		if v < math.MinInt32 || v > math.MaxInt32 {
			return nil, fmt.Errorf("%w: int %d out of range, use int64", ErrUnsupportedValue, v)
		}
		tag = 'I'
		idx, err = pool.AddInteger(int32(v))
	case int32:
		tag = 'I'
		idx, err = pool.AddInteger(v)
	case int64:
		tag = 'J'
		idx, err = pool.AddLong(v)
	case float32:
		tag = 'F'
		idx, err = pool.AddFloat(v)
	case float64:
		tag = 'D'
		idx, err = pool.AddDouble(v)
	case ClassRef:
		tag = 'c'
		idx, err = pool.AddUtf8(string(v))
	case EnumRef:
		typeIndex, err := pool.AddUtf8(v.Type)
		if err != nil {
			return nil, err
		}
		constIndex, err := pool.AddUtf8(v.Value)
		if err != nil {
			return nil, err
		}
		b = append(b, 'e')
		b = appendU2(b, typeIndex)
		return appendU2(b, constIndex), nil
	case []string:
		if len(v) > math.MaxUint16 {
			return nil, fmt.Errorf("%w: array of %d elements", ErrUnsupportedValue, len(v))
		}
		b = append(b, '[')
		b = appendU2(b, uint16(len(v)))
		for _, s := range v {
			if b, err = appendElementValue(b, pool, s); err != nil {
				return nil, err
			}
		}
		return b, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
	if err != nil {
		return nil, err
	}
	b = append(b, tag)
	return appendU2(b, idx), nil
}
