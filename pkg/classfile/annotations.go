package classfile

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Annotations decodes the class-level RuntimeVisibleAnnotations (visible)
// or RuntimeInvisibleAnnotations attribute. Element values come back as the
// Go types Annotate accepts; byte, char and short values decode as int32,
// arrays as []any and nested annotations as Annotation.
func (c *Class) Annotations(visible bool) ([]Annotation, error) {
	name := attrInvisibleAnnotations
	if visible {
		name = attrVisibleAnnotations
	}
	var out []Annotation
	for _, a := range c.Attributes {
		if c.AttributeName(a) != name {
			continue
		}
		r := &byteReader{buf: a.Info}
		n := int(r.u2())
		for i := 0; i < n && r.err == nil; i++ {
			ann, err := c.readAnnotation(r)
			if err != nil {
				return nil, fmt.Errorf("%s %d: %w", name, i, err)
			}
			ann.Visible = visible
			out = append(out, ann)
		}
		if r.err != nil {
			return nil, fmt.Errorf("%s: %w", name, r.err)
		}
		if r.remaining() != 0 {
			return nil, fmt.Errorf("%w: %s has %d trailing bytes", ErrMalformedClass, name, r.remaining())
		}
	}
	return out, nil
}

// HasAnnotation reports whether the class carries an annotation of type desc
// in either retention.
func (c *Class) HasAnnotation(desc string) (bool, error) {
	for _, visible := range []bool{true, false} {
		anns, err := c.Annotations(visible)
		if err != nil {
			return false, err
		}
		for _, a := range anns {
			if a.Type == desc {
				return true, nil
			}
		}
	}
	return false, nil
}

func (c *Class) readAnnotation(r *byteReader) (Annotation, error) {
	typ, err := c.Pool.Utf8(r.u2())
	if r.err != nil {
		return Annotation{}, r.err
	}
	if err != nil {
		return Annotation{}, err
	}
	ann := Annotation{Type: typ}
	n := int(r.u2())
	for i := 0; i < n && r.err == nil; i++ {
		name, err := c.Pool.Utf8(r.u2())
		if r.err != nil {
			break
		}
		if err != nil {
			return Annotation{}, err
		}
		v, err := c.readElementValue(r)
		if err != nil {
			return Annotation{}, fmt.Errorf("element %s: %w", name, err)
		}
		if ann.Params == nil {
			ann.Params = make(map[string]any, n)
		}
		ann.Params[name] = v
	}
	return ann, r.err
}

func (c *Class) readElementValue(r *byteReader) (any, error) {
	tag := r.u1()
	if r.err != nil {
		return nil, r.err
	}
	switch tag {
	case 'B', 'C', 'S', 'I', 'Z':
		raw, err := c.constInfo(r.u2(), TagInteger, r)
		if err != nil {
			return nil, err
		}
		v := int32(binary.BigEndian.Uint32(raw))
		if tag == 'Z' {
			return v != 0, nil
		}
		return v, nil
	case 'J':
		raw, err := c.constInfo(r.u2(), TagLong, r)
		if err != nil {
			return nil, err
		}
		return int64(binary.BigEndian.Uint64(raw)), nil
	case 'F':
		raw, err := c.constInfo(r.u2(), TagFloat, r)
		if err != nil {
			return nil, err
		}
		return math.Float32frombits(binary.BigEndian.Uint32(raw)), nil
	case 'D':
		raw, err := c.constInfo(r.u2(), TagDouble, r)
		if err != nil {
			return nil, err
		}
		return math.Float64frombits(binary.BigEndian.Uint64(raw)), nil
	case 's':
		return c.utf8At(r)
	case 'c':
		s, err := c.utf8At(r)
		return ClassRef(s), err
	case 'e':
		typ, err := c.utf8At(r)
		if err != nil {
			return nil, err
		}
		val, err := c.utf8At(r)
		return EnumRef{Type: typ, Value: val}, err
	case '@':
		return c.readAnnotation(r)
	case '[':
		n := int(r.u2())
		values := make([]any, 0, min(n, r.remaining()))
		for i := 0; i < n && r.err == nil; i++ {
			v, err := c.readElementValue(r)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		return values, r.err
	default:
		return nil, fmt.Errorf("%w: element_value tag %q", ErrMalformedClass, tag)
	}
}

func (c *Class) utf8At(r *byteReader) (string, error) {
	idx := r.u2()
	if r.err != nil {
		return "", r.err
	}
	return c.Pool.Utf8(idx)
}

func (c *Class) constInfo(idx uint16, tag uint8, r *byteReader) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	e, ok := c.Pool.At(idx)
	if !ok || e.Tag != tag {
		return nil, fmt.Errorf("%w: constant %d is not tag %d", ErrMalformedClass, idx, tag)
	}
	return e.Info, nil
}
