package classfile

import (
	"fmt"
	"path"
	"strings"
)

// Ext is the file extension of class entries inside an archive.
const Ext = ".class"

// ClassFile is one class entry of an archive: its entry path and raw bytes.
// Metadata is decoded on first use and cached until SetContent replaces the
// bytes. A ClassFile is not safe for concurrent use.
type ClassFile struct {
	Path    string
	content []byte
	class   *Class
}

// NewClassFile wraps content stored at entry path p.
func NewClassFile(p string, content []byte) *ClassFile {
	return &ClassFile{Path: p, content: content}
}

// Content returns the current raw bytes.
func (f *ClassFile) Content() []byte {
	return f.content
}

// SetContent replaces the raw bytes and drops any decoded metadata.
func (f *ClassFile) SetContent(content []byte) {
	f.content = content
	f.class = nil
}

// Class decodes the content, caching the result.
func (f *ClassFile) Class() (*Class, error) {
	if f.class != nil {
		return f.class, nil
	}
	c, err := Parse(f.content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Path, err)
	}
	f.class = c
	return c, nil
}

// TypeName returns the internal name of the class ("android/view/View").
func (f *ClassFile) TypeName() (string, error) {
	c, err := f.Class()
	if err != nil {
		return "", err
	}
	return c.Name(), nil
}

// TypeDescriptor returns the field descriptor of the class ("Landroid/view/View;").
func (f *ClassFile) TypeDescriptor() (string, error) {
	c, err := f.Class()
	if err != nil {
		return "", err
	}
	return c.TypeDescriptor(), nil
}

// Methods returns the decoded method table.
func (f *ClassFile) Methods() ([]Method, error) {
	c, err := f.Class()
	if err != nil {
		return nil, err
	}
	methods, err := c.MethodTable()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Path, err)
	}
	return methods, nil
}

// SimpleName returns the last path segment without the .class extension,
// e.g. "ViewCompat" or "Outer$InnerCompat".
func (f *ClassFile) SimpleName() string {
	return SimpleName(f.Path)
}

// AddAnnotation rewrites the content to carry ann.
func (f *ClassFile) AddAnnotation(ann Annotation) error {
	out, err := Annotate(f.content, ann)
	if err != nil {
		return fmt.Errorf("%s: %w", f.Path, err)
	}
	f.SetContent(out)
	return nil
}

// SimpleName returns the last path segment of an entry name without the
// .class extension.
func SimpleName(entry string) string {
	return strings.TrimSuffix(path.Base(entry), Ext)
}

// IsClassEntry reports whether an archive entry name denotes a class file.
func IsClassEntry(name string) bool {
	return strings.HasSuffix(name, Ext) && !strings.HasSuffix(name, "/")
}
