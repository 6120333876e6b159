// Package compat pairs compatibility shim classes ("ViewCompat") with the
// platform classes they wrap ("View") by naming convention.
package compat

import (
	"strings"

	"github.com/ilmirus/compatgrep/pkg/classfile"
)

// Suffix marks a compat class name.
const Suffix = "Compat"

// InnerSeparator joins outer and inner class names in a binary name.
const InnerSeparator = "$"

// IsCompatEntry reports whether an archive entry is a compat class file.
func IsCompatEntry(name string) bool {
	return strings.HasSuffix(name, Suffix+classfile.Ext)
}

// DeriveOriginName returns the simple name of the class a compat entry
// shims. For a nested compat type ("Outer$InnerCompat") only the inner
// segment loses the suffix ("Outer$Inner"). It reports false when the name
// does not end in Compat or nothing would remain.
func DeriveOriginName(compatEntryName string) (string, bool) {
	simple := classfile.SimpleName(compatEntryName)
	origin, ok := strings.CutSuffix(simple, Suffix)
	if !ok || origin == "" || strings.HasSuffix(origin, InnerSeparator) {
		return "", false
	}
	return origin, true
}

// FindOrigin returns the first reference class, in the given order, whose
// simple name is candidate. When none matches exactly it retries with path
// separators normalized to InnerSeparator, so "Inner" finds a reference
// class nested as "pkg/Outer$Inner" and "Outer$Inner" finds one that is
// top-level as "pkg/Outer/Inner". It returns nil when nothing matches.
func FindOrigin(candidate string, reference []*classfile.ClassFile) *classfile.ClassFile {
	if candidate == "" {
		return nil
	}
	for _, f := range reference {
		if f.SimpleName() == candidate {
			return f
		}
	}
	want := normalize(candidate)
	for _, f := range reference {
		name := normalize(strings.TrimSuffix(f.Path, classfile.Ext))
		if name == want || strings.HasSuffix(name, InnerSeparator+want) {
			return f
		}
	}
	return nil
}

func normalize(name string) string {
	return strings.ReplaceAll(name, "/", InnerSeparator)
}
