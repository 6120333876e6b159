package compat

import "github.com/ilmirus/compatgrep/pkg/classfile"

// Pair associates one origin class with the compat class that shims it.
// Fields are unexported so a Pair cannot be rebuilt with a different side
// once created.
type Pair struct {
	origin *classfile.ClassFile
	compat *classfile.ClassFile
}

// NewPair builds a pair. Pairing code should prefer PairAll; NewPair exists
// for callers that resolved the match themselves.
func NewPair(origin, compat *classfile.ClassFile) Pair {
	return Pair{origin: origin, compat: compat}
}

// Origin returns the platform class.
func (p Pair) Origin() *classfile.ClassFile { return p.origin }

// Compat returns the shim class.
func (p Pair) Compat() *classfile.ClassFile { return p.compat }

// Result is the outcome of pairing a set of compat classes.
type Result struct {
	Pairs   []Pair                 // in compat input order
	Orphans []*classfile.ClassFile // compat classes without an origin
}

// PairAll resolves every compat class against reference. The result is
// ordered like compats and depends only on the order of both inputs.
func PairAll(compats, reference []*classfile.ClassFile) Result {
	var res Result
	for _, c := range compats {
		candidate, ok := DeriveOriginName(c.Path)
		var origin *classfile.ClassFile
		if ok {
			origin = FindOrigin(candidate, reference)
		}
		if origin == nil {
			res.Orphans = append(res.Orphans, c)
			continue
		}
		res.Pairs = append(res.Pairs, NewPair(origin, c))
	}
	return res
}
