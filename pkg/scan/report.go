package scan

import (
	"strings"

	"github.com/ilmirus/compatgrep/pkg/classfile"
	"github.com/ilmirus/compatgrep/pkg/diff"
)

// PairReport holds the findings for one origin/compat pair.
type PairReport struct {
	Origin          string
	Compat          string
	Inconsistencies []diff.Inconsistency
}

// Report is the outcome of Run.
type Report struct {
	Orphans        []*classfile.ClassFile
	Pairs          []PairReport
	GenericMethods []diff.GenericMethod
	// Annotated lists origin entries rewritten into Output.
	Annotated []string
	// Output is the repacked reference archive; nil on a dry run.
	Output []byte
}

// Inconsistencies counts findings over all pairs.
func (r *Report) Inconsistencies() int {
	n := 0
	for _, p := range r.Pairs {
		n += len(p.Inconsistencies)
	}
	return n
}

// Format renders orphans, then inconsistent pairs, then the generic
// signature notes.
func (r *Report) Format() string {
	var b strings.Builder
	b.WriteString(diff.FormatOrphans(r.Orphans))
	for _, p := range r.Pairs {
		b.WriteString(diff.FormatPair(p.Origin, p.Compat, p.Inconsistencies))
	}
	b.WriteString(diff.FormatGenericLint(r.GenericMethods))
	return b.String()
}
