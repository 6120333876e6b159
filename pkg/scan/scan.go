// Package scan runs the whole check: decode both archives, pair compat
// classes with their origins, classify every pair, annotate the origins and
// repack the reference archive.
package scan

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/ilmirus/compatgrep/pkg/archive"
	"github.com/ilmirus/compatgrep/pkg/classfile"
	"github.com/ilmirus/compatgrep/pkg/compat"
	"github.com/ilmirus/compatgrep/pkg/diff"
)

// Source is a zip archive readable at random offsets.
type Source struct {
	Name string
	R    io.ReaderAt
	Size int64
}

// BytesSource wraps an archive held in memory.
func BytesSource(name string, data []byte) Source {
	return Source{Name: name, R: bytes.NewReader(data), Size: int64(len(data))}
}

// Sources are the two archives a run reads.
type Sources struct {
	// Shim is the library (an aar) whose nested archive holds compat classes.
	Shim Source
	// Reference is the platform archive holding origin classes. It is also
	// the archive that gets annotated.
	Reference Source
}

// Options tune a run.
type Options struct {
	Logger *zap.Logger
	// DryRun reports findings without annotating or repacking.
	DryRun bool
}

// Run executes one check. Findings are returned in the Report; errors are
// reserved for inputs that cannot be processed at all.
func Run(ctx context.Context, src Sources, cfg Config, opts Options) (*Report, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Both archives are listed before any entry is read.
	inner, err := openShim(ctx, src.Shim, cfg.NestedEntry, log)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ref, err := openListed(src.Reference)
	if err != nil {
		return nil, fmt.Errorf("reference %s: %w", src.Reference.Name, err)
	}
	compats, err := loadClasses(inner, compat.IsCompatEntry)
	if err != nil {
		return nil, fmt.Errorf("shim %s!%s: %w", src.Shim.Name, cfg.NestedEntry, err)
	}

	// Reference classes are paired by path alone; only matched origins are
	// read and decoded.
	var reference []*classfile.ClassFile
	for _, name := range ref.Names() {
		if classfile.IsClassEntry(name) {
			reference = append(reference, classfile.NewClassFile(name, nil))
		}
	}
	paired := compat.PairAll(compats, reference)
	log.Info("paired compat classes",
		zap.Int("compat", len(compats)),
		zap.Int("reference", len(reference)),
		zap.Int("pairs", len(paired.Pairs)),
		zap.Int("orphans", len(paired.Orphans)))

	report := &Report{Orphans: paired.Orphans}
	for _, o := range paired.Orphans {
		log.Debug("orphan compat class", zap.String("class", o.Path))
	}

	for _, p := range paired.Pairs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if p.Origin().Content() == nil {
			data, err := ref.ReadEntry(p.Origin().Path)
			if err != nil {
				return nil, fmt.Errorf("reference %s: %w", src.Reference.Name, err)
			}
			p.Origin().SetContent(data)
		}
		incs, err := diff.Classify(p)
		if err != nil {
			return nil, err
		}
		generic, err := diff.GenericMethods(p.Compat())
		if err != nil {
			return nil, err
		}
		log.Debug("classified pair",
			zap.String("origin", p.Origin().Path),
			zap.String("compat", p.Compat().Path),
			zap.Int("inconsistencies", len(incs)))
		report.Pairs = append(report.Pairs, PairReport{
			Origin:          p.Origin().Path,
			Compat:          p.Compat().Path,
			Inconsistencies: incs,
		})
		report.GenericMethods = append(report.GenericMethods, generic...)
	}

	if opts.DryRun {
		return report, nil
	}

	replacements, annotated, err := annotateOrigins(ctx, paired.Pairs, cfg.Annotation, log)
	if err != nil {
		return nil, err
	}
	report.Annotated = annotated

	out, err := ref.RepackReplacing(replacements)
	if err != nil {
		return nil, err
	}
	repacked, err := archive.Open(out)
	if err != nil {
		return nil, fmt.Errorf("reopen output: %w", err)
	}
	if err := archive.VerifyCopyThrough(ref, repacked, replacements); err != nil {
		return nil, err
	}
	log.Info("annotated reference archive",
		zap.Int("annotated", len(report.Annotated)),
		zap.Int("entries", repacked.Len()),
		zap.Int("bytes", len(out)))
	report.Output = out
	return report, nil
}

// openShim returns the listed nested archive of the shim. A shim without
// the nested entry yields an empty archive.
func openShim(ctx context.Context, src Source, nested string, log *zap.Logger) (*archive.Archive, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	shim, err := openListed(src)
	if err != nil {
		return nil, fmt.Errorf("shim %s: %w", src.Name, err)
	}
	if !shim.Has(nested) {
		log.Warn("shim has no nested archive", zap.String("shim", src.Name), zap.String("entry", nested))
		return archive.Empty(), nil
	}
	inner, err := shim.OpenNested(nested)
	if err != nil {
		return nil, fmt.Errorf("shim %s: %w", src.Name, err)
	}
	if _, err := inner.Entries(); err != nil {
		return nil, fmt.Errorf("shim %s!%s: %w", src.Name, nested, err)
	}
	return inner, nil
}

// openListed opens an archive and lists it, so an oversized entry fails
// the run before any entry is read.
func openListed(src Source) (*archive.Archive, error) {
	a, err := archive.OpenReaderAt(src.R, src.Size)
	if err != nil {
		return nil, err
	}
	if _, err := a.Entries(); err != nil {
		return nil, err
	}
	return a, nil
}

// loadClasses reads every class entry accepted by match, in archive order.
func loadClasses(a *archive.Archive, match func(name string) bool) ([]*classfile.ClassFile, error) {
	var out []*classfile.ClassFile
	err := a.Each(
		func(name string) bool { return classfile.IsClassEntry(name) && (match == nil || match(name)) },
		func(name string, data []byte) error {
			out = append(out, classfile.NewClassFile(name, data))
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	return out, nil
}
