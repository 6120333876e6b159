package scan

import (
	"context"

	"go.uber.org/zap"

	"github.com/ilmirus/compatgrep/pkg/classfile"
	"github.com/ilmirus/compatgrep/pkg/compat"
)

// annotateOrigins marks each paired origin class with the compat class as
// the annotation value and returns the rewritten entries keyed by path,
// plus their paths in pair order. An origin that already carries the
// annotation type, or that an earlier pair annotated, is left alone.
func annotateOrigins(ctx context.Context, pairs []compat.Pair, cfg AnnotationConfig, log *zap.Logger) (map[string][]byte, []string, error) {
	replacements := make(map[string][]byte)
	var annotated []string
	for _, p := range pairs {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		origin := p.Origin()
		if _, done := replacements[origin.Path]; done {
			log.Warn("origin already annotated for another compat class",
				zap.String("origin", origin.Path),
				zap.String("compat", p.Compat().Path))
			continue
		}
		c, err := origin.Class()
		if err != nil {
			return nil, nil, err
		}
		has, err := c.HasAnnotation(cfg.Type)
		if err != nil {
			return nil, nil, err
		}
		if has {
			log.Info("origin already carries annotation",
				zap.String("origin", origin.Path),
				zap.String("annotation", cfg.Type))
			continue
		}
		compatType, err := p.Compat().TypeDescriptor()
		if err != nil {
			return nil, nil, err
		}
		ann := classfile.Annotation{
			Type:    cfg.Type,
			Visible: cfg.Visible,
			Params:  map[string]any{cfg.Param: classfile.ClassRef(compatType)},
		}
		if err := origin.AddAnnotation(ann); err != nil {
			return nil, nil, err
		}
		replacements[origin.Path] = origin.Content()
		annotated = append(annotated, origin.Path)
		log.Debug("annotated origin", zap.String("origin", origin.Path), zap.String("compat", compatType))
	}
	return replacements, annotated, nil
}
