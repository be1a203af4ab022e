package variant

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/yegorkir/respimg/internal/common"
	"github.com/yegorkir/respimg/internal/config"
	"github.com/yegorkir/respimg/internal/imageutil"
)

// DimensionReader reads the pixel size of an image file.
type DimensionReader func(path string) (imageutil.Dimensions, error)

type Builder struct {
	FS             common.FS
	ReadDimensions DimensionReader
	SourceDir      string
	OutputDir      string
	Sizes          []config.SizeDefinition
	SkipExisting   bool
	Log            logrus.FieldLogger
}

func NewBuilder(fsys common.FS, settings config.Settings, log logrus.FieldLogger) *Builder {
	return &Builder{
		FS:             fsys,
		ReadDimensions: imageutil.ReadDimensions,
		SourceDir:      settings.SourceDir,
		OutputDir:      settings.OutputDir,
		Sizes:          settings.Sizes,
		SkipExisting:   settings.SkipExisting,
		Log:            log,
	}
}

// Plan is the outcome of planning one run.
type Plan struct {
	// Sources holds every readable source, queued or not.
	Sources []*Source
	// Queue holds the sources with at least one queued target.
	Queue []*Source
	// Excluded lists sources whose dimensions could not be read.
	Excluded []string
}

func (p *Plan) TotalTargets() int {
	n := 0
	for _, s := range p.Sources {
		n += len(s.Targets)
	}
	return n
}

func (p *Plan) QueuedTargets() int {
	n := 0
	for _, s := range p.Queue {
		n += len(s.Queued())
	}
	return n
}

// ExpectedPaths is the set of every target's output path across all
// sources.
func (p *Plan) ExpectedPaths() map[string]struct{} {
	out := make(map[string]struct{}, p.TotalTargets())
	for _, s := range p.Sources {
		for _, t := range s.Targets {
			out[t.OutputPath] = struct{}{}
		}
	}
	return out
}

// Build discovers sources under SourceDir and plans their targets.
func (b *Builder) Build(ctx context.Context) (*Plan, error) {
	files, err := common.CollectImages(b.FS, b.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("discover sources: %w", err)
	}

	plan := &Plan{}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		src, err := b.source(file)
		var dre *imageutil.DimensionReadError
		if errors.As(err, &dre) {
			b.logger().WithField("file", file).WithError(dre.Err).Warn("skipping unreadable image")
			plan.Excluded = append(plan.Excluded, file)
			continue
		}
		if err != nil {
			return nil, err
		}

		plan.Sources = append(plan.Sources, src)
		if len(src.Queued()) > 0 {
			plan.Queue = append(plan.Queue, src)
		}
	}
	return plan, nil
}

func (b *Builder) source(path string) (*Source, error) {
	info, err := b.FS.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	rel, err := filepath.Rel(b.SourceDir, path)
	if err != nil {
		return nil, err
	}
	dims, err := b.ReadDimensions(path)
	if err != nil {
		return nil, err
	}

	src := &Source{
		AbsPath:    path,
		RelPath:    rel,
		ModTime:    info.ModTime(),
		Bytes:      info.Size(),
		Dimensions: dims,
	}
	src.Targets = b.Targets(src)
	return src, nil
}

// Targets plans one target per size definition, drops duplicate output
// paths (first wins), marks the widest and applies the skip-existing check.
func (b *Builder) Targets(src *Source) []*Target {
	seen := make(map[string]bool, len(b.Sizes))
	var targets []*Target
	for _, size := range b.Sizes {
		actual := imageutil.PlanSize(src.Dimensions, size.MaxWidth, size.MaxHeight)
		out := OutputPath(b.OutputDir, src.RelPath, size.Suffix, actual)
		if seen[out] {
			continue
		}
		seen[out] = true
		targets = append(targets, &Target{
			OutputPath: out,
			Requested:  size,
			Actual:     actual,
			Queued:     !b.fresh(out, src),
		})
	}
	if w := widestOf(targets); w != nil {
		w.Widest = true
	}
	return targets
}

func (b *Builder) fresh(output string, src *Source) bool {
	if !b.SkipExisting {
		return false
	}
	info, err := b.FS.Stat(output)
	if err != nil {
		return false
	}
	return !info.ModTime().Before(src.ModTime)
}

func (b *Builder) logger() logrus.FieldLogger {
	if b.Log == nil {
		return logrus.StandardLogger()
	}
	return b.Log
}
