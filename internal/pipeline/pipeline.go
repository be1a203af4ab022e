package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yegorkir/respimg/internal/common"
	"github.com/yegorkir/respimg/internal/compress"
	"github.com/yegorkir/respimg/internal/config"
	"github.com/yegorkir/respimg/internal/encode"
	"github.com/yegorkir/respimg/internal/imageutil"
	"github.com/yegorkir/respimg/internal/prune"
	"github.com/yegorkir/respimg/internal/report"
	"github.com/yegorkir/respimg/internal/variant"
)

// Deps are the collaborators of a run. FS, Encoder and Log are required.
type Deps struct {
	FS             common.FS
	Encoder        encode.Encoder
	Log            logrus.FieldLogger
	ReadDimensions variant.DimensionReader
	// OnPlan is called once planning is done, before any encoding.
	OnPlan func(*variant.Plan)
	// Progress is called after every summary change.
	Progress func(report.Summary)
}

type Result struct {
	Summary report.Summary
	Elapsed time.Duration
	Plan    *variant.Plan
}

type runner struct {
	settings  config.Settings
	deps      Deps
	log       logrus.FieldLogger
	collector *report.Collector

	mu     sync.Mutex
	failed map[string]struct{}
}

// Run plans, generates, resizes originals and prunes the output directory.
// Per-image failures land in Result.Summary.Failed; only planning errors
// and cancellation are returned.
func Run(ctx context.Context, settings config.Settings, deps Deps) (*Result, error) {
	start := time.Now()

	builder := variant.NewBuilder(deps.FS, settings, deps.Log)
	if deps.ReadDimensions != nil {
		builder.ReadDimensions = deps.ReadDimensions
	}
	plan, err := builder.Build(ctx)
	if err != nil {
		return nil, err
	}
	if deps.OnPlan != nil {
		deps.OnPlan(plan)
	}

	r := &runner{
		settings:  settings,
		deps:      deps,
		log:       deps.Log,
		collector: report.NewCollector(deps.Progress),
		failed:    make(map[string]struct{}),
	}

	if err := r.generate(ctx, plan.Queue); err != nil {
		r.collector.Close()
		return nil, err
	}
	if settings.ResizeOriginal {
		r.resizeOriginals(ctx, plan.Sources)
	}

	reconciler := &prune.Reconciler{FS: deps.FS, Log: deps.Log, Recorder: r.collector}
	if err := reconciler.Reconcile(ctx, settings.OutputDir, plan.ExpectedPaths()); err != nil {
		r.log.WithError(err).Error("pruning output directory failed")
	}

	return &Result{
		Summary: r.collector.Close(),
		Elapsed: time.Since(start),
		Plan:    plan,
	}, nil
}

func chunk(queue []*variant.Source, size int) [][]*variant.Source {
	if size < 1 {
		size = 1
	}
	var batches [][]*variant.Source
	for len(queue) > 0 {
		n := min(size, len(queue))
		batches = append(batches, queue[:n])
		queue = queue[n:]
	}
	return batches
}

// generate runs the batches one after another; images inside a batch run
// concurrently.
func (r *runner) generate(ctx context.Context, queue []*variant.Source) error {
	batches := chunk(queue, r.settings.BatchSize)
	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("batch %d of %d: %w", i+1, len(batches), err)
		}
		r.log.WithFields(logrus.Fields{"batch": i + 1, "images": len(batch)}).Debug("starting batch")

		g, gctx := errgroup.WithContext(ctx)
		for _, src := range batch {
			src := src
			g.Go(func() error {
				return r.processImage(gctx, src)
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("batch %d of %d: %w", i+1, len(batches), err)
		}
	}
	return nil
}

// processImage searches the widest queued target, then clones the other
// queued targets at the found quality. Encode failures are recorded, not
// returned.
func (r *runner) processImage(ctx context.Context, src *variant.Source) error {
	target := src.SearchTarget()
	if target == nil {
		return nil
	}

	budget := compress.Budget(r.settings.DynamicQuality, target.Actual, src.Bytes)
	res, err := compress.Search(ctx, r.deps.Encoder, compress.Request{
		Src:        src.AbsPath,
		Dest:       target.OutputPath,
		Width:      target.Requested.MaxWidth,
		Height:     target.Requested.MaxHeight,
		Budget:     budget,
		MaxQuality: r.settings.MaxQuality,
		MinQuality: r.settings.MinQuality,
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.fail(src, target, err)
		return nil
	}

	target.Quality, target.Bytes = res.Quality, res.Bytes
	r.collector.Clone(target.OutputPath, res.Quality, res.Bytes)
	r.status(res.Label(budget), src, target, len(res.Attempts))

	g, gctx := errgroup.WithContext(ctx)
	for _, sibling := range src.Queued() {
		if sibling == target {
			continue
		}
		sibling := sibling
		g.Go(func() error {
			return r.clone(gctx, src, sibling, res.Quality)
		})
	}
	return g.Wait()
}

func (r *runner) clone(ctx context.Context, src *variant.Source, t *variant.Target, quality int) error {
	size, err := r.deps.Encoder.Encode(ctx, src.AbsPath, t.OutputPath, encode.Options{
		Width:   t.Requested.MaxWidth,
		Height:  t.Requested.MaxHeight,
		Quality: quality,
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.fail(src, t, err)
		return nil
	}
	t.Quality, t.Bytes = quality, size
	r.collector.Clone(t.OutputPath, quality, size)
	r.status("OK", src, t, 1)
	return nil
}

func (r *runner) status(label string, src *variant.Source, t *variant.Target, attempts int) {
	r.log.WithFields(logrus.Fields{
		"file":     src.RelPath,
		"quality":  t.Quality,
		"bytes":    t.Bytes,
		"attempts": attempts,
	}).Infof("[%s] %s -> %s (%s) q=%d size=%.1fKB",
		label,
		filepath.Base(src.AbsPath),
		t.OutputPath,
		imageutil.FormatDimensionNote(src.Dimensions, t.Actual),
		t.Quality,
		float64(t.Bytes)/1024,
	)
}

func (r *runner) fail(src *variant.Source, t *variant.Target, err error) {
	r.log.WithFields(logrus.Fields{"file": src.RelPath, "dest": t.OutputPath}).WithError(err).Errorf("[ERROR] %s", filepath.Base(src.AbsPath))
	r.mu.Lock()
	r.failed[t.OutputPath] = struct{}{}
	r.mu.Unlock()
	r.collector.Fail(t.OutputPath, err)
}

func (r *runner) failedThisRun(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.failed[path]
	return ok
}

// resizeOriginals copies each source's widest variant over the source when
// the source is wider, then gives the source the variant's mtime so the
// variants still count as fresh. A source whose widest variant failed in
// this run is left alone.
func (r *runner) resizeOriginals(ctx context.Context, sources []*variant.Source) {
	for _, src := range sources {
		if ctx.Err() != nil {
			return
		}
		widest := src.Widest()
		if widest == nil || src.Dimensions.Width <= widest.Actual.Width {
			continue
		}
		log := r.log.WithFields(logrus.Fields{"file": src.RelPath, "from": widest.OutputPath})
		if r.failedThisRun(widest.OutputPath) {
			log.Warn("widest variant failed, original not resized")
			continue
		}

		info, err := r.deps.FS.Stat(widest.OutputPath)
		if err != nil {
			log.WithError(err).Error("cannot resize original, widest variant missing")
			r.collector.Fail(src.AbsPath, err)
			continue
		}
		if err := r.deps.FS.CopyFile(widest.OutputPath, src.AbsPath); err != nil {
			log.WithError(err).Error("failed to resize original")
			r.collector.Fail(src.AbsPath, err)
			continue
		}
		if err := r.deps.FS.Chtimes(src.AbsPath, info.ModTime()); err != nil {
			log.WithError(err).Warn("failed to reset original mtime")
		}
		log.Info("original downsized")
		r.collector.Send(report.Event{Kind: report.OriginalResized, Path: src.AbsPath})
	}
}
