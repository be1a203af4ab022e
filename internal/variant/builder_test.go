package variant

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/yegorkir/respimg/internal/common"
	"github.com/yegorkir/respimg/internal/config"
	"github.com/yegorkir/respimg/internal/imageutil"
	"github.com/yegorkir/respimg/internal/logging"
)

var (
	srcTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	newer   = srcTime.Add(time.Hour)
	older   = srcTime.Add(-time.Hour)
)

func newTestBuilder(fsys common.FS, dims map[string]imageutil.Dimensions, sizes ...config.SizeDefinition) *Builder {
	return &Builder{
		FS: fsys,
		ReadDimensions: func(path string) (imageutil.Dimensions, error) {
			d, ok := dims[path]
			if !ok {
				return imageutil.Dimensions{}, &imageutil.DimensionReadError{Path: path, Err: fmt.Errorf("corrupt")}
			}
			return d, nil
		},
		SourceDir: "/src",
		OutputDir: "/out",
		Sizes:     sizes,
		Log:       logging.Discard(),
	}
}

func TestTargetsDeduplicateClampedSizes(t *testing.T) {
	b := newTestBuilder(common.NewMemFS(), nil,
		config.SizeDefinition{MaxWidth: 800, MaxHeight: 600},
		config.SizeDefinition{MaxWidth: 1600, MaxHeight: 1200},
	)
	src := &Source{RelPath: "photo.jpg", Dimensions: imageutil.Dimensions{Width: 200, Height: 200}}

	targets := b.Targets(src)
	if len(targets) != 1 {
		t.Fatalf("got %d targets, want 1", len(targets))
	}
	if targets[0].OutputPath != "/out/photo-200w.jpg" {
		t.Errorf("OutputPath = %s", targets[0].OutputPath)
	}
	if !targets[0].Widest || !targets[0].Queued {
		t.Errorf("target = %+v", targets[0])
	}
}

func TestTargetsMarkSingleWidest(t *testing.T) {
	b := newTestBuilder(common.NewMemFS(), nil,
		config.SizeDefinition{MaxWidth: 400, MaxHeight: 400},
		config.SizeDefinition{MaxWidth: 1600, MaxHeight: 1200},
		config.SizeDefinition{MaxWidth: 1600, MaxHeight: 1200, Suffix: "-{width}x{height}"},
	)
	src := &Source{RelPath: "a/b/photo.jpg", Dimensions: imageutil.Dimensions{Width: 4000, Height: 3000}}

	targets := b.Targets(src)
	if len(targets) != 3 {
		t.Fatalf("got %d targets", len(targets))
	}
	widest := 0
	for _, tg := range targets {
		if tg.Widest {
			widest++
		}
	}
	if widest != 1 {
		t.Fatalf("%d widest targets", widest)
	}
	// Ties keep declaration order.
	if !targets[1].Widest {
		t.Errorf("widest = %+v", targets)
	}
	if targets[1].Actual != (imageutil.Dimensions{Width: 1600, Height: 1200}) {
		t.Errorf("actual = %v", targets[1].Actual)
	}
	if targets[2].OutputPath != "/out/a/b/photo-1600x1200.jpg" {
		t.Errorf("templated path = %s", targets[2].OutputPath)
	}
	if targets[0].OutputPath != "/out/a/b/photo-400w.jpg" {
		t.Errorf("path = %s", targets[0].OutputPath)
	}
}

func TestResolveSuffixLegacyPlaceholders(t *testing.T) {
	got := ResolveSuffix("_{imageWidth}x{imageHeight}", imageutil.Dimensions{Width: 30, Height: 20})
	if got != "_30x20" {
		t.Errorf("got %q", got)
	}
	if got := ResolveSuffix("", imageutil.Dimensions{Width: 30, Height: 20}); got != "-30w" {
		t.Errorf("default suffix = %q", got)
	}
}

func TestBuildSkipExisting(t *testing.T) {
	fsys := common.NewMemFS()
	fsys.WriteFile("/src/fresh.jpg", 1000, srcTime)
	fsys.WriteFile("/src/stale.jpg", 1000, srcTime)
	fsys.WriteFile("/src/partial.jpg", 1000, srcTime)
	fsys.WriteFile("/out/fresh-100w.jpg", 10, newer)
	fsys.WriteFile("/out/stale-100w.jpg", 10, older)
	fsys.WriteFile("/out/partial-100w.jpg", 10, srcTime)

	dims := map[string]imageutil.Dimensions{
		"/src/fresh.jpg":   {Width: 100, Height: 100},
		"/src/stale.jpg":   {Width: 100, Height: 100},
		"/src/partial.jpg": {Width: 100, Height: 100},
	}
	b := newTestBuilder(fsys, dims,
		config.SizeDefinition{MaxWidth: 100, MaxHeight: 100},
		config.SizeDefinition{MaxWidth: 50, MaxHeight: 50},
	)
	b.Sizes = b.Sizes[:1]
	b.SkipExisting = true

	plan, err := b.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Sources) != 3 {
		t.Fatalf("sources = %d", len(plan.Sources))
	}
	if len(plan.Queue) != 1 || plan.Queue[0].AbsPath != "/src/stale.jpg" {
		t.Fatalf("queue = %v", queuePaths(plan))
	}

	b.Sizes = append(b.Sizes, config.SizeDefinition{MaxWidth: 50, MaxHeight: 50})
	plan, err = b.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Queue) != 3 {
		t.Fatalf("queue = %v", queuePaths(plan))
	}
	first := plan.Queue[0]
	if first.AbsPath != "/src/fresh.jpg" {
		t.Fatalf("order = %v", queuePaths(plan))
	}
	if q := first.Queued(); len(q) != 1 || q[0].OutputPath != "/out/fresh-50w.jpg" {
		t.Errorf("queued = %v", q)
	}
	if st := first.SearchTarget(); st.OutputPath != "/out/fresh-50w.jpg" {
		t.Errorf("search target = %v", st)
	}
	if plan.TotalTargets() != 6 || plan.QueuedTargets() != 4 {
		t.Errorf("totals = %d/%d", plan.TotalTargets(), plan.QueuedTargets())
	}
}

func TestBuildWithoutSkipExistingQueuesEverything(t *testing.T) {
	fsys := common.NewMemFS()
	fsys.WriteFile("/src/a.jpg", 1000, srcTime)
	fsys.WriteFile("/out/a-100w.jpg", 10, newer)

	b := newTestBuilder(fsys, map[string]imageutil.Dimensions{"/src/a.jpg": {Width: 100, Height: 100}},
		config.SizeDefinition{MaxWidth: 100, MaxHeight: 100})

	plan, err := b.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Queue) != 1 {
		t.Errorf("queue = %v", queuePaths(plan))
	}
}

func TestBuildExcludesUnreadableAndNonImages(t *testing.T) {
	fsys := common.NewMemFS()
	fsys.WriteFile("/src/good.png", 1000, srcTime)
	fsys.WriteFile("/src/corrupt.jpg", 1000, srcTime)
	fsys.WriteFile("/src/notes.txt", 10, srcTime)

	b := newTestBuilder(fsys, map[string]imageutil.Dimensions{"/src/good.png": {Width: 10, Height: 10}},
		config.SizeDefinition{MaxWidth: 100, MaxHeight: 100})

	plan, err := b.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Sources) != 1 || plan.Sources[0].AbsPath != "/src/good.png" {
		t.Errorf("sources = %v", plan.Sources)
	}
	if len(plan.Excluded) != 1 || plan.Excluded[0] != "/src/corrupt.jpg" {
		t.Errorf("excluded = %v", plan.Excluded)
	}
	if _, ok := plan.ExpectedPaths()["/out/good-10w.png"]; !ok {
		t.Errorf("expected paths = %v", plan.ExpectedPaths())
	}
}

func TestBuildMissingSourceDir(t *testing.T) {
	b := newTestBuilder(common.NewMemFS(), nil, config.SizeDefinition{MaxWidth: 1, MaxHeight: 1})
	if _, err := b.Build(context.Background()); err == nil {
		t.Error("expected error for missing source dir")
	}
}

func queuePaths(p *Plan) []string {
	var out []string
	for _, s := range p.Queue {
		out = append(out, s.AbsPath)
	}
	return out
}
