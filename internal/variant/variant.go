package variant

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yegorkir/respimg/internal/config"
	"github.com/yegorkir/respimg/internal/imageutil"
)

const DefaultSuffix = "-{width}w"

// Source is one discovered original.
type Source struct {
	AbsPath    string
	RelPath    string
	ModTime    time.Time
	Bytes      int64
	Dimensions imageutil.Dimensions
	Targets    []*Target
}

// Target is one variant of a Source. Quality and Bytes are filled in once
// the variant has been written.
type Target struct {
	OutputPath string
	Requested  config.SizeDefinition
	Actual     imageutil.Dimensions
	Widest     bool
	Queued     bool

	Quality int
	Bytes   int64
}

// Widest returns the target marked widest.
func (s *Source) Widest() *Target {
	for _, t := range s.Targets {
		if t.Widest {
			return t
		}
	}
	return nil
}

// Queued returns the targets that need to be (re)generated, in declaration
// order.
func (s *Source) Queued() []*Target {
	var out []*Target
	for _, t := range s.Targets {
		if t.Queued {
			out = append(out, t)
		}
	}
	return out
}

// SearchTarget is the widest queued target: the one the quality search runs
// against. Siblings reuse its quality.
func (s *Source) SearchTarget() *Target {
	return widestOf(s.Queued())
}

func widestOf(targets []*Target) *Target {
	var best *Target
	for _, t := range targets {
		if best == nil || t.Actual.Width > best.Actual.Width {
			best = t
		}
	}
	return best
}

// ResolveSuffix fills the width/height placeholders of a suffix template.
func ResolveSuffix(suffix string, d imageutil.Dimensions) string {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	w := strconv.Itoa(d.Width)
	h := strconv.Itoa(d.Height)
	return strings.NewReplacer(
		"{width}", w,
		"{height}", h,
		"{imageWidth}", w,
		"{imageHeight}", h,
	).Replace(suffix)
}

// OutputPath mirrors relPath under outputDir with the resolved suffix
// inserted before the extension.
func OutputPath(outputDir, relPath, suffix string, d imageutil.Dimensions) string {
	ext := filepath.Ext(relPath)
	stem := strings.TrimSuffix(filepath.Base(relPath), ext)
	name := stem + ResolveSuffix(suffix, d) + ext
	return filepath.Join(outputDir, filepath.Dir(relPath), name)
}

func (t *Target) String() string {
	return fmt.Sprintf("%s (%s)", filepath.Base(t.OutputPath), t.Actual)
}
