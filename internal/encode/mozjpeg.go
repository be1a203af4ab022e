package encode

import (
	"context"
	"fmt"
	"os"

	"github.com/yegorkir/respimg/internal/common"
	"github.com/yegorkir/respimg/internal/imageutil"
	"github.com/yegorkir/respimg/internal/mozjpeg"
)

// Mozjpeg resizes with x/image/draw and compresses JPEG outputs with cjpeg.
// Other formats go through Imaging.
type Mozjpeg struct {
	tc       *mozjpeg.Toolchain
	fallback Imaging
}

func NewMozjpeg(tc *mozjpeg.Toolchain) *Mozjpeg {
	return &Mozjpeg{tc: tc}
}

func (m *Mozjpeg) Encode(ctx context.Context, src, dest string, opts Options) (int64, error) {
	if !common.IsJPEG(dest) {
		return m.fallback.Encode(ctx, src, dest, opts)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	info, err := imageutil.Load(src, opts.Width, opts.Height)
	if err != nil {
		return 0, wrap(src, dest, opts, err)
	}

	ppmPath, err := imageutil.WritePPM(info.Image)
	if err != nil {
		return 0, wrap(src, dest, opts, fmt.Errorf("write ppm: %w", err))
	}
	defer os.Remove(ppmPath)

	size, err := mozjpeg.EncodePPM(ctx, m.tc, ppmPath, dest, mozjpeg.EncodeOptions{Quality: opts.Quality})
	return size, wrap(src, dest, opts, err)
}
